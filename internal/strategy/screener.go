package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/marketdata"
)

// Screener recommendations.
const (
	ScreenerStrongCandidate    = "STRONG_CANDIDATE"
	ScreenerPotentialCandidate = "POTENTIAL_CANDIDATE"
	ScreenerUnlikely           = "UNLIKELY"
)

// Candidacy thresholds, modeled on the S&P 500 inclusion criteria.
const (
	indexCapThreshold = 14_500_000_000
	nearCapThreshold  = 8_000_000_000
	highVolume        = 1_000_000
	moderateVolume    = 500_000
)

// growthSectors earn the screener's sector bonus.
var growthSectors = map[string]bool{
	"Technology":         true,
	"Healthcare":         true,
	"Financial Services": true,
	"Consumer Cyclical":  true,
}

// ScreenerResult scores a company's fitness for index addition.
type ScreenerResult struct {
	Ticker            string   `json:"ticker,omitempty"`
	CompanyName       string   `json:"company_name"`
	Recommendation    string   `json:"recommendation"`
	Score             float64  `json:"score"`
	Reasons           []string `json:"reasons"`
	MarketCap         float64  `json:"market_cap"`
	MarketCapBillions float64  `json:"market_cap_billions"`
	DailyVolume       int64    `json:"daily_volume"`
	Sector            string   `json:"sector"`
}

// ScreenerStrategy screens stocks for index addition candidacy.
type ScreenerStrategy struct {
	client marketdata.ClientInterface
}

// NewScreenerStrategy creates an index addition screener.
func NewScreenerStrategy(client marketdata.ClientInterface) *ScreenerStrategy {
	return &ScreenerStrategy{client: client}
}

// Name implements the Strategy interface.
func (s *ScreenerStrategy) Name() string { return "Screener" }

// Screen scores explicit fundamentals against the candidacy thresholds.
func (s *ScreenerStrategy) Screen(companyName string, marketCap float64, volume int64, sector string) *ScreenerResult {
	score := 0.0
	var reasons []string

	capBillions := marketCap / 1e9

	// Market cap criterion
	switch {
	case marketCap >= indexCapThreshold:
		score += 40
		reasons = append(reasons, fmt.Sprintf("Market cap $%.1fB meets S&P 500 threshold", capBillions))
	case marketCap >= nearCapThreshold:
		score += 25
		reasons = append(reasons, fmt.Sprintf("Market cap $%.1fB approaching threshold", capBillions))
	default:
		reasons = append(reasons, fmt.Sprintf("Market cap $%.1fB below threshold", capBillions))
	}

	// Liquidity criterion
	switch {
	case volume >= highVolume:
		score += 30
		reasons = append(reasons, fmt.Sprintf("High volume %d (excellent liquidity)", volume))
	case volume >= moderateVolume:
		score += 15
		reasons = append(reasons, fmt.Sprintf("Moderate volume %d", volume))
	default:
		reasons = append(reasons, fmt.Sprintf("Low volume %d", volume))
	}

	// Sector bonus
	if growthSectors[sector] {
		score += 10
		reasons = append(reasons, fmt.Sprintf("High-growth sector (%s)", sector))
	}

	recommendation := ScreenerUnlikely
	switch {
	case score >= 70:
		recommendation = ScreenerStrongCandidate
	case score >= 50:
		recommendation = ScreenerPotentialCandidate
	}

	return &ScreenerResult{
		CompanyName:       companyName,
		Recommendation:    recommendation,
		Score:             score,
		Reasons:           reasons,
		MarketCap:         marketCap,
		MarketCapBillions: round2(capBillions),
		DailyVolume:       volume,
		Sector:            sector,
	}
}

// ScreenTicker screens a ticker using its live fundamentals.
func (s *ScreenerStrategy) ScreenTicker(ctx context.Context, ticker string) (*ScreenerResult, error) {
	profile, err := s.client.GetCompanyProfile(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if profile.MarketCap <= 0 || profile.Volume <= 0 {
		return nil, fmt.Errorf("%w: incomplete fundamentals for %s", marketdata.ErrUnavailable, ticker)
	}

	name := profile.Name
	if name == "" {
		name = ticker
	}

	result := s.Screen(name, profile.MarketCap, profile.Volume, profile.Sector)
	result.Ticker = ticker
	return result, nil
}

// Evaluate implements the Strategy interface. The candidacy score feeds
// the aggregate as a bullish contribution: index addition candidates
// attract passive inflows.
func (s *ScreenerStrategy) Evaluate(ctx context.Context, ticker string) (*Signal, error) {
	result, err := s.ScreenTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}

	return &Signal{
		Label:       result.Recommendation,
		Score:       result.Score,
		Description: strings.Join(result.Reasons, "; "),
	}, nil
}

// ensure the provider implements the interface
var _ Strategy = (*ScreenerStrategy)(nil)
