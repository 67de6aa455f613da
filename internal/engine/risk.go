package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/models"
)

// Configuration errors returned before any state is touched.
var (
	ErrUnknownRiskLevel = errors.New("unknown risk level")
	ErrUnknownDuration  = errors.New("unknown investment duration")
)

// RiskProfile is the fixed parameter set of one risk tier. Fractions are
// of bot capital; MinConfidence is on the signal score scale.
type RiskProfile struct {
	MaxPositionSize       decimal.Decimal
	MaxPortfolioExposure  decimal.Decimal
	StopLoss              decimal.Decimal
	TakeProfit            decimal.Decimal
	MinConfidence         float64
	Stocks                []string
	ExpectedMonthlyReturn decimal.Decimal
}

// riskProfiles is immutable process-wide configuration, keyed by risk
// level.
var riskProfiles = map[string]RiskProfile{
	models.RiskLow: {
		MaxPositionSize:       decimal.RequireFromString("0.10"),
		MaxPortfolioExposure:  decimal.RequireFromString("0.40"),
		StopLoss:              decimal.RequireFromString("0.05"),
		TakeProfit:            decimal.RequireFromString("0.08"),
		MinConfidence:         70,
		Stocks:                []string{"AAPL", "MSFT", "JNJ", "PG", "KO"},
		ExpectedMonthlyReturn: decimal.RequireFromString("2.5"),
	},
	models.RiskMedium: {
		MaxPositionSize:       decimal.RequireFromString("0.15"),
		MaxPortfolioExposure:  decimal.RequireFromString("0.60"),
		StopLoss:              decimal.RequireFromString("0.08"),
		TakeProfit:            decimal.RequireFromString("0.12"),
		MinConfidence:         60,
		Stocks:                []string{"AAPL", "GOOGL", "NVDA", "TSLA", "AMD", "META", "NFLX"},
		ExpectedMonthlyReturn: decimal.RequireFromString("5.0"),
	},
	models.RiskHigh: {
		MaxPositionSize:       decimal.RequireFromString("0.20"),
		MaxPortfolioExposure:  decimal.RequireFromString("0.80"),
		StopLoss:              decimal.RequireFromString("0.12"),
		TakeProfit:            decimal.RequireFromString("0.20"),
		MinConfidence:         50,
		Stocks:                []string{"NVDA", "TSLA", "AMD", "COIN", "PLTR", "SOFI", "RIOT"},
		ExpectedMonthlyReturn: decimal.RequireFromString("10.0"),
	},
}

// durationMultipliers scale the expected monthly return for display
// estimates. They never influence execution.
var durationMultipliers = map[string]int64{
	models.DurationShort:  1,
	models.DurationMedium: 2,
	models.DurationLong:   3,
}

// orderings for the catalog, since map iteration is unordered.
var (
	riskLevels = []string{models.RiskLow, models.RiskMedium, models.RiskHigh}
	durations  = []string{models.DurationShort, models.DurationMedium, models.DurationLong}
)

// ProfileFor returns the risk profile of a tier.
func ProfileFor(riskLevel string) (RiskProfile, error) {
	profile, ok := riskProfiles[riskLevel]
	if !ok {
		return RiskProfile{}, fmt.Errorf("%w: %q", ErrUnknownRiskLevel, riskLevel)
	}
	return profile, nil
}

// DurationMultiplierFor returns the expected-return multiplier of a
// duration tier.
func DurationMultiplierFor(duration string) (int64, error) {
	multiplier, ok := durationMultipliers[duration]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDuration, duration)
	}
	return multiplier, nil
}

// ExpectedReturn estimates the return of a (risk, duration) pairing in
// percent.
func ExpectedReturn(riskLevel, duration string) (decimal.Decimal, error) {
	profile, err := ProfileFor(riskLevel)
	if err != nil {
		return decimal.Zero, err
	}
	multiplier, err := DurationMultiplierFor(duration)
	if err != nil {
		return decimal.Zero, err
	}
	return profile.ExpectedMonthlyReturn.Mul(decimal.NewFromInt(multiplier)), nil
}

// ProfileOption is one catalog row offered to users picking a bot
// configuration.
type ProfileOption struct {
	RiskLevel       string   `json:"risk_level"`
	Duration        string   `json:"duration"`
	ExpectedReturn  string   `json:"expected_return"`
	MaxPositionSize string   `json:"max_position_size"`
	StopLoss        string   `json:"stop_loss"`
	TakeProfit      string   `json:"take_profit"`
	Stocks          []string `json:"stocks"`
}

// ProfileCatalog expands the risk and duration tables into every
// offered combination.
func ProfileCatalog() []ProfileOption {
	hundred := decimal.NewFromInt(100)

	options := make([]ProfileOption, 0, len(riskLevels)*len(durations))
	for _, riskLevel := range riskLevels {
		profile := riskProfiles[riskLevel]
		for _, duration := range durations {
			expected := profile.ExpectedMonthlyReturn.Mul(decimal.NewFromInt(durationMultipliers[duration]))
			options = append(options, ProfileOption{
				RiskLevel:       riskLevel,
				Duration:        duration,
				ExpectedReturn:  expected.String() + "%",
				MaxPositionSize: profile.MaxPositionSize.Mul(hundred).String() + "%",
				StopLoss:        profile.StopLoss.Mul(hundred).String() + "%",
				TakeProfit:      profile.TakeProfit.Mul(hundred).String() + "%",
				Stocks:          profile.Stocks,
			})
		}
	}
	return options
}
