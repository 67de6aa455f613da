package strategy

import (
	"context"
	"math"
	"strings"
)

// Categorical signal labels shared by the providers.
const (
	SignalStrongBuy   = "STRONG_BUY"
	SignalBuy         = "BUY"
	SignalHoldBullish = "HOLD_BULLISH"
	SignalHoldBearish = "HOLD_BEARISH"
	SignalSell        = "SELL"
	SignalStrongSell  = "STRONG_SELL"
)

// Aggregated actions. The engine only ever buys or holds; exits are
// driven by stop loss and take profit, not by signals.
const (
	ActionBuy  = "BUY"
	ActionHold = "HOLD"
)

var signalScores = map[string]float64{
	SignalStrongBuy:   90,
	SignalBuy:         70,
	SignalHoldBullish: 50,
	SignalHoldBearish: -50,
	SignalSell:        -70,
	SignalStrongSell:  -90,
}

// SignalScore maps a categorical signal label onto the bullishness
// scale. Unknown labels score zero.
func SignalScore(label string) float64 {
	return signalScores[label]
}

// Signal is a single provider's opinion on a ticker.
type Signal struct {
	Label       string
	Score       float64
	Description string
}

// Strategy defines the interface for a signal provider.
type Strategy interface {
	// Name returns the short provider name recorded on executed trades.
	Name() string

	// Evaluate produces the provider's signal for a ticker.
	Evaluate(ctx context.Context, ticker string) (*Signal, error)
}

// ProviderSignal is a provider's signal attributed to its source.
type ProviderSignal struct {
	Provider    string  `json:"provider"`
	Label       string  `json:"label"`
	Score       float64 `json:"score"`
	Description string  `json:"description,omitempty"`
}

// Analysis is the combined view of all providers on one ticker.
type Analysis struct {
	Ticker     string           `json:"ticker"`
	Action     string           `json:"action"`
	Confidence float64          `json:"confidence"`
	MeanScore  float64          `json:"mean_score"`
	Signals    []ProviderSignal `json:"signals"`
}

// Providers returns the comma-separated provider names behind this
// analysis.
func (a *Analysis) Providers() string {
	names := make([]string, len(a.Signals))
	for i, s := range a.Signals {
		names[i] = s.Provider
	}
	return strings.Join(names, ", ")
}

// Aggregate combines provider signals into a single decision. The mean
// score must strictly exceed minConfidence for a BUY; the exact boundary
// holds. Returns nil when no provider produced a signal.
func Aggregate(ticker string, signals []ProviderSignal, minConfidence float64) *Analysis {
	if len(signals) == 0 {
		return nil
	}

	var sum float64
	for _, s := range signals {
		sum += s.Score
	}
	mean := sum / float64(len(signals))

	action := ActionHold
	if mean > minConfidence {
		action = ActionBuy
	}

	return &Analysis{
		Ticker:     ticker,
		Action:     action,
		Confidence: math.Abs(mean),
		MeanScore:  mean,
		Signals:    signals,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
