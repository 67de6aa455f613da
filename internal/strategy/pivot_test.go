package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/marketdata"
)

func TestCalculatePivotLevels(t *testing.T) {
	levels := CalculatePivotLevels(110, 90, 100)

	assert.Equal(t, 100.0, levels.Pivot)
	assert.Equal(t, 90.0, levels.Support1)
	assert.Equal(t, 80.0, levels.Support2)
	assert.Equal(t, 70.0, levels.Support3)
	assert.Equal(t, 110.0, levels.Resistance1)
	assert.Equal(t, 120.0, levels.Resistance2)
	assert.Equal(t, 130.0, levels.Resistance3)
}

func TestPivotClassify(t *testing.T) {
	levels := CalculatePivotLevels(110, 90, 100)

	tests := []struct {
		name  string
		price float64
		label string
	}{
		{"AboveR2", 125, SignalStrongBuy},
		{"AboveR1", 115, SignalBuy},
		{"ExactlyR1", 110, SignalHoldBullish},
		{"AbovePivot", 105, SignalHoldBullish},
		{"BelowPivot", 95, SignalHoldBearish},
		{"ExactlyS1", 90, SignalHoldBearish},
		{"BelowS1", 85, SignalSell},
		{"ExactlyS2", 80, SignalStrongSell},
		{"BelowS2", 75, SignalStrongSell},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, description := levels.Classify(tt.price)
			assert.Equal(t, tt.label, label)
			assert.NotEmpty(t, description)
		})
	}
}

func TestPivotEvaluateUsesPreviousBar(t *testing.T) {
	client := new(MockMarketClient)
	// Today's bar is strongly bullish but the signal must come off the
	// previous session: its close sat below its own pivot.
	client.On("GetQuote", mock.Anything, "AAPL").Return(&marketdata.Quote{
		Ticker: "AAPL",
		Open:   100, High: 109, Low: 99, Close: 108,
		PrevHigh: 110, PrevLow: 90, PrevClose: 92,
	}, nil)

	s := NewPivotStrategy(client)
	signal, err := s.Evaluate(context.Background(), "AAPL")

	assert.NoError(t, err)
	assert.Equal(t, SignalHoldBearish, signal.Label)
	assert.Equal(t, -50.0, signal.Score)
	client.AssertExpectations(t)
}

func TestPivotEvaluateErrors(t *testing.T) {
	t.Run("QuoteFails", func(t *testing.T) {
		client := new(MockMarketClient)
		client.On("GetQuote", mock.Anything, "AAPL").Return(nil, errors.New("down"))

		s := NewPivotStrategy(client)
		_, err := s.Evaluate(context.Background(), "AAPL")
		assert.Error(t, err)
	})

	t.Run("IncompleteBar", func(t *testing.T) {
		client := new(MockMarketClient)
		client.On("GetQuote", mock.Anything, "AAPL").Return(&marketdata.Quote{
			Ticker: "AAPL", PrevHigh: 0, PrevLow: 0, PrevClose: 0,
		}, nil)

		s := NewPivotStrategy(client)
		_, err := s.Evaluate(context.Background(), "AAPL")
		assert.ErrorIs(t, err, marketdata.ErrUnavailable)
	})
}
