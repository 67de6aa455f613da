package marketdata

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Leonsb25/index-rebalancing-trading-platiform-backend/internal/config"
)

// ErrUnavailable is returned when the provider responded but carried no
// usable data for the requested ticker.
var ErrUnavailable = errors.New("market data unavailable")

// Quote is one daily bar for a ticker together with the previous
// session's bar.
type Quote struct {
	Ticker       string
	CurrentPrice float64
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       int64
	PrevOpen     float64
	PrevHigh     float64
	PrevLow      float64
	PrevClose    float64
	PrevVolume   int64
}

// CompanyProfile carries the fundamentals used by the screener.
type CompanyProfile struct {
	Ticker    string
	Name      string
	Sector    string
	MarketCap float64
	Volume    int64
}

// ClientInterface defines the interface for the market data client.
type ClientInterface interface {
	GetPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
	GetQuote(ctx context.Context, ticker string) (*Quote, error)
	GetCompanyProfile(ctx context.Context, ticker string) (*CompanyProfile, error)
}

// Client fetches quotes and fundamentals from the Yahoo Finance public
// API. It implements the ClientInterface.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new market data client.
func NewClient(cfg *config.MarketData, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second).
		// The quote API rejects requests without a browser-like agent.
		SetHeader("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:  client,
		logger:  logger,
		limiter: limiter,
	}
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	req.SetContext(ctx)

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// chartResponse mirrors the /v8/finance/chart payload.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

// apiError is the error object embedded in provider responses.
type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (c *Client) getChart(ctx context.Context, ticker, dateRange string) (*chartResponse, error) {
	var chart chartResponse

	req := c.client.R().
		SetResult(&chart).
		SetQueryParams(map[string]string{
			"range":    dateRange,
			"interval": "1d",
		})

	_, err := c.doRequest(ctx, "GET", "/v8/finance/chart/"+ticker, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get chart for %s: %w", ticker, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("chart request for %s rejected: %w", ticker, chart.Chart.Error)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: no chart data for %s", ErrUnavailable, ticker)
	}
	return &chart, nil
}

// lastPositive returns the last entry greater than zero. Bars the
// provider has no data for come through as zeroes.
func lastPositive(values []float64) float64 {
	for i := len(values) - 1; i >= 0; i-- {
		if values[i] > 0 {
			return values[i]
		}
	}
	return 0
}

// GetPrice fetches the latest trading price of a ticker, rounded to
// cents.
func (c *Client) GetPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	chart, err := c.getChart(ctx, ticker, "1d")
	if err != nil {
		return decimal.Zero, err
	}

	result := chart.Chart.Result[0]
	price := result.Meta.RegularMarketPrice
	if len(result.Indicators.Quote) > 0 {
		if lastClose := lastPositive(result.Indicators.Quote[0].Close); lastClose > 0 {
			price = lastClose
		}
	}
	if price <= 0 {
		return decimal.Zero, fmt.Errorf("%w: no price for %s", ErrUnavailable, ticker)
	}

	return decimal.NewFromFloat(price).Round(2), nil
}

// GetQuote fetches the current session's daily bar for a ticker along
// with the previous session's bar.
func (c *Client) GetQuote(ctx context.Context, ticker string) (*Quote, error) {
	chart, err := c.getChart(ctx, ticker, "5d")
	if err != nil {
		return nil, err
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 || len(result.Timestamp) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s", ErrUnavailable, ticker)
	}
	bars := result.Indicators.Quote[0]
	n := len(result.Timestamp)

	quote := &Quote{
		Ticker:       ticker,
		CurrentPrice: result.Meta.RegularMarketPrice,
	}

	last := n - 1
	prev := last
	if n > 1 {
		prev = n - 2
	}

	pick := func(values []float64, i int) float64 {
		if i < len(values) {
			return values[i]
		}
		return 0
	}
	pickVol := func(values []int64, i int) int64 {
		if i < len(values) {
			return values[i]
		}
		return 0
	}

	quote.Open = pick(bars.Open, last)
	quote.High = pick(bars.High, last)
	quote.Low = pick(bars.Low, last)
	quote.Close = pick(bars.Close, last)
	quote.Volume = pickVol(bars.Volume, last)
	quote.PrevOpen = pick(bars.Open, prev)
	quote.PrevHigh = pick(bars.High, prev)
	quote.PrevLow = pick(bars.Low, prev)
	quote.PrevClose = pick(bars.Close, prev)
	quote.PrevVolume = pickVol(bars.Volume, prev)

	if quote.CurrentPrice <= 0 {
		quote.CurrentPrice = quote.Close
	}
	if quote.Close <= 0 {
		return nil, fmt.Errorf("%w: no close for %s", ErrUnavailable, ticker)
	}

	return quote, nil
}

// quoteSummaryResponse mirrors the /v10/finance/quoteSummary payload.
// Numeric fields arrive wrapped as {"raw": ..., "fmt": "..."} objects.
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				LongName            string   `json:"longName"`
				ShortName           string   `json:"shortName"`
				MarketCap           rawValue `json:"marketCap"`
				RegularMarketVolume rawValue `json:"regularMarketVolume"`
			} `json:"price"`
			AssetProfile struct {
				Sector string `json:"sector"`
			} `json:"assetProfile"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"quoteSummary"`
}

type rawValue struct {
	Raw float64 `json:"raw"`
	Fmt string  `json:"fmt"`
}

// GetCompanyProfile fetches the fundamentals of a ticker.
func (c *Client) GetCompanyProfile(ctx context.Context, ticker string) (*CompanyProfile, error) {
	var summary quoteSummaryResponse

	req := c.client.R().
		SetResult(&summary).
		SetQueryParam("modules", "price,assetProfile")

	_, err := c.doRequest(ctx, "GET", "/v10/finance/quoteSummary/"+ticker, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile for %s: %w", ticker, err)
	}
	if summary.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("profile request for %s rejected: %w", ticker, summary.QuoteSummary.Error)
	}
	if len(summary.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%w: no profile for %s", ErrUnavailable, ticker)
	}

	result := summary.QuoteSummary.Result[0]
	name := result.Price.LongName
	if name == "" {
		name = result.Price.ShortName
	}

	return &CompanyProfile{
		Ticker:    ticker,
		Name:      name,
		Sector:    result.AssetProfile.Sector,
		MarketCap: result.Price.MarketCap.Raw,
		Volume:    int64(result.Price.RegularMarketVolume.Raw),
	}, nil
}
