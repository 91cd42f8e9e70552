// Package stocks fetches daily stock prices from the Yahoo Finance chart API
package stocks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://query1.finance.yahoo.com"

var (
	ErrNoData        = errors.New("No data found for the given stock symbol and date range.")
	ErrInvalidSymbol = errors.New("stock symbol is required")
	ErrInvalidRange  = errors.New("start date must be before end date")
	ErrUpstream      = errors.New("stock price source returned an error")
)

// Options configures the client. Zero values fall back to the defaults.
type Options struct {
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
}

func NewDefaultOptions() Options {
	return Options{
		BaseURL:       DefaultBaseURL,
		Timeout:       30 * time.Second,
		RatePerSecond: 2,
		Burst:         4,
	}
}

// Client fetches historical prices. Requests share one rate limiter.
type Client struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewClient(log zerolog.Logger, opt Options) *Client {
	def := NewDefaultOptions()
	if opt.BaseURL == "" {
		opt.BaseURL = def.BaseURL
	}
	if opt.Timeout <= 0 {
		opt.Timeout = def.Timeout
	}
	if opt.RatePerSecond <= 0 {
		opt.RatePerSecond = def.RatePerSecond
	}
	if opt.Burst <= 0 {
		opt.Burst = def.Burst
	}
	return &Client{
		client: &http.Client{
			Timeout: opt.Timeout,
		},
		baseURL: strings.TrimRight(opt.BaseURL, "/"),
		limiter: rate.NewLimiter(rate.Limit(opt.RatePerSecond), opt.Burst),
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

// HistoricalPrices returns the daily prices of a symbol from start up to but excluding
// end. Days where every price is zero are skipped.
func (c *Client) HistoricalPrices(ctx context.Context, symbol string, start, end time.Time) ([]Price, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}
	if !start.Before(end) {
		return nil, ErrInvalidRange
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("period1", strconv.FormatInt(start.Unix(), 10))
	params.Add("period2", strconv.FormatInt(end.Unix(), 10))
	params.Add("events", "history")
	reqURL := c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create request, %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch historical prices, %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read response body, %w", err)
	}

	var result chartResponse
	if err := json.Unmarshal(body, &result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("status %d, %w", resp.StatusCode, ErrUpstream)
		}
		return nil, fmt.Errorf("unable to parse response, %w", err)
	}

	if cerr := result.Chart.Error; cerr != nil {
		c.log.Warn().Str("symbol", symbol).Str("code", cerr.Code).Msg(cerr.Description)
		if resp.StatusCode == http.StatusNotFound || cerr.Code == "Not Found" {
			return nil, ErrNoData
		}
		return nil, fmt.Errorf("%s: %s, %w", cerr.Code, cerr.Description, ErrUpstream)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d, %w", resp.StatusCode, ErrUpstream)
	}
	if len(result.Chart.Result) == 0 {
		return nil, ErrNoData
	}

	prices := parsePrices(result.Chart.Result[0])
	if len(prices) == 0 {
		return nil, ErrNoData
	}

	c.log.Info().
		Str("symbol", symbol).
		Time("start", start).
		Time("end", end).
		Int("count", len(prices)).
		Msg("fetched historical prices")
	return prices, nil
}

func parsePrices(res chartResult) []Price {
	if len(res.Indicators.Quote) == 0 {
		return nil
	}
	quote := res.Indicators.Quote[0]

	var adjClose []float64
	if len(res.Indicators.AdjClose) > 0 {
		adjClose = res.Indicators.AdjClose[0].AdjClose
	}

	loc := time.UTC
	if tz := res.Meta.ExchangeTimezoneName; tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	prices := make([]Price, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) {
			continue
		}
		// missing days decode as zero
		if quote.Open[i] == 0 && quote.High[i] == 0 && quote.Low[i] == 0 && quote.Close[i] == 0 {
			continue
		}

		p := Price{
			Date:     tradingDay(time.Unix(ts, 0), loc),
			Open:     quote.Open[i],
			High:     quote.High[i],
			Low:      quote.Low[i],
			Close:    quote.Close[i],
			AdjClose: quote.Close[i],
		}
		if i < len(adjClose) && adjClose[i] != 0 {
			p.AdjClose = adjClose[i]
		}
		if i < len(quote.Volume) {
			p.Volume = quote.Volume[i]
		}
		prices = append(prices, p)
	}
	return prices
}

// tradingDay returns midnight UTC of the calendar day t falls on at the exchange
func tradingDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
