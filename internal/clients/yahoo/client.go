// Package yahoo provides historical price fetching from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/hindsight/internal/domain"
)

// Client for the Yahoo Finance chart API
type Client struct {
	baseURL   string
	client    *http.Client
	symbolMap map[string]string // maps internal symbol to Yahoo ticker
	log       zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://query1.finance.yahoo.com/v8/finance/chart",
		client:  &http.Client{Timeout: 30 * time.Second},
		symbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

// yahooSymbol maps an internal symbol to its Yahoo ticker
func (c *Client) yahooSymbol(symbol string) string {
	if mapped, ok := c.symbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// chartResponse is the response structure from the Yahoo Finance chart API.
// Quote arrays use interface{} because Yahoo emits JSON nulls for halted days.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func toInt64(v interface{}) int64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	}
	return 0
}

// FetchDailyBars fetches daily OHLCV bars for one symbol over [from, to],
// returned in ascending date order. A failed or empty fetch returns an error
// for this symbol only; callers batch-isolate it.
func (c *Client) FetchDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]domain.PriceBar, error) {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(c.yahooSymbol(symbol)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", symbol, err)
	}

	q := req.URL.Query()
	q.Set("interval", "1d")
	q.Set("period1", fmt.Sprintf("%d", from.Unix()))
	// period2 is exclusive upstream; push it past the end of the day
	q.Set("period2", fmt.Sprintf("%d", to.AddDate(0, 0, 1).Unix()))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("User-Agent", "Mozilla/5.0 (hindsight)")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chart request failed for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart request for %s returned status %d", symbol, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read chart response for %s: %w", symbol, err)
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("failed to decode chart response for %s: %w", symbol, err)
	}

	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s", symbol, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart response for %s contains no quote data", symbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	bars := make([]domain.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) {
			break
		}
		closePrice := toFloat(quote.Close[i])
		if closePrice == 0 {
			// Null bar (halt or vendor gap); nearest-prior lookup covers it
			continue
		}

		bar := domain.PriceBar{
			Date:  domain.Day(time.Unix(ts, 0).UTC()),
			Close: closePrice,
		}
		if i < len(quote.Open) {
			bar.Open = toFloat(quote.Open[i])
		}
		if i < len(quote.High) {
			bar.High = toFloat(quote.High[i])
		}
		if i < len(quote.Low) {
			bar.Low = toFloat(quote.Low[i])
		}
		if i < len(quote.Volume) {
			bar.Volume = toInt64(quote.Volume[i])
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	c.log.Debug().
		Str("symbol", symbol).
		Int("bars", len(bars)).
		Msg("Fetched daily bars")

	return bars, nil
}

// FetchQuote fetches the latest close for a symbol by asking for the most
// recent week of bars and returning the last one.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (float64, error) {
	now := time.Now().UTC()
	bars, err := c.FetchDailyBars(ctx, symbol, now.AddDate(0, 0, -7), now)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("no recent bars for %s", symbol)
	}
	return bars[len(bars)-1].Close, nil
}
