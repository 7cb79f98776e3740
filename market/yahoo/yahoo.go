// Package yahoo fetches daily, weekly and monthly bars from the Yahoo
// Finance chart endpoint.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rustyeddy/papertrader/market"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Client implements market.Provider. The zero value is usable; missing
// fields fall back to DefaultBaseURL, http.DefaultClient and a nop logger.
type Client struct {
	BaseURL   string
	HTTP      *http.Client
	UserAgent string
	Log       *zap.Logger
}

var _ market.Provider = (*Client)(nil)

type chartResp struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *Client) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

// Fetch downloads bars for ticker. Prices are adjusted for splits and
// dividends when the response carries an adjusted close, and rows with any
// missing OHLC value are skipped.
func (c *Client) Fetch(ctx context.Context, ticker string, period market.Period, interval market.Interval) ([]market.Bar, error) {
	ticker, err := market.NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}

	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	u.Path = "/v8/finance/chart/" + url.PathEscape(ticker)

	q := u.Query()
	q.Set("range", string(period))
	q.Set("interval", string(interval))
	q.Set("includeAdjustedClose", "true")
	q.Set("events", "div,splits")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("yahoo %s: %w", ticker, market.ErrNoData)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, fmt.Errorf("yahoo chart http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var cr chartResp
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("yahoo %s: decode: %w", ticker, err)
	}
	if e := cr.Chart.Error; e != nil {
		return nil, fmt.Errorf("yahoo %s: %s: %s: %w", ticker, e.Code, e.Description, market.ErrNoData)
	}

	bars := toBars(cr)
	c.logger().Debug("yahoo fetch",
		zap.String("ticker", ticker),
		zap.String("period", string(period)),
		zap.String("interval", string(interval)),
		zap.Int("bars", len(bars)),
		zap.Duration("took", time.Since(start)),
	)
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", ticker, market.ErrNoData)
	}
	return bars, nil
}

func toBars(cr chartResp) []market.Bar {
	if len(cr.Chart.Result) == 0 {
		return nil
	}
	res := cr.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return nil
	}
	quote := res.Indicators.Quote[0]

	var adj []*float64
	if len(res.Indicators.AdjClose) > 0 {
		adj = res.Indicators.AdjClose[0].AdjClose
	}

	out := make([]market.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		o, okO := at(quote.Open, i)
		h, okH := at(quote.High, i)
		l, okL := at(quote.Low, i)
		cl, okC := at(quote.Close, i)
		if !okO || !okH || !okL || !okC {
			continue
		}
		vol, _ := at(quote.Volume, i)

		if a, ok := at(adj, i); ok && cl != 0 {
			f := a / cl
			o, h, l, cl = o*f, h*f, l*f, a
		}

		out = append(out, market.Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  cl,
			Volume: vol,
		})
	}
	return out
}

func at(vals []*float64, i int) (float64, bool) {
	if i >= len(vals) || vals[i] == nil {
		return 0, false
	}
	return *vals[i], true
}
