package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"cn-alpha/internal/model"
)

const (
	eastmoneyBaseURL = "https://push2his.eastmoney.com"
	klinePath        = "/api/qt/stock/kline/get"

	// klt 101 = daily bars, fqt 1 = forward adjusted prices.
	kltDaily       = "101"
	fqtForwardAdj  = "1"
	requestsPerSec = 5
)

// EastmoneyProvider fetches daily A-share klines from the Eastmoney push2his
// API, forward adjusted. One shared HTTP client, request pacing via a token
// bucket.
type EastmoneyProvider struct {
	BaseURL string // overridable for tests
	client  *http.Client
	limiter *rate.Limiter
}

func NewEastmoneyProvider() *EastmoneyProvider {
	return &EastmoneyProvider{
		BaseURL: eastmoneyBaseURL,
		client:  newHTTPClient(),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), 1),
	}
}

// newHTTPClient builds the shared transport for kline requests.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			ResponseHeaderTimeout: 30 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConnsPerHost:   4,
		},
		Timeout: 60 * time.Second,
	}
}

func (p *EastmoneyProvider) GetName() string { return "Eastmoney" }

func (p *EastmoneyProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// klineResponse is the push2his envelope; klines are comma-joined strings.
type klineResponse struct {
	Data *struct {
		Code   string   `json:"code"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

// FetchDaily requests [from, to] for one code. An absent data object means
// no bars for the range, not an error.
func (p *EastmoneyProvider) FetchDaily(ctx context.Context, code string, from, to model.Date) ([]model.Bar, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("secid", secID(code))
	q.Set("klt", kltDaily)
	q.Set("fqt", fqtForwardAdj)
	q.Set("beg", from.Compact())
	q.Set("end", to.Compact())
	q.Set("fields1", "f1,f2,f3")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+klinePath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("kline request for %s: status %d", code, resp.StatusCode)
	}

	var kr klineResponse
	if err := json.NewDecoder(resp.Body).Decode(&kr); err != nil {
		return nil, fmt.Errorf("decode kline response for %s: %w", code, err)
	}
	if kr.Data == nil {
		return nil, nil
	}

	bars := make([]model.Bar, 0, len(kr.Data.Klines))
	for _, line := range kr.Data.Klines {
		b, err := parseKline(code, line)
		if err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// parseKline parses one kline line:
// date,open,close,high,low,volume,amount,amplitude,pct_chg,chg,turnover
func parseKline(code, line string) (model.Bar, error) {
	f := strings.Split(line, ",")
	if len(f) < 11 {
		return model.Bar{}, fmt.Errorf("kline for %s has %d fields: %q", code, len(f), line)
	}
	d, err := model.ParseDate(f[0])
	if err != nil {
		return model.Bar{}, fmt.Errorf("kline for %s: %w", code, err)
	}
	vals := make([]float32, 5)
	for i, pos := range []int{1, 2, 3, 4, 5} {
		v, err := strconv.ParseFloat(f[pos], 32)
		if err != nil {
			return model.Bar{}, fmt.Errorf("kline for %s field %d: %w", code, pos, err)
		}
		vals[i] = float32(v)
	}
	turnover, err := strconv.ParseFloat(f[10], 32)
	if err != nil {
		return model.Bar{}, fmt.Errorf("kline for %s turnover: %w", code, err)
	}
	return model.Bar{
		Date:     d,
		Code:     code,
		Open:     vals[0],
		Close:    vals[1],
		High:     vals[2],
		Low:      vals[3],
		Volume:   vals[4],
		Turnover: float32(turnover),
	}, nil
}

// secID maps a bare A-share code to the push2his market-prefixed id:
// Shanghai (6xxxxx, 9xxxxx) is market 1, Shenzhen the rest is market 0.
func secID(code string) string {
	if strings.HasPrefix(code, "6") || strings.HasPrefix(code, "9") {
		return "1." + code
	}
	return "0." + code
}
