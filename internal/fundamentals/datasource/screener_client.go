package datasource

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"insider-radar/internal/api"
	"insider-radar/internal/logger"
	"insider-radar/internal/types"
)

const SourceScreener = "SCREENER"

// ScreenerClient scrapes the "top ratios" block of a Screener.in company page.
// Screener has no debt/equity in that block, so DebtToEquity stays absent.
type ScreenerClient struct {
	baseURL string
	timeout time.Duration
}

// NewScreenerClient creates a Screener.in quote provider
func NewScreenerClient(baseURL string, timeout time.Duration) *ScreenerClient {
	if baseURL == "" {
		baseURL = "https://www.screener.in"
	}
	return &ScreenerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
	}
}

func (s *ScreenerClient) Name() string { return SourceScreener }

func (s *ScreenerClient) Lookup(ctx context.Context, symbol string) (*types.Quote, error) {
	code := NormalizeSymbol(symbol)
	pageURL := fmt.Sprintf("%s/company/%s/", s.baseURL, url.PathEscape(code))

	c := colly.NewCollector(
		colly.MaxDepth(1),
		colly.Async(false),
		colly.StdlibContext(ctx),
	)
	if s.timeout > 0 {
		c.SetRequestTimeout(s.timeout)
	}

	c.OnRequest(func(r *colly.Request) {
		for k, v := range api.BrowserHeaders() {
			r.Headers.Set(k, v)
		}
	})

	var ratios map[string]float64
	c.OnHTML("#top-ratios", func(e *colly.HTMLElement) {
		ratios = parseTopRatios(e.DOM)
	})

	var scrapeErr error
	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("screener returned status %d: %w", r.StatusCode, err)
	})

	if err := c.Visit(pageURL); err != nil && scrapeErr == nil {
		scrapeErr = err
	}
	c.Wait()

	if scrapeErr != nil {
		return nil, fmt.Errorf("screener lookup %s: %w", code, scrapeErr)
	}

	quote := quoteFromRatios(symbol, ratios)
	if quote.Empty() {
		return nil, fmt.Errorf("screener lookup %s: %w", code, types.ErrNoQuoteData)
	}
	logger.Debug(ctx, "Parsed Screener ratios", "symbol", code, "ratios", len(ratios))
	return quote, nil
}

// parseTopRatios maps each ratio label (lowercased) to its first number
func parseTopRatios(sel *goquery.Selection) map[string]float64 {
	ratios := make(map[string]float64)
	sel.Find("li").Each(func(_ int, li *goquery.Selection) {
		name := strings.ToLower(strings.TrimSpace(li.Find("span.name").Text()))
		if name == "" {
			return
		}
		raw := li.Find("span.number").First().Text()
		if v, ok := parseRatioNumber(raw); ok {
			ratios[name] = v
		}
	})
	return ratios
}

func parseRatioNumber(raw string) (float64, bool) {
	s := strings.NewReplacer(",", "", "₹", "", "%", "", "Cr.", "").Replace(raw)
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// quoteFromRatios converts Screener's percent ROE to the fraction Yahoo reports
func quoteFromRatios(symbol string, ratios map[string]float64) *types.Quote {
	q := &types.Quote{Symbol: symbol, Source: SourceScreener}
	if v, ok := ratios["current price"]; ok && v > 0 {
		q.Price = &v
	}
	if v, ok := ratios["stock p/e"]; ok && v > 0 {
		q.TrailingPE = &v
	}
	if v, ok := ratios["roe"]; ok && v != 0 {
		roe := v / 100
		q.ReturnOnEquity = &roe
	}
	return q
}

// NormalizeSymbol strips exchange suffixes and upper-cases the symbol
func NormalizeSymbol(symbol string) string {
	symbol = strings.TrimSpace(symbol)
	symbol = strings.TrimSuffix(symbol, ".NS")
	symbol = strings.TrimSuffix(symbol, ".BO")
	return strings.ToUpper(symbol)
}
