package dataflows

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"
)

// MarketData is one daily bar.
type MarketData struct {
	Symbol    string          `json:"symbol"`
	Date      time.Time       `json:"date"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	AdjClose  decimal.Decimal `json:"adj_close"`
	Volume    int64           `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
}

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.-]{1,10}$`)

// ValidateSymbol rejects malformed ticker symbols before any vendor call.
func ValidateSymbol(symbol string) error {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

func NormalizeSymbol(symbol string) string {
	return strings.TrimSpace(strings.ToUpper(symbol))
}

// YahooFinanceClient handles Yahoo Finance data operations
type YahooFinanceClient struct {
	cache *CacheManager
}

func NewYahooFinanceClient(cacheDir string, cacheEnabled bool) *YahooFinanceClient {
	return &YahooFinanceClient{
		cache: NewCacheManager(filepath.Join(cacheDir, "yahoo_finance"), 24*time.Hour, cacheEnabled),
	}
}

// GetQuote gets current quote data for a symbol
func (yf *YahooFinanceClient) GetQuote(symbol string) (*MarketData, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var cached MarketData
	if yf.cache.Get("yahoo", "quote", symbol, &cached) {
		return &cached, nil
	}

	var result *MarketData
	err := WithRetry(DefaultRetryConfig(), func() error {
		q, err := quote.Get(symbol)
		if err != nil {
			return fmt.Errorf("failed to get quote for %s: %w", symbol, err)
		}

		result = &MarketData{
			Symbol:    symbol,
			Date:      time.Now(),
			Open:      decimal.NewFromFloat(q.RegularMarketOpen),
			High:      decimal.NewFromFloat(q.RegularMarketDayHigh),
			Low:       decimal.NewFromFloat(q.RegularMarketDayLow),
			Close:     decimal.NewFromFloat(q.RegularMarketPrice),
			AdjClose:  decimal.NewFromFloat(q.RegularMarketPrice),
			Volume:    int64(q.RegularMarketVolume),
			Timestamp: time.Now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	yf.cache.Set("yahoo", "quote", symbol, result)
	return result, nil
}

// GetHistoricalWindow gets daily bars for the trailing window ending at end.
func (yf *YahooFinanceClient) GetHistoricalWindow(symbol string, end time.Time, days int) ([]*MarketData, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)
	start := end.AddDate(0, 0, -days)

	cacheKey := map[string]interface{}{
		"symbol": symbol,
		"start":  start.Format("2006-01-02"),
		"end":    end.Format("2006-01-02"),
	}
	var cached []*MarketData
	if yf.cache.Get("yahoo", "historical", cacheKey, &cached) {
		return cached, nil
	}

	var result []*MarketData
	err := WithRetry(DefaultRetryConfig(), func() error {
		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		}

		iter := chart.Get(params)

		result = make([]*MarketData, 0)
		for iter.Next() {
			bar := iter.Bar()
			result = append(result, &MarketData{
				Symbol:    symbol,
				Date:      time.Unix(int64(bar.Timestamp), 0),
				Open:      bar.Open,
				High:      bar.High,
				Low:       bar.Low,
				Close:     bar.Close,
				AdjClose:  bar.AdjClose,
				Volume:    int64(bar.Volume),
				Timestamp: time.Now(),
			})
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to get historical data for %s: %w", symbol, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	yf.cache.Set("yahoo", "historical", cacheKey, result)
	return result, nil
}

// GetFundamentals gets per-share and valuation figures for a symbol.
func (yf *YahooFinanceClient) GetFundamentals(symbol string) (map[string]string, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	var cached map[string]string
	if yf.cache.Get("yahoo", "fundamentals", symbol, &cached) {
		return cached, nil
	}

	var result map[string]string
	err := WithRetry(DefaultRetryConfig(), func() error {
		eq, err := equity.Get(symbol)
		if err != nil {
			return fmt.Errorf("failed to get fundamentals for %s: %w", symbol, err)
		}

		result = map[string]string{
			"price":         fmt.Sprintf("%.2f", eq.RegularMarketPrice),
			"eps_ttm":       fmt.Sprintf("%.2f", eq.EpsTrailingTwelveMonths),
			"eps_forward":   fmt.Sprintf("%.2f", eq.EpsForward),
			"forward_pe":    fmt.Sprintf("%.2f", eq.ForwardPE),
			"book_value":    fmt.Sprintf("%.2f", eq.BookValue),
			"price_to_book": fmt.Sprintf("%.2f", eq.PriceToBook),
			"market_cap":    fmt.Sprintf("%d", eq.MarketCap),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	yf.cache.Set("yahoo", "fundamentals", symbol, result)
	return result, nil
}
