package dataflows

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
)

// NewsArticle is a normalized news item from any source.
type NewsArticle struct {
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// InsiderSentiment is Finnhub's monthly insider-sentiment aggregate.
type InsiderSentiment struct {
	Symbol string  `json:"symbol"`
	Year   int     `json:"year"`
	Month  int     `json:"month"`
	Change float64 `json:"change"`
	MSPR   float64 `json:"mspr"`
}

// FinnhubClient handles Finnhub API operations
type FinnhubClient struct {
	client *resty.Client
	cache  *CacheManager
	apiKey string
}

func NewFinnhubClient(apiKey, cacheDir string, cacheEnabled bool) *FinnhubClient {
	client := resty.New()
	client.SetBaseURL("https://finnhub.io/api/v1")
	client.SetTimeout(30 * time.Second)

	return &FinnhubClient{
		client: client,
		cache:  NewCacheManager(filepath.Join(cacheDir, "finnhub"), 6*time.Hour, cacheEnabled),
		apiKey: apiKey,
	}
}

type finnhubNews struct {
	Category string `json:"category"`
	DateTime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// GetCompanyNews gets news articles for a specific company
func (fc *FinnhubClient) GetCompanyNews(symbol string, from, to time.Time) ([]*NewsArticle, error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("finnhub api key not configured")
	}
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	cacheKey := map[string]interface{}{
		"symbol": symbol,
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
	}
	var cached []*NewsArticle
	if fc.cache.Get("finnhub", "company_news", cacheKey, &cached) {
		return cached, nil
	}

	var result []*NewsArticle
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := fc.client.R().
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"from":   from.Format("2006-01-02"),
				"to":     to.Format("2006-01-02"),
				"token":  fc.apiKey,
			}).
			Get("/company-news")
		if err != nil {
			return fmt.Errorf("failed to fetch news for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("finnhub news request failed with status %d", resp.StatusCode())
		}

		var items []finnhubNews
		if err := json.Unmarshal(resp.Body(), &items); err != nil {
			return fmt.Errorf("failed to parse finnhub news: %w", err)
		}

		result = make([]*NewsArticle, 0, len(items))
		for _, item := range items {
			result = append(result, &NewsArticle{
				Headline:    item.Headline,
				Summary:     item.Summary,
				Source:      item.Source,
				URL:         item.URL,
				PublishedAt: time.Unix(item.DateTime, 0),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fc.cache.Set("finnhub", "company_news", cacheKey, result)
	return result, nil
}

// GetGeneralNews gets market-wide news for a category
func (fc *FinnhubClient) GetGeneralNews(category string) ([]*NewsArticle, error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("finnhub api key not configured")
	}
	if category == "" {
		category = "general"
	}

	var cached []*NewsArticle
	if fc.cache.Get("finnhub", "general_news", category, &cached) {
		return cached, nil
	}

	var result []*NewsArticle
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := fc.client.R().
			SetQueryParams(map[string]string{
				"category": category,
				"token":    fc.apiKey,
			}).
			Get("/news")
		if err != nil {
			return fmt.Errorf("failed to fetch general news: %w", err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("finnhub general news request failed with status %d", resp.StatusCode())
		}

		var items []finnhubNews
		if err := json.Unmarshal(resp.Body(), &items); err != nil {
			return fmt.Errorf("failed to parse finnhub news: %w", err)
		}

		result = make([]*NewsArticle, 0, len(items))
		for _, item := range items {
			result = append(result, &NewsArticle{
				Headline:    item.Headline,
				Summary:     item.Summary,
				Source:      item.Source,
				URL:         item.URL,
				PublishedAt: time.Unix(item.DateTime, 0),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fc.cache.Set("finnhub", "general_news", category, result)
	return result, nil
}

type insiderSentimentResp struct {
	Data []InsiderSentiment `json:"data"`
}

// GetInsiderSentiment gets insider sentiment aggregates for a company
func (fc *FinnhubClient) GetInsiderSentiment(symbol string, from, to time.Time) ([]InsiderSentiment, error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("finnhub api key not configured")
	}
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	cacheKey := map[string]interface{}{
		"symbol": symbol,
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
	}
	var cached []InsiderSentiment
	if fc.cache.Get("finnhub", "insider_sentiment", cacheKey, &cached) {
		return cached, nil
	}

	var result []InsiderSentiment
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := fc.client.R().
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"from":   from.Format("2006-01-02"),
				"to":     to.Format("2006-01-02"),
				"token":  fc.apiKey,
			}).
			Get("/stock/insider-sentiment")
		if err != nil {
			return fmt.Errorf("failed to fetch insider sentiment for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("finnhub insider sentiment request failed with status %d", resp.StatusCode())
		}

		var parsed insiderSentimentResp
		if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
			return fmt.Errorf("failed to parse insider sentiment: %w", err)
		}
		result = parsed.Data
		return nil
	})
	if err != nil {
		return nil, err
	}

	fc.cache.Set("finnhub", "insider_sentiment", cacheKey, result)
	return result, nil
}
