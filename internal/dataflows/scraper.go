package dataflows

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// HeadlineScraperClient scrapes public headline listings. It is the keyless
// fallback news source when no Finnhub token is configured.
type HeadlineScraperClient struct {
	client *resty.Client
	cache  *CacheManager
}

func NewHeadlineScraperClient(cacheDir string, cacheEnabled bool) *HeadlineScraperClient {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; QuorumTrade/1.0)")

	return &HeadlineScraperClient{
		client: client,
		cache:  NewCacheManager(filepath.Join(cacheDir, "headlines"), 2*time.Hour, cacheEnabled),
	}
}

// GetHeadlines scrapes recent headlines mentioning the query.
func (hs *HeadlineScraperClient) GetHeadlines(query string, maxResults int) ([]*NewsArticle, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	cacheKey := map[string]interface{}{"query": query, "max": maxResults}
	var cached []*NewsArticle
	if hs.cache.Get("headlines", "search", cacheKey, &cached) {
		return cached, nil
	}

	searchURL := fmt.Sprintf("https://news.google.com/rss/search?q=%s&hl=en-US&gl=US&ceid=US:en",
		url.QueryEscape(query))

	var result []*NewsArticle
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := hs.client.R().Get(searchURL)
		if err != nil {
			return fmt.Errorf("failed to fetch headlines: %w", err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("HTTP error %d when fetching headlines", resp.StatusCode())
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
		if err != nil {
			return fmt.Errorf("failed to parse headline feed: %w", err)
		}

		result = result[:0]
		doc.Find("item").EachWithBreak(func(_ int, item *goquery.Selection) bool {
			title := strings.TrimSpace(item.Find("title").First().Text())
			if title == "" {
				return true
			}
			link := strings.TrimSpace(item.Find("link").First().Text())
			source := strings.TrimSpace(item.Find("source").First().Text())
			published := time.Time{}
			if raw := strings.TrimSpace(item.Find("pubDate").First().Text()); raw != "" {
				if t, err := time.Parse(time.RFC1123, raw); err == nil {
					published = t
				}
			}
			result = append(result, &NewsArticle{
				Headline:    title,
				Source:      source,
				URL:         link,
				PublishedAt: published,
			})
			return len(result) < maxResults
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	hs.cache.Set("headlines", "search", cacheKey, result)
	return result, nil
}
