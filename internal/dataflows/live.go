package dataflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quorumtrade/quorumtrade/internal/models"
)

// LiveProvider serves snapshots from the real vendor clients. Every failure
// path is mapped onto models.ErrDataUnavailable so callers degrade instead of
// aborting.
type LiveProvider struct {
	yahoo    *YahooFinanceClient
	finnhub  *FinnhubClient
	scraper  *HeadlineScraperClient
	hasToken bool
}

func NewLiveProvider(finnhubKey, cacheDir string, cacheEnabled bool) *LiveProvider {
	return &LiveProvider{
		yahoo:    NewYahooFinanceClient(cacheDir, cacheEnabled),
		finnhub:  NewFinnhubClient(finnhubKey, cacheDir, cacheEnabled),
		scraper:  NewHeadlineScraperClient(cacheDir, cacheEnabled),
		hasToken: finnhubKey != "",
	}
}

func (p *LiveProvider) Fetch(ctx context.Context, instrument, asOfDate string, kind models.AnalystRole) (*Snapshot, error) {
	asOf, err := time.Parse("2006-01-02", asOfDate)
	if err != nil {
		return nil, fmt.Errorf("%w: bad as-of date %q: %v", models.ErrDataUnavailable, asOfDate, err)
	}

	var summary string
	points := make(map[string]string)

	switch kind {
	case models.AnalystMarket:
		summary, err = p.marketSummary(instrument, asOf, points)
	case models.AnalystMomentum:
		summary, err = p.momentumSummary(instrument, asOf, points)
	case models.AnalystFundamentals:
		summary, err = p.fundamentalsSummary(instrument, points)
	case models.AnalystNews:
		summary, err = p.newsSummary(instrument, asOf)
	case models.AnalystSentiment:
		summary, err = p.sentimentSummary(instrument, asOf, points)
	case models.AnalystMacro:
		summary, err = p.macroSummary()
	default:
		return nil, fmt.Errorf("%w: no data source for kind %q", models.ErrDataUnavailable, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s snapshot for %s: %v", models.ErrDataUnavailable, kind, instrument, err)
	}

	return &Snapshot{
		Kind:       kind,
		Instrument: instrument,
		AsOf:       asOfDate,
		Summary:    summary,
		Points:     points,
		FetchedAt:  time.Now(),
	}, nil
}

func (p *LiveProvider) marketSummary(instrument string, asOf time.Time, points map[string]string) (string, error) {
	bars, err := p.yahoo.GetHistoricalWindow(instrument, asOf, 30)
	if err != nil {
		return "", err
	}
	if len(bars) == 0 {
		return "", fmt.Errorf("no bars returned for %s", instrument)
	}

	first, last := bars[0], bars[len(bars)-1]
	change := decimal.Zero
	if !first.Close.IsZero() {
		change = last.Close.Sub(first.Close).Div(first.Close).Mul(decimal.NewFromInt(100))
	}
	points["last_close"] = last.Close.StringFixed(2)
	points["window_change_pct"] = change.StringFixed(2)
	points["bars"] = fmt.Sprintf("%d", len(bars))

	var b strings.Builder
	fmt.Fprintf(&b, "Price action for %s over the last %d sessions:\n", instrument, len(bars))
	fmt.Fprintf(&b, "- Latest close %s (range %s to %s)\n",
		last.Close.StringFixed(2), lowOf(bars).StringFixed(2), highOf(bars).StringFixed(2))
	fmt.Fprintf(&b, "- Window change %s%%, latest volume %d\n", change.StringFixed(2), last.Volume)

	// For a same-day session the daily bars lag the tape; layer the real-time
	// quote on top. Best-effort: the historical window stays the primary source.
	if sameDay(asOf, time.Now()) {
		if q, err := p.yahoo.GetQuote(instrument); err == nil {
			points["live_price"] = q.Close.StringFixed(2)
			fmt.Fprintf(&b, "- Live quote %s (intraday range %s to %s)\n",
				q.Close.StringFixed(2), q.Low.StringFixed(2), q.High.StringFixed(2))
		}
	}
	return b.String(), nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (p *LiveProvider) momentumSummary(instrument string, asOf time.Time, points map[string]string) (string, error) {
	bars, err := p.yahoo.GetHistoricalWindow(instrument, asOf, 90)
	if err != nil {
		return "", err
	}
	if len(bars) < 10 {
		return "", fmt.Errorf("insufficient history for momentum on %s (%d bars)", instrument, len(bars))
	}

	last := bars[len(bars)-1].Close
	sma20 := smaOf(bars, 20)
	sma60 := smaOf(bars, 60)
	points["last_close"] = last.StringFixed(2)
	points["sma20"] = sma20.StringFixed(2)
	points["sma60"] = sma60.StringFixed(2)

	trend := "below"
	if last.GreaterThan(sma20) {
		trend = "above"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Momentum picture for %s:\n", instrument)
	fmt.Fprintf(&b, "- Last close %s is %s the 20-day average %s\n", last.StringFixed(2), trend, sma20.StringFixed(2))
	fmt.Fprintf(&b, "- 60-day average %s over %d bars\n", sma60.StringFixed(2), len(bars))
	return b.String(), nil
}

func (p *LiveProvider) fundamentalsSummary(instrument string, points map[string]string) (string, error) {
	figures, err := p.yahoo.GetFundamentals(instrument)
	if err != nil {
		return "", err
	}
	for k, v := range figures {
		points[k] = v
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Fundamental figures for %s:\n", instrument)
	fmt.Fprintf(&b, "- Price %s, EPS (ttm) %s, forward EPS %s\n", figures["price"], figures["eps_ttm"], figures["eps_forward"])
	fmt.Fprintf(&b, "- Forward P/E %s, price/book %s, market cap %s\n", figures["forward_pe"], figures["price_to_book"], figures["market_cap"])
	return b.String(), nil
}

func (p *LiveProvider) newsSummary(instrument string, asOf time.Time) (string, error) {
	var articles []*NewsArticle
	var err error
	if p.hasToken {
		articles, err = p.finnhub.GetCompanyNews(instrument, asOf.AddDate(0, 0, -7), asOf)
	} else {
		articles, err = p.scraper.GetHeadlines(instrument+" stock", 10)
	}
	if err != nil {
		return "", err
	}
	if len(articles) == 0 {
		return "", fmt.Errorf("no recent news found for %s", instrument)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recent headlines for %s:\n", instrument)
	for i, a := range articles {
		if i >= 10 {
			break
		}
		fmt.Fprintf(&b, "- [%s] %s\n", a.Source, a.Headline)
		if a.Summary != "" {
			fmt.Fprintf(&b, "  %s\n", a.Summary)
		}
	}
	return b.String(), nil
}

func (p *LiveProvider) sentimentSummary(instrument string, asOf time.Time, points map[string]string) (string, error) {
	sentiments, err := p.finnhub.GetInsiderSentiment(instrument, asOf.AddDate(0, -3, 0), asOf)
	if err != nil {
		return "", err
	}
	if len(sentiments) == 0 {
		return "", fmt.Errorf("no insider sentiment data for %s", instrument)
	}

	latest := sentiments[len(sentiments)-1]
	points["mspr"] = fmt.Sprintf("%.2f", latest.MSPR)
	points["net_change"] = fmt.Sprintf("%.0f", latest.Change)

	var b strings.Builder
	fmt.Fprintf(&b, "Insider sentiment for %s over the last quarter:\n", instrument)
	for _, s := range sentiments {
		fmt.Fprintf(&b, "- %d-%02d: net share change %.0f, MSPR %.2f\n", s.Year, s.Month, s.Change, s.MSPR)
	}
	return b.String(), nil
}

func (p *LiveProvider) macroSummary() (string, error) {
	var articles []*NewsArticle
	var err error
	if p.hasToken {
		articles, err = p.finnhub.GetGeneralNews("general")
	} else {
		articles, err = p.scraper.GetHeadlines("stock market economy", 10)
	}
	if err != nil {
		return "", err
	}
	if len(articles) == 0 {
		return "", fmt.Errorf("no macro headlines available")
	}

	var b strings.Builder
	b.WriteString("Market-wide headlines:\n")
	for i, a := range articles {
		if i >= 10 {
			break
		}
		fmt.Fprintf(&b, "- [%s] %s\n", a.Source, a.Headline)
	}
	return b.String(), nil
}

func lowOf(bars []*MarketData) decimal.Decimal {
	low := bars[0].Low
	for _, bar := range bars[1:] {
		if bar.Low.LessThan(low) {
			low = bar.Low
		}
	}
	return low
}

func highOf(bars []*MarketData) decimal.Decimal {
	high := bars[0].High
	for _, bar := range bars[1:] {
		if bar.High.GreaterThan(high) {
			high = bar.High
		}
	}
	return high
}

func smaOf(bars []*MarketData, n int) decimal.Decimal {
	if n > len(bars) {
		n = len(bars)
	}
	if n == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, bar := range bars[len(bars)-n:] {
		sum = sum.Add(bar.Close)
	}
	return sum.Div(decimal.NewFromInt(int64(n)))
}
