package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/trogers1052/stock-sentiment-service/internal/config"
	"github.com/trogers1052/stock-sentiment-service/internal/models"
)

const searchPath = "/rss/search"

type rss struct {
	XMLName xml.Name `xml:"rss"`
	Channel channel  `xml:"channel"`
}

type channel struct {
	Title string `xml:"title"`
	Items []item `xml:"item"`
}

type item struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// GoogleNewsClient fetches candidate articles from the Google News RSS search feed
type GoogleNewsClient struct {
	client     *resty.Client
	limiter    *rate.Limiter
	language   string
	country    string
	maxResults int
}

// NewGoogleNewsClient creates a client from the news configuration
func NewGoogleNewsClient(cfg config.NewsConfig) *GoogleNewsClient {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; stock-sentiment-service/1.0)")
	client.SetHeader("Accept", "application/rss+xml, application/xml;q=0.9")

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	return &GoogleNewsClient{
		client:     client,
		limiter:    rate.NewLimiter(limit, 1),
		language:   cfg.Language,
		country:    cfg.Country,
		maxResults: cfg.MaxResults,
	}
}

// FetchArticles searches news for a stock. Any transport or parse failure is
// returned as a *models.FetchError.
func (c *GoogleNewsClient) FetchArticles(ctx context.Context, symbol, displayName string) ([]models.Article, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &models.FetchError{Symbol: symbol, Err: err}
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":    SearchQuery(symbol, displayName),
			"hl":   c.language,
			"gl":   c.country,
			"ceid": c.country + ":" + baseLanguage(c.language),
		}).
		Get(searchPath)
	if err != nil {
		return nil, &models.FetchError{Symbol: symbol, Err: err}
	}
	if resp.StatusCode() != 200 {
		return nil, &models.FetchError{Symbol: symbol, Err: fmt.Errorf("HTTP error %d", resp.StatusCode())}
	}

	var feed rss
	if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
		return nil, &models.FetchError{Symbol: symbol, Err: fmt.Errorf("failed to parse RSS: %w", err)}
	}

	articles := make([]models.Article, 0, len(feed.Channel.Items))
	for _, it := range feed.Channel.Items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		articles = append(articles, models.Article{
			Title:       title,
			Description: plainText(it.Description),
			URL:         strings.TrimSpace(it.Link),
		})
		if c.maxResults > 0 && len(articles) == c.maxResults {
			break
		}
	}
	return articles, nil
}

// SearchQuery builds the search phrase for a stock: its display name when
// known, otherwise the bare ticker followed by "stock".
func SearchQuery(symbol, displayName string) string {
	if name := strings.TrimSpace(displayName); name != "" {
		return name
	}
	ticker := symbol
	if i := strings.Index(symbol, "."); i > 0 {
		ticker = symbol[:i]
	}
	return ticker + " stock"
}

// plainText strips the HTML markup Google News embeds in item descriptions
func plainText(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func baseLanguage(lang string) string {
	if i := strings.Index(lang, "-"); i > 0 {
		return lang[:i]
	}
	return lang
}
