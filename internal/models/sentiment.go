package models

import "time"

// Source identifies where a sentiment mention came from
type Source string

const (
	SourceNews    Source = "news"
	SourceTwitter Source = "twitter"
	SourceReddit  Source = "reddit"
)

// Label is the discrete polarity of a sentiment score
type Label string

const (
	LabelPositive Label = "positive"
	LabelNegative Label = "negative"
	LabelNeutral  Label = "neutral"
)

// Trend is the aggregate direction of a symbol's sentiment
type Trend string

const (
	TrendVeryBullish Trend = "very bullish"
	TrendBullish     Trend = "bullish"
	TrendNeutral     Trend = "neutral"
	TrendBearish     Trend = "bearish"
	TrendVeryBearish Trend = "very bearish"
)

// SentimentRecord is one scored mention of a symbol. Records are immutable once
// stored and only removed by the retention sweep.
type SentimentRecord struct {
	ID             int64     `json:"id" db:"id"`
	Symbol         string    `json:"symbol" db:"symbol"`
	Timestamp      time.Time `json:"timestamp" db:"recorded_at"`
	Source         Source    `json:"source" db:"source"`
	Headline       string    `json:"headline,omitempty" db:"headline"`
	Content        string    `json:"content,omitempty" db:"content"`
	URL            string    `json:"url,omitempty" db:"url"`
	SentimentScore float64   `json:"sentimentScore" db:"sentiment_score"`
	SentimentLabel Label     `json:"sentimentLabel" db:"sentiment_label"`
}

// ScoreResult is the output of the text scorer
type ScoreResult struct {
	SentimentScore float64 `json:"sentimentScore"`
	SentimentLabel Label   `json:"sentimentLabel"`
	CompoundScore  float64 `json:"compoundScore"`
	PositiveScore  float64 `json:"positiveScore"`
	NegativeScore  float64 `json:"negativeScore"`
	NeutralScore   float64 `json:"neutralScore"`
}

// AggregateResult summarizes a symbol's records within a trailing window.
// DataAvailable is false when the window holds no records.
type AggregateResult struct {
	AvgSentiment       float64 `json:"avgSentiment"`
	TotalMentions      int     `json:"totalMentions"`
	PositiveCount      int     `json:"positiveCount"`
	NegativeCount      int     `json:"negativeCount"`
	NeutralCount       int     `json:"neutralCount"`
	SentimentTrend     Trend   `json:"sentimentTrend"`
	DataAvailable      bool    `json:"dataAvailable"`
	PositivePercentage int     `json:"positivePercentage"`
	NegativePercentage int     `json:"negativePercentage"`
	NeutralPercentage  int     `json:"neutralPercentage"`
}

// HistoryBucket is one (date, hour) group of a symbol's history
type HistoryBucket struct {
	Timestamp string  `json:"timestamp"`
	Date      string  `json:"date"`
	Hour      int     `json:"hour"`
	Sentiment float64 `json:"sentiment"`
	Mentions  int     `json:"mentions"`
	Positive  int     `json:"positive"`
	Negative  int     `json:"negative"`
}

// StockSentiment is one entry of the all-stocks snapshot
type StockSentiment struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	AggregateResult
}

// SentimentUpdateType is the message type pushed after each analysis sweep
const SentimentUpdateType = "sentiment_update"

// SentimentUpdate is the broadcast message sent to push subscribers
type SentimentUpdate struct {
	Type      string           `json:"type"`
	Data      []StockSentiment `json:"data"`
	Timestamp time.Time        `json:"timestamp"`
}

// NewSentimentUpdate wraps a snapshot in a broadcast message
func NewSentimentUpdate(data []StockSentiment, ts time.Time) SentimentUpdate {
	return SentimentUpdate{
		Type:      SentimentUpdateType,
		Data:      data,
		Timestamp: ts,
	}
}

// Article is a candidate news item returned by the news source
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}
