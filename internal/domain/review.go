package domain

type Review struct {
	ID          string
	Author      string
	AuthorPhoto string
	Rating      int // 1..5 stars
	Text        string
	TimeLabel   string // e.g. "2 months ago", as the directory phrases it
	Sentiment   Sentiment
	Score       *float64 // nil when the review could not be classified
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ParseSentiment validates a label coming off the wire.
func ParseSentiment(s string) (Sentiment, bool) {
	switch Sentiment(s) {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return Sentiment(s), true
	}
	return "", false
}

// Classification is one review's sentiment result. Score is in [-1,1].
type Classification struct {
	Score float64
	Label Sentiment
}
