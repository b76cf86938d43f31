package models

import "strings"

// Sentiment is the mood attached to a segment.
type Sentiment string

const (
	SentimentPositive    Sentiment = "positive"
	SentimentNeutral     Sentiment = "neutral"
	SentimentNegative    Sentiment = "negative"
	SentimentUnspecified Sentiment = "unspecified"
)

// Sentiments lists every label in display order.
var Sentiments = []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative, SentimentUnspecified}

// ParseSentiment maps a label to the closed set. ok is false for unknown labels.
func ParseSentiment(s string) (Sentiment, bool) {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentPositive:
		return SentimentPositive, true
	case SentimentNeutral:
		return SentimentNeutral, true
	case SentimentNegative:
		return SentimentNegative, true
	case SentimentUnspecified:
		return SentimentUnspecified, true
	}
	return SentimentUnspecified, false
}
