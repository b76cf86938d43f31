package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xaenox/daylog-bot/internal/models"
)

func TestTagUsesRecognizedHint(t *testing.T) {
	tagger := NewLexiconTagger()
	tests := []struct {
		hint string
		want models.Sentiment
	}{
		{"positive", models.SentimentPositive},
		{" Negative ", models.SentimentNegative},
		{"neutral", models.SentimentNeutral},
		{"great", models.SentimentPositive},
		{"meh", models.SentimentNeutral},
		{"tired", models.SentimentNegative},
	}

	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			seg := tagger.Tag(models.Segment{Description: "a terrible commute"}, tt.hint)
			assert.Equal(t, tt.want, seg.Sentiment)
		})
	}
}

func TestTagFallsBackToLexicon(t *testing.T) {
	tagger := NewLexiconTagger()
	tests := []struct {
		name        string
		description string
		hint        string
		want        models.Sentiment
	}{
		{"positive words", "had a great relaxing breakfast", "", models.SentimentPositive},
		{"negative words", "boring and exhausting meeting", "", models.SentimentNegative},
		{"negated positive", "the lecture was not fun", "", models.SentimentNegative},
		{"no signal", "walked to the office", "", models.SentimentUnspecified},
		{"tie", "good food but a bad mood", "", models.SentimentUnspecified},
		{"unknown hint", "lovely walk", "ecstatic-ish", models.SentimentPositive},
		{"unspecified hint", "awful traffic", "unspecified", models.SentimentNegative},
		{"punctuation", "Great!!! workout.", "", models.SentimentPositive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := tagger.Tag(models.Segment{Description: tt.description}, tt.hint)
			assert.Equal(t, tt.want, seg.Sentiment)
		})
	}
}

func TestTagKeepsOtherFields(t *testing.T) {
	in := models.Segment{ID: "s1", Seq: 3, Description: "reading", DurationMinutes: 45}
	out := NewLexiconTagger().Tag(in, "positive")

	assert.Equal(t, "s1", out.ID)
	assert.Equal(t, 3, out.Seq)
	assert.Equal(t, 45, out.DurationMinutes)
	assert.Equal(t, models.SentimentPositive, out.Sentiment)
}
