package classifier

import (
	"strings"
	"unicode"

	"github.com/xaenox/daylog-bot/internal/models"
)

// Tagger attaches a sentiment label to a segment.
type Tagger interface {
	Tag(seg models.Segment, hint string) models.Segment
}

// LexiconTagger prefers the oracle's hint and otherwise scores the description
// against a fixed word list.
type LexiconTagger struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

var hintSynonyms = map[string]models.Sentiment{
	"good":     models.SentimentPositive,
	"great":    models.SentimentPositive,
	"happy":    models.SentimentPositive,
	"pleasant": models.SentimentPositive,
	"ok":       models.SentimentNeutral,
	"okay":     models.SentimentNeutral,
	"fine":     models.SentimentNeutral,
	"meh":      models.SentimentNeutral,
	"mixed":    models.SentimentNeutral,
	"bad":      models.SentimentNegative,
	"sad":      models.SentimentNegative,
	"tired":    models.SentimentNegative,
	"stressed": models.SentimentNegative,
}

var (
	positiveWords = []string{
		"great", "good", "fun", "enjoyed", "enjoy", "enjoyable", "relaxing", "relaxed",
		"happy", "productive", "lovely", "nice", "awesome", "amazing", "delicious",
		"refreshing", "refreshed", "love", "loved", "excited", "peaceful", "wonderful",
		"satisfying", "calm", "energized", "fantastic", "proud", "tasty",
	}
	negativeWords = []string{
		"bad", "tired", "exhausting", "exhausted", "boring", "bored", "stressful",
		"stressed", "awful", "terrible", "annoying", "annoyed", "frustrating",
		"frustrated", "sad", "angry", "sick", "hate", "hated", "rushed", "painful",
		"anxious", "horrible", "tedious", "late", "worried", "lonely", "overwhelmed",
	}
	negators = map[string]struct{}{"not": {}, "never": {}, "no": {}, "wasn't": {}, "didn't": {}, "isn't": {}}
)

// NewLexiconTagger builds a tagger with the built-in word lists.
func NewLexiconTagger() *LexiconTagger {
	return &LexiconTagger{
		positive: toSet(positiveWords),
		negative: toSet(negativeWords),
	}
}

// Tag never fails; without a usable hint or signal the label is unspecified.
func (t *LexiconTagger) Tag(seg models.Segment, hint string) models.Segment {
	if label, ok := parseHint(hint); ok {
		seg.Sentiment = label
		return seg
	}
	seg.Sentiment = t.Classify(seg.Description)
	return seg
}

// Classify scores text by counting indicator words. A preceding negator flips a word.
func (t *LexiconTagger) Classify(text string) models.Sentiment {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	score := 0
	for i, w := range words {
		sign := 0
		if _, ok := t.positive[w]; ok {
			sign = 1
		} else if _, ok := t.negative[w]; ok {
			sign = -1
		}
		if sign == 0 {
			continue
		}
		if i > 0 {
			if _, ok := negators[words[i-1]]; ok {
				sign = -sign
			}
		}
		score += sign
	}

	switch {
	case score > 0:
		return models.SentimentPositive
	case score < 0:
		return models.SentimentNegative
	}
	return models.SentimentUnspecified
}

// parseHint accepts the closed labels and a few synonyms. "unspecified" counts
// as no hint so the description still gets a chance.
func parseHint(hint string) (models.Sentiment, bool) {
	h := strings.ToLower(strings.TrimSpace(hint))
	if h == "" {
		return "", false
	}
	if label, ok := models.ParseSentiment(h); ok {
		return label, label != models.SentimentUnspecified
	}
	label, ok := hintSynonyms[h]
	return label, ok
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
