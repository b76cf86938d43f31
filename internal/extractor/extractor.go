package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/daylog-bot/internal/models"
	dlerrors "github.com/xaenox/daylog-bot/pkg/errors"
)

// ChatClient is the part of the OpenAI client the extractor needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

const systemPrompt = `You extract activities from a spoken or typed account of someone's day.

For each activity mentioned, in the order it was narrated, return:
- "text": a short description of the activity ("reading", "breakfast with Sam")
- "start": the words used for when it started, copied as said ("6:30", "then", "at 7 in the evening"), or ""
- "end": the words used for when it ended ("until 7:15", "till noon"), or ""
- "duration": how long it lasted as said ("45 minutes", "an hour"), or ""
- "sentiment": "positive", "neutral" or "negative" if the speaker expressed a feeling about it, otherwise ""

Do not convert or guess times. Copy the phrases. Do not invent activities.

Return a JSON object:
{"activities": [{"text": "...", "start": "...", "end": "...", "duration": "...", "sentiment": "..."}]}

Example input: "I woke up at 6:30, had a great breakfast until 7:15, then read for 45 minutes"
Example output:
{"activities": [
  {"text": "breakfast", "start": "6:30", "end": "until 7:15", "duration": "", "sentiment": "positive"},
  {"text": "reading", "start": "then", "end": "", "duration": "45 minutes", "sentiment": ""}
]}`

type gptActivity struct {
	Text      string     `json:"text"`
	Start     string     `json:"start"`
	End       string     `json:"end"`
	Duration  looseValue `json:"duration"`
	Sentiment string     `json:"sentiment"`
}

type gptResponse struct {
	Activities []gptActivity `json:"activities"`
}

// looseValue accepts a JSON string or number; models answer "duration": 45 often enough.
type looseValue string

func (v *looseValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = looseValue(s)
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("duration %s: %w", data, err)
		}
		if f <= 0 {
			*v = ""
			return nil
		}
		*v = looseValue(strconv.FormatFloat(f, 'f', -1, 64))
	}
	return nil
}

type GPTExtractor struct {
	client      ChatClient
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

func NewGPTExtractor(apiKey string, model string, maxTokens int, temperature float64, logger *zap.Logger) *GPTExtractor {
	return NewGPTExtractorWithClient(openai.NewClient(apiKey), model, maxTokens, temperature, logger)
}

func NewGPTExtractorWithClient(client ChatClient, model string, maxTokens int, temperature float64, logger *zap.Logger) *GPTExtractor {
	return &GPTExtractor{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

// Extract turns a transcript into raw mentions in narration order. An empty
// list is a valid answer. Any failure to get or parse one wraps ErrExtraction.
func (e *GPTExtractor) Extract(ctx context.Context, transcript string) ([]models.RawMention, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, nil
	}

	resp, err := e.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: e.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: transcript,
				},
			},
			MaxTokens:   e.maxTokens,
			Temperature: float32(e.temperature),
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		e.logger.Error("Failed to get GPT response", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", dlerrors.ErrExtraction, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", dlerrors.ErrExtraction)
	}

	response := stripCodeFence(resp.Choices[0].Message.Content)
	mentions, empty, err := parseMentions(response)
	if err != nil {
		e.logger.Error("Failed to parse GPT response",
			zap.Error(err),
			zap.String("response", response))
		return nil, fmt.Errorf("%w: %v", dlerrors.ErrExtraction, err)
	}

	if empty > 0 {
		e.logger.Warn("Skipped empty activities in GPT response", zap.Int("count", empty))
	}
	e.logger.Debug("Extracted mentions", zap.Int("count", len(mentions)))
	return mentions, nil
}

// parseMentions decodes the model's answer. Activities without a name are kept
// as long as any other field is set; entries with no fields at all are skipped
// and counted.
func parseMentions(response string) ([]models.RawMention, int, error) {
	var parsed gptResponse
	if strings.HasPrefix(response, "[") {
		// bare array, the shape older prompts asked for
		if err := json.Unmarshal([]byte(response), &parsed.Activities); err != nil {
			return nil, 0, err
		}
	} else if err := json.Unmarshal([]byte(response), &parsed); err != nil {
		return nil, 0, err
	}

	var empty int
	mentions := make([]models.RawMention, 0, len(parsed.Activities))
	for _, a := range parsed.Activities {
		m := models.RawMention{
			Text:          strings.TrimSpace(a.Text),
			StartHint:     strings.TrimSpace(a.Start),
			EndHint:       strings.TrimSpace(a.End),
			DurationHint:  strings.TrimSpace(string(a.Duration)),
			SentimentHint: strings.TrimSpace(a.Sentiment),
		}
		if m == (models.RawMention{}) {
			empty++
			continue
		}
		mentions = append(mentions, m)
	}
	return mentions, empty, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
