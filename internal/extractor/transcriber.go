package extractor

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	dlerrors "github.com/xaenox/daylog-bot/pkg/errors"
)

// AudioClient is the part of the OpenAI client the transcriber needs.
type AudioClient interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

type WhisperTranscriber struct {
	client AudioClient
	model  string
	logger *zap.Logger
}

func NewWhisperTranscriber(apiKey string, model string, logger *zap.Logger) *WhisperTranscriber {
	return NewWhisperTranscriberWithClient(openai.NewClient(apiKey), model, logger)
}

func NewWhisperTranscriberWithClient(client AudioClient, model string, logger *zap.Logger) *WhisperTranscriber {
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperTranscriber{client: client, model: model, logger: logger}
}

// Transcribe converts a voice note to text. filename only tells the API the
// audio format (Telegram voice notes are "voice.ogg").
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: filename,
		Reader:   audio,
	})
	if err != nil {
		t.logger.Error("Failed to transcribe audio", zap.Error(err), zap.String("file", filename))
		return "", fmt.Errorf("%w: %v", dlerrors.ErrTranscription, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("%w: empty transcript", dlerrors.ErrTranscription)
	}
	return text, nil
}
