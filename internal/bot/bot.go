package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/daylog-bot/internal/models"
	"github.com/xaenox/daylog-bot/internal/tracker"
	dlerrors "github.com/xaenox/daylog-bot/pkg/errors"
)

// maxVoiceBytes caps downloads; Telegram voice notes are far smaller.
const maxVoiceBytes = 20 << 20

// Tracker is the part of tracker.Service the bot drives.
type Tracker interface {
	LogTranscript(ctx context.Context, userID int64, text string, now time.Time) (*tracker.Outcome, error)
	LogVoice(ctx context.Context, userID int64, audio io.Reader, filename string, now time.Time) (*tracker.Outcome, error)
	Stats(ctx context.Context, userID int64, window string, now time.Time) (models.UserStats, error)
	Today(ctx context.Context, userID int64, now time.Time) (models.DayTimeline, error)
	BeginTracking(ctx context.Context, userID int64, username string) (*models.User, error)
	SetTimezone(ctx context.Context, userID int64, tz string) (*models.User, error)
}

type Bot struct {
	api     *tgbotapi.BotAPI
	tracker Tracker
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger

	// handle processes one message; messages from a user are queued in
	// inboxes and handled in arrival order.
	handle  func(ctx context.Context, message *tgbotapi.Message)
	mu      sync.Mutex
	inboxes map[int64][]*tgbotapi.Message
}

func New(token string, t Tracker, timeout time.Duration, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	logger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))
	b := &Bot{
		api:     api,
		tracker: t,
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
		inboxes: make(map[int64][]*tgbotapi.Message),
	}
	b.handle = b.handleMessage
	return b, nil
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			b.enqueue(ctx, update.Message)
		}
	}
}

// enqueue adds message to its sender's inbox, starting a worker for the inbox
// if none is running.
func (b *Bot) enqueue(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	b.mu.Lock()
	defer b.mu.Unlock()
	pending, running := b.inboxes[userID]
	b.inboxes[userID] = append(pending, message)
	if !running {
		go b.drain(ctx, userID)
	}
}

// drain handles userID's messages one by one until the inbox is empty.
func (b *Bot) drain(ctx context.Context, userID int64) {
	for {
		b.mu.Lock()
		pending := b.inboxes[userID]
		if len(pending) == 0 {
			delete(b.inboxes, userID)
			b.mu.Unlock()
			return
		}
		message := pending[0]
		b.inboxes[userID] = pending[1:]
		b.mu.Unlock()

		b.handle(ctx, message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	logger := b.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.Int64("user_id", message.From.ID))

	switch {
	case message.IsCommand():
		b.handleCommand(ctx, message, logger)
	case message.Voice != nil:
		b.handleVoice(ctx, message, logger)
	case strings.TrimSpace(message.Text) != "":
		b.handleText(ctx, message, logger)
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message, logger *zap.Logger) {
	switch message.Command() {
	case "start":
		b.handleStart(ctx, message, logger)
	case "help":
		b.sendMessage(message.Chat.ID, helpText)
	case "track":
		b.sendMessage(message.Chat.ID, trackText)
	case "today":
		b.handleToday(ctx, message, logger)
	case "stats":
		b.handleStats(ctx, message, logger)
	case "timezone":
		b.handleTimezone(ctx, message, logger)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message, logger *zap.Logger) {
	if _, err := b.tracker.BeginTracking(ctx, message.From.ID, message.From.UserName); err != nil {
		logger.Error("Failed to register user", zap.Error(err))
	}
	b.sendMessage(message.Chat.ID, welcomeText(message.From.FirstName))
}

func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message, logger *zap.Logger) {
	out, err := b.tracker.LogTranscript(ctx, message.From.ID, message.Text, message.Time())
	if err != nil {
		b.reportFailure(message.Chat.ID, err, logger)
		return
	}
	b.sendMarkdown(message.Chat.ID, message.MessageID, formatOutcome(out))
}

func (b *Bot) handleVoice(ctx context.Context, message *tgbotapi.Message, logger *zap.Logger) {
	fileURL, err := b.api.GetFileDirectURL(message.Voice.FileID)
	if err != nil {
		logger.Error("Failed to resolve voice file", zap.Error(err), zap.String("file_id", message.Voice.FileID))
		b.sendErrorMessage(message.Chat.ID, "I couldn't fetch your voice message. Please try again.")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		logger.Error("Failed to build voice download", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "I couldn't fetch your voice message. Please try again.")
		return
	}
	resp, err := b.http.Do(req)
	if err != nil {
		logger.Error("Failed to download voice file", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "I couldn't fetch your voice message. Please try again.")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.Error("Voice download returned an error", zap.Int("status", resp.StatusCode))
		b.sendErrorMessage(message.Chat.ID, "I couldn't fetch your voice message. Please try again.")
		return
	}

	out, err := b.tracker.LogVoice(ctx, message.From.ID, io.LimitReader(resp.Body, maxVoiceBytes), "voice.ogg", message.Time())
	if err != nil {
		b.reportFailure(message.Chat.ID, err, logger)
		return
	}
	b.sendMarkdown(message.Chat.ID, message.MessageID, formatTranscript(out.Transcript)+formatOutcome(out))
}

func (b *Bot) handleToday(ctx context.Context, message *tgbotapi.Message, logger *zap.Logger) {
	tl, err := b.tracker.Today(ctx, message.From.ID, message.Time())
	if err != nil {
		b.reportFailure(message.Chat.ID, err, logger)
		return
	}
	b.sendMarkdown(message.Chat.ID, 0, formatTimeline(tl))
}

func (b *Bot) handleStats(ctx context.Context, message *tgbotapi.Message, logger *zap.Logger) {
	st, err := b.tracker.Stats(ctx, message.From.ID, message.CommandArguments(), message.Time())
	if err != nil {
		if dlerrors.IsValidation(err) {
			b.sendMessage(message.Chat.ID, "Try /stats, /stats today, /stats month, /stats all or /stats 14d.")
			return
		}
		b.reportFailure(message.Chat.ID, err, logger)
		return
	}
	b.sendMarkdown(message.Chat.ID, 0, formatStats(st))
}

func (b *Bot) handleTimezone(ctx context.Context, message *tgbotapi.Message, logger *zap.Logger) {
	tz := strings.TrimSpace(message.CommandArguments())
	if tz == "" {
		b.sendMessage(message.Chat.ID, "Send your timezone like this: /timezone Europe/Berlin")
		return
	}
	user, err := b.tracker.SetTimezone(ctx, message.From.ID, tz)
	if err != nil {
		if dlerrors.IsValidation(err) {
			b.sendMessage(message.Chat.ID, fmt.Sprintf("I don't know the timezone %q. Use a name like Europe/Berlin or America/New_York.", tz))
			return
		}
		b.reportFailure(message.Chat.ID, err, logger)
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("🌍 Timezone set to %s.", user.Timezone))
}

func (b *Bot) reportFailure(chatID int64, err error, logger *zap.Logger) {
	logger.Error("Request failed", zap.Error(err))
	b.sendErrorMessage(chatID, failureText(err))
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMarkdown(chatID int64, replyToID int, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.ReplyToMessageID = replyToID
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
