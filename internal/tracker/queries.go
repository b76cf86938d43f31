package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xaenox/daylog-bot/internal/metrics"
	"github.com/xaenox/daylog-bot/internal/models"
	"github.com/xaenox/daylog-bot/internal/stats"
	dlerrors "github.com/xaenox/daylog-bot/pkg/errors"
)

// Stats computes streaks over the user's whole history and aggregates over
// window, relative to the user's current day.
func (s *Service) Stats(ctx context.Context, userID int64, window string, now time.Time) (models.UserStats, error) {
	today := now.In(s.location(ctx, userID))
	w, err := stats.ParseWindow(window, today)
	if err != nil {
		return models.UserStats{}, err
	}

	ctx, span := s.tracer.Start(ctx, metrics.SpanStats, userID, attribute.String(metrics.AttrDay, w.EndKey()))
	history, err := s.store.GetHistory(ctx, userID, "", "")
	metrics.End(span, err, "storage")
	if err != nil {
		s.logger.Error("Failed to load history", zap.Int64("user_id", userID), zap.Error(err))
		return models.UserStats{}, err
	}

	return stats.Compute(history, w, today), nil
}

// Today returns the user's current day timeline, empty if nothing is logged yet.
func (s *Service) Today(ctx context.Context, userID int64, now time.Time) (models.DayTimeline, error) {
	key := models.NewDayKey(userID, now.In(s.location(ctx, userID)))
	tl, err := s.store.GetTimeline(ctx, key.UserID, key.Day)
	if err != nil {
		return models.DayTimeline{}, err
	}
	if tl == nil {
		return models.DayTimeline{UserID: key.UserID, Date: key.Day}, nil
	}
	return *tl, nil
}

// BeginTracking registers the user, or refreshes their profile. Nothing is
// written to any timeline.
func (s *Service) BeginTracking(ctx context.Context, userID int64, username string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	switch {
	case dlerrors.IsNotFound(err):
		user = &models.User{ID: userID}
	case err != nil:
		return nil, err
	}
	if username != "" {
		user.Username = username
	}

	if err := s.store.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("Tracking started", zap.Int64("user_id", userID), zap.String("username", user.Username))
	return user, nil
}

// SetTimezone stores an IANA zone name for the user. It decides which calendar
// day later narrations land on.
func (s *Service) SetTimezone(ctx context.Context, userID int64, tz string) (*models.User, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return nil, fmt.Errorf("%w: empty timezone", dlerrors.ErrValidation)
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", dlerrors.ErrValidation, tz)
	}

	user, err := s.BeginTracking(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	user.Timezone = tz
	if err := s.store.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
