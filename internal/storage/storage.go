package storage

import (
	"context"

	"github.com/xaenox/daylog-bot/internal/models"
)

// Storage persists day timelines and users.
//
// PutTimeline is an optimistic write: tl.Version must equal the stored version
// (0 for a day never written). On success the store increments tl.Version and
// stamps tl.UpdatedAt; on a mismatch it returns an error wrapping
// errors.ErrConflict and leaves the stored row untouched.
type Storage interface {
	GetTimeline(ctx context.Context, userID int64, day string) (*models.DayTimeline, error)
	PutTimeline(ctx context.Context, tl *models.DayTimeline) error
	// GetHistory returns the user's timelines with from <= day <= to, oldest
	// first. An empty bound is open.
	GetHistory(ctx context.Context, userID int64, from, to string) ([]models.DayTimeline, error)
	Close() error

	UserStorage
}

type UserStorage interface {
	// GetUser returns an error wrapping errors.ErrNotFound for unknown users.
	GetUser(ctx context.Context, id int64) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
}

const openUpperBound = "9999-12-31"
