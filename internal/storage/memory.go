package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xaenox/daylog-bot/internal/models"
	dlerrors "github.com/xaenox/daylog-bot/pkg/errors"
)

type MemoryStorage struct {
	mu        sync.RWMutex
	users     map[int64]models.User
	timelines map[models.DayKey]models.DayTimeline
	now       func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:     make(map[int64]models.User),
		timelines: make(map[models.DayKey]models.DayTimeline),
		now:       time.Now,
	}
}

func (s *MemoryStorage) GetTimeline(ctx context.Context, userID int64, day string) (*models.DayTimeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tl, ok := s.timelines[models.DayKey{UserID: userID, Day: day}]
	if !ok {
		return nil, nil
	}
	c := tl.Clone()
	return &c, nil
}

func (s *MemoryStorage) PutTimeline(ctx context.Context, tl *models.DayTimeline) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tl.Key()
	var stored int64
	if cur, ok := s.timelines[key]; ok {
		stored = cur.Version
	}
	if stored != tl.Version {
		return fmt.Errorf("%w: %s has version %d, write expected %d", dlerrors.ErrConflict, key, stored, tl.Version)
	}

	tl.Version++
	tl.UpdatedAt = s.now()
	s.timelines[key] = tl.Clone()
	return nil
}

func (s *MemoryStorage) GetHistory(ctx context.Context, userID int64, from, to string) ([]models.DayTimeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if to == "" {
		to = openUpperBound
	}
	var out []models.DayTimeline
	for key, tl := range s.timelines {
		if key.UserID != userID || key.Day < from || key.Day > to {
			continue
		}
		out = append(out, tl.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *MemoryStorage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if user, exists := s.users[id]; exists {
		return &user, nil
	}
	return nil, fmt.Errorf("user %d: %w", id, dlerrors.ErrNotFound)
}

func (s *MemoryStorage) SaveUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.LastUsedAt = now
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
