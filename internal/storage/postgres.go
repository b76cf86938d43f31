package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/xaenox/daylog-bot/internal/models"
	dlerrors "github.com/xaenox/daylog-bot/pkg/errors"
)

//go:embed migrations.sql
var migrations string

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// SQLStorage implements Storage over database/sql. Queries are written with
// Postgres placeholders and rebound for other drivers.
type SQLStorage struct {
	db     *sql.DB
	rebind func(string) string
	logger *zap.Logger
	now    func() time.Time
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*SQLStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	return newSQLStorage(db, func(q string) string { return q }, logger.With(zap.String("driver", "postgres")))
}

func newSQLStorage(db *sql.DB, rebind func(string) string, logger *zap.Logger) (*SQLStorage, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	s := &SQLStorage{db: db, rebind: rebind, logger: logger, now: time.Now}
	if err := s.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}
	return s, nil
}

func (s *SQLStorage) initializeSchema() error {
	if _, err := s.db.Exec(migrations); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

func (s *SQLStorage) GetTimeline(ctx context.Context, userID int64, day string) (*models.DayTimeline, error) {
	query := s.rebind(`
		SELECT user_id, day, segments, total_tracked_minutes, version, updated_at
		FROM day_timelines
		WHERE user_id = $1 AND day = $2`)

	tl, err := scanTimeline(s.db.QueryRowContext(ctx, query, userID, day))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get timeline %d/%s: %v", dlerrors.ErrStorage, userID, day, err)
	}
	return tl, nil
}

func (s *SQLStorage) PutTimeline(ctx context.Context, tl *models.DayTimeline) error {
	segments, err := json.Marshal(tl.Segments)
	if err != nil {
		return fmt.Errorf("%w: encode segments: %v", dlerrors.ErrStorage, err)
	}
	updatedAt := s.now()

	var res sql.Result
	if tl.Version == 0 {
		res, err = s.db.ExecContext(ctx, s.rebind(`
			INSERT INTO day_timelines (user_id, day, segments, total_tracked_minutes, version, updated_at)
			VALUES ($1, $2, $3, $4, 1, $5)
			ON CONFLICT (user_id, day) DO NOTHING`),
			tl.UserID, tl.Date, string(segments), tl.TotalTrackedMinutes, updatedAt.UnixMilli())
	} else {
		res, err = s.db.ExecContext(ctx, s.rebind(`
			UPDATE day_timelines
			SET segments = $1, total_tracked_minutes = $2, version = version + 1, updated_at = $3
			WHERE user_id = $4 AND day = $5 AND version = $6`),
			string(segments), tl.TotalTrackedMinutes, updatedAt.UnixMilli(), tl.UserID, tl.Date, tl.Version)
	}
	if err != nil {
		return fmt.Errorf("%w: put timeline %s: %v", dlerrors.ErrStorage, tl.Key(), err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: put timeline %s: %v", dlerrors.ErrStorage, tl.Key(), err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s moved past version %d", dlerrors.ErrConflict, tl.Key(), tl.Version)
	}

	tl.Version++
	tl.UpdatedAt = time.UnixMilli(updatedAt.UnixMilli())
	s.logger.Debug("Timeline stored",
		zap.String("key", tl.Key().String()),
		zap.Int64("version", tl.Version),
		zap.Int("segments", len(tl.Segments)))
	return nil
}

func (s *SQLStorage) GetHistory(ctx context.Context, userID int64, from, to string) ([]models.DayTimeline, error) {
	if to == "" {
		to = openUpperBound
	}
	query := s.rebind(`
		SELECT user_id, day, segments, total_tracked_minutes, version, updated_at
		FROM day_timelines
		WHERE user_id = $1 AND day >= $2 AND day <= $3
		ORDER BY day ASC`)

	rows, err := s.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: query history: %v", dlerrors.ErrStorage, err)
	}
	defer rows.Close()

	var history []models.DayTimeline
	for rows.Next() {
		tl, err := scanTimeline(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan timeline: %v", dlerrors.ErrStorage, err)
		}
		history = append(history, *tl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate history: %v", dlerrors.ErrStorage, err)
	}
	return history, nil
}

func (s *SQLStorage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	query := s.rebind(`
		SELECT id, username, timezone, created_at, last_used_at
		FROM users
		WHERE id = $1`)

	var (
		user               models.User
		createdAt, usedAt int64
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Username, &user.Timezone, &createdAt, &usedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, dlerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get user %d: %v", dlerrors.ErrStorage, id, err)
	}
	user.CreatedAt = time.UnixMilli(createdAt)
	user.LastUsedAt = time.UnixMilli(usedAt)
	return &user, nil
}

func (s *SQLStorage) SaveUser(ctx context.Context, user *models.User) error {
	now := s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.LastUsedAt = now

	query := s.rebind(`
		INSERT INTO users (id, username, timezone, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET username = excluded.username, timezone = excluded.timezone, last_used_at = excluded.last_used_at`)

	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Timezone, user.CreatedAt.UnixMilli(), user.LastUsedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("%w: save user %d: %v", dlerrors.ErrStorage, user.ID, err)
	}
	return nil
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTimeline(row rowScanner) (*models.DayTimeline, error) {
	var (
		tl        models.DayTimeline
		segments  string
		updatedAt int64
	)
	if err := row.Scan(&tl.UserID, &tl.Date, &segments, &tl.TotalTrackedMinutes, &tl.Version, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(segments), &tl.Segments); err != nil {
		return nil, fmt.Errorf("decode segments: %w", err)
	}
	tl.UpdatedAt = time.UnixMilli(updatedAt)
	return &tl, nil
}
