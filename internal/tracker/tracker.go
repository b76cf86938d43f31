// Package tracker runs the logging pipeline: transcript to mentions, mentions
// to segments, segments into the stored day timeline.
//
// Messages from one user are handled one at a time, from transcription to the
// stored timeline, so a later message always lands after an earlier one. Every
// write to a (user, day) timeline happens inside one transaction: take the
// key's lock, read the current timeline, assemble, and write back with an
// optimistic version check. A lost race is retried from the read.
package tracker

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xaenox/daylog-bot/internal/classifier"
	"github.com/xaenox/daylog-bot/internal/metrics"
	"github.com/xaenox/daylog-bot/internal/models"
	"github.com/xaenox/daylog-bot/internal/segmenter"
	"github.com/xaenox/daylog-bot/internal/storage"
	"github.com/xaenox/daylog-bot/internal/timeline"
	dlerrors "github.com/xaenox/daylog-bot/pkg/errors"
)

// Extractor turns a transcript into raw mentions in narration order.
type Extractor interface {
	Extract(ctx context.Context, transcript string) ([]models.RawMention, error)
}

// Transcriber turns a voice note into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

const (
	inputText   = "text"
	inputVoice  = "voice"
	inputDirect = "direct"
)

// Config tunes the service.
type Config struct {
	// Location is the default timezone for users who never set one.
	Location   *time.Location
	MaxRetries int
}

// Deps are the collaborators of a Service. Storage is required; the rest
// default to in-process implementations.
type Deps struct {
	Storage     storage.Storage
	Locker      storage.Locker
	Extractor   Extractor
	Transcriber Transcriber
	Tagger      classifier.Tagger
	Metrics     *metrics.Metrics
	Tracer      *metrics.Tracer
	Logger      *zap.Logger
}

// Outcome is what one narration did to a day.
type Outcome struct {
	Transcript  string
	Recorded    []models.Segment
	Timeline    models.DayTimeline
	Warnings    []models.Warning
	Ambiguities []segmenter.Ambiguity
}

type Service struct {
	store       storage.Storage
	locker      storage.Locker
	extractor   Extractor
	transcriber Transcriber
	segmenter   *segmenter.Segmenter
	tagger      classifier.Tagger
	metrics     *metrics.Metrics
	tracer      *metrics.Tracer
	logger      *zap.Logger
	loc         *time.Location
	maxRetries  int
}

func NewService(cfg Config, deps Deps) *Service {
	s := &Service{
		store:       deps.Storage,
		locker:      deps.Locker,
		extractor:   deps.Extractor,
		transcriber: deps.Transcriber,
		segmenter:   segmenter.New(),
		tagger:      deps.Tagger,
		metrics:     deps.Metrics,
		tracer:      deps.Tracer,
		logger:      deps.Logger,
		loc:         cfg.Location,
		maxRetries:  cfg.MaxRetries,
	}
	if s.locker == nil {
		s.locker = storage.NewKeyedMutex()
	}
	if s.tagger == nil {
		s.tagger = classifier.NewLexiconTagger()
	}
	if s.metrics == nil {
		s.metrics = metrics.New(prometheus.NewRegistry())
	}
	if s.tracer == nil {
		s.tracer = metrics.NewTracer()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.maxRetries < 0 {
		s.maxRetries = 0
	}
	return s
}

// LogTranscript extracts activities from text and records them on the user's
// current day. If extraction fails nothing is stored.
func (s *Service) LogTranscript(ctx context.Context, userID int64, text string, now time.Time) (*Outcome, error) {
	unlock, err := s.lockUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return s.logTranscript(ctx, userID, text, now, inputText)
}

// LogVoice transcribes audio and then behaves like LogTranscript.
func (s *Service) LogVoice(ctx context.Context, userID int64, audio io.Reader, filename string, now time.Time) (*Outcome, error) {
	if s.transcriber == nil {
		return nil, fmt.Errorf("%w: no transcriber configured", dlerrors.ErrTranscription)
	}

	unlock, err := s.lockUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ctx, span := s.tracer.Start(ctx, metrics.SpanTranscribe, userID)
	started := time.Now()
	text, err := s.transcriber.Transcribe(ctx, audio, filename)
	s.metrics.OracleLatencySeconds.WithLabelValues("transcribe").Observe(time.Since(started).Seconds())
	metrics.End(span, err, "transcription")
	if err != nil {
		s.metrics.RequestsTotal.WithLabelValues(inputVoice, metrics.StatusTranscriptionFailed).Inc()
		s.logger.Error("Failed to transcribe voice note", zap.Int64("user_id", userID), zap.Error(err))
		if !dlerrors.IsTranscription(err) {
			err = fmt.Errorf("%w: %v", dlerrors.ErrTranscription, err)
		}
		return nil, err
	}

	return s.logTranscript(ctx, userID, text, now, inputVoice)
}

func (s *Service) logTranscript(ctx context.Context, userID int64, text string, now time.Time, input string) (*Outcome, error) {
	if s.extractor == nil {
		return nil, fmt.Errorf("%w: no extractor configured", dlerrors.ErrExtraction)
	}

	ctx, span := s.tracer.Start(ctx, metrics.SpanExtract, userID, attribute.String(metrics.AttrInput, input))
	started := time.Now()
	mentions, err := s.extractor.Extract(ctx, text)
	s.metrics.OracleLatencySeconds.WithLabelValues("extract").Observe(time.Since(started).Seconds())
	metrics.End(span, err, "extraction")
	if err != nil {
		s.metrics.RequestsTotal.WithLabelValues(input, metrics.StatusExtractionFailed).Inc()
		s.logger.Error("Failed to extract activities", zap.Int64("user_id", userID), zap.Error(err))
		if !dlerrors.IsExtraction(err) {
			err = fmt.Errorf("%w: %v", dlerrors.ErrExtraction, err)
		}
		return nil, err
	}

	anchor := now.In(s.location(ctx, userID))
	out, err := s.record(ctx, userID, anchor, mentions, input)
	if err != nil {
		return nil, err
	}
	out.Transcript = text
	return out, nil
}

// Record merges already-extracted mentions into the day anchor falls on.
// An empty list leaves the stored timeline untouched.
func (s *Service) Record(ctx context.Context, userID int64, anchor time.Time, mentions []models.RawMention) (*Outcome, error) {
	unlock, err := s.lockUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return s.record(ctx, userID, anchor, mentions, inputDirect)
}

// lockUser holds off other requests from userID until the returned func is called.
func (s *Service) lockUser(ctx context.Context, userID int64) (func(), error) {
	unlock, err := s.locker.Lock(ctx, fmt.Sprintf("user:%d", userID))
	if err != nil {
		s.logger.Error("Failed to lock user", zap.Int64("user_id", userID), zap.Error(err))
		if dlerrors.IsStorage(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: lock user %d: %v", dlerrors.ErrStorage, userID, err)
	}
	return unlock, nil
}

func (s *Service) record(ctx context.Context, userID int64, anchor time.Time, mentions []models.RawMention, input string) (*Outcome, error) {
	key := models.NewDayKey(userID, anchor)
	ctx, span := s.tracer.Start(ctx, metrics.SpanRecord, userID,
		attribute.String(metrics.AttrDay, key.Day),
		attribute.Int(metrics.AttrMentions, len(mentions)))

	seg := s.segmenter.SegmentAfter(mentions, anchor, s.lastNarratedEnd(ctx, key, anchor.Location()))
	segments := make([]models.Segment, len(seg.Segments))
	for i, sg := range seg.Segments {
		segments[i] = s.tagger.Tag(sg, mentions[sg.Seq].SentimentHint)
	}
	for _, a := range seg.Ambiguities {
		s.metrics.AmbiguitiesTotal.WithLabelValues(a.Field).Inc()
		s.logger.Warn("Ambiguous time reference",
			zap.Int64("user_id", userID),
			zap.String("day", key.Day),
			zap.Int("mention", a.Seq),
			zap.String("field", a.Field),
			zap.String("hint", a.Hint),
			zap.Error(a.Err))
	}

	res, err := s.commit(ctx, key, segments)
	metrics.End(span, err, "storage")
	if err != nil {
		s.metrics.RequestsTotal.WithLabelValues(input, metrics.StatusStorageFailed).Inc()
		s.logger.Error("Failed to store timeline",
			zap.Int64("user_id", userID),
			zap.String("day", key.Day),
			zap.Error(err))
		return nil, err
	}

	for _, w := range res.Warnings {
		s.metrics.OverlapWarnings.WithLabelValues(string(w.Kind)).Inc()
		s.logger.Warn("Segment overlapped by later narration",
			zap.Int64("user_id", userID),
			zap.String("day", key.Day),
			zap.String("kind", string(w.Kind)),
			zap.String("segment", w.Segment.Description),
			zap.String("by", w.Superseder.Description))
	}
	s.metrics.RequestsTotal.WithLabelValues(input, metrics.StatusOK).Inc()
	s.metrics.SegmentsRecorded.Add(float64(len(segments)))

	return &Outcome{
		Recorded:    segments,
		Timeline:    res.Timeline,
		Warnings:    res.Warnings,
		Ambiguities: seg.Ambiguities,
	}, nil
}

// lastNarratedEnd returns where the most recently narrated stored segment of
// the day ends, so "then" in a follow-up message continues from it.
func (s *Service) lastNarratedEnd(ctx context.Context, key models.DayKey, loc *time.Location) *time.Time {
	tl, err := s.store.GetTimeline(ctx, key.UserID, key.Day)
	if err != nil {
		s.logger.Warn("Failed to load timeline for continuity", zap.String("key", key.String()), zap.Error(err))
		return nil
	}
	if tl == nil || len(tl.Segments) == 0 {
		return nil
	}
	last := tl.Segments[0]
	for _, sg := range tl.Segments[1:] {
		if sg.Seq > last.Seq {
			last = sg
		}
	}
	end := last.End.In(loc)
	return &end
}

// commit runs the read-assemble-write transaction for key, retrying lost races.
func (s *Service) commit(ctx context.Context, key models.DayKey, segments []models.Segment) (timeline.Result, error) {
	for attempt := 0; ; attempt++ {
		res, err := s.mergeOnce(ctx, key, segments)
		if err == nil {
			return res, nil
		}
		if !dlerrors.IsConflict(err) {
			return timeline.Result{}, err
		}
		s.metrics.StorageConflicts.Inc()
		if attempt >= s.maxRetries {
			return timeline.Result{}, fmt.Errorf("%w: gave up after %d attempts: %w", dlerrors.ErrStorage, attempt+1, err)
		}
		s.logger.Debug("Retrying timeline write", zap.String("key", key.String()), zap.Int("attempt", attempt+1))
	}
}

func (s *Service) mergeOnce(ctx context.Context, key models.DayKey, segments []models.Segment) (timeline.Result, error) {
	unlock, err := s.locker.Lock(ctx, key.String())
	if err != nil {
		if dlerrors.IsStorage(err) {
			return timeline.Result{}, err
		}
		return timeline.Result{}, fmt.Errorf("%w: lock %s: %v", dlerrors.ErrStorage, key, err)
	}
	defer unlock()

	existing, err := s.store.GetTimeline(ctx, key.UserID, key.Day)
	if err != nil {
		return timeline.Result{}, err
	}

	ctx, span := s.tracer.Start(ctx, metrics.SpanMerge, key.UserID, attribute.String(metrics.AttrDay, key.Day))
	res := timeline.Assemble(existing, key, segments)
	span.SetAttributes(
		attribute.Int(metrics.AttrSegments, len(res.Timeline.Segments)),
		attribute.Int(metrics.AttrWarnings, len(res.Warnings)))
	if err := timeline.Validate(res.Timeline); err != nil {
		metrics.End(span, err, "validation")
		return timeline.Result{}, fmt.Errorf("%w: refusing to store %s: %v", dlerrors.ErrStorage, key, err)
	}
	metrics.End(span, nil, "")

	if len(segments) == 0 {
		return res, nil
	}

	before := 0
	if existing != nil {
		before = existing.TotalTrackedMinutes
	}
	if err := s.store.PutTimeline(ctx, &res.Timeline); err != nil {
		return timeline.Result{}, err
	}
	if added := res.Timeline.TotalTrackedMinutes - before; added > 0 {
		s.metrics.TrackedMinutes.Add(float64(added))
	}
	return res, nil
}

// location returns the user's timezone, or the service default.
func (s *Service) location(ctx context.Context, userID int64) *time.Location {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if !dlerrors.IsNotFound(err) {
			s.logger.Warn("Failed to load user, using default timezone", zap.Int64("user_id", userID), zap.Error(err))
		}
		return s.loc
	}
	return user.Location(s.loc)
}
