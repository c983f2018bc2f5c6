package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"opening-lines-quiz/internal/domain"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	// Save stores session under its id and returns the session it replaced, if any.
	Save(session *Session) (*Session, bool)
	Get(id string) (*Session, bool)
	// DeleteIf removes id only while it still maps to session.
	DeleteIf(id string, session *Session) bool
}

// CorpusRepository loads the question and title corpus (from cache/backing store).
type CorpusRepository interface {
	GetCorpus(ctx context.Context) (domain.Corpus, error)
}

// Catalog lists the choices offered on the start screen.
type Catalog struct {
	Levels  []domain.Level `json:"levels"`
	Authors []string       `json:"authors"`
}

// QuizService contains the quiz use cases, keyed by session id.
type QuizService struct {
	sessions SessionRepository
	corpus   CorpusRepository
	cfg      SessionConfig
	sched    Scheduler
	newRand  func() *rand.Rand
	log      *zap.Logger
}

// Option customizes a QuizService.
type Option func(*QuizService)

// WithScheduler replaces the time.AfterFunc scheduler.
func WithScheduler(sched Scheduler) Option {
	return func(s *QuizService) { s.sched = sched }
}

// WithRand makes every new session draw from rngs returned by newRand.
func WithRand(newRand func() *rand.Rand) Option {
	return func(s *QuizService) { s.newRand = newRand }
}

var seedCounter atomic.Int64

func NewQuizService(store SessionRepository, corpus CorpusRepository, cfg SessionConfig, log *zap.Logger, opts ...Option) *QuizService {
	s := &QuizService{
		sessions: store,
		corpus:   corpus,
		cfg:      cfg.withDefaults(),
		sched:    RealScheduler(),
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano() + seedCounter.Add(1)))
		},
		log: log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins a new playthrough for sessionID, replacing and tearing down
// any session already running under that id. A zero cadence uses the
// configured default.
func (s *QuizService) Start(ctx context.Context, sessionID string, sel domain.Selection, cadence time.Duration) (*Session, error) {
	sel, err := sel.Normalize()
	if err != nil {
		return nil, err
	}
	corpus, err := s.corpus.GetCorpus(ctx)
	if err != nil {
		return nil, fmt.Errorf("get corpus: %w", err)
	}

	cfg := s.cfg
	if cadence != 0 {
		cfg.Cadence = ClampCadence(cadence)
	}
	session := NewSession(sessionID, corpus, sel, cfg, s.sched, s.newRand())
	if session.Len() == 0 {
		session.Close()
		return nil, domain.ErrNoQuestions
	}

	if prev, ok := s.sessions.Save(session); ok && prev != session {
		prev.Close()
	}
	s.log.Info("quiz started",
		zap.String("session", sessionID),
		zap.String("mode", string(sel.Mode)),
		zap.String("value", sel.Value),
		zap.Int("questions", session.Len()),
		zap.Duration("cadence", session.Cadence()),
	)
	return session, nil
}

// Replay restarts sessionID with the selection and cadence it was started with.
func (s *QuizService) Replay(ctx context.Context, sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s.Start(ctx, sessionID, session.Selection(), session.Cadence())
}

// SubmitAnswer records an answer for the current question. The boolean is
// false when the submission was ignored (already answered, or nothing to answer).
func (s *QuizService) SubmitAnswer(_ context.Context, sessionID, answer string) (domain.Feedback, bool, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Feedback{}, false, domain.ErrSessionNotFound
	}
	fb, accepted := session.Submit(answer)
	if accepted {
		s.log.Debug("answer submitted",
			zap.String("session", sessionID),
			zap.Int("index", fb.Index),
			zap.Bool("correct", fb.Correct),
			zap.Int("characters", fb.CharactersRead),
		)
	}
	return fb, accepted, nil
}

// Subscribe returns a channel that receives updates for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan Event, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Leave tears session down and forgets it, unless a newer session has
// since been started under the same id.
func (s *QuizService) Leave(_ context.Context, session *Session) {
	if session == nil {
		return
	}
	session.Close()
	if s.sessions.DeleteIf(session.ID(), session) {
		s.log.Info("quiz left", zap.String("session", session.ID()))
	}
}

// Catalog returns the levels and authors a player can choose from.
func (s *QuizService) Catalog(ctx context.Context) (Catalog, error) {
	corpus, err := s.corpus.GetCorpus(ctx)
	if err != nil {
		return Catalog{}, fmt.Errorf("get corpus: %w", err)
	}
	return Catalog{Levels: domain.Levels, Authors: corpus.Authors()}, nil
}
