package app

import (
	"math/rand"
	"sync"
	"time"

	"opening-lines-quiz/internal/domain"
)

// DefaultAdvanceDelay is how long feedback stays up before the next question.
const DefaultAdvanceDelay = 2 * time.Second

// SessionConfig tunes one playthrough. Zero fields take the defaults.
type SessionConfig struct {
	QuestionCount int
	OptionCount   int
	RevealLimit   int
	Cadence       time.Duration
	AdvanceDelay  time.Duration
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.QuestionCount <= 0 {
		c.QuestionCount = DefaultQuestionCount
	}
	if c.OptionCount <= 0 {
		c.OptionCount = DefaultOptionCount
	}
	if c.RevealLimit <= 0 {
		c.RevealLimit = DefaultRevealLimit
	}
	c.Cadence = ClampCadence(c.Cadence)
	if c.AdvanceDelay <= 0 {
		c.AdvanceDelay = DefaultAdvanceDelay
	}
	return c
}

// EventType names a session update pushed to subscribers.
type EventType string

const (
	EventQuestion EventType = "question"
	EventReveal   EventType = "reveal"
	EventFeedback EventType = "feedback"
	EventResults  EventType = "results"
)

// Event is a single session update; exactly one payload field is set.
type Event struct {
	Type     EventType
	Question *domain.QuestionView
	Reveal   *domain.RevealView
	Feedback *domain.Feedback
	Results  *domain.Results
}

// SessionState is a point-in-time copy of a session.
type SessionState struct {
	ID             string
	Selection      domain.Selection
	Question       domain.Question
	Index          int
	Total          int
	Score          int
	CharactersRead int
	Revealed       int
	Options        []string
	Selected       string
	Answered       bool
	Finished       bool
}

// Session is one playthrough: up to QuestionCount questions, each revealed
// progressively, answered once, then auto-advanced after a delay.
type Session struct {
	id        string
	selection domain.Selection
	corpus    domain.Corpus
	cfg       SessionConfig
	sched     Scheduler
	rng       *rand.Rand
	revealer  *Revealer

	mu             sync.Mutex
	questions      []domain.Question
	options        []string
	index          int
	score          int
	charactersRead int
	selected       *string
	feedback       *domain.Feedback
	step           uint64
	revealGen      uint64
	advance        Timer
	finished       bool
	closed         bool
	results        *domain.Results
	subscribers    map[chan Event]struct{}
}

// NewSession selects the questions for sel and starts revealing the first
// one. sel must already be normalized. A selection that matches nothing
// produces an empty session on which Submit is a no-op.
func NewSession(id string, corpus domain.Corpus, sel domain.Selection, cfg SessionConfig, sched Scheduler, rng *rand.Rand) *Session {
	cfg = cfg.withDefaults()
	s := &Session{
		id:          id,
		selection:   sel,
		corpus:      corpus,
		cfg:         cfg,
		sched:       sched,
		rng:         rng,
		subscribers: make(map[chan Event]struct{}),
	}
	s.revealer = NewRevealer(sched, cfg.Cadence, cfg.RevealLimit, s.onReveal)
	s.questions = SelectQuestions(corpus.Questions, sel, cfg.QuestionCount, rng)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.questions) > 0 {
		s.prepareLocked()
	}
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Selection returns the {mode, value} the session was started with.
func (s *Session) Selection() domain.Selection { return s.selection }

// Cadence returns the reveal cadence in use.
func (s *Session) Cadence() time.Duration { return s.cfg.Cadence }

// Len returns the number of questions selected.
func (s *Session) Len() int { return len(s.questions) }

// State returns a snapshot of the session.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := SessionState{
		ID:             s.id,
		Selection:      s.selection,
		Index:          s.index,
		Total:          len(s.questions),
		Score:          s.score,
		CharactersRead: s.charactersRead,
		Revealed:       s.revealer.Revealed(),
		Options:        append([]string(nil), s.options...),
		Answered:       s.selected != nil,
		Finished:       s.finished,
	}
	if s.index < len(s.questions) {
		st.Question = s.questions[s.index]
	}
	if s.selected != nil {
		st.Selected = *s.selected
	}
	return st
}

// Results returns the final aggregates once the session has finished.
func (s *Session) Results() (domain.Results, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.results == nil {
		return domain.Results{}, false
	}
	return *s.results, true
}

// Submit records answer for the current question. It reports false and
// changes nothing if the question was already answered or there is no
// current question.
func (s *Session) Submit(answer string) (domain.Feedback, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.finished || s.selected != nil || s.index >= len(s.questions) {
		return domain.Feedback{}, false
	}

	q := s.questions[s.index]
	read := s.revealer.Freeze()
	correct := answer == q.CorrectAnswer
	if correct {
		s.score++
	}
	s.charactersRead += read
	s.selected = &answer

	fb := domain.Feedback{
		Index:          s.index,
		Answer:         answer,
		CorrectAnswer:  q.CorrectAnswer,
		Correct:        correct,
		CharactersRead: read,
		Score:          s.score,
	}
	s.feedback = &fb
	s.broadcastLocked(Event{Type: EventFeedback, Feedback: &fb})

	s.step++
	step := s.step
	s.advance = s.sched.AfterFunc(s.cfg.AdvanceDelay, func() { s.advanceFrom(step) })
	return fb, true
}

// Close tears the session down: pending reveal ticks and the scheduled
// advance are cancelled and subscriber channels are closed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.step++
	if s.advance != nil {
		s.advance.Stop()
		s.advance = nil
	}
	s.revealer.Stop()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Subscribe returns a channel of session events, primed with the current
// question, its reveal and any recorded feedback (or the results if already
// finished). The caller must invoke the
// returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	switch {
	case s.results != nil:
		results := *s.results
		ch <- Event{Type: EventResults, Results: &results}
	case s.index < len(s.questions):
		ch <- Event{Type: EventQuestion, Question: s.questionViewLocked()}
		ch <- Event{Type: EventReveal, Reveal: s.revealViewLocked(s.revealer.Revealed())}
		if s.feedback != nil {
			fb := *s.feedback
			ch <- Event{Type: EventFeedback, Feedback: &fb}
		}
	}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) advanceFrom(step uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.finished || step != s.step {
		return
	}
	s.advance = nil
	if s.index < len(s.questions)-1 {
		s.index++
		s.prepareLocked()
		return
	}
	s.finishLocked()
}

func (s *Session) prepareLocked() {
	q := s.questions[s.index]
	s.selected = nil
	s.feedback = nil
	s.options = GenerateOptions(q, s.corpus.Questions, s.cfg.OptionCount, s.selection.Mode == domain.ModeAuthor, s.rng)
	s.revealGen = s.revealer.Start(q.Text)
	s.broadcastLocked(Event{Type: EventQuestion, Question: s.questionViewLocked()})
}

func (s *Session) finishLocked() {
	s.finished = true
	s.revealer.Stop()

	// The corpus is validated on load, so a missing title only leaves the
	// label empty.
	title, _ := LookupTitle(s.corpus.Titles, s.score, s.rng)
	results := domain.Results{
		Score:               s.score,
		TotalQuestions:      len(s.questions),
		TotalCharactersRead: s.charactersRead,
		Selection:           s.selection,
		Title:               title,
	}
	s.results = &results
	s.broadcastLocked(Event{Type: EventResults, Results: &results})
}

func (s *Session) onReveal(gen uint64, revealed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.finished || gen != s.revealGen || s.selected != nil {
		return
	}
	s.broadcastLocked(Event{Type: EventReveal, Reveal: s.revealViewLocked(revealed)})
}

func (s *Session) questionViewLocked() *domain.QuestionView {
	return &domain.QuestionView{
		Index:       s.index,
		Total:       len(s.questions),
		Options:     append([]string(nil), s.options...),
		RevealLimit: s.revealer.Bound(),
	}
}

func (s *Session) revealViewLocked(revealed int) *domain.RevealView {
	runes := []rune(s.questions[s.index].Text)
	if revealed > len(runes) {
		revealed = len(runes)
	}
	return &domain.RevealView{
		Index:    s.index,
		Revealed: revealed,
		Text:     string(runes[:revealed]),
	}
}

func (s *Session) broadcastLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Slow subscriber: drop its oldest queued event to make room.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
