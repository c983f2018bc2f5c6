package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"opening-lines-quiz/internal/app"
	"opening-lines-quiz/internal/domain"
	"opening-lines-quiz/internal/infra/memory"
)

func newTestService(sched *manualScheduler) (*app.QuizService, *memory.SessionStore) {
	store := memory.NewSessionStore()
	corpusRepo := memory.NewCorpusRepository(memory.NewStaticCorpusLoader(testCorpus()), time.Minute)
	svc := app.NewQuizService(store, corpusRepo, testConfig(), zap.NewNop(),
		app.WithScheduler(sched),
		app.WithRand(testRand),
	)
	return svc, store
}

func TestStartRejectsInvalidSelection(t *testing.T) {
	svc, store := newTestService(&manualScheduler{})
	ctx := context.Background()

	cases := []domain.Selection{
		{Mode: domain.ModeLevel, Value: "expert"},
		{Mode: "genre", Value: "easy"},
		{Mode: domain.ModeAuthor, Value: "   "},
	}
	for _, sel := range cases {
		if _, err := svc.Start(ctx, "s1", sel, 0); !errors.Is(err, domain.ErrInvalidSelection) {
			t.Fatalf("Start(%+v): expected ErrInvalidSelection, got %v", sel, err)
		}
	}
	if store.Len() != 0 {
		t.Fatalf("invalid selections should not store sessions")
	}
}

func TestStartUnknownAuthorHasNoQuestions(t *testing.T) {
	sched := &manualScheduler{}
	svc, store := newTestService(sched)

	_, err := svc.Start(context.Background(), "s1", domain.Selection{Mode: domain.ModeAuthor, Value: "森鴎外"}, 0)
	if !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
	if store.Len() != 0 || sched.pending(testCadence) != 0 {
		t.Fatalf("empty selection should leave nothing behind")
	}
}

func TestUnknownSessionErrors(t *testing.T) {
	svc, _ := newTestService(&manualScheduler{})
	ctx := context.Background()

	if _, _, err := svc.SubmitAnswer(ctx, "missing", "x"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("submit: expected ErrSessionNotFound, got %v", err)
	}
	if _, _, err := svc.Subscribe(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("subscribe: expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.Replay(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("replay: expected ErrSessionNotFound, got %v", err)
	}
	svc.Leave(ctx, nil)
}

func TestStartSubmitPublishesFeedback(t *testing.T) {
	sched := &manualScheduler{}
	svc, _ := newTestService(sched)
	ctx := context.Background()

	session, err := svc.Start(ctx, "s1", domain.Selection{Mode: domain.ModeLevel, Value: " Medium "}, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := session.Selection(); got.Value != string(domain.LevelMiddle) {
		t.Fatalf("expected normalized level, got %+v", got)
	}
	if session.Len() != 2 {
		t.Fatalf("expected 2 middle questions, got %d", session.Len())
	}

	events, cancel, err := svc.Subscribe(ctx, "s1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	if ev := <-events; ev.Type != app.EventQuestion {
		t.Fatalf("expected question first, got %s", ev.Type)
	}
	<-events

	sched.tick(2)
	answer := session.State().Question.CorrectAnswer
	fb, accepted, err := svc.SubmitAnswer(ctx, "s1", answer)
	if err != nil || !accepted {
		t.Fatalf("submit: accepted=%v err=%v", accepted, err)
	}
	if !fb.Correct || fb.CharactersRead != 2 {
		t.Fatalf("unexpected feedback %+v", fb)
	}
	if _, accepted, _ := svc.SubmitAnswer(ctx, "s1", answer); accepted {
		t.Fatalf("second answer should be ignored")
	}

	var feedback *domain.Feedback
	for len(events) > 0 {
		if ev := <-events; ev.Type == app.EventFeedback {
			feedback = ev.Feedback
		}
	}
	if feedback == nil || feedback.Score != 1 {
		t.Fatalf("expected published feedback, got %+v", feedback)
	}
}

func TestStartAppliesCadence(t *testing.T) {
	svc, _ := newTestService(&manualScheduler{})
	ctx := context.Background()

	session, err := svc.Start(ctx, "s1", domain.Selection{Mode: domain.ModeLevel, Value: "easy"}, time.Millisecond)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.Cadence() != app.MinCadence {
		t.Fatalf("expected clamped cadence, got %v", session.Cadence())
	}
}

func TestReplayKeepsSelectionAndClosesPrevious(t *testing.T) {
	sched := &manualScheduler{}
	svc, store := newTestService(sched)
	ctx := context.Background()

	sel := domain.Selection{Mode: domain.ModeAuthor, Value: "夏目漱石"}
	first, err := svc.Start(ctx, "s1", sel, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	events, cancel, _ := svc.Subscribe(ctx, "s1")
	defer cancel()

	second, err := svc.Replay(ctx, "s1")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if second == first {
		t.Fatalf("replay should create a fresh session")
	}
	if second.Selection() != sel || second.Cadence() != 20*time.Millisecond {
		t.Fatalf("replay changed selection or cadence: %+v %v", second.Selection(), second.Cadence())
	}
	if st := second.State(); st.Index != 0 || st.Score != 0 {
		t.Fatalf("replay should reset progress, got %+v", st)
	}
	if got, _ := store.Get("s1"); got != second {
		t.Fatalf("store should hold the replayed session")
	}

	for range events {
	}
	if _, ok := first.Submit("吾輩は猫である"); ok {
		t.Fatalf("previous session should be closed")
	}
}

func TestLeaveRemovesSession(t *testing.T) {
	sched := &manualScheduler{}
	svc, store := newTestService(sched)
	ctx := context.Background()

	session, err := svc.Start(ctx, "s1", domain.Selection{Mode: domain.ModeLevel, Value: "high"}, 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	svc.Leave(ctx, session)
	if store.Len() != 0 {
		t.Fatalf("expected session removed")
	}
	if sched.pending(testCadence) != 0 {
		t.Fatalf("leave should stop the reveal")
	}
}

func TestLeaveKeepsNewerSessionUnderSameID(t *testing.T) {
	sched := &manualScheduler{}
	svc, store := newTestService(sched)
	ctx := context.Background()
	sel := domain.Selection{Mode: domain.ModeLevel, Value: "easy"}

	first, err := svc.Start(ctx, "shared", sel, 0)
	if err != nil {
		t.Fatalf("start first: %v", err)
	}
	second, err := svc.Start(ctx, "shared", sel, 0)
	if err != nil {
		t.Fatalf("start second: %v", err)
	}

	svc.Leave(ctx, first)
	if got, ok := store.Get("shared"); !ok || got != second {
		t.Fatalf("leaving the replaced session removed the newer one")
	}
	sched.tick(1)
	fb, accepted, err := svc.SubmitAnswer(ctx, "shared", second.State().Question.CorrectAnswer)
	if err != nil || !accepted || !fb.Correct {
		t.Fatalf("newer session should still play: accepted=%v err=%v fb=%+v", accepted, err, fb)
	}
}

func TestCatalog(t *testing.T) {
	svc, _ := newTestService(&manualScheduler{})

	catalog, err := svc.Catalog(context.Background())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(catalog.Levels) != 3 || catalog.Levels[0] != domain.LevelEasy {
		t.Fatalf("unexpected levels %v", catalog.Levels)
	}
	want := []string{"夏目漱石", "太宰治", "芥川竜之介"}
	if len(catalog.Authors) != len(want) {
		t.Fatalf("unexpected authors %v", catalog.Authors)
	}
	for i, a := range want {
		if catalog.Authors[i] != a {
			t.Fatalf("author %d: expected %s, got %s", i, a, catalog.Authors[i])
		}
	}
}
