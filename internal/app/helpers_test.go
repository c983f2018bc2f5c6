package app_test

import (
	"math/rand"
	"sync"
	"time"

	"opening-lines-quiz/internal/app"
	"opening-lines-quiz/internal/domain"
)

const (
	testCadence = 10 * time.Millisecond
	testDelay   = 2 * time.Second
)

// manualScheduler records scheduled calls and runs them only when asked.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	s       *manualScheduler
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTask) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// run calls the task body even if it was stopped, as a timer that lost the
// race with Stop would.
func (t *manualTask) run() {
	t.s.mu.Lock()
	t.fired = true
	t.s.mu.Unlock()
	t.f()
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) app.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTask{s: s, d: d, f: f}
	s.tasks = append(s.tasks, t)
	return t
}

// next returns the oldest live task scheduled with delay d.
func (s *manualScheduler) next(d time.Duration) *manualTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.d == d && !t.stopped && !t.fired {
			return t
		}
	}
	return nil
}

// fire runs the oldest live task with delay d and reports whether one existed.
func (s *manualScheduler) fire(d time.Duration) bool {
	t := s.next(d)
	if t == nil {
		return false
	}
	t.run()
	return true
}

// tick fires up to n reveal ticks.
func (s *manualScheduler) tick(n int) int {
	fired := 0
	for fired < n && s.fire(testCadence) {
		fired++
	}
	return fired
}

func (s *manualScheduler) pending(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if t.d == d && !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func testRand() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

func testConfig() app.SessionConfig {
	return app.SessionConfig{Cadence: testCadence, AdvanceDelay: testDelay}
}

func testCorpus() domain.Corpus {
	return domain.Corpus{
		Questions: []domain.Question{
			{ID: 1, Text: "吾輩は猫である。名前はまだ無い。", Level: domain.LevelEasy, Author: "夏目漱石", CorrectAnswer: "吾輩は猫である"},
			{ID: 2, Text: "親譲りの無鉄砲で小供の時から損ばかりしている。", Level: domain.LevelEasy, Author: "夏目漱石", CorrectAnswer: "坊っちゃん"},
			{ID: 3, Text: "メロスは激怒した。", Level: domain.LevelEasy, Author: "太宰治", CorrectAnswer: "走れメロス"},
			{ID: 4, Text: "恥の多い生涯を送って来ました。", Level: domain.LevelMiddle, Author: "太宰治", CorrectAnswer: "人間失格"},
			{ID: 5, Text: "ある日の暮方の事である。", Level: domain.LevelMiddle, Author: "芥川竜之介", CorrectAnswer: "羅生門"},
			{ID: 6, Text: "祇園精舎の鐘の声、諸行無常の響きあり。", Level: domain.LevelHigh, Author: "", CorrectAnswer: "平家物語"},
			{ID: 7, Text: "ゆく河の流れは絶えずして、しかももとの水にあらず。", Level: domain.LevelHigh, Author: "", CorrectAnswer: "方丈記"},
		},
		Titles: []domain.TitleEntry{
			{Score: 0, Titles: []domain.Title{{Title: "白紙の頁", Description: "zero"}}},
			{Score: 3, Titles: []domain.Title{{Title: "古本屋の常連", Description: "three"}}},
		},
	}
}
