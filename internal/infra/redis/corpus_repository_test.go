package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"opening-lines-quiz/internal/domain"
	"opening-lines-quiz/internal/infra/memory"
)

func TestCorpusRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{CorpusLoader: memory.NewStaticCorpusLoader(sampleCorpus())}
	repo := NewCorpusRepository(client, loader, time.Minute)

	c, err := repo.GetCorpus(context.Background())
	if err != nil {
		t.Fatalf("get corpus: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists(corpusKey) {
		t.Fatalf("expected corpus hash in redis")
	}
	if mr.TTL(corpusKey) <= 0 {
		t.Fatalf("expected ttl on corpus hash")
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetCorpus(context.Background())
	if err != nil {
		t.Fatalf("get cached corpus: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(cached.Questions) != len(c.Questions) || cached.Questions[0].CorrectAnswer != "走れメロス" {
		t.Fatalf("cached corpus differs: %+v", cached)
	}
	if len(cached.Titles) != 1 || cached.Titles[0].Titles[0].Title != "白紙の頁" {
		t.Fatalf("cached titles differ: %+v", cached.Titles)
	}
}

func TestCorpusRepositoryIgnoresCorruptCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	mr.HSet(corpusKey, questionsField, "not json", titlesField, "[]")

	loader := &countingLoader{CorpusLoader: memory.NewStaticCorpusLoader(sampleCorpus())}
	repo := NewCorpusRepository(newClient(mr), loader, time.Minute)
	if _, err := repo.GetCorpus(context.Background()); err != nil {
		t.Fatalf("get corpus: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader fallback on corrupt cache, calls=%d", loader.calls)
	}
}

type countingLoader struct {
	CorpusLoader
	calls int
}

func (l *countingLoader) LoadCorpus(ctx context.Context) (domain.Corpus, error) {
	l.calls++
	return l.CorpusLoader.LoadCorpus(ctx)
}

func sampleCorpus() domain.Corpus {
	return domain.Corpus{
		Questions: []domain.Question{
			{ID: 1, Text: "メロスは激怒した。", Level: domain.LevelEasy, Author: "太宰治", CorrectAnswer: "走れメロス"},
			{ID: 2, Text: "恥の多い生涯を送って来ました。", Level: domain.LevelMiddle, Author: "太宰治", CorrectAnswer: "人間失格"},
		},
		Titles: []domain.TitleEntry{
			{Score: 0, Titles: []domain.Title{{Title: "白紙の頁", Description: "物語はまだ始まったばかり。"}}},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
