package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"opening-lines-quiz/internal/corpus"
	"opening-lines-quiz/internal/domain"
)

// CorpusLoader fetches the corpus from a backing store (embedded files, Postgres).
type CorpusLoader interface {
	LoadCorpus(ctx context.Context) (domain.Corpus, error)
}

// CorpusRepository caches the corpus in Redis and falls back to a loader on cache miss.
// The corpus is stored as: HSET quiz:corpus questions {json} titles {json}
type CorpusRepository struct {
	client *redis.Client
	loader CorpusLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

const (
	corpusKey      = "quiz:corpus"
	questionsField = "questions"
	titlesField    = "titles"
)

func NewCorpusRepository(client *redis.Client, loader CorpusLoader, ttl time.Duration) *CorpusRepository {
	return &CorpusRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CorpusRepository) GetCorpus(ctx context.Context) (domain.Corpus, error) {
	if c, ok := r.fromCache(ctx); ok {
		return c, nil
	}

	result, err, _ := r.sf.Do(corpusKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if c, ok := r.fromCache(ctx); ok {
			return c, nil
		}

		c, err := r.loader.LoadCorpus(ctx)
		if err != nil {
			return domain.Corpus{}, err
		}

		questions, err := json.Marshal(c.Questions)
		if err != nil {
			return domain.Corpus{}, fmt.Errorf("marshal questions: %w", err)
		}
		titles, err := json.Marshal(c.Titles)
		if err != nil {
			return domain.Corpus{}, fmt.Errorf("marshal titles: %w", err)
		}

		ttl := r.ttlWithJitter()
		pipe := r.client.Pipeline()
		pipe.HSet(ctx, corpusKey, questionsField, questions, titlesField, titles)
		if ttl > 0 {
			pipe.Expire(ctx, corpusKey, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return c, nil
	})
	if err != nil {
		return domain.Corpus{}, err
	}
	return result.(domain.Corpus), nil
}

// fromCache treats any read or decode failure as a miss.
func (r *CorpusRepository) fromCache(ctx context.Context) (domain.Corpus, bool) {
	fields, err := r.client.HGetAll(ctx, corpusKey).Result()
	if err != nil || fields[questionsField] == "" || fields[titlesField] == "" {
		return domain.Corpus{}, false
	}
	var c domain.Corpus
	if err := json.Unmarshal([]byte(fields[questionsField]), &c.Questions); err != nil {
		return domain.Corpus{}, false
	}
	if err := json.Unmarshal([]byte(fields[titlesField]), &c.Titles); err != nil {
		return domain.Corpus{}, false
	}
	if corpus.Validate(c) != nil {
		return domain.Corpus{}, false
	}
	return c, true
}

func (r *CorpusRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
