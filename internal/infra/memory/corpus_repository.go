package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"opening-lines-quiz/internal/domain"
)

// CorpusLoader fetches the corpus from a backing store (embedded files, Postgres).
type CorpusLoader interface {
	LoadCorpus(ctx context.Context) (domain.Corpus, error)
}

// CorpusRepository caches the corpus with a TTL to avoid repeated loads.
type CorpusRepository struct {
	loader CorpusLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	corpus    domain.Corpus
	loaded    bool
	expiresAt time.Time
}

const corpusKey = "corpus"

// NewCorpusRepository wraps loader. A ttl <= 0 caches forever.
func NewCorpusRepository(loader CorpusLoader, ttl time.Duration) *CorpusRepository {
	return &CorpusRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CorpusRepository) GetCorpus(ctx context.Context) (domain.Corpus, error) {
	if c, ok := r.cached(r.clock()); ok {
		return c, nil
	}

	result, err, _ := r.sf.Do(corpusKey, func() (interface{}, error) {
		now := r.clock()
		if c, ok := r.cached(now); ok {
			return c, nil
		}

		c, err := r.loader.LoadCorpus(ctx)
		if err != nil {
			return domain.Corpus{}, err
		}

		r.mu.Lock()
		r.corpus = c
		r.loaded = true
		r.expiresAt = now.Add(r.ttlWithJitter())
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return domain.Corpus{}, err
	}
	return result.(domain.Corpus), nil
}

func (r *CorpusRepository) cached(now time.Time) (domain.Corpus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.loaded {
		return domain.Corpus{}, false
	}
	if r.ttl > 0 && !r.expiresAt.After(now) {
		return domain.Corpus{}, false
	}
	return r.corpus, true
}

// StaticCorpusLoader serves a corpus held in memory (embedded data, tests).
type StaticCorpusLoader struct {
	corpus domain.Corpus
}

func NewStaticCorpusLoader(corpus domain.Corpus) *StaticCorpusLoader {
	return &StaticCorpusLoader{corpus: corpus}
}

func (l *StaticCorpusLoader) LoadCorpus(_ context.Context) (domain.Corpus, error) {
	if len(l.corpus.Questions) == 0 {
		return domain.Corpus{}, domain.ErrCorpusNotFound
	}
	return l.corpus, nil
}

func (r *CorpusRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
