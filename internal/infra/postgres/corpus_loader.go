package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"opening-lines-quiz/internal/corpus"
	"opening-lines-quiz/internal/domain"
)

// CorpusLoader loads questions and titles from Postgres.
type CorpusLoader struct {
	pool *pgxpool.Pool
}

func NewCorpusLoader(pool *pgxpool.Pool) *CorpusLoader {
	return &CorpusLoader{pool: pool}
}

func (l *CorpusLoader) LoadCorpus(ctx context.Context) (domain.Corpus, error) {
	questions, err := l.loadQuestions(ctx)
	if err != nil {
		return domain.Corpus{}, err
	}
	titles, err := l.loadTitles(ctx)
	if err != nil {
		return domain.Corpus{}, err
	}

	c := domain.Corpus{Questions: questions, Titles: titles}
	if len(c.Questions) == 0 {
		return domain.Corpus{}, domain.ErrCorpusNotFound
	}
	if err := corpus.Validate(c); err != nil {
		return domain.Corpus{}, err
	}
	return c, nil
}

func (l *CorpusLoader) loadQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, text, level, author, correct_answer FROM questions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var q domain.Question
		var level string
		if err := rows.Scan(&q.ID, &q.Text, &level, &q.Author, &q.CorrectAnswer); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Level = domain.Level(level)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return out, nil
}

func (l *CorpusLoader) loadTitles(ctx context.Context) ([]domain.TitleEntry, error) {
	rows, err := l.pool.Query(ctx, `SELECT score, title, description FROM titles ORDER BY score, position`)
	if err != nil {
		return nil, fmt.Errorf("load titles: %w", err)
	}
	defer rows.Close()

	var out []domain.TitleEntry
	for rows.Next() {
		var score int
		var t domain.Title
		if err := rows.Scan(&score, &t.Title, &t.Description); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		if n := len(out); n > 0 && out[n-1].Score == score {
			out[n-1].Titles = append(out[n-1].Titles, t)
			continue
		}
		out = append(out, domain.TitleEntry{Score: score, Titles: []domain.Title{t}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load titles: %w", err)
	}
	return out, nil
}
