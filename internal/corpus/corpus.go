package corpus

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"opening-lines-quiz/internal/domain"
)

//go:embed data/questions.json
var questionsJSON []byte

//go:embed data/titles.json
var titlesJSON []byte

// Default decodes the corpus bundled with the binary.
func Default() (domain.Corpus, error) {
	return Parse(questionsJSON, titlesJSON)
}

// LoadFiles reads a corpus from the two JSON files on disk.
func LoadFiles(questionsPath, titlesPath string) (domain.Corpus, error) {
	questions, err := os.ReadFile(questionsPath)
	if err != nil {
		return domain.Corpus{}, fmt.Errorf("read questions: %w", err)
	}
	titles, err := os.ReadFile(titlesPath)
	if err != nil {
		return domain.Corpus{}, fmt.Errorf("read titles: %w", err)
	}
	return Parse(questions, titles)
}

// Parse decodes the {"questions": [...]} and {"titles": [...]} documents and
// validates the result.
func Parse(questions, titles []byte) (domain.Corpus, error) {
	var qs struct {
		Questions []domain.Question `json:"questions"`
	}
	if err := json.NewDecoder(bytes.NewReader(questions)).Decode(&qs); err != nil {
		return domain.Corpus{}, fmt.Errorf("unmarshal questions: %w", err)
	}
	var ts struct {
		Titles []domain.TitleEntry `json:"titles"`
	}
	if err := json.NewDecoder(bytes.NewReader(titles)).Decode(&ts); err != nil {
		return domain.Corpus{}, fmt.Errorf("unmarshal titles: %w", err)
	}

	c := domain.Corpus{Questions: qs.Questions, Titles: ts.Titles}
	if err := Validate(c); err != nil {
		return domain.Corpus{}, err
	}
	return c, nil
}

// Validate checks the invariants the quiz relies on: unique ids, known
// levels, a correct answer on every question, and a score-0 title entry.
func Validate(c domain.Corpus) error {
	if len(c.Questions) == 0 {
		return fmt.Errorf("%w: no questions", domain.ErrInvalidCorpus)
	}
	ids := make(map[int]struct{}, len(c.Questions))
	for _, q := range c.Questions {
		if _, dup := ids[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %d", domain.ErrInvalidCorpus, q.ID)
		}
		ids[q.ID] = struct{}{}
		if !q.Level.Valid() {
			return fmt.Errorf("%w: question %d has level %q", domain.ErrInvalidCorpus, q.ID, q.Level)
		}
		if q.CorrectAnswer == "" {
			return fmt.Errorf("%w: question %d has no correct answer", domain.ErrInvalidCorpus, q.ID)
		}
	}

	fallback := false
	for _, entry := range c.Titles {
		if len(entry.Titles) == 0 {
			return fmt.Errorf("%w: title entry for score %d is empty", domain.ErrInvalidCorpus, entry.Score)
		}
		if entry.Score == 0 {
			fallback = true
		}
	}
	if !fallback {
		return fmt.Errorf("%w: missing score 0 title entry", domain.ErrInvalidCorpus)
	}
	return nil
}
