package domain

import (
	"math"
	"strings"
)

// Level is a difficulty tier of a question.
type Level string

const (
	LevelEasy   Level = "easy"
	LevelMiddle Level = "middle"
	LevelHigh   Level = "high"
)

// Levels lists the tiers in display order.
var Levels = []Level{LevelEasy, LevelMiddle, LevelHigh}

// Valid reports whether l is one of the stored level names.
func (l Level) Valid() bool {
	switch l {
	case LevelEasy, LevelMiddle, LevelHigh:
		return true
	}
	return false
}

// ParseLevel accepts the stored level names and the labels used by the
// selection screen ("medium", "hard").
func ParseLevel(raw string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "easy":
		return LevelEasy, true
	case "middle", "medium":
		return LevelMiddle, true
	case "high", "hard":
		return LevelHigh, true
	}
	return "", false
}

// Question is one opening-line excerpt and the work it belongs to.
type Question struct {
	ID            int    `json:"id"`
	Text          string `json:"text"`
	Level         Level  `json:"level"`
	Author        string `json:"author"`
	CorrectAnswer string `json:"correctAnswer"`
}

// Title is the flavor label shown with the final score.
type Title struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TitleEntry groups the candidate titles for one final score.
type TitleEntry struct {
	Score  int     `json:"score"`
	Titles []Title `json:"titles"`
}

// Corpus is the immutable question and title data loaded at startup.
type Corpus struct {
	Questions []Question   `json:"questions"`
	Titles    []TitleEntry `json:"titles"`
}

// Authors returns the distinct non-empty authors in corpus order.
func (c Corpus) Authors() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, q := range c.Questions {
		author := strings.TrimSpace(q.Author)
		if author == "" {
			continue
		}
		if _, ok := seen[author]; ok {
			continue
		}
		seen[author] = struct{}{}
		out = append(out, author)
	}
	return out
}

// Mode selects how the question pool is filtered.
type Mode string

const (
	ModeLevel  Mode = "level"
	ModeAuthor Mode = "author"
)

// Selection is the {mode, value} pair carried from the start screen into a
// quiz and back again on replay.
type Selection struct {
	Mode  Mode   `json:"mode"`
	Value string `json:"value"`
}

// Normalize validates the selection and canonicalizes level values.
func (s Selection) Normalize() (Selection, error) {
	switch s.Mode {
	case ModeLevel:
		level, ok := ParseLevel(s.Value)
		if !ok {
			return Selection{}, ErrInvalidSelection
		}
		return Selection{Mode: ModeLevel, Value: string(level)}, nil
	case ModeAuthor:
		author := strings.TrimSpace(s.Value)
		if author == "" {
			return Selection{}, ErrInvalidSelection
		}
		return Selection{Mode: ModeAuthor, Value: author}, nil
	default:
		return Selection{}, ErrInvalidSelection
	}
}

// Feedback describes the outcome of one submitted answer.
type Feedback struct {
	Index          int    `json:"index"`
	Answer         string `json:"answer"`
	CorrectAnswer  string `json:"correctAnswer"`
	Correct        bool   `json:"correct"`
	CharactersRead int    `json:"charactersRead"`
	Score          int    `json:"score"`
}

// Results are the final aggregates of a finished session.
type Results struct {
	Score               int       `json:"score"`
	TotalQuestions      int       `json:"totalQuestions"`
	TotalCharactersRead int       `json:"totalCharactersRead"`
	Selection           Selection `json:"selection"`
	Title               Title     `json:"title"`
}

// Accuracy returns the share of correct answers as a percentage.
func (r Results) Accuracy() float64 {
	if r.TotalQuestions == 0 {
		return 0
	}
	return float64(r.Score) / float64(r.TotalQuestions) * 100
}

// AverageCharacters returns the characters read per question, rounded.
func (r Results) AverageCharacters() int {
	if r.TotalQuestions == 0 {
		return 0
	}
	return int(math.Round(float64(r.TotalCharactersRead) / float64(r.TotalQuestions)))
}

// QuestionView is what the player sees when a question starts. The excerpt
// itself arrives through RevealView updates.
type QuestionView struct {
	Index       int      `json:"index"`
	Total       int      `json:"total"`
	Options     []string `json:"options"`
	RevealLimit int      `json:"revealLimit"`
}

// RevealView carries the revealed prefix of the current excerpt.
type RevealView struct {
	Index    int    `json:"index"`
	Revealed int    `json:"revealed"`
	Text     string `json:"text"`
}
