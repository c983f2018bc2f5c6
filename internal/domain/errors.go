package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no quiz session exists for an id.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrInvalidSelection is returned for an unknown mode, level or an empty author.
	ErrInvalidSelection = errors.New("invalid quiz selection")
	// ErrNoQuestions indicates the selection matched nothing in the corpus.
	ErrNoQuestions = errors.New("no questions match selection")
	// ErrTitleNotFound is returned when neither the score nor the fallback entry exists.
	ErrTitleNotFound = errors.New("title not found")
	// ErrInvalidCorpus indicates the corpus data failed validation.
	ErrInvalidCorpus = errors.New("invalid corpus")
	// ErrCorpusNotFound indicates the corpus could not be loaded from the backing store.
	ErrCorpusNotFound = errors.New("corpus not found")
)
