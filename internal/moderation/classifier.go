package moderation

import (
	"context"
	"sync"
)

// Verdict is what an external text classifier reports for one input.
type Verdict struct {
	Flagged    bool
	Categories []string
}

// Classifier is the external semantic classifier. Implementations return an
// error whenever they can't produce a verdict; the engine turns any error
// into a hard block, so an implementation must never guess "clean".
type Classifier interface {
	Classify(ctx context.Context, text string) (Verdict, error)
}

// PassthroughClassifier never flags anything. It exists for deployments
// that deliberately run on the deterministic rules alone.
type PassthroughClassifier struct{}

func (PassthroughClassifier) Classify(ctx context.Context, text string) (Verdict, error) {
	return Verdict{}, nil
}

// StaticClassifier returns a fixed verdict (or error) and counts calls.
// Handy for tests and for dry runs from the CLI.
type StaticClassifier struct {
	Verdict Verdict
	Err     error

	mu    sync.Mutex
	calls int
}

func (s *StaticClassifier) Classify(ctx context.Context, text string) (Verdict, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.Err != nil {
		return Verdict{}, s.Err
	}
	return s.Verdict, nil
}

func (s *StaticClassifier) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
