// Package classifier asks a remote language model for an item's category and summary.
package classifier

import (
	"context"
	"errors"
	"fmt"
)

// Request is what the classifier sees about an item
type Request struct {
	Title  string
	URL    string
	Domain string
	// Context holds one-line descriptions of existing items, at most MaxContext are sent
	Context []string
}

// MaxContext bounds the number of context lines sent with a request
const MaxContext = 10

// Result is a suggested category key and short summary
type Result struct {
	Summary  string `json:"summary"`
	Category string `json:"category"`
}

// Classifier produces a Result for a Request
type Classifier interface {
	Classify(ctx context.Context, req Request) (*Result, error)
}

// Kind is a failure class the caller must handle
type Kind string

const (
	KindUnauthorized    Kind = "unauthorized"
	KindRateLimited     Kind = "rate-limited"
	KindServer          Kind = "server-error"
	KindInvalidResponse Kind = "invalid-response"
	KindNetwork         Kind = "network-error"
)

// Error is a classification failure
type Error struct {
	Kind   Kind
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindServer && e.Status != 0:
		return fmt.Sprintf("classifier %s (%d)", e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("classifier %s: %v", e.Kind, e.Err)
	}
	return "classifier " + string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the failure kind of err, or "" when err is not a classifier error
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// Func adapts a function to Classifier
type Func func(ctx context.Context, req Request) (*Result, error)

// Classify calls f
func (f Func) Classify(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}
