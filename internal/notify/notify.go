// Package notify delivers user-visible notices.
package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pbaille/laterread/internal/store"
)

// Notice kinds that are not classifier failure kinds
const (
	KindSaved      = "saved"
	KindClassified = "classified"
	KindMoved      = "moved"
	KindInfo       = "info"
	KindError      = "error"
)

// Notice is a short message for the user. Kind is a stable tag such as
// "saved" or a classifier failure kind like "invalid-response".
type Notice struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Notifier delivers notices; delivery failures are the notifier's to log
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Multi fans a notice out to every notifier
type Multi []Notifier

// Notify forwards n to every notifier in order
func (m Multi) Notify(ctx context.Context, n Notice) {
	for _, nt := range m {
		if nt != nil {
			nt.Notify(ctx, n)
		}
	}
}

// Log writes notices to a logger
type Log struct {
	log zerolog.Logger
}

// NewLog returns a Log writing through log
func NewLog(log zerolog.Logger) *Log {
	return &Log{log: log.With().Str("component", "notify").Logger()}
}

// Notify logs n at info level
func (l *Log) Notify(_ context.Context, n Notice) {
	l.log.Info().Str("kind", n.Kind).Str("title", n.Title).Msg(n.Body)
}

// History keeps notices in the local database
type History struct {
	db  *store.DB
	log zerolog.Logger
}

// NewHistory returns a History storing notices in db
func NewHistory(db *store.DB, log zerolog.Logger) *History {
	return &History{db: db, log: log.With().Str("component", "notify").Logger()}
}

// Notify saves n; failures are only logged
func (h *History) Notify(ctx context.Context, n Notice) {
	if _, err := h.db.AddNotice(ctx, n.Kind, n.Title, n.Body); err != nil {
		h.log.Warn().Err(err).Msg("could not record notice")
	}
}

// Recorder keeps notices in memory
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify appends n
func (r *Recorder) Notify(_ context.Context, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of what was recorded
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}
