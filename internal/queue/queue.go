// Package queue runs background classification jobs keyed by item url.
package queue

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pbaille/laterread/internal/domain"
)

// Runner does the work of one job. It must not write once ctx is cancelled.
type Runner func(ctx context.Context, jobID, url string) error

type job struct {
	id     string
	cancel context.CancelFunc
}

// Queue tracks at most one pending job per url
type Queue struct {
	run  Runner
	base context.Context
	log  zerolog.Logger

	mu      sync.Mutex
	pending map[string]job
	wg      sync.WaitGroup
}

// New creates a Queue whose jobs derive from ctx
func New(ctx context.Context, run Runner, log zerolog.Logger) *Queue {
	return &Queue{
		run:     run,
		base:    ctx,
		log:     log.With().Str("component", "queue").Logger(),
		pending: make(map[string]job),
	}
}

// Enqueue starts a job for url, cancelling an older pending job for the same url.
// It returns the job id.
func (q *Queue) Enqueue(url string) string {
	key := domain.NormalizeURL(url)
	ctx, cancel := context.WithCancel(q.base)
	j := job{id: uuid.New().String(), cancel: cancel}

	q.mu.Lock()
	if old, ok := q.pending[key]; ok {
		old.cancel()
	}
	q.pending[key] = j
	q.mu.Unlock()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer q.finish(key, j.id)

		if err := q.run(ctx, j.id, url); err != nil {
			q.log.Warn().Err(err).Str("job", j.id).Str("url", url).Msg("job failed")
			return
		}
		q.log.Debug().Str("job", j.id).Str("url", url).Msg("job done")
	}()
	return j.id
}

func (q *Queue) finish(key, id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if cur, ok := q.pending[key]; ok && cur.id == id {
		cur.cancel()
		delete(q.pending, key)
	}
}

// Cancel stops the pending job for url. It reports whether one existed.
func (q *Queue) Cancel(url string) bool {
	key := domain.NormalizeURL(url)
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.pending[key]
	if !ok {
		return false
	}
	j.cancel()
	delete(q.pending, key)
	q.log.Debug().Str("job", j.id).Str("url", url).Msg("job cancelled")
	return true
}

// Pending reports whether a job for url is still running
func (q *Queue) Pending(url string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.pending[domain.NormalizeURL(url)]
	return ok
}

// Wait blocks until every started job has returned
func (q *Queue) Wait() {
	q.wg.Wait()
}
