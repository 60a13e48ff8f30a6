// Package library is the application service shared by the CLI and the REST
// API. It owns the two collections, the relation synchronizer and the
// background classification queue.
package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pbaille/laterread/internal/capture"
	"github.com/pbaille/laterread/internal/category"
	"github.com/pbaille/laterread/internal/classifier"
	"github.com/pbaille/laterread/internal/codec"
	"github.com/pbaille/laterread/internal/domain"
	"github.com/pbaille/laterread/internal/embedding"
	"github.com/pbaille/laterread/internal/notify"
	"github.com/pbaille/laterread/internal/queue"
	"github.com/pbaille/laterread/internal/relation"
	"github.com/pbaille/laterread/internal/store"
)

// ErrNothingToDo is returned by batch operations that found no candidates
var ErrNothingToDo = errors.New("nothing to do")

// RunLog records classification attempts
type RunLog interface {
	RecordRun(ctx context.Context, r store.Run) error
}

// Deps are the collaborators a Library is built from
type Deps struct {
	Codec      *codec.Codec
	Inbox      *store.Collection
	LaterWrite *store.Collection
	Classifier classifier.Classifier
	Notifier   notify.Notifier
	Runs       RunLog
	// Embedder is optional; without it Suggest is unavailable
	Embedder   embedding.Embedder
}

// Options tune library behavior
type Options struct {
	AutoClassify bool
	BatchPause   time.Duration
	ArchivePath  string
	DigestDir    string
	// Now defaults to time.Now
	Now func() time.Time
}

// Library runs every reading-list operation over the inbox and LaterWrite
type Library struct {
	codec      *codec.Codec
	inbox      *store.Collection
	later      *store.Collection
	sync       *relation.Synchronizer
	classifier classifier.Classifier
	notifier   notify.Notifier
	runs       RunLog
	embedder   embedding.Embedder
	queue      *queue.Queue
	opts       Options
	log        zerolog.Logger
}

// New wires a Library. Background jobs derive from ctx and stop when it is cancelled.
func New(ctx context.Context, d Deps, opts Options, log zerolog.Logger) *Library {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if d.Notifier == nil {
		d.Notifier = notify.Multi{}
	}
	store.Pair(d.Inbox, d.LaterWrite)

	l := &Library{
		codec:      d.Codec,
		inbox:      d.Inbox,
		later:      d.LaterWrite,
		sync:       relation.New(log, d.Inbox, d.LaterWrite),
		classifier: d.Classifier,
		notifier:   d.Notifier,
		runs:       d.Runs,
		embedder:   d.Embedder,
		opts:       opts,
		log:        log.With().Str("component", "library").Logger(),
	}
	l.queue = queue.New(ctx, l.runJob, log)
	return l
}

// Registry returns the category registry in use
func (l *Library) Registry() *category.Registry {
	return l.codec.Registry()
}

// Collection returns the store for kind
func (l *Library) Collection(kind domain.Kind) *store.Collection {
	if kind == domain.LaterWrite {
		return l.later
	}
	return l.inbox
}

// Wait blocks until queued classification jobs are done
func (l *Library) Wait() {
	l.queue.Wait()
}

// Pending reports whether a classification job is queued for url
func (l *Library) Pending(url string) bool {
	return l.queue.Pending(url)
}

// SetAutoClassify turns background classification of new items on or off
func (l *Library) SetAutoClassify(on bool) {
	l.opts.AutoClassify = on
}

// List returns the items of one collection
func (l *Library) List(ctx context.Context, kind domain.Kind) ([]domain.Item, error) {
	return l.Collection(kind).Load(ctx)
}

// Add saves a captured page to the inbox and, when auto-classify is on,
// queues its classification.
func (l *Library) Add(ctx context.Context, page capture.Page, note string) (domain.Item, error) {
	url := domain.NormalizeURL(page.URL)
	if url == "" {
		return domain.Item{}, fmt.Errorf("add item: url is required")
	}
	title := strings.TrimSpace(page.Title)
	if title == "" {
		title = url
	}

	it := domain.Item{
		URL:       url,
		Title:     title,
		Domain:    domain.DomainOf(url),
		Category:  string(category.General),
		Note:      strings.TrimSpace(note),
		CreatedAt: domain.Today(l.opts.Now()),
	}
	if _, err := l.inbox.Append(ctx, it); err != nil {
		return domain.Item{}, err
	}
	l.log.Info().Str("url", url).Msg("saved")
	l.notifier.Notify(ctx, notify.Notice{Kind: notify.KindSaved, Title: "Saved", Body: it.Title})

	if l.opts.AutoClassify && l.classifier != nil {
		id := l.queue.Enqueue(url)
		l.log.Debug().Str("job", id).Str("url", url).Msg("classification queued")
	}
	return it, nil
}

// Find looks url up in the inbox, then in LaterWrite
func (l *Library) Find(ctx context.Context, url string) (domain.Item, domain.Kind, error) {
	for _, c := range []*store.Collection{l.inbox, l.later} {
		it, ok, err := c.Find(ctx, url)
		if err != nil {
			return domain.Item{}, "", err
		}
		if ok {
			return it, c.Kind(), nil
		}
	}
	return domain.Item{}, "", store.ErrNotFound
}

// ToggleRead flips the read state of url in kind
func (l *Library) ToggleRead(ctx context.Context, kind domain.Kind, url string) error {
	found, err := l.Collection(kind).ToggleRead(ctx, url)
	if err != nil {
		return err
	}
	if !found {
		return store.ErrNotFound
	}
	return nil
}

// UpdateFields applies a partial update to url in kind
func (l *Library) UpdateFields(ctx context.Context, kind domain.Kind, url string, f store.Fields) error {
	found, err := l.Collection(kind).UpdateFields(ctx, url, f)
	if err != nil {
		return err
	}
	if !found {
		return store.ErrNotFound
	}
	return nil
}

// SetRelations replaces the relation list of url and keeps backlinks in step
func (l *Library) SetRelations(ctx context.Context, url string, related []string) error {
	return l.sync.SetRelations(ctx, url, related)
}

// Delete removes url from kind. A pending classification for url is
// cancelled first so it cannot write the item back.
func (l *Library) Delete(ctx context.Context, kind domain.Kind, url string) error {
	if l.queue.Cancel(url) {
		l.log.Debug().Str("url", url).Msg("pending classification cancelled")
	}
	found, err := l.Collection(kind).Delete(ctx, url)
	if err != nil {
		return err
	}
	if !found {
		return store.ErrNotFound
	}
	return nil
}

// Promote moves url from the inbox to LaterWrite with the given relations
// and adds backlinks on every related item. When LaterWrite already holds
// url, the existing entry is kept and gains the new relations.
func (l *Library) Promote(ctx context.Context, url string, related []string) (domain.Item, error) {
	it, ok, err := l.inbox.Find(ctx, url)
	if err != nil {
		return domain.Item{}, err
	}
	if !ok {
		return domain.Item{}, store.ErrNotFound
	}
	l.queue.Cancel(url)

	related = domain.CleanRelations(it.URL, related)
	it.Read = false
	it.Category = string(category.LaterWrite)
	it.Related = related

	// Insert before deleting so a failed write never loses the item.
	added, err := l.later.Append(ctx, it)
	if err != nil {
		return domain.Item{}, fmt.Errorf("promote: %w", err)
	}
	if !added {
		existing, _, err := l.later.Find(ctx, url)
		if err != nil {
			return domain.Item{}, fmt.Errorf("promote: %w", err)
		}
		merged := append(append([]string(nil), existing.Related...), related...)
		if _, err := l.later.SetRelations(ctx, url, merged); err != nil {
			return domain.Item{}, fmt.Errorf("promote: %w", err)
		}
		existing.Related = domain.CleanRelations(existing.URL, merged)
		it = existing
	}
	if _, err := l.inbox.Delete(ctx, url); err != nil {
		return domain.Item{}, fmt.Errorf("promote: %w", err)
	}
	if err := l.sync.Link(ctx, it.URL, related); err != nil {
		return domain.Item{}, fmt.Errorf("promote: %w", err)
	}

	l.log.Info().Str("url", it.URL).Int("related", len(related)).Msg("promoted")
	l.notifier.Notify(ctx, notify.Notice{Kind: notify.KindMoved, Title: "Moved to LaterWrite", Body: it.Title})
	return it, nil
}
