package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pbaille/laterread/internal/codec"
	"github.com/pbaille/laterread/internal/domain"
)

// ErrNotFound is returned when an operation needs an item that is absent
var ErrNotFound = errors.New("item not found")

// Fields is a partial update; nil fields are left untouched
type Fields struct {
	Category *string `json:"category,omitempty"`
	Summary  *string `json:"summary,omitempty"`
	Note     *string `json:"note,omitempty"`
}

// Collection is one reading-list document on disk. Every mutation loads the
// whole document, edits it in memory and rewrites it.
type Collection struct {
	kind   domain.Kind
	path   string
	codec  *codec.Codec
	layout codec.Layout
	log    zerolog.Logger

	mu   sync.Mutex
	peer *Collection
}

// NewCollection creates a store for the document at path
func NewCollection(kind domain.Kind, path string, c *codec.Codec, log zerolog.Logger) *Collection {
	return &Collection{
		kind:   kind,
		path:   path,
		codec:  c,
		layout: codec.LayoutFor(kind),
		log:    log.With().Str("component", "store").Str("collection", string(kind)).Logger(),
	}
}

// Pair links two collections so that relation lines resolve across both
func Pair(a, b *Collection) {
	a.peer = b
	b.peer = a
}

// Kind returns the collection kind
func (c *Collection) Kind() domain.Kind { return c.kind }

// Path returns the backing document path
func (c *Collection) Path() string { return c.path }

// Load returns the items in the document. A missing document yields no items
// and is created from the layout skeleton.
func (c *Collection) Load(ctx context.Context) ([]domain.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

func (c *Collection) load(_ context.Context) ([]domain.Item, error) {
	items, exists, err := c.read()
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := c.writeFile([]byte(c.layout.Skeleton())); err != nil {
			c.log.Warn().Err(err).Msg("could not create skeleton document")
		}
	}
	return items, nil
}

// read parses the document without creating it
func (c *Collection) read() ([]domain.Item, bool, error) {
	b, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", c.kind, err)
	}
	items, report := c.codec.Parse(string(b))
	for _, s := range report.Skipped {
		c.log.Warn().Int("line", s.Line).Str("reason", s.Reason).Str("text", s.Text).Msg("skipped line")
	}
	return items, true, nil
}

// Snapshot parses the document read-only, returning the parse report too
func (c *Collection) Snapshot() ([]domain.Item, codec.Report, error) {
	b, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, codec.Report{}, nil
	}
	if err != nil {
		return nil, codec.Report{}, fmt.Errorf("read %s: %w", c.kind, err)
	}
	items, report := c.codec.Parse(string(b))
	return items, report, nil
}

// Update runs one load-modify-persist cycle. fn reports whether it changed
// anything; the document is rewritten only then.
func (c *Collection) Update(ctx context.Context, fn func(items []domain.Item) ([]domain.Item, bool, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx)
	if err != nil {
		return err
	}
	items, changed, err := fn(items)
	if err != nil || !changed {
		return err
	}
	return c.save(items)
}

func (c *Collection) save(items []domain.Item) error {
	sets := [][]domain.Item{items}
	if c.peer != nil {
		peerItems, _, err := c.peer.read()
		if err != nil {
			c.log.Warn().Err(err).Msg("could not index peer collection")
		}
		sets = append(sets, peerItems)
	}
	doc := c.codec.Serialize(items, c.layout, codec.IndexTitles(sets...))
	if err := c.writeFile([]byte(doc)); err != nil {
		return err
	}
	c.log.Debug().Int("items", len(items)).Msg("saved")
	return nil
}

func (c *Collection) writeFile(b []byte) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create %s dir: %w", c.kind, err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", c.kind, err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", c.kind, err)
	}
	return nil
}

// Find returns the first item identified by url
func (c *Collection) Find(ctx context.Context, url string) (domain.Item, bool, error) {
	items, err := c.Load(ctx)
	if err != nil {
		return domain.Item{}, false, err
	}
	if i := indexOf(items, url); i >= 0 {
		return items[i], true, nil
	}
	return domain.Item{}, false, nil
}

// Append stores a new item. The inbox puts it first and keeps duplicates;
// LaterWrite skips it when the url is already present.
func (c *Collection) Append(ctx context.Context, it domain.Item) (bool, error) {
	added := false
	err := c.Update(ctx, func(items []domain.Item) ([]domain.Item, bool, error) {
		if c.kind == domain.LaterWrite {
			if indexOf(items, it.URL) >= 0 {
				return items, false, nil
			}
			added = true
			return append(items, it), true, nil
		}
		added = true
		return append([]domain.Item{it}, items...), true, nil
	})
	if err != nil {
		return false, fmt.Errorf("append item: %w", err)
	}
	return added, nil
}

// ToggleRead flips the read state of url. A missing url is a no-op.
func (c *Collection) ToggleRead(ctx context.Context, url string) (bool, error) {
	var found bool
	err := c.Update(ctx, func(items []domain.Item) ([]domain.Item, bool, error) {
		i := indexOf(items, url)
		if i < 0 {
			return items, false, nil
		}
		items[i].Read = !items[i].Read
		found = true
		return items, true, nil
	})
	if err != nil {
		return false, fmt.Errorf("toggle read: %w", err)
	}
	return found, nil
}

// UpdateFields applies a partial update to url. A missing url is a no-op.
func (c *Collection) UpdateFields(ctx context.Context, url string, f Fields) (bool, error) {
	var found bool
	err := c.Update(ctx, func(items []domain.Item) ([]domain.Item, bool, error) {
		i := indexOf(items, url)
		if i < 0 {
			return items, false, nil
		}
		if f.Category != nil {
			items[i].Category = string(c.codec.Registry().Resolve(*f.Category))
		}
		if f.Summary != nil {
			items[i].Summary = *f.Summary
		}
		if f.Note != nil {
			items[i].Note = *f.Note
		}
		found = true
		return items, true, nil
	})
	if err != nil {
		return false, fmt.Errorf("update fields: %w", err)
	}
	return found, nil
}

// SetRelations replaces the relation list of url. A missing url is a no-op.
func (c *Collection) SetRelations(ctx context.Context, url string, related []string) (bool, error) {
	var found bool
	err := c.Update(ctx, func(items []domain.Item) ([]domain.Item, bool, error) {
		i := indexOf(items, url)
		if i < 0 {
			return items, false, nil
		}
		items[i].Related = domain.CleanRelations(items[i].URL, related)
		found = true
		return items, true, nil
	})
	if err != nil {
		return false, fmt.Errorf("set relations: %w", err)
	}
	return found, nil
}

// Delete removes every entry for url. Relation lists of other items are left
// as they are; their links to url stop rendering.
func (c *Collection) Delete(ctx context.Context, url string) (bool, error) {
	var found bool
	err := c.Update(ctx, func(items []domain.Item) ([]domain.Item, bool, error) {
		n := len(items)
		items = slices.DeleteFunc(items, func(it domain.Item) bool { return it.Matches(url) })
		found = len(items) != n
		return items, found, nil
	})
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	return found, nil
}

func indexOf(items []domain.Item, url string) int {
	return slices.IndexFunc(items, func(it domain.Item) bool { return it.Matches(url) })
}
