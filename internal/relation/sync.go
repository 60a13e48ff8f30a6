// Package relation keeps "related" edges symmetric across the inbox and the
// LaterWrite collection.
package relation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pbaille/laterread/internal/domain"
	"github.com/pbaille/laterread/internal/store"
)

// Synchronizer maintains: if A lists B as related, B lists A, wherever each lives.
type Synchronizer struct {
	collections []*store.Collection
	log         zerolog.Logger
}

// New creates a Synchronizer over the given collections
func New(log zerolog.Logger, collections ...*store.Collection) *Synchronizer {
	return &Synchronizer{
		collections: collections,
		log:         log.With().Str("component", "relation").Logger(),
	}
}

// Link adds source to the relation list of every target found in any
// collection. Only collections that changed are rewritten.
func (s *Synchronizer) Link(ctx context.Context, source string, targets []string) error {
	return s.apply(ctx, targets, func(it *domain.Item) bool {
		return it.AddRelation(source)
	})
}

// Unlink removes source from the relation list of every target
func (s *Synchronizer) Unlink(ctx context.Context, source string, targets []string) error {
	return s.apply(ctx, targets, func(it *domain.Item) bool {
		return it.RemoveRelation(source)
	})
}

func (s *Synchronizer) apply(ctx context.Context, targets []string, edit func(*domain.Item) bool) error {
	if len(targets) == 0 {
		return nil
	}
	for _, c := range s.collections {
		err := c.Update(ctx, func(items []domain.Item) ([]domain.Item, bool, error) {
			changed := false
			for i := range items {
				for _, t := range targets {
					if items[i].Matches(t) && edit(&items[i]) {
						changed = true
					}
				}
			}
			return items, changed, nil
		})
		if err != nil {
			return fmt.Errorf("sync %s relations: %w", c.Kind(), err)
		}
	}
	return nil
}

// SetRelations replaces the relation list of url in whichever collection
// holds it, then adds backlinks to new targets and drops backlinks from
// removed ones. It returns store.ErrNotFound when url is in no collection.
func (s *Synchronizer) SetRelations(ctx context.Context, url string, related []string) error {
	for _, c := range s.collections {
		prev, ok, err := c.Find(ctx, url)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		next := domain.CleanRelations(prev.URL, related)
		if _, err := c.SetRelations(ctx, url, next); err != nil {
			return err
		}

		var added, removed []string
		for _, t := range next {
			if !prev.HasRelation(t) {
				added = append(added, t)
			}
		}
		cur := domain.Item{URL: prev.URL, Related: next}
		for _, t := range prev.Related {
			if !cur.HasRelation(t) {
				removed = append(removed, t)
			}
		}
		s.log.Debug().Str("url", url).Int("added", len(added)).Int("removed", len(removed)).Msg("relations replaced")

		if err := s.Link(ctx, prev.URL, added); err != nil {
			return err
		}
		return s.Unlink(ctx, prev.URL, removed)
	}
	return store.ErrNotFound
}
