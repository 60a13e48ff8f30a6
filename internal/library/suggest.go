package library

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pbaille/laterread/internal/domain"
	"github.com/pbaille/laterread/internal/embedding"
	"github.com/pbaille/laterread/internal/store"
)

// ErrNoEmbedder is returned by Suggest when no embedder is configured
var ErrNoEmbedder = errors.New("embeddings not configured")

// Suggestion is a candidate relation target
type Suggestion struct {
	Item       domain.Item `json:"item"`
	Collection domain.Kind `json:"collection"`
	Score      float64     `json:"score"`
}

type candidate struct {
	item domain.Item
	kind domain.Kind
}

// Suggest ranks items from both collections by similarity to url, skipping
// url itself and items it already relates to.
func (l *Library) Suggest(ctx context.Context, url string, limit int) ([]Suggestion, error) {
	if l.embedder == nil {
		return nil, ErrNoEmbedder
	}

	var (
		self  domain.Item
		found bool
		pool  []candidate
	)
	for _, c := range []*store.Collection{l.inbox, l.later} {
		items, err := c.Load(ctx)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if it.Matches(url) {
				if !found {
					self, found = it, true
				}
				continue
			}
			pool = append(pool, candidate{item: it, kind: c.Kind()})
		}
	}
	if !found {
		return nil, store.ErrNotFound
	}

	seen := map[string]bool{}
	var cands []candidate
	for _, c := range pool {
		key := domain.NormalizeURL(c.item.URL)
		if seen[key] || self.HasRelation(c.item.URL) {
			continue
		}
		seen[key] = true
		cands = append(cands, c)
	}
	if len(cands) == 0 {
		return nil, nil
	}

	texts := []string{embedText(self)}
	for _, c := range cands {
		texts = append(texts, embedText(c.item))
	}
	vecs, err := l.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}

	out := make([]Suggestion, len(cands))
	for i, c := range cands {
		out[i] = Suggestion{
			Item:       c.item,
			Collection: c.kind,
			Score:      embedding.CosineSimilarity(vecs[0], vecs[i+1]),
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func embedText(it domain.Item) string {
	parts := []string{it.Title}
	if it.Summary != "" {
		parts = append(parts, it.Summary)
	}
	if it.Note != "" {
		parts = append(parts, it.Note)
	}
	return strings.Join(parts, "\n")
}
