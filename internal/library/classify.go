package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pbaille/laterread/internal/category"
	"github.com/pbaille/laterread/internal/classifier"
	"github.com/pbaille/laterread/internal/domain"
	"github.com/pbaille/laterread/internal/notify"
	"github.com/pbaille/laterread/internal/store"
)

// ErrNoClassifier is returned when classification is requested but none is configured
var ErrNoClassifier = errors.New("classifier not configured")

// Batch counts the outcome of ClassifyAll
type Batch struct {
	Classified int `json:"classified"`
	Failed     int `json:"failed"`
}

// Classify asks the classifier for url's category and summary and stores
// them. On failure a notice tagged with the failure kind is emitted and the
// item is left as it was.
func (l *Library) Classify(ctx context.Context, url string) (*classifier.Result, error) {
	return l.classify(ctx, "", url)
}

func (l *Library) runJob(ctx context.Context, jobID, url string) error {
	_, err := l.classify(ctx, jobID, url)
	return err
}

func (l *Library) classify(ctx context.Context, jobID, url string) (*classifier.Result, error) {
	if l.classifier == nil {
		return nil, ErrNoClassifier
	}

	inboxItems, err := l.inbox.Load(ctx)
	if err != nil {
		return nil, err
	}
	coll := l.inbox
	it, ok := find(inboxItems, url)
	if !ok {
		coll = l.later
		if it, ok, err = l.later.Find(ctx, url); err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, store.ErrNotFound
	}

	res, err := l.request(ctx, jobID, it, l.contextLines(inboxItems, it.URL))
	if err != nil {
		return nil, err
	}
	if err := l.apply(ctx, coll, it, res); err != nil {
		return nil, err
	}
	return res, nil
}

// request calls the classifier and records the attempt. A cancelled
// request is not reported to the user.
func (l *Library) request(ctx context.Context, jobID string, it domain.Item, lines []string) (*classifier.Result, error) {
	res, err := l.classifier.Classify(ctx, classifier.Request{
		Title:   it.Title,
		URL:     it.URL,
		Domain:  it.Domain,
		Context: lines,
	})
	if cerr := ctx.Err(); cerr != nil {
		return nil, cerr
	}

	run := store.Run{ID: jobID, URL: it.URL}
	if err != nil {
		kind := string(classifier.KindOf(err))
		if kind == "" {
			kind = notify.KindError
		}
		run.Status, run.ErrorKind, run.Error = "failed", kind, err.Error()
		l.record(ctx, run)

		l.log.Warn().Err(err).Str("kind", kind).Str("url", it.URL).Msg("classification failed")
		l.notifier.Notify(ctx, notify.Notice{Kind: kind, Title: "Classification failed", Body: it.Title + ": " + err.Error()})
		return nil, err
	}

	run.Status, run.Category, run.Summary = "ok", res.Category, res.Summary
	l.record(ctx, run)
	return res, nil
}

func (l *Library) apply(ctx context.Context, coll *store.Collection, it domain.Item, res *classifier.Result) error {
	cat := res.Category
	summary := res.Summary
	found, err := coll.UpdateFields(ctx, it.URL, store.Fields{Category: &cat, Summary: &summary})
	if err != nil {
		return fmt.Errorf("store classification: %w", err)
	}
	if !found {
		l.log.Debug().Str("url", it.URL).Msg("item gone before classification finished")
		return nil
	}

	info := l.Registry().Lookup(l.Registry().Resolve(cat))
	l.log.Info().Str("url", it.URL).Str("category", string(info.Key)).Msg("classified")
	l.notifier.Notify(ctx, notify.Notice{Kind: notify.KindClassified, Title: info.Symbol + " " + info.Label, Body: it.Title})
	return nil
}

func (l *Library) record(ctx context.Context, r store.Run) {
	if l.runs == nil {
		return
	}
	if err := l.runs.RecordRun(ctx, r); err != nil {
		l.log.Warn().Err(err).Msg("could not record classification run")
	}
}

// ClassifyAll classifies every unread inbox item that has no summary or is
// still general, one at a time with the configured pause between requests.
// Failed items are counted and skipped.
func (l *Library) ClassifyAll(ctx context.Context) (Batch, error) {
	var b Batch
	if l.classifier == nil {
		return b, ErrNoClassifier
	}

	items, err := l.inbox.Load(ctx)
	if err != nil {
		return b, err
	}
	var todo []string
	for _, it := range items {
		if it.Read {
			continue
		}
		if it.Summary == "" || l.Registry().Resolve(it.Category) == category.General {
			todo = append(todo, it.URL)
		}
	}
	if len(todo) == 0 {
		return b, nil
	}
	l.log.Info().Int("items", len(todo)).Msg("batch classification started")

	for i, url := range todo {
		if i > 0 && l.opts.BatchPause > 0 {
			select {
			case <-ctx.Done():
				return b, ctx.Err()
			case <-time.After(l.opts.BatchPause):
			}
		}

		it, ok := find(items, url)
		if !ok {
			continue
		}
		res, err := l.request(ctx, "", it, l.contextLines(items, url))
		if err != nil {
			if ctx.Err() != nil {
				return b, ctx.Err()
			}
			b.Failed++
			continue
		}
		if err := l.apply(ctx, l.inbox, it, res); err != nil {
			return b, err
		}
		for j := range items {
			if items[j].Matches(url) {
				items[j].Category = string(l.Registry().Resolve(res.Category))
				items[j].Summary = res.Summary
			}
		}
		b.Classified++
	}

	l.notifier.Notify(ctx, notify.Notice{
		Kind:  notify.KindInfo,
		Title: "Batch classification done",
		Body:  fmt.Sprintf("%d classified, %d failed", b.Classified, b.Failed),
	})
	return b, nil
}

// contextLines describes up to classifier.MaxContext items other than self
func (l *Library) contextLines(items []domain.Item, self string) []string {
	var lines []string
	for _, it := range items {
		if len(lines) == classifier.MaxContext {
			break
		}
		if it.Matches(self) {
			continue
		}
		lines = append(lines, fmt.Sprintf("- [%s] %s", l.Registry().Resolve(it.Category), it.Title))
	}
	return lines
}

func find(items []domain.Item, url string) (domain.Item, bool) {
	for _, it := range items {
		if it.Matches(url) {
			return it, true
		}
	}
	return domain.Item{}, false
}
