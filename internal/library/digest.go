package library

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pbaille/laterread/internal/category"
	"github.com/pbaille/laterread/internal/domain"
	"github.com/pbaille/laterread/internal/notify"
)

// DigestName returns the file name of the digest for the ISO week of t
func DigestName(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d.md", year, week)
}

// Digest writes a weekly reading list of unread inbox items, grouped by
// category, to the digest directory and returns its path.
func (l *Library) Digest(ctx context.Context, now time.Time) (string, error) {
	if l.opts.DigestDir == "" {
		return "", fmt.Errorf("digest: no digest directory configured")
	}
	items, err := l.inbox.Load(ctx)
	if err != nil {
		return "", err
	}
	var unread []domain.Item
	for _, it := range items {
		if !it.Read {
			unread = append(unread, it)
		}
	}
	if len(unread) == 0 {
		return "", ErrNothingToDo
	}

	path := filepath.Join(l.opts.DigestDir, DigestName(now))
	if err := writeAtomic(path, l.renderDigest(unread, now)); err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}

	l.log.Info().Str("path", path).Int("items", len(unread)).Msg("digest written")
	l.notifier.Notify(ctx, notify.Notice{Kind: notify.KindInfo, Title: "Digest written", Body: path})
	return path, nil
}

func (l *Library) renderDigest(items []domain.Item, now time.Time) string {
	reg := l.Registry()
	groups := make(map[category.Key][]domain.Item)
	for _, it := range items {
		k := reg.Resolve(it.Category)
		groups[k] = append(groups[k], it)
	}

	year, week := now.ISOWeek()
	var sb strings.Builder
	fmt.Fprintf(&sb, "# 📚 Reading list %d-W%02d\n\n", year, week)
	fmt.Fprintf(&sb, "> Generated %s · %d unread\n\n---\n\n", domain.Today(now), len(items))

	for _, k := range reg.Order() {
		group := groups[k]
		if len(group) == 0 {
			continue
		}
		info := reg.Lookup(k)
		fmt.Fprintf(&sb, "## %s %s\n\n", info.Symbol, info.Label)
		for _, it := range group {
			fmt.Fprintf(&sb, "### [%s](%s)\n\n", it.Title, it.URL)
			fmt.Fprintf(&sb, "- **Source**: %s\n", it.Domain)
			fmt.Fprintf(&sb, "- **Added**: %s\n", it.CreatedAt)
			if it.Summary != "" {
				fmt.Fprintf(&sb, "- **Summary**: %s\n", it.Summary)
			}
			if it.Note != "" {
				fmt.Fprintf(&sb, "\n> 📝 %s\n", it.Note)
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString("---\n\n*Generated by LaterRead*\n")
	return sb.String()
}
