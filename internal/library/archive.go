package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pbaille/laterread/internal/domain"
	"github.com/pbaille/laterread/internal/notify"
)

const archiveTitle = "# 📚 LaterRead Archive"

// ArchiveRead moves read inbox items into the archive document, under a
// "## 📅 YYYY-MM" section for the current month. The newest month comes
// first. It returns the number of archived items.
func (l *Library) ArchiveRead(ctx context.Context) (int, error) {
	if l.opts.ArchivePath == "" {
		return 0, fmt.Errorf("archive read: no archive path configured")
	}

	var moved []domain.Item
	err := l.inbox.Update(ctx, func(items []domain.Item) ([]domain.Item, bool, error) {
		var keep []domain.Item
		for _, it := range items {
			if it.Read {
				moved = append(moved, it)
			} else {
				keep = append(keep, it)
			}
		}
		if len(moved) == 0 {
			return items, false, nil
		}
		// The archive is written first; the inbox is only rewritten once it succeeded.
		if err := l.appendArchive(moved); err != nil {
			return nil, false, err
		}
		return keep, true, nil
	})
	if err != nil {
		return 0, fmt.Errorf("archive read: %w", err)
	}
	if len(moved) == 0 {
		return 0, ErrNothingToDo
	}

	l.log.Info().Int("items", len(moved)).Str("path", l.opts.ArchivePath).Msg("archived")
	l.notifier.Notify(ctx, notify.Notice{
		Kind:  notify.KindInfo,
		Title: "Archived",
		Body:  fmt.Sprintf("%d read items archived", len(moved)),
	})
	return len(moved), nil
}

func (l *Library) appendArchive(items []domain.Item) error {
	doc := archiveTitle + "\n\n"
	b, err := os.ReadFile(l.opts.ArchivePath)
	switch {
	case err == nil:
		doc = string(b)
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("read archive: %w", err)
	}

	var block strings.Builder
	for _, it := range items {
		it.Read = true
		it.Related = nil
		block.WriteString(l.codec.RenderItem(it, nil))
		block.WriteString("\n")
	}
	month := "## 📅 " + l.opts.Now().Format("2006-01")
	return writeAtomic(l.opts.ArchivePath, insertSection(doc, month, block.String()))
}

// insertSection puts block right under header, adding the header after the
// document title when it does not exist yet.
func insertSection(doc, header, block string) string {
	if i := strings.Index(doc, header+"\n"); i >= 0 {
		at := i + len(header) + 1
		if strings.HasPrefix(doc[at:], "\n") {
			at++
		}
		return doc[:at] + block + doc[at:]
	}

	section := header + "\n\n" + block
	at := strings.Index(doc, "\n\n")
	if at < 0 {
		return strings.TrimRight(doc, "\n") + "\n\n" + section
	}
	at += 2
	return doc[:at] + section + doc[at:]
}

func writeAtomic(path string, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
