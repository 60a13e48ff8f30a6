package domain

import (
	"net/url"
	"slices"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used in documents
const DateLayout = "2006-01-02"

// Item represents one saved link in a collection
type Item struct {
	URL       string   `json:"url"`
	Title     string   `json:"title"`
	Domain    string   `json:"domain"`
	Summary   string   `json:"summary,omitempty"`
	Category  string   `json:"category"`
	Note      string   `json:"note,omitempty"`
	Related   []string `json:"related,omitempty"`
	CreatedAt string   `json:"created_at"`
	Read      bool     `json:"read"`
}

// Matches reports whether the item is identified by rawURL
func (it Item) Matches(rawURL string) bool {
	return NormalizeURL(it.URL) == NormalizeURL(rawURL)
}

// HasRelation reports whether target is already in the relation list
func (it Item) HasRelation(target string) bool {
	return slices.ContainsFunc(it.Related, func(r string) bool {
		return NormalizeURL(r) == NormalizeURL(target)
	})
}

// AddRelation appends target unless it is already present or the item itself.
// It returns true when the list changed.
func (it *Item) AddRelation(target string) bool {
	if strings.TrimSpace(target) == "" || it.Matches(target) || it.HasRelation(target) {
		return false
	}
	it.Related = append(it.Related, target)
	return true
}

// RemoveRelation drops target from the relation list
func (it *Item) RemoveRelation(target string) bool {
	n := len(it.Related)
	it.Related = slices.DeleteFunc(it.Related, func(r string) bool {
		return NormalizeURL(r) == NormalizeURL(target)
	})
	return len(it.Related) != n
}

// CleanRelations returns targets without blanks, duplicates or self references
func CleanRelations(self string, targets []string) []string {
	tmp := Item{URL: self}
	for _, t := range targets {
		tmp.AddRelation(strings.TrimSpace(t))
	}
	return tmp.Related
}

// Kind names one of the two persisted collections
type Kind string

const (
	Inbox      Kind = "inbox"
	LaterWrite Kind = "laterwrite"
)

// ParseKind maps user input to a collection kind
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inbox":
		return Inbox, true
	case "laterwrite", "later-write", "secondary":
		return LaterWrite, true
	}
	return "", false
}

// Today returns the calendar date of t in DateLayout
func Today(t time.Time) string {
	return t.Format(DateLayout)
}

// NormalizeURL returns the identity form of a url: trimmed, with lowercase
// scheme and host and without fragment. Unparseable input is only trimmed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// DomainOf returns the host of rawURL without a leading "www."
func DomainOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
