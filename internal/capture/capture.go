// Package capture obtains the page the user wants to save.
package capture

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/pbaille/laterread/internal/domain"
	"github.com/pbaille/laterread/internal/fetcher"
)

// ErrUnavailable means there is no page to capture
var ErrUnavailable = errors.New("no page available to capture")

// Page is a captured url and its title
type Page struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Capturer returns the page to save
type Capturer interface {
	Capture(ctx context.Context) (Page, error)
}

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// FindURL returns the first http(s) url in text
func FindURL(text string) (string, bool) {
	u := urlPattern.FindString(text)
	return u, u != ""
}

// Static captures a page given up front
type Static Page

// Capture returns the page as given
func (s Static) Capture(context.Context) (Page, error) {
	u := strings.TrimSpace(s.URL)
	if !fetcher.IsURL(u) {
		return Page{}, ErrUnavailable
	}
	if strings.HasPrefix(u, "www.") {
		u = "https://" + u
	}
	return Page{URL: u, Title: strings.TrimSpace(s.Title)}, nil
}

// Clipboard captures the first url found on the system clipboard
type Clipboard struct {
	read func() (string, error)
}

// NewClipboard returns a Clipboard reading the system clipboard
func NewClipboard() *Clipboard {
	return &Clipboard{}
}

// Capture returns the first url on the clipboard or ErrUnavailable
func (c *Clipboard) Capture(context.Context) (Page, error) {
	read := c.read
	if read == nil {
		if clipboard.Unsupported {
			return Page{}, ErrUnavailable
		}
		read = clipboard.ReadAll
	}
	text, err := read()
	if err != nil {
		return Page{}, errors.Join(ErrUnavailable, err)
	}
	u, ok := FindURL(text)
	if !ok {
		return Page{}, ErrUnavailable
	}
	return Page{URL: u}, nil
}

// Titled fills in missing titles by fetching the page, falling back to the url
type Titled struct {
	Capturer Capturer
	Client   *http.Client
}

// Capture runs the wrapped capturer and fills in the title
func (t Titled) Capture(ctx context.Context) (Page, error) {
	p, err := t.Capturer.Capture(ctx)
	if err != nil {
		return Page{}, err
	}
	p.URL = domain.NormalizeURL(p.URL)
	if p.Title == "" {
		if title, err := fetcher.FetchTitle(ctx, t.Client, p.URL); err == nil {
			p.Title = title
		} else {
			p.Title = p.URL
		}
	}
	return p, nil
}
