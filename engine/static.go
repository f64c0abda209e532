package engine

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// StaticPage is a Page over an already-rendered HTML document, such as a
// saved snapshot of the results page. Its content never changes, so waits
// resolve immediately.
type StaticPage struct {
	doc *goquery.Document
}

// NewStaticPage parses an HTML document.
func NewStaticPage(r io.Reader) (*StaticPage, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("static: parse html: %w", err)
	}
	return &StaticPage{doc: goquery.NewDocumentFromNode(root)}, nil
}

func (p *StaticPage) WaitFor(ctx context.Context, selector string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.doc.Find(selector).Length() == 0 {
		return ErrWaitTimeout
	}
	return nil
}

func (p *StaticPage) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel := p.doc.Find(selector)
	out := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &staticElement{sel: s})
	})
	return out, nil
}

type staticElement struct {
	sel *goquery.Selection
}

func (e *staticElement) Text() (string, error) {
	return e.sel.Text(), nil
}

func (e *staticElement) Attr(name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *staticElement) Query(selector string) (Element, error) {
	found := e.sel.Find(selector).First()
	if found.Length() == 0 {
		return nil, nil
	}
	return &staticElement{sel: found}, nil
}

// StaticBrowser serves one fixed document for every navigation. It backs the
// offline `parse` command and lets the whole pipeline run without Chromium.
type StaticBrowser struct {
	html          string
	readySelector string

	mu        sync.Mutex
	navigated []string
	open      int
}

// NewStaticBrowser returns a browser whose sessions render document. When
// readySelector is non-empty a navigation fails with ReadyTimeoutError if
// the document does not contain it.
func NewStaticBrowser(document, readySelector string) *StaticBrowser {
	return &StaticBrowser{html: document, readySelector: readySelector}
}

func (b *StaticBrowser) Name() string { return "static" }

func (b *StaticBrowser) OpenSession(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.open++
	b.mu.Unlock()
	return &staticSession{browser: b}, nil
}

func (b *StaticBrowser) Close() error { return nil }

// Navigated returns the URLs requested so far, in order.
func (b *StaticBrowser) Navigated() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.navigated...)
}

// OpenSessions returns the number of sessions opened and not yet closed.
func (b *StaticBrowser) OpenSessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

type staticSession struct {
	browser *StaticBrowser
	closed  bool
}

// Intercept is accepted but has nothing to filter: a static document makes
// no subresource requests.
func (s *staticSession) Intercept(RequestPredicate) error { return nil }

func (s *staticSession) Navigate(ctx context.Context, url string, _ time.Duration) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.browser.mu.Lock()
	s.browser.navigated = append(s.browser.navigated, url)
	s.browser.mu.Unlock()

	page, err := NewStaticPage(strings.NewReader(s.browser.html))
	if err != nil {
		return nil, err
	}
	if sel := s.browser.readySelector; sel != "" {
		if page.doc.Find(sel).Length() == 0 {
			return nil, &ReadyTimeoutError{Selector: sel, Err: ErrWaitTimeout}
		}
	}
	return page, nil
}

func (s *staticSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.browser.mu.Lock()
	s.browser.open--
	s.browser.mu.Unlock()
	return nil
}
