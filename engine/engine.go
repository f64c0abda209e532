package engine

import (
	"context"
	"strings"
	"time"
)

// ResourceType is the declared content category of a network request.
type ResourceType string

const (
	ResourceDocument   ResourceType = "document"
	ResourceStylesheet ResourceType = "stylesheet"
	ResourceScript     ResourceType = "script"
	ResourceImage      ResourceType = "image"
	ResourceFont       ResourceType = "font"
	ResourceMedia      ResourceType = "media"
	ResourceXHR        ResourceType = "xhr"
	ResourceFetch      ResourceType = "fetch"
	ResourceOther      ResourceType = "other"
)

// ParseResourceType normalises a config or protocol name ("Image", "XHR")
// into a ResourceType.
func ParseResourceType(name string) ResourceType {
	return ResourceType(strings.ToLower(strings.TrimSpace(name)))
}

// Request describes an outgoing request made by the rendering engine.
type Request struct {
	URL  string
	Type ResourceType
}

// RequestPredicate decides whether a request may proceed.
type RequestPredicate func(Request) bool

// Browser is the automation capability the scraper depends on. It hands out
// sessions, each owning one page for its lifetime.
type Browser interface {
	// Name returns the engine identifier (e.g. "rod", "static").
	Name() string

	OpenSession(ctx context.Context) (Session, error)

	Close() error
}

// Session owns one browser page. Close must be called on every exit path.
type Session interface {
	// Intercept installs a predicate consulted for every request the page
	// makes from now on. Requests it rejects are aborted.
	Intercept(allow RequestPredicate) error

	// Navigate loads url and waits for the page's readiness signal.
	// timeout applies to this call only.
	Navigate(ctx context.Context, url string, timeout time.Duration) (Page, error)

	Close() error
}

// Page is a handle to a loaded document.
type Page interface {
	// WaitFor blocks until selector matches at least one element or
	// timeout elapses. It returns ErrWaitTimeout in the latter case.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error

	// QueryAll returns the elements matching selector in document order.
	QueryAll(ctx context.Context, selector string) ([]Element, error)
}

// Element is a handle to one DOM element.
type Element interface {
	// Text returns the element's rendered text.
	Text() (string, error)

	// Attr returns an attribute value and whether it is present.
	Attr(name string) (string, bool, error)

	// Query returns the first descendant matching selector, or nil when
	// there is none.
	Query(selector string) (Element, error)
}
