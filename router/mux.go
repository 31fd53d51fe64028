package router

import (
	"sort"
	"sync"
	"sync/atomic"
)

// DefaultSeparator splits message types such as "integration::completed".
const DefaultSeparator = "::"

type Subscription interface {
	Unsubscribe()
}

// Mux stores handlers by topic pattern. A topic is delivered to every entry
// whose pattern matches it, in pattern order.
type Mux struct {
	mu         sync.RWMutex
	sorted     []string
	handlers   map[string][]*Entry
	routeMatch func(pattern, topic string) bool
}

type Option func(m *Mux)

// WithRouteMatcher replaces the default "::" wildcard matcher.
func WithRouteMatcher(matcher func(pattern, topic string) bool) Option {
	return func(m *Mux) {
		if matcher != nil {
			m.routeMatch = matcher
		}
	}
}

var entryIDs atomic.Int64

type Entry struct {
	id      int64
	mux     *Mux
	pattern string
	Handler any
}

func (e *Entry) Pattern() string { return e.pattern }

// Unsubscribe removes this entry. Calling it twice is a no-op.
func (e *Entry) Unsubscribe() {
	m := e.mux
	m.mu.Lock()
	defer m.mu.Unlock()

	old := m.handlers[e.pattern]
	next := make([]*Entry, 0, len(old))
	for _, x := range old {
		if x.id != e.id {
			next = append(next, x)
		}
	}
	if len(next) == 0 {
		delete(m.handlers, e.pattern)
		m.resort()
		return
	}
	m.handlers[e.pattern] = next
}

func NewMux(opts ...Option) *Mux {
	m := &Mux{
		handlers: make(map[string][]*Entry),
		routeMatch: MakeRouteMatcher(MakeRouteMatcherOptions{
			Separator:        DefaultSeparator,
			OnlyFinalSegment: true,
		}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m *Mux) Add(pattern string, handler any) *Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := &Entry{
		id:      entryIDs.Add(1),
		mux:     m,
		pattern: pattern,
		Handler: handler,
	}
	if _, ok := m.handlers[pattern]; !ok {
		m.handlers[pattern] = nil
		defer m.resort()
	}
	m.handlers[pattern] = append(m.handlers[pattern], e)
	return e
}

// Get returns the entries matching topic.
func (m *Mux) Get(topic string) []*Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Entry
	for _, p := range m.sorted {
		if m.routeMatch(p, topic) {
			out = append(out, m.handlers[p]...)
		}
	}
	return out
}

// Len counts registered entries.
func (m *Mux) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, entries := range m.handlers {
		n += len(entries)
	}
	return n
}

func (m *Mux) resort() {
	keys := make([]string, 0, len(m.handlers))
	for k := range m.handlers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	m.sorted = keys
}
