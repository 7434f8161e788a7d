package workspace

import (
	"sort"
	"sync"
)

// Op is the kind of filesystem change.
type Op int

const (
	OpCreate Op = iota + 1
	OpWrite
	OpRemove
	OpRename
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Event is a single filesystem change.
type Event struct {
	Path string
	Op   Op
	Dir  bool // the path is (or was) a directory
}

// ChangeSource delivers filesystem changes to subscribers whose glob matches.
// The returned func cancels the subscription.
type ChangeSource interface {
	Subscribe(pattern string, fn func([]Event)) (cancel func())
}

type subscription struct {
	id      int
	pattern string
	fn      func([]Event)
}

// Hub fans published events out to pattern-filtered subscribers. Directory
// events reach every subscriber, since files beneath a directory may match
// any pattern. Handlers run synchronously on the publishing goroutine.
type Hub struct {
	roots []string

	mu     sync.Mutex
	nextID int
	subs   []subscription
}

// NewHub creates a Hub that matches patterns against paths relative to roots.
func NewHub(roots []string) *Hub {
	return &Hub{roots: append([]string(nil), roots...)}
}

// Subscribe registers fn for events whose root-relative path matches pattern.
func (h *Hub) Subscribe(pattern string, fn func([]Event)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, subscription{id: id, pattern: pattern, fn: fn})
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, s := range h.subs {
			if s.id == id {
				h.subs = append(h.subs[:i], h.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers events to each matching subscriber in path order.
func (h *Hub) Publish(events ...Event) {
	if len(events) == 0 {
		return
	}
	sorted := append([]Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	h.mu.Lock()
	subs := append([]subscription(nil), h.subs...)
	h.mu.Unlock()

	for _, s := range subs {
		var matched []Event
		for _, ev := range sorted {
			if ev.Dir || match(s.pattern, RelSlash(h.roots, ev.Path)) {
				matched = append(matched, ev)
			}
		}
		if len(matched) > 0 {
			s.fn(matched)
		}
	}
}
