package store

import "sync"

// Event operations emitted by the stores.
const (
	OperationCreated       = "created"
	OperationUpdated       = "updated"
	OperationPatch         = "patch"
	OperationDeleted       = "deleted"
	OperationAccessGranted = "access-granted"
	OperationAccessRemoved = "access-removed"
)

// Event is the exact shape delivered to route subscribers.
type Event struct {
	// Type is always "event".
	Type string `json:"type"`

	// Operation is one of the Operation* constants.
	Operation string `json:"operation"`

	// Data is the operation payload: the created object, the patch, or
	// nil for deletions.
	Data any `json:"data,omitempty"`

	// Kind is the affected object's kind.
	Kind string `json:"kind"`

	// ID is the affected object's key, when the event targets one object.
	ID string `json:"id,omitempty"`
}

// Filter selects which subscribers receive an event.
type Filter struct {
	// URL is the subscription route the event belongs to.
	URL string

	// Users restricts delivery to the listed user keys. Empty means all
	// subscribers of the route (single-user deployments broadcast).
	Users []string
}

// EventSink receives store-side effects. It is injected into each store at
// construction so instances stay independent and tests stay deterministic;
// the stores do not depend on delivery semantics.
type EventSink interface {
	// Publish delivers an event to subscribers matching the filter.
	Publish(event Event, filter Filter)

	// CloseByURL terminates live subscriptions on the given route, used
	// when the underlying object is deleted.
	CloseByURL(url string)
}

// Subscription routes used in event filters.
const (
	RouteFiles   = "/files"
	RouteHistory = "/history"
)

// RouteFile is the subscription route for a single file.
func RouteFile(key string) string {
	return RouteFiles + "/" + key
}

// NullSink discards all events. Used when no notifier is wired.
type NullSink struct{}

func (NullSink) Publish(Event, Filter) {}
func (NullSink) CloseByURL(string)     {}

// CapturingSink records events and closed routes for inspection. Test helper.
type CapturingSink struct {
	mu     sync.Mutex
	events []CapturedEvent
	closed []string
}

// CapturedEvent pairs an event with the filter it was published under.
type CapturedEvent struct {
	Event  Event
	Filter Filter
}

// NewCapturingSink creates an empty capturing sink.
func NewCapturingSink() *CapturingSink {
	return &CapturingSink{}
}

func (s *CapturingSink) Publish(event Event, filter Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, CapturedEvent{Event: event, Filter: filter})
}

func (s *CapturingSink) CloseByURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = append(s.closed, url)
}

// Events returns a copy of the captured events.
func (s *CapturingSink) Events() []CapturedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CapturedEvent{}, s.events...)
}

// Closed returns a copy of the routes closed so far.
func (s *CapturingSink) Closed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.closed...)
}
