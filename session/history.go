package session

import (
	"sync"

	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/fansqz/dapclient/constants"
	"github.com/google/go-dap"
)

// History is the session-long record of handled responses and observed
// events that DepAfterSeq / DepAfterResponse / DepAfterEvent consult.
//
// spec.md §9 raises an Open Question: the source keeps two parallel
// histories, a typed handled_responses and a raw debug_handled_responses
// that's only populated when debug=true. This implementation keeps that
// shape rather than replacing it with a tracing sink — the typed list is
// always kept (it's load-bearing for dependency resolution), and the raw
// frames are kept alongside it only when NewHistory's debug flag is set,
// which is cheap and matches what a caller debugging a stuck dependency
// chain actually wants to inspect.
type History struct {
	mu sync.Mutex

	handled *arraylist.List // of HandledResponse, insertion order

	debug      bool
	rawHandled *arraylist.List // of dap.Message, populated only if debug

	observedEvents map[constants.Event]struct{}

	initializeHandledCount int
}

// NewHistory returns an empty history. When debug is true, every handled
// response's raw frame is retained alongside its typed record.
func NewHistory(debug bool) *History {
	return &History{
		handled:        arraylist.New(),
		debug:          debug,
		rawHandled:     arraylist.New(),
		observedEvents: make(map[constants.Event]struct{}),
	}
}

// RecordHandled appends hr to the typed history (and, in debug mode, raw to
// the raw history), and bumps the single-initialize-handled counter.
func (h *History) RecordHandled(hr HandledResponse, raw dap.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled.Add(hr)
	if h.debug {
		h.rawHandled.Add(raw)
	}
	if hr.Expected.Command == constants.CommandInitialize {
		h.initializeHandledCount++
	}
}

// RecordEvent marks ev as observed, satisfying any DepAfterEvent(ev).
func (h *History) RecordEvent(ev constants.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observedEvents[ev] = struct{}{}
}

// AnySeqHandled reports whether some handled response carries request_seq
// == seq.
func (h *History) AnySeqHandled(seq int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	found := false
	h.handled.Each(func(_ int, v interface{}) {
		if v.(HandledResponse).Expected.RequestSeq == seq {
			found = true
		}
	})
	return found
}

// AnyCommandHandled reports whether some handled response carries command
// == cmd.
func (h *History) AnyCommandHandled(cmd constants.Command) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	found := false
	h.handled.Each(func(_ int, v interface{}) {
		if v.(HandledResponse).Expected.Command == cmd {
			found = true
		}
	})
	return found
}

// EventObserved reports whether ev has ever been observed.
func (h *History) EventObserved(ev constants.Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.observedEvents[ev]
	return ok
}

// InitializeHandledCount is the testable property from spec.md §8.5:
// exactly one initialize response is handled per session lifetime.
func (h *History) InitializeHandledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.initializeHandledCount
}

// Size returns the number of handled responses recorded so far.
func (h *History) Size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.handled.Size()
}
