package session

import (
	"fmt"
	"sync"

	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/fansqz/dapclient/constants"
	"github.com/fansqz/dapclient/errs"
	"github.com/fansqz/dapclient/protocol"
	"github.com/sirupsen/logrus"
)

// Queue is the outbound request queue and dependency resolver (spec.md
// §4.5). pending preserves insertion order the way the teacher's
// utils/ds_util.go leans on gods containers for anything order-sensitive;
// arraylist.Remove by index keeps drain's "walk in insertion order, splice
// out what's sendable" loop a direct translation of the prose spec.
type Queue struct {
	mu sync.Mutex

	pending *arraylist.List // of *PendingRequest, insertion order

	// expected persists from enqueue until the matching response is
	// handled — it covers both "still pending" and "sent, awaiting
	// response" per the Conservation invariant (spec.md §3/§8.2).
	expected map[int]*ExpectedResponse

	seqAlloc *protocol.SeqAllocator
}

// NewQueue returns an empty queue backed by its own sequence allocator.
func NewQueue() *Queue {
	return &Queue{
		pending:  arraylist.New(),
		expected: make(map[int]*ExpectedResponse),
		seqAlloc: protocol.NewSeqAllocator(),
	}
}

// Enqueue allocates a seq, freezes arguments into the request's arena,
// appends a PendingRequest and its matching ExpectedResponse, and returns
// the seq for dependency-chaining.
func (q *Queue) Enqueue(command constants.Command, arguments interface{}, dep Dependency, ctx RetainedContext) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	seq, err := q.seqAlloc.Next()
	if err != nil {
		return 0, err
	}
	req, err := newPendingRequest(seq, command, dep, arguments)
	if err != nil {
		return 0, err
	}
	q.pending.Add(req)
	q.expected[seq] = &ExpectedResponse{RequestSeq: seq, Command: command, RetainedContext: ctx}
	logrus.Infof("[Queue] enqueue seq=%d command=%s", seq, command)
	return seq, nil
}

// Lookup returns the ExpectedResponse registered for seq, if any.
func (q *Queue) Lookup(seq int) (*ExpectedResponse, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.expected[seq]
	return e, ok
}

// Resolve removes the ExpectedResponse for seq once its response has been
// handled and moved into History.
func (q *Queue) Resolve(seq int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.expected, seq)
}

// PendingLen reports how many requests are still waiting to be sent.
func (q *Queue) PendingLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Size()
}

// sendFunc writes one request's envelope to the wire. Connection supplies
// the real implementation (protocol.Codec.WriteFrame over an
// protocol.OutboundRequest); tests substitute a fake.
type sendFunc func(req *PendingRequest) error

// Drain walks the pending list in insertion order and sends every request
// whose dependency is satisfied and whose command passes the capability
// and state gates, removing each from the pending list as it's sent. A
// failed gate or dependency check is non-fatal: the request stays queued
// and its error is appended to the returned slice (spec.md §7,
// dependency-not-satisfied / adapter-does-not-support-request /
// adapter-not-done-initializing are all reported this way, not raised).
func (q *Queue) Drain(caps *CapabilityRegistry, state *StateMachine, history *History, send sendFunc) []error {
	q.mu.Lock()
	defer q.mu.Unlock()

	var errsOut []error
	i := 0
	for i < q.pending.Size() {
		v, _ := q.pending.Get(i)
		req := v.(*PendingRequest)

		if !q.dependencySatisfiedLocked(req.Dependency, history) {
			errsOut = append(errsOut, fmt.Errorf("seq=%d command=%s: %w", req.Seq, req.Command, errs.ErrDependencyNotSatisfied))
			i++
			continue
		}
		if !state.CanSend(req.Command) {
			errsOut = append(errsOut, fmt.Errorf("seq=%d command=%s: %w (state=%s)", req.Seq, req.Command, errs.ErrAdapterNotDoneInitializing, state.State()))
			i++
			continue
		}
		if req.Command != constants.CommandInitialize && !caps.IsRequestAllowed(req.Command) {
			errsOut = append(errsOut, fmt.Errorf("seq=%d command=%s: %w", req.Seq, req.Command, errs.ErrAdapterDoesNotSupportRequest))
			i++
			continue
		}

		if err := send(req); err != nil {
			errsOut = append(errsOut, fmt.Errorf("seq=%d command=%s: send: %w", req.Seq, req.Command, err))
			i++
			continue
		}

		logrus.Infof("[Queue] sent seq=%d command=%s", req.Seq, req.Command)
		q.pending.Remove(i)
		// do not advance i: the next element has shifted into index i
	}
	return errsOut
}

func (q *Queue) dependencySatisfiedLocked(dep Dependency, history *History) bool {
	switch dep.Kind {
	case DepNone:
		return true
	case DepAfterSeq:
		return history.AnySeqHandled(dep.Seq)
	case DepAfterResponse:
		return history.AnyCommandHandled(dep.Command)
	case DepAfterEvent:
		return history.EventObserved(dep.Event)
	default:
		return false
	}
}
