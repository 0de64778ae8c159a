package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/fansqz/dapclient/constants"
	"github.com/fansqz/dapclient/errs"
	"github.com/fansqz/dapclient/protocol"
	"github.com/google/go-dap"
)

// Dispatcher classifies inbound frames polled off a protocol.Codec into
// responses and events. A response is filed under its request_seq until
// claimed by TakeResponse; events queue in arrival order and are drained by
// TakeEvent. Anything that's neither a dap.ResponseMessage nor a
// dap.EventMessage (a stray request from the adapter, a malformed frame
// go-dap still managed to decode) is reported via errs.ErrInvalidMessage
// rather than silently dropped.
//
// Responses are filed with their raw content bytes alongside the typed
// message — Handler needs those raw bytes back for initialize's capability
// extension decode (session/capabilities.go), since go-dap's typed
// Capabilities struct has already dropped anything it doesn't know about
// by the time a dap.ResponseMessage exists.
type Dispatcher struct {
	mu sync.Mutex

	responses map[int]filedResponse
	events    *arraylist.List // of dap.EventMessage, arrival order
}

type filedResponse struct {
	msg dap.ResponseMessage
	raw json.RawMessage
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		responses: make(map[int]filedResponse),
		events:    arraylist.New(),
	}
}

// PollOnce polls codec for a single frame (bounded by timeout), files it,
// and returns it along with the raw content bytes it was decoded from. A
// nil, nil, nil result means no frame arrived within timeout. A non-nil
// error means either the read itself failed or the frame was neither a
// response nor an event; the caller still gets back whatever dap.Message
// go-dap decoded, for logging, even though file() rejected it.
func (d *Dispatcher) PollOnce(codec *protocol.Codec, timeout time.Duration) (dap.Message, json.RawMessage, error) {
	msg, raw, err := codec.PollFrame(timeout)
	if err != nil {
		return nil, nil, err
	}
	if msg == nil {
		return nil, nil, nil
	}
	return msg, raw, d.file(msg, raw)
}

func (d *Dispatcher) file(msg dap.Message, raw json.RawMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch m := msg.(type) {
	case dap.ResponseMessage:
		resp := m.GetResponse()
		d.responses[resp.RequestSeq] = filedResponse{msg: m, raw: raw}
		return nil
	case dap.EventMessage:
		d.events.Add(m)
		return nil
	default:
		return errs.ErrInvalidMessage
	}
}

// TakeResponse removes and returns the filed response for requestSeq and
// its raw content bytes, if any has arrived yet.
func (d *Dispatcher) TakeResponse(requestSeq int) (dap.ResponseMessage, json.RawMessage, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.responses[requestSeq]
	if ok {
		delete(d.responses, requestSeq)
	}
	return f.msg, f.raw, ok
}

// TakeEvent dequeues the oldest filed event, if any.
func (d *Dispatcher) TakeEvent() (dap.EventMessage, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.events.Empty() {
		return nil, false
	}
	v, _ := d.events.Get(0)
	d.events.Remove(0)
	return v.(dap.EventMessage), true
}

// TakeNamedEvent dequeues the oldest filed event matching name, leaving
// every other queued event in place and in order.
func (d *Dispatcher) TakeNamedEvent(name constants.Event) (dap.EventMessage, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	found := -1
	var out dap.EventMessage
	d.events.Each(func(i int, v interface{}) {
		if found >= 0 {
			return
		}
		ev := v.(dap.EventMessage)
		if ev.GetEvent().Event == string(name) {
			found = i
			out = ev
		}
	})
	if found < 0 {
		return nil, false
	}
	d.events.Remove(found)
	return out, true
}

// PendingEventCount reports how many events are queued and unclaimed.
func (d *Dispatcher) PendingEventCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.events.Size()
}
