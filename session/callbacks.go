package session

import (
	"sync"

	"github.com/fansqz/dapclient/constants"
	"github.com/google/go-dap"
)

// CallbackKind distinguishes a response callback from an event callback —
// the two keyspaces (command+status vs event name) never collide, but
// keeping the tag explicit avoids relying on zero-value Command/Event
// aliasing.
type CallbackKind int

const (
	callbackResponse CallbackKind = iota
	callbackEvent
)

type callbackKey struct {
	kind    CallbackKind
	command constants.Command
	status  HandledResponseStatus
	event   constants.Event
}

// Callbacks is the one-shot dispatch table from §6/§9: register a fn against
// {response_command, status} or {event_kind}, and it fires exactly once the
// next time a matching message is handled, then is removed. Grounded on the
// teacher's own message-dispatch idiom (handler.go's command → handler-func
// map), generalized from "permanent handler per command" to "one-shot
// handler per command+status".
type Callbacks struct {
	mu    sync.Mutex
	table map[callbackKey][]func(raw dap.Message)
}

// NewCallbacks returns an empty callback table.
func NewCallbacks() *Callbacks {
	return &Callbacks{table: make(map[callbackKey][]func(raw dap.Message))}
}

// OnResponse registers fn to fire once the next time a response to cmd with
// the given status is handled.
func (c *Callbacks) OnResponse(cmd constants.Command, status HandledResponseStatus, fn func(raw dap.Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := callbackKey{kind: callbackResponse, command: cmd, status: status}
	c.table[key] = append(c.table[key], fn)
}

// OnEvent registers fn to fire once the next time ev is observed.
func (c *Callbacks) OnEvent(ev constants.Event, fn func(raw dap.Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := callbackKey{kind: callbackEvent, event: ev}
	c.table[key] = append(c.table[key], fn)
}

// fireResponse consults and removes every callback registered for
// {cmd, status}, invoking each with raw.
func (c *Callbacks) fireResponse(cmd constants.Command, status HandledResponseStatus, raw dap.Message) {
	c.mu.Lock()
	key := callbackKey{kind: callbackResponse, command: cmd, status: status}
	fns := c.table[key]
	delete(c.table, key)
	c.mu.Unlock()
	for _, fn := range fns {
		fn(raw)
	}
}

// fireEvent consults and removes every callback registered for ev,
// invoking each with raw.
func (c *Callbacks) fireEvent(ev constants.Event, raw dap.Message) {
	c.mu.Lock()
	key := callbackKey{kind: callbackEvent, event: ev}
	fns := c.table[key]
	delete(c.table, key)
	c.mu.Unlock()
	for _, fn := range fns {
		fn(raw)
	}
}
