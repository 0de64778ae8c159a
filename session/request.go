package session

import (
	"encoding/json"
	"fmt"

	"github.com/fansqz/dapclient/constants"
)

// PendingRequest owns the serialized-argument arena for one not-yet-sent
// request, plus its dependency and retained context. The arena is dropped
// once drain serializes and sends the envelope; RetainedContext lives on in
// the session-long expected-response table instead (see dependency.go).
type PendingRequest struct {
	Seq        int
	Command    constants.Command
	Dependency Dependency

	// arena is the frozen JSON bytes for the request's argument object,
	// computed once at enqueue time so a round trip (serialize, then
	// parse the same bytes back) always reproduces the same arguments —
	// the request never re-marshals a live Go value that could mutate
	// out from under it between enqueue and drain.
	arena json.RawMessage
}

// Arena returns the request's frozen argument bytes.
func (p *PendingRequest) Arena() json.RawMessage { return p.arena }

func newPendingRequest(seq int, command constants.Command, dep Dependency, arguments interface{}) (*PendingRequest, error) {
	arena, err := marshalArena(arguments)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", command, err)
	}
	return &PendingRequest{Seq: seq, Command: command, Dependency: dep, arena: arena}, nil
}

func marshalArena(arguments interface{}) (json.RawMessage, error) {
	if arguments == nil {
		return nil, nil
	}
	b, err := json.Marshal(arguments)
	if err != nil {
		return nil, fmt.Errorf("marshal arguments: %w", err)
	}
	return json.RawMessage(b), nil
}

// ExpectedResponse lives from enqueue until the matching response is
// handled, binding a request_seq/command pair back to the RetainedContext
// that should fire when the response arrives.
type ExpectedResponse struct {
	RequestSeq      int
	Command         constants.Command
	RetainedContext RetainedContext
}

// HandledResponseStatus is success or failure, mirroring the DAP
// response's `success` field.
type HandledResponseStatus int

const (
	StatusSuccess HandledResponseStatus = iota
	StatusFailure
)

// HandledResponse is both a history record and the matching key consulted
// by DepAfterSeq / DepAfterResponse dependencies.
type HandledResponse struct {
	Expected ExpectedResponse
	Status   HandledResponseStatus
}
