package protocol

import (
	"encoding/json"

	"github.com/google/go-dap"
)

// OutboundRequest is the generic wire envelope for every outbound request
// this engine sends. go-dap type-generates one Go struct per DAP command
// (LaunchRequest, StackTraceRequest, ...), each with its own typed
// Arguments field — fine for a debug adapter that only ever answers a
// handful of commands, but this engine enqueues any command in the closed
// enumeration without hand-typing forty argument structs. go-dap's own
// LaunchRequest sidesteps the same problem with `Arguments
// map[string]interface{}`; OutboundRequest generalizes that to
// json.RawMessage so the session's argument arena (marshalArena in
// session/request.go) can freeze the argument bytes at enqueue time and the
// envelope can still carry any command, while its typed response comes back
// in through dap.DecodeProtocolMessage (see codec.go).
type OutboundRequest struct {
	dap.Request
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// NewOutboundRequest builds the wire envelope for seq/command with args
// already frozen into arena bytes.
func NewOutboundRequest(seq int, command string, arena json.RawMessage) *OutboundRequest {
	return &OutboundRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Seq: seq, Type: "request"},
			Command:         command,
		},
		Arguments: arena,
	}
}
