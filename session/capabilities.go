package session

import (
	"encoding/json"

	"github.com/fansqz/dapclient/constants"
	"github.com/google/go-dap"
)

// ClientCapabilities are the flags this engine declares in the initialize
// request. Built once at connection construction and reflected into a
// dap.InitializeRequestArguments at begin-session time — the mirror image
// of the teacher's onInitializeRequest, which enumerates every
// dap.Capabilities field by hand to answer an initialize request; here we
// enumerate every InitializeRequestArguments field by hand to send one.
type ClientCapabilities struct {
	ClientID                     string
	ClientName                   string
	AdapterID                    string
	Locale                       string
	LinesStartAt1                bool
	ColumnsStartAt1               bool
	PathFormat                    string
	SupportsVariableType          bool
	SupportsVariablePaging        bool
	SupportsRunInTerminalRequest  bool
	SupportsMemoryReferences      bool
}

// DefaultClientCapabilities returns the capabilities this engine declares
// by default: 1-based lines/columns (the common front-end convention),
// path-based sources, and no runInTerminal support (reverse requests are
// recognized but never enqueued — see constants.IsReverseRequest).
func DefaultClientCapabilities(clientID, clientName, adapterID string) ClientCapabilities {
	return ClientCapabilities{
		ClientID:        clientID,
		ClientName:       clientName,
		AdapterID:        adapterID,
		LinesStartAt1:    true,
		ColumnsStartAt1:  true,
		PathFormat:       "path",
	}
}

// ToArguments reflects the typed fields into the wire struct go-dap defines
// for the initialize request.
func (c ClientCapabilities) ToArguments() dap.InitializeRequestArguments {
	return dap.InitializeRequestArguments{
		ClientID:                     c.ClientID,
		ClientName:                   c.ClientName,
		AdapterID:                    c.AdapterID,
		Locale:                       c.Locale,
		LinesStartAt1:                c.LinesStartAt1,
		ColumnsStartAt1:              c.ColumnsStartAt1,
		PathFormat:                   c.PathFormat,
		SupportsVariableType:         c.SupportsVariableType,
		SupportsVariablePaging:       c.SupportsVariablePaging,
		SupportsRunInTerminalRequest: c.SupportsRunInTerminalRequest,
		SupportsMemoryReferences:     c.SupportsMemoryReferences,
	}
}

// AdapterCapabilities are the flags parsed from the adapter's initialize
// response. dap.Capabilities (go-dap v0.12.0) covers most of the DAP
// schema; three booleans the DAP spec added afterwards
// (supportsInstructionBreakpoints, supportsWriteMemoryRequest,
// supportsSingleThreadExecutionRequests) and the breakpointModes array
// aren't in that struct's field list, so the registry decodes the raw
// initialize-response body a second time into extended, rather than
// waiting on a go-dap upgrade that may rename fields out from under us.
type AdapterCapabilities struct {
	dap.Capabilities
	extended adapterCapabilitiesExtension
}

type adapterCapabilitiesExtension struct {
	SupportsInstructionBreakpoints        bool          `json:"supportsInstructionBreakpoints,omitempty"`
	SupportsWriteMemoryRequest             bool          `json:"supportsWriteMemoryRequest,omitempty"`
	SupportsSingleThreadExecutionRequests  bool          `json:"supportsSingleThreadExecutionRequests,omitempty"`
	BreakpointModes                        []interface{} `json:"breakpointModes,omitempty"`
}

// NewAdapterCapabilities decodes an initialize response body (the raw JSON,
// not the already-typed dap.Capabilities) into the full registry.
func NewAdapterCapabilities(rawBody json.RawMessage) (AdapterCapabilities, error) {
	var ac AdapterCapabilities
	if len(rawBody) == 0 {
		return ac, nil
	}
	if err := json.Unmarshal(rawBody, &ac.Capabilities); err != nil {
		return ac, err
	}
	if err := json.Unmarshal(rawBody, &ac.extended); err != nil {
		return ac, err
	}
	// copying the arrays out of the raw response into owned storage: the
	// response itself is freed once the handler finishes with it.
	ac.ExceptionBreakpointFilters = append([]dap.ExceptionBreakpointsFilter{}, ac.ExceptionBreakpointFilters...)
	ac.CompletionTriggerCharacters = append([]string{}, ac.CompletionTriggerCharacters...)
	ac.AdditionalModuleColumns = append([]dap.ColumnDescriptor{}, ac.AdditionalModuleColumns...)
	ac.SupportedChecksumAlgorithms = append([]dap.ChecksumAlgorithm{}, ac.SupportedChecksumAlgorithms...)
	return ac, nil
}

// SupportsInstructionBreakpoints reports the extension flag.
func (a AdapterCapabilities) SupportsInstructionBreakpoints() bool {
	return a.extended.SupportsInstructionBreakpoints
}

// SupportsWriteMemoryRequest reports the extension flag.
func (a AdapterCapabilities) SupportsWriteMemoryRequest() bool {
	return a.extended.SupportsWriteMemoryRequest
}

// SupportsSingleThreadExecutionRequests reports the extension flag.
func (a AdapterCapabilities) SupportsSingleThreadExecutionRequests() bool {
	return a.extended.SupportsSingleThreadExecutionRequests
}

// CapabilityRegistry holds the client-declared and adapter-declared
// capability sets and answers is-request-allowed.
type CapabilityRegistry struct {
	Client  ClientCapabilities
	Adapter AdapterCapabilities

	adapterKnown bool
}

// NewCapabilityRegistry constructs a registry with the given client
// capabilities; the adapter side is populated later by SetAdapter once the
// initialize response is handled.
func NewCapabilityRegistry(client ClientCapabilities) *CapabilityRegistry {
	return &CapabilityRegistry{Client: client}
}

// SetAdapter records the adapter's declared capabilities. Called exactly
// once per session, by the response handler after a successful initialize.
func (r *CapabilityRegistry) SetAdapter(ac AdapterCapabilities) {
	r.Adapter = ac
	r.adapterKnown = true
}

// IsRequestAllowed implements the §4.3 capability gate table. initialize is
// always allowed (it's how adapter capabilities get populated in the first
// place); launch/attach are gated by connection state, not capability, and
// are reported allowed here — StateMachine.CanSend (state.go), checked by
// Queue.Drain, enforces the state half of the gate separately.
func (r *CapabilityRegistry) IsRequestAllowed(cmd constants.Command) bool {
	if constants.IsReverseRequest(cmd) {
		return false
	}
	switch cmd {
	case constants.CommandInitialize,
		constants.CommandLaunch,
		constants.CommandAttach,
		constants.CommandDisconnect,
		constants.CommandThreads,
		constants.CommandStackTrace,
		constants.CommandScopes,
		constants.CommandVariables,
		constants.CommandSource,
		constants.CommandEvaluate,
		constants.CommandPause,
		constants.CommandContinue,
		constants.CommandNext,
		constants.CommandStepIn,
		constants.CommandStepOut,
		constants.CommandSetBreakpoints,
		constants.CommandLocations:
		return true
	case constants.CommandSetExceptionBreakpoints:
		return len(r.Adapter.ExceptionBreakpointFilters) > 1
	case constants.CommandConfigurationDone:
		return r.Adapter.SupportsConfigurationDoneRequest
	case constants.CommandSetFunctionBreakpoints:
		return r.Adapter.SupportsFunctionBreakpoints
	case constants.CommandSetVariable:
		return r.Adapter.SupportsSetVariable
	case constants.CommandRestartFrame:
		return r.Adapter.SupportsRestartFrame
	case constants.CommandGotoTargets:
		return r.Adapter.SupportsGotoTargetsRequest
	case constants.CommandStepInTargets:
		return r.Adapter.SupportsStepInTargetsRequest
	case constants.CommandCompletions:
		return r.Adapter.SupportsCompletionsRequest
	case constants.CommandModules:
		return r.Adapter.SupportsModulesRequest
	case constants.CommandRestart:
		return r.Adapter.SupportsRestartRequest
	case constants.CommandExceptionInfo:
		return r.Adapter.SupportsExceptionInfoRequest
	case constants.CommandLoadedSources:
		return r.Adapter.SupportsLoadedSourcesRequest
	case constants.CommandTerminateThreads:
		return r.Adapter.SupportsTerminateThreadsRequest
	case constants.CommandSetExpression:
		return r.Adapter.SupportsSetExpression
	case constants.CommandTerminate:
		return r.Adapter.SupportsTerminateRequest
	case constants.CommandCancel:
		return r.Adapter.SupportsCancelRequest
	case constants.CommandBreakpointLocations:
		return r.Adapter.SupportsBreakpointLocationsRequest
	case constants.CommandSetInstructionBreakpoints:
		return r.Adapter.SupportsInstructionBreakpoints()
	case constants.CommandReadMemory:
		return r.Adapter.SupportsReadMemoryRequest
	case constants.CommandWriteMemory:
		return r.Adapter.SupportsWriteMemoryRequest()
	case constants.CommandDisassemble:
		return r.Adapter.SupportsDisassembleRequest
	case constants.CommandGoto:
		return r.Adapter.SupportsGotoTargetsRequest
	case constants.CommandStepBack:
		return r.Adapter.SupportsStepBack
	case constants.CommandReverseContinue:
		return r.Adapter.SupportsStepBack
	case constants.CommandDataBreakpointInfo:
		return r.Adapter.SupportsDataBreakpoints
	case constants.CommandSetDataBreakpoints:
		return r.Adapter.SupportsDataBreakpoints
	}
	return false
}
