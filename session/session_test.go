package session

import (
	"encoding/json"
	"testing"

	"github.com/fansqz/dapclient/constants"
	"github.com/fansqz/dapclient/store"
	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn wires together the same components Connection does, minus the
// wire codec and child process — enough to drive the scenarios from
// spec.md §8 by feeding synthetic dap.ResponseMessage/dap.EventMessage
// values straight into the Handler, the way a fake adapter's decoded
// frames would arrive one at a time off a real Codec.
type fakeConn struct {
	queue   *Queue
	hist    *History
	state   *StateMachine
	caps    *CapabilityRegistry
	data    *store.Store
	handler *Handler
}

func newFakeConn() *fakeConn {
	queue := NewQueue()
	hist := NewHistory(false)
	state := NewStateMachine()
	caps := NewCapabilityRegistry(DefaultClientCapabilities("test", "test", ""))
	data := store.New()
	cb := NewCallbacks()
	return &fakeConn{
		queue:   queue,
		hist:    hist,
		state:   state,
		caps:    caps,
		data:    data,
		handler: NewHandler(queue, hist, state, caps, data, cb),
	}
}

func (f *fakeConn) drain(t *testing.T) []*PendingRequest {
	t.Helper()
	var batch []*PendingRequest
	f.queue.Drain(f.caps, f.state, f.hist, func(req *PendingRequest) error {
		if req.Command == constants.CommandInitialize {
			require.NoError(t, f.state.BeginSendInitialize())
		}
		batch = append(batch, req)
		return nil
	})
	return batch
}

func (f *fakeConn) respondSuccess(t *testing.T, seq int, cmd constants.Command, resp dap.ResponseMessage) {
	t.Helper()
	r := resp.GetResponse()
	r.RequestSeq = seq
	r.Command = string(cmd)
	r.Success = true
	require.NoError(t, f.handler.HandleResponse(resp, nil))
}

// respondSuccessRaw is respondSuccess plus the raw wire bytes the response
// was (nominally) decoded from, for scenarios that need HandleResponse to
// see real frame bytes rather than just the typed message — initialize's
// capability extension decode in particular.
func (f *fakeConn) respondSuccessRaw(t *testing.T, seq int, cmd constants.Command, resp dap.ResponseMessage, raw json.RawMessage) {
	t.Helper()
	r := resp.GetResponse()
	r.RequestSeq = seq
	r.Command = string(cmd)
	r.Success = true
	require.NoError(t, f.handler.HandleResponse(resp, raw))
}

func TestScenario_HappyPathLaunch(t *testing.T) {
	fc := newFakeConn()
	require.NoError(t, fc.state.Spawn())

	initSeq, err := fc.queue.Enqueue(constants.CommandInitialize, fc.caps.Client.ToArguments(), NoDependency(), NoContext())
	require.NoError(t, err)
	launchArgs := map[string]interface{}{"program": "/tmp/a.out"}
	launchSeq, err := fc.queue.Enqueue(constants.CommandLaunch, launchArgs, AfterSeq(initSeq), NoContext())
	require.NoError(t, err)
	_, err = fc.queue.Enqueue(constants.CommandConfigurationDone, nil, AfterEvent(constants.EventInitialized), NoContext())
	require.NoError(t, err)

	batch := fc.drain(t)
	require.Len(t, batch, 1, "only initialize is sendable first")
	assert.Equal(t, initSeq, batch[0].Seq)

	fc.respondSuccessRaw(t, initSeq, constants.CommandInitialize, &dap.InitializeResponse{},
		json.RawMessage(`{"body":{"supportsConfigurationDoneRequest":true}}`))
	assert.Equal(t, StatePartiallyInitialized, fc.state.State())

	batch = fc.drain(t)
	require.Len(t, batch, 1, "launch becomes sendable once initialize is handled")
	assert.Equal(t, constants.CommandLaunch, batch[0].Command)
	assert.JSONEq(t, `{"program":"/tmp/a.out"}`, string(batch[0].Arena()))

	batch = fc.drain(t)
	assert.Empty(t, batch, "configurationDone still waits on the initialized event")

	require.NoError(t, fc.handler.HandleEvent(&dap.InitializedEvent{Event: dap.Event{Event: string(constants.EventInitialized)}}))
	batch = fc.drain(t)
	require.Len(t, batch, 1)
	assert.Equal(t, constants.CommandConfigurationDone, batch[0].Command)

	fc.respondSuccess(t, launchSeq, constants.CommandLaunch, &dap.LaunchResponse{})
	assert.Equal(t, StateLaunched, fc.state.State())
}

func TestScenario_CapabilityGatedTerminate(t *testing.T) {
	fc := newFakeConn()
	require.NoError(t, fc.state.Spawn())
	require.NoError(t, fc.state.BeginSendInitialize())
	fc.state.HandleInitializeResponse()
	fc.state.HandleLaunchResponse()
	ac, err := NewAdapterCapabilities([]byte(`{"supportsTerminateRequest": false}`))
	require.NoError(t, err)
	fc.caps.SetAdapter(ac)

	_, err = fc.queue.Enqueue(constants.CommandTerminate, nil, NoDependency(), NoContext())
	require.NoError(t, err)
	batch := fc.drain(t)
	assert.Empty(t, batch, "terminate stays pending: adapter does not support it")
	assert.Equal(t, 1, fc.queue.PendingLen())
}

func TestScenario_StackTraceFanOut(t *testing.T) {
	fc := newFakeConn()
	require.NoError(t, fc.state.Spawn())
	require.NoError(t, fc.state.BeginSendInitialize())
	fc.state.HandleInitializeResponse()
	fc.state.HandleLaunchResponse()

	stSeq, err := fc.queue.Enqueue(constants.CommandStackTrace, &dap.StackTraceArguments{ThreadId: 7}, NoDependency(), StackTraceContext(7, true, true))
	require.NoError(t, err)
	batch := fc.drain(t)
	require.Len(t, batch, 1)

	fc.respondSuccess(t, stSeq, constants.CommandStackTrace, &dap.StackTraceResponse{
		Body: dap.StackTraceResponseBody{StackFrames: []dap.StackFrame{{Id: 100}, {Id: 101}}},
	})

	batch = fc.drain(t)
	require.Len(t, batch, 2, "stackTrace response fans out to one scopes request per frame")
	var frameIDs []int
	for _, req := range batch {
		var args dap.ScopesArguments
		require.NoError(t, json.Unmarshal(req.Arena(), &args))
		frameIDs = append(frameIDs, args.FrameId)
	}
	assert.ElementsMatch(t, []int{100, 101}, frameIDs)

	scopesSeq := batch[0].Seq
	fc.respondSuccess(t, scopesSeq, constants.CommandScopes, &dap.ScopesResponse{
		Body: dap.ScopesResponseBody{Scopes: []dap.Scope{{Name: "Locals", VariablesReference: 9}}},
	})
	batch = fc.drain(t)
	require.Len(t, batch, 1, "scopes response fans out to one variables request per scope")
	assert.Equal(t, constants.CommandVariables, batch[0].Command)
}

func TestScenario_StepChain(t *testing.T) {
	fc := newFakeConn()
	require.NoError(t, fc.state.Spawn())
	require.NoError(t, fc.state.BeginSendInitialize())
	fc.state.HandleInitializeResponse()
	fc.state.HandleLaunchResponse()
	fc.data.UpsertThread(3, "main")
	fc.data.SetThreadUnlocked(3, true)

	nextSeq, err := fc.queue.Enqueue(constants.CommandNext,
		&nextArgs{ThreadId: 3, SingleThread: true, Granularity: string(GranularityLine)},
		NoDependency(), NextContext(3, true, false, false))
	require.NoError(t, err)
	batch := fc.drain(t)
	require.Len(t, batch, 1)

	fc.respondSuccess(t, nextSeq, constants.CommandNext, &dap.NextResponse{})
	th, ok := fc.data.Thread(3)
	require.True(t, ok)
	assert.False(t, th.Unlocked)

	batch = fc.drain(t)
	require.Len(t, batch, 1, "next response chains a stackTrace fetch")
	assert.Equal(t, constants.CommandStackTrace, batch[0].Command)
}

func TestScenario_DisconnectHandshake(t *testing.T) {
	fc := newFakeConn()
	require.NoError(t, fc.state.Spawn())
	require.NoError(t, fc.state.BeginSendInitialize())
	fc.state.HandleInitializeResponse()
	fc.state.HandleLaunchResponse()

	discSeq, err := fc.queue.Enqueue(constants.CommandDisconnect, &disconnectArgs{Restart: false}, NoDependency(), NoContext())
	require.NoError(t, err)
	fc.drain(t)

	fc.respondSuccess(t, discSeq, constants.CommandDisconnect, &dap.DisconnectResponse{})
	assert.Equal(t, StateInitialized, fc.state.State())
}

func TestScenario_UnregisteredRequestSeqRejected(t *testing.T) {
	fc := newFakeConn()
	require.NoError(t, fc.state.Spawn())
	require.NoError(t, fc.state.BeginSendInitialize())

	resp := &dap.InitializeResponse{}
	resp.RequestSeq = 999
	resp.Command = string(constants.CommandInitialize)
	resp.Success = true
	err := fc.handler.HandleResponse(resp, nil)
	assert.Error(t, err, "a response whose request_seq was never enqueued must be rejected")
}

// TestScenario_InitializeCapabilityExtensionDecode exercises the real path
// an initialize response takes: HandleResponse is given the raw wire bytes
// (as protocol.Codec.PollFrame would hand Connection.Tick), not a re-marshal
// of the already-typed dap.InitializeResponse.Body — proving the extension
// fields (added to the DAP schema after go-dap v0.12.0's Capabilities
// struct was written) actually survive into CapabilityRegistry.Adapter.
func TestScenario_InitializeCapabilityExtensionDecode(t *testing.T) {
	fc := newFakeConn()
	require.NoError(t, fc.state.Spawn())

	_, err := fc.queue.Enqueue(constants.CommandInitialize, fc.caps.Client.ToArguments(), NoDependency(), NoContext())
	require.NoError(t, err)
	fc.drain(t)

	raw := json.RawMessage(`{
		"seq": 2,
		"type": "response",
		"request_seq": 1,
		"success": true,
		"command": "initialize",
		"body": {
			"supportsConfigurationDoneRequest": true,
			"supportsInstructionBreakpoints": true,
			"supportsWriteMemoryRequest": true,
			"supportsSingleThreadExecutionRequests": true,
			"breakpointModes": [{"mode": "hardware", "label": "Hardware"}]
		}
	}`)
	fc.respondSuccessRaw(t, 1, constants.CommandInitialize, &dap.InitializeResponse{}, raw)

	assert.True(t, fc.caps.Adapter.SupportsConfigurationDoneRequest, "standard dap.Capabilities field")
	assert.True(t, fc.caps.Adapter.SupportsInstructionBreakpoints(), "extension field")
	assert.True(t, fc.caps.Adapter.SupportsWriteMemoryRequest(), "extension field")
	assert.True(t, fc.caps.Adapter.SupportsSingleThreadExecutionRequests(), "extension field")
	assert.True(t, fc.caps.IsRequestAllowed(constants.CommandSetInstructionBreakpoints))
	assert.True(t, fc.caps.IsRequestAllowed(constants.CommandWriteMemory))
}
