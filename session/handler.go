package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fansqz/dapclient/constants"
	"github.com/fansqz/dapclient/errs"
	"github.com/fansqz/dapclient/store"
	"github.com/google/go-dap"
	"github.com/sirupsen/logrus"
)

// Handler turns polled frames into state transitions, store writes, and
// follow-up enqueues. It holds no state of its own beyond what it's handed
// on each call — Connection owns the Queue/History/StateMachine/Store and
// is the only thing that constructs one.
type Handler struct {
	queue *Queue
	hist  *History
	state *StateMachine
	caps  *CapabilityRegistry
	data  *store.Store
	cb    *Callbacks
}

// NewHandler binds a handler to one connection's components.
func NewHandler(queue *Queue, hist *History, state *StateMachine, caps *CapabilityRegistry, data *store.Store, cb *Callbacks) *Handler {
	return &Handler{queue: queue, hist: hist, state: state, caps: caps, data: data, cb: cb}
}

// HandleResponse validates resp against its ExpectedResponse, records it
// into History, drives the StateMachine on initialize/launch/attach/
// disconnect, and fans its body out into the store and any follow-up
// requests its RetainedContext calls for. raw is the exact wire bytes resp
// was decoded from (protocol.Codec.PollFrame's second return), needed by
// driveSuccessState to recover initialize-response capability fields
// go-dap's typed dap.Capabilities doesn't know about; it may be nil (a
// caller that doesn't have the raw frame, e.g. a synthetic response in a
// test) and every body other than initialize's ignores it entirely.
func (h *Handler) HandleResponse(resp dap.ResponseMessage, raw json.RawMessage) error {
	r := resp.GetResponse()

	exp, ok := h.queue.Lookup(r.RequestSeq)
	if !ok {
		return fmt.Errorf("request_seq=%d: %w", r.RequestSeq, errs.ErrResponseDoesNotExist)
	}
	cmd, known := constants.LookupCommand(r.Command)
	if !known || cmd != exp.Command {
		return fmt.Errorf("request_seq=%d: wire command %q, expected %q: %w", r.RequestSeq, r.Command, exp.Command, errs.ErrRequestResponseMismatch)
	}

	status := StatusSuccess
	if !r.Success {
		status = StatusFailure
	}
	h.hist.RecordHandled(HandledResponse{Expected: *exp, Status: status}, resp)
	h.queue.Resolve(r.RequestSeq)
	h.cb.fireResponse(cmd, status, resp)

	if !r.Success {
		logrus.Warnf("[Handler] response seq=%d command=%s failed: %s", r.RequestSeq, r.Command, r.Message)
		h.driveFailureState(cmd)
		return fmt.Errorf("command=%s message=%q: %w", r.Command, r.Message, errs.ErrRequestFailed)
	}

	h.driveSuccessState(cmd, resp, raw)
	return h.fanOut(cmd, exp.RetainedContext, resp)
}

func (h *Handler) driveSuccessState(cmd constants.Command, resp dap.ResponseMessage, raw json.RawMessage) {
	switch cmd {
	case constants.CommandInitialize:
		h.state.HandleInitializeResponse()
		body, err := rawResponseBody(raw)
		if err != nil {
			logrus.Errorf("[Handler] extract initialize response body: %v", err)
			break
		}
		ac, err := NewAdapterCapabilities(body)
		if err != nil {
			logrus.Errorf("[Handler] decode adapter capabilities: %v", err)
			break
		}
		h.caps.SetAdapter(ac)
	case constants.CommandLaunch:
		h.state.HandleLaunchResponse()
	case constants.CommandAttach:
		h.state.HandleAttachResponse()
	case constants.CommandDisconnect:
		h.state.HandleDisconnectResponse(true)
	}
}

func (h *Handler) driveFailureState(cmd constants.Command) {
	if cmd == constants.CommandDisconnect {
		h.state.HandleDisconnectResponse(false)
	}
}

// fanOut decodes resp's body against retained context and writes the
// result into the store, enqueuing whatever follow-up requests the context
// calls for (stackTrace -> scopes -> variables, scopes -> variables).
func (h *Handler) fanOut(cmd constants.Command, ctx RetainedContext, resp dap.ResponseMessage) error {
	switch ctx.Kind {
	case ContextNone:
		return nil

	case ContextStackTrace:
		r, ok := resp.(*dap.StackTraceResponse)
		if !ok {
			return nil
		}
		h.data.SetThreadStack(ctx.ThreadID, r.Body.StackFrames)
		if !ctx.AlsoFetchScopes {
			return nil
		}
		for _, frame := range r.Body.StackFrames {
			_, err := h.queue.Enqueue(constants.CommandScopes,
				&dap.ScopesArguments{FrameId: frame.Id},
				NoDependency(),
				ScopesContext(frame.Id, ctx.AlsoFetchVariables))
			if err != nil {
				return err
			}
		}
		return nil

	case ContextScopes:
		r, ok := resp.(*dap.ScopesResponse)
		if !ok {
			return nil
		}
		h.data.SetScopes(ctx.FrameID, r.Body.Scopes)
		if !ctx.AlsoFetchVariables {
			return nil
		}
		for _, scope := range r.Body.Scopes {
			_, err := h.queue.Enqueue(constants.CommandVariables,
				&dap.VariablesArguments{VariablesReference: scope.VariablesReference},
				NoDependency(),
				VariablesContext(scope.VariablesReference))
			if err != nil {
				return err
			}
		}
		return nil

	case ContextVariables:
		r, ok := resp.(*dap.VariablesResponse)
		if !ok {
			return nil
		}
		h.data.SetVariables(ctx.VariablesReference, r.Body.Variables)
		return nil

	case ContextSource:
		r, ok := resp.(*dap.SourceResponse)
		if !ok {
			return nil
		}
		h.data.SetSourceContent(ctx.SourcePath, ctx.SourceReferenceNumber, r.Body.Content, time.Now().Unix())
		return nil

	case ContextLoadedSources:
		r, ok := resp.(*dap.LoadedSourcesResponse)
		if !ok {
			return nil
		}
		h.data.SetSources(r.Body.Sources)
		return nil

	case ContextNext:
		h.data.SetThreadUnlocked(ctx.ThreadID, false)
		if !ctx.AlsoFetchStackTrace {
			return nil
		}
		_, err := h.queue.Enqueue(constants.CommandStackTrace,
			&dap.StackTraceArguments{ThreadId: ctx.ThreadID},
			NoDependency(),
			StackTraceContext(ctx.ThreadID, ctx.AlsoFetchScopes, ctx.AlsoFetchVariables))
		return err
	}
	return nil
}

// HandleEvent applies ev's effects to state/store and records it observed,
// satisfying any DepAfterEvent waiting on it.
func (h *Handler) HandleEvent(ev dap.EventMessage) error {
	e := ev.GetEvent()
	name, known := constants.LookupEvent(e.Event)
	if !known {
		return fmt.Errorf("event=%q: %w", e.Event, errs.ErrEventDoesNotExist)
	}
	h.hist.RecordEvent(name)
	h.cb.fireEvent(name, ev)

	switch name {
	case constants.EventInitialized:
		h.state.ObserveInitializedEvent()

	case constants.EventStopped:
		se := ev.(*dap.StoppedEvent)
		if se.Body.ThreadId != 0 {
			h.data.SetThreadUnlocked(se.Body.ThreadId, true)
		}
		if se.Body.AllThreadsStopped {
			for _, t := range h.data.Threads() {
				h.data.SetThreadUnlocked(t.ID, true)
			}
		}

	case constants.EventContinued:
		ce := ev.(*dap.ContinuedEvent)
		if ce.Body.AllThreadsContinued {
			for _, t := range h.data.Threads() {
				h.data.SetThreadUnlocked(t.ID, false)
			}
		} else {
			h.data.SetThreadUnlocked(ce.Body.ThreadId, false)
		}

	case constants.EventThread:
		te := ev.(*dap.ThreadEvent)
		switch te.Body.Reason {
		case "started":
			h.data.UpsertThread(te.Body.ThreadId, "")
		case "exited":
			h.data.RemoveThread(te.Body.ThreadId)
		}

	case constants.EventOutput:
		oe := ev.(*dap.OutputEvent)
		h.data.AppendOutput(oe.Body)

	case constants.EventModule:
		me := ev.(*dap.ModuleEvent)
		if me.Body.Reason != "removed" {
			h.data.UpsertModule(me.Body.Module)
		}

	case constants.EventBreakpoint:
		be := ev.(*dap.BreakpointEvent)
		if path := be.Body.Breakpoint.Source.Path; path != "" {
			existing, _ := h.data.Breakpoints(path)
			h.data.SetBreakpoints(path, append(existing, be.Body.Breakpoint))
		}

	case constants.EventLoadedSource:
		le := ev.(*dap.LoadedSourceEvent)
		if le.Body.Reason != "removed" {
			h.data.UpsertSource(le.Body.Source)
		}

	case constants.EventExited, constants.EventTerminated:
		// terminal events: no store write, the connection layer observes
		// these through History.EventObserved to decide the session is over.
	}
	return nil
}

// rawResponseBody pulls the "body" field out of a raw DAP response frame,
// ahead of go-dap's typed decode into dap.Capabilities (which silently
// drops any field it doesn't declare, e.g. the DAP 1.65+ additions
// NewAdapterCapabilities recovers). A nil/empty raw or a response with no
// body field returns a nil body, not an error — initialize responses from
// adapters that report zero capabilities are valid DAP, and the caller
// treats a nil body as "nothing to decode".
func rawResponseBody(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var env struct {
		Body json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal response envelope: %w", err)
	}
	return env.Body, nil
}
