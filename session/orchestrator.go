package session

import (
	"context"
	"fmt"
	"time"

	"github.com/fansqz/dapclient/constants"
	"github.com/fansqz/dapclient/errs"
	"github.com/fansqz/dapclient/protocol"
	"github.com/google/go-dap"
	"github.com/sirupsen/logrus"
)

// defaultEndSessionTimeout bounds how long EndSession waits for the
// adapter to answer terminate/disconnect before escalating to Kill.
const defaultEndSessionTimeout = 5 * time.Second

// Granularity is the stepping precision requested of the adapter.
type Granularity string

const (
	GranularityLine        Granularity = "line"
	GranularityStatement    Granularity = "statement"
	GranularityInstruction  Granularity = "instruction"
)

// EndHow selects how end-session tears the debuggee down.
type EndHow int

const (
	EndTerminate EndHow = iota
	EndDisconnect
)

// nextArgs mirrors DAP's NextArguments plus the singleThread/granularity
// fields spec.md's step() calls for; go-dap v0.12.0's NextArguments lacks
// them, so this engine defines its own wire shape rather than wait on a
// library upgrade, the same way protocol.OutboundRequest sidesteps missing
// per-command structs generally.
type nextArgs struct {
	ThreadId     int    `json:"threadId"`
	SingleThread bool   `json:"singleThread,omitempty"`
	Granularity  string `json:"granularity,omitempty"`
}

// disconnectArgs mirrors DAP's DisconnectArguments with terminateDebuggee/
// suspendDebuggee modeled as *bool so omitempty reproduces "field absent",
// the wire equivalent of the null spec.md asks for.
type disconnectArgs struct {
	Restart           bool  `json:"restart,omitempty"`
	TerminateDebuggee *bool `json:"terminateDebuggee,omitempty"`
	SuspendDebuggee   *bool `json:"suspendDebuggee,omitempty"`
}

// Orchestrator implements the composite operations from spec.md §4.8 as
// short enqueue chains against one Connection. It carries no state beyond
// the connection it wraps and EndSession's watchdog timeout — every operation is an enqueue (or a handful of
// enqueues), never a blocking round trip; the caller's own Tick loop is
// what actually advances them.
type Orchestrator struct {
	conn            *Connection
	endSessionTimeout time.Duration
}

// NewOrchestrator wraps conn, with EndSession's watchdog escalation set to
// defaultEndSessionTimeout.
func NewOrchestrator(conn *Connection) *Orchestrator {
	return &Orchestrator{conn: conn, endSessionTimeout: defaultEndSessionTimeout}
}

// SetEndSessionTimeout overrides how long EndSession waits for the
// adapter's terminate/disconnect response before killing the process.
func (o *Orchestrator) SetEndSessionTimeout(d time.Duration) {
	o.endSessionTimeout = d
}

// BeginSession spawns the adapter if not already spawned, then enqueues
// initialize -> launch(after-seq(initialize)) -> configurationDone
// (after-event(initialized)).
func (o *Orchestrator) BeginSession(ctx context.Context, spawnOpts *protocol.AdapterSpawnOptions, launchExtra map[string]interface{}, debuggeeProgram string) error {
	if o.conn.State() == StateNotSpawned {
		if err := o.conn.Spawn(ctx, spawnOpts); err != nil {
			return err
		}
	}

	initSeq, err := o.conn.queue.Enqueue(constants.CommandInitialize,
		o.conn.caps.Client.ToArguments(), NoDependency(), NoContext())
	if err != nil {
		return fmt.Errorf("begin session: enqueue initialize: %w", err)
	}

	launchArgs := map[string]interface{}{}
	for k, v := range launchExtra {
		launchArgs[k] = v
	}
	launchArgs["program"] = debuggeeProgram
	if _, err := o.conn.queue.Enqueue(constants.CommandLaunch, launchArgs, AfterSeq(initSeq), NoContext()); err != nil {
		return fmt.Errorf("begin session: enqueue launch: %w", err)
	}

	if _, err := o.conn.queue.Enqueue(constants.CommandConfigurationDone, nil, AfterEvent(constants.EventInitialized), NoContext()); err != nil {
		return fmt.Errorf("begin session: enqueue configurationDone: %w", err)
	}
	return nil
}

// EndSession enqueues terminate or disconnect and arms a watchdog that
// kills the adapter process if neither a success nor a failure response to
// that request arrives within o.endSessionTimeout — an adapter that hangs
// on teardown shouldn't be able to wedge the session open indefinitely.
// Rejected with errs.ErrSessionNotStarted unless the connection is launched
// or attached.
func (o *Orchestrator) EndSession(how EndHow) error {
	switch o.conn.State() {
	case StateLaunched, StateAttached:
	default:
		return errs.ErrSessionNotStarted
	}

	var cmd constants.Command
	var enqueueErr error
	switch how {
	case EndTerminate:
		cmd = constants.CommandTerminate
		_, enqueueErr = o.conn.queue.Enqueue(cmd, &dap.TerminateArguments{Restart: false}, NoDependency(), NoContext())
	case EndDisconnect:
		cmd = constants.CommandDisconnect
		_, enqueueErr = o.conn.queue.Enqueue(cmd, &disconnectArgs{Restart: false}, NoDependency(), NoContext())
	default:
		return fmt.Errorf("end session: unknown how=%d", how)
	}
	if enqueueErr != nil {
		return enqueueErr
	}

	wd := NewWatchdog(o.endSessionTimeout, func() {
		logrus.Warnf("[Orchestrator] end session: command=%s did not answer within %s, killing adapter pid=%d", cmd, o.endSessionTimeout, o.conn.Pid())
		if err := o.conn.Kill(); err != nil {
			logrus.Errorf("[Orchestrator] end session: kill adapter: %v", err)
		}
	})
	o.conn.cb.OnResponse(cmd, StatusSuccess, func(dap.Message) { wd.Cancel() })
	o.conn.cb.OnResponse(cmd, StatusFailure, func(dap.Message) { wd.Cancel() })
	return nil
}

// FetchThreadState enqueues stackTrace for threadID with a retained context
// that fans out to scopes and then variables as each response lands.
func (o *Orchestrator) FetchThreadState(threadID int) error {
	_, err := o.conn.queue.Enqueue(constants.CommandStackTrace,
		&dap.StackTraceArguments{ThreadId: threadID},
		NoDependency(),
		StackTraceContext(threadID, true, true))
	return err
}

// Step enqueues a next request for every thread currently marked unlocked,
// each with a retained context that chains a follow-up stackTrace fetch.
// The unlocked set is snapshotted up front so a stopped/continued event
// landing mid-loop can't change which threads this call steps.
func (o *Orchestrator) Step(granularity Granularity) error {
	for _, id := range o.conn.data.UnlockedThreadIDs().Values() {
		threadID := id.(int)
		_, err := o.conn.queue.Enqueue(constants.CommandNext,
			&nextArgs{ThreadId: threadID, SingleThread: true, Granularity: string(granularity)},
			NoDependency(),
			NextContext(threadID, true, false, false))
		if err != nil {
			return err
		}
	}
	return nil
}

// Pause enqueues pause for threadID.
func (o *Orchestrator) Pause(threadID int) error {
	_, err := o.conn.queue.Enqueue(constants.CommandPause, &dap.PauseArguments{ThreadId: threadID}, NoDependency(), NoContext())
	return err
}

// Continue enqueues continue for threadID.
func (o *Orchestrator) Continue(threadID int) error {
	_, err := o.conn.queue.Enqueue(constants.CommandContinue, &dap.ContinueArguments{ThreadId: threadID}, NoDependency(), NoContext())
	return err
}

// SetBreakpoints enqueues setBreakpoints for a source, replacing whatever
// breakpoint set the adapter last reported for that path.
func (o *Orchestrator) SetBreakpoints(sourcePath string, lines []int, breakpoints []dap.SourceBreakpoint) error {
	_, err := o.conn.queue.Enqueue(constants.CommandSetBreakpoints,
		&dap.SetBreakpointsArguments{
			Source:      dap.Source{Path: sourcePath},
			Lines:       lines,
			Breakpoints: breakpoints,
		},
		NoDependency(), NoContext())
	return err
}

// FetchSources enqueues loadedSources, retaining context to replace the
// store's whole source list with the adapter's reported set. Gated by
// CapabilityRegistry.IsRequestAllowed like every other queued request — it
// stays pending until the adapter's initialize response has declared
// SupportsLoadedSourcesRequest.
func (o *Orchestrator) FetchSources() error {
	_, err := o.conn.queue.Enqueue(constants.CommandLoadedSources,
		&dap.LoadedSourcesArguments{},
		NoDependency(),
		LoadedSourcesContext())
	return err
}

// FetchSource enqueues a source request for either a path or a
// sourceReference, retaining context to write the result into the
// source-content map under the same key.
func (o *Orchestrator) FetchSource(path string, sourceReference int) error {
	_, err := o.conn.queue.Enqueue(constants.CommandSource,
		&dap.SourceArguments{Source: &dap.Source{Path: path, SourceReference: sourceReference}, SourceReference: sourceReference},
		NoDependency(),
		SourceContext(path, sourceReference))
	return err
}
