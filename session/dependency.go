package session

import "github.com/fansqz/dapclient/constants"

// DependencyKind tags which of the four Dependency shapes a request carries.
type DependencyKind int

const (
	// DepNone is sendable immediately.
	DepNone DependencyKind = iota
	// DepAfterSeq is sendable once a response to request seq Seq has been
	// handled.
	DepAfterSeq
	// DepAfterResponse is sendable once any response to command Command
	// has been handled. Matches ANY response to Command, not a specific
	// seq — deliberate, but a footgun in sequences that issue multiple
	// requests of the same command; see Dependency's doc comment.
	DepAfterResponse
	// DepAfterEvent is sendable once event Event has been observed.
	DepAfterEvent
)

// Dependency gates when a PendingRequest may leave the outbound queue.
//
// DepAfterResponse matches any response to Command, not a specific seq —
// use it only when the caller genuinely doesn't want to thread a seq
// through. In a sequence that issues the same command twice before the
// first is handled, DepAfterResponse is satisfied by either response.
// Prefer DepAfterSeq when that distinction matters.
type Dependency struct {
	Kind    DependencyKind
	Seq     int
	Command constants.Command
	Event   constants.Event
}

// NoDependency is sendable immediately.
func NoDependency() Dependency { return Dependency{Kind: DepNone} }

// AfterSeq is sendable once the response to seq has been handled.
func AfterSeq(seq int) Dependency { return Dependency{Kind: DepAfterSeq, Seq: seq} }

// AfterResponse is sendable once any response to cmd has been handled.
func AfterResponse(cmd constants.Command) Dependency {
	return Dependency{Kind: DepAfterResponse, Command: cmd}
}

// AfterEvent is sendable once ev has been observed.
func AfterEvent(ev constants.Event) Dependency {
	return Dependency{Kind: DepAfterEvent, Event: ev}
}

// RetainedContextKind tags which follow-on-work shape a RetainedContext
// carries.
type RetainedContextKind int

const (
	ContextNone RetainedContextKind = iota
	ContextStackTrace
	ContextScopes
	ContextVariables
	ContextSource
	ContextNext
	ContextLoadedSources
)

// RetainedContext is the follow-up work a response should trigger, stored
// alongside the request at enqueue time and cloned into the session-long
// arena so the response handler never reaches into a freed per-request
// payload (see DESIGN.md's session/request.go entry on per-request arenas).
type RetainedContext struct {
	Kind RetainedContextKind

	// StackTrace / Next
	ThreadID int

	// Scopes
	FrameID int

	// Variables
	VariablesReference int

	// Source
	SourcePath            string
	SourceReferenceNumber int

	AlsoFetchStackTrace bool
	AlsoFetchScopes     bool
	AlsoFetchVariables  bool
}

// NoContext carries no follow-on work.
func NoContext() RetainedContext { return RetainedContext{Kind: ContextNone} }

// StackTraceContext schedules scopes fetches per returned frame when
// alsoFetchScopes is set, which in turn schedules variables fetches per
// scope when alsoFetchVariables is set.
func StackTraceContext(threadID int, alsoFetchScopes, alsoFetchVariables bool) RetainedContext {
	return RetainedContext{
		Kind:               ContextStackTrace,
		ThreadID:           threadID,
		AlsoFetchScopes:    alsoFetchScopes,
		AlsoFetchVariables: alsoFetchVariables,
	}
}

// ScopesContext schedules a variables fetch per returned scope when
// alsoFetchVariables is set.
func ScopesContext(frameID int, alsoFetchVariables bool) RetainedContext {
	return RetainedContext{
		Kind:               ContextScopes,
		FrameID:            frameID,
		AlsoFetchVariables: alsoFetchVariables,
	}
}

// VariablesContext ingests the returned variables under reference.
func VariablesContext(reference int) RetainedContext {
	return RetainedContext{Kind: ContextVariables, VariablesReference: reference}
}

// SourceContext writes the fetched content into the source-content map
// keyed by path or sourceReference (whichever is non-zero).
func SourceContext(path string, sourceReference int) RetainedContext {
	return RetainedContext{
		Kind:                  ContextSource,
		SourcePath:            path,
		SourceReferenceNumber: sourceReference,
	}
}

// LoadedSourcesContext ingests a loadedSources response's complete source
// list, replacing whatever incremental loadedSource events had built up.
func LoadedSourcesContext() RetainedContext {
	return RetainedContext{Kind: ContextLoadedSources}
}

// NextContext marks the stepped thread locked once the next response is
// handled and optionally chains a stackTrace request. It records no UI
// intent ("scroll to active line" / "update active source"); the store has
// no fields for those.
func NextContext(threadID int, alsoFetchStackTrace, alsoFetchScopes, alsoFetchVariables bool) RetainedContext {
	return RetainedContext{
		Kind:                 ContextNext,
		ThreadID:             threadID,
		AlsoFetchStackTrace:  alsoFetchStackTrace,
		AlsoFetchScopes:      alsoFetchScopes,
		AlsoFetchVariables:   alsoFetchVariables,
	}
}
