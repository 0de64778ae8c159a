package errs

import "errors"

// Sentinel errors for the protocol engine's error taxonomy. Callers
// distinguish fatal from per-request errors with errors.Is against these,
// not by string comparison — call sites wrap them with %w plus context.
var (
	// ErrProtocolError covers framing, JSON, and schema violations on the
	// wire. Fatal to the session.
	ErrProtocolError = errors.New("dap: protocol error")

	// ErrAdapterNotSpawned / ErrAdapterAlreadySpawned are lifecycle misuse.
	ErrAdapterNotSpawned      = errors.New("dap: adapter not spawned")
	ErrAdapterAlreadySpawned  = errors.New("dap: adapter already spawned")
	ErrAdapterNotDoneInitializing = errors.New("dap: adapter not done initializing")

	// ErrAdapterDoesNotSupportRequest is the capability gate's rejection.
	ErrAdapterDoesNotSupportRequest = errors.New("dap: adapter does not support request")

	// ErrDependencyNotSatisfied is reported per-request by drain; non-fatal.
	ErrDependencyNotSatisfied = errors.New("dap: dependency not satisfied")

	// ErrRequestFailed means the adapter answered with success=false.
	ErrRequestFailed = errors.New("dap: request failed")

	// ErrRequestResponseMismatch means request_seq or command disagreed
	// with the ExpectedResponse on file. Fatal.
	ErrRequestResponseMismatch = errors.New("dap: request/response mismatch")

	// ErrResponseDoesNotExist / ErrEventDoesNotExist are correlation
	// misses, treated as bug guards.
	ErrResponseDoesNotExist = errors.New("dap: response does not exist")
	ErrEventDoesNotExist    = errors.New("dap: event does not exist")

	// ErrSessionNotStarted is returned by end_session before launch/attach.
	ErrSessionNotStarted = errors.New("dap: session not started")

	// ErrSeqOverflow is the fatal condition of the 32-bit seq counter
	// wrapping around; unreachable in practice.
	ErrSeqOverflow = errors.New("dap: sequence counter overflow")

	// ErrInvalidMessage is returned when an inbound frame is not a JSON
	// object with a recognizable type field.
	ErrInvalidMessage = errors.New("dap: invalid message")
)
