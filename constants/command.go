package constants

// Command is the closed enumeration of DAP request kinds this engine knows
// how to enqueue. The decode table below is the single source of truth the
// response handler consults to validate inbound command strings; property
// tests assert it stays complete against the constant list (see command_test.go).
type Command string

const (
	CommandInitialize                Command = "initialize"
	CommandLaunch                    Command = "launch"
	CommandAttach                    Command = "attach"
	CommandDisconnect                Command = "disconnect"
	CommandTerminate                 Command = "terminate"
	CommandConfigurationDone         Command = "configurationDone"
	CommandThreads                   Command = "threads"
	CommandStackTrace                Command = "stackTrace"
	CommandScopes                    Command = "scopes"
	CommandVariables                 Command = "variables"
	CommandSource                    Command = "source"
	CommandNext                      Command = "next"
	CommandStepIn                    Command = "stepIn"
	CommandStepOut                   Command = "stepOut"
	CommandContinue                  Command = "continue"
	CommandPause                     Command = "pause"
	CommandSetBreakpoints            Command = "setBreakpoints"
	CommandSetFunctionBreakpoints    Command = "setFunctionBreakpoints"
	CommandSetInstructionBreakpoints Command = "setInstructionBreakpoints"
	CommandSetExceptionBreakpoints   Command = "setExceptionBreakpoints"
	CommandEvaluate                  Command = "evaluate"
	CommandReadMemory                Command = "readMemory"
	CommandWriteMemory               Command = "writeMemory"
	CommandDisassemble               Command = "disassemble"
	CommandSetVariable               Command = "setVariable"
	CommandSetExpression             Command = "setExpression"
	CommandRestart                   Command = "restart"
	CommandRestartFrame              Command = "restartFrame"
	CommandGoto                      Command = "goto"
	CommandGotoTargets               Command = "gotoTargets"
	CommandStepInTargets             Command = "stepInTargets"
	CommandCompletions               Command = "completions"
	CommandModules                   Command = "modules"
	CommandLoadedSources             Command = "loadedSources"
	CommandBreakpointLocations       Command = "breakpointLocations"
	CommandLocations                 Command = "locations"
	CommandExceptionInfo             Command = "exceptionInfo"
	CommandDataBreakpointInfo        Command = "dataBreakpointInfo"
	CommandSetDataBreakpoints        Command = "setDataBreakpoints"
	CommandTerminateThreads          Command = "terminateThreads"
	CommandCancel                    Command = "cancel"
	CommandStepBack                  Command = "stepBack"
	CommandReverseContinue           Command = "reverseContinue"

	// Reverse requests: flow adapter -> client. Recognized on input,
	// never enqueued by this engine.
	CommandRunInTerminal  Command = "runInTerminal"
	CommandStartDebugging Command = "startDebugging"
)

// allCommands is the closed set backing the decode table and completeness
// tests. Keep in sync with the const block above.
var allCommands = []Command{
	CommandInitialize, CommandLaunch, CommandAttach, CommandDisconnect,
	CommandTerminate, CommandConfigurationDone, CommandThreads, CommandStackTrace,
	CommandScopes, CommandVariables, CommandSource, CommandNext, CommandStepIn,
	CommandStepOut, CommandContinue, CommandPause, CommandSetBreakpoints,
	CommandSetFunctionBreakpoints, CommandSetInstructionBreakpoints,
	CommandSetExceptionBreakpoints, CommandEvaluate, CommandReadMemory,
	CommandWriteMemory, CommandDisassemble, CommandSetVariable, CommandSetExpression,
	CommandRestart, CommandRestartFrame, CommandGoto, CommandGotoTargets,
	CommandStepInTargets, CommandCompletions, CommandModules, CommandLoadedSources,
	CommandBreakpointLocations, CommandLocations, CommandExceptionInfo,
	CommandDataBreakpointInfo, CommandSetDataBreakpoints, CommandTerminateThreads,
	CommandCancel, CommandStepBack, CommandReverseContinue,
	CommandRunInTerminal, CommandStartDebugging,
}

// commandTable maps every string a dap.Request.Command can carry to its
// Command constant. Used to validate inbound response commands without a
// chain of string comparisons.
var commandTable = func() map[string]Command {
	t := make(map[string]Command, len(allCommands))
	for _, c := range allCommands {
		t[string(c)] = c
	}
	return t
}()

// LookupCommand decodes a raw command string into its Command constant. ok
// is false for anything outside the closed enumeration.
func LookupCommand(raw string) (Command, bool) {
	c, ok := commandTable[raw]
	return c, ok
}

// IsReverseRequest reports whether command flows adapter -> client and must
// never be enqueued as an outbound request by this engine.
func IsReverseRequest(c Command) bool {
	return c == CommandRunInTerminal || c == CommandStartDebugging
}

// CommandTableSize exposes the decode table's size for completeness tests.
func CommandTableSize() int { return len(commandTable) }
