package store

import (
	"sync"

	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/emirpasic/gods/sets"
	"github.com/fansqz/dapclient/utils"
	"github.com/google/go-dap"
)

// ThreadInfo is a thread's last-known state, updated by the threads
// request/response and by stopped/continued/thread events.
type ThreadInfo struct {
	ID       int
	Name     string
	Unlocked bool // true once a stopped event names it, false once continued/resumed
	Stack    []dap.StackFrame
}

// Store is the session's retained data — everything the response handler's
// RetainedContext fan-out writes into and everything an orchestrator
// operation reads back out. Keyed maps use gods' linkedhashmap to keep
// insertion order stable for callers that iterate (e.g. printing threads in
// the order the adapter first reported them), the same ordered-container
// idiom the teacher leans on for its debugger state (utils/ds_util.go).
type Store struct {
	mu sync.RWMutex

	threads *linkedhashmap.Map // int -> *ThreadInfo

	scopesByFrame    *linkedhashmap.Map // int (frameID) -> []dap.Scope
	variablesByRef   *linkedhashmap.Map // int (variablesReference) -> []dap.Variable
	sourceContentByKey *linkedhashmap.Map // string (path or "ref:N") -> sourceContent
	sourcesByKey       *linkedhashmap.Map // string (path or "ref:N") -> dap.Source, first-seen order

	breakpointsBySource *linkedhashmap.Map // string (source path) -> []dap.Breakpoint
	functionBreakpoints []dap.Breakpoint

	modules *linkedhashmap.Map // int (module id) -> dap.Module

	output *arraylist.List // of dap.OutputEventBody, arrival order
}

// New returns an empty store.
func New() *Store {
	return &Store{
		threads:             linkedhashmap.New(),
		scopesByFrame:       linkedhashmap.New(),
		variablesByRef:      linkedhashmap.New(),
		sourceContentByKey:  linkedhashmap.New(),
		sourcesByKey:        linkedhashmap.New(),
		breakpointsBySource: linkedhashmap.New(),
		modules:             linkedhashmap.New(),
		output:              arraylist.New(),
	}
}

// UpsertThread records name for id, creating a ThreadInfo if this is the
// first time id has been seen.
func (s *Store) UpsertThread(id int, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.threads.Get(id); ok {
		t := v.(*ThreadInfo)
		t.Name = name
		return
	}
	s.threads.Put(id, &ThreadInfo{ID: id, Name: name})
}

// SetThreadUnlocked marks id stopped (true) or resumed (false).
func (s *Store) SetThreadUnlocked(id int, unlocked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.threads.Get(id)
	if !ok {
		t := &ThreadInfo{ID: id, Unlocked: unlocked}
		s.threads.Put(id, t)
		return
	}
	v.(*ThreadInfo).Unlocked = unlocked
}

// SetThreadStack replaces the retained stack trace for threadID.
func (s *Store) SetThreadStack(threadID int, frames []dap.StackFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.threads.Get(threadID)
	if !ok {
		t := &ThreadInfo{ID: threadID, Stack: frames}
		s.threads.Put(threadID, t)
		return
	}
	v.(*ThreadInfo).Stack = frames
}

// Thread returns the retained info for id, if known.
func (s *Store) Thread(id int) (*ThreadInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.threads.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*ThreadInfo), true
}

// Threads returns every retained thread in first-seen order.
func (s *Store) Threads() []*ThreadInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ThreadInfo, 0, s.threads.Size())
	s.threads.Each(func(_ interface{}, v interface{}) {
		out = append(out, v.(*ThreadInfo))
	})
	return out
}

// RemoveThread drops a thread that the adapter reported exited.
func (s *Store) RemoveThread(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads.Remove(id)
}

// UnlockedThreadIDs snapshots the currently-unlocked thread ids into a set,
// so a caller stepping "every unlocked thread" enqueues against a fixed
// membership instead of a live map that a concurrent stopped/continued
// event could still be mutating underneath the loop.
func (s *Store) UnlockedThreadIDs() sets.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var unlocked []int
	s.threads.Each(func(_ interface{}, v interface{}) {
		t := v.(*ThreadInfo)
		if t.Unlocked {
			unlocked = append(unlocked, t.ID)
		}
	})
	return utils.List2set(unlocked)
}

// SetScopes replaces the retained scopes for frameID.
func (s *Store) SetScopes(frameID int, scopes []dap.Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scopesByFrame.Put(frameID, scopes)
}

// Scopes returns the retained scopes for frameID, if any.
func (s *Store) Scopes(frameID int) ([]dap.Scope, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.scopesByFrame.Get(frameID)
	if !ok {
		return nil, false
	}
	return v.([]dap.Scope), true
}

// SetVariables replaces the retained variables under reference.
func (s *Store) SetVariables(reference int, vars []dap.Variable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variablesByRef.Put(reference, vars)
}

// Variables returns the retained variables under reference, if any.
func (s *Store) Variables(reference int) ([]dap.Variable, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.variablesByRef.Get(reference)
	if !ok {
		return nil, false
	}
	return v.([]dap.Variable), true
}

// sourceKey normalizes a path/sourceReference pair to a single lookup key,
// preferring path when both are given (matches how dap.Source itself treats
// the pair: path identifies a file, sourceReference identifies adapter-held
// content with no backing file).
func sourceKey(path string, sourceReference int) string {
	if path != "" {
		return "path:" + path
	}
	return "ref:" + itoa(sourceReference)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// SourceContent is the retained body of a source request: the text itself
// plus Mtime, a Unix timestamp supplied by the caller of SetSourceContent.
// The adapter's source response carries no modification time; the response
// handler stamps the time the content was fetched.
type SourceContent struct {
	Content string
	Mtime   int64
}

// SetSourceContent records fetched source text and its modification time
// under path or sourceReference.
func (s *Store) SetSourceContent(path string, sourceReference int, content string, mtime int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sourceContentByKey.Put(sourceKey(path, sourceReference), SourceContent{Content: content, Mtime: mtime})
}

// SourceContent returns previously fetched source text and its mtime, if any.
func (s *Store) SourceContent(path string, sourceReference int) (SourceContent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.sourceContentByKey.Get(sourceKey(path, sourceReference))
	if !ok {
		return SourceContent{}, false
	}
	return v.(SourceContent), true
}

// UpsertSource records or replaces a source descriptor, keyed the same way
// as its content (path wins over sourceReference) so a loadedSource event
// seen before or after a fetched loadedSources response de-duplicates
// against the same entry rather than appending a second one.
func (s *Store) UpsertSource(src dap.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sourcesByKey.Put(sourceKey(src.Path, src.SourceReference), src)
}

// SetSources replaces the retained source list wholesale — used when a
// loadedSources response arrives, which reports the adapter's complete set
// rather than an incremental addition the way a loadedSource event does.
func (s *Store) SetSources(sources []dap.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sourcesByKey.Clear()
	for _, src := range sources {
		s.sourcesByKey.Put(sourceKey(src.Path, src.SourceReference), src)
	}
}

// Sources returns every retained source descriptor in first-seen order.
func (s *Store) Sources() []dap.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]dap.Source, 0, s.sourcesByKey.Size())
	s.sourcesByKey.Each(func(_ interface{}, v interface{}) {
		out = append(out, v.(dap.Source))
	})
	return out
}

// SetBreakpoints replaces the retained breakpoint set for a source path.
func (s *Store) SetBreakpoints(sourcePath string, bps []dap.Breakpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.breakpointsBySource.Put(sourcePath, bps)
}

// Breakpoints returns the retained breakpoint set for a source path.
func (s *Store) Breakpoints(sourcePath string) ([]dap.Breakpoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.breakpointsBySource.Get(sourcePath)
	if !ok {
		return nil, false
	}
	return v.([]dap.Breakpoint), true
}

// SetFunctionBreakpoints replaces the retained function-breakpoint set.
func (s *Store) SetFunctionBreakpoints(bps []dap.Breakpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.functionBreakpoints = bps
}

// FunctionBreakpoints returns the retained function-breakpoint set.
func (s *Store) FunctionBreakpoints() []dap.Breakpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.functionBreakpoints
}

// UpsertModule records or updates a loaded module.
func (s *Store) UpsertModule(m dap.Module) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules.Put(m.Id, m)
}

// Modules returns every retained module in first-seen order.
func (s *Store) Modules() []dap.Module {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]dap.Module, 0, s.modules.Size())
	s.modules.Each(func(_ interface{}, v interface{}) {
		out = append(out, v.(dap.Module))
	})
	return out
}

// AppendOutput retains an output event body in arrival order.
func (s *Store) AppendOutput(body dap.OutputEventBody) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output.Add(body)
}

// Output returns every retained output event in arrival order.
func (s *Store) Output() []dap.OutputEventBody {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]dap.OutputEventBody, 0, s.output.Size())
	s.output.Each(func(_ int, v interface{}) {
		out = append(out, v.(dap.OutputEventBody))
	})
	return out
}
