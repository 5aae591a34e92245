package engine

import (
	"sync"
	"time"

	"github.com/flowloom/rivulet/model"
)

// State is the C6 ExecutionState: thread-safe per-run bookkeeping of
// node status, edge snapshots, and the append-only run log. Observers
// (a UI) may subscribe via Subscribe() but never drive engine decisions
// (§4.6) — the engine reads its own writes directly, never through the
// observer channel.
type State struct {
	mu sync.RWMutex

	results map[model.ID]*model.NodeResult
	edges   map[model.ID]model.EdgeSnapshot
	log     []model.LogEntry

	running   bool
	paused    bool
	runStart  time.Time
	runEnd    time.Time

	subs []chan struct{}
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		results: make(map[model.ID]*model.NodeResult),
		edges:   make(map[model.ID]model.EdgeSnapshot),
	}
}

// StartRun resets the store for a fresh run over the given node ids
// (invariant: a node's status monotonically advances within one run —
// StartRun is the only place statuses reset, because it begins a new
// run).
func (s *State) StartRun(nodeIDs []model.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = make(map[model.ID]*model.NodeResult, len(nodeIDs))
	for _, id := range nodeIDs {
		s.results[id] = &model.NodeResult{Status: model.StatusPending}
	}
	s.edges = make(map[model.ID]model.EdgeSnapshot)
	s.log = nil
	s.running = true
	s.paused = false
	s.runStart = time.Now()
	s.runEnd = time.Time{}
	s.notify()
}

// ClearResults drops all per-run bookkeeping without starting a new run.
func (s *State) ClearResults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = make(map[model.ID]*model.NodeResult)
	s.edges = make(map[model.ID]model.EdgeSnapshot)
	s.log = nil
	s.running = false
}

func (s *State) EndRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.runEnd = time.Now()
	s.notify()
}

func (s *State) SetRunning(v bool) {
	s.mu.Lock()
	s.running = v
	s.mu.Unlock()
}

func (s *State) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *State) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

func (s *State) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

func (s *State) IsPaused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

func (s *State) RunWindow() (start, end time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runStart, s.runEnd
}

// SetNodeRunning transitions a node pending -> running.
func (s *State) SetNodeRunning(id model.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.result(id)
	r.Status = model.StatusRunning
	r.StartTime = time.Now()
	s.notify()
}

// SetNodeSuccess transitions a node to success and records its output.
// It is a no-op (by invariant 2) if the node already reached a terminal
// status in this run.
func (s *State) SetNodeSuccess(id model.ID, output any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.result(id)
	if r.Status == model.StatusSuccess || r.Status == model.StatusError {
		return
	}
	r.Status = model.StatusSuccess
	r.Output = output
	r.EndTime = time.Now()
	s.notify()
}

// SetNodeError transitions a node to error and records the cause.
func (s *State) SetNodeError(id model.ID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.result(id)
	if r.Status == model.StatusSuccess || r.Status == model.StatusError {
		return
	}
	r.Status = model.StatusError
	r.Err = err
	r.EndTime = time.Now()
	s.notify()
}

func (s *State) result(id model.ID) *model.NodeResult {
	r, ok := s.results[id]
	if !ok {
		r = &model.NodeResult{Status: model.StatusPending}
		s.results[id] = r
	}
	return r
}

// GetResult returns a copy of the node's current result record.
func (s *State) GetResult(id model.ID) model.NodeResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.results[id]; ok {
		return *r
	}
	return model.NodeResult{Status: model.StatusPending}
}

// Status is a convenience accessor over GetResult.
func (s *State) Status(id model.ID) model.NodeStatus {
	return s.GetResult(id).Status
}

// AnyRunning reports whether any node is currently mid-execution —
// cancellation invariant 4 polls this.
func (s *State) AnyRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.Status == model.StatusRunning {
			return true
		}
	}
	return false
}

// SetEdgeSnapshot records the value an edge carried when its source
// succeeded. Invariant 3: written at most once per run per edge.
func (s *State) SetEdgeSnapshot(edgeID model.ID, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.edges[edgeID]; exists {
		return
	}
	s.edges[edgeID] = model.EdgeSnapshot{Data: data, Timestamp: time.Now()}
}

// EdgeSnapshot returns the recorded snapshot for an edge, if any.
func (s *State) EdgeSnapshot(edgeID model.ID) (model.EdgeSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.edges[edgeID]
	return snap, ok
}

// AddLog appends one entry to the run log.
func (s *State) AddLog(nodeID model.ID, level model.LogLevel, message string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, model.LogEntry{
		NodeID: nodeID, Timestamp: time.Now(), Level: level, Message: message, Data: data,
	})
	s.notify()
}

// Log returns a copy of the run log so far.
func (s *State) Log() []model.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.LogEntry, len(s.log))
	copy(out, s.log)
	return out
}

// Subscribe registers an observer channel that receives a signal (best
// effort, never blocks) on every state change. Intended for a UI layer;
// the engine never reads from these channels.
func (s *State) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func (s *State) notify() {
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
