package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
)

const defaultMaxParallel = 20

// Engine is the C7 ExecutionEngine: it owns no per-run state itself (that
// lives in a caller-supplied State), only the shared services every node
// executes against and the concurrency ceiling described in §5.
type Engine struct {
	deps        plugin.Deps
	maxParallel int
}

// New builds an Engine bound to deps. maxParallel defaults to 20,
// matching ClaraVerse's MaxParallelBlocks default.
func New(deps plugin.Deps) *Engine {
	return &Engine{deps: deps, maxParallel: defaultMaxParallel}
}

// SetMaxParallel overrides the concurrent-node ceiling; n <= 0 is ignored.
func (e *Engine) SetMaxParallel(n int) {
	if n > 0 {
		e.maxParallel = n
	}
}

// Run executes wf to completion against state, observing ctx cancellation
// as the run's single abort token (§5). It returns the first node error
// encountered (fail-fast propagation, §7) or nil on a fully successful
// run. Callers that want abort() semantics simply cancel ctx from another
// goroutine; Run itself never calls cancel.
func (e *Engine) Run(ctx context.Context, wf model.Workflow) (*State, error) {
	logger := e.deps.Logger()
	state := NewState()
	if len(wf.Nodes) == 0 {
		return state, model.NewError(model.ErrNoEntry, "workflow has no nodes")
	}
	g := BuildGraph(wf)
	if _, ok := g.TopoOrder(); !ok {
		return state, model.NewError(model.ErrCycleDetected, "workflow graph contains a cycle")
	}
	starts := g.StartNodes()
	if len(starts) == 0 {
		return state, model.NewError(model.ErrNoEntry, "workflow has no node with zero incoming edges")
	}

	logger.Info("run started", zap.String("workflow", string(wf.ID)), zap.Int("nodes", len(wf.Nodes)))

	ids := make([]model.ID, len(wf.Nodes))
	for i, n := range wf.Nodes {
		ids[i] = n.ID
	}
	state.StartRun(ids)
	defer state.EndRun()

	r := &run{
		eng:           e,
		wf:            wf,
		graph:         g,
		state:         state,
		unresolved:    make(map[model.ID]int, len(wf.Nodes)),
		settled:       make(map[model.ID]bool, len(wf.Nodes)),
		activeHandles: make(map[model.ID][]model.Port),
		mergeFiredSet: make(map[model.ID]bool),
		sem:           make(chan struct{}, e.maxParallel),
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	defer r.cancel()
	r.reentry = &reentry{r: r}

	for _, n := range wf.Nodes {
		r.unresolved[n.ID] = len(g.Upstream(n.ID))
		r.wg.Add(1)
	}

	for _, id := range starts {
		r.evaluate(id)
	}

	r.wg.Wait()
	err := r.firstErr()
	if err != nil {
		logger.Error("run finished with error", zap.String("workflow", string(wf.ID)), zap.Error(err))
	} else {
		logger.Info("run completed", zap.String("workflow", string(wf.ID)))
	}
	return state, err
}

// run is the mutable bookkeeping for a single Run call — everything
// below is private to this file; engine.State is the only part of it a
// caller ever observes.
type run struct {
	eng   *Engine
	wf    model.Workflow
	graph *Graph
	state *State

	ctx    context.Context
	cancel context.CancelFunc

	sem chan struct{}
	wg  sync.WaitGroup

	reentry *reentry

	mu            sync.Mutex
	unresolved    map[model.ID]int    // distinct upstream sources not yet settled
	settled       map[model.ID]bool   // node has reached a final disposition (ran, or permanently skipped)
	activeHandles map[model.ID][]model.Port
	mergeFiredSet map[model.ID]bool
	err           error
}

func (r *run) recordErr(err error) {
	r.mu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.mu.Unlock()
}

func (r *run) firstErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *run) handleActive(source model.ID, handle model.Port) bool {
	r.mu.Lock()
	handles, ok := r.activeHandles[source]
	r.mu.Unlock()
	if !ok || handles == nil {
		return true
	}
	for _, h := range handles {
		if h == handle {
			return true
		}
	}
	return false
}

// activeInputs gathers {sourceId -> output} for every edge whose source
// succeeded and whose handle survived conditional routing.
func (r *run) activeInputs(edges []model.Edge) map[string]any {
	out := make(map[string]any)
	for _, e := range edges {
		if r.state.Status(e.Source) != model.StatusSuccess {
			continue
		}
		if !r.handleActive(e.Source, e.SourceHandle) {
			continue
		}
		out[string(e.Source)] = r.state.GetResult(e.Source).Output
	}
	return out
}

// unwrapInputs applies the input-gathering rule verbatim: a single
// gathered input is passed as its bare value, otherwise the whole map.
func unwrapInputs(m map[string]any) any {
	if len(m) == 1 {
		for _, v := range m {
			return v
		}
	}
	return m
}

func mergeStrategy(node model.Node) string {
	if node.Data != nil {
		if v, ok := node.Data["mergeStrategy"].(string); ok && v != "" {
			return v
		}
	}
	return "object"
}

func (r *run) mergeFiredFlag(id model.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mergeFiredSet[id]
}

func (r *run) setMergeFired(id model.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mergeFiredSet == nil {
		r.mergeFiredSet = make(map[model.ID]bool)
	}
	if r.mergeFiredSet[id] {
		return false
	}
	r.mergeFiredSet[id] = true
	return true
}

func (r *run) clearMergeFired(id model.ID) {
	r.mu.Lock()
	delete(r.mergeFiredSet, id)
	r.mu.Unlock()
}

// tryFireFirstMerge is the immediate hook a succeeding node triggers for
// every downstream "first" merge — it must not wait for every upstream
// source to settle (§5 "any one upstream has success").
func (r *run) tryFireFirstMerge(id model.ID) {
	node, ok := r.wf.NodeByID(id)
	if !ok || node.Type != model.NodeMerge || mergeStrategy(node) != "first" {
		return
	}
	if !r.setMergeFired(id) {
		return
	}
	for _, e := range r.graph.IncomingEdges(id) {
		if r.state.Status(e.Source) == model.StatusSuccess && r.handleActive(e.Source, e.SourceHandle) {
			inputs := map[string]any{string(e.Source): r.state.GetResult(e.Source).Output}
			r.scheduleNode(id, node, unwrapInputs(inputs))
			return
		}
	}
	r.clearMergeFired(id)
}

// evaluate runs once every distinct upstream of id has settled (or
// immediately for nodes with no incoming edges). It decides whether id
// is scheduled, or permanently skipped (stays `pending`, §4.7 Conditional
// routing / §5 merge readiness).
func (r *run) evaluate(id model.ID) {
	node, ok := r.wf.NodeByID(id)
	if !ok {
		return
	}

	if node.Type == model.NodeMerge {
		r.evaluateMerge(id, node)
		return
	}

	edges := r.graph.IncomingEdges(id)
	if len(edges) == 0 {
		r.scheduleNode(id, node, nil)
		return
	}
	inputs := r.activeInputs(edges)
	if len(inputs) == 0 {
		// Every upstream settled but none offered an active edge into id —
		// unreachable this run; node stays `pending` forever.
		r.settle(id)
		return
	}
	r.scheduleNode(id, node, unwrapInputs(inputs))
}

func (r *run) evaluateMerge(id model.ID, node model.Node) {
	strategy := mergeStrategy(node)
	if strategy == "first" {
		if !r.mergeFiredFlag(id) {
			// No upstream ever succeeded for a "first" merge; it can never
			// fire and stays `pending`.
			r.settle(id)
		}
		return
	}

	sources := r.graph.Upstream(id)
	allSuccess := len(sources) > 0
	for src := range sources {
		if r.state.Status(src) != model.StatusSuccess {
			allSuccess = false
			break
		}
	}
	if !allSuccess {
		// A failed or skipped branch blocks a wait-all merge forever (§5).
		r.settle(id)
		return
	}
	if !r.setMergeFired(id) {
		return
	}
	inputs := r.activeInputs(r.graph.IncomingEdges(id))
	r.scheduleNode(id, node, unwrapInputs(inputs))
}

func (r *run) scheduleNode(id model.ID, node model.Node, inputs any) {
	go r.runNode(id, node, inputs)
}

// runNode is the body of one node's execution goroutine: pause gate,
// executor lookup, validate, execute, observing cancellation at every
// suspension point per §5.
func (r *run) runNode(id model.ID, node model.Node, inputs any) {
	select {
	case r.sem <- struct{}{}:
	case <-r.ctx.Done():
		r.finish(id, false, nil, model.NewError(model.ErrCancelled, "Execution aborted"), nil)
		return
	}
	defer func() { <-r.sem }()

	for r.state.IsPaused() {
		select {
		case <-r.ctx.Done():
			r.finish(id, false, nil, model.NewError(model.ErrCancelled, "Execution aborted"), nil)
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
	if r.ctx.Err() != nil {
		r.finish(id, false, nil, model.NewError(model.ErrCancelled, "Execution aborted"), nil)
		return
	}

	executor, ok := plugin.New(node.Type)
	if !ok {
		r.finish(id, false, nil, model.NewError(model.ErrUnknownType, string(node.Type)), nil)
		return
	}

	nodeCtx := r.ctx
	if node.Timeout > 0 {
		var cancel context.CancelFunc
		nodeCtx, cancel = context.WithTimeout(r.ctx, node.Timeout)
		defer cancel()
	}

	ec := &plugin.ExecutionContext{
		Ctx:      nodeCtx,
		NodeID:   id,
		Node:     node,
		Inputs:   inputs,
		Workflow: r.wf,
		Services: r.servicesFor(),
		Log: func(message string, level model.LogLevel) {
			r.state.AddLog(id, level, message, nil)
		},
		SetProgress: func(status string, pct int) {},
	}

	if err := executor.Validate(ec); err != nil {
		r.finish(id, false, nil, err, nil)
		return
	}

	r.state.SetNodeRunning(id)

	policy := retryPolicyFor(node).normalized()
	type outcome struct {
		res       plugin.ExecutorResult
		err       error
		isTimeout bool
	}

	var last outcome
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			r.state.AddLog(id, model.LogInfo, fmt.Sprintf("retrying after attempt %d: %v", attempt, last.err), nil)
			select {
			case <-nodeCtx.Done():
			case <-time.After(backoff(attempt-1, policy.BaseDelay, policy.MaxDelay, policy.Jitter)):
			}
		}
		if nodeCtx.Err() != nil {
			break
		}

		resultCh := make(chan outcome, 1)
		go func() {
			res, err := executor.Execute(ec)
			resultCh <- outcome{res: res, err: err}
		}()

		select {
		case <-nodeCtx.Done():
			last = outcome{err: nodeCtx.Err(), isTimeout: true}
		case out := <-resultCh:
			last = out
		}

		if last.err == nil || last.isTimeout {
			break
		}
	}

	if last.isTimeout {
		if r.ctx.Err() != nil {
			r.finish(id, false, nil, model.NewError(model.ErrCancelled, "Execution aborted"), nil)
		} else {
			r.finish(id, false, nil, model.NewError(model.ErrTimeout, "node exceeded its timeout"), nil)
		}
		return
	}
	if last.err != nil {
		r.finish(id, false, nil, last.err, nil)
		return
	}
	r.finish(id, true, last.res.Output, nil, last.res.ActiveHandles)
}

// retryPolicyFor reads an optional {"retry": {"maxRetries", "baseDelayMs",
// "maxDelayMs", "jitter"}} block from node.Data; absent or malformed
// fields fall back to normalized()'s defaults.
func retryPolicyFor(node model.Node) RetryPolicy {
	var p RetryPolicy
	raw, ok := node.Data["retry"].(map[string]any)
	if !ok {
		return p
	}
	if v, ok := raw["maxRetries"].(float64); ok {
		p.MaxRetries = int(v)
	}
	if v, ok := raw["baseDelayMs"].(float64); ok {
		p.BaseDelay = time.Duration(v) * time.Millisecond
	}
	if v, ok := raw["maxDelayMs"].(float64); ok {
		p.MaxDelay = time.Duration(v) * time.Millisecond
	}
	if v, ok := raw["jitter"].(bool); ok {
		p.Jitter = v
	}
	return p
}

func (r *run) servicesFor() plugin.Deps {
	d := r.eng.deps
	d.Engine = r.reentry
	return d
}

// finish records a node's terminal disposition and drives settlement of
// everything downstream.
func (r *run) finish(id model.ID, success bool, output any, nodeErr error, handles []model.Port) {
	if success {
		r.state.SetNodeSuccess(id, output)
		r.mu.Lock()
		r.activeHandles[id] = handles
		r.mu.Unlock()
		for _, e := range r.graph.OutgoingEdges(id) {
			r.state.SetEdgeSnapshot(e.ID, output)
		}
		r.state.AddLog(id, model.LogSuccess, "node succeeded", output)
		for next := range r.graph.Downstream(id) {
			r.tryFireFirstMerge(next)
		}
	} else {
		r.state.SetNodeError(id, nodeErr)
		r.state.AddLog(id, model.LogError, nodeErr.Error(), nil)
		r.recordErr(nodeErr)
		r.eng.deps.Logger().Warn("node failed", zap.String("node", string(id)), zap.Error(nodeErr))
	}
	r.settle(id)
}

// settle marks id as having reached a final disposition exactly once,
// then propagates that settlement to every downstream node.
func (r *run) settle(id model.ID) {
	r.mu.Lock()
	if r.settled[id] {
		r.mu.Unlock()
		return
	}
	r.settled[id] = true
	r.mu.Unlock()
	r.wg.Done()
	for next := range r.graph.Downstream(id) {
		r.onUpstreamSettled(next)
	}
}

func (r *run) onUpstreamSettled(id model.ID) {
	r.mu.Lock()
	if r.settled[id] {
		r.mu.Unlock()
		return
	}
	r.unresolved[id]--
	remaining := r.unresolved[id]
	r.mu.Unlock()
	if remaining <= 0 {
		r.evaluate(id)
	}
}

// reentry implements plugin.EngineReentry for one run: it reuses the
// run's cancellation and services but never touches the run's node
// statuses, only its log (§4.7 Imperative re-entry).
type reentry struct {
	r *run
}

func (re *reentry) ExecuteNode(ctx context.Context, nodeID model.ID, inputs any) (any, error) {
	node, ok := re.r.wf.NodeByID(nodeID)
	if !ok {
		return nil, model.NewError(model.ErrUnknownType, string(nodeID))
	}
	executor, ok := plugin.New(node.Type)
	if !ok {
		return nil, model.NewError(model.ErrUnknownType, string(node.Type))
	}

	ec := &plugin.ExecutionContext{
		Ctx:      ctx,
		NodeID:   nodeID,
		Node:     node,
		Inputs:   inputs,
		Workflow: re.r.wf,
		Services: re.r.servicesFor(),
		Log: func(message string, level model.LogLevel) {
			re.r.state.AddLog(nodeID, level, message, nil)
		},
		SetProgress: func(status string, pct int) {},
	}

	if err := executor.Validate(ec); err != nil {
		re.r.state.AddLog(nodeID, model.LogError, err.Error(), nil)
		return nil, err
	}
	re.r.state.AddLog(nodeID, model.LogAction, "tool call: "+string(node.Type), inputs)
	res, err := executor.Execute(ec)
	if err != nil {
		re.r.state.AddLog(nodeID, model.LogError, err.Error(), nil)
		return nil, err
	}
	re.r.state.AddLog(nodeID, model.LogAction, "tool result", res.Output)
	return res.Output, nil
}
