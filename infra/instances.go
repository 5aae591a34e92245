package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowloom/rivulet/artifact"
	"github.com/flowloom/rivulet/engine"
	"github.com/flowloom/rivulet/format/n8n"
	apiinfra "github.com/flowloom/rivulet/infra/api"
	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
	"github.com/flowloom/rivulet/services/credentials"
)

type InstanceState string

const (
	InstanceRunning InstanceState = "running"
	InstanceStopped InstanceState = "stopped"
)

// Instance is one loaded workflow plus the background goroutine driving
// its runs. Adapted from the teacher's instance concept, which queued
// n8n-style per-node input batches directly into engine.Run; the current
// engine instead starts every run from the workflow's own trigger nodes,
// so Instance's queue now carries pending execution ids (Job.ExecID)
// rather than node input batches. wake is a bare channel signal telling
// the run loop a job was pushed; the Job itself — and its ordering — is
// owned by queue, not by the channel.
type Instance struct {
	ID           string
	Name         string
	WorkflowPath string
	Workflow     model.Workflow
	CreatedAt    time.Time
	State        InstanceState

	queue   Queue
	wake    chan struct{}
	cancel  context.CancelFunc
	deps    plugin.Deps
	logMu   sync.Mutex
	logs    []string
	maxLogs int
}

func (i *Instance) logf(format string, a ...any) {
	i.logMu.Lock()
	defer i.logMu.Unlock()
	line := time.Now().Format(time.RFC3339) + " " + fmt.Sprintf(format, a...)
	if i.logs == nil {
		i.logs = make([]string, 0, 256)
	}
	i.logs = append(i.logs, line)
	if i.maxLogs <= 0 {
		i.maxLogs = 1000
	}
	if len(i.logs) > i.maxLogs {
		i.logs = i.logs[len(i.logs)-i.maxLogs:]
	}
}

type InstanceManager struct {
	mu    sync.Mutex
	items map[string]*Instance
	deps  plugin.Deps
	newID func() string
}

// NewInstanceManager wires up a default set of local/in-memory service
// implementations. Callers that need a real WebLLM, Speech, ImageGen or
// Python backend should build their own plugin.Deps and construct
// InstanceManager through NewInstanceManagerWithDeps instead.
func NewInstanceManager() *InstanceManager {
	deps := plugin.Deps{
		State:       NewMemState(),
		Bus:         apiinfra.NullBus{},
		Files:       NewLocalFiles(),
		Artifacts:   artifact.New(),
		Credentials: credentials.New(),
	}
	return NewInstanceManagerWithDeps(deps)
}

func NewInstanceManagerWithDeps(deps plugin.Deps) *InstanceManager {
	return &InstanceManager{
		items: make(map[string]*Instance),
		deps:  deps,
		newID: func() string { return "inst-" + uuid.NewString() },
	}
}

func (m *InstanceManager) List() []*Instance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Instance, 0, len(m.items))
	for _, v := range m.items {
		out = append(out, v)
	}
	return out
}

func (m *InstanceManager) Get(id string) (*Instance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[id]
	return v, ok
}

// CreateFromWorkflowPath loads an n8n-exported workflow file and starts
// its background run loop, armed immediately with one trigger signal.
func (m *InstanceManager) CreateFromWorkflowPath(path string) (*Instance, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var req n8n.N8nRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return nil, err
	}
	wf, _ := n8n.ToRivulet(req)

	inst := &Instance{
		ID:           m.newID(),
		Name:         wf.Name,
		WorkflowPath: path,
		Workflow:     wf,
		CreatedAt:    time.Now(),
		State:        InstanceRunning,
		queue:        NewMemQueue(),
		wake:         make(chan struct{}, 64),
		deps:         m.deps,
		maxLogs:      1000,
	}

	ctx, cancel := context.WithCancel(context.Background())
	inst.cancel = cancel
	eng := engine.New(m.deps)

	go func() {
		inst.logf("instance started: %s", inst.ID)
		inst.enqueueJob()
		for {
			select {
			case <-ctx.Done():
				inst.State = InstanceStopped
				inst.logf("instance stopped: %s", inst.ID)
				return
			case <-inst.wake:
				for {
					job, ok := inst.queue.Pop()
					if !ok {
						break
					}
					inst.logf("execution started: %s", job.ExecID)
					state, err := eng.Run(ctx, inst.Workflow)
					if err != nil {
						inst.logf("execution %s error: %v", job.ExecID, err)
						continue
					}
					inst.logf("execution %s completed, %d log entries", job.ExecID, len(state.Log()))
				}
			}
		}
	}()

	m.mu.Lock()
	m.items[inst.ID] = inst
	m.mu.Unlock()
	return inst, nil
}

func (m *InstanceManager) Stop(id string) error {
	m.mu.Lock()
	inst, ok := m.items[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("instance not found")
	}
	if inst.cancel != nil {
		inst.cancel()
	}
	return nil
}

// enqueueJob pushes a freshly-minted Job onto the instance's queue and
// wakes its run loop; the execution id is assigned here, at enqueue
// time, so every queued job is already distinguishable in logs before
// the run loop ever pops it.
func (i *Instance) enqueueJob() {
	i.queue.Push(Job{ExecID: uuid.NewString()})
	select {
	case i.wake <- struct{}{}:
	default:
	}
}

// Trigger enqueues one more run of the instance's workflow, starting
// again from its trigger nodes.
func (m *InstanceManager) Trigger(id string) error {
	m.mu.Lock()
	inst, ok := m.items[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("instance not found")
	}
	inst.enqueueJob()
	return nil
}

func (m *InstanceManager) Logs(id string) ([]string, error) {
	m.mu.Lock()
	inst, ok := m.items[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("instance not found")
	}
	inst.logMu.Lock()
	defer inst.logMu.Unlock()
	out := make([]string, len(inst.logs))
	copy(out, inst.logs)
	return out, nil
}
