// Package plugin defines the Executor contract (§4.3/C4) and the service
// interfaces (§4.3 "services") an ExecutionContext injects into every
// node. Concrete services (artifact store, web LLM, file store, ...) live
// in their own packages and satisfy these interfaces; nodes/ and engine/
// only ever see the interface.
package plugin

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/flowloom/rivulet/model"
)

// Executor is the capability every node type implements. validate is a
// cheap pre-flight check; execute does the work and may suspend on I/O,
// a delay, or an LLM call, observing ctx cancellation at every
// suspension point (§5).
type Executor interface {
	Validate(ec *ExecutionContext) error
	Execute(ec *ExecutionContext) (ExecutorResult, error)
}

// ExecutorResult is what execute() returns: the node's output plus
// optional metadata. ActiveHandles, when non-nil, restricts which
// outgoing edges the engine keeps active for this node (§4.7 Conditional
// routing); nil means "all outgoing edges active".
type ExecutorResult struct {
	Output        any
	ActiveHandles []model.Port
}

// ExecutionContext is everything an executor needs for one invocation.
// It is constructed fresh for every node execution, including re-entrant
// calls made by the agent executor through Services.Engine.
type ExecutionContext struct {
	Ctx context.Context

	NodeID   model.ID
	Node     model.Node
	Inputs   any
	Workflow model.Workflow
	Services Deps

	// Log appends an entry to the run log (§3 ExecutionState.log).
	Log func(message string, level model.LogLevel)
	// SetProgress reports a coarse-grained status/percent for UI observers.
	SetProgress func(status string, pct int)
}

// Deps bundles every service an executor may call out to. Fields are
// nil-safe to check (e.g. `if ec.Services.Files == nil`) the way the
// teacher's nodes already guard deps.Files.
//
// Logger is process-level operational logging (startup, scheduler ticks,
// HTTP access) in the style of FlowShift's workflow engine — distinct
// from ec.Log, which appends to the in-run ExecutionState log (a domain
// object returned to callers, not an operational log stream). Nodes
// rarely need Logger directly; it exists on Deps so engine, scheduler
// and httpapi can all log through the one instance threaded in at
// startup. Nil-safe via Logger(), never nil-checked directly.
type Deps struct {
	State       StateStore
	Bus         EventBus
	Files       FileStore
	Artifacts   ArtifactStore
	WebLLM      WebLLM
	Speech      Speech
	ImageGen    ImageGen
	Python      PythonRunner
	Credentials CredentialStore
	Engine      EngineReentry
	Log         *zap.Logger
}

// Logger returns d.Log, or a no-op logger if none was wired — callers
// never need to nil-check before logging.
func (d Deps) Logger() *zap.Logger {
	if d.Log != nil {
		return d.Log
	}
	return zap.NewNop()
}

// StateStore persists per-node scratch state keyed by execution id. Kept
// from the teacher; unrelated to the in-run ExecutionState (engine.State)
// which tracks status/output/logs, not arbitrary executor-private state.
type StateStore interface {
	SaveNodeState(ctx context.Context, execID string, nodeID model.ID, state map[string]any) error
	LoadNodeState(ctx context.Context, execID string, nodeID model.ID) (map[string]any, error)
}

// EventBus emits lifecycle events (node_started, node_completed, ...) for
// external observers (UI, metrics) — observers only, never drives engine
// decisions (§4.6).
type EventBus interface {
	Emit(ctx context.Context, event string, fields map[string]any) error
}

// FileStore stores workflow attachments referenced by id, independent of
// the content-addressed ArtifactStore (artifacts are engine-produced
// outputs; files are user-supplied inputs).
type FileStore interface {
	Put(ctx context.Context, workflowID, filename string, contents []byte, mediaType string) (string, error)
	Get(ctx context.Context, workflowID, fileID string) (name, mediaType string, data []byte, err error)
	List(ctx context.Context, workflowID string) ([]model.FileMeta, error)
	Delete(ctx context.Context, workflowID, fileID string) error
}

// ArtifactStore is the C1 contract, exposed to executors through Deps so
// textToSpeech/imageGeneration/python can persist binary results by
// reference instead of inlining bytes into node output.
type ArtifactStore interface {
	Save(ctx context.Context, blob []byte, category, mimeHint string) (model.Artifact, error)
	Get(ctx context.Context, id string) (model.Artifact, bool, error)
	Delete(ctx context.Context, id string) bool
	List(ctx context.Context, category string) []model.ArtifactMetadata
	Stats(ctx context.Context) model.ArtifactStats
	ClearAll(ctx context.Context)
}

// ChatMessage mirrors go-openai's ChatCompletionMessage shape so
// services/openai can convert it to the real SDK type without plugin
// itself depending on it.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatRequest is what the llm/aiAgent executors send to a WebLLM service.
type ChatRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature float64
	TopP        float64
	MaxTokens   int
	Stream      bool
	// APIKey is the resolved secret for ec.Node.Credentials, set by the
	// llm/aiAgent executors when the node names a credential; empty
	// means "use whatever the WebLLM backend was already configured
	// with" (e.g. an Ollama server needing no auth at all).
	APIKey string
}

// ChatResponse is a completed chat call plus usage metadata.
type ChatResponse struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// WebLLM is the abstraction over whatever concrete LLM backend is wired
// in (OpenAI, Ollama, a test stub); out of scope per §1, the interface is
// the scope boundary.
type WebLLM interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// SpeechOptions configures textToSpeech synthesis.
type SpeechOptions struct {
	Voice string
	Rate  float64
	Pitch float64
}

// Speech is the text-to-speech backend abstraction.
type Speech interface {
	Synthesize(ctx context.Context, text string, opts SpeechOptions) (audio []byte, mimeType string, err error)
}

// ImageOptions configures imageGeneration.
type ImageOptions struct {
	Width, Height int
	Style         string
}

// ImageGen is the image-generation backend abstraction.
type ImageGen interface {
	Generate(ctx context.Context, prompt string, opts ImageOptions) (image []byte, mimeType string, err error)
}

// PythonRunner executes a python node's script against injected inputs
// and returns the interpreter's result value.
type PythonRunner interface {
	Run(ctx context.Context, code string, inputs any, timeout time.Duration) (any, error)
}

// CredentialStore resolves a named credential reference (model.Node.
// Credentials) to a secret value, e.g. an API key.
type CredentialStore interface {
	Get(name string) (string, bool)
}

// EngineReentry is the re-entrant call the agent executor uses to invoke
// a tool node (§4.7 "Imperative re-entry"). Implemented by engine.Engine;
// kept as an interface here so nodes/agent and agentloop don't import
// engine directly (which would cycle, since engine registers executors
// transitively through nodes/ init()).
type EngineReentry interface {
	ExecuteNode(ctx context.Context, nodeID model.ID, inputs any) (any, error)
}
