package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"

	"github.com/flowloom/rivulet/config"
	"github.com/flowloom/rivulet/engine"
	"github.com/flowloom/rivulet/format/wire"
	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/scheduler"
	"github.com/flowloom/rivulet/workflowstore"
)

// exit codes from §6: 0 success, 1 validation failure, 2 runtime failure,
// 130 cancelled by user (SIGINT/SIGTERM).
const (
	exitOK        = 0
	exitInvalid   = 1
	exitRuntime   = 2
	exitCancelled = 130
)

func loadWorkflowFile(path string) (model.Workflow, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return model.Workflow{}, err
	}
	return wire.Decode(b)
}

// cancellableContext returns a context cancelled on SIGINT/SIGTERM, and a
// function reporting whether cancellation happened because of the signal
// (as opposed to the run finishing on its own).
func cancellableContext() (context.Context, func() bool) {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	var cancelled atomic.Bool
	go func() {
		select {
		case <-sig:
			cancelled.Store(true)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancelled.Load
}

// cmdRun implements `rivulet run <workflow.json>`: load, build an engine
// from daemon config, execute once, print the run log.
func cmdRun(path string) int {
	logger := newProcessLogger()
	defer logger.Sync()

	wf, err := loadWorkflowFile(path)
	if err != nil {
		logger.Error("failed to load workflow file", zap.String("path", path), zap.Error(err))
		return exitInvalid
	}
	g := engine.BuildGraph(wf)
	if _, ok := g.TopoOrder(); !ok {
		logger.Error("workflow graph contains a cycle", zap.String("workflow", string(wf.ID)))
		return exitInvalid
	}

	cfg, err := config.Load(os.Getenv("RIV_CONFIG"))
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		return exitRuntime
	}
	eng := engine.New(buildDeps(cfg, logger))
	eng.SetMaxParallel(cfg.MaxParallel)

	ctx, wasCancelled := cancellableContext()
	state, err := eng.Run(ctx, wf)
	if wasCancelled() {
		logger.Warn("execution cancelled", zap.String("workflow", string(wf.ID)))
		return exitCancelled
	}
	for _, entry := range state.Log() {
		fmt.Printf("[%s] %s: %s\n", entry.Level, entry.NodeID, entry.Message)
	}
	if err != nil {
		logger.Error("run failed", zap.String("workflow", string(wf.ID)), zap.Error(err))
		return exitRuntime
	}
	return exitOK
}

// cmdValidate implements `rivulet validate <workflow.json>`: parse the
// document and check for a cycle/dangling edge/entry-node failure without
// running anything.
func cmdValidate(path string) int {
	wf, err := loadWorkflowFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid:", err)
		return exitInvalid
	}
	if len(wf.Nodes) == 0 {
		fmt.Fprintln(os.Stderr, "invalid: workflow has no nodes")
		return exitInvalid
	}
	g := engine.BuildGraph(wf)
	if _, ok := g.TopoOrder(); !ok {
		fmt.Fprintln(os.Stderr, "invalid: workflow graph contains a cycle")
		return exitInvalid
	}
	if len(g.StartNodes()) == 0 {
		fmt.Fprintln(os.Stderr, "invalid: workflow has no node with zero incoming edges")
		return exitInvalid
	}
	fmt.Println("valid")
	return exitOK
}

// cmdExport implements `rivulet export <workflow.json> <out.json>`: parse
// the native document and re-encode it canonically (round-trips unknown
// keys via format/wire).
func cmdExport(in, out string) int {
	wf, err := loadWorkflowFile(in)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitInvalid
	}
	b, err := wire.Encode(wf)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitRuntime
	}
	if err := os.WriteFile(out, b, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitRuntime
	}
	return exitOK
}

// cmdImport implements `rivulet import <workflow.json>`: parse and
// validate a document without running it, reporting any structural
// violation (duplicate node id, dangling edge reference, self-loop,
// duplicate edge quad-key) workflowstore would otherwise reject later.
func cmdImport(path string) int {
	b, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitInvalid
	}
	store := workflowstore.New(model.Workflow{})
	if err := store.Import(b); err != nil {
		fmt.Fprintln(os.Stderr, "invalid:", err)
		return exitInvalid
	}
	fmt.Println("imported:", store.Load().ID)
	return exitOK
}

// cmdSchedule implements `rivulet schedule <workflow.json>`: run the
// minute-tick scheduler in the foreground against a single-workflow
// source, until SIGINT/SIGTERM.
func cmdSchedule(path string) int {
	logger := newProcessLogger()
	defer logger.Sync()

	wf, err := loadWorkflowFile(path)
	if err != nil {
		logger.Error("failed to load workflow file", zap.String("path", path), zap.Error(err))
		return exitInvalid
	}

	cfg, err := config.Load(os.Getenv("RIV_CONFIG"))
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		return exitRuntime
	}
	eng := engine.New(buildDeps(cfg, logger))
	collection := workflowstore.NewCollection()
	if err := collection.Put(wf); err != nil {
		logger.Error("failed to register workflow", zap.Error(err))
		return exitInvalid
	}

	sched := scheduler.New(collection, eng)
	sched.SetLogger(logger)

	logger.Info("scheduler starting", zap.String("workflow", string(wf.ID)))
	ctx, wasCancelled := cancellableContext()
	sched.Run(ctx)
	if wasCancelled() {
		logger.Warn("scheduler cancelled")
		return exitCancelled
	}
	return exitOK
}
