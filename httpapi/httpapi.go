// Package httpapi adapts the teacher's cmd/api/server gin router into a
// full CRUD + run surface over workflowstore.Collection, keeping the
// legacy n8n-compatible /workflow/start endpoint the teacher originally
// exposed alongside the native workflow document routes §6 calls for.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flowloom/rivulet/engine"
	"github.com/flowloom/rivulet/format/n8n"
	"github.com/flowloom/rivulet/format/wire"
	"github.com/flowloom/rivulet/infra"
	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
	"github.com/flowloom/rivulet/workflowstore"
)

// Server wires a workflow collection, the instance manager, and a
// shared set of services into a gin.Engine.
type Server struct {
	collection *workflowstore.Collection
	instances  *infra.InstanceManager
	deps       plugin.Deps
}

func New(collection *workflowstore.Collection, deps plugin.Deps) *Server {
	s := &Server{
		collection: collection,
		instances:  infra.NewInstanceManagerWithDeps(deps),
		deps:       deps,
	}
	s.restorePersisted()
	return s
}

// restorePersisted reloads the workflow stored under
// workflowstore.PersistKey, if persistence is enabled (a FileStore is
// wired) and something was actually persisted there before. Absence of
// either is not an error: a fresh collection starts empty.
func (s *Server) restorePersisted() {
	if s.deps.Files == nil {
		return
	}
	wf, ok, err := workflowstore.LoadPersisted(context.Background(), s.deps.Files)
	if err != nil {
		s.deps.Logger().Warn("failed to restore persisted workflow", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	if err := s.collection.Put(wf); err != nil {
		s.deps.Logger().Warn("persisted workflow failed validation on restore", zap.Error(err))
	}
}

type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func sendSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, apiResponse{Success: true, Data: data})
}

func sendError(c *gin.Context, status int, msg string) {
	c.JSON(status, apiResponse{Success: false, Error: msg})
}

// zapAccessLog replaces gin's default stdout logger with structured
// access logging through the same logger threaded into plugin.Deps, so
// HTTP access lands in the one operational log stream alongside
// scheduler ticks and run start/stop.
func zapAccessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Router builds the gin.Engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(zapAccessLog(s.deps.Logger()))
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/health", s.handleHealth)

	r.POST("/workflow/start", s.handleLegacyStart)

	r.GET("/workflows", s.handleListWorkflows)
	r.POST("/workflows", s.handleCreateWorkflow)
	r.GET("/workflows/:id", s.handleGetWorkflow)
	r.PUT("/workflows/:id", s.handleUpdateWorkflow)
	r.DELETE("/workflows/:id", s.handleDeleteWorkflow)
	r.POST("/workflows/:id/run", s.handleRunWorkflow)
	r.POST("/workflows/:id/validate", s.handleValidateWorkflow)

	r.GET("/instances", s.handleListInstances)
	r.POST("/instances", s.handleCreateInstance)
	r.POST("/instances/:id/stop", s.handleStopInstance)
	r.POST("/instances/:id/enqueue", s.handleEnqueueInstance)
	r.GET("/instances/:id/logs", s.handleInstanceLogs)

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	sendSuccess(c, gin.H{"status": "healthy", "timestamp": time.Now().Unix()})
}

// handleLegacyStart keeps the teacher's n8n-compatible one-shot entry
// point: post a full n8n export and run it immediately, without
// registering it in the workflow collection.
func (s *Server) handleLegacyStart(c *gin.Context) {
	var req n8n.N8nRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	wf, _ := n8n.ToRivulet(req)
	eng := engine.New(s.deps)
	state, err := eng.Run(c.Request.Context(), wf)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}
	sendSuccess(c, gin.H{"log": state.Log()})
}

func (s *Server) handleListWorkflows(c *gin.Context) {
	wfs := s.collection.List()
	docs := make([]wire.Document, len(wfs))
	for i, wf := range wfs {
		docs[i] = wire.FromWorkflow(wf)
	}
	sendSuccess(c, gin.H{"workflows": docs})
}

func (s *Server) handleCreateWorkflow(c *gin.Context) {
	var doc wire.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		sendError(c, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	wf, err := wire.ToWorkflow(doc)
	if err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}
	if wf.ID == "" {
		sendError(c, http.StatusBadRequest, "workflow id is required")
		return
	}
	if err := s.collection.Put(wf); err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}
	s.persistBestEffort(c, wf.ID)
	sendSuccess(c, gin.H{"id": string(wf.ID)})
}

// persistBestEffort writes the named workflow's current state under
// workflowstore.PersistKey when a FileStore is wired. A failure here
// never fails the request — persistence is an optional durability layer
// on top of the in-memory collection, not a replacement for it.
func (s *Server) persistBestEffort(c *gin.Context, id model.ID) {
	if s.deps.Files == nil {
		return
	}
	store, ok := s.collection.Get(id)
	if !ok {
		return
	}
	if err := store.Persist(c.Request.Context(), s.deps.Files); err != nil {
		s.deps.Logger().Warn("failed to persist workflow", zap.String("workflow", string(id)), zap.Error(err))
	}
}

func (s *Server) handleGetWorkflow(c *gin.Context) {
	store, ok := s.collection.Get(model.ID(c.Param("id")))
	if !ok {
		sendError(c, http.StatusNotFound, "workflow not found")
		return
	}
	sendSuccess(c, wire.FromWorkflow(store.Load()))
}

func (s *Server) handleUpdateWorkflow(c *gin.Context) {
	id := model.ID(c.Param("id"))
	store, ok := s.collection.Get(id)
	if !ok {
		sendError(c, http.StatusNotFound, "workflow not found")
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := store.Import(body); err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}
	s.persistBestEffort(c, id)
	sendSuccess(c, gin.H{"id": string(id)})
}

func (s *Server) handleDeleteWorkflow(c *gin.Context) {
	s.collection.Delete(model.ID(c.Param("id")))
	sendSuccess(c, gin.H{"deleted": true})
}

func (s *Server) handleRunWorkflow(c *gin.Context) {
	store, ok := s.collection.Get(model.ID(c.Param("id")))
	if !ok {
		sendError(c, http.StatusNotFound, "workflow not found")
		return
	}
	eng := engine.New(s.deps)
	state, err := eng.Run(c.Request.Context(), store.Load())
	if err != nil {
		sendError(c, http.StatusInternalServerError, err.Error())
		return
	}
	sendSuccess(c, gin.H{"log": state.Log()})
}

// handleListInstances, handleCreateInstance and friends expose the
// teacher's InstanceManager (a background-run-loop-per-loaded-workflow
// concept) over HTTP, continuing its `rivulet inst ...` CLI surface.
func (s *Server) handleListInstances(c *gin.Context) {
	items := s.instances.List()
	out := make([]gin.H, len(items))
	for i, inst := range items {
		out[i] = gin.H{
			"id":            inst.ID,
			"name":          inst.Name,
			"state":         inst.State,
			"workflow_path": inst.WorkflowPath,
		}
	}
	sendSuccess(c, gin.H{"instances": out})
}

func (s *Server) handleCreateInstance(c *gin.Context) {
	var req struct {
		WorkflowPath string `json:"workflow_path"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.WorkflowPath == "" {
		sendError(c, http.StatusBadRequest, "workflow_path is required")
		return
	}
	inst, err := s.instances.CreateFromWorkflowPath(req.WorkflowPath)
	if err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}
	sendSuccess(c, gin.H{"id": inst.ID, "state": inst.State})
}

func (s *Server) handleStopInstance(c *gin.Context) {
	if err := s.instances.Stop(c.Param("id")); err != nil {
		sendError(c, http.StatusNotFound, err.Error())
		return
	}
	sendSuccess(c, gin.H{"stopped": true})
}

func (s *Server) handleEnqueueInstance(c *gin.Context) {
	if err := s.instances.Trigger(c.Param("id")); err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}
	sendSuccess(c, gin.H{"queued": true})
}

func (s *Server) handleInstanceLogs(c *gin.Context) {
	logs, err := s.instances.Logs(c.Param("id"))
	if err != nil {
		sendError(c, http.StatusNotFound, err.Error())
		return
	}
	sendSuccess(c, gin.H{"logs": logs})
}

func (s *Server) handleValidateWorkflow(c *gin.Context) {
	store, ok := s.collection.Get(model.ID(c.Param("id")))
	if !ok {
		sendError(c, http.StatusNotFound, "workflow not found")
		return
	}
	wf := store.Load()
	g := engine.BuildGraph(wf)
	if _, ok := g.TopoOrder(); !ok {
		sendError(c, http.StatusBadRequest, "workflow graph contains a cycle")
		return
	}
	sendSuccess(c, gin.H{"valid": true})
}
