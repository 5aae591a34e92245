package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/flowloom/rivulet/infra"
	"github.com/flowloom/rivulet/model"
	"github.com/flowloom/rivulet/plugin"
	"github.com/flowloom/rivulet/workflowstore"

	_ "github.com/flowloom/rivulet/nodes/start"
)

type memBus struct{}

func (memBus) Emit(context.Context, string, map[string]any) error { return nil }

type memState struct{}

func (memState) SaveNodeState(context.Context, string, model.ID, map[string]any) error { return nil }
func (memState) LoadNodeState(context.Context, string, model.ID) (map[string]any, error) {
	return map[string]any{}, nil
}

func newTestServer() *Server {
	gin.SetMode(gin.TestMode)
	// MemFiles keeps uploads in-process for the life of the test, with no
	// filesystem side effects to clean up between runs.
	return New(workflowstore.NewCollection(), plugin.Deps{State: memState{}, Bus: memBus{}, Files: infra.NewMemFiles()})
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer()
	w := doJSON(s.Router(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCreateGetRunWorkflow(t *testing.T) {
	s := newTestServer()
	r := s.Router()

	doc := `{"id":"wf1","name":"demo","nodes":[{"id":"n1","type":"manualTrigger","data":{}}],"edges":[]}`
	w := doJSON(r, http.MethodPost, "/workflows", doc)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/workflows/wf1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/workflows/wf1/run", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
}

func TestGetMissingWorkflow(t *testing.T) {
	s := newTestServer()
	w := doJSON(s.Router(), http.MethodGet, "/workflows/missing", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRejectsCycleOnValidate(t *testing.T) {
	s := newTestServer()
	r := s.Router()

	doc := `{"id":"wf2","nodes":[
		{"id":"a","type":"manualTrigger","data":{}},
		{"id":"b","type":"end","data":{}}
	],"edges":[
		{"id":"e1","source":"a","target":"b"},
		{"id":"e2","source":"b","target":"a"}
	]}`
	w := doJSON(r, http.MethodPost, "/workflows", doc)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/workflows/wf2/validate", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}
