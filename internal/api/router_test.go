package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/binarjoin/agent-engine/internal/actions"
	"github.com/binarjoin/agent-engine/internal/agent"
	"github.com/binarjoin/agent-engine/internal/api"
	"github.com/binarjoin/agent-engine/internal/api/handlers"
	"github.com/binarjoin/agent-engine/internal/config"
	"github.com/binarjoin/agent-engine/internal/pending"
	"github.com/binarjoin/agent-engine/internal/reports"
	"github.com/binarjoin/agent-engine/internal/router"
	"github.com/binarjoin/agent-engine/internal/store"
	"github.com/binarjoin/agent-engine/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replyDriver answers every request with the next queued reply.
type replyDriver struct {
	mu      sync.Mutex
	replies []string
}

func (d *replyDriver) Kind() models.ProviderKind { return models.ProviderOpenAI }

func (d *replyDriver) Send(_ context.Context, model string, _ []models.ChatMessage, _ string) (*models.Completion, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	reply := "ok"
	if len(d.replies) > 0 {
		reply, d.replies = d.replies[0], d.replies[1:]
	}
	return &models.Completion{Content: reply, TokensUsed: 7}, nil
}

type server struct {
	t      *testing.T
	http   http.Handler
	store  *store.SQLStore
	driver *replyDriver
}

func newServer(t *testing.T, keys ...string) *server {
	t.Helper()
	ctx := context.Background()
	s, err := store.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	drv := &replyDriver{}
	mr, err := router.NewModelRouter([]router.ProviderSpec{
		{Driver: drv, Model: "gpt-4o", Priority: 1, DailyLimit: 100},
	})
	require.NoError(t, err)

	eng := agent.New(mr, s, pending.NewRegistry(), actions.New(s), reports.New("SAR"))
	cfg := config.DefaultConfig()
	cfg.Server.APIKeys = keys
	return &server{
		t:      t,
		http:   api.NewRouter(cfg, handlers.New(eng, mr, s)),
		store:  s,
		driver: drv,
	}
}

func (s *server) do(method, path, owner, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if owner != "" {
		req.Header.Set("X-User-Id", owner)
	}
	w := httptest.NewRecorder()
	s.http.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndVersion(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[map[string]interface{}](t, w)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, true, health["ai_available"])

	w = s.do(http.MethodGet, "/version", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0.1.0", decode[map[string]string](t, w)["version"])
}

func TestProviderEndpoints(t *testing.T) {
	s := newServer(t)

	status := decode[map[string]interface{}](t, s.do(http.MethodGet, "/api/v1/ai/status", "", ""))
	assert.Equal(t, "auto", status["selected"])
	assert.Len(t, status["providers"], 1)

	opts := decode[[]models.ModelOption](t, s.do(http.MethodGet, "/api/v1/ai/models", "", ""))
	require.NotEmpty(t, opts)

	w := s.do(http.MethodPost, "/api/v1/ai/select", "", `{"model":"openai/gpt-4o"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "openai/gpt-4o", decode[map[string]string](t, w)["selected"])

	w = s.do(http.MethodPost, "/api/v1/ai/select", "", `{"model":"auto"}`)
	assert.Equal(t, "auto", decode[map[string]string](t, w)["selected"])

	w = s.do(http.MethodPost, "/api/v1/ai/select", "", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/ai/reset-usage", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	hf := decode[[]router.HuggingFaceModel](t, s.do(http.MethodGet, "/api/v1/ai/huggingface/models", "", ""))
	assert.NotEmpty(t, hf)

	// HuggingFace is not configured in this server.
	w = s.do(http.MethodPost, "/api/v1/ai/huggingface/switch", "", `{"model":"qwen2.5-72b"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConversationRequiresOwner(t *testing.T) {
	s := newServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/ai/sessions", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/v1/ai/chat", "", `{"message":"hi"}`).Code)
}

func TestSessionLifecycle(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/api/v1/ai/sessions", "user-1", `{"title":"Site costs"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[map[string]string](t, w)["session_id"]
	require.NotEmpty(t, id)

	list := decode[[]models.Session](t, s.do(http.MethodGet, "/api/v1/ai/sessions", "user-1", ""))
	require.Len(t, list, 1)
	assert.Equal(t, "Site costs", list[0].Title)

	others := decode[[]models.Session](t, s.do(http.MethodGet, "/api/v1/ai/sessions", "user-2", ""))
	assert.Empty(t, others)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/v1/ai/sessions/"+id+"/messages", "user-2", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/ai/sessions/missing/messages", "user-1", "").Code)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, "/api/v1/ai/sessions/"+id, "user-2", "").Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/v1/ai/sessions/"+id, "user-1", "").Code)
}

func TestChatProposeConfirm(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	w := &models.Worker{Name: "Omar", DailyWage: 200, IsActive: true}
	require.NoError(t, s.store.CreateWorker(ctx, w))
	s.driver.replies = []string{"Sure. [PROPOSE:DELETE_WORKER:" + w.ID + "]"}

	resp := s.do(http.MethodPost, "/api/v1/ai/chat", "user-1", `{"message":"remove Omar"}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	turn := decode[agent.TurnResult](t, resp)
	require.Len(t, turn.PendingOperations, 1)
	opID := turn.PendingOperations[0].ID
	base := "/api/v1/ai/sessions/" + turn.SessionID

	pendingOps := decode[[]models.PendingOperation](t, s.do(http.MethodGet, base+"/pending-operations", "user-1", ""))
	require.Len(t, pendingOps, 1)

	// Another user cannot see or act on the session.
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, base+"/pending-operations", "user-2", "").Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, base+"/confirm/"+opID, "user-2", "").Code)

	resp = s.do(http.MethodPost, base+"/confirm/"+opID, "user-1", "")
	require.Equal(t, http.StatusOK, resp.Code)
	result := decode[models.ActionResult](t, resp)
	assert.True(t, result.Success, result.Message)

	_, err := s.store.GetWorker(ctx, w.ID)
	assert.True(t, store.IsNotFound(err))

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, base+"/confirm/"+opID, "user-1", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, base+"/cancel/"+opID, "user-1", "").Code)
}

func TestChatCancel(t *testing.T) {
	s := newServer(t)
	s.driver.replies = []string{"[PROPOSE:CREATE_PROJECT:Depot]"}

	turn := decode[agent.TurnResult](t, s.do(http.MethodPost, "/api/v1/ai/chat", "user-1", `{"message":"new project"}`))
	require.Len(t, turn.PendingOperations, 1)
	base := "/api/v1/ai/sessions/" + turn.SessionID

	w := s.do(http.MethodPost, base+"/cancel/"+turn.PendingOperations[0].ID, "user-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.PendingOperation](t, s.do(http.MethodGet, base+"/pending-operations", "user-1", "")))

	projects, err := s.store.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestChatEmptyMessage(t *testing.T) {
	s := newServer(t)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/ai/chat", "user-1", `{"message":"   "}`).Code)
}

func TestAPIKeyGuardsRoutes(t *testing.T) {
	s := newServer(t, "secret")

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/ai/status", "", "").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ai/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	s.http.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
