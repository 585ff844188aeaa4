package agent_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/binarjoin/agent-engine/internal/actions"
	"github.com/binarjoin/agent-engine/internal/agent"
	"github.com/binarjoin/agent-engine/internal/pending"
	"github.com/binarjoin/agent-engine/internal/reports"
	"github.com/binarjoin/agent-engine/internal/store"
	"github.com/binarjoin/agent-engine/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedChat replies with the queued texts in order.
type scriptedChat struct {
	mu      sync.Mutex
	replies []string
	err     error
	seen    [][]models.ChatMessage
	system  string
}

func (c *scriptedChat) Chat(_ context.Context, messages []models.ChatMessage, system string) (*models.Completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, messages)
	c.system = system
	if c.err != nil {
		return nil, c.err
	}
	reply := ""
	if len(c.replies) > 0 {
		reply, c.replies = c.replies[0], c.replies[1:]
	}
	return &models.Completion{Content: reply, Provider: models.ProviderOpenAI, Model: "gpt-4o", TokensUsed: 42}, nil
}

var fixedNow = time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC)

type fixture struct {
	ctx    context.Context
	store  *store.SQLStore
	chat   *scriptedChat
	engine *agent.Engine
	worker *models.Worker
}

func newFixture(t *testing.T, replies ...string) *fixture {
	t.Helper()
	ctx := context.Background()
	s, err := store.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.CreateProject(ctx, &models.Project{Name: "Villa Rawda"}))
	w := &models.Worker{Name: "Ahmed Saleh", DailyWage: 250, IsActive: true}
	require.NoError(t, s.CreateWorker(ctx, w))

	clock := func() time.Time { return fixedNow }
	chat := &scriptedChat{replies: replies}
	eng := agent.New(chat, s, pending.NewRegistry(),
		actions.New(s, actions.WithClock(clock)),
		reports.New("SAR"),
		agent.WithClock(clock),
		agent.WithHistoryLimit(10),
	)
	return &fixture{ctx: ctx, store: s, chat: chat, engine: eng, worker: w}
}

func TestProcessTurn_ActionsRunInOrder(t *testing.T) {
	f := newFixture(t, "Checking now.\n[ACTION:LIST_PROJECTS]\n[action:find_worker:Ahmed]\nDone.")

	res, err := f.engine.ProcessTurn(f.ctx, "", "list projects and find Ahmed", "user-1")
	require.NoError(t, err)

	assert.NotEmpty(t, res.SessionID)
	assert.NotContains(t, res.Response, "[ACTION")
	assert.NotContains(t, strings.ToUpper(res.Response), "[ACTION:")
	projects := strings.Index(res.Response, "project(s)")
	workers := strings.Index(res.Response, "worker(s)")
	require.True(t, projects > 0 && workers > 0, res.Response)
	assert.Less(t, projects, workers)
	assert.True(t, strings.HasPrefix(res.Response, "Checking now."))

	assert.Equal(t, "LIST_PROJECTS", res.Action)
	assert.IsType(t, []models.Project{}, res.Payload)
	assert.Equal(t, "openai", res.Provider)
	for _, s := range res.Steps {
		assert.Equal(t, models.StepCompleted, s.Status, s.Title)
	}

	msgs, err := f.engine.SessionMessages(f.ctx, res.SessionID, "user-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, "gpt-4o", msgs[1].Model)

	usage, err := f.store.ListUsage(f.ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, 42, usage[0].Tokens)
}

func TestProcessTurn_FailingActionDoesNotAbortOthers(t *testing.T) {
	f := newFixture(t, "[ACTION:GET_PROJECT:nowhere] [ACTION:LIST_WORKERS]")

	res, err := f.engine.ProcessTurn(f.ctx, "", "hi", "user-1")
	require.NoError(t, err)
	assert.Contains(t, res.Response, "Error: project not found")
	assert.Contains(t, res.Response, "Found 1 worker(s)")
	assert.Nil(t, res.Payload)
}

func TestGuardedOperation_ConfirmExactlyOnce(t *testing.T) {
	f := newFixture(t)
	f.chat.replies = []string{"I can remove them. [PROPOSE:DELETE_WORKER:" + f.worker.ID + "]"}

	res, err := f.engine.ProcessTurn(f.ctx, "", "delete Ahmed", "user-1")
	require.NoError(t, err)
	require.Len(t, res.PendingOperations, 1)
	op := res.PendingOperations[0]
	assert.Equal(t, models.OpDeleteWorker, op.Kind)
	assert.Contains(t, res.Response, op.ID)
	assert.NotContains(t, res.Response, "[PROPOSE")
	assert.Equal(t, "PROPOSE_DELETE_WORKER", res.Action)

	_, err = f.store.GetWorker(f.ctx, f.worker.ID)
	require.NoError(t, err, "proposal must not mutate")

	first := f.engine.ConfirmOperation(f.ctx, op.ID, res.SessionID)
	require.True(t, first.Success, first.Message)
	_, err = f.store.GetWorker(f.ctx, f.worker.ID)
	assert.True(t, store.IsNotFound(err))

	second := f.engine.ConfirmOperation(f.ctx, op.ID, res.SessionID)
	assert.False(t, second.Success)
	assert.Equal(t, models.ErrorNotFound, second.ErrorKind)
}

func TestGuardedOperation_OwnershipIsolation(t *testing.T) {
	f := newFixture(t, "[PROPOSE:CREATE_PROJECT:Depot]", "ok")

	a, err := f.engine.ProcessTurn(f.ctx, "", "new project", "user-1")
	require.NoError(t, err)
	b, err := f.engine.ProcessTurn(f.ctx, "", "hello", "user-2")
	require.NoError(t, err)
	opID := a.PendingOperations[0].ID

	res := f.engine.ConfirmOperation(f.ctx, opID, b.SessionID)
	assert.Equal(t, models.ErrorUnauthorized, res.ErrorKind)
	assert.False(t, f.engine.CancelOperation(opID, b.SessionID))
	require.Len(t, f.engine.ListPendingOperations(a.SessionID), 1)

	assert.True(t, f.engine.CancelOperation(opID, a.SessionID))
	assert.Empty(t, f.engine.ListPendingOperations(a.SessionID))
}

func TestProcessTurn_UnknownProposal(t *testing.T) {
	f := newFixture(t, "[PROPOSE:FORMAT_DISK:c]")

	res, err := f.engine.ProcessTurn(f.ctx, "", "wipe", "user-1")
	require.NoError(t, err)
	assert.Contains(t, res.Response, "FORMAT_DISK was not registered")
	assert.Empty(t, res.PendingOperations)
}

func TestProcessTurn_ProviderFailure(t *testing.T) {
	f := newFixture(t)
	f.chat.err = errors.New("all AI providers are unavailable")

	res, err := f.engine.ProcessTurn(f.ctx, "", "hello", "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Error)
	assert.True(t, strings.HasPrefix(res.Response, "Sorry"))
	assert.Equal(t, models.StepFailed, res.Steps[0].Status)

	msgs, err := f.engine.SessionMessages(f.ctx, res.SessionID, "user-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, res.Response, msgs[1].Content)
}

func TestProcessTurn_HistoryAndOwnership(t *testing.T) {
	f := newFixture(t, "first answer", "second answer")

	first, err := f.engine.ProcessTurn(f.ctx, "", "first question", "user-1")
	require.NoError(t, err)
	_, err = f.engine.ProcessTurn(f.ctx, first.SessionID, "second question", "user-1")
	require.NoError(t, err)

	require.Len(t, f.chat.seen, 2)
	sent := f.chat.seen[1]
	require.Len(t, sent, 3)
	assert.Equal(t, "first question", sent[0].Content)
	assert.Equal(t, "assistant", sent[1].Role)
	assert.Equal(t, "second question", sent[2].Content)
	assert.Contains(t, f.chat.system, "Today is 2026-05-02")
	assert.Contains(t, f.chat.system, "2026-05-01")

	_, err = f.engine.ProcessTurn(f.ctx, first.SessionID, "sneaky", "user-2")
	assert.ErrorIs(t, err, agent.ErrForbidden)

	_, err = f.engine.ProcessTurn(f.ctx, first.SessionID, "  ", "user-1")
	assert.ErrorIs(t, err, agent.ErrEmptyMessage)
}

func TestDeleteSession_DropsPendingOperations(t *testing.T) {
	f := newFixture(t, "[PROPOSE:DELETE_WORKER:x] [PROPOSE:DELETE_PROJECT:y]")

	res, err := f.engine.ProcessTurn(f.ctx, "", "clean up", "user-1")
	require.NoError(t, err)
	require.Len(t, res.PendingOperations, 2)

	assert.ErrorIs(t, f.engine.DeleteSession(f.ctx, res.SessionID, "user-2"), agent.ErrForbidden)
	require.NoError(t, f.engine.DeleteSession(f.ctx, res.SessionID, "user-1"))
	assert.Empty(t, f.engine.ListPendingOperations(res.SessionID))

	sessions, err := f.engine.ListSessions(f.ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
