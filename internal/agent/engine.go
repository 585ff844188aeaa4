// Package agent runs conversation turns: it sends history to the provider
// router, executes the read directives in the reply, registers proposed
// writes for confirmation and persists both sides of the exchange.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/binarjoin/agent-engine/internal/actions"
	"github.com/binarjoin/agent-engine/internal/directive"
	"github.com/binarjoin/agent-engine/internal/pending"
	"github.com/binarjoin/agent-engine/internal/reports"
	"github.com/binarjoin/agent-engine/internal/store"
	"github.com/binarjoin/agent-engine/internal/telemetry"
	"github.com/binarjoin/agent-engine/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// ErrForbidden is returned when a session is used by someone other than its owner.
	ErrForbidden = errors.New("session belongs to another user")
	// ErrEmptyMessage is returned for a blank user message.
	ErrEmptyMessage = errors.New("message is required")
	// ErrOwnerRequired is returned when no owner is given.
	ErrOwnerRequired = errors.New("owner is required")
)

// Chatter produces one completion from a conversation.
type Chatter interface {
	Chat(ctx context.Context, messages []models.ChatMessage, system string) (*models.Completion, error)
}

// TurnResult is what a turn returns to the caller.
type TurnResult struct {
	SessionID         string                    `json:"session_id"`
	Response          string                    `json:"response"`
	Payload           interface{}               `json:"payload,omitempty"`
	Action            string                    `json:"action,omitempty"`
	Provider          string                    `json:"provider,omitempty"`
	Model             string                    `json:"model,omitempty"`
	Steps             []models.Step             `json:"steps"`
	PendingOperations []models.PendingOperation `json:"pending_operations"`
	Error             string                    `json:"error,omitempty"`
}

// Engine wires the router, executor, registry and formatter together.
type Engine struct {
	chat    Chatter
	store   store.Store
	pending *pending.Registry
	exec    *actions.Executor
	format  *reports.Formatter
	history int
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithHistoryLimit caps how many past messages are sent to the model.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) { e.history = n }
}

// WithClock overrides the engine clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine.
func New(chat Chatter, s store.Store, reg *pending.Registry, exec *actions.Executor, format *reports.Formatter, opts ...Option) *Engine {
	e := &Engine{
		chat:    chat,
		store:   s,
		pending: reg,
		exec:    exec,
		format:  format,
		history: 20,
		now:     time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ── Sessions ────────────────────────────────────────────────

const defaultTitle = "New conversation"

// CreateSession starts a conversation for ownerID.
func (e *Engine) CreateSession(ctx context.Context, ownerID, title string) (string, error) {
	if ownerID == "" {
		return "", ErrOwnerRequired
	}
	if strings.TrimSpace(title) == "" {
		title = defaultTitle
	}
	s := &models.Session{ID: uuid.New().String(), OwnerID: ownerID, Title: title}
	if err := e.store.CreateSession(ctx, s); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	log.Info().Str("session", s.ID).Str("owner", ownerID).Msg("Session created")
	return s.ID, nil
}

// Session returns the session if ownerID owns it.
func (e *Engine) Session(ctx context.Context, sessionID, ownerID string) (*models.Session, error) {
	s, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return s, nil
}

func (e *Engine) ListSessions(ctx context.Context, ownerID string) ([]models.Session, error) {
	return e.store.ListSessions(ctx, ownerID)
}

// SessionMessages returns the full history of an owned session.
func (e *Engine) SessionMessages(ctx context.Context, sessionID, ownerID string) ([]models.Message, error) {
	if _, err := e.Session(ctx, sessionID, ownerID); err != nil {
		return nil, err
	}
	return e.store.ListMessages(ctx, sessionID, 0)
}

// DeleteSession removes an owned session and drops its pending operations.
func (e *Engine) DeleteSession(ctx context.Context, sessionID, ownerID string) error {
	if _, err := e.Session(ctx, sessionID, ownerID); err != nil {
		return err
	}
	if err := e.store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	dropped := e.pending.DropSession(sessionID)
	log.Info().Str("session", sessionID).Int("dropped_operations", dropped).Msg("Session deleted")
	return nil
}

// ── Turns ───────────────────────────────────────────────────

func newSteps() []models.Step {
	return []models.Step{
		{ID: "analyze", Title: "Analyze request", Status: models.StepInProgress},
		{ID: "retrieve", Title: "Retrieve requested data", Status: models.StepPending},
		{ID: "respond", Title: "Process results and format reply", Status: models.StepPending},
	}
}

// ProcessTurn handles one user message. A provider failure does not return
// an error: the reply carries an apology and Error is set. Errors are only
// returned for bad input, ownership and storage failures.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID, userText, ownerID string) (*TurnResult, error) {
	if strings.TrimSpace(userText) == "" {
		return nil, ErrEmptyMessage
	}
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	if sessionID == "" {
		id, err := e.CreateSession(ctx, ownerID, titleFrom(userText))
		if err != nil {
			return nil, err
		}
		sessionID = id
	} else if _, err := e.Session(ctx, sessionID, ownerID); err != nil {
		return nil, err
	}

	ctx, span := telemetry.Tracer().Start(ctx, "agent.turn")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	if err := e.store.AppendMessage(ctx, &models.Message{
		SessionID: sessionID,
		Role:      models.RoleUser,
		Content:   userText,
	}); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	history, err := e.store.ListMessages(ctx, sessionID, e.history)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	msgs := make([]models.ChatMessage, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, models.ChatMessage{Role: string(m.Role), Content: m.Content})
	}

	steps := newSteps()
	result := &TurnResult{SessionID: sessionID, Steps: steps}

	comp, err := e.chat.Chat(ctx, msgs, SystemPrompt(e.now()))
	if err != nil {
		steps[0].Status = models.StepFailed
		result.Error = err.Error()
		result.Response = "Sorry, the request could not be completed: " + err.Error()
		log.Error().Err(err).Str("session", sessionID).Msg("Turn failed")

		if err := e.store.AppendMessage(ctx, &models.Message{
			SessionID: sessionID,
			Role:      models.RoleAssistant,
			Content:   result.Response,
			Steps:     steps,
		}); err != nil {
			return nil, fmt.Errorf("save error reply: %w", err)
		}
		result.PendingOperations = e.pending.List(sessionID)
		return result, nil
	}

	steps[0].Status = models.StepCompleted
	steps[1].Status = models.StepInProgress

	out := e.interpret(ctx, sessionID, comp.Content)

	steps[1].Status = models.StepCompleted
	steps[2].Status = models.StepInProgress

	result.Response = out.text
	result.Payload = out.payload
	result.Action = out.action
	result.Provider = string(comp.Provider)
	result.Model = comp.Model

	steps[2].Status = models.StepCompleted

	if err := e.store.AppendMessage(ctx, &models.Message{
		SessionID:  sessionID,
		Role:       models.RoleAssistant,
		Content:    result.Response,
		Action:     result.Action,
		Payload:    result.Payload,
		Steps:      steps,
		Provider:   result.Provider,
		Model:      result.Model,
		TokensUsed: comp.TokensUsed,
	}); err != nil {
		return nil, fmt.Errorf("save reply: %w", err)
	}

	date := e.now().UTC().Format("2006-01-02")
	if err := e.store.RecordUsage(ctx, ownerID, date, result.Provider, result.Model, comp.TokensUsed); err != nil {
		log.Warn().Err(err).Str("owner", ownerID).Msg("Failed to record usage")
	}

	result.PendingOperations = e.pending.List(sessionID)
	span.SetAttributes(
		attribute.String("ai.provider", result.Provider),
		attribute.Int("turn.actions", out.actions),
		attribute.Int("turn.proposals", out.proposals),
	)
	log.Info().
		Str("session", sessionID).
		Str("provider", result.Provider).
		Str("model", result.Model).
		Int("actions", out.actions).
		Int("proposals", out.proposals).
		Msg("Turn processed")
	return result, nil
}

func titleFrom(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= 50 {
		return text
	}
	r := []rune(text)
	return string(r[:50]) + "…"
}

// ── Directives ──────────────────────────────────────────────

type interpretation struct {
	text      string
	payload   interface{}
	action    string
	actions   int
	proposals int
}

// interpret strips directives from the model text, runs reads in order and
// appends their sections, and replaces proposals with their operation ids.
func (e *Engine) interpret(ctx context.Context, sessionID, text string) interpretation {
	var out interpretation
	dirs := directive.Parse(text)
	repl := make([]string, len(dirs))
	var sections []string

	for i, d := range dirs {
		switch d.Kind {
		case directive.KindAction:
			res := e.runRead(ctx, d)
			if out.actions == 0 {
				out.action = d.Type
				out.payload = res.Data
			}
			out.actions++
			sections = append(sections, e.format.FormatResult(res))

		case directive.KindPropose:
			op, err := e.pending.Register(models.OperationKind(d.Type), d.Params, sessionID)
			if err != nil {
				repl[i] = fmt.Sprintf("\n⚠ Proposed operation %s was not registered: %v\n", d.Type, err)
				continue
			}
			out.proposals++
			if out.action == "" {
				out.action = "PROPOSE_" + d.Type
			}
			repl[i] = fmt.Sprintf("\n🔐 Confirmation required for %s. Operation ID: %s\n", d.Type, op.ID)
			log.Info().Str("session", sessionID).Str("operation", op.ID).Str("type", d.Type).Msg("Operation proposed")
		}
	}

	body := directive.Replace(text, dirs, func(i int, _ directive.Directive) string { return repl[i] })
	if len(sections) > 0 {
		body += "\n\n" + strings.Join(sections, "\n\n")
	}
	out.text = directive.Tidy(body)
	return out
}

// runRead executes one read directive. A panic in the read path becomes a
// failed result so that sibling directives still run.
func (e *Engine) runRead(ctx context.Context, d directive.Directive) (res models.ActionResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("action", d.Type).Msg("Action panicked")
			res = models.ActionResult{Action: d.Type, Message: fmt.Sprintf("action %s failed", d.Type), ErrorKind: models.ErrorStore}
		}
	}()
	return e.exec.Read(ctx, d.Type, d.Params)
}

// ── Guarded Operations ──────────────────────────────────────

// ActConfirm is the action name of confirmation failures.
const ActConfirm = "CONFIRM_OPERATION"

// ListPendingOperations returns the session's operations awaiting confirmation.
func (e *Engine) ListPendingOperations(sessionID string) []models.PendingOperation {
	return e.pending.List(sessionID)
}

// ConfirmOperation executes a pending operation owned by sessionID. The
// operation is removed before it runs, so a second confirm is not found.
func (e *Engine) ConfirmOperation(ctx context.Context, opID, sessionID string) models.ActionResult {
	op, err := e.pending.Take(opID, sessionID)
	switch {
	case errors.Is(err, pending.ErrNotFound):
		return models.ActionResult{Action: ActConfirm, Message: err.Error(), ErrorKind: models.ErrorNotFound}
	case errors.Is(err, pending.ErrNotAuthorized):
		log.Warn().Str("operation", opID).Str("session", sessionID).Msg("Confirmation from non-owner session")
		return models.ActionResult{Action: ActConfirm, Message: err.Error(), ErrorKind: models.ErrorUnauthorized}
	case err != nil:
		return models.ActionResult{Action: ActConfirm, Message: err.Error(), ErrorKind: models.ErrorStore}
	}

	res := e.exec.Write(ctx, op.Kind, op.Params, true)
	log.Info().
		Str("operation", op.ID).
		Str("type", string(op.Kind)).
		Bool("success", res.Success).
		Msg("Operation confirmed")
	return res
}

// CancelOperation discards a pending operation owned by sessionID.
func (e *Engine) CancelOperation(opID, sessionID string) bool {
	if err := e.pending.Cancel(opID, sessionID); err != nil {
		return false
	}
	log.Info().Str("operation", opID).Str("session", sessionID).Msg("Operation cancelled")
	return true
}
