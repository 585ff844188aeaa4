package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/binarjoin/agent-engine/pkg/models"
	"github.com/google/uuid"
)

// ── Sessions ────────────────────────────────────────────────

const sessionCols = `id, owner_id, title, message_count, last_message_at, created_at, updated_at`

func (s *SQLStore) CreateSession(ctx context.Context, sess *models.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	sess.CreatedAt = now()
	sess.UpdatedAt = sess.CreatedAt
	return s.insert(ctx, "ai_chat_sessions",
		[]string{"id", "owner_id", "title", "message_count", "created_at", "updated_at"},
		sess.ID, sess.OwnerID, sess.Title, sess.MessageCount, sess.CreatedAt, sess.UpdatedAt)
}

func (s *SQLStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var sess models.Session
	if err := s.getOne(ctx, &sess, "session", id, `SELECT `+sessionCols+` FROM ai_chat_sessions WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SQLStore) ListSessions(ctx context.Context, ownerID string) ([]models.Session, error) {
	var out []models.Session
	q := `SELECT ` + sessionCols + ` FROM ai_chat_sessions WHERE owner_id = ? ORDER BY updated_at DESC`
	if err := s.selectAll(ctx, &out, q, ownerID); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

// DeleteSession removes the session and its messages.
func (s *SQLStore) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM ai_chat_messages WHERE session_id = ?`), id); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM ai_chat_sessions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ErrNotFound{Entity: "session", Key: id}
	}
	return tx.Commit()
}

func (s *SQLStore) ListIdleSessions(ctx context.Context, before time.Time) ([]string, error) {
	var ids []string
	q := `SELECT id FROM ai_chat_sessions WHERE updated_at < ? ORDER BY updated_at`
	if err := s.selectAll(ctx, &ids, q, before.UTC()); err != nil {
		return nil, fmt.Errorf("list idle sessions: %w", err)
	}
	return ids, nil
}

// ── Messages ────────────────────────────────────────────────

type messageRow struct {
	ID         string    `db:"id"`
	SessionID  string    `db:"session_id"`
	Role       string    `db:"role"`
	Content    string    `db:"content"`
	Action     string    `db:"action"`
	Payload    string    `db:"payload"`
	Steps      string    `db:"steps"`
	Provider   string    `db:"provider"`
	Model      string    `db:"model"`
	TokensUsed int       `db:"tokens_used"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r messageRow) toModel() models.Message {
	m := models.Message{
		ID:         r.ID,
		SessionID:  r.SessionID,
		Role:       models.MessageRole(r.Role),
		Content:    r.Content,
		Action:     r.Action,
		Provider:   r.Provider,
		Model:      r.Model,
		TokensUsed: r.TokensUsed,
		CreatedAt:  r.CreatedAt,
	}
	if r.Payload != "" {
		var payload interface{}
		if json.Unmarshal([]byte(r.Payload), &payload) == nil {
			m.Payload = payload
		}
	}
	if r.Steps != "" {
		_ = json.Unmarshal([]byte(r.Steps), &m.Steps)
	}
	return m
}

func encodeJSON(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *SQLStore) AppendMessage(ctx context.Context, m *models.Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = now()

	payload, err := encodeJSON(m.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	var steps string
	if len(m.Steps) > 0 {
		if steps, err = encodeJSON(m.Steps); err != nil {
			return fmt.Errorf("encode steps: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.rebind(`UPDATE ai_chat_sessions
		SET message_count = message_count + 1, last_message_at = ?, updated_at = ? WHERE id = ?`),
		m.CreatedAt, m.CreatedAt, m.SessionID)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ErrNotFound{Entity: "session", Key: m.SessionID}
	}
	var seq int
	if err := tx.QueryRowContext(ctx, s.rebind(`SELECT message_count FROM ai_chat_sessions WHERE id = ?`), m.SessionID).Scan(&seq); err != nil {
		return fmt.Errorf("read sequence: %w", err)
	}

	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO ai_chat_messages
		(id, session_id, seq, role, content, action, payload, steps, provider, model, tokens_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		m.ID, m.SessionID, seq, string(m.Role), m.Content, m.Action, payload, steps, m.Provider, m.Model, m.TokensUsed, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return tx.Commit()
}

// ListMessages returns the session's messages in chronological order.
// A positive limit keeps only the most recent limit messages.
func (s *SQLStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]models.Message, error) {
	var rows []messageRow
	q := `SELECT id, session_id, role, content, action, payload, steps, provider, model, tokens_used, created_at
		FROM ai_chat_messages WHERE session_id = ? ORDER BY seq DESC`
	args := []interface{}{sessionID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	if err := s.selectAll(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	out := make([]models.Message, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r.toModel()
	}
	return out, nil
}

// ── Usage ───────────────────────────────────────────────────

func (s *SQLStore) RecordUsage(ctx context.Context, ownerID, date, provider, model string, tokens int) error {
	_, err := s.exec(ctx, `INSERT INTO ai_usage_stats (owner_id, date, provider, model, requests, tokens)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT (owner_id, date, provider, model)
		DO UPDATE SET requests = ai_usage_stats.requests + 1, tokens = ai_usage_stats.tokens + excluded.tokens`,
		ownerID, date, provider, model, tokens)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

func (s *SQLStore) ListUsage(ctx context.Context, ownerID string) ([]models.UsageRecord, error) {
	var out []models.UsageRecord
	q := `SELECT owner_id, date, provider, model, requests, tokens FROM ai_usage_stats
		WHERE owner_id = ? ORDER BY date DESC, provider, model`
	if err := s.selectAll(ctx, &out, q, ownerID); err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	return out, nil
}
