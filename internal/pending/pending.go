// Package pending holds proposed write operations until the owning
// conversation confirms or cancels them.
package pending

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/binarjoin/agent-engine/pkg/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for unknown, already consumed or dropped ids.
	ErrNotFound = errors.New("operation not found or expired")
	// ErrNotAuthorized is returned when a session touches another session's
	// operation. The operation stays pending.
	ErrNotAuthorized = errors.New("not authorized to act on this operation")
	// ErrUnknownKind is returned when registering a kind outside the write table.
	ErrUnknownKind = errors.New("unknown operation kind")
)

// Registry is a thread-safe in-memory map of pending operations. Entries
// are removed under the lock before they are handed out, so each one is
// consumed at most once.
type Registry struct {
	mu  sync.Mutex
	ops map[string]*models.PendingOperation // key: operation ID
	now func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ops: make(map[string]*models.PendingOperation),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Register stores a new operation owned by sessionID.
func (r *Registry) Register(kind models.OperationKind, params []string, sessionID string) (*models.PendingOperation, error) {
	if !kind.Known() {
		return nil, ErrUnknownKind
	}
	op := &models.PendingOperation{
		ID:        "op_" + uuid.New().String(),
		Kind:      kind,
		Params:    append([]string(nil), params...),
		SessionID: sessionID,
		CreatedAt: r.now(),
	}

	r.mu.Lock()
	r.ops[op.ID] = op
	r.mu.Unlock()
	return op, nil
}

// Take removes and returns the operation if sessionID owns it.
func (r *Registry) Take(id, sessionID string) (*models.PendingOperation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	op, ok := r.ops[id]
	if !ok {
		return nil, ErrNotFound
	}
	if op.SessionID != sessionID {
		return nil, ErrNotAuthorized
	}
	delete(r.ops, id)
	return op, nil
}

// Cancel discards the operation without executing it.
func (r *Registry) Cancel(id, sessionID string) error {
	_, err := r.Take(id, sessionID)
	return err
}

// List returns the session's pending operations, oldest first.
func (r *Registry) List(sessionID string) []models.PendingOperation {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]models.PendingOperation, 0)
	for _, op := range r.ops {
		if op.SessionID == sessionID {
			result = append(result, *op)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// DropSession removes every operation owned by sessionID and returns how
// many were dropped.
func (r *Registry) DropSession(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, op := range r.ops {
		if op.SessionID == sessionID {
			delete(r.ops, id)
			n++
		}
	}
	return n
}

// Len reports the total number of pending operations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}
