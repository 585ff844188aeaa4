// Package store provides the storage interface and the SQL implementation
// backing the AI engine: business entities, ledgers, sessions and usage.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/binarjoin/agent-engine/pkg/models"
)

// Store is the primary storage interface for the engine.
// Action and session code depend on this interface; SQLite backs it in
// development and tests, PostgreSQL in production.
type Store interface {
	EntityStore
	LedgerStore
	SessionStore
	UsageStore

	// ExecRaw runs an arbitrary statement. Row-returning statements yield
	// Rows; everything else yields RowsAffected.
	ExecRaw(ctx context.Context, query string) (*RawResult, error)

	Ping(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
}

// ── Entity Store ────────────────────────────────────────────

type EntityStore interface {
	GetProject(ctx context.Context, id string) (*models.Project, error)
	FindProjectByName(ctx context.Context, name string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	CreateProject(ctx context.Context, p *models.Project) error

	GetWorker(ctx context.Context, id string) (*models.Worker, error)
	FindWorkersByName(ctx context.Context, name string) ([]models.Worker, error)
	ListWorkers(ctx context.Context) ([]models.Worker, error)
	CreateWorker(ctx context.Context, w *models.Worker) error

	GetSupplier(ctx context.Context, id string) (*models.Supplier, error)
	FindSuppliersByName(ctx context.Context, name string) ([]models.Supplier, error)
	ListSuppliers(ctx context.Context) ([]models.Supplier, error)
	CreateSupplier(ctx context.Context, s *models.Supplier) error

	GetEquipment(ctx context.Context, id string) (*models.Equipment, error)
	FindEquipmentByName(ctx context.Context, name string) ([]models.Equipment, error)
	ListEquipment(ctx context.Context, projectID string) ([]models.Equipment, error)
	CreateEquipment(ctx context.Context, e *models.Equipment) error

	// UpdateField sets one whitelisted column of an entity.
	UpdateField(ctx context.Context, kind EntityKind, id, field string, value interface{}) error

	// Delete removes an entity row and returns ErrNotFound when absent.
	Delete(ctx context.Context, kind EntityKind, id string) error
}

// ── Ledger Store ────────────────────────────────────────────

type LedgerStore interface {
	GetAttendance(ctx context.Context, id string) (*models.Attendance, error)
	AddAttendance(ctx context.Context, a *models.Attendance) error
	ListAttendance(ctx context.Context, workerID, projectID string) ([]models.Attendance, error)

	AddFundTransfer(ctx context.Context, f *models.FundTransfer) error
	AddWorkerTransfer(ctx context.Context, t *models.WorkerTransfer) error
	ListWorkerTransfers(ctx context.Context, workerID string) ([]models.WorkerTransfer, error)
	AddMaterialPurchase(ctx context.Context, p *models.MaterialPurchase) error
	AddTransportExpense(ctx context.Context, e *models.TransportExpense) error
	AddMiscExpense(ctx context.Context, e *models.MiscExpense) error

	// ExpenseTotals sums funds and paid expenses of a project.
	ExpenseTotals(ctx context.Context, projectID string) (*models.ExpenseSummary, error)

	// DailyExpenses lists a project's expense rows for one YYYY-MM-DD date.
	DailyExpenses(ctx context.Context, projectID, date string) (*models.DailyExpenses, error)
}

// ── Session Store ───────────────────────────────────────────

type SessionStore interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context, ownerID string) ([]models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	// ListIdleSessions returns the ids of sessions not updated since before.
	ListIdleSessions(ctx context.Context, before time.Time) ([]string, error)

	// AppendMessage stores m and bumps the session's count and timestamps.
	AppendMessage(ctx context.Context, m *models.Message) error
	ListMessages(ctx context.Context, sessionID string, limit int) ([]models.Message, error)
}

// ── Usage Store ─────────────────────────────────────────────

type UsageStore interface {
	RecordUsage(ctx context.Context, ownerID, date, provider, model string, tokens int) error
	ListUsage(ctx context.Context, ownerID string) ([]models.UsageRecord, error)
}

// ── Raw Queries ─────────────────────────────────────────────

type RawResult struct {
	Rows         []map[string]interface{} `json:"rows,omitempty"`
	RowsAffected int64                    `json:"rows_affected"`
}

// ── Entity Kinds ────────────────────────────────────────────

type EntityKind string

const (
	KindProject    EntityKind = "project"
	KindWorker     EntityKind = "worker"
	KindSupplier   EntityKind = "supplier"
	KindEquipment  EntityKind = "equipment"
	KindAttendance EntityKind = "attendance"
)

type entityTable struct {
	table     string
	updatable map[string]bool
	stamped   bool // has updated_at
}

var entityTables = map[EntityKind]entityTable{
	KindProject: {
		table:     "projects",
		updatable: map[string]bool{"name": true, "description": true, "status": true, "budget": true},
		stamped:   true,
	},
	KindWorker: {
		table:     "workers",
		updatable: map[string]bool{"name": true, "type": true, "daily_wage": true, "phone": true, "is_active": true},
		stamped:   true,
	},
	KindSupplier: {
		table:     "suppliers",
		updatable: map[string]bool{"name": true, "contact_person": true, "phone": true, "address": true},
		stamped:   true,
	},
	KindEquipment: {
		table:     "equipment",
		updatable: map[string]bool{"name": true, "code": true, "status": true, "project_id": true},
		stamped:   true,
	},
	KindAttendance: {
		table:     "worker_attendance",
		updatable: map[string]bool{"work_days": true, "paid_amount": true},
	},
}

// UpdatableFields reports the columns UpdateField accepts for kind.
func UpdatableFields(kind EntityKind) []string {
	t, ok := entityTables[kind]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(t.updatable))
	for f := range t.updatable {
		out = append(out, f)
	}
	return out
}

// ── Errors ──────────────────────────────────────────────────

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}

// IsNotFound reports whether err wraps an *ErrNotFound.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}

// ErrInvalidField is returned by UpdateField for a column outside the whitelist.
var ErrInvalidField = errors.New("field cannot be updated")
