package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/binarjoin/agent-engine/pkg/models"
	"github.com/google/uuid"
)

func likePattern(name string) string {
	return "%" + strings.ToLower(strings.TrimSpace(name)) + "%"
}

// ── Projects ────────────────────────────────────────────────

const projectCols = `id, name, description, status, budget, created_at, updated_at`

func (s *SQLStore) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	if err := s.getOne(ctx, &p, "project", id, `SELECT `+projectCols+` FROM projects WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindProjectByName returns the first project whose name contains name.
func (s *SQLStore) FindProjectByName(ctx context.Context, name string) (*models.Project, error) {
	var p models.Project
	q := `SELECT ` + projectCols + ` FROM projects WHERE LOWER(name) LIKE ? ORDER BY created_at LIMIT 1`
	if err := s.getOne(ctx, &p, "project", name, q, likePattern(name)); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLStore) ListProjects(ctx context.Context) ([]models.Project, error) {
	var out []models.Project
	if err := s.selectAll(ctx, &out, `SELECT `+projectCols+` FROM projects ORDER BY created_at DESC`); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

func (s *SQLStore) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = "active"
	}
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	return s.insert(ctx, "projects",
		[]string{"id", "name", "description", "status", "budget", "created_at", "updated_at"},
		p.ID, p.Name, p.Description, p.Status, p.Budget, p.CreatedAt, p.UpdatedAt)
}

// ── Workers ─────────────────────────────────────────────────

const workerCols = `id, name, type, daily_wage, phone, is_active, created_at, updated_at`

func (s *SQLStore) GetWorker(ctx context.Context, id string) (*models.Worker, error) {
	var w models.Worker
	if err := s.getOne(ctx, &w, "worker", id, `SELECT `+workerCols+` FROM workers WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *SQLStore) FindWorkersByName(ctx context.Context, name string) ([]models.Worker, error) {
	var out []models.Worker
	q := `SELECT ` + workerCols + ` FROM workers WHERE LOWER(name) LIKE ? ORDER BY name`
	if err := s.selectAll(ctx, &out, q, likePattern(name)); err != nil {
		return nil, fmt.Errorf("find workers: %w", err)
	}
	return out, nil
}

func (s *SQLStore) ListWorkers(ctx context.Context) ([]models.Worker, error) {
	var out []models.Worker
	if err := s.selectAll(ctx, &out, `SELECT `+workerCols+` FROM workers ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	return out, nil
}

func (s *SQLStore) CreateWorker(ctx context.Context, w *models.Worker) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	w.CreatedAt = now()
	w.UpdatedAt = w.CreatedAt
	return s.insert(ctx, "workers",
		[]string{"id", "name", "type", "daily_wage", "phone", "is_active", "created_at", "updated_at"},
		w.ID, w.Name, w.Type, w.DailyWage, w.Phone, w.IsActive, w.CreatedAt, w.UpdatedAt)
}

// ── Suppliers ───────────────────────────────────────────────

const supplierCols = `id, name, contact_person, phone, address, created_at, updated_at`

func (s *SQLStore) GetSupplier(ctx context.Context, id string) (*models.Supplier, error) {
	var sp models.Supplier
	if err := s.getOne(ctx, &sp, "supplier", id, `SELECT `+supplierCols+` FROM suppliers WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &sp, nil
}

func (s *SQLStore) FindSuppliersByName(ctx context.Context, name string) ([]models.Supplier, error) {
	var out []models.Supplier
	q := `SELECT ` + supplierCols + ` FROM suppliers WHERE LOWER(name) LIKE ? ORDER BY name`
	if err := s.selectAll(ctx, &out, q, likePattern(name)); err != nil {
		return nil, fmt.Errorf("find suppliers: %w", err)
	}
	return out, nil
}

func (s *SQLStore) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	var out []models.Supplier
	if err := s.selectAll(ctx, &out, `SELECT `+supplierCols+` FROM suppliers ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	return out, nil
}

func (s *SQLStore) CreateSupplier(ctx context.Context, sp *models.Supplier) error {
	if sp.ID == "" {
		sp.ID = uuid.New().String()
	}
	sp.CreatedAt = now()
	sp.UpdatedAt = sp.CreatedAt
	return s.insert(ctx, "suppliers",
		[]string{"id", "name", "contact_person", "phone", "address", "created_at", "updated_at"},
		sp.ID, sp.Name, sp.ContactPerson, sp.Phone, sp.Address, sp.CreatedAt, sp.UpdatedAt)
}

// ── Equipment ───────────────────────────────────────────────

const equipmentCols = `id, name, code, status, project_id, created_at, updated_at`

func (s *SQLStore) GetEquipment(ctx context.Context, id string) (*models.Equipment, error) {
	var e models.Equipment
	if err := s.getOne(ctx, &e, "equipment", id, `SELECT `+equipmentCols+` FROM equipment WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLStore) FindEquipmentByName(ctx context.Context, name string) ([]models.Equipment, error) {
	var out []models.Equipment
	q := `SELECT ` + equipmentCols + ` FROM equipment WHERE LOWER(name) LIKE ? OR LOWER(code) LIKE ? ORDER BY name`
	p := likePattern(name)
	if err := s.selectAll(ctx, &out, q, p, p); err != nil {
		return nil, fmt.Errorf("find equipment: %w", err)
	}
	return out, nil
}

// ListEquipment lists all equipment, or only the equipment assigned to
// projectID when it is non-empty.
func (s *SQLStore) ListEquipment(ctx context.Context, projectID string) ([]models.Equipment, error) {
	var out []models.Equipment
	var err error
	if projectID == "" {
		err = s.selectAll(ctx, &out, `SELECT `+equipmentCols+` FROM equipment ORDER BY name`)
	} else {
		err = s.selectAll(ctx, &out, `SELECT `+equipmentCols+` FROM equipment WHERE project_id = ? ORDER BY name`, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	return out, nil
}

func (s *SQLStore) CreateEquipment(ctx context.Context, e *models.Equipment) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = "available"
	}
	e.CreatedAt = now()
	e.UpdatedAt = e.CreatedAt
	return s.insert(ctx, "equipment",
		[]string{"id", "name", "code", "status", "project_id", "created_at", "updated_at"},
		e.ID, e.Name, e.Code, e.Status, e.ProjectID, e.CreatedAt, e.UpdatedAt)
}

// ── Generic update / delete ─────────────────────────────────

func (s *SQLStore) UpdateField(ctx context.Context, kind EntityKind, id, field string, value interface{}) error {
	t, ok := entityTables[kind]
	if !ok {
		return fmt.Errorf("unknown entity kind %q", kind)
	}
	if !t.updatable[field] {
		return fmt.Errorf("%s.%s: %w", kind, field, ErrInvalidField)
	}

	// field is whitelisted above, so interpolating it is safe.
	var res sql.Result
	var err error
	if t.stamped {
		res, err = s.exec(ctx, `UPDATE `+t.table+` SET `+field+` = ?, updated_at = ? WHERE id = ?`, value, now(), id)
	} else {
		res, err = s.exec(ctx, `UPDATE `+t.table+` SET `+field+` = ? WHERE id = ?`, value, id)
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", kind, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ErrNotFound{Entity: string(kind), Key: id}
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, kind EntityKind, id string) error {
	t, ok := entityTables[kind]
	if !ok {
		return fmt.Errorf("unknown entity kind %q", kind)
	}
	res, err := s.exec(ctx, `DELETE FROM `+t.table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ErrNotFound{Entity: string(kind), Key: id}
	}
	return nil
}
