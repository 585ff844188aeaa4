package store

import (
	"context"
	"fmt"

	"github.com/binarjoin/agent-engine/pkg/models"
	"github.com/google/uuid"
)

// ── Attendance ──────────────────────────────────────────────

const attendanceCols = `id, worker_id, project_id, date, work_days, daily_wage, total_pay, paid_amount, created_at`

func (s *SQLStore) GetAttendance(ctx context.Context, id string) (*models.Attendance, error) {
	var a models.Attendance
	q := `SELECT ` + attendanceCols + ` FROM worker_attendance WHERE id = ?`
	if err := s.getOne(ctx, &a, "attendance", id, q, id); err != nil {
		return nil, err
	}
	return &a, nil
}

// AddAttendance stores a. TotalPay is derived from WorkDays and DailyWage
// when left at zero.
func (s *SQLStore) AddAttendance(ctx context.Context, a *models.Attendance) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.TotalPay == 0 {
		a.TotalPay = a.WorkDays * a.DailyWage
	}
	a.CreatedAt = now()
	return s.insert(ctx, "worker_attendance",
		[]string{"id", "worker_id", "project_id", "date", "work_days", "daily_wage", "total_pay", "paid_amount", "created_at"},
		a.ID, a.WorkerID, a.ProjectID, a.Date, a.WorkDays, a.DailyWage, a.TotalPay, a.PaidAmount, a.CreatedAt)
}

// ListAttendance returns a worker's records, newest first, optionally
// restricted to one project.
func (s *SQLStore) ListAttendance(ctx context.Context, workerID, projectID string) ([]models.Attendance, error) {
	var out []models.Attendance
	q := `SELECT ` + attendanceCols + ` FROM worker_attendance WHERE worker_id = ?`
	args := []interface{}{workerID}
	if projectID != "" {
		q += ` AND project_id = ?`
		args = append(args, projectID)
	}
	q += ` ORDER BY date DESC`
	if err := s.selectAll(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return out, nil
}

// ── Transfers ───────────────────────────────────────────────

func (s *SQLStore) AddFundTransfer(ctx context.Context, f *models.FundTransfer) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	f.CreatedAt = now()
	return s.insert(ctx, "fund_transfers",
		[]string{"id", "project_id", "amount", "sender_name", "date", "created_at"},
		f.ID, f.ProjectID, f.Amount, f.SenderName, f.Date, f.CreatedAt)
}

func (s *SQLStore) AddWorkerTransfer(ctx context.Context, t *models.WorkerTransfer) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.CreatedAt = now()
	return s.insert(ctx, "worker_transfers",
		[]string{"id", "worker_id", "project_id", "amount", "recipient_name", "date", "created_at"},
		t.ID, t.WorkerID, t.ProjectID, t.Amount, t.RecipientName, t.Date, t.CreatedAt)
}

func (s *SQLStore) ListWorkerTransfers(ctx context.Context, workerID string) ([]models.WorkerTransfer, error) {
	var out []models.WorkerTransfer
	q := `SELECT id, worker_id, project_id, amount, recipient_name, date, created_at
		FROM worker_transfers WHERE worker_id = ? ORDER BY date DESC`
	if err := s.selectAll(ctx, &out, q, workerID); err != nil {
		return nil, fmt.Errorf("list worker transfers: %w", err)
	}
	return out, nil
}

// ── Expenses ────────────────────────────────────────────────

func (s *SQLStore) AddMaterialPurchase(ctx context.Context, p *models.MaterialPurchase) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = now()
	return s.insert(ctx, "material_purchases",
		[]string{"id", "project_id", "supplier_id", "material_name", "quantity", "total_amount", "paid_amount", "date", "created_at"},
		p.ID, p.ProjectID, p.SupplierID, p.MaterialName, p.Quantity, p.TotalAmount, p.PaidAmount, p.Date, p.CreatedAt)
}

func (s *SQLStore) AddTransportExpense(ctx context.Context, e *models.TransportExpense) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.CreatedAt = now()
	return s.insert(ctx, "transportation_expenses",
		[]string{"id", "project_id", "amount", "description", "date", "created_at"},
		e.ID, e.ProjectID, e.Amount, e.Description, e.Date, e.CreatedAt)
}

func (s *SQLStore) AddMiscExpense(ctx context.Context, e *models.MiscExpense) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.CreatedAt = now()
	return s.insert(ctx, "worker_misc_expenses",
		[]string{"id", "project_id", "worker_id", "amount", "description", "date", "created_at"},
		e.ID, e.ProjectID, e.WorkerID, e.Amount, e.Description, e.Date, e.CreatedAt)
}

// ── Aggregates ──────────────────────────────────────────────

// ExpenseTotals counts only what was actually paid: wages and materials
// use paid_amount, transport and misc rows are paid by definition.
func (s *SQLStore) ExpenseTotals(ctx context.Context, projectID string) (*models.ExpenseSummary, error) {
	sum := &models.ExpenseSummary{ProjectID: projectID}
	parts := []struct {
		dst   *float64
		query string
	}{
		{&sum.TotalFunds, `SELECT COALESCE(SUM(amount), 0) FROM fund_transfers WHERE project_id = ?`},
		{&sum.TotalWages, `SELECT COALESCE(SUM(paid_amount), 0) FROM worker_attendance WHERE project_id = ?`},
		{&sum.TotalMaterials, `SELECT COALESCE(SUM(paid_amount), 0) FROM material_purchases WHERE project_id = ?`},
		{&sum.TotalTransport, `SELECT COALESCE(SUM(amount), 0) FROM transportation_expenses WHERE project_id = ?`},
		{&sum.TotalMisc, `SELECT COALESCE(SUM(amount), 0) FROM worker_misc_expenses WHERE project_id = ?`},
	}
	for _, p := range parts {
		if err := s.get(ctx, p.dst, p.query, projectID); err != nil {
			return nil, fmt.Errorf("expense totals: %w", err)
		}
	}
	sum.TotalExpenses = sum.TotalWages + sum.TotalMaterials + sum.TotalTransport + sum.TotalMisc
	sum.Balance = sum.TotalFunds - sum.TotalExpenses
	return sum, nil
}

func (s *SQLStore) DailyExpenses(ctx context.Context, projectID, date string) (*models.DailyExpenses, error) {
	d := &models.DailyExpenses{ProjectID: projectID, Date: date}

	if err := s.selectAll(ctx, &d.Wages,
		`SELECT `+attendanceCols+` FROM worker_attendance WHERE project_id = ? AND date = ? ORDER BY created_at`,
		projectID, date); err != nil {
		return nil, fmt.Errorf("daily wages: %w", err)
	}
	if err := s.selectAll(ctx, &d.Purchases,
		`SELECT id, project_id, supplier_id, material_name, quantity, total_amount, paid_amount, date, created_at
		FROM material_purchases WHERE project_id = ? AND date = ? ORDER BY created_at`,
		projectID, date); err != nil {
		return nil, fmt.Errorf("daily purchases: %w", err)
	}
	if err := s.selectAll(ctx, &d.Transport,
		`SELECT id, project_id, amount, description, date, created_at
		FROM transportation_expenses WHERE project_id = ? AND date = ? ORDER BY created_at`,
		projectID, date); err != nil {
		return nil, fmt.Errorf("daily transport: %w", err)
	}
	if err := s.selectAll(ctx, &d.Misc,
		`SELECT id, project_id, worker_id, amount, description, date, created_at
		FROM worker_misc_expenses WHERE project_id = ? AND date = ? ORDER BY created_at`,
		projectID, date); err != nil {
		return nil, fmt.Errorf("daily misc: %w", err)
	}

	for _, w := range d.Wages {
		d.TotalWages += w.PaidAmount
	}
	for _, p := range d.Purchases {
		d.TotalPurchases += p.PaidAmount
	}
	for _, t := range d.Transport {
		d.TotalTransport += t.Amount
	}
	for _, m := range d.Misc {
		d.TotalMisc += m.Amount
	}
	d.Total = d.TotalWages + d.TotalPurchases + d.TotalTransport + d.TotalMisc
	return d, nil
}
