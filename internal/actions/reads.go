package actions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/binarjoin/agent-engine/internal/store"
	"github.com/binarjoin/agent-engine/pkg/models"
)

// Read action names, as reported in ActionResult.Action.
const (
	ActFindWorker       = "FIND_WORKER"
	ActFindSupplier     = "FIND_SUPPLIER"
	ActFindEquipment    = "FIND_EQUIPMENT"
	ActGetProject       = "GET_PROJECT"
	ActGetWorker        = "GET_WORKER"
	ActListProjects     = "LIST_PROJECTS"
	ActListWorkers      = "LIST_WORKERS"
	ActListSuppliers    = "LIST_SUPPLIERS"
	ActListEquipment    = "LIST_EQUIPMENT"
	ActProjectExpenses  = "PROJECT_EXPENSES"
	ActWorkerAttendance = "WORKER_ATTENDANCE"
	ActWorkerTransfers  = "WORKER_TRANSFERS"
	ActWorkerStatement  = "WORKER_STATEMENT"
	ActDailyExpenses    = "DAILY_EXPENSES"
)

// ── Lookups ─────────────────────────────────────────────────

func (e *Executor) FindWorkerByName(ctx context.Context, name string) models.ActionResult {
	if err := required("name", name); err != nil {
		return fail(ActFindWorker, "worker", err)
	}
	workers, err := e.store.FindWorkersByName(ctx, name)
	if err != nil {
		return fail(ActFindWorker, "worker", err)
	}
	if workers == nil {
		workers = []models.Worker{}
	}
	return ok(ActFindWorker, fmt.Sprintf("Found %d worker(s)", len(workers)), workers)
}

func (e *Executor) FindSupplierByName(ctx context.Context, name string) models.ActionResult {
	if err := required("name", name); err != nil {
		return fail(ActFindSupplier, "supplier", err)
	}
	suppliers, err := e.store.FindSuppliersByName(ctx, name)
	if err != nil {
		return fail(ActFindSupplier, "supplier", err)
	}
	if suppliers == nil {
		suppliers = []models.Supplier{}
	}
	return ok(ActFindSupplier, fmt.Sprintf("Found %d supplier(s)", len(suppliers)), suppliers)
}

func (e *Executor) FindEquipmentByName(ctx context.Context, name string) models.ActionResult {
	if err := required("name", name); err != nil {
		return fail(ActFindEquipment, "equipment", err)
	}
	items, err := e.store.FindEquipmentByName(ctx, name)
	if err != nil {
		return fail(ActFindEquipment, "equipment", err)
	}
	if items == nil {
		items = []models.Equipment{}
	}
	return ok(ActFindEquipment, fmt.Sprintf("Found %d equipment item(s)", len(items)), items)
}

// GetProject looks the project up by id first, then by name.
func (e *Executor) GetProject(ctx context.Context, idOrName string) models.ActionResult {
	if err := required("project", idOrName); err != nil {
		return fail(ActGetProject, "project", err)
	}
	p, err := e.resolveProject(ctx, idOrName)
	if err != nil {
		return fail(ActGetProject, "project", err)
	}
	return ok(ActGetProject, "Project found", p)
}

// GetWorker looks the worker up by id first, then by name.
func (e *Executor) GetWorker(ctx context.Context, idOrName string) models.ActionResult {
	if err := required("worker", idOrName); err != nil {
		return fail(ActGetWorker, "worker", err)
	}
	w, err := e.resolveWorker(ctx, idOrName)
	if err != nil {
		return fail(ActGetWorker, "worker", err)
	}
	return ok(ActGetWorker, "Worker found", w)
}

func (e *Executor) resolveProject(ctx context.Context, idOrName string) (*models.Project, error) {
	p, err := e.store.GetProject(ctx, idOrName)
	if err == nil || !store.IsNotFound(err) {
		return p, err
	}
	return e.store.FindProjectByName(ctx, idOrName)
}

func (e *Executor) resolveWorker(ctx context.Context, idOrName string) (*models.Worker, error) {
	w, err := e.store.GetWorker(ctx, idOrName)
	if err == nil || !store.IsNotFound(err) {
		return w, err
	}
	found, err := e.store.FindWorkersByName(ctx, idOrName)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, &store.ErrNotFound{Entity: "worker", Key: idOrName}
	}
	return &found[0], nil
}

// ── Listings ────────────────────────────────────────────────

func (e *Executor) ListProjects(ctx context.Context) models.ActionResult {
	projects, err := e.store.ListProjects(ctx)
	if err != nil {
		return fail(ActListProjects, "projects", err)
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return ok(ActListProjects, fmt.Sprintf("Found %d project(s)", len(projects)), projects)
}

func (e *Executor) ListWorkers(ctx context.Context) models.ActionResult {
	workers, err := e.store.ListWorkers(ctx)
	if err != nil {
		return fail(ActListWorkers, "workers", err)
	}
	if workers == nil {
		workers = []models.Worker{}
	}
	return ok(ActListWorkers, fmt.Sprintf("Found %d worker(s)", len(workers)), workers)
}

func (e *Executor) ListSuppliers(ctx context.Context) models.ActionResult {
	suppliers, err := e.store.ListSuppliers(ctx)
	if err != nil {
		return fail(ActListSuppliers, "suppliers", err)
	}
	if suppliers == nil {
		suppliers = []models.Supplier{}
	}
	return ok(ActListSuppliers, fmt.Sprintf("Found %d supplier(s)", len(suppliers)), suppliers)
}

// ListEquipment lists all equipment, or only a project's when projectID is set.
func (e *Executor) ListEquipment(ctx context.Context, projectID string) models.ActionResult {
	items, err := e.store.ListEquipment(ctx, projectID)
	if err != nil {
		return fail(ActListEquipment, "equipment", err)
	}
	if items == nil {
		items = []models.Equipment{}
	}
	return ok(ActListEquipment, fmt.Sprintf("Found %d equipment item(s)", len(items)), items)
}

// ── Aggregates ──────────────────────────────────────────────

// GetProjectExpensesSummary compares the project's funds with its paid
// wages, materials, transport and miscellaneous expenses.
func (e *Executor) GetProjectExpensesSummary(ctx context.Context, projectID string) models.ActionResult {
	if err := required("projectId", projectID); err != nil {
		return fail(ActProjectExpenses, "project", err)
	}
	p, err := e.resolveProject(ctx, projectID)
	if err != nil {
		return fail(ActProjectExpenses, "project", err)
	}
	sum, err := e.store.ExpenseTotals(ctx, p.ID)
	if err != nil {
		return fail(ActProjectExpenses, "project", err)
	}
	return ok(ActProjectExpenses, "Expense summary for "+p.Name, sum)
}

// GetWorkerAttendance returns a worker's attendance with day, pay and
// balance totals, optionally limited to one project.
func (e *Executor) GetWorkerAttendance(ctx context.Context, workerID, projectID string) models.ActionResult {
	if err := required("workerId", workerID); err != nil {
		return fail(ActWorkerAttendance, "worker", err)
	}
	rep, err := e.attendanceReport(ctx, workerID, projectID)
	if err != nil {
		return fail(ActWorkerAttendance, "worker", err)
	}
	return ok(ActWorkerAttendance, fmt.Sprintf("Found %d attendance record(s)", len(rep.Records)), rep)
}

func (e *Executor) attendanceReport(ctx context.Context, workerID, projectID string) (*models.AttendanceReport, error) {
	records, err := e.store.ListAttendance(ctx, workerID, projectID)
	if err != nil {
		return nil, err
	}
	rep := &models.AttendanceReport{WorkerID: workerID, Records: records}
	if rep.Records == nil {
		rep.Records = []models.Attendance{}
	}
	for _, r := range records {
		rep.TotalDays += r.WorkDays
		rep.TotalEarned += r.TotalPay
		rep.TotalPaid += r.PaidAmount
	}
	rep.Balance = rep.TotalEarned - rep.TotalPaid
	return rep, nil
}

func (e *Executor) GetWorkerTransfers(ctx context.Context, workerID string) models.ActionResult {
	if err := required("workerId", workerID); err != nil {
		return fail(ActWorkerTransfers, "worker", err)
	}
	rep, err := e.transferReport(ctx, workerID)
	if err != nil {
		return fail(ActWorkerTransfers, "worker", err)
	}
	return ok(ActWorkerTransfers, fmt.Sprintf("Found %d transfer(s)", len(rep.Transfers)), rep)
}

func (e *Executor) transferReport(ctx context.Context, workerID string) (*models.TransferReport, error) {
	transfers, err := e.store.ListWorkerTransfers(ctx, workerID)
	if err != nil {
		return nil, err
	}
	rep := &models.TransferReport{WorkerID: workerID, Transfers: transfers}
	if rep.Transfers == nil {
		rep.Transfers = []models.WorkerTransfer{}
	}
	for _, t := range transfers {
		rep.TotalTransferred += t.Amount
	}
	return rep, nil
}

// GetWorkerStatement settles a worker's account: earned minus paid minus
// transferred.
func (e *Executor) GetWorkerStatement(ctx context.Context, workerID string) models.ActionResult {
	if err := required("workerId", workerID); err != nil {
		return fail(ActWorkerStatement, "worker", err)
	}
	w, err := e.resolveWorker(ctx, workerID)
	if err != nil {
		return fail(ActWorkerStatement, "worker", err)
	}
	att, err := e.attendanceReport(ctx, w.ID, "")
	if err != nil {
		return fail(ActWorkerStatement, "worker", err)
	}
	tr, err := e.transferReport(ctx, w.ID)
	if err != nil {
		return fail(ActWorkerStatement, "worker", err)
	}

	st := &models.WorkerStatement{
		Worker:           *w,
		Attendance:       *att,
		Transfers:        *tr,
		TotalEarned:      att.TotalEarned,
		TotalPaid:        att.TotalPaid,
		TotalTransferred: tr.TotalTransferred,
	}
	st.FinalBalance = st.TotalEarned - st.TotalPaid - st.TotalTransferred
	return ok(ActWorkerStatement, "Statement for "+w.Name, st)
}

// GetDailyExpenses lists a project's wages, purchases, transport and
// miscellaneous expenses of one YYYY-MM-DD date.
func (e *Executor) GetDailyExpenses(ctx context.Context, projectID, date string) models.ActionResult {
	if err := required("projectId", projectID); err != nil {
		return fail(ActDailyExpenses, "project", err)
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fail(ActDailyExpenses, "project", invalid("date %q must be YYYY-MM-DD", date))
	}
	p, err := e.resolveProject(ctx, projectID)
	if err != nil {
		return fail(ActDailyExpenses, "project", err)
	}
	day, err := e.store.DailyExpenses(ctx, p.ID, date)
	if err != nil {
		return fail(ActDailyExpenses, "project", err)
	}
	msg := fmt.Sprintf("Expenses of %s on %s", p.Name, date)
	if day.ItemCount() == 0 {
		msg = "No expenses recorded on " + date
	}
	return ok(ActDailyExpenses, msg, day)
}

const dateLayout = "2006-01-02"

// resolveDate maps the keywords "today" and "yesterday" to dates in UTC.
// An empty value means yesterday; anything else passes through.
func (e *Executor) resolveDate(v string) string {
	now := e.now().UTC()
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "yesterday":
		return now.AddDate(0, 0, -1).Format(dateLayout)
	case "today":
		return now.Format(dateLayout)
	}
	return v
}
