package actions_test

import (
	"context"
	"testing"
	"time"

	"github.com/binarjoin/agent-engine/internal/actions"
	"github.com/binarjoin/agent-engine/internal/store"
	"github.com/binarjoin/agent-engine/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

type fixture struct {
	ctx   context.Context
	store *store.SQLStore
	exec  *actions.Executor

	project *models.Project
	worker  *models.Worker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s, err := store.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	p := &models.Project{Name: "Villa Rawda", Budget: 120000}
	require.NoError(t, s.CreateProject(ctx, p))
	w := &models.Worker{Name: "Ahmed Saleh", Type: "mason", DailyWage: 250, IsActive: true}
	require.NoError(t, s.CreateWorker(ctx, w))

	return &fixture{
		ctx:     ctx,
		store:   s,
		exec:    actions.New(s, actions.WithClock(func() time.Time { return fixedNow })),
		project: p,
		worker:  w,
	}
}

// ── Reads ───────────────────────────────────────────────────

func TestFindWorkerByName(t *testing.T) {
	f := newFixture(t)

	res := f.exec.FindWorkerByName(f.ctx, "ahmed")
	require.True(t, res.Success, res.Message)
	workers := res.Data.([]models.Worker)
	require.Len(t, workers, 1)
	assert.Equal(t, f.worker.ID, workers[0].ID)

	res = f.exec.FindWorkerByName(f.ctx, "nobody")
	assert.True(t, res.Success)
	assert.Empty(t, res.Data)

	res = f.exec.FindWorkerByName(f.ctx, " ")
	assert.False(t, res.Success)
	assert.Equal(t, models.ErrorValidation, res.ErrorKind)
}

func TestGetProject_ByIDOrName(t *testing.T) {
	f := newFixture(t)

	byID := f.exec.GetProject(f.ctx, f.project.ID)
	require.True(t, byID.Success)
	byName := f.exec.GetProject(f.ctx, "rawda")
	require.True(t, byName.Success)
	assert.Equal(t, f.project.ID, byName.Data.(*models.Project).ID)

	missing := f.exec.GetProject(f.ctx, "does-not-exist")
	assert.False(t, missing.Success)
	assert.Equal(t, models.ErrorNotFound, missing.ErrorKind)
}

func TestGetWorkerStatement(t *testing.T) {
	f := newFixture(t)
	pid := f.project.ID

	require.NoError(t, f.store.AddAttendance(f.ctx, &models.Attendance{WorkerID: f.worker.ID, ProjectID: pid, Date: "2026-03-01", WorkDays: 1, DailyWage: 250, PaidAmount: 100}))
	require.NoError(t, f.store.AddAttendance(f.ctx, &models.Attendance{WorkerID: f.worker.ID, ProjectID: pid, Date: "2026-03-02", WorkDays: 0.5, DailyWage: 250, PaidAmount: 0}))
	require.NoError(t, f.store.AddWorkerTransfer(f.ctx, &models.WorkerTransfer{WorkerID: f.worker.ID, Amount: 50, RecipientName: "family", Date: "2026-03-03"}))

	res := f.exec.GetWorkerStatement(f.ctx, f.worker.ID)
	require.True(t, res.Success, res.Message)
	st := res.Data.(*models.WorkerStatement)
	assert.Equal(t, 375.0, st.TotalEarned)
	assert.Equal(t, 100.0, st.TotalPaid)
	assert.Equal(t, 50.0, st.TotalTransferred)
	assert.Equal(t, 225.0, st.FinalBalance)
	assert.Equal(t, 1.5, st.Attendance.TotalDays)

	res = f.exec.GetWorkerStatement(f.ctx, "ghost")
	assert.Equal(t, models.ErrorNotFound, res.ErrorKind)
}

func TestGetDailyExpenses(t *testing.T) {
	f := newFixture(t)
	pid := f.project.ID
	require.NoError(t, f.store.AddTransportExpense(f.ctx, &models.TransportExpense{ProjectID: pid, Amount: 80, Date: "2026-03-14"}))

	res := f.exec.Read(f.ctx, actions.ActDailyExpenses, []string{pid})
	require.True(t, res.Success, res.Message)
	day := res.Data.(*models.DailyExpenses)
	assert.Equal(t, "2026-03-14", day.Date, "empty date means yesterday")
	assert.Equal(t, 80.0, day.Total)

	res = f.exec.Read(f.ctx, actions.ActDailyExpenses, []string{pid, "today"})
	require.True(t, res.Success)
	assert.Equal(t, "2026-03-15", res.Data.(*models.DailyExpenses).Date)
	assert.Contains(t, res.Message, "No expenses")

	res = f.exec.GetDailyExpenses(f.ctx, pid, "15/03/2026")
	assert.Equal(t, models.ErrorValidation, res.ErrorKind)
}

func TestProjectExpensesSummary(t *testing.T) {
	f := newFixture(t)
	pid := f.project.ID
	require.NoError(t, f.store.AddFundTransfer(f.ctx, &models.FundTransfer{ProjectID: pid, Amount: 5000, Date: "2026-03-01"}))
	require.NoError(t, f.store.AddMiscExpense(f.ctx, &models.MiscExpense{ProjectID: pid, Amount: 300, Date: "2026-03-01"}))

	res := f.exec.GetProjectExpensesSummary(f.ctx, pid)
	require.True(t, res.Success, res.Message)
	sum := res.Data.(*models.ExpenseSummary)
	assert.Equal(t, 5000.0, sum.TotalFunds)
	assert.Equal(t, 4700.0, sum.Balance)
}

func TestRead_UnknownType(t *testing.T) {
	f := newFixture(t)
	res := f.exec.Read(f.ctx, "LAUNCH", nil)
	assert.False(t, res.Success)
	assert.Equal(t, models.ErrorValidation, res.ErrorKind)
}

// ── Writes ──────────────────────────────────────────────────

func TestGuardedDelete(t *testing.T) {
	f := newFixture(t)

	res := f.exec.DeleteWorker(f.ctx, f.worker.ID, false)
	assert.False(t, res.Success)
	assert.True(t, res.RequiresConfirmation)
	assert.Contains(t, res.ConfirmationMessage, "Ahmed Saleh")
	_, err := f.store.GetWorker(f.ctx, f.worker.ID)
	require.NoError(t, err, "unconfirmed delete must not mutate")

	res = f.exec.DeleteWorker(f.ctx, f.worker.ID, true)
	assert.True(t, res.Success, res.Message)
	_, err = f.store.GetWorker(f.ctx, f.worker.ID)
	assert.True(t, store.IsNotFound(err))

	res = f.exec.DeleteWorker(f.ctx, f.worker.ID, false)
	assert.Equal(t, models.ErrorNotFound, res.ErrorKind)
	assert.False(t, res.RequiresConfirmation)
}

func TestDeleteAttendance(t *testing.T) {
	f := newFixture(t)
	a := &models.Attendance{WorkerID: f.worker.ID, ProjectID: f.project.ID, Date: "2026-03-01", WorkDays: 1, DailyWage: 250}
	require.NoError(t, f.store.AddAttendance(f.ctx, a))

	assert.True(t, f.exec.DeleteAttendance(f.ctx, "missing", false).RequiresConfirmation)
	assert.Equal(t, models.ErrorNotFound, f.exec.DeleteAttendance(f.ctx, "missing", true).ErrorKind)
	assert.True(t, f.exec.DeleteAttendance(f.ctx, a.ID, true).Success)
}

func TestExecuteRawQuery_Backstop(t *testing.T) {
	f := newFixture(t)

	res := f.exec.ExecuteRawQuery(f.ctx, "update projects set budget = 0", false)
	assert.True(t, res.RequiresConfirmation)
	p, err := f.store.GetProject(f.ctx, f.project.ID)
	require.NoError(t, err)
	assert.Equal(t, 120000.0, p.Budget)

	res = f.exec.ExecuteRawQuery(f.ctx, "  /* sneaky */ DELETE FROM workers", false)
	assert.True(t, res.RequiresConfirmation)

	stacked := "INSERT INTO suppliers (id, name, created_at, updated_at) " +
		"VALUES ('s-stacked', 'Stacked', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP); DELETE FROM workers"
	res = f.exec.ExecuteRawQuery(f.ctx, stacked, false)
	assert.True(t, res.RequiresConfirmation)
	assert.False(t, res.Success)
	_, err = f.store.GetWorker(f.ctx, f.worker.ID)
	require.NoError(t, err, "worker survives an unconfirmed stacked delete")
	_, err = f.store.GetSupplier(f.ctx, "s-stacked")
	assert.True(t, store.IsNotFound(err), "no statement of the batch ran")

	res = f.exec.ExecuteRawQuery(f.ctx, "SELECT name FROM projects", false)
	require.True(t, res.Success, res.Message)
	assert.Len(t, res.Data.(*store.RawResult).Rows, 1)

	res = f.exec.ExecuteRawQuery(f.ctx, "update projects set budget = 0", true)
	require.True(t, res.Success, res.Message)
	assert.EqualValues(t, 1, res.Data.(*store.RawResult).RowsAffected)

	res = f.exec.ExecuteRawQuery(f.ctx, "SELECT * FROM nowhere", false)
	assert.Equal(t, models.ErrorStore, res.ErrorKind)
}

func TestIsDestructive(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"select 1", false},
		{"DROP TABLE x", true},
		{"truncate workers", true},
		{"insert into x values (1)", false},
		{"with d as (delete from x returning id) select * from d", true},
		{"with t as (select 1) select * from t", false},
		{"insert into x values (1); delete from y", true},
		{"select 1;   DROP TABLE x;", true},
		{"select 1; /* tidy */ truncate y", true},
		{"select 1; with d as (update x set a = 1 returning a) select * from d", true},
		{"select 1;", false},
		{"select 'a; delete from y'", false},
		{`select "col;delete" from x`, false},
		{"select 1 -- ; delete from y", false},
		{"select 1 /* ; drop table y */", false},
		{"insert into x values ('it''s; fine')", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, actions.IsDestructive(tt.query), tt.query)
	}
}

func TestUpdate_Whitelist(t *testing.T) {
	f := newFixture(t)

	res := f.exec.Write(f.ctx, models.OpUpdateWorker, []string{f.worker.ID, "dailyWage", "300"}, true)
	require.True(t, res.Success, res.Message)
	w, err := f.store.GetWorker(f.ctx, f.worker.ID)
	require.NoError(t, err)
	assert.Equal(t, 300.0, w.DailyWage)

	res = f.exec.UpdateWorker(f.ctx, f.worker.ID, "id", "x")
	assert.Equal(t, models.ErrorValidation, res.ErrorKind)

	res = f.exec.UpdateWorker(f.ctx, f.worker.ID, "daily_wage", "lots")
	assert.Equal(t, models.ErrorValidation, res.ErrorKind)

	res = f.exec.UpdateProject(f.ctx, "ghost", "name", "x")
	assert.Equal(t, models.ErrorNotFound, res.ErrorKind)

	res = f.exec.UpdateProject(f.ctx, f.project.ID, "status", "exploded")
	assert.Equal(t, models.ErrorValidation, res.ErrorKind)

	res = f.exec.UpdateProject(f.ctx, f.project.ID, "status", " Paused ")
	require.True(t, res.Success, res.Message)
	p, err := f.store.GetProject(f.ctx, f.project.ID)
	require.NoError(t, err)
	assert.Equal(t, "paused", p.Status)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)

	res := f.exec.CreateProject(f.ctx, actions.ProjectInput{Name: ""})
	assert.Equal(t, models.ErrorValidation, res.ErrorKind)

	res = f.exec.CreateProject(f.ctx, actions.ProjectInput{Name: "Depot", Status: "exploded"})
	assert.Equal(t, models.ErrorValidation, res.ErrorKind)

	res = f.exec.Write(f.ctx, models.OpCreateWorker, []string{"Omar"}, true)
	require.True(t, res.Success, res.Message)
	w := res.Data.(*models.Worker)
	assert.Equal(t, actions.DefaultWorkerType, w.Type)
	assert.Equal(t, float64(actions.DefaultDailyWage), w.DailyWage)

	res = f.exec.Write(f.ctx, models.OpCreateWorker, []string{"Omar", "helper", "abc"}, true)
	assert.Equal(t, models.ErrorValidation, res.ErrorKind)
}

func TestAddAttendance_UsesWorkerWage(t *testing.T) {
	f := newFixture(t)

	res := f.exec.Write(f.ctx, models.OpAddAttendance, []string{f.worker.ID, f.project.ID, "today", "2"}, true)
	require.True(t, res.Success, res.Message)
	a := res.Data.(*models.Attendance)
	assert.Equal(t, "2026-03-15", a.Date)
	assert.Equal(t, 500.0, a.TotalPay)

	res = f.exec.Write(f.ctx, models.OpAddAttendance, []string{"ghost", f.project.ID, "today", "1"}, true)
	assert.Equal(t, models.ErrorNotFound, res.ErrorKind)
}

func TestAddFundTransfer(t *testing.T) {
	f := newFixture(t)

	res := f.exec.Write(f.ctx, models.OpAddFundTransfer, []string{f.project.ID, "1500", "Head office"}, true)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "2026-03-15", res.Data.(*models.FundTransfer).Date)

	res = f.exec.Write(f.ctx, models.OpAddFundTransfer, []string{f.project.ID, "-5"}, true)
	assert.Equal(t, models.ErrorValidation, res.ErrorKind)
}
