package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/binarjoin/agent-engine/internal/store"
	"github.com/binarjoin/agent-engine/pkg/models"
)

// newTestStore creates a fresh in-memory SQLite store.
func newTestStore(t *testing.T) *store.SQLStore {
	t.Helper()
	s, err := store.OpenMemory(context.Background())
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ─── Entities ────────────────────────────────────────────────

func TestCreateAndGetProject(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &models.Project{Name: "North Tower", Budget: 50000}
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if p.ID == "" {
		t.Fatal("CreateProject() did not assign an ID")
	}

	got, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if got.Name != "North Tower" || got.Status != "active" {
		t.Errorf("GetProject() = %+v", got)
	}

	byName, err := s.FindProjectByName(ctx, "north")
	if err != nil {
		t.Fatalf("FindProjectByName() error = %v", err)
	}
	if byName.ID != p.ID {
		t.Errorf("FindProjectByName().ID = %q, want %q", byName.ID, p.ID)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetProject(context.Background(), "missing")
	if !store.IsNotFound(err) {
		t.Fatalf("GetProject() error = %v, want not found", err)
	}
}

func TestFindWorkersByName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Ahmed Ali", "Ahmed Saleh", "Omar"} {
		if err := s.CreateWorker(ctx, &models.Worker{Name: name, Type: "mason", DailyWage: 200, IsActive: true}); err != nil {
			t.Fatalf("CreateWorker(%q) error = %v", name, err)
		}
	}

	got, err := s.FindWorkersByName(ctx, "AHMED")
	if err != nil {
		t.Fatalf("FindWorkersByName() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("FindWorkersByName() returned %d workers, want 2", len(got))
	}
	if !got[0].IsActive {
		t.Errorf("worker IsActive = false, want true")
	}
}

func TestUpdateField(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	w := &models.Worker{Name: "Omar", DailyWage: 150}
	if err := s.CreateWorker(ctx, w); err != nil {
		t.Fatalf("CreateWorker() error = %v", err)
	}

	if err := s.UpdateField(ctx, store.KindWorker, w.ID, "daily_wage", 220.0); err != nil {
		t.Fatalf("UpdateField() error = %v", err)
	}
	got, _ := s.GetWorker(ctx, w.ID)
	if got.DailyWage != 220 {
		t.Errorf("DailyWage = %v, want 220", got.DailyWage)
	}

	err := s.UpdateField(ctx, store.KindWorker, w.ID, "id", "hijack")
	if !errors.Is(err, store.ErrInvalidField) {
		t.Errorf("UpdateField(id) error = %v, want ErrInvalidField", err)
	}

	err = s.UpdateField(ctx, store.KindWorker, "missing", "name", "x")
	if !store.IsNotFound(err) {
		t.Errorf("UpdateField(missing) error = %v, want not found", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sp := &models.Supplier{Name: "Cement Co"}
	if err := s.CreateSupplier(ctx, sp); err != nil {
		t.Fatalf("CreateSupplier() error = %v", err)
	}
	if err := s.Delete(ctx, store.KindSupplier, sp.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, store.KindSupplier, sp.ID); !store.IsNotFound(err) {
		t.Errorf("second Delete() error = %v, want not found", err)
	}
}

// ─── Ledger ──────────────────────────────────────────────────

func TestExpenseTotals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	pid := "p1"

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(s.AddFundTransfer(ctx, &models.FundTransfer{ProjectID: pid, Amount: 10000, Date: "2026-01-10"}))
	must(s.AddAttendance(ctx, &models.Attendance{WorkerID: "w1", ProjectID: pid, Date: "2026-01-10", WorkDays: 1, DailyWage: 200, PaidAmount: 150}))
	must(s.AddMaterialPurchase(ctx, &models.MaterialPurchase{ProjectID: pid, MaterialName: "sand", TotalAmount: 900, PaidAmount: 600, Date: "2026-01-10"}))
	must(s.AddTransportExpense(ctx, &models.TransportExpense{ProjectID: pid, Amount: 100, Date: "2026-01-11"}))
	must(s.AddMiscExpense(ctx, &models.MiscExpense{ProjectID: pid, Amount: 50, Date: "2026-01-10"}))
	must(s.AddFundTransfer(ctx, &models.FundTransfer{ProjectID: "other", Amount: 999, Date: "2026-01-10"}))

	sum, err := s.ExpenseTotals(ctx, pid)
	if err != nil {
		t.Fatalf("ExpenseTotals() error = %v", err)
	}
	if sum.TotalFunds != 10000 {
		t.Errorf("TotalFunds = %v, want 10000", sum.TotalFunds)
	}
	if sum.TotalExpenses != 900 {
		t.Errorf("TotalExpenses = %v, want 900", sum.TotalExpenses)
	}
	if sum.Balance != 9100 {
		t.Errorf("Balance = %v, want 9100", sum.Balance)
	}

	day, err := s.DailyExpenses(ctx, pid, "2026-01-10")
	if err != nil {
		t.Fatalf("DailyExpenses() error = %v", err)
	}
	if day.ItemCount() != 3 {
		t.Errorf("ItemCount() = %d, want 3", day.ItemCount())
	}
	if day.Total != 800 {
		t.Errorf("Total = %v, want 800", day.Total)
	}
}

func TestAddAttendance_DerivesTotalPay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &models.Attendance{WorkerID: "w1", ProjectID: "p1", Date: "2026-02-01", WorkDays: 1.5, DailyWage: 200}
	if err := s.AddAttendance(ctx, a); err != nil {
		t.Fatalf("AddAttendance() error = %v", err)
	}
	got, err := s.GetAttendance(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAttendance() error = %v", err)
	}
	if got.TotalPay != 300 {
		t.Errorf("TotalPay = %v, want 300", got.TotalPay)
	}
}

// ─── Sessions ────────────────────────────────────────────────

func TestSessionMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := &models.Session{OwnerID: "u1", Title: "expenses"}
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	for i, content := range []string{"hi", "hello", "bye"} {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		m := &models.Message{SessionID: sess.ID, Role: role, Content: content,
			Steps: []models.Step{{ID: "1", Title: "Analyze request", Status: models.StepCompleted}}}
		if err := s.AppendMessage(ctx, m); err != nil {
			t.Fatalf("AppendMessage() error = %v", err)
		}
	}

	msgs, err := s.ListMessages(ctx, sess.ID, 0)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(msgs) != 3 || msgs[0].Content != "hi" || msgs[2].Content != "bye" {
		t.Fatalf("ListMessages() = %+v", msgs)
	}
	if len(msgs[1].Steps) != 1 {
		t.Errorf("Steps not round-tripped: %+v", msgs[1].Steps)
	}

	last2, _ := s.ListMessages(ctx, sess.ID, 2)
	if len(last2) != 2 || last2[0].Content != "hello" {
		t.Errorf("ListMessages(limit 2) = %+v", last2)
	}

	got, _ := s.GetSession(ctx, sess.ID)
	if got.MessageCount != 3 || got.LastMessageAt == nil {
		t.Errorf("session after append = %+v", got)
	}

	if err := s.DeleteSession(ctx, sess.ID); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if msgs, _ := s.ListMessages(ctx, sess.ID, 0); len(msgs) != 0 {
		t.Errorf("messages survived session delete: %d", len(msgs))
	}
}

func TestAppendMessage_UnknownSession(t *testing.T) {
	s := newTestStore(t)

	err := s.AppendMessage(context.Background(), &models.Message{SessionID: "nope", Role: models.RoleUser, Content: "x"})
	if !store.IsNotFound(err) {
		t.Fatalf("AppendMessage() error = %v, want not found", err)
	}
}

func TestRecordUsage_Accumulates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.RecordUsage(ctx, "u1", "2026-03-01", "openai", "gpt-4o", 100); err != nil {
			t.Fatalf("RecordUsage() error = %v", err)
		}
	}
	usage, err := s.ListUsage(ctx, "u1")
	if err != nil {
		t.Fatalf("ListUsage() error = %v", err)
	}
	if len(usage) != 1 || usage[0].Requests != 3 || usage[0].Tokens != 300 {
		t.Errorf("ListUsage() = %+v", usage)
	}
}

// ─── Raw ─────────────────────────────────────────────────────

func TestExecRaw(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateProject(ctx, &models.Project{Name: "A"}); err != nil {
		t.Fatal(err)
	}

	res, err := s.ExecRaw(ctx, "SELECT name FROM projects")
	if err != nil {
		t.Fatalf("ExecRaw(select) error = %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0]["name"] != "A" {
		t.Errorf("ExecRaw(select) rows = %+v", res.Rows)
	}

	res, err = s.ExecRaw(ctx, "UPDATE projects SET status = 'paused'")
	if err != nil {
		t.Fatalf("ExecRaw(update) error = %v", err)
	}
	if res.RowsAffected != 1 {
		t.Errorf("RowsAffected = %d, want 1", res.RowsAffected)
	}
}

func TestLeadingKeyword(t *testing.T) {
	tests := map[string]string{
		"  SELECT * FROM x": "select",
		"Delete from x":     "delete",
		"with(x) as":        "with",
		"":                  "",
		"-- note\nDROP t":   "drop",
		"/* x */ update t":  "update",
		"(select 1)":        "select",
	}
	for in, want := range tests {
		if got := store.LeadingKeyword(in); got != want {
			t.Errorf("LeadingKeyword(%q) = %q, want %q", in, got, want)
		}
	}
}
