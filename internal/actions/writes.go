package actions

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/binarjoin/agent-engine/internal/store"
	"github.com/binarjoin/agent-engine/pkg/models"
	"github.com/rs/zerolog/log"
)

// ── Inputs ──────────────────────────────────────────────────

type ProjectInput struct {
	Name        string  `validate:"required,max=200"`
	Description string  `validate:"max=2000"`
	Status      string  `validate:"omitempty,oneof=active paused completed"`
	Budget      float64 `validate:"gte=0"`
}

type WorkerInput struct {
	Name      string  `validate:"required,max=200"`
	Type      string  `validate:"max=100"`
	DailyWage float64 `validate:"gte=0"`
	Phone     string  `validate:"max=30"`
}

type SupplierInput struct {
	Name          string `validate:"required,max=200"`
	ContactPerson string `validate:"max=200"`
	Phone         string `validate:"max=30"`
	Address       string `validate:"max=500"`
}

type EquipmentInput struct {
	Name      string `validate:"required,max=200"`
	Code      string `validate:"max=100"`
	Status    string `validate:"omitempty,oneof=available in_use maintenance retired"`
	ProjectID string
}

// AttendanceInput records work days. A zero DailyWage takes the worker's wage.
type AttendanceInput struct {
	WorkerID   string  `validate:"required"`
	ProjectID  string  `validate:"required"`
	Date       string  `validate:"required,datetime=2006-01-02"`
	WorkDays   float64 `validate:"gt=0,lte=2"`
	DailyWage  float64 `validate:"gte=0"`
	PaidAmount float64 `validate:"gte=0"`
}

type FundTransferInput struct {
	ProjectID  string  `validate:"required"`
	Amount     float64 `validate:"gt=0"`
	SenderName string  `validate:"max=200"`
	Date       string  `validate:"required,datetime=2006-01-02"`
}

// Write action names, as reported in ActionResult.Action.
const (
	ActExecuteSQL = string(models.OpExecuteSQL)
)

// ── Create ──────────────────────────────────────────────────

func (e *Executor) CreateProject(ctx context.Context, in ProjectInput) models.ActionResult {
	action := string(models.OpCreateProject)
	if err := e.validate.Struct(in); err != nil {
		return fail(action, "project", err)
	}
	p := &models.Project{Name: in.Name, Description: in.Description, Status: in.Status, Budget: in.Budget}
	if err := e.store.CreateProject(ctx, p); err != nil {
		return fail(action, "project", err)
	}
	log.Info().Str("project", p.ID).Str("name", p.Name).Msg("Project created")
	return ok(action, fmt.Sprintf("Project %q created", p.Name), p)
}

func (e *Executor) CreateWorker(ctx context.Context, in WorkerInput) models.ActionResult {
	action := string(models.OpCreateWorker)
	if err := e.validate.Struct(in); err != nil {
		return fail(action, "worker", err)
	}
	w := &models.Worker{Name: in.Name, Type: in.Type, DailyWage: in.DailyWage, Phone: in.Phone, IsActive: true}
	if err := e.store.CreateWorker(ctx, w); err != nil {
		return fail(action, "worker", err)
	}
	log.Info().Str("worker", w.ID).Str("name", w.Name).Msg("Worker created")
	return ok(action, fmt.Sprintf("Worker %q added", w.Name), w)
}

func (e *Executor) CreateSupplier(ctx context.Context, in SupplierInput) models.ActionResult {
	action := string(models.OpCreateSupplier)
	if err := e.validate.Struct(in); err != nil {
		return fail(action, "supplier", err)
	}
	s := &models.Supplier{Name: in.Name, ContactPerson: in.ContactPerson, Phone: in.Phone, Address: in.Address}
	if err := e.store.CreateSupplier(ctx, s); err != nil {
		return fail(action, "supplier", err)
	}
	log.Info().Str("supplier", s.ID).Str("name", s.Name).Msg("Supplier created")
	return ok(action, fmt.Sprintf("Supplier %q added", s.Name), s)
}

func (e *Executor) CreateEquipment(ctx context.Context, in EquipmentInput) models.ActionResult {
	action := string(models.OpCreateEquipment)
	if err := e.validate.Struct(in); err != nil {
		return fail(action, "equipment", err)
	}
	eq := &models.Equipment{Name: in.Name, Code: in.Code, Status: in.Status}
	if in.ProjectID != "" {
		p, err := e.resolveProject(ctx, in.ProjectID)
		if err != nil {
			return fail(action, "project", err)
		}
		eq.ProjectID = &p.ID
	}
	if err := e.store.CreateEquipment(ctx, eq); err != nil {
		return fail(action, "equipment", err)
	}
	log.Info().Str("equipment", eq.ID).Str("name", eq.Name).Msg("Equipment created")
	return ok(action, fmt.Sprintf("Equipment %q added", eq.Name), eq)
}

// AddAttendance records work days for an existing worker on an existing project.
func (e *Executor) AddAttendance(ctx context.Context, in AttendanceInput) models.ActionResult {
	action := string(models.OpAddAttendance)
	if err := e.validate.Struct(in); err != nil {
		return fail(action, "attendance", err)
	}
	w, err := e.store.GetWorker(ctx, in.WorkerID)
	if err != nil {
		return fail(action, "worker", err)
	}
	if _, err := e.store.GetProject(ctx, in.ProjectID); err != nil {
		return fail(action, "project", err)
	}
	wage := in.DailyWage
	if wage == 0 {
		wage = w.DailyWage
	}
	a := &models.Attendance{
		WorkerID:   w.ID,
		ProjectID:  in.ProjectID,
		Date:       in.Date,
		WorkDays:   in.WorkDays,
		DailyWage:  wage,
		PaidAmount: in.PaidAmount,
	}
	if err := e.store.AddAttendance(ctx, a); err != nil {
		return fail(action, "attendance", err)
	}
	log.Info().Str("worker", w.ID).Str("date", a.Date).Float64("days", a.WorkDays).Msg("Attendance recorded")
	return ok(action, fmt.Sprintf("Attendance recorded for %s on %s", w.Name, a.Date), a)
}

func (e *Executor) AddFundTransfer(ctx context.Context, in FundTransferInput) models.ActionResult {
	action := string(models.OpAddFundTransfer)
	if err := e.validate.Struct(in); err != nil {
		return fail(action, "fund transfer", err)
	}
	if _, err := e.store.GetProject(ctx, in.ProjectID); err != nil {
		return fail(action, "project", err)
	}
	f := &models.FundTransfer{ProjectID: in.ProjectID, Amount: in.Amount, SenderName: in.SenderName, Date: in.Date}
	if err := e.store.AddFundTransfer(ctx, f); err != nil {
		return fail(action, "fund transfer", err)
	}
	log.Info().Str("project", f.ProjectID).Float64("amount", f.Amount).Msg("Fund transfer recorded")
	return ok(action, fmt.Sprintf("Fund transfer of %s recorded", strconv.FormatFloat(f.Amount, 'f', -1, 64)), f)
}

// ── Update ──────────────────────────────────────────────────

// fieldAliases maps the camelCase names models tend to emit to columns.
var fieldAliases = map[string]string{
	"dailywage":     "daily_wage",
	"isactive":      "is_active",
	"contactperson": "contact_person",
	"projectid":     "project_id",
	"workdays":      "work_days",
	"paidamount":    "paid_amount",
}

var numericFields = map[string]bool{
	"budget": true, "daily_wage": true, "work_days": true, "paid_amount": true,
}

func column(field string) string {
	f := strings.ToLower(strings.TrimSpace(field))
	if c, ok := fieldAliases[strings.ReplaceAll(f, "_", "")]; ok {
		return c
	}
	return f
}

func allowed(kind store.EntityKind, col string) bool {
	for _, f := range store.UpdatableFields(kind) {
		if f == col {
			return true
		}
	}
	return false
}

var statuses = map[store.EntityKind][]string{
	store.KindProject:   {"active", "paused", "completed"},
	store.KindEquipment: {"available", "in_use", "maintenance", "retired"},
}

// convert turns the textual value into the column's type.
func convert(kind store.EntityKind, col, value string) (interface{}, error) {
	switch {
	case numericFields[col]:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || f < 0 {
			return nil, invalid("%s must be a non-negative number", col)
		}
		return f, nil
	case col == "is_active":
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return nil, invalid("%s must be true or false", col)
		}
		return b, nil
	case col == "project_id" && strings.TrimSpace(value) == "":
		return nil, nil
	case col == "status":
		v := strings.ToLower(strings.TrimSpace(value))
		for _, st := range statuses[kind] {
			if v == st {
				return v, nil
			}
		}
		return nil, invalid("status must be one of %s", strings.Join(statuses[kind], ", "))
	case col == "name" && strings.TrimSpace(value) == "":
		return nil, invalid("name cannot be empty")
	}
	return value, nil
}

func (e *Executor) update(ctx context.Context, kind store.EntityKind, op models.OperationKind, id, field, value string) models.ActionResult {
	action := string(op)
	what := string(kind)
	if err := required("id", id); err != nil {
		return fail(action, what, err)
	}
	col := column(field)
	if !allowed(kind, col) {
		return fail(action, what, invalid("field %q cannot be updated on %s", field, kind))
	}
	v, err := convert(kind, col, value)
	if err != nil {
		return fail(action, what, err)
	}
	if err := e.store.UpdateField(ctx, kind, id, col, v); err != nil {
		return fail(action, what, err)
	}
	log.Info().Str("kind", what).Str("id", id).Str("field", col).Msg("Entity updated")
	return ok(action, fmt.Sprintf("Updated %s of %s %s", col, kind, id), map[string]interface{}{
		"id": id, "field": col, "value": v,
	})
}

func (e *Executor) UpdateProject(ctx context.Context, id, field, value string) models.ActionResult {
	return e.update(ctx, store.KindProject, models.OpUpdateProject, id, field, value)
}

func (e *Executor) UpdateWorker(ctx context.Context, id, field, value string) models.ActionResult {
	return e.update(ctx, store.KindWorker, models.OpUpdateWorker, id, field, value)
}

func (e *Executor) UpdateSupplier(ctx context.Context, id, field, value string) models.ActionResult {
	return e.update(ctx, store.KindSupplier, models.OpUpdateSupplier, id, field, value)
}

func (e *Executor) UpdateEquipment(ctx context.Context, id, field, value string) models.ActionResult {
	return e.update(ctx, store.KindEquipment, models.OpUpdateEquipment, id, field, value)
}

// ── Delete ──────────────────────────────────────────────────

// deleteEntity removes the row only when confirmed. Without confirmation it
// reports what would be deleted. lookup, when set, names the target and
// detects a missing one before asking.
func (e *Executor) deleteEntity(ctx context.Context, kind store.EntityKind, op models.OperationKind, id string, confirmed bool, lookup func() (string, error)) models.ActionResult {
	action := string(op)
	what := string(kind)
	if err := required("id", id); err != nil {
		return fail(action, what, err)
	}

	label := what + " record"
	if lookup != nil {
		name, err := lookup()
		if err != nil {
			return fail(action, what, err)
		}
		label = fmt.Sprintf("%s %q", what, name)
	}

	if !confirmed {
		return models.ActionResult{
			Action:               action,
			Message:              "Confirmation required",
			RequiresConfirmation: true,
			ConfirmationMessage:  fmt.Sprintf("Delete %s? This cannot be undone.", label),
		}
	}

	if err := e.store.Delete(ctx, kind, id); err != nil {
		return fail(action, what, err)
	}
	log.Info().Str("kind", what).Str("id", id).Msg("Entity deleted")
	return ok(action, fmt.Sprintf("Deleted %s", label), map[string]string{"id": id})
}

func (e *Executor) DeleteProject(ctx context.Context, id string, confirmed bool) models.ActionResult {
	return e.deleteEntity(ctx, store.KindProject, models.OpDeleteProject, id, confirmed, func() (string, error) {
		p, err := e.store.GetProject(ctx, id)
		if err != nil {
			return "", err
		}
		return p.Name, nil
	})
}

func (e *Executor) DeleteWorker(ctx context.Context, id string, confirmed bool) models.ActionResult {
	return e.deleteEntity(ctx, store.KindWorker, models.OpDeleteWorker, id, confirmed, func() (string, error) {
		w, err := e.store.GetWorker(ctx, id)
		if err != nil {
			return "", err
		}
		return w.Name, nil
	})
}

func (e *Executor) DeleteSupplier(ctx context.Context, id string, confirmed bool) models.ActionResult {
	return e.deleteEntity(ctx, store.KindSupplier, models.OpDeleteSupplier, id, confirmed, func() (string, error) {
		s, err := e.store.GetSupplier(ctx, id)
		if err != nil {
			return "", err
		}
		return s.Name, nil
	})
}

func (e *Executor) DeleteEquipment(ctx context.Context, id string, confirmed bool) models.ActionResult {
	return e.deleteEntity(ctx, store.KindEquipment, models.OpDeleteEquipment, id, confirmed, func() (string, error) {
		eq, err := e.store.GetEquipment(ctx, id)
		if err != nil {
			return "", err
		}
		return eq.Name, nil
	})
}

// DeleteAttendance asks without a lookup; a missing record surfaces on the
// confirmed delete.
func (e *Executor) DeleteAttendance(ctx context.Context, id string, confirmed bool) models.ActionResult {
	return e.deleteEntity(ctx, store.KindAttendance, models.OpDeleteAttendance, id, confirmed, nil)
}

// ── Raw Queries ─────────────────────────────────────────────

var destructiveKeywords = map[string]bool{
	"delete": true, "drop": true, "truncate": true, "update": true,
}

var dataModifyingCTE = regexp.MustCompile(`(?i)\b(delete|update|drop|truncate|insert)\b`)

// IsDestructive reports whether any statement in query is destructive by its
// leading keyword. A WITH statement counts when its body modifies data.
func IsDestructive(query string) bool {
	for _, stmt := range splitStatements(query) {
		kw := store.LeadingKeyword(stmt)
		if kw == "with" && dataModifyingCTE.MatchString(stmt) {
			return true
		}
		if destructiveKeywords[kw] {
			return true
		}
	}
	return false
}

// splitStatements cuts query on semicolons that sit outside quotes and
// comments. Blank pieces are dropped.
func splitStatements(query string) []string {
	var (
		stmts []string
		start int
		quote byte
	)
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'', c == '"', c == '`':
			quote = c
		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			if j := strings.IndexByte(query[i:], '\n'); j >= 0 {
				i += j
			} else {
				i = len(query)
			}
		case c == '/' && i+1 < len(query) && query[i+1] == '*':
			if j := strings.Index(query[i+2:], "*/"); j >= 0 {
				i += j + 3
			} else {
				i = len(query)
			}
		case c == ';':
			stmts = appendStatement(stmts, query[start:i])
			start = i + 1
		}
	}
	if start < len(query) {
		stmts = appendStatement(stmts, query[start:])
	}
	return stmts
}

func appendStatement(stmts []string, stmt string) []string {
	if strings.TrimSpace(stmt) == "" {
		return stmts
	}
	return append(stmts, stmt)
}

// ExecuteRawQuery runs a statement. Destructive statements need confirmed
// regardless of how the caller classified them.
func (e *Executor) ExecuteRawQuery(ctx context.Context, query string, confirmed bool) models.ActionResult {
	if err := required("query", query); err != nil {
		return fail(ActExecuteSQL, "query", err)
	}
	if IsDestructive(query) && !confirmed {
		return models.ActionResult{
			Action:               ActExecuteSQL,
			Message:              "Confirmation required",
			RequiresConfirmation: true,
			ConfirmationMessage:  fmt.Sprintf("This statement modifies data: %q. Confirm to run it.", query),
		}
	}

	res, err := e.store.ExecRaw(ctx, query)
	if err != nil {
		return fail(ActExecuteSQL, "query", err)
	}
	if res.Rows != nil {
		return ok(ActExecuteSQL, fmt.Sprintf("Query returned %d row(s)", len(res.Rows)), res)
	}
	log.Info().Str("keyword", store.LeadingKeyword(query)).Int64("rows", res.RowsAffected).Msg("Raw statement executed")
	return ok(ActExecuteSQL, fmt.Sprintf("Query affected %d row(s)", res.RowsAffected), res)
}
