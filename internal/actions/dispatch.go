package actions

import (
	"context"
	"strconv"
	"strings"

	"github.com/binarjoin/agent-engine/internal/telemetry"
	"github.com/binarjoin/agent-engine/pkg/models"
	"go.opentelemetry.io/otel/attribute"
)

// CatalogEntry describes one directive type for the model.
type CatalogEntry struct {
	Type   string
	Params string
	Help   string
}

// ReadCatalog lists every read action in prompt order.
var ReadCatalog = []CatalogEntry{
	{ActFindWorker, "name", "search workers by name"},
	{ActGetWorker, "idOrName", "one worker"},
	{ActGetProject, "idOrName", "one project"},
	{ActListProjects, "", "all projects"},
	{ActListWorkers, "", "all workers"},
	{ActListSuppliers, "", "all suppliers"},
	{ActFindSupplier, "name", "search suppliers by name"},
	{ActListEquipment, "projectId?", "equipment, optionally of one project"},
	{ActFindEquipment, "name", "search equipment by name"},
	{ActProjectExpenses, "projectId", "funds against wages, materials, transport and misc"},
	{ActDailyExpenses, "projectId:date?", "one day's expenses; date is YYYY-MM-DD, today or yesterday (default)"},
	{ActWorkerStatement, "workerId", "earned, paid, transferred and final balance"},
	{ActWorkerAttendance, "workerId:projectId?", "attendance history with totals"},
	{ActWorkerTransfers, "workerId", "money transferred on the worker's behalf"},
}

// WriteCatalog lists every write operation in prompt order.
var WriteCatalog = []CatalogEntry{
	{string(models.OpCreateProject), "name:status?", ""},
	{string(models.OpCreateWorker), "name:type?:dailyWage?", ""},
	{string(models.OpCreateSupplier), "name:contact?:phone?", ""},
	{string(models.OpCreateEquipment), "name:code?:projectId?", ""},
	{string(models.OpAddAttendance), "workerId:projectId:date:workDays:paidAmount?", ""},
	{string(models.OpAddFundTransfer), "projectId:amount:senderName?:date?", ""},
	{string(models.OpUpdateProject), "id:field:value", "fields: name, description, status, budget"},
	{string(models.OpUpdateWorker), "id:field:value", "fields: name, type, dailyWage, phone, isActive"},
	{string(models.OpUpdateSupplier), "id:field:value", "fields: name, contactPerson, phone, address"},
	{string(models.OpUpdateEquipment), "id:field:value", "fields: name, code, status, projectId"},
	{string(models.OpDeleteProject), "id", ""},
	{string(models.OpDeleteWorker), "id", ""},
	{string(models.OpDeleteSupplier), "id", ""},
	{string(models.OpDeleteEquipment), "id", ""},
	{string(models.OpDeleteAttendance), "id", ""},
	{string(models.OpExecuteSQL), "statement", "last resort"},
}

// Default worker attributes when a proposal leaves them out.
const (
	DefaultWorkerType = "laborer"
	DefaultDailyWage  = 200
)

func param(params []string, i int) string {
	if i < len(params) {
		return strings.TrimSpace(params[i])
	}
	return ""
}

func joined(params []string, i int) string {
	if i >= len(params) {
		return ""
	}
	return strings.Join(params[i:], ":")
}

func number(name, v string, fallback float64) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, invalid("%s must be a number, got %q", name, v)
	}
	return f, nil
}

// Read runs a read action by type. Unknown types yield a validation failure.
func (e *Executor) Read(ctx context.Context, typ string, params []string) models.ActionResult {
	typ = strings.ToUpper(typ)
	ctx, span := telemetry.Tracer().Start(ctx, "actions.read")
	defer span.End()
	span.SetAttributes(attribute.String("action.type", typ))

	res := e.read(ctx, typ, params)
	span.SetAttributes(attribute.Bool("action.success", res.Success))
	return res
}

func (e *Executor) read(ctx context.Context, typ string, p []string) models.ActionResult {
	switch typ {
	case ActFindWorker:
		return e.FindWorkerByName(ctx, param(p, 0))
	case ActGetWorker:
		return e.GetWorker(ctx, param(p, 0))
	case ActGetProject:
		return e.GetProject(ctx, param(p, 0))
	case ActListProjects:
		return e.ListProjects(ctx)
	case ActListWorkers:
		return e.ListWorkers(ctx)
	case ActListSuppliers:
		return e.ListSuppliers(ctx)
	case ActFindSupplier:
		return e.FindSupplierByName(ctx, param(p, 0))
	case ActListEquipment:
		return e.ListEquipment(ctx, param(p, 0))
	case ActFindEquipment:
		return e.FindEquipmentByName(ctx, param(p, 0))
	case ActProjectExpenses:
		return e.GetProjectExpensesSummary(ctx, param(p, 0))
	case ActDailyExpenses:
		return e.GetDailyExpenses(ctx, param(p, 0), e.resolveDate(param(p, 1)))
	case ActWorkerStatement:
		return e.GetWorkerStatement(ctx, param(p, 0))
	case ActWorkerAttendance:
		return e.GetWorkerAttendance(ctx, param(p, 0), param(p, 1))
	case ActWorkerTransfers:
		return e.GetWorkerTransfers(ctx, param(p, 0))
	}
	return fail(typ, "action", invalid("unknown action %q", typ))
}

// Write runs a write operation by kind with the given confirmation flag.
func (e *Executor) Write(ctx context.Context, kind models.OperationKind, params []string, confirmed bool) models.ActionResult {
	ctx, span := telemetry.Tracer().Start(ctx, "actions.write")
	defer span.End()
	span.SetAttributes(
		attribute.String("action.type", string(kind)),
		attribute.Bool("action.confirmed", confirmed),
	)

	res := e.write(ctx, kind, params, confirmed)
	span.SetAttributes(attribute.Bool("action.success", res.Success))
	return res
}

func (e *Executor) write(ctx context.Context, kind models.OperationKind, p []string, confirmed bool) models.ActionResult {
	action := string(kind)
	switch kind {
	case models.OpCreateProject:
		return e.CreateProject(ctx, ProjectInput{Name: param(p, 0), Status: param(p, 1)})

	case models.OpCreateWorker:
		wage, err := number("dailyWage", param(p, 2), DefaultDailyWage)
		if err != nil {
			return fail(action, "worker", err)
		}
		typ := param(p, 1)
		if typ == "" {
			typ = DefaultWorkerType
		}
		return e.CreateWorker(ctx, WorkerInput{Name: param(p, 0), Type: typ, DailyWage: wage})

	case models.OpCreateSupplier:
		return e.CreateSupplier(ctx, SupplierInput{Name: param(p, 0), ContactPerson: param(p, 1), Phone: param(p, 2)})

	case models.OpCreateEquipment:
		return e.CreateEquipment(ctx, EquipmentInput{Name: param(p, 0), Code: param(p, 1), ProjectID: param(p, 2)})

	case models.OpAddAttendance:
		days, err := number("workDays", param(p, 3), 1)
		if err != nil {
			return fail(action, "attendance", err)
		}
		paid, err := number("paidAmount", param(p, 4), 0)
		if err != nil {
			return fail(action, "attendance", err)
		}
		return e.AddAttendance(ctx, AttendanceInput{
			WorkerID:   param(p, 0),
			ProjectID:  param(p, 1),
			Date:       e.resolveDateOrToday(param(p, 2)),
			WorkDays:   days,
			PaidAmount: paid,
		})

	case models.OpAddFundTransfer:
		amount, err := number("amount", param(p, 1), 0)
		if err != nil {
			return fail(action, "fund transfer", err)
		}
		return e.AddFundTransfer(ctx, FundTransferInput{
			ProjectID:  param(p, 0),
			Amount:     amount,
			SenderName: param(p, 2),
			Date:       e.resolveDateOrToday(param(p, 3)),
		})

	case models.OpUpdateProject:
		return e.UpdateProject(ctx, param(p, 0), param(p, 1), joined(p, 2))
	case models.OpUpdateWorker:
		return e.UpdateWorker(ctx, param(p, 0), param(p, 1), joined(p, 2))
	case models.OpUpdateSupplier:
		return e.UpdateSupplier(ctx, param(p, 0), param(p, 1), joined(p, 2))
	case models.OpUpdateEquipment:
		return e.UpdateEquipment(ctx, param(p, 0), param(p, 1), joined(p, 2))

	case models.OpDeleteProject:
		return e.DeleteProject(ctx, param(p, 0), confirmed)
	case models.OpDeleteWorker:
		return e.DeleteWorker(ctx, param(p, 0), confirmed)
	case models.OpDeleteSupplier:
		return e.DeleteSupplier(ctx, param(p, 0), confirmed)
	case models.OpDeleteEquipment:
		return e.DeleteEquipment(ctx, param(p, 0), confirmed)
	case models.OpDeleteAttendance:
		return e.DeleteAttendance(ctx, param(p, 0), confirmed)

	case models.OpExecuteSQL:
		return e.ExecuteRawQuery(ctx, joined(p, 0), confirmed)
	}
	return fail(action, "operation", invalid("unknown operation %q", kind))
}

// resolveDateOrToday is resolveDate with today as the empty default.
func (e *Executor) resolveDateOrToday(v string) string {
	if strings.TrimSpace(v) == "" {
		return e.now().UTC().Format(dateLayout)
	}
	return e.resolveDate(v)
}
