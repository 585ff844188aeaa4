// Package reports renders action results as plain-text sections for chat
// replies.
package reports

import (
	"fmt"
	"sort"
	"strings"

	"github.com/binarjoin/agent-engine/internal/store"
	"github.com/binarjoin/agent-engine/pkg/models"
	"github.com/dustin/go-humanize"
)

const (
	rule      = "────────────────────"
	listLimit = 10
)

// Formatter renders results with a currency label such as "SAR".
type Formatter struct {
	currency string
}

// New creates a formatter. An empty currency omits the label.
func New(currency string) *Formatter {
	return &Formatter{currency: currency}
}

func (f *Formatter) money(v float64) string {
	s := humanize.CommafWithDigits(v, 2)
	if f.currency == "" {
		return s
	}
	return s + " " + f.currency
}

func heading(b *strings.Builder, title string) {
	fmt.Fprintf(b, "**%s**\n%s\n", title, rule)
}

// FormatExpenseSummary renders a project's funds against its expenses.
func (f *Formatter) FormatExpenseSummary(s *models.ExpenseSummary) string {
	var b strings.Builder
	heading(&b, "Project expense summary")
	fmt.Fprintf(&b, "Funds received: %s\n", f.money(s.TotalFunds))
	fmt.Fprintf(&b, "Wages: %s\n", f.money(s.TotalWages))
	fmt.Fprintf(&b, "Materials: %s\n", f.money(s.TotalMaterials))
	fmt.Fprintf(&b, "Transport: %s\n", f.money(s.TotalTransport))
	fmt.Fprintf(&b, "Miscellaneous: %s\n", f.money(s.TotalMisc))
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Total expenses: %s\n", f.money(s.TotalExpenses))
	fmt.Fprintf(&b, "Balance: %s", f.money(s.Balance))
	return b.String()
}

// FormatWorkerStatement renders a worker's settlement.
func (f *Formatter) FormatWorkerStatement(s *models.WorkerStatement) string {
	var b strings.Builder
	heading(&b, "Worker statement")
	name := s.Worker.Name
	if name == "" {
		name = "unknown"
	}
	fmt.Fprintf(&b, "Worker: %s\n", name)
	fmt.Fprintf(&b, "Days worked: %s\n", humanize.Ftoa(s.Attendance.TotalDays))
	fmt.Fprintf(&b, "Total earned: %s\n", f.money(s.TotalEarned))
	fmt.Fprintf(&b, "Total paid: %s\n", f.money(s.TotalPaid))
	fmt.Fprintf(&b, "Total transferred: %s\n", f.money(s.TotalTransferred))
	fmt.Fprintf(&b, "Final balance: %s", f.money(s.FinalBalance))
	return b.String()
}

// FormatDailyExpenses renders one day of project spending.
func (f *Formatter) FormatDailyExpenses(d *models.DailyExpenses) string {
	var b strings.Builder
	heading(&b, "Daily expenses")
	fmt.Fprintf(&b, "Date: %s\n", d.Date)
	fmt.Fprintf(&b, "Wages: %s\n", f.money(d.TotalWages))
	fmt.Fprintf(&b, "Purchases: %s\n", f.money(d.TotalPurchases))
	fmt.Fprintf(&b, "Transport: %s\n", f.money(d.TotalTransport))
	fmt.Fprintf(&b, "Miscellaneous: %s\n", f.money(d.TotalMisc))
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Day total: %s", f.money(d.Total))
	if d.Total == 0 {
		b.WriteString("\n\nNo expenses were recorded on this date.")
	}
	return b.String()
}

// FormatAttendance renders a worker's attendance totals.
func (f *Formatter) FormatAttendance(r *models.AttendanceReport) string {
	var b strings.Builder
	heading(&b, "Attendance")
	fmt.Fprintf(&b, "Records: %d\n", len(r.Records))
	fmt.Fprintf(&b, "Days worked: %s\n", humanize.Ftoa(r.TotalDays))
	fmt.Fprintf(&b, "Earned: %s\n", f.money(r.TotalEarned))
	fmt.Fprintf(&b, "Paid: %s\n", f.money(r.TotalPaid))
	fmt.Fprintf(&b, "Balance: %s", f.money(r.Balance))
	return b.String()
}

// FormatTransfers renders a worker's transfer total.
func (f *Formatter) FormatTransfers(r *models.TransferReport) string {
	var b strings.Builder
	heading(&b, "Transfers")
	for i, t := range r.Transfers {
		if i == listLimit {
			fmt.Fprintf(&b, "…and %d more\n", len(r.Transfers)-listLimit)
			break
		}
		fmt.Fprintf(&b, "- %s: %s to %s\n", t.Date, f.money(t.Amount), t.RecipientName)
	}
	fmt.Fprintf(&b, "Total transferred: %s", f.money(r.TotalTransferred))
	return b.String()
}

// FormatList renders at most ten lines followed by a count of the rest.
func FormatList(title string, lines []string) string {
	var b strings.Builder
	heading(&b, title)
	if len(lines) == 0 {
		b.WriteString("No entries.")
		return b.String()
	}
	for i, l := range lines {
		if i == listLimit {
			fmt.Fprintf(&b, "…and %d more\n", len(lines)-listLimit)
			break
		}
		b.WriteString("- " + l + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatResult renders a result by the type of its data. Unsuccessful
// results render as an error line.
func (f *Formatter) FormatResult(res models.ActionResult) string {
	if !res.Success {
		return "Error: " + res.Message
	}

	switch d := res.Data.(type) {
	case *models.ExpenseSummary:
		return f.FormatExpenseSummary(d)
	case *models.WorkerStatement:
		return f.FormatWorkerStatement(d)
	case *models.DailyExpenses:
		return f.FormatDailyExpenses(d)
	case *models.AttendanceReport:
		return f.FormatAttendance(d)
	case *models.TransferReport:
		return f.FormatTransfers(d)

	case []models.Project:
		lines := make([]string, len(d))
		for i, p := range d {
			lines[i] = fmt.Sprintf("%s (%s) [%s]", p.Name, p.Status, p.ID)
		}
		return FormatList(res.Message, lines)
	case []models.Worker:
		lines := make([]string, len(d))
		for i, w := range d {
			lines[i] = fmt.Sprintf("%s, %s, %s/day [%s]", w.Name, w.Type, f.money(w.DailyWage), w.ID)
		}
		return FormatList(res.Message, lines)
	case []models.Supplier:
		lines := make([]string, len(d))
		for i, s := range d {
			lines[i] = fmt.Sprintf("%s %s [%s]", s.Name, s.Phone, s.ID)
		}
		return FormatList(res.Message, lines)
	case []models.Equipment:
		lines := make([]string, len(d))
		for i, e := range d {
			lines[i] = fmt.Sprintf("%s (%s) [%s]", e.Name, e.Status, e.ID)
		}
		return FormatList(res.Message, lines)

	case *models.Project:
		return fmt.Sprintf("**%s**\nStatus: %s\nBudget: %s\nID: %s", d.Name, d.Status, f.money(d.Budget), d.ID)
	case *models.Worker:
		return fmt.Sprintf("**%s**\nType: %s\nDaily wage: %s\nActive: %t\nID: %s", d.Name, d.Type, f.money(d.DailyWage), d.IsActive, d.ID)

	case *store.RawResult:
		if d.Rows == nil {
			return res.Message
		}
		lines := make([]string, len(d.Rows))
		for i, row := range d.Rows {
			lines[i] = formatRow(row)
		}
		return FormatList(res.Message, lines)
	}
	return res.Message
}

func formatRow(row map[string]interface{}) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, row[k])
	}
	return strings.Join(parts, ", ")
}
