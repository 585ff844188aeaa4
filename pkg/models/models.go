package models

import (
	"time"
)

// ── Model Providers ──────────────────────────────────────────

// ProviderKind identifies a language-model backend.
type ProviderKind string

const (
	ProviderHuggingFace ProviderKind = "huggingface"
	ProviderOpenAI      ProviderKind = "openai"
	ProviderGemini      ProviderKind = "gemini"
)

// Valid reports whether k is one of the supported provider kinds.
func (k ProviderKind) Valid() bool {
	switch k {
	case ProviderHuggingFace, ProviderOpenAI, ProviderGemini:
		return true
	}
	return false
}

// ProviderStatus is a point-in-time snapshot of one configured provider.
type ProviderStatus struct {
	Kind        ProviderKind `json:"provider"`
	Model       string       `json:"model"`
	Priority    int          `json:"priority"`
	Available   bool         `json:"available"`
	LastError   string       `json:"last_error,omitempty"`
	LastErrorAt *time.Time   `json:"last_error_at,omitempty"`
	DailyUsage  int          `json:"daily_usage"`
	DailyLimit  int          `json:"daily_limit"`
	Selected    bool         `json:"selected"`
}

// ModelOption is one entry of the model picker.
type ModelOption struct {
	Key       string       `json:"key"` // "provider/model"
	Provider  ProviderKind `json:"provider"`
	Model     string       `json:"model"`
	Label     string       `json:"label"`
	Available bool         `json:"available"`
}

// ChatMessage is one turn sent to a provider.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant"
	Content string `json:"content"`
}

// Completion is a provider reply.
type Completion struct {
	Content    string       `json:"content"`
	Provider   ProviderKind `json:"provider"`
	Model      string       `json:"model"`
	TokensUsed int          `json:"tokens_used"`
}

// ── Sessions & Messages ──────────────────────────────────────

// Session is a conversation owned by a single user.
type Session struct {
	ID            string     `json:"id" db:"id"`
	OwnerID       string     `json:"owner_id" db:"owner_id"`
	Title         string     `json:"title" db:"title"`
	MessageCount  int        `json:"message_count" db:"message_count"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty" db:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is an append-only entry in a session's history.
type Message struct {
	ID         string      `json:"id"`
	SessionID  string      `json:"session_id"`
	Role       MessageRole `json:"role"`
	Content    string      `json:"content"`
	Action     string      `json:"action,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
	Steps      []Step      `json:"steps,omitempty"`
	Provider   string      `json:"provider,omitempty"`
	Model      string      `json:"model,omitempty"`
	TokensUsed int         `json:"tokens_used,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
)

// Step is one entry of the progress trace attached to an assistant reply.
type Step struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Status StepStatus `json:"status"`
}

// UsageRecord aggregates requests per owner, day, provider and model.
type UsageRecord struct {
	OwnerID  string `json:"owner_id" db:"owner_id"`
	Date     string `json:"date" db:"date"`
	Provider string `json:"provider" db:"provider"`
	Model    string `json:"model" db:"model"`
	Requests int    `json:"requests" db:"requests"`
	Tokens   int    `json:"tokens" db:"tokens"`
}

// ── Pending Operations ───────────────────────────────────────

// OperationKind names a write operation that needs confirmation.
type OperationKind string

const (
	OpCreateProject    OperationKind = "CREATE_PROJECT"
	OpCreateWorker     OperationKind = "CREATE_WORKER"
	OpCreateSupplier   OperationKind = "CREATE_SUPPLIER"
	OpCreateEquipment  OperationKind = "CREATE_EQUIPMENT"
	OpAddAttendance    OperationKind = "ADD_ATTENDANCE"
	OpAddFundTransfer  OperationKind = "ADD_FUND_TRANSFER"
	OpUpdateProject    OperationKind = "UPDATE_PROJECT"
	OpUpdateWorker     OperationKind = "UPDATE_WORKER"
	OpUpdateSupplier   OperationKind = "UPDATE_SUPPLIER"
	OpUpdateEquipment  OperationKind = "UPDATE_EQUIPMENT"
	OpDeleteProject    OperationKind = "DELETE_PROJECT"
	OpDeleteWorker     OperationKind = "DELETE_WORKER"
	OpDeleteSupplier   OperationKind = "DELETE_SUPPLIER"
	OpDeleteEquipment  OperationKind = "DELETE_EQUIPMENT"
	OpDeleteAttendance OperationKind = "DELETE_ATTENDANCE"
	OpExecuteSQL       OperationKind = "EXECUTE_SQL"
)

var operationKinds = map[OperationKind]bool{
	OpCreateProject: true, OpCreateWorker: true, OpCreateSupplier: true, OpCreateEquipment: true,
	OpAddAttendance: true, OpAddFundTransfer: true,
	OpUpdateProject: true, OpUpdateWorker: true, OpUpdateSupplier: true, OpUpdateEquipment: true,
	OpDeleteProject: true, OpDeleteWorker: true, OpDeleteSupplier: true, OpDeleteEquipment: true,
	OpDeleteAttendance: true, OpExecuteSQL: true,
}

// Known reports whether k belongs to the closed set of write operations.
func (k OperationKind) Known() bool { return operationKinds[k] }

// PendingOperation is a proposed write awaiting confirm or cancel.
type PendingOperation struct {
	ID        string        `json:"id"`
	Kind      OperationKind `json:"type"`
	Params    []string      `json:"params"`
	SessionID string        `json:"session_id"`
	CreatedAt time.Time     `json:"created_at"`
}

// ── Action Results ───────────────────────────────────────────

// ErrorKind classifies an unsuccessful ActionResult.
type ErrorKind string

const (
	ErrorNotFound     ErrorKind = "not_found"
	ErrorValidation   ErrorKind = "validation"
	ErrorStore        ErrorKind = "store"
	ErrorUnauthorized ErrorKind = "unauthorized"
)

// ActionResult is the uniform outcome of every read, write or delete.
type ActionResult struct {
	Success              bool        `json:"success"`
	Data                 interface{} `json:"data,omitempty"`
	Message              string      `json:"message"`
	Action               string      `json:"action"`
	RequiresConfirmation bool        `json:"requires_confirmation,omitempty"`
	ConfirmationMessage  string      `json:"confirmation_message,omitempty"`
	ErrorKind            ErrorKind   `json:"error_kind,omitempty"`
}

// ── Business Entities ────────────────────────────────────────

type Project struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Status      string    `json:"status" db:"status"` // "active", "paused", "completed"
	Budget      float64   `json:"budget" db:"budget"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type Worker struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Type      string    `json:"type" db:"type"`
	DailyWage float64   `json:"daily_wage" db:"daily_wage"`
	Phone     string    `json:"phone" db:"phone"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Supplier struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	ContactPerson string    `json:"contact_person" db:"contact_person"`
	Phone         string    `json:"phone" db:"phone"`
	Address       string    `json:"address" db:"address"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

type Equipment struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Code      string    `json:"code" db:"code"`
	Status    string    `json:"status" db:"status"`
	ProjectID *string   `json:"project_id,omitempty" db:"project_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Attendance is one worker-day (or fraction) on a project.
type Attendance struct {
	ID         string    `json:"id" db:"id"`
	WorkerID   string    `json:"worker_id" db:"worker_id"`
	ProjectID  string    `json:"project_id" db:"project_id"`
	Date       string    `json:"date" db:"date"` // YYYY-MM-DD
	WorkDays   float64   `json:"work_days" db:"work_days"`
	DailyWage  float64   `json:"daily_wage" db:"daily_wage"`
	TotalPay   float64   `json:"total_pay" db:"total_pay"`
	PaidAmount float64   `json:"paid_amount" db:"paid_amount"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type FundTransfer struct {
	ID         string    `json:"id" db:"id"`
	ProjectID  string    `json:"project_id" db:"project_id"`
	Amount     float64   `json:"amount" db:"amount"`
	SenderName string    `json:"sender_name" db:"sender_name"`
	Date       string    `json:"date" db:"date"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type WorkerTransfer struct {
	ID            string    `json:"id" db:"id"`
	WorkerID      string    `json:"worker_id" db:"worker_id"`
	ProjectID     *string   `json:"project_id,omitempty" db:"project_id"`
	Amount        float64   `json:"amount" db:"amount"`
	RecipientName string    `json:"recipient_name" db:"recipient_name"`
	Date          string    `json:"date" db:"date"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type MaterialPurchase struct {
	ID           string    `json:"id" db:"id"`
	ProjectID    string    `json:"project_id" db:"project_id"`
	SupplierID   *string   `json:"supplier_id,omitempty" db:"supplier_id"`
	MaterialName string    `json:"material_name" db:"material_name"`
	Quantity     float64   `json:"quantity" db:"quantity"`
	TotalAmount  float64   `json:"total_amount" db:"total_amount"`
	PaidAmount   float64   `json:"paid_amount" db:"paid_amount"`
	Date         string    `json:"date" db:"date"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type TransportExpense struct {
	ID          string    `json:"id" db:"id"`
	ProjectID   string    `json:"project_id" db:"project_id"`
	Amount      float64   `json:"amount" db:"amount"`
	Description string    `json:"description" db:"description"`
	Date        string    `json:"date" db:"date"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type MiscExpense struct {
	ID          string    `json:"id" db:"id"`
	ProjectID   string    `json:"project_id" db:"project_id"`
	WorkerID    *string   `json:"worker_id,omitempty" db:"worker_id"`
	Amount      float64   `json:"amount" db:"amount"`
	Description string    `json:"description" db:"description"`
	Date        string    `json:"date" db:"date"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ── Reports ──────────────────────────────────────────────────

// ExpenseSummary compares a project's incoming funds with its paid expenses.
type ExpenseSummary struct {
	ProjectID      string  `json:"project_id"`
	TotalFunds     float64 `json:"total_funds"`
	TotalWages     float64 `json:"total_wages"`
	TotalMaterials float64 `json:"total_materials"`
	TotalTransport float64 `json:"total_transport"`
	TotalMisc      float64 `json:"total_misc"`
	TotalExpenses  float64 `json:"total_expenses"`
	Balance        float64 `json:"balance"`
}

type AttendanceReport struct {
	WorkerID    string       `json:"worker_id"`
	Records     []Attendance `json:"records"`
	TotalDays   float64      `json:"total_days"`
	TotalEarned float64      `json:"total_earned"`
	TotalPaid   float64      `json:"total_paid"`
	Balance     float64      `json:"balance"`
}

type TransferReport struct {
	WorkerID         string           `json:"worker_id"`
	Transfers        []WorkerTransfer `json:"transfers"`
	TotalTransferred float64          `json:"total_transferred"`
}

// WorkerStatement is a worker's full account: earned minus paid minus transferred.
type WorkerStatement struct {
	Worker           Worker           `json:"worker"`
	Attendance       AttendanceReport `json:"attendance"`
	Transfers        TransferReport   `json:"transfers"`
	TotalEarned      float64          `json:"total_earned"`
	TotalPaid        float64          `json:"total_paid"`
	TotalTransferred float64          `json:"total_transferred"`
	FinalBalance     float64          `json:"final_balance"`
}

// DailyExpenses lists everything spent on a project on one date.
type DailyExpenses struct {
	ProjectID      string             `json:"project_id"`
	Date           string             `json:"date"`
	Wages          []Attendance       `json:"wages"`
	Purchases      []MaterialPurchase `json:"purchases"`
	Transport      []TransportExpense `json:"transport"`
	Misc           []MiscExpense      `json:"misc"`
	TotalWages     float64            `json:"total_wages"`
	TotalPurchases float64            `json:"total_purchases"`
	TotalTransport float64            `json:"total_transport"`
	TotalMisc      float64            `json:"total_misc"`
	Total          float64            `json:"total"`
}

// ItemCount is the number of expense rows across all categories.
func (d DailyExpenses) ItemCount() int {
	return len(d.Wages) + len(d.Purchases) + len(d.Transport) + len(d.Misc)
}
