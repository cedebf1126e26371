/*
Package ledger implements the financial document integrity engine for a
back-office accounting system.

PURPOSE:
  This package contains the rules that keep monetary documents internally
  consistent and uniquely identified under concurrent requests:

  - Money:             fixed-precision decimal arithmetic (money.go)
  - SequenceAllocator: duplicate-free invoice numbering (sequence.go)
  - Derivation:        cascading derived-field computation (derive.go)
  - Validator:         structural field/cross-field checks (validate.go)
  - Checker:           cross-entity consistency (consistency.go)
  - Engine:            the validate -> derive -> check -> persist pipeline
                       (engine.go)

KEY CONCEPTS IN THIS FILE (types.go):
  - Document:  the envelope every persisted entity implements (id, version,
               audit stamps). Version drives optimistic concurrency.
  - Entities:  Invoice, PayrollRecord, Transaction, Account, Client, Employee.
  - Statuses:  closed enumerations with explicit allowed transitions.

DESIGN PRINCIPLES:
  1. Derived fields are never trusted from callers; they are recomputed
     before every persist.
  2. No component keeps cross-request state except the sequence counter,
     which lives behind the persistence gateway.
  3. Documents are transient in-memory copies; the gateway owns storage.

SEE ALSO:
  - gateway.go: Persistence gateway interface
  - engine.go:  Operation pipeline per entity
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COLLECTIONS
// =============================================================================

// Collection names a document scope inside the persistence gateway.
type Collection string

const (
	ColInvoices     Collection = "invoices"
	ColPayrolls     Collection = "payrolls"
	ColTransactions Collection = "transactions"
	ColAccounts     Collection = "accounts"
	ColClients      Collection = "clients"
	ColEmployees    Collection = "employees"
)

// =============================================================================
// DOCUMENT ENVELOPE
// =============================================================================

// Document is the envelope every persisted entity implements.
type Document interface {
	DocumentID() string
	SetDocumentID(id string)

	// DocumentVersion is the optimistic-concurrency token. A write that
	// does not match the stored version must fail with ConflictError.
	DocumentVersion() int
	SetDocumentVersion(v int)

	DocumentCollection() Collection

	StampCreated(actorID string, at time.Time)
	StampUpdated(at time.Time)
}

// Meta carries identity, version and audit fields. Embedded by all entities.
type Meta struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m *Meta) DocumentID() string       { return m.ID }
func (m *Meta) SetDocumentID(id string)  { m.ID = id }
func (m *Meta) DocumentVersion() int     { return m.Version }
func (m *Meta) SetDocumentVersion(v int) { m.Version = v }

func (m *Meta) StampCreated(actorID string, at time.Time) {
	m.CreatedBy = actorID
	m.CreatedAt = at
	m.UpdatedAt = at
}

func (m *Meta) StampUpdated(at time.Time) { m.UpdatedAt = at }

// Actor is the verified identity supplied by the external auth layer.
// The engine only uses it to populate audit fields.
type Actor struct {
	ID   string
	Role string
}

// =============================================================================
// INVOICE
// =============================================================================

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// invoiceTransitions is the closed transition table. paid and cancelled are
// terminal. Staying on the current status is always allowed.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceDraft:   {InvoiceSent, InvoiceCancelled},
	InvoiceSent:    {InvoicePaid, InvoiceOverdue, InvoiceCancelled},
	InvoiceOverdue: {InvoicePaid, InvoiceCancelled},
}

// CanTransitionTo reports whether next is reachable from s.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range invoiceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// InvoiceLineItem is one billed line. Amount and TaxAmount are derived:
// amount == quantity * rate, taxAmount == amount * taxRate / 100, both
// rounded half-up to the minor unit.
type InvoiceLineItem struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity" validate:"gte=0"`
	Rate        Money           `json:"rate" validate:"gte=0"`
	Amount      Money           `json:"amount"` // derived
	TaxRate     decimal.Decimal `json:"taxRate" validate:"gte=0,lte=100"`
	TaxAmount   Money           `json:"taxAmount"` // derived
	HSNCode     string          `json:"hsnCode,omitempty" validate:"omitempty,max=16"`
}

// Invoice invariants: subtotal == sum(item.amount),
// taxAmount == sum(item.taxAmount), total == subtotal + taxAmount.
// Number is assigned exactly once at creation and never reassigned, even if
// the invoice is later cancelled.
type Invoice struct {
	Meta

	Number    string            `json:"number"`
	ClientID  string            `json:"clientId" validate:"required"`
	IssueDate time.Time         `json:"issueDate" validate:"required"`
	DueDate   time.Time         `json:"dueDate" validate:"required"`
	Items     []InvoiceLineItem `json:"items" validate:"required,min=1,dive"`
	Subtotal  Money             `json:"subtotal"`  // derived
	TaxAmount Money             `json:"taxAmount"` // derived
	Total     Money             `json:"total"`     // derived
	Status    InvoiceStatus     `json:"status" validate:"required,oneof=draft sent paid overdue cancelled"`
	Notes     string            `json:"notes,omitempty" validate:"max=2000"`
}

func (i *Invoice) DocumentCollection() Collection { return ColInvoices }

// =============================================================================
// PAYROLL
// =============================================================================

type PayrollStatus string

const (
	PayrollDraft    PayrollStatus = "draft"
	PayrollApproved PayrollStatus = "approved"
	PayrollPaid     PayrollStatus = "paid"
)

// Payroll moves strictly forward: draft -> approved -> paid.
var payrollTransitions = map[PayrollStatus][]PayrollStatus{
	PayrollDraft:    {PayrollApproved},
	PayrollApproved: {PayrollPaid},
}

func (s PayrollStatus) CanTransitionTo(next PayrollStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range payrollTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PayrollPeriod is the year+month a record covers. One record per employee
// per period.
type PayrollPeriod struct {
	Year  int `json:"year" validate:"gte=2000,lte=2100"`
	Month int `json:"month" validate:"gte=1,lte=12"`
}

// Deductions are the amounts withheld from gross salary. Total is derived.
type Deductions struct {
	TDS             Money `json:"tds" validate:"gte=0"`
	PF              Money `json:"pf" validate:"gte=0"`
	ESI             Money `json:"esi" validate:"gte=0"`
	ProfessionalTax Money `json:"professionalTax" validate:"gte=0"`
	Other           Money `json:"other" validate:"gte=0"`
	Total           Money `json:"total"` // derived
}

// PayrollRecord invariants: grossSalary == basic + hra + allowances,
// deductions.total == sum of parts, netSalary == gross - deductions.total.
// A negative net salary is a validation error, never silently clamped.
type PayrollRecord struct {
	Meta

	EmployeeID       string        `json:"employeeId" validate:"required"`
	Period           PayrollPeriod `json:"period"`
	BasicSalary      Money         `json:"basicSalary" validate:"gte=0"`
	HRA              Money         `json:"hra" validate:"gte=0"`
	Allowances       Money         `json:"allowances" validate:"gte=0"`
	GrossSalary      Money         `json:"grossSalary"` // derived
	Deductions       Deductions    `json:"deductions"`
	NetSalary        Money         `json:"netSalary"` // derived
	Status           PayrollStatus `json:"status" validate:"required,oneof=draft approved paid"`
	PaymentDate      *time.Time    `json:"paymentDate,omitempty"` // set when status reaches paid
	PayslipGenerated bool          `json:"payslipGenerated"`
}

func (p *PayrollRecord) DocumentCollection() Collection { return ColPayrolls }

// =============================================================================
// TRANSACTION
// =============================================================================

type TransactionType string

const (
	TxIncome  TransactionType = "income"
	TxExpense TransactionType = "expense"
)

// Transaction is a generic income/expense entry. It references an Account
// by name; it does NOT adjust Account.Balance (balance is an opening
// balance, maintained manually).
type Transaction struct {
	Meta

	Date        time.Time       `json:"date" validate:"required"`
	Description string          `json:"description" validate:"required,max=500"`
	Category    string          `json:"category" validate:"required,max=100"`
	Type        TransactionType `json:"type" validate:"required,oneof=income expense"`
	Amount      Money           `json:"amount" validate:"gte=0"`
	Account     string          `json:"account" validate:"required,max=100"`
	Reference   string          `json:"reference,omitempty" validate:"max=100"`
	Tags        []string        `json:"tags,omitempty" validate:"dive,max=50"`
}

func (t *Transaction) DocumentCollection() Collection { return ColTransactions }

// =============================================================================
// ACCOUNT
// =============================================================================

type AccountType string

const (
	AccountAsset     AccountType = "asset"
	AccountLiability AccountType = "liability"
	AccountEquity    AccountType = "equity"
	AccountIncome    AccountType = "income"
	AccountExpense   AccountType = "expense"
)

// Account names must be unique among active accounts.
type Account struct {
	Meta

	Name    string      `json:"name" validate:"required,max=100"`
	Type    AccountType `json:"type" validate:"required,oneof=asset liability equity income expense"`
	Balance Money       `json:"balance" validate:"gte=0"`
	Active  bool        `json:"active"`
}

func (a *Account) DocumentCollection() Collection { return ColAccounts }

// =============================================================================
// CLIENT / EMPLOYEE
// =============================================================================

// Client is a billing counterparty. Email is unique across clients.
type Client struct {
	Meta

	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,phone"`
	TaxID   string `json:"taxId,omitempty" validate:"omitempty,taxid"`
	Address string `json:"address,omitempty" validate:"max=500"`
	Active  bool   `json:"active"`
}

func (c *Client) DocumentCollection() Collection { return ColClients }

// Employee is a payroll subject. Email is unique across employees.
type Employee struct {
	Meta

	Name        string    `json:"name" validate:"required,max=200"`
	Email       string    `json:"email" validate:"required,email,max=254"`
	Phone       string    `json:"phone,omitempty" validate:"omitempty,phone"`
	Designation string    `json:"designation,omitempty" validate:"max=100"`
	JoinDate    time.Time `json:"joinDate" validate:"required"`
	Active      bool      `json:"active"`
}

func (e *Employee) DocumentCollection() Collection { return ColEmployees }

// =============================================================================
// DOCUMENT FACTORY - used by storage adapters to decode rows
// =============================================================================

// NewDocumentFor returns an empty document of the concrete type stored in
// the given collection, or nil for an unknown collection.
func NewDocumentFor(col Collection) Document {
	switch col {
	case ColInvoices:
		return &Invoice{}
	case ColPayrolls:
		return &PayrollRecord{}
	case ColTransactions:
		return &Transaction{}
	case ColAccounts:
		return &Account{}
	case ColClients:
		return &Client{}
	case ColEmployees:
		return &Employee{}
	default:
		return nil
	}
}
