/*
engine.go - The validate -> derive -> check -> persist pipeline

PURPOSE:
  Engine is the facade the surrounding HTTP handlers call. For every
  entity it exposes create/update/delete/get operations that run the full
  integrity pipeline before the single atomic gateway write:

    1. Document Validator      structural field/cross-field checks
    2. Derivation Engine       recompute dependent fields (never trusted)
    3. Consistency Checker     uniqueness, references, re-derivation
    4. Sequence Allocator      new invoices only
    5. Persistence Gateway     one atomic write

  Reads bypass derivation and allocation entirely.

CONCURRENCY:
  Requests share no in-process state. Updates carry the version the caller
  read; UpdateIfUnchanged rejects the write with ConflictError if the
  document changed in between. The sequence counter is the only resource
  needing true mutual exclusion and lives behind the gateway.

LIFECYCLE RULES ENFORCED HERE:
  - Invoices are always created in draft with a freshly allocated number;
    the number is never reassigned, even on cancellation.
  - Status transitions follow the closed tables in types.go.
  - Payroll paymentDate is stamped when status first reaches paid.
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Settings is explicit configuration handed to the engine at construction.
// Loaded once at process start; never ambient global state.
type Settings struct {
	// InvoicePrefix prefixes formatted invoice numbers, e.g. "INV".
	InvoicePrefix string
}

// Engine wires the integrity components around a persistence gateway.
type Engine struct {
	gw       Gateway
	seq      *SequenceAllocator
	validate *Validator
	check    *Checker
	settings Settings
	log      zerolog.Logger
}

func NewEngine(gw Gateway, counters CounterStore, settings Settings, log zerolog.Logger) *Engine {
	if settings.InvoicePrefix == "" {
		settings.InvoicePrefix = "INV"
	}
	return &Engine{
		gw:       gw,
		seq:      NewSequenceAllocator(counters),
		validate: NewValidator(),
		check:    NewChecker(gw),
		settings: settings,
		log:      log,
	}
}

func (e *Engine) stampNew(doc Document, actor Actor) {
	doc.SetDocumentID(uuid.NewString())
	doc.SetDocumentVersion(1)
	doc.StampCreated(actor.ID, time.Now().UTC())
}

func (e *Engine) stampReplaced(doc Document, expectedVersion int) {
	doc.SetDocumentVersion(expectedVersion + 1)
	doc.StampUpdated(time.Now().UTC())
}

// =============================================================================
// INVOICES
// =============================================================================

// CreateInvoice validates, derives totals, allocates the invoice number and
// persists. The number is assigned exactly once, here.
func (e *Engine) CreateInvoice(ctx context.Context, actor Actor, inv *Invoice) (*Invoice, error) {
	inv.Status = InvoiceDraft // every invoice starts life as a draft
	inv.Number = ""

	if err := e.validate.Validate(inv); err != nil {
		return nil, err
	}
	DeriveInvoice(inv)

	if err := e.check.EnsureClientExists(ctx, inv.ClientID); err != nil {
		return nil, err
	}
	if err := e.check.VerifyInvoiceDerived(inv); err != nil {
		return nil, err
	}

	n, err := e.seq.Allocate(ctx, ScopeInvoice)
	if err != nil {
		return nil, err
	}
	inv.Number = FormatNumber(e.settings.InvoicePrefix, n)

	e.stampNew(inv, actor)
	if err := e.gw.InsertAtomic(ctx, inv); err != nil {
		return nil, err
	}

	e.log.Info().Str("id", inv.ID).Str("number", inv.Number).Str("total", inv.Total.String()).Msg("invoice created")
	return inv, nil
}

// UpdateInvoice replaces the independent fields of an invoice and re-runs
// the pipeline. Totals are re-validated regardless of status; the number
// and creation audit fields are immutable.
func (e *Engine) UpdateInvoice(ctx context.Context, actor Actor, id string, expectedVersion int, upd *Invoice) (*Invoice, error) {
	cur, err := e.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Status == "" {
		upd.Status = cur.Status
	}
	if !cur.Status.CanTransitionTo(upd.Status) {
		return nil, newViolation("status", "transition",
			"cannot transition from "+string(cur.Status)+" to "+string(upd.Status))
	}

	merged := *cur
	merged.ClientID = upd.ClientID
	merged.IssueDate = upd.IssueDate
	merged.DueDate = upd.DueDate
	merged.Items = upd.Items
	merged.Status = upd.Status
	merged.Notes = upd.Notes

	if err := e.validate.Validate(&merged); err != nil {
		return nil, err
	}
	DeriveInvoice(&merged)

	if err := e.check.EnsureClientExists(ctx, merged.ClientID); err != nil {
		return nil, err
	}
	if err := e.check.VerifyInvoiceDerived(&merged); err != nil {
		return nil, err
	}

	e.stampReplaced(&merged, expectedVersion)
	if err := e.gw.UpdateIfUnchanged(ctx, &merged, expectedVersion); err != nil {
		return nil, err
	}

	e.log.Info().Str("id", merged.ID).Str("number", merged.Number).Msg("invoice updated")
	return &merged, nil
}

func (e *Engine) DeleteInvoice(ctx context.Context, id string) error {
	return e.gw.DeleteByID(ctx, ColInvoices, id)
}

func (e *Engine) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	doc, err := e.gw.FindByID(ctx, ColInvoices, id)
	if err != nil {
		return nil, err
	}
	return doc.(*Invoice), nil
}

// ListInvoices is a pass-through; reads skip derivation and allocation.
func (e *Engine) ListInvoices(ctx context.Context) ([]*Invoice, error) {
	docs, err := e.gw.List(ctx, ColInvoices)
	if err != nil {
		return nil, err
	}
	out := make([]*Invoice, len(docs))
	for i, d := range docs {
		out[i] = d.(*Invoice)
	}
	return out, nil
}

// =============================================================================
// PAYROLL
// =============================================================================

// CreatePayroll validates, derives gross/deductions/net and persists.
// One record per employee per period.
func (e *Engine) CreatePayroll(ctx context.Context, actor Actor, p *PayrollRecord) (*PayrollRecord, error) {
	p.Status = PayrollDraft
	p.PaymentDate = nil
	p.PayslipGenerated = false

	if err := e.validate.Validate(p); err != nil {
		return nil, err
	}
	DerivePayroll(p)

	if err := e.check.EnsureEmployeeExists(ctx, p.EmployeeID); err != nil {
		return nil, err
	}
	if err := e.check.EnsureUniquePayrollPeriod(ctx, p.EmployeeID, p.Period, ""); err != nil {
		return nil, err
	}
	if err := e.check.VerifyPayrollDerived(p); err != nil {
		return nil, err
	}

	e.stampNew(p, actor)
	if err := e.gw.InsertAtomic(ctx, p); err != nil {
		return nil, err
	}

	e.log.Info().Str("id", p.ID).Str("employee", p.EmployeeID).
		Int("year", p.Period.Year).Int("month", p.Period.Month).
		Str("net", p.NetSalary.String()).Msg("payroll record created")
	return p, nil
}

// UpdatePayroll re-derives on every update. The employee+period identity is
// immutable once created; status only moves forward.
func (e *Engine) UpdatePayroll(ctx context.Context, actor Actor, id string, expectedVersion int, upd *PayrollRecord) (*PayrollRecord, error) {
	cur, err := e.GetPayroll(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Status == "" {
		upd.Status = cur.Status
	}
	if !cur.Status.CanTransitionTo(upd.Status) {
		return nil, newViolation("status", "transition",
			"cannot transition from "+string(cur.Status)+" to "+string(upd.Status))
	}

	merged := *cur
	merged.BasicSalary = upd.BasicSalary
	merged.HRA = upd.HRA
	merged.Allowances = upd.Allowances
	merged.Deductions = upd.Deductions
	merged.Status = upd.Status
	merged.PayslipGenerated = upd.PayslipGenerated

	// paymentDate is stamped when the record first reaches paid.
	if merged.Status == PayrollPaid && merged.PaymentDate == nil {
		now := time.Now().UTC()
		merged.PaymentDate = &now
	}

	if err := e.validate.Validate(&merged); err != nil {
		return nil, err
	}
	DerivePayroll(&merged)

	if err := e.check.VerifyPayrollDerived(&merged); err != nil {
		return nil, err
	}

	e.stampReplaced(&merged, expectedVersion)
	if err := e.gw.UpdateIfUnchanged(ctx, &merged, expectedVersion); err != nil {
		return nil, err
	}

	e.log.Info().Str("id", merged.ID).Str("status", string(merged.Status)).Msg("payroll record updated")
	return &merged, nil
}

func (e *Engine) DeletePayroll(ctx context.Context, id string) error {
	return e.gw.DeleteByID(ctx, ColPayrolls, id)
}

func (e *Engine) GetPayroll(ctx context.Context, id string) (*PayrollRecord, error) {
	doc, err := e.gw.FindByID(ctx, ColPayrolls, id)
	if err != nil {
		return nil, err
	}
	return doc.(*PayrollRecord), nil
}

func (e *Engine) ListPayrolls(ctx context.Context) ([]*PayrollRecord, error) {
	docs, err := e.gw.List(ctx, ColPayrolls)
	if err != nil {
		return nil, err
	}
	out := make([]*PayrollRecord, len(docs))
	for i, d := range docs {
		out[i] = d.(*PayrollRecord)
	}
	return out, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// CreateTransaction records an income/expense entry against an existing
// active account. Account.Balance is NOT adjusted; it is an opening
// balance maintained manually.
func (e *Engine) CreateTransaction(ctx context.Context, actor Actor, t *Transaction) (*Transaction, error) {
	if err := e.validate.Validate(t); err != nil {
		return nil, err
	}
	if err := e.check.EnsureAccountExists(ctx, t.Account); err != nil {
		return nil, err
	}

	e.stampNew(t, actor)
	if err := e.gw.InsertAtomic(ctx, t); err != nil {
		return nil, err
	}

	e.log.Info().Str("id", t.ID).Str("type", string(t.Type)).Str("amount", t.Amount.String()).Msg("transaction created")
	return t, nil
}

func (e *Engine) UpdateTransaction(ctx context.Context, actor Actor, id string, expectedVersion int, upd *Transaction) (*Transaction, error) {
	cur, err := e.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := *cur
	merged.Date = upd.Date
	merged.Description = upd.Description
	merged.Category = upd.Category
	merged.Type = upd.Type
	merged.Amount = upd.Amount
	merged.Account = upd.Account
	merged.Reference = upd.Reference
	merged.Tags = upd.Tags

	if err := e.validate.Validate(&merged); err != nil {
		return nil, err
	}
	if err := e.check.EnsureAccountExists(ctx, merged.Account); err != nil {
		return nil, err
	}

	e.stampReplaced(&merged, expectedVersion)
	if err := e.gw.UpdateIfUnchanged(ctx, &merged, expectedVersion); err != nil {
		return nil, err
	}
	return &merged, nil
}

func (e *Engine) DeleteTransaction(ctx context.Context, id string) error {
	return e.gw.DeleteByID(ctx, ColTransactions, id)
}

func (e *Engine) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	doc, err := e.gw.FindByID(ctx, ColTransactions, id)
	if err != nil {
		return nil, err
	}
	return doc.(*Transaction), nil
}

func (e *Engine) ListTransactions(ctx context.Context) ([]*Transaction, error) {
	docs, err := e.gw.List(ctx, ColTransactions)
	if err != nil {
		return nil, err
	}
	out := make([]*Transaction, len(docs))
	for i, d := range docs {
		out[i] = d.(*Transaction)
	}
	return out, nil
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (e *Engine) CreateAccount(ctx context.Context, actor Actor, a *Account) (*Account, error) {
	if err := e.validate.Validate(a); err != nil {
		return nil, err
	}
	if a.Active {
		if err := e.check.EnsureUniqueAccountName(ctx, a.Name, ""); err != nil {
			return nil, err
		}
	}

	e.stampNew(a, actor)
	if err := e.gw.InsertAtomic(ctx, a); err != nil {
		return nil, err
	}

	e.log.Info().Str("id", a.ID).Str("name", a.Name).Str("type", string(a.Type)).Msg("account created")
	return a, nil
}

func (e *Engine) UpdateAccount(ctx context.Context, actor Actor, id string, expectedVersion int, upd *Account) (*Account, error) {
	cur, err := e.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := *cur
	merged.Name = upd.Name
	merged.Type = upd.Type
	merged.Balance = upd.Balance
	merged.Active = upd.Active

	if err := e.validate.Validate(&merged); err != nil {
		return nil, err
	}
	if merged.Active {
		if err := e.check.EnsureUniqueAccountName(ctx, merged.Name, merged.ID); err != nil {
			return nil, err
		}
	}

	e.stampReplaced(&merged, expectedVersion)
	if err := e.gw.UpdateIfUnchanged(ctx, &merged, expectedVersion); err != nil {
		return nil, err
	}
	return &merged, nil
}

func (e *Engine) DeleteAccount(ctx context.Context, id string) error {
	return e.gw.DeleteByID(ctx, ColAccounts, id)
}

func (e *Engine) GetAccount(ctx context.Context, id string) (*Account, error) {
	doc, err := e.gw.FindByID(ctx, ColAccounts, id)
	if err != nil {
		return nil, err
	}
	return doc.(*Account), nil
}

func (e *Engine) ListAccounts(ctx context.Context) ([]*Account, error) {
	docs, err := e.gw.List(ctx, ColAccounts)
	if err != nil {
		return nil, err
	}
	out := make([]*Account, len(docs))
	for i, d := range docs {
		out[i] = d.(*Account)
	}
	return out, nil
}

// BootstrapAccounts seeds the fixed default chart of accounts, once.
// Idempotent: when any account already exists the call is a successful
// no-op and reports zero created.
func (e *Engine) BootstrapAccounts(ctx context.Context, actor Actor) (int, error) {
	exists, err := e.check.AnyAccountExists(ctx)
	if err != nil {
		return 0, err
	}
	if exists {
		e.log.Debug().Msg("account bootstrap skipped: chart already present")
		return 0, nil
	}

	defaults := DefaultAccounts()
	for i := range defaults {
		acc := defaults[i]
		e.stampNew(&acc, actor)
		if err := e.gw.InsertAtomic(ctx, &acc); err != nil {
			return i, err
		}
	}

	e.log.Info().Int("count", len(defaults)).Msg("default chart of accounts seeded")
	return len(defaults), nil
}

// =============================================================================
// CLIENTS
// =============================================================================

func (e *Engine) CreateClient(ctx context.Context, actor Actor, c *Client) (*Client, error) {
	if err := e.validate.Validate(c); err != nil {
		return nil, err
	}
	if err := e.check.EnsureUniqueClientEmail(ctx, c.Email, ""); err != nil {
		return nil, err
	}

	e.stampNew(c, actor)
	if err := e.gw.InsertAtomic(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (e *Engine) UpdateClient(ctx context.Context, actor Actor, id string, expectedVersion int, upd *Client) (*Client, error) {
	cur, err := e.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := *cur
	merged.Name = upd.Name
	merged.Email = upd.Email
	merged.Phone = upd.Phone
	merged.TaxID = upd.TaxID
	merged.Address = upd.Address
	merged.Active = upd.Active

	if err := e.validate.Validate(&merged); err != nil {
		return nil, err
	}
	if err := e.check.EnsureUniqueClientEmail(ctx, merged.Email, merged.ID); err != nil {
		return nil, err
	}

	e.stampReplaced(&merged, expectedVersion)
	if err := e.gw.UpdateIfUnchanged(ctx, &merged, expectedVersion); err != nil {
		return nil, err
	}
	return &merged, nil
}

func (e *Engine) DeleteClient(ctx context.Context, id string) error {
	return e.gw.DeleteByID(ctx, ColClients, id)
}

func (e *Engine) GetClient(ctx context.Context, id string) (*Client, error) {
	doc, err := e.gw.FindByID(ctx, ColClients, id)
	if err != nil {
		return nil, err
	}
	return doc.(*Client), nil
}

func (e *Engine) ListClients(ctx context.Context) ([]*Client, error) {
	docs, err := e.gw.List(ctx, ColClients)
	if err != nil {
		return nil, err
	}
	out := make([]*Client, len(docs))
	for i, d := range docs {
		out[i] = d.(*Client)
	}
	return out, nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (e *Engine) CreateEmployee(ctx context.Context, actor Actor, emp *Employee) (*Employee, error) {
	if err := e.validate.Validate(emp); err != nil {
		return nil, err
	}
	if err := e.check.EnsureUniqueEmployeeEmail(ctx, emp.Email, ""); err != nil {
		return nil, err
	}

	e.stampNew(emp, actor)
	if err := e.gw.InsertAtomic(ctx, emp); err != nil {
		return nil, err
	}
	return emp, nil
}

func (e *Engine) UpdateEmployee(ctx context.Context, actor Actor, id string, expectedVersion int, upd *Employee) (*Employee, error) {
	cur, err := e.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := *cur
	merged.Name = upd.Name
	merged.Email = upd.Email
	merged.Phone = upd.Phone
	merged.Designation = upd.Designation
	merged.JoinDate = upd.JoinDate
	merged.Active = upd.Active

	if err := e.validate.Validate(&merged); err != nil {
		return nil, err
	}
	if err := e.check.EnsureUniqueEmployeeEmail(ctx, merged.Email, merged.ID); err != nil {
		return nil, err
	}

	e.stampReplaced(&merged, expectedVersion)
	if err := e.gw.UpdateIfUnchanged(ctx, &merged, expectedVersion); err != nil {
		return nil, err
	}
	return &merged, nil
}

func (e *Engine) DeleteEmployee(ctx context.Context, id string) error {
	return e.gw.DeleteByID(ctx, ColEmployees, id)
}

func (e *Engine) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	doc, err := e.gw.FindByID(ctx, ColEmployees, id)
	if err != nil {
		return nil, err
	}
	return doc.(*Employee), nil
}

func (e *Engine) ListEmployees(ctx context.Context) ([]*Employee, error) {
	docs, err := e.gw.List(ctx, ColEmployees)
	if err != nil {
		return nil, err
	}
	out := make([]*Employee, len(docs))
	for i, d := range docs {
		out[i] = d.(*Employee)
	}
	return out, nil
}
