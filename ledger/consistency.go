/*
consistency.go - Cross-entity consistency checks

PURPOSE:
  Invariants the structural validator cannot see in isolation:

  1. Uniqueness: no two active accounts share a name; no two clients or
     employees share an email; one payroll record per employee per period.
     (Invoice numbers are unique by construction: the sequence allocator
     hands them out exactly once, at creation only.)
  2. Referential existence: the client/employee/account a document points
     at must actually exist.
  3. Re-derivation agreement: immediately before persisting, derived
     totals are recomputed and compared; a mismatch means stale
     caller-supplied totals leaked through and the write is rejected.
  4. Idempotent bootstrap: seeding the default chart of accounts is a
     successful no-op when any account already exists.

SEE ALSO:
  - validate.go: per-document structural checks
  - engine.go:   invokes these in the persist pipeline
*/
package ledger

import (
	"context"
	"fmt"
	"strings"
)

// Checker enforces cross-entity invariants against the gateway.
type Checker struct {
	gw Gateway
}

func NewChecker(gw Gateway) *Checker {
	return &Checker{gw: gw}
}

// =============================================================================
// UNIQUENESS
// =============================================================================

// EnsureUniqueAccountName rejects a second ACTIVE account with the same
// name (case-insensitive). excludeID skips the document being updated.
func (c *Checker) EnsureUniqueAccountName(ctx context.Context, name, excludeID string) error {
	want := strings.ToLower(strings.TrimSpace(name))
	n, err := c.gw.CountMatching(ctx, ColAccounts, func(doc Document) bool {
		acc := doc.(*Account)
		return acc.Active && acc.ID != excludeID && strings.ToLower(strings.TrimSpace(acc.Name)) == want
	})
	if err != nil {
		return err
	}
	if n > 0 {
		return &ConflictError{Reason: "duplicate_account_name", Detail: fmt.Sprintf("active account %q already exists", name)}
	}
	return nil
}

// EnsureUniqueClientEmail rejects a second client with the same email.
func (c *Checker) EnsureUniqueClientEmail(ctx context.Context, email, excludeID string) error {
	want := strings.ToLower(strings.TrimSpace(email))
	n, err := c.gw.CountMatching(ctx, ColClients, func(doc Document) bool {
		cl := doc.(*Client)
		return cl.ID != excludeID && strings.ToLower(cl.Email) == want
	})
	if err != nil {
		return err
	}
	if n > 0 {
		return &ConflictError{Reason: "duplicate_email", Detail: fmt.Sprintf("client with email %q already exists", email)}
	}
	return nil
}

// EnsureUniqueEmployeeEmail rejects a second employee with the same email.
func (c *Checker) EnsureUniqueEmployeeEmail(ctx context.Context, email, excludeID string) error {
	want := strings.ToLower(strings.TrimSpace(email))
	n, err := c.gw.CountMatching(ctx, ColEmployees, func(doc Document) bool {
		emp := doc.(*Employee)
		return emp.ID != excludeID && strings.ToLower(emp.Email) == want
	})
	if err != nil {
		return err
	}
	if n > 0 {
		return &ConflictError{Reason: "duplicate_email", Detail: fmt.Sprintf("employee with email %q already exists", email)}
	}
	return nil
}

// EnsureUniquePayrollPeriod enforces one record per employee per period.
func (c *Checker) EnsureUniquePayrollPeriod(ctx context.Context, employeeID string, period PayrollPeriod, excludeID string) error {
	n, err := c.gw.CountMatching(ctx, ColPayrolls, func(doc Document) bool {
		p := doc.(*PayrollRecord)
		return p.ID != excludeID && p.EmployeeID == employeeID && p.Period == period
	})
	if err != nil {
		return err
	}
	if n > 0 {
		return &ConflictError{
			Reason: "duplicate_payroll_period",
			Detail: fmt.Sprintf("payroll for employee %s in %04d-%02d already exists", employeeID, period.Year, period.Month),
		}
	}
	return nil
}

// =============================================================================
// REFERENTIAL EXISTENCE
// =============================================================================

// EnsureClientExists resolves the invoice's client reference.
func (c *Checker) EnsureClientExists(ctx context.Context, clientID string) error {
	if _, err := c.gw.FindByID(ctx, ColClients, clientID); err != nil {
		return fmt.Errorf("client %s: %w", clientID, err)
	}
	return nil
}

// EnsureEmployeeExists resolves the payroll record's employee reference.
func (c *Checker) EnsureEmployeeExists(ctx context.Context, employeeID string) error {
	if _, err := c.gw.FindByID(ctx, ColEmployees, employeeID); err != nil {
		return fmt.Errorf("employee %s: %w", employeeID, err)
	}
	return nil
}

// EnsureAccountExists resolves a transaction's account-by-name reference
// against active accounts.
func (c *Checker) EnsureAccountExists(ctx context.Context, name string) error {
	want := strings.ToLower(strings.TrimSpace(name))
	n, err := c.gw.CountMatching(ctx, ColAccounts, func(doc Document) bool {
		acc := doc.(*Account)
		return acc.Active && strings.ToLower(strings.TrimSpace(acc.Name)) == want
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("account %q: %w", name, ErrNotFound)
	}
	return nil
}

// =============================================================================
// RE-DERIVATION AGREEMENT
// =============================================================================

// VerifyInvoiceDerived recomputes the invoice's derived fields on a copy
// and rejects the document if the values about to be persisted differ.
func (c *Checker) VerifyInvoiceDerived(inv *Invoice) error {
	check := *inv
	check.Items = append([]InvoiceLineItem(nil), inv.Items...)
	DeriveInvoice(&check)

	ve := &ValidationError{}
	for i := range inv.Items {
		if !inv.Items[i].Amount.Equal(check.Items[i].Amount) || !inv.Items[i].TaxAmount.Equal(check.Items[i].TaxAmount) {
			ve.add(fmt.Sprintf("items[%d].amount", i), "derived", "does not match recomputed value")
		}
	}
	if !inv.Subtotal.Equal(check.Subtotal) {
		ve.add("subtotal", "derived", "does not match recomputed value")
	}
	if !inv.TaxAmount.Equal(check.TaxAmount) {
		ve.add("taxAmount", "derived", "does not match recomputed value")
	}
	if !inv.Total.Equal(check.Total) {
		ve.add("total", "derived", "does not match recomputed value")
	}
	if len(ve.Violations) > 0 {
		return ve
	}
	return nil
}

// VerifyPayrollDerived recomputes gross/deductions/net on a copy and
// rejects a mismatch. Also rejects a negative net salary: that is a
// validation error, never silently clamped.
func (c *Checker) VerifyPayrollDerived(p *PayrollRecord) error {
	check := *p
	DerivePayroll(&check)

	ve := &ValidationError{}
	if !p.GrossSalary.Equal(check.GrossSalary) {
		ve.add("grossSalary", "derived", "does not match recomputed value")
	}
	if !p.Deductions.Total.Equal(check.Deductions.Total) {
		ve.add("deductions.total", "derived", "does not match recomputed value")
	}
	if !p.NetSalary.Equal(check.NetSalary) {
		ve.add("netSalary", "derived", "does not match recomputed value")
	}
	if p.NetSalary.IsNegative() {
		ve.add("netSalary", "gte", "deductions exceed gross salary")
	}
	if len(ve.Violations) > 0 {
		return ve
	}
	return nil
}

// =============================================================================
// DEFAULT CHART OF ACCOUNTS
// =============================================================================

// DefaultAccounts is the fixed chart seeded by Bootstrap.
func DefaultAccounts() []Account {
	mk := func(name string, typ AccountType) Account {
		return Account{Name: name, Type: typ, Balance: ZeroMoney(), Active: true}
	}
	return []Account{
		mk("Cash", AccountAsset),
		mk("Bank", AccountAsset),
		mk("Accounts Receivable", AccountAsset),
		mk("Accounts Payable", AccountLiability),
		mk("Tax Payable", AccountLiability),
		mk("Owner's Equity", AccountEquity),
		mk("Service Revenue", AccountIncome),
		mk("Salary Expense", AccountExpense),
		mk("Rent Expense", AccountExpense),
		mk("Office Supplies", AccountExpense),
	}
}

// AnyAccountExists reports whether the accounts collection is non-empty.
// Bootstrap is a successful no-op when it is.
func (c *Checker) AnyAccountExists(ctx context.Context) (bool, error) {
	n, err := c.gw.CountMatching(ctx, ColAccounts, func(Document) bool { return true })
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
