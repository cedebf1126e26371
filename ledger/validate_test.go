package ledger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbooks/ledger-engine/ledger"
)

func violatedFields(t *testing.T, err error) []string {
	t.Helper()
	var ve *ledger.ValidationError
	require.True(t, errors.As(err, &ve), "expected *ValidationError, got %v", err)
	fields := make([]string, len(ve.Violations))
	for i, v := range ve.Violations {
		fields[i] = v.Field
	}
	return fields
}

func validInvoice() *ledger.Invoice {
	return &ledger.Invoice{
		ClientID:  "client-1",
		IssueDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		DueDate:   time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
		Items:     []ledger.InvoiceLineItem{lineItem("1", "100.00", "18")},
		Status:    ledger.InvoiceDraft,
	}
}

// =============================================================================
// REPORT-ALL BEHAVIOR
// =============================================================================

func TestValidate_ReportsEveryViolation(t *testing.T) {
	// GIVEN: an item with a negative rate AND an out-of-range tax rate
	v := ledger.NewValidator()
	inv := validInvoice()
	inv.Items[0].Rate = ledger.MustMoney("-10.00")
	inv.Items[0].TaxRate = dec("150")

	// WHEN
	err := v.Validate(inv)

	// THEN: both violations are listed, not just the first
	fields := violatedFields(t, err)
	assert.Contains(t, fields, "items[0].rate")
	assert.Contains(t, fields, "items[0].taxRate")
	assert.Len(t, fields, 2)
}

func TestValidate_ValidInvoicePasses(t *testing.T) {
	v := ledger.NewValidator()
	assert.NoError(t, v.Validate(validInvoice()))
}

// =============================================================================
// FIELD RULES
// =============================================================================

func TestValidate_RequiredFields(t *testing.T) {
	v := ledger.NewValidator()
	err := v.Validate(&ledger.Invoice{Status: ledger.InvoiceDraft})

	fields := violatedFields(t, err)
	assert.Contains(t, fields, "clientId")
	assert.Contains(t, fields, "issueDate")
	assert.Contains(t, fields, "dueDate")
	assert.Contains(t, fields, "items")
}

func TestValidate_DueDateBeforeIssueDate(t *testing.T) {
	v := ledger.NewValidator()
	inv := validInvoice()
	inv.DueDate = inv.IssueDate.AddDate(0, 0, -1)

	fields := violatedFields(t, v.Validate(inv))
	assert.Contains(t, fields, "dueDate")
}

func TestValidate_InvalidStatus(t *testing.T) {
	v := ledger.NewValidator()
	inv := validInvoice()
	inv.Status = "archived"

	fields := violatedFields(t, v.Validate(inv))
	assert.Contains(t, fields, "status")
}

func TestValidate_NegativeTransactionAmount(t *testing.T) {
	v := ledger.NewValidator()
	tx := &ledger.Transaction{
		Date:        time.Now(),
		Description: "Office rent",
		Category:    "rent",
		Type:        ledger.TxExpense,
		Amount:      ledger.MustMoney("-500.00"),
		Account:     "Bank",
	}

	fields := violatedFields(t, v.Validate(tx))
	assert.Equal(t, []string{"amount"}, fields)
}

func TestValidate_PayrollPeriodBounds(t *testing.T) {
	v := ledger.NewValidator()
	p := &ledger.PayrollRecord{
		EmployeeID: "emp-1",
		Period:     ledger.PayrollPeriod{Year: 2026, Month: 13},
		Status:     ledger.PayrollDraft,
	}

	fields := violatedFields(t, v.Validate(p))
	assert.Contains(t, fields, "period.month")
}

func TestValidate_ClientPatterns(t *testing.T) {
	v := ledger.NewValidator()

	cases := []struct {
		name    string
		mutate  func(*ledger.Client)
		field   string
		wantErr bool
	}{
		{"valid", func(*ledger.Client) {}, "", false},
		{"bad email", func(c *ledger.Client) { c.Email = "not-an-email" }, "email", true},
		{"bad phone", func(c *ledger.Client) { c.Phone = "abc" }, "phone", true},
		{"valid phone with plus", func(c *ledger.Client) { c.Phone = "+91 98765 43210" }, "", false},
		{"bad tax id", func(c *ledger.Client) { c.TaxID = "XYZ" }, "taxId", true},
		{"valid tax id", func(c *ledger.Client) { c.TaxID = "27AAPFU0939F1ZV" }, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &ledger.Client{Name: "Acme Traders", Email: "billing@acme.example", Active: true}
			tc.mutate(c)
			err := v.Validate(c)
			if tc.wantErr {
				assert.Contains(t, violatedFields(t, err), tc.field)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
