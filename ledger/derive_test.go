package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finbooks/ledger-engine/ledger"
)

func lineItem(qty, rate, taxRate string) ledger.InvoiceLineItem {
	return ledger.InvoiceLineItem{
		Description: "Consulting services",
		Quantity:    dec(qty),
		Rate:        ledger.MustMoney(rate),
		TaxRate:     dec(taxRate),
	}
}

// =============================================================================
// INVOICE DERIVATION
// =============================================================================

func TestDeriveInvoice_SingleItem(t *testing.T) {
	// GIVEN: quantity=3, rate=100.00, taxRate=18
	inv := &ledger.Invoice{Items: []ledger.InvoiceLineItem{lineItem("3", "100.00", "18")}}

	// WHEN: derivation runs
	ledger.DeriveInvoice(inv)

	// THEN: amount=300.00, taxAmount=54.00
	assert.Equal(t, "300.00", inv.Items[0].Amount.String())
	assert.Equal(t, "54.00", inv.Items[0].TaxAmount.String())
	assert.Equal(t, "300.00", inv.Subtotal.String())
	assert.Equal(t, "54.00", inv.TaxAmount.String())
	assert.Equal(t, "354.00", inv.Total.String())
}

func TestDeriveInvoice_TwoItems(t *testing.T) {
	inv := &ledger.Invoice{Items: []ledger.InvoiceLineItem{
		lineItem("3", "100.00", "18"),
		lineItem("3", "100.00", "18"),
	}}

	ledger.DeriveInvoice(inv)

	assert.Equal(t, "600.00", inv.Subtotal.String())
	assert.Equal(t, "108.00", inv.TaxAmount.String())
	assert.Equal(t, "708.00", inv.Total.String())
}

func TestDeriveInvoice_OverwritesCallerSuppliedTotals(t *testing.T) {
	// GIVEN: a caller smuggling in bogus derived values
	inv := &ledger.Invoice{
		Items:     []ledger.InvoiceLineItem{lineItem("2", "50.00", "0")},
		Subtotal:  ledger.MustMoney("999999.99"),
		TaxAmount: ledger.MustMoney("999999.99"),
		Total:     ledger.MustMoney("999999.99"),
	}
	inv.Items[0].Amount = ledger.MustMoney("123.45")

	// WHEN
	ledger.DeriveInvoice(inv)

	// THEN: every derived field is recomputed from independent inputs
	assert.Equal(t, "100.00", inv.Items[0].Amount.String())
	assert.Equal(t, "100.00", inv.Subtotal.String())
	assert.Equal(t, "0.00", inv.TaxAmount.String())
	assert.Equal(t, "100.00", inv.Total.String())
}

func TestDeriveInvoice_Idempotent(t *testing.T) {
	inv := &ledger.Invoice{Items: []ledger.InvoiceLineItem{lineItem("7", "19.99", "12.5")}}

	ledger.DeriveInvoice(inv)
	first := *inv
	ledger.DeriveInvoice(inv)

	assert.True(t, first.Subtotal.Equal(inv.Subtotal))
	assert.True(t, first.TaxAmount.Equal(inv.TaxAmount))
	assert.True(t, first.Total.Equal(inv.Total))
}

func TestDeriveInvoice_EmptyItems(t *testing.T) {
	inv := &ledger.Invoice{}
	ledger.DeriveInvoice(inv)
	assert.Equal(t, "0.00", inv.Total.String())
}

// =============================================================================
// PAYROLL DERIVATION
// =============================================================================

func TestDerivePayroll_ReferenceExample(t *testing.T) {
	// GIVEN: basic=30000, hra=12000, allowances=3000,
	//        deductions tds=2000 pf=1800 esi=200 pt=200 other=0
	p := &ledger.PayrollRecord{
		BasicSalary: ledger.MustMoney("30000"),
		HRA:         ledger.MustMoney("12000"),
		Allowances:  ledger.MustMoney("3000"),
		Deductions: ledger.Deductions{
			TDS:             ledger.MustMoney("2000"),
			PF:              ledger.MustMoney("1800"),
			ESI:             ledger.MustMoney("200"),
			ProfessionalTax: ledger.MustMoney("200"),
			Other:           ledger.ZeroMoney(),
		},
	}

	// WHEN
	ledger.DerivePayroll(p)

	// THEN: gross=45000, deductions.total=4200, net=40800
	assert.Equal(t, "45000.00", p.GrossSalary.String())
	assert.Equal(t, "4200.00", p.Deductions.Total.String())
	assert.Equal(t, "40800.00", p.NetSalary.String())
}

func TestDerivePayroll_NegativeNetIsNotClamped(t *testing.T) {
	p := &ledger.PayrollRecord{
		BasicSalary: ledger.MustMoney("1000"),
		Deductions:  ledger.Deductions{TDS: ledger.MustMoney("5000")},
	}

	ledger.DerivePayroll(p)

	// derivation reports the truth; validation rejects it downstream
	assert.True(t, p.NetSalary.IsNegative())
	assert.Equal(t, "-4000.00", p.NetSalary.String())
}
