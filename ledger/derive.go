/*
derive.go - Cascading derived-field computation

PURPOSE:
  Pure functions that compute every dependent financial field from a
  document's independent fields, in a fixed total order. Derived values
  supplied by callers are never trusted; they are always overwritten here
  before validation against cross-entity state and persistence.

ORDERING:
  Invoice:  per-item amount -> per-item taxAmount -> subtotal -> taxAmount
            -> total. Totals depend on items, so items go first.
  Payroll:  grossSalary -> deductions.total -> netSalary. Net depends on
            both prior results, so the order is strict.

DETERMINISM:
  Recomputing from the same independent fields always yields bit-identical
  results: no carried-over accumulation, no reads of prior document state.
*/
package ledger

// DeriveInvoice recomputes all derived invoice fields in place.
func DeriveInvoice(inv *Invoice) {
	subtotal := ZeroMoney()
	tax := ZeroMoney()

	for i := range inv.Items {
		item := &inv.Items[i]
		item.Amount = item.Rate.MulQuantity(item.Quantity)
		item.TaxAmount = item.Amount.Percent(item.TaxRate)

		subtotal = subtotal.Add(item.Amount)
		tax = tax.Add(item.TaxAmount)
	}

	inv.Subtotal = subtotal
	inv.TaxAmount = tax
	inv.Total = subtotal.Add(tax)
}

// DerivePayroll recomputes gross, total deductions and net salary in place,
// strictly in that order. Net salary may come out negative; that is a
// validation failure for the caller to reject, not something to clamp here.
func DerivePayroll(p *PayrollRecord) {
	p.GrossSalary = p.BasicSalary.Add(p.HRA).Add(p.Allowances)

	d := &p.Deductions
	d.Total = d.TDS.Add(d.PF).Add(d.ESI).Add(d.ProfessionalTax).Add(d.Other)

	p.NetSalary = p.GrossSalary.Sub(d.Total)
}
