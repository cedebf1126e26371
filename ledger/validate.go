/*
validate.go - Structural document validation

PURPOSE:
  Rejects structurally invalid documents before derivation and
  persistence: required fields, non-negative amounts, tax rate in [0,100],
  phone and tax-identifier patterns, string length ceilings, and
  cross-field rules like dueDate >= issueDate.

  Referential EXISTENCE (client/employee/account) is deliberately not
  checked here; that is cross-entity work and belongs to the consistency
  checker. This validator only requires the reference to be supplied.

FAIL-FAST, REPORT-ALL:
  Validation returns a single ValidationError enumerating EVERY violated
  field, so API callers can report all problems in one response.

IMPLEMENTATION:
  Built on go-playground/validator/v10 struct tags plus struct-level rules.
  Money and decimal.Decimal fields are exposed to the tag engine as
  float64 so the usual gte/lte tags apply; precision enforcement already
  happened at Money construction time.
*/
package ledger

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	// Loose international phone shape: optional +, 7-15 digits with
	// separators.
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\-\s]{6,14}$`)

	// GSTIN-style tax identifier: 2-digit state code, 10-char PAN, entity
	// code, default letter, checksum.
	taxIDPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][0-9A-Z]Z[0-9A-Z]$`)
)

// Validator enforces per-field and cross-field invariants.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so violations map directly onto
	// request bodies.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Expose fixed-precision types as float64 for gte/lte tags.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		switch val := field.Interface().(type) {
		case Money:
			return val.Float64()
		case decimal.Decimal:
			f, _ := val.Float64()
			return f
		}
		return nil
	}, Money{}, decimal.Decimal{})

	must(v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("taxid", func(fl validator.FieldLevel) bool {
		return taxIDPattern.MatchString(fl.Field().String())
	}))

	v.RegisterStructValidation(invoiceStructRules, Invoice{})

	return &Validator{v: v}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// invoiceStructRules holds the cross-field rules the tag engine cannot
// express: the due date may not precede the issue date.
func invoiceStructRules(sl validator.StructLevel) {
	inv := sl.Current().Interface().(Invoice)
	if !inv.IssueDate.IsZero() && !inv.DueDate.IsZero() && inv.DueDate.Before(inv.IssueDate) {
		sl.ReportError(inv.DueDate, "dueDate", "DueDate", "gtefield", "issueDate")
	}
}

// Validate checks a document and returns nil or a *ValidationError listing
// every violation.
func (val *Validator) Validate(doc Document) error {
	err := val.v.Struct(doc)
	if err == nil {
		return nil
	}

	ferrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// validator.InvalidValidationError: a programming error, not input.
		return err
	}

	ve := &ValidationError{}
	for _, fe := range ferrs {
		ve.add(fieldPath(fe), fe.Tag(), violationMessage(fe))
	}
	return ve
}

// fieldPath strips the root struct name from the namespace:
// "Invoice.items[0].taxRate" -> "items[0].taxRate".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		if fe.Param() == "0" {
			return "must not be negative"
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "email":
		return "must be a valid email address"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "phone":
		return "must be a valid phone number"
	case "taxid":
		return "must be a valid tax identifier"
	case "gtefield":
		return fmt.Sprintf("must not precede %s", fe.Param())
	default:
		return fmt.Sprintf("failed rule %q", fe.Tag())
	}
}
