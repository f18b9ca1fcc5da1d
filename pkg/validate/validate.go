// Package validate holds the field rules for the storefront search form.
//
// Every field has two rule sets: an incremental one applied to each edit while
// the user types, and a strict one applied when the search is submitted.
package validate

import (
	"errors"
	"regexp"
	"strings"

	"budgetbite/pkg/models"
)

const (
	FieldProductName = "product_name"
	FieldZipCode     = "zip_code"
)

const (
	MsgLettersOnly   = "Only letters and spaces are allowed."
	MsgTooShort      = "Please enter at least 2 characters."
	MsgZipFormat     = "Enter a ZIP as 5 digits or 5 digits-4 digits (e.g., 08873 or 08873-1234)."
	MsgZipInputChars = "Use only numbers and an optional hyphen (##### or #####-####)."
	MsgSummary       = "Please fix the highlighted fields."
)

var (
	ErrInvalidProductName = errors.New("invalid product name")
	ErrInvalidZip         = errors.New("invalid zip code")
)

var (
	productInputRegex  = regexp.MustCompile(`^[A-Za-z ]*$`)
	productSubmitRegex = regexp.MustCompile(`^[A-Za-z ]+$`)
	zipInputRegex      = regexp.MustCompile(`^\d{0,5}(-\d{0,4})?$`)
	zipSubmitRegex     = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
)

// FieldError ties a user-facing message to the field it belongs to.
type FieldError struct {
	Field   string
	Message string
	Err     error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// AcceptProductEdit reports whether raw may replace the current product name
// while the user is typing.
func AcceptProductEdit(raw string) bool {
	return productInputRegex.MatchString(raw)
}

// AcceptZipEdit reports whether raw may replace the current ZIP code while the
// user is typing.
func AcceptZipEdit(raw string) bool {
	return zipInputRegex.MatchString(raw)
}

// ProductName applies the submit rule to a product name.
func ProductName(s string) error {
	trimmed := strings.TrimSpace(s)
	if !productSubmitRegex.MatchString(trimmed) {
		return &FieldError{Field: FieldProductName, Message: MsgLettersOnly, Err: ErrInvalidProductName}
	}
	if len(trimmed) < 2 {
		return &FieldError{Field: FieldProductName, Message: MsgTooShort, Err: ErrInvalidProductName}
	}
	return nil
}

// ZipCode applies the submit rule to a ZIP or ZIP+4 code.
func ZipCode(s string) error {
	if !zipSubmitRegex.MatchString(strings.TrimSpace(s)) {
		return &FieldError{Field: FieldZipCode, Message: MsgZipFormat, Err: ErrInvalidZip}
	}
	return nil
}

// Result is the outcome of validating the whole form.
type Result struct {
	Product *FieldError
	Zip     *FieldError
}

func (r Result) OK() bool {
	return r.Product == nil && r.Zip == nil
}

// Messages returns the field messages keyed by field name.
func (r Result) Messages() map[string]string {
	msgs := make(map[string]string)
	if r.Product != nil {
		msgs[FieldProductName] = r.Product.Message
	}
	if r.Zip != nil {
		msgs[FieldZipCode] = r.Zip.Message
	}
	return msgs
}

// Err joins the field errors, or returns nil when the form is valid.
func (r Result) Err() error {
	var errs []error
	if r.Product != nil {
		errs = append(errs, r.Product)
	}
	if r.Zip != nil {
		errs = append(errs, r.Zip)
	}
	return errors.Join(errs...)
}

// Fields validates the form. Outside of a submit, blank fields are left alone
// so that tabbing through an empty form does not light it up with errors.
func Fields(in models.SearchInput, forSubmit bool) Result {
	var res Result
	if forSubmit || strings.TrimSpace(in.ProductName) != "" {
		res.Product = asFieldError(ProductName(in.ProductName))
	}
	if forSubmit || strings.TrimSpace(in.ZipCode) != "" {
		res.Zip = asFieldError(ZipCode(in.ZipCode))
	}
	return res
}

func asFieldError(err error) *FieldError {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Radius clamps a radius into the supported range.
func Radius(miles int) int {
	return clamp(miles, models.MinRadiusMiles, models.MaxRadiusMiles)
}

// StoreCount clamps a store count into the supported range.
func StoreCount(n int) int {
	return clamp(n, models.MinStoreCount, models.MaxStoreCount)
}
