package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/reembolso/pkg/brl"
)

type DocumentKind string

const (
	KindNFe  DocumentKind = "NFe"
	KindNFCe DocumentKind = "NFCe"
	KindNFSe DocumentKind = "NFSe"
)

// Optional is a value that extraction may or may not have produced.
type Optional[T any] struct {
	value T
	set   bool
}

// Some wraps a present value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// OrZero returns the value, or the zero value when absent.
func (o Optional[T]) OrZero() T {
	return o.value
}

// Present reports whether a value was extracted.
func (o Optional[T]) Present() bool {
	return o.set
}

// MarshalJSON encodes an absent value as null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// Receipt holds the fields pulled out of a fiscal document PDF.
type Receipt struct {
	Kind             DocumentKind     `json:"kind"`
	IssueDate        Optional[string] `json:"issueDate"` // YYYY-MM-DD
	TotalCents       Optional[int64]  `json:"totalCents"`
	SupplierName     Optional[string] `json:"supplierName"`
	SupplierDocument Optional[string] `json:"supplierDocument"`
	ReceiptNumber    Optional[string] `json:"receiptNumber"`
	Description      Optional[string] `json:"description"`
}

// ApplyTo merges the extracted fields into an expense. Absent fields leave
// the expense untouched; the receipt type is always set.
func (r *Receipt) ApplyTo(e *Expense) {
	if v, ok := r.IssueDate.Get(); ok {
		if d, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
			e.Date = brl.Noon(d)
		}
	}
	if v, ok := r.TotalCents.Get(); ok {
		e.Value = decimal.New(v, -2)
	}
	if v, ok := r.SupplierName.Get(); ok {
		e.SupplierName = v
	}
	if v, ok := r.SupplierDocument.Get(); ok {
		e.SupplierDocument = v
	}
	if v, ok := r.ReceiptNumber.Get(); ok {
		e.ReceiptNumber = v
	}
	if v, ok := r.Description.Get(); ok {
		e.Description = v
	}
	e.ReceiptType = string(r.Kind)
}
