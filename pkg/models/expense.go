package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ExpenseStatus string

const (
	StatusDraft     ExpenseStatus = "Draft"
	StatusSubmitted ExpenseStatus = "Submitted"
	StatusClosed    ExpenseStatus = "Closed"
	StatusRejected  ExpenseStatus = "Rejected"
)

type AdminStatus string

const (
	AdminPending  AdminStatus = "pending"
	AdminApproved AdminStatus = "approved"
	AdminRejected AdminStatus = "rejected"
)

// SubstituteType marks items of a substitute report. A "Substituta" item is
// the documented replacement for a "Real Sem NF" item that had no receipt.
type SubstituteType string

const (
	SubstituteNone        SubstituteType = ""
	SubstituteReplacement SubstituteType = "Substituta"
	SubstituteNoReceipt   SubstituteType = "Real Sem NF"
)

// Expense is an employee expense item tracked internally.
type Expense struct {
	ID          string
	UserID      string
	CompanyID   string
	ReportID    string
	CostCenter  string
	Category    string
	Description string
	Value       decimal.Decimal
	Date        time.Time
	ClosingDate *time.Time

	Status         ExpenseStatus
	AdminStatus    AdminStatus
	IsGlosada      bool
	SubstituteType SubstituteType

	SupplierName     string
	SupplierDocument string
	ReceiptNumber    string
	ReceiptType      string

	IsPaid                  bool
	ReconciledTransactionID string
	ReconciledDate          *time.Time
}

// Company is an owner context expenses belong to.
type Company struct {
	ID        string
	Name      string
	Color     string
	ShortCode string
}
