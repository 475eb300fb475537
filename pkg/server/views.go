package server

import (
	"time"

	"github.com/yurifrl/reembolso/pkg/brl"
	"github.com/yurifrl/reembolso/pkg/company"
	"github.com/yurifrl/reembolso/pkg/models"
	"github.com/yurifrl/reembolso/pkg/reconcile"
	"github.com/yurifrl/reembolso/pkg/report"
)

const dateLayout = "2006-01-02"

type badgeView struct {
	Label  string `json:"label"`
	Color  string `json:"color"`
	Locked bool   `json:"locked"`
}

type transactionView struct {
	ID                string     `json:"id"`
	ExternalID        string     `json:"externalId"`
	Date              string     `json:"date"`
	Amount            string     `json:"amount"`
	Formatted         string     `json:"formatted"`
	Description       string     `json:"description"`
	Source            string     `json:"sourceType"`
	ManualDescription string     `json:"manualDescription,omitempty"`
	ManualNote        string     `json:"manualNote,omitempty"`
	ManualReportID    string     `json:"manualReportId,omitempty"`
	ManualCompanyID   string     `json:"manualCompanyId,omitempty"`
	LinkedExpenseID   string     `json:"linkedExpenseId,omitempty"`
	Badge             *badgeView `json:"badge,omitempty"`
}

func newTransactionView(tx *models.Transaction) transactionView {
	return transactionView{
		ID:                tx.ID,
		ExternalID:        tx.ExternalID,
		Date:              tx.Date.Format(dateLayout),
		Amount:            tx.Amount.StringFixed(2),
		Formatted:         brl.Format(tx.Amount),
		Description:       tx.DisplayDescription(),
		Source:            string(tx.Source()),
		ManualDescription: tx.ManualDescription,
		ManualNote:        tx.ManualNote,
		ManualReportID:    tx.ManualReportID,
		ManualCompanyID:   tx.ManualCompanyID,
		LinkedExpenseID:   tx.LinkedExpenseID,
	}
}

func (v *transactionView) withBadge(b company.Badge, ok bool) {
	if ok {
		v.Badge = &badgeView{Label: b.Label, Color: b.Color, Locked: b.Locked}
	}
}

type expenseView struct {
	ID               string  `json:"id"`
	CompanyID        string  `json:"companyId"`
	ReportID         string  `json:"reportId"`
	Category         string  `json:"category"`
	Description      string  `json:"description"`
	Value            string  `json:"value"`
	Date             string  `json:"date"`
	Status           string  `json:"status"`
	DocType          string  `json:"docType"`
	SupplierName     string  `json:"supplierName,omitempty"`
	SupplierDocument string  `json:"supplierDocument,omitempty"`
	ReceiptNumber    string  `json:"receiptNumber,omitempty"`
	ReceiptType      string  `json:"receiptType,omitempty"`
	Rejected         bool    `json:"rejected"`
	IsPaid           bool    `json:"isPaid"`
	ReconciledDate   *string `json:"reconciledDate,omitempty"`
}

func newExpenseView(e *models.Expense) expenseView {
	v := expenseView{
		ID:               e.ID,
		CompanyID:        e.CompanyID,
		ReportID:         e.ReportID,
		Category:         e.Category,
		Description:      e.Description,
		Value:            e.Value.StringFixed(2),
		Date:             e.Date.Format(dateLayout),
		Status:           string(e.Status),
		DocType:          report.DocType(e),
		SupplierName:     e.SupplierName,
		SupplierDocument: report.FormatDocument(e.SupplierDocument),
		ReceiptNumber:    e.ReceiptNumber,
		ReceiptType:      e.ReceiptType,
		Rejected:         report.IsRejected(e),
		IsPaid:           e.IsPaid,
	}
	if e.ReconciledDate != nil {
		d := e.ReconciledDate.Format(time.RFC3339)
		v.ReconciledDate = &d
	}
	return v
}

type candidateView struct {
	Expense  expenseView `json:"expense"`
	Distance string      `json:"distance"`
	Exact    bool        `json:"exact"`
}

func newCandidateView(c reconcile.Candidate) candidateView {
	return candidateView{Expense: newExpenseView(c.Expense), Distance: c.Distance.StringFixed(2), Exact: c.Exact}
}

type categoryView struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type reportView struct {
	ReportID           string         `json:"reportId"`
	UserID             string         `json:"userId"`
	CostCenter         string         `json:"costCenter"`
	Date               string         `json:"date"`
	TotalGenerated     string         `json:"totalGenerated"`
	TotalApproved      string         `json:"totalApproved"`
	RejectedCount      int            `json:"rejectedCount"`
	HasGlosas          bool           `json:"hasGlosas"`
	Audited            bool           `json:"audited"`
	Substitute         bool           `json:"substitute"`
	TotalRealNoReceipt string         `json:"totalRealNoReceipt"`
	TotalSubstitute    string         `json:"totalSubstitute"`
	Gross              string         `json:"gross"`
	Glosado            string         `json:"glosado"`
	Categories         []categoryView `json:"categories"`
	Items              []expenseView  `json:"items"`
}

func newReportView(g report.Group) reportView {
	v := reportView{
		ReportID:           g.ReportID,
		UserID:             g.UserID,
		CostCenter:         g.CostCenter,
		Date:               g.Date.Format(dateLayout),
		TotalGenerated:     g.TotalGenerated.StringFixed(2),
		TotalApproved:      g.TotalApproved.StringFixed(2),
		RejectedCount:      g.RejectedCount,
		HasGlosas:          g.HasGlosas,
		Audited:            g.Audited,
		Substitute:         g.Substitute,
		TotalRealNoReceipt: g.TotalRealNoReceipt.StringFixed(2),
		TotalSubstitute:    g.TotalSubstitute.StringFixed(2),
		Gross:              g.Gross.StringFixed(2),
		Glosado:            g.Glosado.StringFixed(2),
	}
	for _, c := range g.Categories() {
		v.Categories = append(v.Categories, categoryView{Name: c.Name, Value: c.Value.StringFixed(2)})
	}
	for _, e := range g.DisplayItems() {
		v.Items = append(v.Items, newExpenseView(e))
	}
	return v
}
