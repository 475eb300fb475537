// Package report groups closed expense items into reimbursement reports and
// computes their totals, glosas and category breakdown.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/reembolso/pkg/models"
)

// IsRejected reports whether an item was glosado in audit or rejected.
func IsRejected(e *models.Expense) bool {
	return e.IsGlosada || e.Status == models.StatusRejected || e.AdminStatus == models.AdminRejected
}

// IsSubstituteReport reports whether any item carries a substitute marker.
func IsSubstituteReport(items []*models.Expense) bool {
	for _, e := range items {
		if e.SubstituteType != models.SubstituteNone {
			return true
		}
	}
	return false
}

func sumValid(items []*models.Expense, keep func(*models.Expense) bool) decimal.Decimal {
	total := decimal.Zero
	for _, e := range items {
		if IsRejected(e) || (keep != nil && !keep(e)) {
			continue
		}
		total = total.Add(e.Value)
	}
	return total
}

func ofType(t models.SubstituteType) func(*models.Expense) bool {
	return func(e *models.Expense) bool { return e.SubstituteType == t }
}

// ApprovedTotal is the payable amount of a report. In a substitute report
// only non-rejected "Substituta" items count; otherwise every non-rejected
// item does.
func ApprovedTotal(items []*models.Expense) decimal.Decimal {
	if IsSubstituteReport(items) {
		return sumValid(items, ofType(models.SubstituteReplacement))
	}
	return sumValid(items, nil)
}

// Group is the computed view of one report.
type Group struct {
	ReportID   string
	UserID     string
	CostCenter string
	Date       time.Time
	Items      []*models.Expense

	TotalGenerated decimal.Decimal
	TotalApproved  decimal.Decimal
	RejectedCount  int
	HasGlosas      bool
	Audited        bool
	Substitute     bool

	// substitute reports
	TotalRealNoReceipt decimal.Decimal
	TotalSubstitute    decimal.Decimal

	// standard reports
	Gross   decimal.Decimal
	Glosado decimal.Decimal
}

func reportDate(e *models.Expense) time.Time {
	if e.ClosingDate != nil {
		return *e.ClosingDate
	}
	return e.Date
}

// Build computes a group from the items of one report. items must not be
// empty.
func Build(items []*models.Expense) Group {
	first := items[0]
	g := Group{
		ReportID:       first.ReportID,
		UserID:         first.UserID,
		CostCenter:     first.CostCenter,
		Date:           reportDate(first),
		Items:          items,
		TotalGenerated: decimal.Zero,
		Audited:        true,
		Substitute:     IsSubstituteReport(items),
	}

	for _, e := range items {
		g.TotalGenerated = g.TotalGenerated.Add(e.Value)
		if IsRejected(e) {
			g.RejectedCount++
		}
		if e.AdminStatus != models.AdminApproved {
			g.Audited = false
		}
	}
	g.HasGlosas = g.RejectedCount > 0
	g.TotalApproved = ApprovedTotal(items)

	if g.Substitute {
		g.TotalRealNoReceipt = sumValid(items, ofType(models.SubstituteNoReceipt))
		g.TotalSubstitute = sumValid(items, ofType(models.SubstituteReplacement))
		g.Gross, g.Glosado = decimal.Zero, decimal.Zero
	} else {
		g.TotalRealNoReceipt, g.TotalSubstitute = decimal.Zero, decimal.Zero
		g.Gross = g.TotalGenerated
		g.Glosado = g.Gross.Sub(g.TotalApproved)
	}
	return g
}

// DisplayItems are the items a printed report lists, oldest first: the
// "Substituta" items of a substitute report, every item otherwise.
func (g Group) DisplayItems() []*models.Expense {
	var out []*models.Expense
	for _, e := range g.Items {
		if !g.Substitute || e.SubstituteType == models.SubstituteReplacement {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Selector picks which closed reports to list. Zero fields match everything.
type Selector struct {
	Month  int // 1-12, on the closing date (else the item date)
	Year   int
	Search string // substring of report id or cost center
	UserID string
}

func (s Selector) matchItem(e *models.Expense) bool {
	if e.Status != models.StatusClosed && e.Status != models.StatusRejected {
		return false
	}
	d := reportDate(e)
	if d.IsZero() {
		return false
	}
	if s.Month != 0 && int(d.Month()) != s.Month {
		return false
	}
	if s.Year != 0 && d.Year() != s.Year {
		return false
	}
	return true
}

func (s Selector) matchGroup(g Group) bool {
	if s.UserID != "" && g.UserID != s.UserID {
		return false
	}
	term := strings.ToLower(s.Search)
	return strings.Contains(strings.ToLower(g.ReportID), term) || strings.Contains(strings.ToLower(g.CostCenter), term)
}

// GroupByReport groups closed and rejected items by report id and returns
// the selected reports, highest report id first.
func GroupByReport(expenses []*models.Expense, sel Selector) []Group {
	var order []string
	byReport := map[string][]*models.Expense{}
	for _, e := range expenses {
		if !sel.matchItem(e) {
			continue
		}
		if _, ok := byReport[e.ReportID]; !ok {
			order = append(order, e.ReportID)
		}
		byReport[e.ReportID] = append(byReport[e.ReportID], e)
	}

	groups := make([]Group, 0, len(order))
	for _, id := range order {
		g := Build(byReport[id])
		if sel.matchGroup(g) {
			groups = append(groups, g)
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return naturalLess(groups[j].ReportID, groups[i].ReportID)
	})
	return groups
}

// ApprovedSum adds the approved totals of the listed reports.
func ApprovedSum(groups []Group) decimal.Decimal {
	total := decimal.Zero
	for _, g := range groups {
		total = total.Add(g.TotalApproved)
	}
	return total
}
