// Package company resolves company display metadata and the badge shown on
// reconciled transactions.
package company

import (
	"strings"

	"github.com/yurifrl/reembolso/pkg/models"
	"github.com/yurifrl/reembolso/pkg/reconcile"
)

const (
	DefaultColor = "text-indigo-600"
	fallbackCode = "EMP"

	LabelLinked   = "VINCULADO"
	LabelExternal = "EXTERNO"
)

// Info is what the UI shows for a company.
type Info struct {
	ID        string
	Name      string
	Color     string
	ShortCode string
}

type Directory struct {
	byID map[string]models.Company
}

func NewDirectory(companies []models.Company) *Directory {
	byID := make(map[string]models.Company, len(companies))
	for _, c := range companies {
		byID[c.ID] = c
	}
	return &Directory{byID: byID}
}

// ShortCode is the declared code, else the first four letters of the name
// upper-cased, else "EMP".
func ShortCode(c models.Company) string {
	if c.ShortCode != "" {
		return c.ShortCode
	}
	if name := strings.TrimSpace(c.Name); name != "" {
		r := []rune(name)
		if len(r) > 4 {
			r = r[:4]
		}
		return strings.ToUpper(string(r))
	}
	return fallbackCode
}

func (d *Directory) Lookup(id string) (Info, bool) {
	c, ok := d.byID[id]
	if !ok || id == "" {
		return Info{}, false
	}
	color := c.Color
	if color == "" {
		color = DefaultColor
	}
	return Info{ID: c.ID, Name: c.Name, Color: color, ShortCode: ShortCode(c)}, true
}

// Badge describes how a transaction row is marked.
type Badge struct {
	Label  string
	Color  string
	Locked bool
}

// Badge returns the badge for tx, or false when it is not linked. A linked row
// shows its owner company's short code and color; when the owner is unknown
// it reads VINCULADO, or EXTERNO when it belongs to another company.
func (d *Directory) Badge(tx *models.Transaction, linked *models.Expense, activeCompanyID string) (Badge, bool) {
	if !tx.IsLinked() {
		return Badge{}, false
	}
	locked := reconcile.Locked(tx, linked, activeCompanyID)
	if info, ok := d.Lookup(reconcile.OwnerCompany(tx, linked)); ok {
		return Badge{Label: info.ShortCode, Color: info.Color, Locked: locked}, true
	}
	if locked {
		return Badge{Label: LabelExternal, Color: "text-amber-500", Locked: true}, true
	}
	return Badge{Label: LabelLinked, Color: "text-slate-400"}, true
}
