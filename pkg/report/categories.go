package report

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/reembolso/pkg/models"
)

const (
	otherCategory = "Outros"
	maxCategories = 5
)

type CategoryTotal struct {
	Name  string
	Value decimal.Decimal
}

// Categories totals the non-rejected display items per category, largest
// first. With more than five categories the top four are kept and the rest
// fold into "Outros".
func (g Group) Categories() []CategoryTotal {
	totals := map[string]decimal.Decimal{}
	for _, e := range g.DisplayItems() {
		if IsRejected(e) {
			continue
		}
		totals[e.Category] = totals[e.Category].Add(e.Value)
	}

	list := make([]CategoryTotal, 0, len(totals))
	for name, v := range totals {
		list = append(list, CategoryTotal{Name: name, Value: v})
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Value.Equal(list[j].Value) {
			return list[i].Value.GreaterThan(list[j].Value)
		}
		return list[i].Name < list[j].Name
	})

	if len(list) <= maxCategories {
		return list
	}
	others := decimal.Zero
	for _, c := range list[4:] {
		others = others.Add(c.Value)
	}
	return append(list[:4:4], CategoryTotal{Name: otherCategory, Value: others})
}

// DocType labels an item's fiscal document: DOC without a receipt number,
// NFCe for long access-key style numbers, NF otherwise.
func DocType(e *models.Expense) string {
	switch {
	case e.ReceiptNumber == "":
		return "DOC"
	case len(e.ReceiptNumber) > 20:
		return "NFCe"
	default:
		return "NF"
	}
}

var nonDigit = regexp.MustCompile(`\D`)

// FormatDocument masks an 11 digit CPF or a 14 digit CNPJ. Anything else is
// returned as given, and empty input renders as "-".
func FormatDocument(doc string) string {
	if doc == "" {
		return "-"
	}
	d := nonDigit.ReplaceAllString(doc, "")
	switch len(d) {
	case 11:
		return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:]
	case 14:
		return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:]
	}
	return doc
}

// naturalLess orders strings with embedded numbers by numeric value, so
// "R-9" sorts before "R-10".
func naturalLess(a, b string) bool {
	for a != "" && b != "" {
		ca, restA := chunk(a)
		cb, restB := chunk(b)
		if ca != cb {
			if isDigits(ca) && isDigits(cb) {
				na, nb := strings.TrimLeft(ca, "0"), strings.TrimLeft(cb, "0")
				if len(na) != len(nb) {
					return len(na) < len(nb)
				}
				if na != nb {
					return na < nb
				}
			} else {
				la, lb := strings.ToLower(ca), strings.ToLower(cb)
				if la != lb {
					return la < lb
				}
				return ca < cb
			}
		}
		a, b = restA, restB
	}
	return len(a) < len(b)
}

func isDigits(s string) bool {
	return s != "" && unicode.IsDigit(rune(s[0]))
}

// chunk splits off the leading run of digits or non-digits.
func chunk(s string) (string, string) {
	digit := unicode.IsDigit(rune(s[0]))
	i := 1
	for i < len(s) && unicode.IsDigit(rune(s[i])) == digit {
		i++
	}
	return s[:i], s[i:]
}
