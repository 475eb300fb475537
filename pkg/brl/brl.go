// Package brl normalizes Brazilian-locale money and date strings ("1.234,56",
// "R$ 5,91", "15/03/2024") into decimals, cents and calendar dates.
package brl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var (
	amountJunk = regexp.MustCompile(`[^\d,\-]`)
	hasDigit   = regexp.MustCompile(`\d`)
)

// ParseAmount converts a Brazilian formatted amount into a decimal. Everything
// except digits, commas and minus signs is discarded and the last comma
// becomes the decimal point. The second return is false when nothing usable
// is left; callers drop the record in that case.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	clean := amountJunk.ReplaceAllString(raw, "")
	if !hasDigit.MatchString(clean) {
		return decimal.Zero, false
	}

	if i := strings.LastIndex(clean, ","); i >= 0 {
		clean = strings.ReplaceAll(clean[:i], ",", "") + "." + clean[i+1:]
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Noon anchors t at 12:00 local time so that converting between UTC and the
// local zone never moves it to another calendar day.
func Noon(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.Local)
}

func date(year, month, day int) (time.Time, bool) {
	t := time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.Local)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// ParseDate parses a strict DD/MM/YYYY date anchored at noon. Dates that do
// not exist on the calendar (31/02/2024) are rejected.
func ParseDate(raw string) (time.Time, bool) {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) != 3 || len(parts[0]) != 2 || len(parts[1]) != 2 || len(parts[2]) != 4 {
		return time.Time{}, false
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	return date(year, month, day)
}

// ParseFlexibleDate accepts the looser forms found in bank CSV exports:
// D/M/YY, DD/MM/YYYY and YYYY-MM-DD. Two digit years map to 20YY.
func ParseFlexibleDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.Contains(raw, "/"):
		parts := strings.Split(raw, "/")
		if len(parts) != 3 {
			return time.Time{}, false
		}
		y := strings.TrimSpace(parts[2])
		if len(y) == 2 {
			y = "20" + y
		}
		day, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		month, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		year, err3 := strconv.Atoi(y)
		if err1 != nil || err2 != nil || err3 != nil {
			return time.Time{}, false
		}
		return date(year, month, day)
	case strings.Contains(raw, "-"):
		if len(raw) > 10 {
			raw = raw[:10]
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, false
		}
		return Noon(t), true
	}
	return time.Time{}, false
}

// ISODate rewrites DD/MM/YYYY as YYYY-MM-DD.
func ISODate(raw string) (string, bool) {
	t, ok := ParseDate(raw)
	if !ok {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

var numericPrefix = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)`)

// ToCents applies the receipt rule: thousands dots removed, decimal comma
// turned into a point, value multiplied by 100 and rounded. Only the leading
// number counts, so trailing punctuation is ignored.
func ToCents(raw string) (int64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ".", "")
	s = strings.Replace(s, ",", ".", 1)
	d, err := decimal.NewFromString(numericPrefix.FindString(s))
	if err != nil {
		return 0, false
	}
	return d.Shift(2).Round(0).IntPart(), true
}

// FormatCents renders cents as "R$ 1.234,56".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	// go-money renders "R$1.234,56"; statements show a space after the symbol.
	out := money.New(cents, money.BRL).Display()
	return sign + strings.Replace(out, "R$", "R$ ", 1)
}

// Format renders a decimal amount as BRL.
func Format(d decimal.Decimal) string {
	return FormatCents(d.Shift(2).Round(0).IntPart())
}

// CentsString is the textual cents form stored on expenses ("591").
func CentsString(cents int64) string {
	return fmt.Sprintf("%d", cents)
}
