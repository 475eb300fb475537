package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/yurifrl/reembolso/pkg/brl"
	"github.com/yurifrl/reembolso/pkg/models"
)

// Profile selects how a delimited statement is read.
type Profile string

const (
	// ProfileAuto picks ProfileItauExtrato for headerless "date;payee;value"
	// lines, ProfileHeader for ';' separated files with a recognizable header
	// and ProfileCardInvoice otherwise.
	ProfileAuto Profile = "auto"
	// ProfileHeader maps columns by header names. Signs are kept as given.
	ProfileHeader Profile = "header"
	// ProfileCardInvoice finds fields by shape, honours quoted commas and
	// inverts signs: invoices list charges as positive values.
	ProfileCardInvoice Profile = "card"
	// ProfileItauExtrato reads the headerless "date;payee;value" bank
	// statement Itaú exports as TXT. Signs are kept as given.
	ProfileItauExtrato Profile = "itau"
)

// ParseProfile maps a config string to a Profile.
func ParseProfile(s string) (Profile, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(s))) {
	case "", ProfileAuto:
		return ProfileAuto, nil
	case ProfileHeader:
		return ProfileHeader, nil
	case ProfileCardInvoice:
		return ProfileCardInvoice, nil
	case ProfileItauExtrato:
		return ProfileItauExtrato, nil
	}
	return "", fmt.Errorf("unknown csv profile %q", s)
}

const noDescription = "Sem descrição"

var (
	lineBreak   = regexp.MustCompile(`\r?\n`)
	datePattern = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)
	centsValue  = regexp.MustCompile(`-?\d+,\d{2}`)
)

// column roles for the header profile, matched by substring on the
// lower-cased header
var (
	dateHeaders   = []string{"data", "date"}
	descHeaders   = []string{"desc", "hist", "memo", "estabelecimento"}
	amountHeaders = []string{"valor", "amount", "quant"}
	idHeaders     = []string{"id", "fitid", "ref"}
)

// decodeText returns the file as UTF-8, decoding Windows-1252 when the bytes
// are not valid UTF-8 (older bank exports).
func decodeText(data []byte) string {
	data = trimBOM(data)
	if utf8.Valid(data) {
		return string(data)
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

func trimBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// ParseCSV parses a delimited card or bank export with the given profile.
// Unusable rows are dropped and logged at debug level.
func (p *Parser) ParseCSV(data []byte, profile Profile) ([]*models.Transaction, error) {
	text := decodeText(data)
	lines := lineBreak.Split(text, -1)

	if profile == ProfileAuto {
		profile = guessProfile(lines)
		p.logger.Debug("guessed csv profile", "profile", profile)
	}

	var txs []*models.Transaction
	switch profile {
	case ProfileHeader:
		txs = p.parseHeaderProfile(lines)
	case ProfileCardInvoice:
		txs = p.parseCardInvoice(lines)
	case ProfileItauExtrato:
		txs = p.parseItauExtratoTXT(lines)
	default:
		return nil, fmt.Errorf("unknown csv profile %q", profile)
	}

	p.logger.Info("csv parsing complete", "profile", profile, "total_transactions", len(txs), "total_lines", len(lines))
	return txs, nil
}

func guessProfile(lines []string) Profile {
	if len(lines) == 0 {
		return ProfileCardInvoice
	}
	if itauTXTLine.MatchString(lines[0]) {
		return ProfileItauExtrato
	}
	header := strings.ToLower(lines[0])
	if strings.Contains(header, ";") && !datePattern.MatchString(header) &&
		containsAny(header, dateHeaders) && containsAny(header, amountHeaders) {
		return ProfileHeader
	}
	return ProfileCardInvoice
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func findColumn(headers []string, subs []string) int {
	for i, h := range headers {
		if containsAny(h, subs) {
			return i
		}
	}
	return -1
}

func unquote(field string) string {
	field = strings.TrimSpace(field)
	field = strings.TrimPrefix(field, `"`)
	field = strings.TrimSuffix(field, `"`)
	return strings.TrimSpace(field)
}

// headerColumns holds the column indexes found in a header row; -1 when absent.
type headerColumns struct {
	date, desc, amount, id int
}

func mapHeader(header []string) headerColumns {
	lower := make([]string, len(header))
	for i, h := range header {
		lower[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return headerColumns{
		date:   findColumn(lower, dateHeaders),
		desc:   findColumn(lower, descHeaders),
		amount: findColumn(lower, amountHeaders),
		id:     findColumn(lower, idHeaders),
	}
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func (p *Parser) parseHeaderProfile(lines []string) []*models.Transaction {
	if len(lines) < 2 {
		return nil
	}

	delimiter := ","
	if strings.Contains(lines[0], ";") {
		delimiter = ";"
	}

	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		fields := strings.Split(strings.TrimSpace(line), delimiter)
		for i := range fields {
			fields[i] = unquote(fields[i])
		}
		rows = append(rows, fields)
	}
	return p.headerRows(rows[0], rows[1:], 1)
}

// headerRows converts data rows using the columns named in header. first is
// the index of rows[0] in the source, used in log lines and synthesized ids.
func (p *Parser) headerRows(header []string, rows [][]string, first int) []*models.Transaction {
	cols := mapHeader(header)
	p.logger.Debug("header columns", "date", cols.date, "desc", cols.desc, "amount", cols.amount, "id", cols.id)

	txs := make([]*models.Transaction, 0, len(rows))
	for n, row := range rows {
		i := first + n
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if len(row) < 2 {
			p.logger.Debug("row has less than 2 fields, skipping", "line", i)
			continue
		}

		amount, ok := brl.ParseAmount(cell(row, cols.amount))
		if !ok {
			p.logger.Debug("invalid amount, skipping", "line", i, "amount", cell(row, cols.amount))
			continue
		}

		date, ok := brl.ParseFlexibleDate(cell(row, cols.date))
		if !ok {
			p.logger.Debug("invalid date, skipping", "line", i, "date", cell(row, cols.date))
			continue
		}

		desc := cell(row, cols.desc)
		if desc == "" {
			desc = noDescription
		}

		id := cell(row, cols.id)
		if id == "" {
			id = cardInvoiceID(date, amount, i)
		}

		txs = append(txs, &models.Transaction{
			ExternalID:  id,
			Date:        date,
			Amount:      amount,
			Description: desc,
			SourceType:  models.SourceCard,
		})
	}
	return txs
}

// SplitQuoted splits a comma separated line, ignoring commas inside double
// quotes: a comma separates fields only when an even number of quote
// characters follows it up to the end of the line.
func SplitQuoted(line string) []string {
	quotesAfter := make([]int, len(line)+1)
	for i := len(line) - 1; i >= 0; i-- {
		quotesAfter[i] = quotesAfter[i+1]
		if line[i] == '"' {
			quotesAfter[i]++
		}
	}

	var fields []string
	start := 0
	for i := 0; i < len(line); i++ {
		if line[i] == ',' && quotesAfter[i+1]%2 == 0 {
			fields = append(fields, line[start:i])
			start = i + 1
		}
	}
	return append(fields, line[start:])
}

func looksLikeHeader(cols []string) bool {
	last := cols[len(cols)-1]
	if strings.Contains(strings.ToLower(last), "valor") {
		return true
	}
	_, ok := brl.ParseAmount(last)
	return !ok
}

func (p *Parser) parseCardInvoice(lines []string) []*models.Transaction {
	txs := make([]*models.Transaction, 0, len(lines))

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		raw := SplitQuoted(line)
		cols := make([]string, len(raw))
		for j, c := range raw {
			cols[j] = unquote(c)
		}

		if i == 0 && looksLikeHeader(cols) {
			p.logger.Debug("skipping header line", "line", i)
			continue
		}

		dateIdx := -1
		var date time.Time
		for j, c := range cols {
			if m := datePattern.FindString(c); m != "" {
				d, ok := brl.ParseDate(m)
				if !ok {
					break
				}
				dateIdx, date = j, d
				break
			}
		}
		if dateIdx < 0 {
			p.logger.Debug("no valid date, skipping", "line", i)
			continue
		}

		valueIdx := -1
		for j, c := range cols {
			if j == dateIdx {
				continue
			}
			if strings.Contains(c, "$") || centsValue.MatchString(c) {
				valueIdx = j
				break
			}
		}
		if valueIdx < 0 {
			p.logger.Debug("no value column, skipping", "line", i)
			continue
		}

		amount, ok := brl.ParseAmount(cols[valueIdx])
		if !ok {
			p.logger.Debug("invalid amount, skipping", "line", i, "amount", cols[valueIdx])
			continue
		}
		amount = amount.Neg()

		desc := ""
		for j, c := range cols {
			if j == dateIdx || j == valueIdx {
				continue
			}
			if len([]rune(c)) > 3 && len([]rune(c)) > len([]rune(desc)) {
				desc = c
			}
		}
		if desc == "" {
			desc = noDescription
		}

		txs = append(txs, &models.Transaction{
			ExternalID:  cardInvoiceID(date, amount, i),
			Date:        date,
			Amount:      amount,
			Description: desc,
			SourceType:  models.SourceCard,
		})
	}
	return txs
}
