package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/extrame/xls"

	"github.com/yurifrl/reembolso/pkg/brl"
	"github.com/yurifrl/reembolso/pkg/models"
)

const maxXLSRows = 5000

var cardHolderRegex = regexp.MustCompile(`final (\d+)`)

// isLancamentosMarker matches the section title of the statement sheet. The
// workbook is read as cp1252 but some exports store it as UTF-8 bytes.
func isLancamentosMarker(cell string) bool {
	c := strings.ToLower(strings.TrimSpace(cell))
	return c == "lançamentos" || c == "lanã§amentos"
}

func isBalanceRow(payee string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(payee)), "SALDO")
}

// ParseItauExtratoXLS reads an Itaú spreadsheet. Bank statements ("extrato")
// start their movements after a "lançamentos" row and keep the bank's signs.
// Card invoices ("fatura") list movements per card holder with positive
// charges, which are inverted so both kinds use negative for money out.
func (p *Parser) ParseItauExtratoXLS(data []byte) ([]*models.Transaction, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "cp1252")
	if err != nil {
		return nil, fmt.Errorf("error creating workbook: %w", err)
	}

	rows := workbook.ReadAllCells(maxXLSRows)
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in sheet")
	}

	for _, row := range rows {
		if len(row) > 0 && isLancamentosMarker(row[0]) {
			return p.itauExtratoRows(rows), nil
		}
	}
	return p.itauFaturaRows(rows), nil
}

func (p *Parser) itauExtratoRows(rows [][]string) []*models.Transaction {
	var (
		txs   []*models.Transaction
		found bool
		seen  = occurrences{}
	)

	for i, row := range rows {
		if len(row) < 4 {
			continue
		}
		if isLancamentosMarker(row[0]) {
			found = true
			continue
		}
		if !found || strings.EqualFold(strings.TrimSpace(row[0]), "data") || isBalanceRow(row[1]) {
			continue
		}

		date, ok := brl.ParseDate(row[0])
		if !ok {
			p.logger.Debug("invalid date, skipping", "row", i, "date", row[0])
			continue
		}
		amount, ok := brl.ParseAmount(row[3])
		if !ok {
			p.logger.Debug("invalid amount, skipping", "row", i, "amount", row[3])
			continue
		}
		payee := strings.TrimSpace(row[1])

		txs = append(txs, &models.Transaction{
			ExternalID:  generateTransactionID(date, payee, amount, seen.next(date, payee, amount)),
			Date:        date,
			Amount:      amount,
			Description: payee,
			SourceType:  models.SourceBank,
		})
	}

	p.logger.Debug("parsed itau extrato xls", "transactions", len(txs))
	return txs
}

func (p *Parser) itauFaturaRows(rows [][]string) []*models.Transaction {
	var (
		txs   []*models.Transaction
		card  string
		found bool
		seen  = occurrences{}
	)

	for i, row := range rows {
		if len(row) < 4 {
			continue
		}

		text := strings.TrimSpace(row[0])
		if strings.Contains(text, "final ") && (strings.HasSuffix(text, "(titular)") || strings.HasSuffix(text, "(adicional)")) {
			if m := cardHolderRegex.FindStringSubmatch(text); len(m) > 1 {
				card = m[1]
			}
			found = true
			continue
		}
		if !found {
			continue
		}

		lower := strings.ToLower(text)
		if text == "" || lower == "data" || strings.Contains(lower, "total") || strings.Contains(lower, "lançamentos") {
			continue
		}

		payee := strings.TrimSpace(row[1])
		if payee == "" {
			p.logger.Debug("payee is empty, skipping", "row", i)
			continue
		}
		date, ok := brl.ParseDate(text)
		if !ok {
			p.logger.Debug("invalid date, skipping", "row", i, "date", text)
			continue
		}
		amount, ok := brl.ParseAmount(row[3])
		if !ok {
			p.logger.Debug("invalid amount, skipping", "row", i, "amount", row[3])
			continue
		}
		amount = amount.Neg()

		txs = append(txs, &models.Transaction{
			ExternalID:  generateTransactionID(date, card+payee, amount, seen.next(date, card+payee, amount)),
			Date:        date,
			Amount:      amount,
			Description: payee,
			SourceType:  models.SourceCard,
		})
	}

	p.logger.Debug("parsed itau fatura xls", "transactions", len(txs))
	return txs
}
