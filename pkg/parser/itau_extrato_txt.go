package parser

import (
	"regexp"
	"strings"

	"github.com/yurifrl/reembolso/pkg/brl"
	"github.com/yurifrl/reembolso/pkg/models"
)

// dd/mm/yyyy;payee;value with no header line
var itauTXTLine = regexp.MustCompile(`^\s*\d{2}/\d{2}/\d{4};[^;]*;`)

func (p *Parser) parseItauExtratoTXT(lines []string) []*models.Transaction {
	var (
		txs  []*models.Transaction
		seen = occurrences{}
	)

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, ";")
		if len(fields) < 3 {
			p.logger.Debug("line has less than 3 fields, skipping", "line", i)
			continue
		}

		date, ok := brl.ParseDate(fields[0])
		if !ok {
			p.logger.Debug("invalid date, skipping", "line", i, "date", fields[0])
			continue
		}
		amount, ok := brl.ParseAmount(fields[2])
		if !ok {
			p.logger.Debug("invalid amount, skipping", "line", i, "amount", fields[2])
			continue
		}
		payee := strings.TrimSpace(fields[1])

		txs = append(txs, &models.Transaction{
			ExternalID:  generateTransactionID(date, payee, amount, seen.next(date, payee, amount)),
			Date:        date,
			Amount:      amount,
			Description: payee,
			SourceType:  models.SourceBank,
		})
	}
	return txs
}
