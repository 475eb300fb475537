package parser

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/yurifrl/reembolso/pkg/brl"
	"github.com/yurifrl/reembolso/pkg/csv"
	"github.com/yurifrl/reembolso/pkg/models"
)

func isExportCSV(data []byte) bool {
	return csv.IsExport(data)
}

// ParseExportCSV reads a CSV previously written by this tool, so an export can
// be imported into another database. Reconciliation state is not carried.
func (p *Parser) ParseExportCSV(data []byte) ([]*models.Transaction, error) {
	rows, err := csv.Read(trimBOM(data))
	if err != nil {
		return nil, err
	}

	txs := make([]*models.Transaction, 0, len(rows))
	for i, row := range rows {
		date, err := time.ParseInLocation("2006-01-02", row.Date, time.Local)
		if err != nil {
			p.logger.Debug("invalid date format, skipping", "line", i+1, "date", row.Date)
			continue
		}
		amount, err := decimal.NewFromString(row.Amount)
		if err != nil {
			p.logger.Debug("invalid amount, skipping", "line", i+1, "err", err)
			continue
		}
		if row.ExternalID == "" {
			p.logger.Debug("missing external id, skipping", "line", i+1)
			continue
		}

		source := models.SourceBank
		if models.SourceType(row.Source) == models.SourceCard {
			source = models.SourceCard
		}

		txs = append(txs, &models.Transaction{
			ExternalID:  row.ExternalID,
			Date:        brl.Noon(date),
			Amount:      amount,
			Description: row.Description,
			SourceType:  source,
		})
	}
	return txs, nil
}
