package parser

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/yurifrl/reembolso/pkg/models"
)

// ParseXLSX reads the first sheet of an XLSX card export. The first row that
// names both a date and an amount column is the header; the rows after it
// go through the header profile rules.
func (p *Parser) ParseXLSX(data []byte) ([]*models.Transaction, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in workbook")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	for i, row := range rows {
		cols := mapHeader(row)
		if cols.date < 0 || cols.amount < 0 {
			continue
		}
		txs := p.headerRows(row, rows[i+1:], i+1)
		p.logger.Info("xlsx parsing complete", "sheet", sheets[0], "total_transactions", len(txs), "total_rows", len(rows))
		return txs, nil
	}

	p.logger.Debug("no header row found in xlsx", "sheet", sheets[0])
	return nil, nil
}
