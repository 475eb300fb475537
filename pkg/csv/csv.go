// Package csv writes imported transactions as CSV and reads that export back.
package csv

import (
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/yurifrl/reembolso/pkg/models"
)

// Header is the first line of every export, used to recognize re-imports.
const Header = "Date,Description,Source,Amount,ExternalID,Linked"

const dateLayout = "2006-01-02"

// Row is one exported transaction.
type Row struct {
	Date        string `csv:"Date"`
	Description string `csv:"Description"`
	Source      string `csv:"Source"`
	Amount      string `csv:"Amount"`
	ExternalID  string `csv:"ExternalID"`
	Linked      bool   `csv:"Linked"`
}

// FilterFunc decides whether a transaction is exported.
type FilterFunc func(*models.Transaction) bool

// NewRow flattens a transaction.
func NewRow(tx *models.Transaction) *Row {
	return &Row{
		Date:        tx.Date.Format(dateLayout),
		Description: tx.DisplayDescription(),
		Source:      string(tx.Source()),
		Amount:      tx.Amount.StringFixed(2),
		ExternalID:  tx.ExternalID,
		Linked:      tx.IsLinked(),
	}
}

// Create renders the transactions accepted by filter (all when nil).
func Create(txs []*models.Transaction, filter FilterFunc) ([]byte, error) {
	rows := make([]*Row, 0, len(txs))
	for _, tx := range txs {
		if filter == nil || filter(tx) {
			rows = append(rows, NewRow(tx))
		}
	}
	out, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal csv: %w", err)
	}
	return out, nil
}

// IsExport reports whether data starts with the export header.
func IsExport(data []byte) bool {
	first := string(data)
	first = strings.TrimPrefix(first, "\xef\xbb\xbf")
	if i := strings.IndexAny(first, "\r\n"); i >= 0 {
		first = first[:i]
	}
	return strings.EqualFold(strings.TrimSpace(first), Header)
}

// Read parses an export back into rows.
func Read(data []byte) ([]*Row, error) {
	var rows []*Row
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal csv: %w", err)
	}
	return rows, nil
}
