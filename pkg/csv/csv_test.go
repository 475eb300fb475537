package csv

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yurifrl/reembolso/pkg/models"
)

func TestCreate(t *testing.T) {
	txs := []*models.Transaction{
		{
			ExternalID:  "f1",
			Date:        time.Date(2024, time.March, 5, 12, 0, 0, 0, time.Local),
			Amount:      decimal.RequireFromString("-1234.5"),
			Description: "Restaurante, Centro</MEMO>",
		},
		{
			ExternalID:      "f2",
			Date:            time.Date(2024, time.March, 6, 12, 0, 0, 0, time.Local),
			Amount:          decimal.RequireFromString("10"),
			Description:     "Estorno",
			SourceType:      models.SourceCard,
			LinkedExpenseID: "e1",
		},
	}

	out, err := Create(txs, nil)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, Header, lines[0])
	assert.Equal(t, `2024-03-05,"Restaurante, Centro",bank,-1234.50,f1,false`, lines[1])
	assert.Equal(t, "2024-03-06,Estorno,card,10.00,f2,true", lines[2])

	out, err = Create(txs, func(tx *models.Transaction) bool { return tx.IsLinked() })
	require.NoError(t, err)
	assert.NotContains(t, string(out), "f1")
	assert.True(t, IsExport(out))

	rows, err := Read(out)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "f2", rows[0].ExternalID)
	assert.True(t, rows[0].Linked)
}

func TestIsExport(t *testing.T) {
	assert.True(t, IsExport([]byte("\xef\xbb\xbf"+Header+"\r\n")))
	assert.False(t, IsExport([]byte("Data;Valor\n")))
	assert.False(t, IsExport(nil))
}
