package ynab

import (
	"testing"
	"time"

	"github.com/brunomvsouza/ynab.go/api"
	"github.com/brunomvsouza/ynab.go/api/transaction"
	"github.com/stretchr/testify/assert"

	"github.com/yurifrl/reembolso/pkg/models"
)

func ptr(s string) *string { return &s }

func TestFromYNAB(t *testing.T) {
	rt := &transaction.Transaction{
		ID:        "abc-123",
		Date:      api.Date{Time: time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)},
		Amount:    -45900,
		PayeeName: ptr("Padaria"),
	}

	tx := FromYNAB(rt)
	assert.Equal(t, "ynab-abc-123", tx.ExternalID)
	assert.Equal(t, "-45.9", tx.Amount.String())
	assert.Equal(t, "Padaria", tx.Description)
	assert.Equal(t, models.SourceBank, tx.SourceType)
	assert.Equal(t, 12, tx.Date.Hour())

	rt.Memo = ptr("  Almoço  ")
	assert.Equal(t, "Almoço", FromYNAB(rt).Description)
}
