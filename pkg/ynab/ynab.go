// Package ynab reads a YNAB account as a bank statement source.
package ynab

import (
	"fmt"
	"strings"

	"github.com/brunomvsouza/ynab.go"
	"github.com/brunomvsouza/ynab.go/api/account"
	"github.com/brunomvsouza/ynab.go/api/budget"
	"github.com/brunomvsouza/ynab.go/api/transaction"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/reembolso/pkg/brl"
	"github.com/yurifrl/reembolso/pkg/models"
)

const idPrefix = "ynab-"

type Client struct {
	client ynab.ClientServicer
}

func New(token string) *Client {
	return &Client{client: ynab.NewClient(token)}
}

func (c *Client) Budget() *budget.Service {
	return c.client.Budget()
}

func (c *Client) Account() *account.Service {
	return c.client.Account()
}

// Transactions returns the account's non-deleted transactions as bank
// records. Amounts come in milliunits.
func (c *Client) Transactions(budgetID, accountID string) ([]*models.Transaction, error) {
	remote, err := c.client.Transaction().GetTransactionsByAccount(budgetID, accountID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ynab transactions: %w", err)
	}

	out := make([]*models.Transaction, 0, len(remote))
	for _, rt := range remote {
		if rt.Deleted {
			continue
		}
		out = append(out, FromYNAB(rt))
	}
	return out, nil
}

// FromYNAB maps one YNAB transaction. The memo wins over the payee as the
// description, matching how statement exports fill it.
func FromYNAB(rt *transaction.Transaction) *models.Transaction {
	desc := ""
	if rt.Memo != nil {
		desc = strings.TrimSpace(*rt.Memo)
	}
	if desc == "" && rt.PayeeName != nil {
		desc = strings.TrimSpace(*rt.PayeeName)
	}
	return &models.Transaction{
		ExternalID:  idPrefix + rt.ID,
		Date:        brl.Noon(rt.Date.Time),
		Amount:      decimal.New(rt.Amount, -3),
		Description: desc,
		SourceType:  models.SourceBank,
	}
}
