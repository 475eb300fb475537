package store

import (
	"context"
	"fmt"

	"github.com/yurifrl/reembolso/pkg/models"
)

func (s *Store) ListCompanies(ctx context.Context) ([]models.Company, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, color, short_code FROM companies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Company
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.ShortCode); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpsertCompany(ctx context.Context, c models.Company) error {
	if c.ID == "" {
		return fmt.Errorf("company %q has no id", c.Name)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO companies (id, name, color, short_code)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, color = excluded.color, short_code = excluded.short_code`,
		c.ID, c.Name, c.Color, c.ShortCode,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert company %s: %w", c.ID, err)
	}
	return nil
}
