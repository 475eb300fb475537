package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yurifrl/reembolso/pkg/models"
	"github.com/yurifrl/reembolso/pkg/reconcile"
)

type filters struct {
	month  int
	year   int
	value  string
	text   string
	source string
}

func (f *filters) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.month, "month", 0, "Month (1-12)")
	cmd.Flags().IntVar(&f.year, "year", 0, "Year")
	cmd.Flags().StringVar(&f.value, "value", "", "Amount contains (e.g. 45,90)")
	cmd.Flags().StringVar(&f.text, "text", "", "Description contains (case insensitive)")
	cmd.Flags().StringVar(&f.source, "source", "", "Source type (bank or card)")
}

func (f *filters) toFilter() (reconcile.Filter, error) {
	if f.month < 0 || f.month > 12 {
		return reconcile.Filter{}, fmt.Errorf("invalid month %d", f.month)
	}
	src := models.SourceType(f.source)
	switch src {
	case "", models.SourceBank, models.SourceCard:
	default:
		return reconcile.Filter{}, fmt.Errorf("invalid source %q", f.source)
	}
	return reconcile.Filter{
		Month:  f.month,
		Year:   f.year,
		Value:  f.value,
		Text:   f.text,
		Source: src,
	}, nil
}
