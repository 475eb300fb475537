package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/reembolso/pkg/importer"
	"github.com/yurifrl/reembolso/pkg/models"
	"github.com/yurifrl/reembolso/pkg/parser"
)

var supportedExtensions = map[string]bool{
	".ofx":  true,
	".qfx":  true,
	".csv":  true,
	".txt":  true,
	".xls":  true,
	".xlsx": true,
}

// Processor reads statement files from disk and imports them.
type Processor struct {
	parser   *parser.Parser
	importer *importer.Importer
	logger   *log.Logger
}

func NewProcessor(p *parser.Parser, imp *importer.Importer, logger *log.Logger) *Processor {
	return &Processor{parser: p, importer: imp, logger: logger}
}

// ParseFile parses one statement. An empty profile keeps the parser's own.
func (p *Processor) ParseFile(path string, profile parser.Profile) ([]*models.Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	ps := p.parser
	if profile != "" {
		ps = ps.WithProfile(profile)
	}
	txs, err := ps.ProcessBytes(data, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return txs, nil
}

func (p *Processor) ProcessFile(ctx context.Context, path string) (importer.Result, error) {
	txs, err := p.ParseFile(path, "")
	if err != nil {
		return importer.Result{}, err
	}
	p.logger.Info("processing file", "path", path, "records", len(txs))
	return p.importer.Import(ctx, txs)
}

// ProcessDirectory imports every supported statement in dir. A file that
// fails is logged and skipped; the totals cover the files that succeeded.
func (p *Processor) ProcessDirectory(ctx context.Context, dir string) (importer.Result, error) {
	var total importer.Result
	entries, err := os.ReadDir(dir)
	if err != nil {
		return total, fmt.Errorf("error reading directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}

		res, err := p.ProcessFile(ctx, filepath.Join(dir, entry.Name()))
		if err != nil {
			p.logger.Error("failed to process entry", "file", entry.Name(), "error", err)
			continue
		}
		total.Parsed += res.Parsed
		total.Inserted += res.Inserted
		total.Skipped += res.Skipped
	}
	return total, nil
}
