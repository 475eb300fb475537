// Package plan reads a YAML list of statements to import together.
package plan

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	TypeFile = "file"
	TypeYNAB = "ynab"
)

type YNABConfig struct {
	BudgetID string `yaml:"budget_id"`
	TokenEnv string `yaml:"token_env"`
}

type Plan struct {
	YNAB       YNABConfig  `yaml:"ynab"`
	Statements []Statement `yaml:"statements"`
}

// Statement is a file to parse, or a YNAB account when Type is "ynab".
type Statement struct {
	Type    string `yaml:"type"`
	File    string `yaml:"file"`
	Profile string `yaml:"profile"`
	Account string `yaml:"account"`
}

// Name identifies the statement in output.
func (s Statement) Name() string {
	if s.Type == TypeYNAB {
		return "ynab:" + s.Account
	}
	return s.File
}

// Load reads and validates a plan. Relative statement paths are resolved
// against the plan file's directory.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	if len(p.Statements) == 0 {
		return nil, errors.New("plan has no statements")
	}

	base := filepath.Dir(path)
	for i := range p.Statements {
		st := &p.Statements[i]
		if st.Type == "" {
			st.Type = TypeFile
		}
		switch st.Type {
		case TypeFile:
			if st.File == "" {
				return nil, fmt.Errorf("statement %d: file is required", i+1)
			}
			if !filepath.IsAbs(st.File) {
				st.File = filepath.Join(base, st.File)
			}
		case TypeYNAB:
			if st.Account == "" || p.YNAB.BudgetID == "" {
				return nil, fmt.Errorf("statement %d: ynab statements need an account and ynab.budget_id", i+1)
			}
		default:
			return nil, fmt.Errorf("statement %d: unknown type %q", i+1, st.Type)
		}
	}
	return &p, nil
}

func (p *Plan) Print(w io.Writer) {
	if p.YNAB.BudgetID != "" {
		fmt.Fprintf(w, "YNAB budget: %s\n", p.YNAB.BudgetID)
	}
	for i, st := range p.Statements {
		switch st.Type {
		case TypeYNAB:
			fmt.Fprintf(w, "[%d] type=%s account=%s\n", i+1, st.Type, st.Account)
		default:
			profile := st.Profile
			if profile == "" {
				profile = "auto"
			}
			fmt.Fprintf(w, "[%d] type=%s file=%s profile=%s\n", i+1, st.Type, st.File, profile)
		}
	}
}
