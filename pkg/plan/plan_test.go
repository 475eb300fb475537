package plan

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePlan(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoad(t *testing.T) {
	path := writePlan(t, `
ynab:
  budget_id: b1
statements:
  - file: extrato.xls
  - file: /abs/fatura.csv
    profile: card
  - type: ynab
    account: acc-1
`)
	p, err := Load(path)
	require.NoError(t, err)
	require.Len(t, p.Statements, 3)
	assert.Equal(t, TypeFile, p.Statements[0].Type)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "extrato.xls"), p.Statements[0].File)
	assert.Equal(t, "/abs/fatura.csv", p.Statements[1].File)
	assert.Equal(t, "ynab:acc-1", p.Statements[2].Name())

	var buf bytes.Buffer
	p.Print(&buf)
	assert.Contains(t, buf.String(), "YNAB budget: b1")
	assert.Contains(t, buf.String(), "profile=card")
	assert.Contains(t, buf.String(), "[3] type=ynab account=acc-1")
}

func TestLoadErrors(t *testing.T) {
	for name, body := range map[string]string{
		"empty":          "statements: []\n",
		"missing file":   "statements:\n  - profile: card\n",
		"ynab no budget": "statements:\n  - type: ynab\n    account: a\n",
		"unknown type":   "statements:\n  - type: ftp\n    file: x\n",
		"bad yaml":       "statements: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writePlan(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
