package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yurifrl/reembolso/pkg/importer"
	"github.com/yurifrl/reembolso/pkg/parser"
	"github.com/yurifrl/reembolso/pkg/store"
)

const headerCSV = "Data;Descrição;Valor;ID\n05/03/2024;Padaria;-12,50;p1\n06/03/2024;Salário;1.000,00;p2\n"

const ofxBody = `OFXHEADER:100
<OFX><BANKMSGSRSV1><STMTTRNRS><STMTRS><BANKTRANLIST>
<STMTTRN><TRNTYPE>DEBIT<DTPOSTED>20240310120000<TRNAMT>-99.90<FITID>F1<MEMO>Mercado</MEMO></STMTTRN>
</BANKTRANLIST></STMTRS></STMTTRNRS></BANKMSGSRSV1></OFX>`

const bankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240320120000[-3:BRT]
<LANGUAGE>POR
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>BRL
<BANKACCTFROM>
<BANKID>0341
<ACCTID>12345-6
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240301100000[-3:BRT]
<DTEND>20240320100000[-3:BRT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240315100000[-3:BRT]
<TRNAMT>-50.00
<FITID>20240315001
<NAME>FULANO
<MEMO>PIX ENVIADO FULANO
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240316230000[-3:BRT]
<TRNAMT>-7.10
<FITID>20240316002
<NAME>TARIFA PACOTE
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1142.90
<DTASOF>20240320100000[-3:BRT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>
`

func newProcessor(t *testing.T) (*Processor, *store.Store) {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	logger := log.New(io.Discard)
	return NewProcessor(parser.New(logger), importer.New(s, logger, 2), logger), s
}

func TestProcessDirectory(t *testing.T) {
	p, s := newProcessor(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conta.csv"), []byte(headerCSV), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "banco.ofx"), []byte(ofxBody), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.xlsx"), []byte("not a workbook"), 0600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0750))

	res, err := p.ProcessDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Inserted)

	again, err := p.ProcessDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Zero(t, again.Inserted)
	assert.Equal(t, 3, again.Skipped)

	list, err := s.ListTransactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestParseFileWithProfile(t *testing.T) {
	p, _ := newProcessor(t)
	path := filepath.Join(t.TempDir(), "fatura.csv")
	require.NoError(t, os.WriteFile(path, []byte("05/03/2024,Restaurante Bom,\"120,50\"\n"), 0600))

	txs, err := p.ParseFile(path, parser.ProfileCardInvoice)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "-120.5", txs[0].Amount.String())

	_, err = p.ParseFile(filepath.Join(t.TempDir(), "missing.csv"), "")
	assert.Error(t, err)
}

func TestProcessFileOFXTwice(t *testing.T) {
	p, s := newProcessor(t)
	path := filepath.Join(t.TempDir(), "extrato.ofx")
	require.NoError(t, os.WriteFile(path, []byte(bankOFX), 0600))
	ctx := context.Background()

	first, err := p.ProcessFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)

	second, err := p.ProcessFile(ctx, path)
	require.NoError(t, err)
	assert.Zero(t, second.Inserted)
	assert.Equal(t, 2, second.Skipped)

	list, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "20240316002", list[0].ExternalID)
}
