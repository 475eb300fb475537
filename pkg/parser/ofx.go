package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/reembolso/pkg/brl"
	"github.com/yurifrl/reembolso/pkg/models"
)

var (
	trnRegex      = regexp.MustCompile(`(?s)<STMTTRN>(.*?)</STMTTRN>`)
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	fieldRegexes  = map[string]*regexp.Regexp{}
)

func init() {
	for _, tag := range []string{"FITID", "DTPOSTED", "TRNAMT", "MEMO", "NAME"} {
		fieldRegexes[tag] = regexp.MustCompile(fmt.Sprintf("<%s>([^<\r\n]*)", tag))
	}
}

// ParseOFX reads a bank OFX export. Amounts keep the sign the bank gave them
// (negative is a debit) and FITID becomes the external id.
func (p *Parser) ParseOFX(data []byte) ([]*models.Transaction, error) {
	txs, err := p.parseOFXStrict(data)
	if err == nil && len(txs) > 0 {
		return txs, nil
	}
	if err != nil {
		p.logger.Debug("strict OFX parse failed, scanning tags", "error", err)
	}

	scanned, scanErr := p.scanOFX(data)
	if scanErr != nil {
		if err == nil {
			// well-formed statement without movements
			return txs, nil
		}
		return nil, err
	}
	return scanned, nil
}

// preprocessOFX fixes common formatting issues before handing the file to ofxgo.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

func (p *Parser) parseOFXStrict(data []byte) ([]*models.Transaction, error) {
	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(data))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX: %w", err)
	}

	var txs []*models.Transaction
	add := func(list *ofxgo.TransactionList) {
		if list == nil {
			return
		}
		for _, st := range list.Transactions {
			amount, err := decimal.NewFromString(st.TrnAmt.Rat.FloatString(2))
			if err != nil {
				p.logger.Debug("invalid OFX amount, skipping", "fitid", st.FiTID, "error", err)
				continue
			}
			desc := string(st.Memo)
			if desc == "" {
				desc = string(st.Name)
			}
			txs = append(txs, &models.Transaction{
				ExternalID:  string(st.FiTID),
				Date:        brl.Noon(st.DtPosted.Time),
				Amount:      amount,
				Description: strings.TrimSpace(desc),
				SourceType:  models.SourceBank,
			})
		}
	}

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			add(stmt.BankTranList)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			add(stmt.BankTranList)
		}
	}

	p.logger.Debug("parsed OFX", "transactions", len(txs))
	return txs, nil
}

// scanOFX pulls <STMTTRN> blocks out with regular expressions. Brazilian banks
// often ship SGML files with unterminated tags that strict parsers reject.
func (p *Parser) scanOFX(data []byte) ([]*models.Transaction, error) {
	content := string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	matches := trnRegex.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no <STMTTRN> blocks found")
	}

	txs := make([]*models.Transaction, 0, len(matches))
	seen := occurrences{}
	for i, match := range matches {
		block := match[1]
		getField := func(tag string) string {
			if m := fieldRegexes[tag].FindStringSubmatch(block); len(m) > 1 {
				return strings.TrimSpace(m[1])
			}
			return ""
		}

		fitid := getField("FITID")
		rawDate := getField("DTPOSTED")
		rawAmount := getField("TRNAMT")
		memo := getField("MEMO")
		if memo == "" {
			memo = getField("NAME")
		}

		// YYYYMMDDHHMMSS[-3:BRT]
		if len(rawDate) < 8 {
			p.logger.Debug("invalid OFX date, skipping", "block", i, "date", rawDate)
			continue
		}
		date, err := time.ParseInLocation("20060102", rawDate[:8], time.Local)
		if err != nil {
			p.logger.Debug("invalid OFX date, skipping", "block", i, "date", rawDate)
			continue
		}

		amount, err := decimal.NewFromString(strings.ReplaceAll(rawAmount, ",", "."))
		if err != nil {
			p.logger.Debug("invalid OFX amount, skipping", "block", i, "amount", rawAmount)
			continue
		}

		if fitid == "" {
			fitid = generateTransactionID(date, memo, amount, seen.next(date, memo, amount))
		}

		txs = append(txs, &models.Transaction{
			ExternalID:  fitid,
			Date:        brl.Noon(date),
			Amount:      amount,
			Description: memo,
			SourceType:  models.SourceBank,
		})
	}

	p.logger.Debug("scanned OFX", "blocks", len(matches), "transactions", len(txs))
	return txs, nil
}
