package receipt

import (
	"regexp"
	"strings"

	"github.com/yurifrl/reembolso/pkg/brl"
	"github.com/yurifrl/reembolso/pkg/models"
)

type field int

const (
	fieldNumber field = iota
	fieldTotal
	fieldDate
	fieldDocument
	fieldSupplier
	fieldDescription
)

// document is the text being read plus whatever the rules found so far.
type document struct {
	raw    string
	clean  string
	values map[field]string
}

func (d *document) value(f field) string {
	return d.values[f]
}

// rule extracts one field. Rules for a field are tried in table order and
// the first one that yields a non-empty value wins.
type rule struct {
	field   field
	extract func(d *document) (string, bool)
}

const cnpj = `\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}`

// match runs re over the collapsed text and returns the first non-empty
// capture group, or the whole match when re has no groups.
func match(re *regexp.Regexp) func(*document) (string, bool) {
	return func(d *document) (string, bool) {
		m := re.FindStringSubmatch(d.clean)
		if m == nil {
			return "", false
		}
		if len(m) == 1 {
			return m[0], true
		}
		for _, g := range m[1:] {
			if g != "" {
				return g, true
			}
		}
		return "", false
	}
}

func transform(extract func(*document) (string, bool), fn func(string) string) func(*document) (string, bool) {
	return func(d *document) (string, bool) {
		v, ok := extract(d)
		if !ok {
			return "", false
		}
		v = fn(v)
		return v, v != ""
	}
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// invoiceNumber drops the dot grouping and the zero padding of DANFE numbers
// ("000.084.574" is note 84574).
func invoiceNumber(s string) string {
	s = strings.ReplaceAll(s, ".", "")
	if s == "" {
		return ""
	}
	if t := strings.TrimLeft(s, "0"); t != "" {
		return t
	}
	return "0"
}

func isoDate(s string) string {
	v, _ := brl.ISODate(s)
	return v
}

var nfeRules = []rule{
	{fieldNumber, transform(
		match(regexp.MustCompile(`(?i)N[º°.]+\s*([\d.]+)`)),
		invoiceNumber,
	)},
	{fieldTotal, match(regexp.MustCompile(`(?i)V\.\s*TOTAL\s*DA\s*NOTA\s*R\$\s*([\d.,]+)|V\.\s*TOTAL\s*DA\s*NOTA\s*([\d.,]+)`))},
	{fieldDate, transform(match(regexp.MustCompile(`(?i)DATA\s*DA\s*EMISS[ÃA]O\s*(\d{2}/\d{2}/\d{4})`)), isoDate)},
	{fieldDocument, match(regexp.MustCompile(cnpj))},
	{fieldSupplier, transform(
		match(regexp.MustCompile(`(?i)IDENTIFICA[ÇC][ÃA]O\s*DO\s*EMITENTE\s*(.*?)\s*(?:Avenida|Rua|Av\.|Rodovia|Praça|\d{2}\.\d{3})`)),
		upper,
	)},
	{fieldSupplier, firstLine(50)},
	{fieldDescription, func(d *document) (string, bool) {
		return "Compra NFe - " + d.value(fieldSupplier), true
	}},
}

// firstLine takes the first line of the uncollapsed text longer than five
// characters, cut to n characters and upper-cased.
func firstLine(n int) func(*document) (string, bool) {
	return func(d *document) (string, bool) {
		for _, line := range strings.Split(d.raw, "\n") {
			line = strings.TrimSpace(line)
			if len([]rune(line)) > 5 {
				return strings.ToUpper(truncate(line, n)), true
			}
		}
		return "", false
	}
}

var (
	nfceNameSplit  = regexp.MustCompile(`(?i)CNPJ`)
	nfceTimestamp  = regexp.MustCompile(`(?i)DATA/HORA.*?\d{2}:\d{2}:\d{2}`)
	nfcePaidAmount = regexp.MustCompile(`(?i)VALOR PAGO.*?[\d,.]+`)
	nfceDigitRun   = regexp.MustCompile(`[\d,]{4,}`)
	wideGap        = regexp.MustCompile(`[\s\p{Zs}]{2,}`)
)

// nfceSupplier guesses the store name from the text that precedes the first
// CNPJ label: noise is removed and the last wide-gap separated piece is kept.
func nfceSupplier(d *document) (string, bool) {
	head := strings.TrimSpace(nfceNameSplit.Split(d.clean, 2)[0])
	head = nfceTimestamp.ReplaceAllString(head, "")
	head = nfcePaidAmount.ReplaceAllString(head, "")
	head = nfceDigitRun.ReplaceAllString(head, "")
	parts := wideGap.Split(head, -1)
	name := upper(parts[len(parts)-1])
	return name, name != ""
}

var nfceRules = []rule{
	{fieldDocument, match(regexp.MustCompile(`(?i)CNPJ:\s*(` + cnpj + `)`))},
	{fieldSupplier, nfceSupplier},
	{fieldTotal, match(regexp.MustCompile(`(?i)VALOR PAGO R\$:\s*([\d.,]+)`))},
	{fieldTotal, match(regexp.MustCompile(`(?i)VALOR A PAGAR R\$:\s*([\d.,]+)`))},
	{fieldTotal, match(regexp.MustCompile(`(?i)TOTAL R\$:\s*([\d.,]+)`))},
	{fieldNumber, match(regexp.MustCompile(`(?i)(?:Número|Extrato\s+Nº|nº)\s*[:\s]*(\d+)`))},
	{fieldDate, transform(match(regexp.MustCompile(`(?i)(?:Emissão|Data)\s*[:\s]*(\d{2}/\d{2}/\d{4})`)), isoDate)},
	{fieldDescription, transform(
		match(regexp.MustCompile(`(?i)([A-Z\s]{5,})\s+Qtde\.:`)),
		func(s string) string { return truncate(strings.TrimSpace(s), 70) },
	)},
	{fieldDescription, func(d *document) (string, bool) {
		return "Despesa em " + d.value(fieldSupplier), true
	}},
}

var nfseRules = []rule{
	{fieldNumber, match(regexp.MustCompile(`(?i)Número\s+da\s+NFS-e\s+(\d+)`))},
	{fieldDate, transform(match(regexp.MustCompile(`(?i)emissão\s+da\s+NFS-e\s+(\d{2}/\d{2}/\d{4})`)), isoDate)},
	{fieldDocument, match(regexp.MustCompile(`(?i)CNPJ\s*/\s*CPF\s*/\s*NIF\s+(` + cnpj + `)`))},
	{fieldSupplier, transform(match(regexp.MustCompile(`(?i)Nome\s*/\s*Nome\s*Empresarial\s+(.*?)\s+E-mail`)), upper)},
	{fieldDescription, transform(
		match(regexp.MustCompile(`(?i)Descrição\s+do\s+Serviço\s+(.*?)\s+Dados\s+bancários`)),
		func(s string) string {
			s = strings.TrimSpace(s)
			if len([]rune(s)) > 100 {
				return truncate(s, 97) + "..."
			}
			return s
		},
	)},
	{fieldTotal, match(regexp.MustCompile(`(?i)Valor\s+Líquido\s+da\s+NFS-e\s+R\$\s+([\d.,]+)`))},
}

var rulesByKind = map[models.DocumentKind][]rule{
	models.KindNFe:  nfeRules,
	models.KindNFCe: nfceRules,
	models.KindNFSe: nfseRules,
}

func (d *document) apply(rules []rule) {
	for _, r := range rules {
		if _, done := d.values[r.field]; done {
			continue
		}
		if v, ok := r.extract(d); ok && v != "" {
			d.values[r.field] = v
		}
	}
}
