// Package receipt reads Brazilian fiscal documents (DANFE, NFC-e, NFS-e) from
// PDF files and pulls out the fields that fill an expense item.
package receipt

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/reembolso/pkg/brl"
	"github.com/yurifrl/reembolso/pkg/models"
)

var whitespace = regexp.MustCompile(`[\s\p{Zs}]+`)

type Parser struct {
	logger *log.Logger
}

func New(logger *log.Logger) *Parser {
	return &Parser{logger: logger}
}

// IsPDF sniffs the content type of data.
func IsPDF(data []byte) bool {
	return http.DetectContentType(data) == "application/pdf"
}

// Parse extracts a receipt from PDF bytes. Non-PDF input, unreadable PDFs
// and PDFs without text all yield a nil receipt and no error.
func (p *Parser) Parse(ctx context.Context, data []byte) (*models.Receipt, error) {
	if !IsPDF(data) {
		p.logger.Debug("not a pdf, ignoring", "content_type", http.DetectContentType(data))
		return nil, nil
	}

	text, err := ExtractText(ctx, data)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		p.logger.Error("failed to read pdf", "error", err)
		return nil, nil
	}

	r := ParseText(text)
	if r == nil {
		p.logger.Debug("pdf has no text")
		return nil, nil
	}
	p.logger.Debug("parsed receipt", "kind", r.Kind, "number", r.ReceiptNumber.OrZero(), "total", r.TotalCents.OrZero())
	return r, nil
}

// ParseText classifies extracted text and applies the rules of its document
// kind. It returns nil when the text is blank. Fields whose rules do not match
// are left absent.
func ParseText(raw string) *models.Receipt {
	clean := strings.TrimSpace(whitespace.ReplaceAllString(raw, " "))
	if clean == "" {
		return nil
	}

	kind := Classify(clean)
	doc := &document{raw: raw, clean: clean, values: map[field]string{}}
	doc.apply(rulesByKind[kind])

	r := &models.Receipt{Kind: kind}
	if v, ok := doc.values[fieldNumber]; ok {
		r.ReceiptNumber = models.Some(v)
	}
	if v, ok := doc.values[fieldTotal]; ok {
		if cents, ok := brl.ToCents(v); ok {
			r.TotalCents = models.Some(cents)
		}
	}
	if v, ok := doc.values[fieldDate]; ok {
		r.IssueDate = models.Some(v)
	}
	if v, ok := doc.values[fieldDocument]; ok {
		r.SupplierDocument = models.Some(v)
	}
	if v, ok := doc.values[fieldSupplier]; ok {
		r.SupplierName = models.Some(v)
	}
	if v, ok := doc.values[fieldDescription]; ok {
		r.Description = models.Some(v)
	}
	return r
}
