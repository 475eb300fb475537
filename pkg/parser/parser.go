package parser

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/yurifrl/reembolso/pkg/models"
)

// ErrUnknownFileType is returned when a file cannot be mapped to any
// statement format.
var ErrUnknownFileType = errors.New("unknown file type")

type FileType string

const (
	OFX       FileType = "ofx"
	CSV       FileType = "csv"
	ExportCSV FileType = "export_csv"
	ItauXLS   FileType = "itau_xls"
	XLSX      FileType = "xlsx"
)

type Parser struct {
	logger  *log.Logger
	profile Profile
}

func New(logger *log.Logger) *Parser {
	return &Parser{
		logger:  logger,
		profile: ProfileAuto,
	}
}

// WithProfile returns a copy of the parser that reads CSV files with the
// given profile instead of guessing it.
func (p *Parser) WithProfile(profile Profile) *Parser {
	cp := *p
	cp.profile = profile
	return &cp
}

// ProcessBytes parses a statement file into transactions. The format is taken
// from the file name, falling back to the content for unknown extensions.
func (p *Parser) ProcessBytes(data []byte, filename string) ([]*models.Transaction, error) {
	fileType := detectType(data, filename)
	p.logger.Debug("detected file type", "type", fileType, "filename", filename)

	switch fileType {
	case OFX:
		return p.ParseOFX(data)
	case ExportCSV:
		return p.ParseExportCSV(data)
	case CSV:
		return p.ParseCSV(data, p.profile)
	case ItauXLS:
		return p.ParseItauExtratoXLS(data)
	case XLSX:
		return p.ParseXLSX(data)
	default:
		p.logger.Debug("unknown file type", "filename", filename)
		return nil, ErrUnknownFileType
	}
}

func detectType(data []byte, filename string) FileType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".ofx", ".qfx":
		return OFX
	case ".csv", ".txt":
		if isExportCSV(data) {
			return ExportCSV
		}
		return CSV
	case ".xls":
		return ItauXLS
	case ".xlsx":
		return XLSX
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	upper := bytes.ToUpper(head)
	if bytes.Contains(upper, []byte("OFXHEADER")) || bytes.Contains(upper, []byte("<OFX>")) {
		return OFX
	}
	return ""
}
