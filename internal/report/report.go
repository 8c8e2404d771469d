// Package report renders order reports as PDF files.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ledger-service/internal/ledger"
	"ledger-service/internal/model"
	"ledger-service/prometheus"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
)

const (
	DefaultTitle  = "Smart Ledger Report"
	DefaultPrefix = "report_"
)

// Source supplies the order rows of a range; *ledger.Store implements it
type Source interface {
	OrderRows(ctx context.Context, r ledger.Range) (*ledger.Table, error)
}

// Options customizes one report run
type Options struct {
	Title      string
	FilePrefix string
	Trigger    string // "http" or "cron", used for metrics
	// Tenant names the subdirectory of the output directory the file is written to
	Tenant string
}

// Report is a generated file
type Report struct {
	Path     string
	Filename string
	Kind     ledger.Range
	Rows     int
	Content  []byte
}

// ErrInvalidTenant is returned when a tenant cannot be used as a directory name
var ErrInvalidTenant = errors.New("invalid report tenant")

// Generator writes reports into a directory
type Generator struct {
	dir string
	now func() time.Time
	log *zap.Logger
}

// NewGenerator creates a generator writing into dir
func NewGenerator(dir string, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{dir: dir, now: time.Now, log: log}
}

// WithClock returns a copy that reads the current date from now
func (g *Generator) WithClock(now func() time.Time) *Generator {
	cp := *g
	cp.now = now
	return &cp
}

// Dir returns the output directory
func (g *Generator) Dir() string {
	return g.dir
}

// Filename returns the deterministic file name of a report:
// <prefix>daily_YYYY-MM-DD.pdf, <prefix>monthly_YYYY-MM.pdf or <prefix>all_YYYY-MM-DD.pdf
func Filename(prefix string, kind ledger.Range, today time.Time) (string, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	switch kind {
	case ledger.RangeDaily, ledger.RangeAll:
		return fmt.Sprintf("%s%s_%s.pdf", prefix, kind, today.Format(model.DateLayout)), nil
	case ledger.RangeMonthly:
		return fmt.Sprintf("%s%s_%s.pdf", prefix, kind, today.Format("2006-01")), nil
	}
	return "", fmt.Errorf("%w: %q (want daily, monthly or all)", ledger.ErrInvalidRange, string(kind))
}

// Generate queries the rows of kind from src and writes them to a PDF file
func (g *Generator) Generate(ctx context.Context, src Source, kind ledger.Range, opts Options) (*Report, error) {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	filename, err := Filename(opts.FilePrefix, kind, g.now())
	if err != nil {
		return nil, err
	}
	dir, err := g.tenantDir(opts.Tenant)
	if err != nil {
		return nil, err
	}

	table, err := src.OrderRows(ctx, kind)
	if err != nil {
		return nil, err
	}

	content, err := g.render(opts.Title, table)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}
	path := filepath.Join(dir, filename)
	if err := writeFile(path, content); err != nil {
		return nil, err
	}

	if opts.Trigger != "" {
		prometheus.RecordReport(string(kind), opts.Trigger)
	}
	g.log.Info("Report generated",
		zap.String("file", path),
		zap.String("kind", string(kind)),
		zap.Int("rows", len(table.Rows)),
	)
	return &Report{Path: path, Filename: filename, Kind: kind, Rows: len(table.Rows), Content: content}, nil
}

// tenantDir returns the directory the reports of tenant are written to
func (g *Generator) tenantDir(tenant string) (string, error) {
	if tenant == "" {
		return g.dir, nil
	}
	if tenant == "." || tenant == ".." || strings.ContainsAny(tenant, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTenant, tenant)
	}
	return filepath.Join(g.dir, tenant), nil
}

func (g *Generator) render(title string, table *ledger.Table) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreationDate(g.now())
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, row := range table.Rows {
		pdf.MultiCell(0, 8, tr(FormatRow(table.Columns, row)), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

// writeFile writes next to path and renames so readers never see a partial file
func writeFile(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*.pdf")
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move report into place: %w", err)
	}
	return nil
}

// FormatRow renders a row as "col: val, col: val"
func FormatRow(columns []string, row []interface{}) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		var v interface{}
		if i < len(row) {
			v = row[i]
		}
		parts[i] = col + ": " + formatValue(v)
	}
	return strings.Join(parts, ", ")
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format(model.DateLayout)
		}
		return val.Format("2006-01-02 15:04:05")
	}
	return fmt.Sprint(v)
}
