// internal/app/system/csvutil/csvutil.go

// Package csvutil writes downloadable CSV artifacts. Output is aimed at
// spreadsheet applications: UTF-8 BOM so Excel detects the encoding, CRLF
// line endings, and formula-injection escaping on every data cell.
package csvutil

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MaxExportRows caps the number of data rows a single artifact may carry.
const MaxExportRows = 20000

// Filename returns "<prefix>_<UTC timestamp>.csv" with the prefix reduced
// to a safe character set.
func Filename(prefix string) string {
	prefix = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "export"
	}
	return prefix + "_" + time.Now().UTC().Format("20060102_150405") + ".csv"
}

// BeginDownload sets the download headers, writes the UTF-8 BOM, and
// returns a CRLF csv.Writer over w. The caller must Flush the writer.
func BeginDownload(w http.ResponseWriter, filename string) *csv.Writer {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(filename)))

	// UTF-8 BOM so Excel treats the file as Unicode
	_, _ = w.Write([]byte{0xEF, 0xBB, 0xBF})

	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	return cw
}

// EscapeFormula neutralizes spreadsheet formula injection. A cell starting
// with '=', '+', '-', or '@' would execute as a formula when the file is
// opened; prefixing a single quote makes the application read it as text.
func EscapeFormula(field string) string {
	if field == "" {
		return field
	}
	switch field[0] {
	case '=', '+', '-', '@':
		return "'" + field
	}
	return field
}

// EscapeRow applies EscapeFormula to every cell and returns a new slice.
func EscapeRow(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = EscapeFormula(cell)
	}
	return out
}

// WriteSection writes one labeled section: a row holding the label, the
// header row, and the escaped data rows, followed by a blank row so
// consecutive sections stay visually separate.
func WriteSection(cw *csv.Writer, label string, header []string, rows [][]string) error {
	if err := cw.Write([]string{label}); err != nil {
		return err
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(EscapeRow(row)); err != nil {
			return err
		}
	}
	return cw.Write([]string{})
}
