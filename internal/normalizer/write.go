package normalizer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tessieres/velib-pipeline/internal/domain"
)

// Columns fixes the cleaned CSV column order. Every admitted record carries
// the full canonical field set, so the first record and this list agree.
var Columns = []string{
	"station_code",
	"name",
	"is_installed",
	"capacity",
	"numdocksavailable",
	"numbikesavailable",
	"mechanical",
	"ebike",
	"is_returning",
	"due_date",
	"commune",
	"code_insee",
	"geo",
}

// WriteCSV writes the cleaned tabular encoding, comma-delimited, one line per
// record in Columns order.
func WriteCSV(path string, records []domain.StationStatus) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cleaned csv: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		f.Close()
		return fmt.Errorf("write cleaned csv header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(csvRow(rec)); err != nil {
			f.Close()
			return fmt.Errorf("write cleaned csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write cleaned csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close cleaned csv: %w", err)
	}
	return nil
}

// WriteJSONL writes one JSON object per record, one per line, non-ASCII kept
// verbatim.
func WriteJSONL(path string, records []domain.StationStatus) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create jsonl output: %w", err)
	}

	enc := json.NewEncoder(f)
	// The default encoder rewrites <, >, and & as \u escapes; station names
	// must reach the topic untouched.
	enc.SetEscapeHTML(false)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			f.Close()
			return fmt.Errorf("write jsonl record: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close jsonl output: %w", err)
	}
	return nil
}

// csvRow renders one record in Columns order. Tri-state booleans become
// "1"/"0"/"" and unknown counts become "".
func csvRow(rec domain.StationStatus) []string {
	return []string{
		rec.StationCode,
		rec.Name,
		triBoolCell(rec.IsInstalled),
		intCell(rec.Capacity),
		intCell(rec.DocksAvailable),
		intCell(rec.BikesAvailable),
		intCell(rec.Mechanical),
		intCell(rec.Ebike),
		triBoolCell(rec.IsReturning),
		rec.DueDate,
		rec.Commune,
		rec.CodeInsee,
		rec.Geo,
	}
}

func intCell(v *int32) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(int64(*v), 10)
}

func triBoolCell(v *bool) string {
	switch {
	case v == nil:
		return ""
	case *v:
		return "1"
	default:
		return "0"
	}
}
