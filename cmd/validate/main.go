// Command validate cross-checks the cleaner's two outputs against each other
// and against the mapper: the cleaned CSV, the JSONL message feed, and the
// canonical records mapped from the feed. It verifies the canonical header,
// row-level admission guarantees, CSV/JSONL value parity, mapper acceptance
// of every message, and the (station_code, due_date) upsert keys.
//
// Usage:
//
//	go run ./cmd/validate -cleaned-csv data/cleaned.csv -jsonl data/messages.jsonl
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/tessieres/velib-pipeline/internal/domain"
	"github.com/tessieres/velib-pipeline/internal/normalizer"
)

// countColumns hold integer cells in the cleaned CSV; boolColumns hold the
// tri-state cells rendered as "1", "0", or empty.
var (
	countColumns = []string{"capacity", "numdocksavailable", "numbikesavailable", "mechanical", "ebike"}
	boolColumns  = []string{"is_installed", "is_returning"}
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	cleanedCSV := flag.String("cleaned-csv", "data/cleaned.csv", "path to the cleaned CSV")
	jsonlPath := flag.String("jsonl", "data/messages.jsonl", "path to the JSONL message feed")
	flag.Parse()

	if code := run(*cleanedCSV, *jsonlPath); code != 0 {
		os.Exit(code)
	}
}

func run(csvPath, jsonlPath string) int {
	fmt.Println("=== Vélib Cleaned Data Validation ===")
	fmt.Println()

	header, rows, err := loadCleanedCSV(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load cleaned CSV: %v\n", err)
		return 1
	}

	lines, err := loadJSONL(jsonlPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load JSONL feed: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateCleanedCSV(header, rows),
		validateParity(rows, lines),
		validateMapperAcceptance(lines),
		validateUpsertKeys(lines),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-46s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d cleaned CSV rows, %d JSONL messages\n", len(rows), len(lines))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// csvRow is a parsed cleaned-CSV row with cell values keyed by column name.
type csvRow struct {
	lineNum int
	fields  map[string]string
}

func loadCleanedCSV(path string) ([]string, []csvRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("no header in %s", path)
	}

	header := all[0]
	rows := make([]csvRow, 0, len(all)-1)
	for i, cells := range all[1:] {
		fields := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(cells) {
				fields[h] = cells[j]
			}
		}
		rows = append(rows, csvRow{lineNum: i + 2, fields: fields})
	}
	return header, rows, nil
}

// jsonlLine is one raw message from the JSONL feed.
type jsonlLine struct {
	lineNum int
	raw     []byte
}

func loadJSONL(path string) ([]jsonlLine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var lines []jsonlLine
	for i, raw := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		lines = append(lines, jsonlLine{lineNum: i + 1, raw: raw})
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no messages in %s", path)
	}
	return lines, nil
}

// ── Phase 1: Cleaned CSV Integrity ──
// The cleaned CSV must carry the canonical header and honor the admission
// rules: key fields present, counts integral, capacity non-negative,
// tri-state cells limited to "1", "0", and empty.

func validateCleanedCSV(header []string, rows []csvRow) *phase {
	p := &phase{name: "Phase 1: Cleaned CSV Integrity"}

	if len(header) != len(normalizer.Columns) {
		p.errorf("header has %d columns, expected %d", len(header), len(normalizer.Columns))
	}
	for i, want := range normalizer.Columns {
		if i >= len(header) {
			break
		}
		if header[i] != want {
			p.errorf("header column %d: got %q, expected %q", i, header[i], want)
		}
	}

	for _, row := range rows {
		if row.fields["station_code"] == "" {
			p.errorf("line %d: empty station_code", row.lineNum)
		}
		if row.fields["due_date"] == "" {
			p.errorf("line %d: empty due_date", row.lineNum)
		}

		for _, col := range countColumns {
			cell := row.fields[col]
			if cell == "" {
				continue
			}
			n, err := strconv.ParseInt(cell, 10, 32)
			if err != nil {
				p.errorf("line %d: column %q: non-integer cell %q", row.lineNum, col, cell)
				continue
			}
			if col == "capacity" && n < 0 {
				p.errorf("line %d: negative capacity %d survived cleaning", row.lineNum, n)
			}
		}

		for _, col := range boolColumns {
			switch cell := row.fields[col]; cell {
			case "", "0", "1":
			default:
				p.errorf("line %d: column %q: invalid tri-state cell %q", row.lineNum, col, cell)
			}
		}
	}
	return p
}

// ── Phase 2: CSV/JSONL Parity ──
// Both outputs come from the same normalized records, so every cell of row i
// must equal the rendered value of message i.

func validateParity(rows []csvRow, lines []jsonlLine) *phase {
	p := &phase{name: "Phase 2: CSV/JSONL Parity"}

	if len(rows) != len(lines) {
		p.errorf("cleaned CSV has %d rows, JSONL has %d messages", len(rows), len(lines))
	}

	n := min(len(rows), len(lines))
	for i := 0; i < n; i++ {
		var st domain.StationStatus
		if err := json.Unmarshal(lines[i].raw, &st); err != nil {
			p.errorf("JSONL line %d: %v", lines[i].lineNum, err)
			continue
		}

		row := rows[i]
		compareCell(p, row, "station_code", st.StationCode)
		compareCell(p, row, "name", st.Name)
		compareCell(p, row, "is_installed", boolCell(st.IsInstalled))
		compareCell(p, row, "capacity", intCell(st.Capacity))
		compareCell(p, row, "numdocksavailable", intCell(st.DocksAvailable))
		compareCell(p, row, "numbikesavailable", intCell(st.BikesAvailable))
		compareCell(p, row, "mechanical", intCell(st.Mechanical))
		compareCell(p, row, "ebike", intCell(st.Ebike))
		compareCell(p, row, "is_returning", boolCell(st.IsReturning))
		compareCell(p, row, "due_date", st.DueDate)
		compareCell(p, row, "commune", st.Commune)
		compareCell(p, row, "code_insee", st.CodeInsee)
		compareCell(p, row, "geo", st.Geo)
	}
	return p
}

func compareCell(p *phase, row csvRow, col, rendered string) {
	if cell := row.fields[col]; cell != rendered {
		p.errorf("line %d: column %q: CSV=%q, JSONL=%q", row.lineNum, col, cell, rendered)
	}
}

func boolCell(v *bool) string {
	switch {
	case v == nil:
		return ""
	case *v:
		return "1"
	default:
		return "0"
	}
}

func intCell(v *int32) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(int64(*v), 10)
}

// ── Phase 3: Mapper Acceptance ──
// Every published message already passed the admission gate, so the consumer
// side mapper must accept all of them.

func validateMapperAcceptance(lines []jsonlLine) *phase {
	p := &phase{name: "Phase 3: Mapper Acceptance"}

	for _, line := range lines {
		rec, err := mapLine(line)
		if err != nil {
			p.errorf("JSONL line %d: %v", line.lineNum, err)
			continue
		}
		if rec.DueDate.IsZero() {
			p.errorf("JSONL line %d: mapped due_date is zero", line.lineNum)
		}
	}
	return p
}

// ── Phase 4: Upsert Keys ──
// The consumer keys rows on (station_code, due_date). Duplicates are legal,
// the upsert keeps the last payload, but they deserve a note.

func validateUpsertKeys(lines []jsonlLine) *phase {
	p := &phase{name: "Phase 4: Upsert Keys"}

	seen := map[string]int{}
	dupes := 0
	for _, line := range lines {
		rec, err := mapLine(line)
		if err != nil {
			// Already reported in Phase 3.
			continue
		}
		key := rec.StationCode + "|" + rec.DueDate.Format("2006-01-02T15:04:05")
		if first, ok := seen[key]; ok {
			dupes++
			fmt.Printf("  Note: line %d repeats upsert key of line %d (%s); the upsert keeps the later payload\n",
				line.lineNum, first, key)
			continue
		}
		seen[key] = line.lineNum
	}

	if dupes > 0 {
		fmt.Printf("  Note: %d duplicate upsert key(s) total\n", dupes)
	}
	return p
}

func mapLine(line jsonlLine) (domain.StationStatusRecord, error) {
	decoded, err := domain.DecodeMessage(line.raw)
	if err != nil {
		return domain.StationStatusRecord{}, err
	}
	return domain.MapMessage(decoded)
}
