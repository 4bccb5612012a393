// Package normalizer turns the raw semicolon-delimited Vélib' export into
// canonical station status records and writes their cleaned encodings.
package normalizer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tessieres/velib-pipeline/internal/domain"
)

// headerAliases lists the accepted source-header spellings per canonical
// field, accented spelling first. The portal has renamed and re-accented
// columns over time; extend the table here rather than branching in the row
// loop.
var headerAliases = map[string][]string{
	"station_code":      {"identifiant_station"},
	"name":              {"nom_station"},
	"is_installed":      {"station_en_fonctionnement"},
	"capacity":          {"capacité_de_la_station", "capacite_de_la_station"},
	"numdocksavailable": {"nombre_bornettes_libres"},
	"numbikesavailable": {"nombre_total_vélos_disponibles", "nombre_total_velos_disponibles"},
	"mechanical":        {"vélos_mécaniques_disponibles", "velos_mecaniques_disponibles"},
	"ebike":             {"vélos_électriques_disponibles", "velos_electriques_disponibles"},
	"is_returning":      {"retour_vélib_possible", "retour_velib_possible"},
	"due_date":          {"actualisation_de_la_donnée", "actualisation_de_la_donnee"},
	"commune":           {"nom_communes_équipées", "nom_communes_equipees"},
	"code_insee":        {"code_insee_communes_équipées", "code_insee_communes_equipees"},
	"geo":               {"coordonnées_géographiques", "coordonnees_geographiques"},
}

// Normalize reads the raw export and returns one record per admitted row.
// A row is admitted only when both station_code and due_date resolve to
// non-empty values; every other field may be unknown. Zero admitted rows is
// an error, not an empty success.
func Normalize(r io.Reader) ([]domain.StationStatus, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read export header: %w", err)
	}
	// The portal serves the export with a UTF-8 byte order mark.
	header[0] = strings.TrimPrefix(header[0], "\uFEFF")

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[domain.NormalizeHeader(h)] = i
	}

	var records []domain.StationStatus
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read export row: %w", err)
		}

		stationCode := resolve(row, index, "station_code")
		dueDate := resolve(row, index, "due_date")
		if stationCode == "" || dueDate == "" {
			continue
		}

		capacity := domain.ParseInt(resolve(row, index, "capacity"))
		if capacity != nil && *capacity < 0 {
			capacity = nil
		}

		records = append(records, domain.StationStatus{
			StationCode:    stationCode,
			Name:           resolve(row, index, "name"),
			IsInstalled:    domain.ParseTriBool(resolve(row, index, "is_installed")),
			Capacity:       capacity,
			DocksAvailable: domain.ParseInt(resolve(row, index, "numdocksavailable")),
			BikesAvailable: domain.ParseInt(resolve(row, index, "numbikesavailable")),
			Mechanical:     domain.ParseInt(resolve(row, index, "mechanical")),
			Ebike:          domain.ParseInt(resolve(row, index, "ebike")),
			IsReturning:    domain.ParseTriBool(resolve(row, index, "is_returning")),
			DueDate:        dueDate,
			Commune:        resolve(row, index, "commune"),
			CodeInsee:      resolve(row, index, "code_insee"),
			Geo:            resolve(row, index, "geo"),
		})
	}

	if len(records) == 0 {
		return nil, errors.New("no rows with station_code and due_date in raw export")
	}

	return records, nil
}

// resolve returns the first non-empty cell among the aliased columns for
// canonical, or "" when every spelling is absent or blank. Cells past the
// header width on ragged rows are ignored.
func resolve(row []string, index map[string]int, canonical string) string {
	for _, alias := range headerAliases[canonical] {
		i, ok := index[alias]
		if !ok || i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); v != "" {
			return v
		}
	}
	return ""
}
