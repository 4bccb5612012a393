package domain

import (
	"encoding/json"
	"fmt"
)

// Message-key aliases per canonical field, in priority order: the current wire
// name first, then the spellings older producers used. Extending support for a
// renamed upstream field means adding an entry here, not touching the mapper.
var (
	stationCodeKeys = []string{"station_code", "stationcode", "stationCode"}
	dueDateKeys     = []string{"due_date", "duedate", "last_reported"}
	nameKeys        = []string{"name", "station_name"}
	communeKeys     = []string{"nom_arrondissement_communes", "commune"}
	capacityKeys    = []string{"capacity"}
	docksKeys       = []string{"numdocksavailable", "docks_available"}
	bikesKeys       = []string{"numbikesavailable", "bikes_available"}
	mechanicalKeys  = []string{"mechanical", "bikes_mechanical"}
	ebikeKeys       = []string{"ebike", "bikes_ebike"}
	installedKeys   = []string{"is_installed"}
	returningKeys   = []string{"is_returning"}
	codeInseeKeys   = []string{"code_insee", "codeinsee", "code-insee"}
	geoKeys         = []string{"geo"}
)

// ValidationError marks a message as malformed: a mandatory field is missing
// or unreadable. Retrying the same payload can never succeed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid station message: %s %s", e.Field, e.Reason)
}

// DecodeMessage unmarshals a message payload into the untyped map MapMessage
// consumes.
func DecodeMessage(payload []byte) (map[string]any, error) {
	var msg map[string]any
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("decode station message: %w", err)
	}
	return msg, nil
}

// MapMessage resolves an untyped message into a StationStatusRecord.
// station_code, due_date, code_insee, and geo must resolve to non-empty values
// after trimming; each failure is a distinct *ValidationError naming the field.
// Every other field degrades to unknown rather than failing the message.
func MapMessage(msg map[string]any) (StationStatusRecord, error) {
	stationCode := firstString(msg, stationCodeKeys)
	if stationCode == "" {
		return StationStatusRecord{}, &ValidationError{Field: "station_code", Reason: "missing"}
	}

	rawDueDate := firstString(msg, dueDateKeys)
	if rawDueDate == "" {
		return StationStatusRecord{}, &ValidationError{Field: "due_date", Reason: "missing"}
	}
	dueDate, err := ParseDueDate(rawDueDate)
	if err != nil {
		return StationStatusRecord{}, &ValidationError{Field: "due_date", Reason: fmt.Sprintf("unreadable timestamp %q", rawDueDate)}
	}

	codeInsee := firstString(msg, codeInseeKeys)
	if codeInsee == "" {
		return StationStatusRecord{}, &ValidationError{Field: "code_insee", Reason: "missing"}
	}

	geo := firstString(msg, geoKeys)
	if geo == "" {
		return StationStatusRecord{}, &ValidationError{Field: "geo", Reason: "missing"}
	}

	return StationStatusRecord{
		StationCode:     stationCode,
		StationName:     optionalString(firstString(msg, nameKeys)),
		Commune:         optionalString(firstString(msg, communeKeys)),
		Capacity:        nonNegative(firstInt(msg, capacityKeys)),
		DocksAvailable:  firstInt(msg, docksKeys),
		BikesAvailable:  firstInt(msg, bikesKeys),
		BikesMechanical: firstInt(msg, mechanicalKeys),
		BikesEbike:      firstInt(msg, ebikeKeys),
		IsInstalled:     firstTriBool(msg, installedKeys),
		IsReturning:     firstTriBool(msg, returningKeys),
		DueDate:         dueDate,
		CodeInsee:       codeInsee,
		Geo:             geo,
	}, nil
}

// firstValue returns the first present, non-null value among the aliased keys.
// A present empty string counts as resolved: the field is then empty, it does
// not fall through to a later alias.
func firstValue(msg map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := msg[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func firstString(msg map[string]any, keys []string) string {
	v, ok := firstValue(msg, keys)
	if !ok {
		return ""
	}
	return stringFromAny(v)
}

func firstInt(msg map[string]any, keys []string) *int32 {
	v, ok := firstValue(msg, keys)
	if !ok {
		return nil
	}
	return intFromAny(v)
}

func firstTriBool(msg map[string]any, keys []string) *bool {
	v, ok := firstValue(msg, keys)
	if !ok {
		return nil
	}
	return triBoolFromAny(v)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nonNegative drops negative counts. A capacity below zero is feed noise, not
// a reading, so it is stored as unknown.
func nonNegative(n *int32) *int32 {
	if n != nil && *n < 0 {
		return nil
	}
	return n
}
