package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeTestMessage(t *testing.T, payload string) map[string]any {
	t.Helper()
	msg, err := DecodeMessage([]byte(payload))
	require.NoError(t, err)
	return msg
}

func TestDecodeMessage_InvalidJSON(t *testing.T) {
	_, err := DecodeMessage([]byte("{not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode station message")
}

func TestMapMessage(t *testing.T) {
	msg := decodeTestMessage(t, `{
		"station_code": "16107",
		"name": "Benjamin Godard - Victor Hugo",
		"is_installed": true,
		"capacity": 35,
		"numdocksavailable": 21,
		"numbikesavailable": 14,
		"mechanical": 9,
		"ebike": 5,
		"is_returning": "oui",
		"due_date": "2026-01-22 10:00:00",
		"commune": "Paris",
		"code_insee": "75116",
		"geo": "48.865983,2.275725"
	}`)

	rec, err := MapMessage(msg)
	require.NoError(t, err)

	assert.Equal(t, "16107", rec.StationCode)
	require.NotNil(t, rec.StationName)
	assert.Equal(t, "Benjamin Godard - Victor Hugo", *rec.StationName)
	require.NotNil(t, rec.Capacity)
	assert.Equal(t, int32(35), *rec.Capacity)
	require.NotNil(t, rec.DocksAvailable)
	assert.Equal(t, int32(21), *rec.DocksAvailable)
	require.NotNil(t, rec.BikesAvailable)
	assert.Equal(t, int32(14), *rec.BikesAvailable)
	require.NotNil(t, rec.BikesMechanical)
	assert.Equal(t, int32(9), *rec.BikesMechanical)
	require.NotNil(t, rec.BikesEbike)
	assert.Equal(t, int32(5), *rec.BikesEbike)
	require.NotNil(t, rec.IsInstalled)
	assert.True(t, *rec.IsInstalled)
	require.NotNil(t, rec.IsReturning)
	assert.True(t, *rec.IsReturning)
	assert.Equal(t, time.Date(2026, 1, 22, 10, 0, 0, 0, time.UTC), rec.DueDate)
	require.NotNil(t, rec.Commune)
	assert.Equal(t, "Paris", *rec.Commune)
	assert.Equal(t, "75116", rec.CodeInsee)
	assert.Equal(t, "48.865983,2.275725", rec.Geo)
}

// Messages produced by older exports use compact key spellings. Each alias
// must resolve to the same record field as its canonical counterpart.
func TestMapMessage_AliasKeys(t *testing.T) {
	msg := decodeTestMessage(t, `{
		"stationcode": "101",
		"station_name": "Mairie du 9e",
		"duedate": "2026-01-22T10:00:00Z",
		"codeinsee": "75056",
		"geo": "48.85,2.35",
		"docks_available": 4,
		"bikes_available": 16,
		"bikes_mechanical": 10,
		"bikes_ebike": 6,
		"nom_arrondissement_communes": "Paris"
	}`)

	rec, err := MapMessage(msg)
	require.NoError(t, err)

	assert.Equal(t, "101", rec.StationCode)
	require.NotNil(t, rec.StationName)
	assert.Equal(t, "Mairie du 9e", *rec.StationName)
	assert.Equal(t, time.Date(2026, 1, 22, 10, 0, 0, 0, time.UTC), rec.DueDate)
	assert.Equal(t, "75056", rec.CodeInsee)
	require.NotNil(t, rec.DocksAvailable)
	assert.Equal(t, int32(4), *rec.DocksAvailable)
	require.NotNil(t, rec.BikesAvailable)
	assert.Equal(t, int32(16), *rec.BikesAvailable)
	require.NotNil(t, rec.BikesMechanical)
	assert.Equal(t, int32(10), *rec.BikesMechanical)
	require.NotNil(t, rec.BikesEbike)
	assert.Equal(t, int32(6), *rec.BikesEbike)
	require.NotNil(t, rec.Commune)
	assert.Equal(t, "Paris", *rec.Commune)
}

func TestMapMessage_AliasPriority(t *testing.T) {
	// When both spellings are present the canonical key wins.
	msg := decodeTestMessage(t, `{
		"station_code": "16107",
		"stationcode": "999",
		"due_date": "2026-01-22T10:00:00Z",
		"last_reported": "2000-01-01T00:00:00Z",
		"code_insee": "75116",
		"codeinsee": "00000",
		"geo": "48.86,2.27"
	}`)

	rec, err := MapMessage(msg)
	require.NoError(t, err)

	assert.Equal(t, "16107", rec.StationCode)
	assert.Equal(t, time.Date(2026, 1, 22, 10, 0, 0, 0, time.UTC), rec.DueDate)
	assert.Equal(t, "75116", rec.CodeInsee)
}

func TestMapMessage_LastReportedAlias(t *testing.T) {
	msg := decodeTestMessage(t, `{
		"station_code": "16107",
		"last_reported": "2026-01-22T12:30:00+02:00",
		"code_insee": "75116",
		"geo": "48.86,2.27"
	}`)

	rec, err := MapMessage(msg)
	require.NoError(t, err)
	// The zone offset is dropped, the wall clock is kept.
	assert.Equal(t, time.Date(2026, 1, 22, 12, 30, 0, 0, time.UTC), rec.DueDate)
}

func TestMapMessage_MissingMandatoryField(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{
			name:    "missing station_code",
			payload: `{"due_date": "2026-01-22T10:00:00Z", "code_insee": "75056", "geo": "48.85,2.35"}`,
			field:   "station_code",
		},
		{
			name:    "missing due_date",
			payload: `{"station_code": "101", "code_insee": "75056", "geo": "48.85,2.35"}`,
			field:   "due_date",
		},
		{
			name:    "missing code_insee",
			payload: `{"station_code": "101", "due_date": "2026-01-22T10:00:00Z", "geo": "48.85,2.35"}`,
			field:   "code_insee",
		},
		{
			name:    "missing geo",
			payload: `{"station_code": "101", "due_date": "2026-01-22T10:00:00Z", "code_insee": "75056"}`,
			field:   "geo",
		},
		{
			name:    "null geo",
			payload: `{"station_code": "101", "due_date": "2026-01-22T10:00:00Z", "code_insee": "75056", "geo": null}`,
			field:   "geo",
		},
		{
			name:    "empty station_code",
			payload: `{"station_code": "", "due_date": "2026-01-22T10:00:00Z", "code_insee": "75056", "geo": "48.85,2.35"}`,
			field:   "station_code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MapMessage(decodeTestMessage(t, tt.payload))
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestMapMessage_UnreadableDueDate(t *testing.T) {
	msg := decodeTestMessage(t, `{
		"station_code": "101",
		"due_date": "janvier, sans doute",
		"code_insee": "75056",
		"geo": "48.85,2.35"
	}`)

	_, err := MapMessage(msg)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "due_date", verr.Field)
	assert.Contains(t, verr.Reason, "janvier, sans doute")
}

// Counts and flags are best effort. Values the codec cannot read become
// absent instead of failing the whole message.
func TestMapMessage_LenientOptionalFields(t *testing.T) {
	msg := decodeTestMessage(t, `{
		"station_code": "101",
		"due_date": "2026-01-22T10:00:00Z",
		"code_insee": "75056",
		"geo": "48.85,2.35",
		"capacity": "abc",
		"numbikesavailable": "12.0",
		"numdocksavailable": 7.9,
		"mechanical": null,
		"is_installed": "peut-être",
		"is_returning": 1
	}`)

	rec, err := MapMessage(msg)
	require.NoError(t, err)

	assert.Nil(t, rec.Capacity)
	require.NotNil(t, rec.BikesAvailable)
	assert.Equal(t, int32(12), *rec.BikesAvailable)
	require.NotNil(t, rec.DocksAvailable)
	assert.Equal(t, int32(7), *rec.DocksAvailable)
	assert.Nil(t, rec.BikesMechanical)
	assert.Nil(t, rec.BikesEbike)
	assert.Nil(t, rec.IsInstalled)
	require.NotNil(t, rec.IsReturning)
	assert.True(t, *rec.IsReturning)
	assert.Nil(t, rec.StationName)
	assert.Nil(t, rec.Commune)
}

func TestMapMessage_NegativeCapacityDropped(t *testing.T) {
	msg := decodeTestMessage(t, `{
		"station_code": "101",
		"due_date": "2026-01-22T10:00:00Z",
		"code_insee": "75056",
		"geo": "48.85,2.35",
		"capacity": -5,
		"numbikesavailable": -3
	}`)

	rec, err := MapMessage(msg)
	require.NoError(t, err)

	assert.Nil(t, rec.Capacity)
	// Only capacity carries the non-negative constraint.
	require.NotNil(t, rec.BikesAvailable)
	assert.Equal(t, int32(-3), *rec.BikesAvailable)
}

func TestMapMessage_NumericIdentity(t *testing.T) {
	// Some exports carry the station code and INSEE code as JSON numbers.
	msg := decodeTestMessage(t, `{
		"stationcode": 101,
		"due_date": "2026-01-22T10:00:00Z",
		"code_insee": 75056,
		"geo": "48.85,2.35"
	}`)

	rec, err := MapMessage(msg)
	require.NoError(t, err)

	assert.Equal(t, "101", rec.StationCode)
	assert.Equal(t, "75056", rec.CodeInsee)
}

func TestMapMessage_BooleanEncodings(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected *bool
	}{
		{"json true", "true", boolPtr(true)},
		{"json false", "false", boolPtr(false)},
		{"numeric one", "1", boolPtr(true)},
		{"numeric zero", "0", boolPtr(false)},
		{"french token", `"oui"`, boolPtr(true)},
		{"french negative token", `"non"`, boolPtr(false)},
		{"json null", "null", nil},
		{"other number", "3", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := decodeTestMessage(t, `{
				"station_code": "101",
				"due_date": "2026-01-22T10:00:00Z",
				"code_insee": "75056",
				"geo": "48.85,2.35",
				"is_installed": `+tt.value+`
			}`)

			rec, err := MapMessage(msg)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rec.IsInstalled)
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Field: "geo", Reason: "missing"}
	assert.Equal(t, "invalid station message: geo missing", err.Error())
}
