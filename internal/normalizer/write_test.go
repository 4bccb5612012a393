package normalizer

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessieres/velib-pipeline/internal/domain"
)

func sampleRecords() []domain.StationStatus {
	installed := true
	returning := false
	capacity := int32(35)
	bikes := int32(14)

	return []domain.StationStatus{
		{
			StationCode:    "16107",
			Name:           "Benjamin Godard - Victor Hugo",
			IsInstalled:    &installed,
			Capacity:       &capacity,
			BikesAvailable: &bikes,
			IsReturning:    &returning,
			DueDate:        "2026-01-22T10:02:33+01:00",
			Commune:        "Paris",
			CodeInsee:      "75116",
			Geo:            "48.865983, 2.275725",
		},
		{
			StationCode: "21021",
			Name:        "Vélizy - Europe Sud",
			DueDate:     "2026-01-22 10:03:05",
			Commune:     "Vélizy-Villacoublay",
			CodeInsee:   "78640",
			Geo:         "48.783599, 2.197569",
		},
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cleaned.csv")
	require.NoError(t, WriteCSV(path, sampleRecords()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, []string{
		"16107", "Benjamin Godard - Victor Hugo", "1", "35", "", "14", "", "", "0",
		"2026-01-22T10:02:33+01:00", "Paris", "75116", "48.865983, 2.275725",
	}, rows[1])
	assert.Equal(t, []string{
		"21021", "Vélizy - Europe Sud", "", "", "", "", "", "", "",
		"2026-01-22 10:03:05", "Vélizy-Villacoublay", "78640", "48.783599, 2.197569",
	}, rows[2])
}

func TestWriteCSV_CreatesOutputDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cleaned.csv")
	require.NoError(t, WriteCSV(path, sampleRecords()))

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestWriteJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.jsonl")
	require.NoError(t, WriteJSONL(path, sampleRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	// Accented text must appear verbatim, not as \u escapes.
	assert.Contains(t, lines[1], "Vélizy - Europe Sud")
	assert.Contains(t, lines[1], "Vélizy-Villacoublay")

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "16107", first["station_code"])
	assert.Equal(t, true, first["is_installed"])
	assert.Equal(t, false, first["is_returning"])
	assert.Equal(t, float64(35), first["capacity"])
	assert.Equal(t, "2026-01-22T10:02:33+01:00", first["due_date"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Nil(t, second["is_installed"])
	assert.Nil(t, second["capacity"])
}

// Every line of the JSONL output is a valid inbound message for the consumer
// when the row carries the mandatory identity fields.
func TestWriteJSONL_LinesMapToRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.jsonl")
	require.NoError(t, WriteJSONL(path, sampleRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		msg, err := domain.DecodeMessage([]byte(line))
		require.NoError(t, err)

		rec, err := domain.MapMessage(msg)
		require.NoError(t, err)
		assert.NotEmpty(t, rec.StationCode)
		assert.False(t, rec.DueDate.IsZero())
	}
}
