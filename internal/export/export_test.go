package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/growth"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"
)

func sampleRows() []growth.Row {
	weights := []float64{2890, 2900, 3700}
	dates := []visit.Date{"2023-04-12", "2023-06-27", "2023-07-27"}
	visits := make([]visit.Visit, 0, len(dates))
	for i := range dates {
		w := weights[i]
		v := visit.Visit{ID: uuid.New(), PatientID: "SAOUNSE_001"}
		v.FullName = "SAOUNSE Gervine"
		v.BirthDate = "2023-04-11"
		v.Sex = visit.SexFemale
		v.VisitDate = dates[i]
		v.WeightG = &w
		visits = append(visits, v)
	}
	visits[2].NutritionAdviceGiven = visit.FlagYes
	return growth.DeriveAll(visits)
}

func column(t *testing.T, key string) int {
	t.Helper()
	for i, k := range Header() {
		if k == key {
			return i
		}
	}
	t.Fatalf("no column %q", key)
	return -1
}

func TestHeader_Order(t *testing.T) {
	h := Header()
	assert.Equal(t, "patient_id", h[0])
	assert.Less(t, column(t, "sibling_count"), column(t, "visit_date"))
	assert.Less(t, column(t, "lost_to_follow_up"), column(t, "visit_number"))
	assert.Equal(t, "improvement", h[len(h)-1])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows()))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\ufeff"))

	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\ufeff")))
	r.Comma = ';'
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, Header(), records[0])

	first, third := records[1], records[3]
	assert.Equal(t, "SAOUNSE_001", first[column(t, "patient_id")])
	assert.Equal(t, "2890", first[column(t, "weight_g")])
	assert.Equal(t, "", first[column(t, "birth_weight_g")])
	assert.Equal(t, "", first[column(t, "previous_weight_g")])
	assert.Equal(t, "1", first[column(t, "visit_number")])
	assert.Equal(t, "NotApplicable", first[column(t, "improvement")])
	assert.Equal(t, "0", first[column(t, "care_score")])

	assert.Equal(t, "3", third[column(t, "visit_number")])
	assert.Equal(t, "26.7", third[column(t, "gain_g_per_day")])
	assert.Equal(t, "Yes", third[column(t, "improvement")])
	assert.Equal(t, "1", third[column(t, "care_score")])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(buf.String(), "\ufeff")), "\n")
	assert.Len(t, lines, 1)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleRows(), ""))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{DefaultSheetName}, f.GetSheetList())

	rows, err := f.GetRows(DefaultSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, Header(), rows[0])

	second := rows[2]
	assert.Equal(t, "2", second[column(t, "visit_number")])
	assert.Equal(t, "76", second[column(t, "days_since_previous_visit")])
	assert.Equal(t, "Insufficient", second[column(t, "improvement")])
	assert.Equal(t, "", second[column(t, "cleft_type")])
}

func TestWriteXLSX_CustomSheet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil, "Export"))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Export"}, f.GetSheetList())
}
