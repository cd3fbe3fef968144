package growth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"
)

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.TotalVisits)
	assert.Equal(t, 0, s.TotalPatients)
	assert.Equal(t, 0.0, s.AverageCareScore)
	assert.NotNil(t, s.PerPatient)
	assert.Empty(t, s.PerPatient)
}

func TestSummarize_CountsAndAverage(t *testing.T) {
	a := newVisit("A_001", "2023-01-01", 3000)
	a.NutritionAdviceGiven = visit.FlagYes
	a.PrescriptionGiven = visit.FlagYes
	b := newVisit("B_001", "2023-01-02", 3100)
	b.NutritionAdviceGiven = visit.FlagNo
	c := newVisit("A_001", "2023-01-11", 3300)
	c.NutritionAdviceGiven = visit.FlagYes
	anonymous := newVisit("", "2023-01-05", 2800)

	s := Summarize(DeriveAll([]visit.Visit{a, b, c, anonymous}))
	assert.Equal(t, 4, s.TotalVisits)
	assert.Equal(t, 2, s.TotalPatients)
	assert.Equal(t, 2, s.CounseledVisits)
	// c gains 300 g over 10 days
	assert.Equal(t, 1, s.GoodGainVisits)
	// (2 + 0 + 1 + 0) / 4
	assert.Equal(t, 0.8, s.AverageCareScore)

	require.Len(t, s.PerPatient, 2)
	assert.Equal(t, "A_001", s.PerPatient[0].PatientID)
	assert.Equal(t, 2, s.PerPatient[0].VisitCount)
	assert.Equal(t, 300.0, s.PerPatient[0].TotalWeightChangeG)
	assert.Equal(t, "B_001", s.PerPatient[1].PatientID)
	assert.Equal(t, 1, s.PerPatient[1].VisitCount)
	assert.Equal(t, 0.0, s.PerPatient[1].TotalWeightChangeG)
	assert.True(t, s.PerPatient[1].WeightChangeKnown)
}

func TestSummarize_RollupUsesChronologicalEndpoints(t *testing.T) {
	late := newVisit("P_001", "2023-08-01", 4100)
	late.FullName = "Later Spelling"
	early := newVisit("P_001", "2023-05-01", 3200)
	early.FullName = "KABORE Awa"

	s := Summarize(DeriveAll([]visit.Visit{late, early}))
	require.Len(t, s.PerPatient, 1)
	r := s.PerPatient[0]
	assert.Equal(t, "KABORE Awa", r.DisplayName)
	assert.Equal(t, 3200.0, *r.FirstWeightG)
	assert.Equal(t, 4100.0, *r.LastWeightG)
	assert.Equal(t, 900.0, r.TotalWeightChangeG)
	assert.True(t, r.WeightChangeKnown)
}

func TestSummarize_MissingEndpointWeight(t *testing.T) {
	first := newVisit("P_001", "2023-05-01", 0)
	last := newVisit("P_001", "2023-06-01", 3700)

	s := Summarize(DeriveAll([]visit.Visit{first, last}))
	r := s.PerPatient[0]
	assert.Nil(t, r.FirstWeightG)
	assert.Equal(t, 3700.0, r.TotalWeightChangeG)
	assert.False(t, r.WeightChangeKnown)
}
