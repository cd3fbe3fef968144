package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/growth"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/events"
)

func TestVisitService_CreateVisit(t *testing.T) {
	f := newFixture(t)
	f.repo.seed(storedVisit("SAOUNSE_001", "2023-04-12", 2890))
	svc := f.visits()

	cmd := &visit.CreateVisitCommand{PatientID: " SAOUNSE_001 "}
	cmd.BirthDate = "11/04/2023"
	cmd.VisitDate = "2023-06-27"
	cmd.WeightG = weight(2900)

	row, err := svc.CreateVisit(context.Background(), cmd, false, clinician)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, row.ID)
	assert.Equal(t, "SAOUNSE_001", row.PatientID)
	assert.Equal(t, visit.Date("2023-04-11"), row.BirthDate)
	require.NotNil(t, row.CreatedBy)
	assert.Equal(t, clinician.UserID, *row.CreatedBy)

	require.NotNil(t, row.Derived.VisitNumber)
	assert.Equal(t, 2, *row.Derived.VisitNumber)
	assert.Equal(t, 10.0, *row.Derived.WeightGainG)
	assert.Equal(t, growth.ImprovementInsufficient, row.Derived.Improvement)

	assert.Equal(t, []events.ChangeType{events.ChangeInsert}, f.notifier.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.VisitWritesTotal.WithLabelValues("create")))

	entries := f.flushAudit()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionCreate, entries[0].Action)
	assert.Equal(t, clinician.UserID, entries[0].UserID)
	assert.Equal(t, row.ID.String(), entries[0].ResourceID)
}

func TestVisitService_CreateVisit_Validation(t *testing.T) {
	svc := newFixture(t).visits()

	cmd := &visit.CreateVisitCommand{}
	cmd.VisitDate = "not a date"
	cmd.WeightG = weight(-3)
	cmd.Sex = "X"
	cmd.Vomiting = "Maybe"

	_, err := svc.CreateVisit(context.Background(), cmd, false, clinician)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 5)
	assert.Contains(t, verr.Error(), "patient_id: required")
	assert.Contains(t, verr.Error(), "visit_date")
	assert.Contains(t, verr.Error(), "weight_g")
	assert.Contains(t, verr.Error(), "sex")
	assert.Contains(t, verr.Error(), "vomiting")
}

func TestVisitService_CreateVisit_Autofill(t *testing.T) {
	f := newFixture(t)
	known := storedVisit("KABORE_001", "2023-01-10", 3100)
	known.FullName = "KABORE Awa"
	known.Sex = visit.SexFemale
	known.CleftType = visit.CleftPalatal
	f.repo.seed(known)
	svc := f.visits()

	cmd := &visit.CreateVisitCommand{PatientID: "KABORE_001"}
	cmd.VisitDate = "2023-02-10"
	cmd.WeightG = weight(3500)

	row, err := svc.CreateVisit(context.Background(), cmd, true, clinician)
	require.NoError(t, err)
	assert.Equal(t, "KABORE Awa", row.FullName)
	assert.Equal(t, visit.CleftPalatal, row.CleftType)
	assert.Equal(t, visit.Date("2023-02-10"), row.VisitDate)

	t.Run("unknown patient keeps the command values", func(t *testing.T) {
		cmd := &visit.CreateVisitCommand{PatientID: "NEW_001"}
		cmd.FullName = "NEW Patient"
		row, err := svc.CreateVisit(context.Background(), cmd, true, clinician)
		require.NoError(t, err)
		assert.Equal(t, "NEW Patient", row.FullName)
	})
}

func TestVisitService_UpdateVisit(t *testing.T) {
	f := newFixture(t)
	first := storedVisit("P_001", "2023-01-01", 3000)
	second := storedVisit("P_001", "2023-01-11", 3100)
	second.BirthDate = "sometime in April"
	f.repo.seed(first, second)
	svc := f.visits()

	var cmd visit.UpdateVisitCommand
	require.NoError(t, json.Unmarshal([]byte(`{"weight_g": 3300, "height_cm": null}`), &cmd))

	row, err := svc.UpdateVisit(context.Background(), second.ID, &cmd, dataEntry)
	require.NoError(t, err)
	assert.Equal(t, 3300.0, *row.WeightG)
	assert.Equal(t, visit.Date("sometime in April"), row.BirthDate)
	assert.Equal(t, 30.0, *row.Derived.GainGPerDay)
	assert.Equal(t, growth.ImprovementYes, row.Derived.Improvement)

	stored, err := f.repo.GetByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, 3300.0, *stored.WeightG)

	entries := f.flushAudit()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionUpdate, entries[0].Action)
	assert.JSONEq(t, `{"fields":["weight_g"]}`, entries[0].Changes)
}

func TestVisitService_UpdateVisit_Errors(t *testing.T) {
	f := newFixture(t)
	v := storedVisit("P_001", "2023-01-01", 3000)
	f.repo.seed(v)
	svc := f.visits()

	t.Run("invalid set field", func(t *testing.T) {
		cmd := visit.UpdateVisitCommand{WeightG: visit.Set(weight(0)), PatientID: visit.Set(" ")}
		_, err := svc.UpdateVisit(context.Background(), v.ID, &cmd, clinician)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Fields, 2)
	})

	t.Run("unknown visit", func(t *testing.T) {
		cmd := visit.UpdateVisitCommand{WeightG: visit.Set(weight(3000))}
		_, err := svc.UpdateVisit(context.Background(), uuid.New(), &cmd, clinician)
		assert.ErrorIs(t, err, visit.ErrVisitNotFound)
	})
}

func TestVisitService_DeleteVisit(t *testing.T) {
	f := newFixture(t)
	v := storedVisit("P_001", "2023-01-01", 3000)
	f.repo.seed(v)
	svc := f.visits()

	err := svc.DeleteVisit(context.Background(), v.ID, dataEntry)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.DeleteVisit(context.Background(), v.ID, clinician))
	_, err = f.repo.GetByID(context.Background(), v.ID)
	assert.ErrorIs(t, err, visit.ErrVisitNotFound)

	require.Len(t, f.notifier.changes, 1)
	assert.Equal(t, events.ChangeDelete, f.notifier.changes[0].Type)
	assert.Equal(t, "P_001", f.notifier.changes[0].PatientID)

	err = svc.DeleteVisit(context.Background(), v.ID, clinician)
	assert.ErrorIs(t, err, visit.ErrVisitNotFound)
}

func TestVisitService_NotificationFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("redis down")
	svc := f.visits()

	_, err := svc.CreateVisit(context.Background(), &visit.CreateVisitCommand{PatientID: "P_001"}, false, clinician)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.NotificationsTotal.WithLabelValues("error")))
}

func TestVisitService_ListVisits(t *testing.T) {
	f := newFixture(t)
	late := storedVisit("P_001", "2023-03-01", 3400)
	early := storedVisit("P_001", "2023-02-01", 3200)
	other := storedVisit("P_002", "2023-02-15", 4000)
	f.repo.seed(late, early, other)
	svc := f.visits()

	rows, err := svc.ListVisits(context.Background(), &visit.ListVisitsQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, late.ID, rows[0].ID)
	assert.Equal(t, 2, *rows[0].Derived.VisitNumber)
	assert.Equal(t, 1, *rows[1].Derived.VisitNumber)
	assert.Equal(t, 1, *rows[2].Derived.VisitNumber)
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.SnapshotVisits))

	rows, err = svc.ListVisits(context.Background(), &visit.ListVisitsQuery{PatientID: "P_002"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	f.repo.listErr = errStore
	_, err = svc.ListVisits(context.Background(), &visit.ListVisitsQuery{})
	assert.ErrorIs(t, err, errStore)
}

func TestVisitService_PreviewVisits(t *testing.T) {
	f := newFixture(t)
	first := storedVisit("P_001", "2023-01-01", 3000)
	second := storedVisit("P_001", "2023-01-11", 3050)
	f.repo.seed(first, second)
	svc := f.visits()

	added := visit.CreateVisitCommand{PatientID: "P_001"}
	added.VisitDate = "2023-01-21"
	added.WeightG = weight(3400)

	rows, err := svc.PreviewVisits(context.Background(), &PreviewRequest{
		PatientID: "P_001",
		Drafts: []DraftInput{
			{VisitID: second.ID, Changes: visit.UpdateVisitCommand{WeightG: visit.Set(weight(3250))}},
			{VisitID: uuid.New(), Changes: visit.UpdateVisitCommand{WeightG: visit.Set(weight(1))}},
		},
		Added: []visit.CreateVisitCommand{added},
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 25.0, *rows[1].Derived.GainGPerDay)
	assert.Equal(t, 3, *rows[2].Derived.VisitNumber)
	assert.Equal(t, 15.0, *rows[2].Derived.GainGPerDay)
	assert.NotEqual(t, uuid.Nil, rows[2].ID)

	stored, err := f.repo.GetByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, 3050.0, *stored.WeightG)
	assert.Empty(t, f.notifier.types())
}

func TestChangedFields(t *testing.T) {
	before := storedVisit("P_001", "2023-01-01", 3000)
	after := before.Clone()
	after.WeightG = weight(3100)
	after.Vomiting = visit.FlagYes
	after.UpdatedAt = after.UpdatedAt.AddDate(0, 0, 1)

	assert.Equal(t, []string{"vomiting", "weight_g"}, changedFields(&before, &after))
	assert.Empty(t, changedFields(&before, &before))
}
