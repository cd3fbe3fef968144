package service

import (
	"fmt"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"
)

type enumField struct {
	name  string
	value string
	valid bool
}

// validateVisit checks the stored form of a visit. Absent values are
// always accepted; only present values must be well formed.
func validateVisit(v *visit.Visit) []string {
	var errs []string

	for _, d := range []struct {
		name string
		date visit.Date
	}{
		{"birth_date", v.BirthDate},
		{"visit_date", v.VisitDate},
	} {
		if !d.date.IsValid() {
			errs = append(errs, fmt.Sprintf("%s: %v", d.name, visit.ErrInvalidDate))
		}
	}

	for _, m := range []struct {
		name  string
		value *float64
	}{
		{"birth_weight_g", v.BirthWeightG},
		{"weight_g", v.WeightG},
	} {
		if m.value != nil && *m.value <= 0 {
			errs = append(errs, fmt.Sprintf("%s: %v", m.name, visit.ErrInvalidWeight))
		}
	}

	for _, m := range []struct {
		name  string
		value *float64
	}{
		{"birth_height_cm", v.BirthHeightCm},
		{"height_cm", v.HeightCm},
		{"arm_circumference_mm", v.ArmCircumferenceMm},
	} {
		if m.value != nil && *m.value <= 0 {
			errs = append(errs, m.name+": must be a positive number")
		}
	}

	if v.SiblingCount != nil && *v.SiblingCount < 0 {
		errs = append(errs, "sibling_count: must not be negative")
	}

	enums := []enumField{
		{"sex", string(v.Sex), v.Sex.IsValid()},
		{"cleft_type", string(v.CleftType), v.CleftType.IsValid()},
		{"laterality", string(v.Laterality), v.Laterality.IsValid()},
		{"severity", string(v.Severity), v.Severity.IsValid()},
		{"associated_malformation", string(v.AssociatedMalformation), v.AssociatedMalformation.IsValid()},
		{"feeding_mode", string(v.FeedingMode), v.FeedingMode.IsValid()},
		{"difficulty_sucking", string(v.DifficultySucking), v.DifficultySucking.IsValid()},
		{"nasal_leakage", string(v.NasalLeakage), v.NasalLeakage.IsValid()},
		{"vomiting", string(v.Vomiting), v.Vomiting.IsValid()},
		{"nutrition_advice_given", string(v.NutritionAdviceGiven), v.NutritionAdviceGiven.IsValid()},
		{"specific_technique_taught", string(v.SpecificTechniqueTaught), v.SpecificTechniqueTaught.IsValid()},
		{"specific_device_provided", string(v.SpecificDeviceProvided), v.SpecificDeviceProvided.IsValid()},
		{"prescription_given", string(v.PrescriptionGiven), v.PrescriptionGiven.IsValid()},
		{"referred_to_nutritionist", string(v.ReferredToNutritionist), v.ReferredToNutritionist.IsValid()},
		{"complication_present", string(v.ComplicationPresent), v.ComplicationPresent.IsValid()},
		{"scheduled_follow_up", string(v.ScheduledFollowUp), v.ScheduledFollowUp.IsValid()},
		{"lost_to_follow_up", string(v.LostToFollowUp), v.LostToFollowUp.IsValid()},
	}
	for _, e := range enums {
		if !e.valid {
			errs = append(errs, fmt.Sprintf("%s: %v (got %q)", e.name, visit.ErrInvalidEnum, e.value))
		}
	}

	return errs
}

func validateCreate(cmd *visit.CreateVisitCommand) error {
	var errs []string
	if strings.TrimSpace(cmd.PatientID) == "" {
		errs = append(errs, "patient_id: required")
	}
	errs = append(errs, validateVisit(cmd.NewVisit())...)
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// validateUpdate checks only the fields the command sets, so a stored row
// holding legacy unparseable text can still be corrected field by field.
func validateUpdate(cmd *visit.UpdateVisitCommand) error {
	var probe visit.Visit
	cmd.ApplyTo(&probe)

	var errs []string
	if cmd.PatientID.Set && strings.TrimSpace(cmd.PatientID.Value) == "" {
		errs = append(errs, "patient_id: cannot be cleared")
	}
	errs = append(errs, validateVisit(&probe)...)
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
