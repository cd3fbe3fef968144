// Package export writes visits and their derived fields as flat tables.
package export

import (
	"strconv"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/growth"
)

// Column is one exported field. Value returns nil for an absent value.
type Column struct {
	Key   string
	Width float64
	Value func(r *growth.Row) any
}

// Columns lists fixed attributes, then visit attributes, then derived
// fields. Keys match the JSON names used by the API.
var Columns = []Column{
	{"patient_id", 16, func(r *growth.Row) any { return text(r.PatientID) }},
	{"record_number", 16, func(r *growth.Row) any { return text(r.RecordNumber) }},
	{"full_name", 28, func(r *growth.Row) any { return text(r.FullName) }},
	{"birth_date", 12, func(r *growth.Row) any { return text(string(r.BirthDate)) }},
	{"birth_weight_g", 12, func(r *growth.Row) any { return float(r.BirthWeightG) }},
	{"birth_height_cm", 12, func(r *growth.Row) any { return float(r.BirthHeightCm) }},
	{"sex", 6, func(r *growth.Row) any { return text(string(r.Sex)) }},
	{"cleft_type", 14, func(r *growth.Row) any { return text(string(r.CleftType)) }},
	{"laterality", 12, func(r *growth.Row) any { return text(string(r.Laterality)) }},
	{"severity", 12, func(r *growth.Row) any { return text(string(r.Severity)) }},
	{"associated_malformation", 12, func(r *growth.Row) any { return text(string(r.AssociatedMalformation)) }},
	{"mother_occupation", 18, func(r *growth.Row) any { return text(r.MotherOccupation) }},
	{"father_occupation", 18, func(r *growth.Row) any { return text(r.FatherOccupation) }},
	{"residence_area", 18, func(r *growth.Row) any { return text(r.ResidenceArea) }},
	{"sibling_count", 10, func(r *growth.Row) any { return integer(r.SiblingCount) }},

	{"visit_date", 12, func(r *growth.Row) any { return text(string(r.VisitDate)) }},
	{"weight_g", 10, func(r *growth.Row) any { return float(r.WeightG) }},
	{"height_cm", 10, func(r *growth.Row) any { return float(r.HeightCm) }},
	{"arm_circumference_mm", 12, func(r *growth.Row) any { return float(r.ArmCircumferenceMm) }},
	{"feeding_mode", 22, func(r *growth.Row) any { return text(string(r.FeedingMode)) }},
	{"difficulty_sucking", 12, func(r *growth.Row) any { return text(string(r.DifficultySucking)) }},
	{"nasal_leakage", 12, func(r *growth.Row) any { return text(string(r.NasalLeakage)) }},
	{"vomiting", 12, func(r *growth.Row) any { return text(string(r.Vomiting)) }},
	{"nutrition_advice_given", 12, func(r *growth.Row) any { return text(string(r.NutritionAdviceGiven)) }},
	{"specific_technique_taught", 12, func(r *growth.Row) any { return text(string(r.SpecificTechniqueTaught)) }},
	{"specific_device_provided", 12, func(r *growth.Row) any { return text(string(r.SpecificDeviceProvided)) }},
	{"prescription_given", 12, func(r *growth.Row) any { return text(string(r.PrescriptionGiven)) }},
	{"referred_to_nutritionist", 12, func(r *growth.Row) any { return text(string(r.ReferredToNutritionist)) }},
	{"complication_present", 12, func(r *growth.Row) any { return text(string(r.ComplicationPresent)) }},
	{"scheduled_follow_up", 12, func(r *growth.Row) any { return text(string(r.ScheduledFollowUp)) }},
	{"lost_to_follow_up", 12, func(r *growth.Row) any { return text(string(r.LostToFollowUp)) }},

	{"visit_number", 8, func(r *growth.Row) any { return integer(r.Derived.VisitNumber) }},
	{"age_days", 8, func(r *growth.Row) any { return integer(r.Derived.AgeDays) }},
	{"age_months", 8, func(r *growth.Row) any { return float(r.Derived.AgeMonths) }},
	{"age_category", 12, func(r *growth.Row) any { return text(string(r.Derived.AgeCategory)) }},
	{"year", 8, func(r *growth.Row) any { return integer(r.Derived.Year) }},
	{"period_bucket", 12, func(r *growth.Row) any { return text(string(r.Derived.Period)) }},
	{"care_score", 8, func(r *growth.Row) any { return r.Derived.CareScore }},
	{"previous_weight_g", 12, func(r *growth.Row) any { return float(r.Derived.PreviousWeightG) }},
	{"weight_gain_g", 12, func(r *growth.Row) any { return float(r.Derived.WeightGainG) }},
	{"days_since_previous_visit", 12, func(r *growth.Row) any { return integer(r.Derived.DaysSincePreviousVisit) }},
	{"gain_g_per_day", 12, func(r *growth.Row) any { return float(r.Derived.GainGPerDay) }},
	{"improvement", 14, func(r *growth.Row) any { return text(string(r.Derived.Improvement)) }},
}

// Header returns the column keys in order.
func Header() []string {
	h := make([]string, len(Columns))
	for i, c := range Columns {
		h[i] = c.Key
	}
	return h
}

func text(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func float(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func integer(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// formatCell renders a column value as CSV text; absent is empty.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}
