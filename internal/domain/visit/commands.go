package visit

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Patch is an optional change to one field. A field missing from the JSON
// body stays unset; an explicit null sets the zero value, which clears
// pointer fields.
type Patch[T any] struct {
	Set   bool
	Value T
}

func Set[T any](v T) Patch[T] {
	return Patch[T]{Set: true, Value: v}
}

func (p *Patch[T]) UnmarshalJSON(b []byte) error {
	p.Set = true
	if string(b) == "null" {
		var zero T
		p.Value = zero
		return nil
	}
	return json.Unmarshal(b, &p.Value)
}

func (p Patch[T]) MarshalJSON() ([]byte, error) {
	if !p.Set {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

func (p Patch[T]) apply(dst *T) {
	if p.Set {
		*dst = p.Value
	}
}

type CreateVisitCommand struct {
	PatientID string `json:"patient_id"`
	PatientAttributes
	VisitAttributes
	CreatedBy *uuid.UUID `json:"-"`
}

// NewVisit builds an unsaved visit from the command.
func (c *CreateVisitCommand) NewVisit() *Visit {
	v := &Visit{
		PatientID:         c.PatientID,
		PatientAttributes: c.PatientAttributes,
		VisitAttributes:   c.VisitAttributes,
		CreatedBy:         c.CreatedBy,
	}
	v.BirthDate = v.BirthDate.Normalize()
	v.VisitDate = v.VisitDate.Normalize()
	cloned := v.Clone()
	return &cloned
}

// UpdateVisitCommand changes any subset of a visit's fields, from a single
// cell edit to a bulk autofill of the patient attributes.
type UpdateVisitCommand struct {
	PatientID Patch[string] `json:"patient_id"`

	RecordNumber           Patch[string]     `json:"record_number"`
	FullName               Patch[string]     `json:"full_name"`
	BirthDate              Patch[Date]       `json:"birth_date"`
	BirthWeightG           Patch[*float64]   `json:"birth_weight_g"`
	BirthHeightCm          Patch[*float64]   `json:"birth_height_cm"`
	Sex                    Patch[Sex]        `json:"sex"`
	CleftType              Patch[CleftType]  `json:"cleft_type"`
	Laterality             Patch[Laterality] `json:"laterality"`
	Severity               Patch[Severity]   `json:"severity"`
	AssociatedMalformation Patch[Flag]       `json:"associated_malformation"`
	MotherOccupation       Patch[string]     `json:"mother_occupation"`
	FatherOccupation       Patch[string]     `json:"father_occupation"`
	ResidenceArea          Patch[string]     `json:"residence_area"`
	SiblingCount           Patch[*int]       `json:"sibling_count"`

	VisitDate          Patch[Date]        `json:"visit_date"`
	WeightG            Patch[*float64]    `json:"weight_g"`
	HeightCm           Patch[*float64]    `json:"height_cm"`
	ArmCircumferenceMm Patch[*float64]    `json:"arm_circumference_mm"`
	FeedingMode        Patch[FeedingMode] `json:"feeding_mode"`

	DifficultySucking       Patch[Flag] `json:"difficulty_sucking"`
	NasalLeakage            Patch[Flag] `json:"nasal_leakage"`
	Vomiting                Patch[Flag] `json:"vomiting"`
	NutritionAdviceGiven    Patch[Flag] `json:"nutrition_advice_given"`
	SpecificTechniqueTaught Patch[Flag] `json:"specific_technique_taught"`
	SpecificDeviceProvided  Patch[Flag] `json:"specific_device_provided"`
	PrescriptionGiven       Patch[Flag] `json:"prescription_given"`
	ReferredToNutritionist  Patch[Flag] `json:"referred_to_nutritionist"`
	ComplicationPresent     Patch[Flag] `json:"complication_present"`
	ScheduledFollowUp       Patch[Flag] `json:"scheduled_follow_up"`
	LostToFollowUp          Patch[Flag] `json:"lost_to_follow_up"`
}

// ApplyTo writes every set field onto v.
func (c *UpdateVisitCommand) ApplyTo(v *Visit) {
	c.PatientID.apply(&v.PatientID)

	c.RecordNumber.apply(&v.RecordNumber)
	c.FullName.apply(&v.FullName)
	c.BirthDate.apply(&v.BirthDate)
	c.BirthWeightG.apply(&v.BirthWeightG)
	c.BirthHeightCm.apply(&v.BirthHeightCm)
	c.Sex.apply(&v.Sex)
	c.CleftType.apply(&v.CleftType)
	c.Laterality.apply(&v.Laterality)
	c.Severity.apply(&v.Severity)
	c.AssociatedMalformation.apply(&v.AssociatedMalformation)
	c.MotherOccupation.apply(&v.MotherOccupation)
	c.FatherOccupation.apply(&v.FatherOccupation)
	c.ResidenceArea.apply(&v.ResidenceArea)
	c.SiblingCount.apply(&v.SiblingCount)

	c.VisitDate.apply(&v.VisitDate)
	c.WeightG.apply(&v.WeightG)
	c.HeightCm.apply(&v.HeightCm)
	c.ArmCircumferenceMm.apply(&v.ArmCircumferenceMm)
	c.FeedingMode.apply(&v.FeedingMode)

	c.DifficultySucking.apply(&v.DifficultySucking)
	c.NasalLeakage.apply(&v.NasalLeakage)
	c.Vomiting.apply(&v.Vomiting)
	c.NutritionAdviceGiven.apply(&v.NutritionAdviceGiven)
	c.SpecificTechniqueTaught.apply(&v.SpecificTechniqueTaught)
	c.SpecificDeviceProvided.apply(&v.SpecificDeviceProvided)
	c.PrescriptionGiven.apply(&v.PrescriptionGiven)
	c.ReferredToNutritionist.apply(&v.ReferredToNutritionist)
	c.ComplicationPresent.apply(&v.ComplicationPresent)
	c.ScheduledFollowUp.apply(&v.ScheduledFollowUp)
	c.LostToFollowUp.apply(&v.LostToFollowUp)

	v.BirthDate = v.BirthDate.Normalize()
	v.VisitDate = v.VisitDate.Normalize()
}

// FillPatientAttributes sets every fixed attribute from a known profile,
// the bulk update behind patient autofill.
func (c *UpdateVisitCommand) FillPatientAttributes(a PatientAttributes) {
	c.RecordNumber = Set(a.RecordNumber)
	c.FullName = Set(a.FullName)
	c.BirthDate = Set(a.BirthDate)
	c.BirthWeightG = Set(clonePtr(a.BirthWeightG))
	c.BirthHeightCm = Set(clonePtr(a.BirthHeightCm))
	c.Sex = Set(a.Sex)
	c.CleftType = Set(a.CleftType)
	c.Laterality = Set(a.Laterality)
	c.Severity = Set(a.Severity)
	c.AssociatedMalformation = Set(a.AssociatedMalformation)
	c.MotherOccupation = Set(a.MotherOccupation)
	c.FatherOccupation = Set(a.FatherOccupation)
	c.ResidenceArea = Set(a.ResidenceArea)
	c.SiblingCount = Set(clonePtr(a.SiblingCount))
}

// Draft is an unsaved edit of a stored visit.
type Draft struct {
	VisitID uuid.UUID
	Changes UpdateVisitCommand
}

// Merge overlays drafts on a copy of the stored rows. The stored slice is
// never modified. Drafts for unknown visit IDs are ignored; unsaved new
// rows are appended after the stored ones.
func Merge(stored []Visit, drafts []Draft, added []Visit) []Visit {
	out := CloneAll(stored)
	byID := make(map[uuid.UUID]int, len(out))
	for i := range out {
		if _, dup := byID[out[i].ID]; !dup {
			byID[out[i].ID] = i
		}
	}
	for i := range drafts {
		if idx, ok := byID[drafts[i].VisitID]; ok {
			drafts[i].Changes.ApplyTo(&out[idx])
		}
	}
	for _, a := range added {
		out = append(out, a.Clone())
	}
	return out
}

// ListVisitsQuery filters the visit listing. An empty PatientID lists all.
type ListVisitsQuery struct {
	PatientID string
}
