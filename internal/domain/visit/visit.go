package visit

import (
	"time"

	"github.com/google/uuid"
)

// PatientAttributes are the fixed fields repeated on every visit of a
// patient. Consistency across visits is expected but not enforced.
type PatientAttributes struct {
	RecordNumber           string     `gorm:"column:record_number;type:varchar(50)" json:"record_number"`
	FullName               string     `gorm:"column:full_name;type:varchar(200)" json:"full_name"`
	BirthDate              Date       `gorm:"column:birth_date;type:varchar(32)" json:"birth_date"`
	BirthWeightG           *float64   `gorm:"column:birth_weight_g" json:"birth_weight_g"`
	BirthHeightCm          *float64   `gorm:"column:birth_height_cm" json:"birth_height_cm"`
	Sex                    Sex        `gorm:"column:sex;type:varchar(1)" json:"sex"`
	CleftType              CleftType  `gorm:"column:cleft_type;type:varchar(20)" json:"cleft_type"`
	Laterality             Laterality `gorm:"column:laterality;type:varchar(20)" json:"laterality"`
	Severity               Severity   `gorm:"column:severity;type:varchar(20)" json:"severity"`
	AssociatedMalformation Flag       `gorm:"column:associated_malformation;type:varchar(20)" json:"associated_malformation"`
	MotherOccupation       string     `gorm:"column:mother_occupation;type:varchar(100)" json:"mother_occupation"`
	FatherOccupation       string     `gorm:"column:father_occupation;type:varchar(100)" json:"father_occupation"`
	ResidenceArea          string     `gorm:"column:residence_area;type:varchar(100)" json:"residence_area"`
	SiblingCount           *int       `gorm:"column:sibling_count" json:"sibling_count"`
}

// VisitAttributes are measured or answered at each consultation.
type VisitAttributes struct {
	VisitDate          Date        `gorm:"column:visit_date;type:varchar(32);index" json:"visit_date"`
	WeightG            *float64    `gorm:"column:weight_g" json:"weight_g"`
	HeightCm           *float64    `gorm:"column:height_cm" json:"height_cm"`
	ArmCircumferenceMm *float64    `gorm:"column:arm_circumference_mm" json:"arm_circumference_mm"`
	FeedingMode        FeedingMode `gorm:"column:feeding_mode;type:varchar(30)" json:"feeding_mode"`

	DifficultySucking Flag `gorm:"column:difficulty_sucking;type:varchar(20)" json:"difficulty_sucking"`
	NasalLeakage      Flag `gorm:"column:nasal_leakage;type:varchar(20)" json:"nasal_leakage"`
	Vomiting          Flag `gorm:"column:vomiting;type:varchar(20)" json:"vomiting"`

	// Care actions; these five make up the care score.
	NutritionAdviceGiven    Flag `gorm:"column:nutrition_advice_given;type:varchar(20)" json:"nutrition_advice_given"`
	SpecificTechniqueTaught Flag `gorm:"column:specific_technique_taught;type:varchar(20)" json:"specific_technique_taught"`
	SpecificDeviceProvided  Flag `gorm:"column:specific_device_provided;type:varchar(20)" json:"specific_device_provided"`
	PrescriptionGiven       Flag `gorm:"column:prescription_given;type:varchar(20)" json:"prescription_given"`
	ReferredToNutritionist  Flag `gorm:"column:referred_to_nutritionist;type:varchar(20)" json:"referred_to_nutritionist"`

	ComplicationPresent Flag `gorm:"column:complication_present;type:varchar(20)" json:"complication_present"`
	ScheduledFollowUp   Flag `gorm:"column:scheduled_follow_up;type:varchar(20)" json:"scheduled_follow_up"`
	LostToFollowUp      Flag `gorm:"column:lost_to_follow_up;type:varchar(20)" json:"lost_to_follow_up"`
}

// Visit is one consultation of one patient. Derived values are never
// stored here; see the growth package.
type Visit struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	PatientID string `gorm:"column:patient_id;type:varchar(64);index" json:"patient_id"`

	PatientAttributes
	VisitAttributes

	CreatedBy *uuid.UUID `gorm:"column:created_by;type:uuid" json:"created_by,omitempty"`
}

func (Visit) TableName() string {
	return "clinical.visits"
}

// Clone returns a deep copy; pointer fields do not alias the original.
func (v Visit) Clone() Visit {
	c := v
	c.BirthWeightG = clonePtr(v.BirthWeightG)
	c.BirthHeightCm = clonePtr(v.BirthHeightCm)
	c.SiblingCount = clonePtr(v.SiblingCount)
	c.WeightG = clonePtr(v.WeightG)
	c.HeightCm = clonePtr(v.HeightCm)
	c.ArmCircumferenceMm = clonePtr(v.ArmCircumferenceMm)
	c.CreatedBy = clonePtr(v.CreatedBy)
	return c
}

// CloneAll copies a collection so it can be handed around as a snapshot.
func CloneAll(vs []Visit) []Visit {
	out := make([]Visit, len(vs))
	for i := range vs {
		out[i] = vs[i].Clone()
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
