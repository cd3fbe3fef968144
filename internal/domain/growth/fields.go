package growth

import (
	"encoding/json"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"
)

type AgeCategory string

const (
	AgeNewborn    AgeCategory = "Newborn"
	AgeInfant     AgeCategory = "Infant"
	AgeYoungChild AgeCategory = "Young Child"
)

func (c AgeCategory) MarshalJSON() ([]byte, error) { return nullIfEmpty(string(c)) }

// Period is the study's data-collection window a visit falls into.
type Period string

const (
	Period2014to2016 Period = "2014-2016"
	Period2017to2019 Period = "2017-2019"
	Period2020to2022 Period = "2020-2022"
	Period2023to2025 Period = "2023-2025"
)

func (p Period) MarshalJSON() ([]byte, error) { return nullIfEmpty(string(p)) }

type Improvement string

const (
	ImprovementYes          Improvement = "Yes"
	ImprovementInsufficient Improvement = "Insufficient"
	ImprovementNo           Improvement = "No"
	ImprovementNA           Improvement = "NotApplicable"
)

// Fields are the values derived for one visit. Nil pointers and empty
// strings mean the value could not be computed; they encode as JSON null.
type Fields struct {
	VisitNumber            *int        `json:"visit_number"`
	AgeDays                *int        `json:"age_days"`
	AgeMonths              *float64    `json:"age_months"`
	AgeCategory            AgeCategory `json:"age_category"`
	Year                   *int        `json:"year"`
	Period                 Period      `json:"period_bucket"`
	CareScore              int         `json:"care_score"`
	PreviousWeightG        *float64    `json:"previous_weight_g"`
	WeightGainG            *float64    `json:"weight_gain_g"`
	DaysSincePreviousVisit *int        `json:"days_since_previous_visit"`
	GainGPerDay            *float64    `json:"gain_g_per_day"`
	Improvement            Improvement `json:"improvement"`
}

// Row is a visit together with its derived fields.
type Row struct {
	visit.Visit
	Derived Fields `json:"derived"`
}

func nullIfEmpty(s string) ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	return json.Marshal(s)
}
