package growth

import "github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"

type Summary struct {
	TotalVisits      int             `json:"total_visits"`
	TotalPatients    int             `json:"total_patients"`
	GoodGainVisits   int             `json:"good_gain_visits"`
	CounseledVisits  int             `json:"counseled_visits"`
	AverageCareScore float64         `json:"average_care_score"`
	PerPatient       []PatientRollup `json:"per_patient"`
}

// PatientRollup summarises one patient's visits in chronological order.
//
// TotalWeightChangeG is last minus first weight with a missing weight
// counted as zero. It is only meaningful when WeightChangeKnown is true,
// i.e. both endpoints carry a non-zero weight.
type PatientRollup struct {
	PatientID          string   `json:"patient_id"`
	DisplayName        string   `json:"display_name"`
	VisitCount         int      `json:"visit_count"`
	FirstWeightG       *float64 `json:"first_weight_g"`
	LastWeightG        *float64 `json:"last_weight_g"`
	TotalWeightChangeG float64  `json:"total_weight_change_g"`
	WeightChangeKnown  bool     `json:"weight_change_known"`
}

// Summarize aggregates rows that already carry their derived fields.
// Patients are listed in order of first appearance in rows.
func Summarize(rows []Row) Summary {
	s := Summary{
		TotalVisits: len(rows),
		PerPatient:  []PatientRollup{},
	}
	if len(rows) == 0 {
		return s
	}

	visits := make([]visit.Visit, len(rows))
	careTotal := 0
	var order []string
	seen := make(map[string]bool)
	for i, r := range rows {
		visits[i] = r.Visit
		careTotal += r.Derived.CareScore
		if r.Derived.GainGPerDay != nil && *r.Derived.GainGPerDay >= GoodGainGPerDay {
			s.GoodGainVisits++
		}
		if r.NutritionAdviceGiven.IsYes() {
			s.CounseledVisits++
		}
		if pid := r.PatientID; pid != "" && !seen[pid] {
			seen[pid] = true
			order = append(order, pid)
		}
	}
	s.TotalPatients = len(order)
	s.AverageCareScore = round1(float64(careTotal) / float64(len(rows)))

	idx := NewIndex(visits)
	for _, pid := range order {
		s.PerPatient = append(s.PerPatient, rollup(pid, idx.Ordered(pid)))
	}
	return s
}

func rollup(patientID string, ordered []visit.Visit) PatientRollup {
	first, last := ordered[0], ordered[len(ordered)-1]
	r := PatientRollup{
		PatientID:    patientID,
		DisplayName:  first.FullName,
		VisitCount:   len(ordered),
		FirstWeightG: copyFloat(first.WeightG),
		LastWeightG:  copyFloat(last.WeightG),
	}
	r.TotalWeightChangeG = valueOrZero(last.WeightG) - valueOrZero(first.WeightG)
	r.WeightChangeKnown = valueOrZero(first.WeightG) != 0 && valueOrZero(last.WeightG) != 0
	return r
}

func valueOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
