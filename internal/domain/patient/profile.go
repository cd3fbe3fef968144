package patient

import (
	"sort"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"
)

// Profile is the set of fixed attributes used to pre-fill a new visit.
type Profile struct {
	PatientID string `json:"patient_id"`
	visit.PatientAttributes
}

// ProfileFrom picks the most recent visit (by visit date, undated last)
// that carries a non-empty name. ok is false when no visit qualifies.
func ProfileFrom(patientID string, visits []visit.Visit) (Profile, bool) {
	named := make([]visit.Visit, 0, len(visits))
	for _, v := range visits {
		if v.PatientID == patientID && strings.TrimSpace(v.FullName) != "" {
			named = append(named, v)
		}
	}
	if len(named) == 0 {
		return Profile{}, false
	}

	sort.SliceStable(named, func(i, j int) bool {
		ti, okI := named[i].VisitDate.Time()
		tj, okJ := named[j].VisitDate.Time()
		switch {
		case okI && okJ:
			return ti.After(tj)
		case okI:
			return true
		default:
			return false
		}
	})

	latest := named[0].Clone()
	return Profile{PatientID: patientID, PatientAttributes: latest.PatientAttributes}, true
}

// Autofill returns an update that copies the profile onto a visit.
func (p Profile) Autofill() visit.UpdateVisitCommand {
	var cmd visit.UpdateVisitCommand
	cmd.FillPatientAttributes(p.PatientAttributes)
	return cmd
}
