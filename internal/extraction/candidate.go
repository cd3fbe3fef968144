package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"
)

// Candidate is what the vision model read from one or more photographed
// follow-up sheets. Keys follow the paper forms, which are in French.
type Candidate struct {
	Type       string           `json:"type"`
	Patient    CandidatePatient `json:"patient"`
	Visits     []CandidateVisit `json:"visites"`
	Confidence string           `json:"confiance"`
	Notes      string           `json:"notes"`
}

type CandidatePatient struct {
	RecordNumber           string `json:"id_fiche"`
	FullName               string `json:"nom_prenom"`
	BirthDate              string `json:"date_naissance"`
	BirthWeightG           Number `json:"poids_naissance_g"`
	BirthHeightCm          Number `json:"taille_naissance_cm"`
	Sex                    string `json:"sexe"`
	CleftType              string `json:"type_fente"`
	Laterality             string `json:"lateralite"`
	Severity               string `json:"severite"`
	AssociatedMalformation string `json:"malform_assoc"`
	MotherOccupation       string `json:"prof_mere"`
	FatherOccupation       string `json:"prof_pere"`
	ResidenceArea          string `json:"milieu_residence"`
}

type CandidateVisit struct {
	VisitDate          string `json:"date_consult"`
	WeightG            Number `json:"poids_g"`
	HeightCm           Number `json:"taille_cm"`
	ArmCircumferenceMm Number `json:"pb_mm"`
}

// Number decodes a model-produced measure. Models return numbers, numeric
// strings ("3 200", "3,2") or null; anything unreadable becomes absent
// instead of failing the whole candidate.
type Number struct {
	v *float64
}

func NumberOf(f float64) Number { return Number{v: &f} }

func (n Number) Ptr() *float64 {
	if n.v == nil {
		return nil
	}
	f := *n.v
	return &f
}

func (n *Number) UnmarshalJSON(b []byte) error {
	n.v = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	var raw string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil
		}
	} else {
		raw = string(b)
	}
	raw = strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	raw = strings.ReplaceAll(raw, ",", ".")
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		n.v = &f
	}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if n.v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.v)
}

// ToCommands turns a reviewed candidate into one create command per visit,
// each carrying the patient attributes. A candidate with no visits yields a
// single row holding only the patient attributes. Labels that match no
// known option are left empty and reported in warnings.
func (c *Candidate) ToCommands(patientID string) ([]visit.CreateVisitCommand, []string) {
	var warnings []string
	attrs := c.Patient.attributes(&warnings)

	if len(c.Visits) == 0 {
		return []visit.CreateVisitCommand{{PatientID: patientID, PatientAttributes: attrs}}, warnings
	}

	cmds := make([]visit.CreateVisitCommand, 0, len(c.Visits))
	for i, cv := range c.Visits {
		cmd := visit.CreateVisitCommand{PatientID: patientID, PatientAttributes: attrs}
		cmd.VisitDate = visit.Date(strings.TrimSpace(cv.VisitDate)).Normalize()
		if !cmd.VisitDate.IsValid() {
			warnings = append(warnings, fmt.Sprintf("visit %d: unreadable date %q", i+1, cv.VisitDate))
			cmd.VisitDate = ""
		}
		cmd.WeightG = positive(cv.WeightG, fmt.Sprintf("visit %d: weight", i+1), &warnings)
		cmd.HeightCm = positive(cv.HeightCm, fmt.Sprintf("visit %d: height", i+1), &warnings)
		cmd.ArmCircumferenceMm = positive(cv.ArmCircumferenceMm, fmt.Sprintf("visit %d: arm circumference", i+1), &warnings)
		cmds = append(cmds, cmd)
	}
	return cmds, warnings
}

func (p CandidatePatient) attributes(warnings *[]string) visit.PatientAttributes {
	a := visit.PatientAttributes{
		RecordNumber:     strings.TrimSpace(p.RecordNumber),
		FullName:         strings.TrimSpace(p.FullName),
		BirthDate:        visit.Date(strings.TrimSpace(p.BirthDate)).Normalize(),
		BirthWeightG:     positive(p.BirthWeightG, "birth weight", warnings),
		BirthHeightCm:    positive(p.BirthHeightCm, "birth height", warnings),
		MotherOccupation: strings.TrimSpace(p.MotherOccupation),
		FatherOccupation: strings.TrimSpace(p.FatherOccupation),
		ResidenceArea:    strings.TrimSpace(p.ResidenceArea),
	}
	if !a.BirthDate.IsValid() {
		*warnings = append(*warnings, fmt.Sprintf("birth date: unreadable %q", p.BirthDate))
		a.BirthDate = ""
	}

	a.Sex = parseOr(p.Sex, "sex", visit.ParseSex, warnings)
	a.CleftType = parseOr(p.CleftType, "cleft type", visit.ParseCleftType, warnings)
	a.Laterality = parseOr(p.Laterality, "laterality", visit.ParseLaterality, warnings)
	a.Severity = parseOr(p.Severity, "severity", visit.ParseSeverity, warnings)
	a.AssociatedMalformation = parseOr(p.AssociatedMalformation, "associated malformation", visit.ParseFlag, warnings)
	return a
}

func parseOr[T ~string](raw, field string, parse func(string) (T, bool), warnings *[]string) T {
	v, ok := parse(raw)
	if !ok {
		*warnings = append(*warnings, fmt.Sprintf("%s: unknown value %q", field, raw))
	}
	return v
}

func positive(n Number, field string, warnings *[]string) *float64 {
	p := n.Ptr()
	if p != nil && *p <= 0 {
		*warnings = append(*warnings, fmt.Sprintf("%s: ignored non-positive value %v", field, *p))
		return nil
	}
	return p
}

// StripFences removes a surrounding markdown code fence, with or without a
// "json" language tag.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
