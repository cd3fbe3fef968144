package growth

import (
	"math"
	"sort"
	"time"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"
)

const (
	daysPerMonth = 30.44

	// GoodGainGPerDay is the daily gain at or above which a visit counts as
	// improving.
	GoodGainGPerDay = 20.0

	// InsufficientGainGPerDay is the floor of the "Insufficient" band. Any
	// strictly positive rate below GoodGainGPerDay falls in it.
	InsufficientGainGPerDay = 0.0
)

// Derive computes the derived fields of target from the full visit
// collection. target is located among its patient's visits by ID; when it
// cannot be found, the visit number and every inter-visit field are absent.
// all is only read.
func Derive(target visit.Visit, all []visit.Visit) Fields {
	var group []visit.Visit
	if target.PatientID != "" {
		group = patientVisits(target.PatientID, all)
	}

	rank := -1
	for i := range group {
		if group[i].ID == target.ID {
			rank = i
			break
		}
	}
	return derive(target, group, rank)
}

// DeriveAll derives every visit of the snapshot, preserving input order.
// Visits are matched to their rank by position, so rows that share an ID
// (or have none yet) are still numbered correctly.
func DeriveAll(all []visit.Visit) []Row {
	idx := NewIndex(all)
	rows := make([]Row, len(all))
	for i := range all {
		rows[i] = Row{Visit: all[i].Clone(), Derived: idx.deriveAt(i)}
	}
	return rows
}

// Index groups and orders every patient of one snapshot once, so that
// deriving many visits does not re-sort the collection each time. It holds
// no reference to anything but the snapshot it was built from.
type Index struct {
	all    []visit.Visit
	groups map[string][]int
	rank   []int
}

func NewIndex(all []visit.Visit) *Index {
	idx := &Index{
		all:    all,
		groups: make(map[string][]int),
		rank:   make([]int, len(all)),
	}
	for i := range all {
		idx.rank[i] = -1
		if pid := all[i].PatientID; pid != "" {
			idx.groups[pid] = append(idx.groups[pid], i)
		}
	}
	for _, positions := range idx.groups {
		sortPositions(all, positions)
		for r, pos := range positions {
			idx.rank[pos] = r
		}
	}
	return idx
}

// Derive behaves like the package-level Derive over the indexed snapshot.
func (x *Index) Derive(target visit.Visit) Fields {
	if target.PatientID == "" {
		return compute(target, -1, nil)
	}
	positions := x.groups[target.PatientID]
	for r, pos := range positions {
		if x.all[pos].ID != target.ID {
			continue
		}
		var prev *visit.Visit
		if r > 0 {
			prev = &x.all[positions[r-1]]
		}
		return compute(target, r, prev)
	}
	return compute(target, -1, nil)
}

// Ordered returns the patient's visits in chronological order.
func (x *Index) Ordered(patientID string) []visit.Visit {
	positions := x.groups[patientID]
	out := make([]visit.Visit, len(positions))
	for r, pos := range positions {
		out[r] = x.all[pos]
	}
	return out
}

func (x *Index) deriveAt(i int) Fields {
	target := x.all[i]
	positions := x.groups[target.PatientID]
	var prev *visit.Visit
	rank := x.rank[i]
	if rank > 0 {
		prev = &x.all[positions[rank-1]]
	}
	return compute(target, rank, prev)
}

func patientVisits(patientID string, all []visit.Visit) []visit.Visit {
	var positions []int
	for i := range all {
		if all[i].PatientID == patientID {
			positions = append(positions, i)
		}
	}
	sortPositions(all, positions)
	group := make([]visit.Visit, len(positions))
	for r, pos := range positions {
		group[r] = all[pos]
	}
	return group
}

// sortPositions orders positions by visit date, ascending. Visits without a
// parseable date come after every dated visit; ties keep input order.
func sortPositions(all []visit.Visit, positions []int) {
	dates := make(map[int]time.Time, len(positions))
	for _, pos := range positions {
		if t, ok := all[pos].VisitDate.Time(); ok {
			dates[pos] = t
		}
	}
	sort.SliceStable(positions, func(i, j int) bool {
		ti, okI := dates[positions[i]]
		tj, okJ := dates[positions[j]]
		switch {
		case okI && okJ:
			return ti.Before(tj)
		case okI:
			return true
		default:
			return false
		}
	})
}

func derive(target visit.Visit, group []visit.Visit, rank int) Fields {
	var prev *visit.Visit
	if rank > 0 {
		prev = &group[rank-1]
	}
	return compute(target, rank, prev)
}

func compute(target visit.Visit, rank int, prev *visit.Visit) Fields {
	f := Fields{
		CareScore:   CareScore(target),
		Improvement: ImprovementNA,
	}
	if rank >= 0 {
		f.VisitNumber = ptr(rank + 1)
	}

	visitDate, hasVisitDate := target.VisitDate.Time()
	if birth, ok := target.BirthDate.Time(); ok && hasVisitDate {
		if days := daysBetween(birth, visitDate); days >= 0 {
			months := round1(float64(days) / daysPerMonth)
			f.AgeDays = ptr(days)
			f.AgeMonths = ptr(months)
			f.AgeCategory = categorize(months)
		}
	}

	if hasVisitDate {
		y := visitDate.Year()
		f.Year = ptr(y)
		f.Period = PeriodOf(y)
	}

	if prev == nil {
		return f
	}

	f.PreviousWeightG = copyFloat(prev.WeightG)
	if target.WeightG != nil && prev.WeightG != nil {
		f.WeightGainG = ptr(*target.WeightG - *prev.WeightG)
	}
	if prevDate, ok := prev.VisitDate.Time(); ok && hasVisitDate {
		if days := daysBetween(prevDate, visitDate); days >= 0 {
			f.DaysSincePreviousVisit = ptr(days)
		}
	}
	if f.WeightGainG != nil && f.DaysSincePreviousVisit != nil && *f.DaysSincePreviousVisit > 0 {
		f.GainGPerDay = ptr(round1(*f.WeightGainG / float64(*f.DaysSincePreviousVisit)))
	}
	f.Improvement = Classify(f.GainGPerDay)
	return f
}

// CareScore counts the explicit "Yes" answers among the five care actions.
func CareScore(v visit.Visit) int {
	n := 0
	for _, flag := range []visit.Flag{
		v.NutritionAdviceGiven,
		v.SpecificTechniqueTaught,
		v.SpecificDeviceProvided,
		v.PrescriptionGiven,
		v.ReferredToNutritionist,
	} {
		if flag.IsYes() {
			n++
		}
	}
	return n
}

// Classify maps a daily gain rate to an improvement class. A nil rate is
// NotApplicable.
func Classify(gainPerDay *float64) Improvement {
	switch {
	case gainPerDay == nil:
		return ImprovementNA
	case *gainPerDay >= GoodGainGPerDay:
		return ImprovementYes
	case *gainPerDay > InsufficientGainGPerDay:
		return ImprovementInsufficient
	default:
		return ImprovementNo
	}
}

// PeriodOf buckets a calendar year. The boundaries are fixed.
func PeriodOf(year int) Period {
	switch {
	case year <= 2016:
		return Period2014to2016
	case year <= 2019:
		return Period2017to2019
	case year <= 2022:
		return Period2020to2022
	default:
		return Period2023to2025
	}
}

func categorize(months float64) AgeCategory {
	switch {
	case months < 1:
		return AgeNewborn
	case months < 12:
		return AgeInfant
	default:
		return AgeYoungChild
	}
}

// daysBetween counts whole days from one UTC-midnight date to another. It
// stays exact for spans beyond the range of time.Duration.
func daysBetween(from, to time.Time) int {
	secs := to.Unix() - from.Unix()
	days := secs / secondsPerDay
	if secs%secondsPerDay != 0 && secs < 0 {
		days--
	}
	return int(days)
}

const secondsPerDay = 24 * 60 * 60

// round1 rounds half up to one decimal, including for negative values.
func round1(x float64) float64 {
	return math.Floor(x*10+0.5) / 10
}

func ptr[T any](v T) *T { return &v }

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return ptr(*p)
}
