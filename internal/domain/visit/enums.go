package visit

import (
	"strings"
)

// Empty enum values mean "not recorded". Parse* functions accept the
// canonical value as well as the French labels used on the paper sheets.

type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
)

func (s Sex) IsValid() bool {
	switch s {
	case "", SexMale, SexFemale:
		return true
	}
	return false
}

type CleftType string

const (
	CleftLabial       CleftType = "Labial"
	CleftPalatal      CleftType = "Palatal"
	CleftLabioPalatal CleftType = "Labio-palatal"
)

func (c CleftType) IsValid() bool {
	switch c {
	case "", CleftLabial, CleftPalatal, CleftLabioPalatal:
		return true
	}
	return false
}

type Laterality string

const (
	LateralityLeft      Laterality = "Left"
	LateralityRight     Laterality = "Right"
	LateralityBilateral Laterality = "Bilateral"
	LateralityNA        Laterality = "NA"
)

func (l Laterality) IsValid() bool {
	switch l {
	case "", LateralityLeft, LateralityRight, LateralityBilateral, LateralityNA:
		return true
	}
	return false
}

type Severity string

const (
	SeverityComplete    Severity = "Complete"
	SeverityIncomplete  Severity = "Incomplete"
	SeverityUnspecified Severity = "Unspecified"
)

func (s Severity) IsValid() bool {
	switch s {
	case "", SeverityComplete, SeverityIncomplete, SeverityUnspecified:
		return true
	}
	return false
}

// Flag is a ternary clinical answer.
type Flag string

const (
	FlagYes         Flag = "Yes"
	FlagNo          Flag = "No"
	FlagUnspecified Flag = "Unspecified"
)

func (f Flag) IsValid() bool {
	switch f {
	case "", FlagYes, FlagNo, FlagUnspecified:
		return true
	}
	return false
}

// IsYes reports an explicit "Yes". Unspecified and empty are not yes.
func (f Flag) IsYes() bool {
	return f == FlagYes
}

type FeedingMode string

const (
	FeedingExclusiveBreast FeedingMode = "Exclusive breastfeeding"
	FeedingMixed           FeedingMode = "Mixed"
	FeedingFormula         FeedingMode = "Formula"
	FeedingUnspecified     FeedingMode = "Unspecified"
)

func (m FeedingMode) IsValid() bool {
	switch m {
	case "", FeedingExclusiveBreast, FeedingMixed, FeedingFormula, FeedingUnspecified:
		return true
	}
	return false
}

func ParseSex(s string) (Sex, bool) {
	switch normalizeLabel(s) {
	case "":
		return "", true
	case "m", "male", "masculin", "garcon":
		return SexMale, true
	case "f", "female", "feminin", "fille":
		return SexFemale, true
	}
	return "", false
}

func ParseCleftType(s string) (CleftType, bool) {
	switch normalizeLabel(s) {
	case "":
		return "", true
	case "labial", "labiale":
		return CleftLabial, true
	case "palatal", "palatine":
		return CleftPalatal, true
	case "labio-palatal", "labiopalatal", "labiopalatine", "labio-palatine":
		return CleftLabioPalatal, true
	}
	return "", false
}

func ParseLaterality(s string) (Laterality, bool) {
	switch normalizeLabel(s) {
	case "":
		return "", true
	case "left", "gauche":
		return LateralityLeft, true
	case "right", "droite":
		return LateralityRight, true
	case "bilateral", "bilaterale":
		return LateralityBilateral, true
	case "na", "n/a":
		return LateralityNA, true
	}
	return "", false
}

func ParseSeverity(s string) (Severity, bool) {
	switch normalizeLabel(s) {
	case "":
		return "", true
	case "complete":
		return SeverityComplete, true
	case "incomplete":
		return SeverityIncomplete, true
	case "unspecified", "np":
		return SeverityUnspecified, true
	}
	return "", false
}

func ParseFlag(s string) (Flag, bool) {
	switch normalizeLabel(s) {
	case "":
		return "", true
	case "yes", "oui":
		return FlagYes, true
	case "no", "non":
		return FlagNo, true
	case "unspecified", "np":
		return FlagUnspecified, true
	}
	return "", false
}

func ParseFeedingMode(s string) (FeedingMode, bool) {
	switch normalizeLabel(s) {
	case "":
		return "", true
	case "exclusive breastfeeding", "ame":
		return FeedingExclusiveBreast, true
	case "mixed", "mixte":
		return FeedingMixed, true
	case "formula", "artificiel":
		return FeedingFormula, true
	case "unspecified", "np":
		return FeedingUnspecified, true
	}
	return "", false
}

func normalizeLabel(s string) string {
	return FoldAccents(strings.ToLower(strings.TrimSpace(s)))
}
