package patient

import (
	"fmt"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"
)

// GenerateID builds a "SURNAME_NNN" identifier from the first word of the
// full name, upper-cased with diacritics removed. NNN is one more than the
// number of existing IDs sharing the prefix, zero-padded to three digits.
func GenerateID(fullName string, existing []string) string {
	words := strings.Fields(fullName)
	if len(words) == 0 {
		return ""
	}
	surname := visit.FoldAccents(strings.ToUpper(words[0]))
	prefix := surname + "_"

	n := 0
	for _, id := range existing {
		if strings.HasPrefix(id, prefix) {
			n++
		}
	}
	return fmt.Sprintf("%s%03d", prefix, n+1)
}
