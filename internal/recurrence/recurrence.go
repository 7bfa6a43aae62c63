// Package recurrence infers how often a stream of semantically-equal
// transactions repeats.
package recurrence

import (
	"sort"

	"paycal/internal/core"
)

// Detect classifies the recurrence of a transaction stream from its observed
// dates. It is a pure function of the distinct date set: duplicates and
// ordering do not affect the result.
//
// The average gap between consecutive distinct dates decides the class:
// 6–8 days weekly, 12–18 biweekly, 26–32 monthly, above 32 up to 62
// bimonthly, anything else irregular. Fewer than two distinct dates means
// one-time. These boundaries are the canonical recurrence rule; downstream
// summaries treat everything that is not one-time as a recurring obligation.
func Detect(observed []core.Date) core.Frequency {
	unique := DistinctSorted(observed)
	if len(unique) < 2 {
		return core.FrequencyOneTime
	}

	var total float64
	for i := 1; i < len(unique); i++ {
		total += unique[i].Sub(unique[i-1].Time).Hours() / 24
	}
	avg := total / float64(len(unique)-1)

	switch {
	case avg >= 26 && avg <= 32:
		return core.FrequencyMonthly
	case avg >= 12 && avg <= 18:
		return core.FrequencyBiweekly
	case avg >= 6 && avg <= 8:
		return core.FrequencyWeekly
	case avg > 32 && avg <= 62:
		return core.FrequencyBimonthly
	default:
		return core.FrequencyIrregular
	}
}

// DistinctSorted returns the distinct non-zero dates in ascending order.
func DistinctSorted(observed []core.Date) []core.Date {
	seen := make(map[string]struct{}, len(observed))
	var unique []core.Date
	for _, d := range observed {
		if d.IsZero() {
			continue
		}
		key := d.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, d)
	}
	sort.Slice(unique, func(i, j int) bool {
		return unique[i].Before(unique[j].Time)
	})
	return unique
}
