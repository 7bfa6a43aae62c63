package recurrence

import (
	"testing"

	"paycal/internal/core"
)

func monthly(n int) []core.Date {
	var out []core.Date
	for i := 0; i < n; i++ {
		out = append(out, core.NewDate(2024, 1+i, 1))
	}
	return out
}

func every(start core.Date, step, n int) []core.Date {
	out := []core.Date{start}
	for i := 1; i < n; i++ {
		out = append(out, out[i-1].AddDays(step))
	}
	return out
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		observed []core.Date
		want     core.Frequency
	}{
		{"empty", nil, core.FrequencyOneTime},
		{"single date", []core.Date{core.NewDate(2024, 3, 1)}, core.FrequencyOneTime},
		{"duplicates of one day", []core.Date{core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 1)}, core.FrequencyOneTime},
		{"five consecutive firsts", monthly(5), core.FrequencyMonthly},
		{"twenty six day gap", every(core.NewDate(2024, 1, 1), 26, 3), core.FrequencyMonthly},
		{"thirty two day gap", every(core.NewDate(2024, 1, 1), 32, 3), core.FrequencyMonthly},
		{"fourteen day gap", every(core.NewDate(2024, 1, 5), 14, 4), core.FrequencyBiweekly},
		{"seven day gap", every(core.NewDate(2024, 1, 5), 7, 6), core.FrequencyWeekly},
		{"six day gap", every(core.NewDate(2024, 1, 5), 6, 4), core.FrequencyWeekly},
		{"sixty day gap", every(core.NewDate(2024, 1, 1), 60, 3), core.FrequencyBimonthly},
		{"thirty three day gap", every(core.NewDate(2024, 1, 1), 33, 3), core.FrequencyBimonthly},
		{"three day gap", every(core.NewDate(2024, 3, 1), 3, 4), core.FrequencyIrregular},
		{"ninety day gap", every(core.NewDate(2024, 1, 1), 90, 3), core.FrequencyIrregular},
		{"nine day gap", every(core.NewDate(2024, 1, 1), 9, 3), core.FrequencyIrregular},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.observed); got != tt.want {
				t.Errorf("Detect() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDetectOrderIndependent(t *testing.T) {
	ordered := monthly(4)
	shuffled := []core.Date{ordered[2], ordered[0], ordered[3], ordered[1]}
	if got := Detect(shuffled); got != core.FrequencyMonthly {
		t.Errorf("Detect(shuffled) = %s, want monthly", got)
	}
}

func TestDistinctSorted(t *testing.T) {
	input := []core.Date{
		core.NewDate(2024, 3, 10),
		{},
		core.NewDate(2024, 3, 1),
		core.NewDate(2024, 3, 10),
		core.NewDate(2024, 2, 15),
	}

	got := DistinctSorted(input)

	want := []string{"2024-02-15", "2024-03-01", "2024-03-10"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, d := range got {
		if d.String() != want[i] {
			t.Errorf("got[%d] = %s, want %s", i, d, want[i])
		}
	}
}
