package booking

import (
	"fmt"
	"reflect"
	"testing"
)

func TestCandidateDates(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		available []string
		want      []string
	}{
		{
			name:      "target first, duplicates dropped",
			target:    "03/05/2026",
			available: []string{"03/04/2026", "03/05/2026", "03/06/2026"},
			want:      []string{"03/05/2026", "03/04/2026", "03/06/2026"},
		},
		{
			name:      "no target",
			target:    "",
			available: []string{"03/04/2026", "", "03/04/2026"},
			want:      []string{"03/04/2026"},
		},
		{
			name:      "target only",
			target:    "03/05/2026",
			available: nil,
			want:      []string{"03/05/2026"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CandidateDates(tt.target, tt.available)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CandidateDates() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCandidateDates_Capped(t *testing.T) {
	var available []string
	for i := 1; i <= 30; i++ {
		available = append(available, fmt.Sprintf("03/%02d/2026", i))
	}
	got := CandidateDates("", available)
	if len(got) != maxCandidates {
		t.Errorf("len = %d, want %d", len(got), maxCandidates)
	}
}

func TestDateVariants(t *testing.T) {
	got := DateVariants("3/5/2026")
	want := []string{"3/5/2026", "03/05/2026", "3/5", "03/05"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DateVariants(3/5/2026) = %v, want %v", got, want)
	}

	// A padded input parses too and keeps its literal form first.
	got = DateVariants("03/05/2026")
	if got[0] != "03/05/2026" {
		t.Errorf("first variant = %s, want the literal input", got[0])
	}

	// Unparseable text still yields the literal.
	got = DateVariants("Next Available")
	if !reflect.DeepEqual(got, []string{"Next Available"}) {
		t.Errorf("DateVariants(unparseable) = %v", got)
	}
}

func TestWeekday(t *testing.T) {
	if got := Weekday("03/09/2026"); got != "Monday" {
		t.Errorf("Weekday(03/09/2026) = %s, want Monday", got)
	}
	if got := Weekday("bogus"); got != "" {
		t.Errorf("Weekday(bogus) = %q, want empty", got)
	}
}

func TestSortDatesAscending(t *testing.T) {
	in := []string{"12/01/2026", "bogus", "03/05/2026", "11/30/2026"}
	got := SortDatesAscending(in)
	want := []string{"03/05/2026", "11/30/2026", "12/01/2026", "bogus"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortDatesAscending() = %v, want %v", got, want)
	}
	// input untouched
	if in[0] != "12/01/2026" {
		t.Error("SortDatesAscending() mutated its input")
	}
}
