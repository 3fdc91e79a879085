package reconcile

import (
	"reflect"
	"testing"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name    string
		current []string
		next    []string
		want    Patch
	}{
		{"empty to empty", nil, nil, Patch{}},
		{"add all", nil, []string{"a", "b"}, Patch{Added: []string{"a", "b"}}},
		{"remove all", []string{"a", "b"}, nil, Patch{Removed: []string{"a", "b"}}},
		{"mixed", []string{"a", "b", "c"}, []string{"c", "d", "a"}, Patch{Removed: []string{"b"}, Added: []string{"d"}}},
		{"reorder is no-op", []string{"a", "b", "c"}, []string{"c", "b", "a"}, Patch{}},
		{"duplicates in next", []string{"a"}, []string{"b", "b", "a"}, Patch{Added: []string{"b"}}},
		{"exact match only", []string{"A.com"}, []string{"a.com"}, Patch{Removed: []string{"A.com"}, Added: []string{"a.com"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.current, tt.next)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Diff(%v, %v) = %+v, want %+v", tt.current, tt.next, got, tt.want)
			}
			if got.Empty() != tt.want.Empty() {
				t.Errorf("Empty() = %v", got.Empty())
			}
		})
	}
}
