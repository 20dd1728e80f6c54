package harvest

import (
	"encoding/json"
	"testing"
)

func TestDefaultItemID(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want string
	}{
		{"string id", Item{"id": "abc"}, "abc"},
		{"number id", Item{"id": json.Number("19007199254740993")}, "19007199254740993"},
		{"missing id", Item{}, ""},
		{"nil id", Item{"id": nil}, ""},
		{"float id", Item{"id": 42.0}, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultItemID(tt.item); got != tt.want {
				t.Errorf("DefaultItemID(%v) = %q, want %q", tt.item, got, tt.want)
			}
		})
	}
}

func TestItemDate(t *testing.T) {
	if got := itemDate(Item{"date": "2024-01-05 12:00:00"}); got != "2024-01-05 12:00:00" {
		t.Errorf("itemDate = %q", got)
	}
	if got := itemDate(Item{}); got != "" {
		t.Errorf("itemDate on missing field = %q, want empty", got)
	}
}

func TestForgeIsPure(t *testing.T) {
	q := Query{Token: "t", StartDate: "2024-01-01T00:00:00", EndDate: "2024-02-01T00:00:00",
		Extra: map[string]string{"sort": "date"}}

	first := testForge(q)
	second := testForge(q)
	if first != second {
		t.Errorf("forging the same query twice gave %q then %q", first, second)
	}
}
