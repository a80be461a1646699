package utils

import (
	"testing"

	"github.com/google/uuid"
)

func TestRoundTo(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		places   int
		expected float64
	}{
		{"exact", 1.0, 2, 1.0},
		{"two thirds", 2.0 / 3.0, 2, 0.67},
		{"one third", 1.0 / 3.0, 2, 0.33},
		{"half rounds away from zero", 0.125, 2, 0.13},
		{"negative", -1.56, 1, -1.6},
		{"zero places", 2.5, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoundTo(tt.value, tt.places); got != tt.expected {
				t.Errorf("RoundTo(%v, %d) = %v, expected %v", tt.value, tt.places, got, tt.expected)
			}
		})
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(0.8333333); got != 0.83 {
		t.Errorf("Round2 = %v, expected 0.83", got)
	}
}

func TestNewConnectionID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewConnectionID()
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("NewConnectionID returned invalid UUID %q: %v", id, err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}

	if NewRequestID() == NewRequestID() {
		t.Error("request IDs must differ")
	}
}

func TestValidRequestID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"abc-123", true},
		{NewRequestID(), true},
		{"", false},
		{"has space", false},
		{"line\nbreak", false},
		{"ünicode", false},
		{string(make([]byte, 65)), false},
	}
	for _, tt := range tests {
		if got := ValidRequestID(tt.id); got != tt.valid {
			t.Errorf("ValidRequestID(%q) = %v, expected %v", tt.id, got, tt.valid)
		}
	}
}
