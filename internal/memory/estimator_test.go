package memory

import (
	"strings"
	"testing"
)

func TestEstimatorCount(t *testing.T) {
	est := NewEstimator()

	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"single char", "x", 1},
		{"four chars", "abcd", 1},
		{"char heuristic dominates", strings.Repeat("a", 400), 100},
		{"word floor dominates", strings.Repeat("a b ", 100), 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := est.Count(tt.text); got != tt.want {
				t.Errorf("Count(%q...) = %d, want %d", truncate(tt.text, 12), got, tt.want)
			}
		})
	}
}

func TestEstimatorMessageOverhead(t *testing.T) {
	est := NewEstimator()
	msg := Message{Role: RoleUser, Content: strings.Repeat("a", 400)}

	if got := est.CountMessage(msg); got != 100+roleOverhead {
		t.Errorf("CountMessage = %d, want %d", got, 100+roleOverhead)
	}
}

func TestEstimatorCountAll(t *testing.T) {
	est := NewEstimator()
	msgs := []Message{
		{Role: RoleSystem, Content: strings.Repeat("a", 40)},
		{Role: RoleUser, Content: strings.Repeat("b", 40)},
	}

	want := 2 * (10 + roleOverhead)
	if got := est.CountAll(msgs); got != want {
		t.Errorf("CountAll = %d, want %d", got, want)
	}
}
