package topic

import "testing"

func TestIsGreeting(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Hello there!", true},
		{"good morning team", true},
		{"Thanks a lot", true},
		{"namaste", true},
		{"Explain quantum entanglement", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsGreeting(tt.text); got != tt.want {
			t.Errorf("IsGreeting(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestIsAllowed(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"How do I improve pond water quality?", true},
		{"Best feed for tilapia fingerlings", true},
		{"shrimp hatchery biosecurity checklist", true},
		{"DAIRY cattle nutrition", true},
		{"Write me a poem about the moon", false},
		{"What is the capital of France?", false},
	}
	for _, tt := range tests {
		if got := IsAllowed(tt.text); got != tt.want {
			t.Errorf("IsAllowed(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
