package models

import "testing"

func TestFundingPercentage(t *testing.T) {
	tests := []struct {
		name    string
		current int64
		target  int64
		want    float64
	}{
		{"empty project", 0, 24000, 0},
		{"one decimal rounding", 1000, 24000, 4.2},
		{"exact third", 8000, 24000, 33.3},
		{"half", 12000, 24000, 50},
		{"fully funded", 24000, 24000, 100},
		{"zero target", 500, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FundingPercentage(tt.current, tt.target); got != tt.want {
				t.Fatalf("FundingPercentage(%d, %d) = %v, want %v", tt.current, tt.target, got, tt.want)
			}
		})
	}
}

func TestRemaining(t *testing.T) {
	if got := Remaining(1000, 24000); got != 23000 {
		t.Fatalf("expected 23000 remaining, got %d", got)
	}
	if got := Remaining(24000, 24000); got != 0 {
		t.Fatalf("expected 0 remaining at target, got %d", got)
	}
	if got := Remaining(25000, 24000); got != 0 {
		t.Fatalf("remaining must never go negative, got %d", got)
	}
}

func TestIsFullyFunded(t *testing.T) {
	if IsFullyFunded(23999, 24000) {
		t.Fatal("23999/24000 must not be fully funded")
	}
	if !IsFullyFunded(24000, 24000) {
		t.Fatal("24000/24000 must be fully funded")
	}
}

func TestMinInitialContribution(t *testing.T) {
	tests := []struct {
		name        string
		creatorType string
		target      int64
		want        int64
	}{
		{"individual 5%", CreatorTypeIndividual, 24000, 1200},
		{"company 30%", CreatorTypeCompany, 24000, 7200},
		{"individual rounds up", CreatorTypeIndividual, 1010, 51},
		{"company rounds up", CreatorTypeCompany, 1001, 301},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MinInitialContribution(tt.creatorType, tt.target); got != tt.want {
				t.Fatalf("MinInitialContribution(%s, %d) = %d, want %d", tt.creatorType, tt.target, got, tt.want)
			}
		})
	}
}
