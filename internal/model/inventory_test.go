package model

import "testing"

func TestFitsComparesWholeGrams(t *testing.T) {
	inv := Inventory{TotalCapacity: 0.3, CurrentCapacity: 0.1}
	if !inv.Fits(0.2) {
		t.Fatal("expected 0.1 + 0.2 to fit 0.3")
	}
	if inv.Fits(0.201) {
		t.Fatal("expected 0.1 + 0.201 to exceed 0.3")
	}
}

func TestWeightRounding(t *testing.T) {
	if got := Grams(0.30000000000000004); got != 300 {
		t.Fatalf("expected 300 g, got %d", got)
	}
	if got := RoundWeight(0.30000000000000004); got != 0.3 {
		t.Fatalf("expected 0.3, got %v", got)
	}
	if got := Kilograms(Grams(0.1) + Grams(0.2) - Grams(0.2)); got != 0.1 {
		t.Fatalf("expected 0.1, got %v", got)
	}
}
