package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type InventoryLocation struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
}

type Inventory struct {
	AgencyID        uuid.UUID         `json:"agencyId"`
	TotalCapacity   float64           `json:"totalCapacity"`
	CurrentCapacity float64           `json:"currentCapacity"`
	Breakdown       map[string]int    `json:"breakdown" gorm:"-"`
	Location        InventoryLocation `json:"location" gorm:"embedded;embeddedPrefix:location_"`
	LastUpdated     time.Time         `json:"lastUpdated"`
}

// Occupancy returns current/total in [0,1]; an inventory without capacity is reported full.
func (i *Inventory) Occupancy() float64 {
	if i.TotalCapacity <= 0 {
		return 1
	}
	return i.CurrentCapacity / i.TotalCapacity
}

// Fits reports whether weight can be added without exceeding total capacity.
// Weights are compared in whole grams, the precision of the capacity columns.
func (i *Inventory) Fits(weight float64) bool {
	return Grams(i.CurrentCapacity)+Grams(weight) <= Grams(i.TotalCapacity)
}

// Grams converts a weight in kilograms to whole grams.
func Grams(kg float64) int64 {
	return int64(math.Round(kg * 1000))
}

// Kilograms converts whole grams back to kilograms.
func Kilograms(g int64) float64 {
	return float64(g) / 1000
}

// RoundWeight rounds kg to the nearest gram.
func RoundWeight(kg float64) float64 {
	return Kilograms(Grams(kg))
}
