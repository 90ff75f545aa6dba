package domain

import "time"

// HydrationRecord is one committed check-in. Values are canonical metric
// (ml/g) regardless of the unit system the user answered in; caffeine is
// stored as given. Records are immutable once appended.
type HydrationRecord struct {
	Timestamp  time.Time
	WaterML    float64
	SugarML    float64
	CaffeineMG float64
	FoodsG     float64
	Notes      string
}
