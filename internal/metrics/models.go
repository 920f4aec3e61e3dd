package metrics

import "time"

// SwimMetrics is the per-day swimming rollup. Absent data is zero-valued,
// never an error: a day without swims still produces a row.
type SwimMetrics struct {
	Date time.Time

	SwimActivityCount  int
	SwimDistanceKm     float64
	SwimDurationMin    float64
	SwimLaps           int
	PoolSwimCount      int
	OpenWaterSwimCount int

	AvgPacePer100mMin float64 // minutes per 100 m across all swims
	MaxPacePer100mMin float64 // fastest pace seen, minutes per 100 m
	AvgHR             float64
	MaxHR             float64

	StrokesPerLength  float64
	StrokesPerMinute  float64
	AvgSwolf          float64
	TotalStrokes      int
}

// HealthMetrics is the general daily health rollup.
type HealthMetrics struct {
	Date time.Time

	SleepScore float64
	SleepHours float64

	WeightKg       float64
	BodyFatPercent float64

	ActiveCalories   float64
	RestingCalories  float64
	RestingHeartRate int
	AverageStress    int
	IntensityMinutes int
	TotalSteps       int

	VO2Max          float64
	HRVLastNightAvg float64
	HRVStatus       string
	TrainingStatus  string

	AllActivityCount      int
	RunningActivityCount  int
	RunningDistanceKm     float64
	CyclingActivityCount  int
	CyclingDistanceKm     float64
	StrengthActivityCount int
	StrengthDurationMin   float64
	CardioActivityCount   int
	CardioDurationMin     float64
}
