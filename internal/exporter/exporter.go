package exporter

import (
	"context"
	"strconv"
	"time"

	"github.com/swimlog/swimsync/internal/metrics"
)

// Record is one date-keyed output row: the swim rollup plus the general
// health rollup for the same day.
type Record struct {
	Date   time.Time
	Swim   metrics.SwimMetrics
	Health metrics.HealthMetrics
}

// Exporter pushes records to a tabular destination. The pipeline treats
// destinations as interchangeable collaborators.
type Exporter interface {
	Export(ctx context.Context, records []Record) error
}

// header is the shared column layout for every tabular destination.
var header = []string{
	"date",
	"swim_activity_count", "swim_distance_km", "swim_duration_min", "swim_laps",
	"pool_swim_count", "open_water_swim_count",
	"avg_pace_per_100m", "max_pace_per_100m", "swim_avg_hr", "swim_max_hr",
	"strokes_per_length", "strokes_per_minute", "avg_swolf", "total_strokes",
	"sleep_score", "sleep_hours",
	"weight_kg", "body_fat_pct",
	"active_calories", "resting_calories", "resting_heart_rate",
	"average_stress", "intensity_minutes", "total_steps",
	"vo2max", "hrv_last_night_avg", "hrv_status", "training_status",
	"all_activity_count",
	"running_activity_count", "running_distance_km",
	"cycling_activity_count", "cycling_distance_km",
	"strength_activity_count", "strength_duration_min",
	"cardio_activity_count", "cardio_duration_min",
}

func (r Record) row() []string {
	return []string{
		r.Date.Format("2006-01-02"),
		itoa(r.Swim.SwimActivityCount),
		ftoa(r.Swim.SwimDistanceKm),
		ftoa(r.Swim.SwimDurationMin),
		itoa(r.Swim.SwimLaps),
		itoa(r.Swim.PoolSwimCount),
		itoa(r.Swim.OpenWaterSwimCount),
		ftoa(r.Swim.AvgPacePer100mMin),
		ftoa(r.Swim.MaxPacePer100mMin),
		ftoa(r.Swim.AvgHR),
		ftoa(r.Swim.MaxHR),
		ftoa(r.Swim.StrokesPerLength),
		ftoa(r.Swim.StrokesPerMinute),
		ftoa(r.Swim.AvgSwolf),
		itoa(r.Swim.TotalStrokes),
		ftoa(r.Health.SleepScore),
		ftoa(r.Health.SleepHours),
		ftoa(r.Health.WeightKg),
		ftoa(r.Health.BodyFatPercent),
		ftoa(r.Health.ActiveCalories),
		ftoa(r.Health.RestingCalories),
		itoa(r.Health.RestingHeartRate),
		itoa(r.Health.AverageStress),
		itoa(r.Health.IntensityMinutes),
		itoa(r.Health.TotalSteps),
		ftoa(r.Health.VO2Max),
		ftoa(r.Health.HRVLastNightAvg),
		r.Health.HRVStatus,
		r.Health.TrainingStatus,
		itoa(r.Health.AllActivityCount),
		itoa(r.Health.RunningActivityCount),
		ftoa(r.Health.RunningDistanceKm),
		itoa(r.Health.CyclingActivityCount),
		ftoa(r.Health.CyclingDistanceKm),
		itoa(r.Health.StrengthActivityCount),
		ftoa(r.Health.StrengthDurationMin),
		itoa(r.Health.CardioActivityCount),
		ftoa(r.Health.CardioDurationMin),
	}
}

func itoa(v int) string { return strconv.Itoa(v) }

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
