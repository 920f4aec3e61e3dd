package metrics

import (
	"strings"
	"time"

	"github.com/swimlog/swimsync/internal/garmin"
)

// HealthInputs bundles the per-day wellness payloads feeding the health
// rollup. Any pointer may be nil when the remote had nothing for that day.
type HealthInputs struct {
	Summary  *garmin.DailySummary
	Sleep    *garmin.SleepData
	Body     *garmin.BodyComposition
	HRV      *garmin.HRVData
	Training *garmin.TrainingStatus
	VO2Max   float64
}

// AggregateHealth rolls the wellness payloads and activity list into one
// HealthMetrics row. Like AggregateSwim this is a pure function; missing
// payloads just leave their fields zero.
func AggregateHealth(date time.Time, in HealthInputs, activities []garmin.Activity) HealthMetrics {
	m := HealthMetrics{Date: date}

	if in.Summary != nil {
		m.ActiveCalories = in.Summary.ActiveKilocalories
		m.RestingCalories = in.Summary.BMRKilocalories
		m.RestingHeartRate = in.Summary.RestingHeartRate
		m.AverageStress = in.Summary.AverageStressLevel
		m.TotalSteps = in.Summary.TotalSteps
		// Vigorous minutes count double, matching Garmin's own weekly goal math.
		m.IntensityMinutes = in.Summary.ModerateIntensityMinutes + 2*in.Summary.VigorousIntensityMinutes
	}

	m.SleepScore = in.Sleep.SleepScore()
	m.SleepHours = in.Sleep.SleepHours()
	m.WeightKg = in.Body.WeightKg()
	m.BodyFatPercent = in.Body.BodyFatPercent()
	m.HRVLastNightAvg = in.HRV.LastNightAvg()
	m.HRVStatus = in.HRV.Status()
	m.TrainingStatus = in.Training.Phrase()
	m.VO2Max = in.VO2Max

	m.AllActivityCount = len(activities)
	for _, a := range activities {
		typeKey := strings.ToLower(a.ActivityType.TypeKey)
		switch {
		case strings.Contains(typeKey, "run") || a.ActivityType.ParentTypeID == 1:
			m.RunningActivityCount++
			m.RunningDistanceKm += a.Distance / 1000
		case strings.Contains(typeKey, "cycling") || strings.Contains(typeKey, "virtual_ride") || a.ActivityType.ParentTypeID == 2:
			m.CyclingActivityCount++
			m.CyclingDistanceKm += a.Distance / 1000
		case strings.Contains(typeKey, "strength"):
			m.StrengthActivityCount++
			m.StrengthDurationMin += a.Duration / 60
		case strings.Contains(typeKey, "cardio"):
			m.CardioActivityCount++
			m.CardioDurationMin += a.Duration / 60
		}
	}

	return m
}
