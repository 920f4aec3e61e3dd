package metrics

import (
	"strings"
	"time"

	"github.com/swimlog/swimsync/internal/garmin"
)

// Garmin parent type IDs that mark an activity as swimming. 26 is the
// current taxonomy node, 17 shows up on older accounts.
var swimParentTypeIDs = map[int]bool{17: true, 26: true}

// IsSwim reports whether an activity belongs to the swimming taxonomy.
func IsSwim(a garmin.Activity) bool {
	typeKey := strings.ToLower(a.ActivityType.TypeKey)
	return strings.Contains(typeKey, "swim") || swimParentTypeIDs[a.ActivityType.ParentTypeID]
}

// IsPoolSwim reports whether a swim happened in a pool.
func IsPoolSwim(a garmin.Activity) bool {
	typeKey := strings.ToLower(a.ActivityType.TypeKey)
	return strings.Contains(typeKey, "lap_swimming") || strings.Contains(typeKey, "pool")
}

// IsOpenWaterSwim reports whether a swim happened in open water.
func IsOpenWaterSwim(a garmin.Activity) bool {
	return strings.Contains(strings.ToLower(a.ActivityType.TypeKey), "open_water")
}

// AggregateSwim rolls a day's activities up into SwimMetrics. Pure function
// of its inputs: no fetching, no side effects. details is keyed by activity
// ID and may be sparse; stroke and SWOLF figures come from whatever details
// are present. A day with no swims yields all-zero metrics.
func AggregateSwim(date time.Time, activities []garmin.Activity, details map[int64]*garmin.ActivityDetail) SwimMetrics {
	m := SwimMetrics{Date: date}

	var (
		totalDistance float64 // meters
		totalDuration float64 // seconds
		hrWeighted    float64
		hrDuration    float64
		swolfSum      float64
		swolfCount    int
		cadenceSum    float64
		cadenceCount  int
	)

	for _, a := range activities {
		if !IsSwim(a) {
			continue
		}

		m.SwimActivityCount++
		totalDistance += a.Distance
		totalDuration += a.Duration
		m.SwimLaps += a.LapCount

		if IsPoolSwim(a) {
			m.PoolSwimCount++
		}
		if IsOpenWaterSwim(a) {
			m.OpenWaterSwimCount++
		}

		if a.AverageHR > 0 && a.Duration > 0 {
			hrWeighted += a.AverageHR * a.Duration
			hrDuration += a.Duration
		}
		if a.MaxHR > m.MaxHR {
			m.MaxHR = a.MaxHR
		}

		detail, ok := details[a.ActivityID]
		if !ok || detail == nil {
			continue
		}
		summary := detail.Summary

		m.TotalStrokes += summary.TotalStrokes
		if a.LapCount == 0 && summary.NumberOfLaps > 0 {
			m.SwimLaps += summary.NumberOfLaps
		}
		if summary.AvgSwolf > 0 {
			swolfSum += summary.AvgSwolf
			swolfCount++
		}
		if summary.StrokeCadencePerMin > 0 {
			cadenceSum += summary.StrokeCadencePerMin
			cadenceCount++
		}
		if summary.MaxSpeed > 0 {
			// MaxSpeed is m/s; fastest pace in minutes per 100 m.
			pace := 100 / summary.MaxSpeed / 60
			if m.MaxPacePer100mMin == 0 || pace < m.MaxPacePer100mMin {
				m.MaxPacePer100mMin = pace
			}
		}
	}

	m.SwimDistanceKm = totalDistance / 1000
	m.SwimDurationMin = totalDuration / 60

	if totalDistance > 0 {
		m.AvgPacePer100mMin = totalDuration / (totalDistance / 100) / 60
	}
	if hrDuration > 0 {
		m.AvgHR = hrWeighted / hrDuration
	}
	if m.SwimLaps > 0 && m.TotalStrokes > 0 {
		m.StrokesPerLength = float64(m.TotalStrokes) / float64(m.SwimLaps)
	}
	if cadenceCount > 0 {
		m.StrokesPerMinute = cadenceSum / float64(cadenceCount)
	} else if m.SwimDurationMin > 0 && m.TotalStrokes > 0 {
		m.StrokesPerMinute = float64(m.TotalStrokes) / m.SwimDurationMin
	}
	if swolfCount > 0 {
		m.AvgSwolf = swolfSum / float64(swolfCount)
	}

	return m
}
