package garmin

// Payload shapes for the Connect endpoints we read. Only the fields the
// pipeline consumes are mapped; everything else in the JSON is dropped.

// ActivityType is Garmin's activity taxonomy node.
type ActivityType struct {
	TypeKey      string `json:"typeKey"`
	ParentTypeID int    `json:"parentTypeId"`
}

// Activity is one entry from the activity search endpoint.
// Distances are meters, durations seconds.
type Activity struct {
	ActivityID     int64        `json:"activityId"`
	ActivityName   string       `json:"activityName"`
	StartTimeLocal string       `json:"startTimeLocal"`
	ActivityType   ActivityType `json:"activityType"`
	Distance       float64      `json:"distance"`
	Duration       float64      `json:"duration"`
	LapCount       int          `json:"lapCount"`
	AverageHR      float64      `json:"averageHR"`
	MaxHR          float64      `json:"maxHR"`
}

// ActivitySummary is the summaryDTO block of an activity detail.
type ActivitySummary struct {
	Distance            float64 `json:"distance"`
	Duration            float64 `json:"duration"`
	AverageSpeed        float64 `json:"averageSpeed"`
	MaxSpeed            float64 `json:"maxSpeed"`
	AverageHR           float64 `json:"averageHR"`
	MaxHR               float64 `json:"maxHR"`
	AvgSwolf            float64 `json:"avgSwolf"`
	TotalStrokes        int     `json:"totalNumberOfStrokes"`
	NumberOfLaps        int     `json:"numberOfLaps"`
	AvgStrokesPerLap    float64 `json:"averageStrokes"`
	StrokeCadencePerMin float64 `json:"averageSwimCadenceInStrokesPerMinute"`
}

// ActivityDetail is the per-activity detail payload.
type ActivityDetail struct {
	ActivityID int64           `json:"activityId"`
	Summary    ActivitySummary `json:"summaryDTO"`
}

// DailySummary is the user summary for one calendar day.
type DailySummary struct {
	CalendarDate             string  `json:"calendarDate"`
	ActiveKilocalories       float64 `json:"activeKilocalories"`
	BMRKilocalories          float64 `json:"bmrKilocalories"`
	ModerateIntensityMinutes int     `json:"moderateIntensityMinutes"`
	VigorousIntensityMinutes int     `json:"vigorousIntensityMinutes"`
	RestingHeartRate         int     `json:"restingHeartRate"`
	AverageStressLevel       int     `json:"averageStressLevel"`
	TotalSteps               int     `json:"totalSteps"`
}

// SleepData is the wellness sleep payload for one night.
type SleepData struct {
	DailySleepDTO struct {
		SleepTimeSeconds int `json:"sleepTimeSeconds"`
		SleepScores      struct {
			Overall struct {
				Value float64 `json:"value"`
			} `json:"overall"`
		} `json:"sleepScores"`
	} `json:"dailySleepDTO"`
}

// BodyComposition is the weight-service rollup for a date range.
type BodyComposition struct {
	TotalAverage struct {
		Weight  float64 `json:"weight"` // grams
		BodyFat float64 `json:"bodyFat"`
	} `json:"totalAverage"`
}

// WeightKg returns the average weight in kilograms, zero when absent.
func (b *BodyComposition) WeightKg() float64 {
	if b == nil {
		return 0
	}
	return b.TotalAverage.Weight / 1000
}

// BodyFatPercent returns the average body fat percentage, zero when absent.
func (b *BodyComposition) BodyFatPercent() float64 {
	if b == nil {
		return 0
	}
	return b.TotalAverage.BodyFat
}

// HRVData is the nightly heart-rate-variability summary.
type HRVData struct {
	HRVSummary struct {
		LastNightAvg float64 `json:"lastNightAvg"`
		Status       string  `json:"status"`
	} `json:"hrvSummary"`
}

func (h *HRVData) LastNightAvg() float64 {
	if h == nil {
		return 0
	}
	return h.HRVSummary.LastNightAvg
}

func (h *HRVData) Status() string {
	if h == nil {
		return ""
	}
	return h.HRVSummary.Status
}

// TrainingStatus is the aggregated training status payload. The interesting
// value sits one level down, keyed by the reporting device.
type TrainingStatus struct {
	MostRecentTrainingStatus struct {
		LatestTrainingStatusData map[string]struct {
			TrainingStatusFeedbackPhrase string `json:"trainingStatusFeedbackPhrase"`
		} `json:"latestTrainingStatusData"`
	} `json:"mostRecentTrainingStatus"`
}

// Phrase returns the feedback phrase of any reporting device, empty when no
// device has reported a status.
func (t *TrainingStatus) Phrase() string {
	if t == nil {
		return ""
	}
	for _, d := range t.MostRecentTrainingStatus.LatestTrainingStatusData {
		if len(d.TrainingStatusFeedbackPhrase) > 0 {
			return d.TrainingStatusFeedbackPhrase
		}
	}
	return ""
}

// maxMetEntry is one element of the daily max-met list.
type maxMetEntry struct {
	Generic struct {
		VO2MaxPreciseValue float64 `json:"vo2MaxPreciseValue"`
	} `json:"generic"`
}

// SleepScore returns the overall score, zero when absent.
func (s *SleepData) SleepScore() float64 {
	if s == nil {
		return 0
	}
	return s.DailySleepDTO.SleepScores.Overall.Value
}

// SleepHours returns the night's sleep length in hours.
func (s *SleepData) SleepHours() float64 {
	if s == nil {
		return 0
	}
	return float64(s.DailySleepDTO.SleepTimeSeconds) / 3600
}
