package garmin

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// DailySummary fetches the user summary for one calendar day.
func (c *Client) DailySummary(ctx context.Context, day time.Time) (*DailySummary, error) {
	session, err := c.requireSession()
	if err != nil {
		return nil, err
	}

	var summary DailySummary
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("calendarDate", day.Format(dateLayout)).
		SetResult(&summary).
		Get(fmt.Sprintf("/usersummary-service/usersummary/daily/%s", session.DisplayName))
	if err := c.fetchErr(resp, err); err != nil {
		return nil, err
	}
	return &summary, nil
}

// SleepData fetches the sleep payload for one night.
func (c *Client) SleepData(ctx context.Context, day time.Time) (*SleepData, error) {
	session, err := c.requireSession()
	if err != nil {
		return nil, err
	}

	var sleep SleepData
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("date", day.Format(dateLayout)).
		SetResult(&sleep).
		Get(fmt.Sprintf("/wellness-service/wellness/dailySleepData/%s", session.DisplayName))
	if err := c.fetchErr(resp, err); err != nil {
		return nil, err
	}
	return &sleep, nil
}

// BodyComposition fetches the weight and body fat rollup for one day.
func (c *Client) BodyComposition(ctx context.Context, day time.Time) (*BodyComposition, error) {
	if _, err := c.requireSession(); err != nil {
		return nil, err
	}

	var body BodyComposition
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"startDate": day.Format(dateLayout),
			"endDate":   day.Format(dateLayout),
		}).
		SetResult(&body).
		Get("/weight-service/weight/dateRange")
	if err := c.fetchErr(resp, err); err != nil {
		return nil, err
	}
	return &body, nil
}

// TrainingStatus fetches the aggregated training status for one day.
func (c *Client) TrainingStatus(ctx context.Context, day time.Time) (*TrainingStatus, error) {
	if _, err := c.requireSession(); err != nil {
		return nil, err
	}

	var status TrainingStatus
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&status).
		Get(fmt.Sprintf("/metrics-service/metrics/trainingstatus/aggregated/%s", day.Format(dateLayout)))
	if err := c.fetchErr(resp, err); err != nil {
		return nil, err
	}
	return &status, nil
}

// HRVData fetches the nightly heart-rate-variability summary.
func (c *Client) HRVData(ctx context.Context, day time.Time) (*HRVData, error) {
	if _, err := c.requireSession(); err != nil {
		return nil, err
	}

	var hrv HRVData
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&hrv).
		Get(fmt.Sprintf("/hrv-service/hrv/%s", day.Format(dateLayout)))
	if err := c.fetchErr(resp, err); err != nil {
		return nil, err
	}
	return &hrv, nil
}

// VO2Max fetches the day's VO2max estimate, zero when the day has none.
func (c *Client) VO2Max(ctx context.Context, day time.Time) (float64, error) {
	if _, err := c.requireSession(); err != nil {
		return 0, err
	}

	date := day.Format(dateLayout)
	var entries []maxMetEntry
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&entries).
		Get(fmt.Sprintf("/metrics-service/metrics/maxmet/daily/%s/%s", date, date))
	if err := c.fetchErr(resp, err); err != nil {
		return 0, err
	}

	for _, e := range entries {
		if e.Generic.VO2MaxPreciseValue > 0 {
			return e.Generic.VO2MaxPreciseValue, nil
		}
	}
	return 0, nil
}

// ActivitiesByDate lists activities whose start date falls in [start, end].
func (c *Client) ActivitiesByDate(ctx context.Context, start, end time.Time) ([]Activity, error) {
	if _, err := c.requireSession(); err != nil {
		return nil, err
	}

	var activities []Activity
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"startDate": start.Format(dateLayout),
			"endDate":   end.Format(dateLayout),
			"start":     "0",
			"limit":     "100",
		}).
		SetResult(&activities).
		Get("/activitylist-service/activities/search/activities")
	if err := c.fetchErr(resp, err); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"start": start.Format(dateLayout),
		"end":   end.Format(dateLayout),
		"count": len(activities),
	}).Debugln("Fetched activities")

	return activities, nil
}

// ActivityDetail fetches the full detail for one activity.
func (c *Client) ActivityDetail(ctx context.Context, activityID int64) (*ActivityDetail, error) {
	if _, err := c.requireSession(); err != nil {
		return nil, err
	}

	var detail ActivityDetail
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&detail).
		Get(fmt.Sprintf("/activity-service/activity/%d", activityID))
	if err := c.fetchErr(resp, err); err != nil {
		return nil, err
	}
	return &detail, nil
}

// fetchErr maps transport failures and HTTP statuses onto the error
// taxonomy. A 401/419 drops the session handle: the remote no longer honors
// it and only a fresh login helps.
func (c *Client) fetchErr(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if resp == nil || !resp.IsError() {
		return nil
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == 419:
		c.invalidateSession()
		return fmt.Errorf("%w: session rejected by remote", ErrNotAuthenticated)
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: remote answered %d", ErrRemoteUnavailable, code)
	default:
		return fmt.Errorf("garmin request failed: %s", resp.Status())
	}
}
