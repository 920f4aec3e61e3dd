package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/swimlog/swimsync/internal/config"
	"github.com/swimlog/swimsync/internal/exporter"
	"github.com/swimlog/swimsync/internal/garmin"
	"github.com/swimlog/swimsync/internal/metrics"
	"github.com/swimlog/swimsync/internal/secrets"
	"github.com/swimlog/swimsync/internal/sessions"
)

// ErrMFAPending tells the CLI that login stopped at a step-up challenge.
// The ticket has been persisted; `swimsync mfa <code>` completes it.
var ErrMFAPending = errors.New("mfa challenge pending, resume with a one-time code")

// Pipeline wires the secret store, the Connect client, the session store and
// the exporters into the fetch → aggregate → export flow.
type Pipeline struct {
	cfg       *config.Config
	store     secrets.Store
	client    *garmin.Client
	state     *sessions.Store
	exporters []exporter.Exporter
}

// New assembles a pipeline from configuration.
func New(cfg *config.Config) (*Pipeline, error) {
	store, err := buildSecretStore(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithStore(cfg, store)
}

// NewWithStore assembles a pipeline around an explicit secret store.
func NewWithStore(cfg *config.Config, store secrets.Store) (*Pipeline, error) {
	state, err := sessions.NewStore(cfg.StateDir)
	if err != nil {
		return nil, err
	}

	client := garmin.NewClient(garmin.WithBaseURL(cfg.Garmin.Endpoint))

	exporters := []exporter.Exporter{exporter.NewCSV(cfg.Export.CSVPath)}
	if len(cfg.Export.SpreadsheetID) > 0 {
		sheetsExporter, err := exporter.NewSheets(context.Background(),
			cfg.Export.GoogleCredentials, cfg.Export.GoogleToken, cfg.Export.SpreadsheetID)
		if err != nil {
			return nil, fmt.Errorf("configuring sheets export: %w", err)
		}
		exporters = append(exporters, sheetsExporter)
	}

	return &Pipeline{
		cfg:       cfg,
		store:     store,
		client:    client,
		state:     state,
		exporters: exporters,
	}, nil
}

func buildSecretStore(cfg *config.Config) (secrets.Store, error) {
	switch strings.ToLower(cfg.Secrets.Backend) {
	case "", "bitwarden":
		return secrets.NewBitwarden(secrets.WithExecutable(cfg.Secrets.Executable)), nil
	case "vault":
		return secrets.NewVault(cfg.Secrets.VaultAddress, cfg.Secrets.VaultToken, cfg.Secrets.VaultMount)
	default:
		return nil, fmt.Errorf("unknown secrets backend %q", cfg.Secrets.Backend)
	}
}

// Authenticate establishes a live session. A persisted, still-valid session
// is reused without touching the secret store; otherwise the credential pair
// is pulled, consumed by Login and dropped. When the account wants a
// one-time code the ticket is persisted and ErrMFAPending comes back.
func (p *Pipeline) Authenticate(ctx context.Context) error {
	if stored, err := p.state.LoadSession(); err == nil {
		if err := p.client.RestoreSession(stored); err == nil {
			logrus.WithField("displayName", stored.DisplayName).
				Debugln("Reusing persisted session")
			return nil
		}
		logrus.Debugln("Persisted session expired, logging in again")
	}

	if err := p.store.CheckAvailable(ctx); err != nil {
		return err
	}
	if err := p.store.Authenticate(ctx); err != nil {
		return err
	}
	defer p.store.Logout(ctx)

	creds, err := p.store.GetCredentials(ctx, p.cfg.Garmin.CredentialItem)
	if err != nil {
		return err
	}

	result, err := p.client.Login(ctx, creds.Username, creds.Password)
	if err != nil {
		return err
	}

	if result.Status == garmin.AuthMFARequired {
		if err := p.state.SaveChallenge(result.Challenge.Ticket); err != nil {
			return fmt.Errorf("persisting mfa challenge: %w", err)
		}
		return ErrMFAPending
	}

	return p.state.SaveSession(result.Session)
}

// ResumeMFA completes a challenge persisted by an earlier Authenticate.
func (p *Pipeline) ResumeMFA(ctx context.Context, code string) error {
	ticket, err := p.state.LoadChallenge()
	if err != nil {
		return garmin.ErrNoPendingChallenge
	}
	if err := p.client.RestoreChallenge(ticket); err != nil {
		return err
	}

	result, err := p.client.ResumeWithCode(ctx, code)
	if err != nil {
		return err
	}

	return p.state.SaveSession(result.Session)
}

// Sync fetches, aggregates and exports one record per day in [start, end].
func (p *Pipeline) Sync(ctx context.Context, start, end time.Time) error {
	if end.Before(start) {
		return fmt.Errorf("end date %s before start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	var records []exporter.Record
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		record, err := p.syncDay(ctx, day)
		if err != nil {
			return fmt.Errorf("syncing %s: %w", day.Format("2006-01-02"), err)
		}
		records = append(records, *record)
	}

	for _, e := range p.exporters {
		if err := e.Export(ctx, records); err != nil {
			return err
		}
	}

	logrus.WithField("days", len(records)).Infoln("Sync complete")
	return nil
}

func (p *Pipeline) syncDay(ctx context.Context, day time.Time) (*exporter.Record, error) {
	logrus.WithField("date", day.Format("2006-01-02")).Debugln("Fetching day")

	activities, err := withRetry(ctx, func() ([]garmin.Activity, error) {
		return p.client.ActivitiesByDate(ctx, day, day)
	})
	if err != nil {
		return nil, err
	}

	// The wellness payloads are best effort: a day without them still gets
	// its activity row. Only a rejected session aborts the day.
	var health metrics.HealthInputs
	if health.Summary, err = bestEffort(ctx, "daily summary", func() (*garmin.DailySummary, error) {
		return p.client.DailySummary(ctx, day)
	}); err != nil {
		return nil, err
	}
	if health.Sleep, err = bestEffort(ctx, "sleep data", func() (*garmin.SleepData, error) {
		return p.client.SleepData(ctx, day)
	}); err != nil {
		return nil, err
	}
	if health.Body, err = bestEffort(ctx, "body composition", func() (*garmin.BodyComposition, error) {
		return p.client.BodyComposition(ctx, day)
	}); err != nil {
		return nil, err
	}
	if health.HRV, err = bestEffort(ctx, "hrv data", func() (*garmin.HRVData, error) {
		return p.client.HRVData(ctx, day)
	}); err != nil {
		return nil, err
	}
	if health.Training, err = bestEffort(ctx, "training status", func() (*garmin.TrainingStatus, error) {
		return p.client.TrainingStatus(ctx, day)
	}); err != nil {
		return nil, err
	}
	vo2max, err := bestEffort(ctx, "vo2max", func() (*float64, error) {
		v, err := p.client.VO2Max(ctx, day)
		return &v, err
	})
	if err != nil {
		return nil, err
	}
	if vo2max != nil {
		health.VO2Max = *vo2max
	}

	details := make(map[int64]*garmin.ActivityDetail)
	for _, a := range activities {
		if !metrics.IsSwim(a) {
			continue
		}
		detail, err := withRetry(ctx, func() (*garmin.ActivityDetail, error) {
			return p.client.ActivityDetail(ctx, a.ActivityID)
		})
		if err != nil {
			if errors.Is(err, garmin.ErrNotAuthenticated) {
				return nil, err
			}
			logrus.WithError(err).WithField("activity", a.ActivityID).
				Warnln("Activity detail unavailable")
			continue
		}
		details[a.ActivityID] = detail
	}

	return &exporter.Record{
		Date:   day,
		Swim:   metrics.AggregateSwim(day, activities, details),
		Health: metrics.AggregateHealth(day, health, activities),
	}, nil
}

// Logout tears everything down: remote session, persisted state, secret
// store session. Safe to call without ever having authenticated.
func (p *Pipeline) Logout(ctx context.Context) {
	p.client.Logout(ctx)
	if err := p.state.Clear(); err != nil {
		logrus.WithError(err).Warnln("Failed to clear persisted session")
	}
	p.store.Logout(ctx)
}

// Client exposes the underlying Connect client, used by the status command.
func (p *Pipeline) Client() *garmin.Client {
	return p.client
}

// SessionStore exposes the persisted-state store.
func (p *Pipeline) SessionStore() *sessions.Store {
	return p.state
}

// bestEffort fetches an optional wellness payload. Unavailable data degrades
// to nil with a warning; losing the session is the one failure that surfaces.
func bestEffort[T any](ctx context.Context, label string, fn func() (*T, error)) (*T, error) {
	value, err := withRetry(ctx, fn)
	if err != nil {
		if errors.Is(err, garmin.ErrNotAuthenticated) {
			return nil, err
		}
		logrus.WithError(err).WithField("payload", label).Warnln("Wellness payload unavailable")
		return nil, nil
	}
	return value, nil
}

const retryAttempts = 3

// retryBaseWait is a variable so tests can shrink the backoff.
var retryBaseWait = 2 * time.Second

// withRetry retries transient remote failures with exponential backoff.
// ErrNotAuthenticated and every other error class fail immediately.
func withRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			wait := retryBaseWait << (attempt - 1)
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(wait):
			}
		}

		value, err := fn()
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, garmin.ErrRemoteUnavailable) {
			return zero, err
		}
		lastErr = err
	}

	return zero, lastErr
}
