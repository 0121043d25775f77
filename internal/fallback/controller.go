// SPDX-License-Identifier: MIT

// Package fallback implements the per-request fallback controller: it walks
// an ordered plan of player-client profiles, classifies each failure and
// decides whether to advance, stop or give up.
package fallback

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vgrab/vgrab/internal/creds"
	"github.com/vgrab/vgrab/internal/extract"
	"github.com/vgrab/vgrab/internal/log"
	"github.com/vgrab/vgrab/internal/profile"
	"github.com/vgrab/vgrab/internal/telemetry"
)

var (
	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vgrab",
		Name:      "fallback_attempts_total",
		Help:      "Profile attempts by outcome and kind",
	}, []string{"profile", "outcome", "kind"})

	exhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vgrab",
		Name:      "fallback_exhausted_total",
		Help:      "Requests that exhausted every profile in their plan",
	})
)

// Reason tags a fallback failure.
type Reason string

const (
	// ReasonPermanent: an attempt failed with a permanent kind; later profiles
	// were not tried.
	ReasonPermanent Reason = "permanent"
	// ReasonExhausted: every profile in the plan failed transiently.
	ReasonExhausted Reason = "exhausted"
	// ReasonNoProfiles: the plan came up empty.
	ReasonNoProfiles Reason = "no_profiles"
	// ReasonTimeout: the per-request hard ceiling expired mid-plan.
	ReasonTimeout Reason = "timeout"
)

// Failure is the structured outcome of an unsuccessful fallback run. The
// attempt list is ordered exactly as the plan was walked.
type Failure struct {
	Reason   Reason
	Kind     extract.Kind
	Attempts []extract.Attempt
}

func (f *Failure) Error() string {
	return "fallback failed: " + string(f.Reason) + " (" + string(f.Kind) + ")"
}

// Timeouts bounds one controller run.
type Timeouts struct {
	PerAttempt time.Duration // soft: expiry classifies the attempt Unavailable
	PerRequest time.Duration // hard: expiry fails the whole request
}

// Controller owns the fallback policy. It is stateless per request and safe
// for concurrent use.
type Controller struct {
	registry *profile.Registry
	creds    *creds.Store
	engine   extract.Engine
	logger   zerolog.Logger
}

// New creates a Controller.
func New(reg *profile.Registry, cs *creds.Store, engine extract.Engine) *Controller {
	return &Controller{
		registry: reg,
		creds:    cs,
		engine:   engine,
		logger:   log.WithComponent("fallback"),
	}
}

// RunProbe walks the plan with metadata-only attempts.
func (c *Controller) RunProbe(ctx context.Context, url, preferred string, t Timeouts) (*extract.MediaInfo, []extract.Attempt, error) {
	var result *extract.MediaInfo
	attempts, err := c.run(ctx, preferred, t, func(ctx context.Context, spec profile.Spec, credFile string) error {
		info, err := c.engine.Probe(ctx, extract.ProbeRequest{
			URL:      url,
			Client:   spec.Client,
			CredFile: credFile,
		})
		if err == nil {
			result = info
		}
		return err
	})
	if err != nil {
		return nil, attempts, err
	}
	return result, attempts, nil
}

// FetchSpec carries the per-request fetch parameters.
type FetchSpec struct {
	URL      string
	Format   string
	OutPath  string
	Caps     extract.Caps
	Progress extract.ProgressFunc
}

// RunFetch walks the plan with download attempts.
func (c *Controller) RunFetch(ctx context.Context, spec FetchSpec, preferred string, t Timeouts) (*extract.FetchedFile, []extract.Attempt, error) {
	var result *extract.FetchedFile
	attempts, err := c.run(ctx, preferred, t, func(ctx context.Context, p profile.Spec, credFile string) error {
		file, err := c.engine.Fetch(ctx, extract.FetchRequest{
			URL:      spec.URL,
			Client:   p.Client,
			CredFile: credFile,
			Format:   spec.Format,
			OutPath:  spec.OutPath,
			Caps:     spec.Caps,
			Progress: spec.Progress,
		})
		if err == nil {
			result = file
		}
		return err
	})
	if err != nil {
		return nil, attempts, err
	}
	return result, attempts, nil
}

// run executes the fallback algorithm over one plan. op performs a single
// attempt against the engine using the supplied credential file (empty when
// the profile carries none).
func (c *Controller) run(ctx context.Context, preferred string, t Timeouts, op func(context.Context, profile.Spec, string) error) (attempts []extract.Attempt, err error) {
	tracer := telemetry.Tracer("vgrab/fallback")
	ctx, span := tracer.Start(ctx, "fallback")
	defer func() {
		profileName := ""
		outcome := ""
		if len(attempts) > 0 {
			last := attempts[len(attempts)-1]
			profileName = last.Profile
			outcome = string(last.Outcome)
			if last.Kind != "" {
				span.SetAttributes(attribute.String(telemetry.ErrorKindKey, string(last.Kind)))
			}
		}
		if err != nil {
			span.SetAttributes(attribute.Bool(telemetry.ErrorKey, true))
		}
		span.SetAttributes(telemetry.ExtractAttributes(profileName, outcome, len(attempts))...)
		span.End()
	}()

	plan := BuildPlan(c.registry, preferred, c.creds.IsPopulated())
	if len(plan) == 0 {
		return nil, &Failure{Reason: ReasonNoProfiles, Kind: extract.KindInternal}
	}

	logger := log.WithComponentFromContext(ctx, "fallback")

	if t.PerRequest > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.PerRequest)
		defer cancel()
	}

	for _, spec := range plan {
		var credFile string
		var handle *creds.Handle
		if spec.RequiresCred {
			h, err := c.creds.Acquire()
			if err != nil {
				logger.Warn().Err(err).Str("profile", spec.Name).Msg("credential acquisition failed, skipping profile")
				attempts = append(attempts, extract.Attempt{
					Profile: spec.Name,
					Outcome: extract.OutcomeTransient,
					Kind:    extract.KindAuthRequired,
				})
				attemptsTotal.WithLabelValues(spec.Name, string(extract.OutcomeTransient), string(extract.KindAuthRequired)).Inc()
				continue
			}
			handle = h
			credFile = h.Path()
		}

		attemptCtx := ctx
		var cancelAttempt context.CancelFunc
		if t.PerAttempt > 0 {
			attemptCtx, cancelAttempt = context.WithTimeout(ctx, t.PerAttempt)
		}

		attemptCtx, attemptSpan := tracer.Start(attemptCtx, "fallback.attempt")
		attemptSpan.SetAttributes(
			attribute.String(telemetry.ExtractProfileKey, spec.Name),
			attribute.String(telemetry.ExtractClientKey, spec.Client),
		)

		start := time.Now()
		err := op(attemptCtx, spec, credFile)
		elapsed := time.Since(start)

		if err != nil {
			attemptSpan.SetAttributes(attribute.Bool(telemetry.ErrorKey, true))
		}
		attemptSpan.End()

		if cancelAttempt != nil {
			cancelAttempt()
		}
		handle.Release()

		if err == nil {
			attempts = append(attempts, extract.Attempt{
				Profile: spec.Name,
				Outcome: extract.OutcomeOK,
				Elapsed: elapsed,
			})
			attemptsTotal.WithLabelValues(spec.Name, string(extract.OutcomeOK), "").Inc()
			logger.Info().Str("profile", spec.Name).Dur("elapsed", elapsed).Msg("attempt succeeded")
			return attempts, nil
		}

		// The request itself went away (client disconnect or hard timeout);
		// attempts after this point would run against a dead context.
		if ctx.Err() != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				attempts = append(attempts, extract.Attempt{
					Profile: spec.Name,
					Outcome: extract.OutcomeTransient,
					Kind:    extract.KindUnavailable,
					Elapsed: elapsed,
				})
				return attempts, &Failure{Reason: ReasonTimeout, Kind: extract.KindUnavailable, Attempts: attempts}
			}
			return attempts, ctx.Err()
		}

		kind := extract.KindOf(err)
		if errors.Is(err, context.DeadlineExceeded) {
			// The attempt ran out of its own time slice while the request is
			// still live; advance the plan as with any upstream outage.
			kind = extract.KindUnavailable
		}
		outcome := extract.OutcomePermanent
		if kind.Transient() {
			outcome = extract.OutcomeTransient
		}
		attempts = append(attempts, extract.Attempt{
			Profile: spec.Name,
			Outcome: outcome,
			Kind:    kind,
			Elapsed: elapsed,
		})
		attemptsTotal.WithLabelValues(spec.Name, string(outcome), string(kind)).Inc()

		logger.Warn().
			Str("profile", spec.Name).
			Str("outcome", string(outcome)).
			Str("kind", string(kind)).
			Dur("elapsed", elapsed).
			Msg("attempt failed")

		if outcome == extract.OutcomePermanent {
			return attempts, &Failure{Reason: ReasonPermanent, Kind: kind, Attempts: attempts}
		}
	}

	exhaustedTotal.Inc()
	last := attempts[len(attempts)-1]
	return attempts, &Failure{Reason: ReasonExhausted, Kind: last.Kind, Attempts: attempts}
}
