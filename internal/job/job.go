// Package job runs one report cycle: find the active controller, collect
// thresholds and peaks, write the workbook and mail it.
package job

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"ccreport/internal/addrutil"
	"ccreport/internal/api"
	"ccreport/internal/collector"
	"ccreport/internal/config"
	"ccreport/internal/failover"
	"ccreport/internal/model"
	"ccreport/internal/notify"
	"ccreport/internal/report"
)

// ErrNoData is returned when collection produced no rows. No workbook is
// written in that case.
var ErrNoData = errors.New("no protected objects collected")

// Options adjusts a single run.
type Options struct {
	// NoEmail suppresses delivery even when email is enabled.
	NoEmail bool
	// OutputDir overrides report.output_dir when set.
	OutputDir string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Result describes what a run did.
type Result struct {
	Endpoint model.Endpoint
	Attempts []failover.Attempt
	Rows     []model.ReportRow
	Summary  report.Summary
	// CollectErr holds the history queries that failed; their peaks are
	// missing from Rows.
	CollectErr error
	Path       string
	Emailed    bool
	EmailErr   error
}

// NewProber builds the availability prober for cfg.
func NewProber(cfg config.Controller, log *zap.Logger) *failover.Prober {
	return failover.NewProber(
		api.Credentials{Username: cfg.Username, Password: cfg.Password},
		cfg.ProbeTimeout,
		failover.WithLogger(log),
		failover.WithInactiveMarker(cfg.InactiveMarker),
		failover.WithClientOptions(api.Options{
			Timeout:            cfg.RequestTimeout,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		}),
	)
}

// Collect connects to the active controller and gathers one row per
// protected object. It returns failover.ErrNoActiveEndpoint when no
// controller is active and ErrNoData when nothing was collected.
func Collect(ctx context.Context, cfg config.Config, log *zap.Logger) (Result, error) {
	var res Result

	sess, attempts, err := NewProber(cfg.Controller, log).Connect(ctx, cfg.Controller.Endpoints())
	res.Attempts = attempts
	if err != nil {
		return res, err
	}
	res.Endpoint = sess.Endpoint
	log.Info("using controller", zap.String("endpoint", sess.Endpoint.Name), zap.String("host", addrutil.Host(sess.BaseURL())))

	col := collector.New(sess,
		collector.WithLookback(time.Duration(cfg.Report.DaysLookback)*24*time.Hour),
		collector.WithRateLimit(cfg.Collector.RequestsPerSecond),
		collector.WithLogger(log),
	)
	rows, err := col.Collect(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	if err != nil {
		res.CollectErr = err
		log.Warn("collection incomplete", zap.Error(err))
	}
	res.Rows = rows
	if len(rows) == 0 {
		return res, ErrNoData
	}

	res.Summary = report.Summarize(rows, cfg.Report.ThresholdFraction)
	log.Info("collection finished",
		zap.Int("objects", res.Summary.Objects),
		zap.Int("violations", res.Summary.Violations),
		zap.Int("unconfigured", res.Summary.Unconfigured))
	return res, nil
}

// Run executes the full cycle. A failed email is recorded in
// Result.EmailErr and does not fail the run.
func Run(ctx context.Context, cfg config.Config, log *zap.Logger, opts Options) (Result, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	outDir := cfg.Report.OutputDir
	if opts.OutputDir != "" {
		outDir = opts.OutputDir
	}

	mailer := notify.New(cfg.Email, notify.WithLogger(log))
	sendMail := cfg.Email.Enabled && !opts.NoEmail
	if sendMail {
		if err := mailer.Check(ctx); err != nil {
			log.Warn("smtp pre-flight failed, continuing without it", zap.Error(err))
		}
	}

	res, err := Collect(ctx, cfg, log)
	if err != nil {
		return res, err
	}

	generated := now()
	res.Path = filepath.Join(outDir, report.Filename(cfg.Report.OutputPrefix, generated))
	err = report.WriteXLSX(res.Path, res.Rows, report.Options{
		Fraction:     cfg.Report.ThresholdFraction,
		LookbackDays: cfg.Report.DaysLookback,
	})
	if err != nil {
		return res, fmt.Errorf("write report: %w", err)
	}
	log.Info("report saved", zap.String("path", res.Path))

	if !sendMail {
		return res, nil
	}
	res.EmailErr = mailer.Send(ctx, notify.Report{
		Path:         res.Path,
		Objects:      res.Summary.Objects,
		Violations:   res.Summary.Violations,
		GeneratedAt:  generated,
		LookbackDays: cfg.Report.DaysLookback,
		Fraction:     cfg.Report.ThresholdFraction,
	})
	if res.EmailErr != nil {
		log.Error("email delivery failed, report kept on disk", zap.String("path", res.Path), zap.Error(res.EmailErr))
		return res, nil
	}
	res.Emailed = true
	return res, nil
}
