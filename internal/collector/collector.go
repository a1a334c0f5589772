// Package collector gathers thresholds and observed traffic peaks from the
// active controller.
package collector

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ccreport/internal/api"
	"ccreport/internal/model"
)

const bytesPerMegabit = 1 << 20

// Source is the part of the controller API the collector needs.
type Source interface {
	ProtectedObjects(ctx context.Context) ([]model.MonitoredObject, error)
	TopTalkers(ctx context.Context, name string, proto model.Protocol, from time.Time) (api.TopTalkersResponse, error)
}

// Collector queries a Source strictly one request at a time.
type Collector struct {
	src      Source
	lookback time.Duration
	limiter  *rate.Limiter
	log      *zap.Logger
	now      func() time.Time
}

// Option configures a Collector.
type Option func(*Collector)

// WithLookback sets the history window. The default is 7 days.
func WithLookback(d time.Duration) Option {
	return func(c *Collector) { c.lookback = d }
}

// WithRateLimit paces requests to at most rps per second. rps <= 0 disables it.
func WithRateLimit(rps float64) Option {
	return func(c *Collector) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Collector) { c.log = l }
}

// WithClock overrides the time source used to compute the window start.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// New returns a collector reading from src.
func New(src Source, opts ...Option) *Collector {
	c := &Collector{
		src:      src,
		lookback: 7 * 24 * time.Hour,
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Collect returns one row per protected object.
//
// A failed object listing returns no rows. A failed history query only
// leaves that protocol's peak out of its row; all such failures are returned
// together alongside the rows.
func (c *Collector) Collect(ctx context.Context) ([]model.ReportRow, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	objects, err := c.src.ProtectedObjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list protected objects: %w", err)
	}
	c.log.Info("retrieved protected objects", zap.Int("count", len(objects)))

	from := c.now().Add(-c.lookback)
	rows := make([]model.ReportRow, 0, len(objects))
	var errs error
	for i, obj := range objects {
		c.log.Debug("collecting peaks",
			zap.Int("index", i+1), zap.Int("total", len(objects)), zap.String("object", obj.Name))

		row := model.ReportRow{
			Name:   obj.Name,
			Limits: obj.Limits,
			Peaks:  make(map[model.Protocol]model.Peak, len(model.Protocols)),
		}
		for _, proto := range model.Protocols {
			if err := c.wait(ctx); err != nil {
				return rows, multierr.Append(errs, err)
			}
			peak, err := c.peak(ctx, obj.Name, proto, from)
			if err != nil {
				if ctx.Err() != nil {
					return rows, multierr.Append(errs, ctx.Err())
				}
				c.log.Warn("history query failed",
					zap.String("object", obj.Name), zap.String("protocol", string(proto)), zap.Error(err))
				errs = multierr.Append(errs, fmt.Errorf("%s/%s: %w", obj.Name, proto, err))
				continue
			}
			row.Peaks[proto] = peak
		}
		rows = append(rows, row)
	}
	return rows, errs
}

func (c *Collector) peak(ctx context.Context, name string, proto model.Protocol, from time.Time) (model.Peak, error) {
	resp, err := c.src.TopTalkers(ctx, name, proto, from)
	if err != nil {
		return model.Peak{}, err
	}
	in := resp.DataMap.Incoming
	return model.Peak{
		Mbps: ToMbps(api.Max(in.BPS)),
		PPS:  CeilPPS(api.Max(in.PPS)),
	}, nil
}

func (c *Collector) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// ToMbps converts a rate in bytes per second to whole megabits, rounding up.
// Exactly N*2^20 maps to N; any excess maps to N+1. NaN and non-positive
// rates map to 0 and rates beyond int64 saturate.
func ToMbps(bps float64) int64 {
	return ceilInt(bps / bytesPerMegabit)
}

// CeilPPS rounds a packet rate up to a whole number.
func CeilPPS(pps float64) int64 {
	return ceilInt(pps)
}

func ceilInt(v float64) int64 {
	if !(v > 0) {
		return 0
	}
	c := math.Ceil(v)
	if c >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(c)
}
