package failover

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ccreport/internal/api"
	"ccreport/internal/model"
)

// Session is an authenticated client bound to the endpoint that accepted the
// login. It is never rebound.
type Session struct {
	Endpoint model.Endpoint
	*api.Client
}

// Prober probes controllers by logging in under a bounded timeout.
type Prober struct {
	creds   api.Credentials
	timeout time.Duration
	marker  string
	opts    api.Options
	log     *zap.Logger
	clients map[string]*api.Client
}

// Option configures a Prober.
type Option func(*Prober)

// WithLogger sets the logger used to report each attempt.
func WithLogger(l *zap.Logger) Option {
	return func(p *Prober) { p.log = l }
}

// WithInactiveMarker overrides the text that identifies a standby node.
func WithInactiveMarker(marker string) Option {
	return func(p *Prober) { p.marker = marker }
}

// WithClientOptions sets the transport options of clients created by the prober.
func WithClientOptions(o api.Options) Option {
	return func(p *Prober) { p.opts = o }
}

// NewProber returns a prober that logs in with creds, waiting at most timeout
// per endpoint.
func NewProber(creds api.Credentials, timeout time.Duration, opts ...Option) *Prober {
	p := &Prober{
		creds:   creds,
		timeout: timeout,
		log:     zap.NewNop(),
		clients: make(map[string]*api.Client),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Probe attempts one login against ep and classifies the answer.
func (p *Prober) Probe(ctx context.Context, ep model.Endpoint) Outcome {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	res, err := p.client(ep).Login(ctx, p.creds)
	out := Outcome{
		State:      Classify(res.StatusCode, res.Body, err, p.marker),
		StatusCode: res.StatusCode,
		Err:        err,
	}
	if out.Err == nil && out.State != model.StateActive {
		out.Err = fmt.Errorf("login answered %d", res.StatusCode)
	}

	fields := []zap.Field{
		zap.String("endpoint", ep.Name),
		zap.String("url", ep.BaseURL),
		zap.String("state", string(out.State)),
	}
	switch out.State {
	case model.StateActive:
		p.log.Info("controller is active", fields...)
	case model.StateBackup:
		p.log.Warn("controller is standby", fields...)
	default:
		p.log.Warn("controller probe failed", append(fields, zap.Int("status", res.StatusCode), zap.Error(out.Err))...)
	}
	return out
}

// Connect selects the active endpoint and returns a session bound to it.
func (p *Prober) Connect(ctx context.Context, endpoints []model.Endpoint) (*Session, []Attempt, error) {
	p.log.Info("detecting active controller", zap.Int("candidates", len(endpoints)))
	ep, attempts, err := Select(ctx, endpoints, p.Probe)
	if err != nil {
		p.log.Error("no active controller found", zap.Error(err))
		return nil, attempts, err
	}
	return &Session{Endpoint: ep, Client: p.client(ep)}, attempts, nil
}

func (p *Prober) client(ep model.Endpoint) *api.Client {
	c, ok := p.clients[ep.BaseURL]
	if !ok {
		c = api.NewClient(ep.BaseURL, p.opts)
		p.clients[ep.BaseURL] = c
	}
	return c
}
