// Package failover finds the active controller of an HA pair.
//
// Each candidate is probed once, in the configured order, by attempting a
// login. The first candidate that accepts the login wins; later candidates
// are never contacted. There is no scoring, quorum or retry.
package failover

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ccreport/internal/model"
)

// ErrNoActiveEndpoint is returned when no candidate answered as active.
var ErrNoActiveEndpoint = errors.New("no active controller endpoint")

// Outcome is the classified result of probing one endpoint.
type Outcome struct {
	State      model.EndpointState
	StatusCode int
	Err        error
}

// Attempt pairs an endpoint with its probe outcome.
type Attempt struct {
	Endpoint model.Endpoint
	Outcome  Outcome
}

// ProbeFunc probes a single endpoint. It must not retry.
type ProbeFunc func(ctx context.Context, ep model.Endpoint) Outcome

// Select probes endpoints in order and returns the first active one together
// with every attempt made. If none is active it returns ErrNoActiveEndpoint.
func Select(ctx context.Context, endpoints []model.Endpoint, probe ProbeFunc) (model.Endpoint, []Attempt, error) {
	attempts := make([]Attempt, 0, len(endpoints))
	for _, ep := range endpoints {
		if err := ctx.Err(); err != nil {
			return model.Endpoint{}, attempts, err
		}
		out := probe(ctx, ep)
		attempts = append(attempts, Attempt{Endpoint: ep, Outcome: out})
		if out.State == model.StateActive {
			return ep, attempts, nil
		}
	}
	return model.Endpoint{}, attempts, fmt.Errorf("%w: %s", ErrNoActiveEndpoint, summarize(attempts))
}

// Classify maps a login answer to an endpoint state.
//
// A 503 is reported by the standby node of the pair. It is recognised by
// inactiveMarker inside the JSON "message" field, or by an "error" status
// field. Any other non-200 answer, including a 503 without a JSON body, is
// an error.
func Classify(status int, body []byte, err error, inactiveMarker string) model.EndpointState {
	if err != nil {
		return model.StateUnreachable
	}
	switch status {
	case http.StatusOK:
		return model.StateActive
	case http.StatusServiceUnavailable:
		var msg struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &msg) != nil {
			return model.StateError
		}
		if (inactiveMarker != "" && strings.Contains(msg.Message, inactiveMarker)) ||
			strings.Contains(msg.Status, "error") {
			return model.StateBackup
		}
	}
	return model.StateError
}

func summarize(attempts []Attempt) string {
	if len(attempts) == 0 {
		return "no candidates"
	}
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		parts = append(parts, fmt.Sprintf("%s=%s", a.Endpoint.Name, a.Outcome.State))
	}
	return strings.Join(parts, ", ")
}
