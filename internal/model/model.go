package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// EndpointState is the outcome of probing one controller of an HA pair.
type EndpointState string

const (
	StateActive      EndpointState = "active"
	StateBackup      EndpointState = "backup"
	StateError       EndpointState = "error"
	StateUnreachable EndpointState = "unreachable"
)

// Endpoint is one candidate controller address.
type Endpoint struct {
	Name    string // primary|secondary
	BaseURL string
}

// Protocol is a traffic class tracked by the flow detector.
type Protocol string

const (
	TCP   Protocol = "tcp"
	UDP   Protocol = "udp"
	ICMP  Protocol = "icmp"
	Total Protocol = "total"
)

// Protocols lists every protocol in report column order.
var Protocols = []Protocol{TCP, UDP, ICMP, Total}

// Label is the upper-case form used in report headers.
func (p Protocol) Label() string {
	if p == Total {
		return "Total"
	}
	return strings.ToUpper(string(p))
}

// Threshold is a configured activation value exactly as the controller
// returned it. The API mixes numbers, numeric strings, "N/A" and null.
type Threshold string

// UnmarshalJSON keeps the literal text of numbers and strings; null is blank.
func (t *Threshold) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Threshold(s)
		return nil
	}
	*t = Threshold(data)
	return nil
}

// Value parses the threshold. configured is false for blank, zero, negative,
// "N/A", NaN, infinities and anything that does not parse as a number.
func (t Threshold) Value() (v float64, configured bool) {
	s := strings.TrimSpace(string(t))
	if s == "" || strings.EqualFold(s, "n/a") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Limit is the configured Mbps/PPS pair for one protocol.
type Limit struct {
	Mbps Threshold
	PPS  Threshold
}

// Peak is the observed maximum for one protocol over the lookback window,
// already rounded up to whole Mbps and packets per second.
type Peak struct {
	Mbps int64
	PPS  int64
}

// MonitoredObject is a protected object with its flow detector thresholds.
type MonitoredObject struct {
	Name   string
	Limits map[Protocol]Limit
}

// ReportRow joins one object's thresholds with its observed peaks. A protocol
// missing from Peaks had no usable history query.
type ReportRow struct {
	Name   string
	Limits map[Protocol]Limit
	Peaks  map[Protocol]Peak
}
