package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"ccreport/internal/model"
)

// Credentials are posted to the login endpoint.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is the raw answer to a login attempt.
type LoginResult struct {
	StatusCode int
	Body       []byte
}

// ProtectedObjectsRequest selects protected objects; an empty list means all.
type ProtectedObjectsRequest struct {
	ProtectedObjectNames []string `json:"protectedObjectNames"`
}

// ProtectedObjectsResponse lists protected objects with their security settings.
type ProtectedObjectsResponse struct {
	ProtectedObjects []ProtectedObject `json:"protectedObjects"`
}

// ProtectedObject is a single entry of the security-settings listing.
type ProtectedObject struct {
	Name       string            `json:"name"`
	Thresholds *FlowDetectorHost `json:"flowDetectorThresholdsHostDetails"`
}

// FlowDetectorHost carries the activation thresholds per protocol.
type FlowDetectorHost struct {
	TCPMbps   model.Threshold `json:"tcpMbps"`
	TCPPps    model.Threshold `json:"tcpPps"`
	UDPMbps   model.Threshold `json:"udpMbps"`
	UDPPps    model.Threshold `json:"udpPps"`
	ICMPMbps  model.Threshold `json:"icmpMbps"`
	ICMPPps   model.Threshold `json:"icmpPps"`
	TotalMbps model.Threshold `json:"totalMbps"`
	TotalPps  model.Threshold `json:"totalPps"`
}

func (po ProtectedObject) toModel() model.MonitoredObject {
	var d FlowDetectorHost
	if po.Thresholds != nil {
		d = *po.Thresholds
	}
	return model.MonitoredObject{
		Name: po.Name,
		Limits: map[model.Protocol]model.Limit{
			model.TCP:   {Mbps: d.TCPMbps, PPS: d.TCPPps},
			model.UDP:   {Mbps: d.UDPMbps, PPS: d.UDPPps},
			model.ICMP:  {Mbps: d.ICMPMbps, PPS: d.ICMPPps},
			model.Total: {Mbps: d.TotalMbps, PPS: d.TotalPps},
		},
	}
}

// TimeInterval bounds a history query in unix milliseconds. A nil To means now.
type TimeInterval struct {
	From int64  `json:"from"`
	To   *int64 `json:"to"`
}

// TopTalkersRequest asks for flow detector history of one protected object.
type TopTalkersRequest struct {
	ProtectedObjectName string       `json:"protectedObjectName"`
	TimeInterval        TimeInterval `json:"timeInterval"`
}

// TopTalkersResponse carries the sampled rates.
type TopTalkersResponse struct {
	DataMap struct {
		Incoming Direction `json:"incoming"`
	} `json:"dataMap"`
}

// Direction groups the bps and pps series for one traffic direction.
type Direction struct {
	BPS []Sample `json:"bps"`
	PPS []Sample `json:"pps"`
}

// Sample is one point of a series.
type Sample struct {
	Row struct {
		Value FlexFloat `json:"value"`
	} `json:"row"`
}

// FlexFloat decodes a JSON number or a numeric string.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("sample value %q: %w", s, err)
	}
	*f = FlexFloat(v)
	return nil
}

// Max returns the largest sample value, or 0 when there are none.
func Max(samples []Sample) float64 {
	best := 0.0
	for i, s := range samples {
		v := float64(s.Row.Value)
		if i == 0 || v > best {
			best = v
		}
	}
	return best
}
