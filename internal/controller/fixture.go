package controller

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ccreport/internal/model"
)

// Fixture is the on-disk description of the objects an emulated controller
// serves.
type Fixture struct {
	Objects []Object `yaml:"objects"`
}

// Object is one protected object with its thresholds and traffic history.
// Thresholds is served verbatim as flowDetectorThresholdsHostDetails, so
// values may be numbers, strings or null.
type Object struct {
	Name       string                       `yaml:"name"`
	Thresholds map[string]any               `yaml:"thresholds,omitempty"`
	BPS        map[model.Protocol][]float64 `yaml:"bps,omitempty"`
	PPS        map[model.Protocol][]float64 `yaml:"pps,omitempty"`
	Fail       []model.Protocol             `yaml:"fail,omitempty"`
}

// LoadFixture loads a fixture from disk. If the file is missing, returns the
// sample fixture.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return SampleFixture(), nil
		}
		return nil, err
	}

	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, err
	}

	return &fx, nil
}

// SaveFixture writes a fixture to disk.
func SaveFixture(path string, fx *Fixture) error {
	if fx == nil {
		return nil
	}
	data, err := yaml.Marshal(fx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// SampleFixture returns a small data set: one object well inside its
// thresholds, one whose TCP threshold sits below 80% of the observed peak,
// and one without any thresholds configured.
func SampleFixture() *Fixture {
	const mb = 1 << 20
	return &Fixture{Objects: []Object{
		{
			Name: "web-frontend",
			Thresholds: map[string]any{
				"tcpMbps": 500, "tcpPps": 200000,
				"udpMbps": 100, "udpPps": 50000,
				"icmpMbps": 10, "icmpPps": 5000,
				"totalMbps": 600, "totalPps": 250000,
			},
			BPS: map[model.Protocol][]float64{
				model.TCP:   {120 * mb, 180.5 * mb},
				model.UDP:   {20 * mb},
				model.ICMP:  {0.2 * mb},
				model.Total: {200 * mb},
			},
			PPS: map[model.Protocol][]float64{
				model.TCP:   {40000, 61000.2},
				model.UDP:   {9000},
				model.ICMP:  {120},
				model.Total: {70000},
			},
		},
		{
			Name: "dns-resolvers",
			Thresholds: map[string]any{
				"tcpMbps": "20", "tcpPps": "N/A",
				"udpMbps": 400, "udpPps": 300000,
				"icmpMbps": 0, "icmpPps": "",
				"totalMbps": 500, "totalPps": 400000,
			},
			BPS: map[model.Protocol][]float64{
				model.TCP:   {40 * mb},
				model.UDP:   {210 * mb},
				model.Total: {260 * mb},
			},
			PPS: map[model.Protocol][]float64{
				model.TCP:   {8000},
				model.UDP:   {150000},
				model.Total: {170000},
			},
		},
		{
			Name: "lab-unconfigured",
		},
	}}
}
