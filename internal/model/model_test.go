package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreshold_UnmarshalMixedTypes(t *testing.T) {
	t.Parallel()

	var got struct {
		A Threshold `json:"a"`
		B Threshold `json:"b"`
		C Threshold `json:"c"`
		D Threshold `json:"d"`
		E Threshold `json:"e"`
	}
	err := json.Unmarshal([]byte(`{"a":120,"b":"45.5","c":null,"d":"N/A","e":0}`), &got)
	require.NoError(t, err)

	assert.Equal(t, Threshold("120"), got.A)
	assert.Equal(t, Threshold("45.5"), got.B)
	assert.Equal(t, Threshold(""), got.C)
	assert.Equal(t, Threshold("N/A"), got.D)
	assert.Equal(t, Threshold("0"), got.E)
}

func TestThreshold_Value(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in         Threshold
		want       float64
		configured bool
	}{
		{"80", 80, true},
		{" 12.5 ", 12.5, true},
		{"", 0, false},
		{"0", 0, false},
		{"-3", 0, false},
		{"N/A", 0, false},
		{"n/a", 0, false},
		{"unlimited", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"+Infinity", 0, false},
	}
	for _, tc := range cases {
		v, ok := tc.in.Value()
		assert.Equal(t, tc.configured, ok, "threshold %q", tc.in)
		assert.Equal(t, tc.want, v, "threshold %q", tc.in)
	}
}

func TestProtocol_Label(t *testing.T) {
	t.Parallel()

	labels := make([]string, 0, len(Protocols))
	for _, p := range Protocols {
		labels = append(labels, p.Label())
	}
	assert.Equal(t, []string{"TCP", "UDP", "ICMP", "Total"}, labels)
}
