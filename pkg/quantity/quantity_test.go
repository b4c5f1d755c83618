package quantity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCPU(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr bool
		milli   int64
	}{
		{name: "whole core", in: "1", milli: 1000},
		{name: "half core decimal", in: "0.5", milli: 500},
		{name: "eighth core decimal", in: "0.125", milli: 125},
		{name: "milli form", in: "500m", milli: 500},
		{name: "three-decimal boundary", in: "0.001", milli: 1},
		{name: "sub-milli fraction rejected", in: "0.0001", wantErr: true},
		{name: "zero rejected", in: "0", wantErr: true},
		{name: "negative rejected", in: "-1", wantErr: true},
		{name: "double decimal rejected", in: "1.5.5", wantErr: true},
		{name: "garbage suffix rejected", in: "1m500", wantErr: true},
		{name: "empty rejected", in: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCPU(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.milli, got.MilliCores())
		})
	}
}

func TestCPUEqualityIsByCanonicalStringNotMagnitude(t *testing.T) {
	a, err := ParseCPU("500m")
	assert.NoError(t, err)
	b, err := ParseCPU("0.5")
	assert.NoError(t, err)

	assert.Equal(t, a.MilliCores(), b.MilliCores())
	assert.False(t, a.Equal(b), "500m and 0.5 parse to the same magnitude but are distinct canonical values")

	c, err := ParseCPU("500m")
	assert.NoError(t, err)
	assert.True(t, a.Equal(c))
}

func TestCPUPatch(t *testing.T) {
	base, err := ParseCPU("0.5")
	assert.NoError(t, err)

	patched, err := base.Patch("500m")
	assert.NoError(t, err)

	want, err := ParseCPU("500m")
	assert.NoError(t, err)
	assert.True(t, patched.Equal(want))

	unchanged, err := base.Patch("")
	assert.NoError(t, err)
	assert.True(t, unchanged.Equal(base))
}

func TestParseMemory(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr bool
		bytes   uint64
	}{
		{name: "gibibyte", in: "1Gi", bytes: 1 << 30},
		{name: "kilobyte decimal", in: "1K", bytes: 1_000},
		{name: "plain bytes", in: "512", bytes: 512},
		{name: "empty rejected", in: "", wantErr: true},
		{name: "lowercase unit rejected", in: "1gb", wantErr: true},
		{name: "decimal mantissa rejected", in: "1.5Gi", wantErr: true},
		{name: "zero rejected", in: "0", wantErr: true},
		{name: "overflow rejected", in: "9223372036854775808", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseMemory(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.bytes, got.Bytes())
		})
	}
}

func TestMemoryExceedsMaxInt64Rejected(t *testing.T) {
	_, err := ParseMemory("8Ei")
	assert.Error(t, err)
}
