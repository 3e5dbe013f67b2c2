package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyRate(t *testing.T) {
	tests := []struct {
		name     string
		amount   Cents
		rate     float64
		expected Cents
	}{
		{"whole percentage", 10000, 10, 1000},
		{"truncates fractional cents", 10007, 10, 1000},
		{"truncates toward zero", 999, 5, 49},
		{"zero rate", 10000, 0, 0},
		{"zero amount", 0, 15, 0},
		{"full rate", 12345, 100, 12345},
		{"fractional rate via basis points", 10000, 2.5, 250},
		{"fractional rate truncates", 10001, 2.5, 250},
		{"large revenue", 123456789, 15, 18518518},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ApplyRate(tt.amount, tt.rate))
		})
	}
}

func TestApplyRate_Deterministic(t *testing.T) {
	// The same inputs must always produce the same output; recomputation of
	// a closed period relies on this.
	first := ApplyRate(987654321, 12.5)
	for i := 0; i < 1000; i++ {
		assert.Equal(t, first, ApplyRate(987654321, 12.5))
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "100.00", Format(10000))
	assert.Equal(t, "0.07", Format(7))
	assert.Equal(t, "-3.50", Format(-350))
	assert.Equal(t, "0.00", Format(0))
}
