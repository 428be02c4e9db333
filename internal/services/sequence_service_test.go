package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSequenceSuffix(t *testing.T) {
	tests := []struct {
		identifier string
		want       int
		wantErr    bool
	}{
		{"INV-202608-0001", 1, false},
		{"INV-202608-0042", 42, false},
		{"INV-202608-9999", 9999, false},
		{"LOT-202608-10000", 10000, false}, // counter past the pad width still parses
		{"IN-202608-0007", 7, false},
		{"INV-202608-", 0, true},
		{"no-dashes-here-x", 0, true},
		{"plainstring", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			got, err := parseSequenceSuffix(tt.identifier)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatSequence(t *testing.T) {
	assert.Equal(t, "INV-202608-0001", formatSequence("INV-202608", 1))
	assert.Equal(t, "INV-202608-0042", formatSequence("INV-202608", 42))
	assert.Equal(t, "INV-202608-9999", formatSequence("INV-202608", 9999))
	// The counter widens past four digits instead of wrapping.
	assert.Equal(t, "INV-202608-10000", formatSequence("INV-202608", 10000))
}

func TestSequenceRoundTrip(t *testing.T) {
	for _, n := range []int{1, 9, 10, 999, 1000, 9999, 12345} {
		got, err := parseSequenceSuffix(formatSequence("OUT-202601", n))
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

func TestInvoicePrefixFor(t *testing.T) {
	s := NewSequenceService("INV", "LOT")

	august := time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "INV-202608", s.InvoicePrefixFor(august))

	january := time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "INV-202701", s.InvoicePrefixFor(january))
}
