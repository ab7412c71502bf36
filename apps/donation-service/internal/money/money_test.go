package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"55", 5500, false},
		{"55.00", 5500, false},
		{"55,00", 5500, false},
		{"R$ 1.234,56", 123456, false},
		{"1.500", 150000, false},
		{"R$ 12.345.678", 1234567800, false},
		{"1.500,00", 150000, false},
		{"1.5", 150, false},
		{"20.50", 2050, false},
		{"55.999", 5599900, false},
		{"55,999", 0, true},
		{"0.015", 0, true},
		{"10,005", 0, true},
		{"abc", 0, true},
		{"-5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromFloat(t *testing.T) {
	assert.Equal(t, int64(5500), FromFloat(55.00))
	assert.Equal(t, int64(5510), FromFloat(55.1))
	assert.Equal(t, int64(1999), FromFloat(19.99))
	assert.Equal(t, int64(29), FromFloat(0.29))
}

func TestRoundTrip(t *testing.T) {
	for _, minor := range []int64{0, 1, 99, 500, 5500, 6500, 123456} {
		major := ToMajor(minor)
		assert.Equal(t, minor, ToMinor(major), "minor %d", minor)
	}

	major := decimal.RequireFromString("55.00")
	assert.True(t, ToMajor(ToMinor(major)).Equal(major))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "R$ 20,00", Format(2000))
	assert.Equal(t, "R$ 0,05", Format(5))
	assert.Equal(t, "R$ 1.234,56", Format(123456))
	assert.Equal(t, "R$ 1.000.000,00", Format(100000000))
	assert.Equal(t, "-R$ 5,00", Format(-500))
}
