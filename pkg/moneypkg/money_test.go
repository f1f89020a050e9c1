package moneypkg

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "Integer", input: "40", want: "40.00"},
		{name: "TwoDecimals", input: "40.50", want: "40.50"},
		{name: "OneDecimal", input: "0.5", want: "0.50"},
		{name: "TooManyDecimals", input: "1.005", wantErr: ErrInvalidAmount},
		{name: "TrailingZerosAllowed", input: "1.500", want: "1.50"},
		{name: "NotANumber", input: "!@#$", wantErr: ErrInvalidAmount},
		{name: "Empty", input: "", wantErr: ErrInvalidAmount},
		{name: "Zero", input: "0", wantErr: ErrNonPositiveAmount},
		{name: "Negative", input: "-100", wantErr: ErrNonPositiveAmount},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseAmount(tc.input)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.want, Canonical(got))
		})
	}
}

func TestCanonicalEqualAmounts(t *testing.T) {
	t.Parallel()

	a := decimal.RequireFromString("40")
	b := decimal.RequireFromString("40.000")

	require.Equal(t, Canonical(a), Canonical(b))
}
