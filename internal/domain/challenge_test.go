package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestDynamicLink(t *testing.T) {
	t.Parallel()

	txID := uuid.MustParse("3b0f9a52-1c1e-4f4e-9b1a-0c6a4f1d2e3f")
	amount := decimal.RequireFromString("40")
	base := DynamicLink(txID, amount, "DE00123")

	if len(base) != 64 {
		t.Fatalf("len(DynamicLink()) = %d, want 64 hex chars", len(base))
	}

	testCases := []struct {
		name      string
		txID      uuid.UUID
		amount    decimal.Decimal
		recipient string
		wantEqual bool
	}{
		{name: "SameValues", txID: txID, amount: amount, recipient: "DE00123", wantEqual: true},
		{name: "EqualAmountOtherScale", txID: txID, amount: decimal.RequireFromString("40.00"), recipient: "DE00123", wantEqual: true},
		{name: "OtherAmount", txID: txID, amount: decimal.RequireFromString("40.01"), recipient: "DE00123"},
		{name: "OtherRecipient", txID: txID, amount: amount, recipient: "DE00124"},
		{name: "OtherTransaction", txID: uuid.New(), amount: amount, recipient: "DE00123"},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := DynamicLink(tc.txID, tc.amount, tc.recipient) == base
			if got != tc.wantEqual {
				t.Errorf("DynamicLink(%v, %v, %v) == base is %v, want %v",
					tc.txID, tc.amount, tc.recipient, got, tc.wantEqual)
			}
		})
	}
}

func TestChallengeStatusErr(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		status ChallengeStatus
		want   error
	}{
		{ChallengeStatusPending, nil},
		{ChallengeStatusUsed, ErrChallengeUsed},
		{ChallengeStatusExpired, ErrChallengeExpired},
		{ChallengeStatusLocked, ErrChallengeLocked},
		{ChallengeStatusCancelled, ErrChallengeCancelled},
		{ChallengeStatus("BOGUS"), ErrChallengeNotPending},
	}

	for _, tc := range testCases {
		if got := tc.status.Err(); got != tc.want {
			t.Errorf("%v.Err() = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestRecipient(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	internal := Recipient{Type: RecipientTypeInternal, AccountID: id}
	if got := internal.Identifier(); got != id.String() {
		t.Errorf("internal.Identifier() = %q, want %q", got, id.String())
	}

	external := Recipient{Type: RecipientTypeExternal, AccountNumber: "DE42"}
	if got := external.Identifier(); got != "DE42" {
		t.Errorf("external.Identifier() = %q, want %q", got, "DE42")
	}

	invalid := []Recipient{
		{Type: RecipientTypeInternal},
		{Type: RecipientTypeExternal},
		{Type: "wire", AccountID: id},
	}

	for _, r := range invalid {
		if err := r.Validate(); err != ErrInvalidRecipient {
			t.Errorf("%+v.Validate() = %v, want %v", r, err, ErrInvalidRecipient)
		}
	}

	if got := NormalizeAccountNumber(" de12 3456 "); got != "DE123456" {
		t.Errorf("NormalizeAccountNumber() = %q, want %q", got, "DE123456")
	}
}
