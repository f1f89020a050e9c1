package domain

import (
	"errors"

	"github.com/go-petr/sca-bank/pkg/errorspkg"
)

// Kind classifies an error so callers can tell domain outcomes from faults.
type Kind int

// Error kinds.
const (
	KindNone Kind = iota
	KindValidation
	KindAuthorization
	KindNotFound
	KindStateConflict
	KindRateExceeded
	KindDynamicLinkMismatch
	KindInsufficientFunds
	KindTransient
	KindInternal
)

var kindNames = map[Kind]string{
	KindNone:                "none",
	KindValidation:          "validation",
	KindAuthorization:       "authorization",
	KindNotFound:            "not_found",
	KindStateConflict:       "state_conflict",
	KindRateExceeded:        "rate_exceeded",
	KindDynamicLinkMismatch: "dynamic_link_mismatch",
	KindInsufficientFunds:   "insufficient_funds",
	KindTransient:           "transient",
	KindInternal:            "internal",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "unknown"
}

// Retryable reports whether an operation failing with k may succeed when repeated as is.
func (k Kind) Retryable() bool {
	return k == KindTransient
}

var errorKinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidAmount, KindValidation},
	{ErrNonPositiveAmount, KindValidation},
	{ErrInvalidRecipient, KindValidation},
	{ErrSameAccount, KindValidation},
	{ErrInvalidTANType, KindValidation},
	{ErrInvalidFrequency, KindValidation},
	{ErrInvalidExecutionDay, KindValidation},
	{ErrEndBeforeStart, KindValidation},
	{ErrInvalidAccountType, KindValidation},
	{ErrWrongCode, KindValidation},

	{ErrInvalidOwner, KindAuthorization},

	{ErrAccountNotFound, KindNotFound},
	{ErrOwnerNotFound, KindNotFound},
	{ErrUserNotFound, KindNotFound},
	{ErrTransactionNotFound, KindNotFound},
	{ErrChallengeNotFound, KindNotFound},
	{ErrStandingOrderNotFound, KindNotFound},

	{ErrTransactionNotPending, KindStateConflict},
	{ErrChallengeUsed, KindStateConflict},
	{ErrChallengeExpired, KindStateConflict},
	{ErrChallengeCancelled, KindStateConflict},
	{ErrChallengeNotPending, KindStateConflict},
	{ErrStandingOrderNotActive, KindStateConflict},
	{ErrLeaseNotAcquired, KindStateConflict},
	{ErrAccountNumberAlreadyExists, KindStateConflict},
	{ErrUserAlreadyExists, KindStateConflict},
	{ErrRecipientUnresolved, KindStateConflict},

	{ErrChallengeLocked, KindRateExceeded},

	{ErrDynamicLinkMismatch, KindDynamicLinkMismatch},

	{ErrInsufficientFunds, KindInsufficientFunds},

	{errorspkg.ErrTransientStorage, KindTransient},
}

// KindOf returns the kind of err. Unknown errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	for _, ek := range errorKinds {
		if errors.Is(err, ek.err) {
			return ek.kind
		}
	}

	return KindInternal
}
