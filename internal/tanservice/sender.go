package tanservice

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/go-petr/sca-bank/internal/domain"
)

// LogSender records that a code was dispatched without delivering it.
//
// Real push, photo or chip delivery lives outside this service; the code itself is never logged.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(ctx context.Context, c domain.TANChallenge, _ string) error {
	zerolog.Ctx(ctx).Info().
		Str("challenge_id", c.ID.String()).
		Str("transaction_id", c.TransactionID.String()).
		Str("user_id", c.UserID).
		Str("tan_type", string(c.Type)).
		Time("expires_at", c.ExpiresAt).
		Msg("tan dispatched")

	return nil
}
