package tokenpkg

import (
	"time"

	"github.com/go-petr/sca-bank/pkg/configpkg"
)

// Maker is an interface for managing tokens.
type Maker interface {
	// CreateToken creates a new token for a specific user id and duration.
	CreateToken(userID string, duration time.Duration) (string, *Payload, error)
	// VerifyToken checks if the token is valid or not.
	VerifyToken(token string) (*Payload, error)
}

// NewMaker returns the Maker configured by TOKEN_TYPE.
func NewMaker(config configpkg.Config) (Maker, error) {
	if config.TokenType == configpkg.TokenTypeJWT {
		return NewJWTMaker(config.TokenSymmetricKey)
	}

	return NewPasetoMaker(config.TokenSymmetricKey)
}
