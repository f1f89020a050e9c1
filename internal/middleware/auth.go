// Package middleware provides gin middlewares shared by every route group.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/sca-bank/pkg/tokenpkg"
	"github.com/go-petr/sca-bank/pkg/web"
)

const (
	// AuthHeaderKey is the header carrying the identity provider token.
	AuthHeaderKey = "authorization"
	// AuthTypeBearer is the only supported authorization scheme.
	AuthTypeBearer = "bearer"
	// AuthPayloadKey is the gin context key holding the verified *tokenpkg.Payload.
	AuthPayloadKey = "authorization_payload"
)

var (
	ErrAuthHeaderNotFound  = errors.New("authorization header is not provided")
	ErrBadAuthHeaderFormat = errors.New("invalid authorization header format")
	ErrUnsupportedAuthType = errors.New("unsupported authorization type")
)

// AddAuthorization signs a token for userID and sets it on the request.
func AddAuthorization(
	request *http.Request,
	tokenMaker tokenpkg.Maker,
	authType string,
	userID string,
	duration time.Duration,
) error {
	token, _, err := tokenMaker.CreateToken(userID, duration)
	if err != nil {
		return err
	}

	authHeader := fmt.Sprintf("%s %s", authType, token)
	request.Header.Set(AuthHeaderKey, authHeader)

	return nil
}

// AuthMiddleware verifies the bearer token and stores its payload in the gin context.
func AuthMiddleware(tokenMaker tokenpkg.Maker) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		l := zerolog.Ctx(gctx.Request.Context())

		authHeader := gctx.GetHeader(AuthHeaderKey)
		if len(authHeader) == 0 {
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrAuthHeaderNotFound))
			return
		}

		fields := strings.Fields(authHeader)
		if len(fields) < 2 {
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrBadAuthHeaderFormat))
			return
		}

		authType := strings.ToLower(fields[0])
		if authType != AuthTypeBearer {
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrUnsupportedAuthType))
			return
		}

		payload, err := tokenMaker.VerifyToken(fields[1])
		if err != nil {
			l.Info().Err(err).Send()
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(err))

			return
		}

		gctx.Set(AuthPayloadKey, payload)
		gctx.Next()
	}
}

// UserID returns the authenticated user id stored by AuthMiddleware.
func UserID(gctx *gin.Context) string {
	return gctx.MustGet(AuthPayloadKey).(*tokenpkg.Payload).UserID
}
