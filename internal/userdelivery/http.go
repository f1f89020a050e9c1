// Package userdelivery manages delivery layer of users.
package userdelivery

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/sca-bank/internal/domain"
	"github.com/go-petr/sca-bank/internal/middleware"
	"github.com/go-petr/sca-bank/pkg/web"
)

// Service provides service layer interface needed by user delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package userdelivery
type Service interface {
	Enroll(ctx context.Context, userID string) (domain.Enrollment, error)
}

// Handler facilitates user delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns user handler.
func NewHandler(us Service) *Handler {
	return &Handler{
		service: us,
	}
}

// Enroll handles http request to register the authenticated user with the bank.
func (h *Handler) Enroll(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	enrollment, err := h.service.Enroll(ctx, middleware.UserID(gctx))
	if err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Send()
		middleware.RespondError(gctx, err, nil)

		return
	}

	gctx.JSON(http.StatusCreated, web.Response{Data: enrollment})
}
