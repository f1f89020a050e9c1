// Package accountdelivery manages delivery layer of accounts.
package accountdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/sca-bank/internal/domain"
	"github.com/go-petr/sca-bank/internal/middleware"
	"github.com/go-petr/sca-bank/pkg/web"
)

// Service provides service layer interface needed by account delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type Service interface {
	Create(ctx context.Context, ownerID string, accountType domain.AccountType) (domain.Account, error)
	GetOwned(ctx context.Context, ownerID string, id uuid.UUID) (domain.Account, error)
}

// Handler facilitates account delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns account handler.
func NewHandler(as Service) *Handler {
	return &Handler{service: as}
}

type data struct {
	Account domain.Account `json:"account"`
}

type createRequest struct {
	Type string `json:"type" binding:"required,accounttype"`
}

// Create handles http request to open an empty account.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		errMsg := "invalid request body"

		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			field := ve[0]
			errMsg = field.Field() + web.GetErrorMsg(field)
		}

		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: errMsg})

		return
	}

	createdAccount, err := h.service.Create(ctx, middleware.UserID(gctx), domain.AccountType(req.Type))
	if err != nil {
		l.Info().Err(err).Send()
		middleware.RespondError(gctx, err, nil)

		return
	}

	gctx.JSON(http.StatusCreated, web.Response{Data: data{createdAccount}})
}

type getRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// Get handles http request to get account.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		errMsg := "invalid request"

		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			field := ve[0]
			errMsg = field.Field() + web.GetErrorMsg(field)
		}

		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: errMsg})

		return
	}

	acc, err := h.service.GetOwned(ctx, middleware.UserID(gctx), uuid.MustParse(req.ID))
	if err != nil {
		l.Warn().Err(err).Send()
		middleware.RespondError(gctx, err, nil)

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: data{acc}})
}
