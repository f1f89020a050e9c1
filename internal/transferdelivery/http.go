// Package transferdelivery manages delivery layer of transfers.
package transferdelivery

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

// Service provides service layer interface needed by transfer delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transferdelivery
type Service interface {
	Initiate(ctx context.Context, ownerID string, arg domain.InitiateTransferParams) (domain.InitiateResult, error)
	Confirm(ctx context.Context, requesterID string, arg domain.ConfirmTransferParams) (domain.Transaction, error)
	Cancel(ctx context.Context, requesterID string, id uuid.UUID) (domain.Transaction, error)
	Get(ctx context.Context, requesterID string, id uuid.UUID) (domain.Transaction, error)
}

// Handler facilitates transfer delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transfer handler.
func NewHandler(ts Service) *Handler {
	return &Handler{
		service: ts,
	}
}

type data struct {
	Transaction domain.Transaction `json:"transaction"`
}

func bindErrorMsg(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		field := ve[0]
		return field.Field() + web.GetErrorMsg(field)
	}

	return "invalid request body"
}

type recipientRequest struct {
	Type          string `json:"type" binding:"required,recipienttype"`
	AccountID     string `json:"account_id" binding:"omitempty,uuid"`
	AccountNumber string `json:"account_number" binding:"omitempty,max=42"`
}

type initiateRequest struct {
	FromAccountID string           `json:"from_account_id" binding:"required,uuid"`
	Amount        string           `json:"amount" binding:"required"`
	Recipient     recipientRequest `json:"recipient"`
	Reference     string           `json:"reference" binding:"max=140"`
	TANType       string           `json:"tan_type" binding:"omitempty,tantype"`
}

// Initiate handles http request to start a transfer that awaits TAN confirmation.
func (h *Handler) Initiate(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req initiateRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	arg := domain.InitiateTransferParams{
		FromAccountID: uuid.MustParse(req.FromAccountID),
		Amount:        req.Amount,
		Recipient: domain.Recipient{
			Type:          domain.RecipientType(req.Recipient.Type),
			AccountNumber: req.Recipient.AccountNumber,
		},
		Reference: req.Reference,
		TANType:   domain.TANType(req.TANType),
	}

	if req.Recipient.AccountID != "" {
		arg.Recipient.AccountID = uuid.MustParse(req.Recipient.AccountID)
	}

	result, err := h.service.Initiate(ctx, middleware.UserID(gctx), arg)
	if err != nil {
		l.Info().Err(err).Send()
		middleware.RespondError(gctx, err, nil)

		return
	}

	gctx.JSON(http.StatusCreated, web.Response{Data: result})
}

type uriRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type confirmRequest struct {
	ChallengeID string `json:"challenge_id" binding:"required,uuid"`
	Code        string `json:"code" binding:"required,numeric,min=4,max=10"`
}

// Confirm handles http request to authorize a pending transfer with a TAN.
func (h *Handler) Confirm(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri uriRequest
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	var req confirmRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	t, err := h.service.Confirm(ctx, middleware.UserID(gctx), domain.ConfirmTransferParams{
		TransactionID: uuid.MustParse(uri.ID),
		ChallengeID:   uuid.MustParse(req.ChallengeID),
		Code:          req.Code,
	})
	if err != nil {
		l.Info().Err(err).Send()

		if t.ID != uuid.Nil {
			middleware.RespondError(gctx, err, data{t})
			return
		}

		middleware.RespondError(gctx, err, nil)

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: data{t}})
}

// Cancel handles http request to abandon a pending transfer.
func (h *Handler) Cancel(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri uriRequest
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	t, err := h.service.Cancel(ctx, middleware.UserID(gctx), uuid.MustParse(uri.ID))
	if err != nil {
		l.Info().Err(err).Send()
		middleware.RespondError(gctx, err, nil)

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: data{t}})
}

// Get handles http request to poll the status of a transfer.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri uriRequest
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	t, err := h.service.Get(ctx, middleware.UserID(gctx), uuid.MustParse(uri.ID))
	if err != nil {
		l.Info().Err(err).Send()
		middleware.RespondError(gctx, err, nil)

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: data{t}})
}
