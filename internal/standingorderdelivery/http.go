// Package standingorderdelivery manages delivery layer of standing orders.
package standingorderdelivery

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/sca-bank/internal/domain"
	"github.com/go-petr/sca-bank/internal/middleware"
	"github.com/go-petr/sca-bank/pkg/web"
)

// Service provides service layer interface needed by standing order delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package standingorderdelivery
type Service interface {
	Create(ctx context.Context, ownerID string, arg domain.CreateStandingOrderParams) (domain.StandingOrder, error)
	List(ctx context.Context, ownerID string) ([]domain.StandingOrder, error)
	Cancel(ctx context.Context, ownerID string, id uuid.UUID) (domain.StandingOrder, error)
}

// Handler facilitates standing order delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns standing order handler.
func NewHandler(ss Service) *Handler {
	return &Handler{
		service: ss,
	}
}

type orderData struct {
	StandingOrder domain.StandingOrder `json:"standing_order"`
}

type listData struct {
	StandingOrders []domain.StandingOrder `json:"standing_orders"`
}

type createRequest struct {
	FromAccountID string `json:"from_account_id" binding:"required,uuid"`
	ToAccountID   string `json:"to_account_id" binding:"required,uuid"`
	Amount        string `json:"amount" binding:"required"`
	Reference     string `json:"reference" binding:"max=140"`
	Frequency     string `json:"frequency" binding:"required,frequency"`
	StartDate     string `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate       string `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
	ExecutionDay  int    `json:"execution_day" binding:"omitempty,min=1,max=31"`
}

func bindErrorMsg(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		field := ve[0]
		return field.Field() + web.GetErrorMsg(field)
	}

	return "invalid request body"
}

// Create handles http request to set up a recurring transfer.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	arg := domain.CreateStandingOrderParams{
		FromAccountID: uuid.MustParse(req.FromAccountID),
		ToAccountID:   uuid.MustParse(req.ToAccountID),
		Amount:        req.Amount,
		Reference:     req.Reference,
		Frequency:     domain.Frequency(req.Frequency),
		ExecutionDay:  req.ExecutionDay,
	}

	// Layouts are checked by the binding tags.
	if req.StartDate != "" {
		arg.StartDate, _ = time.Parse(time.DateOnly, req.StartDate)
	}

	if req.EndDate != "" {
		end, _ := time.Parse(time.DateOnly, req.EndDate)
		arg.EndDate = &end
	}

	order, err := h.service.Create(ctx, middleware.UserID(gctx), arg)
	if err != nil {
		l.Info().Err(err).Send()
		middleware.RespondError(gctx, err, nil)

		return
	}

	gctx.JSON(http.StatusCreated, web.Response{Data: orderData{order}})
}

// List handles http request to list the standing orders of the authenticated user.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	orders, err := h.service.List(ctx, middleware.UserID(gctx))
	if err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Send()
		middleware.RespondError(gctx, err, nil)

		return
	}

	if orders == nil {
		orders = []domain.StandingOrder{}
	}

	gctx.JSON(http.StatusOK, web.Response{Data: listData{orders}})
}

type uriRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// Cancel handles http request to stop a standing order.
func (h *Handler) Cancel(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri uriRequest
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	order, err := h.service.Cancel(ctx, middleware.UserID(gctx), uuid.MustParse(uri.ID))
	if err != nil {
		l.Info().Err(err).Send()
		middleware.RespondError(gctx, err, nil)

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: orderData{order}})
}
