package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-petr/sca-bank/internal/domain"
	"github.com/go-petr/sca-bank/pkg/errorspkg"
	"github.com/go-petr/sca-bank/pkg/web"
)

var kindStatus = map[domain.Kind]int{
	domain.KindValidation:          http.StatusBadRequest,
	domain.KindAuthorization:       http.StatusForbidden,
	domain.KindNotFound:            http.StatusNotFound,
	domain.KindStateConflict:       http.StatusConflict,
	domain.KindRateExceeded:        http.StatusTooManyRequests,
	domain.KindDynamicLinkMismatch: http.StatusConflict,
	domain.KindInsufficientFunds:   http.StatusUnprocessableEntity,
	domain.KindTransient:           http.StatusServiceUnavailable,
}

// StatusOf returns the HTTP status code for err.
func StatusOf(err error) int {
	if status, ok := kindStatus[domain.KindOf(err)]; ok {
		return status
	}

	return http.StatusInternalServerError
}

// RespondError writes err in the response envelope with the status of its kind.
//
// Internal errors are replaced with errorspkg.ErrInternal. data is sent along
// when not nil, e.g. the FAILED transaction of a settlement error.
func RespondError(gctx *gin.Context, err error, data any) {
	status := StatusOf(err)

	switch domain.KindOf(err) {
	case domain.KindInternal:
		err = errorspkg.ErrInternal
	case domain.KindTransient:
		err = errorspkg.ErrTransientStorage
	}

	gctx.JSON(status, web.Response{Data: data, Error: err.Error()})
}
