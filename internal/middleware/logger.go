package middleware

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/go-petr/sca-bank/pkg/configpkg"
)

// RequestIDHeader is the header used to correlate a request across services.
const RequestIDHeader = "X-Request-ID"

// CreateLogger returns the application logger.
//
// Production writes JSON at INFO to stderr, development writes colored console output at TRACE.
func CreateLogger(config configpkg.Config) zerolog.Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	var (
		output   io.Writer = os.Stderr
		logLevel           = zerolog.InfoLevel
	)

	logger := zerolog.New(output).
		Level(logLevel).
		With().
		Timestamp().
		Logger()

	if config.Environement == configpkg.EnvDevelopment {
		logger = logger.
			Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			Level(zerolog.TraceLevel).
			With().
			Caller().
			Logger()
	}

	return logger
}

// RequestLogger attaches a request scoped logger to the request context and logs every request.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		start := time.Now()

		requestID := gctx.Request.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
			gctx.Request.Header.Set(RequestIDHeader, requestID)
		}

		gctx.Writer.Header().Set(RequestIDHeader, requestID)

		l := logger.With().Str("request_id", requestID).Logger()
		gctx.Request = gctx.Request.WithContext(l.WithContext(gctx.Request.Context()))

		defer func() {
			if panicVal := recover(); panicVal != nil {
				l.Error().Msgf("panic message: %v", panicVal)
				gctx.AbortWithStatus(http.StatusInternalServerError)
			}

			param := gin.LogFormatterParams{}
			param.TimeStamp = time.Now()
			param.Latency = param.TimeStamp.Sub(start)
			param.ClientIP = gctx.ClientIP()
			param.Method = gctx.Request.Method
			param.StatusCode = gctx.Writer.Status()
			param.ErrorMessage = gctx.Errors.ByType(gin.ErrorTypePrivate).String()
			param.Path = gctx.Request.URL.Path

			var logEvent *zerolog.Event
			if param.StatusCode >= http.StatusInternalServerError {
				logEvent = l.Error()
			} else {
				logEvent = l.Info()
			}

			logEvent.
				Str("client_ip", param.ClientIP).
				Str("method", param.Method).
				Int("status_code", param.StatusCode).
				Str("path", param.Path).
				Str("latency", param.Latency.String()).
				Msg(param.ErrorMessage)
		}()

		gctx.Next()
	}
}
