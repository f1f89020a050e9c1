// Package httpserver manages server creation and api routing.
package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/go-petr/sca-bank/internal/accountdelivery"
	"github.com/go-petr/sca-bank/internal/accountrepo"
	"github.com/go-petr/sca-bank/internal/accountservice"
	"github.com/go-petr/sca-bank/internal/challengerepo"
	"github.com/go-petr/sca-bank/internal/middleware"
	"github.com/go-petr/sca-bank/internal/standingorderdelivery"
	"github.com/go-petr/sca-bank/internal/standingorderrepo"
	"github.com/go-petr/sca-bank/internal/standingorderservice"
	"github.com/go-petr/sca-bank/internal/tanservice"
	"github.com/go-petr/sca-bank/internal/transferdelivery"
	"github.com/go-petr/sca-bank/internal/transferrepo"
	"github.com/go-petr/sca-bank/internal/transferservice"
	"github.com/go-petr/sca-bank/internal/userdelivery"
	"github.com/go-petr/sca-bank/internal/userrepo"
	"github.com/go-petr/sca-bank/internal/userservice"
	"github.com/go-petr/sca-bank/pkg/configpkg"
	"github.com/go-petr/sca-bank/pkg/dbpkg"
	"github.com/go-petr/sca-bank/pkg/tokenpkg"
	"github.com/go-petr/sca-bank/pkg/web"
)

const healthTimeout = 2 * time.Second

// ErrDatabaseUnavailable is reported by the health route when the database does not answer.
var ErrDatabaseUnavailable = errors.New("database unavailable")

// Services holds the service layer shared by the http server and the scheduler.
type Services struct {
	Users          *userservice.Service
	Accounts       *accountservice.Service
	TAN            *tanservice.Service
	Transfers      *transferservice.Service
	StandingOrders *standingorderservice.Service
}

// NewServices wires repositories and services over conn.
func NewServices(conn *sql.DB, config configpkg.Config) Services {
	runner := dbpkg.NewTxRunner(conn, config.DBTxRetries)

	accountService := accountservice.New(accountrepo.NewRepoPGS(conn))
	tanService := tanservice.New(challengerepo.NewRepoPGS(runner), tanservice.LogSender{}, config)

	return Services{
		Users:          userservice.New(userrepo.NewRepoPGS(conn), accountService),
		Accounts:       accountService,
		TAN:            tanService,
		Transfers:      transferservice.New(transferrepo.NewRepoPGS(runner), accountService, tanService),
		StandingOrders: standingorderservice.New(standingorderrepo.NewRepoPGS(runner), accountService, config),
	}
}

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB       *sql.DB
	Engine   *gin.Engine
	Config   configpkg.Config
	Services Services
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// Health reports whether the database answers a ping within healthTimeout.
func (s *Server) Health(gctx *gin.Context) {
	ctx, cancel := context.WithTimeout(gctx.Request.Context(), healthTimeout)
	defer cancel()

	if err := s.DB.PingContext(ctx); err != nil {
		zerolog.Ctx(gctx.Request.Context()).Warn().Err(err).Msg("health check failed")
		gctx.JSON(http.StatusServiceUnavailable, web.Error(ErrDatabaseUnavailable))

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: gin.H{"status": "ok"}})
}

// RegisterValidators registers the custom binding tags of all handlers on gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}

	for _, register := range []func(*validator.Validate) error{
		accountdelivery.RegisterValidators,
		transferdelivery.RegisterValidators,
		standingorderdelivery.RegisterValidators,
	} {
		if err := register(v); err != nil {
			return err
		}
	}

	return nil
}

// New creates Server type with instantiated domains and routes.
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	tokenMaker, err := tokenpkg.NewMaker(config)
	if err != nil {
		return nil, errors.New("cannot create token maker")
	}

	if err := RegisterValidators(); err != nil {
		return nil, errors.New("cannot register validators")
	}

	services := NewServices(conn, config)

	userHandler := userdelivery.NewHandler(services.Users)
	accountHandler := accountdelivery.NewHandler(services.Accounts)
	transferHandler := transferdelivery.NewHandler(services.Transfers)
	standingOrderHandler := standingorderdelivery.NewHandler(services.StandingOrders)

	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	server := &Server{
		DB:       conn,
		Engine:   engine,
		Config:   config,
		Services: services,
	}

	engine.GET("/health", server.Health)

	authRoutes := engine.Group("/").Use(middleware.AuthMiddleware(tokenMaker))

	authRoutes.POST("/users", userHandler.Enroll)

	authRoutes.POST("/accounts", accountHandler.Create)
	authRoutes.GET("/accounts/:id", accountHandler.Get)

	authRoutes.POST("/transfers", transferHandler.Initiate)
	authRoutes.GET("/transfers/:id", transferHandler.Get)
	authRoutes.POST("/transfers/:id/confirm", transferHandler.Confirm)
	authRoutes.DELETE("/transfers/:id", transferHandler.Cancel)

	authRoutes.POST("/standing-orders", standingOrderHandler.Create)
	authRoutes.GET("/standing-orders", standingOrderHandler.List)
	authRoutes.DELETE("/standing-orders/:id", standingOrderHandler.Cancel)

	return server, nil
}
