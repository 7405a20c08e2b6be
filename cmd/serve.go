package cmd

import (
	"context"
	"net"

	"github.com/vibast-solutions/ms-go-accounts/app/controller"
	accountsgrpc "github.com/vibast-solutions/ms-go-accounts/app/grpc"
	"github.com/vibast-solutions/ms-go-accounts/app/middleware"
	"github.com/vibast-solutions/ms-go-accounts/app/service"
	"github.com/vibast-solutions/ms-go-accounts/config"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  `Start the HTTP (Echo) server and, when INTERNAL_API_KEY is set, the internal gRPC session server.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	deps, err := buildAccountDeps(context.Background(), cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize dependencies")
	}
	defer deps.Close()

	if cfg.GRPC.InternalAPIKey != "" {
		go startGRPCServer(cfg, deps)
	} else {
		logrus.Info("INTERNAL_API_KEY not set, gRPC server disabled")
	}

	startHTTPServer(cfg, deps)
}

func newHTTPServer(cfg *config.Config, deps *accountDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			if userID, ok := c.Get(middleware.ContextKeyUserID).(uint64); ok {
				fields["user_id"] = userID
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	accountController := controller.NewAccountController(deps.accounts)
	sessionMiddleware := middleware.NewSessionMiddleware(deps.sessions)
	apiKeyMiddleware := middleware.NewAPIKeyMiddleware(cfg.GRPC.InternalAPIKey)

	users := e.Group("/users")
	users.POST("/register", accountController.Register)
	users.POST("/login", accountController.Login)
	users.POST("/logout", accountController.Logout)
	users.GET("/profile", accountController.Profile, sessionMiddleware.RequireSession(service.MsgLoginToView))
	users.POST("/profile/update", accountController.UpdateProfile, sessionMiddleware.RequireSession(service.MsgLoginFirst))
	users.POST("/password-reset/request", accountController.RequestPasswordReset)
	users.GET("/password-reset/confirm", accountController.ConfirmPasswordResetPage)
	users.POST("/password-reset/confirm", accountController.ConfirmPasswordReset)

	e.GET("/metrics", echo.WrapHandler(deps.metrics.Handler()), apiKeyMiddleware.RequireAPIKey)

	if cfg.Images.Backend == config.ImageBackendLocal {
		e.Static("/static", cfg.Images.Dir)
	}

	return e
}

func startHTTPServer(cfg *config.Config, deps *accountDeps) {
	e := newHTTPServer(cfg, deps)
	defer e.Close()

	httpAddr := listenAddr(cfg.HTTP.Host, cfg.HTTP.Port)
	logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
	if err := e.Start(httpAddr); err != nil {
		logrus.WithError(err).Fatal("Failed to start HTTP server")
	}
}

func startGRPCServer(cfg *config.Config, deps *accountDeps) {
	grpcAddr := listenAddr(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(accountsgrpc.APIKeyUnaryInterceptor(cfg.GRPC.InternalAPIKey)),
		grpc.StreamInterceptor(accountsgrpc.APIKeyStreamInterceptor(cfg.GRPC.InternalAPIKey)),
	)
	defer grpcServer.GracefulStop()
	accountsgrpc.RegisterSessionServiceServer(grpcServer, accountsgrpc.NewSessionServer(deps.sessions, deps.accounts))

	logrus.WithField("addr", grpcAddr).Info("Starting gRPC server")
	if err := grpcServer.Serve(lis); err != nil {
		logrus.WithError(err).Fatal("Failed to start gRPC server")
	}
}
