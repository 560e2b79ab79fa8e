package rest

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/labstack/echo/v4"
	echo_middleware "github.com/labstack/echo/v4/middleware"
	"github.com/pot-code/course-certificate/internal/account"
	"github.com/pot-code/course-certificate/internal/certificate"
	infra "github.com/pot-code/course-certificate/internal/infrastructure"
	"github.com/pot-code/course-certificate/internal/infrastructure/auth"
	"github.com/pot-code/course-certificate/internal/infrastructure/driver"
	"github.com/pot-code/course-certificate/internal/infrastructure/validate"
	"github.com/pot-code/course-certificate/internal/interfaces/rest/handler"
	"github.com/pot-code/course-certificate/internal/interfaces/rest/middleware"
	"github.com/pot-code/course-certificate/internal/lesson"
	"github.com/pot-code/course-certificate/internal/testattempt"
	"go.elastic.co/apm/module/apmechov4"
	"go.uber.org/zap"
)

// UseCases application services exposed over http
type UseCases struct {
	Account     account.AccountUseCase
	Lesson      lesson.LessonUseCase
	TestAttempt testattempt.TestAttemptUseCase
	Eligibility certificate.EligibilityEvaluator
	Certificate certificate.CertificateUseCase
	Documents   handler.DocumentStore
	// DocumentType content type and file extension of rendered documents
	DocumentType      string
	DocumentExtension string
}

// Serve create http transport server and block until it stops
func Serve(
	conn driver.ITransactionalDB,
	rdb driver.KeyValueDB,
	option *infra.AppConfig,
	useCases *UseCases,
	logger *zap.Logger,
) error {
	app := NewServer(conn, rdb, option, useCases, logger)
	printRoutes(app, logger)
	return app.Start(fmt.Sprintf("%s:%d", option.Host, option.Port))
}

// NewServer build the echo app with every route registered, rdb may be nil
func NewServer(
	conn driver.ITransactionalDB,
	rdb driver.KeyValueDB,
	option *infra.AppConfig,
	useCases *UseCases,
	logger *zap.Logger,
) *echo.Echo {
	var (
		app       = echo.New()
		validator = validate.NewValidator()
		websocket = infra.NewWebsocket()
		jwtUtil   = auth.NewJWTUtil(option.Security.JWTMethod,
			option.Security.JWTSecret,
			option.Security.TokenName,
			option.SessionTimeout)
		tokenOption       = &middleware.ValidateTokenOption{}
		refreshMiddleware = middleware.RefreshToken(jwtUtil, &middleware.RefreshTokenOption{
			Threshold: option.SessionRefresh,
		})
	)
	if rdb != nil {
		tokenOption.InBlackList = func(ctx context.Context, token string) (bool, error) {
			return rdb.Exists(ctx, token)
		}
	}
	jwtMiddleware := middleware.VerifyToken(jwtUtil, tokenOption)

	app.HideBanner = true
	registerLivenessProbe(app, conn, rdb)
	if option.Env == infra.EnvDevelopment {
		registerProfileEndpoints(app)
	}
	app.Use(middleware.Logging(logger, &middleware.LoggingConfig{
		Skipper: func(e echo.Context) bool {
			return strings.HasPrefix(e.Request().RequestURI, "/healthz")
		},
	}))
	app.Use(middleware.ErrorHandling(
		&middleware.ErrorHandlingOption{
			Handler: func(c echo.Context, err error) {
				traceID := c.Response().Header().Get(echo.HeaderXRequestID)
				c.JSON(http.StatusInternalServerError,
					handler.NewRESTStandardError(http.StatusInternalServerError, err.Error()).SetTraceID(traceID),
				)
				logger.Error(err.Error(), zap.String("trace.id", traceID))
			},
		},
	))
	app.Use(echo_middleware.Secure())
	if option.DevOP.APM {
		app.Use(apmechov4.Middleware())
	}
	app.Use(echo_middleware.CORS())
	app.Use(middleware.AbortRequest(&middleware.AbortRequestOption{
		Timeout: option.RequestTimeout,
		Skipper: func(e echo.Context) bool {
			return strings.Contains(e.Request().URL.Path, "/ws/")
		},
	}))

	var (
		AccountHandler     = handler.NewAccountHandler(useCases.Account, jwtUtil)
		LessonHandler      = handler.NewLessonHandler(useCases.Lesson, jwtUtil, validator)
		TestHandler        = handler.NewTestHandler(useCases.TestAttempt, jwtUtil, validator)
		CertificateHandler = handler.NewCertificateHandler(
			useCases.Certificate, useCases.Eligibility, useCases.Account, useCases.Documents, jwtUtil,
			option.Certificate.RenderTimeout, useCases.DocumentType, useCases.DocumentExtension,
		)
		FeedHandler = handler.NewProgressFeedHandler(useCases.Lesson, useCases.TestAttempt, useCases.Eligibility, jwtUtil)
	)

	createEndpoint(app,
		&endpoint{
			apiVersion: "api/v1",
			middlewares: []echo.MiddlewareFunc{
				echo_middleware.RequestID(),
				middleware.SetTraceLogger(logger),
				jwtMiddleware,
				refreshMiddleware,
			},
			groups: []*apiGroup{
				{
					prefix: "/account",
					routes: []*route{
						{"POST", "/provision", AccountHandler.HandleProvision, nil},
					},
				},
				{
					prefix: "/lesson",
					routes: []*route{
						{"POST", "/complete", LessonHandler.HandleCompleteLesson, nil},
						{"GET", "/progress", LessonHandler.HandleGetLessonProgress, nil},
					},
				},
				{
					prefix: "/test",
					routes: []*route{
						{"POST", "/submit", TestHandler.HandleSubmitTest, nil},
						{"GET", "/results", TestHandler.HandleGetResults, nil},
					},
				},
				{
					prefix: "/certificate",
					routes: []*route{
						{"GET", "", CertificateHandler.HandleGetCertificate, nil},
						{"GET", "/eligibility", CertificateHandler.HandleGetEligibility, nil},
						{"POST", "/generate", CertificateHandler.HandleGenerate, nil},
						{"GET", "/download", CertificateHandler.HandleDownload, nil},
					},
				},
				{
					prefix: "/ws",
					routes: []*route{
						{"GET", "/progress", websocket.WithHeartbeat(FeedHandler.HandleMessage), nil},
					},
				},
			},
		})
	return app
}

func printRoutes(app *echo.Echo, logger *zap.Logger) {
	for _, route := range app.Routes() {
		if !strings.HasPrefix(route.Name, "github.com/labstack/echo") {
			logger.Info("Registered route", zap.String("method", route.Method), zap.String("path", route.Path))
		}
	}
}

func registerLivenessProbe(app *echo.Echo, db driver.ITransactionalDB, rdb driver.KeyValueDB) {
	app.GET("/healthz", func(c echo.Context) error {
		ctx := c.Request().Context()
		if err := db.Ping(ctx); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		if rdb != nil {
			if err := rdb.Ping(ctx); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})
}

func registerProfileEndpoints(app *echo.Echo) {
	expvarHandler := expvar.Handler()
	app.GET("/debug/vars", func(c echo.Context) error {
		expvarHandler.ServeHTTP(c.Response().Writer, c.Request())
		return nil
	})
	app.GET("/debug/pprof/", func(c echo.Context) error {
		pprof.Index(c.Response().Writer, c.Request())
		return nil
	})
	app.GET("/debug/pprof/:name", func(c echo.Context) error {
		switch c.Param("name") {
		case "cmdline":
			pprof.Cmdline(c.Response().Writer, c.Request())
		case "profile":
			pprof.Profile(c.Response().Writer, c.Request())
		case "symbol":
			pprof.Symbol(c.Response().Writer, c.Request())
		case "trace":
			pprof.Trace(c.Response().Writer, c.Request())
		default:
			pprof.Handler(c.Param("name")).ServeHTTP(c.Response().Writer, c.Request())
		}
		return nil
	})
}
