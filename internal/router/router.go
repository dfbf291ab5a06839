package router

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	echoSwagger "github.com/swaggo/echo-swagger"

	"occupancy/docs"
	"occupancy/internal/auth"
	"occupancy/internal/config"
	apperrors "occupancy/internal/errors"
	"occupancy/internal/handler"
	"occupancy/internal/metrics"
	"occupancy/internal/model"
)

// Handlers groups the HTTP handlers mounted under /api.
type Handlers struct {
	Auth        *handler.AuthHandler
	Student     *handler.StudentHandler
	Environment *handler.EnvironmentHandler
	AccessLog   *handler.AccessLogHandler
	Dashboard   *handler.DashboardHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	reg *prometheus.Registry,
	tokenStore auth.TokenStoreInterface,
	h Handlers,
) {
	e.HideBanner = true
	e.HTTPErrorHandler = ErrorHandler
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.RequestID())
	e.Use(requestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
	}))
	if reg != nil {
		e.Use(metrics.NewHTTPMetrics(reg).Middleware())
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(reg)))
	}

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)

	// Secured routes (require a live access token)
	secured := api.Group("", auth.JWTMiddleware([]byte(cfg.JWTSecret)), auth.RequireAccessToken(tokenStore))
	admin := auth.RequireRole(model.RoleAdmin)

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/auth/profile", h.Auth.Profile)

	students := secured.Group("/students", admin)
	students.GET("", h.Student.ListStudents)
	students.POST("", h.Student.CreateStudent)
	students.GET("/:id", h.Student.GetStudent)
	students.PATCH("/:id", h.Student.UpdateStudent)
	students.DELETE("/:id", h.Student.DeleteStudent)

	secured.GET("/environments", h.Environment.ListEnvironments)
	secured.GET("/environments/:id", h.Environment.GetEnvironment)
	secured.POST("/environments", h.Environment.CreateEnvironment, admin)
	secured.PATCH("/environments/:id", h.Environment.UpdateEnvironment, admin)
	secured.DELETE("/environments/:id", h.Environment.DeleteEnvironment, admin)

	secured.POST("/access-logs", h.AccessLog.RegisterAccess)
	secured.GET("/access-logs", h.AccessLog.ListAccessLogs)

	secured.GET("/dashboard/occupation", h.Dashboard.GetOccupation)
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "request", attrs...)
			return nil
		},
	})
}

// ErrorHandler renders every error in the {success:false, message} envelope.
// Server errors are logged with their internal cause.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if code < http.StatusInternalServerError {
			message = fmt.Sprint(he.Message)
		}
	}

	if code >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request().Context(), "request failed",
			"error", err,
			"method", c.Request().Method,
			"path", c.Path(),
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, apperrors.ErrorResponse{Success: false, Message: message})
	}
	if writeErr != nil {
		slog.Error("write error response", "error", writeErr)
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
