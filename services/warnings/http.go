package warnings

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/ordishs/gocore"
	"github.com/peercoin/warnd/errors"
	"github.com/peercoin/warnd/util/tracing"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const apiPrefix = "/api/v1"

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Status int32  `json:"status"`
	Code   int32  `json:"code"`
	Err    string `json:"error"`
}

// WarningsResponse is the body of GET /api/v1/warnings.
type WarningsResponse struct {
	Warnings string `json:"warnings"`
}

// MessageRequest is the body of PUT /api/v1/warnings/misc and /mint. An
// empty message clears the warning.
type MessageRequest struct {
	Message *string `json:"message"`
}

// ForkStateResponse is the body returned by POST /api/v1/forkstate.
type ForkStateResponse struct {
	Condition ForkCondition `json:"condition"`
	Warnings  string        `json:"warnings"`
}

// newEcho wires the routes:
//
//	GET /alive                     liveness
//	GET /health                    readiness, see Health
//	GET /api/v1/warnings           {"warnings": "..."}, ?verbose=true for the full list
//	GET /api/v1/warnings/status    the full Status snapshot
//	PUT /api/v1/warnings/misc      {"message": "..."}, sets or clears the misc warning
//	PUT /api/v1/warnings/mint      {"message": "..."}, sets or clears the mint warning
//	POST /api/v1/forkstate         ForkState, re-evaluates the large-work warnings
//	GET /metrics                   prometheus
//
// gocore stats are served under settings.StatsPrefix when it is set.
func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPost, http.MethodOptions},
	}))

	e.GET("/alive", func(c echo.Context) error {
		return c.String(http.StatusOK, fmt.Sprintf("Warnings service is alive. Uptime: %s\n", time.Since(s.startTime)))
	})

	e.GET("/health", func(c echo.Context) error {
		status, details, err := s.Health(c.Request().Context(), false)
		if err != nil {
			return c.String(http.StatusInternalServerError, details)
		}

		return c.JSONBlob(status, []byte(details))
	})

	api := e.Group(apiPrefix)
	api.GET("/warnings", s.GetWarnings)
	api.GET("/warnings/status", s.GetStatus)
	api.PUT("/warnings/misc", s.PutMiscWarning)
	api.PUT("/warnings/mint", s.PutMintWarning)
	api.POST("/forkstate", s.PostForkState)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if prefix := s.settings.StatsPrefix; prefix != "" {
		e.GET(prefix+"stats", adaptStdHandler(gocore.HandleStats))
		e.GET(prefix+"reset", adaptStdHandler(gocore.ResetStats))
	}

	return e
}

// GetWarnings renders the registry. A missing verbose parameter means concise.
func (s *Server) GetWarnings(c echo.Context) error {
	_, _, deferFn := tracing.StartTracing(c.Request().Context(), "GetWarnings",
		tracing.WithParentStat(s.stats),
		tracing.WithLogMessage(s.logger, "[GetWarnings] %s", c.QueryString()),
	)
	defer deferFn()

	verbose := false

	if v := c.QueryParam("verbose"); v != "" {
		var err error
		if verbose, err = strconv.ParseBool(v); err != nil {
			return sendError(c, http.StatusBadRequest, errors.NewInvalidArgumentError("invalid verbose value %q", v, err))
		}
	}

	mode := "concise"
	if verbose {
		mode = "verbose"
	}

	prometheusWarningsRequests.WithLabelValues(mode).Inc()

	return c.JSON(http.StatusOK, WarningsResponse{Warnings: s.registry.GetWarnings(verbose)})
}

func (s *Server) GetStatus(c echo.Context) error {
	_, _, deferFn := tracing.StartTracing(c.Request().Context(), "GetStatus",
		tracing.WithParentStat(s.stats),
		tracing.WithLogMessage(s.logger, "[GetStatus] called"),
	)
	defer deferFn()

	prometheusWarningsRequests.WithLabelValues("status").Inc()

	return c.JSON(http.StatusOK, s.registry.Snapshot())
}

// PutMiscWarning replaces the misc warning and returns the new status.
func (s *Server) PutMiscWarning(c echo.Context) error {
	return s.putMessage(c, "PutMiscWarning", s.registry.SetMiscWarning)
}

// PutMintWarning replaces the mint warning and returns the new status.
func (s *Server) PutMintWarning(c echo.Context) error {
	return s.putMessage(c, "PutMintWarning", s.registry.SetMintWarning)
}

func (s *Server) putMessage(c echo.Context, name string, set func(string)) (err error) {
	_, _, deferFn := tracing.StartTracing(c.Request().Context(), name,
		tracing.WithParentStat(s.stats),
		tracing.WithLogMessage(s.logger, "[%s] called", name),
	)
	defer func() {
		deferFn(err)
	}()

	var req MessageRequest
	if err = decodeBody(c, &req); err != nil {
		return sendError(c, http.StatusBadRequest, err)
	}

	if req.Message == nil {
		err = errors.NewInvalidArgumentError("message is required")
		return sendError(c, http.StatusBadRequest, err)
	}

	prometheusWarningsRequests.WithLabelValues("write").Inc()

	s.logger.Infof("[%s] %q", name, *req.Message)
	set(*req.Message)

	return c.JSON(http.StatusOK, s.registry.Snapshot())
}

// PostForkState runs the large-work fork check against the reported chain
// state. Work values are JSON strings, decimal or 0x-prefixed hex.
func (s *Server) PostForkState(c echo.Context) (err error) {
	_, _, deferFn := tracing.StartTracing(c.Request().Context(), "PostForkState",
		tracing.WithParentStat(s.stats),
		tracing.WithLogMessage(s.logger, "[PostForkState] called"),
	)
	defer func() {
		deferFn(err)
	}()

	var fs ForkState
	if err = decodeBody(c, &fs); err != nil {
		return sendError(c, http.StatusBadRequest, err)
	}

	if !fs.InitialBlockDownload && fs.TipWork == nil && fs.ParentWork == nil {
		err = errors.NewInvalidArgumentError("tipWork or parentWork is required")
		return sendError(c, http.StatusBadRequest, err)
	}

	prometheusWarningsRequests.WithLabelValues("forkstate").Inc()

	condition := CheckForkWarningConditions(s.registry, s.logger, fs)

	return c.JSON(http.StatusOK, ForkStateResponse{
		Condition: condition,
		Warnings:  s.registry.GetWarnings(false),
	})
}

// decodeBody strictly decodes a JSON request body into v.
func decodeBody(c echo.Context, v interface{}) error {
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return errors.NewInvalidArgumentError("invalid request body", err)
	}

	return nil
}

func sendError(c echo.Context, status int, err error) error {
	code := int32(errors.ERR_UNKNOWN)

	var tErr *errors.Error
	if errors.As(err, &tErr) {
		code = int32(tErr.Code())
	}

	return c.JSON(status, &errorResponse{
		Status: int32(status),
		Code:   code,
		Err:    err.Error(),
	})
}

func adaptStdHandler(handler func(w http.ResponseWriter, r *http.Request)) echo.HandlerFunc {
	return func(c echo.Context) error {
		handler(c.Response().Writer, c.Request())
		return nil
	}
}
