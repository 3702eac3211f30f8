package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/carie/internal/agent/react"
	"github.com/mohammad-safakhou/carie/internal/plants"
	"github.com/mohammad-safakhou/carie/internal/trace"
)

const maxTraceLimit = 100

// ask
//
//	@Summary	Run a task through the planner
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		AskRequest	true	"Task"
//	@Success	200		{object}	AskResponse
//	@Failure	400		{object}	HTTPError
//	@Failure	502		{object}	HTTPError
//	@Router		/api/ask [post]
func (s *Server) ask(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	task := strings.TrimSpace(req.Task)
	if task == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "task is required")
	}
	res, err := s.assistant.Ask(c.Request().Context(), task)
	if err != nil {
		var perr *react.PredictorError
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return echo.NewHTTPError(http.StatusGatewayTimeout, err.Error())
		case errors.As(err, &perr):
			return echo.NewHTTPError(http.StatusBadGateway, err.Error()).SetInternal(err)
		case errors.Is(err, react.ErrMissingInput):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, react.ErrCapabilityInvocation):
			return echo.NewHTTPError(http.StatusBadGateway, err.Error()).SetInternal(err)
		default:
			return err
		}
	}
	return c.JSON(http.StatusOK, AskResponse{
		RunID:  res.RunID,
		Status: res.Status,
		Result: res.Value,
		Hops:   res.Hops(),
		Trace:  res.State.Entries(),
	})
}

func (s *Server) listPlants(c echo.Context) error {
	list, err := s.assistant.Plants.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error()).SetInternal(err)
	}
	out := make([]plants.Summary, 0, len(list))
	for _, p := range list {
		out = append(out, p.Summary())
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) describePlan(c echo.Context) error {
	plan := s.assistant.Plan
	resp := PlanResponse{
		Instructions: plan.Instructions(),
		Fingerprint:  plan.Fingerprint(),
		MaxHops:      plan.MaxHops(),
		Capabilities: plan.Registry().Names(),
	}
	for d := 1; d <= plan.MaxHops(); d++ {
		schema, _ := plan.Schema(d)
		resp.Depths = append(resp.Depths, DepthFields{Depth: d, Fields: schema.Names()})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) recentTraces(c echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxTraceLimit)
	}
	traces, err := s.assistant.Traces.Recent(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, traces)
}

func (s *Server) getTrace(c echo.Context) error {
	t, err := s.assistant.Traces.Get(c.Request().Context(), c.Param("run_id"))
	if errors.Is(err, trace.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "trace not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}
