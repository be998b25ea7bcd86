package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/spigell/offer-guard/internal/ai"
	"github.com/spigell/offer-guard/internal/history"
	"github.com/spigell/offer-guard/internal/offer"
	"github.com/spigell/offer-guard/internal/risk"
)

const analysisFailedMessage = "Something went wrong during analysis."

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"requestId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AnalysisResponse wraps a verdict with the id it was saved under.
type AnalysisResponse struct {
	ID     string       `json:"id,omitempty"`
	Result *risk.Result `json:"result"`
}

type MatchRequest struct {
	Resume         string `json:"resume" validate:"required,max=20000"`
	JobDescription string `json:"jobDescription" validate:"required,max=20000"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createAnalysis(c echo.Context) error {
	if s.deps.Analyzer == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "analysis is not configured")
	}

	var o offer.JobOffer
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
	}
	o = o.Normalize()
	if err := o.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}

	ctx := c.Request().Context()
	result, err := s.deps.Analyzer.Analyze(ctx, o)
	if errors.Is(err, risk.ErrNoAnalyzer) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "analysis is unavailable").SetInternal(err)
	}
	if err != nil {
		s.logger.Error("analysis failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, analysisFailedMessage).SetInternal(err)
	}

	resp := AnalysisResponse{Result: result}
	if c.QueryParam("save") != "false" {
		item := history.NewItem(o, result)
		if err := s.deps.History.Add(ctx, item); err != nil {
			s.logger.Warn("failed to save analysis to history", zap.Error(err))
		} else {
			resp.ID = item.ID
		}
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) listHistory(c echo.Context) error {
	items, err := s.deps.History.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (s *Server) getHistoryItem(c echo.Context) error {
	item, err := s.deps.History.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return historyError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (s *Server) deleteHistoryItem(c echo.Context) error {
	if err := s.deps.History.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return historyError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) clearHistory(c echo.Context) error {
	if err := s.deps.History.Clear(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func historyError(err error) error {
	if errors.Is(err, history.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "history item not found").SetInternal(err)
	}
	return err
}

// internships degrades to an empty list when the lookup fails.
func (s *Server) internships(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q is required")
	}
	if s.deps.Market == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "market research is not configured")
	}

	listings, err := s.deps.Market.Internships(c.Request().Context(), query)
	if err != nil {
		s.logger.Warn("internship lookup failed", zap.String("query", query), zap.Error(err))
		listings = []ai.Internship{}
	}
	return c.JSON(http.StatusOK, listings)
}

// skills degrades to an empty list when the lookup fails.
func (s *Server) skills(c echo.Context) error {
	domain := strings.TrimSpace(c.QueryParam("domain"))
	if domain == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter domain is required")
	}
	if s.deps.Market == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "market research is not configured")
	}

	trends, err := s.deps.Market.SkillTrends(c.Request().Context(), domain)
	if err != nil {
		s.logger.Warn("skill trend lookup failed", zap.String("domain", domain), zap.Error(err))
		trends = []ai.SkillTrend{}
	}
	return c.JSON(http.StatusOK, trends)
}

func (s *Server) matchResume(c echo.Context) error {
	if s.deps.Matcher == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "resume matching is not configured")
	}

	var req MatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
	}
	req.Resume = strings.TrimSpace(req.Resume)
	req.JobDescription = strings.TrimSpace(req.JobDescription)
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "resume and jobDescription are required").SetInternal(err)
	}

	result, err := s.deps.Matcher.Match(c.Request().Context(), req.Resume, req.JobDescription)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "resume matching failed").SetInternal(err)
	}
	return c.JSON(http.StatusOK, result)
}

// handleError renders every error as an ErrorResponse.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	} else {
		s.logger.Error("unhandled request error", zap.Error(err))
	}

	body := ErrorResponse{
		Error:     strings.ToLower(strings.ReplaceAll(http.StatusText(code), " ", "_")),
		Message:   message,
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
		Timestamp: time.Now().UTC(),
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, body)
	}
	if writeErr != nil {
		s.logger.Warn("failed to write error response", zap.Error(writeErr))
	}
}
