package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sweepstat/internal/analyzer"
	"sweepstat/internal/store"
	"sweepstat/internal/timeframe"
	"sweepstat/pkg/model"
)

// runRequest selects a series and overrides analysis parameters. Empty series
// fields fall back to the configured data source.
type runRequest struct {
	Exchange string          `json:"exchange"`
	Symbol   string          `json:"symbol"`
	Base     string          `json:"base"`
	Params   analyzer.Params `json:"params"`
}

type chartRequest struct {
	runRequest
	EventID string `json:"event_id" binding:"required"`
	Before  int    `json:"before"`
	After   int    `json:"after"`
}

type analysisInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleAnalyses(c *gin.Context) {
	all := analyzer.All()
	out := make([]analysisInfo, len(all))
	for i, a := range all {
		out[i] = analysisInfo{Name: a.Name, Description: a.Description}
	}
	successResponse(c, out)
}

func (s *Server) handleSeries(c *gin.Context) {
	if s.lister == nil {
		successResponse(c, []store.Series{})
		return
	}
	series, err := s.lister.Series(c.Request.Context())
	if err != nil {
		s.log.Error("listing series", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, "failed to list series")
		return
	}
	successResponse(c, series)
}

func (s *Server) handleRun(c *gin.Context) {
	var req runRequest
	if !s.bind(c, &req) {
		return
	}
	rep, _, _, ok := s.run(c, c.Param("name"), req)
	if !ok {
		return
	}
	successResponse(c, rep)
}

func (s *Server) handleChart(c *gin.Context) {
	var req chartRequest
	if !s.bind(c, &req) {
		return
	}
	if req.Before == 0 && req.After == 0 {
		req.Before, req.After = 20, 50
	}

	name := c.Param("name")
	rep, series, base, ok := s.run(c, name, req.runRequest)
	if !ok {
		return
	}

	var event *model.EventOutcome
	for i := range rep.Events {
		if rep.Events[i].Event.ID == req.EventID {
			event = &rep.Events[i]
			break
		}
	}
	if event == nil {
		errorResponse(c, http.StatusNotFound, "event not found: "+req.EventID)
		return
	}

	bars, err := analyzer.ChartSeries(name, series, base, rep.Params)
	if err == nil {
		var chart analyzer.ChartData
		if chart, err = analyzer.Chart(bars, *event, req.Before, req.After); err == nil {
			successResponse(c, chart)
			return
		}
	}
	errorResponse(c, http.StatusBadRequest, err.Error())
}

func (s *Server) bind(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// run loads the series and runs the analysis, writing the error response
// itself when it fails.
func (s *Server) run(c *gin.Context, name string, req runRequest) (*analyzer.Report, []model.Candle, timeframe.Timeframe, bool) {
	key := store.Key{
		Exchange:  or(req.Exchange, s.opts.Data.Exchange),
		Symbol:    or(req.Symbol, s.opts.Data.Symbol),
		Timeframe: or(req.Base, s.opts.Data.Timeframe),
	}
	base, err := timeframe.Parse(key.Timeframe)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return nil, nil, 0, false
	}
	if _, err := analyzer.Get(name); err != nil {
		errorResponse(c, http.StatusNotFound, err.Error())
		return nil, nil, 0, false
	}

	ctx := c.Request.Context()
	series, err := s.loader.Load(ctx, key, time.Time{}, time.Time{})
	if err != nil {
		s.log.Error("loading series", zap.Stringer("key", key), zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, "failed to load series")
		return nil, nil, 0, false
	}
	if len(series) == 0 {
		errorResponse(c, http.StatusNotFound, "no candles stored for "+key.String())
		return nil, nil, 0, false
	}

	rep, err := analyzer.Run(ctx, name, series, base, req.Params.Merge(s.opts.Defaults), s.log)
	if err != nil {
		var ce *analyzer.ConfigError
		if errors.As(err, &ce) {
			errorResponse(c, http.StatusBadRequest, err.Error())
		} else {
			s.log.Error("analysis failed", zap.String("analysis", name), zap.Error(err))
			errorResponse(c, http.StatusInternalServerError, err.Error())
		}
		return nil, nil, 0, false
	}
	return rep, series, base, true
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
