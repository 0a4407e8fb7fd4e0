// Package handlers provides HTTP handlers for analysis results.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/hindsight/internal/modules/analysis"
	"github.com/aristath/hindsight/internal/modules/attribution"
)

// AnalysisService is the surface the handlers need from the analysis module.
type AnalysisService interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error)
	StockHistory(ctx context.Context) ([]attribution.SymbolReport, error)
}

// Handler handles analysis HTTP requests
type Handler struct {
	service AnalysisService
	log     zerolog.Logger
}

// NewHandler creates a new analysis handler
func NewHandler(service AnalysisService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "analysis").Logger(),
	}
}

// HandleGetAnalysis handles GET /api/analysis?period=1y
func (h *Handler) HandleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	req := analysis.Request{Period: r.URL.Query().Get("period")}

	result, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Msg("analysis failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetStocks handles GET /api/analysis/stocks
func (h *Handler) HandleGetStocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.service.StockHistory(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("stock history failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": stocks,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"count":     len(stocks),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
