package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apperrors "demandcast/internal/errors"
	"demandcast/internal/forecast"
)

// maxBatchCases bounds one forecast request.
const maxBatchCases = 1000

// Predictor scores forecast cases.
type Predictor interface {
	PredictBatch(ctx context.Context, cases []forecast.Case) ([]forecast.Prediction, error)
}

// ModelInfo is the served model's metadata.
type ModelInfo struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Seed         int64     `json:"seed"`
	FeatureCount int       `json:"feature_count"`
	TestMAE      float64   `json:"test_mae"`
	TestRMSE     float64   `json:"test_rmse"`
}

// ForecastHandler handles forecast HTTP requests.
type ForecastHandler struct {
	predictor Predictor
	info      ModelInfo
	logger    *slog.Logger
	validate  *validator.Validate
}

// NewForecastHandler creates a forecast handler.
func NewForecastHandler(predictor Predictor, info ModelInfo, logger *slog.Logger) *ForecastHandler {
	return &ForecastHandler{
		predictor: predictor,
		info:      info,
		logger:    logger.With(slog.String("handler", "forecast")),
		validate:  validator.New(),
	}
}

// RegisterRoutes registers the forecast routes.
func (h *ForecastHandler) RegisterRoutes(r chi.Router) {
	r.Post("/forecast", h.Forecast)
	r.Get("/model", h.Model)
}

type forecastRequest struct {
	Cases []forecast.Case `json:"cases" validate:"required,min=1,dive"`
}

type forecastResponse struct {
	Predictions []forecast.Prediction `json:"predictions"`
	ModelID     string                `json:"model_id"`
}

// Forecast handles POST /api/v1/forecast.
func (h *ForecastHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req forecastRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, h.logger, apperrors.Wrap(apperrors.ErrTypeParsing, "decode request body", err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, r, h.logger, apperrors.NewValidationError(err.Error()))
		return
	}
	if len(req.Cases) > maxBatchCases {
		respondError(w, r, h.logger, apperrors.NewValidationError("batch exceeds maximum size"))
		return
	}

	h.logger.InfoContext(ctx, "scoring batch", "cases", len(req.Cases))
	preds, err := h.predictor.PredictBatch(ctx, req.Cases)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	render.JSON(w, r, forecastResponse{Predictions: preds, ModelID: h.info.ID})
}

// Model handles GET /api/v1/model.
func (h *ForecastHandler) Model(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.info)
}
