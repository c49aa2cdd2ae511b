package healthreport

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/healthreport/internal/domain/healthrecord"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/health-reports", h.GenerateReport)
}

// GenerateRequest is the body of POST /health-reports.
type GenerateRequest struct {
	RecordID string `json:"recordId"`
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) GenerateReport(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "Invalid request body"})
	}

	ctx := c.Request().Context()
	report, err := h.svc.Generate(ctx, req.RecordID)
	switch {
	case errors.Is(err, ErrRecordIDRequired):
		return c.JSON(http.StatusBadRequest, errorBody{Error: "Record ID is required"})
	case errors.Is(err, healthrecord.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorBody{Error: "Health record not found"})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		// left to the timeout middleware and the error handler
		return err
	case err != nil:
		zerolog.Ctx(ctx).Error().Err(err).Str("record_id", req.RecordID).Msg("generate health report")
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "Failed to generate PDF", Details: err.Error()})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+report.Filename+`"`)
	return c.Blob(http.StatusOK, "application/pdf", report.Content)
}
