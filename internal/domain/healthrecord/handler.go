package healthrecord

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/health-records", h.CreateRecord)
	api.GET("/health-records/:id", h.GetRecord)
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (h *Handler) CreateRecord(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "Invalid request body"})
	}

	ctx := c.Request().Context()
	rec, err := h.svc.CreateRecord(ctx, in)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusBadRequest, errorBody{Error: "Invalid health record", Fields: verr.Fields})
		}
		zerolog.Ctx(ctx).Error().Err(err).Msg("create health record")
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "Failed to save health record"})
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) GetRecord(c echo.Context) error {
	ctx := c.Request().Context()
	rec, err := h.svc.GetRecord(ctx, c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorBody{Error: "Health record not found"})
	}
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("record_id", c.Param("id")).Msg("load health record")
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "Failed to load health record"})
	}
	return c.JSON(http.StatusOK, rec)
}
