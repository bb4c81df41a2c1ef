package handler

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/warnet-bowar/internal/model"
	"github.com/iliyamo/warnet-bowar/internal/repository"
	"github.com/iliyamo/warnet-bowar/internal/service"
)

// WarnetService is implemented by *service.WarnetService.
type WarnetService interface {
	List(ctx context.Context, search string) ([]repository.WarnetSummary, error)
	Detail(ctx context.Context, id uint64) (*service.WarnetDetail, error)
	Rules(ctx context.Context, id uint64) ([]model.WarnetRule, error)
}

// WarnetHandler serves the public venue catalogue.
type WarnetHandler struct {
	Base
	Warnets WarnetService
}

func NewWarnetHandler(b Base, s WarnetService) *WarnetHandler {
	return &WarnetHandler{Base: b, Warnets: s}
}

// List returns active warnets with live PC counts; ?search= matches name
// or address.
func (h *WarnetHandler) List(c echo.Context) error {
	ws, err := h.Warnets.List(c.Request().Context(), strings.TrimSpace(c.QueryParam("search")))
	if err != nil {
		return h.fail(c, err)
	}
	out := make([]repository.WarnetSummary, len(ws))
	for i, w := range ws {
		w.Warnet = warnetOut(c, w.Warnet)
		out[i] = w
	}
	return ok(c, "Daftar warnet", out)
}

func (h *WarnetHandler) Detail(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	d, err := h.Warnets.Detail(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	d.Warnet = warnetOut(c, d.Warnet)
	return ok(c, "Detail warnet", d)
}

func (h *WarnetHandler) Rules(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	rules, err := h.Warnets.Rules(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	if rules == nil {
		rules = []model.WarnetRule{}
	}
	return ok(c, "Peraturan warnet", rules)
}
