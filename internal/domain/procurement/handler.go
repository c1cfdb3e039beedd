package procurement

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/domain/benefit"
	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/procurement", auth.RequireRole("admin", "inventory"))
	g.POST("/documents", h.Create)
	g.GET("/documents", h.List)
	g.GET("/documents/:id", h.Get)
	g.DELETE("/documents/:id", h.Delete)
	g.POST("/numbers/preview", h.PreviewNumber)
}

type createRequest struct {
	DocType  string  `json:"doc_type"`
	Supplier string  `json:"supplier"`
	Status   string  `json:"status"`
	Notes    *string `json:"notes"`
}

func (h *Handler) Create(c echo.Context) error {
	var body createRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	docType, err := ParseDocType(body.DocType)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	doc := &Document{DocType: docType, Supplier: body.Supplier, Status: body.Status, Notes: body.Notes}
	if err := h.svc.CreateDocument(c.Request().Context(), doc); err != nil {
		var de *benefit.Error
		if errors.As(err, &de) {
			return benefit.WriteError(c, err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, doc)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doc, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return benefit.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) List(c echo.Context) error {
	docType, err := ParseDocType(c.QueryParam("doc_type"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	pg := pagination.FromContext(c)
	docs, total, err := h.svc.List(c.Request().Context(), docType, pg.Limit, pg.Offset)
	if err != nil {
		return benefit.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(docs, total, pg.Limit, pg.Offset))
}

type previewRequest struct {
	DocType string `json:"doc_type"`
}

func (h *Handler) PreviewNumber(c echo.Context) error {
	var body previewRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	docType, err := ParseDocType(body.DocType)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	number, err := h.svc.PreviewNumber(c.Request().Context(), docType)
	if err != nil {
		return benefit.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"doc_type": string(docType),
		"number":   number,
	})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return benefit.WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
