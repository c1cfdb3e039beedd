package transfer

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/domain/benefit"
	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/pkg/pagination"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	writeGroup := api.Group("", auth.RequireRole("admin", "reception"))
	writeGroup.POST("/benefits/transfers", h.Create)

	readGroup := api.Group("", auth.RequireRole("admin", "billing", "reception"))
	readGroup.GET("/patients/:id/transfers", h.History)
	readGroup.GET("/benefits/transfers/:id", h.Get)
}

type createRequest struct {
	SourcePatientID uuid.UUID `json:"source_patient_id"`
	TargetPatientID uuid.UUID `json:"target_patient_id"`
	Kind            string    `json:"kind"`
	BenefitID       uuid.UUID `json:"benefit_id"`
}

func (h *Handler) Create(c echo.Context) error {
	var body createRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	kind, err := benefit.ParseKind(body.Kind)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "kind must be membership or package")
	}
	if body.SourcePatientID == uuid.Nil || body.TargetPatientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "source_patient_id and target_patient_id are required")
	}

	res, err := h.engine.Transfer(c.Request().Context(), &Request{
		SourcePatientID: body.SourcePatientID,
		TargetPatientID: body.TargetPatientID,
		Kind:            kind,
		BenefitID:       body.BenefitID,
	})
	if err != nil {
		return benefit.WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) History(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	events, total, err := h.engine.History(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return benefit.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(events, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	transferID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid transfer id")
	}
	events, err := h.engine.Get(c.Request().Context(), transferID)
	if err != nil {
		return benefit.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, events)
}
