package benefit

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/auth"
)

type Handler struct {
	ledger *Ledger
}

func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "billing", "reception"))
	g.GET("/patients/:id/benefits/balance", h.Balance)
}

// Balance reports the reconciled state of a patient's active benefit.
// Query params: kind (membership|package, required), benefit_id (optional,
// pins a specific plan/package or enrollment), as_of (optional RFC 3339,
// defaults to now).
func (h *Handler) Balance(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	kind, err := ParseKind(c.QueryParam("kind"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "kind must be membership or package")
	}

	benefitID := uuid.Nil
	if raw := c.QueryParam("benefit_id"); raw != "" {
		benefitID, err = uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid benefit_id")
		}
	}

	asOf := time.Now().UTC()
	if raw := c.QueryParam("as_of"); raw != "" {
		asOf, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "as_of must be RFC 3339")
		}
	}

	bal, err := h.ledger.Balance(c.Request().Context(), patientID, benefitID, kind, asOf)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, bal)
}

// WriteError responds with the domain failure's {code, message} envelope and
// the transport status that matches its code. Callers inspect the code field
// to tell a retryable concurrency_conflict from a terminal rejection, so the
// envelope is written whole rather than collapsed to its message.
func WriteError(c echo.Context, err error) error {
	de := AsError(err)
	return c.JSON(HTTPStatus(de.Code), de)
}
