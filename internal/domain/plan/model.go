package plan

import (
	"time"

	"github.com/google/uuid"
)

// MembershipPlan defines a clinic membership and the consumable benefits it
// grants per enrollment. Plans referenced by a benefit transfer must never be
// deleted, only deactivated, so historical grants stay resolvable.
type MembershipPlan struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	FreeConsultations  int       `db:"free_consultations" json:"free_consultations"`
	DiscountPercentage *float64  `db:"discount_percentage" json:"discount_percentage,omitempty"`
	DurationDays       int       `db:"duration_days" json:"duration_days"`
	Active             bool      `db:"active" json:"active"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// TreatmentPackage defines a prepaid block of treatment sessions. The total
// allowance is the sum of the per-treatment session caps.
type TreatmentPackage struct {
	ID        uuid.UUID     `db:"id" json:"id"`
	Name      string        `db:"name" json:"name"`
	Active    bool          `db:"active" json:"active"`
	Items     []PackageItem `json:"items"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// PackageItem caps the sessions of a single treatment inside a package.
type PackageItem struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PackageID     uuid.UUID `db:"package_id" json:"package_id"`
	TreatmentSlug string    `db:"treatment_slug" json:"treatment_slug"`
	Sessions      int       `db:"sessions" json:"sessions"`
	Position      int       `db:"position" json:"position"`
}

// TotalSessions returns the package's total allowance across all treatments.
func (p *TreatmentPackage) TotalSessions() int {
	total := 0
	for _, item := range p.Items {
		total += item.Sessions
	}
	return total
}

// SessionsFor returns the session cap for a treatment, or 0 if the package
// does not include it.
func (p *TreatmentPackage) SessionsFor(treatmentSlug string) int {
	for _, item := range p.Items {
		if item.TreatmentSlug == treatmentSlug {
			return item.Sessions
		}
	}
	return 0
}
