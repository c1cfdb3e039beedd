// Package procurement manages supplier-facing documents and their sequential
// numbering. Numbers are assigned once at creation and never change; deleted
// documents free their number for reuse by the gap-filling allocator.
package procurement

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocType identifies a numbering namespace. Each type carries its own
// counter, so purchase requests and purchase returns stay distinct even
// though both display a PR prefix.
type DocType string

const (
	DocTypeGRN             DocType = "grn"
	DocTypePurchaseOrder   DocType = "purchase_order"
	DocTypePurchaseRequest DocType = "purchase_request"
	DocTypePurchaseInvoice DocType = "purchase_invoice"
	DocTypePurchaseReturn  DocType = "purchase_return"
)

func ParseDocType(s string) (DocType, error) {
	switch DocType(s) {
	case DocTypeGRN, DocTypePurchaseOrder, DocTypePurchaseRequest, DocTypePurchaseInvoice, DocTypePurchaseReturn:
		return DocType(s), nil
	default:
		return "", fmt.Errorf("unknown document type %q", s)
	}
}

// Prefix returns the display prefix for the type.
func (t DocType) Prefix() string {
	switch t {
	case DocTypeGRN:
		return "GRN"
	case DocTypePurchaseOrder:
		return "PO"
	case DocTypePurchaseRequest:
		return "PR"
	case DocTypePurchaseInvoice:
		return "PI"
	case DocTypePurchaseReturn:
		return "PR"
	}
	return "DOC"
}

// FormatNumber renders a sequential document number, e.g. GRN-000042.
func (t DocType) FormatNumber(n int) string {
	return fmt.Sprintf("%s-%06d", t.Prefix(), n)
}

// ParseSuffix extracts the numeric suffix of a document number of this type.
// Malformed numbers (wrong prefix, non-numeric or non-positive suffix) report
// ok = false; they occupy storage but neither block nor reserve a slot.
func (t DocType) ParseSuffix(number string) (int, bool) {
	rest, found := strings.CutPrefix(number, t.Prefix()+"-")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Document is a numbered procurement record. Deletion is always soft so the
// audit trail survives while the number returns to the pool.
type Document struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	DocType   DocType    `db:"doc_type" json:"doc_type"`
	Number    string     `db:"number" json:"number"`
	Supplier  string     `db:"supplier" json:"supplier"`
	Status    string     `db:"status" json:"status"`
	Notes     *string    `db:"notes" json:"notes,omitempty"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusCompleted = "completed"
)
