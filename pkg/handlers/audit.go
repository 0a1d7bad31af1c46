package handlers

import (
	"context"
	"fmt"

	"github.com/plaenen/catalog/pkg/catalog"
	"github.com/plaenen/catalog/pkg/domain"
	"github.com/plaenen/catalog/pkg/identity"
	"github.com/plaenen/catalog/pkg/view"
)

// AuditTrail appends every committed fact to the audit log. It is registered
// for all event names so the log is a complete history.
type AuditTrail struct {
	store *view.Store
}

// NewAuditTrail binds the audit trail to a read model store.
func NewAuditTrail(store *view.Store) *AuditTrail {
	return &AuditTrail{store: store}
}

// Name identifies the handler in logs and metrics.
func (a *AuditTrail) Name() string { return "audit-trail" }

// Handle appends one audit entry for the event.
func (a *AuditTrail) Handle(ctx context.Context, evt domain.Event) error {
	return a.store.AppendAudit(ctx, evt.MessageName(), describe(evt))
}

func describe(evt domain.Event) string {
	switch e := evt.(type) {
	case identity.UserCreated:
		return fmt.Sprintf("user %s registered as %q", e.UserID, e.Username)
	case identity.RoleAssigned:
		return fmt.Sprintf("user %s gained role %q", e.UserID, e.Role)
	case identity.RoleRevoked:
		return fmt.Sprintf("user %s lost role %q", e.UserID, e.Role)
	case identity.UserEmailChanged:
		return fmt.Sprintf("user %s changed email to %s", e.UserID, e.NewEmail)
	case identity.UserDeactivated:
		return fmt.Sprintf("user %s deactivated", e.UserID)
	case catalog.ProductCreated:
		return fmt.Sprintf("product %s listed as %q by %s", e.ProductID, e.SKU, e.OwnerID)
	case catalog.ProductRenamed:
		return fmt.Sprintf("product %s renamed to %q", e.ProductID, e.Name)
	case catalog.ProductPriceChanged:
		return fmt.Sprintf("product %s repriced from %s to %s", e.ProductID, e.OldPrice, e.NewPrice)
	case catalog.ProductRetired:
		return fmt.Sprintf("product %s retired", e.ProductID)
	default:
		return evt.MessageName()
	}
}
