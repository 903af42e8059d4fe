package rls

import (
	"gorm.io/gorm"
)

// WithTenant scopes row level security policies of the current transaction
// to tenantID. Dialects other than postgres are left untouched.
func WithTenant(tx *gorm.DB, tenantID string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT set_config('app.current_tenant_id', ?, true)", tenantID).Error
}
