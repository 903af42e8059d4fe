package domain

import "strings"

// TenantRoles lists the roles an actor holds in one tenant.
type TenantRoles struct {
	ID    string   `json:"id"`
	Roles []string `json:"roles"`
}

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID  string        `json:"user_id"`
	Email   string        `json:"email"`
	Tenants []TenantRoles `json:"tenants"`
}

// Subject is the authorization subject of the actor.
func (a Actor) Subject() string {
	return "user:" + a.UserID
}

// RolesIn returns the actor's roles in tenantID and whether the actor is a
// member of that tenant at all.
func (a Actor) RolesIn(tenantID string) ([]string, bool) {
	tenantID = strings.TrimSpace(tenantID)
	for _, tenant := range a.Tenants {
		if strings.EqualFold(tenant.ID, tenantID) {
			return tenant.Roles, true
		}
	}
	return nil, false
}
