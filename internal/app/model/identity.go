package model

const (
	RoleAdmin  = "admin"
	RoleRegion = "region"
)

// Identity is the resolved caller. The zero value is an anonymous caller.
type Identity struct {
	UserAppID string `json:"userAppId"`
	Role      string `json:"role,omitempty"`
	Admin     bool   `json:"admin"`
}

func (i Identity) Authenticated() bool {
	return i.UserAppID != ""
}

// CanManage reports whether the caller may act on behalf of region.
func (i Identity) CanManage(region Region) bool {
	return i.Admin || region.IsManagedBy(i.UserAppID)
}

// User is a directory account as stored by the identity provider.
type User struct {
	UserID    string `json:"user_id"`
	UserAppID string `json:"userAppId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
}

// UserPatch is the admin-editable subset of a User.
type UserPatch struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Role  *string `json:"role,omitempty"`
}
