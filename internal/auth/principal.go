package auth

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Principal is the authenticated actor of a request. IDs are always strings;
// stores never see another representation.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// Authenticated reports whether the principal carries an identity.
func (p Principal) Authenticated() bool { return p.ID != "" }

// CanAccess reports whether the principal may read or mutate a resource owned by ownerID.
func (p Principal) CanAccess(ownerID string) bool {
	if !p.Authenticated() {
		return false
	}
	return p.IsAdmin() || p.ID == ownerID
}
