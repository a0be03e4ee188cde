package models

// RoleAdmin grants the elevated permissions on order operations.
const RoleAdmin = "admin"

// Actor is the authenticated identity performing an operation, supplied by the
// upstream auth layer.
type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
