package auth

// Roles conocidos. Cualquier otro valor se trata como RoleUser.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Claims representa la información extraída del token.
type Claims struct {
	UserID string
	Email  string
	Name   string
	Role   string
}

func (c Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}
