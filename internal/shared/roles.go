package shared

// Account roles understood by the authorization gate.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRole reports whether role is one of the known role values.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// Roles lists all assignable roles.
func Roles() []string {
	return []string{RoleUser, RoleAdmin}
}
