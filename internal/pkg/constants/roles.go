package constants

const (
	Admin     = "admin"
	Librarian = "librarian"
	Assistant = "assistant"
	Viewer    = "viewer"
)

// ValidRoles is the set of staff roles a session user may carry.
var ValidRoles = []string{Viewer, Assistant, Librarian, Admin}

// IsValidRole returns true if role is one of the known staff roles.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
