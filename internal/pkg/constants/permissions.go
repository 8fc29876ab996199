package constants

const (
	ViewLoans   = "view_loans"
	ManageLoans = "manage_loans"
	CloseLoans  = "close_loans"
)

// PermissionRoles maps each permission to roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ViewLoans:   {Viewer, Assistant, Librarian, Admin},
	ManageLoans: {Assistant, Librarian, Admin},
	CloseLoans:  {Librarian, Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
