package auth

import (
	"library-backend/internal/pkg/constants"
)

// Staff is the session user written by the school's login service and read
// from redis on every request.
type Staff struct {
	UserID   string `json:"user_id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// VerifyUser validates the session user and returns it as Staff.
func VerifyUser(sessionUser interface{}) (*Staff, error) {
	if sessionUser == nil {
		return nil, ErrNotAuthenticated
	}
	m, ok := sessionUser.(map[string]interface{})
	if !ok {
		return nil, ErrNotAuthenticated
	}
	userID, _ := m["user_id"].(string)
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	out := &Staff{
		UserID:   userID,
		Fullname: str(m["fullname"]),
		Email:    str(m["email"]),
		Role:     str(m["role"]),
	}
	if !constants.IsValidRole(out.Role) {
		return nil, ErrUnknownRole
	}
	return out, nil
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
