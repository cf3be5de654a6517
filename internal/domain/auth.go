package domain

const RoleAdmin = "admin"

type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterPayload struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// TokenPair is what the token and register endpoints issue.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type UserProfile struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	RoleName string `json:"role_name"`
}

func (u UserProfile) IsAdmin() bool {
	return u.RoleName == RoleAdmin
}

// Complete reports whether the profile carries the fields a session needs.
func (u UserProfile) Complete() bool {
	return u.ID != 0 && u.Email != ""
}
