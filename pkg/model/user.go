package model

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID       string `json:"id,omitempty" bson:"_id,omitempty"`
	UserName string `json:"user_name" bson:"user_name"`
	Email    string `json:"email,omitempty" bson:"email"`
	Role     string `json:"role" bson:"role"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
