package handler

import (
	"github.com/msomdec/authcore/internal/domain"
	"github.com/msomdec/authcore/internal/service"
)

// UserDTO is the public JSON representation of a user. It never carries
// the password hash.
type UserDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Phone: u.Phone,
	}
}

// AuthResponseDTO is returned by successful register and login requests.
type AuthResponseDTO struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

func toAuthResponseDTO(res *service.AuthResult) AuthResponseDTO {
	return AuthResponseDTO{
		Token: res.Token,
		User:  toUserDTO(res.User),
	}
}
