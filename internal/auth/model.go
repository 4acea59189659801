package auth

import (
	"context"
	"errors"
	"time"

	"github.com/sudo-init-do/hirfa/internal/order"
)

var (
	ErrEmailTaken   = errors.New("email_taken")
	ErrUserNotFound = errors.New("user_not_found")
)

// User is an account of either role. Craftsman-only fields are empty for clients.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         order.Role `json:"role"`
	Phone        string     `json:"phone,omitempty"`
	Location     string     `json:"location,omitempty"`
	Specialty    string     `json:"specialty,omitempty"`
	Experience   string     `json:"experience,omitempty"`
	Verified     bool       `json:"verified"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (u User) Profile() order.Profile {
	return order.Profile{
		ID:         u.ID,
		Name:       u.Name,
		Phone:      u.Phone,
		Location:   u.Location,
		Role:       u.Role,
		Specialty:  u.Specialty,
		Experience: u.Experience,
		Verified:   u.Verified,
	}
}

type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
}
