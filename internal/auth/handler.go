package auth

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/hirfa/internal/order"
)

type Handler struct {
	users  UserStore
	tokens *Tokens
	log    *zap.Logger
}

func NewHandler(users UserStore, tokens *Tokens, log *zap.Logger) *Handler {
	return &Handler{users: users, tokens: tokens, log: log.Named("auth")}
}

type SignupRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Phone      string `json:"phone"`
	Location   string `json:"location"`
	Specialty  string `json:"specialty"`
	Experience string `json:"experience"`
}

type TokenResponse struct {
	Token string     `json:"token"`
	Role  order.Role `json:"role"`
}

func (r *SignupRequest) validate() string {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Name == "" {
		return "name is required"
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return "invalid email"
	}
	if len(r.Password) < 6 {
		return "password must be at least 6 characters"
	}
	if r.Role == "" {
		r.Role = string(order.RoleClient)
	}
	role := order.Role(r.Role)
	if !role.Valid() {
		return "role must be client or craftsman"
	}
	if role == order.RoleCraftsman && !order.ValidCategory(r.Specialty) {
		return "craftsman specialty must be one of the order categories"
	}
	return ""
}

// Signup registers a client or craftsman and returns an access token.
func (h *Handler) Signup(c echo.Context) error {
	req := new(SignupRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	u := User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hashed),
		Role:         order.Role(req.Role),
		Phone:        strings.TrimSpace(req.Phone),
		Location:     strings.TrimSpace(req.Location),
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if u.Role == order.RoleCraftsman {
		u.Specialty = req.Specialty
		u.Experience = strings.TrimSpace(req.Experience)
	}
	ctx := c.Request().Context()
	if err := h.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		h.log.Error("create user failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "signup failed"})
	}

	signed, err := h.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}
	h.log.Info("user registered", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return c.JSON(http.StatusCreated, TokenResponse{Token: signed, Role: u.Role})
}
