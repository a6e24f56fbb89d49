package echoapi

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sgescola/sge/core"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

type LoginResponse struct {
	Token string `json:"token"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (prr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	prr.Email = core.CleanString(prr.Email, true /* lower */)
	return validate.Struct(prr)
}

type SuccessResponse struct {
	Success string `json:"success"`
}

// StatsResponse wraps the cached dashboard payload with its cache metadata
// so clients can render stale data and a loading indicator at once.
type StatsResponse struct {
	Data      interface{} `json:"data"`
	UpdatedAt time.Time   `json:"updated_at"`
	Loading   bool        `json:"loading"`
	Error     string      `json:"error,omitempty"`
}

// MyPermissionsResponse lists the catalog permissions the caller holds.
type MyPermissionsResponse struct {
	IsSuperuser bool     `json:"is_superuser"`
	Permissions []string `json:"permissions"`
}
