package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/sgescola/sge/core"
	"github.com/sgescola/sge/core/auth"
)

// User is a system account. Besides credentials it carries the
// authorization fields the permission resolver consumes: a superuser flag,
// optional explicit permission lists and the papel/cargo role labels.
type User struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Username             string    `json:"username"`
	Email                string    `json:"email"`
	IsActive             *bool     `json:"is_active"`
	IsSuperuser          bool      `json:"is_superuser"`
	Permissoes           []string  `json:"permissoes,omitempty"`
	PermissoesAdicionais []string  `json:"permissoes_adicionais,omitempty"`
	Papel                string    `json:"papel,omitempty"`
	Cargo                string    `json:"cargo,omitempty"`
	CargoNome            string    `json:"cargo_nome,omitempty"`
	PasswordHash         []byte    `json:"-"`
	CreatedAt            time.Time `json:"created_at"` // UTC
	UpdatedAt            time.Time `json:"updated_at"` // UTC
	LastLogin            time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// Raw returns the authorization-relevant projection of the account.
func (u *User) Raw() auth.RawUser {
	return auth.RawUser{
		IsSuperuser:          u.IsSuperuser,
		Permissoes:           u.Permissoes,
		PermissoesAdicionais: u.PermissoesAdicionais,
		Papel:                u.Papel,
		Cargo:                u.Cargo,
		CargoNome:            u.CargoNome,
	}
}

// Can reports whether the account holds the given permission.
func (u *User) Can(permission string) bool {
	normalized := auth.Normalize(u.Raw())
	return auth.Resolve(&normalized, permission)
}

func (u *User) IsAdmin() bool {
	return u.Can(auth.PermManageUsuarios)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name                 string   `json:"name" validate:"required"`
	Username             string   `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email                string   `json:"email" validate:"required,email"`
	Password             string   `json:"password" validate:"required"`
	PasswordConfirm      string   `json:"password_confirm" validate:"required,eqfield=Password"`
	IsSuperuser          bool     `json:"is_superuser"`
	Permissoes           []string `json:"permissoes" validate:"omitempty,allperms"`
	PermissoesAdicionais []string `json:"permissoes_adicionais" validate:"omitempty,allperms"`
	Papel                string   `json:"papel"`
	Cargo                string   `json:"cargo"`
	CargoNome            string   `json:"cargo_nome"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Papel = core.CleanString(nu.Papel)
	nu.Cargo = core.CleanString(nu.Cargo)
	nu.CargoNome = core.CleanString(nu.CargoNome)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name                 string   `json:"name"`
	Username             string   `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email                string   `json:"email" validate:"omitempty,email"`
	IsActive             *bool    `json:"is_active"`
	IsSuperuser          *bool    `json:"is_superuser"`
	Permissoes           []string `json:"permissoes" validate:"omitempty,allperms"`
	PermissoesAdicionais []string `json:"permissoes_adicionais" validate:"omitempty,allperms"`
	Papel                *string  `json:"papel"`
	Cargo                *string  `json:"cargo"`
	CargoNome            *string  `json:"cargo_nome"`
	Password             string   `json:"password" validate:"omitempty"`
	PasswordConfirm      string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate, svc Service) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	uname := core.CleanString(uu.Username, true /* lower */)
	if uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Username, uu.Email, origUsr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Papel       string    `query:"papel"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Papel == "" && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Papel = core.CleanString(qf.Papel)
}

// InitValidators registers this package's custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(allPermsTag, allPermsValidation)
	core.RegisterCustomTranslation(validate, translator, allPermsTag, allPermsText)
}
