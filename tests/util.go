package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sgescola/sge/core/user"
)

type UserOpts struct {
	IsSuperuser          bool
	Permissoes           []string
	PermissoesAdicionais []string
	Papel                string
	Cargo                string
	CargoNome            string
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	isActive bool,
	opts ...UserOpts,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  uname,
		Email:     email,
		IsActive:  &isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if len(opts) > 0 {
		usr.IsSuperuser = opts[0].IsSuperuser
		usr.Permissoes = opts[0].Permissoes
		usr.PermissoesAdicionais = opts[0].PermissoesAdicionais
		usr.Papel = opts[0].Papel
		usr.Cargo = opts[0].Cargo
		usr.CargoNome = opts[0].CargoNome
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
