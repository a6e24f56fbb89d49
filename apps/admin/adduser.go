package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sgescola/sge/core"
	"github.com/sgescola/sge/core/auth"
	"github.com/sgescola/sge/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, pwd string, isSuperuser bool, papel string) error {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	active := true

	var created bool
	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(uname)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{
			ID:        uuid.New().String(),
			Username:  uname,
			Email:     email,
			CreatedAt: time.Now().UTC(),
		}
		created = true
	}
	usr.IsSuperuser = isSuperuser
	if papel != "" {
		usr.Papel = papel
	} else if isSuperuser {
		usr.Papel = auth.RoleAdmin
	}
	usr.IsActive = &active
	usr.UpdatedAt = time.Now().UTC()
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if created {
		_, err = cli.usrRepo.CreateUser(usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(usr, &active)
	}
	return err
}
