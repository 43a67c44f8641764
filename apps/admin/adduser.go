package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/lehine87/educanvas/core"
	"github.com/lehine87/educanvas/core/user"
)

// addUser updates or creates a user.User. It is the bootstrap path for the
// first platform admin account, so the account comes out active and verified.
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(uname)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		if usr, err = cli.usrRepo.GetUserByEmail(email); err != nil && errors.Cause(err) != user.ErrNotFound {
			return err
		}
	}

	now := time.Now().UTC()
	create := usr.ID == ""
	if create {
		usr = user.User{
			ID:        uuid.New().String(),
			Name:      uname,
			CreatedAt: now,
		}
	}
	usr.Username = uname
	usr.Email = email
	usr.Status = user.StatusActive
	usr.EmailVerified = true
	usr.UpdatedAt = now
	if isAdmin {
		usr.Role = user.RolePlatformAdmin
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	isActive := true
	if create {
		usr.IsActive = true
		_, err = cli.usrRepo.CreateUser(usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(usr, &isActive)
	}
	return err
}
