package main

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname)
	if err == user.ErrNotFound {
		usr, err = cli.usrRepo.GetUserByUsernameOrEmail(ctx, email)
	}
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Username:  uname,
			Email:     email,
			CreatedAt: now,
		}
	}
	if isAdmin {
		usr.Roles = user.AllRoles
	}
	usr.Status = user.StatusActive
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = now

	if usr.ID == "" {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return err
}
