package main

import (
	"context"
	"time"

	"github.com/GrupoTcc462/StudyMate/core"
	"github.com/GrupoTcc462/StudyMate/core/user"
)

// addUser updates or creates an account; -admin grants the admin role.
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: uname})
	if err == user.ErrNotFound {
		usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	}
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			Name:      uname,
			Username:  uname,
			Email:     email,
			Role:      user.RoleStudent,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	if isAdmin {
		usr.Role = user.RoleAdmin
	}
	isActive := true
	usr.IsActive = &isActive
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if usr.ID == "" {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr, &isActive)
	}
	return err
}
