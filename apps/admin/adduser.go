package main

import (
	"context"
	"time"

	"github.com/mwalimu/shule/core"
	"github.com/mwalimu/shule/core/user"
)

// addUser updates or creates an admin user.User
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, created, err := cli.getOrInitUser(ctx, uname, email)
	if err != nil {
		return err
	}
	if isAdmin {
		usr.Roles = user.AllRoles
	}
	return cli.saveUser(ctx, usr, pwd, created)
}

// addTeacher updates or creates a teacher account. subjects scope a subject
// teacher's grade edits; an adviser is unscoped.
func (cli *commandLine) addTeacher(uname, email, name, pwd string, subjects []string, adviser bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, created, err := cli.getOrInitUser(ctx, uname, email)
	if err != nil {
		return err
	}
	if name != "" {
		usr.Name = core.CleanString(name)
	}
	if adviser {
		usr.Roles = []string{user.RoleTeacherAdviser}
	} else {
		usr.Roles = []string{user.RoleTeacherSubject}
	}
	usr.Subjects = subjects
	return cli.saveUser(ctx, usr, pwd, created)
}

func (cli *commandLine) getOrInitUser(ctx context.Context, uname, email string) (usr user.User, created bool, err error) {
	if usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: uname}); err == user.ErrNotFound && email != "" {
		usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	}
	if err != nil {
		if err != user.ErrNotFound {
			return user.User{}, false, err
		}
		now := time.Now().UTC()
		usr = user.User{
			Username:  uname,
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		}
		created = true
	}
	return usr, created, nil
}

func (cli *commandLine) saveUser(ctx context.Context, usr user.User, pwd string, created bool) error {
	active := true
	usr.IsActive = &active
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()

	var err error
	if created {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return err
}
