package main

import (
	"context"

	"github.com/trezcool/coachboard/core/user"
)

func (cli *commandLine) resetPassword(email, pwd, confirm string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	_, err = cli.usrSvc.ResetPassword(ctx, user.NewResetUserPassword(usr, pwd, confirm))
	return err
}
