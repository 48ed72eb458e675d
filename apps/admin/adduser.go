package main

import (
	"context"
	"fmt"

	"github.com/trezcool/coachboard/core/user"
)

// addUser creates an active coach account.
func (cli *commandLine) addUser(name, email, pwd, confirm string) error {
	usr, err := cli.usrSvc.Create(context.Background(), user.NewUser{
		Name:            name,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: confirm,
	})
	if err != nil {
		return err
	}
	fmt.Printf("created %s <%s> (%s)\n", usr.Name, usr.Email, usr.ID)
	return nil
}
