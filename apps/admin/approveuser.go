package main

import (
	"fmt"
	"time"

	"github.com/lehine87/educanvas/core/user"
)

// approveUser activates an account awaiting approval without going through
// the API. Useful when the approving admin locked themselves out.
func (cli *commandLine) approveUser(uname string) error {
	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(uname)
	if err != nil {
		return err
	}
	if usr.Status != user.StatusPendingApproval {
		return fmt.Errorf("account %q is not awaiting approval (status: %s)", usr.Username, usr.Status)
	}
	usr.Status = user.StatusActive
	usr.UpdatedAt = time.Now().UTC()
	isActive := true
	_, err = cli.usrRepo.UpdateUser(usr, &isActive)
	return err
}
