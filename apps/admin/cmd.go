package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/darasa/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sqlx.DB
	usrRepo user.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -username USERNAME -email EMAIL [-admin] - update or create a user")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserIsAdmin := addUserCmd.Bool("admin", false, "Grant the user all roles.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserUname, *addUserEmail, string(pwd), *addUserIsAdmin)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, string(pwd))
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() ([]byte, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	return pwd, err
}
