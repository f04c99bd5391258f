package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/mwalimu/shule/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sql.DB
	usrRepo user.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - apply database migrations (goose commands)")
	fmt.Println("  adduser -username USERNAME [-email EMAIL] - create or update an admin account")
	fmt.Println("  addteacher -username USERNAME [-email EMAIL] [-name NAME] [-subjects S1,S2] [-adviser] - create or update a teacher account")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset user's password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The admin's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The admin's email.")

	addTeacherCmd := flag.NewFlagSet("addteacher", flag.ExitOnError)
	addTeacherUname := addTeacherCmd.String("username", "", "The teacher's username. The password will be prompted next.")
	addTeacherEmail := addTeacherCmd.String("email", "", "The teacher's email.")
	addTeacherName := addTeacherCmd.String("name", "", "The teacher's full name.")
	addTeacherSubjects := addTeacherCmd.String("subjects", "", "Comma-separated subjects assigned to a subject teacher.")
	addTeacherAdviser := addTeacherCmd.Bool("adviser", false, "Make the teacher a section adviser.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(addUserCmd)
		if err != nil || pwd == "" {
			return err
		}
		return cli.addUser(*addUserUname, *addUserEmail, pwd, true /* isAdmin */)
	case "addteacher":
		if err := addTeacherCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addTeacherUname == "" {
			addTeacherCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(addTeacherCmd)
		if err != nil || pwd == "" {
			return err
		}
		var subjects []string
		if *addTeacherSubjects != "" {
			for _, s := range strings.Split(*addTeacherSubjects, ",") {
				if s = strings.TrimSpace(s); s != "" {
					subjects = append(subjects, s)
				}
			}
		}
		return cli.addTeacher(*addTeacherUname, *addTeacherEmail, *addTeacherName, pwd, subjects, *addTeacherAdviser)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(resetPasswordCmd)
		if err != nil || pwd == "" {
			return err
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword(cmd *flag.FlagSet) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		cmd.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}
