package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/darasa/core/user"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	testutil "github.com/trezcool/darasa/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()
	usrRepo = dummydb.NewUserRepository(dummydb.Open())
	return &commandLine{
		db:      &sqlx.DB{},
		usrRepo: usrRepo,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "awe", "awe@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	existing := testutil.CreateUser(t, usrRepo, "awe", "awe@test.cd", "mdr", nil, false)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("n0t!s0;fast"), nil }

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "missing email", args: []string{"adduser", "-username", "king"}, wantErr: errHelp},
		{name: "new user", args: []string{"adduser", "-username", "king", "-email", "king@test.cd"}},
		{name: "new admin", args: []string{"adduser", "-username", "boss", "-email", "boss@test.cd", "-admin"}},
		{name: "existing user", args: []string{"adduser", "-username", existing.Username, "-email", existing.Email}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Fatalf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	ctx := context.Background()

	// new admin holds all roles
	boss, err := usrRepo.GetUserByUsername(ctx, "boss")
	if err != nil {
		t.Fatalf("GetUserByUsername() failed: %v", err)
	}
	if !boss.IsAdmin() {
		t.Errorf("adduser -admin roles = %v, want all roles", boss.Roles)
	}

	// existing user was re-activated with a fresh password
	refreshed, err := usrRepo.GetUserByID(ctx, existing.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if !refreshed.IsActive() {
		t.Error("adduser did not re-activate the existing user")
	}
	if bytes.Equal(refreshed.PasswordHash, existing.PasswordHash) {
		t.Error("adduser did not update the password")
	}
}
