package user_test

import (
	"bytes"
	"context"
	"reflect"
	"testing"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	testutil "github.com/trezcool/darasa/tests"
)

func setup(t *testing.T) (*user.Service, user.Repository) {
	t.Helper()
	db := dummydb.Open()
	repo := dummydb.NewUserRepository(db)
	return user.NewService(repo), repo
}

func assertValidationErr(t *testing.T, err error, field string) {
	t.Helper()
	vErr, ok := err.(*core.ValidationError)
	if !ok {
		t.Fatalf("expected *core.ValidationError, got %T: %v", err, err)
	}
	for _, f := range vErr.Fields {
		if f.Field == field {
			return
		}
	}
	t.Errorf("expected field error on %q, got %+v", field, vErr.Fields)
}

func TestService_Register(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	usr, err := svc.Register(ctx, user.NewUser{
		Username:  "awe",
		Email:     "awe@test.cd",
		FirstName: "Awe",
		LastName:  "Some",
		Password:  "n0t!s0;fast",
		Roles:     []string{user.RoleAdmin, user.RoleTeacher}, // must be ignored
	})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if !reflect.DeepEqual(usr.Roles, []string{user.RoleStudent}) {
		t.Errorf("Register() roles = %v, want [student]", usr.Roles)
	}
	if usr.Status != user.StatusActive {
		t.Errorf("Register() status = %q, want active", usr.Status)
	}
}

func TestService_Create_duplicates(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	testutil.CreateUser(t, repo, "awe", "awe@test.cd", "", nil, true)

	_, err := svc.Create(ctx, user.NewUser{
		Username: "awe", Email: "other@test.cd", FirstName: "A", LastName: "B", Password: "n0t!s0;fast",
	})
	assertValidationErr(t, err, "username")

	_, err = svc.Create(ctx, user.NewUser{
		Username: "other", Email: "awe@test.cd", FirstName: "A", LastName: "B", Password: "n0t!s0;fast",
	})
	assertValidationErr(t, err, "email")
}

func TestService_Authenticate(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "awe", "awe@test.cd", "n0t!s0;fast", nil, true)
	testutil.CreateUser(t, repo, "ndog", "ndog@test.cd", "n0t!s0;fast", nil, false)

	tests := []struct {
		name       string
		identifier string
		pwd        string
		wantErr    error
	}{
		{name: "by username", identifier: "awe", pwd: "n0t!s0;fast"},
		{name: "by email", identifier: "awe@test.cd", pwd: "n0t!s0;fast"},
		{name: "case-insensitive identifier", identifier: "AWE", pwd: "n0t!s0;fast"},
		{name: "wrong password", identifier: "awe", pwd: "lol", wantErr: user.ErrAuthenticationFailed},
		{name: "unknown user", identifier: "ghost", pwd: "n0t!s0;fast", wantErr: user.ErrAuthenticationFailed},
		{name: "inactive user", identifier: "ndog", pwd: "n0t!s0;fast", wantErr: user.ErrAuthenticationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Authenticate(ctx, tt.identifier, tt.pwd)
			if err != tt.wantErr {
				t.Fatalf("Authenticate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if got.ID != usr.ID {
					t.Errorf("Authenticate() got user %q, want %q", got.ID, usr.ID)
				}
				if got.LastLogin.IsZero() {
					t.Error("Authenticate() did not set LastLogin")
				}
			}
		})
	}
}

func TestService_ResetPassword(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "awe", "awe@test.cd", "n0t!s0;fast", nil, true)

	if err := svc.ResetPassword(ctx, usr.ID, "awe"); err == nil {
		t.Error("ResetPassword() accepted a password similar to the username")
	}

	if err := svc.ResetPassword(ctx, usr.ID, "an0th3r;0ne"); err != nil {
		t.Fatalf("ResetPassword() failed: %v", err)
	}
	refreshed, err := repo.GetUserByID(ctx, usr.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if bytes.Equal(refreshed.PasswordHash, usr.PasswordHash) {
		t.Error("ResetPassword() did not change the password hash")
	}
	if err = refreshed.CheckPassword("an0th3r;0ne"); err != nil {
		t.Error("new password does not verify")
	}
}

func TestService_roles(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "awe", "awe@test.cd", "", []string{user.RoleStudent}, true)

	if err := svc.AssignRole(ctx, usr.ID, "lol"); err != user.ErrInvalidRole {
		t.Errorf("AssignRole(lol) error = %v, want ErrInvalidRole", err)
	}
	if err := svc.RemoveRole(ctx, usr.ID, "lol"); err != user.ErrInvalidRole {
		t.Errorf("RemoveRole(lol) error = %v, want ErrInvalidRole", err)
	}

	if err := svc.AssignRole(ctx, usr.ID, user.RoleTeacher); err != nil {
		t.Fatalf("AssignRole() failed: %v", err)
	}
	// assigning a held role is a no-op
	if err := svc.AssignRole(ctx, usr.ID, user.RoleTeacher); err != nil {
		t.Fatalf("AssignRole() (repeat) failed: %v", err)
	}
	roles, err := svc.RolesOf(ctx, usr.ID)
	if err != nil {
		t.Fatalf("RolesOf() failed: %v", err)
	}
	if !reflect.DeepEqual(roles, []string{user.RoleStudent, user.RoleTeacher}) {
		t.Errorf("RolesOf() = %v, want [student teacher]", roles)
	}

	if ok, _ := svc.HasRole(ctx, usr.ID, user.RoleTeacher); !ok {
		t.Error("HasRole(teacher) = false, want true")
	}

	if err = svc.RemoveRole(ctx, usr.ID, user.RoleTeacher); err != nil {
		t.Fatalf("RemoveRole() failed: %v", err)
	}
	// removing an absent role is a no-op
	if err = svc.RemoveRole(ctx, usr.ID, user.RoleTeacher); err != nil {
		t.Fatalf("RemoveRole() (repeat) failed: %v", err)
	}
	if ok, _ := svc.HasRole(ctx, usr.ID, user.RoleTeacher); ok {
		t.Error("HasRole(teacher) = true, want false")
	}
}

func TestService_Filter(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	awe := testutil.CreateUser(t, repo, "awe", "awe@test.cd", "", []string{user.RoleStudent}, true)
	king := testutil.CreateUser(t, repo, "king", "king@test.cd", "", []string{user.RoleTeacher}, true)
	ndog := testutil.CreateUser(t, repo, "ndog", "ndog@test.cd", "", []string{user.RoleStudent}, false)

	ids := func(users []user.User) []string {
		res := make([]string, 0, len(users))
		for _, u := range users {
			res = append(res, u.ID)
		}
		return res
	}

	tests := []struct {
		name   string
		filter user.QueryFilter
		want   []string
	}{
		{name: "no filter", filter: user.QueryFilter{}, want: []string{awe.ID, king.ID, ndog.ID}},
		{name: "search", filter: user.QueryFilter{Search: "KIN"}, want: []string{king.ID}},
		{name: "search (unknown)", filter: user.QueryFilter{Search: "lol"}, want: []string{}},
		{name: "role", filter: user.QueryFilter{Roles: []string{user.RoleStudent}}, want: []string{awe.ID, ndog.ID}},
		{name: "status", filter: user.QueryFilter{Status: user.StatusInactive}, want: []string{ndog.ID}},
		{name: "role & status", filter: user.QueryFilter{Roles: []string{user.RoleStudent}, Status: user.StatusActive}, want: []string{awe.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := svc.Filter(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Filter() failed: %v", err)
			}
			got := ids(users)
			if len(got) != len(tt.want) {
				t.Fatalf("Filter() = %v, want %v", got, tt.want)
			}
			for _, want := range tt.want {
				var found bool
				for _, id := range got {
					if id == want {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("Filter() missing user %q in %v", want, got)
				}
			}
		})
	}
}
