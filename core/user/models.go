package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/darasa/core"
)

// Roles. A user may hold several at once; permissions are the union.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

var AllRoles = []string{RoleAdmin, RoleTeacher, RoleStudent}

// Account statuses.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

var AllStatuses = []string{StatusActive, StatusInactive, StatusSuspended}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Status       string    `json:"status"`
	Roles        []string  `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool   { return u.HasRole(RoleAdmin) }
func (u *User) IsTeacher() bool { return u.HasRole(RoleTeacher) }
func (u *User) IsStudent() bool { return u.HasRole(RoleStudent) }

func (u *User) IsActive() bool { return u.Status == StatusActive }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Username        string   `json:"username" validate:"required,min=3,alphanum_"`
	Email           string   `json:"email" validate:"required,email"`
	FirstName       string   `json:"first_name" validate:"required"`
	LastName        string   `json:"last_name" validate:"required"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Validate() error {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	return core.Validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Zero-valued fields are left untouched.
type UpdateUser struct {
	Username  string   `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email     string   `json:"email" validate:"omitempty,email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Status    string   `json:"status" validate:"omitempty,oneof=active inactive suspended"`
	Roles     []string `json:"roles" validate:"omitempty,allroles"`
}

func (uu *UpdateUser) Validate(origUsr User) error {
	if uname := core.CleanString(uu.Username, true /* lower */); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if fname := core.CleanString(uu.FirstName); fname != "" {
		uu.FirstName = fname
	} else {
		uu.FirstName = origUsr.FirstName
	}
	if lname := core.CleanString(uu.LastName); lname != "" {
		uu.LastName = lname
	} else {
		uu.LastName = origUsr.LastName
	}

	return core.Validate.Struct(uu)
}

type ResetUserPassword struct {
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate(usr User) error {
	if err := core.Validate.Struct(rp); err != nil {
		return err
	}
	return validatePassword(rp.Password, usr.Username, usr.Email, usr.FirstName, usr.LastName)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	Status      string    `query:"status"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.Status == "" && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
