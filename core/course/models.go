package course

import (
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/authz"
)

// Enrollment types; the policy package owns the values.
const (
	EnrollmentTeacher = authz.EnrollmentTeacher
	EnrollmentStudent = authz.EnrollmentStudent
)

// Enrollment statuses. Unenrolling never deletes the row; it flips the status.
const (
	EnrollmentActive   = "active"
	EnrollmentInactive = "inactive"
)

type Course struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatorID   string    `json:"creator_id"`
	IsArchived  bool      `json:"is_archived"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// Enrollment binds a user to a course. Unique per (user, course) pair:
// re-enrolling updates the row in place.
type Enrollment struct {
	UserID     string    `json:"user_id"`
	CourseID   string    `json:"course_id"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	EnrolledAt time.Time `json:"enrolled_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"`  // UTC
}

func (e Enrollment) IsActive() bool { return e.Status == EnrollmentActive }

// UserCourse is a course together with the enrollment binding the user to it.
type UserCourse struct {
	Course
	EnrollmentType   string `json:"enrollment_type"`
	EnrollmentStatus string `json:"enrollment_status"`
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name        string `json:"name" validate:"required"`
	Code        string `json:"code" validate:"required,min=2,alphanum_"`
	Description string `json:"description"`
}

func (nc *NewCourse) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Code = core.CleanString(nc.Code, true /* lower */)
	nc.Description = core.CleanString(nc.Description)
	return core.Validate.Struct(nc)
}

// UpdateCourse defines the mutable Course fields. Zero-valued fields are left untouched.
type UpdateCourse struct {
	Name        string `json:"name"`
	Code        string `json:"code" validate:"omitempty,min=2,alphanum_"`
	Description string `json:"description"`
}

func (uc *UpdateCourse) Validate(orig Course) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	if code := core.CleanString(uc.Code, true /* lower */); code != "" {
		uc.Code = code
	} else {
		uc.Code = orig.Code
	}
	if desc := core.CleanString(uc.Description); desc != "" {
		uc.Description = desc
	} else {
		uc.Description = orig.Description
	}
	return core.Validate.Struct(uc)
}

type QueryFilter struct {
	Search          string `query:"search"`
	CreatorID       string `query:"creator_id"`
	IncludeArchived bool   `query:"include_archived"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
