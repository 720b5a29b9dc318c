package course

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/authz"
)

var (
	// errors
	ErrNotFound           = errors.New("course not found")
	ErrCodeExists         = errors.New("a course with this code already exists")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrInvalidEnrollment  = errors.New("unknown enrollment type")
)

type (
	Repository interface {
		// CreateCourse inserts the course and its creator's teacher enrollment
		// in a single transaction. A course_code constraint violation maps to ErrCodeExists.
		CreateCourse(ctx context.Context, crs Course, enr Enrollment, exec ...core.DBExecutor) (Course, error)
		GetCourseByID(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		GetCourseByCode(ctx context.Context, code string, exec ...core.DBExecutor) (Course, error)
		// FilterCourses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Code, Name or Description.
		FilterCourses(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Course, error)
		// GetUserCourses returns courses the user has an ACTIVE enrollment in,
		// optionally restricted to an enrollment type.
		GetUserCourses(ctx context.Context, userID, enrollmentType string, exec ...core.DBExecutor) ([]UserCourse, error)
		UpdateCourse(ctx context.Context, crs Course, isArchived *bool, exec ...core.DBExecutor) (Course, error)
		DeleteCourseByID(ctx context.Context, id string, exec ...core.DBExecutor) error

		// UpsertEnrollment inserts the enrollment or, if the (user, course) row
		// already exists, re-activates it in place with the given type.
		UpsertEnrollment(ctx context.Context, enr Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		// DeactivateEnrollment soft-deletes: the row is kept with status=inactive.
		DeactivateEnrollment(ctx context.Context, courseID, userID string, exec ...core.DBExecutor) error
		GetEnrollment(ctx context.Context, courseID, userID string, exec ...core.DBExecutor) (Enrollment, error)
		GetCourseEnrollments(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Enrollment, error)
		// ActiveEnrollmentType returns the type of the user's active enrollment
		// in the course, or "" if none. Satisfies authz.MembershipReader.
		ActiveEnrollmentType(ctx context.Context, courseID, userID string, exec ...core.DBExecutor) (string, error)
	}

	Service struct {
		repo   Repository
		policy *authz.Policy
	}
)

func NewService(repo Repository, policy *authz.Policy) *Service {
	return &Service{repo: repo, policy: policy}
}

// ResourceFor locates a course for the authorization policy.
func ResourceFor(crs Course) authz.Resource {
	return authz.Resource{CourseID: crs.ID, CreatorID: crs.CreatorID, Archived: crs.IsArchived}
}

// getAuthorized loads the course and checks the action against the policy.
// For non-admins a missing course is indistinguishable from a denied one.
func (svc *Service) getAuthorized(ctx context.Context, actor authz.Actor, action authz.Action, courseID string) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		if err == ErrNotFound && !actor.IsAdmin() {
			return Course{}, authz.ErrUnauthorized
		}
		return Course{}, err
	}
	if err = svc.policy.Authorize(ctx, actor, action, ResourceFor(crs)); err != nil {
		return Course{}, err
	}
	return crs, nil
}

// Create creates a course and auto-enrolls the creator as its first active
// teacher; both writes commit or roll back together.
func (svc *Service) Create(ctx context.Context, actor authz.Actor, nc NewCourse) (Course, error) {
	if err := svc.policy.Authorize(ctx, actor, authz.ActionCreateCourse, authz.Resource{}); err != nil {
		return Course{}, err
	}

	now := time.Now().UTC()
	crs := Course{
		Code:        nc.Code,
		Name:        nc.Name,
		Description: nc.Description,
		CreatorID:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	enr := Enrollment{
		UserID:     actor.ID,
		Type:       EnrollmentTeacher,
		Status:     EnrollmentActive,
		EnrolledAt: now,
		UpdatedAt:  now,
	}
	crs, err := svc.repo.CreateCourse(ctx, crs, enr)
	if err != nil {
		if err == ErrCodeExists {
			return Course{}, core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return Course{}, err
	}
	return crs, nil
}

// Retrieve returns the course for display. Active courses are browsable by
// any authenticated user (the discovery flow behind self-enrollment); an
// archived course stays visible to admins and its members only and reads as
// missing to everyone else, matching Filter hiding archived from non-admins.
func (svc *Service) Retrieve(ctx context.Context, actor authz.Actor, id string) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if crs.IsArchived && !actor.IsAdmin() {
		typ, err := svc.repo.ActiveEnrollmentType(ctx, id, actor.ID)
		if err != nil {
			return Course{}, err
		}
		if typ == "" {
			return Course{}, ErrNotFound
		}
	}
	return crs, nil
}

func (svc *Service) Filter(ctx context.Context, actor authz.Actor, filter QueryFilter, ordering ...core.DBOrdering) ([]Course, error) {
	filter.Clean()
	// only admins may browse archived courses
	if !actor.IsAdmin() {
		filter.IncludeArchived = false
	}
	return svc.repo.FilterCourses(ctx, filter, ordering)
}

// CoursesFor lists the user's courses; inactive enrollments never count.
func (svc *Service) CoursesFor(ctx context.Context, userID string, enrollmentType ...string) ([]UserCourse, error) {
	var typ string
	if len(enrollmentType) > 0 {
		typ = enrollmentType[0]
	}
	return svc.repo.GetUserCourses(ctx, userID, typ)
}

func (svc *Service) Update(ctx context.Context, actor authz.Actor, id string, uc UpdateCourse) (Course, error) {
	orig, err := svc.getAuthorized(ctx, actor, authz.ActionManageCourse, id)
	if err != nil {
		return Course{}, err
	}
	if err = uc.Validate(orig); err != nil {
		return Course{}, err
	}

	crs := Course{
		ID:          id,
		Code:        uc.Code,
		Name:        uc.Name,
		Description: uc.Description,
		UpdatedAt:   time.Now().UTC(),
	}
	crs, err = svc.repo.UpdateCourse(ctx, crs, nil)
	if err != nil {
		if err == ErrCodeExists {
			return Course{}, core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return Course{}, err
	}
	return crs, nil
}

func (svc *Service) Archive(ctx context.Context, actor authz.Actor, id string) (Course, error) {
	return svc.setArchived(ctx, actor, id, true)
}

func (svc *Service) Restore(ctx context.Context, actor authz.Actor, id string) (Course, error) {
	return svc.setArchived(ctx, actor, id, false)
}

func (svc *Service) setArchived(ctx context.Context, actor authz.Actor, id string, archived bool) (Course, error) {
	if _, err := svc.getAuthorized(ctx, actor, authz.ActionManageCourse, id); err != nil {
		return Course{}, err
	}
	return svc.repo.UpdateCourse(ctx, Course{ID: id, UpdatedAt: time.Now().UTC()}, &archived)
}

// Delete removes the course; assignments, materials and discussions go with it.
func (svc *Service) Delete(ctx context.Context, actor authz.Actor, id string) error {
	if _, err := svc.getAuthorized(ctx, actor, authz.ActionDeleteCourse, id); err != nil {
		return err
	}
	return svc.repo.DeleteCourseByID(ctx, id)
}

// Enroll adds or re-activates the user's enrollment (upsert: one row per
// (user, course) pair, ever). Archived courses reject new enrollments.
func (svc *Service) Enroll(ctx context.Context, actor authz.Actor, courseID, userID, enrollmentType string) (Enrollment, error) {
	switch enrollmentType {
	case EnrollmentTeacher, EnrollmentStudent:
	default:
		return Enrollment{}, ErrInvalidEnrollment
	}

	action := authz.ActionManageEnrollment
	if actor.ID == userID && enrollmentType == EnrollmentStudent {
		action = authz.ActionEnrollSelf
	}
	crs, err := svc.getAuthorized(ctx, actor, action, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if crs.IsArchived {
		return Enrollment{}, authz.ErrCourseArchived
	}

	now := time.Now().UTC()
	enr := Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		Type:       enrollmentType,
		Status:     EnrollmentActive,
		EnrolledAt: now,
		UpdatedAt:  now,
	}
	return svc.repo.UpsertEnrollment(ctx, enr)
}

// Unenroll soft-deletes the enrollment; the row survives for audit and
// re-enrollment. Users may always leave a course themselves.
func (svc *Service) Unenroll(ctx context.Context, actor authz.Actor, courseID, userID string) error {
	if actor.ID != userID {
		if _, err := svc.getAuthorized(ctx, actor, authz.ActionManageEnrollment, courseID); err != nil {
			return err
		}
	}
	return svc.repo.DeactivateEnrollment(ctx, courseID, userID)
}

// IsActiveMember reports whether the user has an active enrollment in the
// course, optionally requiring a specific enrollment type.
func (svc *Service) IsActiveMember(ctx context.Context, courseID, userID string, enrollmentType ...string) (bool, error) {
	typ, err := svc.repo.ActiveEnrollmentType(ctx, courseID, userID)
	if err != nil {
		return false, err
	}
	if typ == "" {
		return false, nil
	}
	if len(enrollmentType) > 0 && enrollmentType[0] != "" {
		return typ == enrollmentType[0], nil
	}
	return true, nil
}

// Enrollments lists the course roster; teachers of the course and admins only.
func (svc *Service) Enrollments(ctx context.Context, actor authz.Actor, courseID string) ([]Enrollment, error) {
	if _, err := svc.getAuthorized(ctx, actor, authz.ActionManageEnrollment, courseID); err != nil {
		return nil, err
	}
	return svc.repo.GetCourseEnrollments(ctx, courseID)
}
