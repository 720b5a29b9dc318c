// Package authz holds the single decision function gating every
// coursework mutation: who may do what to which course's resources.
package authz

import (
	"context"
	"errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	// ErrUnauthorized is the deny-by-default decision. It is also returned in
	// place of a not-found so non-members cannot probe for resource existence.
	ErrUnauthorized = errors.New("permission denied")

	// ErrCourseArchived denies mutations on archived courses; they stay readable.
	ErrCourseArchived = errors.New("course is archived")
)

// Action names a guarded operation.
type Action string

const (
	ActionCreateCourse     Action = "course:create"
	ActionManageCourse     Action = "course:manage" // update, archive, restore
	ActionDeleteCourse     Action = "course:delete" // admin only
	ActionManageEnrollment Action = "enrollment:manage"
	ActionEnrollSelf       Action = "enrollment:self"
	ActionReadContent      Action = "content:read"
	ActionManageCoursework Action = "coursework:manage" // assignments, materials, discussions
	ActionSubmit           Action = "submission:submit"
	ActionGrade            Action = "submission:grade"
	ActionEditContent      Action = "content:edit" // discussions/comments, creator-or-teacher
)

// Actor is the authenticated identity a request acts as; resolved from the
// session transport and passed explicitly into every service call.
type Actor struct {
	ID    string
	Roles []string
}

func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (a Actor) IsAdmin() bool { return a.HasRole(user.RoleAdmin) }

// Resource locates the target of an action within its course.
type Resource struct {
	CourseID  string
	CreatorID string // content creator, consulted by ActionEditContent
	Archived  bool
}

// MembershipReader supplies the authoritative membership fact: the enrollment
// type of the user's active enrollment in a course, or "" if none.
type MembershipReader interface {
	ActiveEnrollmentType(ctx context.Context, courseID, userID string, exec ...core.DBExecutor) (string, error)
}

type Policy struct {
	members MembershipReader
}

func NewPolicy(members MembershipReader) *Policy {
	return &Policy{members: members}
}

// Authorize decides whether actor may perform action on res. A nil return
// allows; anything else denies and no storage mutation may follow.
// Rules are evaluated top-to-bottom, first match wins; default is deny.
func (p *Policy) Authorize(ctx context.Context, actor Actor, action Action, res Resource) error {
	// admins have full access to all resources
	if actor.IsAdmin() {
		return nil
	}

	switch action {
	case ActionCreateCourse:
		if actor.HasRole(user.RoleTeacher) {
			return nil
		}

	case ActionEnrollSelf:
		if res.Archived {
			return ErrCourseArchived
		}
		return nil

	case ActionReadContent:
		// any active member, regardless of enrollment type
		typ, err := p.members.ActiveEnrollmentType(ctx, res.CourseID, actor.ID)
		if err != nil {
			return err
		}
		if typ != "" {
			return nil
		}

	case ActionManageCourse, ActionManageEnrollment:
		typ, err := p.members.ActiveEnrollmentType(ctx, res.CourseID, actor.ID)
		if err != nil {
			return err
		}
		if typ == EnrollmentTeacher {
			return nil
		}

	case ActionManageCoursework:
		typ, err := p.members.ActiveEnrollmentType(ctx, res.CourseID, actor.ID)
		if err != nil {
			return err
		}
		if typ == EnrollmentTeacher {
			if res.Archived {
				return ErrCourseArchived
			}
			return nil
		}

	case ActionSubmit:
		typ, err := p.members.ActiveEnrollmentType(ctx, res.CourseID, actor.ID)
		if err != nil {
			return err
		}
		if typ == EnrollmentStudent {
			if res.Archived {
				return ErrCourseArchived
			}
			return nil
		}

	case ActionGrade:
		typ, err := p.members.ActiveEnrollmentType(ctx, res.CourseID, actor.ID)
		if err != nil {
			return err
		}
		if typ == EnrollmentTeacher {
			return nil
		}

	case ActionEditContent:
		if res.CreatorID != "" && res.CreatorID == actor.ID {
			return nil
		}
		typ, err := p.members.ActiveEnrollmentType(ctx, res.CourseID, actor.ID)
		if err != nil {
			return err
		}
		if typ == EnrollmentTeacher {
			return nil
		}
	}

	return ErrUnauthorized
}

// Enrollment types as the ledger records them. Declared here rather than in
// core/course so the policy has no dependency on the ledger package;
// core/course aliases these.
const (
	EnrollmentTeacher = "teacher"
	EnrollmentStudent = "student"
)
