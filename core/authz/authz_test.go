package authz

import (
	"context"
	"testing"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// memberStub serves a fixed (course, user) -> enrollment type table.
type memberStub struct {
	members map[string]string // courseID+"/"+userID -> type
}

func (s memberStub) ActiveEnrollmentType(_ context.Context, courseID, userID string, _ ...core.DBExecutor) (string, error) {
	return s.members[courseID+"/"+userID], nil
}

func TestPolicy_Authorize(t *testing.T) {
	admin := Actor{ID: "adm", Roles: []string{user.RoleAdmin}}
	teacher := Actor{ID: "tea", Roles: []string{user.RoleTeacher}}
	student := Actor{ID: "stu", Roles: []string{user.RoleStudent}}
	outsider := Actor{ID: "out", Roles: []string{user.RoleStudent}}

	policy := NewPolicy(memberStub{members: map[string]string{
		"crs/tea": EnrollmentTeacher,
		"crs/stu": EnrollmentStudent,
		"old/tea": EnrollmentTeacher,
		"old/stu": EnrollmentStudent,
	}})

	crs := Resource{CourseID: "crs"}
	archived := Resource{CourseID: "old", Archived: true}

	tests := []struct {
		name    string
		actor   Actor
		action  Action
		res     Resource
		wantErr error
	}{
		// admin bypass
		{name: "admin may do anything", actor: admin, action: ActionDeleteCourse, res: crs},
		{name: "admin ignores archived", actor: admin, action: ActionManageCoursework, res: archived},

		// course creation
		{name: "teacher may create course", actor: teacher, action: ActionCreateCourse},
		{name: "student may not create course", actor: student, action: ActionCreateCourse, wantErr: ErrUnauthorized},

		// self-enrollment
		{name: "anyone may self-enroll", actor: outsider, action: ActionEnrollSelf, res: crs},
		{name: "self-enroll denied on archived", actor: outsider, action: ActionEnrollSelf, res: archived, wantErr: ErrCourseArchived},

		// reading content
		{name: "enrolled teacher may read", actor: teacher, action: ActionReadContent, res: crs},
		{name: "enrolled student may read", actor: student, action: ActionReadContent, res: crs},
		{name: "outsider may not read", actor: outsider, action: ActionReadContent, res: crs, wantErr: ErrUnauthorized},
		{name: "archived stays readable", actor: student, action: ActionReadContent, res: archived},

		// course & enrollment management
		{name: "course teacher may manage course", actor: teacher, action: ActionManageCourse, res: crs},
		{name: "student may not manage course", actor: student, action: ActionManageCourse, res: crs, wantErr: ErrUnauthorized},
		{name: "course teacher may manage enrollments", actor: teacher, action: ActionManageEnrollment, res: crs},
		{name: "outsider may not manage enrollments", actor: outsider, action: ActionManageEnrollment, res: crs, wantErr: ErrUnauthorized},

		// coursework management
		{name: "course teacher may manage coursework", actor: teacher, action: ActionManageCoursework, res: crs},
		{name: "coursework frozen when archived", actor: teacher, action: ActionManageCoursework, res: archived, wantErr: ErrCourseArchived},
		{name: "student may not manage coursework", actor: student, action: ActionManageCoursework, res: crs, wantErr: ErrUnauthorized},

		// submissions
		{name: "enrolled student may submit", actor: student, action: ActionSubmit, res: crs},
		{name: "teacher may not submit", actor: teacher, action: ActionSubmit, res: crs, wantErr: ErrUnauthorized},
		{name: "submit denied on archived", actor: student, action: ActionSubmit, res: archived, wantErr: ErrCourseArchived},
		{name: "course teacher may grade", actor: teacher, action: ActionGrade, res: crs},
		{name: "student may not grade", actor: student, action: ActionGrade, res: crs, wantErr: ErrUnauthorized},

		// content editing
		{name: "creator may edit own content", actor: student, action: ActionEditContent, res: Resource{CourseID: "crs", CreatorID: "stu"}},
		{name: "course teacher may edit any content", actor: teacher, action: ActionEditContent, res: Resource{CourseID: "crs", CreatorID: "stu"}},
		{name: "other student may not edit", actor: student, action: ActionEditContent, res: Resource{CourseID: "crs", CreatorID: "tea"}, wantErr: ErrUnauthorized},

		// deny by default
		{name: "unknown action denied", actor: teacher, action: Action("lol"), res: crs, wantErr: ErrUnauthorized},
		{name: "delete course is admin only", actor: teacher, action: ActionDeleteCourse, res: crs, wantErr: ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Authorize(context.Background(), tt.actor, tt.action, tt.res)
			if err != tt.wantErr {
				t.Errorf("Authorize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
