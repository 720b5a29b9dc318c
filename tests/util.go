package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/coursework"
	"github.com/trezcool/darasa/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	status := user.StatusActive
	if !isActive {
		status = user.StatusInactive
	}
	usr := user.User{
		Username:  uname,
		Email:     email,
		FirstName: uname,
		LastName:  "Test",
		Status:    status,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateCourse creates a course with its creator auto-enrolled as teacher.
func CreateCourse(t *testing.T, repo course.Repository, creator user.User, code, name string) course.Course {
	t.Helper()

	now := time.Now().UTC()
	crs := course.Course{
		Code:      code,
		Name:      name,
		CreatorID: creator.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	enr := course.Enrollment{
		UserID:     creator.ID,
		Type:       course.EnrollmentTeacher,
		Status:     course.EnrollmentActive,
		EnrolledAt: now,
		UpdatedAt:  now,
	}
	crs, err := repo.CreateCourse(context.Background(), crs, enr)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func Enroll(t *testing.T, repo course.Repository, crs course.Course, usr user.User, typ string) course.Enrollment {
	t.Helper()

	now := time.Now().UTC()
	enr, err := repo.UpsertEnrollment(context.Background(), course.Enrollment{
		UserID:     usr.ID,
		CourseID:   crs.ID,
		Type:       typ,
		Status:     course.EnrollmentActive,
		EnrolledAt: now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return enr
}

func CreateAssignment(
	t *testing.T,
	repo coursework.Repository,
	crs course.Course,
	title string,
	dueDate time.Time,
	allowLate bool,
) coursework.Assignment {
	t.Helper()

	now := time.Now().UTC()
	a, err := repo.CreateAssignment(context.Background(), coursework.Assignment{
		CourseID:            crs.ID,
		Title:               title,
		PointsPossible:      100,
		DueDate:             dueDate.UTC(),
		AllowLateSubmission: allowLate,
		CreatedAt:           now,
		UpdatedAt:           now,
	})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return a
}
