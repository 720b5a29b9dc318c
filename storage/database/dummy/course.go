package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) query() []course.Course {
	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		courses = append(courses, *c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	return courses
}

func (repo *courseRepository) upsertEnrollment(enr course.Enrollment) course.Enrollment {
	key := enrollmentKey(enr.UserID, enr.CourseID)
	if orig, ok := repo.db.enrollments[key]; ok {
		orig.Type = enr.Type
		orig.Status = enr.Status
		orig.UpdatedAt = enr.UpdatedAt
		return *orig
	}
	repo.db.enrollments[key] = &enr
	return enr
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course, enr course.Enrollment, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, c := range repo.db.courses {
		if c.Code == crs.Code {
			return course.Course{}, course.ErrCodeExists
		}
	}
	crs.ID = uuid.New().String()
	enr.CourseID = crs.ID
	repo.db.courses[crs.ID] = &crs
	repo.upsertEnrollment(enr)
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(_ context.Context, id string, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetCourseByCode(_ context.Context, code string, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, crs := range repo.db.courses {
		if crs.Code == code {
			return *crs, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) FilterCourses(_ context.Context, filter course.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := repo.query()

	// courses with search keyword matching any Code, Name or Description ?
	if filter.Search != "" {
		var filtered []course.Course
		kw := strings.ToLower(filter.Search)
		for _, c := range courses {
			if strings.Contains(strings.ToLower(c.Code), kw) ||
				strings.Contains(strings.ToLower(c.Name), kw) ||
				strings.Contains(strings.ToLower(c.Description), kw) {
				filtered = append(filtered, c)
			}
		}
		courses = filtered
	}
	if courses != nil && filter.CreatorID != "" {
		var filtered []course.Course
		for _, c := range courses {
			if c.CreatorID == filter.CreatorID {
				filtered = append(filtered, c)
			}
		}
		courses = filtered
	}
	if courses != nil && !filter.IncludeArchived {
		var filtered []course.Course
		for _, c := range courses {
			if !c.IsArchived {
				filtered = append(filtered, c)
			}
		}
		courses = filtered
	}

	// only code ordering is supported here; tests need no more
	for _, ord := range ordering {
		if ord.Field == "code" {
			sort.Slice(courses, func(i, j int) bool {
				if ord.Ascending {
					return courses[i].Code < courses[j].Code
				}
				return courses[i].Code > courses[j].Code
			})
		}
	}

	return courses, nil
}

func (repo *courseRepository) GetUserCourses(_ context.Context, userID, enrollmentType string, _ ...core.DBExecutor) ([]course.UserCourse, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var courses []course.UserCourse
	for _, enr := range repo.db.enrollments {
		if enr.UserID != userID || !enr.IsActive() {
			continue
		}
		if enrollmentType != "" && enr.Type != enrollmentType {
			continue
		}
		if crs, ok := repo.db.courses[enr.CourseID]; ok {
			courses = append(courses, course.UserCourse{
				Course:           *crs,
				EnrollmentType:   enr.Type,
				EnrollmentStatus: enr.Status,
			})
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course, isArchived *bool, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// only save set fields
	orig, ok := repo.db.courses[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	if crs.Code != "" && crs.Code != orig.Code {
		for _, c := range repo.db.courses {
			if c.ID != crs.ID && c.Code == crs.Code {
				return course.Course{}, course.ErrCodeExists
			}
		}
		orig.Code = crs.Code
	}
	if crs.Name != "" {
		orig.Name = crs.Name
	}
	if crs.Description != "" {
		orig.Description = crs.Description
	}
	if isArchived != nil {
		orig.IsArchived = *isArchived
	}
	orig.UpdatedAt = crs.UpdatedAt

	repo.db.courses[crs.ID] = orig
	return *orig, nil
}

func (repo *courseRepository) DeleteCourseByID(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.courses, id)

	// cascades
	for key, enr := range repo.db.enrollments {
		if enr.CourseID == id {
			delete(repo.db.enrollments, key)
		}
	}
	for aID, a := range repo.db.assignments {
		if a.CourseID != id {
			continue
		}
		for sID, s := range repo.db.submissions {
			if s.AssignmentID == aID {
				delete(repo.db.submissions, sID)
			}
		}
		delete(repo.db.assignments, aID)
	}
	for mID, m := range repo.db.materials {
		if m.CourseID == id {
			delete(repo.db.materials, mID)
		}
	}
	for dID, d := range repo.db.discussions {
		if d.CourseID != id {
			continue
		}
		for cID, c := range repo.db.comments {
			if c.DiscussionID == dID {
				delete(repo.db.comments, cID)
			}
		}
		delete(repo.db.discussions, dID)
	}
	return nil
}

func (repo *courseRepository) UpsertEnrollment(_ context.Context, enr course.Enrollment, _ ...core.DBExecutor) (course.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	return repo.upsertEnrollment(enr), nil
}

func (repo *courseRepository) DeactivateEnrollment(_ context.Context, courseID, userID string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	enr, ok := repo.db.enrollments[enrollmentKey(userID, courseID)]
	if !ok {
		return course.ErrEnrollmentNotFound
	}
	enr.Status = course.EnrollmentInactive
	enr.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *courseRepository) GetEnrollment(_ context.Context, courseID, userID string, _ ...core.DBExecutor) (course.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if enr, ok := repo.db.enrollments[enrollmentKey(userID, courseID)]; ok {
		return *enr, nil
	}
	return course.Enrollment{}, course.ErrEnrollmentNotFound
}

func (repo *courseRepository) GetCourseEnrollments(_ context.Context, courseID string, _ ...core.DBExecutor) ([]course.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var enrs []course.Enrollment
	for _, enr := range repo.db.enrollments {
		if enr.CourseID == courseID {
			enrs = append(enrs, *enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].EnrolledAt.Before(enrs[j].EnrolledAt) })
	return enrs, nil
}

func (repo *courseRepository) ActiveEnrollmentType(_ context.Context, courseID, userID string, _ ...core.DBExecutor) (string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if enr, ok := repo.db.enrollments[enrollmentKey(userID, courseID)]; ok && enr.IsActive() {
		return enr.Type, nil
	}
	return "", nil
}
