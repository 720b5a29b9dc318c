package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

const (
	courseCols     = "id, code, name, description, creator_id, is_archived, created_at, updated_at"
	enrollmentCols = "user_id, course_id, type, status, enrolled_at, updated_at"
)

type courseRow struct {
	ID          string    `db:"id"`
	Code        string    `db:"code"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatorID   string    `db:"creator_id"`
	IsArchived  bool      `db:"is_archived"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row courseRow) course() course.Course {
	return course.Course{
		ID:          row.ID,
		Code:        row.Code,
		Name:        row.Name,
		Description: row.Description,
		CreatorID:   row.CreatorID,
		IsArchived:  row.IsArchived,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type enrollmentRow struct {
	UserID     string    `db:"user_id"`
	CourseID   string    `db:"course_id"`
	Type       string    `db:"type"`
	Status     string    `db:"status"`
	EnrolledAt time.Time `db:"enrolled_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (row enrollmentRow) enrollment() course.Enrollment {
	return course.Enrollment{
		UserID:     row.UserID,
		CourseID:   row.CourseID,
		Type:       row.Type,
		Status:     row.Status,
		EnrolledAt: row.EnrolledAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

type userCourseRow struct {
	courseRow
	EnrollmentType   string `db:"enrollment_type"`
	EnrollmentStatus string `db:"enrollment_status"`
}

type courseRepository struct {
	db core.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db core.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.db
}

func (repo courseRepository) trapConflictErr(err error, msg string) error {
	if violatesConstraint(err, "courses_code_key") {
		return course.ErrCodeExists
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) getCourse(ctx context.Context, exe core.DBExecutor, where string, args ...interface{}) (course.Course, error) {
	var row courseRow
	q := "SELECT " + courseCols + " FROM courses WHERE " + where
	if err := exe.GetContext(ctx, &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "finding course")
	}
	return row.course(), nil
}

func (repo courseRepository) upsertEnrollment(ctx context.Context, exe core.DBExecutor, enr course.Enrollment) (course.Enrollment, error) {
	var row enrollmentRow
	q := `
	INSERT INTO enrollments (` + enrollmentCols + `)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (user_id, course_id) DO UPDATE
		SET type = EXCLUDED.type, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
	RETURNING ` + enrollmentCols
	err := exe.GetContext(ctx, &row, q,
		enr.UserID, enr.CourseID, enr.Type, enr.Status, enr.EnrolledAt.UTC(), enr.UpdatedAt.UTC())
	if err != nil {
		return course.Enrollment{}, errors.Wrap(err, "upserting enrollment")
	}
	return row.enrollment(), nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course, enr course.Enrollment, exec ...core.DBExecutor) (course.Course, error) {
	crs.ID = uuid.New().String()
	enr.CourseID = crs.ID

	err := inTx(ctx, repo.db, exec, func(exe core.DBExecutor) error {
		q := `
		INSERT INTO courses (` + courseCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
		_, err := exe.ExecContext(ctx, q,
			crs.ID, crs.Code, crs.Name, crs.Description, crs.CreatorID, crs.IsArchived,
			crs.CreatedAt.UTC(), crs.UpdatedAt.UTC())
		if err != nil {
			return repo.trapConflictErr(err, "inserting course")
		}
		_, err = repo.upsertEnrollment(ctx, exe, enr)
		return err
	})
	if err != nil {
		return course.Course{}, err
	}
	return crs, nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}
	return repo.getCourse(ctx, repo.getExec(exec), "id = $1", id)
}

func (repo courseRepository) GetCourseByCode(ctx context.Context, code string, exec ...core.DBExecutor) (course.Course, error) {
	return repo.getCourse(ctx, repo.getExec(exec), "code = $1", code)
}

func (repo courseRepository) FilterCourses(ctx context.Context, filter course.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]course.Course, error) {
	var qs querySet
	where := []string{"true"}

	// courses with Code, Name or Description matching the search keyword
	if filter.Search != "" {
		val := qs.arg("%" + filter.Search + "%")
		where = append(where, "(code ILIKE "+val+" OR name ILIKE "+val+" OR description ILIKE "+val+")")
	}
	if filter.CreatorID != "" {
		where = append(where, "creator_id = "+qs.arg(filter.CreatorID))
	}
	if !filter.IncludeArchived {
		where = append(where, "is_archived = false")
	}

	var rows []courseRow
	q := "SELECT " + courseCols + " FROM courses WHERE " + strings.Join(where, " AND ") + " ORDER BY " + orderBy(ordering, "name")
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, qs.args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}

	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.course())
	}
	return courses, nil
}

func (repo courseRepository) GetUserCourses(ctx context.Context, userID, enrollmentType string, exec ...core.DBExecutor) ([]course.UserCourse, error) {
	var qs querySet
	where := []string{
		"e.user_id = " + qs.arg(userID),
		"e.status = " + qs.arg(course.EnrollmentActive),
	}
	if enrollmentType != "" {
		where = append(where, "e.type = "+qs.arg(enrollmentType))
	}

	var rows []userCourseRow
	q := `
	SELECT c.id, c.code, c.name, c.description, c.creator_id, c.is_archived, c.created_at, c.updated_at,
	       e.type AS enrollment_type, e.status AS enrollment_status
	FROM courses c
	JOIN enrollments e ON e.course_id = c.id
	WHERE ` + strings.Join(where, " AND ") + `
	ORDER BY c.name`
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, qs.args...); err != nil {
		return nil, errors.Wrap(err, "querying user courses")
	}

	courses := make([]course.UserCourse, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, course.UserCourse{
			Course:           row.course(),
			EnrollmentType:   row.EnrollmentType,
			EnrollmentStatus: row.EnrollmentStatus,
		})
	}
	return courses, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course, isArchived *bool, exec ...core.DBExecutor) (course.Course, error) {
	exe := repo.getExec(exec)

	// only save set fields
	var qs querySet
	if crs.Code != "" {
		qs.add("code", crs.Code)
	}
	if crs.Name != "" {
		qs.add("name", crs.Name)
	}
	if crs.Description != "" {
		qs.add("description", crs.Description)
	}
	if isArchived != nil {
		qs.add("is_archived", *isArchived)
	}
	qs.add("updated_at", crs.UpdatedAt.UTC())

	q := "UPDATE courses SET " + strings.Join(qs.sets, ", ") + " WHERE id = " + qs.arg(crs.ID)
	res, err := exe.ExecContext(ctx, q, qs.args...)
	if err != nil {
		return course.Course{}, repo.trapConflictErr(err, "updating course")
	}
	if cnt, err := res.RowsAffected(); err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	} else if cnt == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.getCourse(ctx, exe, "id = $1", crs.ID)
}

func (repo courseRepository) DeleteCourseByID(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM courses WHERE id = $1", id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return nil
}

func (repo courseRepository) UpsertEnrollment(ctx context.Context, enr course.Enrollment, exec ...core.DBExecutor) (course.Enrollment, error) {
	return repo.upsertEnrollment(ctx, repo.getExec(exec), enr)
}

func (repo courseRepository) DeactivateEnrollment(ctx context.Context, courseID, userID string, exec ...core.DBExecutor) error {
	q := "UPDATE enrollments SET status = $1, updated_at = $2 WHERE course_id = $3 AND user_id = $4"
	res, err := repo.getExec(exec).ExecContext(ctx, q, course.EnrollmentInactive, time.Now().UTC(), courseID, userID)
	if err != nil {
		return errors.Wrap(err, "deactivating enrollment")
	}
	if cnt, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "deactivating enrollment")
	} else if cnt == 0 {
		return course.ErrEnrollmentNotFound
	}
	return nil
}

func (repo courseRepository) GetEnrollment(ctx context.Context, courseID, userID string, exec ...core.DBExecutor) (course.Enrollment, error) {
	var row enrollmentRow
	q := "SELECT " + enrollmentCols + " FROM enrollments WHERE course_id = $1 AND user_id = $2"
	if err := repo.getExec(exec).GetContext(ctx, &row, q, courseID, userID); err != nil {
		if err == sql.ErrNoRows {
			return course.Enrollment{}, course.ErrEnrollmentNotFound
		}
		return course.Enrollment{}, errors.Wrap(err, "finding enrollment")
	}
	return row.enrollment(), nil
}

func (repo courseRepository) GetCourseEnrollments(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Enrollment, error) {
	var rows []enrollmentRow
	q := "SELECT " + enrollmentCols + " FROM enrollments WHERE course_id = $1 ORDER BY enrolled_at"
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}

	enrs := make([]course.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, row.enrollment())
	}
	return enrs, nil
}

func (repo courseRepository) ActiveEnrollmentType(ctx context.Context, courseID, userID string, exec ...core.DBExecutor) (string, error) {
	var typ string
	q := "SELECT type FROM enrollments WHERE course_id = $1 AND user_id = $2 AND status = $3"
	if err := repo.getExec(exec).GetContext(ctx, &typ, q, courseID, userID, course.EnrollmentActive); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", errors.Wrap(err, "checking enrollment")
	}
	return typ, nil
}
