package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/coursework"
)

const (
	assignmentCols = "id, course_id, title, description, points_possible, due_date, allow_late_submission, created_at, updated_at"
	submissionCols = "id, assignment_id, user_id, content, file_path, status, score, feedback, submitted_at"
	materialCols   = "id, course_id, title, description, type, content_url, file_path, created_at, updated_at"
	discussionCols = "id, course_id, creator_id, title, description, created_at, updated_at"
	commentCols    = "id, discussion_id, user_id, parent_id, content, posted_at"
)

type assignmentRow struct {
	ID                  string    `db:"id"`
	CourseID            string    `db:"course_id"`
	Title               string    `db:"title"`
	Description         string    `db:"description"`
	PointsPossible      int       `db:"points_possible"`
	DueDate             time.Time `db:"due_date"`
	AllowLateSubmission bool      `db:"allow_late_submission"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

func (row assignmentRow) assignment() coursework.Assignment {
	return coursework.Assignment(row)
}

type submissionRow struct {
	ID           string      `db:"id"`
	AssignmentID string      `db:"assignment_id"`
	UserID       string      `db:"user_id"`
	Content      string      `db:"content"`
	FilePath     null.String `db:"file_path"`
	Status       string      `db:"status"`
	Score        null.Int    `db:"score"`
	Feedback     string      `db:"feedback"`
	SubmittedAt  time.Time   `db:"submitted_at"`
}

func (row submissionRow) submission() coursework.Submission {
	return coursework.Submission{
		ID:           row.ID,
		AssignmentID: row.AssignmentID,
		UserID:       row.UserID,
		Content:      row.Content,
		FilePath:     row.FilePath.String,
		Status:       row.Status,
		Score:        row.Score.Ptr(),
		Feedback:     row.Feedback,
		SubmittedAt:  row.SubmittedAt,
	}
}

type materialRow struct {
	ID          string      `db:"id"`
	CourseID    string      `db:"course_id"`
	Title       string      `db:"title"`
	Description string      `db:"description"`
	Type        string      `db:"type"`
	ContentURL  null.String `db:"content_url"`
	FilePath    null.String `db:"file_path"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (row materialRow) material() coursework.Material {
	return coursework.Material{
		ID:          row.ID,
		CourseID:    row.CourseID,
		Title:       row.Title,
		Description: row.Description,
		Type:        row.Type,
		ContentURL:  row.ContentURL.String,
		FilePath:    row.FilePath.String,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type discussionRow struct {
	ID          string    `db:"id"`
	CourseID    string    `db:"course_id"`
	CreatorID   string    `db:"creator_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row discussionRow) discussion() coursework.Discussion {
	return coursework.Discussion(row)
}

type commentRow struct {
	ID           string      `db:"id"`
	DiscussionID string      `db:"discussion_id"`
	UserID       string      `db:"user_id"`
	ParentID     null.String `db:"parent_id"`
	Content      string      `db:"content"`
	PostedAt     time.Time   `db:"posted_at"`
}

func (row commentRow) comment() coursework.Comment {
	return coursework.Comment{
		ID:           row.ID,
		DiscussionID: row.DiscussionID,
		UserID:       row.UserID,
		ParentID:     row.ParentID.String,
		Content:      row.Content,
		PostedAt:     row.PostedAt,
	}
}

type courseworkRepository struct {
	db core.DB
}

var _ coursework.Repository = (*courseworkRepository)(nil) // interface compliance check

func NewCourseworkRepository(db core.DB) *courseworkRepository {
	return &courseworkRepository{db: db}
}

func (repo courseworkRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.db
}

func (repo courseworkRepository) trapNoRowsErr(err, sentinel error, msg string) error {
	if err == sql.ErrNoRows {
		return sentinel
	}
	return errors.Wrap(err, msg)
}

func (repo courseworkRepository) CreateAssignment(ctx context.Context, a coursework.Assignment, exec ...core.DBExecutor) (coursework.Assignment, error) {
	a.ID = uuid.New().String()
	q := `
	INSERT INTO assignments (` + assignmentCols + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.getExec(exec).ExecContext(ctx, q,
		a.ID, a.CourseID, a.Title, a.Description, a.PointsPossible, a.DueDate.UTC(),
		a.AllowLateSubmission, a.CreatedAt.UTC(), a.UpdatedAt.UTC())
	if err != nil {
		return coursework.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}

func (repo courseworkRepository) GetAssignmentByID(ctx context.Context, id string, exec ...core.DBExecutor) (coursework.Assignment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return coursework.Assignment{}, coursework.ErrAssignmentNotFound
	}
	var row assignmentRow
	q := "SELECT " + assignmentCols + " FROM assignments WHERE id = $1"
	if err := repo.getExec(exec).GetContext(ctx, &row, q, id); err != nil {
		return coursework.Assignment{}, repo.trapNoRowsErr(err, coursework.ErrAssignmentNotFound, "finding assignment")
	}
	return row.assignment(), nil
}

func (repo courseworkRepository) GetAssignmentsByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]coursework.Assignment, error) {
	var rows []assignmentRow
	q := "SELECT " + assignmentCols + " FROM assignments WHERE course_id = $1 ORDER BY due_date"
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}

	assignments := make([]coursework.Assignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, row.assignment())
	}
	return assignments, nil
}

func (repo courseworkRepository) UpdateAssignment(ctx context.Context, a coursework.Assignment, allowLate *bool, exec ...core.DBExecutor) (coursework.Assignment, error) {
	var qs querySet
	qs.add("title", a.Title)
	qs.add("description", a.Description)
	qs.add("points_possible", a.PointsPossible)
	qs.add("due_date", a.DueDate.UTC())
	if allowLate != nil {
		qs.add("allow_late_submission", *allowLate)
	}
	qs.add("updated_at", a.UpdatedAt.UTC())

	var row assignmentRow
	q := "UPDATE assignments SET " + strings.Join(qs.sets, ", ") + " WHERE id = " + qs.arg(a.ID) + " RETURNING " + assignmentCols
	if err := repo.getExec(exec).GetContext(ctx, &row, q, qs.args...); err != nil {
		return coursework.Assignment{}, repo.trapNoRowsErr(err, coursework.ErrAssignmentNotFound, "updating assignment")
	}
	return row.assignment(), nil
}

func (repo courseworkRepository) DeleteAssignmentByID(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM assignments WHERE id = $1", id); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return nil
}

func (repo courseworkRepository) UpsertSubmission(ctx context.Context, s coursework.Submission, exec ...core.DBExecutor) (coursework.Submission, error) {
	var row submissionRow
	q := `
	INSERT INTO submissions (` + submissionCols + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (assignment_id, user_id) DO UPDATE
		SET content = EXCLUDED.content, file_path = EXCLUDED.file_path, status = EXCLUDED.status,
		    score = NULL, feedback = '', submitted_at = EXCLUDED.submitted_at
	RETURNING ` + submissionCols
	err := repo.getExec(exec).GetContext(ctx, &row, q,
		uuid.New().String(), s.AssignmentID, s.UserID, s.Content,
		null.NewString(s.FilePath, s.FilePath != ""), s.Status, null.IntFromPtr(s.Score),
		s.Feedback, s.SubmittedAt.UTC())
	if err != nil {
		return coursework.Submission{}, errors.Wrap(err, "upserting submission")
	}
	return row.submission(), nil
}

func (repo courseworkRepository) GetSubmissionByID(ctx context.Context, id string, exec ...core.DBExecutor) (coursework.Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return coursework.Submission{}, coursework.ErrSubmissionNotFound
	}
	var row submissionRow
	q := "SELECT " + submissionCols + " FROM submissions WHERE id = $1"
	if err := repo.getExec(exec).GetContext(ctx, &row, q, id); err != nil {
		return coursework.Submission{}, repo.trapNoRowsErr(err, coursework.ErrSubmissionNotFound, "finding submission")
	}
	return row.submission(), nil
}

func (repo courseworkRepository) GetSubmissionForUser(ctx context.Context, assignmentID, userID string, exec ...core.DBExecutor) (coursework.Submission, error) {
	var row submissionRow
	q := "SELECT " + submissionCols + " FROM submissions WHERE assignment_id = $1 AND user_id = $2"
	if err := repo.getExec(exec).GetContext(ctx, &row, q, assignmentID, userID); err != nil {
		return coursework.Submission{}, repo.trapNoRowsErr(err, coursework.ErrSubmissionNotFound, "finding submission")
	}
	return row.submission(), nil
}

func (repo courseworkRepository) GetSubmissionsByAssignment(ctx context.Context, assignmentID string, exec ...core.DBExecutor) ([]coursework.Submission, error) {
	return repo.querySubmissions(ctx, repo.getExec(exec), "assignment_id = $1", assignmentID)
}

func (repo courseworkRepository) GetSubmissionsByUser(ctx context.Context, userID string, exec ...core.DBExecutor) ([]coursework.Submission, error) {
	return repo.querySubmissions(ctx, repo.getExec(exec), "user_id = $1", userID)
}

func (repo courseworkRepository) querySubmissions(ctx context.Context, exe core.DBExecutor, where string, args ...interface{}) ([]coursework.Submission, error) {
	var rows []submissionRow
	q := "SELECT " + submissionCols + " FROM submissions WHERE " + where + " ORDER BY submitted_at"
	if err := exe.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}

	subs := make([]coursework.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.submission())
	}
	return subs, nil
}

func (repo courseworkRepository) GradeSubmission(ctx context.Context, id string, score int, feedback string, exec ...core.DBExecutor) (coursework.Submission, error) {
	var row submissionRow
	q := "UPDATE submissions SET status = $1, score = $2, feedback = $3 WHERE id = $4 RETURNING " + submissionCols
	err := repo.getExec(exec).GetContext(ctx, &row, q, coursework.SubmissionGraded, score, feedback, id)
	if err != nil {
		return coursework.Submission{}, repo.trapNoRowsErr(err, coursework.ErrSubmissionNotFound, "grading submission")
	}
	return row.submission(), nil
}

func (repo courseworkRepository) ReturnSubmission(ctx context.Context, id string, exec ...core.DBExecutor) (coursework.Submission, error) {
	var row submissionRow
	q := "UPDATE submissions SET status = $1 WHERE id = $2 RETURNING " + submissionCols
	err := repo.getExec(exec).GetContext(ctx, &row, q, coursework.SubmissionReturned, id)
	if err != nil {
		return coursework.Submission{}, repo.trapNoRowsErr(err, coursework.ErrSubmissionNotFound, "returning submission")
	}
	return row.submission(), nil
}

func (repo courseworkRepository) CreateMaterial(ctx context.Context, m coursework.Material, exec ...core.DBExecutor) (coursework.Material, error) {
	m.ID = uuid.New().String()
	q := `
	INSERT INTO materials (` + materialCols + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.getExec(exec).ExecContext(ctx, q,
		m.ID, m.CourseID, m.Title, m.Description, m.Type,
		null.NewString(m.ContentURL, m.ContentURL != ""), null.NewString(m.FilePath, m.FilePath != ""),
		m.CreatedAt.UTC(), m.UpdatedAt.UTC())
	if err != nil {
		return coursework.Material{}, errors.Wrap(err, "inserting material")
	}
	return m, nil
}

func (repo courseworkRepository) GetMaterialByID(ctx context.Context, id string, exec ...core.DBExecutor) (coursework.Material, error) {
	if _, err := uuid.Parse(id); err != nil {
		return coursework.Material{}, coursework.ErrMaterialNotFound
	}
	var row materialRow
	q := "SELECT " + materialCols + " FROM materials WHERE id = $1"
	if err := repo.getExec(exec).GetContext(ctx, &row, q, id); err != nil {
		return coursework.Material{}, repo.trapNoRowsErr(err, coursework.ErrMaterialNotFound, "finding material")
	}
	return row.material(), nil
}

func (repo courseworkRepository) GetMaterialsByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]coursework.Material, error) {
	var rows []materialRow
	q := "SELECT " + materialCols + " FROM materials WHERE course_id = $1 ORDER BY created_at"
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying materials")
	}

	materials := make([]coursework.Material, 0, len(rows))
	for _, row := range rows {
		materials = append(materials, row.material())
	}
	return materials, nil
}

func (repo courseworkRepository) UpdateMaterial(ctx context.Context, m coursework.Material, exec ...core.DBExecutor) (coursework.Material, error) {
	var row materialRow
	q := `
	UPDATE materials
	SET title = $1, description = $2, type = $3, content_url = $4, file_path = $5, updated_at = $6
	WHERE id = $7
	RETURNING ` + materialCols
	err := repo.getExec(exec).GetContext(ctx, &row, q,
		m.Title, m.Description, m.Type,
		null.NewString(m.ContentURL, m.ContentURL != ""), null.NewString(m.FilePath, m.FilePath != ""),
		m.UpdatedAt.UTC(), m.ID)
	if err != nil {
		return coursework.Material{}, repo.trapNoRowsErr(err, coursework.ErrMaterialNotFound, "updating material")
	}
	return row.material(), nil
}

func (repo courseworkRepository) DeleteMaterialByID(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM materials WHERE id = $1", id); err != nil {
		return errors.Wrap(err, "deleting material")
	}
	return nil
}

func (repo courseworkRepository) CreateDiscussion(ctx context.Context, d coursework.Discussion, exec ...core.DBExecutor) (coursework.Discussion, error) {
	d.ID = uuid.New().String()
	q := `
	INSERT INTO discussions (` + discussionCols + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.getExec(exec).ExecContext(ctx, q,
		d.ID, d.CourseID, d.CreatorID, d.Title, d.Description, d.CreatedAt.UTC(), d.UpdatedAt.UTC())
	if err != nil {
		return coursework.Discussion{}, errors.Wrap(err, "inserting discussion")
	}
	return d, nil
}

func (repo courseworkRepository) GetDiscussionByID(ctx context.Context, id string, exec ...core.DBExecutor) (coursework.Discussion, error) {
	if _, err := uuid.Parse(id); err != nil {
		return coursework.Discussion{}, coursework.ErrDiscussionNotFound
	}
	var row discussionRow
	q := "SELECT " + discussionCols + " FROM discussions WHERE id = $1"
	if err := repo.getExec(exec).GetContext(ctx, &row, q, id); err != nil {
		return coursework.Discussion{}, repo.trapNoRowsErr(err, coursework.ErrDiscussionNotFound, "finding discussion")
	}
	return row.discussion(), nil
}

func (repo courseworkRepository) GetDiscussionsByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]coursework.Discussion, error) {
	var rows []discussionRow
	q := "SELECT " + discussionCols + " FROM discussions WHERE course_id = $1 ORDER BY created_at"
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying discussions")
	}

	discussions := make([]coursework.Discussion, 0, len(rows))
	for _, row := range rows {
		discussions = append(discussions, row.discussion())
	}
	return discussions, nil
}

func (repo courseworkRepository) UpdateDiscussion(ctx context.Context, d coursework.Discussion, exec ...core.DBExecutor) (coursework.Discussion, error) {
	var row discussionRow
	q := `
	UPDATE discussions
	SET title = $1, description = $2, updated_at = $3
	WHERE id = $4
	RETURNING ` + discussionCols
	err := repo.getExec(exec).GetContext(ctx, &row, q, d.Title, d.Description, d.UpdatedAt.UTC(), d.ID)
	if err != nil {
		return coursework.Discussion{}, repo.trapNoRowsErr(err, coursework.ErrDiscussionNotFound, "updating discussion")
	}
	return row.discussion(), nil
}

func (repo courseworkRepository) DeleteDiscussionByID(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM discussions WHERE id = $1", id); err != nil {
		return errors.Wrap(err, "deleting discussion")
	}
	return nil
}

func (repo courseworkRepository) CreateComment(ctx context.Context, c coursework.Comment, exec ...core.DBExecutor) (coursework.Comment, error) {
	c.ID = uuid.New().String()
	q := `
	INSERT INTO comments (` + commentCols + `)
	VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.getExec(exec).ExecContext(ctx, q,
		c.ID, c.DiscussionID, c.UserID, null.NewString(c.ParentID, c.ParentID != ""), c.Content, c.PostedAt.UTC())
	if err != nil {
		return coursework.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return c, nil
}

func (repo courseworkRepository) GetCommentByID(ctx context.Context, id string, exec ...core.DBExecutor) (coursework.Comment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return coursework.Comment{}, coursework.ErrCommentNotFound
	}
	var row commentRow
	q := "SELECT " + commentCols + " FROM comments WHERE id = $1"
	if err := repo.getExec(exec).GetContext(ctx, &row, q, id); err != nil {
		return coursework.Comment{}, repo.trapNoRowsErr(err, coursework.ErrCommentNotFound, "finding comment")
	}
	return row.comment(), nil
}

func (repo courseworkRepository) GetCommentsByDiscussion(ctx context.Context, discussionID string, exec ...core.DBExecutor) ([]coursework.Comment, error) {
	var rows []commentRow
	q := "SELECT " + commentCols + " FROM comments WHERE discussion_id = $1 ORDER BY posted_at, id"
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, discussionID); err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}

	comments := make([]coursework.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.comment())
	}
	return comments, nil
}

func (repo courseworkRepository) UpdateComment(ctx context.Context, c coursework.Comment, exec ...core.DBExecutor) (coursework.Comment, error) {
	var row commentRow
	q := "UPDATE comments SET content = $1 WHERE id = $2 RETURNING " + commentCols
	if err := repo.getExec(exec).GetContext(ctx, &row, q, c.Content, c.ID); err != nil {
		return coursework.Comment{}, repo.trapNoRowsErr(err, coursework.ErrCommentNotFound, "updating comment")
	}
	return row.comment(), nil
}

// DeleteCommentByID removes the comment; replies go with it (FK cascade).
func (repo courseworkRepository) DeleteCommentByID(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM comments WHERE id = $1", id); err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	return nil
}
