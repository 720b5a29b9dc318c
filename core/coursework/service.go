package coursework

import (
	"context"
	"errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/authz"
	"github.com/trezcool/darasa/core/course"
)

var (
	// errors
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrMaterialNotFound   = errors.New("material not found")
	ErrDiscussionNotFound = errors.New("discussion not found")
	ErrCommentNotFound    = errors.New("comment not found")
	ErrLateSubmission     = errors.New("the due date has passed and this assignment does not accept late submissions")
	ErrNotGraded          = errors.New("only graded submissions can be returned")
	ErrParentMismatch     = errors.New("parent comment belongs to another discussion")
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment, exec ...core.DBExecutor) (Assignment, error)
		GetAssignmentByID(ctx context.Context, id string, exec ...core.DBExecutor) (Assignment, error)
		GetAssignmentsByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Assignment, error)
		UpdateAssignment(ctx context.Context, a Assignment, allowLate *bool, exec ...core.DBExecutor) (Assignment, error)
		DeleteAssignmentByID(ctx context.Context, id string, exec ...core.DBExecutor) error

		// UpsertSubmission inserts or, if a row exists for (assignment, user),
		// replaces content/file/submitted_at, resets status to `submitted` and
		// clears score and feedback.
		UpsertSubmission(ctx context.Context, s Submission, exec ...core.DBExecutor) (Submission, error)
		GetSubmissionByID(ctx context.Context, id string, exec ...core.DBExecutor) (Submission, error)
		GetSubmissionForUser(ctx context.Context, assignmentID, userID string, exec ...core.DBExecutor) (Submission, error)
		GetSubmissionsByAssignment(ctx context.Context, assignmentID string, exec ...core.DBExecutor) ([]Submission, error)
		GetSubmissionsByUser(ctx context.Context, userID string, exec ...core.DBExecutor) ([]Submission, error)
		GradeSubmission(ctx context.Context, id string, score int, feedback string, exec ...core.DBExecutor) (Submission, error)
		ReturnSubmission(ctx context.Context, id string, exec ...core.DBExecutor) (Submission, error)

		CreateMaterial(ctx context.Context, m Material, exec ...core.DBExecutor) (Material, error)
		GetMaterialByID(ctx context.Context, id string, exec ...core.DBExecutor) (Material, error)
		GetMaterialsByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Material, error)
		UpdateMaterial(ctx context.Context, m Material, exec ...core.DBExecutor) (Material, error)
		DeleteMaterialByID(ctx context.Context, id string, exec ...core.DBExecutor) error

		CreateDiscussion(ctx context.Context, d Discussion, exec ...core.DBExecutor) (Discussion, error)
		GetDiscussionByID(ctx context.Context, id string, exec ...core.DBExecutor) (Discussion, error)
		GetDiscussionsByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Discussion, error)
		UpdateDiscussion(ctx context.Context, d Discussion, exec ...core.DBExecutor) (Discussion, error)
		DeleteDiscussionByID(ctx context.Context, id string, exec ...core.DBExecutor) error

		CreateComment(ctx context.Context, c Comment, exec ...core.DBExecutor) (Comment, error)
		GetCommentByID(ctx context.Context, id string, exec ...core.DBExecutor) (Comment, error)
		// GetCommentsByDiscussion returns the flat list ordered by posted_at.
		GetCommentsByDiscussion(ctx context.Context, discussionID string, exec ...core.DBExecutor) ([]Comment, error)
		UpdateComment(ctx context.Context, c Comment, exec ...core.DBExecutor) (Comment, error)
		// DeleteCommentByID cascade-deletes the comment's replies.
		DeleteCommentByID(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	// CourseGetter is the slice of the course ledger this service needs.
	CourseGetter interface {
		GetCourseByID(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error)
	}

	Service struct {
		repo    Repository
		courses CourseGetter
		policy  *authz.Policy
	}
)

func NewService(repo Repository, courses CourseGetter, policy *authz.Policy) *Service {
	return &Service{repo: repo, courses: courses, policy: policy}
}

// authorizeCourse loads the target course and checks the action against the
// policy. For non-admins a missing course reads as a denial.
func (svc *Service) authorizeCourse(ctx context.Context, actor authz.Actor, action authz.Action, courseID string) (course.Course, error) {
	crs, err := svc.courses.GetCourseByID(ctx, courseID)
	if err != nil {
		if err == course.ErrNotFound && !actor.IsAdmin() {
			return course.Course{}, authz.ErrUnauthorized
		}
		return course.Course{}, err
	}
	res := course.ResourceFor(crs)
	if err = svc.policy.Authorize(ctx, actor, action, res); err != nil {
		return course.Course{}, err
	}
	return crs, nil
}

// trapNotFound hides existence from non-admins.
func trapNotFound(err error, actor authz.Actor) error {
	if actor.IsAdmin() {
		return err
	}
	return authz.ErrUnauthorized
}
