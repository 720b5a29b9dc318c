package coursework

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core/authz"
)

// Submit creates or replaces the actor's submission for the assignment
// (upsert keyed by (assignment, user)). Re-submitting resets the status to
// `submitted` and clears any prior grade, so stale scores never survive a
// content change. Late submissions are only accepted when the assignment
// allows them; they are flagged late either way.
func (svc *Service) Submit(ctx context.Context, actor authz.Actor, assignmentID string, ns NewSubmission) (Submission, error) {
	a, err := svc.repo.GetAssignmentByID(ctx, assignmentID)
	if err != nil {
		if err == ErrAssignmentNotFound {
			return Submission{}, trapNotFound(err, actor)
		}
		return Submission{}, err
	}
	if _, err = svc.authorizeCourse(ctx, actor, authz.ActionSubmit, a.CourseID); err != nil {
		return Submission{}, err
	}

	now := time.Now().UTC()
	if a.IsLate(now) && !a.AllowLateSubmission {
		return Submission{}, ErrLateSubmission
	}

	s := Submission{
		AssignmentID: assignmentID,
		UserID:       actor.ID,
		Content:      ns.Content,
		FilePath:     ns.FilePath,
		Status:       SubmissionSubmitted,
		SubmittedAt:  now,
	}
	s, err = svc.repo.UpsertSubmission(ctx, s)
	if err != nil {
		return Submission{}, err
	}
	s.Late = a.IsLate(s.SubmittedAt)
	return s, nil
}

// getSubmissionAuthorized resolves the submission and checks access: the
// owner may always read their own; anyone else needs grading rights.
func (svc *Service) getSubmissionAuthorized(ctx context.Context, actor authz.Actor, id string) (Submission, Assignment, error) {
	s, err := svc.repo.GetSubmissionByID(ctx, id)
	if err != nil {
		if err == ErrSubmissionNotFound {
			return Submission{}, Assignment{}, trapNotFound(err, actor)
		}
		return Submission{}, Assignment{}, err
	}
	a, err := svc.repo.GetAssignmentByID(ctx, s.AssignmentID)
	if err != nil {
		return Submission{}, Assignment{}, err
	}
	if s.UserID != actor.ID {
		if _, err = svc.authorizeCourse(ctx, actor, authz.ActionGrade, a.CourseID); err != nil {
			return Submission{}, Assignment{}, err
		}
	}
	return s, a, nil
}

func (svc *Service) GetSubmission(ctx context.Context, actor authz.Actor, id string) (Submission, error) {
	s, a, err := svc.getSubmissionAuthorized(ctx, actor, id)
	if err != nil {
		return Submission{}, err
	}
	s.Late = a.IsLate(s.SubmittedAt)
	return s, nil
}

// SubmissionFor returns the actor's own submission for an assignment.
func (svc *Service) SubmissionFor(ctx context.Context, actor authz.Actor, assignmentID string) (Submission, error) {
	a, err := svc.getAssignmentAuthorized(ctx, actor, authz.ActionReadContent, assignmentID)
	if err != nil {
		return Submission{}, err
	}
	s, err := svc.repo.GetSubmissionForUser(ctx, assignmentID, actor.ID)
	if err != nil {
		return Submission{}, err
	}
	s.Late = a.IsLate(s.SubmittedAt)
	return s, nil
}

// SubmissionsByAssignment lists all submissions for grading.
func (svc *Service) SubmissionsByAssignment(ctx context.Context, actor authz.Actor, assignmentID string) ([]Submission, error) {
	a, err := svc.repo.GetAssignmentByID(ctx, assignmentID)
	if err != nil {
		if err == ErrAssignmentNotFound {
			return nil, trapNotFound(err, actor)
		}
		return nil, err
	}
	if _, err = svc.authorizeCourse(ctx, actor, authz.ActionGrade, a.CourseID); err != nil {
		return nil, err
	}

	subs, err := svc.repo.GetSubmissionsByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		subs[i].Late = a.IsLate(subs[i].SubmittedAt)
	}
	return subs, nil
}

// SubmissionsByUser lists a user's submissions across courses; self or admin.
func (svc *Service) SubmissionsByUser(ctx context.Context, actor authz.Actor, userID string) ([]Submission, error) {
	if actor.ID != userID && !actor.IsAdmin() {
		return nil, authz.ErrUnauthorized
	}
	return svc.repo.GetSubmissionsByUser(ctx, userID)
}

// Grade scores the submission and moves it to `graded`.
func (svc *Service) Grade(ctx context.Context, actor authz.Actor, id string, gs GradeSubmission) (Submission, error) {
	s, err := svc.repo.GetSubmissionByID(ctx, id)
	if err != nil {
		if err == ErrSubmissionNotFound {
			return Submission{}, trapNotFound(err, actor)
		}
		return Submission{}, err
	}
	a, err := svc.repo.GetAssignmentByID(ctx, s.AssignmentID)
	if err != nil {
		return Submission{}, err
	}
	if _, err = svc.authorizeCourse(ctx, actor, authz.ActionGrade, a.CourseID); err != nil {
		return Submission{}, err
	}

	s, err = svc.repo.GradeSubmission(ctx, id, gs.Score, gs.Feedback)
	if err != nil {
		return Submission{}, err
	}
	s.Late = a.IsLate(s.SubmittedAt)
	return s, nil
}

// Return hands a graded submission back to the student.
// `returned` is only reachable from `graded`.
func (svc *Service) Return(ctx context.Context, actor authz.Actor, id string) (Submission, error) {
	s, err := svc.repo.GetSubmissionByID(ctx, id)
	if err != nil {
		if err == ErrSubmissionNotFound {
			return Submission{}, trapNotFound(err, actor)
		}
		return Submission{}, err
	}
	a, err := svc.repo.GetAssignmentByID(ctx, s.AssignmentID)
	if err != nil {
		return Submission{}, err
	}
	if _, err = svc.authorizeCourse(ctx, actor, authz.ActionGrade, a.CourseID); err != nil {
		return Submission{}, err
	}
	if s.Status != SubmissionGraded {
		return Submission{}, ErrNotGraded
	}

	s, err = svc.repo.ReturnSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	s.Late = a.IsLate(s.SubmittedAt)
	return s, nil
}
