package coursework

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core/authz"
)

// getAssignmentAuthorized resolves the assignment, its course, and checks the
// action; non-members learn nothing about existence.
func (svc *Service) getAssignmentAuthorized(ctx context.Context, actor authz.Actor, action authz.Action, id string) (Assignment, error) {
	a, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		if err == ErrAssignmentNotFound {
			return Assignment{}, trapNotFound(err, actor)
		}
		return Assignment{}, err
	}
	if _, err = svc.authorizeCourse(ctx, actor, action, a.CourseID); err != nil {
		return Assignment{}, err
	}
	return a, nil
}

func (svc *Service) CreateAssignment(ctx context.Context, actor authz.Actor, courseID string, na NewAssignment) (Assignment, error) {
	if _, err := svc.authorizeCourse(ctx, actor, authz.ActionManageCoursework, courseID); err != nil {
		return Assignment{}, err
	}

	now := time.Now().UTC()
	a := Assignment{
		CourseID:            courseID,
		Title:               na.Title,
		Description:         na.Description,
		PointsPossible:      na.PointsPossible,
		DueDate:             na.DueDate.UTC(),
		AllowLateSubmission: na.AllowLateSubmission,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	return svc.repo.CreateAssignment(ctx, a)
}

func (svc *Service) GetAssignment(ctx context.Context, actor authz.Actor, id string) (Assignment, error) {
	return svc.getAssignmentAuthorized(ctx, actor, authz.ActionReadContent, id)
}

func (svc *Service) AssignmentsByCourse(ctx context.Context, actor authz.Actor, courseID string) ([]Assignment, error) {
	if _, err := svc.authorizeCourse(ctx, actor, authz.ActionReadContent, courseID); err != nil {
		return nil, err
	}
	return svc.repo.GetAssignmentsByCourse(ctx, courseID)
}

func (svc *Service) UpdateAssignment(ctx context.Context, actor authz.Actor, id string, ua UpdateAssignment) (Assignment, error) {
	orig, err := svc.getAssignmentAuthorized(ctx, actor, authz.ActionManageCoursework, id)
	if err != nil {
		return Assignment{}, err
	}
	if err = ua.Validate(orig); err != nil {
		return Assignment{}, err
	}

	a := Assignment{
		ID:          id,
		Title:       ua.Title,
		Description: ua.Description,
		UpdatedAt:   time.Now().UTC(),
	}
	if ua.PointsPossible != nil {
		a.PointsPossible = *ua.PointsPossible
	} else {
		a.PointsPossible = orig.PointsPossible
	}
	if ua.DueDate != nil {
		a.DueDate = ua.DueDate.UTC()
	} else {
		a.DueDate = orig.DueDate
	}
	return svc.repo.UpdateAssignment(ctx, a, ua.AllowLateSubmission)
}

func (svc *Service) DeleteAssignment(ctx context.Context, actor authz.Actor, id string) error {
	if _, err := svc.getAssignmentAuthorized(ctx, actor, authz.ActionManageCoursework, id); err != nil {
		return err
	}
	return svc.repo.DeleteAssignmentByID(ctx, id)
}
