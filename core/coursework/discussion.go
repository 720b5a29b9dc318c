package coursework

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core/authz"
	"github.com/trezcool/darasa/core/course"
)

func (svc *Service) CreateDiscussion(ctx context.Context, actor authz.Actor, courseID string, nd NewDiscussion) (Discussion, error) {
	if _, err := svc.authorizeCourse(ctx, actor, authz.ActionManageCoursework, courseID); err != nil {
		return Discussion{}, err
	}

	now := time.Now().UTC()
	d := Discussion{
		CourseID:    courseID,
		CreatorID:   actor.ID,
		Title:       nd.Title,
		Description: nd.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateDiscussion(ctx, d)
}

func (svc *Service) getDiscussion(ctx context.Context, actor authz.Actor, id string) (Discussion, course.Course, error) {
	d, err := svc.repo.GetDiscussionByID(ctx, id)
	if err != nil {
		if err == ErrDiscussionNotFound {
			return Discussion{}, course.Course{}, trapNotFound(err, actor)
		}
		return Discussion{}, course.Course{}, err
	}
	crs, err := svc.courses.GetCourseByID(ctx, d.CourseID)
	if err != nil {
		if err == course.ErrNotFound && !actor.IsAdmin() {
			return Discussion{}, course.Course{}, authz.ErrUnauthorized
		}
		return Discussion{}, course.Course{}, err
	}
	return d, crs, nil
}

func (svc *Service) GetDiscussion(ctx context.Context, actor authz.Actor, id string) (Discussion, error) {
	d, crs, err := svc.getDiscussion(ctx, actor, id)
	if err != nil {
		return Discussion{}, err
	}
	if err = svc.policy.Authorize(ctx, actor, authz.ActionReadContent, course.ResourceFor(crs)); err != nil {
		return Discussion{}, err
	}
	return d, nil
}

func (svc *Service) DiscussionsByCourse(ctx context.Context, actor authz.Actor, courseID string) ([]Discussion, error) {
	if _, err := svc.authorizeCourse(ctx, actor, authz.ActionReadContent, courseID); err != nil {
		return nil, err
	}
	return svc.repo.GetDiscussionsByCourse(ctx, courseID)
}

// UpdateDiscussion is open to the discussion's creator and to the course's
// active teachers.
func (svc *Service) UpdateDiscussion(ctx context.Context, actor authz.Actor, id string, ud UpdateDiscussion) (Discussion, error) {
	d, crs, err := svc.getDiscussion(ctx, actor, id)
	if err != nil {
		return Discussion{}, err
	}
	res := authz.Resource{CourseID: crs.ID, CreatorID: d.CreatorID, Archived: crs.IsArchived}
	if err = svc.policy.Authorize(ctx, actor, authz.ActionEditContent, res); err != nil {
		return Discussion{}, err
	}

	d = Discussion{
		ID:          id,
		Title:       ud.Title,
		Description: ud.Description,
		UpdatedAt:   time.Now().UTC(),
	}
	return svc.repo.UpdateDiscussion(ctx, d)
}

// DeleteDiscussion removes the discussion and all its comments.
func (svc *Service) DeleteDiscussion(ctx context.Context, actor authz.Actor, id string) error {
	d, crs, err := svc.getDiscussion(ctx, actor, id)
	if err != nil {
		return err
	}
	res := authz.Resource{CourseID: crs.ID, CreatorID: d.CreatorID, Archived: crs.IsArchived}
	if err = svc.policy.Authorize(ctx, actor, authz.ActionEditContent, res); err != nil {
		return err
	}
	return svc.repo.DeleteDiscussionByID(ctx, id)
}

// CreateComment posts a comment, optionally as a reply. Any active member may
// post; archived courses are read-only.
func (svc *Service) CreateComment(ctx context.Context, actor authz.Actor, discussionID string, nc NewComment) (Comment, error) {
	_, crs, err := svc.getDiscussion(ctx, actor, discussionID)
	if err != nil {
		return Comment{}, err
	}
	if err = svc.policy.Authorize(ctx, actor, authz.ActionReadContent, course.ResourceFor(crs)); err != nil {
		return Comment{}, err
	}
	if crs.IsArchived {
		return Comment{}, authz.ErrCourseArchived
	}
	if nc.ParentID != "" {
		parent, err := svc.repo.GetCommentByID(ctx, nc.ParentID)
		if err != nil {
			if err == ErrCommentNotFound {
				return Comment{}, trapNotFound(err, actor)
			}
			return Comment{}, err
		}
		if parent.DiscussionID != discussionID {
			return Comment{}, ErrParentMismatch
		}
	}

	c := Comment{
		DiscussionID: discussionID,
		UserID:       actor.ID,
		ParentID:     nc.ParentID,
		Content:      nc.Content,
		PostedAt:     time.Now().UTC(),
	}
	return svc.repo.CreateComment(ctx, c)
}

// CommentTree returns the discussion's comments as a forest: top-level
// comments with their replies nested, ordered by posting time throughout.
func (svc *Service) CommentTree(ctx context.Context, actor authz.Actor, discussionID string) ([]Comment, error) {
	_, crs, err := svc.getDiscussion(ctx, actor, discussionID)
	if err != nil {
		return nil, err
	}
	if err = svc.policy.Authorize(ctx, actor, authz.ActionReadContent, course.ResourceFor(crs)); err != nil {
		return nil, err
	}

	comments, err := svc.repo.GetCommentsByDiscussion(ctx, discussionID)
	if err != nil {
		return nil, err
	}
	return BuildCommentTree(comments), nil
}

func (svc *Service) getCommentAuthorized(ctx context.Context, actor authz.Actor, id string) (Comment, error) {
	c, err := svc.repo.GetCommentByID(ctx, id)
	if err != nil {
		if err == ErrCommentNotFound {
			return Comment{}, trapNotFound(err, actor)
		}
		return Comment{}, err
	}
	_, crs, err := svc.getDiscussion(ctx, actor, c.DiscussionID)
	if err != nil {
		return Comment{}, err
	}
	res := authz.Resource{CourseID: crs.ID, CreatorID: c.UserID, Archived: crs.IsArchived}
	if err = svc.policy.Authorize(ctx, actor, authz.ActionEditContent, res); err != nil {
		return Comment{}, err
	}
	return c, nil
}

// UpdateComment lets the author, the course's teachers or an admin edit.
func (svc *Service) UpdateComment(ctx context.Context, actor authz.Actor, id string, uc UpdateComment) (Comment, error) {
	c, err := svc.getCommentAuthorized(ctx, actor, id)
	if err != nil {
		return Comment{}, err
	}
	c.Content = uc.Content
	return svc.repo.UpdateComment(ctx, c)
}

// DeleteComment removes the comment along with all of its replies.
func (svc *Service) DeleteComment(ctx context.Context, actor authz.Actor, id string) error {
	if _, err := svc.getCommentAuthorized(ctx, actor, id); err != nil {
		return err
	}
	return svc.repo.DeleteCommentByID(ctx, id)
}
