package coursework

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core/authz"
)

func (svc *Service) CreateMaterial(ctx context.Context, actor authz.Actor, courseID string, nm NewMaterial) (Material, error) {
	if _, err := svc.authorizeCourse(ctx, actor, authz.ActionManageCoursework, courseID); err != nil {
		return Material{}, err
	}

	now := time.Now().UTC()
	m := Material{
		CourseID:    courseID,
		Title:       nm.Title,
		Description: nm.Description,
		Type:        nm.Type,
		ContentURL:  nm.ContentURL,
		FilePath:    nm.FilePath,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateMaterial(ctx, m)
}

func (svc *Service) getMaterialAuthorized(ctx context.Context, actor authz.Actor, action authz.Action, id string) (Material, error) {
	m, err := svc.repo.GetMaterialByID(ctx, id)
	if err != nil {
		if err == ErrMaterialNotFound {
			return Material{}, trapNotFound(err, actor)
		}
		return Material{}, err
	}
	if _, err = svc.authorizeCourse(ctx, actor, action, m.CourseID); err != nil {
		return Material{}, err
	}
	return m, nil
}

func (svc *Service) GetMaterial(ctx context.Context, actor authz.Actor, id string) (Material, error) {
	return svc.getMaterialAuthorized(ctx, actor, authz.ActionReadContent, id)
}

func (svc *Service) MaterialsByCourse(ctx context.Context, actor authz.Actor, courseID string) ([]Material, error) {
	if _, err := svc.authorizeCourse(ctx, actor, authz.ActionReadContent, courseID); err != nil {
		return nil, err
	}
	return svc.repo.GetMaterialsByCourse(ctx, courseID)
}

func (svc *Service) UpdateMaterial(ctx context.Context, actor authz.Actor, id string, um UpdateMaterial) (Material, error) {
	if _, err := svc.getMaterialAuthorized(ctx, actor, authz.ActionManageCoursework, id); err != nil {
		return Material{}, err
	}

	m := Material{
		ID:          id,
		Title:       um.Title,
		Description: um.Description,
		Type:        um.Type,
		ContentURL:  um.ContentURL,
		FilePath:    um.FilePath,
		UpdatedAt:   time.Now().UTC(),
	}
	return svc.repo.UpdateMaterial(ctx, m)
}

func (svc *Service) DeleteMaterial(ctx context.Context, actor authz.Actor, id string) error {
	if _, err := svc.getMaterialAuthorized(ctx, actor, authz.ActionManageCoursework, id); err != nil {
		return err
	}
	return svc.repo.DeleteMaterialByID(ctx, id)
}
