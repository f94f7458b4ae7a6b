package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/plantavida/treefund-go/models"
	store "github.com/plantavida/treefund-go/store"
)

// CreatePermission is the policy verdict for opening a new project.
type CreatePermission struct {
	CanCreate            bool   `json:"can_create"`
	Reason               string `json:"reason,omitempty"`
	UserType             string `json:"user_type"`
	MinInitialPercentage int64  `json:"min_initial_percentage"`
}

// ProjectPermissionPolicy decides whether an actor may open a collaborative
// project. Individuals hold at most one lifetime project (active or
// completed; a cancelled one does not count), companies have no limit.
type ProjectPermissionPolicy struct {
	store store.ProjectStore
}

func NewProjectPermissionPolicy(s store.ProjectStore) *ProjectPermissionPolicy {
	return &ProjectPermissionPolicy{store: s}
}

func (p *ProjectPermissionPolicy) CanCreate(ctx context.Context, actorID primitive.ObjectID, actorType string) (*CreatePermission, error) {
	if actorType != models.CreatorTypeIndividual && actorType != models.CreatorTypeCompany {
		return nil, validationErr("unknown creator type %q", actorType)
	}

	perm := &CreatePermission{
		UserType:             actorType,
		MinInitialPercentage: models.MinInitialPercent(actorType),
	}

	if actorType == models.CreatorTypeCompany {
		perm.CanCreate = true
		return perm, nil
	}

	n, err := p.store.CountProjectsByCreator(ctx, actorID,
		[]string{models.ProjectStatusActive, models.ProjectStatusCompleted})
	if err != nil {
		return nil, err
	}
	if n > 0 {
		perm.Reason = "already has a project"
		return perm, nil
	}

	perm.CanCreate = true
	return perm, nil
}
