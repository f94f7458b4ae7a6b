// Package store persists projects, contributions, work orders and their
// status history. The Mongo implementation backs the service; the memory
// implementation backs tests.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/plantavida/treefund-go/models"
)

var (
	// ErrNotFound indicates the referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates a concurrent writer advanced the project
	// row past the version the caller validated against.
	ErrVersionConflict = errors.New("version conflict")

	// ErrStatusConflict indicates the row left the expected status before
	// the write landed.
	ErrStatusConflict = errors.New("status conflict")

	// ErrDuplicate indicates a uniqueness constraint rejected the insert.
	ErrDuplicate = errors.New("duplicate")
)

// ProjectStore is the persistence contract for the funding side.
type ProjectStore interface {
	// InsertProject adds a project row. Returns ErrDuplicate when the
	// creator is an individual who already holds an active or completed
	// project.
	InsertProject(ctx context.Context, p *models.CollaborativeProject) error

	// DeleteProject removes a project row. Used to unwind a creation whose
	// opening contribution did not land.
	DeleteProject(ctx context.Context, id primitive.ObjectID) error

	GetProject(ctx context.Context, id primitive.ObjectID) (*models.CollaborativeProject, error)
	ListProjects(ctx context.Context, status string) ([]models.CollaborativeProject, error)

	// CountProjectsByCreator counts the creator's projects currently in one
	// of the given statuses.
	CountProjectsByCreator(ctx context.Context, creatorID primitive.ObjectID, statuses []string) (int64, error)

	// ApplyContribution appends the contribution row and moves the project
	// row to newAmount/newStatus in one transaction, conditioned on the row
	// still carrying expectedVersion. Returns ErrVersionConflict otherwise;
	// on any error nothing is written.
	ApplyContribution(ctx context.Context, projectID primitive.ObjectID, expectedVersion int64, c *models.Contribution, newAmount int64, newStatus string) error

	// CancelProject flips an active project to cancelled. ErrStatusConflict
	// when the project is no longer active.
	CancelProject(ctx context.Context, id primitive.ObjectID) (*models.CollaborativeProject, error)

	ListContributions(ctx context.Context, projectID primitive.ObjectID) ([]models.Contribution, error)
	CountContributors(ctx context.Context, projectID primitive.ObjectID) (int64, error)
}

// WorkOrderStore is the persistence contract for the fulfillment side.
type WorkOrderStore interface {
	InsertWorkOrder(ctx context.Context, w *models.WorkOrder) error
	GetWorkOrder(ctx context.Context, id primitive.ObjectID) (*models.WorkOrder, error)

	// UpdateWorkOrderStatus writes the order's new status (plus completion
	// time and confirmed coordinates when set) and appends the history entry
	// in one transaction, conditioned on the row still being in
	// expectedStatus. Returns ErrStatusConflict otherwise.
	UpdateWorkOrderStatus(ctx context.Context, id primitive.ObjectID, expectedStatus string, w *models.WorkOrder, entry *models.StatusHistoryEntry) error

	// History returns the order's transitions, created_at ascending.
	History(ctx context.Context, workOrderID primitive.ObjectID) ([]models.StatusHistoryEntry, error)
}

// Store is everything the services need from persistence.
type Store interface {
	ProjectStore
	WorkOrderStore
}
