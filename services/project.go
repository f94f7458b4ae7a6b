package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/plantavida/treefund-go/models"
	store "github.com/plantavida/treefund-go/store"
)

// ProjectInput is the data needed to open a collaborative project.
type ProjectInput struct {
	TreeName            string          `json:"tree_name"`
	TreeSpecies         string          `json:"tree_species"`
	TargetAmount        int64           `json:"target_amount"`
	Location            models.Location `json:"location"`
	InitialContribution int64           `json:"initial_contribution"`
	PaymentMethod       string          `json:"payment_method"`
}

// ProjectSnapshot pairs a project with its contributor count for reads.
type ProjectSnapshot struct {
	Project           *models.CollaborativeProject `json:"project"`
	Percentage        float64                      `json:"percentage"`
	Remaining         int64                        `json:"remaining"`
	TotalContributors int64                        `json:"total_contributors"`
}

// ContributorEntry is one row of the public contributor list.
type ContributorEntry struct {
	ContributorName   string    `json:"contributor_name"`
	Amount            int64     `json:"amount"`
	Message           string    `json:"message,omitempty"`
	ContributionDate  time.Time `json:"contribution_date"`
	PercentageOfTotal float64   `json:"percentage_of_total"`
}

// ProjectService handles project lifecycle and read queries. Funding writes
// are delegated to the ledger.
type ProjectService struct {
	store  store.ProjectStore
	policy *ProjectPermissionPolicy
	ledger *LedgerService
	now    func() time.Time
}

func NewProjectService(s store.ProjectStore, policy *ProjectPermissionPolicy, ledger *LedgerService) *ProjectService {
	return &ProjectService{store: s, policy: policy, ledger: ledger, now: time.Now}
}

// CreateProject applies the permission policy, validates the opening
// contribution against the creator-type minimum, then inserts the project
// and records the initial contribution through the ledger.
func (s *ProjectService) CreateProject(ctx context.Context, creatorID primitive.ObjectID, creatorType, creatorName, creatorEmail string, in ProjectInput) (*ContributionResult, error) {
	perm, err := s.policy.CanCreate(ctx, creatorID, creatorType)
	if err != nil {
		return nil, err
	}
	if !perm.CanCreate {
		return nil, permissionErr("%s", perm.Reason)
	}

	if err := validateProjectInput(creatorType, in); err != nil {
		return nil, err
	}

	now := s.now()
	project := &models.CollaborativeProject{
		ID:           primitive.NewObjectID(),
		TreeName:     strings.TrimSpace(in.TreeName),
		TreeSpecies:  strings.TrimSpace(in.TreeSpecies),
		TargetAmount: in.TargetAmount,
		Status:       models.ProjectStatusActive,
		CreatorType:  creatorType,
		CreatorID:    creatorID,
		CreatorName:  creatorName,
		CreatorEmail: creatorEmail,
		Location:     in.Location,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.InsertProject(ctx, project); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// A concurrent create by the same individual won the insert.
			return nil, permissionErr("already has a project")
		}
		return nil, err
	}

	result, err := s.ledger.RecordContribution(ctx, project.ID, creatorID, creatorName, ContributionInput{
		Amount:        in.InitialContribution,
		PaymentMethod: in.PaymentMethod,
	})
	if err != nil {
		// Unwind the insert so a failed creation leaves no orphan project
		// and does not consume the individual's lifetime slot.
		if delErr := s.store.DeleteProject(ctx, project.ID); delErr != nil {
			log.Printf("rollback of project %s failed: %v", project.ID.Hex(), delErr)
		}
		return nil, err
	}
	return result, nil
}

func (s *ProjectService) GetProject(ctx context.Context, id primitive.ObjectID) (*ProjectSnapshot, error) {
	p, err := s.store.GetProject(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("project %s not found", id.Hex())
		return nil, notFoundErr("project %s not found", id.Hex())
	}
	if err != nil {
		return nil, err
	}

	n, err := s.store.CountContributors(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ProjectSnapshot{
		Project:           p,
		Percentage:        p.Percentage(),
		Remaining:         p.Remaining(),
		TotalContributors: n,
	}, nil
}

func (s *ProjectService) ListProjects(ctx context.Context, status string) ([]models.CollaborativeProject, error) {
	return s.store.ListProjects(ctx, status)
}

// CancelProject lets the creator withdraw an active project. Completed and
// already-cancelled projects stay as they are.
func (s *ProjectService) CancelProject(ctx context.Context, id, actorID primitive.ObjectID) (*models.CollaborativeProject, error) {
	p, err := s.store.GetProject(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundErr("project %s not found", id.Hex())
	}
	if err != nil {
		return nil, err
	}
	if p.CreatorID != actorID {
		return nil, permissionErr("only the project creator may cancel it")
	}

	cancelled, err := s.store.CancelProject(ctx, id)
	if errors.Is(err, store.ErrStatusConflict) {
		log.Printf("cancel rejected: project %s is %s", id.Hex(), p.Status)
		return nil, stateErr("project is not active")
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundErr("project %s not found", id.Hex())
	}
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// ListContributors returns the public contributor list, oldest first, each
// row carrying its share of the funds raised so far.
func (s *ProjectService) ListContributors(ctx context.Context, projectID primitive.ObjectID) ([]ContributorEntry, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundErr("project %s not found", projectID.Hex())
	}
	if err != nil {
		return nil, err
	}

	contributions, err := s.store.ListContributions(ctx, projectID)
	if err != nil {
		return nil, err
	}

	entries := make([]ContributorEntry, 0, len(contributions))
	for _, c := range contributions {
		entries = append(entries, ContributorEntry{
			ContributorName:   c.ContributorName,
			Amount:            c.Amount,
			Message:           c.Message,
			ContributionDate:  c.CreatedAt,
			PercentageOfTotal: models.FundingPercentage(c.Amount, p.CurrentAmount),
		})
	}
	return entries, nil
}

func validateProjectInput(creatorType string, in ProjectInput) error {
	if strings.TrimSpace(in.TreeName) == "" {
		return validationErr("tree_name is required")
	}
	if strings.TrimSpace(in.TreeSpecies) == "" {
		return validationErr("tree_species is required")
	}
	if in.TargetAmount <= 0 {
		return validationErr("target_amount must be positive")
	}
	if strings.TrimSpace(in.Location.Country) == "" {
		return validationErr("location country is required")
	}
	// The ledger checks this too, but only after the project row exists;
	// catching it here keeps a rejected creation free of side effects.
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return validationErr("payment_method is required")
	}
	if in.InitialContribution < models.MinContributionAmount {
		return validationErr("initial contribution is below the minimum of %d", models.MinContributionAmount)
	}
	if in.InitialContribution > in.TargetAmount {
		return validationErr("initial contribution exceeds the target amount")
	}
	if min := models.MinInitialContribution(creatorType, in.TargetAmount); in.InitialContribution < min {
		return validationErr("initial contribution must be at least %d%% of the target (%d)",
			models.MinInitialPercent(creatorType), min)
	}
	return nil
}
