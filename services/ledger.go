package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/plantavida/treefund-go/models"
	store "github.com/plantavida/treefund-go/store"
)

// ContributionInput is a contribution request, validated once here at the
// service boundary.
type ContributionInput struct {
	Amount        int64  `json:"amount"`
	Message       string `json:"message,omitempty"`
	PaymentMethod string `json:"payment_method"`
}

// ContributionResult is the authoritative post-state of a recorded
// contribution. Callers must display these values, never ones computed
// client-side.
type ContributionResult struct {
	Contribution     *models.Contribution         `json:"contribution"`
	Project          *models.CollaborativeProject `json:"project"`
	NewCurrentAmount int64                        `json:"new_current_amount"`
	NewPercentage    float64                      `json:"new_percentage"`
	ProjectCompleted bool                         `json:"project_completed"`
}

// LedgerService appends contributions and keeps the project aggregate
// consistent with the ledger. All writes to current_amount and funding
// status go through here.
type LedgerService struct {
	store store.ProjectStore
	now   func() time.Time

	// OnCompleted runs after a contribution fills the target. Optional.
	OnCompleted func(p *models.CollaborativeProject)
}

func NewLedgerService(s store.ProjectStore) *LedgerService {
	return &LedgerService{store: s, now: time.Now}
}

// RecordContribution validates the pledge against the current project
// snapshot and applies ledger row plus aggregate update atomically. A
// version conflict (concurrent contribution to the same project) triggers
// exactly one re-validation against the freshly committed state before a
// conflict is surfaced.
func (s *LedgerService) RecordContribution(ctx context.Context, projectID, contributorID primitive.ObjectID, contributorName string, in ContributionInput) (*ContributionResult, error) {
	if err := validateContributionInput(in); err != nil {
		return nil, err
	}

	result, err := s.tryRecord(ctx, projectID, contributorID, contributorName, in)
	if errors.Is(err, store.ErrVersionConflict) {
		result, err = s.tryRecord(ctx, projectID, contributorID, contributorName, in)
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, conflictErr("project was updated concurrently, retry with fresh state")
		}
	}
	return result, err
}

func (s *LedgerService) tryRecord(ctx context.Context, projectID, contributorID primitive.ObjectID, contributorName string, in ContributionInput) (*ContributionResult, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundErr("project %s not found", projectID.Hex())
	}
	if err != nil {
		return nil, err
	}

	if p.Status != models.ProjectStatusActive {
		return nil, stateErr("project is not active")
	}
	if remaining := p.Remaining(); in.Amount > remaining {
		return nil, validationErr("amount exceeds remaining %d", remaining)
	}

	now := s.now()
	contribution := &models.Contribution{
		ID:              primitive.NewObjectID(),
		ProjectID:       projectID,
		ContributorID:   contributorID,
		ContributorName: contributorName,
		Amount:          in.Amount,
		Message:         strings.TrimSpace(in.Message),
		PaymentMethod:   in.PaymentMethod,
		CreatedAt:       now,
	}

	newAmount := p.CurrentAmount + in.Amount
	newStatus := p.Status
	completed := newAmount == p.TargetAmount
	if completed {
		newStatus = models.ProjectStatusCompleted
	}

	if err := s.store.ApplyContribution(ctx, projectID, p.Version, contribution, newAmount, newStatus); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundErr("project %s not found", projectID.Hex())
		}
		return nil, err
	}

	p.CurrentAmount = newAmount
	p.Status = newStatus
	p.Version++
	p.UpdatedAt = now

	if completed && s.OnCompleted != nil {
		s.OnCompleted(p)
	}

	return &ContributionResult{
		Contribution:     contribution,
		Project:          p,
		NewCurrentAmount: newAmount,
		NewPercentage:    p.Percentage(),
		ProjectCompleted: completed,
	}, nil
}

func validateContributionInput(in ContributionInput) error {
	if in.Amount < models.MinContributionAmount {
		return validationErr("amount is below the minimum contribution of %d", models.MinContributionAmount)
	}
	if utf8.RuneCountInString(in.Message) > models.MaxMessageLength {
		return validationErr("message exceeds %d characters", models.MaxMessageLength)
	}
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return validationErr("payment_method is required")
	}
	return nil
}
