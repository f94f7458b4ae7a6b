package services

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/plantavida/treefund-go/models"
	store "github.com/plantavida/treefund-go/store"
)

// WorkOrderInput opens a fulfillment work order for a tree.
type WorkOrderInput struct {
	TreeID    primitive.ObjectID  `json:"tree_id"`
	PlanterID *primitive.ObjectID `json:"planter_id,omitempty"`
	NurseryID *primitive.ObjectID `json:"nursery_id,omitempty"`
	Planned   *models.Coordinates `json:"planned_coordinates,omitempty"`
}

// AdvanceContext carries transition side data. Coordinates are only honored
// on the transition into plantada, where they confirm the planting spot.
type AdvanceContext struct {
	ActualLat *float64 `json:"actual_latitude,omitempty"`
	ActualLng *float64 `json:"actual_longitude,omitempty"`
}

// StepInfo is one row of the fulfillment timeline as displayed to clients.
type StepInfo struct {
	Status    string     `json:"status"`
	State     string     `json:"state"` // completed, current, pending, cancelled
	ReachedAt *time.Time `json:"reached_at,omitempty"`
}

// WorkOrderService linearizes status transitions per work order and keeps
// the history log in step with them.
type WorkOrderService struct {
	store store.WorkOrderStore
	now   func() time.Time
}

func NewWorkOrderService(s store.WorkOrderStore) *WorkOrderService {
	return &WorkOrderService{store: s, now: time.Now}
}

// Create opens a work order in the initial nursery-preparation state. The
// initial state is not a transition, so no history entry is written.
func (s *WorkOrderService) Create(ctx context.Context, in WorkOrderInput) (*models.WorkOrder, error) {
	if in.TreeID.IsZero() {
		return nil, validationErr("tree_id is required")
	}

	now := s.now()
	w := &models.WorkOrder{
		ID:        primitive.NewObjectID(),
		TreeID:    in.TreeID,
		Status:    models.StatusViveroPreparando,
		PlanterID: in.PlanterID,
		NurseryID: in.NurseryID,
		Planned:   in.Planned,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertWorkOrder(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WorkOrderService) Get(ctx context.Context, id primitive.ObjectID) (*models.WorkOrder, error) {
	w, err := s.store.GetWorkOrder(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("work order %s not found", id.Hex())
		return nil, notFoundErr("work order %s not found", id.Hex())
	}
	return w, err
}

// Advance moves the order to target. Backward and post-terminal requests are
// rejected; requesting the current status again is a no-op that returns a
// nil history entry. A concurrent advance that steals the transition is
// detected by the status-conditioned write, re-validated once against the
// fresh state, and rejected under the same rules when it no longer applies.
func (s *WorkOrderService) Advance(ctx context.Context, id primitive.ObjectID, target string, actx *AdvanceContext) (*models.WorkOrder, *models.StatusHistoryEntry, error) {
	w, entry, err := s.tryAdvance(ctx, id, target, actx)
	if errors.Is(err, store.ErrStatusConflict) {
		w, entry, err = s.tryAdvance(ctx, id, target, actx)
		if errors.Is(err, store.ErrStatusConflict) {
			return nil, nil, conflictErr("work order was updated concurrently, retry")
		}
	}
	return w, entry, err
}

func (s *WorkOrderService) tryAdvance(ctx context.Context, id primitive.ObjectID, target string, actx *AdvanceContext) (*models.WorkOrder, *models.StatusHistoryEntry, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if err := models.ValidateTransition(w.Status, target); err != nil {
		log.Printf("work order %s: transition %s -> %s rejected: %v", id.Hex(), w.Status, target, err)
		return nil, nil, stateErr("%v", err)
	}
	if target == w.Status {
		return w, nil, nil
	}

	now := s.now()
	updated := *w
	updated.Status = target
	updated.UpdatedAt = now
	if target == models.StatusPlantada {
		updated.CompletedAt = &now
		if actx != nil && actx.ActualLat != nil && actx.ActualLng != nil {
			updated.Actual = &models.Coordinates{Lat: *actx.ActualLat, Lng: *actx.ActualLng}
		}
	}

	entry := &models.StatusHistoryEntry{
		ID:          primitive.NewObjectID(),
		WorkOrderID: id,
		OldStatus:   w.Status,
		NewStatus:   target,
		CreatedAt:   now,
	}

	if err := s.store.UpdateWorkOrderStatus(ctx, id, w.Status, &updated, entry); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, notFoundErr("work order %s not found", id.Hex())
		}
		return nil, nil, err
	}
	return &updated, entry, nil
}

// Cancel moves the order into the absorbing cancelada state.
func (s *WorkOrderService) Cancel(ctx context.Context, id primitive.ObjectID) (*models.WorkOrder, error) {
	w, _, err := s.Advance(ctx, id, models.StatusCancelada, nil)
	return w, err
}

// History returns the order's transitions in chronological order.
func (s *WorkOrderService) History(ctx context.Context, id primitive.ObjectID) ([]models.StatusHistoryEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.History(ctx, id)
}

// FirstOccurrence returns when the order first entered the given status, or
// nil if it never did. Forward statuses are entered at most once, so first
// match is the step's timeline date.
func (s *WorkOrderService) FirstOccurrence(ctx context.Context, id primitive.ObjectID, statusCode string) (*time.Time, error) {
	entries, err := s.History(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.NewStatus == statusCode {
			t := e.CreatedAt
			return &t, nil
		}
	}
	return nil, nil
}

// Timeline renders the per-step view of an order: each forward step with its
// display state and, where history records it, the date it was reached.
func (s *WorkOrderService) Timeline(ctx context.Context, id primitive.ObjectID) (*models.WorkOrder, []StepInfo, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.store.History(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	reached := make(map[string]time.Time)
	for _, e := range entries {
		if _, ok := reached[e.NewStatus]; !ok {
			reached[e.NewStatus] = e.CreatedAt
		}
	}
	// The initial state is set at creation, not via a transition.
	if _, ok := reached[models.StatusViveroPreparando]; !ok {
		reached[models.StatusViveroPreparando] = w.CreatedAt
	}

	steps := make([]StepInfo, 0, len(models.WorkOrderSteps))
	for i, status := range models.WorkOrderSteps {
		info := StepInfo{Status: status, State: models.StepState(w.Status, i)}
		if t, ok := reached[status]; ok && info.State != models.StepPending {
			at := t
			info.ReachedAt = &at
		}
		steps = append(steps, info)
	}
	return w, steps, nil
}
