package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Fulfillment statuses, forward order. A tree moves through these from
// nursery preparation to confirmed planting.
const (
	StatusViveroPreparando  = "vivero_preparando"
	StatusPlantaLista       = "planta_lista"
	StatusPlantadorAsignado = "plantador_asignado"
	StatusRetirandoVivero   = "retirando_vivero"
	StatusPlantadorEnCamino = "plantador_en_camino"
	StatusPlantando         = "plantando"
	StatusPlantada          = "plantada"

	// StatusCancelada is absorbing: reachable from any non-terminal status,
	// no transitions out.
	StatusCancelada = "cancelada"
)

// WorkOrderSteps lists the forward fulfillment steps in order.
var WorkOrderSteps = []string{
	StatusViveroPreparando,
	StatusPlantaLista,
	StatusPlantadorAsignado,
	StatusRetirandoVivero,
	StatusPlantadorEnCamino,
	StatusPlantando,
	StatusPlantada,
}

var (
	ErrUnknownStatus      = errors.New("unknown work order status")
	ErrBackwardTransition = errors.New("backward transition")
	ErrTerminalStatus     = errors.New("terminal")
)

// StatusIndex returns the position of a status in the forward step list,
// or -1 for cancelada and unknown codes.
func StatusIndex(status string) int {
	for i, s := range WorkOrderSteps {
		if s == status {
			return i
		}
	}
	return -1
}

// IsTerminalStatus reports whether no further transition is permitted.
func IsTerminalStatus(status string) bool {
	return status == StatusPlantada || status == StatusCancelada
}

// ValidateTransition checks whether a work order may move from current to
// target. A nil return means the transition is legal. Requesting the current
// status again is legal but a no-op; callers should not record history for it.
func ValidateTransition(current, target string) error {
	if target != StatusCancelada && StatusIndex(target) < 0 {
		return ErrUnknownStatus
	}
	if target == current {
		return nil // idempotent no-op, terminal or not
	}
	if IsTerminalStatus(current) {
		return ErrTerminalStatus
	}
	if target == StatusCancelada {
		return nil
	}
	if StatusIndex(target) < StatusIndex(current) {
		return ErrBackwardTransition
	}
	return nil
}

// Per-step display states for the fulfillment timeline.
const (
	StepCompleted = "completed"
	StepCurrent   = "current"
	StepPending   = "pending"
	StepCancelled = "cancelled"
)

// StepState reports how step stepIndex renders for an order currently in
// currentStatus. Once an order is cancelled the step sequence no longer
// applies and every step reads cancelled.
func StepState(currentStatus string, stepIndex int) string {
	if currentStatus == StatusCancelada {
		return StepCancelled
	}
	cur := StatusIndex(currentStatus)
	switch {
	case stepIndex < cur:
		return StepCompleted
	case stepIndex == cur:
		return StepCurrent
	default:
		return StepPending
	}
}

type WorkOrder struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	TreeID    primitive.ObjectID  `bson:"tree_id" json:"tree_id"`
	Status    string              `bson:"status" json:"status"`
	PlanterID *primitive.ObjectID `bson:"planter_id,omitempty" json:"planter_id,omitempty"`
	NurseryID *primitive.ObjectID `bson:"nursery_id,omitempty" json:"nursery_id,omitempty"`

	// Planned is where the tree is meant to go; Actual is recorded on plant
	// confirmation and takes priority for display once set.
	Planned *Coordinates `bson:"planned_coordinates,omitempty" json:"planned_coordinates,omitempty"`
	Actual  *Coordinates `bson:"actual_coordinates,omitempty" json:"actual_coordinates,omitempty"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// DisplayCoordinates returns the confirmed planting spot when available,
// otherwise the planned one.
func (w *WorkOrder) DisplayCoordinates() *Coordinates {
	if w.Actual != nil {
		return w.Actual
	}
	return w.Planned
}

// StatusHistoryEntry is one row of a work order's audit trail, one per
// transition.
type StatusHistoryEntry struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkOrderID primitive.ObjectID `bson:"work_order_id" json:"work_order_id"`
	OldStatus   string             `bson:"old_status" json:"old_status"`
	NewStatus   string             `bson:"new_status" json:"new_status"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
