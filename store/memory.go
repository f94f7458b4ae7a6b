package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/plantavida/treefund-go/models"
)

// Memory is an in-memory Store with the same concurrency contract as the
// Mongo implementation (version CAS on projects, status CAS on work orders).
// Used by tests and ephemeral environments.
type Memory struct {
	mu            sync.Mutex
	projects      map[primitive.ObjectID]models.CollaborativeProject
	contributions map[primitive.ObjectID][]models.Contribution
	workorders    map[primitive.ObjectID]models.WorkOrder
	history       map[primitive.ObjectID][]models.StatusHistoryEntry
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		projects:      make(map[primitive.ObjectID]models.CollaborativeProject),
		contributions: make(map[primitive.ObjectID][]models.Contribution),
		workorders:    make(map[primitive.ObjectID]models.WorkOrder),
		history:       make(map[primitive.ObjectID][]models.StatusHistoryEntry),
	}
}

func (m *Memory) InsertProject(ctx context.Context, p *models.CollaborativeProject) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Mirror the partial unique index the Mongo store carries.
	if p.CreatorType == models.CreatorTypeIndividual {
		for _, other := range m.projects {
			if other.CreatorID == p.CreatorID &&
				(other.Status == models.ProjectStatusActive || other.Status == models.ProjectStatusCompleted) {
				return ErrDuplicate
			}
		}
	}

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.projects[p.ID] = *p
	return nil
}

func (m *Memory) DeleteProject(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.projects, id)
	delete(m.contributions, id)
	return nil
}

func (m *Memory) GetProject(ctx context.Context, id primitive.ObjectID) (*models.CollaborativeProject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) ListProjects(ctx context.Context, status string) ([]models.CollaborativeProject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CollaborativeProject
	for _, p := range m.projects {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CountProjectsByCreator(ctx context.Context, creatorID primitive.ObjectID, statuses []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.projects {
		if p.CreatorID != creatorID {
			continue
		}
		for _, s := range statuses {
			if p.Status == s {
				n++
				break
			}
		}
	}
	return n, nil
}

func (m *Memory) ApplyContribution(ctx context.Context, projectID primitive.ObjectID, expectedVersion int64, c *models.Contribution, newAmount int64, newStatus string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[projectID]
	if !ok {
		return ErrNotFound
	}
	if p.Version != expectedVersion {
		return ErrVersionConflict
	}

	p.CurrentAmount = newAmount
	p.Status = newStatus
	p.Version++
	p.UpdatedAt = c.CreatedAt
	m.projects[projectID] = p

	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	m.contributions[projectID] = append(m.contributions[projectID], *c)
	return nil
}

func (m *Memory) CancelProject(ctx context.Context, id primitive.ObjectID) (*models.CollaborativeProject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Status != models.ProjectStatusActive {
		return nil, ErrStatusConflict
	}

	p.Status = models.ProjectStatusCancelled
	p.Version++
	p.UpdatedAt = time.Now()
	m.projects[id] = p
	return &p, nil
}

func (m *Memory) ListContributions(ctx context.Context, projectID primitive.ObjectID) ([]models.Contribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.Contribution(nil), m.contributions[projectID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CountContributors(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[primitive.ObjectID]bool)
	for _, c := range m.contributions[projectID] {
		seen[c.ContributorID] = true
	}
	return int64(len(seen)), nil
}

func (m *Memory) InsertWorkOrder(ctx context.Context, w *models.WorkOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.ID.IsZero() {
		w.ID = primitive.NewObjectID()
	}
	m.workorders[w.ID] = *w
	return nil
}

func (m *Memory) GetWorkOrder(ctx context.Context, id primitive.ObjectID) (*models.WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workorders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &w, nil
}

func (m *Memory) UpdateWorkOrderStatus(ctx context.Context, id primitive.ObjectID, expectedStatus string, w *models.WorkOrder, entry *models.StatusHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.workorders[id]
	if !ok {
		return ErrNotFound
	}
	if cur.Status != expectedStatus {
		return ErrStatusConflict
	}

	cur.Status = w.Status
	cur.UpdatedAt = w.UpdatedAt
	if w.CompletedAt != nil {
		cur.CompletedAt = w.CompletedAt
	}
	if w.Actual != nil {
		cur.Actual = w.Actual
	}
	m.workorders[id] = cur

	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	m.history[id] = append(m.history[id], *entry)
	return nil
}

func (m *Memory) History(ctx context.Context, workOrderID primitive.ObjectID) ([]models.StatusHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.StatusHistoryEntry(nil), m.history[workOrderID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
