package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/plantavida/treefund-go/models"
	store "github.com/plantavida/treefund-go/store"
)

func newProjectService(st *store.Memory) *ProjectService {
	return newProjectServiceWith(st)
}

func newProjectServiceWith(st store.ProjectStore) *ProjectService {
	ledger := NewLedgerService(st)
	ledger.now = testClock()
	svc := NewProjectService(st, NewProjectPermissionPolicy(st), ledger)
	svc.now = testClock()
	return svc
}

func validProjectInput() ProjectInput {
	return ProjectInput{
		TreeName:            "Ahuehuete comunitario",
		TreeSpecies:         "Taxodium mucronatum",
		TargetAmount:        24000,
		Location:            models.Location{Country: "MX", City: "Xalapa", Lat: 19.54, Lng: -96.92},
		InitialContribution: 1200,
		PaymentMethod:       "CARD",
	}
}

func TestCreateProjectIndividual(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := newProjectService(st)
	creator := primitive.NewObjectID()

	res, err := svc.CreateProject(ctx, creator, models.CreatorTypeIndividual, "Ana", "ana@example.com", validProjectInput())
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if res.Project.Status != models.ProjectStatusActive {
		t.Fatalf("expected active project, got %s", res.Project.Status)
	}
	if res.NewCurrentAmount != 1200 {
		t.Fatalf("expected opening contribution of 1200 applied, got %d", res.NewCurrentAmount)
	}
	if res.Contribution.ContributorID != creator {
		t.Fatal("opening contribution must belong to the creator")
	}
	if res.Project.CreatorName != "Ana" {
		t.Fatalf("expected creator name persisted, got %q", res.Project.CreatorName)
	}
	assertLedgerMatchesAggregate(t, st, res.Project.ID)
}

// A rejected creation must leave nothing behind: no project row, and the
// individual's lifetime slot still free.
func TestCreateProjectRejectionLeavesNoProject(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := newProjectService(st)
	creator := primitive.NewObjectID()

	in := validProjectInput()
	in.PaymentMethod = ""

	_, err := svc.CreateProject(ctx, creator, models.CreatorTypeIndividual, "Ana", "ana@example.com", in)
	assertKind(t, err, KindValidation)

	projects, listErr := st.ListProjects(ctx, "")
	if listErr != nil {
		t.Fatalf("list projects: %v", listErr)
	}
	if len(projects) != 0 {
		t.Fatalf("rejected create left %d project row(s) behind", len(projects))
	}

	// The slot was not consumed: a valid retry succeeds.
	if _, err := svc.CreateProject(ctx, creator, models.CreatorTypeIndividual, "Ana", "ana@example.com", validProjectInput()); err != nil {
		t.Fatalf("valid retry after rejection: %v", err)
	}
}

// If the opening contribution fails after the insert, the project row is
// unwound rather than left as an orphan active project.
func TestCreateProjectUnwindsOnLedgerFailure(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	st := &flakyStore{Memory: mem, failures: 1, err: errors.New("write timeout")}
	svc := newProjectServiceWith(st)
	creator := primitive.NewObjectID()

	_, err := svc.CreateProject(ctx, creator, models.CreatorTypeIndividual, "Ana", "ana@example.com", validProjectInput())
	if err == nil {
		t.Fatal("expected the creation to fail")
	}

	projects, listErr := mem.ListProjects(ctx, "")
	if listErr != nil {
		t.Fatalf("list projects: %v", listErr)
	}
	if len(projects) != 0 {
		t.Fatalf("failed create left %d project row(s) behind", len(projects))
	}

	// The rollback freed the lifetime slot, so the retry lands.
	res, err := svc.CreateProject(ctx, creator, models.CreatorTypeIndividual, "Ana", "ana@example.com", validProjectInput())
	if err != nil {
		t.Fatalf("retry after rollback: %v", err)
	}
	assertLedgerMatchesAggregate(t, mem, res.Project.ID)
}

// Two concurrent creates by the same individual must resolve to exactly one
// project; the loser is denied whether it loses at the policy check or at
// the unique insert.
func TestConcurrentCreateProjectSingleWinner(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := newProjectService(st)
	creator := primitive.NewObjectID()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateProject(ctx, creator, models.CreatorTypeIndividual, "Ana", "ana@example.com", validProjectInput())
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assertKind(t, err, KindPermission)
	}
	if ok != 1 {
		t.Fatalf("expected exactly one winner, got %d", ok)
	}

	projects, err := st.ListProjects(ctx, "")
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("expected a single project row, got %d", len(projects))
	}
}

func TestCreateProjectIndividualLifetimeCap(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := newProjectService(st)
	creator := primitive.NewObjectID()

	first, err := svc.CreateProject(ctx, creator, models.CreatorTypeIndividual, "Ana", "ana@example.com", validProjectInput())
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err = svc.CreateProject(ctx, creator, models.CreatorTypeIndividual, "Ana", "ana@example.com", validProjectInput())
	assertKind(t, err, KindPermission)

	// The denial must not touch the existing project.
	p, err := st.GetProject(ctx, first.Project.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if p.CurrentAmount != 1200 {
		t.Fatalf("denied create altered current_amount to %d", p.CurrentAmount)
	}
}

func TestCreateProjectCompanyHasNoCap(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := newProjectService(st)
	company := primitive.NewObjectID()

	in := validProjectInput()
	in.InitialContribution = 7200 // 30% of target

	for i := 0; i < 3; i++ {
		if _, err := svc.CreateProject(ctx, company, models.CreatorTypeCompany, "Bosques SA", "ops@bosques.mx", in); err != nil {
			t.Fatalf("company create %d: %v", i+1, err)
		}
	}
}

func TestCreateProjectValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ProjectInput)
	}{
		{"missing tree name", func(in *ProjectInput) { in.TreeName = "  " }},
		{"missing species", func(in *ProjectInput) { in.TreeSpecies = "" }},
		{"non-positive target", func(in *ProjectInput) { in.TargetAmount = 0 }},
		{"missing country", func(in *ProjectInput) { in.Location.Country = "" }},
		{"initial below 5%", func(in *ProjectInput) { in.InitialContribution = 1199 }},
		{"initial above target", func(in *ProjectInput) { in.InitialContribution = 24001 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewMemory()
			svc := newProjectService(st)

			in := validProjectInput()
			tt.mutate(&in)

			_, err := svc.CreateProject(context.Background(), primitive.NewObjectID(),
				models.CreatorTypeIndividual, "Ana", "ana@example.com", in)
			assertKind(t, err, KindValidation)
		})
	}
}

func TestCreateProjectCompanyMinimumIsThirtyPercent(t *testing.T) {
	st := store.NewMemory()
	svc := newProjectService(st)

	in := validProjectInput()
	in.InitialContribution = 1200 // enough for an individual, not for a company

	_, err := svc.CreateProject(context.Background(), primitive.NewObjectID(),
		models.CreatorTypeCompany, "Bosques SA", "ops@bosques.mx", in)
	assertKind(t, err, KindValidation)
}

func TestCancelProject(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := newProjectService(st)
	creator := primitive.NewObjectID()

	res, err := svc.CreateProject(ctx, creator, models.CreatorTypeIndividual, "Ana", "ana@example.com", validProjectInput())
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	id := res.Project.ID

	_, err = svc.CancelProject(ctx, id, primitive.NewObjectID())
	assertKind(t, err, KindPermission)

	cancelled, err := svc.CancelProject(ctx, id, creator)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != models.ProjectStatusCancelled {
		t.Fatalf("expected cancelled status, got %s", cancelled.Status)
	}

	_, err = svc.CancelProject(ctx, id, creator)
	assertKind(t, err, KindState)
}

func TestCancelledProjectFreesTheIndividualCap(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := newProjectService(st)
	creator := primitive.NewObjectID()

	res, err := svc.CreateProject(ctx, creator, models.CreatorTypeIndividual, "Ana", "ana@example.com", validProjectInput())
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := svc.CancelProject(ctx, res.Project.ID, creator); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := svc.CreateProject(ctx, creator, models.CreatorTypeIndividual, "Ana", "ana@example.com", validProjectInput()); err != nil {
		t.Fatalf("create after cancel: %v", err)
	}
}

func TestGetProjectSnapshot(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := newProjectService(st)

	res, err := svc.CreateProject(ctx, primitive.NewObjectID(), models.CreatorTypeIndividual, "Ana", "ana@example.com", validProjectInput())
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	other := primitive.NewObjectID()
	if _, err := svc.ledger.RecordContribution(ctx, res.Project.ID, other, "Luis", ContributionInput{
		Amount: 4800, PaymentMethod: "PAYPAL",
	}); err != nil {
		t.Fatalf("contribute: %v", err)
	}

	snap, err := svc.GetProject(ctx, res.Project.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if snap.Project.CurrentAmount != 6000 {
		t.Fatalf("expected current 6000, got %d", snap.Project.CurrentAmount)
	}
	if snap.Percentage != 25 {
		t.Fatalf("expected 25%%, got %v", snap.Percentage)
	}
	if snap.Remaining != 18000 {
		t.Fatalf("expected 18000 remaining, got %d", snap.Remaining)
	}
	if snap.TotalContributors != 2 {
		t.Fatalf("expected 2 distinct contributors, got %d", snap.TotalContributors)
	}

	_, err = svc.GetProject(ctx, primitive.NewObjectID())
	assertKind(t, err, KindNotFound)
}

func TestListContributors(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := newProjectService(st)

	res, err := svc.CreateProject(ctx, primitive.NewObjectID(), models.CreatorTypeIndividual, "Ana", "ana@example.com", validProjectInput())
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := svc.ledger.RecordContribution(ctx, res.Project.ID, primitive.NewObjectID(), "Luis", ContributionInput{
		Amount: 3600, Message: "vamos", PaymentMethod: "CARD",
	}); err != nil {
		t.Fatalf("contribute: %v", err)
	}

	entries, err := svc.ListContributors(ctx, res.Project.ID)
	if err != nil {
		t.Fatalf("list contributors: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ContributorName != "Ana" || entries[1].ContributorName != "Luis" {
		t.Fatalf("entries out of order: %s, %s", entries[0].ContributorName, entries[1].ContributorName)
	}
	if !entries[0].ContributionDate.Before(entries[1].ContributionDate) {
		t.Fatal("entries must be ordered by contribution date ascending")
	}
	// 1200 and 3600 of a 4800 total: 25% and 75%.
	if entries[0].PercentageOfTotal != 25 || entries[1].PercentageOfTotal != 75 {
		t.Fatalf("unexpected shares: %v, %v", entries[0].PercentageOfTotal, entries[1].PercentageOfTotal)
	}
	if entries[1].Message != "vamos" {
		t.Fatalf("expected message preserved, got %q", entries[1].Message)
	}
}
