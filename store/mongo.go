package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	models "github.com/plantavida/treefund-go/models"
)

// Mongo implements Store on MongoDB collections.
type Mongo struct {
	client *mongo.Client
	dbName string
}

var _ Store = (*Mongo)(nil)

func NewMongo(client *mongo.Client, dbName string) *Mongo {
	return &Mongo{client: client, dbName: dbName}
}

func (m *Mongo) projects() *mongo.Collection {
	return m.client.Database(m.dbName).Collection("projects")
}

func (m *Mongo) contributions() *mongo.Collection {
	return m.client.Database(m.dbName).Collection("contributions")
}

func (m *Mongo) workorders() *mongo.Collection {
	return m.client.Database(m.dbName).Collection("workorders")
}

func (m *Mongo) history() *mongo.Collection {
	return m.client.Database(m.dbName).Collection("workorder_history")
}

// EnsureIndexes creates the indexes the write paths rely on. The partial
// unique index backs the one-lifetime-project rule for individuals against
// concurrent creates.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.projects().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "creator_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
			"creator_type": models.CreatorTypeIndividual,
			"status":       bson.M{"$in": []string{models.ProjectStatusActive, models.ProjectStatusCompleted}},
		}),
	})
	if err != nil {
		return err
	}

	_, err = m.contributions().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return err
	}

	_, err = m.history().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "work_order_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return err
}

// ---------------- PROJECTS ----------------

func (m *Mongo) InsertProject(ctx context.Context, p *models.CollaborativeProject) error {
	_, err := m.projects().InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (m *Mongo) DeleteProject(ctx context.Context, id primitive.ObjectID) error {
	_, err := m.projects().DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (m *Mongo) GetProject(ctx context.Context, id primitive.ObjectID) (*models.CollaborativeProject, error) {
	var p models.CollaborativeProject
	err := m.projects().FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *Mongo) ListProjects(ctx context.Context, status string) ([]models.CollaborativeProject, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := m.projects().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var projects []models.CollaborativeProject
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (m *Mongo) CountProjectsByCreator(ctx context.Context, creatorID primitive.ObjectID, statuses []string) (int64, error) {
	return m.projects().CountDocuments(ctx, bson.M{
		"creator_id": creatorID,
		"status":     bson.M{"$in": statuses},
	})
}

// ApplyContribution writes the ledger row and the aggregate update in a
// single session transaction. The version condition makes concurrent
// contributions to the same project lose cleanly instead of overfunding it.
func (m *Mongo) ApplyContribution(ctx context.Context, projectID primitive.ObjectID, expectedVersion int64, c *models.Contribution, newAmount int64, newStatus string) error {
	sess, err := m.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := m.projects().UpdateOne(sc,
			bson.M{"_id": projectID, "version": expectedVersion},
			bson.M{
				"$set": bson.M{
					"current_amount": newAmount,
					"status":         newStatus,
					"updated_at":     c.CreatedAt,
				},
				"$inc": bson.M{"version": 1},
			})
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, ErrVersionConflict
		}

		if _, err := m.contributions().InsertOne(sc, c); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

func (m *Mongo) CancelProject(ctx context.Context, id primitive.ObjectID) (*models.CollaborativeProject, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p models.CollaborativeProject
	err := m.projects().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.ProjectStatusActive},
		bson.M{
			"$set": bson.M{"status": models.ProjectStatusCancelled, "updated_at": time.Now()},
			"$inc": bson.M{"version": 1},
		}, opts).Decode(&p)
	if err == mongo.ErrNoDocuments {
		// Distinguish a missing project from one that already left active.
		if _, getErr := m.GetProject(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrStatusConflict
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *Mongo) ListContributions(ctx context.Context, projectID primitive.ObjectID) ([]models.Contribution, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := m.contributions().Find(ctx, bson.M{"project_id": projectID}, opts)
	if err != nil {
		return nil, err
	}

	var contributions []models.Contribution
	if err := cursor.All(ctx, &contributions); err != nil {
		return nil, err
	}
	return contributions, nil
}

func (m *Mongo) CountContributors(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	ids, err := m.contributions().Distinct(ctx, "contributor_id", bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

// ---------------- WORK ORDERS ----------------

func (m *Mongo) InsertWorkOrder(ctx context.Context, w *models.WorkOrder) error {
	_, err := m.workorders().InsertOne(ctx, w)
	return err
}

func (m *Mongo) GetWorkOrder(ctx context.Context, id primitive.ObjectID) (*models.WorkOrder, error) {
	var w models.WorkOrder
	err := m.workorders().FindOne(ctx, bson.M{"_id": id}).Decode(&w)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// UpdateWorkOrderStatus conditions the write on the order still holding
// expectedStatus, so concurrent advances linearize: the loser sees
// ErrStatusConflict and re-reads.
func (m *Mongo) UpdateWorkOrderStatus(ctx context.Context, id primitive.ObjectID, expectedStatus string, w *models.WorkOrder, entry *models.StatusHistoryEntry) error {
	sess, err := m.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		set := bson.M{
			"status":     w.Status,
			"updated_at": w.UpdatedAt,
		}
		if w.CompletedAt != nil {
			set["completed_at"] = w.CompletedAt
		}
		if w.Actual != nil {
			set["actual_coordinates"] = w.Actual
		}

		res, err := m.workorders().UpdateOne(sc,
			bson.M{"_id": id, "status": expectedStatus},
			bson.M{"$set": set})
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, ErrStatusConflict
		}

		if _, err := m.history().InsertOne(sc, entry); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

func (m *Mongo) History(ctx context.Context, workOrderID primitive.ObjectID) ([]models.StatusHistoryEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := m.history().Find(ctx, bson.M{"work_order_id": workOrderID}, opts)
	if err != nil {
		return nil, err
	}

	var entries []models.StatusHistoryEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
