package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Contribution is a single pledge to a project. Rows are append-only:
// once inserted they are never updated or deleted.
type Contribution struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID       primitive.ObjectID `bson:"project_id" json:"project_id"`
	ContributorID   primitive.ObjectID `bson:"contributor_id" json:"contributor_id"`
	ContributorName string             `bson:"contributor_name" json:"contributor_name"`
	Amount          int64              `bson:"amount" json:"amount"` // currency minor units
	Message         string             `bson:"message,omitempty" json:"message,omitempty"`
	PaymentMethod   string             `bson:"payment_method" json:"payment_method"` // CARD, PAYPAL, TRANSFER
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
}
