package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Coordinates struct for latitude and longitude
type Coordinates struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// Location places a project in the world.
type Location struct {
	Country string  `bson:"country" json:"country"`
	City    string  `bson:"city,omitempty" json:"city,omitempty"`
	Lat     float64 `bson:"lat" json:"lat"`
	Lng     float64 `bson:"lng" json:"lng"`
}

const (
	ProjectStatusActive    = "active"
	ProjectStatusCompleted = "completed"
	ProjectStatusCancelled = "cancelled"
)

const (
	CreatorTypeIndividual = "individual"
	CreatorTypeCompany    = "company"
)

type CollaborativeProject struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TreeName      string             `bson:"tree_name" json:"tree_name"`
	TreeSpecies   string             `bson:"tree_species" json:"tree_species"`
	TargetAmount  int64              `bson:"target_amount" json:"target_amount"`
	CurrentAmount int64              `bson:"current_amount" json:"current_amount"`
	Status        string             `bson:"status" json:"status"` // active, completed, cancelled
	CreatorType   string             `bson:"creator_type" json:"creator_type"` // individual, company
	CreatorID     primitive.ObjectID `bson:"creator_id" json:"creator_id"`
	CreatorName   string             `bson:"creator_name,omitempty" json:"creator_name,omitempty"`
	CreatorEmail  string             `bson:"creator_email,omitempty" json:"-"`
	Location      Location           `bson:"location" json:"location"`
	Version       int64              `bson:"version" json:"-"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// Percentage is the project's funding percentage against its target.
func (p *CollaborativeProject) Percentage() float64 {
	return FundingPercentage(p.CurrentAmount, p.TargetAmount)
}

// Remaining is the amount still missing to reach the target.
func (p *CollaborativeProject) Remaining() int64 {
	return Remaining(p.CurrentAmount, p.TargetAmount)
}
