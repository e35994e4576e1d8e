package models

import (
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID int64              `bson:"productId" json:"productId"`
	Rating    float64            `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment" json:"comment"`
	OrderID   *int64             `bson:"orderId" json:"orderId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// ReviewSummary is the count and mean rating of a product's reviews.
// AvgRating is nil when Count is zero.
type ReviewSummary struct {
	Count     int64    `json:"count"`
	AvgRating *float64 `json:"avgRating"`
}

// RoundRating rounds an average rating to two decimals.
func RoundRating(v float64) float64 {
	return math.Round(v*100) / 100
}

type ReadPreference int

const (
	ReadPrimary ReadPreference = iota
	ReadSecondaryPreferred
)

func (p ReadPreference) String() string {
	if p == ReadSecondaryPreferred {
		return "secondaryPreferred"
	}
	return "primary"
}

// ParseReadPreference maps the read_from query value. Empty or "primary"
// selects the primary; anything else prefers secondaries.
func ParseReadPreference(s string) ReadPreference {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "primary":
		return ReadPrimary
	default:
		return ReadSecondaryPreferred
	}
}

// Topology is the replica set view reported by the hello command.
type Topology struct {
	IsWritablePrimary bool     `bson:"isWritablePrimary" json:"isWritablePrimary"`
	Primary           string   `bson:"primary" json:"primary"`
	Me                string   `bson:"me" json:"me"`
	Hosts             []string `bson:"hosts" json:"hosts"`
	SetName           string   `bson:"setName" json:"setName,omitempty"`
}

// ProductSummary merges sales from the relational store with review stats
// from the document store.
type ProductSummary struct {
	ProductID     int64         `json:"productId"`
	SoldPaid      int64         `json:"soldPaid"`
	Reviews       ReviewSummary `json:"reviews"`
	MongoReadFrom string        `json:"mongoReadFrom"`
}
