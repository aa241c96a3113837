// internal/domain/models/team.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Team is a planning team. Users reference teams by Key (a short stable
// string, not the ObjectID) so the permission overlay can compare team
// identifiers without a lookup.
type Team struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Key  string             `bson:"key" json:"key"` // e.g. "growth", "brand"
	Name string             `bson:"name" json:"name"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
