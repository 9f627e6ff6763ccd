// internal/domain/models/department.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Department struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code    string             `bson:"code" json:"code"`
	Name    string             `bson:"name" json:"name"`
	NameCI  string             `bson:"name_ci" json:"-"`
	College string             `bson:"college" json:"college"`
	Active  bool               `bson:"active" json:"active"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
