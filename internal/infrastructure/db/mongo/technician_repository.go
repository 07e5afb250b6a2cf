package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fieldworks/dispatch-system/internal/core/domain"
)

const collectionTechnicians = "technicians"

// TechnicianRepository reads the active technician roster maintained by the
// external personnel layer.
type TechnicianRepository struct {
	col *mongo.Collection
}

func NewTechnicianRepository(db *mongo.Database) *TechnicianRepository {
	return &TechnicianRepository{col: db.Collection(collectionTechnicians)}
}

// ActiveTechnicians returns every technician flagged active, sorted by name
// for stable roster ordering across cycles.
func (r *TechnicianRepository) ActiveTechnicians(ctx context.Context) ([]domain.Technician, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{"active": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var technicians []domain.Technician
	if err := cursor.All(ctx, &technicians); err != nil {
		return nil, err
	}
	return technicians, nil
}

// EnsureIndexes creates the indexes the roster queries rely on.
func (r *TechnicianRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "active", Value: 1}, {Key: "name", Value: 1}},
	})
	return err
}
