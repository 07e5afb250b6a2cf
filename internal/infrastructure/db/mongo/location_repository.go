package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fieldworks/dispatch-system/internal/core/domain"
)

const collectionLocationSamples = "location_samples"

// LocationRepository stores raw device position samples and serves the
// most-recent-sample-per-technician reads the synchronizer issues.
type LocationRepository struct {
	col *mongo.Collection
}

func NewLocationRepository(db *mongo.Database) *LocationRepository {
	return &LocationRepository{col: db.Collection(collectionLocationSamples)}
}

// LatestSample returns the newest sample for a technician, or (nil, nil)
// when the technician has never reported a position.
func (r *LocationRepository) LatestSample(ctx context.Context, technicianID string) (*domain.LocationSample, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "captured_at", Value: -1}})

	var sample domain.LocationSample
	err := r.col.FindOne(ctx, bson.M{"technician_id": technicianID}, opts).Decode(&sample)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &sample, nil
}

// SaveSample appends a new sample. Samples are kept as history; the latest
// read is served by the (technician_id, captured_at desc) index.
func (r *LocationRepository) SaveSample(ctx context.Context, sample domain.LocationSample) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, sample)
	return err
}

// EnsureIndexes creates the latest-sample lookup index.
func (r *LocationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "technician_id", Value: 1}, {Key: "captured_at", Value: -1}},
	})
	return err
}
