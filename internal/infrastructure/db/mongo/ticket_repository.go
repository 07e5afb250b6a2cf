package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fieldworks/dispatch-system/internal/core/domain"
)

const collectionTickets = "tickets"

// TicketRepository projects read-only job references out of the ticketing
// subsystem's collection. The dispatch core never writes ticket state.
type TicketRepository struct {
	col *mongo.Collection
}

func NewTicketRepository(db *mongo.Database) *TicketRepository {
	return &TicketRepository{col: db.Collection(collectionTickets)}
}

// ActiveJobs returns the technician's jobs with status scheduled or
// in_progress, ordered by scheduled time.
func (r *TicketRepository) ActiveJobs(ctx context.Context, technicianID string) ([]domain.JobRef, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"assigned_to": technicianID,
		"status":      bson.M{"$in": []domain.JobStatus{domain.JobScheduled, domain.JobInProgress}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: 1}})

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var jobs []domain.JobRef
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// EnsureIndexes creates the active-jobs lookup index.
func (r *TicketRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "assigned_to", Value: 1}, {Key: "status", Value: 1}, {Key: "scheduled_at", Value: 1}},
	})
	return err
}
