package mongodb

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/skyhook-logistics/portal/internal/audit"
)

// auditRetention bounds how long audit records are kept; the TTL index lets
// Mongo expire them without a cleanup job.
const auditRetention = 90 * 24 * time.Hour

// LoginAuditRepository persists authentication audit events. It implements
// audit.Recorder.
type LoginAuditRepository struct {
	collection *mongo.Collection
}

var _ audit.Recorder = (*LoginAuditRepository)(nil)

// NewLoginAuditRepository creates the repository and ensures the retention
// index exists.
func NewLoginAuditRepository(ctx context.Context, db *mongo.Database) (*LoginAuditRepository, error) {
	coll := db.Collection(LoginAuditCollection)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "timestamp", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(auditRetention.Seconds())),
	})
	if err != nil {
		return nil, err
	}

	return &LoginAuditRepository{collection: coll}, nil
}

// Record implements audit.Recorder. Insert failures are logged, never
// surfaced, the login path does not depend on the audit trail.
func (r *LoginAuditRepository) Record(ctx context.Context, event audit.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, event); err != nil {
		log.Error().Err(err).Str("action", event.Action).Msg("failed to record audit event")
	}
}
