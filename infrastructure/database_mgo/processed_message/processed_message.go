package processed_message

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"saga-orchestrator/domain/entities"
	sagaerrors "saga-orchestrator/errors"
	"saga-orchestrator/utils/mongoindex"
)

const (
	CollectionProcessedMessages = "processed_messages"

	duplicateKeyCode = 11000
)

type ProcessedMessageCollection struct {
	collection *mongo.Collection
}

// NewProcessedMessageCollection also installs a TTL index on processed_at so mongo drops
// records after retention even when no purge job runs.
func NewProcessedMessageCollection(ctx context.Context, db *mongo.Database, retention time.Duration, logger *zap.Logger) (*ProcessedMessageCollection, error) {
	c := db.Collection(CollectionProcessedMessages)
	err := mongoindex.EnsureIndex(ctx, c, []bson.E{{Key: "processed_at", Value: 1}}, mongoindex.IndexOptions{ExpireAfter: retention}, logger)
	if err != nil {
		return nil, err
	}
	err = mongoindex.EnsureIndex(ctx, c, []bson.E{{Key: "saga_id", Value: 1}}, mongoindex.IndexOptions{}, logger)
	if err != nil {
		return nil, err
	}
	return &ProcessedMessageCollection{collection: c}, nil
}

func (p *ProcessedMessageCollection) Exists(ctx context.Context, messageID string) (bool, error) {
	n, err := p.collection.CountDocuments(ctx, bson.M{"_id": messageID})
	return n > 0, err
}

func (p *ProcessedMessageCollection) Insert(ctx context.Context, msg *entities.ProcessedMessage) error {
	_, err := p.collection.InsertOne(ctx, msg)
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == duplicateKeyCode {
				return errors.Wrapf(sagaerrors.ErrAlreadyProcessed, "message %s", msg.MessageID)
			}
		}
	}
	return err
}

func (p *ProcessedMessageCollection) FindByID(ctx context.Context, messageID string) (res *entities.ProcessedMessage, err error) {
	err = p.collection.FindOne(ctx, bson.M{"_id": messageID}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, errors.Wrapf(sagaerrors.ErrMessageNotFound, "message %s", messageID)
	}
	return res, err
}

func (p *ProcessedMessageCollection) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := p.collection.DeleteMany(ctx, bson.M{"processed_at": bson.M{"$lt": before}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
