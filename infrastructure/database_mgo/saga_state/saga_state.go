package saga_state

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"saga-orchestrator/domain/entities"
	sagaerrors "saga-orchestrator/errors"
	"saga-orchestrator/utils/mongoindex"
)

const (
	CollectionSagas = "sagas"

	duplicateKeyCode = 11000
)

type SagaStateCollection struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

func NewSagaStateCollection(ctx context.Context, db *mongo.Database, logger *zap.Logger) (*SagaStateCollection, error) {
	c := db.Collection(CollectionSagas)
	for _, keys := range [][]bson.E{
		{{Key: "status", Value: 1}, {Key: "current_step_start_time", Value: 1}},
		{{Key: "saga_type", Value: 1}, {Key: "status", Value: 1}},
	} {
		if err := mongoindex.EnsureIndex(ctx, c, keys, mongoindex.IndexOptions{}, logger); err != nil {
			return nil, err
		}
	}
	return &SagaStateCollection{collection: c, logger: logger}, nil
}

func (s *SagaStateCollection) Create(ctx context.Context, state *entities.SagaState) error {
	_, err := s.collection.InsertOne(ctx, state)
	if isDuplicate(err) {
		return errors.Wrapf(sagaerrors.ErrSagaExists, "saga %s", state.SagaID)
	}
	return err
}

func (s *SagaStateCollection) FindByID(ctx context.Context, sagaID string) (res *entities.SagaState, err error) {
	err = s.collection.FindOne(ctx, bson.M{"_id": sagaID}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, errors.Wrapf(sagaerrors.ErrSagaNotFound, "saga %s", sagaID)
	}
	if err != nil {
		return nil, err
	}
	normalize(res)
	return res, nil
}

// Update replaces the document only while it still holds state.Version.
func (s *SagaStateCollection) Update(ctx context.Context, state *entities.SagaState) error {
	expected := state.Version
	next := state.Clone()
	next.Version = expected + 1

	res, err := s.collection.ReplaceOne(ctx, bson.D{{Key: "_id", Value: state.SagaID}, {Key: "version", Value: expected}}, next)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := s.collection.CountDocuments(ctx, bson.M{"_id": state.SagaID})
		if err == nil && n == 0 {
			return errors.Wrapf(sagaerrors.ErrSagaNotFound, "saga %s", state.SagaID)
		}
		return errors.Wrapf(sagaerrors.ErrVersionConflict, "saga %s at version %d", state.SagaID, expected)
	}
	state.Version = next.Version
	return nil
}

func (s *SagaStateCollection) FindByStatus(ctx context.Context, statuses []entities.SagaStatus) ([]*entities.SagaState, error) {
	return s.find(ctx, bson.M{"status": bson.M{"$in": statuses}})
}

func (s *SagaStateCollection) FindStuck(ctx context.Context, sagaType entities.SagaType, statuses []entities.SagaStatus, olderThan time.Time) ([]*entities.SagaState, error) {
	return s.find(ctx, bson.M{
		"saga_type":               sagaType,
		"status":                  bson.M{"$in": statuses},
		"current_step_start_time": bson.M{"$lte": olderThan},
	})
}

func (s *SagaStateCollection) find(ctx context.Context, filter bson.M) ([]*entities.SagaState, error) {
	cur, err := s.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var res []*entities.SagaState
	if err = cur.All(ctx, &res); err != nil {
		return nil, err
	}
	for _, st := range res {
		normalize(st)
	}
	return res, nil
}

// normalize restores the empty collections that bson drops or decodes as nil.
func normalize(s *entities.SagaState) {
	if s.StepData == nil {
		s.StepData = map[string]interface{}{}
	}
	if s.CompletedSteps == nil {
		s.CompletedSteps = []string{}
	}
}

func isDuplicate(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == duplicateKeyCode {
				return true
			}
		}
	}
	return false
}
