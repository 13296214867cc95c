package mongoindex

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type IndexOptions struct {
	Unique bool
	// ExpireAfter turns a single date field index into a TTL index.
	ExpireAfter time.Duration
}

// IndexName is the name mongo gives an index on keys, e.g. status_1_current_step_start_time_1.
func IndexName(keys []bson.E) string {
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, fmt.Sprintf("%v_%v", k.Key, k.Value))
	}
	return strings.Join(names, "_")
}

// EnsureIndex will ensure the index model provided is on the given collection.
func EnsureIndex(ctx context.Context, c *mongo.Collection, keys []bson.E, opts IndexOptions, logger *zap.Logger) error {
	ks := bson.D{}
	for _, k := range keys {
		ks = append(ks, k)
	}
	idxoptions := options.Index().SetBackground(true).SetUnique(opts.Unique)
	if opts.ExpireAfter > 0 {
		idxoptions.SetExpireAfterSeconds(int32(opts.ExpireAfter / time.Second))
	}
	idm := mongo.IndexModel{
		Keys:    ks,
		Options: idxoptions,
	}

	idxs := c.Indexes()
	cur, err := idxs.List(ctx)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	indexName := IndexName(keys)
	for cur.Next(ctx) {
		d := bson.D{}
		if err := cur.Decode(&d); err != nil {
			continue
		}
		for _, v := range d {
			if v.Key == "name" && v.Value == indexName {
				return nil
			}
		}
	}

	if _, err = idxs.CreateOne(ctx, idm); err != nil {
		logger.Error("create_index_error", zap.String("collection", c.Name()), zap.String("index", indexName), zap.Error(err))
		return err
	}
	logger.Info("index_created", zap.String("collection", c.Name()), zap.String("index", indexName))
	return nil
}
