package saga_state

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionSagaIDIncrement = "sagas_id_increment"

	LenID = 10
)

// IDGenerator issues ids like DEP20240302000000042 from a per prefix, per day counter.
type IDGenerator struct {
	collection *mongo.Collection
	prefix     string
}

func NewIDGenerator(db *mongo.Database, prefix string) *IDGenerator {
	return &IDGenerator{collection: db.Collection(CollectionSagaIDIncrement), prefix: prefix}
}

func (g *IDGenerator) NextID(ctx context.Context, prefix string) (string, error) {
	after := options.After
	upsert := true
	date := time.Now().UTC().Format("20060102")
	counter := struct {
		Prefix string `bson:"prefix"`
		Date   string `bson:"date"`
		Id     int64  `bson:"id"`
	}{}
	err := g.collection.FindOneAndUpdate(ctx,
		bson.M{"prefix": prefix, "date": date},
		bson.M{"$inc": bson.M{"id": 1}},
		&options.FindOneAndUpdateOptions{ReturnDocument: &after, Upsert: &upsert},
	).Decode(&counter)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s%s%0*d", g.prefix, prefix, date, LenID, counter.Id), nil
}
