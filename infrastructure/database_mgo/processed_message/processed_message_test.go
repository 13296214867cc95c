package processed_message

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"saga-orchestrator/domain/entities"
	sagaerrors "saga-orchestrator/errors"
	"saga-orchestrator/infrastructure/database_mgo"
	"saga-orchestrator/utils/helpers"
)

func TestProcessedMessageCollection(t *testing.T) {
	uri := os.Getenv("SAGA_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SAGA_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	client, err := database_mgo.NewMongoDBconnection(ctx, uri)
	require.NoError(t, err)
	db := client.Database("saga_test_" + helpers.GetUUId()[:8])
	defer db.Drop(ctx)

	repo, err := NewProcessedMessageCollection(ctx, db, 14*24*time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, repo.Insert(ctx, &entities.ProcessedMessage{MessageID: "m1", SagaID: "DEP-1", ProcessedAt: now.Add(-20 * 24 * time.Hour)}))
	require.NoError(t, repo.Insert(ctx, &entities.ProcessedMessage{MessageID: "m2", SagaID: "DEP-1", ProcessedAt: now, Result: map[string]interface{}{"ignored": true}}))
	assert.True(t, errors.Is(repo.Insert(ctx, &entities.ProcessedMessage{MessageID: "m2"}), sagaerrors.ErrAlreadyProcessed))

	ok, err := repo.Exists(ctx, "m2")
	require.NoError(t, err)
	assert.True(t, ok)

	msg, err := repo.FindByID(ctx, "m2")
	require.NoError(t, err)
	assert.Equal(t, true, msg.Result["ignored"])

	n, err := repo.DeleteProcessedBefore(ctx, now.Add(-14*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.FindByID(ctx, "m1")
	assert.True(t, errors.Is(err, sagaerrors.ErrMessageNotFound))
}
