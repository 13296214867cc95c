package memory

import (
	"context"

	"saga-orchestrator/utils/helpers"
)

// IDGenerator hands out random ids such as DEP-<uuid>.
type IDGenerator struct{}

func (IDGenerator) NextID(ctx context.Context, prefix string) (string, error) {
	return helpers.NewSagaID(prefix), nil
}
