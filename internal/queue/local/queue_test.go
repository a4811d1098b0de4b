package local

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/retro-booth/internal/model"
)

type collector struct {
	mu  sync.Mutex
	ids []string
}

func (c *collector) HandleTask(_ context.Context, task model.EnrichTask) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, task.PhotoID)
	return nil
}

func TestQueue_ProcessesAndDrains(t *testing.T) {
	h := &collector{}
	q := New(h, 3, 10)

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, q.Enqueue(context.Background(), model.EnrichTask{PhotoID: id}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go q.Consume(ctx, &wg)
	cancel()
	wg.Wait()

	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, h.ids)

	err := q.Enqueue(context.Background(), model.EnrichTask{PhotoID: "late"})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueue_Full(t *testing.T) {
	q := New(&collector{}, 1, 1)
	require.NoError(t, q.Enqueue(context.Background(), model.EnrichTask{PhotoID: "a"}))
	assert.ErrorIs(t, q.Enqueue(context.Background(), model.EnrichTask{PhotoID: "b"}), ErrQueueFull)
}
