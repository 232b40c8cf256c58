package diary

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/milkman/internal/domain/models"
)

func TestHub_PublishIsScopedByAccount(t *testing.T) {
	h := NewHub()

	var u1, u2 int
	cancel1 := h.Subscribe("u1", func(models.Snapshot) { u1++ })
	cancel2 := h.Subscribe("u2", func(models.Snapshot) { u2++ })
	defer cancel2()

	h.Publish("u1", models.Snapshot{UserID: "u1"})
	assert.Equal(t, 1, u1)
	assert.Equal(t, 0, u2)

	cancel1()
	cancel1()
	assert.Equal(t, 0, h.subscribers("u1"))

	h.Publish("u1", models.Snapshot{UserID: "u1"})
	assert.Equal(t, 1, u1)
}

func TestHub_ConcurrentSubscribePublish(t *testing.T) {
	h := NewHub()

	var mu sync.Mutex
	count := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cancel := h.Subscribe("u1", func(models.Snapshot) {
				mu.Lock()
				count++
				mu.Unlock()
			})
			h.Publish("u1", models.Snapshot{})
			cancel()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, h.subscribers("u1"))
	assert.GreaterOrEqual(t, count, 20)
}
