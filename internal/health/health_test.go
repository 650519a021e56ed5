package health

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryEmpty(t *testing.T) {
	healthy, statuses := NewRegistry().CheckAll(context.Background())
	assert.True(t, healthy)
	assert.Empty(t, statuses)
}

func TestRegistryAllHealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("db", func(context.Context) Status { return Status{Name: "db", Healthy: true} })
	r.Register("cache", func(context.Context) Status { return Status{Healthy: true, Detail: "ok"} })

	healthy, statuses := r.CheckAll(context.Background())
	assert.True(t, healthy)
	assert.Len(t, statuses, 2)
	assert.Equal(t, "cache", statuses[1].Name, "name defaults to the registered name")
}

func TestRegistryOneUnhealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("db", func(context.Context) Status { return Status{Name: "db", Healthy: true} })
	r.Register("monthly_reset", Running("monthly_reset", func() bool { return false }))

	healthy, statuses := r.CheckAll(context.Background())
	assert.False(t, healthy)
	assert.Equal(t, "db", statuses[0].Name)
	assert.Equal(t, "not running", statuses[1].Detail)
}

func TestRegistryCheckerSeesDeadline(t *testing.T) {
	r := NewRegistry()
	r.Register("slow", func(ctx context.Context) Status {
		_, ok := ctx.Deadline()
		return Status{Healthy: ok}
	})
	healthy, _ := r.CheckAll(context.Background())
	assert.True(t, healthy)
}

func TestRegistryConcurrentRegister(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Register("x", Running("x", func() bool { return true }))
			r.CheckAll(context.Background())
		}()
	}
	wg.Wait()

	_, statuses := r.CheckAll(context.Background())
	assert.Len(t, statuses, 20)
}
