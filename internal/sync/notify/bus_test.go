package notify

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	bus := NewBus(1)
	assert.Equal(t, 0, bus.Publish(Created))
}

func TestBus_FanOut(t *testing.T) {
	bus := NewBus(4)
	defer bus.Close()

	a, cancelA := bus.Subscribe()
	defer cancelA()
	b, cancelB := bus.Subscribe()
	defer cancelB()

	require.Equal(t, 0, bus.Publish(Created))
	require.Equal(t, 0, bus.Publish(Ingested))

	for _, ch := range []<-chan Kind{a, b} {
		assert.Equal(t, Created, <-ch)
		assert.Equal(t, Ingested, <-ch)
	}
}

func TestBus_DropsForSlowSubscriber(t *testing.T) {
	bus := NewBus(1)
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	assert.Equal(t, 0, bus.Publish(Created))
	assert.Equal(t, 1, bus.Publish(Ingested))

	assert.Equal(t, Created, <-ch)
	assert.Empty(t, ch)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(1)
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	require.Equal(t, 1, bus.Subscribers())

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, bus.Subscribers())
	assert.Equal(t, 0, bus.Publish(Created))
}

func TestBus_Close(t *testing.T) {
	bus := NewBus(1)

	ch, cancel := bus.Subscribe()
	bus.Close()
	bus.Close()

	_, ok := <-ch
	assert.False(t, ok)

	// Отписка после закрытия не паникует
	assert.NotPanics(t, cancel)
	assert.Equal(t, 0, bus.Publish(Created))

	late, _ := bus.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus(1000)
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				bus.Publish(Created)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, ch, 500)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "ingested", Ingested.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
