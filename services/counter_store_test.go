package services

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/badgesync/models"
)

type observed struct {
	name  models.CounterName
	value int
}

func TestCounterStoreResetAfterIncrementsIsZero(t *testing.T) {
	for _, n := range []int{0, 1, 7, 250} {
		s := NewCounterStore(zerolog.Nop())
		for i := 0; i < n; i++ {
			s.Increment(models.CounterNotifications, 1)
		}
		s.Reset(models.CounterNotifications)
		assert.Equal(t, 0, s.Get(models.CounterNotifications), "after %d increments", n)
	}
}

func TestCounterStoreSetThenIncrement(t *testing.T) {
	s := NewCounterStore(zerolog.Nop())
	s.Set(models.CounterChat, 5)
	s.Increment(models.CounterChat, 1)
	assert.Equal(t, 6, s.Get(models.CounterChat))
}

func TestCounterStoreClampsNegatives(t *testing.T) {
	s := NewCounterStore(zerolog.Nop())

	s.Set(models.CounterChat, -3)
	assert.Equal(t, 0, s.Get(models.CounterChat))

	s.Set(models.CounterChat, 2)
	s.Increment(models.CounterChat, -5)
	assert.Equal(t, 0, s.Get(models.CounterChat))
}

func TestCounterStoreUnknownNameStartsAtZero(t *testing.T) {
	s := NewCounterStore(zerolog.Nop())
	assert.Equal(t, 0, s.Get("mentions"))

	s.Increment("mentions", 2)
	assert.Equal(t, 2, s.Get("mentions"))
}

func TestCounterStoreObserversSeeMutationsInOrder(t *testing.T) {
	s := NewCounterStore(zerolog.Nop())

	var got []observed
	cancel := s.Observe(func(name models.CounterName, value int) {
		// Observer içinden okuma serbest ve güncel değeri görmeli.
		assert.Equal(t, value, s.Get(name))
		got = append(got, observed{name, value})
	})

	s.Set(models.CounterNotifications, 3)
	s.Increment(models.CounterNotifications, 1)
	s.Increment(models.CounterChat, 1)
	s.Reset(models.CounterNotifications)

	assert.Equal(t, []observed{
		{models.CounterNotifications, 3},
		{models.CounterNotifications, 4},
		{models.CounterChat, 1},
		{models.CounterNotifications, 0},
	}, got)

	cancel()
	cancel()
	s.Increment(models.CounterChat, 1)
	assert.Len(t, got, 4)
}

func TestCounterStoreObserversCalledInRegistrationOrder(t *testing.T) {
	s := NewCounterStore(zerolog.Nop())

	var order []string
	s.Observe(func(models.CounterName, int) { order = append(order, "first") })
	cancelSecond := s.Observe(func(models.CounterName, int) { order = append(order, "second") })
	s.Observe(func(models.CounterName, int) { order = append(order, "third") })

	s.Set(models.CounterChat, 1)
	cancelSecond()
	s.Set(models.CounterChat, 2)

	assert.Equal(t, []string{"first", "second", "third", "first", "third"}, order)
}

func TestCounterStoreClearNotifiesNonZero(t *testing.T) {
	s := NewCounterStore(zerolog.Nop())
	s.Set(models.CounterNotifications, 4)
	s.Set("mentions", 2)

	var got []observed
	s.Observe(func(name models.CounterName, value int) {
		got = append(got, observed{name, value})
	})

	s.Clear()

	assert.ElementsMatch(t, []observed{
		{models.CounterNotifications, 0},
		{"mentions", 0},
	}, got)
	assert.Equal(t, models.BadgeCounts{}, s.Snapshot())
}

func TestCounterStoreConcurrentIncrements(t *testing.T) {
	s := NewCounterStore(zerolog.Nop())

	var notified int
	s.Observe(func(models.CounterName, int) { notified++ }) // writeMu altında, race yok

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s.Increment(models.CounterChat, 1)
				_ = s.Get(models.CounterChat)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1000, s.Get(models.CounterChat))
	assert.Equal(t, 1000, notified)
}
