package push_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/badgesync/models"
	"github.com/akinalp/badgesync/push"
	"github.com/akinalp/badgesync/push/pushtest"
)

const (
	testChannel = "user-notifications.42"
	testEvent   = "new-notification"
)

func newSubscriptions(t *testing.T) (*push.Subscriptions, *pushtest.Transport) {
	t.Helper()
	transport := pushtest.New()
	return push.NewSubscriptions(transport, zerolog.Nop()), transport
}

func TestSubscribeBindsAndDelivers(t *testing.T) {
	subs, transport := newSubscriptions(t)

	var got []models.PushEvent
	cleanup := subs.Subscribe(testChannel, testEvent, func(e models.PushEvent) {
		got = append(got, e)
	})
	defer cleanup()

	assert.Equal(t, 1, transport.Publish(testChannel, testEvent, map[string]any{"sender_id": 7}))
	require.Len(t, got, 1)
	assert.Equal(t, testChannel, got[0].Channel)
	assert.JSONEq(t, `{"sender_id":7}`, string(got[0].Data))
	assert.Equal(t, 1, subs.Refs(testChannel))
}

func TestSharedChannelUnsubscribesAfterLastCleanup(t *testing.T) {
	subs, transport := newSubscriptions(t)

	first := subs.Subscribe(testChannel, testEvent, func(models.PushEvent) {})
	second := subs.Subscribe(testChannel, testEvent, func(models.PushEvent) {})

	assert.Equal(t, 1, transport.SubscribeCount(testChannel), "channel is shared, not double-connected")
	assert.Equal(t, 2, subs.Refs(testChannel))
	assert.Equal(t, 2, transport.Bindings(testChannel, testEvent))

	first()
	assert.True(t, transport.Subscribed(testChannel), "first cleanup must not tear the channel down")
	assert.Equal(t, 1, transport.Bindings(testChannel, testEvent))
	assert.Equal(t, 1, subs.Refs(testChannel))

	second()
	assert.False(t, transport.Subscribed(testChannel))
	assert.Equal(t, 1, transport.UnsubscribeCount(testChannel))
	assert.Equal(t, 0, subs.Refs(testChannel))
}

func TestCleanupIsIdempotent(t *testing.T) {
	subs, transport := newSubscriptions(t)

	first := subs.Subscribe(testChannel, testEvent, func(models.PushEvent) {})
	second := subs.Subscribe(testChannel, testEvent, func(models.PushEvent) {})

	first()
	first()
	first()

	assert.Equal(t, 1, subs.Refs(testChannel), "repeated cleanup must not double-decrement")
	assert.True(t, transport.Subscribed(testChannel))

	second()
	second()
	assert.Equal(t, 0, subs.Refs(testChannel))
	assert.Equal(t, 1, transport.UnsubscribeCount(testChannel))
}

func TestCleanupUnbindsOnlyItsOwnHandler(t *testing.T) {
	subs, transport := newSubscriptions(t)

	var a, b int
	cleanA := subs.Subscribe(testChannel, testEvent, func(models.PushEvent) { a++ })
	cleanB := subs.Subscribe(testChannel, testEvent, func(models.PushEvent) { b++ })
	defer cleanB()

	cleanA()
	transport.Publish(testChannel, testEvent, map[string]any{})

	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
}

func TestResubscribeAfterFullRelease(t *testing.T) {
	subs, transport := newSubscriptions(t)

	subs.Subscribe(testChannel, testEvent, func(models.PushEvent) {})()
	cleanup := subs.Subscribe(testChannel, testEvent, func(models.PushEvent) {})
	defer cleanup()

	assert.Equal(t, 2, transport.SubscribeCount(testChannel))
	assert.True(t, transport.Subscribed(testChannel))
}

func TestSubscribeOnClosedTransportReturnsNoopCleanup(t *testing.T) {
	subs, transport := newSubscriptions(t)
	require.NoError(t, transport.Close())

	cleanup := subs.Subscribe(testChannel, testEvent, func(models.PushEvent) {})
	assert.NotPanics(t, func() {
		cleanup()
		cleanup()
	})
	assert.Equal(t, 0, subs.Refs(testChannel))
}

func TestCloseReleasesEverything(t *testing.T) {
	subs, transport := newSubscriptions(t)

	stale := subs.Subscribe(testChannel, testEvent, func(models.PushEvent) {})
	subs.Subscribe("support-chat.42", "new-message", func(models.PushEvent) {})

	require.NoError(t, subs.Close())
	assert.False(t, transport.Subscribed(testChannel))
	assert.False(t, transport.Subscribed("support-chat.42"))

	// Close sonrası eski handle transport'a ikinci unsubscribe göndermemeli.
	stale()
	assert.Equal(t, 1, transport.UnsubscribeCount(testChannel))
}

func TestOnReconnectForwardsToTransport(t *testing.T) {
	subs, transport := newSubscriptions(t)

	calls := 0
	subs.OnReconnect(func() { calls++ })
	transport.Reconnect()

	assert.Equal(t, 1, calls)
}
