package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBroker_PublishReachesAllSubscribers(t *testing.T) {
	b := NewBroker[string]()
	defer b.Close()

	ctx := context.Background()
	sub1 := b.Subscribe(ctx)
	sub2 := b.Subscribe(ctx)
	require.Equal(t, 2, b.SubscriberCount())

	b.Publish(UpdatedEvent, "/streams")

	for _, sub := range []<-chan Event[string]{sub1, sub2} {
		select {
		case ev := <-sub:
			require.Equal(t, UpdatedEvent, ev.Type)
			require.Equal(t, "/streams", ev.Payload)
			require.False(t, ev.Timestamp.IsZero())
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBroker_ContextCancelRemovesSubscriber(t *testing.T) {
	b := NewBroker[int]()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub := b.Subscribe(ctx)
	cancel()

	// The cleanup goroutine closes the channel.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-sub:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return b.SubscriberCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestBroker_PublishNeverBlocksOnFullSubscriber(t *testing.T) {
	b := NewBrokerWithBuffer[int](1)
	defer b.Close()

	_ = b.Subscribe(context.Background())

	done := make(chan struct{})
	go func() {
		// Nobody drains the channel; extra events must be dropped, not block.
		for i := 0; i < 10; i++ {
			b.Publish(CreatedEvent, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber channel")
	}
}

func TestBroker_SubscribeAfterCloseReturnsClosedChannel(t *testing.T) {
	b := NewBroker[string]()
	b.Close()

	sub := b.Subscribe(context.Background())
	_, ok := <-sub
	require.False(t, ok)
}

func TestBroker_CloseIsIdempotent(t *testing.T) {
	b := NewBroker[string]()
	b.Close()
	b.Close()
}

func TestListenCmd_DeliversOneEvent(t *testing.T) {
	b := NewBroker[string]()
	defer b.Close()

	ctx := context.Background()
	listener := NewContinuousListener(ctx, b)

	go b.Publish(UpdatedEvent, "/bandwidth")

	msg := listener.Listen()()
	ev, ok := msg.(Event[string])
	require.True(t, ok, "expected Event[string], got %T", msg)
	require.Equal(t, "/bandwidth", ev.Payload)
}

func TestListenCmd_NilOnCancelledContext(t *testing.T) {
	b := NewBroker[string]()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	listener := NewContinuousListener(ctx, b)
	cancel()

	require.Nil(t, listener.Listen()())
}
