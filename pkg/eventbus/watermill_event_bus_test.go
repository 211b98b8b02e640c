package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/calyptra/stateflow/pkg/channels/gochannel"
	"github.com/calyptra/stateflow/pkg/eventbus"
	"github.com/calyptra/stateflow/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillEventBus_PublishSubscribe(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NewStdLogger(false, false))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	defer func() {
		require.NoError(t, bus.Close())
	}()

	received := make(chan *events.WorkflowTransitioned, 1)

	err = bus.Handle(events.WorkflowTransitionedEvent, func(_ context.Context, event any) error {
		transitioned, ok := event.(*events.WorkflowTransitioned)
		if ok {
			received <- transitioned
		}

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	event := events.WorkflowTransitioned{
		BaseEvent: events.NewBaseEvent(events.WorkflowTransitionedEvent, "org-1", "inst-1", "def-1"),
		FromState: "draft",
		ToState:   "review",
	}
	require.NoError(t, bus.Publish(ctx, "inst-1", event))

	select {
	case got := <-received:
		assert.Equal(t, "draft", got.FromState)
		assert.Equal(t, "review", got.ToState)
		assert.Equal(t, "org-1", got.OrganizationID)
		assert.Equal(t, events.WorkflowTransitionedEvent, got.GetType())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_UnhandledTypeIsAcked(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NewStdLogger(false, false))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered for started events; publish must not block.
	event := events.WorkflowInstanceStarted{
		BaseEvent: events.NewBaseEvent(events.WorkflowInstanceStartedEvent, "org-1", "inst-1", "def-1"),
	}
	require.NoError(t, bus.Publish(ctx, "inst-1", event))

	assert.NotEmpty(t, bus.GenerateID())
}
