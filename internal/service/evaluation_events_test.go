package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lab-eval-api/internal/dto"
	"github.com/noah-isme/lab-eval-api/internal/models"
)

func receive(t *testing.T, ch <-chan EvaluationEvent) EvaluationEvent {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(time.Second):
		t.Fatal("expected an evaluation event")
		return EvaluationEvent{}
	}
}

func requireSilent(t *testing.T, ch <-chan EvaluationEvent) {
	t.Helper()
	select {
	case event := <-ch:
		t.Fatalf("unexpected event %s", event.Type)
	default:
	}
}

func TestEvaluationBroadcasterRoutesByRole(t *testing.T) {
	b := NewEvaluationBroadcaster(nil, "", testLogger())

	alice, cancelAlice, err := b.Subscribe(Actor{ID: 10, Role: models.RoleStudent})
	require.NoError(t, err)
	defer cancelAlice()
	bob, cancelBob, err := b.Subscribe(Actor{ID: 11, Role: models.RoleStudent})
	require.NoError(t, err)
	defer cancelBob()
	tom, cancelTom, err := b.Subscribe(Actor{ID: 20, Role: models.RoleTA})
	require.NoError(t, err)
	defer cancelTom()
	admin, cancelAdmin, err := b.Subscribe(Actor{ID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)
	defer cancelAdmin()
	require.Equal(t, 4, b.Subscribers())

	_, _, err = b.Subscribe(Actor{ID: 2, Role: models.Role("guest")})
	require.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, b.Publish(context.Background(), EvaluationEvent{
		Type:       EvaluationCreated,
		Evaluation: dto.EvaluationResponse{ID: 5, StudentID: 10, TAID: 20},
	}))

	event := receive(t, alice)
	require.Equal(t, EvaluationCreated, event.Type)
	require.Equal(t, b.nodeID, event.Source)
	require.False(t, event.SentAt.IsZero())
	require.Equal(t, uint(5), receive(t, tom).Evaluation.ID)
	require.Equal(t, uint(5), receive(t, admin).Evaluation.ID)
	requireSilent(t, bob)
}

func TestEvaluationBroadcasterCancelClosesFeed(t *testing.T) {
	b := NewEvaluationBroadcaster(nil, "", testLogger())

	feed, cancel, err := b.Subscribe(Actor{ID: 10, Role: models.RoleStudent})
	require.NoError(t, err)
	cancel()
	cancel()

	_, open := <-feed
	require.False(t, open)
	require.Zero(t, b.Subscribers())

	require.NoError(t, b.Publish(context.Background(), EvaluationEvent{Evaluation: dto.EvaluationResponse{StudentID: 10}}))
}

func TestEvaluationBroadcasterRelaySkipsOwnEvents(t *testing.T) {
	b := NewEvaluationBroadcaster(nil, "", testLogger())
	feed, cancel, err := b.Subscribe(Actor{ID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)
	defer cancel()

	own, err := json.Marshal(EvaluationEvent{Type: EvaluationUpdated, Source: b.nodeID})
	require.NoError(t, err)
	b.relay(own)
	requireSilent(t, feed)

	remote, err := json.Marshal(EvaluationEvent{Type: EvaluationDeleted, Source: "other-node", Evaluation: dto.EvaluationResponse{ID: 9}})
	require.NoError(t, err)
	b.relay(remote)
	require.Equal(t, EvaluationDeleted, receive(t, feed).Type)

	b.relay([]byte("not json"))
	requireSilent(t, feed)
}

func TestEvaluationBroadcasterDropsForSlowSubscriber(t *testing.T) {
	b := NewEvaluationBroadcaster(nil, "", testLogger())
	feed, cancel, err := b.Subscribe(Actor{ID: 10, Role: models.RoleStudent})
	require.NoError(t, err)
	defer cancel()

	for i := 0; i < b.hub.buffer+5; i++ {
		require.NoError(t, b.Publish(context.Background(), EvaluationEvent{Evaluation: dto.EvaluationResponse{ID: uint(i + 1), StudentID: 10}}))
	}
	require.Len(t, feed, b.hub.buffer)
}
