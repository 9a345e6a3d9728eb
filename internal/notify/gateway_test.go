package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/pkg/enums"
)

type stubNotifier struct {
	sent []Message
	err  error
}

func (s *stubNotifier) Send(ctx context.Context, message Message) error {
	s.sent = append(s.sent, message)
	return s.err
}

func TestGatewayDispatchSwallowsFailures(t *testing.T) {
	notifier := &stubNotifier{err: errors.New("inbox unavailable")}
	gateway := NewGateway(notifier, nil, nil)

	// Must not panic, return, or propagate anything.
	gateway.Dispatch(context.Background(), Message{
		Recipients: []uuid.UUID{uuid.New()},
		Type:       enums.NotificationTypeBulkUpdate,
		Title:      "t",
		Body:       "b",
	})

	if len(notifier.sent) != 1 {
		t.Fatalf("expected one send attempt, got %d", len(notifier.sent))
	}
}

func TestGatewayDispatchSkipsEmptyRecipientLists(t *testing.T) {
	notifier := &stubNotifier{}
	gateway := NewGateway(notifier, nil, nil)

	gateway.Dispatch(context.Background(), Message{
		Type:  enums.NotificationTypeBulkOpportunity,
		Title: "t",
	})

	if len(notifier.sent) != 0 {
		t.Fatalf("expected no send for empty recipients, got %d", len(notifier.sent))
	}
}

func TestGatewayDispatchSendsAllMessages(t *testing.T) {
	notifier := &stubNotifier{}
	gateway := NewGateway(notifier, nil, nil)

	gateway.Dispatch(context.Background(),
		Message{Recipients: []uuid.UUID{uuid.New()}, Type: enums.NotificationTypePickupAssigned},
		Message{Recipients: []uuid.UUID{uuid.New(), uuid.New()}, Type: enums.NotificationTypeBulkUpdate},
	)

	if len(notifier.sent) != 2 {
		t.Fatalf("expected two messages sent, got %d", len(notifier.sent))
	}
	if len(notifier.sent[1].Recipients) != 2 {
		t.Fatalf("expected recipients preserved, got %d", len(notifier.sent[1].Recipients))
	}
}
