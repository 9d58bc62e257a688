package notifications

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/google/uuid"

	"github.com/isokofarm/isoko-backend/pkg/db/models"
	"github.com/isokofarm/isoko-backend/pkg/enums"
	"github.com/isokofarm/isoko-backend/pkg/logger"
	"github.com/isokofarm/isoko-backend/pkg/outbox/payloads"
)

type stubNotificationRepo struct {
	created []*models.Notification
}

func (s *stubNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	s.created = append(s.created, notification)
	return nil
}

type stubAdminLister struct {
	ids []uuid.UUID
}

func (s *stubAdminLister) ListAdminIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.ids, nil
}

func newTestConsumer(repo *stubNotificationRepo, admins *stubAdminLister) *Consumer {
	return &Consumer{
		repo:   repo,
		admins: admins,
		logg:   logger.New(logger.Options{ServiceName: "consumer-test", Output: io.Discard}),
	}
}

func mustPayload(t *testing.T, payload any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func TestHandleOrderCreatedNotifiesFarmer(t *testing.T) {
	repo := &stubNotificationRepo{}
	consumer := newTestConsumer(repo, &stubAdminLister{})
	ctx := context.Background()

	eventID := uuid.New()
	farmerID := uuid.New()
	data := mustPayload(t, payloads.OrderCreatedEvent{
		OrderID:   uuid.New(),
		BuyerID:   uuid.New(),
		FarmerID:  farmerID,
		LineCount: 2,
	})

	if err := consumer.handleEvent(ctx, enums.EventOrderCreated, eventID, data, ctx); err != nil {
		t.Fatalf("handleEvent: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one notification, got %d", len(repo.created))
	}
	note := repo.created[0]
	if note.RecipientID != farmerID {
		t.Fatal("farmer should be the recipient")
	}
	if note.Type != enums.NotificationTypeOrderCreated {
		t.Fatalf("unexpected type %s", note.Type)
	}
	if note.Title != "New order received" {
		t.Fatalf("unexpected title %q", note.Title)
	}
	if note.EventID != eventID {
		t.Fatal("event id not carried onto notification")
	}
}

func TestHandleCancellationFansOutToAdmins(t *testing.T) {
	repo := &stubNotificationRepo{}
	adminA := uuid.New()
	adminB := uuid.New()
	consumer := newTestConsumer(repo, &stubAdminLister{ids: []uuid.UUID{adminA, adminB}})
	ctx := context.Background()

	buyerID := uuid.New()
	data := mustPayload(t, payloads.OrderStatusChangedEvent{
		OrderID:    uuid.New(),
		BuyerID:    buyerID,
		FarmerID:   uuid.New(),
		Action:     enums.OrderActionReject,
		FromStatus: enums.OrderStatusPending,
		ToStatus:   enums.OrderStatusCancelled,
		Reason:     "out of season",
	})

	if err := consumer.handleEvent(ctx, enums.EventOrderStatusChanged, uuid.New(), data, ctx); err != nil {
		t.Fatalf("handleEvent: %v", err)
	}
	if len(repo.created) != 3 {
		t.Fatalf("expected buyer plus two admin notifications, got %d", len(repo.created))
	}
	if repo.created[0].RecipientID != buyerID {
		t.Fatal("buyer notification must come first")
	}
	if repo.created[0].Message != "Your order was cancelled. Reason: out of season" {
		t.Fatalf("unexpected buyer message %q", repo.created[0].Message)
	}
	for _, note := range repo.created[1:] {
		if note.RecipientRole != enums.UserRoleAdmin {
			t.Fatalf("expected admin recipient, got %s", note.RecipientRole)
		}
		if note.Type != enums.NotificationTypeOrderCancelled {
			t.Fatalf("unexpected admin type %s", note.Type)
		}
	}
}

func TestHandleForwardStatusSkipsAdmins(t *testing.T) {
	repo := &stubNotificationRepo{}
	consumer := newTestConsumer(repo, &stubAdminLister{ids: []uuid.UUID{uuid.New()}})
	ctx := context.Background()

	data := mustPayload(t, payloads.OrderStatusChangedEvent{
		OrderID:    uuid.New(),
		BuyerID:    uuid.New(),
		FarmerID:   uuid.New(),
		Action:     enums.OrderActionShip,
		FromStatus: enums.OrderStatusApproved,
		ToStatus:   enums.OrderStatusShipped,
	})

	if err := consumer.handleEvent(ctx, enums.EventOrderStatusChanged, uuid.New(), data, ctx); err != nil {
		t.Fatalf("handleEvent: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected only the buyer notification, got %d", len(repo.created))
	}
	if repo.created[0].Type != enums.NotificationTypeOrderShipped {
		t.Fatalf("unexpected type %s", repo.created[0].Type)
	}
}

func TestHandleOrderPaidNotifiesBuyerAndFarmer(t *testing.T) {
	repo := &stubNotificationRepo{}
	consumer := newTestConsumer(repo, &stubAdminLister{})
	ctx := context.Background()

	buyerID := uuid.New()
	farmerID := uuid.New()
	data := mustPayload(t, payloads.OrderPaidEvent{
		OrderID:         uuid.New(),
		BuyerID:         buyerID,
		FarmerID:        farmerID,
		PaymentIntentID: uuid.New(),
		AmountCents:     4500,
	})

	if err := consumer.handleEvent(ctx, enums.EventOrderPaid, uuid.New(), data, ctx); err != nil {
		t.Fatalf("handleEvent: %v", err)
	}
	if len(repo.created) != 2 {
		t.Fatalf("expected buyer and farmer notifications, got %d", len(repo.created))
	}
	buyerNotes := 0
	for _, note := range repo.created {
		if note.Type != enums.NotificationTypeOrderPaid {
			t.Fatalf("unexpected type %s", note.Type)
		}
		if note.RecipientID == buyerID {
			buyerNotes++
			if note.RecipientRole != enums.UserRoleBuyer {
				t.Fatalf("buyer note has role %s", note.RecipientRole)
			}
		}
	}
	if buyerNotes != 1 {
		t.Fatalf("expected exactly one buyer notification, got %d", buyerNotes)
	}
	if repo.created[1].RecipientID != farmerID {
		t.Fatal("farmer should also be notified")
	}
}

func TestHandleUnknownEventTypeIsNoop(t *testing.T) {
	repo := &stubNotificationRepo{}
	consumer := newTestConsumer(repo, &stubAdminLister{})
	ctx := context.Background()

	if err := consumer.handleEvent(ctx, enums.OutboxEventType("order.archived"), uuid.New(), nil, ctx); err != nil {
		t.Fatalf("handleEvent: %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatal("no notification expected for unhandled events")
	}
}
