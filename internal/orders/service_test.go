package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/isokofarm/isoko-backend/internal/listings"
	"github.com/isokofarm/isoko-backend/pkg/db/models"
	"github.com/isokofarm/isoko-backend/pkg/enums"
	pkgerrors "github.com/isokofarm/isoko-backend/pkg/errors"
	"github.com/isokofarm/isoko-backend/pkg/outbox"
	"github.com/isokofarm/isoko-backend/pkg/outbox/payloads"
	"github.com/isokofarm/isoko-backend/pkg/pagination"
)

type stubOrdersRepo struct {
	order   *models.Order
	lines   []models.OrderLine
	updates map[string]any
	listed  []models.Order
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return order, nil
}

func (s *stubOrdersRepo) CreateLines(ctx context.Context, lines []models.OrderLine) error {
	return nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrdersRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.FindByID(ctx, id)
}

func (s *stubOrdersRepo) FindLinesByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error) {
	return s.lines, nil
}

func (s *stubOrdersRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates = updates
	return nil
}

func (s *stubOrdersRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	return s.listed, nil
}

func (s *stubOrdersRepo) ListByFarmer(ctx context.Context, farmerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	return s.listed, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type stubListingsRepo struct {
	increments map[uuid.UUID]int
}

func (s *stubListingsRepo) WithTx(tx *gorm.DB) listings.Repository { return s }

func (s *stubListingsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubListingsRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Listing, error) {
	return nil, nil
}

func (s *stubListingsRepo) DecrementStock(ctx context.Context, listingID uuid.UUID, qty int) error {
	return nil
}

func (s *stubListingsRepo) IncrementStock(ctx context.Context, listingID uuid.UUID, qty int) error {
	if s.increments == nil {
		s.increments = make(map[uuid.UUID]int)
	}
	s.increments[listingID] += qty
	return nil
}

type stubIntentVoider struct {
	orderID uuid.UUID
	reason  string
	called  int
}

func (s *stubIntentVoider) VoidCreatedByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) error {
	s.called++
	s.orderID = orderID
	s.reason = reason
	return nil
}

func newTestOrderService(t *testing.T, repo *stubOrdersRepo, pub *stubOutboxPublisher, lst *stubListingsRepo, voider *stubIntentVoider) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, pub, lst, voider)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestTransitionApproveEmitsStatusChange(t *testing.T) {
	farmerID := uuid.New()
	order := &models.Order{
		ID:            uuid.New(),
		BuyerID:       uuid.New(),
		FarmerID:      farmerID,
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
	}
	repo := &stubOrdersRepo{order: order}
	pub := &stubOutboxPublisher{}
	svc := newTestOrderService(t, repo, pub, &stubListingsRepo{}, &stubIntentVoider{})

	got, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Action:  enums.OrderActionApprove,
		Actor:   ActorInput{UserID: farmerID, Role: enums.UserRoleFarmer},
	})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if got.Status != enums.OrderStatusApproved {
		t.Fatalf("expected approved, got %s", got.Status)
	}
	if _, ok := repo.updates["approved_at"]; !ok {
		t.Fatal("expected approved_at timestamp in updates")
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.events))
	}
	payload, ok := pub.events[0].Data.(payloads.OrderStatusChangedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", pub.events[0].Data)
	}
	if payload.FromStatus != enums.OrderStatusPending || payload.ToStatus != enums.OrderStatusApproved {
		t.Fatalf("unexpected status change %s -> %s", payload.FromStatus, payload.ToStatus)
	}
}

func TestTransitionDoubleApproveReturnsStateConflict(t *testing.T) {
	farmerID := uuid.New()
	order := &models.Order{
		ID:       uuid.New(),
		BuyerID:  uuid.New(),
		FarmerID: farmerID,
		Status:   enums.OrderStatusApproved,
	}
	repo := &stubOrdersRepo{order: order}
	svc := newTestOrderService(t, repo, &stubOutboxPublisher{}, &stubListingsRepo{}, &stubIntentVoider{})

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Action:  enums.OrderActionApprove,
		Actor:   ActorInput{UserID: farmerID, Role: enums.UserRoleFarmer},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestTransitionPaidOrderCannotBeCancelled(t *testing.T) {
	buyerID := uuid.New()
	order := &models.Order{
		ID:            uuid.New(),
		BuyerID:       buyerID,
		FarmerID:      uuid.New(),
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPaid,
	}
	repo := &stubOrdersRepo{order: order}
	svc := newTestOrderService(t, repo, &stubOutboxPublisher{}, &stubListingsRepo{}, &stubIntentVoider{})

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Action:  enums.OrderActionCancel,
		Actor:   ActorInput{UserID: buyerID, Role: enums.UserRoleBuyer},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestTransitionRejectRestoresStockAndVoidsIntents(t *testing.T) {
	farmerID := uuid.New()
	listingA := uuid.New()
	listingB := uuid.New()
	order := &models.Order{
		ID:            uuid.New(),
		BuyerID:       uuid.New(),
		FarmerID:      farmerID,
		Status:        enums.OrderStatusApproved,
		PaymentStatus: enums.PaymentStatusPending,
	}
	repo := &stubOrdersRepo{
		order: order,
		lines: []models.OrderLine{
			{OrderID: order.ID, ListingID: listingA, Quantity: 3},
			{OrderID: order.ID, ListingID: listingB, Quantity: 1},
		},
	}
	lst := &stubListingsRepo{}
	voider := &stubIntentVoider{}
	pub := &stubOutboxPublisher{}
	svc := newTestOrderService(t, repo, pub, lst, voider)

	got, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Action:  enums.OrderActionReject,
		Actor:   ActorInput{UserID: farmerID, Role: enums.UserRoleFarmer},
		Reason:  "crop failure",
	})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if got.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
	if got.PaymentStatus != enums.PaymentStatusCancelled {
		t.Fatalf("expected payment cancelled, got %s", got.PaymentStatus)
	}
	if lst.increments[listingA] != 3 || lst.increments[listingB] != 1 {
		t.Fatalf("stock not restored: %v", lst.increments)
	}
	if voider.called != 1 || voider.orderID != order.ID {
		t.Fatalf("expected intents voided for order, got %+v", voider)
	}
	if voider.reason != "order reject" {
		t.Fatalf("unexpected void reason %q", voider.reason)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.events))
	}
	payload := pub.events[0].Data.(payloads.OrderStatusChangedEvent)
	if payload.Reason != "crop failure" {
		t.Fatalf("reason not carried into event: %q", payload.Reason)
	}
}

func TestTransitionRoleForbidden(t *testing.T) {
	order := &models.Order{ID: uuid.New(), Status: enums.OrderStatusPending}
	repo := &stubOrdersRepo{order: order}
	svc := newTestOrderService(t, repo, &stubOutboxPublisher{}, &stubListingsRepo{}, &stubIntentVoider{})

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Action:  enums.OrderActionApprove,
		Actor:   ActorInput{UserID: uuid.New(), Role: enums.UserRoleBuyer},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestTransitionForeignOrderForbidden(t *testing.T) {
	order := &models.Order{
		ID:       uuid.New(),
		BuyerID:  uuid.New(),
		FarmerID: uuid.New(),
		Status:   enums.OrderStatusPending,
	}
	repo := &stubOrdersRepo{order: order}
	svc := newTestOrderService(t, repo, &stubOutboxPublisher{}, &stubListingsRepo{}, &stubIntentVoider{})

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Action:  enums.OrderActionApprove,
		Actor:   ActorInput{UserID: uuid.New(), Role: enums.UserRoleFarmer},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestTransitionAdminBypassesOwnership(t *testing.T) {
	order := &models.Order{
		ID:       uuid.New(),
		BuyerID:  uuid.New(),
		FarmerID: uuid.New(),
		Status:   enums.OrderStatusPending,
	}
	repo := &stubOrdersRepo{order: order}
	svc := newTestOrderService(t, repo, &stubOutboxPublisher{}, &stubListingsRepo{}, &stubIntentVoider{})

	got, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Action:  enums.OrderActionApprove,
		Actor:   ActorInput{UserID: uuid.New(), Role: enums.UserRoleAdmin},
	})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if got.Status != enums.OrderStatusApproved {
		t.Fatalf("expected approved, got %s", got.Status)
	}
}

func TestGetForbiddenForStranger(t *testing.T) {
	order := &models.Order{
		ID:       uuid.New(),
		BuyerID:  uuid.New(),
		FarmerID: uuid.New(),
	}
	repo := &stubOrdersRepo{order: order}
	svc := newTestOrderService(t, repo, &stubOutboxPublisher{}, &stubListingsRepo{}, &stubIntentVoider{})

	_, err := svc.Get(context.Background(), ActorInput{UserID: uuid.New(), Role: enums.UserRoleBuyer}, order.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestListReturnsNextCursorWhenPageIsFull(t *testing.T) {
	buyerID := uuid.New()
	rows := make([]models.Order, 0, pagination.DefaultLimit+1)
	for i := 0; i < pagination.DefaultLimit+1; i++ {
		rows = append(rows, models.Order{ID: uuid.New(), BuyerID: buyerID})
	}
	repo := &stubOrdersRepo{listed: rows}
	svc := newTestOrderService(t, repo, &stubOutboxPublisher{}, &stubListingsRepo{}, &stubIntentVoider{})

	got, next, err := svc.List(context.Background(), ActorInput{UserID: buyerID, Role: enums.UserRoleBuyer}, pagination.Params{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != pagination.DefaultLimit {
		t.Fatalf("expected %d rows, got %d", pagination.DefaultLimit, len(got))
	}
	if next == "" {
		t.Fatal("expected next cursor")
	}
}
