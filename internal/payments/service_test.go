package payments

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/isokofarm/isoko-backend/internal/orders"
	"github.com/isokofarm/isoko-backend/pkg/db/models"
	"github.com/isokofarm/isoko-backend/pkg/enums"
	pkgerrors "github.com/isokofarm/isoko-backend/pkg/errors"
	"github.com/isokofarm/isoko-backend/pkg/logger"
	"github.com/isokofarm/isoko-backend/pkg/outbox"
	"github.com/isokofarm/isoko-backend/pkg/outbox/payloads"
	"github.com/isokofarm/isoko-backend/pkg/pagination"
)

type stubIntentRepo struct {
	byRef       *models.PaymentIntent
	outstanding *models.PaymentIntent
	created     *models.PaymentIntent
	intents     []models.PaymentIntent
	updates     map[string]any
	failed      int64
	failReason  string
}

func (s *stubIntentRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubIntentRepo) Create(ctx context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error) {
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	s.created = intent
	return intent, nil
}

func (s *stubIntentRepo) FindByOrderAndRef(ctx context.Context, orderID uuid.UUID, externalRef string) (*models.PaymentIntent, error) {
	if s.byRef != nil && s.byRef.OrderID == orderID && s.byRef.ExternalRef == externalRef {
		return s.byRef, nil
	}
	return nil, nil
}

func (s *stubIntentRepo) FindOutstandingByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentIntent, error) {
	return s.outstanding, nil
}

func (s *stubIntentRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates = updates
	return nil
}

func (s *stubIntentRepo) FailCreatedByOrder(ctx context.Context, orderID uuid.UUID, reason string) (int64, error) {
	s.failReason = reason
	return s.failed, nil
}

func (s *stubIntentRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentIntent, error) {
	return s.intents, nil
}

type stubOrderRepo struct {
	order   *models.Order
	updates map[string]any
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrderRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}

func (s *stubOrderRepo) CreateLines(ctx context.Context, lines []models.OrderLine) error { return nil }

func (s *stubOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrderRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.FindByID(ctx, id)
}

func (s *stubOrderRepo) FindLinesByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderLine, error) {
	return nil, nil
}

func (s *stubOrderRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates = updates
	return nil
}

func (s *stubOrderRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	return nil, nil
}

func (s *stubOrderRepo) ListByFarmer(ctx context.Context, farmerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	return nil, nil
}

type stubProcessor struct {
	created       ProcessorIntent
	retrieved     ProcessorIntent
	createErr     error
	retrieveErr   error
	calls         int
	retrieveCalls int
	cancelled     []string
}

func (s *stubProcessor) CreateIntent(ctx context.Context, amountCents int64, currency, orderID string) (ProcessorIntent, error) {
	s.calls++
	if s.createErr != nil {
		return ProcessorIntent{}, s.createErr
	}
	return s.created, nil
}

func (s *stubProcessor) RetrieveIntent(ctx context.Context, externalRef string) (ProcessorIntent, error) {
	s.retrieveCalls++
	if s.retrieveErr != nil {
		return ProcessorIntent{}, s.retrieveErr
	}
	return s.retrieved, nil
}

func (s *stubProcessor) CancelIntent(ctx context.Context, externalRef string) error {
	s.cancelled = append(s.cancelled, externalRef)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func newTestPaymentsService(t *testing.T, repo *stubIntentRepo, orderRepo *stubOrderRepo, processor *stubProcessor, pub *stubOutboxPublisher) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard})
	svc, err := NewService(repo, orderRepo, processor, stubTxRunner{}, pub, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func shippedOrder(buyerID uuid.UUID) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		BuyerID:       buyerID,
		FarmerID:      uuid.New(),
		Status:        enums.OrderStatusShipped,
		PaymentStatus: enums.PaymentStatusPending,
		TotalCents:    4500,
	}
}

func TestCreateIntentRegistersWithProcessor(t *testing.T) {
	buyerID := uuid.New()
	order := shippedOrder(buyerID)
	repo := &stubIntentRepo{}
	processor := &stubProcessor{created: ProcessorIntent{
		ExternalRef:  "pi_123",
		ClientSecret: "pi_123_secret",
		Status:       "requires_payment_method",
	}}
	svc := newTestPaymentsService(t, repo, &stubOrderRepo{order: order}, processor, &stubOutboxPublisher{})

	intent, err := svc.CreateIntent(context.Background(), IntentInput{OrderID: order.ID, BuyerID: buyerID})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if intent.ExternalRef != "pi_123" {
		t.Fatalf("unexpected external ref %q", intent.ExternalRef)
	}
	if intent.AmountCents != order.TotalCents {
		t.Fatalf("expected amount %d, got %d", order.TotalCents, intent.AmountCents)
	}
	if intent.ClientSecret == nil || *intent.ClientSecret != "pi_123_secret" {
		t.Fatal("client secret not stored")
	}
	if repo.created == nil {
		t.Fatal("intent row not persisted")
	}
}

func TestCreateIntentReusesOutstanding(t *testing.T) {
	buyerID := uuid.New()
	order := shippedOrder(buyerID)
	existing := &models.PaymentIntent{
		ID:          uuid.New(),
		OrderID:     order.ID,
		Status:      enums.PaymentIntentStatusCreated,
		ExternalRef: "pi_existing",
	}
	repo := &stubIntentRepo{outstanding: existing}
	processor := &stubProcessor{}
	svc := newTestPaymentsService(t, repo, &stubOrderRepo{order: order}, processor, &stubOutboxPublisher{})

	intent, err := svc.CreateIntent(context.Background(), IntentInput{OrderID: order.ID, BuyerID: buyerID})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if intent.ID != existing.ID {
		t.Fatal("expected outstanding intent reused")
	}
	if processor.calls != 0 {
		t.Fatalf("processor should not be called, got %d calls", processor.calls)
	}
}

func TestCreateIntentRequiresShippedUnpaidOrder(t *testing.T) {
	buyerID := uuid.New()
	order := shippedOrder(buyerID)
	order.Status = enums.OrderStatusApproved
	svc := newTestPaymentsService(t, &stubIntentRepo{}, &stubOrderRepo{order: order}, &stubProcessor{}, &stubOutboxPublisher{})

	_, err := svc.CreateIntent(context.Background(), IntentInput{OrderID: order.ID, BuyerID: buyerID})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCreateIntentForeignOrderForbidden(t *testing.T) {
	order := shippedOrder(uuid.New())
	svc := newTestPaymentsService(t, &stubIntentRepo{}, &stubOrderRepo{order: order}, &stubProcessor{}, &stubOutboxPublisher{})

	_, err := svc.CreateIntent(context.Background(), IntentInput{OrderID: order.ID, BuyerID: uuid.New()})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestConfirmUnknownReferenceIsPaymentMismatch(t *testing.T) {
	buyerID := uuid.New()
	order := shippedOrder(buyerID)
	svc := newTestPaymentsService(t, &stubIntentRepo{}, &stubOrderRepo{order: order}, &stubProcessor{}, &stubOutboxPublisher{})

	_, err := svc.Confirm(context.Background(), ConfirmInput{
		OrderID:     order.ID,
		ExternalRef: "pi_unknown",
		BuyerID:     buyerID,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodePaymentMismatch) {
		t.Fatalf("expected payment mismatch, got %v", err)
	}
}

func TestConfirmProcessorNotSucceededRecordsFailure(t *testing.T) {
	buyerID := uuid.New()
	order := shippedOrder(buyerID)
	intent := &models.PaymentIntent{
		ID:          uuid.New(),
		OrderID:     order.ID,
		Status:      enums.PaymentIntentStatusCreated,
		AmountCents: order.TotalCents,
		ExternalRef: "pi_123",
	}
	repo := &stubIntentRepo{byRef: intent}
	processor := &stubProcessor{retrieved: ProcessorIntent{ExternalRef: "pi_123", Status: ProcessorStatusCanceled}}
	pub := &stubOutboxPublisher{}
	svc := newTestPaymentsService(t, repo, &stubOrderRepo{order: order}, processor, pub)

	_, err := svc.Confirm(context.Background(), ConfirmInput{
		OrderID:     order.ID,
		ExternalRef: "pi_123",
		BuyerID:     buyerID,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodePaymentMismatch) {
		t.Fatalf("expected payment mismatch, got %v", err)
	}
	if repo.updates["failure_reason"] != "processor status canceled" {
		t.Fatalf("failure reason not recorded: %v", repo.updates)
	}
	if repo.updates["status"] != enums.PaymentIntentStatusFailed {
		t.Fatalf("cancelled processor intent must fail the record: %v", repo.updates)
	}
	if len(pub.events) != 0 {
		t.Fatal("no event should be emitted on mismatch")
	}
}

func TestConfirmSuccessMarksOrderPaid(t *testing.T) {
	buyerID := uuid.New()
	order := shippedOrder(buyerID)
	intent := &models.PaymentIntent{
		ID:          uuid.New(),
		OrderID:     order.ID,
		Status:      enums.PaymentIntentStatusCreated,
		AmountCents: order.TotalCents,
		ExternalRef: "pi_123",
	}
	repo := &stubIntentRepo{byRef: intent}
	orderRepo := &stubOrderRepo{order: order}
	processor := &stubProcessor{retrieved: ProcessorIntent{ExternalRef: "pi_123", Status: ProcessorStatusSucceeded}}
	pub := &stubOutboxPublisher{}
	svc := newTestPaymentsService(t, repo, orderRepo, processor, pub)

	got, err := svc.Confirm(context.Background(), ConfirmInput{
		OrderID:     order.ID,
		ExternalRef: "pi_123",
		BuyerID:     buyerID,
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if got.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", got.PaymentStatus)
	}
	if got.PaidAt == nil {
		t.Fatal("paid_at not set")
	}
	if repo.updates["status"] != enums.PaymentIntentStatusSucceeded {
		t.Fatalf("intent not marked succeeded: %v", repo.updates)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.events))
	}
	payload, ok := pub.events[0].Data.(payloads.OrderPaidEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", pub.events[0].Data)
	}
	if payload.AmountCents != intent.AmountCents {
		t.Fatalf("expected amount %d, got %d", intent.AmountCents, payload.AmountCents)
	}
}

func TestConfirmAlreadyPaidIsIdempotent(t *testing.T) {
	buyerID := uuid.New()
	order := shippedOrder(buyerID)
	order.PaymentStatus = enums.PaymentStatusPaid
	intent := &models.PaymentIntent{
		ID:          uuid.New(),
		OrderID:     order.ID,
		Status:      enums.PaymentIntentStatusSucceeded,
		ExternalRef: "pi_123",
	}
	repo := &stubIntentRepo{byRef: intent}
	processor := &stubProcessor{retrieved: ProcessorIntent{ExternalRef: "pi_123", Status: ProcessorStatusSucceeded}}
	pub := &stubOutboxPublisher{}
	svc := newTestPaymentsService(t, repo, &stubOrderRepo{order: order}, processor, pub)

	got, err := svc.Confirm(context.Background(), ConfirmInput{
		OrderID:     order.ID,
		ExternalRef: "pi_123",
		BuyerID:     buyerID,
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if got.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", got.PaymentStatus)
	}
	if len(pub.events) != 0 {
		t.Fatal("re-confirm must not emit a second event")
	}
}

func TestConfirmAlreadyPaidSkipsProcessor(t *testing.T) {
	buyerID := uuid.New()
	order := shippedOrder(buyerID)
	order.PaymentStatus = enums.PaymentStatusPaid
	intent := &models.PaymentIntent{
		ID:          uuid.New(),
		OrderID:     order.ID,
		Status:      enums.PaymentIntentStatusSucceeded,
		ExternalRef: "pi_123",
	}
	repo := &stubIntentRepo{byRef: intent}
	processor := &stubProcessor{retrieveErr: errors.New("processor unreachable")}
	pub := &stubOutboxPublisher{}
	svc := newTestPaymentsService(t, repo, &stubOrderRepo{order: order}, processor, pub)

	got, err := svc.Confirm(context.Background(), ConfirmInput{
		OrderID:     order.ID,
		ExternalRef: "pi_123",
		BuyerID:     buyerID,
	})
	if err != nil {
		t.Fatalf("Confirm on paid order must not reach the processor: %v", err)
	}
	if got.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", got.PaymentStatus)
	}
	if processor.retrieveCalls != 0 {
		t.Fatalf("processor queried %d times for a paid order", processor.retrieveCalls)
	}
	if len(pub.events) != 0 {
		t.Fatal("re-confirm must not emit a second event")
	}
}

func TestVoidCreatedByOrderLogsOnlyWhenRowsChange(t *testing.T) {
	repo := &stubIntentRepo{failed: 2}
	svc := newTestPaymentsService(t, repo, &stubOrderRepo{}, &stubProcessor{}, &stubOutboxPublisher{})

	if err := svc.VoidCreatedByOrder(context.Background(), nil, uuid.New(), "order reject"); err != nil {
		t.Fatalf("VoidCreatedByOrder: %v", err)
	}
	if repo.failReason != "order reject" {
		t.Fatalf("unexpected reason %q", repo.failReason)
	}
}

func TestVoidCreatedByOrderCancelsProcessorIntents(t *testing.T) {
	orderID := uuid.New()
	repo := &stubIntentRepo{
		failed: 1,
		intents: []models.PaymentIntent{
			{ID: uuid.New(), OrderID: orderID, Status: enums.PaymentIntentStatusCreated, ExternalRef: "pi_open"},
			{ID: uuid.New(), OrderID: orderID, Status: enums.PaymentIntentStatusFailed, ExternalRef: "pi_failed"},
			{ID: uuid.New(), OrderID: orderID, Status: enums.PaymentIntentStatusCreated},
		},
	}
	processor := &stubProcessor{}
	svc := newTestPaymentsService(t, repo, &stubOrderRepo{}, processor, &stubOutboxPublisher{})

	if err := svc.VoidCreatedByOrder(context.Background(), nil, orderID, "order reject"); err != nil {
		t.Fatalf("VoidCreatedByOrder: %v", err)
	}
	if len(processor.cancelled) != 1 || processor.cancelled[0] != "pi_open" {
		t.Fatalf("expected only the open referenced intent cancelled, got %v", processor.cancelled)
	}
}

func TestVoidCreatedByOrderSkipsProcessorWhenNothingVoided(t *testing.T) {
	orderID := uuid.New()
	repo := &stubIntentRepo{
		intents: []models.PaymentIntent{
			{ID: uuid.New(), OrderID: orderID, Status: enums.PaymentIntentStatusFailed, ExternalRef: "pi_failed"},
		},
	}
	processor := &stubProcessor{}
	svc := newTestPaymentsService(t, repo, &stubOrderRepo{}, processor, &stubOutboxPublisher{})

	if err := svc.VoidCreatedByOrder(context.Background(), nil, orderID, "order reject"); err != nil {
		t.Fatalf("VoidCreatedByOrder: %v", err)
	}
	if len(processor.cancelled) != 0 {
		t.Fatalf("no cancellations expected, got %v", processor.cancelled)
	}
}
