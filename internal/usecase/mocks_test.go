package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"casepay/internal/domain/entity"
	"casepay/internal/domain/repository"
	"casepay/internal/domain/service"
)

// memStore backs the fake repositories. Conditional updates take the same
// lock, so they behave like single-row CAS statements.
type memStore struct {
	mu       sync.Mutex
	cases    map[uint]*entity.Case
	payments map[uint]*entity.Payment
	events   map[uint]*entity.WebhookEvent
	nextID   uint

	// failMarkFeesPaid makes the payment-driven case update fail, leaving a
	// torn write behind.
	failMarkFeesPaid error
	failPaymentRead  error
}

func newMemStore() *memStore {
	return &memStore{
		cases:    make(map[uint]*entity.Case),
		payments: make(map[uint]*entity.Payment),
		events:   make(map[uint]*entity.WebhookEvent),
	}
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *memStore) addCase(c *entity.Case) *entity.Case {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	cp := *c
	s.cases[c.ID] = &cp
	return c
}

func (s *memStore) addPayment(p *entity.Payment) *entity.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id()
	cp := *p
	s.payments[p.ID] = &cp
	return p
}

func (s *memStore) caseByID(id uint) entity.Case {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.cases[id]
}

func (s *memStore) paymentByOrder(orderID string) entity.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.OrderID == orderID {
			return *p
		}
	}
	return entity.Payment{}
}

func (s *memStore) paymentsForCase(caseID uint, status entity.PaymentStatus) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.payments {
		if p.CaseID != nil && *p.CaseID == caseID && p.Status == status {
			n++
		}
	}
	return n
}

type fakeCaseRepo struct{ s *memStore }

func (r *fakeCaseRepo) Create(ctx context.Context, c *entity.Case) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.cases {
		if existing.CaseNumber == c.CaseNumber {
			return repository.ErrDuplicate
		}
	}
	c.ID = r.s.id()
	cp := *c
	r.s.cases[c.ID] = &cp
	return nil
}

func (r *fakeCaseRepo) GetByID(ctx context.Context, id uint) (*entity.Case, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.cases[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCaseRepo) TransitionStatus(ctx context.Context, id uint, from, to entity.CaseStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.cases[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}

func (r *fakeCaseRepo) MarkFeesPaid(ctx context.Context, id uint, amount float64, paidAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failMarkFeesPaid != nil {
		return false, r.s.failMarkFeesPaid
	}
	return r.s.markFeesPaidLocked(id, amount, paidAt), nil
}

func (s *memStore) markFeesPaidLocked(id uint, amount float64, paidAt time.Time) bool {
	c, ok := s.cases[id]
	if !ok || c.Status != entity.CaseStatusPendingPayment {
		return false
	}
	c.Status = entity.CaseStatusWaitingForAction
	c.FeesPaid = amount
	c.PaidAt = &paidAt
	return true
}

type fakePaymentRepo struct{ s *memStore }

func (r *fakePaymentRepo) Create(ctx context.Context, p *entity.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.payments {
		if existing.OrderID == p.OrderID {
			return repository.ErrDuplicate
		}
		if p.Status == entity.PaymentStatusPending && p.CaseID != nil &&
			existing.Status == entity.PaymentStatusPending && existing.CaseID != nil && *existing.CaseID == *p.CaseID {
			return repository.ErrDuplicate
		}
	}
	p.ID = r.s.id()
	cp := *p
	r.s.payments[p.ID] = &cp
	return nil
}

func (r *fakePaymentRepo) GetPendingByCaseID(ctx context.Context, caseID uint) (*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.CaseID != nil && *p.CaseID == caseID && p.Status == entity.PaymentStatusPending {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePaymentRepo) GetByOrderID(ctx context.Context, orderID string) (*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failPaymentRead != nil {
		return nil, r.s.failPaymentRead
	}
	for _, p := range r.s.payments {
		if p.OrderID == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePaymentRepo) List(ctx context.Context, filter repository.PaymentFilter, limit, offset int) ([]*entity.Payment, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Payment
	for _, p := range r.s.payments {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.UserID != "" && p.UserID != filter.UserID {
			continue
		}
		if filter.CaseID != nil && (p.CaseID == nil || *p.CaseID != *filter.CaseID) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (r *fakePaymentRepo) CompleteIfPending(ctx context.Context, id uint, gatewayPaymentID, method string, completedAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok || p.Status != entity.PaymentStatusPending {
		return false, nil
	}
	p.Status = entity.PaymentStatusCompleted
	p.GatewayPaymentID = &gatewayPaymentID
	p.PaymentMethod = method
	p.CompletedAt = &completedAt
	return true, nil
}

func (r *fakePaymentRepo) FailIfPending(ctx context.Context, id uint, gatewayPaymentID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok || p.Status != entity.PaymentStatusPending {
		return false, nil
	}
	p.Status = entity.PaymentStatusFailed
	if gatewayPaymentID != "" {
		p.GatewayPaymentID = &gatewayPaymentID
	}
	return true, nil
}

func (r *fakePaymentRepo) CreateManualCompletion(ctx context.Context, p *entity.Payment, paidAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.s.markFeesPaidLocked(*p.CaseID, p.Amount, paidAt) {
		return false, nil
	}
	for _, open := range r.s.payments {
		if open.CaseID != nil && *open.CaseID == *p.CaseID && open.Status == entity.PaymentStatusPending {
			open.Status = entity.PaymentStatusFailed
		}
	}
	p.ID = r.s.id()
	cp := *p
	r.s.payments[p.ID] = &cp
	return true, nil
}

func (r *fakePaymentRepo) ListTornWrites(ctx context.Context, limit int) ([]*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Payment
	for _, p := range r.s.payments {
		if p.Status != entity.PaymentStatusCompleted || p.CaseID == nil {
			continue
		}
		if c, ok := r.s.cases[*p.CaseID]; ok && c.Status == entity.CaseStatusPendingPayment {
			cp := *p
			out = append(out, &cp)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeWebhookEventRepo struct{ s *memStore }

func (r *fakeWebhookEventRepo) Create(ctx context.Context, e *entity.WebhookEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e.EventID != nil {
		for _, existing := range r.s.events {
			if existing.EventID != nil && *existing.EventID == *e.EventID {
				return repository.ErrDuplicate
			}
		}
	}
	e.ID = r.s.id()
	cp := *e
	r.s.events[e.ID] = &cp
	return nil
}

func (r *fakeWebhookEventRepo) Update(ctx context.Context, e *entity.WebhookEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[e.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *e
	r.s.events[e.ID] = &cp
	return nil
}

func (r *fakeWebhookEventRepo) GetByEventID(ctx context.Context, eventID string) (*entity.WebhookEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.events {
		if e.EventID != nil && *e.EventID == eventID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) recordedEvents() []entity.WebhookEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.WebhookEvent
	for _, e := range s.events {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) eventsWithOutcome(outcome entity.WebhookOutcome) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.Outcome == outcome {
			n++
		}
	}
	return n
}

type fakePublisher struct {
	mu     sync.Mutex
	events []service.CaseEvent
	err    error
}

func (p *fakePublisher) PublishCaseEvent(ctx context.Context, event service.CaseEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *fakePublisher) ofType(eventType string) []service.CaseEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []service.CaseEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []service.GatewayOrderRequest
	err      error
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req service.GatewayOrderRequest) (*service.GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.requests = append(g.requests, req)
	return &service.GatewayOrder{
		ID:       "order_" + req.Receipt,
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

var errStoreDown = errors.New("connection refused")

const (
	testKeySecret     = "key_secret"
	testWebhookSecret = "webhook_secret"
	testCurrency      = "INR"
	testDefaultFee    = 1000.0
)

// fixture wires every use case against one memStore.
type fixture struct {
	store        *memStore
	publisher    *fakePublisher
	gateway      *fakeGateway
	reconciler   *ReconcilerUseCase
	orders       *OrderUseCase
	verification *VerificationUseCase
	webhooks     *WebhookUseCase
	cases        *CaseUseCase
}

func newFixture() *fixture {
	store := newMemStore()
	publisher := &fakePublisher{}
	gateway := &fakeGateway{}
	caseRepo := &fakeCaseRepo{s: store}
	paymentRepo := &fakePaymentRepo{s: store}
	verifier := service.NewSignatureVerifier(testKeySecret, testWebhookSecret)

	reconciler := NewReconcilerUseCase(caseRepo, paymentRepo, publisher, nil, testDefaultFee, testCurrency)
	orders, err := NewOrderUseCase(caseRepo, paymentRepo, gateway, nil, testCurrency, testDefaultFee)
	if err != nil {
		panic(err)
	}

	return &fixture{
		store:        store,
		publisher:    publisher,
		gateway:      gateway,
		reconciler:   reconciler,
		orders:       orders,
		verification: NewVerificationUseCase(paymentRepo, verifier, reconciler, nil),
		webhooks:     NewWebhookUseCase(paymentRepo, &fakeWebhookEventRepo{s: store}, verifier, reconciler, nil),
		cases:        NewCaseUseCase(caseRepo, service.NewDefaultFeeCalculator(), publisher, nil),
	}
}

// pendingCase seeds a case awaiting its fee and an order for it.
func (f *fixture) pendingCase(requester string, fees float64) (*entity.Case, *entity.Payment) {
	c := f.store.addCase(&entity.Case{
		CaseNumber:  "ODR-" + requester,
		RequesterID: requester,
		Fees:        fees,
		Status:      entity.CaseStatusPendingPayment,
	})
	caseID := c.ID
	p := f.store.addPayment(&entity.Payment{
		OrderID:  "order_" + requester,
		Amount:   fees,
		Currency: testCurrency,
		Status:   entity.PaymentStatusPending,
		CaseID:   &caseID,
		UserID:   requester,
	})
	return c, p
}

func checkoutSignature(orderID, paymentID string) string {
	return service.Sign([]byte(testKeySecret), []byte(orderID+"|"+paymentID))
}

func webhookSignature(body []byte) string {
	return service.Sign([]byte(testWebhookSecret), body)
}
