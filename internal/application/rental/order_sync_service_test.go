package rental

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	refundapp "github.com/rentio/backend/internal/application/refund"
	"github.com/rentio/backend/internal/domain/dispute"
	"github.com/rentio/backend/internal/domain/refund"
	"github.com/rentio/backend/internal/domain/rental"
	"github.com/rentio/backend/internal/domain/shared"
)

// MockOrderRepository is a mock implementation of rental.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*rental.RentalOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rental.RentalOrder), args.Error(1)
}

func (m *MockOrderRepository) FindIDsByStatus(ctx context.Context, status rental.OrderStatus) ([]uuid.UUID, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockOrderRepository) SaveWithLock(ctx context.Context, order *rental.RentalOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

var _ rental.OrderRepository = (*MockOrderRepository)(nil)

// MockViolationCaseRepository is a mock implementation of ViolationCaseRepository
type MockViolationCaseRepository struct {
	mock.Mock
}

func (m *MockViolationCaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*dispute.ViolationCase, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispute.ViolationCase), args.Error(1)
}

func (m *MockViolationCaseRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]dispute.ViolationCase, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dispute.ViolationCase), args.Error(1)
}

func (m *MockViolationCaseRepository) FindOpenByOrderItem(ctx context.Context, orderItemID uuid.UUID) (*dispute.ViolationCase, error) {
	args := m.Called(ctx, orderItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dispute.ViolationCase), args.Error(1)
}

func (m *MockViolationCaseRepository) FindByStatus(ctx context.Context, status dispute.CaseStatus, filter shared.Filter) ([]dispute.ViolationCase, error) {
	args := m.Called(ctx, status, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dispute.ViolationCase), args.Error(1)
}

func (m *MockViolationCaseRepository) CountByStatus(ctx context.Context, status dispute.CaseStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockViolationCaseRepository) Save(ctx context.Context, vc *dispute.ViolationCase) error {
	args := m.Called(ctx, vc)
	return args.Error(0)
}

func (m *MockViolationCaseRepository) SaveWithLock(ctx context.Context, vc *dispute.ViolationCase) error {
	args := m.Called(ctx, vc)
	return args.Error(0)
}

func (m *MockViolationCaseRepository) AddEvidence(ctx context.Context, ev *dispute.ViolationEvidence) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

var _ dispute.ViolationCaseRepository = (*MockViolationCaseRepository)(nil)

// MockDepositRefundRepository is a mock implementation of DepositRefundRepository
type MockDepositRefundRepository struct {
	mock.Mock
}

func (m *MockDepositRefundRepository) FindByID(ctx context.Context, id uuid.UUID) (*refund.DepositRefund, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*refund.DepositRefund), args.Error(1)
}

func (m *MockDepositRefundRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*refund.DepositRefund, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*refund.DepositRefund), args.Error(1)
}

func (m *MockDepositRefundRepository) FindAll(ctx context.Context, filter shared.Filter) ([]refund.DepositRefund, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]refund.DepositRefund), args.Error(1)
}

func (m *MockDepositRefundRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]refund.DepositRefund, error) {
	args := m.Called(ctx, customerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]refund.DepositRefund), args.Error(1)
}

func (m *MockDepositRefundRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDepositRefundRepository) CountByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, customerID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDepositRefundRepository) CountByStatus(ctx context.Context, status refund.RefundStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDepositRefundRepository) Create(ctx context.Context, dr *refund.DepositRefund) error {
	args := m.Called(ctx, dr)
	return args.Error(0)
}

func (m *MockDepositRefundRepository) SaveWithLock(ctx context.Context, dr *refund.DepositRefund) error {
	args := m.Called(ctx, dr)
	return args.Error(0)
}

var _ refund.DepositRefundRepository = (*MockDepositRefundRepository)(nil)

type syncFixture struct {
	orderRepo  *MockOrderRepository
	caseRepo   *MockViolationCaseRepository
	refundRepo *MockDepositRefundRepository
	service    *OrderSyncService
}

func newSyncFixture() *syncFixture {
	orderRepo := new(MockOrderRepository)
	caseRepo := new(MockViolationCaseRepository)
	refundRepo := new(MockDepositRefundRepository)
	calculator := refundapp.NewCalculatorService(refundRepo, caseRepo, orderRepo)
	service := NewOrderSyncService(orderRepo, caseRepo, calculator, zap.NewNop())
	return &syncFixture{
		orderRepo:  orderRepo,
		caseRepo:   caseRepo,
		refundRepo: refundRepo,
		service:    service,
	}
}

func disputedOrder(deposit int64) *rental.RentalOrder {
	return &rental.RentalOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       "RO-2026-000007",
		CustomerID:        uuid.New(),
		ProviderID:        uuid.New(),
		Status:            rental.OrderStatusReturnedWithIssue,
		DepositAmount:     decimal.NewFromInt(deposit),
	}
}

func terminalCase(t *testing.T, orderID uuid.UUID, penalty int64) dispute.ViolationCase {
	t.Helper()
	vc, err := dispute.NewViolationCase(orderID, uuid.New(), uuid.New(),
		dispute.ViolationTypeDamaged, "damage", nil,
		decimal.Zero, decimal.NewFromInt(penalty), decimal.NewFromInt(penalty*10))
	require.NoError(t, err)
	require.NoError(t, vc.AcceptByCustomer(""))
	return *vc
}

func openCase(t *testing.T, orderID uuid.UUID) dispute.ViolationCase {
	t.Helper()
	vc, err := dispute.NewViolationCase(orderID, uuid.New(), uuid.New(),
		dispute.ViolationTypeDamaged, "open claim", nil,
		decimal.Zero, decimal.NewFromInt(10000), decimal.NewFromInt(100000))
	require.NoError(t, err)
	return *vc
}

func TestResolveOrderWithViolations(t *testing.T) {
	ctx := context.Background()

	t.Run("flips the order and calculates the refund once all cases close", func(t *testing.T) {
		f := newSyncFixture()
		order := disputedOrder(500000)
		cases := []dispute.ViolationCase{terminalCase(t, order.ID, 120000)}

		f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		f.caseRepo.On("FindByOrder", mock.Anything, order.ID).Return(cases, nil)
		f.orderRepo.On("SaveWithLock", mock.Anything, order).Return(nil)
		f.refundRepo.On("FindByOrder", mock.Anything, order.ID).Return(nil, shared.ErrNotFound)
		f.refundRepo.On("Create", mock.Anything, mock.MatchedBy(func(dr *refund.DepositRefund) bool {
			return decimal.NewFromInt(380000).Equal(dr.RefundAmount)
		})).Return(nil)

		resolved, err := f.service.ResolveOrderWithViolations(ctx, order.ID)

		require.NoError(t, err)
		assert.True(t, resolved)
		assert.Equal(t, rental.OrderStatusReturned, order.Status)
		f.refundRepo.AssertExpectations(t)
	})

	t.Run("leaves the order alone while a case is open", func(t *testing.T) {
		f := newSyncFixture()
		order := disputedOrder(500000)
		cases := []dispute.ViolationCase{
			terminalCase(t, order.ID, 80000),
			openCase(t, order.ID),
		}

		f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		f.caseRepo.On("FindByOrder", mock.Anything, order.ID).Return(cases, nil)

		resolved, err := f.service.ResolveOrderWithViolations(ctx, order.ID)

		require.NoError(t, err)
		assert.False(t, resolved)
		assert.Equal(t, rental.OrderStatusReturnedWithIssue, order.Status)
		f.orderRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("no-op for an order that is not disputed", func(t *testing.T) {
		f := newSyncFixture()
		order := disputedOrder(500000)
		order.Status = rental.OrderStatusReturned

		f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		resolved, err := f.service.ResolveOrderWithViolations(ctx, order.ID)

		require.NoError(t, err)
		assert.False(t, resolved)
	})

	t.Run("a concurrent case creation aborts the reconciliation", func(t *testing.T) {
		f := newSyncFixture()
		order := disputedOrder(500000)
		cases := []dispute.ViolationCase{terminalCase(t, order.ID, 120000)}

		f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		f.caseRepo.On("FindByOrder", mock.Anything, order.ID).Return(cases, nil)
		f.orderRepo.On("SaveWithLock", mock.Anything, order).Return(shared.ErrConcurrencyConflict)

		_, err := f.service.ResolveOrderWithViolations(ctx, order.ID)

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		f.refundRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestResolveOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves once every case is terminal", func(t *testing.T) {
		f := newSyncFixture()
		order := disputedOrder(500000)
		cases := []dispute.ViolationCase{terminalCase(t, order.ID, 120000)}

		f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		f.caseRepo.On("FindByOrder", mock.Anything, order.ID).Return(cases, nil)
		f.orderRepo.On("SaveWithLock", mock.Anything, order).Return(nil)
		f.refundRepo.On("FindByOrder", mock.Anything, order.ID).Return(nil, shared.ErrNotFound)
		f.refundRepo.On("Create", mock.Anything, mock.AnythingOfType("*refund.DepositRefund")).Return(nil)

		require.NoError(t, f.service.ResolveOrder(ctx, order.ID))
		assert.Equal(t, rental.OrderStatusReturned, order.Status)
	})

	t.Run("names the case that is still open", func(t *testing.T) {
		f := newSyncFixture()
		order := disputedOrder(500000)
		stillOpen := openCase(t, order.ID)
		cases := []dispute.ViolationCase{terminalCase(t, order.ID, 80000), stillOpen}

		f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		f.caseRepo.On("FindByOrder", mock.Anything, order.ID).Return(cases, nil)

		err := f.service.ResolveOrder(ctx, order.ID)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
		assert.Contains(t, domainErr.Message, stillOpen.ID.String())
		f.orderRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("refuses an order that is not disputed", func(t *testing.T) {
		f := newSyncFixture()
		order := disputedOrder(500000)
		order.Status = rental.OrderStatusReturned

		f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		f.caseRepo.On("FindByOrder", mock.Anything, order.ID).Return([]dispute.ViolationCase{}, nil)

		err := f.service.ResolveOrder(ctx, order.ID)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
		assert.Contains(t, domainErr.Message, "RETURNED")
	})

	t.Run("refuses a flagged order with no cases yet", func(t *testing.T) {
		f := newSyncFixture()
		order := disputedOrder(500000)

		f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		f.caseRepo.On("FindByOrder", mock.Anything, order.ID).Return([]dispute.ViolationCase{}, nil)

		err := f.service.ResolveOrder(ctx, order.ID)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
		assert.Contains(t, domainErr.Message, "no violation cases")
	})
}

func TestSyncResolvedOrderStatuses(t *testing.T) {
	ctx := context.Background()

	t.Run("sweeps all disputed orders and skips failures", func(t *testing.T) {
		f := newSyncFixture()

		healthy := disputedOrder(500000)
		stuck := disputedOrder(200000)
		healthyCases := []dispute.ViolationCase{terminalCase(t, healthy.ID, 100000)}

		f.orderRepo.On("FindIDsByStatus", mock.Anything, rental.OrderStatusReturnedWithIssue).
			Return([]uuid.UUID{stuck.ID, healthy.ID}, nil)

		f.orderRepo.On("FindByID", mock.Anything, stuck.ID).Return(nil, shared.ErrNotFound)

		f.orderRepo.On("FindByID", mock.Anything, healthy.ID).Return(healthy, nil)
		f.caseRepo.On("FindByOrder", mock.Anything, healthy.ID).Return(healthyCases, nil)
		f.orderRepo.On("SaveWithLock", mock.Anything, healthy).Return(nil)
		f.refundRepo.On("FindByOrder", mock.Anything, healthy.ID).Return(nil, shared.ErrNotFound)
		f.refundRepo.On("Create", mock.Anything, mock.AnythingOfType("*refund.DepositRefund")).Return(nil)

		synced, err := f.service.SyncResolvedOrderStatuses(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, synced)
	})

	t.Run("empty queue syncs nothing", func(t *testing.T) {
		f := newSyncFixture()
		f.orderRepo.On("FindIDsByStatus", mock.Anything, rental.OrderStatusReturnedWithIssue).
			Return([]uuid.UUID{}, nil)

		synced, err := f.service.SyncResolvedOrderStatuses(ctx)

		require.NoError(t, err)
		assert.Equal(t, 0, synced)
	})
}

func TestCaseClosedHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("acceptance triggers reconciliation", func(t *testing.T) {
		f := newSyncFixture()
		order := disputedOrder(500000)
		vc := terminalCase(t, order.ID, 120000)

		f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		f.caseRepo.On("FindByOrder", mock.Anything, order.ID).Return([]dispute.ViolationCase{vc}, nil)
		f.orderRepo.On("SaveWithLock", mock.Anything, order).Return(nil)
		f.refundRepo.On("FindByOrder", mock.Anything, order.ID).Return(nil, shared.ErrNotFound)
		f.refundRepo.On("Create", mock.Anything, mock.AnythingOfType("*refund.DepositRefund")).Return(nil)

		handler := NewCaseClosedHandler(f.service, zap.NewNop())
		event := dispute.NewViolationCaseRespondedEvent(&vc, true)

		require.NoError(t, handler.Handle(ctx, event))
		assert.Equal(t, rental.OrderStatusReturned, order.Status)
	})

	t.Run("rejection is ignored", func(t *testing.T) {
		f := newSyncFixture()
		vc := openCase(t, uuid.New())
		require.NoError(t, vc.RejectByCustomer("no"))

		handler := NewCaseClosedHandler(f.service, zap.NewNop())
		event := dispute.NewViolationCaseRespondedEvent(&vc, false)

		require.NoError(t, handler.Handle(ctx, event))
		f.orderRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("subscribes to terminal case events only", func(t *testing.T) {
		handler := NewCaseClosedHandler(newSyncFixture().service, zap.NewNop())
		assert.ElementsMatch(t, []string{"ViolationCaseResponded", "ViolationCaseResolved"}, handler.EventTypes())
	})
}
