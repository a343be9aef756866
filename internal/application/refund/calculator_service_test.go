package refund

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rentio/backend/internal/domain/dispute"
	"github.com/rentio/backend/internal/domain/refund"
	"github.com/rentio/backend/internal/domain/rental"
	"github.com/rentio/backend/internal/domain/shared"
)

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

func returnedOrder(deposit int64) *rental.RentalOrder {
	return &rental.RentalOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       "RO-2026-000099",
		CustomerID:        uuid.New(),
		ProviderID:        uuid.New(),
		Status:            rental.OrderStatusReturned,
		DepositAmount:     decimal.NewFromInt(deposit),
	}
}

func acceptedCase(t *testing.T, orderID uuid.UUID, penalty int64) dispute.ViolationCase {
	t.Helper()
	vc, err := dispute.NewViolationCase(orderID, uuid.New(), uuid.New(),
		dispute.ViolationTypeDamaged, "damage", nil,
		decimal.Zero, decimal.NewFromInt(penalty), decimal.NewFromInt(penalty*10))
	require.NoError(t, err)
	require.NoError(t, vc.AcceptByCustomer(""))
	return *vc
}

func TestCalculatorServiceCalculate(t *testing.T) {
	ctx := context.Background()

	t.Run("deposit minus accepted penalties", func(t *testing.T) {
		refundRepo := new(MockDepositRefundRepository)
		caseRepo := new(MockViolationCaseRepository)
		orderRepo := new(MockOrderRepository)
		service := NewCalculatorService(refundRepo, caseRepo, orderRepo)

		order := returnedOrder(500000)
		cases := []dispute.ViolationCase{acceptedCase(t, order.ID, 120000)}

		refundRepo.On("FindByOrder", mock.Anything, order.ID).Return(nil, shared.ErrNotFound)
		orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		caseRepo.On("FindByOrder", mock.Anything, order.ID).Return(cases, nil)
		refundRepo.On("Create", mock.Anything, mock.AnythingOfType("*refund.DepositRefund")).Return(nil)

		resp, err := service.Calculate(ctx, order.ID)

		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(380000).Equal(resp.RefundAmount), "got %s", resp.RefundAmount)
		assert.Equal(t, "PENDING", resp.Status)
	})

	t.Run("sums multiple case penalties, ignoring admin fines", func(t *testing.T) {
		refundRepo := new(MockDepositRefundRepository)
		caseRepo := new(MockViolationCaseRepository)
		orderRepo := new(MockOrderRepository)
		service := NewCalculatorService(refundRepo, caseRepo, orderRepo)

		order := returnedOrder(500000)
		accepted := acceptedCase(t, order.ID, 80000)

		// The second case went through arbitration; the ruling split
		// liability but the case penalty of 100000 stands
		arbitrated, err := dispute.NewViolationCase(order.ID, uuid.New(), uuid.New(),
			dispute.ViolationTypeDamaged, "damage", nil,
			decimal.Zero, decimal.NewFromInt(100000), decimal.NewFromInt(1000000))
		require.NoError(t, err)
		require.NoError(t, arbitrated.RejectByCustomer("no"))
		require.NoError(t, arbitrated.Escalate(dispute.PartyProvider, "deadlock"))
		require.NoError(t, arbitrated.Resolve())

		refundRepo.On("FindByOrder", mock.Anything, order.ID).Return(nil, shared.ErrNotFound)
		orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		caseRepo.On("FindByOrder", mock.Anything, order.ID).Return([]dispute.ViolationCase{accepted, *arbitrated}, nil)
		refundRepo.On("Create", mock.Anything, mock.AnythingOfType("*refund.DepositRefund")).Return(nil)

		resp, err := service.Calculate(ctx, order.ID)

		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(320000).Equal(resp.RefundAmount), "got %s", resp.RefundAmount)
	})

	t.Run("idempotent when a refund already exists", func(t *testing.T) {
		refundRepo := new(MockDepositRefundRepository)
		caseRepo := new(MockViolationCaseRepository)
		orderRepo := new(MockOrderRepository)
		service := NewCalculatorService(refundRepo, caseRepo, orderRepo)

		order := returnedOrder(500000)
		existing, _ := refund.NewDepositRefund(order.ID, order.CustomerID,
			decimal.NewFromInt(500000), decimal.NewFromInt(120000))

		refundRepo.On("FindByOrder", mock.Anything, order.ID).Return(existing, nil)

		resp, err := service.Calculate(ctx, order.ID)

		require.NoError(t, err)
		assert.Equal(t, existing.ID, resp.ID)
		refundRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("losing the insert race returns the stored refund", func(t *testing.T) {
		refundRepo := new(MockDepositRefundRepository)
		caseRepo := new(MockViolationCaseRepository)
		orderRepo := new(MockOrderRepository)
		service := NewCalculatorService(refundRepo, caseRepo, orderRepo)

		order := returnedOrder(500000)
		winner, _ := refund.NewDepositRefund(order.ID, order.CustomerID,
			decimal.NewFromInt(500000), decimal.Zero)

		refundRepo.On("FindByOrder", mock.Anything, order.ID).Return(nil, shared.ErrNotFound).Once()
		orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		caseRepo.On("FindByOrder", mock.Anything, order.ID).Return([]dispute.ViolationCase{}, nil)
		refundRepo.On("Create", mock.Anything, mock.AnythingOfType("*refund.DepositRefund")).Return(shared.ErrDuplicateRefund)
		refundRepo.On("FindByOrder", mock.Anything, order.ID).Return(winner, nil).Once()

		resp, err := service.Calculate(ctx, order.ID)

		require.NoError(t, err)
		assert.Equal(t, winner.ID, resp.ID)
	})

	t.Run("refuses an order that is not fully returned", func(t *testing.T) {
		refundRepo := new(MockDepositRefundRepository)
		caseRepo := new(MockViolationCaseRepository)
		orderRepo := new(MockOrderRepository)
		service := NewCalculatorService(refundRepo, caseRepo, orderRepo)

		order := returnedOrder(500000)
		order.Status = rental.OrderStatusReturnedWithIssue

		refundRepo.On("FindByOrder", mock.Anything, order.ID).Return(nil, shared.ErrNotFound)
		orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := service.Calculate(ctx, order.ID)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
	})

	t.Run("refuses when a case is still open", func(t *testing.T) {
		refundRepo := new(MockDepositRefundRepository)
		caseRepo := new(MockViolationCaseRepository)
		orderRepo := new(MockOrderRepository)
		service := NewCalculatorService(refundRepo, caseRepo, orderRepo)

		order := returnedOrder(500000)
		open, err := dispute.NewViolationCase(order.ID, uuid.New(), uuid.New(),
			dispute.ViolationTypeDamaged, "open claim", nil,
			decimal.Zero, decimal.NewFromInt(50000), decimal.NewFromInt(500000))
		require.NoError(t, err)

		refundRepo.On("FindByOrder", mock.Anything, order.ID).Return(nil, shared.ErrNotFound)
		orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		caseRepo.On("FindByOrder", mock.Anything, order.ID).Return([]dispute.ViolationCase{*open}, nil)

		_, err = service.Calculate(ctx, order.ID)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
		refundRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
