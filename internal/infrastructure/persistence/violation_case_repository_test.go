package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/rentio/backend/internal/domain/dispute"
	"github.com/rentio/backend/internal/domain/shared"
)

// newMockViolationCaseRepository creates a GormViolationCaseRepository with a mocked SQL connection
func newMockViolationCaseRepository(t *testing.T) (*GormViolationCaseRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormViolationCaseRepository(gormDB), mock, mockDB
}

func violationCaseRows(id, orderID, orderItemID, providerID uuid.UUID, status dispute.CaseStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "version", "order_id", "order_item_id", "provider_id",
		"violation_type", "description",
		"penalty_percentage", "penalty_amount", "deposit_base", "status",
	}).AddRow(
		id, 1, orderID, orderItemID, providerID,
		dispute.ViolationTypeDamaged, "scratched lens barrel",
		decimal.NewFromInt(20), decimal.NewFromInt(100000), decimal.NewFromInt(500000), status,
	)
}

func emptyEvidenceRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "violation_id", "image_url", "uploaded_by", "file_type", "uploaded_at"})
}

func TestGormViolationCaseRepository_FindByID(t *testing.T) {
	t.Run("finds existing case with evidence preloaded", func(t *testing.T) {
		repo, mock, mockDB := newMockViolationCaseRepository(t)
		defer mockDB.Close()

		caseID := uuid.New()
		orderID := uuid.New()
		orderItemID := uuid.New()
		providerID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "violation_cases" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(caseID, 1).
			WillReturnRows(violationCaseRows(caseID, orderID, orderItemID, providerID, dispute.CaseStatusPending))
		mock.ExpectQuery(`SELECT \* FROM "violation_evidence" WHERE "violation_evidence"\."violation_id" = \$1`).
			WithArgs(caseID).
			WillReturnRows(emptyEvidenceRows())

		vc, err := repo.FindByID(context.Background(), caseID)

		assert.NoError(t, err)
		assert.NotNil(t, vc)
		assert.Equal(t, caseID, vc.ID)
		assert.Equal(t, dispute.CaseStatusPending, vc.Status)
		assert.True(t, vc.PenaltyAmount.Equal(decimal.NewFromInt(100000)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing case", func(t *testing.T) {
		repo, mock, mockDB := newMockViolationCaseRepository(t)
		defer mockDB.Close()

		caseID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "violation_cases" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(caseID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		vc, err := repo.FindByID(context.Background(), caseID)

		assert.Nil(t, vc)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormViolationCaseRepository_FindOpenByOrderItem(t *testing.T) {
	t.Run("finds the open case for an item", func(t *testing.T) {
		repo, mock, mockDB := newMockViolationCaseRepository(t)
		defer mockDB.Close()

		caseID := uuid.New()
		orderID := uuid.New()
		orderItemID := uuid.New()
		providerID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "violation_cases" WHERE order_item_id = \$1 AND status NOT IN \(\$2,\$3\) ORDER BY .* LIMIT .*`).
			WithArgs(orderItemID, dispute.CaseStatusCustomerAccepted, dispute.CaseStatusResolved, 1).
			WillReturnRows(violationCaseRows(caseID, orderID, orderItemID, providerID, dispute.CaseStatusCustomerRejected))

		vc, err := repo.FindOpenByOrderItem(context.Background(), orderItemID)

		assert.NoError(t, err)
		assert.NotNil(t, vc)
		assert.Equal(t, dispute.CaseStatusCustomerRejected, vc.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound when all cases on the item are terminal", func(t *testing.T) {
		repo, mock, mockDB := newMockViolationCaseRepository(t)
		defer mockDB.Close()

		orderItemID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "violation_cases" WHERE order_item_id = \$1 AND status NOT IN \(\$2,\$3\) ORDER BY .* LIMIT .*`).
			WithArgs(orderItemID, dispute.CaseStatusCustomerAccepted, dispute.CaseStatusResolved, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		vc, err := repo.FindOpenByOrderItem(context.Background(), orderItemID)

		assert.Nil(t, vc)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormViolationCaseRepository_Save(t *testing.T) {
	t.Run("maps partial unique index violation to DUPLICATE_CLAIM", func(t *testing.T) {
		repo, mock, mockDB := newMockViolationCaseRepository(t)
		defer mockDB.Close()

		vc, err := dispute.NewViolationCase(
			uuid.New(), uuid.New(), uuid.New(),
			dispute.ViolationTypeDamaged, "cracked tripod mount",
			nil, decimal.NewFromInt(20), decimal.Zero, decimal.NewFromInt(500000),
		)
		require.NoError(t, err)

		// gorm Save on a populated aggregate updates first and only inserts
		// when no existing row matched
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "violation_cases" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO "violation_cases"`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "idx_violation_cases_open_per_item"})
		mock.ExpectRollback()

		err = repo.Save(context.Background(), vc)

		assert.Equal(t, shared.ErrDuplicateClaim, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormViolationCaseRepository_SaveWithLock(t *testing.T) {
	t.Run("rejects a stale version", func(t *testing.T) {
		repo, mock, mockDB := newMockViolationCaseRepository(t)
		defer mockDB.Close()

		vc, err := dispute.NewViolationCase(
			uuid.New(), uuid.New(), uuid.New(),
			dispute.ViolationTypeLateReturn, "returned three days late",
			nil, decimal.NewFromInt(10), decimal.Zero, decimal.NewFromInt(500000),
		)
		require.NoError(t, err)
		vc.Version = 1

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT "version" FROM "violation_cases" WHERE id = \$1 LIMIT \$2`).
			WithArgs(vc.ID, 1).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(2))
		mock.ExpectRollback()

		err = repo.SaveWithLock(context.Background(), vc)

		assert.Equal(t, shared.ErrConcurrencyConflict, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("bumps the version on success", func(t *testing.T) {
		repo, mock, mockDB := newMockViolationCaseRepository(t)
		defer mockDB.Close()

		vc, err := dispute.NewViolationCase(
			uuid.New(), uuid.New(), uuid.New(),
			dispute.ViolationTypeLateReturn, "returned three days late",
			nil, decimal.NewFromInt(10), decimal.Zero, decimal.NewFromInt(500000),
		)
		require.NoError(t, err)
		vc.Version = 1
		require.NoError(t, vc.AcceptByCustomer("fair enough"))

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT "version" FROM "violation_cases" WHERE id = \$1 LIMIT \$2`).
			WithArgs(vc.ID, 1).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))
		mock.ExpectExec(`UPDATE "violation_cases" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = repo.SaveWithLock(context.Background(), vc)

		assert.NoError(t, err)
		assert.Equal(t, 2, vc.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("treats zero rows affected as a conflict", func(t *testing.T) {
		repo, mock, mockDB := newMockViolationCaseRepository(t)
		defer mockDB.Close()

		vc, err := dispute.NewViolationCase(
			uuid.New(), uuid.New(), uuid.New(),
			dispute.ViolationTypeNotReturned, "item never returned",
			nil, decimal.NewFromInt(100), decimal.Zero, decimal.NewFromInt(500000),
		)
		require.NoError(t, err)
		vc.Version = 1

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT "version" FROM "violation_cases" WHERE id = \$1 LIMIT \$2`).
			WithArgs(vc.ID, 1).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))
		mock.ExpectExec(`UPDATE "violation_cases" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err = repo.SaveWithLock(context.Background(), vc)

		assert.Equal(t, shared.ErrConcurrencyConflict, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a missing case as not found, not as a conflict", func(t *testing.T) {
		repo, mock, mockDB := newMockViolationCaseRepository(t)
		defer mockDB.Close()

		vc, err := dispute.NewViolationCase(
			uuid.New(), uuid.New(), uuid.New(),
			dispute.ViolationTypeDamaged, "bent mounting plate",
			nil, decimal.NewFromInt(15), decimal.Zero, decimal.NewFromInt(500000),
		)
		require.NoError(t, err)
		vc.Version = 1

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT "version" FROM "violation_cases" WHERE id = \$1 LIMIT \$2`).
			WithArgs(vc.ID, 1).
			WillReturnRows(sqlmock.NewRows([]string{"version"}))
		mock.ExpectRollback()

		err = repo.SaveWithLock(context.Background(), vc)

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormViolationCaseRepository_CountByStatus(t *testing.T) {
	t.Run("counts escalated cases", func(t *testing.T) {
		repo, mock, mockDB := newMockViolationCaseRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "violation_cases" WHERE status = \$1`).
			WithArgs(dispute.CaseStatusEscalated).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		count, err := repo.CountByStatus(context.Background(), dispute.CaseStatusEscalated)

		assert.NoError(t, err)
		assert.Equal(t, int64(3), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormViolationCaseRepository_AddEvidence(t *testing.T) {
	t.Run("inserts an evidence row", func(t *testing.T) {
		repo, mock, mockDB := newMockViolationCaseRepository(t)
		defer mockDB.Close()

		ev, err := dispute.NewViolationEvidence(uuid.New(), "https://cdn.rentio.vn/evidence/abc.jpg", dispute.PartyProvider, "image/jpeg")
		require.NoError(t, err)

		mock.ExpectExec(`INSERT INTO "violation_evidence"`).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err = repo.AddEvidence(context.Background(), ev)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
