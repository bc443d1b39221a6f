package submission

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deal-wizard/internal/common/logger"
	"deal-wizard/internal/models"
)

func TestCreateDeal_AuditFailureStillReturnsDeal(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbMock.ExpectExec(`INSERT INTO deals`).WillReturnResult(sqlmock.NewResult(1, 1))
	dbMock.ExpectExec(`INSERT INTO audit_log`).WillReturnError(errors.New("audit table locked"))

	repo := NewPostgresRepository(db, logger.NewTestLogger(t))
	dealID, err := repo.CreateDeal(context.Background(), &Payload{
		Category:        models.CategoryPipeline,
		DevelopmentType: models.DevelopmentExisting,
		Name:            "Test A",
	})

	require.NoError(t, err)
	assert.Len(t, dealID, 36)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestCreateDeal_InsertFailure(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbMock.ExpectExec(`INSERT INTO deals`).WillReturnError(errors.New("connection reset"))

	repo := NewPostgresRepository(db, logger.NewTestLogger(t))
	dealID, err := repo.CreateDeal(context.Background(), &Payload{Name: "Test A"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert deal")
	assert.Empty(t, dealID)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestDevelopmentSections(t *testing.T) {
	assert.Nil(t, developmentSections(&Payload{Name: "existing"}))

	sections := developmentSections(&Payload{Design3D: &models.Design3D{}})
	require.NotNil(t, sections)
	assert.Contains(t, sections, "design3D")
	assert.Contains(t, sections, "financialAssumptions")
}
