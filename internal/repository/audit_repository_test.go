package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-invigilation-api/internal/models"
)

func TestAuditRepositoryCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	userID := "user-1"
	rosterID := "roster-1"
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs(sqlmock.AnyArg(), "user-1", models.AuditActionRosterPublish, "roster", "roster-1", []byte(`{"status":200}`), "10.0.0.1", "curl", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	log := &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionRosterPublish,
		Resource:   "roster",
		ResourceID: &rosterID,
		NewValues:  []byte(`{"status":200}`),
		IPAddress:  "10.0.0.1",
		UserAgent:  "curl",
	}
	require.NoError(t, repo.CreateAuditLog(context.Background(), log))
	require.NotEmpty(t, log.ID)
	require.False(t, log.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryCreateAuditLogError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).WillReturnError(errors.New("boom"))

	err := repo.CreateAuditLog(context.Background(), &models.AuditLog{Action: models.AuditActionCacheFlush, Resource: "cache"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
