package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/database/testutil"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
)

func TestAuditServiceLogAndList(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	ctx := context.Background()
	userID := "7f0c2a52-4a8e-4a49-9d3a-1f9b8a6c0e11"
	require.NoError(t, svc.Log(ctx, AuditEntry{
		UserID:   &userID,
		Actor:    "admin@kaizen.test",
		Action:   "settings.maintenance",
		Resource: "settings",
		Result:   AuditSuccess,
		Metadata: map[string]any{"enabled": true},
	}))
	require.NoError(t, svc.Log(ctx, AuditEntry{
		Actor:  "gate@kaizen.test",
		Action: "registration.checkin",
		Result: AuditDenied,
	}))

	logs, total, err := svc.List(ctx, AuditListOptions{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, logs, 2)

	filtered, total, err := svc.List(ctx, AuditListOptions{Filters: AuditFilters{UserID: userID}})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "settings.maintenance", filtered[0].Action)
	require.Equal(t, "admin@kaizen.test", filtered[0].Actor)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal(filtered[0].Metadata, &metadata))
	require.Equal(t, true, metadata["enabled"])

	denied, _, err := svc.List(ctx, AuditListOptions{Filters: AuditFilters{Result: AuditDenied}})
	require.NoError(t, err)
	require.Len(t, denied, 1)
	require.Nil(t, denied[0].UserID)
}

func TestAuditServiceLogRequiresActionAndResult(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	require.Error(t, svc.Log(context.Background(), AuditEntry{Result: AuditSuccess}))
	require.Error(t, svc.Log(context.Background(), AuditEntry{Action: "x"}))
}

func TestAuditServiceCleanupOlderThan(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	oldLog := models.AuditLog{
		Action:    "old.action",
		Result:    AuditSuccess,
		CreatedAt: time.Now().AddDate(0, 0, -10),
	}
	require.NoError(t, db.Create(&oldLog).Error)
	require.NoError(t, svc.Log(context.Background(), AuditEntry{Action: "new.action", Result: AuditSuccess}))

	rows, err := svc.CleanupOlderThan(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	_, err = svc.CleanupOlderThan(context.Background(), 0)
	require.Error(t, err)
}
