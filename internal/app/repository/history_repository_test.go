package repository

import (
	"testing"
	"time"

	"github.com/ikkim/annualreport-backend/internal/app/model"
	"github.com/ikkim/annualreport-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRepository_AppendAndFind(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewHistoryRepository(testDB)

	last, err := repo.Last(1)
	require.NoError(t, err)
	assert.Nil(t, last)

	base := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	from := model.StatusNotStarted
	entries := []*model.StatusHistoryEntry{
		{ReportID: 1, ToStatus: model.StatusNotStarted, ChangedByID: 1, ChangedByName: "Dana", OccurredAt: base},
		{ReportID: 1, FromStatus: &from, ToStatus: model.StatusCollectingDocs, ChangedByID: 1, ChangedByName: "Dana", OccurredAt: base},
		{ReportID: 2, ToStatus: model.StatusNotStarted, ChangedByID: 1, ChangedByName: "Dana", OccurredAt: base.Add(time.Hour)},
	}
	for _, e := range entries {
		require.NoError(t, repo.Append(e))
	}

	history, err := repo.FindByReportID(1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Nil(t, history[0].FromStatus)
	assert.Equal(t, model.StatusCollectingDocs, history[1].ToStatus)

	last, err = repo.Last(1)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, entries[1].ID, last.ID)
}

func TestHistoryRepository_Immutable(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewHistoryRepository(testDB)
	entry := &model.StatusHistoryEntry{
		ReportID:    1,
		ToStatus:    model.StatusNotStarted,
		ChangedByID: 1,
		OccurredAt:  time.Now(),
	}
	require.NoError(t, repo.Append(entry))

	assert.ErrorIs(t, repo.Append(entry), model.ErrHistoryImmutable)

	err = testDB.Model(entry).Update("note", "rewritten").Error
	assert.ErrorIs(t, err, model.ErrHistoryImmutable)

	err = testDB.Delete(entry).Error
	assert.ErrorIs(t, err, model.ErrHistoryImmutable)

	history, err := repo.FindByReportID(1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Empty(t, history[0].Note)
}
