package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to ReportStatus
		want     bool
	}{
		{StatusNotStarted, StatusCollectingDocs, true},
		{StatusNotStarted, StatusClosed, false},
		{StatusCollectingDocs, StatusNotStarted, true},
		{StatusDocsComplete, StatusCollectingDocs, true},
		{StatusInPreparation, StatusDocsComplete, true},
		{StatusPendingClient, StatusInPreparation, true},
		{StatusPendingClient, StatusSubmitted, true},
		{StatusSubmitted, StatusPendingClient, false},
		{StatusSubmitted, StatusAssessmentIssued, true},
		{StatusAccepted, StatusClosed, true},
		{StatusAccepted, StatusAssessmentIssued, false},
		{StatusAssessmentIssued, StatusObjectionFiled, true},
		{StatusObjectionFiled, StatusClosed, true},
		{StatusClosed, StatusNotStarted, false},
		{StatusNotStarted, StatusNotStarted, false},
		{ReportStatus("archived"), StatusClosed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestNextStatuses(t *testing.T) {
	assert.Equal(t, []ReportStatus{StatusCollectingDocs}, NextStatuses(StatusNotStarted))
	assert.Equal(t, []ReportStatus{StatusNotStarted, StatusDocsComplete}, NextStatuses(StatusCollectingDocs))
	assert.Equal(t, []ReportStatus{StatusAccepted, StatusAssessmentIssued}, NextStatuses(StatusSubmitted))
	assert.Empty(t, NextStatuses(StatusClosed))

	// every status except closed has a way out
	for _, s := range AllStatuses {
		assert.True(t, s.Valid())
		assert.Equal(t, s == StatusClosed, len(NextStatuses(s)) == 0, string(s))
		assert.Equal(t, s == StatusClosed, s.IsTerminal(), string(s))
	}
}

func TestReportStatus_IsFiled(t *testing.T) {
	filed := map[ReportStatus]bool{
		StatusSubmitted: true,
		StatusAccepted:  true,
		StatusClosed:    true,
	}
	for _, s := range AllStatuses {
		assert.Equal(t, filed[s], s.IsFiled(), string(s))
	}
}

func TestReportStatus_Label(t *testing.T) {
	assert.Equal(t, "Pending client", StatusPendingClient.Label())
	assert.Equal(t, "mystery", ReportStatus("mystery").Label())
	assert.False(t, ReportStatus("mystery").Valid())
}
