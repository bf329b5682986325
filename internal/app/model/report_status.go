package model

import "sort"

type ReportStatus string // regulatory filing status

const (
	StatusNotStarted       ReportStatus = "not_started"
	StatusCollectingDocs   ReportStatus = "collecting_docs"
	StatusDocsComplete     ReportStatus = "docs_complete"
	StatusInPreparation    ReportStatus = "in_preparation"
	StatusPendingClient    ReportStatus = "pending_client"
	StatusSubmitted        ReportStatus = "submitted"
	StatusAccepted         ReportStatus = "accepted"
	StatusAssessmentIssued ReportStatus = "assessment_issued"
	StatusObjectionFiled   ReportStatus = "objection_filed"
	StatusClosed           ReportStatus = "closed"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []ReportStatus{
	StatusNotStarted,
	StatusCollectingDocs,
	StatusDocsComplete,
	StatusInPreparation,
	StatusPendingClient,
	StatusSubmitted,
	StatusAccepted,
	StatusAssessmentIssued,
	StatusObjectionFiled,
	StatusClosed,
}

// statusTransitions is the directed adjacency table for status changes.
var statusTransitions = map[ReportStatus]map[ReportStatus]struct{}{
	StatusNotStarted: {
		StatusCollectingDocs: {},
	},
	StatusCollectingDocs: {
		StatusDocsComplete: {},
		StatusNotStarted:   {},
	},
	StatusDocsComplete: {
		StatusInPreparation:  {},
		StatusCollectingDocs: {},
	},
	StatusInPreparation: {
		StatusPendingClient: {},
		StatusDocsComplete:  {},
	},
	StatusPendingClient: {
		StatusInPreparation: {},
		StatusSubmitted:     {},
	},
	StatusSubmitted: {
		StatusAccepted:         {},
		StatusAssessmentIssued: {},
	},
	StatusAccepted: {
		StatusClosed: {},
	},
	StatusAssessmentIssued: {
		StatusObjectionFiled: {},
		StatusClosed:         {},
	},
	StatusObjectionFiled: {
		StatusClosed: {},
	},
	StatusClosed: {},
}

var statusLabels = map[ReportStatus]string{
	StatusNotStarted:       "Not started",
	StatusCollectingDocs:   "Collecting documents",
	StatusDocsComplete:     "Documents complete",
	StatusInPreparation:    "In preparation",
	StatusPendingClient:    "Pending client",
	StatusSubmitted:        "Submitted",
	StatusAccepted:         "Accepted",
	StatusAssessmentIssued: "Assessment issued",
	StatusObjectionFiled:   "Objection filed",
	StatusClosed:           "Closed",
}

// Valid reports whether s is a known status.
func (s ReportStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are possible.
func (s ReportStatus) IsTerminal() bool {
	return s == StatusClosed
}

// IsFiled reports whether the status counts towards the season completion rate.
// Overdue tracking stops at the same point.
func (s ReportStatus) IsFiled() bool {
	switch s {
	case StatusSubmitted, StatusAccepted, StatusClosed:
		return true
	}
	return false
}

// Label returns the display name of the status.
func (s ReportStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// CanTransition reports whether the table allows moving from one status to another.
func CanTransition(from, to ReportStatus) bool {
	allowed, ok := statusTransitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// NextStatuses returns the statuses reachable from s, in lifecycle order.
func NextStatuses(s ReportStatus) []ReportStatus {
	allowed := statusTransitions[s]
	next := make([]ReportStatus, 0, len(allowed))
	for to := range allowed {
		next = append(next, to)
	}
	sort.Slice(next, func(i, j int) bool {
		return statusIndex(next[i]) < statusIndex(next[j])
	})
	return next
}

func statusIndex(s ReportStatus) int {
	for i, st := range AllStatuses {
		if st == s {
			return i
		}
	}
	return len(AllStatuses)
}
