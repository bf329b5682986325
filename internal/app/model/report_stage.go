package model

type ReportStage string // operational kanban stage, independent of status

const (
	StageMaterialCollection ReportStage = "material_collection"
	StageInProgress         ReportStage = "in_progress"
	StageFinalReview        ReportStage = "final_review"
	StageClientSignature    ReportStage = "client_signature"
	StageTransmitted        ReportStage = "transmitted"
)

type StageDirection string

const (
	DirectionForward StageDirection = "forward"
	DirectionBack    StageDirection = "back"
)

// StageOrder is the fixed left-to-right order of the kanban board.
var StageOrder = []ReportStage{
	StageMaterialCollection,
	StageInProgress,
	StageFinalReview,
	StageClientSignature,
	StageTransmitted,
}

var stageLabels = map[ReportStage]string{
	StageMaterialCollection: "Material collection",
	StageInProgress:         "In progress",
	StageFinalReview:        "Final review",
	StageClientSignature:    "Client signature",
	StageTransmitted:        "Transmitted",
}

// Index returns the position of the stage in StageOrder, or -1 for unknown values.
func (s ReportStage) Index() int {
	for i, st := range StageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

func (s ReportStage) Valid() bool {
	return s.Index() >= 0
}

func (s ReportStage) Label() string {
	if label, ok := stageLabels[s]; ok {
		return label
	}
	return string(s)
}

// Step returns the adjacent stage in the given direction. ok is false when the
// move would leave the board or the stage or direction is unknown.
func (s ReportStage) Step(dir StageDirection) (next ReportStage, ok bool) {
	idx := s.Index()
	if idx < 0 {
		return "", false
	}
	switch dir {
	case DirectionForward:
		idx++
	case DirectionBack:
		idx--
	default:
		return "", false
	}
	if idx < 0 || idx >= len(StageOrder) {
		return "", false
	}
	return StageOrder[idx], true
}

func (d StageDirection) Valid() bool {
	return d == DirectionForward || d == DirectionBack
}
