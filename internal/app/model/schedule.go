package model

import "time"

type ScheduleKey string // supplementary schedule attached to a report

const (
	ScheduleB      ScheduleKey = "schedule_b"      // rental income
	ScheduleBet    ScheduleKey = "schedule_bet"    // capital gains
	ScheduleGimmel ScheduleKey = "schedule_gimmel" // foreign income
	ScheduleDalet  ScheduleKey = "schedule_dalet"  // depreciation
	ScheduleHeh    ScheduleKey = "schedule_heh"    // exempt rental
)

// ScheduleKeys lists schedules in checklist order.
var ScheduleKeys = []ScheduleKey{ScheduleB, ScheduleBet, ScheduleGimmel, ScheduleDalet, ScheduleHeh}

func (k ScheduleKey) Valid() bool {
	for _, key := range ScheduleKeys {
		if key == k {
			return true
		}
	}
	return false
}

// RequiredSchedules returns the schedule keys switched on by the flags.
func RequiredSchedules(f DisclosureFlags) []ScheduleKey {
	var keys []ScheduleKey
	if f.HasRentalIncome {
		keys = append(keys, ScheduleB)
	}
	if f.HasCapitalGains {
		keys = append(keys, ScheduleBet)
	}
	if f.HasForeignIncome {
		keys = append(keys, ScheduleGimmel)
	}
	if f.HasDepreciation {
		keys = append(keys, ScheduleDalet)
	}
	if f.HasExemptRental {
		keys = append(keys, ScheduleHeh)
	}
	return keys
}

type ScheduleEntry struct {
	ID          uint        `gorm:"primarykey" json:"id"`
	ReportID    uint        `gorm:"not null;uniqueIndex:idx_report_schedules_report_key" json:"report_id"`
	ScheduleKey ScheduleKey `gorm:"type:varchar(30);not null;uniqueIndex:idx_report_schedules_report_key" json:"schedule_key"`
	IsRequired  bool        `gorm:"not null;default:true" json:"is_required"`
	IsComplete  bool        `gorm:"not null;default:false" json:"is_complete"` // forward only
	Notes       string      `gorm:"type:text" json:"notes"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"` // written once
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (ScheduleEntry) TableName() string {
	return "report_schedules"
}

// ScheduleProgress returns the percentage of complete entries. An empty
// checklist counts as fully complete.
func ScheduleProgress(entries []ScheduleEntry) int {
	if len(entries) == 0 {
		return 100
	}
	done := 0
	for _, e := range entries {
		if e.IsComplete {
			done++
		}
	}
	return done * 100 / len(entries)
}
