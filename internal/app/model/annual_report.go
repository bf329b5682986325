package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type ClientType string   // taxpayer classification
type DeadlineType string // how the filing deadline was determined

const (
	ClientIndividual   ClientType = "individual"
	ClientSelfEmployed ClientType = "self_employed"
	ClientCorporation  ClientType = "corporation"
	ClientPartnership  ClientType = "partnership"

	DeadlineStandard DeadlineType = "standard"
	DeadlineExtended DeadlineType = "extended"
	DeadlineCustom   DeadlineType = "custom"
)

func (c ClientType) Valid() bool {
	switch c {
	case ClientIndividual, ClientSelfEmployed, ClientCorporation, ClientPartnership:
		return true
	}
	return false
}

// FormType returns the tax authority form number shown next to the report.
// It is a display label only.
func (c ClientType) FormType() string {
	switch c {
	case ClientCorporation:
		return "1214"
	case ClientPartnership:
		return "1215"
	default:
		return "1301"
	}
}

func (d DeadlineType) Valid() bool {
	switch d {
	case DeadlineStandard, DeadlineExtended, DeadlineCustom:
		return true
	}
	return false
}

// DisclosureFlags are the yes/no answers that decide which schedules a report needs.
type DisclosureFlags struct {
	HasRentalIncome  bool `json:"has_rental_income"`
	HasCapitalGains  bool `json:"has_capital_gains"`
	HasForeignIncome bool `json:"has_foreign_income"`
	HasDepreciation  bool `json:"has_depreciation"`
	HasExemptRental  bool `json:"has_exempt_rental"`
}

type AnnualReport struct {
	ID         uint         `gorm:"primarykey" json:"id"`
	ClientID   uint         `gorm:"not null;uniqueIndex:idx_annual_reports_client_year" json:"client_id"`
	TaxYear    int          `gorm:"not null;uniqueIndex:idx_annual_reports_client_year;index" json:"tax_year"`
	ClientType ClientType   `gorm:"type:varchar(20);not null" json:"client_type"`
	FormType   string       `gorm:"type:varchar(10)" json:"form_type"`
	Status     ReportStatus `gorm:"type:varchar(30);not null;default:'not_started';index" json:"status"`
	Stage      ReportStage  `gorm:"type:varchar(30);not null;default:'material_collection';index" json:"stage"`

	DeadlineType       DeadlineType    `gorm:"type:varchar(20);not null;default:'standard'" json:"deadline_type"`
	FilingDeadline     *datatypes.Date `json:"filing_deadline,omitempty"`
	CustomDeadlineNote string          `gorm:"type:text" json:"custom_deadline_note,omitempty"`

	SubmittedAt      *time.Time          `json:"submitted_at,omitempty"`
	ITAReference     *string             `gorm:"column:ita_reference;type:varchar(64)" json:"ita_reference,omitempty"`
	AssessmentAmount decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"assessment_amount"`
	RefundDue        decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"refund_due"`
	TaxDue           decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"tax_due"`

	HasRentalIncome  bool `gorm:"not null;default:false" json:"has_rental_income"`
	HasCapitalGains  bool `gorm:"not null;default:false" json:"has_capital_gains"`
	HasForeignIncome bool `gorm:"not null;default:false" json:"has_foreign_income"`
	HasDepreciation  bool `gorm:"not null;default:false" json:"has_depreciation"`
	HasExemptRental  bool `gorm:"not null;default:false" json:"has_exempt_rental"`

	Notes      string    `gorm:"type:text" json:"notes"`
	AssignedTo *uint     `gorm:"index" json:"assigned_to,omitempty"`
	CreatedBy  uint      `gorm:"not null" json:"created_by"`
	Version    int       `gorm:"not null;default:1" json:"version"` // bumped by every guarded write
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Schedules     []ScheduleEntry      `gorm:"foreignKey:ReportID" json:"schedules"`
	StatusHistory []StatusHistoryEntry `gorm:"foreignKey:ReportID" json:"status_history,omitempty"`
}

func (AnnualReport) TableName() string {
	return "annual_reports"
}

// Flags returns the disclosure flags stored on the report.
func (r *AnnualReport) Flags() DisclosureFlags {
	return DisclosureFlags{
		HasRentalIncome:  r.HasRentalIncome,
		HasCapitalGains:  r.HasCapitalGains,
		HasForeignIncome: r.HasForeignIncome,
		HasDepreciation:  r.HasDepreciation,
		HasExemptRental:  r.HasExemptRental,
	}
}

// SetFlags copies disclosure flags onto the report.
func (r *AnnualReport) SetFlags(f DisclosureFlags) {
	r.HasRentalIncome = f.HasRentalIncome
	r.HasCapitalGains = f.HasCapitalGains
	r.HasForeignIncome = f.HasForeignIncome
	r.HasDepreciation = f.HasDepreciation
	r.HasExemptRental = f.HasExemptRental
}

// DeadlineDate returns the civil filing date at UTC midnight.
func (r *AnnualReport) DeadlineDate() (time.Time, bool) {
	if r.FilingDeadline == nil {
		return time.Time{}, false
	}
	y, m, d := time.Time(*r.FilingDeadline).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
}
