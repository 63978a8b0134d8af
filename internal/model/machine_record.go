package model

import "time"

// PMStatus is the preventive-maintenance state of a machine.
type PMStatus string

const (
	StatusOutstanding PMStatus = "Outstanding"
	StatusDone        PMStatus = "Done"
)

// MachineRecord represents one machine and its current PM cycle.
type MachineRecord struct {
	ID               int64    `gorm:"primaryKey"`
	DisplayNumber    int      `gorm:"uniqueIndex;not null"`
	MachineID        string   `gorm:"size:100;index;not null"` // Business key, not unique in the schema
	Address          string   `gorm:"size:255;not null"`
	Manager          string   `gorm:"size:100;not null"`
	PMPeriod         *string  `gorm:"column:pm_period;size:100"`
	PMCompletionDate *string  `gorm:"column:pm_completion_date;size:50"`
	Status           PMStatus `gorm:"size:50;not null;default:Outstanding"`
	Technician       string   `gorm:"size:100;not null"`
	Notes            *string  `gorm:"type:text"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DisplayCounter keeps the highest display number ever handed out, so numbers
// of deleted records are not given to new ones.
type DisplayCounter struct {
	ID         uint `gorm:"primaryKey"`
	LastNumber int  `gorm:"not null"`
}

// Tables lists every model the schema migrates.
func Tables() []interface{} {
	return []interface{}{&MachineRecord{}, &DisplayCounter{}}
}

// RecordView is the serialized form of a MachineRecord handed to clients.
type RecordView struct {
	ID               int64  `json:"id"`
	DisplayNumber    int    `json:"displayNumber"`
	MachineID        string `json:"machineId"`
	Address          string `json:"address"`
	Manager          string `json:"manager"`
	PMPeriod         string `json:"pmPeriod"`
	PMCompletionDate string `json:"pmCompletionDate"`
	Status           string `json:"status"`
	Technician       string `json:"technician"`
	Notes            string `json:"notes"`
}

// View flattens nullable columns to empty strings.
func (r MachineRecord) View() RecordView {
	return RecordView{
		ID:               r.ID,
		DisplayNumber:    r.DisplayNumber,
		MachineID:        r.MachineID,
		Address:          r.Address,
		Manager:          r.Manager,
		PMPeriod:         deref(r.PMPeriod),
		PMCompletionDate: deref(r.PMCompletionDate),
		Status:           string(r.Status),
		Technician:       r.Technician,
		Notes:            deref(r.Notes),
	}
}

// Views converts a slice of records, preserving order.
func Views(records []MachineRecord) []RecordView {
	views := make([]RecordView, 0, len(records))
	for _, r := range records {
		views = append(views, r.View())
	}
	return views
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// NewRecord carries the fields accepted by an explicit create request.
type NewRecord struct {
	MachineID  string
	Address    string
	Manager    string
	Technician string
}

// ImportRow is one data row of an imported spreadsheet. Empty strings stand for
// empty cells.
type ImportRow struct {
	Line             int // 1-based sheet row, for error messages
	MachineID        string
	Address          string
	Manager          string
	PMPeriod         string
	PMCompletionDate string
	Status           string
	Technician       string
}
