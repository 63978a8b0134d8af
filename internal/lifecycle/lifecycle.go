// Package lifecycle holds the field-level rules for mutating a machine record.
// Every function works on an in-memory record; persisting the result is the
// store's job, which runs these inside its write transaction.
package lifecycle

import (
	"fmt"
	"strings"

	"pmtrack-backend/internal/model"
)

// ValidationError reports a missing or malformed input value.
type ValidationError struct {
	Field  string
	Line   int // sheet row for imports, 0 otherwise
	Reason string
}

func (e *ValidationError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "is required"
	}
	if e.Line > 0 {
		return fmt.Sprintf("row %d: %s %s", e.Line, e.Field, reason)
	}
	return fmt.Sprintf("%s %s", e.Field, reason)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field}
	}
	return nil
}

// Details are the descriptive fields an operator may edit.
type Details struct {
	Address    string
	Manager    string
	Technician string
}

// ValidateNew checks the fields of an explicit create request.
func ValidateNew(r model.NewRecord) error {
	if err := required("machineId", r.MachineID); err != nil {
		return err
	}
	return validateDetails(Details{Address: r.Address, Manager: r.Manager, Technician: r.Technician})
}

func validateDetails(d Details) error {
	if err := required("address", d.Address); err != nil {
		return err
	}
	if err := required("manager", d.Manager); err != nil {
		return err
	}
	return required("technician", d.Technician)
}

// EditDetails overwrites address, manager and technician. PM fields are untouched.
func EditDetails(rec *model.MachineRecord, d Details) error {
	if err := validateDetails(d); err != nil {
		return err
	}
	rec.Address = strings.TrimSpace(d.Address)
	rec.Manager = strings.TrimSpace(d.Manager)
	rec.Technician = strings.TrimSpace(d.Technician)
	return nil
}

// SchedulePM starts a new PM cycle. A new cycle invalidates any prior completion
// status, so the record goes back to Outstanding.
func SchedulePM(rec *model.MachineRecord, period string) error {
	if err := required("pmPeriod", period); err != nil {
		return err
	}
	p := strings.TrimSpace(period)
	rec.PMPeriod = &p
	rec.Status = model.StatusOutstanding
	return nil
}

// CompletePM marks the PM as done on the given date. A scheduled period is not
// required.
func CompletePM(rec *model.MachineRecord, completionDate string) error {
	if err := required("pmCompletionDate", completionDate); err != nil {
		return err
	}
	d := strings.TrimSpace(completionDate)
	rec.PMCompletionDate = &d
	rec.Status = model.StatusDone
	return nil
}

// ClearPM drops all PM data and resets the status.
func ClearPM(rec *model.MachineRecord) error {
	rec.PMPeriod = nil
	rec.PMCompletionDate = nil
	rec.Status = model.StatusOutstanding
	return nil
}

// UpdateNotes replaces the free-text notes. Empty text clears them.
func UpdateNotes(rec *model.MachineRecord, text string) error {
	if text == "" {
		rec.Notes = nil
		return nil
	}
	rec.Notes = &text
	return nil
}

// ParseStatus maps a spreadsheet cell to a status. Empty cells mean Outstanding.
func ParseStatus(raw string) (model.PMStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "outstanding":
		return model.StatusOutstanding, true
	case "done":
		return model.StatusDone, true
	}
	return "", false
}

// ValidateImportRow checks required values and the status cell of an imported row.
func ValidateImportRow(row model.ImportRow) error {
	checks := []struct {
		field string
		value string
	}{
		{"Id Msn", row.MachineID},
		{"Alamat", row.Address},
		{"Pengelola", row.Manager},
		{"Teknisi", row.Technician},
	}
	for _, c := range checks {
		if strings.TrimSpace(c.value) == "" {
			return &ValidationError{Field: c.field, Line: row.Line}
		}
	}

	status, ok := ParseStatus(row.Status)
	if !ok {
		return &ValidationError{Field: "Status", Line: row.Line, Reason: fmt.Sprintf("has unknown value %q", row.Status)}
	}
	if status == model.StatusDone && strings.TrimSpace(row.PMCompletionDate) == "" {
		return &ValidationError{Field: "Tgl Selesai PM", Line: row.Line, Reason: "is required when Status is Done"}
	}
	return nil
}

// ApplyImportRow overwrites the imported columns of rec. Empty period and date
// cells become null, an empty status becomes Outstanding. The display number is
// never touched here.
func ApplyImportRow(rec *model.MachineRecord, row model.ImportRow) error {
	if err := ValidateImportRow(row); err != nil {
		return err
	}
	status, _ := ParseStatus(row.Status)

	rec.MachineID = strings.TrimSpace(row.MachineID)
	rec.Address = strings.TrimSpace(row.Address)
	rec.Manager = strings.TrimSpace(row.Manager)
	rec.PMPeriod = nullable(row.PMPeriod)
	rec.PMCompletionDate = nullable(row.PMCompletionDate)
	rec.Status = status
	rec.Technician = strings.TrimSpace(row.Technician)
	return nil
}

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
