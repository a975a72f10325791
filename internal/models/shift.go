package models

import "time"

// ShiftType is the nominal schedule a shift runs against: start-of-day
// time, duration, and the grace window after nominal end before the
// session is force-closed.
type ShiftType struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	StartTime       string `json:"start_time"` // "08:00" wall-clock
	DurationMinutes int    `json:"duration_minutes"`
	GraceMinutes    int    `json:"grace_minutes"`
}

// Shift is a bounded operator work session. EndTime is nil while open.
type Shift struct {
	ID          int        `json:"id"`
	LineID      int        `json:"line_id"`
	ShiftTypeID int        `json:"shift_type_id"`
	OperatorID  int        `json:"operator_id"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Remark      string     `json:"remark,omitempty"`
	AutoClosed  bool       `json:"auto_closed,omitempty"`
}

// Open reports whether the shift is still accepting production logs.
func (s *Shift) Open() bool {
	return s.EndTime == nil
}

// ExpiresAt is the instant past which the session watcher force-closes
// the shift: actual start + nominal duration + grace.
func (s *Shift) ExpiresAt(st *ShiftType) time.Time {
	d := time.Duration(st.DurationMinutes) * time.Minute
	g := time.Duration(st.GraceMinutes) * time.Minute
	return s.StartTime.Add(d + g)
}

// StartShiftRequest is the body of POST /production/start-shift.
type StartShiftRequest struct {
	LineID      int `json:"lineId"`
	ShiftTypeID int `json:"shiftTypeId"`
}

// EndShiftRequest is the body of POST /production/end-shift/{shiftId}.
// Waste entries with zero weight are dropped, not persisted.
type EndShiftRequest struct {
	Remark string           `json:"remark,omitempty"`
	Waste  []ByProductInput `json:"waste,omitempty"`
}

// ShiftSummary is returned for closed shifts: per-station totals plus
// the by-products recorded at close.
type ShiftSummary struct {
	Shift      *Shift          `json:"shift"`
	Totals     []StationTotals `json:"totals"`
	ByProducts []ByProduct     `json:"by_products"`
}

// ProductionLine is master data for the physical lines a shift runs on.
type ProductionLine struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// MaterialType scopes extrusion progress aggregates per operator.
type MaterialType struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
