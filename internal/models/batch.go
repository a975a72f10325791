package models

import "time"

// Batch statuses. A batch only ever moves pending -> Completed; the
// mixed casing is the wire format the production clients already print
// on labels, so it is kept as-is.
const (
	StatusPending   = "pending"
	StatusCompleted = "Completed"
	// StatusProcessing marks rows appended by the consume-and-create
	// bridge flow (a station claiming an upstream bag by writing a new
	// row that references it, instead of updating it in place).
	StatusProcessing = "Processing"
)

// Batch is one QR-identified, weighed jumbo bag recorded by a station.
// The ledger is append-only: corrections are in-place weight edits,
// never deletions.
type Batch struct {
	ID             int       `json:"id"`
	ShiftID        int       `json:"shift_id"`
	StationID      int       `json:"station_id"`
	SubLine        string    `json:"sub_line,omitempty"`
	InputBagQr     string    `json:"input_bag_qr,omitempty"`
	OutputBagQr    string    `json:"output_bag_qr"`
	Weight         float64   `json:"weight"`
	Status         string    `json:"status"`
	UsedLine       string    `json:"used_line,omitempty"`
	MaterialTypeID int       `json:"material_type_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateBatchRequest is the body of POST /production/log.
type CreateBatchRequest struct {
	ShiftID     int     `json:"shiftId"`
	StationID   int     `json:"stationId"`
	SubLine     string  `json:"subLine,omitempty"`
	InputBagQr  string  `json:"inputBagQr,omitempty"`
	OutputBagQr string  `json:"outputBagQr"`
	Weight      float64 `json:"weight"`
	Status      string  `json:"status,omitempty"`
}

// UpdateStatusRequest is the body of PUT /production/update-log-status.
// The mobile client historically sent the consuming line under three
// different keys depending on the station; all are accepted, usedLine
// winning over the station-specific forms.
type UpdateStatusRequest struct {
	OutputBagQr   string `json:"outputBagQr"`
	Status        string `json:"status"`
	UsedLine      string `json:"usedLine,omitempty"`
	WashingLine   string `json:"washingLine,omitempty"`
	ExtrusionLine string `json:"extrusionLine,omitempty"`
}

// ConsumingLine resolves the three historical key variants.
func (r *UpdateStatusRequest) ConsumingLine() string {
	if r.UsedLine != "" {
		return r.UsedLine
	}
	if r.WashingLine != "" {
		return r.WashingLine
	}
	return r.ExtrusionLine
}

// UpdateWeightRequest is the body of PUT /production/update-log-weight.
type UpdateWeightRequest struct {
	LogID  int     `json:"logId"`
	Weight float64 `json:"weight"`
}

// NextQr is the response of GET /production/next-qr.
type NextQr struct {
	QrCode  string       `json:"qrCode"`
	Details NextQrDetail `json:"details"`
}

type NextQrDetail struct {
	StationName string `json:"stationName"`
}

// StationTotals is the per-station aggregate for one shift, recomputed
// from the ledger on demand.
type StationTotals struct {
	StationID   int     `json:"station_id"`
	Bags        int     `json:"bags"`
	TotalWeight float64 `json:"total_weight"`
}
