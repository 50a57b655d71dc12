package outbox

// Payloads are the JSON bodies consumers receive. Times cross the wire as
// HH:mm strings and days as YYYY-MM-DD, same as the HTTP surface.

type AppointmentBooked struct {
	AppointmentID string `json:"appointment_id"`
	LocationID    string `json:"location_id"`
	WorkerID      string `json:"worker_id"`
	ServiceName   string `json:"service_name"`
	Day           string `json:"day"`
	Start         string `json:"start"`
	End           string `json:"end"`
	ClientName    string `json:"client_name,omitempty"`
	ClientEmail   string `json:"client_email,omitempty"`
}

type AppointmentCancelled struct {
	AppointmentID string `json:"appointment_id"`
	LocationID    string `json:"location_id"`
	WorkerID      string `json:"worker_id"`
	Day           string `json:"day"`
	Start         string `json:"start"`
	CancelledBy   string `json:"cancelled_by"`
	Reason        string `json:"reason,omitempty"`
}

type AppointmentStatusChanged struct {
	AppointmentID string `json:"appointment_id"`
	LocationID    string `json:"location_id"`
	Status        string `json:"status"`
}

type DayCancelled struct {
	LocationID string `json:"location_id"`
	WorkerID   string `json:"worker_id"`
	Day        string `json:"day"`
	Count      int    `json:"count"`
	Reason     string `json:"reason,omitempty"`
}
