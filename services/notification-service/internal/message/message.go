// Package message renders event payloads into the mails clients receive.
package message

import "fmt"

type Booked struct {
	AppointmentID string `json:"appointment_id"`
	LocationID    string `json:"location_id"`
	WorkerID      string `json:"worker_id"`
	ServiceName   string `json:"service_name"`
	Day           string `json:"day"`
	Start         string `json:"start"`
	End           string `json:"end"`
	ClientName    string `json:"client_name"`
	ClientEmail   string `json:"client_email"`
}

type Cancelled struct {
	AppointmentID string `json:"appointment_id"`
	LocationID    string `json:"location_id"`
	WorkerID      string `json:"worker_id"`
	Day           string `json:"day"`
	Start         string `json:"start"`
	CancelledBy   string `json:"cancelled_by"`
	Reason        string `json:"reason"`
}

func BookedEmail(p Booked) (subject, body string) {
	subject = fmt.Sprintf("Appointment confirmed for %s at %s", p.Day, p.Start)
	name := p.ClientName
	if name == "" {
		name = "there"
	}
	body = fmt.Sprintf(
		"Hi %s,\n\nYour %s appointment is booked for %s, %s to %s.\n\nSee you then!\n",
		name, p.ServiceName, p.Day, p.Start, p.End,
	)
	return subject, body
}

func CancelledEmail(p Cancelled) (subject, body string) {
	subject = fmt.Sprintf("Appointment on %s cancelled", p.Day)
	body = fmt.Sprintf(
		"Hi,\n\nYour appointment on %s at %s has been cancelled.", p.Day, p.Start)
	if p.Reason != "" {
		body += "\nReason: " + p.Reason
	}
	body += "\n\nPlease book a new time that suits you.\n"
	return subject, body
}
