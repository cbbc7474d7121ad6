package models

// ReminderPayload is the body of a booking reminder task.
type ReminderPayload struct {
	EventID    string `json:"eventId"`
	ClientName string `json:"nomeCliente"`
	Service    string `json:"servico"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	FireDate   string `json:"fireDate"`  // RFC3339
	EventDate  string `json:"eventDate"` // RFC3339 start of the booking when enqueued
}
