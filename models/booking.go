package models

import "time"

// DefaultDuration is the booking length in minutes when none is supplied.
const DefaultDuration = 30

// DefaultService is used when a schedule command names no service.
const DefaultService = "corte de cabelo"

// Event is a booking record owned by the event store.
type Event struct {
	ID         string    `bson:"id" json:"id"`                   // Unique event identifier (UUID)
	ClientName string    `bson:"nomeCliente" json:"nomeCliente"` // Client the slot is booked for
	Service    string    `bson:"servico" json:"servico"`         // e.g. "corte de cabelo", "barba"
	DateTime   time.Time `bson:"dataHora" json:"dataHora"`       // Start of the booking
	Duration   int       `bson:"duracao" json:"duracao"`         // Minutes
	Notes      string    `bson:"observacoes" json:"observacoes"` // Free-form comments
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
}

// End returns the instant the booking finishes.
func (e Event) End() time.Time {
	return e.DateTime.Add(time.Duration(e.Duration) * time.Minute)
}

// EventFilter narrows a store query. Zero fields are not applied.
type EventFilter struct {
	ClientName string     // case-insensitive substring
	Service    string     // case-insensitive substring
	From       *time.Time // inclusive
	To         *time.Time // inclusive
}

// IsEmpty reports whether the filter matches every event.
func (f EventFilter) IsEmpty() bool {
	return f.ClientName == "" && f.Service == "" && f.From == nil && f.To == nil
}

// EventChanges carries the fields an update may touch. Nil means unchanged.
type EventChanges struct {
	ClientName *string    `json:"nomeCliente,omitempty"`
	Service    *string    `json:"servico,omitempty"`
	DateTime   *time.Time `json:"dataHora,omitempty"`
	Duration   *int       `json:"duracao,omitempty"`
	Notes      *string    `json:"observacoes,omitempty"`
}

// IsEmpty reports whether no change is requested.
func (c EventChanges) IsEmpty() bool {
	return c.ClientName == nil && c.Service == nil && c.DateTime == nil && c.Duration == nil && c.Notes == nil
}
