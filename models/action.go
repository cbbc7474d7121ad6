package models

import "time"

// ActionKind is the wire tag ("acao") of an interpreted command.
type ActionKind string

const (
	ActionSchedule ActionKind = "agendar"
	ActionQuery    ActionKind = "consultar"
	ActionCancel   ActionKind = "cancelar"
	ActionUpdate   ActionKind = "atualizar"
	ActionReply    ActionKind = "responder"
)

// Action is one interpreted command. Exactly one of the concrete types below.
type Action interface {
	Kind() ActionKind
}

// ScheduleAction creates a booking.
type ScheduleAction struct {
	ClientName string
	When       time.Time // zero when the command carried no date/time
	Duration   int       // minutes, 0 means default
	Service    string
	Notes      string
}

// QueryAction lists bookings. Date is the raw expression; it is resolved at dispatch.
type QueryAction struct {
	ClientName string
	Date       string
	Service    string
}

// CancelAction removes the single booking its filters match.
type CancelAction struct {
	ClientName string
	Date       string
}

// UpdateAction modifies the single booking its filters match.
type UpdateAction struct {
	ClientName string
	OldDate    string
	NewDate    string // date or date-time expression
	Service    string
	Duration   int
	Notes      string
}

// ReplyAction is a plain message back to the user.
type ReplyAction struct {
	Text string
}

func (ScheduleAction) Kind() ActionKind { return ActionSchedule }
func (QueryAction) Kind() ActionKind    { return ActionQuery }
func (CancelAction) Kind() ActionKind   { return ActionCancel }
func (UpdateAction) Kind() ActionKind   { return ActionUpdate }
func (ReplyAction) Kind() ActionKind    { return ActionReply }
