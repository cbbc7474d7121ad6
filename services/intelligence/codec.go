package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"smartcalendar/models"

	"github.com/go-playground/validator/v10"
)

// wireDateTime is the layout of "dataHora" on the wire.
const wireDateTime = "2006-01-02T15:04:05"

var dateTimeLayouts = []string{wireDateTime, time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"}

var (
	ErrMissingAction  = errors.New("missing acao")
	ErrUnknownAction  = errors.New("unknown acao")
	ErrMissingPayload = errors.New("dados must be a JSON object")
)

type envelope struct {
	Action  string          `json:"acao"`
	Payload json.RawMessage `json:"dados"`
}

type schedulePayload struct {
	ClientName string `json:"nomeCliente,omitempty" validate:"max=120"`
	Name       string `json:"nome,omitempty" validate:"max=120"`
	Client     string `json:"cliente,omitempty" validate:"max=120"`
	DateTime   string `json:"dataHora,omitempty"`
	Date       string `json:"data,omitempty"`
	Time       string `json:"hora,omitempty"`
	Duration   int    `json:"duracao,omitempty" validate:"gte=0,lte=1440"`
	Service    string `json:"servico,omitempty"`
	Notes      string `json:"observacoes,omitempty"`
}

type queryPayload struct {
	ClientName string `json:"nomeCliente,omitempty"`
	Date       string `json:"data,omitempty"`
	Service    string `json:"servico,omitempty"`
}

type cancelPayload struct {
	ClientName string `json:"nomeCliente,omitempty"`
	Date       string `json:"data,omitempty"`
}

type updatePayload struct {
	ClientName string `json:"nomeCliente,omitempty"`
	OldDate    string `json:"dataAntiga,omitempty"`
	NewDate    string `json:"dataNova,omitempty"`
	Service    string `json:"servico,omitempty"`
	Duration   int    `json:"duracao,omitempty" validate:"gte=0,lte=1440"`
	Notes      string `json:"observacoes,omitempty"`
}

type replyPayload struct {
	Message string `json:"mensagem" validate:"required"`
}

// ActionCodec converts between Action values and the {"acao", "dados"} wire object.
// Decoding is strict: wrong JSON types, unknown verbs or failed validation reject the object.
type ActionCodec struct {
	resolver *DateResolver
	validate *validator.Validate
	now      func() time.Time
}

func NewActionCodec(resolver *DateResolver, now func() time.Time) *ActionCodec {
	if now == nil {
		now = time.Now
	}
	return &ActionCodec{resolver: resolver, validate: validator.New(), now: now}
}

// Decode parses one JSON object into an Action.
func (c *ActionCodec) Decode(raw []byte) (models.Action, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	kind := models.ActionKind(strings.ToLower(strings.TrimSpace(env.Action)))
	if kind == "" {
		return nil, ErrMissingAction
	}
	if kind == "criar" {
		kind = models.ActionSchedule
	}
	payload := bytes.TrimSpace(env.Payload)
	if len(payload) == 0 || payload[0] != '{' {
		return nil, ErrMissingPayload
	}

	switch kind {
	case models.ActionSchedule:
		var p schedulePayload
		if err := c.unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return models.ScheduleAction{
			ClientName: firstNonBlank(p.ClientName, p.Name, p.Client),
			When:       c.scheduleTime(p),
			Duration:   p.Duration,
			Service:    strings.TrimSpace(p.Service),
			Notes:      p.Notes,
		}, nil
	case models.ActionQuery:
		var p queryPayload
		if err := c.unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return models.QueryAction{ClientName: p.ClientName, Date: p.Date, Service: p.Service}, nil
	case models.ActionCancel:
		var p cancelPayload
		if err := c.unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return models.CancelAction{ClientName: p.ClientName, Date: p.Date}, nil
	case models.ActionUpdate:
		var p updatePayload
		if err := c.unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return models.UpdateAction{
			ClientName: p.ClientName,
			OldDate:    p.OldDate,
			NewDate:    p.NewDate,
			Service:    p.Service,
			Duration:   p.Duration,
			Notes:      p.Notes,
		}, nil
	case models.ActionReply:
		var p replyPayload
		if err := c.unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return models.ReplyAction{Text: p.Message}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Action)
	}
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Encode renders an Action as its wire object.
func (c *ActionCodec) Encode(a models.Action) ([]byte, error) {
	var payload interface{}
	switch v := a.(type) {
	case models.ScheduleAction:
		p := schedulePayload{
			ClientName: v.ClientName,
			Duration:   v.Duration,
			Service:    v.Service,
			Notes:      v.Notes,
		}
		if !v.When.IsZero() {
			p.DateTime = v.When.In(c.resolver.Location()).Format(wireDateTime)
		}
		payload = p
	case models.QueryAction:
		payload = queryPayload{ClientName: v.ClientName, Date: v.Date, Service: v.Service}
	case models.CancelAction:
		payload = cancelPayload{ClientName: v.ClientName, Date: v.Date}
	case models.UpdateAction:
		payload = updatePayload{
			ClientName: v.ClientName,
			OldDate:    v.OldDate,
			NewDate:    v.NewDate,
			Service:    v.Service,
			Duration:   v.Duration,
			Notes:      v.Notes,
		}
	case models.ReplyAction:
		payload = replyPayload{Message: v.Text}
	default:
		return nil, fmt.Errorf("encode action: unsupported type %T", a)
	}

	dados, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Action: string(a.Kind()), Payload: dados})
}

func (c *ActionCodec) unmarshal(payload []byte, dst interface{}) error {
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("decode dados: %w", err)
	}
	if err := c.validate.Struct(dst); err != nil {
		return fmt.Errorf("validate dados: %w", err)
	}
	return nil
}

// scheduleTime combines dataHora, or data + hora, into an instant. An
// unusable value yields the zero time so the dispatcher reports missing fields.
func (c *ActionCodec) scheduleTime(p schedulePayload) time.Time {
	loc := c.resolver.Location()
	if s := strings.TrimSpace(p.DateTime); s != "" {
		for _, layout := range dateTimeLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t
			}
		}
		if d, err := c.resolver.Resolve(s, c.now()); err == nil {
			return d.Instant
		}
		return time.Time{}
	}
	if strings.TrimSpace(p.Date) == "" {
		return time.Time{}
	}
	d, err := c.resolver.Resolve(p.Date, c.now())
	if err != nil {
		return time.Time{}
	}
	if clock, ok := ResolveClockTime(p.Time); ok {
		return clock.On(d.Start, loc)
	}
	if d.HasTime {
		return d.Instant
	}
	return ClockTime{Hour: 12}.On(d.Start, loc)
}
