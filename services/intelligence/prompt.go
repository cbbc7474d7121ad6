package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"smartcalendar/models"
)

type promptEvent struct {
	ID         string `json:"id"`
	ClientName string `json:"nomeCliente"`
	Service    string `json:"servico"`
	DateTime   string `json:"dataHora"`
	Date       string `json:"data"`
	Time       string `json:"hora"`
	Duration   int    `json:"duracao"`
	Notes      string `json:"observacoes"`
}

const promptInstructions = `Você interpreta comandos de agendamento de uma barbearia e devolve UM objeto JSON com a ação a executar.

Ações ("acao") e campos de "dados":
- "agendar": {"nomeCliente", "dataHora" (YYYY-MM-DDTHH:MM:SS), "duracao" (minutos), "servico", "observacoes"}
- "consultar": {"nomeCliente", "data" (YYYY-MM-DD), "servico"}, todos opcionais
- "cancelar": {"nomeCliente", "data" (YYYY-MM-DD, opcional)}
- "atualizar": {"nomeCliente", "dataAntiga" (opcional), "dataNova" (YYYY-MM-DDTHH:MM:SS), "servico", "duracao", "observacoes"}
- "responder": {"mensagem"} para saudações, dúvidas ou quando faltar informação

Quando o usuário citar um dia ("dia 27", "amanhã"), converta para YYYY-MM-DD usando a data de hoje.
Retorne APENAS o objeto JSON, sem explicações.`

// BuildPrompt assembles the model prompt: instructions, the current bookings as
// grounding context, today's date and the user's utterance.
func BuildPrompt(utterance string, events []models.Event, now time.Time, loc *time.Location) string {
	rows := make([]promptEvent, 0, len(events))
	for _, e := range events {
		t := e.DateTime.In(loc)
		service := e.Service
		if service == "" {
			service = "sem serviço"
		}
		duration := e.Duration
		if duration <= 0 {
			duration = models.DefaultDuration
		}
		rows = append(rows, promptEvent{
			ID:         e.ID,
			ClientName: e.ClientName,
			Service:    service,
			DateTime:   t.Format(wireDateTime),
			Date:       t.Format("2006-01-02"),
			Time:       t.Format("15:04"),
			Duration:   duration,
			Notes:      e.Notes,
		})
	}
	grounding, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		grounding = []byte("[]")
	}

	var sb strings.Builder
	sb.WriteString(promptInstructions)
	sb.WriteString("\n\nAGENDAMENTOS ATUAIS:\n")
	sb.Write(grounding)
	fmt.Fprintf(&sb, "\n\nHoje é %s (%s).\n", now.In(loc).Format("2006-01-02"), weekdayPT[now.In(loc).Weekday()])
	fmt.Fprintf(&sb, "Comando do usuário: %q\n", utterance)
	return sb.String()
}

var weekdayPT = [...]string{"domingo", "segunda-feira", "terça-feira", "quarta-feira", "quinta-feira", "sexta-feira", "sábado"}
