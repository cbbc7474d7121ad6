package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	chatRepo "smartcalendar/database/repository/chat"
	eventRepo "smartcalendar/database/repository/event"
	"smartcalendar/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedModel struct {
	mu        sync.Mutex
	calls     int
	histories [][]models.ChatMessage
	answer    func(prompt string) (string, error)
}

func (m *scriptedModel) Complete(_ context.Context, prompt string, priorTurns []models.ChatMessage) (string, error) {
	m.mu.Lock()
	m.calls++
	m.histories = append(m.histories, priorTurns)
	m.mu.Unlock()
	return m.answer(prompt)
}

func (m *scriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func answering(text string) *scriptedModel {
	return &scriptedModel{answer: func(string) (string, error) { return text, nil }}
}

type recordingReminders struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingReminders) ScheduleReminder(_ context.Context, event models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "schedule "+event.ID+" "+event.DateTime.In(testLoc).Format(time.RFC3339))
	return nil
}

func (r *recordingReminders) CancelReminder(_ context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "cancel "+eventID)
	return nil
}

type harness struct {
	interp    *Interpreter
	events    *eventRepo.MemoryEventRepo
	chats     *chatRepo.MemoryChatRepo
	contexts  *MemoryContextStore
	reminders *recordingReminders
}

func newHarness(model LanguageModel, confirm bool, seed ...models.Event) *harness {
	h := &harness{
		events:    eventRepo.NewMemoryEventRepo(seed...),
		chats:     chatRepo.NewMemoryChatRepo(),
		contexts:  NewMemoryContextStore(time.Hour),
		reminders: &recordingReminders{},
	}
	h.interp = NewInterpreter(Options{
		Model:              model,
		Events:             h.events,
		Contexts:           h.contexts,
		Chats:              h.chats,
		Reminders:          h.reminders,
		Location:           testLoc,
		Now:                fixedNow(fallbackRef),
		ConfirmDestructive: confirm,
		HistoryTurns:       3,
	})
	return h
}

func at(day, hour int) time.Time {
	return time.Date(2025, 3, day, hour, 0, 0, 0, testLoc)
}

func (h *harness) all(t *testing.T) []models.Event {
	events, err := h.events.ListMatching(context.Background(), models.EventFilter{})
	require.NoError(t, err)
	return events
}

func TestTurnFallbackWithoutModel(t *testing.T) {
	h := newHarness(nil, false)

	res := h.interp.Turn(context.Background(), "agendar corte para joão amanhã às 14h", "s1")
	assert.Equal(t, models.ActionSchedule, res.Action)
	assert.Equal(t, "Agendamento para João criado com sucesso para 11/03/2025 14:00.", res.Reply)

	events := h.all(t)
	require.Len(t, events, 1)
	assert.Equal(t, "João", events[0].ClientName)
	assert.True(t, events[0].DateTime.Equal(at(11, 14)))
	assert.Equal(t, &events[0], res.Payload)
}

func TestTurnModelFailureUsesFallback(t *testing.T) {
	model := &scriptedModel{answer: func(string) (string, error) { return "", errors.New("timeout") }}
	h := newHarness(model, false)

	res := h.interp.Turn(context.Background(), "agendar corte para joão amanhã às 14h", "s1")
	assert.Equal(t, models.ActionSchedule, res.Action)
	assert.Equal(t, 1, model.Calls())
	assert.Equal(t, 1, h.events.Len())
}

func TestTurnUnparseableModelOutputUsesFallback(t *testing.T) {
	h := newHarness(answering("Olá! Tudo bem com você?"), false)

	res := h.interp.Turn(context.Background(), "oi", "s1")
	assert.Equal(t, models.ActionReply, res.Action)
	assert.Equal(t, HelpMessage, res.Reply)
}

func TestTurnModelQueryGroundedOnStore(t *testing.T) {
	var prompt string
	model := &scriptedModel{answer: func(p string) (string, error) {
		prompt = p
		return "```json\n{\"acao\":\"consultar\",\"dados\":{\"nomeCliente\":\"ana\"}}\n```", nil
	}}
	h := newHarness(model, false,
		models.Event{ClientName: "Ana", Service: "barba", DateTime: at(11, 10)},
		models.Event{ClientName: "Bruno", DateTime: at(11, 11)},
	)

	res := h.interp.Turn(context.Background(), "horários da Ana", "s1")
	assert.Equal(t, models.ActionQuery, res.Action)
	assert.Equal(t, "Encontrei os seguintes agendamentos:\n1. Ana: barba em 11/03/2025 10:00", res.Reply)
	assert.Contains(t, prompt, "Bruno")
}

func TestTurnQueryEnumeratesMatches(t *testing.T) {
	h := newHarness(answering(`{"acao":"consultar","dados":{"data":"11/03/2025"}}`), false,
		models.Event{ClientName: "Bruno", DateTime: at(11, 11)},
		models.Event{ClientName: "Ana", Service: "barba", DateTime: at(11, 10)},
		models.Event{ClientName: "Carla", DateTime: at(12, 10)},
	)

	res := h.interp.Turn(context.Background(), "agenda de amanhã", "s1")
	assert.Equal(t, "Encontrei os seguintes agendamentos:\n"+
		"1. Ana: barba em 11/03/2025 10:00\n"+
		"2. Bruno: sem serviço em 11/03/2025 11:00", res.Reply)
	assert.Len(t, res.Payload, 2)
}

func TestTurnQueryNothingFound(t *testing.T) {
	h := newHarness(answering(`{"acao":"consultar","dados":{"nomeCliente":"Zeca"}}`), false)

	res := h.interp.Turn(context.Background(), "horários do Zeca", "s1")
	assert.Equal(t, "Não encontrei nenhum agendamento com esses critérios.", res.Reply)
}

func TestTurnUnresolvableDateIsOmitted(t *testing.T) {
	h := newHarness(answering(`{"acao":"consultar","dados":{"data":"quando der"}}`), false,
		models.Event{ClientName: "Ana", DateTime: at(11, 10)},
		models.Event{ClientName: "Bruno", DateTime: at(12, 10)},
	)

	res := h.interp.Turn(context.Background(), "ver agenda", "s1")
	assert.Contains(t, res.Reply, "Ana")
	assert.Contains(t, res.Reply, "Bruno")
}

func TestTurnScheduleMissingFields(t *testing.T) {
	h := newHarness(answering(`{"acao":"agendar","dados":{"servico":"barba"}}`), false)

	res := h.interp.Turn(context.Background(), "quero fazer a barba", "s1")
	assert.Equal(t, "Nome do cliente e data/hora são obrigatórios para criar um agendamento.", res.Reply)
	assert.Equal(t, 0, h.events.Len())
}

func TestTurnCancelDisambiguation(t *testing.T) {
	h := newHarness(answering(`{"acao":"cancelar","dados":{"nomeCliente":"Maria"}}`), true,
		models.Event{ClientName: "Maria", Service: "barba", DateTime: at(12, 9)},
		models.Event{ClientName: "Maria Clara", DateTime: at(11, 15)},
	)

	res := h.interp.Turn(context.Background(), "cancelar Maria", "s1")
	assert.Equal(t, models.ActionCancel, res.Action)
	assert.False(t, res.RequiresConfirmation)
	assert.Equal(t, "Encontrei mais de um agendamento. Qual deles você deseja cancelar?\n"+
		"1. Maria Clara: sem serviço em 11/03/2025 15:00\n"+
		"2. Maria: barba em 12/03/2025 09:00", res.Reply)
	assert.Equal(t, 2, h.events.Len())

	aiCtx, err := h.contexts.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, aiCtx.HasPending())
}

func TestTurnCancelWithoutConfirmation(t *testing.T) {
	h := newHarness(answering(`{"acao":"cancelar","dados":{"nomeCliente":"carlos","data":"11/03/2025"}}`), false,
		models.Event{ClientName: "Carlos", DateTime: at(11, 10)},
		models.Event{ClientName: "Carlos", DateTime: at(12, 10)},
	)

	res := h.interp.Turn(context.Background(), "cancela o Carlos de amanhã", "s1")
	assert.Equal(t, "Agendamento de Carlos para 11/03/2025 10:00 foi cancelado com sucesso.", res.Reply)
	events := h.all(t)
	require.Len(t, events, 1)
	assert.True(t, events[0].DateTime.Equal(at(12, 10)))
}

func TestTurnConfirmAndNegate(t *testing.T) {
	model := answering(`{"acao":"cancelar","dados":{"nomeCliente":"Carlos"}}`)
	h := newHarness(model, true, models.Event{ClientName: "Carlos", DateTime: at(11, 10)})
	ctx := context.Background()

	res := h.interp.Turn(ctx, "cancelar horário do Carlos", "s1")
	assert.True(t, res.RequiresConfirmation)
	assert.Equal(t, "Confirma o cancelamento do agendamento de Carlos em 11/03/2025 10:00? (sim/não)", res.Reply)
	assert.Equal(t, 1, h.events.Len())

	res = h.interp.Turn(ctx, "não", "s1")
	assert.Equal(t, "Operação cancelada. Como posso ajudar você agora?", res.Reply)
	assert.Equal(t, 1, h.events.Len())
	assert.Equal(t, 1, model.Calls())

	h.interp.Turn(ctx, "cancelar horário do Carlos", "s1")
	res = h.interp.Turn(ctx, "sim", "s1")
	assert.Equal(t, models.ActionCancel, res.Action)
	assert.Equal(t, "Agendamento de Carlos para 11/03/2025 10:00 foi cancelado com sucesso.", res.Reply)
	assert.Equal(t, 0, h.events.Len())
	assert.Equal(t, 2, model.Calls())
}

func TestTurnPendingLapsesOnOtherUtterance(t *testing.T) {
	model := &scriptedModel{answer: func(p string) (string, error) {
		if strings.Contains(p, `"cancelar horário do Carlos"`) {
			return `{"acao":"cancelar","dados":{"nomeCliente":"Carlos"}}`, nil
		}
		return `{"acao":"responder","dados":{"mensagem":"Estamos abertos até as 20h."}}`, nil
	}}
	h := newHarness(model, true, models.Event{ClientName: "Carlos", DateTime: at(11, 10)})
	ctx := context.Background()

	res := h.interp.Turn(ctx, "cancelar horário do Carlos", "s1")
	require.True(t, res.RequiresConfirmation)

	res = h.interp.Turn(ctx, "até que horas vocês abrem?", "s1")
	assert.Equal(t, "Estamos abertos até as 20h.", res.Reply)
	assert.Equal(t, 1, h.events.Len())

	// the pending cancel is gone, so "sim" goes through the pipeline again
	res = h.interp.Turn(ctx, "sim", "s1")
	assert.Equal(t, models.ActionReply, res.Action)
	assert.Equal(t, 1, h.events.Len())
	assert.Equal(t, 3, model.Calls())
}

func TestTurnPendingIsPerSession(t *testing.T) {
	h := newHarness(answering(`{"acao":"cancelar","dados":{"nomeCliente":"Carlos"}}`), true,
		models.Event{ClientName: "Carlos", DateTime: at(11, 10)})
	ctx := context.Background()

	require.True(t, h.interp.Turn(ctx, "cancelar Carlos", "a").RequiresConfirmation)
	h.interp.Turn(ctx, "sim", "b")
	assert.Equal(t, 1, h.events.Len())
}

func TestTurnUpdateKeepsTimeOfDay(t *testing.T) {
	h := newHarness(answering(`{"acao":"atualizar","dados":{"nomeCliente":"Ana","dataNova":"2025-03-12","servico":"barba"}}`), false,
		models.Event{ClientName: "Ana", DateTime: time.Date(2025, 3, 11, 10, 30, 0, 0, testLoc)})

	res := h.interp.Turn(context.Background(), "passa a Ana para quarta", "s1")
	assert.Equal(t, "Agendamento de Ana foi atualizado com sucesso.", res.Reply)

	events := h.all(t)
	require.Len(t, events, 1)
	assert.True(t, events[0].DateTime.Equal(time.Date(2025, 3, 12, 10, 30, 0, 0, testLoc)))
	assert.Equal(t, "barba", events[0].Service)
}

func TestTurnUpdateWithNewTime(t *testing.T) {
	h := newHarness(answering(`{"acao":"atualizar","dados":{"nomeCliente":"Ana","dataNova":"2025-03-12T15:00:00"}}`), false,
		models.Event{ClientName: "Ana", DateTime: at(11, 10)})

	h.interp.Turn(context.Background(), "Ana quarta às 15h", "s1")
	assert.True(t, h.all(t)[0].DateTime.Equal(at(12, 15)))
}

func TestTurnScheduleEnqueuesReminder(t *testing.T) {
	h := newHarness(nil, false)

	h.interp.Turn(context.Background(), "agendar corte para joão amanhã às 14h", "s1")
	events := h.all(t)
	require.Len(t, events, 1)
	assert.Equal(t, []string{"schedule " + events[0].ID + " 2025-03-11T14:00:00-03:00"}, h.reminders.calls)
}

func TestTurnCancelWithdrawsReminder(t *testing.T) {
	h := newHarness(answering(`{"acao":"cancelar","dados":{"nomeCliente":"Ana"}}`), false,
		models.Event{ID: "e1", ClientName: "Ana", DateTime: at(11, 10)})

	h.interp.Turn(context.Background(), "cancelar o agendamento da Ana", "s1")
	assert.Equal(t, 0, h.events.Len())
	assert.Equal(t, []string{"cancel e1"}, h.reminders.calls)
}

func TestTurnUpdateMovesReminder(t *testing.T) {
	h := newHarness(answering(`{"acao":"atualizar","dados":{"nomeCliente":"Ana","dataNova":"2025-03-12T15:00:00"}}`), false,
		models.Event{ID: "e1", ClientName: "Ana", DateTime: at(11, 10)})

	h.interp.Turn(context.Background(), "Ana quarta às 15h", "s1")
	assert.Equal(t, []string{"cancel e1", "schedule e1 2025-03-12T15:00:00-03:00"}, h.reminders.calls)
}

func TestTurnUpdateWithoutNewDateKeepsReminder(t *testing.T) {
	h := newHarness(answering(`{"acao":"atualizar","dados":{"nomeCliente":"Ana","servico":"barba"}}`), false,
		models.Event{ID: "e1", ClientName: "Ana", DateTime: at(11, 10)})

	h.interp.Turn(context.Background(), "Ana vai fazer barba", "s1")
	assert.Equal(t, "barba", h.all(t)[0].Service)
	assert.Empty(t, h.reminders.calls)
}

func TestTurnUpdateNothingToChange(t *testing.T) {
	h := newHarness(answering(`{"acao":"atualizar","dados":{"nomeCliente":"Ana"}}`), false,
		models.Event{ClientName: "Ana", DateTime: at(11, 10)})

	res := h.interp.Turn(context.Background(), "muda a Ana", "s1")
	assert.Equal(t, "Nenhuma alteração informada para o agendamento de Ana.", res.Reply)
}

func TestTurnEmptyReplyText(t *testing.T) {
	h := newHarness(answering(`{"acao":"responder","dados":{"mensagem":"  "}}`), false)

	res := h.interp.Turn(context.Background(), "hmm", "s1")
	assert.Equal(t, "Desculpe, não entendi o que você deseja fazer.", res.Reply)
}

type failingEvents struct {
	*eventRepo.MemoryEventRepo
}

func (failingEvents) Create(context.Context, models.Event) (*models.Event, error) {
	return nil, errors.New("disco cheio")
}

func TestTurnStoreFailureBecomesReply(t *testing.T) {
	chats := chatRepo.NewMemoryChatRepo()
	interp := NewInterpreter(Options{
		Events:   failingEvents{eventRepo.NewMemoryEventRepo()},
		Chats:    chats,
		Location: testLoc,
		Now:      fixedNow(fallbackRef),
	})

	res := interp.Turn(context.Background(), "agendar para ana amanhã às 10h", "s1")
	assert.Equal(t, "Não foi possível criar o agendamento. Erro: disco cheio", res.Reply)

	logs, err := interp.History(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.SenderUser, logs[0].Sender)
	assert.False(t, logs[0].Error)
	assert.Equal(t, models.SenderAssistant, logs[1].Sender)
	assert.True(t, logs[1].Error)
}

func TestTurnHistoryIsBoundedAndSentToModel(t *testing.T) {
	model := answering(`{"acao":"responder","dados":{"mensagem":"ok"}}`)
	h := newHarness(model, false)
	ctx := context.Background()

	for n := 0; n < 5; n++ {
		h.interp.Turn(ctx, fmt.Sprintf("mensagem %d", n), "s1")
	}

	aiCtx, err := h.contexts.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, aiCtx.History, 6)
	assert.Equal(t, models.ChatMessage{Role: "user", Content: "mensagem 2"}, aiCtx.History[0])
	assert.Equal(t, models.ChatMessage{Role: "assistant", Content: `{"acao":"responder","dados":{"mensagem":"ok"}}`}, aiCtx.History[5])

	assert.Empty(t, model.histories[0])
	assert.Len(t, model.histories[4], 6)

	logs, err := h.interp.History(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, logs, 10)
}

func TestTurnHistoryKeepsReplyWhenFallbackAnswered(t *testing.T) {
	model := &scriptedModel{answer: func(string) (string, error) { return "", errors.New("timeout") }}
	h := newHarness(model, false)
	ctx := context.Background()

	res := h.interp.Turn(ctx, "oi", "s1")

	aiCtx, err := h.contexts.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, aiCtx.History, 2)
	assert.Equal(t, models.ChatMessage{Role: "assistant", Content: res.Reply}, aiCtx.History[1])
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "curto", truncate("curto", 10))
	assert.Equal(t, "agendamento...", truncate("agendamento marcado", 11))
	// "não" is n, 0xC3 0xA3, o: cutting at 2 would split the ã
	got := truncate("não quero", 2)
	assert.Equal(t, "n...", got)
	assert.True(t, utf8.ValidString(got))
}

func TestResetClearsPending(t *testing.T) {
	h := newHarness(answering(`{"acao":"cancelar","dados":{"nomeCliente":"Carlos"}}`), true,
		models.Event{ClientName: "Carlos", DateTime: at(11, 10)})
	ctx := context.Background()

	require.True(t, h.interp.Turn(ctx, "cancelar Carlos", "s1").RequiresConfirmation)
	require.NoError(t, h.interp.Reset(ctx, "s1"))

	h.interp.Turn(ctx, "sim", "s1")
	assert.Equal(t, 1, h.events.Len())
}

func TestTurnsAreSerializedPerSession(t *testing.T) {
	var (
		mu      sync.Mutex
		active  = map[string]int{}
		overlap bool
	)
	model := &scriptedModel{}
	model.answer = func(p string) (string, error) {
		session := "a"
		if strings.Contains(p, "sessão b") {
			session = "b"
		}
		mu.Lock()
		active[session]++
		if active[session] > 1 {
			overlap = true
		}
		mu.Unlock()

		time.Sleep(time.Millisecond)

		mu.Lock()
		active[session]--
		mu.Unlock()
		return `{"acao":"agendar","dados":{"nomeCliente":"Ana","dataHora":"2025-03-11T10:00:00"}}`, nil
	}
	h := newHarness(model, false)

	var wg sync.WaitGroup
	for n := 0; n < 20; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			session := "a"
			if n%2 == 1 {
				session = "b"
			}
			h.interp.Turn(context.Background(), "agendar na sessão "+session, session)
		}(n)
	}
	wg.Wait()

	assert.False(t, overlap)
	assert.Equal(t, 20, h.events.Len())

	aiCtx, err := h.contexts.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, aiCtx.History, 6)
	assert.Empty(t, h.interp.locks.locks)
}
