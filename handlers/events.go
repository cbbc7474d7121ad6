package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	eventRepo "smartcalendar/database/repository/event"
	"smartcalendar/models"
	ai "smartcalendar/services/intelligence"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var eventTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"}

// EventInput is the body of POST and PUT /api/eventos.
type EventInput struct {
	ClientName *string `json:"nomeCliente" binding:"omitempty,min=1,max=120"`
	Service    *string `json:"servico" binding:"omitempty,max=120"`
	DateTime   *string `json:"dataHora"`
	Duration   *int    `json:"duracao" binding:"omitempty,gte=1,lte=1440"`
	Notes      *string `json:"observacoes"`
}

// EventHandler is the REST surface over the event store.
type EventHandler struct {
	Repo      eventRepo.EventRepository
	Resolver  *ai.DateResolver
	Reminders ai.ReminderScheduler
	Now       func() time.Time
}

func NewEventHandler(repo eventRepo.EventRepository, resolver *ai.DateResolver, reminders ai.ReminderScheduler) *EventHandler {
	return &EventHandler{Repo: repo, Resolver: resolver, Reminders: reminders, Now: time.Now}
}

// List returns events filtered by the nomeCliente, servico and data query params.
func (h *EventHandler) List(c *gin.Context) {
	logger := getLogger(c)

	filter := models.EventFilter{
		ClientName: strings.TrimSpace(c.Query("nomeCliente")),
		Service:    strings.TrimSpace(c.Query("servico")),
	}
	if date := c.Query("data"); date != "" {
		day, err := h.Resolver.Resolve(date, h.Now())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Data inválida: " + date})
			return
		}
		filter.From, filter.To = &day.Start, &day.End
	}

	events, err := h.Repo.ListMatching(c.Request.Context(), filter)
	if err != nil {
		logger.Error("Failed to list events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível consultar os agendamentos"})
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, "Failed to get event", err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// Create stores a new event. nomeCliente and dataHora are required.
func (h *EventHandler) Create(c *gin.Context) {
	logger := getLogger(c)

	var in EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requisição inválida: " + err.Error()})
		return
	}
	if in.ClientName == nil || strings.TrimSpace(*in.ClientName) == "" || in.DateTime == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nome do cliente e data/hora são obrigatórios"})
		return
	}
	when, err := h.parseTime(*in.DateTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dataHora inválida: " + *in.DateTime})
		return
	}

	event := models.Event{ClientName: strings.TrimSpace(*in.ClientName), DateTime: when, Service: models.DefaultService}
	if in.Service != nil && *in.Service != "" {
		event.Service = *in.Service
	}
	if in.Duration != nil {
		event.Duration = *in.Duration
	}
	if in.Notes != nil {
		event.Notes = *in.Notes
	}

	created, err := h.Repo.Create(c.Request.Context(), event)
	if err != nil {
		logger.Error("Failed to create event", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível criar o agendamento"})
		return
	}
	if h.Reminders != nil {
		if err := h.Reminders.ScheduleReminder(c.Request.Context(), *created); err != nil {
			logger.Warn("Failed to schedule reminder", zap.String("event", created.ID), zap.Error(err))
		}
	}
	c.JSON(http.StatusCreated, created)
}

// Update applies the fields present in the body.
func (h *EventHandler) Update(c *gin.Context) {
	var in EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requisição inválida: " + err.Error()})
		return
	}

	changes := models.EventChanges{
		ClientName: in.ClientName,
		Service:    in.Service,
		Duration:   in.Duration,
		Notes:      in.Notes,
	}
	if in.DateTime != nil {
		when, err := h.parseTime(*in.DateTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dataHora inválida: " + *in.DateTime})
			return
		}
		changes.DateTime = &when
	}
	if changes.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nenhum campo para atualizar"})
		return
	}

	updated, err := h.Repo.Update(c.Request.Context(), c.Param("id"), changes)
	if err != nil {
		h.storeError(c, "Failed to update event", err)
		return
	}
	if h.Reminders != nil && changes.DateTime != nil {
		if err := ai.RescheduleReminder(c.Request.Context(), h.Reminders, *updated); err != nil {
			getLogger(c).Warn("Failed to reschedule reminder", zap.String("event", updated.ID), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, updated)
}

func (h *EventHandler) Delete(c *gin.Context) {
	deleted, err := h.Repo.Delete(c.Request.Context(), c.Param("id"))
	if err == nil && !deleted {
		err = eventRepo.ErrEventNotFound
	}
	if err != nil {
		h.storeError(c, "Failed to delete event", err)
		return
	}
	if h.Reminders != nil {
		if err := h.Reminders.CancelReminder(c.Request.Context(), c.Param("id")); err != nil {
			getLogger(c).Warn("Failed to cancel reminder", zap.String("event", c.Param("id")), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Agendamento removido com sucesso"})
}

func (h *EventHandler) storeError(c *gin.Context, msg string, err error) {
	if errors.Is(err, eventRepo.ErrEventNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Agendamento não encontrado"})
		return
	}
	getLogger(c).Error(msg, zap.String("id", c.Param("id")), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao acessar os agendamentos"})
}

func (h *EventHandler) parseTime(s string) (time.Time, error) {
	loc := h.Resolver.Location()
	for _, layout := range eventTimeLayouts {
		if t, err := time.ParseInLocation(layout, strings.TrimSpace(s), loc); err == nil {
			return t, nil
		}
	}
	day, err := h.Resolver.Resolve(s, h.Now())
	if err != nil {
		return time.Time{}, err
	}
	return day.Instant, nil
}
