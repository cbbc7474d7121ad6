package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartcalendar_turns_total",
		Help: "Conversation turns by the path that produced the action.",
	}, []string{"path"})

	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartcalendar_actions_total",
		Help: "Dispatched actions by kind.",
	}, []string{"acao"})
)

const (
	pathModel        = "model"
	pathFallback     = "fallback"
	pathConfirmation = "confirmation"
)
