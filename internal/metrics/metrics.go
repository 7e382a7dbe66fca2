package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebSocket metrics
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chessroom_connections_active",
		Help: "The current number of active WebSocket connections.",
	})
	TotalConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chessroom_connections_total",
		Help: "The total number of WebSocket connections accepted.",
	})
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chessroom_messages_received_total",
		Help: "The total number of messages received from clients.",
	})
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chessroom_messages_sent_total",
		Help: "The total number of messages sent to clients.",
	})

	// Session metrics
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chessroom_sessions_active",
		Help: "The current number of sessions held by the registry.",
	})
	SweptSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chessroom_sessions_swept_total",
		Help: "The total number of sessions removed by the maintenance sweep.",
	})
	MovesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chessroom_moves_applied_total",
		Help: "The total number of accepted moves.",
	})

	// Protocol metrics
	ProtocolErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chessroom_protocol_errors_total",
		Help: "The total number of rejected client requests.",
	}, []string{"kind"})
)
