package ws

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"

	"github.com/mgulec/taskroom/internal/metrics"
	"github.com/mgulec/taskroom/internal/protocol"
	"github.com/mgulec/taskroom/internal/realtime"
	"github.com/mgulec/taskroom/internal/websocket"
	"github.com/mgulec/taskroom/pkg/logger"
	"github.com/mgulec/taskroom/service"
)

var upgrader = gws.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSConfig carries everything a connection needs to serve one client.
type WSConfig struct {
	Tasks    *service.TaskService
	Chat     *service.ChatService
	Store    realtime.Store
	Hub      *websocket.Hub
	Metrics  *metrics.Metrics
	Validate *validator.Validate
	RootCtx  context.Context
}

func HandleWebSocket(cfg WSConfig) http.HandlerFunc {
	logg := logger.FromContext(cfg.RootCtx).WithModule("websocket")

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logg.Errorf("upgrade error: %v", err)
			http.Error(w, "Failed to upgrade", http.StatusInternalServerError)
			return
		}

		client := &websocket.Connection{
			ID:       uuid.NewString(),
			Ws:       conn,
			Send:     make(chan protocol.Event, 256),
			Hub:      cfg.Hub,
			Tasks:    cfg.Tasks,
			Chat:     cfg.Chat,
			Store:    cfg.Store,
			Metrics:  cfg.Metrics,
			Validate: cfg.Validate,
			Logger:   logg,
			RootCtx:  cfg.RootCtx,
		}

		cfg.Hub.Register <- client
		logg.Infof("new connection %s from %s", client.ID, conn.RemoteAddr())

		go client.ReadPump()
		go client.WritePump()
	}
}
