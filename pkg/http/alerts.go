package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"liyu1981.xyz/smart-farm-service/pkg/common"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

func (rs *RestfulServer) GetAlerts(c *gin.Context) {
	alerts, err := rs.Iot.Alert.GetAlerts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (rs *RestfulServer) GetFieldAlerts(c *gin.Context) {
	alerts, err := rs.Iot.Alert.GetFieldAlerts(c.Request.Context(), c.Param("fieldId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

// StreamAlerts upgrades to a websocket and pushes every alert committed after the upgrade as a
// JSON text message. The optional fieldId query narrows the stream to one field.
func (rs *RestfulServer) StreamAlerts(c *gin.Context) {
	logger := common.GetLoggerWith(common.LoggerNameRestfulServer)

	conn, err := rs.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already answered the client
		logger.Warn("Alert stream upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	fieldID := c.Query("fieldId")
	ch := rs.Iot.Broker.Subscribe()
	defer rs.Iot.Broker.Unsubscribe(ch)

	// the read loop only serves control frames and notices the client leaving
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case alert, ok := <-ch:
			if !ok {
				return
			}
			if fieldID != "" && alert.FieldID != fieldID {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(alert); err != nil {
				logger.Info("Alert stream closed", zap.Error(err))
				return
			}
		}
	}
}
