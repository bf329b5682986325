package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	apperrors "github.com/ikkim/annualreport-backend/internal/errors"
	"github.com/ikkim/annualreport-backend/internal/middleware"
	ws "github.com/ikkim/annualreport-backend/internal/websocket"
)

// BoardController upgrades dashboard clients to the live board feed.
type BoardController struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

func NewBoardController(hub *ws.Hub, allowedOrigins []string) *BoardController {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &BoardController{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// non-browser clients send no origin
				return origin == "" || allowed[origin]
			},
		},
	}
}

// Connect GET /api/v1/board/ws?token=&tax_year=
func (ctrl *BoardController) Connect(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err)
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, userID)
	ctrl.hub.Register(client)
	if year, err := strconv.Atoi(c.Query("tax_year")); err == nil && year > 0 {
		ctrl.hub.Subscribe(client, year)
	}

	go client.WritePump()
	go client.ReadPump()

	log.Info("Board connection established", map[string]interface{}{
		"user_id":   userID,
		"tax_years": client.TaxYears(),
	})
}
