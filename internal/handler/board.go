package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the handshake is authenticated by token, not by cookie
	CheckOrigin: func(r *http.Request) bool { return true },
}

// BoardHandler upgrades staff connections to the live reservation board.
type BoardHandler struct {
	Hub    *realtime.Hub
	Buffer int
}

func NewBoardHandler(hub *realtime.Hub) *BoardHandler {
	return &BoardHandler{Hub: hub, Buffer: 64}
}

// Serve handles GET /v1/staff/ws?locations=1,2. Without locations the
// client receives every location's events. It must run behind
// JWTAuthQuery so browsers can pass ?token=.
func (h *BoardHandler) Serve(c echo.Context) error {
	topics, ok := boardTopics(c.QueryParam("locations"))
	if !ok {
		return badRequest(c, "locations must be a comma separated list of ids")
	}
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already replied
		return nil
	}
	client := realtime.NewClient(h.Hub, conn, actorOf(c), h.Buffer)
	h.Hub.Attach(client, topics)
	client.Send(realtime.Message{Topic: "system", Type: "system.welcome", Data: topics, Timestamp: time.Now().UTC()})
	go client.WritePump()
	client.ReadPump()
	return nil
}

func boardTopics(raw string) ([]string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{realtime.TopicAll}, true
	}
	var out []string
	seen := map[uint64]bool{}
	for _, p := range strings.Split(raw, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil || id == 0 {
			return nil, false
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, realtime.LocationTopic(id))
		}
	}
	return out, true
}
