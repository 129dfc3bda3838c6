package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/normanking/cortexguide/internal/bus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// renderers are local tools, any origin may connect
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is one WebSocket frame: a pose or a forwarded bus event
type Message struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data"`
}

// MessagePose is the type of pose frames
const MessagePose = "pose"

func (s *Server) poseStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	s.log.Debug().Str("remote", c.Request.RemoteAddr).Msg("pose stream opened")

	events := make(chan bus.Event, 64)
	if s.bus != nil {
		id := s.bus.SubscribeAll(func(e bus.Event) {
			select {
			case events <- e:
			default:
				// slow client, drop the event
			}
		})
		defer s.bus.Unsubscribe(id)
	}

	// the read loop only services control frames and notices the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(4096)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	frames := s.clock.NewTicker(time.Second / time.Duration(s.streamRate))
	defer frames.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	send := func(m Message) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(m) == nil
	}

	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case <-frames.Chan():
			if !send(Message{Type: MessagePose, Time: s.clock.Now(), Data: s.agent.Body().Pose()}) {
				return
			}
		case e := <-events:
			if !send(Message{Type: string(e.Type), Time: e.Time, Data: e.Data}) {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
