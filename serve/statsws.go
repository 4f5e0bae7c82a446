package serve

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"effdet/video"
)

const (
	// Time allowed to write message to the client
	writeWait  = 10 * time.Second
	pingPeriod = 10 * time.Second
)

// StatsUpdater pushes FrameStats as JSON to every connected websocket client.
type StatsUpdater struct {
	upgrader websocket.Upgrader
	cs       map[chan video.FrameStats]bool
	addc     chan chan video.FrameStats
	delc     chan chan video.FrameStats
	notify   chan video.FrameStats
	quit     chan bool
}

func NewStatsUpdater() *StatsUpdater {
	m := &StatsUpdater{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		cs:     make(map[chan video.FrameStats]bool),
		addc:   make(chan chan video.FrameStats),
		delc:   make(chan chan video.FrameStats),
		notify: make(chan video.FrameStats),
		quit:   make(chan bool),
	}
	go func() {
		for {
			select {
			case c := <-m.addc:
				m.cs[c] = true
			case c := <-m.delc:
				delete(m.cs, c)
			case s := <-m.notify:
				for k := range m.cs {
					select {
					case k <- s:
					default:
						// Client is behind; it gets the next one.
					}
				}
			case <-m.quit:
				return
			}
		}
	}()
	return m
}

func (m *StatsUpdater) FrameDone(s video.FrameStats) {
	select {
	case m.notify <- s:
	case <-m.quit:
	}
}

func (m *StatsUpdater) Close() {
	close(m.quit)
}

func (m *StatsUpdater) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if _, ok := err.(websocket.HandshakeError); !ok {
			log.WithField("addr", r.RemoteAddr).Errorf("Websocket handshake failed for stats stream: %v", err)
		}
		return
	}
	go m.serve(ws)
}

func (m *StatsUpdater) serve(ws *websocket.Conn) {
	clog := log.WithField("addr", ws.RemoteAddr())
	clog.Info("connected to stats socket")
	defer func() {
		ws.Close()
		clog.Info("disconnected from stats socket")
	}()
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	statsc := make(chan video.FrameStats, 1)
	select {
	case m.addc <- statsc:
	case <-m.quit:
		return
	}
	defer func() {
		select {
		case m.delc <- statsc:
		case <-m.quit:
		}
	}()

	// Even though we don't care about incoming messages, we need to read from
	// the socket in order to process control messages.
	go func() {
		for {
			if _, _, err := ws.NextReader(); err != nil {
				ws.Close()
				return
			}
		}
	}()

	for {
		select {
		case s := <-statsc:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(s); err != nil {
				return
			}
		case <-pingTicker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		case <-m.quit:
			return
		}
	}
}
