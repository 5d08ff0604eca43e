package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"
)

// Close codes for the duplex channel.
const (
	closeMissingToken = 4001
	closeInvalidToken = 4002
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// clients are browsers served from anywhere
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn is one live duplex channel. Writes are serialized by writeMu;
// alive is managed by the heartbeat sweep.
type wsConn struct {
	playerID string
	conn     *websocket.Conn
	writeMu  sync.Mutex
	alive    bool
	done     chan struct{}
}

func (c *wsConn) writeEvent(ev Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(ev)
}

func (c *wsConn) close(code int, reason string) {
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(code, reason)
	c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	c.conn.WriteMessage(websocket.CloseMessage, msg)
	c.writeMu.Unlock()
	c.conn.Close()
}

// inboundMessage is the only client-to-server channel traffic.
type inboundMessage struct {
	Type string `json:"type"`
}

// Fanout keeps at most one live channel per player and delivers outbound
// events. Channel state has its own mutex so that sends never contend with
// the server's registry lock.
type Fanout struct {
	srv *Server
	log slog.Logger

	mu    sync.Mutex
	conns map[string]*wsConn
	grace map[string]*time.Timer
}

// NewFanout creates an empty fan-out bound to the server.
func NewFanout(srv *Server, log slog.Logger) *Fanout {
	return &Fanout{
		srv:   srv,
		log:   log,
		conns: make(map[string]*wsConn),
		grace: make(map[string]*time.Timer),
	}
}

// HandleWS upgrades an HTTP request into the duplex channel. The session
// token travels as the sessionId query parameter; a missing or invalid
// token yields close code 4001 or 4002.
func (f *Fanout) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.Debugf("Websocket upgrade failed: %v", err)
		return
	}

	token := r.URL.Query().Get("sessionId")
	if token == "" {
		c := &wsConn{conn: conn}
		c.close(closeMissingToken, "missing session token")
		return
	}

	f.srv.mu.Lock()
	sess, ok := f.srv.store.SessionByToken(token)
	if ok {
		sess.LastActivity = time.Now()
	}
	f.srv.mu.Unlock()
	if !ok {
		c := &wsConn{conn: conn}
		c.close(closeInvalidToken, "invalid session token")
		return
	}

	c := &wsConn{
		playerID: sess.PlayerID,
		conn:     conn,
		alive:    true,
		done:     make(chan struct{}),
	}
	f.attach(c)

	c.writeEvent(newEvent(EventConnected, ConnectedPayload{PlayerID: sess.PlayerID}))
	f.readLoop(c)
}

// attach registers the channel, cancelling any pending disconnect-removal
// timer (a reattach is a reconnection, not a new identity) and replacing a
// previous channel for the same player.
func (f *Fanout) attach(c *wsConn) {
	f.mu.Lock()
	if timer, ok := f.grace[c.playerID]; ok {
		timer.Stop()
		delete(f.grace, c.playerID)
		f.log.Debugf("Player %s reconnected within the grace window", c.playerID)
	}
	old := f.conns[c.playerID]
	f.conns[c.playerID] = c
	f.mu.Unlock()

	if old != nil {
		old.close(websocket.CloseNormalClosure, "replaced by a new connection")
	}
	f.log.Debugf("Channel attached for player %s", c.playerID)
}

// readLoop consumes inbound messages until the channel dies. Any inbound
// traffic counts as liveness; ping gets a pong reply.
func (f *Fanout) readLoop(c *wsConn) {
	defer f.onClose(c)
	for {
		var msg inboundMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		f.mu.Lock()
		c.alive = true
		f.mu.Unlock()

		// anything other than ping still refreshes liveness but gets no
		// reply; error events are reserved for asynchronous failures
		if msg.Type == "ping" {
			if err := c.writeEvent(newEvent(EventPong, PongPayload{})); err != nil {
				return
			}
		}
	}
}

// onClose drops the channel and arms the disconnect-removal timer.
func (f *Fanout) onClose(c *wsConn) {
	c.conn.Close()

	f.mu.Lock()
	if f.conns[c.playerID] != c {
		// already replaced by a reattach
		f.mu.Unlock()
		return
	}
	delete(f.conns, c.playerID)
	playerID := c.playerID
	f.grace[playerID] = time.AfterFunc(f.srv.cfg.DisconnectGrace.Duration, func() {
		f.graceExpired(playerID)
	})
	f.mu.Unlock()

	f.log.Debugf("Channel closed for player %s, grace timer armed", playerID)
}

// graceExpired removes a player from their room after the grace window
// passed without a reattach. Games are left alone for the inactivity GC.
func (f *Fanout) graceExpired(playerID string) {
	f.mu.Lock()
	delete(f.grace, playerID)
	if _, reattached := f.conns[playerID]; reattached {
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()

	var out outbox
	f.srv.mu.Lock()
	if !f.srv.closed {
		if sess, ok := f.srv.store.SessionByPlayer(playerID); ok && sess.CurrentRoomID != "" {
			if room, ok := f.srv.store.Room(sess.CurrentRoomID); ok {
				f.srv.leaveRoomLocked(&out, room, playerID, "disconnect")
			}
		}
	}
	f.srv.mu.Unlock()

	out.flush(f.srv.events)
	f.log.Infof("Player %s disconnected past the grace window", playerID)
}

// Send implements EventSender. A send to a missing or dead channel is a
// silent no-op.
func (f *Fanout) Send(playerID string, ev Event) {
	f.mu.Lock()
	c, ok := f.conns[playerID]
	f.mu.Unlock()
	if !ok {
		return
	}
	if err := c.writeEvent(ev); err != nil {
		f.log.Debugf("Send to player %s failed: %v", playerID, err)
	}
}

// Connected reports whether a player currently has a live channel.
func (f *Fanout) Connected(playerID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.conns[playerID]
	return ok
}

// sweepHeartbeats terminates channels that produced no traffic since the
// previous sweep and resets the liveness flag on the rest.
func (f *Fanout) sweepHeartbeats() {
	var dead []*wsConn

	f.mu.Lock()
	for _, c := range f.conns {
		if !c.alive {
			dead = append(dead, c)
			continue
		}
		c.alive = false
	}
	f.mu.Unlock()

	for _, c := range dead {
		f.log.Debugf("Heartbeat missed by player %s, terminating channel", c.playerID)
		c.close(websocket.CloseGoingAway, "heartbeat timeout")
	}
}

// CloseAll terminates every channel and pending grace timer.
func (f *Fanout) CloseAll() {
	f.mu.Lock()
	conns := make([]*wsConn, 0, len(f.conns))
	for _, c := range f.conns {
		conns = append(conns, c)
	}
	f.conns = make(map[string]*wsConn)
	for id, timer := range f.grace {
		timer.Stop()
		delete(f.grace, id)
	}
	f.mu.Unlock()

	for _, c := range conns {
		c.close(websocket.CloseGoingAway, "server shutting down")
	}
}
