// Coordinator websocket control-plane connection, grounded on the
// teacher's control_connection.go (ControlServerConnection), scoped down
// to the publish-authorization round trip and kill-session/close-stream
// signaling this spec's single active_session model needs, dropping the
// teacher's per-channel publisher registry.

package main

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	messages "github.com/AgustinSRG/go-simple-rpc-message"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

const coordinatorHeartbeatInterval = 20 * time.Second
const coordinatorRequestTimeout = 20 * time.Second
const coordinatorReadDeadline = 60 * time.Second

// Coordinator maintains a websocket session with an external control plane
// that authorizes publish attempts and can remotely kill the active
// session.
type Coordinator struct {
	server *Server

	connectionURL string

	mu            sync.Mutex
	conn          *websocket.Conn
	nextRequestID uint64
	pending       map[string]chan publishDecision
}

type publishDecision struct {
	accepted bool
	streamID string
}

func NewCoordinator(server *Server) *Coordinator {
	c := &Coordinator{
		server:  server,
		pending: make(map[string]chan publishDecision),
	}

	base, err := url.Parse(server.Config.CoordinatorURL)
	if err != nil {
		LogError(err)
		return c
	}
	path, _ := url.Parse("/ws/control/rtmp")
	c.connectionURL = base.ResolveReference(path).String()

	return c
}

// Run connects and keeps reconnecting until the process exits.
func (c *Coordinator) Run() {
	go c.heartbeatLoop()
	c.connect()
}

func (c *Coordinator) connect() {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	LogInfo("[WS-COORDINATOR] connecting to " + c.connectionURL)

	headers := http.Header{}
	if token := c.authToken(); token != "" {
		headers.Set("x-control-auth-token", token)
	}

	conn, _, err := websocket.DefaultDialer.Dial(c.connectionURL, headers)
	if err != nil {
		LogWarning("[WS-COORDINATOR] connection error: " + err.Error())
		time.AfterFunc(10*time.Second, c.connect)
		return
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)
}

func (c *Coordinator) authToken() string {
	secret := c.server.Config.CoordinatorSecret
	if secret == "" {
		return ""
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "rtmp-control"})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		LogError(err)
		return ""
	}
	return signed
}

func (c *Coordinator) onDisconnect(err error) {
	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	if err != nil {
		LogInfo("[WS-COORDINATOR] disconnected: " + err.Error())
	}
	go c.connect()
}

func (c *Coordinator) readLoop(conn *websocket.Conn) {
	for {
		if err := conn.SetReadDeadline(time.Now().Add(coordinatorReadDeadline)); err != nil {
			conn.Close()
			c.onDisconnect(err)
			return
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			c.onDisconnect(err)
			return
		}

		msg := messages.ParseRPCMessage(string(payload))
		c.dispatch(&msg)
	}
}

func (c *Coordinator) dispatch(msg *messages.RPCMessage) {
	switch msg.Method {
	case "PUBLISH-ACCEPT":
		c.resolve(msg.GetParam("Request-Id"), publishDecision{accepted: true, streamID: msg.GetParam("Stream-Id")})
	case "PUBLISH-DENY":
		c.resolve(msg.GetParam("Request-Id"), publishDecision{accepted: false})
	case "STREAM-KILL":
		c.onStreamKill(msg.GetParam("Stream-Id"))
	}
}

func (c *Coordinator) resolve(requestID string, decision publishDecision) {
	c.mu.Lock()
	ch := c.pending[requestID]
	c.mu.Unlock()
	if ch == nil {
		return
	}
	ch <- decision
}

// onStreamKill closes the active publisher if the stream ID the coordinator
// assigned it in PUBLISH-ACCEPT matches (an empty ID or the "*" wildcard
// matches any publisher).
func (c *Coordinator) onStreamKill(streamID string) {
	c.server.mu.Lock()
	active := c.server.activeSession
	c.server.mu.Unlock()

	if active == nil {
		return
	}
	if streamID == "*" || streamID == "" || active.CoordinatorStreamID == streamID {
		active.conn.Close()
	}
}

func (c *Coordinator) send(msg messages.RPCMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return false
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(msg.Serialize())) == nil
}

func (c *Coordinator) heartbeatLoop() {
	for {
		time.Sleep(coordinatorHeartbeatInterval)
		c.send(messages.RPCMessage{Method: "HEARTBEAT"})
	}
}

func (c *Coordinator) nextID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextRequestID
	c.nextRequestID++
	return fmt.Sprint(id)
}

// RequestPublish asks the coordinator to authorize a publish attempt. When
// no coordinator is configured every attempt is accepted locally.
func (c *Coordinator) RequestPublish(app, key, userIP string) (accepted bool, streamID string) {
	requestID := c.nextID()
	waiter := make(chan publishDecision, 1)

	c.mu.Lock()
	c.pending[requestID] = waiter
	c.mu.Unlock()

	ok := c.send(messages.RPCMessage{
		Method: "PUBLISH-REQUEST",
		Params: map[string]string{
			"Request-ID": requestID,
			"App":        app,
			"Stream-Key": key,
			"User-IP":    userIP,
		},
	})

	defer func() {
		c.mu.Lock()
		delete(c.pending, requestID)
		c.mu.Unlock()
	}()

	if !ok {
		return false, ""
	}

	timer := time.AfterFunc(coordinatorRequestTimeout, func() {
		waiter <- publishDecision{accepted: false}
	})
	defer timer.Stop()

	decision := <-waiter
	return decision.accepted, decision.streamID
}
