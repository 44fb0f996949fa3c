// Package mockserver provides an in-process WebSocket server for tests.
package mockserver

import (
	"encoding/pem"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wsact/wsact-go/pkg/config"
)

// HandlerFunc drives one accepted connection. When it returns, the
// connection is torn down.
type HandlerFunc func(sess *Session)

// Session is one accepted server-side connection.
type Session struct {
	Conn *websocket.Conn
}

// SendText writes a text message.
func (s *Session) SendText(data string) error {
	return s.Conn.WriteMessage(websocket.TextMessage, []byte(data))
}

// SendBinary writes a binary message.
func (s *Session) SendBinary(data []byte) error {
	return s.Conn.WriteMessage(websocket.BinaryMessage, data)
}

// SendClose initiates the closing handshake with the given status code.
func (s *Session) SendClose(code int, reason string) error {
	msg := websocket.FormatCloseMessage(code, reason)
	return s.Conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

// Drop kills the underlying TCP connection without a closing handshake.
func (s *Session) Drop() {
	s.Conn.UnderlyingConn().Close()
}

// AwaitClientClose reads until the client completes the close handshake
// or the connection dies.
func (s *Session) AwaitClientClose() {
	for {
		if _, _, err := s.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Server is an in-process WebSocket endpoint.
type Server struct {
	ts       *httptest.Server
	upgrader websocket.Upgrader
	handler  HandlerFunc
	tls      bool

	mu       sync.Mutex
	sessions []*Session

	accepted chan *Session
}

// Option customizes a Server.
type Option func(*Server)

// WithSubprotocols sets the subprotocols the server will negotiate.
func WithSubprotocols(protos ...string) Option {
	return func(s *Server) { s.upgrader.Subprotocols = protos }
}

// New starts a plaintext server whose connections are driven by h.
func New(h HandlerFunc, opts ...Option) *Server {
	return start(h, false, opts)
}

// NewTLS starts a TLS server whose connections are driven by h. The
// client configuration it hands out trusts the server's certificate.
func NewTLS(h HandlerFunc, opts ...Option) *Server {
	return start(h, true, opts)
}

func start(h HandlerFunc, useTLS bool, opts []Option) *Server {
	s := &Server{
		handler:  h,
		tls:      useTLS,
		accepted: make(chan *Session, 16),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveWS)
	if useTLS {
		s.ts = httptest.NewTLSServer(mux)
	} else {
		s.ts = httptest.NewServer(mux)
	}
	return s
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sess := &Session{Conn: conn}

	s.mu.Lock()
	s.sessions = append(s.sessions, sess)
	s.mu.Unlock()

	select {
	case s.accepted <- sess:
	default:
	}

	defer conn.Close()
	s.handler(sess)
}

// Accepted delivers sessions as connections arrive. Useful for
// synchronizing reconnect tests.
func (s *Server) Accepted() <-chan *Session {
	return s.accepted
}

// Connections returns the number of connections accepted so far.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// DropAll kills every accepted connection without a closing handshake.
func (s *Server) DropAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		sess.Drop()
	}
}

// Close shuts the server down.
func (s *Server) Close() {
	s.DropAll()
	s.ts.Close()
}

// Addr returns the server's host:port address.
func (s *Server) Addr() string {
	return s.ts.Listener.Addr().String()
}

// ClientConfig returns a connection configuration pointing at this
// server, tuned for fast tests. For TLS servers the configuration
// trusts the test certificate.
func (s *Server) ClientConfig() config.Config {
	host, portStr, _ := net.SplitHostPort(s.Addr())
	port, _ := strconv.Atoi(portStr)

	cfg := config.Config{
		Host: host,
		Path: "/ws",
		Port: port,
		Transport: config.TransportOptions{
			Kind:           config.TransportTCP,
			ConnectTimeout: 5 * time.Second,
		},
		Handshake: config.HandshakeOptions{
			ClosingTimeout: 500 * time.Millisecond,
		},
	}

	if s.tls {
		cfg.Transport.Kind = config.TransportTLS
		cfg.Transport.TLS.CAPEM = pem.EncodeToMemory(&pem.Block{
			Type:  "CERTIFICATE",
			Bytes: s.ts.Certificate().Raw,
		})
	}
	return cfg
}

// Echo returns a handler echoing every data message back.
func Echo() HandlerFunc {
	return func(sess *Session) {
		for {
			mt, data, err := sess.Conn.ReadMessage()
			if err != nil {
				return
			}
			if err := sess.Conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}
}

// EchoThenClose returns a handler echoing n messages, then initiating a
// normal close.
func EchoThenClose(n int) HandlerFunc {
	return func(sess *Session) {
		for i := 0; i < n; i++ {
			mt, data, err := sess.Conn.ReadMessage()
			if err != nil {
				return
			}
			if err := sess.Conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
		sess.SendClose(websocket.CloseNormalClosure, "done")
		sess.AwaitClientClose()
	}
}

// SendThenClose returns a handler sending the given text messages, then
// initiating a normal close.
func SendThenClose(messages ...string) HandlerFunc {
	return func(sess *Session) {
		for _, m := range messages {
			if err := sess.SendText(m); err != nil {
				return
			}
		}
		sess.SendClose(websocket.CloseNormalClosure, "done")
		sess.AwaitClientClose()
	}
}

// Silent returns a handler that reads and discards until the connection
// dies. Inbound data messages are counted when counter is non-nil.
func Silent(counter *atomic.Int64) HandlerFunc {
	return func(sess *Session) {
		for {
			if _, _, err := sess.Conn.ReadMessage(); err != nil {
				return
			}
			if counter != nil {
				counter.Add(1)
			}
		}
	}
}
