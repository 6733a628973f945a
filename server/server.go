// Package server exposes the blackjack engine over newline-delimited JSON
// on TCP, with an optional WebSocket listener speaking the same protocol.
package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/weedbox/blackjacktable"
	"github.com/weedbox/blackjacktable/records"
	"go.uber.org/zap"
)

type Config struct {
	Addr          string                        `json:"addr"`
	WSAddr        string                        `json:"ws_addr"` // 空字串停用 WebSocket
	RecordsPath   string                        `json:"records_path"`
	ConnTimeout   time.Duration                 `json:"conn_timeout"`
	RuleOverrides *blackjacktable.RuleOverrides `json:"rule_overrides"`
}

func DefaultConfig() Config {
	return Config{
		Addr:        ":9000",
		RecordsPath: "game_records.json",
		ConnTimeout: 60 * time.Second,
	}
}

type Server struct {
	config  Config
	rules   *blackjacktable.Rules
	logger  *zap.Logger
	manager blackjacktable.Manager
	store   *records.Store

	sessions   sync.Map // playerID -> *session
	listener   net.Listener
	wsListener net.Listener
	httpServer *http.Server
	wg         sync.WaitGroup

	closeOnce sync.Once
	closed    chan struct{}
}

type ServerOpt func(*Server)

func WithLogger(logger *zap.Logger) ServerOpt {
	return func(s *Server) {
		s.logger = logger
	}
}

func NewServer(config Config, opts ...ServerOpt) (*Server, error) {
	if config.ConnTimeout <= 0 {
		config.ConnTimeout = DefaultConfig().ConnTimeout
	}
	if config.RecordsPath == "" {
		config.RecordsPath = DefaultConfig().RecordsPath
	}

	s := &Server{
		config: config,
		rules:  config.RuleOverrides.Apply(blackjacktable.NewDefaultRules()),
		logger: zap.NewNop(),
		closed: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	store, err := records.NewStore(config.RecordsPath, records.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.store = store

	callbacks := blackjacktable.NewTableEngineCallbacks()
	callbacks.OnTableSnapshotUpdated = s.routeSnapshot
	callbacks.OnTableRoundSettled = s.routeRoundSettled
	callbacks.OnTableBetRequested = s.routeBetRequest

	s.manager = blackjacktable.NewManager(
		blackjacktable.WithTableRules(s.rules),
		blackjacktable.WithTableEngineCallbacks(callbacks),
	)

	return s, nil
}

func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.logger.Info("listening", zap.String("addr", s.config.Addr))

	s.wg.Add(1)
	go s.acceptLoop()

	if s.config.WSAddr != "" {
		if err := s.startWebSocket(); err != nil {
			listener.Close()
			return err
		}
	}

	return nil
}

func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)

		if s.listener != nil {
			s.listener.Close()
		}
		if s.httpServer != nil {
			s.httpServer.Close()
		}

		s.sessions.Range(func(key, value interface{}) bool {
			value.(*session).conn.Close()
			return true
		})

		s.manager.Reset()
	})

	s.wg.Wait()
	return nil
}

func (s *Server) Addr() string {
	if s.listener == nil {
		return s.config.Addr
	}
	return s.listener.Addr().String()
}

func (s *Server) WSAddr() string {
	if s.wsListener == nil {
		return s.config.WSAddr
	}
	return s.wsListener.Addr().String()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		raw, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
			}
			s.logger.Warn("accept failed", zap.Error(err))
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			newSession(s, newTCPConn(raw)).run()
		}()
	}
}

func (s *Server) startWebSocket() error {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			newSession(s, newWSConn(raw)).run()
		}()
	})

	wsListener, err := net.Listen("tcp", s.config.WSAddr)
	if err != nil {
		return err
	}
	s.wsListener = wsListener
	s.httpServer = &http.Server{Handler: mux}

	s.logger.Info("websocket listening", zap.String("addr", wsListener.Addr().String()))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(wsListener); err != nil && err != http.ErrServerClosed {
			s.logger.Warn("websocket server stopped", zap.Error(err))
		}
	}()

	return nil
}

func (s *Server) routeSnapshot(playerID string, snapshot *blackjacktable.TableSnapshot) {
	if value, ok := s.sessions.Load(playerID); ok {
		value.(*session).pushSnapshot(snapshot)
	}
}

func (s *Server) routeRoundSettled(t *blackjacktable.Table, result *blackjacktable.TableRoundResult) {
	for _, seatResult := range result.SeatResults {
		if value, ok := s.sessions.Load(seatResult.PlayerID); ok {
			value.(*session).pushRoundSettled(result)
		}
	}
}

func (s *Server) routeBetRequest(playerID string, minBet, maxBet int) {
	if value, ok := s.sessions.Load(playerID); ok {
		value.(*session).pushBetRequest(minBet, maxBet)
	}
}
