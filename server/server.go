package server

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"tally/boundary"
	"tally/sheet"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local dev surface
	},
}

// Server exposes the batch operations over HTTP and a live sheet over a
// websocket.
type Server struct {
	Sheet   *sheet.Sheet
	log     *logrus.Logger
	clients map[*websocket.Conn]string
	mu      sync.Mutex
}

func New() *Server {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &Server{
		Sheet:   sheet.New(),
		log:     log,
		clients: make(map[*websocket.Conn]string),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/compile", s.batchHandler("compile", boundary.CompileMany))
	mux.HandleFunc("/eval", s.batchHandler("eval", boundary.EvalMany))
	mux.HandleFunc("/apply-range", s.batchHandler("apply-range", boundary.ApplyRange))
	mux.HandleFunc("/validate", s.batchHandler("validate", boundary.ValidateFormula))
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// ListenAndServe blocks serving addr.
func (s *Server) ListenAndServe(addr string) error {
	s.log.WithField("addr", addr).Info("formula service listening")
	return http.ListenAndServe(addr, s.Handler())
}

// batchHandler adapts a bytes-to-bytes boundary op to HTTP. The response
// mirrors the request encoding, so the content type follows the payload.
func (s *Server) batchHandler(op string, fn func([]byte) ([]byte, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out, err := fn(body)
		if err != nil {
			s.log.WithFields(logrus.Fields{"op": op, "remote": r.RemoteAddr}).
				WithError(err).Warn("batch request failed")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if boundary.IsJSON(body) {
			w.Header().Set("Content-Type", "application/json")
		} else {
			w.Header().Set("Content-Type", "application/msgpack")
		}
		w.Write(out)
	}
}

type wsRequest struct {
	Type string `json:"type"`
	Ref  string `json:"ref,omitempty"`
	Raw  string `json:"raw,omitempty"`
}

type wsState struct {
	Type  string                       `json:"type"`
	Cells map[string]sheet.DisplayCell `json:"cells"`
	Error string                       `json:"error,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	session := uuid.NewString()

	s.mu.Lock()
	s.clients[conn] = session
	s.mu.Unlock()

	log := s.log.WithField("session", session)
	log.Info("client connected")

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
		log.Info("client disconnected")
	}()

	s.sendState(conn, "")

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			log.WithError(err).Warn("bad websocket message")
			continue
		}

		switch req.Type {
		case "update_cell":
			setErr := s.Sheet.SetA1(req.Ref, req.Raw)
			if setErr != nil {
				log.WithFields(logrus.Fields{"ref": req.Ref}).
					WithError(setErr).Info("cell update rejected")
				s.sendState(conn, setErr.Error())
				continue
			}
			s.broadcast()
		case "clear":
			s.Sheet.Clear()
			s.broadcast()
		}
	}
}

func (s *Server) sendState(conn *websocket.Conn, errMsg string) {
	state := wsState{Type: "state", Cells: s.Sheet.Snapshot(), Error: errMsg}
	if err := conn.WriteJSON(state); err != nil {
		s.log.WithError(err).Warn("websocket write failed")
	}
}

func (s *Server) broadcast() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.mu.Unlock()
	for _, conn := range conns {
		s.sendState(conn, "")
	}
}
