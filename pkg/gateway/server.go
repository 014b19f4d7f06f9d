package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/TradeIntentAI/trade-intent-sdk/pkg/history"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/intent"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/orchestrator"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/version"
)

// ClientMessage is what a connected wallet sends: free text to classify, or
// an already-typed intent.
type ClientMessage struct {
	Type   string         `json:"type"`
	Text   string         `json:"text,omitempty"`
	Intent *intent.Intent `json:"intent,omitempty"`
}

// ServerMessage is the gateway's answer stream: an ack on receipt, the
// execution result, then settlement updates until a terminal state.
type ServerMessage struct {
	Type       string               `json:"type"`
	Wallet     string               `json:"wallet,omitempty"`
	Result     *orchestrator.Result `json:"result,omitempty"`
	Settlement string               `json:"settlement,omitempty"`
	Status     string               `json:"status,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// Server exposes the orchestrator over a websocket with wallet-signature
// login.
type Server struct {
	orch     *orchestrator.Orchestrator
	auth     *Authenticator
	upgrader websocket.Upgrader

	// History, when set, records every tracked settlement per wallet.
	History *history.Store

	// WriteTimeout bounds each outbound websocket write.
	WriteTimeout time.Duration
}

// NewServer wires the gateway around an orchestrator and authenticator.
func NewServer(orch *orchestrator.Orchestrator, auth *Authenticator) *Server {
	return &Server{
		orch: orch,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		WriteTimeout: 10 * time.Second,
	}
}

// Routes registers the gateway's HTTP handlers on a mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/auth/challenge", s.handleChallenge)
	mux.HandleFunc("/auth/verify", s.handleVerify)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/health", s.handleHealth)
}

func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	challenge, err := s.auth.IssueChallenge(req.Address)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"challenge": challenge})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Address   string `json:"address"`
		Challenge string `json:"challenge"`
		Signature string `json:"signature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	token, expiresAt, err := s.auth.VerifySignature(req.Address, req.Challenge, req.Signature)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]interface{}{
		"session_token": token,
		"expires_at":    expiresAt,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	wallet, err := s.auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if s.History == nil {
		http.Error(w, "history is not configured", http.StatusNotFound)
		return
	}

	entries, err := s.History.Recent(r.Context(), wallet, 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":  "ok",
		"version": version.Version(),
		"build":   version.GetBuildInfo(),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	wallet, err := s.auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("wallet %s connected", wallet)
	s.serveConn(r.Context(), conn, wallet)
}

func (s *Server) serveConn(ctx context.Context, conn *websocket.Conn, wallet string) {
	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("wallet %s read error: %v", wallet, err)
			}
			return
		}
		if msg.Type != "intent" {
			s.send(conn, &ServerMessage{Type: "error", Error: "unknown message type " + msg.Type})
			continue
		}

		s.send(conn, &ServerMessage{Type: "ack", Wallet: wallet})

		result, err := s.runIntent(ctx, &msg)
		if err != nil {
			s.send(conn, &ServerMessage{Type: "error", Error: err.Error()})
			continue
		}
		s.send(conn, &ServerMessage{Type: "result", Wallet: wallet, Result: result})

		if result.Settlement != nil {
			status, trackErr := s.orch.Track(ctx, result.Settlement)
			if s.History != nil {
				if err := s.History.Record(ctx, wallet, result.Settlement); err != nil {
					log.Printf("failed to record history for %s: %v", wallet, err)
				}
			}
			update := &ServerMessage{
				Type:       "settlement",
				Wallet:     wallet,
				Settlement: result.Settlement.ID(),
				Status:     string(status),
			}
			if trackErr != nil {
				update.Error = trackErr.Error()
			}
			s.send(conn, update)
		}
	}
}

func (s *Server) runIntent(ctx context.Context, msg *ClientMessage) (*orchestrator.Result, error) {
	if msg.Intent != nil {
		return s.orch.Dispatch(ctx, msg.Intent)
	}
	return s.orch.Execute(ctx, msg.Text)
}

func (s *Server) send(conn *websocket.Conn, msg *ServerMessage) {
	conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("websocket write failed: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
