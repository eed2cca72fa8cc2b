package proxy

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/tebaklive/admin/go/clients"
	"github.com/tebaklive/admin/go/internal/game/questions"
	"github.com/tebaklive/admin/go/internal/game/round"
)

// Server is the operator-facing HTTP surface: it forwards raw admin
// commands to the backend, exposes round controls, and serves the
// reconciled session snapshot.
type Server struct {
	admin *clients.AdminClient
	ctrl  *round.Controller
}

func New(admin *clients.AdminClient, ctrl *round.Controller) *Server {
	return &Server{admin: admin, ctrl: ctrl}
}

// Handler returns the full admin mux wrapped with CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/admin/{command}", s.handleAdminForward)
	mux.HandleFunc("POST /api/round/start", s.handleStart)
	mux.HandleFunc("POST /api/round/stop", s.handleStop)
	mux.HandleFunc("POST /api/round/next", s.handleNext)
	mux.HandleFunc("PUT /api/settings", s.handleSettings)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

// handleAdminForward relays a raw admin command to the backend. The backend
// response status is forwarded verbatim; a transport failure maps to 502.
func (s *Server) handleAdminForward(w http.ResponseWriter, r *http.Request) {
	cmd := clients.Command(r.PathValue("command"))
	switch cmd {
	case clients.CommandStart, clients.CommandStop, clients.CommandSetWord:
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown command"})
		return
	}

	var payload any
	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil && len(body) > 0 {
		payload = body
	}

	respBody, err := s.admin.Send(r.Context(), cmd, payload)
	if err != nil {
		var be *clients.BackendError
		if errors.As(err, &be) {
			w.WriteHeader(be.StatusCode)
			w.Write(be.Body)
			return
		}
		log.Warn().Err(err).Str("command", string(cmd)).Msg("admin forward failed")
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write(respBody)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Word string `json:"word"`
	}
	// an empty body means "start the sequencer's current question"
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.roundAction(w, r, s.ctrl.Start(r.Context(), req.Word))
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.roundAction(w, r, s.ctrl.Stop(r.Context()))
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.roundAction(w, r, s.ctrl.Next(r.Context()))
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoundSeconds *int  `json:"roundSeconds"`
		AutoAdvance  *bool `json:"autoAdvance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid settings body"})
		return
	}

	if req.RoundSeconds != nil {
		if err := s.ctrl.SetDuration(r.Context(), *req.RoundSeconds); err != nil {
			s.roundAction(w, r, err)
			return
		}
	}
	if req.AutoAdvance != nil {
		if err := s.ctrl.SetAutoAdvance(r.Context(), *req.AutoAdvance); err != nil {
			s.roundAction(w, r, err)
			return
		}
	}
	s.roundAction(w, r, nil)
}

// roundAction writes the error, if any, then the fresh snapshot.
func (s *Server) roundAction(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
	case errors.Is(err, questions.ErrOutOfQuestions), errors.Is(err, round.ErrNoWordProvided):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
		return
	case errors.Is(err, round.ErrClosed):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
		return
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.stateResponse())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stateResponse())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type leaderboardEntry struct {
	Username string `json:"username"`
	Points   int    `json:"points"`
}

type stateResponse struct {
	round.Snapshot
	Leaderboard []leaderboardEntry `json:"leaderboard"`
}

func (s *Server) stateResponse() stateResponse {
	snap := s.ctrl.Snapshot()
	return stateResponse{
		Snapshot:    snap,
		Leaderboard: leaderboard(snap.Session.Scores),
	}
}

func leaderboard(scores map[string]int) []leaderboardEntry {
	entries := lo.MapToSlice(scores, func(username string, points int) leaderboardEntry {
		return leaderboardEntry{Username: username, Points: points}
	})
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points == entries[j].Points {
			return entries[i].Username < entries[j].Username
		}
		return entries[i].Points > entries[j].Points
	})
	return entries
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
