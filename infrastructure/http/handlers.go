package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"trip-hub/services"
)

const (
	defaultHistoryLimit = 50
	defaultSearchLimit  = 10
	maxUploadBytes      = 16 << 20
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	limit := s.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	messages, err := s.chat.History(groupID, limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID   string `json:"user_id"`
		Username string `json:"username"`
		Text     string `json:"text"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	message, err := s.chat.Post(r.Context(), services.PostMessageCommand{
		GroupID:  chi.URLParam(r, "groupID"),
		UserID:   body.UserID,
		Username: body.Username,
		Text:     body.Text,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, message)
}

func (s *Server) handleConfirmHelp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID   string `json:"user_id"`
		Username string `json:"username"`
		Question string `json:"question"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	err := s.chat.ConfirmHelp(r.Context(), services.ConfirmHelpCommand{
		GroupID:  chi.URLParam(r, "groupID"),
		UserID:   body.UserID,
		Username: body.Username,
		Question: body.Question,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "answering"})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	s.chat.AnnounceLeave(r.Context(), chi.URLParam(r, "groupID"), body.Username)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

func (s *Server) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	message, err := s.chat.ShareMedia(r.Context(), services.ShareMediaCommand{
		GroupID:  chi.URLParam(r, "groupID"),
		UserID:   r.FormValue("user_id"),
		Username: r.FormValue("username"),
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, message)
}

func (s *Server) handleDownloadMedia(w http.ResponseWriter, r *http.Request) {
	blob, err := s.chat.Media(chi.URLParam(r, "mediaID"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Content-Disposition", "inline; filename=\""+blob.Filename+"\"")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(blob.Data); err != nil {
		s.log.Warn("Failed to write media body", "media", blob.ID, "error", err)
	}
}

// handleExperiences serves the live experience log, or an archive search
// when a query is present.
func (s *Server) handleExperiences(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	if query := r.URL.Query().Get("q"); query != "" {
		hits, err := s.chat.SearchExperiences(r.Context(), groupID, query, defaultSearchLimit)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, hits)
		return
	}
	entries, err := s.chat.Experiences(groupID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleListPolls(w http.ResponseWriter, r *http.Request) {
	includeClosed := r.URL.Query().Get("include_closed") == "true"
	polls, err := s.polls.List(r.Context(), chi.URLParam(r, "groupID"), includeClosed)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, polls)
}

func (s *Server) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID          string   `json:"user_id"`
		Question        string   `json:"question"`
		Options         []string `json:"options"`
		DurationMinutes int      `json:"duration_minutes"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	poll, err := s.polls.Create(r.Context(), services.CreatePollCommand{
		GroupID:  chi.URLParam(r, "groupID"),
		UserID:   body.UserID,
		Question: body.Question,
		Options:  body.Options,
		Duration: time.Duration(body.DurationMinutes) * time.Minute,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, poll)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID   string `json:"user_id"`
		OptionID string `json:"option_id"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	poll, err := s.polls.Vote(r.Context(), services.VoteCommand{
		PollID:   chi.URLParam(r, "pollID"),
		UserID:   body.UserID,
		OptionID: body.OptionID,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, poll)
}

func (s *Server) handleClosePoll(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	poll, err := s.polls.Close(r.Context(), services.ClosePollCommand{
		PollID: chi.URLParam(r, "pollID"),
		UserID: body.UserID,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, poll)
}

func (s *Server) handleReact(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
		Emoji  string `json:"emoji"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	message, err := s.chat.React(r.Context(), services.ReactCommand{
		MessageID: chi.URLParam(r, "messageID"),
		UserID:    body.UserID,
		Emoji:     body.Emoji,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, message)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID   string `json:"user_id"`
		Category string `json:"category"`
		Note     string `json:"note"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	outcome, err := s.moderation.Report(r.Context(), services.ReportCommand{
		MessageID:  chi.URLParam(r, "messageID"),
		ReporterID: body.UserID,
		Category:   body.Category,
		Note:       body.Note,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}
