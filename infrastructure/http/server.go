// Package http exposes the coordinator over REST plus server-sent events
// for live delivery.
package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	apperrors "trip-hub/errors"
	"trip-hub/services"
)

type Server struct {
	chat         services.IChatService
	polls        services.IPollService
	moderation   services.IModerationService
	sinkBuffer   int
	historyLimit int
	log          *slog.Logger
}

// NewServer builds the REST surface. A non-positive historyLimit falls back
// to the default page size.
func NewServer(chat services.IChatService, polls services.IPollService,
	moderation services.IModerationService, sinkBuffer, historyLimit int, log *slog.Logger) *Server {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &Server{
		chat:         chat,
		polls:        polls,
		moderation:   moderation,
		sinkBuffer:   sinkBuffer,
		historyLimit: historyLimit,
		log:          log,
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", s.handleHealthz)

		r.Route("/groups/{groupID}", func(r chi.Router) {
			r.Get("/stream", s.handleStream)
			r.Get("/messages", s.handleHistory)
			r.Post("/messages", s.handlePostMessage)
			r.Post("/confirm-help", s.handleConfirmHelp)
			r.Post("/leave", s.handleLeave)
			r.Post("/media", s.handleUploadMedia)
			r.Get("/experiences", s.handleExperiences)
			r.Get("/polls", s.handleListPolls)
			r.Post("/polls", s.handleCreatePoll)
		})
		r.Get("/media/{mediaID}", s.handleDownloadMedia)
		r.Post("/polls/{pollID}/vote", s.handleVote)
		r.Post("/polls/{pollID}/close", s.handleClosePoll)
		r.Post("/messages/{messageID}/react", s.handleReact)
		r.Post("/messages/{messageID}/report", s.handleReport)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("Request handled",
			"method", r.Method, "path", r.URL.Path, "status", ww.Status())
	})
}

// writeDomainError maps domain errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var validation validator.ValidationErrors
	switch {
	case errors.As(err, &validation),
		errors.Is(err, apperrors.ErrEmptyMessage),
		errors.Is(err, apperrors.ErrInvalidID),
		errors.Is(err, apperrors.ErrNotEnoughOptions):
		s.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, apperrors.ErrNotMember),
		errors.Is(err, apperrors.ErrNotCreator),
		errors.Is(err, apperrors.ErrSelfReport):
		s.writeError(w, http.StatusForbidden, err)
	case errors.Is(err, apperrors.ErrPollNotFound),
		errors.Is(err, apperrors.ErrMessageNotFound),
		errors.Is(err, apperrors.ErrGroupNotFound),
		errors.Is(err, apperrors.ErrMediaNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, apperrors.ErrPollClosed),
		errors.Is(err, apperrors.ErrAlreadyVoted),
		errors.Is(err, apperrors.ErrUnknownOption):
		s.writeError(w, http.StatusConflict, err)
	default:
		s.log.Error("Internal error", "error", err)
		s.writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}
