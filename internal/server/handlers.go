package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/mock-interviewer/internal/ingestion"
	"github.com/jonathan/mock-interviewer/internal/interview"
)

// SetupResponse is the body returned by the setup endpoint
type SetupResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Phase    string `json:"phase,omitempty"`
	UploadID string `json:"upload_id,omitempty"`
}

// SessionResponse is a JSON snapshot of a session
type SessionResponse struct {
	ClientID      string    `json:"client_id"`
	Phase         string    `json:"phase"`
	HasResume     bool      `json:"has_resume"`
	Skills        []string  `json:"skills"`
	TargetRole    string    `json:"target_role,omitempty"`
	HistoryLength int       `json:"history_length"`
	Connected     bool      `json:"connected"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type setupForm struct {
	ClientID string `validate:"required,max=128"`
	Skills   string `validate:"max=2000"`
	Role     string `validate:"max=200"`
}

// handleWebSocket upgrades the request and serves the interview until the
// client disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("client_id")
	if err := s.validate.Var(clientID, "required,max=128"); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid client id")
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		s.logger.Warn("websocket upgrade failed", zap.String("client_id", clientID), zap.Error(err))
		return
	}

	conn := newConn(clientID, ws, s)
	if old := s.hub.Register(conn); old != nil {
		s.logger.Info("replacing existing connection", zap.String("client_id", clientID))
		old.Close()
	}
	s.metrics.ConnectionOpened()
	defer s.metrics.ConnectionClosed()

	connID := uuid.NewString()
	s.logger.Info("client connected", zap.String("client_id", clientID), zap.String("conn_id", connID))

	conn.Deliver(s.interviewer.Connect(clientID))

	if err := conn.Run(s.ctx); err != nil {
		s.logger.Warn("connection ended with error", zap.String("client_id", clientID), zap.Error(err))
	}
	conn.Close()

	// A reconnect may already own this client id
	if s.hub.Unregister(conn) {
		s.interviewer.Disconnect(clientID)
	}
	s.logger.Info("client disconnected", zap.String("client_id", clientID), zap.String("conn_id", connID))
}

// handleSetupInterview stores the resume and skills and starts the interview.
// The resulting lines are spoken over the client's WebSocket.
func (s *Server) handleSetupInterview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	// maxMemory equal to the body limit keeps the whole upload in memory
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.setupError(w, &ErrUploadTooLarge{Limit: s.cfg.MaxUploadBytes})
			return
		}
		s.setupError(w, &ErrValidation{Field: "form", Message: "expected multipart form data"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form := setupForm{
		ClientID: r.PathValue("client_id"),
		Skills:   r.FormValue("skills"),
		Role:     r.FormValue("role"),
	}
	if err := s.validate.Struct(form); err != nil {
		s.setupError(w, toValidationError(err))
		return
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		s.setupError(w, &ErrValidation{Field: "resume", Message: "file is required"})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		s.setupError(w, err)
		return
	}

	uploadID := uuid.NewString()
	mimeType := header.Header.Get("Content-Type")
	resumeText := ingestion.ExtractResumeText(data, mimeType)
	s.logger.Info("resume received",
		zap.String("client_id", form.ClientID),
		zap.String("upload_id", uploadID),
		zap.String("filename", header.Filename),
		zap.String("content_type", mimeType),
		zap.Int("bytes", len(data)),
		zap.Int("text_chars", len(resumeText)),
	)

	result, err := s.interviewer.Setup(r.Context(), form.ClientID, interview.SetupInput{
		ResumeText: resumeText,
		Skills:     form.Skills,
		TargetRole: form.Role,
	})
	if err != nil {
		s.setupError(w, err)
		return
	}

	if conn, ok := s.hub.Get(form.ClientID); ok {
		conn.Deliver(result)
	}

	s.jsonResponse(w, http.StatusOK, SetupResponse{
		Status:   "success",
		Message:  "Interview setup complete. Starting now.",
		Phase:    result.Phase.String(),
		UploadID: uploadID,
	})
}

// handleGetSession returns a snapshot of the client's session
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("client_id")
	state, ok := s.interviewer.Session(clientID)
	if !ok {
		s.errorResponse(w, http.StatusNotFound, (&interview.SessionNotFoundError{ClientID: clientID}).Error())
		return
	}

	resp := SessionResponse{
		ClientID:      state.ClientID,
		Phase:         state.Phase.String(),
		HasResume:     state.HasResume(),
		Skills:        state.Skills,
		HistoryLength: len(state.History),
		CreatedAt:     state.CreatedAt,
		UpdatedAt:     state.UpdatedAt,
	}
	if resp.Skills == nil {
		resp.Skills = []string{}
	}
	if state.TargetRole != nil {
		resp.TargetRole = *state.TargetRole
	}
	_, resp.Connected = s.hub.Get(clientID)

	s.jsonResponse(w, http.StatusOK, resp)
}

// setupError logs the cause and answers with a message safe to show the candidate.
func (s *Server) setupError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	level := zap.DebugLevel
	if status >= http.StatusInternalServerError {
		level = zap.WarnLevel
	}
	s.logger.Check(level, "interview setup failed").Write(zap.Int("status", status), zap.Error(err))

	message := userMessage(err)
	var invalid *ErrValidation
	var tooLarge *ErrUploadTooLarge
	if errors.As(err, &invalid) || errors.As(err, &tooLarge) {
		message = err.Error()
	}
	s.jsonResponse(w, status, SetupResponse{Status: "error", Message: message})
}

// toValidationError reports the first failing field
func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ErrValidation{Field: fe.Field(), Message: "failed " + fe.Tag()}
	}
	return err
}
