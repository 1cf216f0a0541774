// pkg/web/handlers.go
package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tablebot/tablebot/pkg/loader"
	"github.com/tablebot/tablebot/pkg/pipeline"
	"github.com/tablebot/tablebot/pkg/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

type uploadResponse struct {
	RunID          string `json:"run_id"`
	Artifact       string `json:"artifact"`
	Summary        string `json:"summary"`
	RowsBefore     int    `json:"rows_before"`
	RowsAfter      int    `json:"rows_after"`
	ColumnsBefore  int    `json:"columns_before"`
	ColumnsAfter   int    `json:"columns_after"`
	GuidanceSource string `json:"guidance_source"`
}

type chatRequest struct {
	UserID  int64  `json:"user_id"`
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type modeRequest struct {
	UserID   int64 `json:"user_id"`
	ChatMode bool  `json:"chat_mode"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload accepts one multipart file field named "file", runs the
// cleaning pipeline and returns the artifact descriptor plus summary.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorResponse{Error: "invalid upload: " + err.Error()})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: `multipart field "file" is required`})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "could not read upload: " + err.Error()})
		return
	}

	userID := parseUserID(r.FormValue("user_id"))
	result, err := s.runner.Run(r.Context(), pipeline.Upload{
		UserID:   userID,
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		RunID:          result.RunID,
		Artifact:       result.Artifact,
		Summary:        result.Summary,
		RowsBefore:     result.Profile.RowCount,
		RowsAfter:      result.Table.RowCount(),
		ColumnsBefore:  result.Profile.ColumnCount,
		ColumnsAfter:   len(result.Table.Columns),
		GuidanceSource: string(result.Guidance.Source),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	reply, err := s.chat.Respond(r.Context(), req.UserID, req.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if err := s.records.SetChatMode(r.Context(), req.UserID, req.ChatMode); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"chat_mode": req.ChatMode})
}

// writeError maps core error types to HTTP statuses: data errors are
// the client's fault, storage problems are the deployment's.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case loader.IsFormatError(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case storage.IsStorageError(err):
		s.logger.Error("storage failure", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "storage unavailable"})
	default:
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseUserID(raw string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
