package atlas

import (
	"encoding/json"
	"errors"
	"net/http"

	auth "Hestia/internal/auth"
	cache "Hestia/internal/cache"
	repo "Hestia/internal/repo"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Handler exposes the Atlas Cloud integration: browsing synced surveys and
// importing one into a project. Cache may be nil when Redis is not configured.
type Handler struct {
	Client *Client
	Repo   repo.ProjectRepository
	Cache  *cache.ResultCache
	Logger *zap.Logger
}

type importRequest struct {
	SurveyID string `json:"survey_id"`
}

type importResponse struct {
	Imported int         `json:"imported"`
	Skipped  []string    `json:"skipped,omitempty"`
	Rooms    []repo.Room `json:"rooms"`
}

// ListSurveys proxies the account's survey list from the Atlas Cloud.
func (h *Handler) ListSurveys(w http.ResponseWriter, r *http.Request) {
	surveys, err := h.Client.ListSurveys(r.Context())
	if err != nil {
		h.Logger.Error("failed to list Atlas surveys", zap.Error(err))
		writeError(w, http.StatusBadGateway, "Atlas Cloud is unavailable")
		return
	}
	writeJSON(w, http.StatusOK, surveys)
}

// ImportSurvey pulls one survey, maps its rooms onto the project and stores
// them. A changed room list makes any cached results stale.
func (h *Handler) ImportSurvey(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	projectID := mux.Vars(r)["id"]

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SurveyID == "" {
		writeError(w, http.StatusBadRequest, "survey_id is required")
		return
	}

	if _, err := h.Repo.GetProject(r.Context(), userID, projectID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		h.Logger.Error("failed to load project", zap.Error(err), zap.String("project_id", projectID))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	survey, err := h.Client.GetSurvey(r.Context(), req.SurveyID)
	if err != nil {
		h.Logger.Error("failed to fetch Atlas survey",
			zap.Error(err), zap.String("survey_id", req.SurveyID))
		writeError(w, http.StatusBadGateway, "Atlas Cloud is unavailable")
		return
	}

	mapped, skipped := MapRooms(survey.Rooms)
	if len(mapped) == 0 {
		writeError(w, http.StatusBadRequest, "survey contains no usable rooms")
		return
	}

	stored, err := h.Repo.AddRooms(r.Context(), projectID, mapped)
	if err != nil {
		h.Logger.Error("failed to store imported rooms",
			zap.Error(err), zap.String("project_id", projectID))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	if h.Cache != nil {
		if err := h.Cache.Invalidate(r.Context(), projectID); err != nil {
			h.Logger.Warn("failed to invalidate cached results",
				zap.Error(err), zap.String("project_id", projectID))
		}
	}

	h.Logger.Info("Atlas survey imported",
		zap.String("project_id", projectID),
		zap.String("survey_id", req.SurveyID),
		zap.Int("imported", len(stored)),
		zap.Int("skipped", len(skipped)),
	)
	writeJSON(w, http.StatusCreated, importResponse{
		Imported: len(stored),
		Skipped:  skipped,
		Rooms:    stored,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
