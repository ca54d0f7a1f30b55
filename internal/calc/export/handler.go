package export

import (
	"encoding/json"
	"errors"
	"net/http"

	auth "Hestia/internal/auth"
	repo "Hestia/internal/repo"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Handler serves the results workbook download. It always renders from the
// stored calculation, not the cache.
type Handler struct {
	Repo   repo.ProjectRepository
	Logger *zap.Logger
}

func (h *Handler) ExportResults(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	projectID := mux.Vars(r)["id"]

	if _, err := h.Repo.GetProject(r.Context(), userID, projectID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		h.Logger.Error("failed to load project", zap.Error(err), zap.String("project_id", projectID))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	calc, err := h.Repo.LatestCalculation(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no calculation results for this project")
			return
		}
		h.Logger.Error("failed to load calculation", zap.Error(err), zap.String("project_id", projectID))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	rooms, err := h.Repo.ListRooms(r.Context(), projectID)
	if err != nil {
		h.Logger.Error("failed to load rooms", zap.Error(err), zap.String("project_id", projectID))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	data, err := GenerateWorkbook(rooms, calc.Result)
	if err != nil {
		h.Logger.Error("failed to generate workbook", zap.Error(err), zap.String("project_id", projectID))
		writeError(w, http.StatusInternalServerError, "Export generation error")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=\"heat-loss-results.xlsx\"")
	w.Write(data)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
