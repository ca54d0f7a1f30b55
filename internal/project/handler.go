package project

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	auth "Hestia/internal/auth"
	cache "Hestia/internal/cache"
	building "Hestia/internal/calc/building"
	heatloss "Hestia/internal/calc/heatloss"
	repo "Hestia/internal/repo"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Handler owns the project CRUD, room management and the calculate/results
// endpoints. Cache may be nil; every room or parameter mutation invalidates
// the project's cached results.
type Handler struct {
	Repo   repo.ProjectRepository
	Cache  *cache.ResultCache
	Logger *zap.Logger
}

type CreateProjectRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

type AddRoomsRequest struct {
	Rooms []RoomRequest `json:"rooms"`
}

type RoomRequest struct {
	Name string `json:"name"`
	heatloss.Room
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Project name required")
		return
	}

	project, err := h.Repo.CreateProject(r.Context(), userID, req.Name, req.Address, req.Notes)
	if err != nil {
		h.Logger.Error("failed to create project", zap.Error(err), zap.Int("user_id", userID))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	projects, err := h.Repo.ListProjects(r.Context(), userID)
	if err != nil {
		h.Logger.Error("failed to list projects", zap.Error(err), zap.Int("user_id", userID))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if projects == nil {
		projects = []repo.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, ok := h.ownedProject(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	projectID := mux.Vars(r)["id"]

	if err := h.Repo.DeleteProject(r.Context(), userID, projectID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		h.Logger.Error("failed to delete project", zap.Error(err), zap.String("project_id", projectID))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	h.invalidate(r, projectID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateParams(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	projectID := mux.Vars(r)["id"]

	var params heatloss.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := params.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Repo.UpdateParams(r.Context(), userID, projectID, params); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		h.Logger.Error("failed to update params", zap.Error(err), zap.String("project_id", projectID))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	h.invalidate(r, projectID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddRooms(w http.ResponseWriter, r *http.Request) {
	project, ok := h.ownedProject(w, r)
	if !ok {
		return
	}

	var req AddRoomsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if len(req.Rooms) == 0 {
		writeError(w, http.StatusBadRequest, "At least one room required")
		return
	}

	rooms := make([]repo.Room, len(req.Rooms))
	for i, rr := range req.Rooms {
		if err := rr.Room.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, roomError(rr.Name, i, err))
			return
		}
		rooms[i] = repo.Room{Name: strings.TrimSpace(rr.Name), Room: rr.Room}
	}

	stored, err := h.Repo.AddRooms(r.Context(), project.ID, rooms)
	if err != nil {
		h.Logger.Error("failed to add rooms", zap.Error(err), zap.String("project_id", project.ID))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	h.invalidate(r, project.ID)
	writeJSON(w, http.StatusCreated, stored)
}

func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	project, ok := h.ownedProject(w, r)
	if !ok {
		return
	}

	rooms, err := h.Repo.ListRooms(r.Context(), project.ID)
	if err != nil {
		h.Logger.Error("failed to list rooms", zap.Error(err), zap.String("project_id", project.ID))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if rooms == nil {
		rooms = []repo.Room{}
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (h *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	project, ok := h.ownedProject(w, r)
	if !ok {
		return
	}
	roomID := mux.Vars(r)["roomID"]

	if err := h.Repo.DeleteRoom(r.Context(), project.ID, roomID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Room not found")
			return
		}
		h.Logger.Error("failed to delete room", zap.Error(err),
			zap.String("project_id", project.ID), zap.String("room_id", roomID))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	h.invalidate(r, project.ID)
	w.WriteHeader(http.StatusNoContent)
}

// Calculate runs the whole-building aggregation over the stored rooms and
// parameters, persists the run and refreshes the cache.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	project, ok := h.ownedProject(w, r)
	if !ok {
		return
	}
	if project.Params == nil {
		writeError(w, http.StatusBadRequest, "project has no calculation parameters")
		return
	}

	rooms, err := h.Repo.ListRooms(r.Context(), project.ID)
	if err != nil {
		h.Logger.Error("failed to list rooms", zap.Error(err), zap.String("project_id", project.ID))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	inputs := make([]building.RoomInput, len(rooms))
	for i, room := range rooms {
		inputs[i] = building.RoomInput{ID: room.ID, Name: room.Name, Room: room.Room}
	}

	result, err := building.Calculate(inputs, *project.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	calc, err := h.Repo.SaveCalculation(r.Context(), project.ID, result)
	if err != nil {
		h.Logger.Error("failed to save calculation", zap.Error(err), zap.String("project_id", project.ID))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	if h.Cache != nil {
		if err := h.Cache.Set(r.Context(), project.ID, result); err != nil {
			h.Logger.Warn("failed to cache results", zap.Error(err), zap.String("project_id", project.ID))
		}
	}

	h.Logger.Info("building calculated",
		zap.String("project_id", project.ID),
		zap.Int("rooms", len(rooms)),
		zap.Float64("total_design_load_w", result.TotalDesignLoad),
	)
	writeJSON(w, http.StatusOK, calc)
}

// Results returns the latest aggregate, served from the cache when possible.
func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	project, ok := h.ownedProject(w, r)
	if !ok {
		return
	}

	if h.Cache != nil {
		if result, err := h.Cache.Get(r.Context(), project.ID); err == nil {
			writeJSON(w, http.StatusOK, result)
			return
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			h.Logger.Warn("results cache unavailable", zap.Error(err), zap.String("project_id", project.ID))
		}
	}

	calc, err := h.Repo.LatestCalculation(r.Context(), project.ID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no calculation results for this project")
			return
		}
		h.Logger.Error("failed to load calculation", zap.Error(err), zap.String("project_id", project.ID))
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	if h.Cache != nil {
		if err := h.Cache.Set(r.Context(), project.ID, calc.Result); err != nil {
			h.Logger.Warn("failed to warm results cache", zap.Error(err), zap.String("project_id", project.ID))
		}
	}
	writeJSON(w, http.StatusOK, calc.Result)
}

// ownedProject resolves {id} against the authenticated user, writing the
// error response itself when the project cannot be served.
func (h *Handler) ownedProject(w http.ResponseWriter, r *http.Request) (repo.Project, bool) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return repo.Project{}, false
	}
	projectID := mux.Vars(r)["id"]

	project, err := h.Repo.GetProject(r.Context(), userID, projectID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Project not found")
			return repo.Project{}, false
		}
		h.Logger.Error("failed to load project", zap.Error(err), zap.String("project_id", projectID))
		writeError(w, http.StatusInternalServerError, "Database error")
		return repo.Project{}, false
	}
	return project, true
}

func (h *Handler) invalidate(r *http.Request, projectID string) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Invalidate(r.Context(), projectID); err != nil {
		h.Logger.Warn("failed to invalidate cached results",
			zap.Error(err), zap.String("project_id", projectID))
	}
}

func roomError(name string, index int, err error) string {
	label := strings.TrimSpace(name)
	if label == "" {
		label = "#" + strconv.Itoa(index+1)
	}
	return "room " + label + ": " + err.Error()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
