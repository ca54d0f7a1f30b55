package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	building "Hestia/internal/calc/building"
	heatloss "Hestia/internal/calc/heatloss"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProjectRepository stores projects, their rooms and their calculation runs.
// Project-level methods enforce ownership via userID; room and calculation
// methods trust the caller to have resolved the project first.
type ProjectRepository interface {
	CreateProject(ctx context.Context, userID int, name, address, notes string) (Project, error)
	ListProjects(ctx context.Context, userID int) ([]Project, error)
	GetProject(ctx context.Context, userID int, projectID string) (Project, error)
	DeleteProject(ctx context.Context, userID int, projectID string) error
	UpdateParams(ctx context.Context, userID int, projectID string, params heatloss.Params) error

	AddRooms(ctx context.Context, projectID string, rooms []Room) ([]Room, error)
	ListRooms(ctx context.Context, projectID string) ([]Room, error)
	DeleteRoom(ctx context.Context, projectID, roomID string) error

	SaveCalculation(ctx context.Context, projectID string, result building.Result) (Calculation, error)
	LatestCalculation(ctx context.Context, projectID string) (Calculation, error)
}

// Calculation is one stored whole-building run.
type Calculation struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"project_id"`
	Result    building.Result `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}

type PostgresProjectRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresProjectRepository(db *sql.DB, logger *zap.Logger) *PostgresProjectRepository {
	return &PostgresProjectRepository{db: db, logger: logger}
}

var _ ProjectRepository = (*PostgresProjectRepository)(nil)

func (r *PostgresProjectRepository) CreateProject(ctx context.Context, userID int, name, address, notes string) (Project, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO projects (id, user_id, name, address, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	var p Project
	p.ID = id
	p.Name = name
	p.Address = address
	p.Notes = notes
	err := r.db.QueryRowContext(ctx, query, id, userID, name, address, notes).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Project{}, fmt.Errorf("failed to create project: %w", err)
	}
	r.logger.Info("project created", zap.String("project_id", id), zap.Int("user_id", userID))
	return p, nil
}

func (r *PostgresProjectRepository) ListProjects(ctx context.Context, userID int) ([]Project, error) {
	query := `
		SELECT p.id, p.name, p.address, p.notes, p.params, p.created_at, p.updated_at,
		       (SELECT COUNT(*) FROM rooms r WHERE r.project_id = p.id) AS room_count
		FROM projects p
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return projects, nil
}

func (r *PostgresProjectRepository) GetProject(ctx context.Context, userID int, projectID string) (Project, error) {
	query := `
		SELECT p.id, p.name, p.address, p.notes, p.params, p.created_at, p.updated_at,
		       (SELECT COUNT(*) FROM rooms r WHERE r.project_id = p.id) AS room_count
		FROM projects p
		WHERE p.id = $1 AND p.user_id = $2
	`
	p, err := scanProject(r.db.QueryRowContext(ctx, query, projectID, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return Project{}, ErrNotFound
		}
		return Project{}, fmt.Errorf("failed to query project: %w", err)
	}
	return p, nil
}

func (r *PostgresProjectRepository) DeleteProject(ctx context.Context, userID int, projectID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id=$1 AND user_id=$2", projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresProjectRepository) UpdateParams(ctx context.Context, userID int, projectID string, params heatloss.Params) error {
	payload, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	query := "UPDATE projects SET params=$1, updated_at=now() WHERE id=$2 AND user_id=$3"
	res, err := r.db.ExecContext(ctx, query, payload, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to update params: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresProjectRepository) AddRooms(ctx context.Context, projectID string, rooms []Room) ([]Room, error) {
	if len(rooms) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO rooms (id, project_id, name, area_m2, volume_m3, ceiling_height_m,
		                   exterior_walls, window_area_m2, door_count, target_temp_c)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	out := make([]Room, len(rooms))
	for i, room := range rooms {
		room.ID = uuid.NewString()
		_, err := tx.ExecContext(ctx, query,
			room.ID, projectID, room.Name,
			room.Area, room.Volume, room.CeilingHeight,
			room.ExteriorWalls, room.WindowArea, room.DoorCount, room.TargetTemp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert room %q: %w", room.Name, err)
		}
		out[i] = room
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit rooms: %w", err)
	}
	r.logger.Info("rooms added", zap.String("project_id", projectID), zap.Int("count", len(out)))
	return out, nil
}

func (r *PostgresProjectRepository) ListRooms(ctx context.Context, projectID string) ([]Room, error) {
	query := `
		SELECT id, name, area_m2, volume_m3, ceiling_height_m,
		       exterior_walls, window_area_m2, door_count, target_temp_c
		FROM rooms
		WHERE project_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	var out []Room
	for rows.Next() {
		var room Room
		err := rows.Scan(
			&room.ID, &room.Name,
			&room.Area, &room.Volume, &room.CeilingHeight,
			&room.ExteriorWalls, &room.WindowArea, &room.DoorCount, &room.TargetTemp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		out = append(out, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}
	return out, nil
}

func (r *PostgresProjectRepository) DeleteRoom(ctx context.Context, projectID, roomID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM rooms WHERE id=$1 AND project_id=$2", roomID, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresProjectRepository) SaveCalculation(ctx context.Context, projectID string, result building.Result) (Calculation, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return Calculation{}, fmt.Errorf("failed to marshal calculation: %w", err)
	}
	calc := Calculation{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Result:    result,
	}
	query := `
		INSERT INTO calculations (id, project_id, payload, total_heat_loss_w, total_design_load_w)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err = r.db.QueryRowContext(ctx, query,
		calc.ID, projectID, payload, result.TotalHeatLoss, result.TotalDesignLoad,
	).Scan(&calc.CreatedAt)
	if err != nil {
		return Calculation{}, fmt.Errorf("failed to save calculation: %w", err)
	}
	r.logger.Info("calculation saved",
		zap.String("project_id", projectID),
		zap.String("calculation_id", calc.ID),
		zap.Float64("total_design_load_w", result.TotalDesignLoad),
	)
	return calc, nil
}

func (r *PostgresProjectRepository) LatestCalculation(ctx context.Context, projectID string) (Calculation, error) {
	query := `
		SELECT id, payload, created_at
		FROM calculations
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var calc Calculation
	var payload []byte
	err := r.db.QueryRowContext(ctx, query, projectID).Scan(&calc.ID, &payload, &calc.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return Calculation{}, ErrNotFound
		}
		return Calculation{}, fmt.Errorf("failed to query calculation: %w", err)
	}
	calc.ProjectID = projectID
	if err := json.Unmarshal(payload, &calc.Result); err != nil {
		return Calculation{}, fmt.Errorf("failed to unmarshal calculation payload: %w", err)
	}
	return calc, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (Project, error) {
	var p Project
	var paramsJSON []byte
	err := row.Scan(&p.ID, &p.Name, &p.Address, &p.Notes, &paramsJSON, &p.CreatedAt, &p.UpdatedAt, &p.RoomCount)
	if err != nil {
		return Project{}, err
	}
	if len(paramsJSON) > 0 {
		var params heatloss.Params
		if err := json.Unmarshal(paramsJSON, &params); err != nil {
			return Project{}, fmt.Errorf("failed to unmarshal params: %w", err)
		}
		p.Params = &params
	}
	return p, nil
}
