package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	heatloss "Hestia/internal/calc/heatloss"

	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a project, room or calculation does not exist
// or belongs to another user.
var ErrNotFound = errors.New("not found")

// Repository is the user/account store.
type Repository interface {
	CreateUser(ctx context.Context, login, email, password string) (int, error)
	GetBylogin(ctx context.Context, login string) (int, string, error)
	GetProfileByID(ctx context.Context, userID int) (Profile, error)
	UpdateProfile(ctx context.Context, userID int, login, companyName, description string) error
	UpdateLogo(ctx context.Context, userID int, logoURL string) error
}

// Profile is the surveyor identity shown in the app and printed on reports.
type Profile struct {
	ID          int    `json:"id"`
	Login       string `json:"login"`
	Email       string `json:"email"`
	CompanyName string `json:"company_name"`
	Description string `json:"description"`
	LogoURL     string `json:"logo_url"`
}

// Project is one surveyed property. Params is nil until the surveyor has set
// calculation parameters for the building.
type Project struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Address   string           `json:"address"`
	Notes     string           `json:"notes"`
	Params    *heatloss.Params `json:"params,omitempty"`
	RoomCount int              `json:"room_count"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Room is a surveyed room within a project. The embedded engine type carries
// the geometry; ID and Name belong to the survey, not the physics.
type Room struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	heatloss.Room
}

// InitDB opens the Postgres pool. Connection strings without an explicit
// sslmode get sslmode=require appended, matching managed-Postgres defaults.
func InitDB(connStr string) (*sql.DB, error) {
	if !strings.Contains(connStr, "sslmode=") {
		if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
			connStr = connStr + "?sslmode=require"
		} else {
			connStr = connStr + " sslmode=require"
		}
	}
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserDB(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) CreateUser(ctx context.Context, login, email, password string) (int, error) {
	var id int
	query := "INSERT INTO users (login, email, password) VALUES ($1, $2, $3) RETURNING id"
	err := r.db.QueryRowContext(ctx, query, login, email, password).Scan(&id)
	return id, err
}

func (r *PostgresUserRepository) GetBylogin(ctx context.Context, login string) (int, string, error) {
	var id int
	var hash string

	query := "SELECT id, password FROM users WHERE login=$1"

	err := r.db.QueryRowContext(ctx, query, login).Scan(&id, &hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, "", nil
		}
		return 0, "", err
	}
	return id, hash, nil
}

func (r *PostgresUserRepository) GetProfileByID(ctx context.Context, userID int) (Profile, error) {
	var p Profile
	query := "SELECT id, login, email, company_name, description, logo_url FROM users WHERE id=$1"
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&p.ID, &p.Login, &p.Email, &p.CompanyName, &p.Description, &p.LogoURL)
	if err != nil {
		if err == sql.ErrNoRows {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, userID int, login, companyName, description string) error {
	query := "UPDATE users SET login=$1, company_name=$2, description=$3 WHERE id=$4"
	_, err := r.db.ExecContext(ctx, query, login, companyName, description, userID)
	return err
}

func (r *PostgresUserRepository) UpdateLogo(ctx context.Context, userID int, logoURL string) error {
	query := "UPDATE users SET logo_url=$1 WHERE id=$2"
	_, err := r.db.ExecContext(ctx, query, logoURL, userID)
	return err
}
