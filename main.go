package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	atlas "Hestia/internal/atlas"
	auth "Hestia/internal/auth"
	cache "Hestia/internal/cache"
	building "Hestia/internal/calc/building"
	emitter "Hestia/internal/calc/emitter"
	export "Hestia/internal/calc/export"
	heatloss "Hestia/internal/calc/heatloss"
	report "Hestia/internal/calc/report"
	config "Hestia/internal/config"
	importer "Hestia/internal/importer"
	logger "Hestia/internal/logger"
	profile "Hestia/internal/profile"
	project "Hestia/internal/project"
	repo "Hestia/internal/repo"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var wg sync.WaitGroup

func CORS(mux *mux.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

func HandleList(router *mux.Router, db *sql.DB, cfg *config.Config, zlog *zap.Logger,
	resultCache *cache.ResultCache, atlasClient *atlas.Client) {

	userRepo := repo.NewPostgresUserDB(db)
	projectRepo := repo.NewPostgresProjectRepository(db, zlog)

	authEnv := &auth.Authenv{JWTkey: []byte(cfg.TokenKey), Repo: userRepo, Logger: zlog}
	profileH := &profile.ProfileHandler{Repo: userRepo, UploadDir: cfg.UploadDir, Logger: zlog}
	projectH := &project.Handler{Repo: projectRepo, Cache: resultCache, Logger: zlog}
	importH := &importer.Handler{Repo: projectRepo, Cache: resultCache, Logger: zlog}
	reportH := &report.Handler{Repo: projectRepo, Users: userRepo, UploadDir: cfg.UploadDir, Logger: zlog}
	exportH := &export.Handler{Repo: projectRepo, Logger: zlog}
	heatlossH := &heatloss.Handler{}
	buildingH := &building.Handler{}
	emitterH := &emitter.Handler{}

	limiter := auth.NewIPRateLimiter(1, 3)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(limiter.LimitMiddleware)

	api.HandleFunc("/login", authEnv.AuthHandler).Methods("POST")
	api.HandleFunc("/register", authEnv.RegisterHandler).Methods("POST")

	secureApi := api.PathPrefix("/user").Subrouter()
	secureApi.Use(authEnv.AuthMiddleware)

	secureApi.HandleFunc("/profile", profileH.GetProfile).Methods("GET")
	secureApi.HandleFunc("/profile", profileH.UpdateProfile).Methods("PATCH", "PUT")
	secureApi.HandleFunc("/profile/logo", profileH.UploadLogo).Methods("POST")

	secureApi.HandleFunc("/tools/heatloss/calc", heatlossH.Calc).Methods("POST")
	secureApi.HandleFunc("/tools/heatloss/building", buildingH.Calc).Methods("POST")
	secureApi.HandleFunc("/tools/emitter/calc", emitterH.Calc).Methods("POST")

	secureApi.HandleFunc("/projects", projectH.CreateProject).Methods("POST")
	secureApi.HandleFunc("/projects", projectH.ListProjects).Methods("GET")
	secureApi.HandleFunc("/projects/{id}", projectH.GetProject).Methods("GET")
	secureApi.HandleFunc("/projects/{id}", projectH.DeleteProject).Methods("DELETE")
	secureApi.HandleFunc("/projects/{id}/params", projectH.UpdateParams).Methods("PUT")
	secureApi.HandleFunc("/projects/{id}/rooms", projectH.AddRooms).Methods("POST")
	secureApi.HandleFunc("/projects/{id}/rooms", projectH.ListRooms).Methods("GET")
	secureApi.HandleFunc("/projects/{id}/rooms/{roomID}", projectH.DeleteRoom).Methods("DELETE")
	secureApi.HandleFunc("/projects/{id}/calculate", projectH.Calculate).Methods("POST")
	secureApi.HandleFunc("/projects/{id}/results", projectH.Results).Methods("GET")
	secureApi.HandleFunc("/projects/{id}/report/pdf", reportH.Generate).Methods("POST")
	secureApi.HandleFunc("/projects/{id}/report/xlsx", exportH.ExportResults).Methods("GET")
	secureApi.HandleFunc("/projects/{id}/import/xlsx", importH.ImportRooms).Methods("POST")

	if atlasClient != nil {
		atlasH := &atlas.Handler{Client: atlasClient, Repo: projectRepo, Cache: resultCache, Logger: zlog}
		secureApi.HandleFunc("/atlas/surveys", atlasH.ListSurveys).Methods("GET")
		secureApi.HandleFunc("/projects/{id}/import/atlas", atlasH.ImportSurvey).Methods("POST")
	}

	router.PathPrefix("/uploads/").
		Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, reading configuration from the environment")
	}
	cfg := config.Load()

	zlog, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "hestia")
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer zlog.Sync()

	if cfg.TokenKey == "" {
		zlog.Fatal("TOKEN_KEY environment variable is not set")
	}

	db, err := repo.InitDB(cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	var resultCache *cache.ResultCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			zlog.Warn("redis unavailable, running without result cache", zap.Error(err))
			rdb.Close()
		} else {
			defer rdb.Close()
			resultCache = cache.NewResultCache(cache.NewRedisKVStore(rdb), cfg.ResultCacheTTL, zlog)
		}
	}

	var atlasClient *atlas.Client
	if cfg.Atlas.APIURL != "" {
		atlasClient = atlas.NewClient(cfg.Atlas.APIURL, cfg.Atlas.AppID, cfg.Atlas.SecretKey, cfg.Atlas.Timeout, zlog)
	}

	router := mux.NewRouter()
	HandleList(router, db, cfg, zlog, resultCache, atlasClient)
	handler := CORS(router)

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: handler,
	}

	zlog.Info("starting server",
		zap.String("addr", cfg.HTTP.Addr),
		zap.Bool("cache_enabled", resultCache != nil),
		zap.Bool("atlas_enabled", atlasClient != nil),
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server shutdown failed", zap.Error(err))
	}
	wg.Wait()
	zlog.Info("server stopped")
}
