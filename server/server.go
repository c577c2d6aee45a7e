package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"stemroom/config"
	"stemroom/core/auth"
	"stemroom/core/mix"
	"stemroom/core/take"
	"stemroom/core/upload"
	"stemroom/db"
	"stemroom/logger"
	"stemroom/model"
	"stemroom/repository"
	"stemroom/storage"
)

// Start wires the stack and runs the HTTP server until interrupted.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	auth.InitJWT(cfg.JWTSecret, cfg.JWTTTL)

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.InitDB(); err != nil {
		logger.Fatal("failed to initialize database schema", logger.ErrorField(err))
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("failed to connect gorm", logger.ErrorField(err))
	}
	defer db.CloseGormDB()
	if err := db.AutoMigrateModels(&model.SongNote{}, &model.SongDecision{}); err != nil {
		logger.Fatal("failed to migrate note tables", logger.ErrorField(err))
	}

	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("failed to connect to Redis", logger.ErrorField(err))
	}
	defer db.CloseRedis()

	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("failed to initialize MinIO", logger.ErrorField(err))
	}

	userRepo := repository.NewMySQLUserRepository(db.DB)
	bandRepo := repository.NewMySQLBandRepository(db.DB)
	songRepo := repository.NewMySQLSongRepository(db.DB)
	trackRepo := repository.NewMySQLTrackRepository(db.DB)
	revisionRepo := repository.NewMySQLRevisionRepository(db.DB)
	assetRepo := repository.NewMySQLAssetRepository(db.DB)
	sessionRepo := repository.NewMySQLSessionRepository(db.DB)
	noteRepo := repository.NewGormNoteRepository(db.GormDB)

	takeSvc := take.NewService(trackRepo, revisionRepo)
	mixSvc := mix.NewService(sessionRepo, songRepo, trackRepo, revisionRepo)
	uploadSvc := upload.NewService(assetRepo, revisionRepo, storage.NewMinioPresigner(cfg))

	api := NewAPIHandler(
		userRepo, bandRepo, songRepo, trackRepo, noteRepo,
		takeSvc, mixSvc, uploadSvc, cfg,
	)

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	// Auth
	router.HandleFunc("/api/auth/register", api.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", api.LoginHandler).Methods(http.MethodPost)

	// Bands
	router.HandleFunc("/api/bands", api.AuthMiddleware(api.CreateBandHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/bands", api.AuthMiddleware(api.ListBandsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/bands/{band_id}", api.AuthMiddleware(api.GetBandHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/bands/{band_id}/members", api.AuthMiddleware(api.AddBandMemberHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/bands/{band_id}/members", api.AuthMiddleware(api.ListBandMembersHandler)).Methods(http.MethodGet)

	// Songs
	router.HandleFunc("/api/bands/{band_id}/songs", api.AuthMiddleware(api.CreateSongHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/bands/{band_id}/songs", api.AuthMiddleware(api.ListSongsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/{song_id}", api.AuthMiddleware(api.GetSongHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/{song_id}", api.AuthMiddleware(api.UpdateSongHandler)).Methods(http.MethodPatch)
	router.HandleFunc("/api/songs/{song_id}", api.AuthMiddleware(api.DeleteSongHandler)).Methods(http.MethodDelete)

	// Notes and decisions
	router.HandleFunc("/api/songs/{song_id}/notes", api.AuthMiddleware(api.CreateSongNoteHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/songs/{song_id}/notes", api.AuthMiddleware(api.ListSongNotesHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/{song_id}/notes/{note_id}", api.AuthMiddleware(api.UpdateSongNoteHandler)).Methods(http.MethodPatch)
	router.HandleFunc("/api/songs/{song_id}/notes/{note_id}", api.AuthMiddleware(api.DeleteSongNoteHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/songs/{song_id}/decisions", api.AuthMiddleware(api.CreateSongDecisionHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/songs/{song_id}/decisions", api.AuthMiddleware(api.ListSongDecisionsHandler)).Methods(http.MethodGet)

	// Tracks
	router.HandleFunc("/api/songs/{song_id}/tracks", api.AuthMiddleware(api.CreateTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/songs/{song_id}/tracks", api.AuthMiddleware(api.ListTracksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{track_id}", api.AuthMiddleware(api.UpdateTrackHandler)).Methods(http.MethodPatch)
	router.HandleFunc("/api/tracks/{track_id}/active-revision", api.AuthMiddleware(api.SetActiveRevisionHandler)).Methods(http.MethodPut)

	// Revisions
	router.HandleFunc("/api/tracks/{track_id}/revisions", api.AuthMiddleware(api.CreateRevisionHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{track_id}/revisions", api.AuthMiddleware(api.ListRevisionsHandler)).Methods(http.MethodGet)

	// Assets
	router.HandleFunc("/api/revisions/{revision_id}/assets", api.AuthMiddleware(api.PresignAssetHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/revisions/{revision_id}/assets", api.AuthMiddleware(api.ListAssetsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/assets/{asset_id}/complete", api.AuthMiddleware(api.CompleteAssetHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/assets/{asset_id}/fail", api.AuthMiddleware(api.FailAssetHandler)).Methods(http.MethodPost)
	router.HandleFunc("/stream/assets/{asset_id}", api.AuthMiddleware(api.DownloadAssetHandler)).Methods(http.MethodGet)

	// Mix sessions
	router.HandleFunc("/api/songs/{song_id}/sessions", api.AuthMiddleware(api.CreateSessionHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/songs/{song_id}/sessions", api.AuthMiddleware(api.ListSessionsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/sessions/{session_id}", api.AuthMiddleware(api.GetSessionHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/sessions/{session_id}/tracks", api.AuthMiddleware(api.ReplaceSessionTracksHandler)).Methods(http.MethodPut)

	// Web client
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.WebAppDir)))

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("forced shutdown", logger.ErrorField(err))
	}

	logger.Info("server stopped")
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range, Idempotency-Key")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
