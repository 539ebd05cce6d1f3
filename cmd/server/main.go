package main

import (
	"context"
	"log"
	"net/http"
	"time"

	api "github.com/linguagate/linguagate/internal/api/http"
	"github.com/linguagate/linguagate/internal/auth"
	authmw "github.com/linguagate/linguagate/internal/auth/middleware"
	"github.com/linguagate/linguagate/internal/catalog"
	"github.com/linguagate/linguagate/internal/config"
	"github.com/linguagate/linguagate/internal/db"
	"github.com/linguagate/linguagate/internal/eventlog"
	"github.com/linguagate/linguagate/internal/progress"
	"github.com/linguagate/linguagate/internal/rbac"
	"github.com/linguagate/linguagate/internal/session"
	"github.com/linguagate/linguagate/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	// --- Content catalog ---
	contentStore := catalog.NewSQLStore(dbh)
	cache := catalog.NewCache(contentStore)
	if err := cache.Reload(ctx); err != nil {
		// Exam selection stays disabled until a load succeeds.
		log.Printf("catalog load failed, starting without catalog: %v", err)
	}

	// --- Progression gate + engine ---
	progStore := progress.NewSQLStore(dbh)
	gate := progress.NewGate(progStore, time.Now)
	events := eventlog.NewRepo(dbh, cfg.SiteID)
	engine := session.NewEngine(cache, gate,
		session.WithEvents(events),
		session.WithDuration(cfg.ExamDurationSec),
	)
	defer engine.Close()

	// --- Auth ---
	authSvc := authmw.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", authmw.LoginHandler(authSvc, dbh, authmw.LoginOptions{
			AdminUser:     cfg.AdminUser,
			AdminPassHash: cfg.AdminPassHash,
		}))
	}
	if cfg.EnableGuestAuth {
		r.Post("/auth/guest", auth.GuestLoginHandler(authSvc, dbh, cfg))
	}

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(authSvc))
		pr.Use(authmw.AttachRoleFromDB(dbh, cfg.Mode == config.ModeOffline))

		pr.Route("/assets", func(ar chi.Router) {
			api.MountAssets(ar, bs)
		})

		pr.With(rbac.Require("exam_set:list")).
			Get("/exam-sets", api.ListExamSetsHandler(cache, gate))

		// Session commands act on the caller's own session.
		pr.With(rbac.Require("session:run")).
			Post("/session/start", api.StartSessionHandler(engine))
		pr.With(rbac.Require("session:run")).
			Post("/session/answer", api.SelectAnswerHandler(engine))
		pr.With(rbac.Require("session:run")).
			Post("/session/advance", api.AdvanceHandler(engine))
		pr.With(rbac.Require("session:run")).
			Post("/session/retreat", api.RetreatHandler(engine))
		pr.With(rbac.Require("session:run")).
			Post("/session/media-played", api.MarkMediaPlayedHandler(engine))
		pr.With(rbac.Require("session:run")).
			Post("/session/finish", api.FinishSessionHandler(engine))
		pr.With(rbac.Require("session:run")).
			Post("/session/reset", api.ResetSessionHandler(engine))

		pr.With(rbac.Require("session:view")).
			Get("/session", api.GetSessionHandler(engine))
		pr.With(rbac.Require("session:view")).
			Get("/session/result", api.GetSessionResultHandler(engine))
		pr.With(rbac.Require("result:view-own")).
			Get("/results", api.ListResultsHandler(progStore))

		// Content authoring (admin)
		pr.With(rbac.Require("catalog:write")).
			Post("/admin/exam-sets", api.UpsertExamSetHandler(contentStore))
		pr.With(rbac.Require("catalog:write")).
			Post("/admin/questions", api.UpsertQuestionHandler(contentStore))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
