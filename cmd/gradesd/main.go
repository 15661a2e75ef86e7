package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/peterbourgon/ff/v3"

	api "github.com/mind-engage/coursegrades/internal/api/http"
	auth "github.com/mind-engage/coursegrades/internal/auth/middleware"
	"github.com/mind-engage/coursegrades/internal/config"
	"github.com/mind-engage/coursegrades/internal/db"
	"github.com/mind-engage/coursegrades/internal/grades"
	rbac "github.com/mind-engage/coursegrades/internal/rbac"
	storage "github.com/mind-engage/coursegrades/internal/storage"
	syncx "github.com/mind-engage/coursegrades/internal/sync"
)

func main() {
	cfg := config.FromEnv()

	// Flags layer on top of the env defaults so either works.
	fs := flag.NewFlagSet("gradesd", flag.ExitOnError)
	var (
		httpAddr      = fs.String("addr", cfg.HTTPAddr, "HTTP listen address")
		dbDriver      = fs.String("db-driver", cfg.DBDriver, "database driver: sqlite or postgres")
		dbDSN         = fs.String("db-dsn", cfg.DBDSN, "database DSN (driver default when empty)")
		manifestBase  = fs.String("manifest-base", cfg.ManifestBasePath, "directory holding course manifest exports")
		persistGlobal = fs.Bool("persistent-grades", cfg.PersistentGradesEnabled, "global persistent-grades switch")
		persistAll    = fs.Bool("persistent-grades-all-courses", cfg.PersistentGradesAllCourses, "persist grades for every course")
		persistList   = fs.String("persistent-grades-courses", strings.Join(cfg.PersistentGradesCourses, ","), "comma-separated course ids with persistence enabled")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("GRADESD")); err != nil {
		log.Fatalf("parse flags: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(*dbDriver), *dbDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	bs, err := storage.NewFSStore(*manifestBase)
	if err != nil {
		log.Fatalf("manifest store: %v", err)
	}

	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)
	checker := auth.DBCredentialChecker(dbh, cfg.AdminUser, cfg.AdminPassHash)

	env := &api.Env{
		Store:             grades.NewSQLStore(dbh),
		Courses:           &api.BlobCourses{Store: bs},
		Events:            syncx.NewEventRepo(dbh),
		PersistEnabled:    *persistGlobal,
		PersistAllCourses: *persistAll,
		PersistCourses:    courseSet(*persistList),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, checker))

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Students read their own grades; instructors read anyone's.
		ownGrade := rbac.RequireOwnerOr("grade:view-all", func(r *http.Request) bool {
			return auth.SubjectFromContext(r.Context()) == chi.URLParam(r, "userID")
		})
		pr.With(ownGrade).
			Get("/courses/{courseID}/users/{userID}/grade", api.CourseGradeHandler(env))
		pr.With(ownGrade).
			Get("/courses/{courseID}/users/{userID}/subsections/{usageKey}/grade", api.SubsectionGradeHandler(env))

		pr.With(rbac.Require("grade:recompute")).
			Post("/courses/{courseID}/users/{userID}/grades/recompute", api.RecomputeGradesHandler(env))

		pr.With(rbac.Require("course:manage")).
			Put("/courses/{courseID}/manifest", api.UploadManifestHandler(bs))
		pr.With(rbac.Require("course:manage")).
			Get("/courses/{courseID}/manifest", api.GetManifestHandler(bs))

		pr.With(rbac.Require("events:view")).
			Get("/events", api.EventsHandler(env))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (db=%s)", *httpAddr, *dbDriver)
	log.Fatal(http.ListenAndServe(*httpAddr, r))
}

func courseSet(csv string) map[string]bool {
	out := map[string]bool{}
	for _, p := range strings.Split(csv, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out[s] = true
		}
	}
	return out
}
