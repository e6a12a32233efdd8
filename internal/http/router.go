package http

import (
	"net/http"

	"dayflow/internal/auth"
	"dayflow/internal/config"
	"dayflow/internal/event"
	"dayflow/internal/http/handler"
	mw "dayflow/internal/http/middleware"
	"dayflow/internal/recur"
	"dayflow/internal/snapshot"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{DB: db}
	r.With(auth.RequireAuth(jwtSvc)).Get("/me", me.Me)

	calc := recur.NewCalculator(cfg.Timezone)
	evSvc := &event.Service{DB: db, Loc: cfg.Timezone}
	snapMgr := snapshot.NewManager(
		&snapshot.GormStore{DB: db},
		&event.RevertStore{DB: db},
		cfg.SnapshotRetention,
	)

	evH := &handler.EventHandler{Svc: evSvc, Snapshots: snapMgr, Calc: calc}
	evRead := &handler.EventReadHandler{Svc: evSvc, Calc: calc}

	r.Route("/events", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Post("/", evH.Create)
		r.Get("/", evRead.List)

		r.Get("/{id}", evRead.Get)
		r.Patch("/{id}", evH.Update)
		r.Delete("/{id}", evH.Delete)

		r.Post("/{id}/instances", evH.Promote)
	})

	snapH := &handler.SnapshotHandler{Mgr: snapMgr}
	r.Route("/snapshots", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/", snapH.List)
		r.Post("/undo", snapH.Undo)
		r.Post("/{id}/revert", snapH.Revert)
	})

	return r
}
