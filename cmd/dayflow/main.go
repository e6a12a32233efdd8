package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"dayflow/internal/auth"
	"dayflow/internal/config"
	"dayflow/internal/db"
	"dayflow/internal/event"
	"dayflow/internal/habit"
	httpx "dayflow/internal/http"
	"dayflow/internal/jobs"
	"dayflow/internal/recur"
)

func main() {
	cfg, _ := config.Load()

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		log.Fatal(err)
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret)
	r := httpx.NewRouter(cfg, gdb, jwtSvc)

	ctx, cancel := context.WithCancel(context.Background())

	// habit replenishment: cron sweep enqueues, worker drains
	jobsRepo := &jobs.Repo{DB: gdb}
	replenisher := &habit.Replenisher{
		DB:     gdb,
		Events: &event.Service{DB: gdb, Loc: cfg.Timezone},
		Calc:   recur.NewCalculator(cfg.Timezone),
		Jobs:   jobsRepo,
		Target: cfg.HabitPendingTarget,
	}
	worker := &jobs.Worker{ID: "worker-1", Repo: jobsRepo, Replenish: replenisher.ReplenishUser}
	go worker.Run(ctx)

	sched := cron.New(cron.WithLocation(cfg.Timezone))
	if _, err := sched.AddFunc(cfg.HabitReplenishCron, func() {
		if n, err := replenisher.EnqueueDue(ctx); err != nil {
			log.Printf("replenish sweep failed: %v\n", err)
		} else {
			log.Printf("replenish sweep enqueued %d users\n", n)
		}
	}); err != nil {
		log.Fatal(err)
	}
	sched.Start()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s\n", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	<-sched.Stop().Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
