package main

import (
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/bmedtech/startup-intake/internal/assembler"
	"github.com/bmedtech/startup-intake/internal/config"
	"github.com/bmedtech/startup-intake/internal/gelf"
	"github.com/bmedtech/startup-intake/internal/handler"
	"github.com/bmedtech/startup-intake/internal/questionnaire"
	"github.com/bmedtech/startup-intake/internal/router"
	"github.com/bmedtech/startup-intake/internal/service"
	"github.com/bmedtech/startup-intake/internal/storage"
	"github.com/bmedtech/startup-intake/internal/taxonomy"
	"github.com/bmedtech/startup-intake/internal/wizard"
)

func main() {
	cfg := config.Load()

	// GELF UDP logging
	if cfg.GelfAddr != "" {
		gelfWriter, err := gelf.New(cfg.GelfAddr)
		if err != nil {
			log.Printf("Warning: GELF init failed: %v", err)
		} else {
			log.SetOutput(io.MultiWriter(os.Stderr, gelfWriter))
			log.Printf("GELF logging: enabled (%s)", cfg.GelfAddr)
		}
	}

	// A broken niche-to-category mapping misfiles every submission, so a
	// bad configuration aborts startup instead of defaulting.
	tax, err := taxonomy.Load(cfg.TaxonomyPath)
	if err != nil {
		log.Fatalf("Invalid taxonomy configuration: %v", err)
	}
	resolver, err := questionnaire.Load(cfg.QuestionnairePath)
	if err != nil {
		log.Fatalf("Invalid questionnaire configuration: %v", err)
	}
	log.Printf("Taxonomy loaded: %d categories, %d niches", len(tax.Categories), len(tax.AllNiches())-1)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data dir %s: %v", cfg.DataDir, err)
	}

	// Persistence
	logStore := storage.NewLogStore(cfg.LogPath)
	db := storage.NewExcelStore(cfg.WorkbookPath)
	asm := assembler.New(storage.DiskSink{}, resolver, cfg.DataDir, nil)

	// Services
	machine := wizard.NewMachine(tax, resolver)
	sessions := service.NewSessionManager(machine)
	intakeSvc := service.NewIntakeService(tax, asm, logStore, db)

	// Handlers
	intakeH := handler.NewIntakeHandler(sessions, intakeSvc, tax)
	dashH := handler.NewDashboardHandler(intakeSvc, sessions)

	// Router
	r := router.New(intakeH, dashH)

	// Abandoned sessions never reach the stores; just drop them.
	go func() {
		for range time.Tick(10 * time.Minute) {
			if n := sessions.CleanupExpired(cfg.SessionTTL); n > 0 {
				log.Printf("Session cleanup: removed %d expired sessions", n)
			}
		}
	}()

	log.Printf("Startup intake server starting on %s", cfg.HTTPAddr)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
