package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"avitowatch/config"
	"avitowatch/models"
	"avitowatch/proxyguard"
	"avitowatch/scraper"
	"avitowatch/storage"
)

// Triggerable allows background workers to be kicked manually.
type Triggerable interface {
	Trigger()
}

// Scheduler fires recurring evaluation passes and polls the command queue the
// external chat interface writes into. The timer pass and an interactive
// check may overlap; the store's uniqueness constraint handles the race.
type Scheduler struct {
	cfg          *config.Config
	orchestrator *scraper.Orchestrator
	ops          *storage.SQLiteStore
	guard        *proxyguard.Guard
	cron         *cron.Cron
	ticker       *time.Ticker
	stopCh       chan struct{}

	artifactWorker Triggerable
}

func New(cfg *config.Config, orchestrator *scraper.Orchestrator, ops *storage.SQLiteStore, guard *proxyguard.Guard) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		orchestrator: orchestrator,
		ops:          ops,
		guard:        guard,
		cron:         cron.New(),
		stopCh:       make(chan struct{}),
	}
}

// SetWorkers registers background workers for manual triggering.
func (s *Scheduler) SetWorkers(artifacts Triggerable) {
	s.artifactWorker = artifacts
}

func (s *Scheduler) Start(ctx context.Context) error {
	go s.pollCommands(ctx)

	if s.cfg.Scheduler.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", s.cfg.Scheduler.Cron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, func() {
			s.runPass(ctx)
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	} else if s.cfg.Scheduler.Interval > 0 {
		log.Printf("Starting scheduler with interval: %s", s.cfg.Scheduler.Interval)
		s.ticker = time.NewTicker(s.cfg.Scheduler.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.runPass(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		log.Println("No schedule configured, daemon will only respond to commands")
	}

	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}

func (s *Scheduler) runPass(ctx context.Context) {
	if err := s.guard.Verify(ctx); err != nil {
		log.Printf("Skipping pass: %v", err)
		return
	}
	if err := s.orchestrator.RunAll(ctx); err != nil {
		log.Printf("Scheduled pass error: %v", err)
	}
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cmds, err := s.ops.GetPendingCommands()
			if err != nil {
				log.Printf("Error getting commands: %v", err)
				continue
			}

			for _, cmd := range cmds {
				log.Printf("Processing command: %s", cmd.Command)
				if err := s.handleCommand(ctx, &cmd); err != nil {
					log.Printf("Command error: %v", err)
				}
				if err := s.ops.MarkCommandProcessed(cmd.ID); err != nil {
					log.Printf("Error marking command processed: %v", err)
				}
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) handleCommand(ctx context.Context, cmd *models.Command) error {
	if cmd.Command == models.CmdSweepArtifacts {
		if s.artifactWorker != nil {
			s.artifactWorker.Trigger()
			log.Println("Artifact sweep triggered via command")
		}
		return nil
	}
	return s.orchestrator.HandleCommand(ctx, cmd)
}

// TriggerNow runs a full pass immediately, bypassing the schedule.
func (s *Scheduler) TriggerNow(ctx context.Context) error {
	return s.orchestrator.RunAll(ctx)
}
