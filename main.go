package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"danji_watch/cache"
	"danji_watch/config"
	"danji_watch/crawler"
	"danji_watch/geocode"
	"danji_watch/httputil"
	"danji_watch/logging"
	"danji_watch/models"
	"danji_watch/notify"
	"danji_watch/scheduler"
	"danji_watch/services"
	"danji_watch/storage"
	"danji_watch/workers"
)

func main() {
	crawlTargets := flag.String("crawl", "", "run one crawl for a comma-separated complex list and exit")
	cmdName := flag.String("cmd", "", "enqueue a command for the running daemon (crawl_now, run_schedule, reload_schedules) and exit")
	cmdTargets := flag.String("targets", "", "complex list for -cmd crawl_now")
	cmdSchedule := flag.String("schedule", "", "schedule id for -cmd run_schedule")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if *cmdName != "" {
		if err := enqueueCommand(cfg, *cmdName, *cmdTargets, *cmdSchedule); err != nil {
			log.Fatalf("enqueue command: %v", err)
		}
		fmt.Printf("command %s queued\n", *cmdName)
		return
	}

	writer, err := logging.Setup(cfg.LogPath)
	if err != nil {
		log.Fatalf("setup logging: %v", err)
	}
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	var invalidator *cache.Invalidator
	if cfg.RedisURL != "" {
		invalidator, err = cache.NewInvalidator(ctx, cfg.RedisURL)
		if err != nil {
			log.Printf("redis unavailable, cache invalidation disabled: %v", err)
			invalidator = nil
		} else {
			defer invalidator.Close()
		}
	}

	var archiver *storage.ArtifactArchiver
	if cfg.Archive.Bucket != "" {
		archiver, err = storage.NewArtifactArchiver(ctx, cfg.Archive.Bucket, cfg.Archive.Prefix)
		if err != nil {
			log.Printf("artifact archiving disabled: %v", err)
			archiver = nil
		}
	}

	clients := httputil.NewClients()
	var geocoder crawler.Geocoder
	if cfg.Geocode.URL != "" {
		geocoder = geocode.NewClient(cfg.Geocode.URL, clients.Geocode)
	}

	broadcaster := notify.NewBroadcaster()
	go logEvents(ctx, broadcaster)

	notifyWorker := workers.NewNotifyWorker(notify.NewWebhookSender(clients.Webhook), store)
	go notifyWorker.Run(ctx)

	supervisor := crawler.NewSupervisor(crawler.SupervisorConfig{
		Store:        store,
		Runner:       crawler.NewProcessRunner(cfg.Crawler.Command, cfg.Crawler.Script),
		Estimator:    crawler.NewTimeoutEstimator(store),
		Geocoder:     geocoder,
		Broadcaster:  broadcaster,
		Alerts:       services.NewAlertService(store, notifyWorker),
		Caches:       cacheHook(invalidator),
		Archive:      archiveHook(archiver),
		DataDir:      cfg.Crawler.DataDir,
		GeocodeDelay: cfg.Crawler.GeocodeDelay,
		PollInterval: cfg.Crawler.PollInterval,
	})

	if *crawlTargets != "" {
		runOnce(ctx, supervisor, splitList(*crawlTargets), cfg.Crawler.DefaultUser)
		return
	}

	engine, err := scheduler.New(store, supervisor, cfg.Scheduler.Timezone,
		cfg.Scheduler.RecoveryGrace, cfg.Scheduler.RecoveryWindow)
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	if _, err := engine.LoadAll(ctx); err != nil {
		log.Printf("load schedules: %v", err)
	}
	engine.Start()

	queue, err := storage.NewSQLiteStore(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("open command queue: %v", err)
	}
	defer queue.Close()
	go engine.PollCommands(ctx, queue, cfg.Crawler.DefaultUser, cfg.Crawler.PollInterval)

	log.Println("danji_watch daemon started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("shutting down")
	engine.Stop()
	cancel()
}

// runOnce submits a single manual crawl and blocks on the ledger until it is
// terminal, for CLI use without the daemon loop.
func runOnce(ctx context.Context, supervisor *crawler.Supervisor, targets []string, userID string) {
	runID, err := supervisor.Submit(ctx, crawler.SubmitRequest{
		ComplexNos:  targets,
		TriggeredBy: models.TriggerManual,
		UserID:      userID,
	})
	if err != nil {
		log.Fatalf("submit crawl: %v", err)
	}
	log.Printf("run %s started for %d complexes", runID, len(targets))

	run, err := supervisor.Wait(ctx, runID, 40*time.Minute)
	if err != nil {
		log.Fatalf("wait for run %s: %v", runID, err)
	}
	log.Printf("run %s finished: %s (%d articles in %ds)", runID, run.Status, run.TotalArticles, run.DurationSec)
	if run.Status == models.RunStatusFailed {
		os.Exit(1)
	}
}

func enqueueCommand(cfg *config.Config, name, targets, scheduleID string) error {
	queue, err := storage.NewSQLiteStore(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer queue.Close()

	switch models.CommandType(name) {
	case models.CmdCrawlNow:
		nos := splitList(targets)
		if len(nos) == 0 {
			return fmt.Errorf("crawl_now needs -targets")
		}
		return queue.EnqueueCommand(models.CmdCrawlNow, &models.CommandParams{ComplexNos: nos})
	case models.CmdRunSchedule:
		if scheduleID == "" {
			return fmt.Errorf("run_schedule needs -schedule")
		}
		return queue.EnqueueCommand(models.CmdRunSchedule, &models.CommandParams{ScheduleID: scheduleID})
	case models.CmdReloadSchedules:
		return queue.EnqueueCommand(models.CmdReloadSchedules, nil)
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func logEvents(ctx context.Context, b *notify.Broadcaster) {
	events, cancel := b.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case notify.EventRunFailed:
				log.Printf("event %s run=%s: %s", ev.Type, ev.RunID, ev.Error)
			case notify.EventRunComplete:
				log.Printf("event %s run=%s: %d articles", ev.Type, ev.RunID, ev.Articles)
			default:
				log.Printf("event %s run=%s %s", ev.Type, ev.RunID, ev.Step)
			}
		}
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// cacheHook and archiveHook keep a typed nil pointer from turning into a
// non-nil interface on the supervisor.
func cacheHook(inv *cache.Invalidator) crawler.CacheInvalidator {
	if inv == nil {
		return nil
	}
	return inv
}

func archiveHook(a *storage.ArtifactArchiver) crawler.Archiver {
	if a == nil {
		return nil
	}
	return a
}
