package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"gopkg.in/yaml.v3"

	server "github.com/sedeops/autoassign/internal"
	"github.com/sedeops/autoassign/internal/assignment"
	"github.com/sedeops/autoassign/internal/config"
	"github.com/sedeops/autoassign/internal/eventbus"
	"github.com/sedeops/autoassign/internal/fixture"
	"github.com/sedeops/autoassign/internal/pushnotification"
	"github.com/sedeops/autoassign/pkg/clog"
	"github.com/sedeops/autoassign/pkg/panicerr"
)

var (
	app = kingpin.New("autoassign", "Automatic task assignment for cleaning crews")

	serveCmd = app.Command("serve", "Serve the assignment API").Default()

	runCmd     = app.Command("run", "Run one auto-assignment batch and print the results as JSON")
	runTaskIDs = runCmd.Arg("task-ids", "Ids of the tasks to assign").Required().Strings()

	seedCmd  = app.Command("seed", "Load a YAML fixture into the configured storage")
	seedFile = seedCmd.Arg("fixture", "Fixture file").Required().ExistingFile()

	listCmd  = app.Command("list", "Print groups, workers and tasks from the configured storage as a YAML fixture")
	listDate = listCmd.Flag("date", "Only list tasks scheduled on this day (YYYY-MM-DD)").String()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	var err error
	switch command {
	case serveCmd.FullCommand():
		err = serve()
	case runCmd.FullCommand():
		err = run(*runTaskIDs)
	case seedCmd.FullCommand():
		err = seed(*seedFile)
	case listCmd.FullCommand():
		err = list(*listDate)
	}
	if err != nil {
		slog.Error("command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func serve() error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(clog.NewHandler(env.Env, os.Stderr, env.SlogLevel())))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	repos, err := openRepositories(ctx, config.StorageEnvFromEnv(env))
	if err != nil {
		return err
	}
	defer repos.Close()

	bus := eventbus.New()
	defer bus.Close()

	scheduler := assignment.NewScheduler(repos.Tasks, repos.Groups, repos.GroupWorkers, repos.Workers, repos.AuditLog, bus)
	assignmentServer := assignment.NewServer(scheduler)

	vapidEnv := config.VAPIDEnvFromEnv(env)
	pushSender := pushnotification.NewSender(vapidEnv, repos.PushSubscriptions)
	pushNotificationServer := pushnotification.NewServer(vapidEnv, repos.PushSubscriptions, repos.Workers)
	pushDispatcher := pushnotification.NewDispatcher(bus, pushSender)

	srv := server.NewServer(env, assignmentServer, pushNotificationServer)

	go func() {
		err := panicerr.SafeContext(func(ctx context.Context) error {
			pushDispatcher.Start(ctx)
			return nil
		})(ctx)
		if err != nil {
			slog.Error("push dispatcher stopped", "error", err)
		}
	}()
	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

func run(taskIDs []string) error {
	ctx := context.Background()
	storageEnv, err := loadToolEnv()
	if err != nil {
		return err
	}
	repos, err := openRepositories(ctx, storageEnv)
	if err != nil {
		return err
	}
	defer repos.Close()

	scheduler := assignment.NewScheduler(repos.Tasks, repos.Groups, repos.GroupWorkers, repos.Workers, repos.AuditLog, nil)
	batch, err := scheduler.RunAutoAssignment(ctx, taskIDs)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(assignment.RunAutoAssignmentResponse{
		Success: true,
		Results: batch.Results,
		Summary: batch.Summary,
	})
}

func seed(path string) error {
	ctx := context.Background()
	storageEnv, err := loadToolEnv()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read fixture: %w", err)
	}
	f, err := fixture.Parse(data)
	if err != nil {
		return err
	}
	repos, err := openRepositories(ctx, storageEnv)
	if err != nil {
		return err
	}
	defer repos.Close()

	if err := f.Seed(ctx, repos); err != nil {
		return err
	}
	slog.Info("fixture loaded", "file", path, "groups", len(f.Groups), "workers", len(f.Workers), "tasks", len(f.Tasks))
	return nil
}

func list(date string) error {
	ctx := context.Background()
	storageEnv, err := loadToolEnv()
	if err != nil {
		return err
	}
	repos, err := openRepositories(ctx, storageEnv)
	if err != nil {
		return err
	}
	defer repos.Close()

	f, err := fixture.Export(ctx, repos, date)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("failed to encode fixture: %w", err)
	}
	return enc.Close()
}

// loadToolEnv configures logging for the one-shot commands, which need
// storage settings but no API key.
func loadToolEnv() (*config.StorageEnv, error) {
	logEnv, err := config.LoadLogEnv()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(clog.NewHandler(logEnv.Env, os.Stderr, logEnv.SlogLevel())))
	return config.LoadStorageEnv()
}
