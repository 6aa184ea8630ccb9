package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "embed"

	"go.uber.org/fx"

	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
	repository "github.com/tigerroll/seawall/pkg/failover/core/domain/repository"
	"github.com/tigerroll/seawall/pkg/failover/engine/controller"
	"github.com/tigerroll/seawall/pkg/failover/history"
	"github.com/tigerroll/seawall/pkg/failover/support/util/logger"
)

// embeddedConfig holds the application YAML configuration compiled into the
// binary.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// startDrillExecution is an Fx hook that re-attaches any interrupted
// executions, runs a drill of the demo plan, and archives the audit history
// before requesting shutdown.
func startDrillExecution(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	ctrl *controller.Controller,
	exporter *history.Exporter,
	appCtx context.Context,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered in drill execution: %v", r)
					}
					logger.Infof("Requesting application shutdown after drill completion.")
					if err := shutdowner.Shutdown(); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()

				runDrill(appCtx, ctrl, exporter)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Infof("Application is shutting down.")
			return nil
		},
	})
}

// runDrill drives one drill execution of the demo plan to completion.
func runDrill(ctx context.Context, ctrl *controller.Controller, exporter *history.Exporter) {
	// Executions that were in flight when the previous process died are
	// re-attached and polled; their jobs are never re-submitted.
	if err := ctrl.ReattachAll(ctx); err != nil {
		logger.Errorf("Failed to re-attach interrupted executions: %v", err)
	}

	logger.Infof("Starting drill for plan '%s'...", demoPlanID)
	execution, err := ctrl.Start(ctx, demoPlanID, model.ExecutionTypeDrill, "seawall-demo")
	if err != nil {
		logger.Errorf("Failed to start drill for plan '%s': %v", demoPlanID, err)
		return
	}
	logger.Infof("Drill started. Execution ID: %s", execution.ID)

	ctrl.Wait(execution.ID)

	final, err := ctrl.Status(context.Background(), execution.ID)
	if err != nil {
		logger.Errorf("Failed to fetch final status for execution %s: %v", execution.ID, err)
		return
	}
	logger.Infof("Drill finished with status %s (%d job records, %d failures).",
		final.Status, len(final.JobRecords), len(final.Failures))

	archived, err := exporter.Archive(context.Background(), repository.HistoryFilter{PlanID: demoPlanID})
	if err != nil {
		logger.Errorf("Failed to archive execution history: %v", err)
		return
	}
	logger.Infof("Archived %d history record(s) to the audit store.", archived)
}

// main is the application entrypoint.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Cancelling running executions...", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	fxApp := fx.New(GetApplicationOptions(ctx, envFilePath, embeddedConfig)...)
	fxApp.Run()
	if fxApp.Err() != nil {
		logger.Fatalf("Application run failed: %v", fxApp.Err())
	}
	os.Exit(0)
}
