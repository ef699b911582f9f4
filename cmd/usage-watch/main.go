package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"usage-watch/src/config"
	datasource "usage-watch/src/data_source"
	csvsource "usage-watch/src/data_source/csv"
	pb "usage-watch/src/grpc_control"
	"usage-watch/src/helpers"
	"usage-watch/src/interfaces"
	"usage-watch/src/logger"
	"usage-watch/src/models"
	"usage-watch/src/server"
	"usage-watch/src/utils"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// -----------------------------------------------------------------------------

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "usage-watch",
		Short:        "Detect anomalous utility consumption per customer",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/default.yaml", "path to config file")

	root.AddCommand(newServeCommand(), newDetectCommand(), newIngestCommand(), newProfilesCommand())
	return root
}

// -----------------------------------------------------------------------------

// loadApp loads config, builds the logger and the shared components.
func loadApp() (*app, error) {
	conf, err := config.NewConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	appLogger := logger.NewLogger(conf.MConfig, conf.Name)
	return setupApp(conf, appLogger)
}

func closeApp(a *app) {
	a.Close()
	_ = a.Logger.Sync()
	logger.CloseRotators()
}

// -----------------------------------------------------------------------------

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API servers and the scheduled detection loop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer closeApp(a)

			// Lifecycle Management
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// 1. Servers
			srv := server.NewAPIServer(a.Config.MConfig, a.Pipeline, logger.NewLogger(a.Config.MConfig, "APIServer"))
			a.Pipeline.SetExchanger(srv)
			controlService := pb.NewControlService(a.Pipeline, logger.NewLogger(a.Config.MConfig, "ControlService"))
			grpcServer := pb.NewServer(a.Config.MConfig, controlService, logger.NewLogger(a.Config.MConfig, "ControlServer"))

			// 2. Bootstrap
			if err := performInitialLoad(ctx, a.Pipeline, srv, a.Config.MConfig, a.Logger); err != nil {
				a.Logger.Warning("Bootstrap completed with warnings: %v", err)
			}

			// 3. Start Servers
			startServers(srv, grpcServer, a.Logger)
			defer stopServers(srv, grpcServer, a.Logger)

			// 4. Scheduled loop (blocking)
			if a.Config.Schedule.Enabled {
				scheduler := utils.NewBatchScheduler(a.Config.Schedule, logger.NewLogger(a.Config.MConfig, "BatchScheduler"))
				runScheduledLoop(ctx, scheduler, a.Pipeline, a.DB, a.Config.MConfig, a.Logger)
			} else {
				a.Logger.Info("Scheduling disabled; runs are triggered via API")
				<-ctx.Done()
			}

			a.Logger.Info("Shutdown complete.")
			return nil
		},
	}
}

// -----------------------------------------------------------------------------

func newDetectCommand() *cobra.Command {
	var customer, utility, from, to string

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run detection once over stored readings and print the records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			query, err := helpers.ParseReadingQuery(customer, utility, from, to)
			if err != nil {
				return err
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			defer closeApp(a)

			if err := a.Pipeline.LoadProfiles(cmd.Context()); err != nil {
				return err
			}
			result, runErr := a.Pipeline.Run(cmd.Context(), query)
			if err := printJSON(cmd, map[string]interface{}{
				"summary": result.Summary,
				"records": result.Records,
			}); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&customer, "customer", "", "only this customer id")
	cmd.Flags().StringVar(&utility, "utility", "", "only this utility (electric, water, gas)")
	cmd.Flags().StringVar(&from, "from", "", "earliest period start, YYYY-MM-DD or YYYY-MM")
	cmd.Flags().StringVar(&to, "to", "", "latest period start (exclusive), YYYY-MM-DD or YYYY-MM")
	return cmd
}

// -----------------------------------------------------------------------------

func newIngestCommand() *cobra.Command {
	var runAfter bool

	cmd := &cobra.Command{
		Use:   "ingest FILE.csv [FILE.csv...]",
		Short: "Load readings from CSV files into the store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer closeApp(a)

			sources := make([]interfaces.IReadingSource, 0, len(args))
			for _, path := range args {
				sources = append(sources, csvsource.NewCSVSource(path, logger.NewLogger(a.Config.MConfig, "CSVSource")))
			}
			multi := datasource.NewMultiSourceManager(sources, logger.NewLogger(a.Config.MConfig, "MultiSourceManager"))

			n, rowErrs, err := a.Pipeline.Ingest(cmd.Context(), multi)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ingested %d readings, rejected %d rows\n", n, len(rowErrs))

			if !runAfter {
				return nil
			}
			if err := a.Pipeline.LoadProfiles(cmd.Context()); err != nil {
				return err
			}
			summary, err := a.Pipeline.TriggerRun(cmd.Context(), models.MReadingQuery{From: lookbackStart(a.Config.MConfig, time.Now().UTC())})
			if printErr := printJSON(cmd, summary); printErr != nil {
				return printErr
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&runAfter, "run", false, "run detection after ingesting")
	return cmd
}

// -----------------------------------------------------------------------------

func newProfilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles CUSTOMER_ID",
		Short: "Print the stored baselines of a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer closeApp(a)

			if err := a.Pipeline.LoadProfiles(cmd.Context()); err != nil {
				return err
			}
			profiles := a.Pipeline.Profiles(args[0])
			if len(profiles) == 0 {
				return fmt.Errorf("no profiles for customer %s", args[0])
			}
			return printJSON(cmd, profiles)
		},
	}
}

// -----------------------------------------------------------------------------

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
