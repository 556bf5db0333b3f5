package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/lumoraenergy/lumora/internal/auth"
	"github.com/lumoraenergy/lumora/internal/calclog"
	"github.com/lumoraenergy/lumora/internal/config"
	"github.com/lumoraenergy/lumora/internal/leads"
	"github.com/lumoraenergy/lumora/internal/media"
	"github.com/lumoraenergy/lumora/internal/models"
	"github.com/lumoraenergy/lumora/internal/projection"
	"github.com/lumoraenergy/lumora/internal/projects"
	"github.com/lumoraenergy/lumora/internal/ratelimit"
	"github.com/lumoraenergy/lumora/internal/server"
	"github.com/lumoraenergy/lumora/internal/store"
	"github.com/lumoraenergy/lumora/pkg/constants"
	"github.com/lumoraenergy/lumora/pkg/format"
	"github.com/lumoraenergy/lumora/pkg/output"
	"github.com/lumoraenergy/lumora/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type globalOptions struct {
	configPath string
	logLevel   string
}

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// CLI override takes precedence
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	logFormat := loggingConfig.Format
	if logFormat == "" {
		logFormat = "json"
	}

	var zapConfig zap.Config
	switch logFormat {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
	case "json":
		zapConfig = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", logFormat)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		}
		_ = file.Close()

		zapConfig.OutputPaths = []string{loggingConfig.OutputFile}
		zapConfig.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zapConfig.Build()
}

// loadRuntime loads the configuration, builds the logger and reports any
// configuration warnings.
func loadRuntime(opts *globalOptions) (*config.Configuration, *zap.Logger, error) {
	conf, err := config.LoadConfiguration(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration at %s: %w", opts.configPath, err)
	}
	logger, err := initializeLogger(conf.Logging, opts.logLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning, zap.String("op", "main"))
	}
	return conf, logger, nil
}

// openDatabase connects and applies the schema.
func openDatabase(ctx context.Context, conf *config.Configuration) (*sql.DB, error) {
	if conf.Database.URL == "" {
		return nil, errors.New("database.url is not configured")
	}
	db, err := store.Open(ctx, conf.Database)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "lumora",
		Short:         "Solar savings calculator and lead capture service",
		Long:          "Sizes rooftop solar systems, projects 25-year savings and serves the public calculator, quote request and project showcase APIs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", constants.DefaultConfigFile, "path to configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(serveCmd(opts))
	root.AddCommand(calculateCmd(opts))
	root.AddCommand(migrateCmd(opts))
	root.AddCommand(adminCmd(opts))
	root.AddCommand(calculationsCmd(opts))
	root.AddCommand(versionCmd())
	return root
}

func serveCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := loadRuntime(opts)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, conf, logger)
		},
	}
}

func runServer(ctx context.Context, conf *config.Configuration, logger *zap.Logger) error {
	settings, err := server.NewSettings(conf.Server)
	if err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	deps := server.Dependencies{
		Logger:        logger,
		Version:       version,
		MaxUploadSize: settings.UploadSizeBytes,
	}

	var sink calclog.Sink
	if conf.Database.URL != "" {
		db, err := openDatabase(ctx, conf)
		if err != nil {
			return err
		}
		defer db.Close()

		calculations := store.NewCalculatorLogRepository(db)
		deps.Leads = leads.NewService(store.NewLeadRepository(db), logger)
		deps.Projects = projects.NewService(store.NewProjectRepository(db), logger)
		deps.Auth = auth.NewService(store.NewUserRepository(db), conf.Auth, logger)
		deps.Calculations = calculations
		deps.Health = db.PingContext
		if conf.Calculator.LogQueueSize > 0 {
			sink = calculations
		}
	}

	if conf.Storage.Endpoint != "" {
		client, err := media.NewClient(conf.Storage)
		if err != nil {
			return err
		}
		uploader := media.NewUploader(client, conf.Storage, settings.UploadSizeBytes, logger)
		if err := uploader.EnsureBucket(ctx); err != nil {
			logger.Warn("object storage unavailable; project image uploads are disabled",
				zap.String("op", "main.runServer"),
				zap.Error(err),
			)
		} else {
			deps.Images = uploader
		}
	}

	limiter, closeLimiter := ratelimit.New(ctx, conf.RateLimit, logger)
	defer func() {
		_ = closeLimiter()
	}()
	deps.Limiter = limiter

	recorder := calclog.NewRecorder(sink, logger, conf.Calculator.LogQueueSize, conf.Calculator.LogTimeout)
	deps.Recorder = recorder

	srv := &http.Server{
		Addr:              settings.Address,
		Handler:           server.NewHandler(deps),
		ReadTimeout:       settings.ReadTimeout,
		ReadHeaderTimeout: settings.ReadTimeout,
		WriteTimeout:      settings.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("op", "main.runServer"),
			zap.String("address", settings.Address),
			zap.String("version", version),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = recorder.Close(context.Background())
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down", zap.String("op", "main.runServer"))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.String("op", "main.runServer"), zap.Error(err))
	}
	if err := recorder.Close(shutdownCtx); err != nil {
		logger.Warn("calculator log queue not fully drained", zap.String("op", "main.runServer"), zap.Error(err))
	}
	return nil
}

func calculateCmd(opts *globalOptions) *cobra.Command {
	var (
		city         string
		bill         float64
		roof         string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Print a savings projection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.LoadConfiguration(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration at %s: %w", opts.configPath, err)
			}

			// CLI override takes precedence over config
			chosen := conf.Output.Format
			if outputFormat != "" {
				chosen = outputFormat
			}
			if chosen == "" {
				chosen = constants.OutputFormatPretty
			}
			if err := validation.ValidateOutputFormat(chosen); err != nil {
				return err
			}

			in, err := projection.ParseInput(city, bill, roof)
			if err != nil {
				return err
			}
			result, err := projection.Compute(in)
			if err != nil {
				return err
			}
			return output.Write(cmd.OutOrStdout(), chosen, result)
		},
	}
	cmd.Flags().StringVar(&city, "city", "", "installation city (Mumbai, Delhi, Bangalore, Chennai, Hyderabad, Kolkata)")
	cmd.Flags().Float64Var(&bill, "bill", 0, "average monthly electricity bill in rupees")
	cmd.Flags().StringVar(&roof, "roof", string(projection.Flat), "roof type (Flat, Sloped)")
	cmd.Flags().StringVar(&outputFormat, "output-format", "", "type of output override: pretty, csv, json, yaml")
	_ = cmd.MarkFlagRequired("city")
	_ = cmd.MarkFlagRequired("bill")
	return cmd
}

func migrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := loadRuntime(opts)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			db, err := openDatabase(cmd.Context(), conf)
			if err != nil {
				return err
			}
			defer db.Close()

			logger.Info("schema applied", zap.String("op", "main.migrate"))
			return nil
		},
	}
}

func adminCmd(opts *globalOptions) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}

	var email, password, name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := loadRuntime(opts)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			db, err := openDatabase(cmd.Context(), conf)
			if err != nil {
				return err
			}
			defer db.Close()

			svc := auth.NewService(store.NewUserRepository(db), conf.Auth, logger)
			user, err := svc.CreateAdmin(cmd.Context(), email, password, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "administrator email")
	create.Flags().StringVar(&password, "password", "", "administrator password")
	create.Flags().StringVar(&name, "name", "", "administrator full name")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	var promoteEmail string
	promote := &cobra.Command{
		Use:   "promote",
		Short: "Grant the admin role to an existing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := loadRuntime(opts)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			db, err := openDatabase(cmd.Context(), conf)
			if err != nil {
				return err
			}
			defer db.Close()

			users := store.NewUserRepository(db)
			user, err := users.GetByEmail(cmd.Context(), promoteEmail)
			if err != nil {
				return err
			}
			if err := users.UpdateRole(cmd.Context(), user.ID, models.RoleAdmin); err != nil {
				return err
			}
			user, err = users.GetByID(cmd.Context(), user.ID)
			if err != nil {
				return err
			}
			logger.Info("user promoted",
				zap.String("op", "main.promote"),
				zap.String("id", user.ID.String()),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Email, user.Role)
			return nil
		},
	}
	promote.Flags().StringVar(&promoteEmail, "email", "", "account email")
	_ = promote.MarkFlagRequired("email")

	admin.AddCommand(create, promote)
	return admin
}

func calculationsCmd(opts *globalOptions) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "calculations",
		Short: "List recent calculator runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := loadRuntime(opts)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			db, err := openDatabase(cmd.Context(), conf)
			if err != nil {
				return err
			}
			defer db.Close()

			repo := store.NewCalculatorLogRepository(db)
			total, err := repo.Count(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := repo.List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			printCalculations(cmd, entries, total)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of runs to skip")
	return cmd
}

func printCalculations(cmd *cobra.Command, entries []models.CalculatorLog, total int) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d calculator runs recorded\n", total)
	fmt.Fprintf(out, "%-20s | %-10s | %10s | %8s | %14s | %11s\n",
		"When", "City", "Bill", "System", "Annual savings", "Payback")
	for _, entry := range entries {
		fmt.Fprintf(out, "%-20s | %-10s | %10s | %8s | %14s | %11s\n",
			entry.CreatedAt.Format(time.DateTime),
			entry.City,
			format.Rupees(entry.MonthlyBill),
			format.Kilowatts(entry.SystemSizeKW),
			format.Rupees(entry.AnnualSavings),
			format.Years(entry.PaybackYears),
		)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lumora %s (commit %s, built %s)\n", version, commit, date)
			if info := buildInfo(); info != "" {
				fmt.Fprintln(cmd.OutOrStdout(), info)
			}
		},
	}
}

func buildInfo() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
		return bi.Main.Path + " " + bi.GoVersion
	}
	return ""
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"error\": %q}\n", err.Error())
		os.Exit(1)
	}
}
