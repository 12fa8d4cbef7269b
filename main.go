package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Ramsey-B/fern/config"
	documentrepo "github.com/Ramsey-B/fern/internal/repositories/document"
	matchreviewrepo "github.com/Ramsey-B/fern/internal/repositories/matchreview"
	propertyrecordrepo "github.com/Ramsey-B/fern/internal/repositories/propertyrecord"
	"github.com/Ramsey-B/fern/pkg/classifier"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/extractor"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/logging"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/ocr"
	"github.com/Ramsey-B/fern/pkg/processor"
	documentroutes "github.com/Ramsey-B/fern/pkg/routes/document"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	matchreviewroutes "github.com/Ramsey-B/fern/pkg/routes/matchreview"
	registryroutes "github.com/Ramsey-B/fern/pkg/routes/registry"
	rulesroutes "github.com/Ramsey-B/fern/pkg/routes/rules"
	trainingroutes "github.com/Ramsey-B/fern/pkg/routes/training"
	"github.com/Ramsey-B/fern/pkg/ruleset"
	"github.com/Ramsey-B/fern/pkg/startup"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/tracing/exporters"
)

var version = "dev"

func main() {
	fileFlag := flag.String("f", "", "process a single file and exit")
	dirFlag := flag.String("d", "", "process every file in a directory and exit")
	trainFlag := flag.Bool("train", false, "retrain the model if the sample pool is large enough")
	forceTrainFlag := flag.Bool("force-train", false, "retrain the model regardless of pool size")
	incrementalFlag := flag.Bool("incremental-train", false, "retrain reusing the current feature transform")
	verifyFlag := flag.String("verify", "", "assign a verified type to a document, format id:type")
	tenantFlag := flag.String("tenant", "default", "tenant for command line operations")
	flag.Parse()

	_ = godotenv.Load()

	cfg := &config.Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, flush := logging.New(cfg.AppName, cfg.LogLevel, cfg.PrettyLogs)
	defer flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := setupTracing(ctx, cfg)
		if err != nil {
			logger.WithError(err).Warn("Tracing disabled, exporter setup failed")
		} else {
			defer shutdown(context.Background())
		}
	}

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize")
	}
	defer app.Close(ctx)

	cliMode := *fileFlag != "" || *dirFlag != "" || *trainFlag || *forceTrainFlag || *incrementalFlag || *verifyFlag != ""
	if cliMode {
		if err := runCLI(ctx, app, cliOptions{
			file:        *fileFlag,
			dir:         *dirFlag,
			train:       *trainFlag,
			forceTrain:  *forceTrainFlag,
			incremental: *incrementalFlag,
			verify:      *verifyFlag,
			tenant:      *tenantFlag,
		}); err != nil {
			logger.WithError(err).Error("Command failed")
			os.Exit(1)
		}
		return
	}

	runServer(ctx, cancel, app)
}

// app holds the wired service graph
type app struct {
	cfg        *config.Config
	logger     ectologger.Logger
	db         database.DB
	classifier *classifier.HybridClassifier
	extractor  *extractor.Extractor
	matcher    *matching.Matcher
	docRepo    *documentrepo.Repository
	propRepo   *propertyrecordrepo.Repository
	reviewRepo *matchreviewrepo.Repository
	producer   *kafka.Producer
	emitter    *events.Emitter
	graph      *graph.Client
	links      *graph.LinkService
	processor  *processor.Processor
}

func buildApp(ctx context.Context, cfg *config.Config, logger ectologger.Logger) (*app, error) {
	db, err := database.Connect(ctx, database.ConnectConfig{
		Driver:          cfg.DatabaseDriver,
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		User:            cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.MigrateDB(cfg.DatabaseName, db); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	rules := ruleset.Load(cfg.RulesPath, logger)
	samples := classifier.NewSampleStore(cfg.ModelDir, logger)
	modelStore := classifier.NewModelStore(cfg.ModelDir, logger)
	hybrid := classifier.New(rules, samples, modelStore, classifier.Config{
		SampleScoreThreshold:     cfg.SampleScoreThreshold,
		ModelConfidenceThreshold: cfg.ModelConfidenceThreshold,
	}, logger)

	extract := extractor.New()

	matcher := matching.NewMatcher(matching.Config{
		SimilarityThreshold: cfg.SimilarityThreshold,
		TopN:                cfg.MatchTopN,
	}, logger)
	if cfg.RegistryPath != "" {
		records, err := matching.LoadRegistryFile(cfg.RegistryPath)
		if err != nil {
			logger.WithError(err).WithField("path", cfg.RegistryPath).Warn("Registry load failed, matching disabled until reload")
		} else {
			matcher.LoadRecords(records)
		}
	}

	docRepo := documentrepo.NewRepository(db, logger)
	propRepo := propertyrecordrepo.NewRepository(db, logger)
	reviewRepo := matchreviewrepo.NewRepository(db, logger)

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)
	emitter := events.NewEmitter(producer, logger)

	a := &app{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		classifier: hybrid,
		extractor:  extract,
		matcher:    matcher,
		docRepo:    docRepo,
		propRepo:   propRepo,
		reviewRepo: reviewRepo,
		producer:   producer,
		emitter:    emitter,
	}

	if cfg.GraphEnabled {
		client, err := graph.NewClient(graph.Config{
			Host:     cfg.GraphDBHost,
			Port:     cfg.GraphDBPort,
			Username: cfg.GraphDBUser,
			Password: cfg.GraphDBPassword,
		}, logger)
		if err != nil {
			return nil, err
		}
		a.graph = client
		a.links = graph.NewLinkService(client, logger)
	}

	recognizer := ocr.NewClient(ocr.Config{
		BaseURL: cfg.OCRBaseURL,
		Timeout: cfg.OCRRequestTimeout,
	}, logger)

	a.processor = processor.NewProcessor(
		logger, hybrid, extract, matcher, docRepo, reviewRepo, emitter, a.links, recognizer,
		processor.Config{
			AutoTrain:             cfg.AutoTrain,
			MinSamplesForTraining: cfg.MinSamplesForTraining,
		},
	)

	return a, nil
}

func (a *app) Close(ctx context.Context) {
	if a.producer != nil {
		_ = a.producer.Close()
	}
	if a.graph != nil {
		_ = a.graph.Close(ctx)
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

type cliOptions struct {
	file        string
	dir         string
	train       bool
	forceTrain  bool
	incremental bool
	verify      string
	tenant      string
}

func runCLI(ctx context.Context, a *app, opts cliOptions) error {
	switch {
	case opts.verify != "":
		parts := strings.SplitN(opts.verify, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("verify expects id:type, got %q", opts.verify)
		}
		return verifyDocument(ctx, a, opts.tenant, parts[0], parts[1])

	case opts.train || opts.forceTrain || opts.incremental:
		if opts.train && !opts.forceTrain {
			count, err := a.classifier.SampleCount()
			if err != nil {
				return err
			}
			if count < a.cfg.MinSamplesForTraining {
				return fmt.Errorf("sample pool has %d samples, need %d (use -force-train)", count, a.cfg.MinSamplesForTraining)
			}
		}
		result, err := a.classifier.Train(ctx, opts.incremental)
		if err != nil {
			return err
		}
		printJSON(result)
		return nil

	case opts.file != "":
		return processFile(ctx, a, opts.tenant, opts.file)

	case opts.dir != "":
		entries, err := os.ReadDir(opts.dir)
		if err != nil {
			return err
		}
		var failed int
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(opts.dir, entry.Name())
			if err := processFile(ctx, a, opts.tenant, path); err != nil {
				a.logger.WithError(err).WithField("file", path).Error("Failed to process file")
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d file(s) failed", failed)
		}
		return nil
	}

	return nil
}

func processFile(ctx context.Context, a *app, tenant string, path string) error {
	result, err := a.processor.ProcessSubmission(ctx, &models.DocumentSubmission{
		TenantID: tenant,
		FileName: filepath.Base(path),
		FilePath: path,
	})
	if err != nil {
		return err
	}
	printJSON(result)
	return nil
}

func verifyDocument(ctx context.Context, a *app, tenant string, id string, docType string) error {
	doc, err := a.docRepo.GetByID(ctx, tenant, id)
	if err != nil {
		return err
	}

	result := a.classifier.Classify(ctx, doc.Content, classifier.ClassifyOptions{
		IsVerified:    true,
		VerifiedLabel: docType,
	})
	if err := a.docRepo.UpdateClassification(ctx, tenant, id, result.DocType, result.Confidence, result.Method); err != nil {
		return err
	}

	printJSON(result)
	return nil
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func runServer(ctx context.Context, cancel context.CancelFunc, a *app) {
	cfg := a.cfg
	logger := a.logger

	if err := registerServices(a); err != nil {
		logger.WithError(err).Fatal("Failed to register services")
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.HTTPErrorHandler = middleware.Error(logger)

	api := e.Group("/api/v1")
	documentroutes.Register(api.Group("/documents"))
	matchreviewroutes.Register(api.Group("/match-reviews"))
	trainingroutes.Register(api.Group("/training"))
	rulesroutes.Register(api.Group("/rules"))
	registryroutes.Register(api.Group("/registry"))

	checker := health.NewChecker(a.db.Unsafe(), version)
	if a.graph != nil {
		checker.AddCheck("graph", func() error {
			checkCtx, checkCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer checkCancel()
			return a.graph.VerifyConnectivity(checkCtx)
		})
	}
	checker.AddCheck("registry", func() error {
		if !a.matcher.RegistryLoaded() {
			return fmt.Errorf("registry not loaded")
		}
		return nil
	})
	checker.RegisterRoutes(e)

	boot := startup.New(logger, cfg.StartupMaxAttempts)
	if cfg.KafkaConsumerEnabled {
		consumer := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaInputTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}, logger, func(ctx context.Context, msg *kafka.IncomingMessage) error {
			sub := msg.Submission
			if sub.TenantID == "" {
				sub.TenantID = msg.GetTenantID()
			}
			_, err := a.processor.ProcessSubmission(ctx, sub)
			return err
		})
		boot.AddDependency(consumer)
		checker.AddCheck("kafka", func() error {
			if !consumer.Health() {
				return fmt.Errorf("consumer not running")
			}
			return nil
		})
	}
	boot.AddDependency(&httpDependency{e: e, port: cfg.Port, logger: logger})

	go func() {
		if err := boot.Start(ctx); err != nil {
			logger.WithError(err).Error("Startup failed")
			cancel()
			return
		}
		checker.SetReady(true)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	checker.SetReady(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown failed")
	}
}

func registerServices(a *app) error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}

	if err := ectoinject.RegisterInstance[ectologger.Logger](container, a.logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*config.Config](container, a.cfg); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*documentrepo.Repository](container, a.docRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*propertyrecordrepo.Repository](container, a.propRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*matchreviewrepo.Repository](container, a.reviewRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*classifier.HybridClassifier](container, a.classifier); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*extractor.Extractor](container, a.extractor); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*matching.Matcher](container, a.matcher); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*processor.Processor](container, a.processor); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*events.Emitter](container, a.emitter); err != nil {
		return err
	}
	if a.links != nil {
		if err := ectoinject.RegisterInstance[*graph.LinkService](container, a.links); err != nil {
			return err
		}
	}

	return nil
}

// httpDependency runs the echo server under the startup manager
type httpDependency struct {
	e      *echo.Echo
	port   int
	logger ectologger.Logger
}

func (h *httpDependency) GetName() string     { return "http" }
func (h *httpDependency) DependsOn() []string { return nil }

func (h *httpDependency) Start(ctx context.Context) error {
	go func() {
		if err := h.e.Start(fmt.Sprintf(":%d", h.port)); err != nil && err != http.ErrServerClosed {
			h.logger.WithError(err).Error("HTTP server stopped")
		}
	}()
	return nil
}

func (h *httpDependency) Stop(ctx context.Context) error {
	return h.e.Shutdown(ctx)
}

func setupTracing(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
		Endpoint: cfg.OTLPEndpoint,
		Insecure: true,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.AppName),
	))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))

	return tp.Shutdown, nil
}
