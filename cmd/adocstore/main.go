package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/adocstore/internal/config"
	"github.com/xxxsen/adocstore/internal/converter"
	"github.com/xxxsen/adocstore/internal/filestore"
	"github.com/xxxsen/adocstore/internal/handler"
	"github.com/xxxsen/adocstore/internal/job"
	"github.com/xxxsen/adocstore/internal/metrics"
	"github.com/xxxsen/adocstore/internal/middleware"
	"github.com/xxxsen/adocstore/internal/model"
	"github.com/xxxsen/adocstore/internal/pkg/timeutil"
	"github.com/xxxsen/adocstore/internal/schedule"
	"github.com/xxxsen/adocstore/internal/service"
	"github.com/xxxsen/adocstore/internal/tenant"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "adocstore",
		Short:        "multi-tenant AsciiDoc document store",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "run adocstore server",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				return runServer(cfg)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "apply database migrations and indexes",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				st, err := openStores(cmd.Context(), cfg.Database)
				if err != nil {
					return err
				}
				st.close()
				return nil
			},
		},
		newTenantCmd(&configPath),
		newExportCmd(&configPath),
		&cobra.Command{
			Use:   "audit",
			Short: "check that every document has its translation",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				st, err := openStores(cmd.Context(), cfg.Database)
				if err != nil {
					return err
				}
				defer st.close()
				return job.NewTranslationAuditJob(st.audit).Run(cmd.Context())
			},
		},
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logutil.GetLogger(context.Background()).Fatal("command failed", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

func newTenantCmd(configPath *string) *cobra.Command {
	var email, key string
	tenantCmd := &cobra.Command{
		Use:   "tenant",
		Short: "manage tenants",
	}
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "register a tenant and its api key",
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.TrimSpace(email)
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			st, err := openStores(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer st.close()
			if key == "" {
				key = uuid.NewString()
			}
			t := &model.Tenant{
				Email:      email,
				APIKeyHash: tenant.HashAPIKey(key),
				Ctime:      timeutil.NowUnix(),
			}
			if err := st.tenants.Create(cmd.Context(), t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tenant %d (%s) api key: %s\n", t.ID, t.Email, key)
			return nil
		},
	}
	addCmd.Flags().StringVar(&email, "email", "", "tenant email, shown as document owner")
	addCmd.Flags().StringVar(&key, "key", "", "api key, generated when empty")
	tenantCmd.AddCommand(addCmd)
	return tenantCmd
}

func newExportCmd(configPath *string) *cobra.Command {
	var email string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "write a tenant's rendered documents to the file store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--owner-email is required")
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			dates, err := timeutil.LoadDateFormat(cfg.DateLocation)
			if err != nil {
				return err
			}
			files, err := filestore.New(cfg.FileStore)
			if err != nil {
				return fmt.Errorf("init file store: %w", err)
			}
			st, err := openStores(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer st.close()
			owner, err := st.tenants.GetByEmail(cmd.Context(), email)
			if err != nil {
				return fmt.Errorf("find tenant %s: %w", email, err)
			}
			manifest, err := service.NewExportService(st.docs, files, dates).Export(cmd.Context(), owner.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d documents, manifest %s\n", len(manifest.Entries), manifest.Key)
			return nil
		},
	}
	exportCmd.Flags().StringVar(&email, "owner-email", "", "email of the tenant to export")
	return exportCmd
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := logutil.GetLogger(ctx)

	dates, err := timeutil.LoadDateFormat(cfg.DateLocation)
	if err != nil {
		return err
	}
	conv, err := converter.New(cfg.Converter.Backend, converter.Options{Attributes: cfg.Converter.Attributes})
	if err != nil {
		return err
	}
	st, err := openStores(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer st.close()

	resolver := tenant.WrapLruCache(
		tenant.NewStoreResolver(st.tenants),
		cfg.APIKeyCache.Size,
		time.Duration(cfg.APIKeyCache.TTLSeconds)*time.Second,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(reg)

	limiter, closeLimiter, err := newUploadLimiter(ctx, cfg.RateLimit)
	if err != nil {
		return err
	}
	defer closeLimiter()

	deps := handler.RouterDeps{
		Documents: handler.NewDocumentHandler(
			service.NewIngestService(st.docs, conv),
			service.NewRetrievalService(st.docs),
			dates,
			int64(cfg.MaxUploadMB)*1024*1024,
		),
		Resolver:      resolver,
		UploadLimiter: limiter,
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	if cfg.Audit.Cron != "" {
		sched := schedule.NewCronScheduler()
		audit := job.NewTranslationAuditJob(st.audit)
		if err := sched.AddJob(audit, cfg.Audit.Cron); err != nil {
			return fmt.Errorf("schedule audit: %w", err)
		}
		sched.Start(ctx)
		defer sched.Stop()
		go func() {
			_ = sched.RunNow(ctx, audit.Name())
		}()
	}

	logger.Info("http server listening",
		zap.String("addr", addr),
		zap.String("backend", conv.Backend()),
		zap.String("driver", cfg.Database.Driver),
	)
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("server stopping...")
	return nil
}

func newUploadLimiter(ctx context.Context, cfg config.RateLimitConfig) (gin.HandlerFunc, func(), error) {
	if cfg.WindowMs <= 0 {
		return nil, func() {}, nil
	}
	window := time.Duration(cfg.WindowMs) * time.Millisecond
	if cfg.RedisAddr == "" {
		return middleware.RateLimit(window, cfg.Limit), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}
	return middleware.RedisRateLimit(client, window, cfg.Limit), func() { _ = client.Close() }, nil
}
