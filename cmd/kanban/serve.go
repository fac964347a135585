package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/h0rv/kanban/internal/cache"
	"github.com/h0rv/kanban/internal/server"
	"github.com/h0rv/kanban/internal/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var (
	addrFlag  string
	dbFlag    string
	redisFlag string
	seedFlag  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the board persistence server",
	Long: `serve runs the REST API the editor saves to, backed by a SQLite file.

With --redis (or server.redis_addr) full board reads are cached in Redis.
--seed creates a demo board when the database is empty.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (default :5000)")
	serveCmd.Flags().StringVar(&dbFlag, "db", "", "SQLite database path (default kanban.db)")
	serveCmd.Flags().StringVar(&redisFlag, "redis", "", "Redis address for the board cache")
	serveCmd.Flags().BoolVar(&seedFlag, "seed", false, "create a demo board in an empty database")
}

func runServe(cmd *cobra.Command, _ []string) error {
	sc := cfg.Server
	flags := cmd.Flags()
	if flags.Changed("addr") {
		sc.Addr = addrFlag
	}
	if flags.Changed("db") {
		sc.DBPath = dbFlag
	}
	if flags.Changed("redis") {
		sc.RedisAddr = redisFlag
	}
	if flags.Changed("seed") {
		sc.Seed = seedFlag
	}

	log, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(sc.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if sc.Seed {
		board, created, err := db.Seed(ctx)
		if err != nil {
			return fmt.Errorf("seed database: %w", err)
		}
		if created {
			log.WithField("board", board.ID).Info("created demo board")
		}
	}

	rdb := connectRedis(ctx, sc.RedisAddr, log)
	if rdb != nil {
		defer rdb.Close()
	}
	repo := cache.New(db, rdb, sc.CacheTTL, log)

	accessLog := log.WriterLevel(logrus.InfoLevel)
	defer accessLog.Close()

	srv := server.New(repo, server.Options{
		AllowOrigins: sc.AllowOrigins,
		AccessLog:    accessLog,
	}, log)

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": sc.Addr, "db": sc.DBPath}).Info("server listening")
		errCh <- srv.Listen(sc.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if err := srv.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// connectRedis returns a client for addr, or nil if addr is empty or the
// server does not answer. The API works uncached without it.
func connectRedis(ctx context.Context, addr string, log logrus.FieldLogger) *redis.Client {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.WithError(err).WithField("redis", addr).Warn("redis unavailable, board cache disabled")
		_ = rdb.Close()
		return nil
	}
	log.WithField("redis", addr).Info("board cache enabled")
	return rdb
}
