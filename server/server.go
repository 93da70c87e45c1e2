package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Melodix/cache"
	"Melodix/config"
	"Melodix/core/auth"
	"Melodix/core/library"
	"Melodix/core/search"
	"Melodix/db"
	"Melodix/logger"
	"Melodix/repository"
	"Melodix/storage"
)

// Start wires every dependency, serves HTTP and blocks until SIGINT/SIGTERM.
func Start(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}

	gdb, err := db.ConnectGormDB(cfg)
	if err != nil {
		return err
	}
	defer db.CloseGormDB(gdb)
	if err := db.AutoMigrate(gdb); err != nil {
		return err
	}

	rdb, err := db.ConnectRedis(cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	// 曲库来源，minio 模式下才需要连接对象存储
	var reader library.ObjectReader
	if cfg.LibrarySource == config.LibrarySourceMinio {
		mc, err := storage.NewMinioClient(cfg)
		if err != nil {
			return err
		}
		reader = mc
	}
	src, err := library.NewSource(cfg, reader)
	if err != nil {
		return err
	}
	logger.Info("[Server] 曲库来源", logger.String("source", src.Describe()))

	provider := search.Bootstrap(ctx, src)
	go func() {
		select {
		case <-provider.Ready():
			logger.Info("[Server] 搜索索引初始化完成", logger.Bool("available", provider.Current() != nil))
		case <-ctx.Done():
		}
	}()

	hub := NewEventHub()
	go hub.Run()
	defer hub.Stop()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	handler := NewAPIHandler(
		cfg,
		repository.NewGormUserRepository(gdb),
		cache.NewSessionStore(rdb, tokens.RefreshTTL()),
		tokens,
		provider,
		hub,
	)

	if cfg.LibraryWatch {
		if fs, ok := src.(library.FileSource); ok {
			watcher, err := library.NewWatcher(fs.Path, 0, func(ctx context.Context) {
				handler.Reindex(ctx, src)
			})
			if err != nil {
				logger.Warn("[Server] 无法监听曲库文件，自动重建已关闭", logger.ErrorField(err))
			} else {
				defer watcher.Close()
				go watcher.Run(ctx)
			}
		}
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      NewRouter(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("[Server] HTTP 服务启动", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("[Server] 正在关闭服务...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("[Server] 服务已停止")
	return nil
}
