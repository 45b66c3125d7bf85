// Package main is the entry point for the terrasync editing server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/terrasync/internal/config"
	"github.com/Faultbox/terrasync/internal/control"
	"github.com/Faultbox/terrasync/internal/logger"
	"github.com/Faultbox/terrasync/internal/preview"
	"github.com/Faultbox/terrasync/internal/stream"
	"github.com/Faultbox/terrasync/internal/terrain"
	"github.com/Faultbox/terrasync/pkg/formats"
	"github.com/Faultbox/terrasync/pkg/grf"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if path, err := cfg.WriteRequested(); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	} else if path != "" {
		fmt.Printf("Wrote config to %s\n", path)
		return
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Info("=== terrasync ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("terrasync stopped with error", zap.Error(err))
		logger.Close()
		os.Exit(1)
	}
	logger.Info("terrasync closed normally")
}

func run(ctx context.Context, cfg *config.Config) error {
	rows, cols := cfg.Session.Rows, cfg.Session.Cols
	var initial []float64
	if cfg.Session.GNDPath != "" {
		hm, err := loadHeightmap(cfg.Session.GRFPath, cfg.Session.GNDPath)
		if err != nil {
			return fmt.Errorf("importing %s: %w", cfg.Session.GNDPath, err)
		}
		rows, cols, initial = hm.Rows, hm.Cols, hm.Samples
		if hm.Spacing > 0 {
			cfg.Mesh.Spacing = hm.Spacing
		}
		lo, hi := hm.Range()
		logger.Info("heightmap loaded",
			zap.String("path", cfg.Session.GNDPath),
			zap.String("archive", cfg.Session.GRFPath),
			zap.String("format", hm.Format),
			zap.Int("rows", rows),
			zap.Int("cols", cols),
			zap.Float32("spacing", cfg.Mesh.Spacing),
			zap.Float64("height_min", lo),
			zap.Float64("height_max", hi))
	}

	registry := control.NewRegistry(cfg.Control(), logger.Named("control"))
	defer registry.CloseAll()

	sess, err := registry.Open(rows, cols, initial)
	if err != nil {
		return fmt.Errorf("opening session: %w", err)
	}

	surface, stopPreview, err := startPreview(sess, cfg)
	if err != nil {
		return err
	}
	defer stopPreview()

	cancelStats := sess.OnPatchesReady(func(set control.PatchSet) {
		vertices := 0
		for _, p := range set.Patches {
			vertices += len(p.Vertices)
		}
		logger.Debug("patch set ready",
			zap.Uint64("generation", set.Generation),
			zap.Int("patches", len(set.Patches)),
			zap.Int("failed", len(set.Failed)),
			zap.Int("vertices", vertices),
			zap.Uint64("preview_generation", surface.Generation()))
	})
	defer cancelStats()

	if cfg.Server.Addr == "" {
		logger.Info("websocket listener disabled", zap.String("session", sess.ID()))
		<-ctx.Done()
		return nil
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           stream.NewServer(registry, logger.Named("stream")).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("session", sess.ID()),
		zap.String("ws", "/sessions/"+sess.ID()+"/ws"))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	return nil
}

// loadHeightmap reads name from disk, or from the archive when archivePath
// is set, and decodes it.
func loadHeightmap(archivePath, name string) (*formats.Heightmap, error) {
	var data []byte
	if archivePath == "" {
		var err error
		if data, err = os.ReadFile(name); err != nil {
			return nil, err
		}
	} else {
		archive, err := grf.Open(archivePath)
		if err != nil {
			return nil, err
		}
		defer archive.Close()
		if data, err = archive.Read(name); err != nil {
			return nil, err
		}
		logger.Debug("read from archive",
			zap.String("archive", archivePath),
			zap.Int("entries", len(archive.List())),
			zap.Int("bytes", len(data)))
	}
	return formats.DecodeHeightmap(name, data)
}

// startPreview meshes the whole field once and keeps a preview surface in
// sync with the session's patch sets until the returned cancel is called.
func startPreview(sess *control.Session, cfg *config.Config) (*preview.Surface, func(), error) {
	field := sess.Field()
	surface, err := preview.NewSurface(field.Rows(), field.Cols())
	if err != nil {
		return nil, nil, fmt.Errorf("creating preview: %w", err)
	}

	mesher := terrain.NewMesher(cfg.Mesh.Spacing, cfg.Mesh.HeightScale, cfg.Mesh.StrictBounds, logger.Named("preview"))
	start := time.Now()
	full, err := mesher.Mesh(field, field.Bounds())
	if err != nil {
		return nil, nil, fmt.Errorf("meshing initial field: %w", err)
	}
	if err := surface.Load(full); err != nil {
		return nil, nil, err
	}
	logger.Info("initial mesh built",
		zap.Int("vertices", len(full.Vertices)),
		zap.Int("triangles", len(full.Indices)/3),
		zap.Duration("took", time.Since(start)))

	ctx, stopFollow := context.WithCancel(context.Background())
	sets, unsubscribe := sess.Subscribe()
	go surface.Follow(ctx, sets, func(err error) {
		logger.Warn("preview rejected patch set", zap.Error(err))
	})
	return surface, func() {
		unsubscribe()
		stopFollow()
	}, nil
}
