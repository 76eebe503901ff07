package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ayusman/asana/internal/app"
	"github.com/ayusman/asana/internal/config"
	"github.com/ayusman/asana/internal/detector"
	"github.com/ayusman/asana/internal/server"
	"github.com/ayusman/asana/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to asana.yaml (defaults are used when empty)")
	addr := flag.String("addr", "", "listen address, overrides server.addr")
	flag.Parse()

	fmt.Println("Asana - Yoga Pose Checker")

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	// Initialize the store
	var st *store.Store
	if !cfg.Store.Disabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}

		var err error
		st, err = store.New(cfg.Store.Path)
		if err != nil {
			log.Fatalf("Failed to initialize store: %v", err)
		}
		defer st.Close()
	}

	application, err := app.New(app.Config{
		Store:           st,
		DatasetDir:      cfg.Dataset.Dir,
		Manifest:        cfg.Dataset.Manifest,
		CacheReferences: cfg.Dataset.Cache,
		MockDetector:    cfg.Detector.Mock,
		Detector: detector.Config{
			ModelComplexity: cfg.Detector.ModelComplexity,
			MinConfidence:   cfg.Detector.MinConfidence,
			MinTrackingConf: cfg.Detector.MinTrackingConf,
			StaticImageMode: cfg.Detector.StaticImageMode,
			ScriptPath:      cfg.Detector.ScriptPath,
			PythonPath:      cfg.Detector.PythonPath,
			IdleTimeout:     cfg.Detector.IdleTimeout,
		},
	})
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}
	defer application.Close()

	// Find web directory
	webDir := cfg.Server.StaticDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}
	fmt.Printf("Reading reference poses from: %s\n", cfg.Dataset.Dir)

	// Configure and start server
	srv := server.New(server.Config{
		StaticDir:      webDir,
		Store:          st,
		Checker:        application,
		UploadDir:      cfg.Server.UploadDir,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
	})
	application.OnVerdict(srv.Verdicts().Broadcast)

	fmt.Printf("Starting server on %s\n", cfg.Server.Addr)
	if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.asana/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeWebDir := filepath.Join(config.HomeDir(), "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
