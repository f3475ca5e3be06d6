// Command arpreview runs the AR layer against the simulated tracking
// session in a desktop window. Click to select a plane, arrow keys walk
// the camera, A anchors onto the selected plane, Space reserves the
// selection anchor and P writes a top-down snapshot.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/banshee-data/arlayer/internal/ar/frame"
	"github.com/banshee-data/arlayer/internal/ar/journal"
	"github.com/banshee-data/arlayer/internal/ar/simsession"
	"github.com/banshee-data/arlayer/internal/config"
	"github.com/banshee-data/arlayer/internal/render"
	"github.com/banshee-data/arlayer/internal/version"
)

func main() {
	var configPath string
	var journalPath string
	var plotPath string

	flag.StringVar(&configPath, "config", "", "path to JSON config (defaults to "+config.DefaultConfigPath+" when present)")
	flag.StringVar(&journalPath, "journal", "", "sqlite journal path (overrides journal_path)")
	flag.StringVar(&plotPath, "plot", "ar_snapshot.png", "snapshot image written on P and on exit")
	flag.Parse()

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if journalPath == "" {
		journalPath = cfg.GetJournalPath()
	}

	opts, err := frame.OptionsFromConfig(cfg)
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	var rec *journal.Recorder
	if journalPath != "" {
		store, err := journal.Open(journalPath)
		if err != nil {
			log.Fatalf("open journal: %v", err)
		}
		defer store.Close()
		rec = journal.NewRecorder(store, "")
		opts.TrackableObserver = rec
		opts.AnchorObserver = rec
		log.Printf("journaling session %s to %s", rec.SessionID(), journalPath)
	}

	width, height := cfg.GetPreviewWidth(), cfg.GetPreviewHeight()
	sim := simsession.New(
		simsession.WithViewport(width, height),
		simsession.WithFieldOfView(float32(cfg.GetPreviewFovDeg())),
	)
	scene := simsession.DemoScene(sim)

	r := render.NewSoftware(width, height)
	d, err := frame.NewDriver(r, sim, render.CameraBackgroundFactory(render.NewCameraBackground(1)), opts)
	if err != nil {
		log.Fatalf("create driver: %v", err)
	}
	if rec != nil {
		rec.Generation = d.Registry().Generation
	}
	if err := d.Init(nil); err != nil {
		log.Fatalf("init: %v", err)
	}

	g := newGame(context.Background(), d, r, sim, scene, plotPath)
	ebiten.SetWindowTitle("arpreview (" + version.Short() + ")")
	ebiten.SetWindowSize(width, height)
	ebiten.SetTPS(60)
	if err := ebiten.RunGame(g); err != nil && err != ebiten.Termination {
		log.Fatalf("preview: %v", err)
	}
	g.saveSnapshot()
}

// loadConfig loads path, or the default config file when it exists, or
// the built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadConfig(path)
	}
	if _, err := os.Stat(config.DefaultConfigPath); err == nil {
		return config.LoadConfig(config.DefaultConfigPath)
	}
	return config.DefaultConfig(), nil
}
