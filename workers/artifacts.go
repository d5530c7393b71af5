package workers

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Uploader ships a diagnostic artifact to durable storage.
type Uploader interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) error
}

// ArtifactWorker sweeps the renderer's artifact directory and uploads debug
// screenshots, deleting local copies once shipped. Without it the artifact
// dir grows until the disk fills.
type ArtifactWorker struct {
	dir      string
	uploader Uploader
	trigger  chan struct{}
}

func NewArtifactWorker(dir string, uploader Uploader) *ArtifactWorker {
	return &ArtifactWorker{
		dir:      dir,
		uploader: uploader,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests an immediate sweep.
func (w *ArtifactWorker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

func (w *ArtifactWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Artifact worker stopping")
			return
		case <-ticker.C:
			w.sweep(ctx)
		case <-w.trigger:
			w.sweep(ctx)
		}
	}
}

func (w *ArtifactWorker) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Artifact worker: read dir: %v", err)
		}
		return
	}

	var shipped int
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".png" {
			continue
		}

		path := filepath.Join(w.dir, entry.Name())
		f, err := os.Open(path)
		if err != nil {
			log.Printf("Artifact worker: open %s: %v", path, err)
			continue
		}

		key := fmt.Sprintf("artifacts/%s/%s", time.Now().Format("2006-01-02"), entry.Name())
		err = w.uploader.Upload(ctx, key, f, "image/png")
		f.Close()
		if err != nil {
			log.Printf("Artifact worker: upload %s: %v", entry.Name(), err)
			continue
		}

		if err := os.Remove(path); err != nil {
			log.Printf("Artifact worker: remove %s: %v", path, err)
			continue
		}
		shipped++
	}

	if shipped > 0 {
		log.Printf("Artifact worker: shipped %d artifacts", shipped)
	}
}
