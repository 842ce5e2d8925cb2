// Package render rasterizes PDF pages to PNG images and persists them to
// blob storage for later vision analysis.
package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/JaimeStill/document-context/pkg/config"
	"github.com/JaimeStill/document-context/pkg/document"
	"github.com/JaimeStill/document-context/pkg/image"
	"golang.org/x/sync/errgroup"

	"github.com/lectern-labs/lectern/pkg/storage"
)

// PageKey returns the blob key for a rendered page image. Pages are
// one-based and zero-padded so keys sort in page order.
func PageKey(hash string, page int) string {
	return fmt.Sprintf("papers/%s/pages/page-%03d.png", hash, page)
}

// System renders PDF pages to stored PNG images.
type System interface {
	// Pages renders every page of the PDF at path and uploads each image
	// under the paper's content hash. Returns the page count.
	Pages(ctx context.Context, pdfPath, hash string) (int, error)
}

type renderer struct {
	storage storage.System
	logger  *slog.Logger
}

// New creates a rendering system backed by ImageMagick.
func New(store storage.System, logger *slog.Logger) System {
	return &renderer{
		storage: store,
		logger:  logger.With("system", "render"),
	}
}

func (r *renderer) Pages(ctx context.Context, pdfPath, hash string) (int, error) {
	pdfDoc, err := document.OpenPDF(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer pdfDoc.Close()

	magick, err := image.NewImageMagickRenderer(config.DefaultImageConfig())
	if err != nil {
		return 0, fmt.Errorf("create renderer: %w", err)
	}

	pages, err := pdfDoc.ExtractAllPages()
	if err != nil {
		return 0, fmt.Errorf("extract pages: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(min(runtime.NumCPU(), len(pages)), 1))

	for i, page := range pages {
		number := i + 1

		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			data, err := page.ToImage(magick, nil)
			if err != nil {
				return fmt.Errorf("render page %d: %w", number, err)
			}

			key := PageKey(hash, number)
			if err := r.storage.Upload(gctx, key, bytes.NewReader(data), "image/png"); err != nil {
				return fmt.Errorf("upload page %d: %w", number, err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	r.logger.Info("pages rendered", "hash", hash, "pages", len(pages))
	return len(pages), nil
}
