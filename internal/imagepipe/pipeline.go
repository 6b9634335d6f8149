// Package imagepipe turns a raw uploaded still image into sanitized,
// servable variants. Every step before the first write is a hard gate:
// magic-byte validation, then moderation. Moderation backend outages
// fail open (logged, treated as unflagged); a confirmed flag rejects the
// asset with the offending labels.
package imagepipe

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fathima-sithara/media-pipeline/internal/keygen"
	"github.com/fathima-sithara/media-pipeline/internal/media"
	"github.com/fathima-sithara/media-pipeline/internal/moderation"
	"github.com/fathima-sithara/media-pipeline/internal/storage"
)

// ModerationRejectedError carries the labels that met the confidence
// threshold; handlers surface them to the caller.
type ModerationRejectedError struct {
	Labels []moderation.Label
}

func (e *ModerationRejectedError) Error() string {
	names := make([]string, len(e.Labels))
	for i, l := range e.Labels {
		names[i] = l.Name
	}
	return fmt.Sprintf("image rejected by moderation: %s", strings.Join(names, ", "))
}

// ObjectStore is the slice of the object store the pipeline uses.
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key, contentType string, data []byte, opt storage.PutOptions) error
}

// RenditionSink records a rendition row once its bytes are in the store.
type RenditionSink interface {
	Insert(ctx context.Context, r *media.MediaRendition) error
}

type Config struct {
	MinConfidence   float32
	DerivativeWidth int
	ThumbSize       int
	JPEGQuality     int
	WebPQuality     float32
	MosaicBlockSize int
	MosaicMinBlocks int

	OutputBucket string
	OutputKMSKey string
	CacheControl string
}

type ProcessOptions struct {
	Mosaic        bool
	MosaicRegions []Region
}

type Pipeline struct {
	store      ObjectStore
	screener   moderation.Screener
	renditions RenditionSink
	cfg        Config
	log        *zap.SugaredLogger
}

func NewPipeline(store ObjectStore, screener moderation.Screener, renditions RenditionSink, cfg Config, log *zap.SugaredLogger) *Pipeline {
	return &Pipeline{store: store, screener: screener, renditions: renditions, cfg: cfg, log: log}
}

// Process fetches the asset's raw bytes, gates them, derives variants
// and uploads them concurrently. A rendition row is only written for a
// variant that both encoded and uploaded; steps 1-2 abort before any
// write happens.
func (p *Pipeline) Process(ctx context.Context, asset *media.MediaAsset, opts ProcessOptions) ([]media.MediaRendition, error) {
	raw, err := p.store.Get(ctx, asset.StorageBucket, asset.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("fetch asset bytes: %w", err)
	}

	if err := ValidateMagic(raw); err != nil {
		return nil, err
	}

	res, err := p.screener.DetectLabels(ctx, raw, p.cfg.MinConfidence)
	if err != nil {
		p.log.Warnw("moderation backend unavailable, continuing unflagged",
			"asset_id", asset.ID, "error", err)
		res = moderation.Result{}
	}
	if res.Flagged {
		return nil, &ModerationRejectedError{Labels: offendingLabels(res.Labels, p.cfg.MinConfidence)}
	}

	img, variants, err := Sanitize(raw, SanitizeOptions{
		DerivativeWidth: p.cfg.DerivativeWidth,
		ThumbSize:       p.cfg.ThumbSize,
		JPEGQuality:     p.cfg.JPEGQuality,
		WebPQuality:     p.cfg.WebPQuality,
	})
	if err != nil {
		return nil, err
	}

	if opts.Mosaic {
		var mosaic *image.NRGBA
		if len(opts.MosaicRegions) > 0 {
			mosaic = PixelateRegions(img, p.cfg.MosaicBlockSize, p.cfg.MosaicMinBlocks, opts.MosaicRegions)
		} else {
			mosaic = Pixelate(img, p.cfg.MosaicBlockSize, p.cfg.MosaicMinBlocks)
		}
		mosaicBytes, err := encodeWebP(mosaic, p.cfg.WebPQuality)
		if err != nil {
			return nil, err
		}
		thumb := MosaicThumb(mosaic, p.cfg.ThumbSize)
		thumbBytes, err := encodeWebP(thumb, p.cfg.WebPQuality)
		if err != nil {
			return nil, err
		}
		variants = append(variants,
			Variant{
				Kind: media.RenditionKindImageMosaic, Suffix: "mosaic", Ext: "webp",
				ContentType: "image/webp", Data: mosaicBytes,
				Width: mosaic.Bounds().Dx(), Height: mosaic.Bounds().Dy(),
			},
			Variant{
				Kind: media.RenditionKindImageMosaicThumb, Suffix: "mosaic_thumb", Ext: "webp",
				ContentType: "image/webp", Data: thumbBytes,
				Width: thumb.Bounds().Dx(), Height: thumb.Bounds().Dy(),
			},
		)
	}

	return p.upload(ctx, asset, variants)
}

// upload pushes all variants concurrently. Rows are inserted only for
// variants whose bytes landed; a partial failure still returns an error
// after recording the successes.
func (p *Pipeline) upload(ctx context.Context, asset *media.MediaAsset, variants []Variant) ([]media.MediaRendition, error) {
	var mu sync.Mutex
	uploaded := make([]media.MediaRendition, 0, len(variants))

	g, gctx := errgroup.WithContext(ctx)
	for _, v := range variants {
		v := v
		g.Go(func() error {
			key := keygen.VariantKey(asset.StorageKey, v.Suffix, v.Ext)
			err := p.store.Put(gctx, p.cfg.OutputBucket, key, v.ContentType, v.Data, storage.PutOptions{
				CacheControl: p.cfg.CacheControl,
				SSEKMSKeyID:  p.cfg.OutputKMSKey,
			})
			if err != nil {
				return fmt.Errorf("upload %s: %w", key, err)
			}
			w, h := v.Width, v.Height
			mu.Lock()
			uploaded = append(uploaded, media.MediaRendition{
				ID:         uuid.NewString(),
				AssetID:    asset.ID,
				Kind:       v.Kind,
				StorageKey: key,
				MimeType:   v.ContentType,
				Bytes:      int64(len(v.Data)),
				Width:      &w,
				Height:     &h,
				CreatedAt:  time.Now().UTC(),
			})
			mu.Unlock()
			return nil
		})
	}
	uploadErr := g.Wait()

	for i := range uploaded {
		if err := p.renditions.Insert(ctx, &uploaded[i]); err != nil {
			return nil, fmt.Errorf("record rendition %s: %w", uploaded[i].StorageKey, err)
		}
	}
	if uploadErr != nil {
		return uploaded, uploadErr
	}
	return uploaded, nil
}

func offendingLabels(labels []moderation.Label, minConfidence float32) []moderation.Label {
	var out []moderation.Label
	for _, l := range labels {
		if l.Confidence >= minConfidence {
			out = append(out, l)
		}
	}
	return out
}
