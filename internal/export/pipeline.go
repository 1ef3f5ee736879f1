package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"path"

	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/domain"
)

// Progress boundaries of the phased exports.
const (
	sequenceRenderEnd = 50
	gridRenderEnd     = 70
	encodeDone        = 90
)

// Pipeline renders canvases and produces export outputs.
type Pipeline struct {
	renderer Renderer
	encoder  SequenceEncoder
	sink     OutputSink
	logger   *slog.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(renderer Renderer, encoder SequenceEncoder, sink OutputSink, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		renderer: renderer,
		encoder:  encoder,
		sink:     sink,
		logger:   logger.With("component", "export_pipeline"),
	}
}

// Export renders canvases in order and produces outputs according to req.
// Progress events are sent on progress when it is not nil; the channel is
// not closed by Export.
func (p *Pipeline) Export(
	ctx context.Context,
	id uuid.UUID,
	req Request,
	canvases []*domain.Canvas,
	progress chan<- Progress,
) (*Result, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(canvases) == 0 {
		return nil, ErrNoCanvases
	}

	log := p.logger.With("export_id", id, "export_type", req.Type)
	emit := func(phase Phase, percent int, msg string) {
		if progress == nil {
			return
		}
		select {
		case progress <- Progress{Phase: phase, Percent: percent, Message: msg}:
		case <-ctx.Done():
		}
	}

	emit(PhasePreparing, 0, fmt.Sprintf("preparing %d slides", len(canvases)))

	result := &Result{
		ID: id,
		Metadata: Metadata{
			Type:       req.Type,
			Format:     req.Format,
			Quality:    req.Quality,
			SlideCount: len(canvases),
		},
	}

	var err error
	switch req.Type {
	case TypeIndividual:
		err = p.exportIndividual(ctx, id, req, canvases, result, emit)
	case TypeSequence:
		err = p.exportSequence(ctx, id, req, canvases, result, emit)
	case TypeGrid:
		err = p.exportGrid(ctx, id, req, canvases, result, emit)
	}
	if err != nil {
		log.WarnContext(ctx, "export failed", "error", err)
		return nil, err
	}

	for i, out := range result.Outputs {
		if i == 0 || out.ExpiresAt.Before(result.Metadata.ExpiresAt) {
			result.Metadata.ExpiresAt = out.ExpiresAt
		}
	}

	emit(PhaseComplete, 100, "export complete")
	log.InfoContext(ctx, "export complete", "outputs", len(result.Outputs))
	return result, nil
}

type emitFunc func(phase Phase, percent int, msg string)

// exportIndividual renders and encodes every slide (0-90%, linear per
// slide), then uploads them one by one while finalizing.
func (p *Pipeline) exportIndividual(
	ctx context.Context,
	id uuid.UUID,
	req Request,
	canvases []*domain.Canvas,
	result *Result,
	emit emitFunc,
) error {
	type encoded struct {
		img  image.Image
		data []byte
	}

	n := len(canvases)
	slides := make([]encoded, 0, n)
	for i, c := range canvases {
		img, err := p.renderer.Render(ctx, c, req.Quality.Scale())
		if err != nil {
			return fmt.Errorf("render slide %d: %w", i+1, err)
		}
		data, err := encodeStill(img, req)
		if err != nil {
			return fmt.Errorf("encode slide %d: %w", i+1, err)
		}
		slides = append(slides, encoded{img: img, data: data})
		emit(PhaseRendering, (i+1)*encodeDone/n, fmt.Sprintf("slide %d of %d", i+1, n))
	}

	for i, s := range slides {
		emit(PhaseFinalizing, encodeDone+i*(100-encodeDone)/n, fmt.Sprintf("uploading slide %d of %d", i+1, n))
		out, err := p.put(ctx, outputKey(id, fmt.Sprintf("slide-%02d", i+1), req.Format), req.Format, s.data, s.img)
		if err != nil {
			return err
		}
		out.SlideNumber = i + 1
		result.Outputs = append(result.Outputs, out)
	}
	return nil
}

// exportSequence renders all frames (0-50%) and combines them into one
// animation (50-100%).
func (p *Pipeline) exportSequence(
	ctx context.Context,
	id uuid.UUID,
	req Request,
	canvases []*domain.Canvas,
	result *Result,
	emit emitFunc,
) error {
	frames, err := p.renderAll(ctx, req, canvases, sequenceRenderEnd, emit)
	if err != nil {
		return err
	}

	emit(PhaseCombining, sequenceRenderEnd, "encoding sequence")
	var buf bytes.Buffer
	err = p.encoder.Encode(&buf, frames, SequenceOptions{
		FPS:        req.FPS,
		SlideHold:  req.SlideHold,
		Transition: req.Transition,
	})
	if err != nil {
		return fmt.Errorf("encode sequence: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	emit(PhaseFinalizing, encodeDone, "uploading sequence")
	out, err := p.put(ctx, outputKey(id, "sequence", req.Format), req.Format, buf.Bytes(), frames[0])
	if err != nil {
		return err
	}
	result.Outputs = append(result.Outputs, out)
	// Audio tracks cannot be carried by GIF output.
	result.Metadata.AudioIncluded = false
	return nil
}

// exportGrid renders all slides (0-70%) and composites them into one image
// (70-100%).
func (p *Pipeline) exportGrid(
	ctx context.Context,
	id uuid.UUID,
	req Request,
	canvases []*domain.Canvas,
	result *Result,
	emit emitFunc,
) error {
	frames, err := p.renderAll(ctx, req, canvases, gridRenderEnd, emit)
	if err != nil {
		return err
	}

	grid := GridFor(len(frames))
	result.Metadata.Grid = &grid

	emit(PhaseCombining, gridRenderEnd, fmt.Sprintf("compositing %dx%d grid", grid.Cols, grid.Rows))
	img := ComposeGrid(frames, grid)
	data, err := encodeStill(img, req)
	if err != nil {
		return fmt.Errorf("encode grid: %w", err)
	}

	emit(PhaseFinalizing, encodeDone, "uploading grid")
	out, err := p.put(ctx, outputKey(id, "grid", req.Format), req.Format, data, img)
	if err != nil {
		return err
	}
	result.Outputs = append(result.Outputs, out)
	return nil
}

// renderAll renders every canvas, spreading progress over 0..end.
func (p *Pipeline) renderAll(
	ctx context.Context,
	req Request,
	canvases []*domain.Canvas,
	end int,
	emit emitFunc,
) ([]image.Image, error) {
	n := len(canvases)
	frames := make([]image.Image, 0, n)
	for i, c := range canvases {
		img, err := p.renderer.Render(ctx, c, req.Quality.Scale())
		if err != nil {
			return nil, fmt.Errorf("render slide %d: %w", i+1, err)
		}
		frames = append(frames, img)
		emit(PhaseRendering, (i+1)*end/n, fmt.Sprintf("rendered slide %d of %d", i+1, n))
	}
	return frames, nil
}

func (p *Pipeline) put(ctx context.Context, key string, format Format, data []byte, img image.Image) (Output, error) {
	url, expires, err := p.sink.Put(ctx, key, format.ContentType(), data)
	if err != nil {
		return Output{}, fmt.Errorf("store %s: %w", key, err)
	}
	size := img.Bounds().Size()
	return Output{
		Key:         key,
		URL:         url,
		ContentType: format.ContentType(),
		Size:        len(data),
		Width:       size.X,
		Height:      size.Y,
		ExpiresAt:   expires,
	}, nil
}

func encodeStill(img image.Image, req Request) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch req.Format {
	case FormatJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: req.Quality.JPEGQuality()})
	default:
		enc := png.Encoder{CompressionLevel: png.DefaultCompression}
		if req.Quality == QualityLow {
			enc.CompressionLevel = png.BestSpeed
		}
		err = enc.Encode(&buf, img)
	}
	return buf.Bytes(), err
}

func outputKey(id uuid.UUID, name string, format Format) string {
	return path.Join("exports", id.String(), name+"."+format.Extension())
}
