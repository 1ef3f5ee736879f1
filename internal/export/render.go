package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // decoder registration
	_ "image/jpeg" // decoder registration
	_ "image/png"  // decoder registration
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/carousel-api/internal/domain"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp" // decoder registration
)

// Renderer rasterises one canvas.
type Renderer interface {
	Render(ctx context.Context, canvas *domain.Canvas, scale float64) (image.Image, error)
}

// ImageFetcher loads a remote image.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (image.Image, error)
}

const maxImageBytes = 20 << 20

// HTTPFetcher fetches images over HTTP. It also decodes base64 data URLs.
type HTTPFetcher struct {
	Client *http.Client
}

// Fetch implements ImageFetcher.
func (f HTTPFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	if strings.HasPrefix(url, "data:") {
		return decodeDataURL(url)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("image request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	img, _, err := image.Decode(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func decodeDataURL(url string) (image.Image, error) {
	_, payload, ok := strings.Cut(url, ";base64,")
	if !ok {
		return nil, fmt.Errorf("unsupported data url")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// RasterRenderer draws a canvas as its background image, covered by a
// translucent text panel with the slide's title, content and call to action.
type RasterRenderer struct {
	fetcher ImageFetcher
	logger  *slog.Logger
}

// NewRasterRenderer creates a renderer. A nil fetcher renders without
// backgrounds.
func NewRasterRenderer(fetcher ImageFetcher, logger *slog.Logger) *RasterRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &RasterRenderer{fetcher: fetcher, logger: logger.With("component", "raster_renderer")}
}

var (
	fallbackBackground = color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
	panelColor         = color.RGBA{A: 0x99}
	titleColor         = color.White
	bodyColor          = color.RGBA{R: 0xe5, G: 0xe7, B: 0xeb, A: 0xff}
	ctaColor           = color.RGBA{R: 0xfb, G: 0xbf, B: 0x24, A: 0xff}
)

// Render implements Renderer.
func (r *RasterRenderer) Render(ctx context.Context, canvas *domain.Canvas, scale float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size := scaledSize(canvas.Format, scale)
	dst := image.NewRGBA(image.Rectangle{Max: size})
	draw.Draw(dst, dst.Bounds(), image.NewUniform(fallbackBackground), image.Point{}, draw.Src)

	if canvas.BackgroundURL != "" && r.fetcher != nil {
		bg, err := r.fetcher.Fetch(ctx, canvas.BackgroundURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.WarnContext(ctx, "rendering without background",
				"error", err,
				"canvas_id", canvas.ID)
		} else {
			drawCover(dst, bg)
		}
	}

	drawText(dst, canvas)
	return dst, nil
}

func scaledSize(f domain.CanvasFormat, scale float64) image.Point {
	w, h := f.Width, f.Height
	if w <= 0 || h <= 0 {
		def := domain.PlatformInstagram.Format()
		w, h = def.Width, def.Height
	}
	if scale <= 0 {
		scale = 1
	}
	return image.Pt(max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale)))
}

// drawCover scales src to fill dst, cropping the overflowing axis around
// the center.
func drawCover(dst *image.RGBA, src image.Image) {
	sb := src.Bounds()
	db := dst.Bounds()
	if sb.Empty() {
		return
	}

	srcRatio := float64(sb.Dx()) / float64(sb.Dy())
	dstRatio := float64(db.Dx()) / float64(db.Dy())
	crop := sb
	if srcRatio > dstRatio {
		w := int(float64(sb.Dy()) * dstRatio)
		x0 := sb.Min.X + (sb.Dx()-w)/2
		crop = image.Rect(x0, sb.Min.Y, x0+w, sb.Max.Y)
	} else if srcRatio < dstRatio {
		h := int(float64(sb.Dx()) / dstRatio)
		y0 := sb.Min.Y + (sb.Dy()-h)/2
		crop = image.Rect(sb.Min.X, y0, sb.Max.X, y0+h)
	}
	draw.CatmullRom.Scale(dst, db, src, crop, draw.Src, nil)
}

type textLine struct {
	text string
	col  color.Color
}

// drawText lays the slide text out at basicfont's native size on a small
// layer, then scales the layer up so the text stays legible on large slides.
func drawText(dst *image.RGBA, canvas *domain.Canvas) {
	face := basicfont.Face7x13
	db := dst.Bounds()

	factor := max(1, db.Dx()/360)
	layerW := db.Dx() / factor
	layerH := db.Dy() / factor
	margin := 12
	cols := max(8, (layerW-2*margin)/face.Advance)

	var lines []textLine
	for _, l := range wrap(strings.ToUpper(canvas.Title), cols) {
		lines = append(lines, textLine{l, titleColor})
	}
	if canvas.Subtitle != "" {
		for _, l := range wrap(canvas.Subtitle, cols) {
			lines = append(lines, textLine{l, bodyColor})
		}
	}
	if canvas.Content != "" {
		lines = append(lines, textLine{"", bodyColor})
		for _, l := range wrap(canvas.Content, cols) {
			lines = append(lines, textLine{l, bodyColor})
		}
	}
	if canvas.CTA != "" {
		lines = append(lines, textLine{"", bodyColor})
		for _, l := range wrap(canvas.CTA, cols) {
			lines = append(lines, textLine{l, ctaColor})
		}
	}
	if len(lines) == 0 {
		return
	}

	lineHeight := face.Height + 3
	maxLines := max(1, (layerH-2*margin)/lineHeight)
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}

	panelH := len(lines)*lineHeight + 2*margin
	layer := image.NewRGBA(image.Rect(0, 0, layerW, panelH))
	draw.Draw(layer, layer.Bounds(), image.NewUniform(panelColor), image.Point{}, draw.Src)

	for i, l := range lines {
		d := font.Drawer{
			Dst:  layer,
			Src:  image.NewUniform(l.col),
			Face: face,
			Dot:  fixed.P(margin, margin+face.Ascent+i*lineHeight),
		}
		d.DrawString(l.text)
	}

	target := image.Rect(db.Min.X, db.Max.Y-panelH*factor, db.Max.X, db.Max.Y)
	draw.NearestNeighbor.Scale(dst, target, layer, layer.Bounds(), draw.Over, nil)
}

// wrap splits s into lines of at most cols characters at word boundaries.
// Words longer than a line are broken.
func wrap(s string, cols int) []string {
	var (
		lines []string
		cur   strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			lines = append(lines, cur.String())
			cur.Reset()
		}
	}
	for _, word := range strings.Fields(s) {
		for len(word) > cols {
			flush()
			lines = append(lines, word[:cols])
			word = word[cols:]
		}
		if cur.Len() > 0 && cur.Len()+1+len(word) > cols {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	flush()
	return lines
}
