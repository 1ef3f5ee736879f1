package export

import (
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"io"
	"math"
	"time"

	"golang.org/x/image/draw"
)

// SequenceOptions controls the timing of an animated export.
type SequenceOptions struct {
	FPS        int
	SlideHold  time.Duration
	Transition Transition
}

// SequenceEncoder combines frames into one timed animation.
type SequenceEncoder interface {
	Encode(w io.Writer, frames []image.Image, opts SequenceOptions) error
}

// GIFEncoder encodes sequences as looping animated GIFs. Each slide is
// shown for SlideHold; transitions are rendered as intermediate frames at
// the configured frame rate.
type GIFEncoder struct{}

var _ SequenceEncoder = GIFEncoder{}

// Encode implements SequenceEncoder.
func (GIFEncoder) Encode(w io.Writer, frames []image.Image, opts SequenceOptions) error {
	if len(frames) == 0 {
		return fmt.Errorf("%w: no frames to encode", ErrInvalidRequest)
	}
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	if opts.SlideHold <= 0 {
		opts.SlideHold = DefaultSlideHold
	}

	bounds := frames[0].Bounds()
	frameDelay := centiseconds(time.Second / time.Duration(opts.FPS))
	transitionFrames := 0
	if opts.Transition.Type != TransitionNone && opts.Transition.Type != "" {
		transitionFrames = int(math.Round(opts.Transition.Duration.Seconds() * float64(opts.FPS)))
	}

	anim := &gif.GIF{LoopCount: 0}
	add := func(img image.Image, delay int) {
		anim.Image = append(anim.Image, toPaletted(img, bounds))
		anim.Delay = append(anim.Delay, max(1, delay))
	}

	for i, frame := range frames {
		add(frame, centiseconds(opts.SlideHold))
		if i == len(frames)-1 {
			break
		}
		next := frames[i+1]
		for step := 1; step <= transitionFrames; step++ {
			t := float64(step) / float64(transitionFrames+1)
			add(transitionFrame(opts.Transition.Type, frame, next, bounds, t), frameDelay)
		}
	}

	return gif.EncodeAll(w, anim)
}

func centiseconds(d time.Duration) int {
	return int(d / (10 * time.Millisecond))
}

func toPaletted(img image.Image, bounds image.Rectangle) *image.Paletted {
	p := image.NewPaletted(bounds, palette.Plan9)
	draw.FloydSteinberg.Draw(p, bounds, img, img.Bounds().Min)
	return p
}

// transitionFrame blends from into to at position t in (0, 1).
func transitionFrame(kind TransitionType, from, to image.Image, bounds image.Rectangle, t float64) image.Image {
	dst := image.NewRGBA(bounds)
	switch kind {
	case TransitionSlide:
		offset := int(float64(bounds.Dx()) * t)
		draw.Draw(dst, bounds, from, from.Bounds().Min.Add(image.Pt(offset, 0)), draw.Src)
		r := image.Rect(bounds.Max.X-offset, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
		draw.Draw(dst, r, to, to.Bounds().Min, draw.Src)
	default:
		draw.Draw(dst, bounds, from, from.Bounds().Min, draw.Src)
		mask := image.NewUniform(color.Alpha{A: uint8(math.Round(t * 255))})
		draw.DrawMask(dst, bounds, to, to.Bounds().Min, mask, image.Point{}, draw.Over)
	}
	return dst
}
