package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/phrazzld/carousel-api/internal/config"
	"github.com/phrazzld/carousel-api/internal/domain"
	"github.com/phrazzld/carousel-api/internal/generation"
	"github.com/phrazzld/carousel-api/internal/prompt"
	"github.com/phrazzld/carousel-api/internal/redact"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// GenerationService is the part of the generation lifecycle API the
// orchestrator drives. Every call is made on behalf of the record's owner.
type GenerationService interface {
	GetGeneration(ctx context.Context, userID, id uuid.UUID) (*domain.Generation, error)
	UpdateGenerationStatus(
		ctx context.Context,
		userID, id uuid.UUID,
		patch domain.StatusPatch,
	) (*domain.Generation, error)
}

// CanvasService persists the canvases produced by a generation.
type CanvasService interface {
	// ReplaceGenerationCanvases atomically swaps the canvases stored for a
	// generation, so a rerun never duplicates slides.
	ReplaceGenerationCanvases(
		ctx context.Context,
		generationID uuid.UUID,
		canvases []*domain.Canvas,
		media []*domain.MediaItem,
	) error

	// AttachMedia stores media items for existing canvases.
	AttachMedia(ctx context.Context, items []*domain.MediaItem) error
}

// ProviderRegistry resolves provider names to generators. An empty name
// selects the configured default.
type ProviderRegistry interface {
	Text(name string) (generation.TextGenerator, error)
	Image(name string) (generation.ImageGenerator, error)
}

// Progress checkpoints of the carousel pipeline.
const (
	progressText     = 5
	progressImages   = 30
	progressCanvases = 80
	progressPersist  = 95
)

// Orchestrator runs a generation record through its pipeline: text, slide
// images and canvases for carousels, a single phase for background and
// text requests. All progress is persisted through the GenerationService.
type Orchestrator struct {
	generations GenerationService
	canvases    CanvasService
	providers   ProviderRegistry
	config      config.GenerationConfig
	logger      *slog.Logger

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter

	now func() time.Time
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	generations GenerationService,
	canvases CanvasService,
	providers ProviderRegistry,
	cfg config.GenerationConfig,
	logger *slog.Logger,
) *Orchestrator {
	if cfg.ImageConcurrency <= 0 {
		cfg.ImageConcurrency = 1
	}
	if cfg.ImageRatePerSecond <= 0 {
		cfg.ImageRatePerSecond = 1
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 2 * time.Minute
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}

	return &Orchestrator{
		generations: generations,
		canvases:    canvases,
		providers:   providers,
		config:      cfg,
		logger:      logger.With("component", "generation_orchestrator"),
		limiters:    make(map[string]*rate.Limiter),
		now:         time.Now,
	}
}

// run holds the state of one pipeline execution.
type run struct {
	gen    *domain.Generation
	opts   domain.GenerationOptions
	cp     *checkpointer
	logger *slog.Logger
	cost   float64
	step   domain.GenerationStep
}

// enter commits the start of a pipeline step.
func (r *run) enter(step domain.GenerationStep, progress int) error {
	r.step = step
	return r.cp.commit(generatingPatch(step, progress, r.cost, nil))
}

// Run executes the generation identified by generationID. A record that is
// already completed or failed is left untouched. When ctx is cancelled the
// record keeps its last checkpoint so the task can be resumed.
func (o *Orchestrator) Run(ctx context.Context, userID, generationID uuid.UUID) error {
	gen, err := o.generations.GetGeneration(ctx, userID, generationID)
	if err != nil {
		return fmt.Errorf("failed to load generation: %w", err)
	}

	log := o.logger.With(
		"generation_id", gen.ID,
		"user_id", gen.UserID,
		"generation_type", gen.Type,
	)

	if gen.Status.IsTerminal() {
		log.Info("generation already finished, nothing to do", "status", gen.Status)
		return nil
	}

	r := &run{
		gen:    gen,
		opts:   gen.Options.WithDefaults(),
		logger: log,
		cost:   gen.Cost,
	}
	r.cp = startCheckpointer(ctx, o.generations, gen, log)
	defer r.cp.close()

	firstStep := domain.GenerationStepText
	if gen.Type == domain.GenerationTypeBackground {
		firstStep = domain.GenerationStepImages
	}
	if err := r.enter(firstStep, progressText); err != nil {
		return fmt.Errorf("failed to start generation: %w", err)
	}
	log.Info("generation started")

	var result any
	switch gen.Type {
	case domain.GenerationTypeCarousel:
		result, err = o.runCarousel(ctx, r)
	case domain.GenerationTypeBackground:
		result, err = o.runBackground(ctx, r)
	case domain.GenerationTypeText:
		result, err = o.runText(ctx, r)
	default:
		err = fmt.Errorf("%w: %q", domain.ErrInvalidGenerationType, gen.Type)
	}

	if err != nil {
		if ctx.Err() != nil {
			log.Warn("generation interrupted", "error", redact.Error(err))
			return err
		}
		return o.fail(r, err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return o.fail(r, fmt.Errorf("failed to encode result: %w", err))
	}
	cost := r.cost
	if err := r.cp.commit(domain.StatusPatch{
		Status:     domain.GenerationStatusCompleted,
		ResultData: data,
		Cost:       &cost,
	}); err != nil {
		return fmt.Errorf("failed to complete generation: %w", err)
	}

	log.Info("generation completed", "cost", r.cost)
	return nil
}

// fail records err as the terminal failure of the run and returns it.
func (o *Orchestrator) fail(r *run, err error) error {
	failure := FailureResult{
		Error: redact.Error(err),
		Kind:  failureKind(err),
		Step:  r.step,
	}
	var all *allSlidesFailedError
	if errors.As(err, &all) {
		failure.Errors = all.errors
	}

	r.logger.Error("generation failed",
		"kind", failure.Kind,
		"error", failure.Error)

	data, marshalErr := json.Marshal(failure)
	if marshalErr != nil {
		return errors.Join(err, marshalErr)
	}
	cost := r.cost
	if commitErr := r.cp.commit(domain.StatusPatch{
		Status:     domain.GenerationStatusFailed,
		ResultData: data,
		Cost:       &cost,
	}); commitErr != nil {
		r.logger.Error("failed to record generation failure", "error", redact.Error(commitErr))
		return errors.Join(err, commitErr)
	}
	return err
}

func (o *Orchestrator) runCarousel(ctx context.Context, r *run) (*CarouselResult, error) {
	if r.gen.ProjectID == nil {
		return nil, fmt.Errorf("%w: carousel generation has no project", domain.ErrValidation)
	}

	req := prompt.RequestFromOptions(r.gen.Prompt, r.opts)
	composed := prompt.Compose(req)

	text, err := o.generateText(ctx, r, generation.TextRequest{
		Prompt:          composed,
		Model:           r.opts.TextModel,
		Platform:        string(r.opts.Platform),
		ContentType:     string(req.ContentType),
		Tone:            r.opts.Tone,
		Length:          r.opts.Length,
		IncludeHashtags: r.opts.IncludeHashtags,
		IncludeEmojis:   r.opts.IncludeEmojis,
		JSON:            true,
	})
	if err != nil {
		return nil, err
	}

	carousel, err := prompt.ParseCarousel(text.Content)
	if err != nil {
		return nil, err
	}
	if len(carousel.Slides) > r.opts.SlideCount {
		carousel.Slides = carousel.Slides[:r.opts.SlideCount]
	}
	if err := carousel.Validate(r.opts.Platform.CaptionLimit()); err != nil {
		return nil, err
	}
	r.logger.Info("slide text generated", "slide_count", len(carousel.Slides))

	if err := r.enter(domain.GenerationStepImages, progressImages); err != nil {
		return nil, err
	}

	images, slideErrors, err := o.generateSlideImages(ctx, r, carousel.Slides)
	if err != nil {
		return nil, err
	}
	if len(slideErrors) == len(carousel.Slides) {
		return nil, &allSlidesFailedError{errors: slideErrors}
	}

	if err := r.enter(domain.GenerationStepCanvases, progressCanvases); err != nil {
		return nil, err
	}

	slides, err := o.persistCanvases(ctx, r, carousel.Slides, images)
	if err != nil {
		return nil, err
	}
	zero := 0
	r.cp.report(generatingPatch(domain.GenerationStepCanvases, progressPersist, r.cost, &zero))

	return &CarouselResult{
		ProjectID: *r.gen.ProjectID,
		Slides:    slides,
		Errors:    slideErrors,
		Metadata: CarouselMetadata{
			Theme:              carousel.Metadata.Theme,
			Flow:               carousel.Metadata.Flow,
			HashtagSuggestions: carousel.Metadata.HashtagSuggestions,
			ContentType:        req.ContentType,
			Template:           prompt.TemplateFor(req.ContentType).Name,
			CTAs:               prompt.RecommendCTAs(req.ContentType),
			Platform:           r.opts.Platform,
			Text:               text.Metadata,
			SlidesRequested:    len(carousel.Slides),
			SlidesSucceeded:    len(slides),
			TotalCost:          r.cost,
		},
	}, nil
}

// generateSlideImages produces one background per slide. Slides fail
// independently: images is indexed like slides and holds nil for failures,
// which are described in the returned SlideErrors. The error return is
// reserved for cancellation and provider lookup failures.
func (o *Orchestrator) generateSlideImages(
	ctx context.Context,
	r *run,
	slides []prompt.Slide,
) ([]*generation.ImageResult, []SlideError, error) {
	provider, err := o.providers.Image(r.opts.ImageProvider)
	if err != nil {
		return nil, nil, err
	}

	base := make([]string, len(slides))
	for i, s := range slides {
		base[i] = s.BackgroundPrompt
		if base[i] == "" {
			base[i] = s.Title
		}
	}
	prompts := prompt.ComposeConsistencyPrompts(base, string(r.opts.BackgroundStrategy), r.opts.Style)
	format := r.opts.Platform.Format()
	limiter := o.limiter(provider.Name())

	var (
		mu        sync.Mutex
		images    = make([]*generation.ImageResult, len(slides))
		failures  = make(map[int]SlideError)
		completed int
		started   = o.now()
	)

	var g errgroup.Group
	g.SetLimit(o.config.ImageConcurrency)

	for i := range slides {
		g.Go(func() error {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}

			seed := r.opts.Seed
			if seed != 0 && r.opts.BackgroundStrategy == domain.BackgroundUnique {
				seed += int64(i)
			}

			var img *generation.ImageResult
			err := o.withRetry(ctx, provider.Name(), func(ctx context.Context) error {
				var callErr error
				img, callErr = provider.GenerateImage(ctx, generation.ImageRequest{
					Prompt: prompts[i],
					Model:  r.opts.ImageModel,
					Width:  format.Width,
					Height: format.Height,
					Style:  r.opts.Style,
					Seed:   seed,
				})
				return callErr
			})
			if ctx.Err() != nil {
				return ctx.Err()
			}

			mu.Lock()
			defer mu.Unlock()

			completed++
			if err != nil {
				failures[i] = SlideError{
					SlideNumber: slides[i].SlideNumber,
					Kind:        failureKind(err),
					Error:       redact.Error(err),
				}
				r.logger.Warn("slide image failed",
					"slide_number", slides[i].SlideNumber,
					"error", redact.Error(err))
			} else {
				images[i] = img
				r.cost += img.Metadata.Cost
			}

			progress := progressImages + (progressCanvases-progressImages)*completed/len(slides)
			eta := estimateRemaining(o.now().Sub(started), completed, len(slides), o.config.ImageConcurrency)
			r.cp.report(generatingPatch(domain.GenerationStepImages, progress, r.cost, &eta))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	slideErrors := make([]SlideError, 0, len(failures))
	for i := range slides {
		if f, ok := failures[i]; ok {
			slideErrors = append(slideErrors, f)
		}
	}
	return images, slideErrors, nil
}

// persistCanvases creates one canvas per successful slide, in slide order
// with contiguous positions, together with their background media items.
func (o *Orchestrator) persistCanvases(
	ctx context.Context,
	r *run,
	slides []prompt.Slide,
	images []*generation.ImageResult,
) ([]SlideResult, error) {
	format := r.opts.Platform.Format()
	generationID := r.gen.ID

	var (
		canvases []*domain.Canvas
		media    []*domain.MediaItem
		results  []SlideResult
	)
	for i, s := range slides {
		img := images[i]
		if img == nil {
			continue
		}

		canvas, err := domain.NewCanvas(r.gen.UserID, *r.gen.ProjectID, len(canvases), format)
		if err != nil {
			return nil, err
		}
		layout := prompt.DeriveLayout(s.Content, i, len(slides))
		layoutJSON, err := json.Marshal(layout)
		if err != nil {
			return nil, fmt.Errorf("failed to encode layout: %w", err)
		}

		canvas.GenerationID = &generationID
		canvas.Title = s.Title
		canvas.Subtitle = s.Subtitle
		canvas.Content = s.Content
		canvas.CTA = s.CTA
		canvas.BackgroundURL = img.URL
		canvas.Layout = layoutJSON

		item, err := domain.NewMediaItem(canvas, domain.MediaKindBackground,
			img.URL, s.BackgroundPrompt, img.Metadata.Provider, img.Metadata.Cost)
		if err != nil {
			return nil, err
		}

		canvases = append(canvases, canvas)
		media = append(media, item)
		results = append(results, SlideResult{
			SlideNumber:       s.SlideNumber,
			CanvasID:          canvas.ID,
			Title:             s.Title,
			Subtitle:          s.Subtitle,
			Content:           s.Content,
			CTA:               s.CTA,
			BackgroundPrompt:  s.BackgroundPrompt,
			ImageURL:          img.URL,
			DesignNotes:       s.DesignNotes,
			EngagementTactics: s.EngagementTactics,
			Layout:            layout,
			Image:             img.Metadata,
		})
	}

	if err := o.canvases.ReplaceGenerationCanvases(ctx, generationID, canvases, media); err != nil {
		return nil, fmt.Errorf("failed to create canvases: %w", err)
	}
	r.logger.Info("canvases created", "canvas_count", len(canvases))
	return results, nil
}

func (o *Orchestrator) runBackground(ctx context.Context, r *run) (*ImageOutput, error) {
	provider, err := o.providers.Image(r.opts.ImageProvider)
	if err != nil {
		return nil, err
	}

	format := r.opts.Platform.Format()
	finalPrompt := prompt.ComposeConsistencyPrompts(
		[]string{r.gen.Prompt}, string(domain.BackgroundUnique), r.opts.Style)[0]

	if err := o.limiter(provider.Name()).Wait(ctx); err != nil {
		return nil, err
	}

	var img *generation.ImageResult
	err = o.withRetry(ctx, provider.Name(), func(ctx context.Context) error {
		var callErr error
		img, callErr = provider.GenerateImage(ctx, generation.ImageRequest{
			Prompt: finalPrompt,
			Model:  r.opts.ImageModel,
			Width:  format.Width,
			Height: format.Height,
			Style:  r.opts.Style,
			Seed:   r.opts.Seed,
		})
		return callErr
	})
	if err != nil {
		return nil, err
	}
	r.cost += img.Metadata.Cost

	if r.gen.CanvasID != nil {
		item := &domain.MediaItem{
			ID:        uuid.New(),
			UserID:    r.gen.UserID,
			CanvasID:  *r.gen.CanvasID,
			Kind:      domain.MediaKindBackground,
			URL:       img.URL,
			Prompt:    finalPrompt,
			Provider:  img.Metadata.Provider,
			Cost:      img.Metadata.Cost,
			CreatedAt: o.now().UTC(),
		}
		if err := o.canvases.AttachMedia(ctx, []*domain.MediaItem{item}); err != nil {
			return nil, fmt.Errorf("failed to attach background: %w", err)
		}
	}

	return &ImageOutput{
		ImageURL: img.URL,
		Prompt:   finalPrompt,
		CanvasID: r.gen.CanvasID,
		Width:    format.Width,
		Height:   format.Height,
		Metadata: img.Metadata,
	}, nil
}

func (o *Orchestrator) runText(ctx context.Context, r *run) (*TextOutput, error) {
	contentType := prompt.ParseContentType(r.opts.ContentType, r.gen.Prompt)

	text, err := o.generateText(ctx, r, generation.TextRequest{
		Prompt:          r.gen.Prompt,
		Model:           r.opts.TextModel,
		Platform:        string(r.opts.Platform),
		ContentType:     string(contentType),
		Tone:            r.opts.Tone,
		Length:          r.opts.Length,
		IncludeHashtags: r.opts.IncludeHashtags,
		IncludeEmojis:   r.opts.IncludeEmojis,
	})
	if err != nil {
		return nil, err
	}

	if limit := r.opts.Platform.CaptionLimit(); limit > 0 {
		if n := utf8.RuneCountInString(text.Content); n > limit {
			return nil, fmt.Errorf("%w: generated text has %d characters, %s allows %d",
				domain.ErrValidation, n, r.opts.Platform, limit)
		}
	}

	return &TextOutput{
		Content:     text.Content,
		ContentType: contentType,
		Metadata:    text.Metadata,
	}, nil
}

func (o *Orchestrator) generateText(
	ctx context.Context,
	r *run,
	req generation.TextRequest,
) (*generation.TextResult, error) {
	provider, err := o.providers.Text(r.opts.TextProvider)
	if err != nil {
		return nil, err
	}

	var text *generation.TextResult
	err = o.withRetry(ctx, provider.Name(), func(ctx context.Context) error {
		var callErr error
		text, callErr = provider.GenerateText(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	r.cost += text.Metadata.Cost
	return text, nil
}

// withRetry calls fn with a per-call timeout, retrying timeouts and rate
// limits with jittered exponential backoff.
func (o *Orchestrator) withRetry(ctx context.Context, providerName string, fn func(context.Context) error) error {
	backoff := retry.NewExponential(o.config.RetryBaseDelay)
	backoff = retry.WithJitterPercent(10, backoff)
	backoff = retry.WithMaxRetries(o.config.MaxRetries, backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, o.config.ProviderTimeout)
		defer cancel()

		err := fn(callCtx)
		if err == nil {
			return nil
		}

		var pe *generation.ProviderError
		if !errors.As(err, &pe) && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = generation.NewProviderError(providerName, generation.KindTimeout, err)
		}
		if generation.IsRetryable(err) {
			o.logger.Debug("retrying provider call", "provider", providerName, "error", redact.Error(err))
			return retry.RetryableError(err)
		}
		return err
	})
}

// limiter returns the shared request limiter for an image provider.
func (o *Orchestrator) limiter(providerName string) *rate.Limiter {
	o.limitersMu.Lock()
	defer o.limitersMu.Unlock()

	l, ok := o.limiters[providerName]
	if !ok {
		l = rate.NewLimiter(rate.Limit(o.config.ImageRatePerSecond), 1)
		o.limiters[providerName] = l
	}
	return l
}

// estimateRemaining extrapolates the seconds left from the average time of
// the slides finished so far.
func estimateRemaining(elapsed time.Duration, done, total, concurrency int) int {
	if done == 0 || done >= total {
		return 0
	}
	if concurrency < 1 {
		concurrency = 1
	}
	perSlide := elapsed / time.Duration(done)
	remaining := perSlide * time.Duration(total-done) / time.Duration(concurrency)
	return int(remaining.Round(time.Second) / time.Second)
}
