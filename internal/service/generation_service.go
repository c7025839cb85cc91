package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KnuggetDeveloper/infograph/internal/config"
	"github.com/KnuggetDeveloper/infograph/internal/gemini"
	"github.com/KnuggetDeveloper/infograph/internal/models"
)

// GenerationStore is the persistence contract for generations.
type GenerationStore interface {
	Create(ctx context.Context, userID int64, prompt string) (*models.Generation, error)
	FindByID(ctx context.Context, id string) (*models.Generation, error)
	SetImageData(ctx context.Context, id string, data string) (bool, error)
	SetShareURL(ctx context.Context, id string, url string) error
}

// Synthesizer is the image backend contract. A no-image outcome is signalled
// with gemini.ErrNoImage; any other error means the call itself failed.
type Synthesizer interface {
	GenerateImage(ctx context.Context, prompt string) (*gemini.Image, error)
}

// ShareUploader publishes image bytes and returns a public URL.
type ShareUploader interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

const systemDirective = `You are an expert infographic designer. Create a vibrant, professional infographic that visualizes the user's request. The infographic should be:
- Visually appealing with clear data visualization
- Well-organized with proper sections and labels
- Professional and suitable for sharing on social media
- Include relevant charts, graphs, or visual elements
- Use a modern, clean design style
- Ensure all text is legible and well-placed`

// derivedPrompt prefixes the fixed infographic directive to the user's prompt.
func derivedPrompt(userPrompt string) string {
	return systemDirective + "\n\nUser Request: " + userPrompt + "\n\nGenerate a high-quality infographic based on the above request."
}

type GenerationService struct {
	cfg         config.Config
	log         *slog.Logger
	generations GenerationStore
	synth       Synthesizer
	uploader    ShareUploader
	locks       *keyedMutex
}

type GenerateResult struct {
	ImageData string
	Cached    bool
}

// NewGenerationService builds the lifecycle controller. uploader may be nil
// when share storage is not configured.
func NewGenerationService(cfg config.Config, log *slog.Logger, generations GenerationStore, synth Synthesizer, uploader ShareUploader) *GenerationService {
	return &GenerationService{
		cfg:         cfg,
		log:         log,
		generations: generations,
		synth:       synth,
		uploader:    uploader,
		locks:       newKeyedMutex(),
	}
}

// Create inserts a pending generation for the user. No synthesis happens
// here; the result view navigates by id and triggers it separately.
func (s *GenerationService) Create(ctx context.Context, userID int64, prompt string) (*models.Generation, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrInvalidPrompt
	}
	gen, err := s.generations.Create(ctx, userID, prompt)
	if err != nil {
		return nil, fmt.Errorf("create generation: %w", err)
	}
	return gen, nil
}

// Fetch returns the generation if it exists and belongs to the user.
func (s *GenerationService) Fetch(ctx context.Context, userID int64, id string) (*models.Generation, error) {
	return s.owned(ctx, userID, id)
}

// Generate synthesizes the image for a pending generation, or returns the
// stored image when it is already populated. Once populated the stored bytes
// are final: concurrent and repeated calls never overwrite them.
func (s *GenerationService) Generate(ctx context.Context, userID int64, id string) (*GenerateResult, error) {
	gen, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if gen.Ready() {
		return &GenerateResult{ImageData: gen.ImageData, Cached: true}, nil
	}
	if s.cfg.GeminiAPIKey == "" {
		return nil, ErrUnconfigured
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	// Re-check under the lock: a concurrent call may have finished first.
	gen, err = s.generations.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload generation: %w", err)
	}
	if gen == nil {
		return nil, ErrNotFound
	}
	if gen.Ready() {
		return &GenerateResult{ImageData: gen.ImageData, Cached: true}, nil
	}

	img, err := s.synthesize(ctx, gen.Prompt)
	if err != nil {
		return nil, err
	}

	// Persist on a detached context too: the bytes are paid for, and a
	// dropped client connection should still produce a cache hit later.
	won, err := s.generations.SetImageData(context.WithoutCancel(ctx), id, img.Data)
	if err != nil {
		s.log.Error("image synthesized but not persisted", "generation_id", id, "err", err)
		return &GenerateResult{ImageData: img.Data, Cached: false}, nil
	}
	if !won {
		// Lost the conditional write; hand back the winner's bytes.
		stored, err := s.generations.FindByID(ctx, id)
		if err == nil && stored != nil && stored.Ready() {
			return &GenerateResult{ImageData: stored.ImageData, Cached: true}, nil
		}
		s.log.Error("conditional image write lost but stored value unreadable", "generation_id", id, "err", err)
		return &GenerateResult{ImageData: img.Data, Cached: false}, nil
	}

	return &GenerateResult{ImageData: img.Data, Cached: false}, nil
}

// GenerateDirect runs a one-off synthesis without persisting anything.
func (s *GenerationService) GenerateDirect(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrInvalidPrompt
	}
	if s.cfg.GeminiAPIKey == "" {
		return "", ErrUnconfigured
	}
	img, err := s.synthesize(ctx, prompt)
	if err != nil {
		return "", err
	}
	return img.Data, nil
}

// Share publishes the stored image and returns a public URL. Repeated calls
// reuse the first URL.
func (s *GenerationService) Share(ctx context.Context, userID int64, id string) (string, error) {
	gen, err := s.owned(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if !gen.Ready() {
		return "", ErrNotReady
	}
	if gen.ShareURL != "" {
		return gen.ShareURL, nil
	}
	if s.uploader == nil {
		return "", ErrShareUnavailable
	}

	raw, err := base64.StdEncoding.DecodeString(gen.ImageData)
	if err != nil {
		return "", fmt.Errorf("decode stored image: %w", err)
	}
	url, err := s.uploader.Upload(ctx, raw, "image/png")
	if err != nil {
		return "", fmt.Errorf("upload share image: %w", err)
	}
	if err := s.generations.SetShareURL(ctx, id, url); err != nil {
		// The object is already public; report the URL anyway.
		s.log.Error("share url not persisted", "generation_id", id, "err", err)
	}
	return url, nil
}

// synthesize calls the backend with the derived prompt on a detached, bounded
// context so a dropped client connection does not abort the call.
func (s *GenerationService) synthesize(ctx context.Context, prompt string) (*gemini.Image, error) {
	timeout := s.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	synthCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	img, err := s.synth.GenerateImage(synthCtx, derivedPrompt(prompt))
	if err != nil {
		if errors.Is(err, gemini.ErrNoImage) {
			return nil, ErrNoImage
		}
		return nil, &SynthesisError{Message: err.Error()}
	}
	return img, nil
}

func (s *GenerationService) owned(ctx context.Context, userID int64, id string) (*models.Generation, error) {
	gen, err := s.generations.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find generation: %w", err)
	}
	if gen == nil {
		return nil, ErrNotFound
	}
	if gen.UserID != userID {
		return nil, ErrForbidden
	}
	return gen, nil
}
