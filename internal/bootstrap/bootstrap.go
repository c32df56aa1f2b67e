// Package bootstrap provides dependency initialization for the NudiGuru API.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/nudiguru/nudiguru-api/internal/audio"
	"github.com/nudiguru/nudiguru-api/internal/battle"
	"github.com/nudiguru/nudiguru-api/internal/config"
	"github.com/nudiguru/nudiguru-api/internal/evaluation"
	"github.com/nudiguru/nudiguru-api/internal/feature"
	"github.com/nudiguru/nudiguru-api/internal/lesson"
	"github.com/nudiguru/nudiguru-api/internal/observe"
	"github.com/nudiguru/nudiguru-api/internal/pipeline"
	"github.com/nudiguru/nudiguru-api/internal/prefilter"
	"github.com/nudiguru/nudiguru-api/internal/reference"
	"github.com/nudiguru/nudiguru-api/internal/scoring"
	"github.com/nudiguru/nudiguru-api/internal/storage"
	"github.com/nudiguru/nudiguru-api/internal/templates"
	"github.com/nudiguru/nudiguru-api/internal/tts"
)

// normalizedSampleRate is the rate uploads are resampled to before scoring.
const normalizedSampleRate = 16000

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Catalog    *lesson.Catalog
	Evaluation *evaluation.Service
	References *reference.Provider
	Battle     *battle.Coordinator

	closers []func()
}

// Close releases resources held by the dependencies.
func (d *Dependencies) Close() {
	for _, c := range d.closers {
		c()
	}
}

// banks holds whichever template stores could be loaded.
type banks struct {
	sequence *templates.Store[feature.Matrix]
	vector   *templates.Store[feature.Vector]
}

// NewDependencies creates and initializes all dependencies for the application.
// Missing optional collaborators (template banks, feature service, TTS) leave
// the corresponding capability disabled rather than failing startup.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observe.Metrics) (*Dependencies, error) {
	if metrics == nil {
		metrics = observe.Noop()
	}
	deps := &Dependencies{}

	// Initialize lesson catalog
	catalog, err := lesson.LoadOrDefault(cfg.LessonsFile)
	if err != nil {
		return nil, fmt.Errorf("load lessons: %w", err)
	}
	deps.Catalog = catalog
	logger.Info("lesson catalog loaded", slog.Int("lessons", catalog.Len()))

	// Initialize temp storage for uploads
	temp, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}

	// Initialize template banks
	b, err := loadBanks(ctx, cfg, logger, deps)
	if err != nil {
		deps.Close()
		return nil, err
	}

	// Initialize feature client and pipelines
	var (
		pipelines []pipeline.Runner
		checker   *prefilter.Checker
	)
	if cfg.FeatureServiceEnabled() {
		client, err := feature.NewClient(cfg.FeatureServiceURL, feature.WithAPIKey(cfg.FeatureAPIKey))
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("create feature client: %w", err)
		}
		pipelines = buildPipelines(cfg, client, b, temp.TempDir(), logger)
		if cfg.PrefilterEnabled {
			checker = prefilter.NewChecker(
				feature.NewMatrixExtractor(client, feature.KindMFCC),
				logger,
				prefilter.WithThreshold(cfg.PrefilterThreshold),
				prefilter.WithMargin(cfg.PrefilterMargin),
			)
		}
	} else {
		logger.Warn("FEATURE_SERVICE_URL not set; scoring disabled")
	}

	// Initialize reference audio provider
	refs, err := initReferences(ctx, cfg, catalog, logger, metrics)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.References = refs

	// Initialize evaluation service
	evalOpts := []evaluation.Option{evaluation.WithMetrics(metrics)}
	if cfg.NormalizeAudio {
		evalOpts = append(evalOpts, evaluation.WithNormalizer(audio.NewFFmpegNormalizer(cfg.FFmpegPath, normalizedSampleRate)))
	}
	if checker != nil {
		evalOpts = append(evalOpts, evaluation.WithPrefilter(refs, checker))
	}
	deps.Evaluation = evaluation.NewService(catalog, temp, pipelines, logger, evalOpts...)

	// Initialize battle coordinator
	policy, err := battle.ParsePolicy(cfg.BattleLessonPolicy)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("battle policy: %w", err)
	}
	deps.Battle = battle.NewCoordinator(
		battle.NewMemoryRepository(),
		catalog,
		deps.Evaluation,
		logger,
		battle.WithPolicy(policy),
		battle.WithMetrics(metrics),
	)

	logger.Info("dependencies initialized",
		slog.Any("pipelines", deps.Evaluation.Pipelines()),
		slog.Bool("prefilter", checker != nil),
		slog.Bool("tts", refs.SynthesisEnabled()),
	)
	return deps, nil
}

// loadBanks loads template banks from Postgres when TEMPLATES_DSN is set,
// otherwise from the configured JSON files.
func loadBanks(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *Dependencies) (banks, error) {
	var b banks

	if cfg.TemplatesDSN != "" {
		src, err := templates.NewPostgresSource(ctx, cfg.TemplatesDSN)
		if err != nil {
			return b, fmt.Errorf("connect template database: %w", err)
		}
		deps.closers = append(deps.closers, src.Close)

		if b.sequence, err = src.LoadMatrices(ctx); err != nil {
			return b, fmt.Errorf("load sequence templates: %w", err)
		}
		if b.vector, err = src.LoadVectors(ctx); err != nil {
			return b, fmt.Errorf("load vector templates: %w", err)
		}
		logBank(logger, b.sequence.Name(), "postgres", b.sequence.Stats())
		logBank(logger, b.vector.Name(), "postgres", b.vector.Stats())
		return b, nil
	}

	if cfg.SequenceTemplates != "" {
		s, err := templates.LoadMatrixFile(cfg.SequenceTemplates)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Warn("sequence template bank not found; pipeline disabled",
				slog.String("path", cfg.SequenceTemplates))
		case err != nil:
			return b, fmt.Errorf("load sequence templates: %w", err)
		default:
			b.sequence = s
			logBank(logger, s.Name(), cfg.SequenceTemplates, s.Stats())
		}
	}

	if cfg.VectorTemplates != "" {
		v, err := templates.LoadVectorFile(cfg.VectorTemplates)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Warn("vector template bank not found; pipeline disabled",
				slog.String("path", cfg.VectorTemplates))
		case err != nil:
			return b, fmt.Errorf("load vector templates: %w", err)
		default:
			b.vector = v
			logBank(logger, v.Name(), cfg.VectorTemplates, v.Stats())
		}
	}

	return b, nil
}

func logBank(logger *slog.Logger, name, source string, st templates.Stats) {
	logger.Info("template bank loaded",
		slog.String("bank", name),
		slog.String("source", source),
		slog.Int("lessons", st.Lessons),
		slog.Int("syllables", st.Syllables),
		slog.Int("references", st.References),
		slog.Int("empty", st.Empty),
	)
}

// buildPipelines assembles a Runner for every bank that loaded with content.
func buildPipelines(cfg *config.Config, client *feature.Client, b banks, tempDir string, logger *slog.Logger) []pipeline.Runner {
	segmenter := audio.NewProportionalSegmenter()
	var runners []pipeline.Runner

	if b.sequence != nil && b.sequence.Stats().Lessons > 0 {
		runners = append(runners, pipeline.NewEvaluator(
			pipeline.NameSequence,
			segmenter,
			feature.NewMatrixExtractor(client, feature.KindLogMel),
			scoring.NewSequenceScorer(cfg.SequenceThreshold),
			b.sequence,
			logger,
			pipeline.WithGain(cfg.SequenceGain),
			pipeline.WithTempDir(tempDir),
		))
	}

	if b.vector != nil && b.vector.Stats().Lessons > 0 {
		runners = append(runners, pipeline.NewEvaluator(
			pipeline.NameVector,
			segmenter,
			feature.NewVectorExtractor(client, feature.KindEmbedding),
			scoring.NewVectorScorer(cfg.VectorThreshold),
			b.vector,
			logger,
			pipeline.WithTempDir(tempDir),
		))
	}

	return runners
}

// initReferences creates the reference provider backed by S3 when configured,
// otherwise by a local cache directory.
func initReferences(ctx context.Context, cfg *config.Config, catalog *lesson.Catalog, logger *slog.Logger, metrics *observe.Metrics) (*reference.Provider, error) {
	cache, err := initCache(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := []reference.Option{reference.WithMetrics(metrics)}

	if cfg.TTSEnabled() {
		client, err := tts.NewCoquiClient(cfg.TTSURL, tts.WithLanguage(cfg.TTSLanguage))
		if err != nil {
			return nil, fmt.Errorf("create TTS client: %w", err)
		}
		if err := client.Ping(ctx); err != nil {
			logger.Warn("TTS server not reachable; synthesis will be attempted per request",
				slog.String("url", cfg.TTSURL),
				slog.String("error", err.Error()),
			)
		}
		opts = append(opts, reference.WithSynthesizer(client, cfg.TTSSpeaker))
	}

	if cfg.ReferenceFallbackDir != "" {
		fallback, err := storage.NewLocalObjectStore(cfg.ReferenceFallbackDir)
		if err != nil {
			return nil, fmt.Errorf("create fallback store: %w", err)
		}
		opts = append(opts, reference.WithFallback(fallback))
	}

	return reference.NewProvider(catalog, cache, logger, opts...), nil
}

// initCache creates the appropriate reference cache backend based on configuration.
func initCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.ObjectStore, error) {
	if cfg.S3Enabled() {
		s3Store, err := storage.NewS3ObjectStore(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Prefix:          cfg.S3Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 reference cache: %w", err)
		}
		logger.Info("S3 reference cache configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	local, err := storage.NewLocalObjectStore(cfg.ReferenceCacheDir)
	if err != nil {
		return nil, fmt.Errorf("create local reference cache: %w", err)
	}
	logger.Info("local reference cache configured",
		slog.String("dir", cfg.ReferenceCacheDir),
	)
	return local, nil
}
