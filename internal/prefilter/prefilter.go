// Package prefilter rejects attempts that are grossly different from the
// lesson's reference recording before any per-syllable scoring runs.
package prefilter

import (
	"context"
	"log/slog"

	"github.com/nudiguru/nudiguru-api/internal/feature"
	"github.com/nudiguru/nudiguru-api/internal/scoring"
)

// Default thresholds for raw whole-clip MFCC DTW distance.
const (
	DefaultThreshold = 17500.0
	DefaultMargin    = 3000.0
)

// ReasonHighDistance is reported for rejected attempts.
const ReasonHighDistance = "high_distance"

// Verdict is the outcome class of a gross-distance check.
type Verdict string

// Verdict values.
const (
	VerdictAccept          Verdict = "accept"
	VerdictSomewhatSimilar Verdict = "somewhat_similar"
	VerdictReject          Verdict = "reject"
	// VerdictSkipped means the check could not be performed; the attempt
	// proceeds as if accepted.
	VerdictSkipped Verdict = "skipped"
)

// Outcome is the result of Check.
type Outcome struct {
	Verdict  Verdict
	Distance float64
	Reason   string
}

// Rejected reports whether scoring should be short-circuited.
func (o Outcome) Rejected() bool {
	return o.Verdict == VerdictReject
}

// Checker compares a whole user clip against a reference clip.
type Checker struct {
	extractor feature.Extractor[feature.Matrix]
	threshold float64
	margin    float64
	logger    *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithThreshold sets the accept threshold T.
func WithThreshold(t float64) Option {
	return func(c *Checker) {
		if t > 0 {
			c.threshold = t
		}
	}
}

// WithMargin sets the somewhat-similar band width above T.
func WithMargin(m float64) Option {
	return func(c *Checker) {
		if m >= 0 {
			c.margin = m
		}
	}
}

// NewChecker creates a Checker over an MFCC extractor.
func NewChecker(extractor feature.Extractor[feature.Matrix], logger *slog.Logger, opts ...Option) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Checker{
		extractor: extractor,
		threshold: DefaultThreshold,
		margin:    DefaultMargin,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify maps a raw distance to a verdict.
func (c *Checker) Classify(distance float64) Verdict {
	switch {
	case distance < c.threshold:
		return VerdictAccept
	case distance < c.threshold+c.margin:
		return VerdictSomewhatSimilar
	default:
		return VerdictReject
	}
}

// Check extracts features from both clips and classifies their raw DTW
// distance. Features are not normalized. Extraction failures are logged and
// yield VerdictSkipped.
func (c *Checker) Check(ctx context.Context, userClip, referenceClip string) Outcome {
	user, err := c.extractor.Extract(ctx, userClip)
	if err != nil {
		c.logger.Warn("prefilter skipped", "stage", "user", "error", err)
		return Outcome{Verdict: VerdictSkipped}
	}
	ref, err := c.extractor.Extract(ctx, referenceClip)
	if err != nil {
		c.logger.Warn("prefilter skipped", "stage", "reference", "error", err)
		return Outcome{Verdict: VerdictSkipped}
	}
	if _, uw := user.Shape(); len(ref) > 0 && len(ref[0]) != uw {
		c.logger.Warn("prefilter skipped", "stage", "compare", "user_coefficients", uw, "reference_coefficients", len(ref[0]))
		return Outcome{Verdict: VerdictSkipped}
	}

	distance := scoring.DTW(user, ref)
	out := Outcome{Verdict: c.Classify(distance), Distance: distance}
	if out.Rejected() {
		out.Reason = ReasonHighDistance
	}

	c.logger.Debug("prefilter checked", "distance", distance, "verdict", out.Verdict)
	return out
}
