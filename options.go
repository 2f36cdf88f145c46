package openmetrics

import (
	"io"
	"log/slog"

	yaml "go.yaml.in/yaml/v2"
)

// Options holds the stricter-than-default conformance switches the
// OpenMetrics reference implementation gates behind build features.
// Every switch defaults to off, matching the reference's default
// feature set.
type Options struct {
	// NoInterleaveMetric rejects a family whose samples revisit a
	// label set after a different label set has already appeared
	// in between (run-length interleaving).
	NoInterleaveMetric bool `yaml:"no_interleave_metric"`
	// EnforceTimestampMonotonic rejects a (sample name, label set)
	// run whose explicit timestamps are not non-decreasing.
	EnforceTimestampMonotonic bool `yaml:"enforce_timestamp_monotonic"`
	// ValidateHistogramCount requires, when both present, that a
	// family's _count sample equal its +Inf _bucket sample.
	ValidateHistogramCount bool `yaml:"validate_histogram_count"`
	// NaiveLabelHash is accepted for config-schema compatibility with
	// the reference implementation's build-time feature of the same
	// name, but is otherwise a no-op here: label names are always
	// sorted before a label-set signature is computed, in either mode.
	// The reference's "naive" mode iterates its label map in
	// whatever order that map's own (per-instance, but repeat-stable)
	// hasher state produces; Go gives no such guarantee — a map range
	// is reshuffled on every iteration, even over the same map — so
	// reproducing the reference's naive ordering would make the
	// checks it feeds (NoInterleaveMetric, EnforceTimestampMonotonic)
	// silently stop detecting real violations. See DESIGN.md.
	NaiveLabelHash bool `yaml:"naive_label_hash"`
	// HashFNV selects an FNV-1a label-set signature instead of the
	// default hash. Affects collision characteristics only.
	HashFNV bool `yaml:"hash_fnv"`
	// NaiveWideCharSupport relaxes the label length cap from 128
	// Unicode scalars to 256 bytes.
	NaiveWideCharSupport bool `yaml:"naive_wide_char_support"`

	// Logger, when set, receives debug-level events at family
	// finalization and a warn-level event when a parse aborts with
	// an error. Nil disables logging entirely.
	Logger *slog.Logger `yaml:"-"`
}

// DefaultOptions returns the zero-value Options: every stricter switch
// off, no logger attached.
func DefaultOptions() Options {
	return Options{}
}

// LoadOptionsYAML reads an Options value from YAML, e.g. a parser
// configuration file shipped alongside a scrape pipeline.
func LoadOptionsYAML(r io.Reader) (Options, error) {
	opts := DefaultOptions()
	data, err := io.ReadAll(r)
	if err != nil {
		return opts, err
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, err
	}
	return opts, nil
}

// Option configures a single Parse call.
type Option func(*Options)

// WithOptions overrides every stricter-conformance switch at once.
func WithOptions(o Options) Option {
	return func(dst *Options) {
		logger := dst.Logger
		*dst = o
		if dst.Logger == nil {
			dst.Logger = logger
		}
	}
}

// WithLogger attaches a logger without touching any conformance switch.
func WithLogger(l *slog.Logger) Option {
	return func(dst *Options) { dst.Logger = l }
}
