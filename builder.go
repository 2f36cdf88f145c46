package openmetrics

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// conflictSuffixes are the canonical sample-name suffixes a
// MetricFamily name must not collide with, per the OpenMetrics text
// format's name-clash rule (e.g. a Counter "foo" text-format sample
// is "foo_total", so a family literally named "foo_total" would
// collide with it).
var conflictSuffixes = []string{
	"_bucket", "_count", "_created", "_gcount", "_gsum", "_info", "_sum", "_total",
}

var escapeSeqRE = regexp.MustCompile(`\\[n"\\]`)

// unescapeString substitutes \n, \" and \\; any other backslash
// escape is left exactly as written, including the backslash.
func unescapeString(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	return escapeSeqRE.ReplaceAllStringFunc(s, func(m string) string {
		switch m {
		case `\n`:
			return "\n"
		case `\"`:
			return `"`
		case `\\`:
			return `\`
		default:
			return m
		}
	})
}

// convertLabels applies the label length cap and unescaping, and
// rejects a duplicate label name within one label set.
func convertLabels(raw []rawLabel, opts Options) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	labels := make(map[string]string, len(raw))
	for _, l := range raw {
		if opts.NaiveWideCharSupport {
			if len(l.name)+len(l.value) > 256 {
				return nil, parseError(ErrBadLabelTooLong, "label %q exceeds 256 bytes", l.name)
			}
		} else {
			if len(l.name)+utf8.RuneCountInString(l.value) > 128 {
				return nil, parseError(ErrBadLabelTooLong, "label %q exceeds 128 characters", l.name)
			}
		}
		if _, exists := labels[l.name]; exists {
			return nil, parseError(ErrDuplicateMeta, "duplicate label %q", l.name)
		}
		labels[l.name] = unescapeString(l.value)
	}
	return labels, nil
}

func convertExemplar(raw *rawExemplar, opts Options) (*Exemplar, error) {
	if raw == nil {
		return nil, nil
	}
	labels, err := convertLabels(raw.labels, opts)
	if err != nil {
		return nil, err
	}
	ex := &Exemplar{Labels: labels, Number: raw.number}
	if raw.hasTimestamp {
		ts := raw.timestamp
		ex.Timestamp = &ts
	}
	return ex, nil
}

// classifySample determines a sample's SampleKind from its name
// suffix (or "quantile" label), applying each kind's own numeric
// validity rules along the way.
func classifySample(name string, labels map[string]string, number float64) (kind SampleKind, threshold, quantile float64, err error) {
	switch {
	case strings.HasSuffix(name, "_bucket"):
		thresholdStr, ok := labels["le"]
		if !ok {
			return 0, 0, 0, parseError(ErrBadBucket, "bucket sample %q missing a %q label", name, "le")
		}
		var t float64
		if thresholdStr == "+Inf" {
			t = math.Inf(1)
		} else {
			v, perr := strconv.ParseFloat(thresholdStr, 64)
			if perr != nil {
				return 0, 0, 0, parseError(ErrBadBucket, "bucket sample %q has an unparseable %q label %q", name, "le", thresholdStr)
			}
			if math.IsInf(v, 0) {
				return 0, 0, 0, parseError(ErrBadBucket, "bucket sample %q must spell infinity as \"+Inf\"", name)
			}
			t = v
		}
		if number < 0 {
			return 0, 0, 0, parseError(ErrBadHistogram, "bucket sample %q has a negative value", name)
		}
		if math.IsInf(number, 0) || math.IsNaN(number) {
			return 0, 0, 0, parseError(ErrBadHistogram, "bucket sample %q has a non-finite value", name)
		}
		if math.IsNaN(t) {
			return 0, 0, 0, parseError(ErrBadBucket, "bucket sample %q has a NaN %q label", name, "le")
		}
		return KindBucket, t, 0, nil

	case strings.HasSuffix(name, "_count"):
		if number < 0 || math.IsNaN(number) {
			return 0, 0, 0, parseError(ErrBadHistogram, "count sample %q has a negative or NaN value", name)
		}
		return KindCount, 0, 0, nil

	case strings.HasSuffix(name, "_total"):
		if math.IsNaN(number) || number < 0 {
			return 0, 0, 0, parseError(ErrBadCounter, "total sample %q has a negative or NaN value", name)
		}
		return KindTotal, 0, 0, nil

	case strings.HasSuffix(name, "_sum"):
		if math.IsNaN(number) {
			return 0, 0, 0, parseError(ErrBadCounter, "sum sample %q is NaN", name)
		}
		return KindSum, 0, 0, nil

	case strings.HasSuffix(name, "_gcount"):
		return KindGCount, 0, 0, nil

	case strings.HasSuffix(name, "_gsum"):
		if math.IsNaN(number) {
			return 0, 0, 0, parseError(ErrBadCounter, "gauge sum sample %q is NaN", name)
		}
		return KindGSum, 0, 0, nil

	default:
		if q, ok := labels["quantile"]; ok {
			v, perr := strconv.ParseFloat(q, 64)
			if perr != nil || math.IsNaN(v) || v < 0 || v > 1 {
				return 0, 0, 0, parseError(ErrBadQuantile, "sample %q has an invalid %q label %q", name, "quantile", q)
			}
			return KindQuantile, 0, v, nil
		}
		return KindOther, 0, 0, nil
	}
}

func convertSample(t sampleToken, opts Options) (Sample, error) {
	labels, err := convertLabels(t.labels, opts)
	if err != nil {
		return Sample{}, err
	}
	exemplar, err := convertExemplar(t.exemplar, opts)
	if err != nil {
		return Sample{}, err
	}
	kind, threshold, quantile, err := classifySample(t.name, labels, t.number)
	if err != nil {
		return Sample{}, err
	}

	s := Sample{
		Name:      t.name,
		Labels:    labels,
		Number:    t.number,
		Exemplar:  exemplar,
		Kind:      kind,
		Threshold: threshold,
		Quantile:  quantile,
	}
	if t.hasTimestamp {
		ts := t.timestamp
		s.Timestamp = &ts
	}
	return s, nil
}

// builderFlags accumulates per-family bookkeeping across samples,
// reset on every finalizeFamily call.
type builderFlags struct {
	hasBucket    bool
	hasInfBucket bool
	hasNegBucket bool
	hasTotal     bool
	hasCount     bool
	hasGCount    bool
	hasGSum      bool
	hasSum       bool
}

// builder folds a token stream into a validated MetricFamilies map.
// It mutates in place (the idiomatic Go rendering of the
// self-consuming fold the original Rust Builder performs).
type builder struct {
	opts     Options
	families MetricFamilies

	hasName bool
	name    string

	hasHelp bool
	help    string

	hasUnit bool
	unit    string

	hasType    bool
	metricType MetricType

	samples []Sample
	hasEOF  bool
	flags   builderFlags
}

func newBuilder(opts Options) *builder {
	return &builder{opts: opts, families: MetricFamilies{}}
}

// setName is the family-name transition: a sample or descriptor only
// seeds a fresh pending family when none is currently open; otherwise
// a differing name finalizes the open family before starting a new
// one. See DESIGN.md for why this is not a "finalize on any mismatch"
// rule.
func (b *builder) setName(name string) error {
	if b.hasEOF {
		return parseError(ErrEOF, "descriptor or sample after \"# EOF\"")
	}
	if !b.hasName {
		b.name = name
		b.hasName = true
		return nil
	}
	if b.name != name {
		return b.finalizeFamily(name, true)
	}
	return nil
}

func (b *builder) isMetaAllowable() error {
	if b.hasEOF {
		return parseError(ErrEOF, "descriptor after \"# EOF\"")
	}
	if len(b.samples) > 0 {
		return parseError(ErrDuplicateMeta, "metadata for %q follows samples already collected for it", b.name)
	}
	return nil
}

func (b *builder) handleType(t typeToken) error {
	if err := b.setName(t.name); err != nil {
		return err
	}
	if err := b.isMetaAllowable(); err != nil {
		return err
	}
	if b.hasType {
		return parseError(ErrDuplicateMeta, "duplicate TYPE for %q", b.name)
	}
	b.metricType = t.metricType
	b.hasType = true
	return nil
}

func (b *builder) handleHelp(t helpToken) error {
	if err := b.setName(t.name); err != nil {
		return err
	}
	if err := b.isMetaAllowable(); err != nil {
		return err
	}
	if b.hasHelp {
		return parseError(ErrDuplicateMeta, "duplicate HELP for %q", b.name)
	}
	b.help = t.text
	b.hasHelp = true
	return nil
}

func (b *builder) handleUnit(t unitToken) error {
	if err := b.setName(t.name); err != nil {
		return err
	}
	if err := b.isMetaAllowable(); err != nil {
		return err
	}
	if b.hasUnit {
		return parseError(ErrDuplicateMeta, "duplicate UNIT for %q", b.name)
	}
	b.unit = t.unit
	b.hasUnit = true
	return nil
}

func (b *builder) handleSample(t sampleToken) error {
	if b.hasEOF {
		return parseError(ErrEOF, "sample after \"# EOF\"")
	}
	if !b.hasName {
		if err := b.setName(t.name); err != nil {
			return err
		}
	}

	sample, err := convertSample(t, b.opts)
	if err != nil {
		return err
	}

	if sample.Exemplar != nil {
		switch {
		case strings.HasSuffix(sample.Name, "_bucket") &&
			(b.metricType == MetricHistogram || b.metricType == MetricGaugeHistogram):
		case strings.HasSuffix(sample.Name, "_total") && b.metricType == MetricCounter:
		default:
			return parseError(ErrBadSuffix, "exemplar on %q is not permitted for its metric type", sample.Name)
		}
	}

	familyName := b.name
	switch b.metricType {
	case MetricInfo:
		if !(strings.HasPrefix(sample.Name, familyName) && strings.HasSuffix(sample.Name, "_info")) {
			return parseError(ErrBadInfo, "info sample %q does not carry family name %q with an _info suffix", sample.Name, familyName)
		}
		if _, ok := sample.Labels[familyName]; !ok {
			return parseError(ErrBadInfo, "info sample %q is missing a %q label", sample.Name, familyName)
		}
		if sample.Number != 1 {
			return parseError(ErrBadInfo, "info sample %q must have value 1", sample.Name)
		}
	case MetricStateSet:
		if sample.Name != familyName {
			return parseError(ErrBadStateSet, "stateset sample name %q must equal family name %q", sample.Name, familyName)
		}
		if _, ok := sample.Labels[familyName]; !ok {
			return parseError(ErrBadStateSet, "stateset sample %q is missing a %q label", sample.Name, familyName)
		}
		if sample.Number != 1 && sample.Number != 0 {
			return parseError(ErrBadStateSet, "stateset sample %q must have value 0 or 1", sample.Name)
		}
	case MetricSummary:
		_, hasQuantile := sample.Labels["quantile"]
		if !strings.HasSuffix(sample.Name, "_count") &&
			!strings.HasSuffix(sample.Name, "_sum") &&
			!strings.HasSuffix(sample.Name, "_created") &&
			!(sample.Name == familyName && hasQuantile) {
			return parseError(ErrBadSummary, "summary sample %q is not a recognized summary member", sample.Name)
		}
	}

	switch sample.Kind {
	case KindBucket:
		b.flags.hasBucket = true
		if math.IsInf(sample.Threshold, 1) {
			b.flags.hasInfBucket = true
		} else if sample.Threshold < 0 {
			b.flags.hasNegBucket = true
		}
	case KindCount:
		b.flags.hasCount = true
	case KindTotal:
		b.flags.hasTotal = true
	case KindGCount:
		b.flags.hasGCount = true
	case KindSum:
		if b.metricType == MetricSummary && sample.Number < 0 {
			return parseError(ErrBadCounter, "summary sum sample %q is negative", sample.Name)
		} else if b.flags.hasNegBucket {
			return parseError(ErrBadHistogram, "histogram sum sample %q follows a negative bucket", sample.Name)
		}
		b.flags.hasSum = true
	case KindGSum:
		if sample.Number < 0 && !b.flags.hasNegBucket {
			return parseError(ErrBadCounter, "gauge sum sample %q is negative with no negative bucket", sample.Name)
		}
		b.flags.hasGSum = true
	default:
		if _, ok := sample.Labels["quantile"]; ok && sample.Number < 0 {
			return parseError(ErrBadCounter, "quantile sample %q is negative", sample.Name)
		}
	}

	b.samples = append(b.samples, sample)
	return nil
}

func (b *builder) handleEOF() error {
	b.hasEOF = true
	return nil
}

// finalizeFamily closes out the currently pending family (if any),
// running the optional interleave/monotonic checks and the per-type
// structural checks, then resets the builder to start the next
// family — newName/hasNewName, when hasNewName is true, seed the
// builder's next pending name the way a differing descriptor name
// does.
func (b *builder) finalizeFamily(newName string, hasNewName bool) error {
	if b.opts.NoInterleaveMetric {
		if err := checkNoInterleave(b.samples, b.opts); err != nil {
			return err
		}
	}
	if b.opts.EnforceTimestampMonotonic {
		if err := checkTimestampMonotonic(b.samples, b.opts); err != nil {
			return err
		}
	}

	if b.hasName {
		for _, suffix := range conflictSuffixes {
			if _, exists := b.families[b.name+suffix]; exists {
				return parseError(ErrNameConflict, "family %q conflicts with existing family %q", b.name, b.name+suffix)
			}
		}
	}

	switch b.metricType {
	case MetricHistogram:
		if err := checkHistogram(b); err != nil {
			return err
		}
	case MetricGaugeHistogram:
		if !b.flags.hasBucket || !b.flags.hasInfBucket {
			return parseError(ErrBadHistogram, "gaugehistogram family %q has no +Inf bucket", b.name)
		}
		if b.flags.hasGCount != b.flags.hasGSum {
			return parseError(ErrBadHistogram, "gaugehistogram family %q must have both _gcount and _gsum, or neither", b.name)
		}
	case MetricCounter:
		if len(b.samples) > 0 && !b.flags.hasTotal {
			return parseError(ErrBadCounter, "counter family %q has samples but no _total sample", b.name)
		}
	}

	var helpPtr *string
	if b.hasHelp {
		h := unescapeString(b.help)
		helpPtr = &h
	}
	var unitPtr *string
	if b.hasUnit {
		u := b.unit
		unitPtr = &u
	}

	family := &MetricFamily{
		Type:    b.metricType,
		Help:    helpPtr,
		Unit:    unitPtr,
		Samples: b.samples,
	}

	if b.hasName {
		b.families[b.name] = family
		if b.opts.Logger != nil {
			b.opts.Logger.Debug("openmetrics: family finalized", "name", b.name, "type", b.metricType.String(), "samples", len(b.samples))
		}
	}

	opts, families := b.opts, b.families
	*b = builder{opts: opts, families: families}
	if hasNewName {
		b.name = newName
		b.hasName = true
	}
	return nil
}

// checkHistogram enforces bucket presence/order/monotonicity. Buckets
// are checked in the order they were encountered in the exposition
// text, not grouped by any non-"le" labels the family's samples might
// also carry — matching the reference implementation's own
// family-wide (not per-series) bucket scan.
func checkHistogram(b *builder) error {
	if !b.flags.hasBucket {
		return parseError(ErrBadHistogram, "histogram family %q has no bucket samples", b.name)
	}
	if !b.flags.hasInfBucket {
		return parseError(ErrBadHistogram, "histogram family %q has no +Inf bucket", b.name)
	}
	if b.flags.hasNegBucket && b.flags.hasSum {
		return parseError(ErrBadHistogram, "histogram family %q has both a negative bucket and a _sum sample", b.name)
	}
	if b.flags.hasSum != b.flags.hasCount {
		return parseError(ErrBadHistogram, "histogram family %q must have both _sum and _count, or neither", b.name)
	}
	if b.flags.hasCount && b.opts.ValidateHistogramCount {
		var counts []float64
		for _, s := range b.samples {
			if (s.Kind == KindBucket && math.IsInf(s.Threshold, 1)) || s.Kind == KindCount {
				counts = append(counts, s.Number)
			}
		}
		if len(counts) != 2 || counts[0] != counts[1] {
			return parseError(ErrBadHistogram, "histogram family %q: _count must equal the +Inf bucket value", b.name)
		}
	}

	var buckets []Sample
	for _, s := range b.samples {
		if s.Kind == KindBucket {
			buckets = append(buckets, s)
		}
	}

	acc := 0.0
	for _, s := range buckets {
		if s.Number < acc {
			return parseError(ErrBadCounter, "histogram family %q bucket values must be non-decreasing", b.name)
		}
		acc = s.Number
	}

	acc = 0.0
	for i, s := range buckets {
		last := i == len(buckets)-1
		switch {
		case i == 0 && last:
			if !math.IsInf(s.Threshold, 1) {
				return parseError(ErrBadBucketOrder, "histogram family %q's only bucket must be +Inf", b.name)
			}
		case i == 0:
			acc = s.Threshold
		case last:
			if !math.IsInf(s.Threshold, 1) {
				return parseError(ErrBadBucketOrder, "histogram family %q's last bucket must be +Inf", b.name)
			}
		default:
			if s.Threshold <= acc {
				return parseError(ErrBadBucketOrder, "histogram family %q buckets must be sorted by increasing \"le\"", b.name)
			}
			acc = s.Threshold
		}
	}
	return nil
}

func checkNoInterleave(samples []Sample, opts Options) error {
	seen := make(map[uint64]bool, len(samples))
	var lastKey uint64
	hasLast := false
	for _, s := range samples {
		key := labelSignature(s.Labels, opts)
		if hasLast && lastKey != key && seen[key] {
			return parseError(ErrInterleave, "label set reappeared after a different label set was seen")
		}
		seen[key] = true
		lastKey = key
		hasLast = true
	}
	return nil
}

func checkTimestampMonotonic(samples []Sample, opts Options) error {
	var curID string
	haveCur := false
	var curTS *float64
	for _, s := range samples {
		newID := s.Name + "\x00" + strconv.FormatUint(labelSignature(s.Labels, opts), 16)
		if !haveCur || curID != newID {
			curID = newID
			haveCur = true
			curTS = s.Timestamp
			continue
		}
		if curTS == nil || s.Timestamp == nil {
			return parseError(ErrBadTimestampOutOfOrder, "sample %q is missing a timestamp within a timestamped run", s.Name)
		}
		if *s.Timestamp < *curTS {
			return parseError(ErrBadTimestampOutOfOrder, "sample %q timestamps must be non-decreasing", s.Name)
		}
		curTS = s.Timestamp
	}
	return nil
}

// finalize closes out any still-pending family and returns the
// accumulated result. An exposition stream that never reached "# EOF"
// is incomplete and reports ErrEOF.
func (b *builder) finalize() (MetricFamilies, error) {
	if !b.hasEOF {
		return nil, parseError(ErrEOF, "input did not end with \"# EOF\"")
	}
	if err := b.finalizeFamily("", false); err != nil {
		return nil, err
	}
	return b.families, nil
}

// buildFamilies folds a lexed token stream into a validated
// MetricFamilies map, the Go equivalent of parser.rs's top-level
// try_fold over Builder.
func buildFamilies(tokens []token, opts Options) (MetricFamilies, error) {
	b := newBuilder(opts)
	for _, tok := range tokens {
		var err error
		switch v := tok.(type) {
		case typeToken:
			err = b.handleType(v)
		case helpToken:
			err = b.handleHelp(v)
		case unitToken:
			err = b.handleUnit(v)
		case sampleToken:
			err = b.handleSample(v)
		case eofToken:
			err = b.handleEOF()
		case emptyToken:
			// A blank line is always a no-op, regardless of where in
			// the stream it appears.
		}
		if err != nil {
			if opts.Logger != nil {
				opts.Logger.Warn("openmetrics: parse aborted", "error", err)
			}
			return nil, err
		}
	}
	return b.finalize()
}
