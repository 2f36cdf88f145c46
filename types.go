package openmetrics

// MetricType is the declared type of a metric family, set by a TYPE
// descriptor (or MetricUnknown when none was seen).
type MetricType int

const (
	MetricUnknown MetricType = iota
	MetricCounter
	MetricGauge
	MetricHistogram
	MetricGaugeHistogram
	MetricStateSet
	MetricInfo
	MetricSummary
)

func (t MetricType) String() string {
	switch t {
	case MetricCounter:
		return "counter"
	case MetricGauge:
		return "gauge"
	case MetricHistogram:
		return "histogram"
	case MetricGaugeHistogram:
		return "gaugehistogram"
	case MetricStateSet:
		return "stateset"
	case MetricInfo:
		return "info"
	case MetricSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// SampleKind classifies a sample by its metric-name suffix and label
// set, the way the family builder needs to in order to apply
// per-type structural checks.
type SampleKind int

const (
	KindOther SampleKind = iota
	KindCount
	KindTotal
	KindSum
	KindGCount
	KindGSum
	KindBucket
	KindQuantile
)

// Exemplar is an optional pointer from a sample to a trace, carried on
// Histogram/GaugeHistogram _bucket samples and Counter _total samples.
type Exemplar struct {
	Labels    map[string]string
	Number    float64
	Timestamp *float64
}

// Sample is one data point within a metric family.
type Sample struct {
	// Name is the sample's own literal metric name as it appeared in
	// the exposition text (which may differ from its family's name,
	// e.g. "requests_total" within family "requests").
	Name string
	// Labels holds every label on the sample, including "le" and
	// "quantile" where present — they are not stripped out of the
	// general label set.
	Labels    map[string]string
	Number    float64
	Timestamp *float64
	Exemplar  *Exemplar

	Kind SampleKind
	// Threshold is the parsed "le" label value; meaningful only when
	// Kind == KindBucket.
	Threshold float64
	// Quantile is the parsed "quantile" label value; meaningful only
	// when Kind == KindQuantile.
	Quantile float64
}

// MetricFamily is one named, typed group of samples.
type MetricFamily struct {
	Type MetricType
	Help *string
	Unit *string
	// Samples preserves the order samples were encountered in.
	Samples []Sample
}

// MetricFamilies is the parsed result of a full exposition document,
// keyed by family name.
type MetricFamilies map[string]*MetricFamily
