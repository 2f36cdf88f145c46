package openmetrics

import (
	"math"
	"testing"
)

func TestScanMetricName(t *testing.T) {
	cases := []struct {
		in     string
		name   string
		rest   string
		wantOK bool
	}{
		{"foo_bar 1", "foo_bar", " 1", true},
		{"foo:bar{} 1", "foo:bar", "{} 1", true},
		{"_leading 1", "_leading", " 1", true},
		{"9nope", "", "", false},
		{"", "", "", false},
	}
	for _, c := range cases {
		name, rest, ok := scanMetricName(c.in)
		if ok != c.wantOK {
			t.Fatalf("scanMetricName(%q) ok = %v, want %v", c.in, ok, c.wantOK)
		}
		if !ok {
			continue
		}
		if name != c.name || rest != c.rest {
			t.Errorf("scanMetricName(%q) = (%q, %q), want (%q, %q)", c.in, name, rest, c.name, c.rest)
		}
	}
}

func TestScanFloatlike(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1", 1},
		{"-1.5", -1.5},
		{"+Inf", math.Inf(1)},
		{"Inf", math.Inf(1)},
		{"Infinity", math.Inf(1)},
		{"-Inf", math.Inf(-1)},
		{"-Infinity", math.Inf(-1)},
		{"1e10", 1e10},
	}
	for _, c := range cases {
		v, _, ok := scanFloatlike(c.in)
		if !ok {
			t.Fatalf("scanFloatlike(%q): not ok", c.in)
		}
		if v != c.want {
			t.Errorf("scanFloatlike(%q) = %v, want %v", c.in, v, c.want)
		}
	}

	if v, _, ok := scanFloatlike("NaN"); !ok || !math.IsNaN(v) {
		t.Errorf("scanFloatlike(NaN) = (%v, %v), want NaN", v, ok)
	}
	if v, _, ok := scanFloatlike("nan"); !ok || !math.IsNaN(v) {
		t.Errorf("scanFloatlike(nan) = (%v, %v), want NaN (case-insensitive)", v, ok)
	}

	if _, _, ok := scanFloatlike("inf"); ok {
		t.Errorf("scanFloatlike(inf) lowercase should not match the case-sensitive Inf spelling and should fall through to the numeric scanner, which should also fail")
	}
}

func TestScanRealNumberRejectsSpecialValues(t *testing.T) {
	for _, in := range []string{"NaN", "nan", "Inf", "inf", "-Inf", "+Infinity"} {
		if _, _, ok := scanRealNumber(in); ok {
			t.Errorf("scanRealNumber(%q) should reject non-finite spellings", in)
		}
	}
	if v, _, ok := scanRealNumber("123.5"); !ok || v != 123.5 {
		t.Errorf("scanRealNumber(123.5) = (%v, %v), want (123.5, true)", v, ok)
	}
}

func TestLexLabels(t *testing.T) {
	labels, rest, err := lexLabels(`{a="1",b="two words"} 5`)
	if err != nil {
		t.Fatalf("lexLabels: %v", err)
	}
	if rest != " 5" {
		t.Errorf("rest = %q, want %q", rest, " 5")
	}
	want := []rawLabel{{name: "a", value: "1"}, {name: "b", value: "two words"}}
	if len(labels) != len(want) {
		t.Fatalf("got %d labels, want %d", len(labels), len(want))
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("label[%d] = %+v, want %+v", i, labels[i], want[i])
		}
	}
}

func TestLexLabelsEmpty(t *testing.T) {
	labels, rest, err := lexLabels(`{} 5`)
	if err != nil {
		t.Fatalf("lexLabels: %v", err)
	}
	if labels != nil {
		t.Errorf("labels = %+v, want nil for an empty {}", labels)
	}
	if rest != " 5" {
		t.Errorf("rest = %q, want %q", rest, " 5")
	}
}

func TestTokenizeSimpleCounter(t *testing.T) {
	input := "# TYPE a counter\n# HELP a help\na_total 1\n# EOF"
	tokens, err := tokenize(input)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if len(tokens) != 4 {
		t.Fatalf("got %d tokens, want 4: %+v", len(tokens), tokens)
	}
	if _, ok := tokens[0].(typeToken); !ok {
		t.Errorf("tokens[0] = %T, want typeToken", tokens[0])
	}
	if _, ok := tokens[1].(helpToken); !ok {
		t.Errorf("tokens[1] = %T, want helpToken", tokens[1])
	}
	if _, ok := tokens[2].(sampleToken); !ok {
		t.Errorf("tokens[2] = %T, want sampleToken", tokens[2])
	}
	if _, ok := tokens[3].(eofToken); !ok {
		t.Errorf("tokens[3] = %T, want eofToken", tokens[3])
	}
}

func TestTokenizeAcceptsMissingEOF(t *testing.T) {
	_, err := tokenize("a_total 1\n")
	if err != nil {
		// A trailing blank final line (from the trailing \n) with no
		// "# EOF" yields a short token stream; the missing-EOF
		// failure is reported by buildFamilies, not tokenize.
		t.Fatalf("tokenize should not itself fail on a missing EOF, got: %v", err)
	}
}

func TestTokenizeRejectsGarbageFinalLine(t *testing.T) {
	_, err := tokenize("a_total 1\ngarbage")
	if err == nil {
		t.Fatalf("tokenize should reject a non-EOF, non-blank final line")
	}
}

func TestGaugehistogramBeforeGauge(t *testing.T) {
	tok, err := lexType("a gaugehistogram")
	if err != nil {
		t.Fatalf("lexType: %v", err)
	}
	tt := tok.(typeToken)
	if tt.metricType != MetricGaugeHistogram {
		t.Errorf("metricType = %v, want MetricGaugeHistogram", tt.metricType)
	}
}
