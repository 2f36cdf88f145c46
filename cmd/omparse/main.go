// Command omparse parses an OpenMetrics text exposition file and
// prints a one-line summary of each metric family it contains.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/alecthomas/kingpin/v2"

	openmetrics "github.com/openmetrics-go/parser"
)

var (
	app  = kingpin.New("omparse", "Parse and validate an OpenMetrics text exposition file.")
	path = app.Arg("file", "path to an OpenMetrics exposition file").Required().String()

	noInterleave           = app.Flag("no-interleave-metric", "reject a label set that reappears after a different one").Bool()
	enforceMonotonic       = app.Flag("enforce-timestamp-monotonic", "require non-decreasing timestamps within a series").Bool()
	validateHistogramCount = app.Flag("validate-histogram-count", "require _count to equal the +Inf bucket value").Bool()
	naiveLabelHash         = app.Flag("naive-label-hash", "accepted for config compatibility; has no effect (labels are always sorted)").Bool()
	hashFNV                = app.Flag("hash-fnv", "use FNV-1a instead of the default label-set signature").Bool()
	naiveWideCharSupport   = app.Flag("naive-wide-char-support", "relax the label length cap to 256 bytes").Bool()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	data, err := os.ReadFile(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	opts := openmetrics.Options{
		NoInterleaveMetric:        *noInterleave,
		EnforceTimestampMonotonic: *enforceMonotonic,
		ValidateHistogramCount:    *validateHistogramCount,
		NaiveLabelHash:            *naiveLabelHash,
		HashFNV:                   *hashFNV,
		NaiveWideCharSupport:      *naiveWideCharSupport,
	}

	families, err := openmetrics.Parse(string(data), openmetrics.WithOptions(opts))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		mf := families[name]
		help := ""
		if mf.Help != nil {
			help = *mf.Help
		}
		fmt.Printf("%-32s %-14s samples=%-4d %s\n", name, mf.Type, len(mf.Samples), help)
	}
}
