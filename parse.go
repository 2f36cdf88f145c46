package openmetrics

// Parse lexes and validates a complete OpenMetrics text exposition
// document, returning its metric families or the first ParseError
// encountered. Parsing is eager and fail-fast: no partial result is
// ever returned alongside an error.
func Parse(input string, opts ...Option) (MetricFamilies, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	tokens, err := tokenize(input)
	if err != nil {
		if o.Logger != nil {
			o.Logger.Warn("openmetrics: lex aborted", "error", err)
		}
		return nil, err
	}

	families, err := buildFamilies(tokens, o)
	if err != nil {
		return nil, err
	}

	if o.Logger != nil {
		o.Logger.Debug("openmetrics: parse complete", "families", len(families))
	}
	return families, nil
}
