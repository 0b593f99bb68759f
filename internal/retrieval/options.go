package retrieval

// SearchOption customizes a single Search call.
type SearchOption func(*searchOptions)

type searchOptions struct {
	strategy  Strategy
	queryText string
	weights   *FusionWeights
}

// WithStrategy overrides the engine's default strategy for one call.
func WithStrategy(s Strategy) SearchOption {
	return func(o *searchOptions) {
		o.strategy = s
	}
}

// WithQueryText supplies the free-text form of the query. The adaptive
// strategy uses it to choose a route; it is otherwise ignored.
func WithQueryText(text string) SearchOption {
	return func(o *searchOptions) {
		o.queryText = text
	}
}

// WithFusionWeights overrides the configured fusion weights for one call.
func WithFusionWeights(w FusionWeights) SearchOption {
	return func(o *searchOptions) {
		o.weights = &w
	}
}
