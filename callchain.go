package treesearch

// chain wraps terminal in features, so that the first feature runs first and
// the last one calls terminal.
func chain(features []Feature, terminal FeatureFunc) FeatureFunc {
	next := terminal
	for i := len(features) - 1; i >= 0; i-- {
		next = func(f Feature, n FeatureFunc) FeatureFunc {
			return func(qb *QueryBuilder) (*Result, error) {
				return f.Process(qb, n)
			}
		}(features[i], next)
	}
	return next
}
