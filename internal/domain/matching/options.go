package matching

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithLimit sets how many candidates Score returns. Values < 1 are ignored.
func WithLimit(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.limit = n
		}
	}
}
