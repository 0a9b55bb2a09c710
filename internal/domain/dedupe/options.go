package dedupe

const defaultMaxSize = 100_000

// Option applies a configuration option to the in-memory Deduper.
type Option func(*hashSet)

// WithMaxSize bounds how many hashes are remembered.
// maxSize <= 0 disables eviction.
func WithMaxSize(maxSize int) Option {
	return func(d *hashSet) {
		d.maxSize = maxSize
	}
}
