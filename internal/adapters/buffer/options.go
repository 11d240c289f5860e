package buffer

// Option applies a configuration option to the Buffer.
type Option func(*Buffer)

// WithInitialCapacity sets the capacity the accumulator slice starts with
// after creation and after every drain. Larger values trade memory for
// fewer growth reallocations under burst ingest.
func WithInitialCapacity(n int) Option {
	return func(b *Buffer) {
		if n > 0 {
			b.initialCapacity = n
		}
	}
}
