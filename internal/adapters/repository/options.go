package repository

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithCapacity bounds the number of stored records. Once full, the record
// saved longest ago is evicted. Zero or negative means unbounded.
func WithCapacity(capacity int) Option {
	return func(s *TreapStore) {
		s.capacity = capacity
	}
}
