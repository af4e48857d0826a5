package lattice

// AccessibleFragment pairs a fragment identity with typed access into its
// column. The schema assigns the identity a stable bit; the column itself is
// created lazily by the world on first attachment.
type AccessibleFragment[T any] struct {
	Fragment
	clone func(dst, src *T)
}

// FragmentOption configures a fragment at creation time.
type FragmentOption[T any] func(*AccessibleFragment[T])

// WithClone supplies a deep-copy function for fragments whose fields hold
// slices, maps, or other reference types. Plain value fields never need one.
func WithClone[T any](fn func(dst, src *T)) FragmentOption[T] {
	return func(f *AccessibleFragment[T]) {
		f.clone = fn
	}
}

// Tag is a membership-only fragment: it occupies a schema bit but never
// allocates storage.
type Tag struct {
	Fragment
}

func (f AccessibleFragment[T]) newStore(meta *metadataTable) fragmentStore {
	return &Store[T]{meta: meta, clone: f.clone}
}

var _ storeProvider = AccessibleFragment[struct{}]{}
