package lattice

// Config holds global defaults for new worlds.
var Config config = config{
	initialSlotCapacity: 64,
	queryCacheCapacity:  256,
}

type config struct {
	initialSlotCapacity int
	queryCacheCapacity  int
}

// SetInitialSlotCapacity sets the slot capacity columns are created with.
func (c *config) SetInitialSlotCapacity(n int) {
	if n > 0 {
		c.initialSlotCapacity = n
	}
}

// SetQueryCacheCapacity sets how many distinct queries a world may register.
func (c *config) SetQueryCacheCapacity(n int) {
	if n > 0 {
		c.queryCacheCapacity = n
	}
}
