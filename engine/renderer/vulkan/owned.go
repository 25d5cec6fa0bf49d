package vulkan

// noCopy makes go vet's copylocks check flag accidental copies of owners.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Owned exclusively owns a single Vulkan handle together with the function
// that destroys it. The zero handle means empty.
type Owned[T comparable] struct {
	noCopy  noCopy
	handle  T
	destroy func(T)
}

func NewOwned[T comparable](handle T, destroy func(T)) *Owned[T] {
	return &Owned[T]{handle: handle, destroy: destroy}
}

func (o *Owned[T]) Get() T {
	return o.handle
}

func (o *Owned[T]) Valid() bool {
	var zero T
	return o != nil && o.handle != zero
}

// Move transfers the handle to a new owner and leaves o empty.
func (o *Owned[T]) Move() *Owned[T] {
	var zero T
	moved := &Owned[T]{handle: o.handle, destroy: o.destroy}
	o.handle = zero
	o.destroy = nil
	return moved
}

// Destroy releases the handle once. Later calls do nothing.
func (o *Owned[T]) Destroy() {
	if !o.Valid() {
		return
	}
	var zero T
	handle, destroy := o.handle, o.destroy
	o.handle = zero
	o.destroy = nil
	if destroy != nil {
		destroy(handle)
	}
}
