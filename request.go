package scanout

// Request aggregates configuration changes for one batched commit.
//
// A request is built fresh each scheduler iteration and may carry
// updates for any number of outputs; the backend applies it atomically,
// so either every output's change takes effect or none does. The zero
// value is an empty request.
type Request struct {
	updates []Update
}

// Update retargets one output's primary plane to a newly painted
// buffer.
type Update struct {
	Output *Output
	Buffer *Buffer
}

// Add records an update in the request.
func (r *Request) Add(out *Output, buf *Buffer) {
	r.updates = append(r.updates, Update{Output: out, Buffer: buf})
}

// Updates returns the recorded updates in submission order.
func (r *Request) Updates() []Update {
	return r.updates
}

// Len is the number of outputs in the request.
func (r *Request) Len() int {
	return len(r.updates)
}
