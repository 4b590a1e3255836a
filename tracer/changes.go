package tracer

import "sort"

// ChangeQueue is a latest-wins update buffer keyed by ChangeType.
type ChangeQueue struct {
	updateBuffer map[ChangeType]interface{}
}

// Append queues data for ct, replacing any earlier value.
func (q *ChangeQueue) Append(ct ChangeType, data interface{}) {
	if q.updateBuffer == nil {
		q.updateBuffer = make(map[ChangeType]interface{})
	}
	q.updateBuffer[ct] = data
}

// Len returns the number of pending changes.
func (q *ChangeQueue) Len() int {
	return len(q.updateBuffer)
}

// Apply invokes fn for each pending change in ChangeType order. Changes
// that were applied successfully are dropped; the failing change and any
// after it stay queued.
func (q *ChangeQueue) Apply(fn func(ChangeType, interface{}) error) error {
	pending := make([]ChangeType, 0, len(q.updateBuffer))
	for ct := range q.updateBuffer {
		pending = append(pending, ct)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })

	for _, ct := range pending {
		if err := fn(ct, q.updateBuffer[ct]); err != nil {
			return err
		}
		delete(q.updateBuffer, ct)
	}
	return nil
}
