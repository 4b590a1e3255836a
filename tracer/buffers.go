package tracer

import (
	"fmt"
	"sort"
	"unsafe"

	"github.com/achilleasa/gpurt/log"
	"github.com/achilleasa/gpurt/tracer/device"
)

// Handle is an immutable reference to a device buffer. The zero value
// denotes an absent buffer.
type Handle struct {
	buf device.Buffer
}

// Valid returns true if the handle references a buffer.
func (h Handle) Valid() bool {
	return h.buf != nil
}

// Buffer returns the referenced device buffer or nil.
func (h Handle) Buffer() device.Buffer {
	return h.buf
}

// Count returns the number of elements in the buffer.
func (h Handle) Count() int {
	if h.buf == nil {
		return 0
	}
	return h.buf.Count()
}

// Stride returns the element size in bytes.
func (h Handle) Stride() int {
	if h.buf == nil {
		return 0
	}
	return h.buf.Stride()
}

// Ensure makes h match data and uploads it. If h is valid but data is
// empty or its element count or stride differ, the buffer is released.
// A new buffer is allocated when needed; zero sized buffers are never
// created so empty data yields an absent handle. The returned bool is true
// when a new buffer was allocated.
//
// The byte size of T must equal stride. A mismatch is reported before any
// buffer is touched.
func Ensure[T any](dev device.Device, h Handle, name string, data []T, stride int) (Handle, bool, error) {
	if stride <= 0 {
		return h, false, fmt.Errorf("%w: buffer %s", ErrZeroStride, name)
	}

	var zero T
	if elemSize := int(unsafe.Sizeof(zero)); elemSize != stride {
		return h, false, fmt.Errorf("%w: buffer %s holds %T (%d bytes) but stride is %d", ErrStrideMismatch, name, zero, elemSize, stride)
	}

	if h.Valid() && (len(data) == 0 || h.Count() != len(data) || h.Stride() != stride) {
		h.buf.Release()
		h = Handle{}
	}

	if len(data) == 0 {
		return h, false, nil
	}

	recreated := false
	if !h.Valid() {
		buf, err := dev.AllocateBuffer(name, len(data), stride)
		if err != nil {
			return Handle{}, false, fmt.Errorf("tracer: could not allocate buffer %s (%d x %d bytes): %w", name, len(data), stride, err)
		}
		h = Handle{buf: buf}
		recreated = true
	}

	if err := h.buf.Write(sliceBytes(data, stride)); err != nil {
		return h, recreated, fmt.Errorf("tracer: could not upload buffer %s: %w", name, err)
	}

	return h, recreated, nil
}

// Reinterpret a slice of fixed-size elements as raw bytes.
func sliceBytes[T any](data []T, stride int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(data))), len(data)*stride)
}

// BufferManager owns the named device buffers of a tracer.
type BufferManager struct {
	dev     device.Device
	handles map[string]Handle
	logger  log.Logger

	// Bytes uploaded since the last call to TakeUploadedBytes.
	uploaded int
}

// NewBufferManager creates an empty manager for dev.
func NewBufferManager(dev device.Device) *BufferManager {
	return &BufferManager{
		dev:     dev,
		handles: make(map[string]Handle),
		logger:  log.New("buffer manager"),
	}
}

// Handle returns the handle held under name.
func (m *BufferManager) Handle(name string) Handle {
	return m.handles[name]
}

// Sync runs Ensure against the buffer held under name and stores the
// resulting handle.
func Sync[T any](m *BufferManager, name string, data []T, stride int) (bool, error) {
	prev := m.handles[name]
	h, recreated, err := Ensure(m.dev, prev, name, data, stride)

	if h.Valid() {
		m.handles[name] = h
	} else {
		delete(m.handles, name)
		if prev.Valid() {
			m.logger.Debugf("released buffer %s", name)
		}
	}

	if err != nil {
		return recreated, err
	}

	if recreated {
		m.logger.Debugf("allocated buffer %s (%d x %d bytes)", name, len(data), stride)
	}
	m.uploaded += len(data) * stride
	return recreated, nil
}

// Bind binds each named buffer to the kernel parameter of the same name.
// Absent buffers are unbound so the kernel never keeps a released buffer.
func (m *BufferManager) Bind(k device.Kernel, names ...string) error {
	for _, name := range names {
		var value interface{}
		if h, ok := m.handles[name]; ok {
			value = h.Buffer()
		}
		if err := k.SetParam(name, value); err != nil {
			return err
		}
	}
	return nil
}

// TakeUploadedBytes returns and resets the upload counter.
func (m *BufferManager) TakeUploadedBytes() int {
	n := m.uploaded
	m.uploaded = 0
	return n
}

// Release frees every held buffer exactly once.
func (m *BufferManager) Release() {
	names := make([]string, 0, len(m.handles))
	for name := range m.handles {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m.handles[name].Buffer().Release()
		delete(m.handles, name)
		m.logger.Debugf("released buffer %s", name)
	}
}
