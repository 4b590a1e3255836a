package gl

import (
	"github.com/achilleasa/gpurt/tracer/device"
	"github.com/achilleasa/gpurt/types"
	"github.com/go-gl/gl/v4.3-core/gl"
)

// kernel is a linked compute program. Uniform values are pushed to the
// program as soon as they are set while buffers and images are recorded
// and bound right before dispatching.
type kernel struct {
	dev     *Device
	name    string
	program uint32

	// Binding slot assigned to each resource parameter.
	storageSlots map[string]uint32
	imageSlots   map[string]uint32
	samplerSlots map[string]uint32

	buffers  map[uint32]*buffer
	images   map[uint32]*image
	samplers map[uint32]*image
}

func newKernel(dev *Device, name string, program uint32) *kernel {
	return &kernel{
		dev:          dev,
		name:         name,
		program:      program,
		storageSlots: make(map[string]uint32),
		imageSlots:   make(map[string]uint32),
		samplerSlots: make(map[string]uint32),
		buffers:      make(map[uint32]*buffer),
		images:       make(map[uint32]*image),
		samplers:     make(map[uint32]*image),
	}
}

func (k *kernel) Name() string { return k.name }

func (k *kernel) SetParam(name string, value interface{}) error {
	switch v := value.(type) {
	case nil:
		k.unbind(name)
		return nil
	case *buffer:
		if v.handle == 0 {
			return device.ErrReleased
		}
		slot, ok := k.storageSlot(name)
		if !ok {
			return nil
		}
		k.buffers[slot] = v
		return nil
	case *image:
		if v.handle == 0 {
			return device.ErrReleased
		}
		if v.sampled {
			slot, ok := k.samplerSlot(name)
			if !ok {
				return nil
			}
			k.samplers[slot] = v
			return nil
		}
		slot, ok := k.imageSlot(name)
		if !ok {
			return nil
		}
		k.images[slot] = v
		return nil
	}

	// Uniforms the compiler optimized away report location -1 and are
	// silently ignored.
	loc := gl.GetUniformLocation(k.program, gl.Str(name+"\x00"))
	switch v := value.(type) {
	case int32:
		if loc >= 0 {
			gl.ProgramUniform1i(k.program, loc, v)
		}
	case uint32:
		if loc >= 0 {
			gl.ProgramUniform1ui(k.program, loc, v)
		}
	case float32:
		if loc >= 0 {
			gl.ProgramUniform1f(k.program, loc, v)
		}
	case types.Vec2:
		if loc >= 0 {
			gl.ProgramUniform2f(k.program, loc, v[0], v[1])
		}
	case types.Vec4:
		if loc >= 0 {
			gl.ProgramUniform4f(k.program, loc, v[0], v[1], v[2], v[3])
		}
	case types.Mat4:
		if loc >= 0 {
			gl.ProgramUniformMatrix4fv(k.program, loc, 1, false, &v[0])
		}
	default:
		return device.UnsupportedParamError(k.name, name, value)
	}
	return checkError("set param " + name)
}

func (k *kernel) Dispatch(groupsX, groupsY, groupsZ uint32) error {
	gl.UseProgram(k.program)
	for slot, b := range k.buffers {
		if b.handle == 0 {
			return device.ErrReleased
		}
		gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, slot, b.handle)
	}
	for slot, img := range k.images {
		if img.handle == 0 {
			return device.ErrReleased
		}
		gl.BindImageTexture(slot, img.handle, 0, false, 0, gl.READ_WRITE, gl.RGBA32F)
	}
	for slot, img := range k.samplers {
		if img.handle == 0 {
			return device.ErrReleased
		}
		gl.ActiveTexture(gl.TEXTURE0 + slot)
		gl.BindTexture(gl.TEXTURE_2D, img.handle)
	}

	gl.DispatchCompute(groupsX, groupsY, groupsZ)
	gl.MemoryBarrier(gl.SHADER_IMAGE_ACCESS_BARRIER_BIT | gl.SHADER_STORAGE_BARRIER_BIT | gl.TEXTURE_FETCH_BARRIER_BIT)
	gl.UseProgram(0)
	return checkError("dispatch " + k.name)
}

// unbind drops any resource recorded for name. The slot assignment is kept
// so a later bind reuses it.
func (k *kernel) unbind(name string) {
	if slot, ok := k.storageSlots[name]; ok {
		delete(k.buffers, slot)
	}
	if slot, ok := k.imageSlots[name]; ok {
		delete(k.images, slot)
	}
	if slot, ok := k.samplerSlots[name]; ok {
		delete(k.samplers, slot)
	}
}

// storageSlot assigns a binding point to a shader storage block.
func (k *kernel) storageSlot(name string) (uint32, bool) {
	if slot, ok := k.storageSlots[name]; ok {
		return slot, true
	}
	index := gl.GetProgramResourceIndex(k.program, gl.SHADER_STORAGE_BLOCK, gl.Str(name+"\x00"))
	if index == gl.INVALID_INDEX {
		return 0, false
	}
	slot := uint32(len(k.storageSlots))
	gl.ShaderStorageBlockBinding(k.program, index, slot)
	k.storageSlots[name] = slot
	return slot, true
}

// imageSlot assigns an image unit to an image2D uniform.
func (k *kernel) imageSlot(name string) (uint32, bool) {
	if slot, ok := k.imageSlots[name]; ok {
		return slot, true
	}
	loc := gl.GetUniformLocation(k.program, gl.Str(name+"\x00"))
	if loc < 0 {
		return 0, false
	}
	slot := uint32(len(k.imageSlots))
	gl.ProgramUniform1i(k.program, loc, int32(slot))
	k.imageSlots[name] = slot
	return slot, true
}

// samplerSlot assigns a texture unit to a sampler2D uniform.
func (k *kernel) samplerSlot(name string) (uint32, bool) {
	if slot, ok := k.samplerSlots[name]; ok {
		return slot, true
	}
	loc := gl.GetUniformLocation(k.program, gl.Str(name+"\x00"))
	if loc < 0 {
		return 0, false
	}
	slot := uint32(len(k.samplerSlots))
	gl.ProgramUniform1i(k.program, loc, int32(slot))
	k.samplerSlots[name] = slot
	return slot, true
}

func (k *kernel) release() {
	if k.program != 0 {
		gl.DeleteProgram(k.program)
		k.program = 0
	}
}
