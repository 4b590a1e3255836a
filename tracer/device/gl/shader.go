package gl

import (
	"fmt"
	"strings"

	"github.com/achilleasa/gpurt/tracer/device"
	"github.com/go-gl/gl/v4.3-core/gl"
)

const glslVersion = "#version 430 core"

// CompositeKernelName is the built-in kernel used by Device.Composite.
const CompositeKernelName = "composite"

// Param names read by the composite kernel.
const (
	compositeSource      = "Source"
	compositeDestination = "Destination"
	compositeWeight      = "_Weight"
)

// Running average of the raw sample target into the converged target.
const compositeKernelSrc = `
layout(rgba32f, binding = 0) readonly uniform image2D Source;
layout(rgba32f, binding = 1) uniform image2D Destination;
uniform float _Weight;

void main() {
	ivec2 id = ivec2(gl_GlobalInvocationID.xy);
	ivec2 size = imageSize(Destination);
	if (id.x >= size.x || id.y >= size.y) {
		return;
	}

	vec4 sampleColor = imageLoad(Source, id);
	vec4 accumulated = imageLoad(Destination, id);
	imageStore(Destination, id, mix(accumulated, sampleColor, _Weight));
}
`

// kernelSource prepends the GLSL version directive and the thread group
// layout unless the source already declares them.
func kernelSource(src string) string {
	var sb strings.Builder
	body := strings.TrimSpace(src)
	if !strings.HasPrefix(body, "#version") {
		sb.WriteString(glslVersion)
		sb.WriteByte('\n')
	} else {
		// The version directive must stay on the first line.
		nl := strings.IndexByte(body, '\n')
		if nl < 0 {
			nl = len(body)
		}
		sb.WriteString(body[:nl])
		sb.WriteByte('\n')
		body = strings.TrimSpace(body[nl:])
	}
	if !strings.Contains(body, "local_size_x") {
		fmt.Fprintf(&sb, "layout(local_size_x = %d, local_size_y = %d, local_size_z = 1) in;\n", device.ThreadGroupSize, device.ThreadGroupSize)
	}
	sb.WriteString(body)
	sb.WriteByte('\n')
	return sb.String()
}

// compileProgram compiles and links a compute program.
func compileProgram(name, src string) (uint32, error) {
	shader := gl.CreateShader(gl.COMPUTE_SHADER)
	csources, free := gl.Strs(kernelSource(src) + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("gl: could not compile kernel %s: %s", name, strings.TrimRight(log, "\x00"))
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, shader)
	gl.LinkProgram(program)
	gl.DeleteShader(shader)

	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(program, logLen, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("gl: could not link kernel %s: %s", name, strings.TrimRight(log, "\x00"))
	}
	return program, nil
}

// checkError converts the pending GL error flag into an error.
func checkError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("gl: %s failed with error 0x%x", op, code)
	}
	return nil
}
