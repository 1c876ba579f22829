package frameconv

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Convert produces an RGBA copy of the frame.
func Convert(f *Frame) (*image.RGBA, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil frame", ErrInvalidFrame)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}

	switch f.Format {
	case FormatRGB24:
		return convertPacked(f, 3, 0, 1, 2, -1)
	case FormatBGR24:
		return convertPacked(f, 3, 2, 1, 0, -1)
	case FormatRGBA32:
		return convertPacked(f, 4, 0, 1, 2, 3)
	case FormatBGRA32:
		return convertPacked(f, 4, 2, 1, 0, 3)
	case FormatYUV420:
		return convertYUV420(f)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.Format)
}

// convertPacked copies a packed layout. r, g, b, a are byte offsets of each
// channel inside a pixel; a < 0 means opaque.
func convertPacked(f *Frame, bpp, r, g, b, a int) (*image.RGBA, error) {
	if len(f.Planes) < 1 {
		return nil, fmt.Errorf("%w: no pixel plane", ErrInvalidFrame)
	}
	src := f.Planes[0]
	stride := f.stride(0, f.Width*bpp)
	if stride < f.Width*bpp {
		return nil, fmt.Errorf("%w: stride %d below row size %d", ErrInvalidFrame, stride, f.Width*bpp)
	}
	if need := (f.Height-1)*stride + f.Width*bpp; len(src) < need {
		return nil, fmt.Errorf("%w: plane has %d bytes, need %d", ErrInvalidFrame, len(src), need)
	}

	dst := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		row := src[y*stride : y*stride+f.Width*bpp]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+f.Width*4]
		for x := 0; x < f.Width; x++ {
			p := row[x*bpp : x*bpp+bpp]
			o := out[x*4 : x*4+4]
			o[0], o[1], o[2] = p[r], p[g], p[b]
			if a >= 0 {
				o[3] = p[a]
			} else {
				o[3] = 0xff
			}
		}
	}
	return dst, nil
}

func convertYUV420(f *Frame) (*image.RGBA, error) {
	cw, ch := (f.Width+1)/2, (f.Height+1)/2

	var yp, up, vp []byte
	var ys, cs int
	switch len(f.Planes) {
	case 3:
		yp, up, vp = f.Planes[0], f.Planes[1], f.Planes[2]
		ys = f.stride(0, f.Width)
		cs = f.stride(1, cw)
		if vs := f.stride(2, cw); vs != cs {
			return nil, fmt.Errorf("%w: chroma strides differ (%d vs %d)", ErrInvalidFrame, cs, vs)
		}
	case 1:
		// Contiguous YV12: Y, then V, then U.
		buf := f.Planes[0]
		ys, cs = f.Width, cw
		ySize, cSize := f.Width*f.Height, cw*ch
		if len(buf) < ySize+2*cSize {
			return nil, fmt.Errorf("%w: yv12 buffer has %d bytes, need %d", ErrInvalidFrame, len(buf), ySize+2*cSize)
		}
		yp = buf[:ySize]
		vp = buf[ySize : ySize+cSize]
		up = buf[ySize+cSize : ySize+2*cSize]
	default:
		return nil, fmt.Errorf("%w: yuv420 needs 1 or 3 planes, got %d", ErrInvalidFrame, len(f.Planes))
	}

	if ys < f.Width || cs < cw {
		return nil, fmt.Errorf("%w: yuv420 stride too small", ErrInvalidFrame)
	}
	if len(yp) < (f.Height-1)*ys+f.Width {
		return nil, fmt.Errorf("%w: luma plane too short", ErrInvalidFrame)
	}
	if need := (ch-1)*cs + cw; len(up) < need || len(vp) < need {
		return nil, fmt.Errorf("%w: chroma plane too short", ErrInvalidFrame)
	}

	src := &image.YCbCr{
		Y:              yp,
		Cb:             up,
		Cr:             vp,
		YStride:        ys,
		CStride:        cs,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, f.Width, f.Height),
	}
	dst := image.NewRGBA(src.Rect)
	draw.Draw(dst, dst.Bounds(), src, image.Point{}, draw.Src)
	return dst, nil
}
