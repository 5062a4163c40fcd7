package pipeline

import "github.com/khaledhikmat/handpose-go/model"

// NV12ToRGB converts a semi-planar 4:2:0 payload (full resolution Y plane
// followed by interleaved UV at half resolution) to packed RGB. Chroma is
// upsampled bilinearly over centre-sited samples, then BT.601 limited range
// is applied.
func NV12ToRGB(width, height int, payload []byte) model.Image {
	img := model.NewImage(width, height)
	yPlane := payload[:width*height]
	u, v := upsampleChroma(payload[width*height:], width, height)

	for i := 0; i < width*height; i++ {
		r, g, b := yuvToRGB(yPlane[i], u[i], v[i])
		img.Pix[i*3] = r
		img.Pix[i*3+1] = g
		img.Pix[i*3+2] = b
	}
	return img
}

func upsampleChroma(uv []byte, width, height int) ([]byte, []byte) {
	cw, ch := width/2, height/2
	x0, x1, ax := chromaTaps(width, cw)
	y0, y1, ay := chromaTaps(height, ch)

	sample := func(cx, cy, plane int) float32 {
		return float32(uv[(cy*cw+cx)*2+plane])
	}

	u := make([]byte, width*height)
	v := make([]byte, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			for plane, out := range [2][]byte{u, v} {
				top := (1-ax[x])*sample(x0[x], y0[y], plane) + ax[x]*sample(x1[x], y0[y], plane)
				bottom := (1-ax[x])*sample(x0[x], y1[y], plane) + ax[x]*sample(x1[x], y1[y], plane)
				out[i] = byte((1-ay[y])*top + ay[y]*bottom + 0.5)
			}
		}
	}
	return u, v
}

// chromaTaps maps each of n full-resolution positions onto the two nearest of
// cn chroma samples and the interpolation weight of the second one.
func chromaTaps(n, cn int) ([]int, []int, []float32) {
	lo := make([]int, n)
	hi := make([]int, n)
	frac := make([]float32, n)
	last := float32(cn - 1)

	for i := 0; i < n; i++ {
		f := float32(i)*0.5 - 0.25
		if f < 0 {
			f = 0
		}
		if f > last {
			f = last
		}
		l := int(f)
		h := l + 1
		if h > cn-1 {
			h = cn - 1
		}
		lo[i], hi[i], frac[i] = l, h, f-float32(l)
	}
	return lo, hi, frac
}

func yuvToRGB(y, u, v byte) (byte, byte, byte) {
	c := 298 * (int(y) - 16)
	d := int(u) - 128
	e := int(v) - 128

	r := (c + 409*e + 128) >> 8
	g := (c - 100*d - 208*e + 128) >> 8
	b := (c + 516*d + 128) >> 8
	return clamp(r), clamp(g), clamp(b)
}

func clamp(x int) byte {
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return byte(x)
}

// CropBottomCentre keeps a width x height window anchored to the bottom edge,
// centred horizontally. Zero or oversized windows leave img untouched.
func CropBottomCentre(img model.Image, width, height int) model.Image {
	if width <= 0 || height <= 0 || width > img.Width || height > img.Height {
		return img
	}
	if width == img.Width && height == img.Height {
		return img
	}

	x0 := (img.Width - width) / 2
	y0 := img.Height - height
	out := model.NewImage(width, height)
	for y := 0; y < height; y++ {
		src := ((y0+y)*img.Width + x0) * 3
		copy(out.Pix[y*width*3:(y+1)*width*3], img.Pix[src:src+width*3])
	}
	return out
}

func Rotate180(img model.Image) model.Image {
	out := model.NewImage(img.Width, img.Height)
	n := img.Width * img.Height
	for i := 0; i < n; i++ {
		j := n - 1 - i
		copy(out.Pix[i*3:i*3+3], img.Pix[j*3:j*3+3])
	}
	return out
}
