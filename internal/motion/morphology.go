package motion

import "image"

// Binary mask helpers. Masks are *image.Gray with pixels either 0 or 255.

// absDiffThreshold binarizes the absolute per-pixel difference between two
// equally sized grayscale frames: pixels differing by more than delta
// become 255.
func absDiffThreshold(prev, cur *image.Gray, delta uint8) *image.Gray {
	out := image.NewGray(cur.Bounds())
	for i := range cur.Pix {
		a, b := prev.Pix[i], cur.Pix[i]
		d := a - b
		if b > a {
			d = b - a
		}
		if d > delta {
			out.Pix[i] = 255
		}
	}
	return out
}

// countNonZero returns the number of set pixels in a mask.
func countNonZero(m *image.Gray) int {
	n := 0
	for _, p := range m.Pix {
		if p != 0 {
			n++
		}
	}
	return n
}

// dilate grows set regions by a square kernel of the given radius,
// implemented as separable horizontal and vertical max passes.
func dilate(m *image.Gray, radius int) *image.Gray {
	return spread(m, radius, true)
}

// erode shrinks set regions by a square kernel of the given radius.
func erode(m *image.Gray, radius int) *image.Gray {
	return spread(m, radius, false)
}

func spread(m *image.Gray, radius int, max bool) *image.Gray {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()

	horizontal := image.NewGray(b)
	for y := 0; y < h; y++ {
		row := m.Pix[y*m.Stride : y*m.Stride+w]
		out := horizontal.Pix[y*horizontal.Stride : y*horizontal.Stride+w]
		for x := 0; x < w; x++ {
			out[x] = pickWindow(row, x, radius, w, max)
		}
	}

	vertical := image.NewGray(b)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			v := pickColumn(horizontal, x, y, radius, h, max)
			vertical.Pix[y*vertical.Stride+x] = v
		}
	}

	return vertical
}

func pickWindow(row []uint8, x, radius, w int, max bool) uint8 {
	lo, hi := x-radius, x+radius
	if lo < 0 {
		lo = 0
	}
	if hi >= w {
		hi = w - 1
	}
	for i := lo; i <= hi; i++ {
		if max && row[i] != 0 {
			return 255
		}
		if !max && row[i] == 0 {
			return 0
		}
	}
	if max {
		return 0
	}
	return 255
}

func pickColumn(m *image.Gray, x, y, radius, h int, max bool) uint8 {
	lo, hi := y-radius, y+radius
	if lo < 0 {
		lo = 0
	}
	if hi >= h {
		hi = h - 1
	}
	for i := lo; i <= hi; i++ {
		p := m.Pix[i*m.Stride+x]
		if max && p != 0 {
			return 255
		}
		if !max && p == 0 {
			return 0
		}
	}
	if max {
		return 0
	}
	return 255
}

// region is one connected component of changed pixels.
type region struct {
	area   int
	bounds image.Rectangle
}

// findRegions extracts 8-connected components from a mask. The mask is
// consumed: visited pixels are cleared.
func findRegions(m *image.Gray) []region {
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()

	var regions []region
	var stack []int

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if m.Pix[y*m.Stride+x] == 0 {
				continue
			}

			r := region{bounds: image.Rect(x, y, x+1, y+1)}
			stack = append(stack[:0], y*w+x)
			m.Pix[y*m.Stride+x] = 0

			for len(stack) > 0 {
				idx := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				cx, cy := idx%w, idx/w

				r.area++
				if cx < r.bounds.Min.X {
					r.bounds.Min.X = cx
				}
				if cy < r.bounds.Min.Y {
					r.bounds.Min.Y = cy
				}
				if cx+1 > r.bounds.Max.X {
					r.bounds.Max.X = cx + 1
				}
				if cy+1 > r.bounds.Max.Y {
					r.bounds.Max.Y = cy + 1
				}

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := cx+dx, cy+dy
						if nx < 0 || ny < 0 || nx >= w || ny >= h {
							continue
						}
						if m.Pix[ny*m.Stride+nx] != 0 {
							m.Pix[ny*m.Stride+nx] = 0
							stack = append(stack, ny*w+nx)
						}
					}
				}
			}

			regions = append(regions, r)
		}
	}

	return regions
}
