package corner

// axisMap holds, per destination index, the two source taps and the weight of
// the second, using half-pixel centers clamped at the edges.
type axisMap struct {
	i0, i1 []int
	f      []float32
}

func newAxisMap(dst, src int) axisMap {
	m := axisMap{i0: make([]int, dst), i1: make([]int, dst), f: make([]float32, dst)}
	scale := float64(src) / float64(dst)
	for d := range dst {
		s := (float64(d)+0.5)*scale - 0.5
		if s < 0 {
			s = 0
		}
		i := int(s)
		if i >= src-1 {
			m.i0[d], m.i1[d], m.f[d] = src-1, src-1, 0
			continue
		}
		m.i0[d], m.i1[d], m.f[d] = i, i+1, float32(s-float64(i))
	}
	return m
}

// bilinearAt samples plane (sw wide) at the precomputed taps.
func bilinearAt(plane []float32, sw int, xm, ym axisMap, x, y int) float32 {
	x0, x1, fx := xm.i0[x], xm.i1[x], xm.f[x]
	y0, y1, fy := ym.i0[y], ym.i1[y], ym.f[y]
	top := plane[y0*sw+x0]*(1-fx) + plane[y0*sw+x1]*fx
	bot := plane[y1*sw+x0]*(1-fx) + plane[y1*sw+x1]*fx
	return top*(1-fy) + bot*fy
}
