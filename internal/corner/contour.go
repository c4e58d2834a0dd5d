package corner

// point is a pixel-center coordinate on the binarized map.
type point struct {
	X, Y int
}

// component is one 8-connected foreground region. seed is its topmost,
// then leftmost, pixel.
type component struct {
	label int32
	seed  point
	count int
}

// 8-neighborhood in clockwise order (y grows downward): E, SE, S, SW, W, NW, N, NE.
var (
	ndx = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	ndy = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

func dirIndex(dx, dy int) int {
	for i := range 8 {
		if ndx[i] == dx && ndy[i] == dy {
			return i
		}
	}
	return 0
}

// connectedComponents labels 8-connected foreground regions in raster order.
func connectedComponents(mask []bool, w, h int) ([]component, []int32) {
	labels := make([]int32, w*h)
	var comps []component
	var queue []int
	next := int32(1)

	for i, fg := range mask {
		if !fg || labels[i] != 0 {
			continue
		}
		c := component{label: next, seed: point{X: i % w, Y: i / w}}
		labels[i] = next
		queue = append(queue[:0], i)
		for len(queue) > 0 {
			ci := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			c.count++
			cx, cy := ci%w, ci/w
			for d := range 8 {
				nx, ny := cx+ndx[d], cy+ndy[d]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				ni := ny*w + nx
				if mask[ni] && labels[ni] == 0 {
					labels[ni] = next
					queue = append(queue, ni)
				}
			}
		}
		comps = append(comps, c)
		next++
	}
	return comps, labels
}

// traceOuterContour follows the outer boundary of component c with
// Moore-neighbor tracing and returns its vertices, with runs of collinear
// steps collapsed to their endpoints.
func traceOuterContour(labels []int32, w, h int, c component) []point {
	isFg := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && labels[y*w+x] == c.label
	}

	start := c.seed
	pts := []point{start}
	cur := start
	back := point{X: start.X - 1, Y: start.Y} // west of the seed is background by construction
	var first point
	maxSteps := 4*c.count + 16

	for step := 0; step < maxSteps; step++ {
		nxt, nb, ok := mooreNext(isFg, cur, back)
		if !ok {
			break // isolated pixel
		}
		if step == 0 {
			first = nxt
		} else if cur == start && nxt == first {
			break
		}
		cur, back = nxt, nb
		pts = appendVertex(pts, cur)
	}

	if len(pts) > 1 && pts[len(pts)-1] == start {
		pts = pts[:len(pts)-1]
	}
	return pts
}

// mooreNext scans the neighbors of cur clockwise, starting just after back,
// and returns the first foreground pixel plus the background pixel examined
// immediately before it.
func mooreNext(isFg func(x, y int) bool, cur, back point) (point, point, bool) {
	start := dirIndex(back.X-cur.X, back.Y-cur.Y)
	prev := back
	for k := 1; k <= 8; k++ {
		i := (start + k) % 8
		t := point{X: cur.X + ndx[i], Y: cur.Y + ndy[i]}
		if isFg(t.X, t.Y) {
			return t, prev, true
		}
		prev = t
	}
	return point{}, point{}, false
}

// appendVertex drops the previous vertex when it lies on a straight run
// continuing in the same direction.
func appendVertex(pts []point, p point) []point {
	n := len(pts)
	if n > 0 && pts[n-1] == p {
		return pts
	}
	if n >= 2 {
		a, b := pts[n-2], pts[n-1]
		v1x, v1y := b.X-a.X, b.Y-a.Y
		v2x, v2y := p.X-b.X, p.Y-b.Y
		if v1x*v2y-v1y*v2x == 0 && v1x*v2x+v1y*v2y > 0 {
			pts[n-1] = p
			return pts
		}
	}
	return append(pts, p)
}

// moments holds the raw spatial moments of a closed polygon.
type moments struct {
	m00, m10, m01 float64
}

// polygonMoments integrates over the polygon's interior with Green's theorem.
// m00 is signed; its magnitude is the contour area.
func polygonMoments(pts []point) moments {
	var m moments
	n := len(pts)
	if n < 3 {
		return m
	}
	for i := range n {
		x0, y0 := float64(pts[i].X), float64(pts[i].Y)
		x1, y1 := float64(pts[(i+1)%n].X), float64(pts[(i+1)%n].Y)
		cross := x0*y1 - x1*y0
		m.m00 += cross
		m.m10 += (x0 + x1) * cross
		m.m01 += (y0 + y1) * cross
	}
	m.m00 /= 2
	m.m10 /= 6
	m.m01 /= 6
	return m
}

// centroid returns m10/m00, m01/m00. Degenerate (zero-area) contours such as
// a single pixel or a one-pixel line fall back to the vertex mean.
func centroid(pts []point) (float64, float64) {
	m := polygonMoments(pts)
	if m.m00 != 0 {
		return m.m10 / m.m00, m.m01 / m.m00
	}
	var sx, sy float64
	for _, p := range pts {
		sx += float64(p.X)
		sy += float64(p.Y)
	}
	return sx / float64(len(pts)), sy / float64(len(pts))
}
