package corner

import "github.com/MeKo-Tech/docnorm/internal/mempool"

// binarizeUpsampled resizes a heatmap plane (hw x hh) to w x h with bilinear
// interpolation and thresholds it in one pass. Values at or above threshold
// are foreground. The mask comes from mempool.
func binarizeUpsampled(plane []float32, hw, hh, w, h int, threshold float32) []bool {
	mask := mempool.GetBool(w * h)
	xm := newAxisMap(w, hw)
	ym := newAxisMap(h, hh)
	for y := range h {
		row := mask[y*w : (y+1)*w]
		for x := range w {
			row[x] = bilinearAt(plane, hw, xm, ym, x, y) >= threshold
		}
	}
	return mask
}
