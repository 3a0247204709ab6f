package facematch

// BoxArea returns the area of an [x1, y1, x2, y2] box, 0 for malformed boxes.
func BoxArea(box []float64) float64 {
	if len(box) != 4 {
		return 0
	}
	return max(0, (box[2]-box[0])*(box[3]-box[1]))
}

// LargestBox returns the index of the box with the largest area, or -1 for none.
// Ties keep the earliest box.
func LargestBox(boxes [][]float64) int {
	best, bestArea := -1, -1.0
	for i, b := range boxes {
		if a := BoxArea(b); a > bestArea {
			best, bestArea = i, a
		}
	}
	return best
}

// ScaleBox multiplies every coordinate of a box by factor.
func ScaleBox(box []float64, factor float64) []float64 {
	out := make([]float64, len(box))
	for i, v := range box {
		out[i] = v * factor
	}
	return out
}
