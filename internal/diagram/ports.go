package diagram

// verticalBias lowers the threshold for preferring vertical ports: with a
// banded top-down layout most related nodes sit in different rows, and
// arrows dropping out of a node's south edge read better than long
// horizontal sweeps. 1.0 would treat the axes equally.
const verticalBias = 0.5

// selectPorts picks the edge-attachment sides for an arrow between two
// placed rectangles, from the dominant axis of center-to-center
// displacement.
func selectPorts(from, to CanvasObject) (fromPort, toPort string) {
	dx := (to.X + to.Width/2) - (from.X + from.Width/2)
	dy := (to.Y + to.Height/2) - (from.Y + from.Height/2)

	if abs(dy) > abs(dx)*verticalBias {
		if dy > 0 {
			return "s", "n"
		}
		return "n", "s"
	}
	if dx > 0 {
		return "e", "w"
	}
	return "w", "e"
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
