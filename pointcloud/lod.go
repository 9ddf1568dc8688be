package pointcloud

// Reduce applies level of detail reduction, returning a frame holding
// at most budget points. A frame within budget is returned unchanged,
// including its backing slices. Otherwise every stride-th point is kept
// in index order with stride = ceil(n/budget), so the result is
// deterministic: reducing the same frame with the same budget always
// yields the same points.
func Reduce(f Frame, budget int) Frame {
	n := len(f.Points)
	if budget <= 0 || n <= budget {
		return f
	}

	stride := (n + budget - 1) / budget
	kept := n / stride

	points := make([]Point, kept)
	for i := range points {
		points[i] = f.Points[i*stride]
	}

	var colors []Color
	if f.HasColors() {
		colors = make([]Color, kept)
		for i := range colors {
			colors[i] = f.Colors[i*stride]
		}
	}

	instrumentReduce(n - kept)

	return Frame{Points: points, Colors: colors}
}
