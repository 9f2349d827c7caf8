package learner

import (
	"sort"
)

// node is one split or leaf of a regression tree. Numeric splits send
// x[feature] <= threshold left; categorical splits send
// x[feature] == threshold left. Fields are exported for gob.
type node struct {
	Feature     int
	Threshold   float64
	Categorical bool
	Left, Right *node
	Value       float64
	Leaf        bool
}

func (n *node) predict(x []float64) float64 {
	for !n.Leaf {
		v := x[n.Feature]
		var left bool
		if n.Categorical {
			left = v == n.Threshold
		} else {
			left = v <= n.Threshold
		}
		if left {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// treeGrower fits one regression tree to the current residual vector.
type treeGrower struct {
	x           [][]float64
	grad        []float64
	categorical []bool

	maxDepth  int
	maxLeaves int
	minLeaf   int

	features []int // subsampled columns considered at every node
	leaves   int
}

func (g *treeGrower) grow(rows []int) *node {
	g.leaves = 0
	return g.build(rows, 0)
}

func (g *treeGrower) build(rows []int, depth int) *node {
	sum, sq := sums(g.grad, rows)
	mean := sum / float64(len(rows))

	if depth >= g.maxDepth || len(rows) < 2*g.minLeaf || g.leaves+2 > g.maxLeaves {
		g.leaves++
		return &node{Leaf: true, Value: mean}
	}

	best, ok := g.bestSplit(rows, sum, sq)
	if !ok {
		g.leaves++
		return &node{Leaf: true, Value: mean}
	}

	left, right := g.partition(rows, best)
	g.leaves++ // reserve: the split adds one leaf beyond the parent slot
	n := &node{
		Feature:     best.feature,
		Threshold:   best.threshold,
		Categorical: g.categorical[best.feature],
	}
	n.Left = g.build(left, depth+1)
	n.Right = g.build(right, depth+1)
	return n
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

// bestSplit scans the subsampled features for the split with the
// largest reduction in squared error.
func (g *treeGrower) bestSplit(rows []int, total, totalSq float64) (split, bool) {
	n := float64(len(rows))
	parentSSE := totalSq - total*total/n

	best := split{}
	found := false
	for _, f := range g.features {
		if g.categorical[f] {
			g.scanCategorical(rows, f, total, totalSq, parentSSE, &best, &found)
		} else {
			g.scanNumeric(rows, f, total, totalSq, parentSSE, &best, &found)
		}
	}
	return best, found
}

func (g *treeGrower) scanNumeric(rows []int, f int, total, totalSq, parentSSE float64, best *split, found *bool) {
	order := make([]int, len(rows))
	copy(order, rows)
	sort.Slice(order, func(a, b int) bool { return g.x[order[a]][f] < g.x[order[b]][f] })

	var leftSum, leftSq float64
	for k := 0; k < len(order)-1; k++ {
		y := g.grad[order[k]]
		leftSum += y
		leftSq += y * y

		cur, next := g.x[order[k]][f], g.x[order[k+1]][f]
		if cur == next {
			continue
		}
		nl, nr := k+1, len(order)-k-1
		if nl < g.minLeaf || nr < g.minLeaf {
			continue
		}
		rightSum := total - leftSum
		rightSq := totalSq - leftSq
		sse := (leftSq - leftSum*leftSum/float64(nl)) +
			(rightSq - rightSum*rightSum/float64(nr))
		gain := parentSSE - sse
		if gain > best.gain+1e-12 {
			*best = split{feature: f, threshold: (cur + next) / 2, gain: gain}
			*found = true
		}
	}
}

// scanCategorical tries one-vs-rest splits per observed code.
func (g *treeGrower) scanCategorical(rows []int, f int, total, totalSq, parentSSE float64, best *split, found *bool) {
	type acc struct {
		sum, sq float64
		n       int
	}
	byCode := make(map[float64]*acc)
	var codes []float64
	for _, i := range rows {
		c := g.x[i][f]
		a := byCode[c]
		if a == nil {
			a = &acc{}
			byCode[c] = a
			codes = append(codes, c)
		}
		y := g.grad[i]
		a.sum += y
		a.sq += y * y
		a.n++
	}
	if len(codes) < 2 {
		return
	}
	sort.Float64s(codes) // deterministic scan order

	for _, c := range codes {
		a := byCode[c]
		nl, nr := a.n, len(rows)-a.n
		if nl < g.minLeaf || nr < g.minLeaf {
			continue
		}
		rightSum := total - a.sum
		rightSq := totalSq - a.sq
		sse := (a.sq - a.sum*a.sum/float64(nl)) +
			(rightSq - rightSum*rightSum/float64(nr))
		gain := parentSSE - sse
		if gain > best.gain+1e-12 {
			*best = split{feature: f, threshold: c, gain: gain}
			*found = true
		}
	}
}

func (g *treeGrower) partition(rows []int, s split) (left, right []int) {
	cat := g.categorical[s.feature]
	for _, i := range rows {
		v := g.x[i][s.feature]
		goLeft := v <= s.threshold
		if cat {
			goLeft = v == s.threshold
		}
		if goLeft {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func sums(ys []float64, rows []int) (sum, sq float64) {
	for _, i := range rows {
		y := ys[i]
		sum += y
		sq += y * y
	}
	return sum, sq
}
