package collision

import (
	"math"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lindqvist/diffphys/skeleton"
)

// CellKey indexes a cell of the uniform spatial hash used for broad phase.
type CellKey struct {
	X, Y, Z int
}

type cell struct {
	bodyIndices []int
}

// Pair is a pair of bodies whose AABBs overlap, a broad-phase candidate for
// narrow-phase GJK/EPA.
type Pair struct {
	BodyA *skeleton.Body
	BodyB *skeleton.Body
}

// Grid is a uniform spatial hash over body AABBs: bodies are inserted into
// every cell their AABB spans, and candidate pairs are found by walking
// each body's cells and deduplicating.
//
// A skeleton.Plane's AABB is deliberately near-infinite in the two axes
// perpendicular to its normal (see skeleton.Plane.ComputeAABB), which would
// make cell-by-cell insertion span billions of cells. Bodies whose AABB
// spans more than maxCellSpan cells on any axis are kept out of the cell
// buckets entirely and tracked in unbounded instead; FindPairsParallel pairs
// them against every other body directly rather than through the grid.
type Grid struct {
	cellSize  float64
	cells     []cell
	cellMask  int
	unbounded []int
}

const maxCellSpan = 64

func NewGrid(cellSize float64, numCells int) *Grid {
	numCells = nextPowerOfTwo(numCells)

	cells := make([]cell, numCells)
	for i := range cells {
		cells[i].bodyIndices = make([]int, 0, 8)
	}

	return &Grid{cellSize: cellSize, cells: cells, cellMask: numCells - 1}
}

func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i].bodyIndices = g.cells[i].bodyIndices[:0]
	}
	g.unbounded = g.unbounded[:0]
}

func (g *Grid) Insert(bodyIndex int, body *skeleton.Body) {
	aabb := body.Shape.GetAABB()
	minCell := g.worldToCell(aabb.Min)
	maxCell := g.worldToCell(aabb.Max)

	if maxCell.X-minCell.X > maxCellSpan || maxCell.Y-minCell.Y > maxCellSpan || maxCell.Z-minCell.Z > maxCellSpan {
		g.unbounded = append(g.unbounded, bodyIndex)
		return
	}

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				idx := g.hashCell(CellKey{x, y, z})
				g.cells[idx].bodyIndices = append(g.cells[idx].bodyIndices, bodyIndex)
			}
		}
	}
}

func (g *Grid) SortCells() {
	for i := range g.cells {
		if len(g.cells[i].bodyIndices) > 1 {
			sort.Ints(g.cells[i].bodyIndices)
		}
	}
}

// FindPairsParallel fans the per-body candidate search out across
// numWorkers goroutines and streams deduplicated pairs back on a channel,
// splitting the body array into contiguous per-worker ranges.
func (g *Grid) FindPairsParallel(bodies []*skeleton.Body, numWorkers int) <-chan Pair {
	if numWorkers < 1 {
		numWorkers = 1
	}

	var wg sync.WaitGroup
	pairsChan := make(chan Pair, numWorkers*10)

	bodiesPerWorker := len(bodies) / numWorkers
	if bodiesPerWorker == 0 {
		bodiesPerWorker = 1
	}

	for w := 0; w < numWorkers; w++ {
		startIdx := w * bodiesPerWorker
		endIdx := startIdx + bodiesPerWorker
		if w == numWorkers-1 {
			endIdx = len(bodies)
		}
		if startIdx >= len(bodies) {
			continue
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()

			seen := make([]bool, len(bodies))
			for bodyIdx := start; bodyIdx < end; bodyIdx++ {
				bodyA := bodies[bodyIdx]
				aabbA := bodyA.Shape.GetAABB()

				tryPair := func(otherIdx int) {
					bodyB := bodies[otherIdx]
					if bodyA.IsStatic() && bodyB.IsStatic() {
						return
					}
					if aabbA.Overlaps(bodyB.Shape.GetAABB()) {
						pairsChan <- Pair{BodyA: bodyA, BodyB: bodyB}
					}
				}

				// Every bodyIdx checks itself against every later-indexed
				// unbounded body; together with the direct scan below for a
				// body that is itself unbounded, each unordered pair involving
				// an unbounded body (e.g. a ground plane) is produced exactly
				// once, whichever side is unbounded.
				for _, otherIdx := range g.unbounded {
					if otherIdx > bodyIdx {
						tryPair(otherIdx)
					}
				}

				minCell := g.worldToCell(aabbA.Min)
				maxCell := g.worldToCell(aabbA.Max)
				if maxCell.X-minCell.X > maxCellSpan || maxCell.Y-minCell.Y > maxCellSpan || maxCell.Z-minCell.Z > maxCellSpan {
					// bodyA is itself unbounded: it was never inserted into
					// any cell, so pair it directly with every later-indexed
					// bounded body (later unbounded bodies were tried above).
					for otherIdx := bodyIdx + 1; otherIdx < len(bodies); otherIdx++ {
						bounded := true
						for _, u := range g.unbounded {
							if u == otherIdx {
								bounded = false
								break
							}
						}
						if bounded {
							tryPair(otherIdx)
						}
					}
					continue
				}

				for i := range seen {
					seen[i] = false
				}

				for x := minCell.X; x <= maxCell.X; x++ {
					for y := minCell.Y; y <= maxCell.Y; y++ {
						for z := minCell.Z; z <= maxCell.Z; z++ {
							idx := g.hashCell(CellKey{x, y, z})

							for _, otherIdx := range g.cells[idx].bodyIndices {
								if otherIdx <= bodyIdx || seen[otherIdx] {
									continue
								}
								seen[otherIdx] = true
								tryPair(otherIdx)
							}
						}
					}
				}
			}
		}(startIdx, endIdx)
	}

	go func() {
		wg.Wait()
		close(pairsChan)
	}()

	return pairsChan
}

func (g *Grid) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / g.cellSize)),
		Y: int(math.Floor(pos.Y() / g.cellSize)),
		Z: int(math.Floor(pos.Z() / g.cellSize)),
	}
}

func (g *Grid) hashCell(key CellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & g.cellMask
}
