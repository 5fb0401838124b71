package collision

import (
	"sync"

	"github.com/lindqvist/diffphys/skeleton"
)

// BroadPhase rebuilds the spatial grid from the current body AABBs and
// returns the candidate pairs whose bounding boxes overlap.
func BroadPhase(grid *Grid, bodies []*skeleton.Body, workersCount int) <-chan Pair {
	grid.Clear()
	for i, body := range bodies {
		grid.Insert(i, body)
	}
	grid.SortCells()

	return grid.FindPairsParallel(bodies, workersCount)
}

// collisionPair is a broad-phase pair that GJK confirmed actually overlaps,
// carrying the simplex EPA needs to start its polytope expansion.
type collisionPair struct {
	BodyA, BodyB *skeleton.Body
	simplex      *Simplex
}

// NarrowPhase runs GJK then EPA over every broad-phase candidate,
// fanned out across workersCount goroutines, and returns every resulting
// contact manifold. Every shape pair — including planes, represented as
// large boxes by skeleton.Plane.Support — goes through the same GJK/EPA
// path; there is no separate analytic plane branch.
func NarrowPhase(pairs <-chan Pair, workersCount int) []Contact {
	if workersCount < 1 {
		workersCount = 1
	}

	collisionChan := make(chan collisionPair, workersCount)
	go func() {
		var wg sync.WaitGroup
		defer close(collisionChan)

		for i := 0; i < workersCount; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for p := range pairs {
					simplex := &Simplex{}
					if GJK(p.BodyA, p.BodyB, simplex) {
						collisionChan <- collisionPair{BodyA: p.BodyA, BodyB: p.BodyB, simplex: simplex}
					}
				}
			}()
		}
		wg.Wait()
	}()

	contactsChan := make(chan Contact, workersCount)
	go func() {
		var wg sync.WaitGroup
		defer close(contactsChan)

		for i := 0; i < workersCount; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for pair := range collisionChan {
					contact, err := EPA(pair.BodyA, pair.BodyB, pair.simplex)
					if err != nil {
						continue
					}
					contactsChan <- contact
				}
			}()
		}
		wg.Wait()
	}()

	contacts := make([]Contact, 0)
	for c := range contactsChan {
		contacts = append(contacts, c)
	}
	return contacts
}
