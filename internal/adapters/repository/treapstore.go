package repository

import (
	"container/list"
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/doppel/internal/domain/types"
	"github.com/okian/doppel/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: overall score DESC, then ID ASC. "less" means ranks earlier, so
// an in-order traversal yields the ranking from best to worst. Only finished
// comparisons take part in the ranking.

// Scores carry two decimals; scaling by 100 makes them exact integers.
const scoreScale = 100

type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	return scoreFP(math.Round(x * scoreScale))
}

func toFloat(x scoreFP) float64 {
	return float64(x) / scoreScale
}

type node struct {
	id    string
	score scoreFP
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aID) ranks before (bScore, bID).
func less(aScore scoreFP, aID string, bScore scoreFP, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score scoreFP) *node {
	if n == nil {
		return &node{id: id, score: score, prio: rand.Uint64(), size: 1} //nolint:gosec // treap balance only
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score scoreFP) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	case less(score, id, n.score, n.id):
		n.left = deleteNode(n.left, id, score)
	default:
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, byID map[string]*stored, out *[]types.Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, byID, out)
	if len(*out) < limit {
		if st, ok := byID[n.id]; ok {
			*out = append(*out, types.Entry{
				ID:                     n.id,
				OverallScore:           toFloat(n.score),
				IsMatch:                st.rec.Result.IsMatch,
				IsPossibleDoppelganger: st.rec.Result.IsPossibleDoppelganger,
			})
		}
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, byID, out)
	}
}

type stored struct {
	rec    Record
	score  scoreFP
	ranked bool
	elem   *list.Element
}

// TreapStore keeps every record in a map, the finished ones in a treap for
// ranking, and insertion order in a list for eviction.
type TreapStore struct {
	mu       sync.RWMutex
	root     *node
	byID     map[string]*stored
	order    *list.List
	capacity int
}

// NewTreapStore constructs a treap store.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		byID:  make(map[string]*stored),
		order: list.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateRepositoryRecords(0)
	return s
}

// Save implements Store.Save in O(log n) expected time.
func (s *TreapStore) Save(_ context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRecord)
	}
	if rec.Status == StatusDone && rec.Result == nil {
		return fmt.Errorf("%w: finished record %s has no result", ErrInvalidRecord, rec.ID)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	s.mu.Lock()
	if old, ok := s.byID[rec.ID]; ok {
		s.removeLocked(old)
	}

	st := &stored{rec: rec}
	if rec.Status == StatusDone {
		st.score = toFixedPoint(rec.Result.OverallScore)
		st.ranked = true
		s.root = insert(s.root, rec.ID, st.score)
	}
	st.elem = s.order.PushBack(rec.ID)
	s.byID[rec.ID] = st

	evicted := 0
	for s.capacity > 0 && s.order.Len() > s.capacity {
		oldest := s.byID[s.order.Front().Value.(string)]
		s.removeLocked(oldest)
		evicted++
	}
	count := len(s.byID)
	s.mu.Unlock()

	for i := 0; i < evicted; i++ {
		metrics.RecordRepositoryEviction()
	}
	metrics.UpdateRepositoryRecords(count)
	return nil
}

func (s *TreapStore) removeLocked(st *stored) {
	if st.ranked {
		s.root = deleteNode(s.root, st.rec.ID, st.score)
	}
	s.order.Remove(st.elem)
	delete(s.byID, st.rec.ID)
}

// Get implements Store.Get.
func (s *TreapStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return st.rec, nil
}

// TopN returns the top N finished comparisons. Equal scores share a rank and
// the next distinct score takes the following rank.
func (s *TreapStore) TopN(_ context.Context, n int) ([]types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Entry, 0, min(n, nsize(s.root)))
	collectTopN(s.root, n, s.byID, &out)
	assignRanksWithTies(out)
	return out, nil
}

// Count returns the number of stored records.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Ranked returns the number of finished comparisons in the ranking.
func (s *TreapStore) Ranked(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return nsize(s.root)
}

func assignRanksWithTies(entries []types.Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].OverallScore != entries[i-1].OverallScore {
			rank++
		}
		entries[i].Rank = rank
	}
}
