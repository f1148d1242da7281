package matching

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/duosnap/backend/internal/db"
	apperrors "github.com/duosnap/backend/internal/errors"
)

// ErrDuplicateCandidate is a fatal precondition failure: the candidate
// pool handed to Match contained the same member twice. Surfaced to an
// operator, never auto-retried.
var ErrDuplicateCandidate = fmt.Errorf("%w: duplicate candidate id", apperrors.ErrPrecondition)

// Rules are the eligibility knobs for one run.
type Rules struct {
	// RecencyWindow bounds how long ago a member may have last been
	// active.
	RecencyWindow time.Duration
	// FlakeCeiling excludes members whose consecutive non-response
	// streak has reached this value.
	FlakeCeiling int
}

// Eligible returns the candidate pool for a run: active members, seen
// within the recency window, below the flake ceiling. Fails closed:
// missing any criterion excludes the member.
func Eligible(members []db.Member, now time.Time, rules Rules) []db.Member {
	cutoff := now.Add(-rules.RecencyWindow)

	out := make([]db.Member, 0, len(members))
	for _, m := range members {
		if !m.Active {
			continue
		}
		if m.LastActiveAt.Before(cutoff) {
			continue
		}
		if m.FlakeStreak >= rules.FlakeCeiling {
			continue
		}
		out = append(out, m)
	}
	return out
}

// PairKey canonicalizes an unordered member pair into a map key.
func PairKey(x, y string) string {
	if x > y {
		x, y = y, x
	}
	return x + "|" + y
}

// PairSet is a set of unordered member pairs.
type PairSet map[string]struct{}

func (s PairSet) Add(x, y string)           { s[PairKey(x, y)] = struct{}{} }
func (s PairSet) Contains(x, y string) bool { _, ok := s[PairKey(x, y)]; return ok }

// BlockSet indexes block rows by blocker. Blocked answers in both
// directions, so one row is enough to keep a pair apart.
type BlockSet map[string]map[string]struct{}

func NewBlockSet(blocks []db.MemberBlock) BlockSet {
	s := make(BlockSet, len(blocks))
	for _, b := range blocks {
		if s[b.MemberID] == nil {
			s[b.MemberID] = make(map[string]struct{})
		}
		s[b.MemberID][b.BlockedID] = struct{}{}
	}
	return s
}

func (s BlockSet) Blocked(x, y string) bool {
	if _, ok := s[x][y]; ok {
		return true
	}
	_, ok := s[y][x]
	return ok
}

// Result is one run's output: disjoint pairs plus everyone left over.
type Result struct {
	Pairs    [][2]string
	Waitlist []string
}

// Match pairs up the candidate pool with a single greedy pass.
//
// Ordering:
//  1. Stable sort, priority members first.
//  2. Fisher-Yates shuffle within each priority tier, seeded, so a run
//     is reproducible given its seed. Priority members stay
//     collectively ahead but none is guaranteed a pair; blocks,
//     recent history and odd pool size can still waitlist any of them.
//  3. Walk the sequence; each unpaired member takes the first later
//     candidate that is unpaired, not blocked either way, and not in
//     the recent-pair set.
//
// Fewer than two candidates is a normal outcome (zero pairs, pool on
// the waitlist), not an error. Match errs only on a violated
// precondition.
func Match(pool []db.Member, blocks BlockSet, recent PairSet, seed int64) (Result, error) {
	seen := make(map[string]struct{}, len(pool))
	for _, m := range pool {
		if _, dup := seen[m.ID]; dup {
			return Result{}, fmt.Errorf("%w: %s", ErrDuplicateCandidate, m.ID)
		}
		seen[m.ID] = struct{}{}
	}

	seq := make([]db.Member, len(pool))
	copy(seq, pool)

	sort.SliceStable(seq, func(i, j int) bool {
		return seq[i].PriorityNextPairing && !seq[j].PriorityNextPairing
	})

	// tier boundary: everything before it has the priority flag
	tier := 0
	for tier < len(seq) && seq[tier].PriorityNextPairing {
		tier++
	}

	r := rand.New(rand.NewSource(seed))
	shuffle(r, seq[:tier])
	shuffle(r, seq[tier:])

	paired := make(map[string]struct{}, len(seq))
	var res Result

	for i, m := range seq {
		if _, ok := paired[m.ID]; ok {
			continue
		}
		for _, n := range seq[i+1:] {
			if _, ok := paired[n.ID]; ok {
				continue
			}
			if blocks.Blocked(m.ID, n.ID) {
				continue
			}
			if recent.Contains(m.ID, n.ID) {
				continue
			}
			paired[m.ID] = struct{}{}
			paired[n.ID] = struct{}{}
			res.Pairs = append(res.Pairs, [2]string{m.ID, n.ID})
			break
		}
	}

	for _, m := range seq {
		if _, ok := paired[m.ID]; !ok {
			res.Waitlist = append(res.Waitlist, m.ID)
		}
	}

	return res, nil
}

func shuffle(r *rand.Rand, s []db.Member) {
	r.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}
