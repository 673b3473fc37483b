// Package pool tracks which players are still unsold and which one, if any,
// is currently on the block.
package pool

import (
	"math/rand/v2"
	"slices"
)

// Origin reports where a removed player was found.
type Origin int

const (
	// OriginNone means the player was not held by the pool.
	OriginNone Origin = iota
	// OriginUnsold means the player was waiting in the unsold set.
	OriginUnsold
	// OriginCurrent means the player was on the block.
	OriginCurrent
)

func (o Origin) String() string {
	switch o {
	case OriginUnsold:
		return "unsold"
	case OriginCurrent:
		return "current"
	default:
		return "none"
	}
}

// Pool holds the unsold set and the current player. Removal from the unsold
// set is O(1) via swap-remove. Pool is not safe for concurrent use; the
// auction engine serializes access.
type Pool struct {
	unsold  []int
	index   map[int]int
	current int
	onBlock bool
	rng     *rand.Rand
}

// New returns a pool whose unsold set holds ids. Duplicate ids are ignored.
func New(ids []int, rng *rand.Rand) *Pool {
	p := &Pool{
		unsold: make([]int, 0, len(ids)),
		index:  make(map[int]int, len(ids)),
		rng:    rng,
	}
	for _, id := range ids {
		p.Add(id)
	}
	return p
}

// Draw picks a uniformly random unsold player, removes it from the unsold set
// and puts it on the block. It returns false when the unsold set is empty.
// A player already on the block must be returned or cleared first; Draw
// returns it to the unsold set itself so it is never lost.
func (p *Pool) Draw() (int, bool) {
	p.ReturnCurrent()
	if len(p.unsold) == 0 {
		return 0, false
	}
	id := p.unsold[p.rng.IntN(len(p.unsold))]
	p.removeUnsold(id)
	p.current, p.onBlock = id, true
	return id, true
}

// Current returns the player on the block.
func (p *Pool) Current() (int, bool) {
	return p.current, p.onBlock
}

// SetCurrent puts id on the block. Any player already there goes back to the
// unsold set. id must not be held by the pool.
func (p *Pool) SetCurrent(id int) {
	p.ReturnCurrent()
	p.current, p.onBlock = id, true
}

// ReturnCurrent moves the player on the block back into the unsold set.
func (p *Pool) ReturnCurrent() (int, bool) {
	if !p.onBlock {
		return 0, false
	}
	id := p.current
	p.ClearCurrent()
	p.Add(id)
	return id, true
}

// ClearCurrent empties the block without returning the player anywhere.
func (p *Pool) ClearCurrent() {
	p.current, p.onBlock = 0, false
}

// Add puts id into the unsold set.
func (p *Pool) Add(id int) {
	if _, ok := p.index[id]; ok {
		return
	}
	p.index[id] = len(p.unsold)
	p.unsold = append(p.unsold, id)
}

// Remove takes id out of the pool and reports where it was.
func (p *Pool) Remove(id int) Origin {
	if p.onBlock && p.current == id {
		p.ClearCurrent()
		return OriginCurrent
	}
	if p.removeUnsold(id) {
		return OriginUnsold
	}
	return OriginNone
}

// Locate reports where id is without changing anything.
func (p *Pool) Locate(id int) Origin {
	if p.onBlock && p.current == id {
		return OriginCurrent
	}
	if _, ok := p.index[id]; ok {
		return OriginUnsold
	}
	return OriginNone
}

// Len returns the size of the unsold set.
func (p *Pool) Len() int { return len(p.unsold) }

// Unsold returns the unsold ids in ascending order.
func (p *Pool) Unsold() []int {
	ids := slices.Clone(p.unsold)
	slices.Sort(ids)
	return ids
}

func (p *Pool) removeUnsold(id int) bool {
	idx, ok := p.index[id]
	if !ok {
		return false
	}
	last := len(p.unsold) - 1
	moved := p.unsold[last]
	p.unsold[idx] = moved
	p.index[moved] = idx
	p.unsold = p.unsold[:last]
	delete(p.index, id)
	return true
}
