package pattern

import "slices"

// ChangeKind identifies what a mutation touched
type ChangeKind int

const (
	ChangeVelocity ChangeKind = iota // a single cell
	ChangeRowMeta                    // a row's name or note
	ChangeShape                      // bar count or steps per bar
	ChangeBar                        // a whole bar (paste, randomize, humanize, clear)
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeVelocity:
		return "velocity"
	case ChangeRowMeta:
		return "row-meta"
	case ChangeShape:
		return "shape"
	case ChangeBar:
		return "bar"
	default:
		return "unknown"
	}
}

// Change describes a mutation. Only the fields relevant to Kind are set.
type Change struct {
	Kind ChangeKind
	Row  int
	Bar  int
	Step int
}

// Subscribe registers fn to be called synchronously after every mutation.
// The returned func removes the subscription.
// Observers are called in subscription order.
func (p *Pattern) Subscribe(fn func(Change)) (unsubscribe func()) {
	id := p.nextObserver
	p.nextObserver++
	p.observers = append(p.observers, observer{id: id, fn: fn})
	return func() {
		p.observers = slices.DeleteFunc(p.observers, func(o observer) bool { return o.id == id })
	}
}

type observer struct {
	id int
	fn func(Change)
}

func (p *Pattern) notify(c Change) {
	// a callback may unsubscribe while we iterate
	for _, o := range slices.Clone(p.observers) {
		o.fn(c)
	}
}
