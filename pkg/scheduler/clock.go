package scheduler

import "time"

// Timer is a pending one-shot wait
type Timer interface {
	Stop() bool
}

// Clock arms one-shot waits. The default uses time.AfterFunc.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
