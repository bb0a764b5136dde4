package crawler

import (
	"fmt"
	"time"
)

// Progress formats per-item progress lines with an ETA derived from the
// average time per item so far.
type Progress struct {
	total int
	start time.Time
	now   func() time.Time
}

// NewProgress starts a progress tracker over total items.
func NewProgress(total int, now func() time.Time) *Progress {
	if now == nil {
		now = time.Now
	}
	return &Progress{total: total, start: now(), now: now}
}

// ETA estimates the time left after idx of total items were started.
func (p *Progress) ETA(idx int) time.Duration {
	if idx <= 0 {
		return 0
	}
	elapsed := p.now().Sub(p.start)
	return elapsed / time.Duration(idx) * time.Duration(p.total-idx)
}

// Elapsed returns the time since the tracker started.
func (p *Progress) Elapsed() time.Duration {
	return p.now().Sub(p.start)
}

// Line renders "[idx/total] (X.Xm elapsed, ~Ym left) NAME".
func (p *Progress) Line(idx int, name string) string {
	return fmt.Sprintf("[%d/%d] (%.1fm elapsed, ~%.0fm left) %s",
		idx, p.total, p.Elapsed().Minutes(), p.ETA(idx).Minutes(), name)
}
