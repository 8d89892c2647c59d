package alert

import (
	"fmt"
)

// Segment is a closed time interval in seconds from the stream start.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (s Segment) Duration() float64 {
	return s.End - s.Start
}

func (s Segment) String() string {
	return fmt.Sprintf("[%.2fs, %.2fs]", s.Start, s.End)
}

// SegmentRecorder collects the intervals during which the alert is raised.
// A segment opens at the start of the first alerting window and closes at
// the end of the last one.
type SegmentRecorder struct {
	segments []Segment
	open     *Segment
}

func NewSegmentRecorder() *SegmentRecorder {
	return &SegmentRecorder{}
}

// Observe feeds the alert flag of the window [tStart, tEnd]. It returns
// true when the call opened or closed a segment.
func (r *SegmentRecorder) Observe(tStart, tEnd float64, active bool) bool {
	switch {
	case active && r.open == nil:
		r.open = &Segment{Start: tStart, End: tEnd}
		return true
	case active:
		r.open.End = tEnd
		return false
	case r.open != nil:
		r.segments = append(r.segments, *r.open)
		r.open = nil
		return true
	default:
		return false
	}
}

// Finalize closes the open segment, if any, at tEnd.
func (r *SegmentRecorder) Finalize(tEnd float64) {
	if r.open == nil {
		return
	}
	r.open.End = max(r.open.End, tEnd)
	r.segments = append(r.segments, *r.open)
	r.open = nil
}

func (r *SegmentRecorder) IsOpen() bool {
	return r.open != nil
}

func (r *SegmentRecorder) Segments() []Segment {
	return append([]Segment(nil), r.segments...)
}
