// SPDX-License-Identifier: EPL-2.0

package compose

import "time"

// Plan is an edit of a single clip.
type Plan interface {
	// Op selects the output preset.
	Op() Op
	apply(c *Composition) error
}

// TrimPlan keeps only [Start, End).
type TrimPlan struct {
	Start, End time.Duration
}

func (TrimPlan) Op() Op { return OpCrop }

func (p TrimPlan) apply(c *Composition) error {
	r := TimeRange{Start: p.Start, End: p.End}.Frames(c.SampleRate())
	if err := c.check(r); err != nil {
		return err
	}
	if r.End < c.Len() {
		if err := c.RemoveRange(FrameRange{Start: r.End, End: c.Len()}); err != nil {
			return err
		}
	}
	if r.Start > 0 {
		return c.RemoveRange(FrameRange{Start: 0, End: r.Start})
	}
	return nil
}

// ExcisePlan removes every range and closes the gaps.
type ExcisePlan struct {
	Ranges []TimeRange
}

func (ExcisePlan) Op() Op { return OpCut }

func (p ExcisePlan) apply(c *Composition) error {
	frames := make([]FrameRange, len(p.Ranges))
	for i, r := range p.Ranges {
		frames[i] = r.Frames(c.SampleRate())
	}
	return c.Excise(frames)
}
