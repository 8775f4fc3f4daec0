package models

// Segment is a time-bounded slice of a MediaAsset, materialized as an
// independently playable unit. Segments are produced in index order and
// are immutable once created; a failed segment is omitted from the
// sequence, so indices are contiguous only in the full-success case.
type Segment struct {
	Index     int     `json:"index"`
	StartTime float64 `json:"start_time"` // seconds, offset into the parent asset
	Duration  float64 `json:"duration"`   // seconds, > 0
	VideoURL  string  `json:"video_url,omitempty"`
}

// SubtitleCue is a timed subtitle line with offsets local to its segment.
type SubtitleCue struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Valid reports whether the cue satisfies the emission invariant for a
// segment of the given duration.
func (c SubtitleCue) Valid(segmentDuration float64) bool {
	return c.Text != "" && c.Start >= 0 && c.End > c.Start && c.End <= segmentDuration
}

// ActiveCue returns the earliest-starting cue active at time t, or nil.
// Cue lists are ordered by start time; overlapping cues are allowed, and
// the earliest start wins deterministically.
func ActiveCue(cues []SubtitleCue, t float64) *SubtitleCue {
	for i := range cues {
		if cues[i].Start <= t && t < cues[i].End {
			return &cues[i]
		}
	}
	return nil
}
