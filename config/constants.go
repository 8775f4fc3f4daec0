package config

import "time"

// Segmentation constants
const (
	// FixedSegmentSeconds is the segment length used for long assets.
	FixedSegmentSeconds = 30.0

	// MaxFixedSegments caps how many fixed-length segments a long asset produces.
	MaxFixedSegments = 4

	// LongAssetThreshold is the duration above which fixed-length splitting applies.
	LongAssetThreshold = 300.0

	// DefaultTargetSegmentSeconds drives the equal-split segment count for mid-length assets.
	DefaultTargetSegmentSeconds = 30.0
)

// Render job dispatch constants
const (
	// RunDiscoveryAttempts bounds the workflow run id discovery loop.
	RunDiscoveryAttempts = 10

	// RunDiscoveryInterval is the wait between run id discovery polls.
	RunDiscoveryInterval = 2 * time.Second
)

// Job tracking constants
const (
	// TrackerPollInterval is how often outstanding render jobs are polled.
	TrackerPollInterval = 10 * time.Second
)

// Video output constants (9:16 vertical target)
const (
	VideoWidth  = 720
	VideoHeight = 1280

	VideoCodec   = "libx264"
	AudioCodec   = "aac"
	PixelFormat  = "yuv420p"
	AudioBitrate = "192k"
	VideoPreset  = "fast"
)
