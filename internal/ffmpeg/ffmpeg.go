package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"videosync/config"
)

// ProbeResult carries the subset of ffprobe output the pipeline needs.
type ProbeResult struct {
	Duration float64 // seconds
	Width    int
	Height   int
}

// ffprobeOutput defines the structure for ffprobe JSON output.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Probe uses ffprobe to read the duration and dimensions of a media file or URL.
func Probe(ctx context.Context, input string) (*ProbeResult, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		input,
	)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %v\nStderr: %s", err, stderr.String())
	}

	var probed ffprobeOutput
	if err := json.Unmarshal(out.Bytes(), &probed); err != nil {
		return nil, fmt.Errorf("error unmarshalling ffprobe output: %v\nOutput: %s", err, out.String())
	}

	if probed.Format.Duration == "" {
		return nil, fmt.Errorf("could not retrieve duration from ffprobe output\nOutput: %s", out.String())
	}

	duration, err := strconv.ParseFloat(probed.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("error parsing duration string '%s': %v", probed.Format.Duration, err)
	}

	result := &ProbeResult{Duration: duration}
	for _, stream := range probed.Streams {
		if stream.CodecType == "video" {
			result.Width = stream.Width
			result.Height = stream.Height
			break
		}
	}
	return result, nil
}

// SegmentTranscoder adapts the package functions to the segmenter's
// Transcoder interface.
type SegmentTranscoder struct{}

func (SegmentTranscoder) ExtractSegment(ctx context.Context, input, output string, start, duration float64, verticalCrop bool) error {
	return ExtractSegment(ctx, input, output, start, duration, ExtractOptions{VerticalCrop: verticalCrop})
}

// ExtractOptions constrains the encoded output of ExtractSegment.
type ExtractOptions struct {
	// VerticalCrop scales and crops the output to the 9:16 target
	// (config.VideoWidth x config.VideoHeight).
	VerticalCrop bool
}

// ExtractSegment cuts [start, start+duration) seconds out of input and
// re-encodes it as an independently playable H.264/AAC unit at output.
// Re-encoding (rather than -c copy) keeps segment boundaries frame accurate.
func ExtractSegment(ctx context.Context, input, output string, start, duration float64, opts ExtractOptions) error {
	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", start),
		"-t", fmt.Sprintf("%.3f", duration),
		"-i", input,
		"-c:v", config.VideoCodec,
		"-preset", config.VideoPreset,
		"-pix_fmt", config.PixelFormat,
		"-c:a", config.AudioCodec,
		"-b:a", config.AudioBitrate,
	}

	if opts.VerticalCrop {
		filter := fmt.Sprintf(
			"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
			config.VideoWidth, config.VideoHeight, config.VideoWidth, config.VideoHeight,
		)
		args = append(args, "-vf", filter)
	}

	args = append(args, "-movflags", "+faststart", output)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg segment extraction failed: %v\nStderr: %s", err, stderr.String())
	}
	return nil
}
