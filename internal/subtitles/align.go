package subtitles

import (
	"sort"

	"videosync/models"
)

// Sentinel cue texts emitted when no usable transcription exists.
// Downstream rendering always receives at least one cue.
const (
	NoAudioText = "No audio detected"
	ErrorText   = "Error generating subtitles"
)

// Align converts a transcription response into segment-local subtitle
// cues. It is a pure function of its inputs: aligning the same response
// twice yields identical cue sequences.
//
// segmentStart is the segment's absolute offset in the source timeline;
// pass 0 when the transcription was computed against the segment's own
// media. Timed cues are shifted by -segmentStart and cues outside
// [0, segmentDuration] are dropped, not clamped. When no structured
// timing survives, the flat transcript becomes a single cue spanning the
// segment; when not even that exists, a "No audio detected" sentinel is
// emitted.
func Align(t *models.Transcription, segmentStart, segmentDuration float64) []models.SubtitleCue {
	cues := timedCues(t)

	localized := make([]models.SubtitleCue, 0, len(cues))
	for _, cue := range cues {
		cue.Start -= segmentStart
		cue.End -= segmentStart
		if cue.Valid(segmentDuration) {
			localized = append(localized, cue)
		}
	}

	sort.SliceStable(localized, func(i, j int) bool {
		return localized[i].Start < localized[j].Start
	})

	if len(localized) > 0 {
		return localized
	}

	if transcript := flatTranscript(t); transcript != "" {
		return []models.SubtitleCue{{Text: transcript, Start: 0, End: segmentDuration}}
	}

	return []models.SubtitleCue{{Text: NoAudioText, Start: 0, End: segmentDuration}}
}

// ErrorCues is the sentinel sequence for a failed transcription; subtitle
// generation is best-effort and never blocks the pipeline.
func ErrorCues(segmentDuration float64) []models.SubtitleCue {
	return []models.SubtitleCue{{Text: ErrorText, Start: 0, End: segmentDuration}}
}

// timedCues prefers word-level spans from utterances and falls back to
// sentence spans from paragraph structure.
func timedCues(t *models.Transcription) []models.SubtitleCue {
	if t == nil {
		return nil
	}

	if len(t.Results.Utterances) > 0 {
		var cues []models.SubtitleCue
		for _, utterance := range t.Results.Utterances {
			if len(utterance.Words) == 0 {
				if utterance.Transcript != "" {
					cues = append(cues, models.SubtitleCue{
						Text:  utterance.Transcript,
						Start: utterance.Start,
						End:   utterance.End,
					})
				}
				continue
			}
			for _, word := range utterance.Words {
				text := word.PunctuatedWord
				if text == "" {
					text = word.Word
				}
				cues = append(cues, models.SubtitleCue{Text: text, Start: word.Start, End: word.End})
			}
		}
		if len(cues) > 0 {
			return cues
		}
	}

	if len(t.Results.Channels) > 0 && len(t.Results.Channels[0].Alternatives) > 0 {
		alternative := t.Results.Channels[0].Alternatives[0]
		if alternative.Paragraphs != nil {
			var cues []models.SubtitleCue
			for _, paragraph := range alternative.Paragraphs.Paragraphs {
				for _, sentence := range paragraph.Sentences {
					if sentence.Text == "" {
						continue
					}
					cues = append(cues, models.SubtitleCue{
						Text:  sentence.Text,
						Start: sentence.Start,
						End:   sentence.End,
					})
				}
			}
			if len(cues) > 0 {
				return cues
			}
		}
	}

	return nil
}

func flatTranscript(t *models.Transcription) string {
	if t == nil || len(t.Results.Channels) == 0 || len(t.Results.Channels[0].Alternatives) == 0 {
		return ""
	}
	return t.Results.Channels[0].Alternatives[0].Transcript
}
