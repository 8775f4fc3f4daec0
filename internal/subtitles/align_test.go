package subtitles

import (
	"math"
	"reflect"
	"testing"

	"videosync/models"
)

const epsilon = 1e-9

func wordTranscription(words []models.Word) *models.Transcription {
	return &models.Transcription{
		Results: models.TranscriptionResults{
			Utterances: []models.Utterance{{
				Transcript: "ignored when words exist",
				Start:      words[0].Start,
				End:        words[len(words)-1].End,
				Words:      words,
			}},
		},
	}
}

func TestAlignLocalizesWordCues(t *testing.T) {
	t.Parallel()

	// Segment covers [10, 30) of the source; a word at 12.0-13.5 must land
	// at 2.0-3.5 in segment-local time.
	transcription := wordTranscription([]models.Word{
		{Word: "hello", PunctuatedWord: "Hello,", Start: 12.0, End: 13.5},
		{Word: "world", PunctuatedWord: "world.", Start: 13.5, End: 14.2},
	})

	cues := Align(transcription, 10, 20)
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(cues))
	}
	if cues[0].Text != "Hello," {
		t.Errorf("cue 0 text = %q, want punctuated form", cues[0].Text)
	}
	if math.Abs(cues[0].Start-2.0) > epsilon || math.Abs(cues[0].End-3.5) > epsilon {
		t.Errorf("cue 0 span = [%v, %v], want [2.0, 3.5]", cues[0].Start, cues[0].End)
	}
}

func TestAlignFiltersOutOfRangeCues(t *testing.T) {
	t.Parallel()

	transcription := wordTranscription([]models.Word{
		{Word: "before", Start: 5.0, End: 6.0},   // precedes the segment
		{Word: "inside", Start: 12.0, End: 13.0}, // survives
		{Word: "after", Start: 31.0, End: 32.0},  // past the segment end
	})

	cues := Align(transcription, 10, 20)
	if len(cues) != 1 {
		t.Fatalf("expected 1 surviving cue, got %d", len(cues))
	}
	if cues[0].Text != "inside" {
		t.Errorf("surviving cue = %q, want %q", cues[0].Text, "inside")
	}
}

func TestAlignFallsBackToWordField(t *testing.T) {
	t.Parallel()

	transcription := wordTranscription([]models.Word{
		{Word: "plain", PunctuatedWord: "", Start: 1.0, End: 2.0},
	})

	cues := Align(transcription, 0, 10)
	if len(cues) != 1 || cues[0].Text != "plain" {
		t.Fatalf("cues = %+v, want single cue with raw word text", cues)
	}
}

func TestAlignUsesUtteranceTranscriptWithoutWords(t *testing.T) {
	t.Parallel()

	transcription := &models.Transcription{
		Results: models.TranscriptionResults{
			Utterances: []models.Utterance{{
				Transcript: "whole utterance",
				Start:      1.0,
				End:        4.0,
			}},
		},
	}

	cues := Align(transcription, 0, 10)
	if len(cues) != 1 || cues[0].Text != "whole utterance" {
		t.Fatalf("cues = %+v, want the utterance transcript as one cue", cues)
	}
}

func TestAlignParagraphSentenceFallback(t *testing.T) {
	t.Parallel()

	transcription := &models.Transcription{
		Results: models.TranscriptionResults{
			Channels: []models.Channel{{
				Alternatives: []models.Alternative{{
					Transcript: "First sentence. Second sentence.",
					Paragraphs: &models.Paragraphs{
						Paragraphs: []models.Paragraph{{
							Sentences: []models.Sentence{
								{Text: "First sentence.", Start: 0.5, End: 2.0},
								{Text: "Second sentence.", Start: 2.0, End: 4.0},
							},
						}},
					},
				}},
			}},
		},
	}

	cues := Align(transcription, 0, 10)
	if len(cues) != 2 {
		t.Fatalf("expected 2 sentence cues, got %d", len(cues))
	}
	if cues[0].Text != "First sentence." || cues[1].Text != "Second sentence." {
		t.Errorf("cues = %+v, want sentence texts in order", cues)
	}
}

func TestAlignFlatTranscriptFallback(t *testing.T) {
	t.Parallel()

	// No structured timing at all: the flat transcript becomes one cue
	// spanning the whole segment, regardless of the segment's source
	// offset.
	transcription := &models.Transcription{
		Results: models.TranscriptionResults{
			Channels: []models.Channel{{
				Alternatives: []models.Alternative{{
					Transcript: "the whole thing",
				}},
			}},
		},
	}

	cues := Align(transcription, 45, 15)
	want := []models.SubtitleCue{{Text: "the whole thing", Start: 0, End: 15}}
	if !reflect.DeepEqual(cues, want) {
		t.Fatalf("cues = %+v, want %+v", cues, want)
	}
}

func TestAlignNoAudioSentinel(t *testing.T) {
	t.Parallel()

	for _, transcription := range []*models.Transcription{
		nil,
		{},
	} {
		cues := Align(transcription, 0, 12)
		if len(cues) != 1 {
			t.Fatalf("expected single sentinel cue, got %d", len(cues))
		}
		if cues[0].Text != NoAudioText || cues[0].Start != 0 || cues[0].End != 12 {
			t.Errorf("sentinel cue = %+v", cues[0])
		}
	}
}

func TestAlignIsPure(t *testing.T) {
	t.Parallel()

	transcription := wordTranscription([]models.Word{
		{Word: "a", Start: 11.0, End: 11.5},
		{Word: "b", Start: 11.5, End: 12.0},
	})

	first := Align(transcription, 10, 20)
	second := Align(transcription, 10, 20)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated alignment diverged: %+v vs %+v", first, second)
	}
}

func TestAlignSortsByStart(t *testing.T) {
	t.Parallel()

	transcription := wordTranscription([]models.Word{
		{Word: "second", Start: 5.0, End: 6.0},
		{Word: "first", Start: 1.0, End: 2.0},
	})

	cues := Align(transcription, 0, 10)
	if len(cues) != 2 || cues[0].Text != "first" || cues[1].Text != "second" {
		t.Fatalf("cues = %+v, want start-ordered", cues)
	}
}

func TestErrorCues(t *testing.T) {
	t.Parallel()

	cues := ErrorCues(25)
	want := []models.SubtitleCue{{Text: ErrorText, Start: 0, End: 25}}
	if !reflect.DeepEqual(cues, want) {
		t.Fatalf("ErrorCues = %+v, want %+v", cues, want)
	}
}

func TestActiveCueEarliestWins(t *testing.T) {
	t.Parallel()

	cues := []models.SubtitleCue{
		{Text: "early", Start: 1.0, End: 5.0},
		{Text: "late", Start: 2.0, End: 6.0},
	}

	if got := models.ActiveCue(cues, 3.0); got == nil || got.Text != "early" {
		t.Fatalf("ActiveCue(3.0) = %+v, want the earliest-starting cue", got)
	}
	if got := models.ActiveCue(cues, 5.5); got == nil || got.Text != "late" {
		t.Fatalf("ActiveCue(5.5) = %+v, want the remaining cue", got)
	}
	if got := models.ActiveCue(cues, 6.0); got != nil {
		t.Fatalf("ActiveCue(6.0) = %+v, want nil (end is exclusive)", got)
	}
}
