package models

// Transcription mirrors the shape of the speech-to-text provider's
// pre-recorded response. Only the fields the aligner reads are declared;
// the provider may return either utterance-level spans with nested words,
// or an aggregate transcript with paragraph structure, or both.
type Transcription struct {
	Metadata TranscriptionMetadata `json:"metadata"`
	Results  TranscriptionResults  `json:"results"`
}

type TranscriptionMetadata struct {
	Duration float64 `json:"duration"`
}

type TranscriptionResults struct {
	Utterances []Utterance `json:"utterances,omitempty"`
	Channels   []Channel   `json:"channels,omitempty"`
}

type Utterance struct {
	Transcript string  `json:"transcript"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Words      []Word  `json:"words,omitempty"`
}

type Word struct {
	Word           string  `json:"word"`
	PunctuatedWord string  `json:"punctuated_word"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
}

type Channel struct {
	Alternatives []Alternative `json:"alternatives,omitempty"`
}

type Alternative struct {
	Transcript string     `json:"transcript"`
	Paragraphs *Paragraphs `json:"paragraphs,omitempty"`
}

type Paragraphs struct {
	Transcript string      `json:"transcript"`
	Paragraphs []Paragraph `json:"paragraphs,omitempty"`
}

type Paragraph struct {
	Sentences []Sentence `json:"sentences,omitempty"`
	Start     float64    `json:"start"`
	End       float64    `json:"end"`
}

type Sentence struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}
