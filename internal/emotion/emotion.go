// Package emotion defines the closed emotion vocabulary shared by the
// inference API, the record store and the presentation layer.
//
// The audio model was trained with long-form class names (happiness, sadness,
// anger, ...) while the image model emits short forms (happy, sad, angry).
// Both spellings appear in historical records, so normalization happens here,
// once, at the input boundary - callers work with canonical labels only.
package emotion

import (
	_ "embed"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var vocabularyYAML []byte

// Label is a canonical emotion label.
type Label string

const (
	Happy    Label = "happy"
	Sad      Label = "sad"
	Angry    Label = "angry"
	Fear     Label = "fear"
	Disgust  Label = "disgust"
	Surprise Label = "surprise"
	Neutral  Label = "neutral"
)

type entry struct {
	Aliases  []string `yaml:"aliases"`
	Emoji    string   `yaml:"emoji"`
	Color    string   `yaml:"color"`
	Gradient []string `yaml:"gradient"`
}

type vocabulary struct {
	Default  Label            `yaml:"default"`
	Emotions map[Label]entry  `yaml:"emotions"`
}

var (
	vocab vocabulary
	// alias (including the canonical spelling itself) -> canonical label
	canonical map[string]Label
)

func init() {
	if err := yaml.Unmarshal(vocabularyYAML, &vocab); err != nil {
		// Embedded file, a failure here is a build defect.
		panic("failed to unmarshal embedded vocabulary.yaml: " + err.Error())
	}
	canonical = make(map[string]Label, len(vocab.Emotions)*2)
	for label, e := range vocab.Emotions {
		canonical[string(label)] = label
		for _, alias := range e.Aliases {
			canonical[strings.ToLower(alias)] = label
		}
	}
}

// Normalize maps a raw server or stored label to its canonical form.
// The second return value reports whether the label is part of the vocabulary.
func Normalize(raw string) (Label, bool) {
	label, ok := canonical[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return vocab.Default, false
	}
	return label, true
}

// Labels returns all canonical labels in the vocabulary.
func Labels() []Label {
	labels := make([]Label, 0, len(vocab.Emotions))
	for label := range vocab.Emotions {
		labels = append(labels, label)
	}
	return labels
}

// Emoji returns the display glyph for a label. Unknown input maps to the
// neutral glyph, making this a total function.
func Emoji(raw string) string {
	label, _ := Normalize(raw)
	return vocab.Emotions[label].Emoji
}

// Color returns the display color for a label, neutral for unknown input.
func Color(raw string) string {
	label, _ := Normalize(raw)
	return vocab.Emotions[label].Color
}

// Gradient returns the background gradient stops for a label, neutral for
// unknown input.
func Gradient(raw string) []string {
	label, _ := Normalize(raw)
	return vocab.Emotions[label].Gradient
}
