package recommend

import (
	"context"
	_ "embed"

	"github.com/maimood/mood-coach/internal/emotion"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

var catalog map[emotion.Label][]Suggestion

func init() {
	if err := yaml.Unmarshal(catalogYAML, &catalog); err != nil {
		panic("failed to unmarshal embedded catalog.yaml: " + err.Error())
	}
}

// StaticProvider serves suggestions from the embedded catalog. It never
// fails and needs no configuration.
type StaticProvider struct{}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{}
}

func (p *StaticProvider) Name() string {
	return "static"
}

func (p *StaticProvider) Suggest(_ context.Context, mood emotion.Label) ([]Suggestion, error) {
	if suggestions, ok := catalog[mood]; ok {
		return suggestions, nil
	}
	return catalog[emotion.Neutral], nil
}
