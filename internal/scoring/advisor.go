package scoring

import (
	"errors"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/models"
)

// Advisor holds the raw-sensor advisory rules. These thresholds are
// explanatory context only: the probability-derived status always wins,
// and the two signals are deliberately kept decoupled.
type Advisor struct {
	rules []AdvisoryRule
}

// AdvisoryRule flags a single feature once it exceeds a raw threshold.
type AdvisoryRule struct {
	Feature        string  `yaml:"feature"`
	Threshold      float64 `yaml:"threshold"`
	Label          string  `yaml:"label"`
	Recommendation string  `yaml:"recommendation"`
}

// Issue is a triggered advisory rule together with how far past the
// threshold the reading sits.
type Issue struct {
	Feature    string
	Label      string
	Exceedance float64
}

type advisorConfigFile struct {
	Rules []AdvisoryRule `yaml:"rules"`
}

// DefaultAdvisor returns the built-in advisory rule pack.
func DefaultAdvisor() *Advisor {
	return &Advisor{rules: []AdvisoryRule{
		{Feature: "air_temperature", Threshold: 300, Label: "suhu udara tinggi", Recommendation: "Periksa sistem pendingin mesin"},
		{Feature: "process_temperature", Threshold: 310, Label: "suhu proses tinggi", Recommendation: "Monitor suhu proses dan material yang digunakan"},
		{Feature: "rotational_speed", Threshold: 2200, Label: "kecepatan rotasi tinggi", Recommendation: "Kurangi kecepatan operasional atau periksa balancing"},
		{Feature: "torque", Threshold: 60, Label: "torsi tinggi", Recommendation: "Periksa beban mesin dan komponen mekanis"},
		{Feature: "tool_wear", Threshold: 200, Label: "keausan tool tinggi", Recommendation: "Segera ganti tool/komponen yang aus"},
	}}
}

// LoadAdvisor reads an advisory rule pack from YAML. An empty path or a
// missing file falls back to the built-in defaults.
func LoadAdvisor(path string) (*Advisor, error) {
	if path == "" {
		return DefaultAdvisor(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultAdvisor(), nil
		}
		return nil, err
	}
	var cfg advisorConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Rules) == 0 {
		return DefaultAdvisor(), nil
	}
	return &Advisor{rules: cfg.Rules}, nil
}

// Issues returns the triggered rules for a reading, most-exceeded first.
// Ties break on feature name so the ordering stays deterministic.
func (a *Advisor) Issues(t models.Telemetry) []Issue {
	values := featureValues(t)

	issues := make([]Issue, 0, len(a.rules))
	for _, rule := range a.rules {
		value, ok := values[rule.Feature]
		if !ok || rule.Threshold <= 0 {
			continue
		}
		if value > rule.Threshold {
			issues = append(issues, Issue{
				Feature:    rule.Feature,
				Label:      rule.Label,
				Exceedance: value / rule.Threshold,
			})
		}
	}

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Exceedance != issues[j].Exceedance {
			return issues[i].Exceedance > issues[j].Exceedance
		}
		return issues[i].Feature < issues[j].Feature
	})
	return issues
}

// Recommend maps the triggered rules onto maintenance recommendations,
// falling back to a generic inspection when nothing specific triggered.
func (a *Advisor) Recommend(t models.Telemetry) []string {
	values := featureValues(t)

	recs := make([]string, 0, len(a.rules))
	for _, rule := range a.rules {
		value, ok := values[rule.Feature]
		if !ok || rule.Recommendation == "" {
			continue
		}
		if value > rule.Threshold {
			recs = append(recs, rule.Recommendation)
		}
	}
	if len(recs) == 0 {
		recs = append(recs, "Lakukan inspeksi menyeluruh dan maintenance preventif")
	}
	return recs
}

func featureValues(t models.Telemetry) map[string]float64 {
	return map[string]float64{
		"air_temperature":     t.AirTemperature,
		"process_temperature": t.ProcessTemperature,
		"rotational_speed":    t.RotationalSpeed,
		"torque":              t.Torque,
		"tool_wear":           t.ToolWear,
	}
}
