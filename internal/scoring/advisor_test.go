package scoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/models"
)

func TestIssuesOrderedByExceedance(t *testing.T) {
	advisor := DefaultAdvisor()

	reading := models.Telemetry{
		AirTemperature:     303,  // 1.01x over 300
		ProcessTemperature: 309,  // under 310
		RotationalSpeed:    2400, // 1.09x over 2200
		Torque:             50,   // under 60
		ToolWear:           460,  // 2.3x over 200
	}

	issues := advisor.Issues(reading)
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %d: %+v", len(issues), issues)
	}
	if issues[0].Feature != "tool_wear" {
		t.Fatalf("expected tool_wear as dominant issue, got %s", issues[0].Feature)
	}
	if issues[1].Feature != "rotational_speed" {
		t.Fatalf("expected rotational_speed second, got %s", issues[1].Feature)
	}
}

func TestIssuesEmptyInsideEnvelope(t *testing.T) {
	advisor := DefaultAdvisor()

	reading := models.Telemetry{
		AirTemperature:     298,
		ProcessTemperature: 308,
		RotationalSpeed:    1500,
		Torque:             40,
		ToolWear:           100,
	}
	if issues := advisor.Issues(reading); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestRecommendFallsBackToGenericAdvice(t *testing.T) {
	advisor := DefaultAdvisor()

	recs := advisor.Recommend(models.Telemetry{
		AirTemperature:     298,
		ProcessTemperature: 308,
		RotationalSpeed:    1500,
		Torque:             40,
		ToolWear:           100,
	})
	if len(recs) != 1 {
		t.Fatalf("expected single generic recommendation, got %v", recs)
	}
	if recs[0] != "Lakukan inspeksi menyeluruh dan maintenance preventif" {
		t.Fatalf("unexpected generic recommendation: %q", recs[0])
	}
}

func TestLoadAdvisorMissingFileUsesDefaults(t *testing.T) {
	advisor, err := LoadAdvisor(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load advisor: %v", err)
	}
	if len(advisor.rules) != len(DefaultAdvisor().rules) {
		t.Fatalf("expected default rule pack, got %d rules", len(advisor.rules))
	}
}

func TestLoadAdvisorFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `rules:
  - feature: torque
    threshold: 55
    label: torsi tinggi
    recommendation: Periksa beban mesin
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	advisor, err := LoadAdvisor(path)
	if err != nil {
		t.Fatalf("load advisor: %v", err)
	}
	if len(advisor.rules) != 1 || advisor.rules[0].Feature != "torque" {
		t.Fatalf("unexpected rules: %+v", advisor.rules)
	}

	reading := models.Telemetry{Torque: 58}
	issues := advisor.Issues(reading)
	if len(issues) != 1 || issues[0].Label != "torsi tinggi" {
		t.Fatalf("expected torque issue, got %+v", issues)
	}
}
