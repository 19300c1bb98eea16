// Package agent maps free-text questions onto the registry and scoring
// capabilities and composes one coherent natural-language answer. It is
// the only component allowed nontrivial control flow, and the last line
// of defence: every downstream failure becomes a user-facing message,
// never an unhandled error. Queries are stateless; no conversation
// memory is kept across calls.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/models"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/utils"
)

// Fleet is the registry surface the agent reads from.
type Fleet interface {
	Predict(ctx context.Context, machineID string) (models.PredictionResult, error)
	HighRisk() []models.Machine
	ByStatus(status models.Status) []models.Machine
	Summary() models.FleetSummary
	IDs() []string
}

// Generator produces free-form text for general-knowledge questions.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Agent routes queries and composes answers.
type Agent struct {
	logger    *slog.Logger
	fleet     Fleet
	generator Generator
}

// New constructs an Agent. A nil generator is legal: general questions
// then get the structured-data fallback answer.
func New(logger *slog.Logger, fleet Fleet, generator Generator) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		logger:    utils.ComponentLogger(logger, "agent"),
		fleet:     fleet,
		generator: generator,
	}
}

// Chat answers one free-text query. It always returns a response string;
// failures are logged and converted into apologetic text with the
// failure kind. The returned Route labels which capability served the
// query.
func (a *Agent) Chat(ctx context.Context, query string) (string, Route) {
	in := detectIntent(query)

	switch in.route {
	case RoutePredict:
		return a.answerPrediction(ctx, in.machineID), in.route
	case RouteHighRisk:
		return a.answerHighRisk(), in.route
	case RouteStatusFilter:
		return a.answerStatusFilter(in.status), in.route
	default:
		return a.answerGeneral(ctx, query), in.route
	}
}

func (a *Agent) answerPrediction(ctx context.Context, machineID string) string {
	result, err := a.fleet.Predict(ctx, machineID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUnknownMachine):
			return a.unknownMachineAnswer(machineID)
		case errors.Is(err, models.ErrModelUnavailable):
			a.logger.Warn("prediction degraded", slog.String("machine_id", machineID), slog.Any("error", err))
			return fmt.Sprintf("Maaf, prediksi untuk mesin %s tidak dapat dilakukan saat ini karena model prediksi sedang tidak tersedia. Silakan coba lagi nanti.", machineID)
		case errors.Is(err, models.ErrInvalidFeatures):
			a.logger.Warn("prediction rejected", slog.String("machine_id", machineID), slog.Any("error", err))
			return fmt.Sprintf("Maaf, data sensor mesin %s tidak valid sehingga prediksi tidak dapat dilakukan.", machineID)
		default:
			a.logger.Error("prediction failed", slog.String("machine_id", machineID), slog.Any("error", err))
			return fmt.Sprintf("Maaf, terjadi kesalahan saat memproses prediksi untuk mesin %s.", machineID)
		}
	}

	answer := fmt.Sprintf("Mesin %s saat ini berstatus %s dengan probabilitas kegagalan %s. %s",
		result.MachineID, result.Status, formatProbability(result.Probability), result.Message)
	if len(result.Recommendations) > 0 {
		answer += " Rekomendasi: " + strings.Join(result.Recommendations, "; ") + "."
	}
	return answer
}

func (a *Agent) answerHighRisk() string {
	machines := a.fleet.HighRisk()
	if len(machines) == 0 {
		return "Saat ini tidak ada mesin yang melebihi ambang risiko (Warning atau Failure). Seluruh armada dalam kondisi aman."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Ditemukan %d mesin dengan risiko tinggi yang memerlukan perhatian. ", len(machines))

	top := machines[0]
	fmt.Fprintf(&sb, "Paling berisiko: %s (%s, probabilitas %s).", top.ID, top.Status, formatProbability(probabilityOf(top)))

	if len(machines) > 1 {
		listed := machines[1:]
		if len(listed) > 4 {
			listed = listed[:4]
		}
		entries := make([]string, 0, len(listed))
		for _, m := range listed {
			entries = append(entries, fmt.Sprintf("%s (%s, %s)", m.ID, m.Status, formatProbability(probabilityOf(m))))
		}
		fmt.Fprintf(&sb, " Berikutnya: %s.", strings.Join(entries, ", "))
	}
	return sb.String()
}

func (a *Agent) answerStatusFilter(status models.Status) string {
	machines := a.fleet.ByStatus(status)
	if len(machines) == 0 {
		return fmt.Sprintf("Tidak ada mesin yang berstatus %s saat ini.", status)
	}

	entries := make([]string, 0, len(machines))
	for _, m := range machines {
		if m.Scored() {
			entries = append(entries, fmt.Sprintf("%s (%s)", m.ID, formatProbability(probabilityOf(m))))
		} else {
			entries = append(entries, m.ID)
		}
	}
	return fmt.Sprintf("Terdapat %d mesin berstatus %s: %s.", len(machines), status, strings.Join(entries, ", "))
}

func (a *Agent) answerGeneral(ctx context.Context, query string) string {
	summary := a.fleet.Summary()

	if a.generator != nil {
		answer, err := a.generator.Generate(ctx, generalPrompt(query, summary))
		if err == nil && strings.TrimSpace(answer) != "" {
			return answer
		}
		a.logger.Warn("generation backend failed, falling back to structured summary", slog.Any("error", err))
	}

	// Structured-data-only fallback keeps the surface responsive even
	// without the generation backend.
	var sb strings.Builder
	sb.WriteString("Maaf, layanan penjelasan AI sedang tidak tersedia, berikut ringkasan kondisi armada saat ini: ")
	fmt.Fprintf(&sb, "dari %d mesin, %d berstatus Normal, %d Warning, dan %d Failure.",
		summary.Total, summary.Normal, summary.Warning, summary.Failure)
	if len(summary.HighRisk) > 0 {
		fmt.Fprintf(&sb, " Mesin yang perlu perhatian: %s.", strings.Join(summary.HighRisk, ", "))
	}
	return sb.String()
}

// unknownMachineAnswer produces a "did you mean" response instead of
// failing the whole query: suggestions share the duty-class prefix when
// possible.
func (a *Agent) unknownMachineAnswer(machineID string) string {
	ids := a.fleet.IDs()

	suggestions := make([]string, 0, 3)
	for _, id := range ids {
		if models.ClassOf(id) == models.ClassOf(machineID) {
			suggestions = append(suggestions, id)
			if len(suggestions) == 3 {
				break
			}
		}
	}
	if len(suggestions) == 0 && len(ids) > 0 {
		limit := 3
		if len(ids) < limit {
			limit = len(ids)
		}
		suggestions = ids[:limit]
	}

	answer := fmt.Sprintf("Maaf, mesin %s tidak ditemukan dalam armada.", machineID)
	if len(suggestions) > 0 {
		answer += fmt.Sprintf(" Mungkin maksud Anda: %s?", strings.Join(suggestions, ", "))
	}
	return answer
}

func generalPrompt(query string, summary models.FleetSummary) string {
	var sb strings.Builder
	sb.WriteString("Kondisi armada saat ini: ")
	fmt.Fprintf(&sb, "%d mesin total, %d Normal, %d Warning, %d Failure", summary.Total, summary.Normal, summary.Warning, summary.Failure)
	if summary.Unscored > 0 {
		fmt.Fprintf(&sb, ", %d belum dinilai", summary.Unscored)
	}
	if len(summary.HighRisk) > 0 {
		fmt.Fprintf(&sb, ". Mesin berisiko tinggi: %s", strings.Join(summary.HighRisk, ", "))
	}
	sb.WriteString(".\n\nPertanyaan pengguna: ")
	sb.WriteString(query)
	return sb.String()
}

func formatProbability(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

func probabilityOf(m models.Machine) float64 {
	if m.LastProbability == nil {
		return 0
	}
	return *m.LastProbability
}
