package agent

import (
	"regexp"
	"strings"

	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/models"
)

// Route names the capability a query was dispatched to. Exposed so the
// service facade can label chat metrics per route.
type Route string

const (
	RoutePredict      Route = "predict"
	RouteHighRisk     Route = "high_risk"
	RouteStatusFilter Route = "status_filter"
	RouteGeneral      Route = "general"
)

// machineIDPattern matches fleet id tokens: a duty-class prefix followed
// by the unit number.
var machineIDPattern = regexp.MustCompile(`(?i)\b([LMH][0-9]{4,5})\b`)

// wordPattern anchors a keyword on word boundaries so "normal" does not
// fire inside "abnormal" or "rusak" inside "kerusakan".
func wordPattern(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(keyword) + `\b`)
}

// Risk-oriented keywords, Indonesian first since that is the primary
// conversational surface.
var riskKeywords = []*regexp.Regexp{
	wordPattern("berisiko"),
	wordPattern("risiko"),
	wordPattern("berbahaya"),
	wordPattern("bahaya"),
	wordPattern("paling rawan"),
	wordPattern("risk"),
	wordPattern("risky"),
}

var statusKeywords = []struct {
	pattern *regexp.Regexp
	status  models.Status
}{
	{wordPattern("failure"), models.StatusFailure},
	{wordPattern("rusak"), models.StatusFailure},
	{wordPattern("gagal"), models.StatusFailure},
	{wordPattern("warning"), models.StatusWarning},
	{wordPattern("waspada"), models.StatusWarning},
	{wordPattern("normal"), models.StatusNormal},
	{wordPattern("sehat"), models.StatusNormal},
}

// intent is the routing decision for a single query.
type intent struct {
	route     Route
	machineID string
	status    models.Status
}

// detectIntent scans a free-text query and decides which capability to
// invoke. Precedence: explicit machine id, then risk phrasing, then a
// status filter, then the general fallback.
func detectIntent(query string) intent {
	lowered := strings.ToLower(query)

	if match := machineIDPattern.FindString(query); match != "" {
		return intent{route: RoutePredict, machineID: strings.ToUpper(match)}
	}

	for _, kw := range riskKeywords {
		if kw.MatchString(lowered) {
			return intent{route: RouteHighRisk}
		}
	}

	for _, entry := range statusKeywords {
		if entry.pattern.MatchString(lowered) {
			return intent{route: RouteStatusFilter, status: entry.status}
		}
	}

	return intent{route: RouteGeneral}
}
