package agent

import (
	"testing"

	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/models"
)

func TestDetectIntent(t *testing.T) {
	cases := []struct {
		name      string
		query     string
		route     Route
		machineID string
		status    models.Status
	}{
		{
			name:      "bare machine id",
			query:     "M14860",
			route:     RoutePredict,
			machineID: "M14860",
		},
		{
			name:      "machine id inside sentence",
			query:     "Bagaimana kondisi mesin L4718 hari ini?",
			route:     RoutePredict,
			machineID: "L4718",
		},
		{
			name:      "lowercase id is normalised",
			query:     "cek h29424 dong",
			route:     RoutePredict,
			machineID: "H29424",
		},
		{
			name:  "risk question",
			query: "Mesin mana yang paling berisiko?",
			route: RouteHighRisk,
		},
		{
			name:  "english risk phrasing",
			query: "which machines are risky right now",
			route: RouteHighRisk,
		},
		{
			name:   "failure status filter",
			query:  "tampilkan semua mesin yang rusak",
			route:  RouteStatusFilter,
			status: models.StatusFailure,
		},
		{
			name:   "warning status filter",
			query:  "mesin apa saja yang berstatus warning",
			route:  RouteStatusFilter,
			status: models.StatusWarning,
		},
		{
			name:   "normal status filter",
			query:  "daftar mesin yang sehat",
			route:  RouteStatusFilter,
			status: models.StatusNormal,
		},
		{
			name:  "general question",
			query: "Apa itu predictive maintenance?",
			route: RouteGeneral,
		},
		{
			name:  "status keyword inside larger word stays general",
			query: "bagaimana mendeteksi kondisi abnormal pada mesin?",
			route: RouteGeneral,
		},
		{
			name:  "kerusakan does not trigger the rusak filter",
			query: "apa penyebab umum kerusakan bearing?",
			route: RouteGeneral,
		},
		{
			name:      "id wins over risk keyword",
			query:     "apakah M14860 berisiko?",
			route:     RoutePredict,
			machineID: "M14860",
		},
		{
			name:  "risk wins over status keyword",
			query: "mesin berisiko dengan status warning",
			route: RouteHighRisk,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := detectIntent(tc.query)
			if in.route != tc.route {
				t.Fatalf("route = %s, want %s", in.route, tc.route)
			}
			if in.machineID != tc.machineID {
				t.Fatalf("machineID = %q, want %q", in.machineID, tc.machineID)
			}
			if in.status != tc.status {
				t.Fatalf("status = %s, want %s", in.status, tc.status)
			}
		})
	}
}
