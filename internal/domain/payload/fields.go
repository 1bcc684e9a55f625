package payload

import "github.com/okian/scorecard/internal/domain/model"

// fieldKind is the JSON type a role metric must have.
type fieldKind string

const (
	countField  fieldKind = "integer"
	amountField fieldKind = "number"
)

type field struct {
	name string
	kind fieldKind
}

// roleFields lists the standard metrics each role reports.
var roleFields = map[model.Role][]field{
	model.RoleCEO: {
		{"revenue", amountField},
		{"client_meetings", countField},
		{"active_searches", countField},
		{"placement_rate", amountField},
	},
	model.RoleRecruiter: {
		{"candidates_sourced", countField},
		{"phone_screens", countField},
		{"submittals", countField},
		{"client_calls", countField},
		{"interviews_scheduled", countField},
		{"offers_extended", countField},
		{"placements_month", countField},
		{"billings", amountField},
	},
	model.RoleBDR: {
		{"outreach_touches", countField},
		{"conversations", countField},
		{"discovery_calls", countField},
		{"qualified_meetings", countField},
		{"new_clients_month", countField},
		{"pipeline_value", amountField},
	},
	model.RoleMarketing: {
		{"linkedin_posts", countField},
		{"follower_growth", countField},
		{"website_visitors", countField},
		{"inbound_leads", countField},
		{"mqls", countField},
		{"engagement_rate", amountField},
	},
}

// Fields returns the standard metric names of role.
func Fields(role model.Role) []string {
	fs := roleFields[role]
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.name
	}
	return out
}
