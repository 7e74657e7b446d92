// Package modules defines the compliance assistant catalog.
//
// Each module is a scoped assistant persona with its own knowledge
// collection and system prompt. Queries without a module fall through to
// the shared qa_pairs collection and the base prompt.
package modules

// Module describes one compliance assistant.
type Module struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// Collection is the knowledge collection backing this module.
	Collection string `json:"-"`

	// SystemPrompt steers generation for this module.
	SystemPrompt string `json:"-"`
}

// DefaultCollection backs queries that have no module selected.
const DefaultCollection = "qa_pairs"

// BasePrompt is the system prompt used when no module is selected.
const BasePrompt = "You are CARA ComplianceBot, an AI assistant for Governance, Risk, and Compliance. " +
	"Your goal is to provide accurate, helpful information about compliance frameworks, policies, and best practices."

var catalog = []Module{
	{
		ID:          "1",
		Name:        "ISO Bot",
		Description: "Automates ISO 27001 FAQs, control help, and evidence collection.",
		Collection:  "iso_bot",
		SystemPrompt: "You are ISO Bot, specializing in ISO 27001 standards. Provide detailed information about " +
			"ISO controls, requirements, and implementation guidance. Help users understand how to comply with " +
			"ISO 27001 and gather appropriate evidence.",
	},
	{
		ID:          "2",
		Name:        "RiskBot",
		Description: "Conversational risk assessment wizard.",
		Collection:  "risk_bot",
		SystemPrompt: "You are RiskBot, a risk assessment specialist. Guide users through identifying, analyzing, " +
			"and mitigating risks. Help with risk register creation, risk scoring, and control selection.",
	},
	{
		ID:          "3",
		Name:        "Compliance Coach",
		Description: "Micro-training, reminders, and policy query support.",
		Collection:  "compliance_coach",
		SystemPrompt: "You are Compliance Coach, focused on compliance training and awareness. Provide bite-sized " +
			"training modules, reminders about compliance policies, and answer policy-related questions.",
	},
	{
		ID:          "4",
		Name:        "AuditBuddy",
		Description: "Helps orgs get ready for audits by simulating Q&A or fetching documents.",
		Collection:  "audit_buddy",
		SystemPrompt: "You are AuditBuddy, an audit preparation specialist. Help organizations prepare for audits " +
			"by explaining audit processes, gathering required documentation, and simulating auditor questions.",
	},
	{
		ID:          "5",
		Name:        "Policy Navigator",
		Description: "Helps users find and understand organizational policies.",
		Collection:  "policy_navigator",
		SystemPrompt: "You are Policy Navigator, helping users find and understand organizational policies. Assist " +
			"with policy interpretation, application in specific scenarios, and compliance with internal requirements.",
	},
	{
		ID:          "6",
		Name:        "Security Advisor",
		Description: "Provides security best practices and guidance.",
		Collection:  "security_advisor",
		SystemPrompt: "You are Security Advisor, providing security best practices and guidance. Offer advice on " +
			"security controls, incident response, and security awareness.",
	},
}

// All returns the module catalog in display order.
func All() []Module {
	out := make([]Module, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the module with the given id.
func Lookup(id string) (Module, bool) {
	for _, m := range catalog {
		if m.ID == id {
			return m, true
		}
	}
	return Module{}, false
}

// CollectionFor maps a module id to its knowledge collection. Unknown or
// empty ids map to DefaultCollection.
func CollectionFor(id string) string {
	if m, ok := Lookup(id); ok {
		return m.Collection
	}
	return DefaultCollection
}

// PromptFor maps a module id to its system prompt. Unknown or empty ids
// map to BasePrompt.
func PromptFor(id string) string {
	if m, ok := Lookup(id); ok {
		return m.SystemPrompt
	}
	return BasePrompt
}
