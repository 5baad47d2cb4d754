package message

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tilgo/leadline/internal/classifier"
	"github.com/tilgo/leadline/internal/models"
)

// variable pattern for template substitution: {{variable_name}}
var varPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// TemplateError indicates a lead is missing an attribute the template needs.
type TemplateError struct {
	Field string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template: lead is missing required field %q", e.Field)
}

// Composer renders outbound messages and builds classifier prompts.
type Composer struct {
	agentName string
	teamName  string
	brokerage string
}

func NewComposer(agentName, teamName, brokerage string) *Composer {
	return &Composer{
		agentName: agentName,
		teamName:  teamName,
		brokerage: brokerage,
	}
}

// Render returns the initial outreach message for a lead, chosen by phase and
// audience.
func (c *Composer) Render(lead *models.Lead) (string, error) {
	vars, err := c.leadVars(lead)
	if err != nil {
		return "", err
	}

	phase := normalizePhase(lead.Phase)
	byAudience := initialTemplates[phase]

	tmpl, ok := byAudience[audienceKey(lead.Audience)]
	if !ok {
		tmpl = byAudience["default"]
	}

	return render(tmpl, vars), nil
}

// FollowUp returns the follow-up message for a lead that never replied.
func (c *Composer) FollowUp(lead *models.Lead) (string, error) {
	vars, err := c.leadVars(lead)
	if err != nil {
		return "", err
	}
	return render(followUpTemplates[normalizePhase(lead.Phase)], vars), nil
}

// OptOutConfirmation returns the unsubscribe acknowledgment text.
func (c *Composer) OptOutConfirmation() string {
	return optOutConfirmation
}

// BuildContext assembles the classifier prompt for an inbound reply: system
// instructions for the lead's phase, prior conversation turns, and the
// inbound text as the final user message.
func (c *Composer) BuildContext(lead *models.Lead, inbound string, history []models.Turn) *classifier.Context {
	vars := map[string]string{
		"agent_name": c.agentName,
		"team_name":  c.teamName,
		"brokerage":  c.brokerage,
	}

	var system strings.Builder
	system.WriteString(render(systemPromptBase, vars))
	system.WriteString(systemPromptByPhase[normalizePhase(lead.Phase)])
	if lead.FirstName != "" {
		fmt.Fprintf(&system, "\nThe lead's name is %s.", lead.FirstName)
	}
	if lead.City != "" {
		fmt.Fprintf(&system, " They were interested in %s.", lead.City)
	}
	system.WriteString("\n\n")
	system.WriteString(classifyInstruction)

	msgs := make([]classifier.Message, 0, len(history)+1)
	for _, turn := range history {
		msgs = append(msgs, classifier.Message{Role: turn.Role, Content: turn.Content})
	}
	msgs = append(msgs, classifier.Message{Role: models.RoleUser, Content: inbound})

	return &classifier.Context{
		System:   system.String(),
		Messages: msgs,
	}
}

func (c *Composer) leadVars(lead *models.Lead) (map[string]string, error) {
	firstName := strings.TrimSpace(lead.FirstName)
	if firstName == "" {
		return nil, &TemplateError{Field: "first_name"}
	}

	cityLine := ""
	if city := strings.TrimSpace(lead.City); city != "" {
		cityLine = " in " + city
	}

	return map[string]string{
		"first_name": firstName,
		"city":       strings.TrimSpace(lead.City),
		"city_line":  cityLine,
		"agent_name": c.agentName,
		"team_name":  c.teamName,
		"brokerage":  c.brokerage,
	}, nil
}

func normalizePhase(phase int) int {
	if phase < 1 || phase > 3 {
		return 1
	}
	return phase
}

func audienceKey(audience string) string {
	switch audience {
	case models.AudienceBuyer:
		return "buyer"
	case models.AudienceSeller, models.AudienceBoth:
		return "seller"
	}
	return "default"
}

// render substitutes {{variable}} patterns in a template string. Unknown
// variables are left untouched.
func render(template string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		if value, ok := vars[name]; ok {
			return value
		}
		return match
	})
}
