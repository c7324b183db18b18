package advisor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalogue keys, also the lane names used in logs.
const (
	KeyBestInvestments       = "best_investments"
	KeyAdvice                = "advice"
	KeyFinancialInstitutions = "financial_institutions"
)

// PromptSpec is one template and the variables it declares.
type PromptSpec struct {
	Template       string   `yaml:"template"`
	InputVariables []string `yaml:"input_variables"`
}

// Prompts is the catalogue of the three lanes. Each lane's memory is keyed
// by a fixed variable (topic, entity, topic), so a replacement template must
// keep using it.
type Prompts struct {
	BestInvestments       PromptSpec `yaml:"best_investments"`
	Advice                PromptSpec `yaml:"advice"`
	FinancialInstitutions PromptSpec `yaml:"financial_institutions"`
}

func DefaultPrompts() Prompts {
	return Prompts{
		BestInvestments: PromptSpec{
			Template:       "Write me advice for the {{.topic}}, specifically what are the top 5 best investments in this category",
			InputVariables: []string{"topic"},
		},
		Advice: PromptSpec{
			Template:       "Thank you for those suggestions! Really appreciate it. Give me your best advice among the top 5 {{.entity}}.",
			InputVariables: []string{"entity"},
		},
		FinancialInstitutions: PromptSpec{
			Template:       "Can you list five financial institutions that offer excellent financial services of {{.topic}}? Which institution out of the five you listed is the best and why is the best?",
			InputVariables: []string{"topic"},
		},
	}
}

// LoadPrompts reads a YAML catalogue. Lanes the file leaves out keep the
// built-in prompts.
func LoadPrompts(path string) (Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Prompts{}, fmt.Errorf("failed to read prompts file: %w", err)
	}
	return ParsePrompts(data)
}

func ParsePrompts(data []byte) (Prompts, error) {
	var raw map[string]*PromptSpec
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Prompts{}, fmt.Errorf("failed to parse prompts: %w", err)
	}

	prompts := DefaultPrompts()
	for key, spec := range raw {
		if spec == nil {
			continue
		}
		switch key {
		case KeyBestInvestments:
			prompts.BestInvestments = *spec
		case KeyAdvice:
			prompts.Advice = *spec
		case KeyFinancialInstitutions:
			prompts.FinancialInstitutions = *spec
		default:
			return Prompts{}, fmt.Errorf("unknown prompt %q", key)
		}
	}
	return prompts, nil
}
