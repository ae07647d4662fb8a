package config

import (
	"fmt"

	"github.com/kaytu-io/crowdsh/pkg/form"
	"github.com/kaytu-io/crowdsh/pkg/reputation"
	"gopkg.in/go-playground/validator.v9"
)

const (
	DefaultStatusField = "DataStoryStatus"
	DefaultTaskIDField = "DataStoryHitID"
)

type MTurk struct {
	AccessKeyID        string `json:"access_key_id,omitempty" koanf:"access_key_id"`
	SecretAccessKey    string `json:"secret_access_key,omitempty" koanf:"secret_access_key"`
	Reward             string `json:"reward,omitempty" koanf:"reward" validate:"required"`
	Title              string `json:"title,omitempty" koanf:"title" validate:"required"`
	Keywords           string `json:"keywords,omitempty" koanf:"keywords"`
	Description        string `json:"description,omitempty" koanf:"description"`
	ApproveAssignments bool   `json:"approve_assignments,omitempty" koanf:"approve_assignments"`
}

type Airtable struct {
	BaseURL string `json:"base_url,omitempty" koanf:"base_url"`
	AppKey  string `json:"app_key,omitempty" koanf:"app_key" validate:"required"`
	APIKey  string `json:"api_key,omitempty" koanf:"api_key" validate:"required"`
	Table   string `json:"table,omitempty" koanf:"table" validate:"required"`
	View    string `json:"view,omitempty" koanf:"view"`
}

type Reputation struct {
	Table           string `json:"table,omitempty" koanf:"table"`
	Region          string `json:"region,omitempty" koanf:"region"`
	Endpoint        string `json:"endpoint,omitempty" koanf:"endpoint"`
	AccessKeyID     string `json:"access_key_id,omitempty" koanf:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key,omitempty" koanf:"secret_access_key"`
	InMemory        bool   `json:"in_memory,omitempty" koanf:"in_memory"`
}

type Prometheus struct {
	PushAddress string `json:"push_address,omitempty" koanf:"push_address"`
}

type CrowdConfig struct {
	Live        bool   `json:"live,omitempty" koanf:"live"`
	StatusField string `json:"status_field,omitempty" koanf:"status_field" validate:"required"`
	TaskIDField string `json:"task_id_field,omitempty" koanf:"task_id_field" validate:"required"`

	MTurk      MTurk      `json:"mturk,omitempty" koanf:"mturk"`
	Airtable   Airtable   `json:"airtable,omitempty" koanf:"airtable"`
	Reputation Reputation `json:"reputation,omitempty" koanf:"reputation"`
	Prometheus Prometheus `json:"prometheus,omitempty" koanf:"prometheus"`

	Fields []form.Field `json:"fields,omitempty" koanf:"fields" validate:"required,dive"`
}

func Default() CrowdConfig {
	return CrowdConfig{
		StatusField: DefaultStatusField,
		TaskIDField: DefaultTaskIDField,
		Reputation: Reputation{
			Table:  reputation.DefaultTable,
			Region: reputation.DefaultRegion,
		},
	}
}

func (c CrowdConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	seen := map[string]bool{}
	for _, f := range c.Fields {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if seen[f.Name] {
			return fmt.Errorf("invalid config: field %s defined twice", f.Name)
		}
		if f.Name == c.StatusField || f.Name == c.TaskIDField {
			return fmt.Errorf("invalid config: field %s collides with the status or task id field", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}
