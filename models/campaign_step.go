package models

import (
	"database/sql/driver"
	"fmt"

	"github.com/lib/pq"
)

// StepContentMode distinguishes a single fixed template from an A/B variant set
type StepContentMode string

const (
	StepContentFixed    StepContentMode = "fixed"
	StepContentVariants StepContentMode = "variants"
)

// Valid checks if the mode is valid
func (m StepContentMode) Valid() bool {
	return m == StepContentFixed || m == StepContentVariants
}

// Scan implements the sql.Scanner interface for StepContentMode
func (m *StepContentMode) Scan(value any) error {
	if value == nil {
		*m = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*m = StepContentMode(v)
	case []byte:
		*m = StepContentMode(string(v))
	default:
		return fmt.Errorf("cannot scan %T into StepContentMode", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for StepContentMode
func (m StepContentMode) Value() (driver.Value, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid StepContentMode: %s", m)
	}
	return string(m), nil
}

// VariantSelectionPolicy names how a variant is chosen per send
type VariantSelectionPolicy string

// VariantPolicyUniformRandom picks one variant uniformly at random per send
const VariantPolicyUniformRandom VariantSelectionPolicy = "uniform_random"

// CampaignStep is one message of a campaign's drip sequence. Steps are
// immutable once the campaign leaves draft. DelayMinutes is the minimum time
// after this step completes before the next step becomes eligible.
type CampaignStep struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	CampaignID uint `gorm:"not null;uniqueIndex:uk_campaign_steps_order,priority:1;index:idx_campaign_steps_campaign_id" json:"campaign_id"`
	StepOrder  int  `gorm:"not null;uniqueIndex:uk_campaign_steps_order,priority:2" json:"step_order"`

	ContentMode     StepContentMode        `gorm:"type:step_content_mode;not null;default:'fixed'" json:"content_mode"`
	Template        string                 `gorm:"type:text;not null" json:"template"`
	Variants        pq.StringArray         `gorm:"type:text[]" json:"variants,omitempty"`
	SelectionPolicy VariantSelectionPolicy `gorm:"size:32;not null;default:'uniform_random'" json:"selection_policy"`

	DelayMinutes int `gorm:"not null;default:0" json:"delay_minutes"`

	// Relations
	Campaign *Campaign `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
}

// TableName returns the table name for the model
func (CampaignStep) TableName() string {
	return "campaign_steps"
}

// Templates returns the candidate templates for this step: the variant set in
// variants mode, otherwise the single fixed template.
func (s *CampaignStep) Templates() []string {
	if s.ContentMode == StepContentVariants && len(s.Variants) > 0 {
		return []string(s.Variants)
	}
	return []string{s.Template}
}

// CampaignStepFilter represents filter criteria for campaign steps
type CampaignStepFilter struct {
	ID         *uint `json:"id,omitempty"`
	CampaignID *uint `json:"campaign_id,omitempty"`
	StepOrder  *int  `json:"step_order,omitempty"`
}
