package scheduler

import (
	"testing"

	"github.com/outreachly/outreachly-backend/models"
	"github.com/outreachly/outreachly-backend/utils"
	"github.com/stretchr/testify/assert"
)

func TestRenderFixedTemplate(t *testing.T) {
	renderer := NewSeededTemplateRenderer(1)

	step := &models.CampaignStep{
		StepOrder:   1,
		ContentMode: models.StepContentFixed,
		Template:    "Hey {{name}}, saw your profile @{{username}}",
	}
	name := "Ada"
	username := "ada.codes"
	contact := &models.Contact{
		IGUserID:   "17840001",
		IGUsername: &username,
		Name:       &name,
	}

	assert.Equal(t, "Hey Ada, saw your profile @ada.codes", renderer.Render(step, contact))
}

func TestRenderNameFallsBackToUsername(t *testing.T) {
	renderer := NewSeededTemplateRenderer(1)

	step := &models.CampaignStep{
		ContentMode: models.StepContentFixed,
		Template:    "Hey {{name}}",
	}
	username := "ada.codes"
	contact := &models.Contact{IGUserID: "17840001", IGUsername: &username}

	assert.Equal(t, "Hey ada.codes", renderer.Render(step, contact))
}

func TestRenderNameFallsBackToDefault(t *testing.T) {
	renderer := NewSeededTemplateRenderer(1)

	step := &models.CampaignStep{
		ContentMode: models.StepContentFixed,
		Template:    "Hey {{name}}",
	}
	contact := &models.Contact{IGUserID: "17840001"}

	assert.Equal(t, "Hey "+utils.PlaceholderNameFallback, renderer.Render(step, contact))
}

func TestRenderNilContact(t *testing.T) {
	renderer := NewSeededTemplateRenderer(1)

	step := &models.CampaignStep{
		ContentMode: models.StepContentFixed,
		Template:    "Hey {{name}} ({{username}})",
	}

	assert.Equal(t, "Hey there ()", renderer.Render(step, nil))
}

func TestRenderVariantsStayInSet(t *testing.T) {
	renderer := NewSeededTemplateRenderer(7)

	step := &models.CampaignStep{
		ContentMode: models.StepContentVariants,
		Template:    "unused in variants mode",
		Variants:    []string{"Hi {{name}}", "Hello {{name}}", "Hey {{name}}"},
	}
	name := "Ada"
	contact := &models.Contact{IGUserID: "17840001", Name: &name}

	allowed := map[string]bool{
		"Hi Ada":    true,
		"Hello Ada": true,
		"Hey Ada":   true,
	}

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		out := renderer.Render(step, contact)
		assert.True(t, allowed[out], "unexpected render %q", out)
		seen[out] = true
	}

	// Uniform selection over 200 draws reaches every variant
	assert.Len(t, seen, 3)
}

func TestRenderVariantsModeWithoutVariants(t *testing.T) {
	renderer := NewSeededTemplateRenderer(7)

	// An empty variant set falls back to the fixed template
	step := &models.CampaignStep{
		ContentMode: models.StepContentVariants,
		Template:    "Hey {{name}}",
	}
	name := "Ada"
	contact := &models.Contact{IGUserID: "17840001", Name: &name}

	assert.Equal(t, "Hey Ada", renderer.Render(step, contact))
}
