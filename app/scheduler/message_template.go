package scheduler

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/outreachly/outreachly-backend/models"
	"github.com/outreachly/outreachly-backend/utils"
)

// TemplateRenderer turns a campaign step into the final message text for one
// contact: it picks a variant per the step's selection policy and substitutes
// the recognized placeholders.
type TemplateRenderer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewTemplateRenderer creates a renderer seeded from the clock
func NewTemplateRenderer() *TemplateRenderer {
	return NewSeededTemplateRenderer(time.Now().UnixNano())
}

// NewSeededTemplateRenderer creates a renderer with a fixed seed
func NewSeededTemplateRenderer(seed int64) *TemplateRenderer {
	return &TemplateRenderer{rng: rand.New(rand.NewSource(seed))}
}

// Render produces the message text for one step and contact. Variants are
// chosen uniformly at random per send; a nil contact renders with the
// placeholder fallbacks.
func (r *TemplateRenderer) Render(step *models.CampaignStep, contact *models.Contact) string {
	templates := step.Templates()

	tmpl := templates[0]
	if len(templates) > 1 {
		r.mu.Lock()
		tmpl = templates[r.rng.Intn(len(templates))]
		r.mu.Unlock()
	}

	name := utils.PlaceholderNameFallback
	username := ""
	if contact != nil {
		name = contact.DisplayName()
		username = contact.Username()
	}

	out := strings.ReplaceAll(tmpl, utils.PlaceholderName, name)
	out = strings.ReplaceAll(out, utils.PlaceholderUsername, username)
	return out
}
