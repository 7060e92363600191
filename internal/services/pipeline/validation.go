package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/models"
)

// ValidationStage rejects pages whose metadata does not look like real
// content: missing or placeholder titles, truncated descriptions, or
// pages with no commercial signal at all.
type ValidationStage struct {
	config common.PipelineConfig
	rules  *common.FilterRules
}

func NewValidationStage(config common.PipelineConfig, rules *common.FilterRules) *ValidationStage {
	return &ValidationStage{config: config, rules: rules}
}

func (s *ValidationStage) Name() string { return "validation" }

func (s *ValidationStage) Process(ctx context.Context, page *models.PageData) Result {
	title := strings.TrimSpace(page.Title)
	if len(title) < s.config.MinTitleLength || len(title) > s.config.MaxTitleLength {
		return Reject(fmt.Sprintf("title length %d outside [%d,%d]", len(title), s.config.MinTitleLength, s.config.MaxTitleLength))
	}

	lowerTitle := strings.ToLower(title)
	for _, prefix := range s.rules.SpamTitlePrefixes {
		if strings.HasPrefix(lowerTitle, prefix) {
			return Reject("placeholder title: " + prefix)
		}
	}

	desc := strings.TrimSpace(page.Description)
	if len(desc) < s.config.MinDescription || len(desc) > s.config.MaxDescription {
		return Reject(fmt.Sprintf("description length %d outside [%d,%d]", len(desc), s.config.MinDescription, s.config.MaxDescription))
	}

	// A page with no classification and no contact signal has nothing
	// worth keeping
	if page.ContentType == models.ContentTypeUnknown && page.ContactScore == 0 {
		return Reject("no commercial or contact signal")
	}

	return Accept()
}
