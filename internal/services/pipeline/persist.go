package pipeline

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// PersistStage writes accepted pages and their emails to storage. A page
// crawled before is refreshed in place; emails already stored for the
// page are never duplicated.
type PersistStage struct {
	storage interfaces.PageStorage
	logger  arbor.ILogger
}

func NewPersistStage(storage interfaces.PageStorage, logger arbor.ILogger) *PersistStage {
	return &PersistStage{storage: storage, logger: logger}
}

func (s *PersistStage) Name() string { return "persist" }

func (s *PersistStage) Process(ctx context.Context, page *models.PageData) Result {
	now := time.Now()
	record := page.ToRecord(now)

	emails := make([]*models.EmailRecord, 0, len(page.Emails))
	for _, e := range page.Emails {
		emails = append(emails, &models.EmailRecord{
			ID:        models.EmailKey(page.URL, e.Address),
			PageURL:   page.URL,
			Domain:    page.Domain,
			JobID:     page.JobID,
			Address:   e.Address,
			Source:    e.Source,
			Type:      e.Type,
			Quality:   e.Quality,
			CreatedAt: now,
		})
	}

	created, newEmails, err := s.storage.UpsertPage(ctx, record, emails)
	if err != nil {
		return Fail(err)
	}

	s.logger.Debug().
		Str("url", page.URL).
		Bool("created", created).
		Int("new_emails", newEmails).
		Msg("Page persisted")

	return Accept()
}
