package badger

import (
	"context"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// PageStorage implements interfaces.PageStorage on badgerhold
type PageStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPageStorage creates a new PageStorage instance
func NewPageStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PageStorage {
	return &PageStorage{
		db:     db,
		logger: logger,
	}
}

// UpsertPage writes the page and its emails in one transaction. An
// existing page keeps its FirstScraped time and gets ScrapeCount bumped;
// emails already stored for the page are skipped.
func (s *PageStorage) UpsertPage(ctx context.Context, page *models.PageRecord, emails []*models.EmailRecord) (bool, int, error) {
	if page.URL == "" {
		return false, 0, fmt.Errorf("page URL is required")
	}

	created := false
	newEmails := 0

	err := s.db.Store().Badger().Update(func(tx *badgerdb.Txn) error {
		var existing models.PageRecord
		getErr := s.db.Store().TxGet(tx, page.URL, &existing)
		switch getErr {
		case nil:
			page.ScrapeCount = existing.ScrapeCount + 1
			page.FirstScraped = existing.FirstScraped
		case badgerhold.ErrNotFound:
			created = true
		default:
			return fmt.Errorf("failed to read existing page: %w", getErr)
		}

		if err := s.db.Store().TxUpsert(tx, page.URL, page); err != nil {
			return fmt.Errorf("failed to upsert page: %w", err)
		}

		for _, email := range emails {
			insErr := s.db.Store().TxInsert(tx, email.ID, email)
			if insErr == badgerhold.ErrKeyExists {
				continue
			}
			if insErr != nil {
				return fmt.Errorf("failed to insert email %s: %w", email.Address, insErr)
			}
			newEmails++
		}

		return nil
	})
	if err != nil {
		return false, 0, err
	}

	return created, newEmails, nil
}

func (s *PageStorage) GetPage(ctx context.Context, url string) (*models.PageRecord, error) {
	var page models.PageRecord
	if err := s.db.Store().Get(url, &page); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("page not found: %s", url)
		}
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return &page, nil
}

func (s *PageStorage) ListPagesByJob(ctx context.Context, jobID string, limit, offset int) ([]*models.PageRecord, error) {
	query := badgerhold.Where("JobID").Eq(jobID).SortBy("LastScraped").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Skip(offset)
	}

	var pages []models.PageRecord
	if err := s.db.Store().Find(&pages, query); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	result := make([]*models.PageRecord, len(pages))
	for i := range pages {
		result[i] = &pages[i]
	}
	return result, nil
}

func (s *PageStorage) ListEmailsByJob(ctx context.Context, jobID string, limit, offset int) ([]*models.EmailRecord, error) {
	query := badgerhold.Where("JobID").Eq(jobID).SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Skip(offset)
	}

	var emails []models.EmailRecord
	if err := s.db.Store().Find(&emails, query); err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}

	result := make([]*models.EmailRecord, len(emails))
	for i := range emails {
		result[i] = &emails[i]
	}
	return result, nil
}

func (s *PageStorage) CountPages(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.PageRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return int(count), nil
}

func (s *PageStorage) CountEmails(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.EmailRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count emails: %w", err)
	}
	return int(count), nil
}
