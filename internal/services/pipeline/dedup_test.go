package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/ternarybob/venator/internal/models"
)

func TestDedupStage_ExactURL(t *testing.T) {
	s := NewDedupStage(0.85, 500)
	ctx := context.Background()

	page := validPage()
	if r := s.Process(ctx, page); !r.Accepted {
		t.Fatalf("first page rejected: %s", r.Reason)
	}

	again := validPage()
	if r := s.Process(ctx, again); r.Accepted {
		t.Error("same URL accepted twice")
	}
}

func TestDedupStage_NearDuplicate(t *testing.T) {
	s := NewDedupStage(0.85, 500)
	ctx := context.Background()

	first := validPage()
	first.Emails = []models.ExtractedEmail{{Address: "info@acme.com"}}
	if r := s.Process(ctx, first); !r.Accepted {
		t.Fatal(r.Reason)
	}

	// Identical content on a different URL of the same domain:
	// title, description, and emails all match, so similarity is 1.0
	dupe := validPage()
	dupe.URL = "https://acme.com/services-copy"
	dupe.Emails = []models.ExtractedEmail{{Address: "info@acme.com"}}
	if r := s.Process(ctx, dupe); r.Accepted {
		t.Error("near-duplicate accepted")
	}
}

func TestDedupStage_DistinctContentPasses(t *testing.T) {
	s := NewDedupStage(0.85, 500)
	ctx := context.Background()

	first := validPage()
	if r := s.Process(ctx, first); !r.Accepted {
		t.Fatal(r.Reason)
	}

	other := &models.PageData{
		URL:         "https://other-company.net/about",
		Domain:      "other-company.net",
		Title:       "Completely Different Industrial Manufacturing",
		Description: "Heavy machinery production with decades of specialized factory experience worldwide.",
	}
	if r := s.Process(ctx, other); !r.Accepted {
		t.Errorf("distinct page rejected: %s", r.Reason)
	}
}

func TestDedupStage_WindowBoundsFingerprints(t *testing.T) {
	s := NewDedupStage(0.99, 3)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		page := &models.PageData{
			URL:         fmt.Sprintf("https://site%d.com/page", i),
			Domain:      fmt.Sprintf("site%d.com", i),
			Title:       fmt.Sprintf("Unique title number %d with extra words", i),
			Description: fmt.Sprintf("Unique description %d mentioning distinct industry terms and offerings.", i),
		}
		if r := s.Process(ctx, page); !r.Accepted {
			t.Fatalf("page %d rejected: %s", i, r.Reason)
		}
	}

	if len(s.fingerprints) != 3 {
		t.Errorf("expected window of 3 fingerprints, got %d", len(s.fingerprints))
	}
}

func TestJaccard(t *testing.T) {
	a := map[string]bool{"x": true, "y": true}
	b := map[string]bool{"y": true, "z": true}

	if got := jaccard(a, b); got != 1.0/3.0 {
		t.Errorf("jaccard = %f, want 1/3", got)
	}
	if got := jaccard(nil, nil); got != 1.0 {
		t.Errorf("empty sets should be identical, got %f", got)
	}
	if got := jaccard(a, nil); got != 0.0 {
		t.Errorf("one empty set should score 0, got %f", got)
	}
}

func TestSimilarityOf_DomainBonus(t *testing.T) {
	a := fingerprintOf(&models.PageData{
		URL: "https://acme.com/a", Domain: "acme.com",
		Title: "alpha beta", Description: "one two three",
	})
	b := fingerprintOf(&models.PageData{
		URL: "https://acme.com/b", Domain: "acme.com",
		Title: "alpha beta", Description: "one two three",
	})

	// Same title, description, domain, and (empty) email sets
	if got := similarityOf(&a, &b); got < 0.99 {
		t.Errorf("identical fingerprints scored %f", got)
	}

	b.domain = "other.com"
	if got := similarityOf(&a, &b); got > 0.91 {
		t.Errorf("domain bonus still applied across domains: %f", got)
	}
}
