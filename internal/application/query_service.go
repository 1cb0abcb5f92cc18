package application

import (
	"fmt"
	"log/slog"

	"github.com/farazpawle/agent-flow-sub001/internal/domain"
	"github.com/farazpawle/agent-flow-sub001/internal/search"
	"github.com/farazpawle/agent-flow-sub001/internal/storage"
	"github.com/farazpawle/agent-flow-sub001/internal/store"
)

// Page is one page of ranked query results.
type Page struct {
	Items    []*domain.Task `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

// QueryService answers free-text and exact-ID lookups over hot and
// archived tasks.
type QueryService struct {
	store    *store.Store
	index    *search.Index
	repo     *storage.FilesystemRepository
	pageSize int
	logger   *slog.Logger
}

// NewQueryService creates a query service with the given default page size.
func NewQueryService(st *store.Store, index *search.Index, repo *storage.FilesystemRepository, pageSize int, logger *slog.Logger) *QueryService {
	if pageSize <= 0 {
		pageSize = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryService{store: st, index: index, repo: repo, pageSize: pageSize, logger: logger}
}

// Query runs a free-text search. A query shaped like a task ID bypasses
// fuzzy matching and resolves the exact task, including archived ones.
func (s *QueryService) Query(text string, includeArchived bool, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}

	if domain.IsIDQuery(text) {
		return s.queryByID(text, page)
	}

	scope := search.ScopeHot
	if includeArchived {
		scope = search.ScopeAll
	}
	matches := s.index.Query(text, scope)
	return s.resolvePage(matches, page)
}

func (s *QueryService) queryByID(id string, page int) (*Page, error) {
	m, ok := s.index.Lookup(id)
	if !ok {
		return &Page{Items: []*domain.Task{}, Page: page, PageSize: s.pageSize}, nil
	}
	return s.resolvePage([]search.Match{m}, page)
}

// resolvePage materializes the page slice of matches into full tasks,
// reading archived entries back from their bucket files.
func (s *QueryService) resolvePage(matches []search.Match, page int) (*Page, error) {
	total := len(matches)
	start := (page - 1) * s.pageSize
	if start > total {
		start = total
	}
	end := start + s.pageSize
	if end > total {
		end = total
	}

	// Archive buckets are read once per page, not once per match.
	buckets := make(map[string][]*domain.Task)
	items := make([]*domain.Task, 0, end-start)
	for _, m := range matches[start:end] {
		if m.Bucket == "" {
			t, err := s.store.GetTask(m.TaskID)
			if err != nil {
				// Index and store are patched under the same mutation, so a
				// miss here means a race with archival; skip rather than fail.
				s.logger.Warn("indexed task missing from store", "id", m.TaskID)
				continue
			}
			items = append(items, t)
			continue
		}

		tasks, ok := buckets[m.Bucket]
		if !ok {
			loaded, err := s.repo.LoadArchive(m.Bucket)
			if err != nil {
				return nil, err
			}
			buckets[m.Bucket] = loaded
			tasks = loaded
		}
		t := findTask(tasks, m.TaskID)
		if t == nil {
			return nil, fmt.Errorf("%w: %s (archive %s)", domain.ErrTaskNotFound, m.TaskID, m.Bucket)
		}
		items = append(items, t.Clone())
	}

	return &Page{Items: items, Total: total, Page: page, PageSize: s.pageSize}, nil
}

// ListArchived returns all tasks in one archive bucket.
func (s *QueryService) ListArchived(bucket string) ([]*domain.Task, error) {
	return s.repo.LoadArchive(bucket)
}

// ArchiveBuckets lists the available archive bucket keys.
func (s *QueryService) ArchiveBuckets() ([]string, error) {
	return s.repo.ListArchiveBuckets()
}

func findTask(tasks []*domain.Task, id string) *domain.Task {
	for _, t := range tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}
