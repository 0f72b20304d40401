package domain

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps the request into valid bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// Paginated is the list envelope returned by every list endpoint.
type Paginated[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

func NewPaginated[T any](items []T, total int, page Page) Paginated[T] {
	page = page.Normalize()
	if items == nil {
		items = []T{}
	}
	pages := 0
	if total > 0 {
		pages = (total + page.Limit - 1) / page.Limit
	}
	return Paginated[T]{
		Data:       items,
		Pagination: Pagination{Page: page.Page, Limit: page.Limit, Total: total, Pages: pages},
	}
}

type CategoryFilter struct {
	Search string
	// ParentID selects children of a category; RootsOnly selects categories without a parent.
	ParentID  string
	RootsOnly bool
	Page      Page
}

type TagFilter struct {
	Search string
	Page   Page
}

type QuizFilter struct {
	CategoryID string
	AuthorID   string
	Difficulty Difficulty
	Status     QuizStatus
	Privacy    Privacy
	TagID      string
	Search     string
	Page       Page
}

type AttemptFilter struct {
	QuizID string
	UserID string
	Status AttemptStatus
	Page   Page
}

type AchievementFilter struct {
	Type     AchievementType
	IsActive *bool
	Page     Page
}

type LeaderboardFilter struct {
	Type       LeaderboardType
	CategoryID string
	IsActive   *bool
	Page       Page
}
