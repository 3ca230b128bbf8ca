package pagination

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Page is a 1-based page request.
type Page struct {
	Number  int
	PerPage int
}

func New(number, perPage int) Page {
	return Page{Number: number, PerPage: perPage}.Normalize()
}

func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Number - 1) * p.PerPage
}

func (p Page) Limit() int {
	return p.Normalize().PerPage
}

// Meta is embedded in list responses.
type Meta struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	Pages   int   `json:"pages"`
	PerPage int   `json:"per_page"`
}

func NewMeta(p Page, total int64) Meta {
	p = p.Normalize()
	pages := int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	return Meta{Total: total, Page: p.Number, Pages: pages, PerPage: p.PerPage}
}
