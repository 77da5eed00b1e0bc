package rest

const MAX_PAGE_SIZE = 100

// ListQueryParams holds pagination parameters for list endpoints
type ListQueryParams struct {
	Limit  int `form:"limit,default=20"`
	Offset int `form:"offset,default=0"`
}

// Normalize clamps pagination to sane bounds
func (p *ListQueryParams) Normalize() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > MAX_PAGE_SIZE {
		p.Limit = MAX_PAGE_SIZE
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}
