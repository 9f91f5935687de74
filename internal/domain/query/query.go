package query

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Pagination is an offset window over an ordered result set.
type Pagination struct {
	Limit  int
	Offset int
}

// Normalize applies the default limit and clamps out of range values.
func (p *Pagination) Normalize(defaultLimit int) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}
