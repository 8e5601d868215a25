package console

import "strconv"

// PageLink is one entry of a pagination bar: a page number or a gap.
type PageLink struct {
	Number int
	Gap    bool
}

func (l PageLink) String() string {
	if l.Gap {
		return "..."
	}
	return strconv.Itoa(l.Number)
}

const paginationDelta = 1

// PaginationRange lays out the pagination bar for current of total pages.
// The first and last pages and the pages within one of current are
// shown. A gap of exactly one page shows that page; wider gaps collapse
// to "...".
func PaginationRange(current, total int) []PageLink {
	if total < 1 {
		return nil
	}
	if current < 1 {
		current = 1
	}
	if current > total {
		current = total
	}

	var out []PageLink
	last := 0
	for i := 1; i <= total; i++ {
		if i != 1 && i != total && (i < current-paginationDelta || i > current+paginationDelta) {
			continue
		}
		if last != 0 {
			switch i - last {
			case 1:
			case 2:
				out = append(out, PageLink{Number: last + 1})
			default:
				out = append(out, PageLink{Gap: true})
			}
		}
		out = append(out, PageLink{Number: i})
		last = i
	}
	return out
}
