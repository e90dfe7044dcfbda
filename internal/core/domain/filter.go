package domain

// EntityFilter narrows a search to records whose entity payload matches.
// Zero value means "no entity predicate".
type EntityFilter struct {
	Kind            string   `json:"kind,omitempty"`
	TitleContains   string   `json:"title_contains,omitempty"`
	KeywordsAny     []string `json:"keywords_any,omitempty"`
	DetailsContains string   `json:"details_contains,omitempty"`
}

func (f EntityFilter) IsZero() bool {
	return f.Kind == "" && f.TitleContains == "" && len(f.KeywordsAny) == 0 && f.DetailsContains == ""
}

// SearchFilter is a value object of optional predicates. An empty filter
// matches every record. Filters are constructed per query and never mutated;
// the With*/Without* helpers return copies.
type SearchFilter struct {
	Categories      []Category    `json:"categories,omitempty"`
	Pages           []int         `json:"pages,omitempty"`
	SourceDocs      []string      `json:"source_docs,omitempty"`
	CaptionContains string        `json:"caption_contains,omitempty"`
	Entity          *EntityFilter `json:"entity,omitempty"`
}

func (f SearchFilter) IsEmpty() bool {
	return len(f.Categories) == 0 &&
		len(f.Pages) == 0 &&
		len(f.SourceDocs) == 0 &&
		f.CaptionContains == "" &&
		!f.HasEntity()
}

func (f SearchFilter) HasEntity() bool {
	return f.Entity != nil && !f.Entity.IsZero()
}

// WithoutEntity returns a copy of the filter with the entity predicate
// removed. Used by the general pass of the two-pass search strategy.
func (f SearchFilter) WithoutEntity() SearchFilter {
	out := f
	out.Entity = nil
	return out
}

// WithCategories returns a copy of the filter with the category set replaced.
// The entity-prioritized pass uses it to widen the category predicate to
// every entity-carrying category.
func (f SearchFilter) WithCategories(categories []Category) SearchFilter {
	out := f
	out.Categories = append([]Category(nil), categories...)
	return out
}
