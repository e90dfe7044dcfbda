package domain

// Category classifies the layout role of a record inside a source page.
type Category string

const (
	CategoryHeading1     Category = "heading1"
	CategoryHeading2     Category = "heading2"
	CategoryHeading3     Category = "heading3"
	CategoryParagraph    Category = "paragraph"
	CategoryList         Category = "list"
	CategoryTable        Category = "table"
	CategoryFigure       Category = "figure"
	CategoryChart        Category = "chart"
	CategoryCaption      Category = "caption"
	CategoryFootnote     Category = "footnote"
	CategoryHeaderFooter Category = "header_footer"
	CategoryReference    Category = "reference"
)

// EntityCarryingCategories lists the categories that may carry a structured
// entity payload. Entity-prioritized search widens its category predicate to
// this set.
func EntityCarryingCategories() []Category {
	return []Category{
		CategoryFigure,
		CategoryTable,
		CategoryParagraph,
		CategoryHeading1,
		CategoryHeading2,
		CategoryHeading3,
	}
}

// ParseCategory validates a client-supplied category string.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(s); c {
	case CategoryHeading1, CategoryHeading2, CategoryHeading3,
		CategoryParagraph, CategoryList, CategoryTable,
		CategoryFigure, CategoryChart, CategoryCaption,
		CategoryFootnote, CategoryHeaderFooter, CategoryReference:
		return c, true
	}
	return "", false
}

// EntityPayload is the typed annotation attached to records that describe an
// embedded object (a spec table, a warning figure, a fee schedule, ...).
type EntityPayload struct {
	Kind             string   `json:"kind"`
	Title            string   `json:"title,omitempty"`
	Details          string   `json:"details,omitempty"`
	Keywords         []string `json:"keywords,omitempty"`
	ExampleQuestions []string `json:"example_questions,omitempty"`
}

// Record is one unit of retrievable content. Records are immutable once
// ingested; the retrieval engine only reads them.
type Record struct {
	ID             string         `json:"id"`
	SourceDoc      string         `json:"source_doc"`
	Page           *int           `json:"page,omitempty"`
	Category       Category       `json:"category"`
	Text           string         `json:"text"`
	TranslatedText string         `json:"translated_text,omitempty"`
	ContextText    string         `json:"context_text,omitempty"`
	Caption        string         `json:"caption,omitempty"`
	Entity         *EntityPayload `json:"entity,omitempty"`
	Correction     string         `json:"correction,omitempty"`
}

// DisplayText picks the text a reader should see: a human-verified correction
// wins, then the primary text, then the translation.
func (r Record) DisplayText() string {
	if r.Correction != "" {
		return r.Correction
	}
	if r.Text != "" {
		return r.Text
	}
	return r.TranslatedText
}
