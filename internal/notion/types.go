package notion

import "encoding/json"

// ListResponse is the paginated envelope Notion returns from listing and
// query endpoints. Result objects are kept as raw JSON and forwarded
// verbatim; this client never interprets their shape.
type ListResponse struct {
	Object     string            `json:"object"`
	Results    []json.RawMessage `json:"results"`
	HasMore    bool              `json:"has_more"`
	NextCursor string            `json:"next_cursor"`
}

// SearchParams are the optional fields of the search endpoint. Zero-valued
// fields are omitted from the request body entirely; the API distinguishes
// an absent field from an explicitly empty one.
type SearchParams struct {
	Query       string          `json:"query,omitempty"`
	Filter      json.RawMessage `json:"filter,omitempty"`
	Sort        json.RawMessage `json:"sort,omitempty"`
	StartCursor string          `json:"start_cursor,omitempty"`
	PageSize    int             `json:"page_size,omitempty"`
}

// QueryDatabaseParams are the optional fields of the database query endpoint.
type QueryDatabaseParams struct {
	Filter      json.RawMessage `json:"filter,omitempty"`
	Sorts       json.RawMessage `json:"sorts,omitempty"`
	StartCursor string          `json:"start_cursor,omitempty"`
	PageSize    int             `json:"page_size,omitempty"`
}

// CreateDatabaseParams describe a database to create under a parent page.
type CreateDatabaseParams struct {
	Parent     json.RawMessage `json:"parent"`
	Title      json.RawMessage `json:"title,omitempty"`
	Properties json.RawMessage `json:"properties"`
}

// CreatePageParams describe a page to create under a page or database parent.
type CreatePageParams struct {
	Parent     json.RawMessage `json:"parent"`
	Properties json.RawMessage `json:"properties"`
	Children   json.RawMessage `json:"children,omitempty"`
}

// UpdatePageParams carry the mutable fields of a page. Archived is a pointer
// so that "not provided" and "explicitly false" stay distinct on the wire.
type UpdatePageParams struct {
	Properties json.RawMessage `json:"properties,omitempty"`
	Archived   *bool           `json:"archived,omitempty"`
}
