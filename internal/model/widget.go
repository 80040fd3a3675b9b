package model

import "encoding/json"

// EventRowWidget is the widget type that carries a store card in category listings.
const EventRowWidget = "EVENT_ROW"

// Widget is one raw item of a listing page. Widgets have no identity of their own;
// the same store can appear on overlapping pages.
type Widget struct {
	WidgetType string         `json:"widget_type"`
	Data       map[string]any `json:"data,omitempty"`
}

// String walks data along path and returns the string found there, or "" when
// any step is missing or not of the expected type.
func (w Widget) String(path ...string) string {
	var cur any = w.Data
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[key]
	}
	s, _ := cur.(string)
	return s
}

// InfiniteScroll is the pagination block of a listing response.
type InfiniteScroll struct {
	HasNext            bool   `json:"has_next"`
	LastItemIdentifier string `json:"last_item_identifier"`
}

// ListingPage is one page of a category or store listing. Widgets are kept raw so
// everything the marketplace returns is persisted, not just the fields we read.
type ListingPage struct {
	Widgets    []json.RawMessage `json:"widget_list"`
	Pagination *InfiniteScroll   `json:"infinite_scroll_response"`
}

// Contact holds the contact block for a store.
type Contact struct {
	PhoneNumber string `json:"phone_number"`
	IsGoodTime  bool   `json:"is_good_time"`
}

// ContactResponse is the body of the store contact endpoint.
type ContactResponse struct {
	Contact *Contact `json:"contact"`
}

// PhoneNumber returns the phone number, or "" when the contact block is absent.
func (c *ContactResponse) PhoneNumber() string {
	if c == nil || c.Contact == nil {
		return ""
	}
	return c.Contact.PhoneNumber
}
