package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWidget_String(t *testing.T) {
	t.Parallel()

	var w Widget
	require.NoError(t, json.Unmarshal([]byte(`{
		"widget_type": "EVENT_ROW",
		"data": {
			"title": "Store A",
			"label": "۱۷ آگهی",
			"count": 3,
			"action": {"payload": {"slug": "store-a"}}
		}
	}`), &w))

	assert.Equal(t, EventRowWidget, w.WidgetType)
	assert.Equal(t, "Store A", w.String("title"))
	assert.Equal(t, "store-a", w.String("action", "payload", "slug"))
	assert.Equal(t, "", w.String("subtitle"))
	assert.Equal(t, "", w.String("count"), "non-string values read as absent")
	assert.Equal(t, "", w.String("title", "nested"), "walking through a string")
	assert.Equal(t, "", w.String("action", "missing", "slug"))
}

func TestWidget_StringNilData(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Widget{}.String("title"))
}

func TestListingPage_Decode(t *testing.T) {
	t.Parallel()

	var page ListingPage
	require.NoError(t, json.Unmarshal([]byte(`{
		"widget_list": [{"widget_type": "EVENT_ROW", "extra": true}],
		"infinite_scroll_response": {"has_next": true, "last_item_identifier": "abc"}
	}`), &page))

	require.Len(t, page.Widgets, 1)
	assert.JSONEq(t, `{"widget_type": "EVENT_ROW", "extra": true}`, string(page.Widgets[0]))
	require.NotNil(t, page.Pagination)
	assert.True(t, page.Pagination.HasNext)
	assert.Equal(t, "abc", page.Pagination.LastItemIdentifier)
}

func TestListingPage_MissingPagination(t *testing.T) {
	t.Parallel()

	var page ListingPage
	require.NoError(t, json.Unmarshal([]byte(`{"widget_list": []}`), &page))
	assert.Nil(t, page.Pagination)
}

func TestContactResponse_PhoneNumber(t *testing.T) {
	t.Parallel()

	var nilResp *ContactResponse
	assert.Equal(t, "", nilResp.PhoneNumber())
	assert.Equal(t, "", (&ContactResponse{}).PhoneNumber())
	assert.Equal(t, "09120000000", (&ContactResponse{Contact: &Contact{PhoneNumber: "09120000000"}}).PhoneNumber())
}
