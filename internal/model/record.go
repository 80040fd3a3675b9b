package model

// CleanedRecord is the export-ready projection of one store widget plus its
// contact details. Field order is the export column order.
type CleanedRecord struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Subtitle    string `json:"subtitle"`
	PhoneNumber string `json:"phone_number"`
	ImageURL    string `json:"image_url"`
	Label       string `json:"label"`
}

// CleanedRecordFields lists the serialized field names in declaration order.
var CleanedRecordFields = []string{"title", "slug", "subtitle", "phone_number", "image_url", "label"}

// Values returns the field values in the same order as CleanedRecordFields.
func (r CleanedRecord) Values() []string {
	return []string{r.Title, r.Slug, r.Subtitle, r.PhoneNumber, r.ImageURL, r.Label}
}

// CleanedCollection returns the collection name holding cleaned records for name.
func CleanedCollection(name string) string {
	return name + "-cleaned"
}
