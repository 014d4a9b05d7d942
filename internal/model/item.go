package model

// ItemType is the discriminator carried by every record of the listing
// endpoint.
type ItemType string

const (
	TypeEvent        ItemType = "event"
	TypeAnnouncement ItemType = "announcement"
	TypeMotivation   ItemType = "motivation"
)

type Media struct {
	MediaID  ID     `json:"mediaId"`
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
}

// Item is one record of the heterogeneous GET /events collection. Which
// fields are populated depends on Type.
type Item struct {
	ID           ID       `json:"id"`
	EventID      ID       `json:"eventId,omitempty"`
	Type         ItemType `json:"type"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Date         Date     `json:"date"`
	PostedDate   Date     `json:"postedDate"`
	UploadedAt   Date     `json:"uploadedAt"`
	PosterURL    string   `json:"posterUrl,omitempty"`
	Media        []Media  `json:"media,omitempty"`
	RequiresRSVP bool     `json:"requiresRsvp"`
	Location     string   `json:"location,omitempty"`
	Motivation   string   `json:"motivation,omitempty"`
}

// Key returns the identifier used by the count maps. Older records carry a
// separate eventId; newer ones only have id.
func (i Item) Key() ID {
	if i.EventID != "" {
		return i.EventID
	}
	return i.ID
}

// Posted returns the announcement's posted date, falling back to the upload
// timestamp for records created before postedDate existed.
func (i Item) Posted() Date {
	if !i.PostedDate.IsZero() {
		return i.PostedDate
	}
	return i.UploadedAt
}

// EventFields are the admin-editable fields of an event.
type EventFields struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        Date   `json:"date"`
}
