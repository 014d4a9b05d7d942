package model

type Motivation struct {
	ID   ID     `json:"id"`
	Text string `json:"motivation"`
}

// DailyPick is the locally persisted motivation of the day.
type DailyPick struct {
	Date       string   `json:"date"`
	Motivation string   `json:"motivation"`
	Shown      []string `json:"shown"`

	// Stored is the raw value this pick was loaded from; empty when nothing
	// was stored. Saves swap against it.
	Stored string `json:"-"`
}
