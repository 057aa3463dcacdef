package entity

import "github.com/shopspring/decimal"

// RSVPStatistics is computed on request from active guests.
type RSVPStatistics struct {
	TotalGuests        int                            `json:"total_guests"`
	Counts             map[RSVPStatus]int             `json:"counts"`
	Percentages        map[RSVPStatus]decimal.Decimal `json:"percentages"`
	ExpectedAttendees  int                            `json:"expected_attendees"`
	DietaryFrequencies map[string]int                 `json:"dietary_frequencies"`
	NeedsAccommodation int                            `json:"needs_accommodation"`
	NeedsTransport     int                            `json:"needs_transport"`
	ByGroup            map[string]map[RSVPStatus]int  `json:"by_group"`
}
