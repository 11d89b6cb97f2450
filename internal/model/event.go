package model

import "time"

// Event 由主辦方建立的活動；ticketsSold 只增不減
type Event struct {
	ID              uint64    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Date            time.Time `json:"date"`
	BasePrice       Amount    `json:"base_price"`
	MaxTickets      uint64    `json:"max_tickets"`
	TicketsSold     uint64    `json:"tickets_sold"`
	IsActive        bool      `json:"is_active"`
	Organizer       Principal `json:"organizer"`
	TicketTypeCount uint64    `json:"ticket_type_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// IsEditable 活動在售出任何票之前才能修改
func (e *Event) IsEditable() bool {
	return e.TicketsSold == 0
}

type CreateEventParams struct {
	Name        string
	Description string
	Date        time.Time
	BasePrice   Amount
	MaxTickets  uint64
}

type UpdateEventParams struct {
	Name        string
	Description string
	Date        time.Time
	BasePrice   Amount
}
