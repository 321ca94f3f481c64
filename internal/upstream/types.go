package upstream

import "time"

// User is the backend's view of an account, authoritative for the session store.
type User struct {
	ID              string `json:"_id,omitempty"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	Role            string `json:"role"` // "attendee" | "organizer" | "admin"
	IsEmailVerified bool   `json:"isEmailVerified"`
}

// Event is a listed or bookable event.
type Event struct {
	ID             string    `json:"_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Location       string    `json:"location"`
	Date           time.Time `json:"date"`
	Price          float64   `json:"price"`
	TotalSeats     int       `json:"totalSeats"`
	AvailableSeats int       `json:"availableSeats"`
	Status         string    `json:"status"` // "active" | "cancelled" | "completed"
	Category       string    `json:"category"`
	Image          string    `json:"image"`
	Organizer      struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	} `json:"organizer"`
}

// EventQuery filters and orders the public event listing.
type EventQuery struct {
	Search   string
	Sort     string
	Category string
}

// CreateEventInput is the organizer's event creation payload.
type CreateEventInput struct {
	Title       string    `json:"title" binding:"required,min=2"`
	Description string    `json:"description" binding:"required"`
	Location    string    `json:"location" binding:"required"`
	Date        time.Time `json:"date" binding:"required"`
	Price       float64   `json:"price" binding:"min=0"`
	TotalSeats  int       `json:"totalSeats" binding:"required,min=1"`
	Category    string    `json:"category" binding:"required"`
	Image       string    `json:"image"`
}

// BookingSummary is one row of an attendee's purchase history.
type BookingSummary struct {
	ID         string    `json:"_id"`
	TotalPrice float64   `json:"totalPrice"`
	Tickets    int       `json:"tickets"`
	CreatedAt  time.Time `json:"createdAt"`
	Event      struct {
		Date     time.Time `json:"date"`
		Category string    `json:"category"`
	} `json:"event"`
}

// AttendeeStats backs the attendee dashboard.
type AttendeeStats struct {
	TotalBookings  int              `json:"totalBookings"`
	TotalSpent     float64          `json:"totalSpent"`
	UpcomingEvents int              `json:"upcomingEvents"`
	Bookings       []BookingSummary `json:"bookings"`
}

// OrganizerStats backs the organizer dashboard.
type OrganizerStats struct {
	TotalEvents       int     `json:"totalEvents"`
	TotalRevenue      float64 `json:"totalRevenue"`
	TotalTicketsSold  int     `json:"totalTicketsSold"`
	TotalActiveEvents int     `json:"totalActiveEvents"`
	Events            []Event `json:"events"`
}

// AdminUser is one row of the admin user listing.
type AdminUser struct {
	ID              string    `json:"_id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Role            string    `json:"role"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	CreatedAt       time.Time `json:"createdAt"`
}

// AdminStats backs the admin dashboard user panel.
type AdminStats struct {
	Users              []AdminUser `json:"users"`
	TotalUsers         int         `json:"totalUsers"`
	TotalVerifiedUsers int         `json:"totalVerifiedUsers"`
	TotalAdmins        int         `json:"totalAdmins"`
}

// BookingStats is the admin earnings panel.
type BookingStats struct {
	TotalEarnings  float64 `json:"totalEarnings"`
	TotalPurchases int     `json:"totalPurchases"`
}

// Booking is a single booking looked up by order id on the payment status page.
type Booking struct {
	ID     string  `json:"_id,omitempty"`
	Status string  `json:"status"` // "expired" | "pending" | "success" | "refunded" | "failed"
	Amount float64 `json:"amount,omitempty"`
}

// OrderInput creates a payment order for the hosted checkout widget.
type OrderInput struct {
	EventID      string  `json:"eventId" binding:"required"`
	Amount       float64 `json:"amount" binding:"required,gt=0"`
	Currency     string  `json:"currency"`
	TotalTickets int     `json:"totalTickets" binding:"required,min=1"`
}

// Order is the created payment order the checkout widget opens with.
type Order struct {
	ID       string  `json:"id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}
