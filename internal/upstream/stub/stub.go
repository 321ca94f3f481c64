// Package stub is an in-process ticketing backend used when no real API is
// configured. It speaks the same envelope and cookie contract as the real
// backend, which keeps the gateway and its tests honest about the wire format.
package stub

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatherly/web/internal/pkg/jwt"
	"github.com/gatherly/web/internal/upstream"
)

const tokenTTL = 24 * time.Hour

type account struct {
	upstream.User
	PasswordHash []byte
	CreatedAt    time.Time
}

// Server holds the fake backend state. All maps are guarded by mu.
type Server struct {
	cookieName string

	mu          sync.Mutex
	users       map[string]*account // keyed by email
	events      map[string]*upstream.Event
	bookings    map[string]*upstream.Booking // keyed by order id
	purchases   map[string][]upstream.BookingSummary
	emailOTPs   map[string]string
	resetOTPs   map[string]string
	resetTokens map[string]string // reset token -> email

	engine *gin.Engine
}

// New builds a stub backend that issues access tokens under cookieName.
func New(cookieName string) *Server {
	s := &Server{
		cookieName:  cookieName,
		users:       make(map[string]*account),
		events:      make(map[string]*upstream.Event),
		bookings:    make(map[string]*upstream.Booking),
		purchases:   make(map[string][]upstream.BookingSummary),
		emailOTPs:   make(map[string]string),
		resetOTPs:   make(map[string]string),
		resetTokens: make(map[string]string),
	}
	s.seed()

	e := gin.New()
	e.Use(gin.Recovery())

	e.POST("/api/users/register", s.register)
	e.POST("/api/users/login", s.login)
	e.POST("/api/users/logout", s.logout)
	e.GET("/api/users/current-user", s.withUser(s.currentUser))
	e.GET("/api/users/attendee", s.withUser(s.attendeeStats))
	e.GET("/api/users/organizer", s.withUser(s.organizerStats))
	e.GET("/api/users", s.withUser(s.adminStats))
	e.DELETE("/api/users/:id", s.withUser(s.deleteUser))

	e.POST("/api/auth/email/send", s.withUser(s.sendEmailOTP))
	e.POST("/api/auth/email/verify", s.withUser(s.verifyEmailOTP))
	e.POST("/api/auth/password/send", s.sendPasswordReset)
	e.POST("/api/auth/password/verify", s.verifyPasswordReset)
	e.POST("/api/auth/password/reset", s.resetPassword)

	e.GET("/api/events", s.listEvents)
	e.GET("/api/events/:id", s.getEvent)
	e.POST("/api/events", s.withUser(s.createEvent))

	e.GET("/api/bookings", s.withUser(s.bookingStats))
	e.GET("/api/bookings/:orderId", s.withUser(s.getBooking))
	e.POST("/api/payments/order", s.withUser(s.createOrder))

	s.engine = e
	return s
}

// Handler exposes the stub as an http.Handler for httptest servers and for
// mounting in-process.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) seed() {
	hash, _ := bcrypt.GenerateFromPassword([]byte("admin1234"), bcrypt.DefaultCost)
	s.users["admin@gatherly.dev"] = &account{
		User: upstream.User{
			ID:              uuid.NewString(),
			Email:           "admin@gatherly.dev",
			Name:            "Gatherly Admin",
			Role:            "admin",
			IsEmailVerified: true,
		},
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	for _, ev := range []upstream.Event{
		{Title: "Open Air Jazz Night", Description: "An evening of live jazz by the river.", Location: "Riverside Park", Category: "music", Price: 450, TotalSeats: 200, AvailableSeats: 200, Status: "active", Date: time.Now().AddDate(0, 1, 0)},
		{Title: "Cloud Native Summit", Description: "Talks on running production infrastructure.", Location: "Convention Centre", Category: "tech", Price: 1200, TotalSeats: 500, AvailableSeats: 420, Status: "active", Date: time.Now().AddDate(0, 2, 0)},
		{Title: "Street Food Festival", Description: "Forty stalls, one evening.", Location: "Old Town Square", Category: "food", Price: 150, TotalSeats: 1000, AvailableSeats: 1000, Status: "active", Date: time.Now().AddDate(0, 0, 14)},
	} {
		ev := ev
		ev.ID = uuid.NewString()
		ev.Organizer.ID = s.users["admin@gatherly.dev"].User.ID
		ev.Organizer.Name = "Gatherly Admin"
		s.events[ev.ID] = &ev
	}
}

func ok(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{"message": message, "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

func (s *Server) issueToken(c *gin.Context, u upstream.User) error {
	token, err := jwt.Sign(jwt.Claims{
		UserID:          u.ID,
		Email:           u.Email,
		Role:            u.Role,
		IsEmailVerified: u.IsEmailVerified,
	}, tokenTTL)
	if err != nil {
		return err
	}
	c.SetCookie(s.cookieName, token, int(tokenTTL.Seconds()), "/", "", false, true)
	return nil
}

// withUser resolves the access token cookie to an account before running next.
func (s *Server) withUser(next func(*gin.Context, *account)) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(s.cookieName)
		if err != nil || raw == "" {
			fail(c, http.StatusUnauthorized, "Please login to continue")
			return
		}
		claims, err := jwt.Parse(raw)
		if err != nil {
			fail(c, http.StatusUnauthorized, "Please login to continue")
			return
		}
		s.mu.Lock()
		acct, found := s.users[claims.Email]
		s.mu.Unlock()
		if !found {
			fail(c, http.StatusUnauthorized, "Please login to continue")
			return
		}
		next(c, acct)
	}
}

func (s *Server) register(c *gin.Context) {
	var in struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusUnprocessableEntity, "Invalid registration payload")
		return
	}
	if in.Role == "" {
		in.Role = "attendee"
	}
	if in.Role != "attendee" && in.Role != "organizer" {
		fail(c, http.StatusUnprocessableEntity, "Invalid role")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[in.Email]; exists {
		fail(c, http.StatusConflict, "An account with this email already exists")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to create account")
		return
	}
	acct := &account{
		User: upstream.User{
			ID:    uuid.NewString(),
			Email: in.Email,
			Name:  in.Name,
			Role:  in.Role,
		},
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	s.users[in.Email] = acct
	if err := s.issueToken(c, acct.User); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	ok(c, http.StatusCreated, "Account created", gin.H{"user": acct.User})
}

func (s *Server) login(c *gin.Context) {
	var in struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusUnprocessableEntity, "Invalid login payload")
		return
	}

	s.mu.Lock()
	acct, found := s.users[in.Email]
	s.mu.Unlock()
	if !found {
		fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(in.Password)); err != nil {
		fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err := s.issueToken(c, acct.User); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	ok(c, http.StatusOK, "Logged in", gin.H{"user": acct.User})
}

func (s *Server) logout(c *gin.Context) {
	c.SetCookie(s.cookieName, "", -1, "/", "", false, true)
	ok(c, http.StatusOK, "Logged out", nil)
}

func (s *Server) currentUser(c *gin.Context, acct *account) {
	ok(c, http.StatusOK, "", gin.H{"user": acct.User})
}

func (s *Server) sendEmailOTP(c *gin.Context, acct *account) {
	s.mu.Lock()
	s.emailOTPs[acct.Email] = randomOTP()
	s.mu.Unlock()
	ok(c, http.StatusOK, "Verification code sent", nil)
}

func (s *Server) verifyEmailOTP(c *gin.Context, acct *account) {
	var in struct {
		OTP string `json:"otp" binding:"required,len=6"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusUnprocessableEntity, "Invalid code payload")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailOTPs[acct.Email] != in.OTP {
		fail(c, http.StatusBadRequest, "Invalid or expired code")
		return
	}
	delete(s.emailOTPs, acct.Email)
	acct.IsEmailVerified = true
	ok(c, http.StatusOK, "Email verified", nil)
}

func (s *Server) sendPasswordReset(c *gin.Context) {
	var in struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusUnprocessableEntity, "Invalid payload")
		return
	}
	s.mu.Lock()
	if _, found := s.users[in.Email]; found {
		s.resetOTPs[in.Email] = randomOTP()
	}
	s.mu.Unlock()
	// Same response whether or not the account exists.
	ok(c, http.StatusOK, "If the account exists, a code has been sent", nil)
}

func (s *Server) verifyPasswordReset(c *gin.Context) {
	var in struct {
		Email string `json:"email" binding:"required,email"`
		OTP   string `json:"otp" binding:"required,len=6"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusUnprocessableEntity, "Invalid payload")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resetOTPs[in.Email] != in.OTP {
		fail(c, http.StatusBadRequest, "Invalid or expired code")
		return
	}
	delete(s.resetOTPs, in.Email)
	token := uuid.NewString()
	s.resetTokens[token] = in.Email
	ok(c, http.StatusOK, "Code verified", gin.H{"resetToken": token})
}

func (s *Server) resetPassword(c *gin.Context) {
	bearer := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	var in struct {
		NewPassword string `json:"newPassword" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusUnprocessableEntity, "Invalid payload")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email, found := s.resetTokens[bearer]
	if bearer == "" || !found {
		fail(c, http.StatusUnauthorized, "Invalid or expired reset token")
		return
	}
	acct, found := s.users[email]
	if !found {
		fail(c, http.StatusUnauthorized, "Invalid or expired reset token")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to reset password")
		return
	}
	acct.PasswordHash = hash
	delete(s.resetTokens, bearer)
	ok(c, http.StatusOK, "Password updated", nil)
}

func (s *Server) listEvents(c *gin.Context) {
	search, sortOrder, category := splitSearch(c.Query("search"))

	s.mu.Lock()
	events := make([]upstream.Event, 0, len(s.events))
	for _, ev := range s.events {
		if search != "" && !strings.Contains(strings.ToLower(ev.Title), strings.ToLower(search)) {
			continue
		}
		if category != "" && ev.Category != category {
			continue
		}
		events = append(events, *ev)
	}
	s.mu.Unlock()

	sort.Slice(events, func(i, j int) bool {
		if sortOrder == "desc" {
			return events[i].Price > events[j].Price
		}
		return events[i].Price < events[j].Price
	})
	ok(c, http.StatusOK, "", events)
}

// splitSearch unpacks the pipe-separated "query|sort|category" parameter.
func splitSearch(raw string) (search, sortOrder, category string) {
	parts := strings.SplitN(raw, "|", 3)
	if len(parts) > 0 {
		search = parts[0]
	}
	if len(parts) > 1 {
		sortOrder = parts[1]
	}
	if len(parts) > 2 {
		category = parts[2]
	}
	return
}

func (s *Server) getEvent(c *gin.Context) {
	s.mu.Lock()
	ev, found := s.events[c.Param("id")]
	s.mu.Unlock()
	if !found {
		fail(c, http.StatusNotFound, "Event not found")
		return
	}
	ok(c, http.StatusOK, "", ev)
}

func (s *Server) createEvent(c *gin.Context, acct *account) {
	if acct.Role != "organizer" && acct.Role != "admin" {
		fail(c, http.StatusForbidden, "Only organizers can create events")
		return
	}
	var in upstream.CreateEventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusUnprocessableEntity, "Invalid event payload")
		return
	}
	ev := &upstream.Event{
		ID:             uuid.NewString(),
		Title:          in.Title,
		Description:    in.Description,
		Location:       in.Location,
		Date:           in.Date,
		Price:          in.Price,
		TotalSeats:     in.TotalSeats,
		AvailableSeats: in.TotalSeats,
		Status:         "active",
		Category:       in.Category,
		Image:          in.Image,
	}
	ev.Organizer.ID = acct.User.ID
	ev.Organizer.Name = acct.Name
	s.mu.Lock()
	s.events[ev.ID] = ev
	s.mu.Unlock()
	ok(c, http.StatusCreated, "Event created", ev)
}

func (s *Server) createOrder(c *gin.Context, acct *account) {
	var in upstream.OrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusUnprocessableEntity, "Invalid order payload")
		return
	}
	if in.Currency == "" {
		in.Currency = "INR"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ev, found := s.events[in.EventID]
	if !found {
		fail(c, http.StatusNotFound, "Event not found")
		return
	}
	if ev.AvailableSeats < in.TotalTickets {
		fail(c, http.StatusConflict, "Not enough seats available")
		return
	}
	ev.AvailableSeats -= in.TotalTickets

	orderID := "order_" + uuid.NewString()
	s.bookings[orderID] = &upstream.Booking{
		ID:     uuid.NewString(),
		Status: "success",
		Amount: in.Amount,
	}
	summary := upstream.BookingSummary{
		ID:         s.bookings[orderID].ID,
		TotalPrice: in.Amount,
		Tickets:    in.TotalTickets,
		CreatedAt:  time.Now(),
	}
	summary.Event.Date = ev.Date
	summary.Event.Category = ev.Category
	s.purchases[acct.Email] = append(s.purchases[acct.Email], summary)

	ok(c, http.StatusCreated, "Order created", upstream.Order{
		ID:       orderID,
		Amount:   in.Amount,
		Currency: in.Currency,
	})
}

func (s *Server) getBooking(c *gin.Context, _ *account) {
	s.mu.Lock()
	booking, found := s.bookings[c.Param("orderId")]
	s.mu.Unlock()
	if !found {
		fail(c, http.StatusNotFound, "Booking not found")
		return
	}
	ok(c, http.StatusOK, "", booking)
}

func (s *Server) attendeeStats(c *gin.Context, acct *account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bookings := s.purchases[acct.Email]
	stats := upstream.AttendeeStats{Bookings: bookings}
	if stats.Bookings == nil {
		stats.Bookings = []upstream.BookingSummary{}
	}
	now := time.Now()
	for _, b := range bookings {
		stats.TotalBookings++
		stats.TotalSpent += b.TotalPrice
		if b.Event.Date.After(now) {
			stats.UpcomingEvents++
		}
	}
	ok(c, http.StatusOK, "", stats)
}

func (s *Server) organizerStats(c *gin.Context, acct *account) {
	if acct.Role != "organizer" && acct.Role != "admin" {
		fail(c, http.StatusForbidden, "Organizer access required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := upstream.OrganizerStats{Events: []upstream.Event{}}
	for _, ev := range s.events {
		if ev.Organizer.ID != acct.User.ID {
			continue
		}
		stats.Events = append(stats.Events, *ev)
		stats.TotalEvents++
		sold := ev.TotalSeats - ev.AvailableSeats
		stats.TotalTicketsSold += sold
		stats.TotalRevenue += float64(sold) * ev.Price
		if ev.Status == "active" {
			stats.TotalActiveEvents++
		}
	}
	ok(c, http.StatusOK, "", stats)
}

func (s *Server) adminStats(c *gin.Context, acct *account) {
	if acct.Role != "admin" {
		fail(c, http.StatusForbidden, "Admin access required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := upstream.AdminStats{Users: []upstream.AdminUser{}}
	for _, a := range s.users {
		stats.Users = append(stats.Users, upstream.AdminUser{
			ID:              a.User.ID,
			Name:            a.Name,
			Email:           a.Email,
			Role:            a.Role,
			IsEmailVerified: a.IsEmailVerified,
			CreatedAt:       a.CreatedAt,
		})
		stats.TotalUsers++
		if a.IsEmailVerified {
			stats.TotalVerifiedUsers++
		}
		if a.Role == "admin" {
			stats.TotalAdmins++
		}
	}
	ok(c, http.StatusOK, "", stats)
}

func (s *Server) bookingStats(c *gin.Context, acct *account) {
	if acct.Role != "admin" {
		fail(c, http.StatusForbidden, "Admin access required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats upstream.BookingStats
	for _, b := range s.bookings {
		if b.Status != "success" {
			continue
		}
		stats.TotalEarnings += b.Amount
		stats.TotalPurchases++
	}
	ok(c, http.StatusOK, "", stats)
}

func (s *Server) deleteUser(c *gin.Context, acct *account) {
	if acct.Role != "admin" {
		fail(c, http.StatusForbidden, "Admin access required")
		return
	}
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for email, a := range s.users {
		if a.User.ID == id {
			delete(s.users, email)
			ok(c, http.StatusOK, "User deleted", nil)
			return
		}
	}
	fail(c, http.StatusNotFound, "User not found")
}

// PeekOTP exposes pending codes so flows can be driven end to end in dev mode.
func (s *Server) PeekOTP(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if otp, found := s.emailOTPs[email]; found {
		return otp, true
	}
	otp, found := s.resetOTPs[email]
	return otp, found
}

// FirstEventID returns a seeded event id, handy for smoke checks.
func (s *Server) FirstEventID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.events {
		return id
	}
	return ""
}

func randomOTP() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "000000"
	}
	return fmt.Sprintf("%06d", n.Int64())
}
