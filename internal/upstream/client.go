package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client wraps the ticketing backend API. Every method forwards the caller's
// access token as a cookie, matching how the backend authenticates browsers.
type Client struct {
	baseURL    string
	cookieName string
	httpClient *http.Client
}

// New builds a Client for the backend at baseURL. cookieName is the name the
// backend expects its access token cookie under.
func New(baseURL string, timeout time.Duration, cookieName string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		cookieName: cookieName,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// envelope is the backend's uniform response wrapper.
type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type reqOpts struct {
	token  string      // access token forwarded as a cookie
	bearer string      // Authorization bearer, used by the password reset flow
	body   interface{} // JSON request body
	out    interface{} // decoded from envelope.Data
}

func (c *Client) do(ctx context.Context, method, path string, opt reqOpts) ([]*http.Cookie, error) {
	var reader io.Reader
	if opt.body != nil {
		buf, err := json.Marshal(opt.body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if opt.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if opt.token != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: opt.token})
	}
	if opt.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+opt.bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}

	var env envelope
	if len(raw) > 0 {
		// Tolerate non-JSON error pages from proxies in front of the backend.
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 400 {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}

	if resp.StatusCode >= 400 {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return resp.Cookies(), &Error{StatusCode: resp.StatusCode, Message: msg}
	}

	if opt.out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, opt.out); err != nil {
			return nil, fmt.Errorf("decode response data: %w", err)
		}
	}
	return resp.Cookies(), nil
}

type userData struct {
	User User `json:"user"`
}

// Login authenticates with the backend and returns the user plus the
// Set-Cookie headers to relay to the browser.
func (c *Client) Login(ctx context.Context, email, password string) (*User, []*http.Cookie, error) {
	body := map[string]string{"email": email, "password": password}
	var data userData
	cookies, err := c.do(ctx, http.MethodPost, "/api/users/login", reqOpts{body: body, out: &data})
	if err != nil {
		return nil, nil, err
	}
	return &data.User, cookies, nil
}

// Register creates an account and returns the new user plus session cookies.
func (c *Client) Register(ctx context.Context, name, email, password, role string) (*User, []*http.Cookie, error) {
	body := map[string]string{"name": name, "email": email, "password": password, "role": role}
	var data userData
	cookies, err := c.do(ctx, http.MethodPost, "/api/users/register", reqOpts{body: body, out: &data})
	if err != nil {
		return nil, nil, err
	}
	return &data.User, cookies, nil
}

// CurrentUser fetches the authenticated user for token. A 401 means the token
// is missing or expired.
func (c *Client) CurrentUser(ctx context.Context, token string) (*User, error) {
	var data userData
	_, err := c.do(ctx, http.MethodGet, "/api/users/current-user", reqOpts{token: token, out: &data})
	if err != nil {
		return nil, err
	}
	return &data.User, nil
}

// Logout invalidates the backend session and returns the expiring cookies.
func (c *Client) Logout(ctx context.Context, token string) ([]*http.Cookie, error) {
	return c.do(ctx, http.MethodPost, "/api/users/logout", reqOpts{token: token})
}

// SendEmailOTP asks the backend to mail a verification code to the
// authenticated user.
func (c *Client) SendEmailOTP(ctx context.Context, token string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/email/send", reqOpts{token: token})
	return err
}

// VerifyEmailOTP submits the emailed code.
func (c *Client) VerifyEmailOTP(ctx context.Context, token, otp string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/email/verify", reqOpts{
		token: token,
		body:  map[string]string{"otp": otp},
	})
	return err
}

// SendPasswordReset mails a reset code. Unauthenticated.
func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/password/send", reqOpts{
		body: map[string]string{"email": email},
	})
	return err
}

// VerifyPasswordReset exchanges the emailed code for a short-lived reset token.
func (c *Client) VerifyPasswordReset(ctx context.Context, email, otp string) (string, error) {
	var data struct {
		ResetToken string `json:"resetToken"`
	}
	_, err := c.do(ctx, http.MethodPost, "/api/auth/password/verify", reqOpts{
		body: map[string]string{"email": email, "otp": otp},
		out:  &data,
	})
	if err != nil {
		return "", err
	}
	return data.ResetToken, nil
}

// ResetPassword sets a new password using the reset token from
// VerifyPasswordReset as a bearer credential.
func (c *Client) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/password/reset", reqOpts{
		bearer: resetToken,
		body:   map[string]string{"newPassword": newPassword},
	})
	return err
}

// ListEvents returns the public event listing. The backend packs the three
// filter fields into a single pipe-separated search parameter.
func (c *Client) ListEvents(ctx context.Context, q EventQuery) ([]Event, error) {
	packed := fmt.Sprintf("%s|%s|%s", q.Search, q.Sort, q.Category)
	path := "/api/events?search=" + url.QueryEscape(packed)
	var events []Event
	if _, err := c.do(ctx, http.MethodGet, path, reqOpts{out: &events}); err != nil {
		return nil, err
	}
	return events, nil
}

// GetEvent returns a single event by id.
func (c *Client) GetEvent(ctx context.Context, id string) (*Event, error) {
	var event Event
	if _, err := c.do(ctx, http.MethodGet, "/api/events/"+url.PathEscape(id), reqOpts{out: &event}); err != nil {
		return nil, err
	}
	return &event, nil
}

// CreateEvent publishes a new event on behalf of an organizer.
func (c *Client) CreateEvent(ctx context.Context, token string, in CreateEventInput) (*Event, error) {
	var event Event
	if _, err := c.do(ctx, http.MethodPost, "/api/events", reqOpts{token: token, body: in, out: &event}); err != nil {
		return nil, err
	}
	return &event, nil
}

// AttendeeStats returns the attendee dashboard aggregate.
func (c *Client) AttendeeStats(ctx context.Context, token string) (*AttendeeStats, error) {
	var stats AttendeeStats
	if _, err := c.do(ctx, http.MethodGet, "/api/users/attendee", reqOpts{token: token, out: &stats}); err != nil {
		return nil, err
	}
	return &stats, nil
}

// OrganizerStats returns the organizer dashboard aggregate.
func (c *Client) OrganizerStats(ctx context.Context, token string) (*OrganizerStats, error) {
	var stats OrganizerStats
	if _, err := c.do(ctx, http.MethodGet, "/api/users/organizer", reqOpts{token: token, out: &stats}); err != nil {
		return nil, err
	}
	return &stats, nil
}

// AdminStats returns the admin user panel aggregate.
func (c *Client) AdminStats(ctx context.Context, token string) (*AdminStats, error) {
	var stats AdminStats
	if _, err := c.do(ctx, http.MethodGet, "/api/users", reqOpts{token: token, out: &stats}); err != nil {
		return nil, err
	}
	return &stats, nil
}

// BookingStats returns the admin earnings aggregate.
func (c *Client) BookingStats(ctx context.Context, token string) (*BookingStats, error) {
	var stats BookingStats
	if _, err := c.do(ctx, http.MethodGet, "/api/bookings", reqOpts{token: token, out: &stats}); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetBooking looks up a booking by its payment order id.
func (c *Client) GetBooking(ctx context.Context, token, orderID string) (*Booking, error) {
	var booking Booking
	if _, err := c.do(ctx, http.MethodGet, "/api/bookings/"+url.PathEscape(orderID), reqOpts{token: token, out: &booking}); err != nil {
		return nil, err
	}
	return &booking, nil
}

// DeleteUser removes an account. Admin only.
func (c *Client) DeleteUser(ctx context.Context, token, userID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(userID), reqOpts{token: token})
	return err
}

// CreateOrder opens a payment order for the hosted checkout widget.
func (c *Client) CreateOrder(ctx context.Context, token string, in OrderInput) (*Order, error) {
	var order Order
	if _, err := c.do(ctx, http.MethodPost, "/api/payments/order", reqOpts{token: token, body: in, out: &order}); err != nil {
		return nil, err
	}
	return &order, nil
}
