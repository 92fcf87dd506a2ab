// Package backoffice connects finalized bookings to the taxi company: the
// dispatch system's booking API, a notification webhook and the dispatch
// channel the operators watch.
package backoffice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/logging"
	"github.com/soyeahso/mrbooky/internal/version"
)

const (
	defaultLinkBase = "https://booking.infoxoros.com/"
	defaultPayWay   = "Μετρητά στον οδηγό"
	submitTimeout   = 12 * time.Second
)

// ErrNoAPIKey is returned by Submit when no API key is configured.
var ErrNoAPIKey = errors.New("booking api key not configured")

// BookingAPI creates bookings in the dispatch system. The endpoint takes a
// form post and answers with {"status": 1} when the booking was created.
type BookingAPI struct {
	createURL string
	apiKey    string
	urlKey    string
	agent     string
	client    *http.Client
	log       *logging.Logger
}

// NewBookingAPI creates a client. A nil hc gets a 12 s timeout client.
func NewBookingAPI(createURL, apiKey, urlKey, agent string, hc *http.Client, log *logging.Logger) *BookingAPI {
	if hc == nil {
		hc = &http.Client{Timeout: submitTimeout}
	}
	return &BookingAPI{
		createURL: createURL,
		apiKey:    apiKey,
		urlKey:    urlKey,
		agent:     agent,
		client:    hc,
		log:       log.Sub("backoffice.api"),
	}
}

// Configured reports whether bookings can be submitted remotely.
func (a *BookingAPI) Configured() bool {
	return a != nil && a.createURL != ""
}

// Submit posts rec to the booking API. It reports whether the remote side
// confirmed creation; a false result with a nil error means the API answered
// but declined.
func (a *BookingAPI) Submit(ctx context.Context, rec domain.BookingRecord) (bool, error) {
	if a.apiKey == "" {
		return false, ErrNoAPIKey
	}
	form := SubmitForm(rec, a.apiKey, a.urlKey, a.agent)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.createURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := a.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("booking api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return false, fmt.Errorf("read booking api response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("booking api: status %d", resp.StatusCode)
	}

	var out struct {
		Status json.RawMessage `json:"status"`
		Errors []string        `json:"errors"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		// Non-JSON answers are treated as "not confirmed".
		a.log.Debug().Str("code", rec.Code).Int("bytes", len(body)).Msg("booking api returned non-JSON body")
		return false, nil
	}
	created := strings.Trim(string(out.Status), `"`) == "1"
	if !created && len(out.Errors) > 0 {
		a.log.Info().Str("code", rec.Code).Strs("errors", out.Errors).Msg("booking api declined")
	}
	return created, nil
}

// SubmitForm builds the form fields the booking API expects.
func SubmitForm(rec domain.BookingRecord, apiKey, urlKey, agent string) url.Values {
	b := rec.Slots
	pax := b.Pax
	if pax < 1 {
		pax = 1
	}
	remarks := b.Notes
	if remarks == "" {
		remarks = "—"
	}
	v := url.Values{}
	v.Set("action", "create")
	v.Set("apikey", apiKey)
	v.Set("url_key", urlKey)
	v.Set("lang", "el")
	v.Set("payWay", defaultPayWay)
	v.Set("appdate", rec.PickupAt)
	v.Set("name", b.Name)
	v.Set("phone", b.Phone)
	v.Set("email", b.Email)
	v.Set("address1", b.Origin)
	v.Set("address2", b.Destination)
	v.Set("people_count", strconv.Itoa(pax))
	v.Set("luggage_count", strconv.Itoa(b.LuggageCount))
	v.Set("numofcars", "1")
	v.Set("remarks", remarks)
	v.Set("agent", agent)
	v.Set("extra_email_text", "Κωδικός "+rec.Code)
	return v
}

// BookingLink returns the booking form deep link for the given url key.
// base defaults to the public booking form.
func BookingLink(base, urlKey, lang string) string {
	if base == "" {
		base = defaultLinkBase
	}
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	if urlKey != "" {
		q.Set("key", urlKey)
	}
	if lang != "" {
		q.Set("lang", lang)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
