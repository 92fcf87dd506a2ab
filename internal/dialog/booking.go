package dialog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/logging"
	"github.com/soyeahso/mrbooky/internal/nlp"
)

// BookingState is the position of a session in the booking flow.
type BookingState int

const (
	BookingNotStarted BookingState = iota
	BookingCollecting
	BookingConfirming
)

func (s BookingState) String() string {
	switch s {
	case BookingCollecting:
		return "collecting"
	case BookingConfirming:
		return "confirming"
	}
	return "not_started"
}

// Quoter produces a fare estimate text for a route.
type Quoter interface {
	QuoteText(ctx context.Context, origin, destination string) (string, error)
}

// Submitter creates a booking in the dispatch system. It reports whether
// the remote side confirmed the creation.
type Submitter interface {
	Submit(ctx context.Context, rec domain.BookingRecord) (bool, error)
}

// Recorder persists finalized bookings locally.
type Recorder interface {
	SaveBooking(ctx context.Context, rec domain.BookingRecord) error
}

// Notifier tells the back office about a new booking.
type Notifier interface {
	NotifyBooking(ctx context.Context, rec domain.BookingRecord) error
}

// BookingFlowOptions wires the optional collaborators of a BookingFlow.
type BookingFlowOptions struct {
	Quoter    Quoter
	Submitter Submitter
	Recorder  Recorder
	Notifier  Notifier
	LinkURL   string
	Now       func() time.Time
}

// BookingFlow collects, confirms and finalizes taxi reservations.
// It never performs topic detection; callers reset it on a topic switch.
type BookingFlow struct {
	opts BookingFlowOptions
	log  *logging.Logger
}

// NewBookingFlow creates a booking flow.
func NewBookingFlow(opts BookingFlowOptions, log *logging.Logger) *BookingFlow {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &BookingFlow{opts: opts, log: log.Sub("booking")}
}

// State reports where sess is in the flow.
func (f *BookingFlow) State(sess *domain.Session) BookingState {
	if sess.Intent != domain.IntentBooking {
		return BookingNotStarted
	}
	if sess.Booking.Complete() {
		return BookingConfirming
	}
	return BookingCollecting
}

// Start puts the session into the booking flow. Route, date and time found
// in prefill are stored; locations only when they are precise addresses.
func (f *BookingFlow) Start(sess *domain.Session, reset bool, prefill string) string {
	sess.Intent = domain.IntentBooking
	if reset {
		sess.Booking = domain.BookingSlots{}
	}
	if prefill != "" {
		if r, ok := nlp.ExtractRoute(prefill); ok {
			if r.Origin != nlp.DefaultOrigin && nlp.IsPreciseAddress(r.Origin) {
				sess.Booking.Origin = r.Origin
			}
			if nlp.IsPreciseAddress(r.Destination) {
				sess.Booking.Destination = r.Destination
			}
		}
		if d, ok := nlp.ParseDateHint(prefill, f.opts.Now()); ok {
			sess.Booking.PickupDate = d
		}
		if t, ok := nlp.ParsePickupTime(prefill); ok {
			sess.Booking.PickupTime = t
		}
		f.collectExtras(sess, prefill)
	}
	return PromptFor(sess.Booking.NextMissing())
}

// Collect validates text against the next missing slot and stores it. An
// invalid value yields a correction prompt and leaves the flow where it was.
// Once all required slots are present the confirmation summary is returned.
func (f *BookingFlow) Collect(ctx context.Context, sess *domain.Session, text string) string {
	val := strings.TrimSpace(text)
	slot := sess.Booking.NextMissing()
	parseDate := nlp.ParseDateHint
	if slot == domain.BookingName {
		parseDate = nlp.ParseRelativeDate
	}
	if d, ok := parseDate(val, f.opts.Now()); ok {
		sess.Booking.PickupDate = d
	}

	switch slot {
	case domain.BookingPhone:
		phone, ok := nlp.NormalizePhone(val)
		if !ok {
			return MsgAskPhoneAgain
		}
		sess.Booking.Phone = phone
	case domain.BookingPickupTime:
		t, ok := nlp.ParsePickupTime(val)
		if !ok {
			return MsgAskTimeAgain
		}
		sess.Booking.PickupTime = t
	case domain.BookingOrigin, domain.BookingDestination:
		if val == "" {
			return PromptFor(slot)
		}
		if !nlp.IsPreciseAddress(val) {
			return RefinePrompt(slot)
		}
		sess.Booking.Set(slot, val)
	case domain.BookingName:
		if val == "" {
			return PromptFor(slot)
		}
		sess.Booking.Name = val
	}
	f.collectExtras(sess, val)

	if next := sess.Booking.NextMissing(); next != "" {
		return PromptFor(next)
	}
	return f.Confirm(ctx, sess)
}

func (f *BookingFlow) collectExtras(sess *domain.Session, text string) {
	if n, ok := nlp.ParsePax(text); ok {
		sess.Booking.Pax = n
	}
	if n, heavy, ok := nlp.ParseLuggage(text); ok {
		if n > 0 {
			sess.Booking.LuggageCount = n
		}
		sess.Booking.LuggageHeavy = sess.Booking.LuggageHeavy || heavy
	}
	if m, ok := nlp.ParseEmail(text); ok {
		sess.Booking.Email = m
	}
}

// Confirm renders the booking summary with a fare estimate and offers to
// proceed.
func (f *BookingFlow) Confirm(ctx context.Context, sess *domain.Session) string {
	b := sess.Booking
	var sb strings.Builder
	sb.WriteString("📋 **Σύνοψη κράτησης**\n")
	fmt.Fprintf(&sb, "- Από: %s\n- Προς: %s\n", b.Origin, b.Destination)
	fmt.Fprintf(&sb, "- Ημερομηνία: %s\n", orDefault(b.PickupDate, "(σήμερα)"))
	fmt.Fprintf(&sb, "- Ώρα: %s\n", b.PickupTime)
	fmt.Fprintf(&sb, "- Όνομα: %s\n- Κινητό: %s\n", b.Name, b.Phone)
	fmt.Fprintf(&sb, "- Άτομα: %d\n", paxOrOne(b.Pax))
	fmt.Fprintf(&sb, "- Αποσκευές: %d (βαριές: %s)\n", b.LuggageCount, yesNo(b.LuggageHeavy))

	if f.opts.Quoter != nil {
		quote, err := f.opts.Quoter.QuoteText(ctx, b.Origin, b.Destination)
		if err != nil {
			f.log.Warn().Err(err).Str("session", sess.ID).Msg("fare estimate for booking summary failed")
		} else if quote != "" {
			sb.WriteString("\n" + quote + "\n")
		}
	}
	sb.WriteString("\n" + MsgConfirmAsk)

	sess.LastOffered = domain.OfferBookingConfirm
	return sb.String()
}

// Finalize turns a confirmed booking into a record, submits it, stores it
// and notifies the back office. Only a missing required slot is an error;
// remote and notification failures are logged and the booking stays a local
// pre-booking. The session leaves the booking flow.
func (f *BookingFlow) Finalize(ctx context.Context, sess *domain.Session) (string, domain.BookingRecord, error) {
	if missing := sess.Booking.NextMissing(); missing != "" {
		return PromptFor(missing), domain.BookingRecord{}, fmt.Errorf("booking incomplete: missing %s", missing)
	}
	now := f.opts.Now()
	rec := domain.BookingRecord{
		Code:      BookingCode(now),
		SessionID: sess.ID,
		Slots:     sess.Booking,
		PickupAt:  ComposePickup(sess.Booking, now),
		CreatedAt: now,
	}
	log := f.log.Session(sess.ID)

	infoLine := "ℹ️ Δεν ήταν δυνατή η υποβολή — συνεχίζουμε με προ-κράτηση."
	if f.opts.Submitter != nil {
		created, err := f.opts.Submitter.Submit(ctx, rec)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("code", rec.Code).Msg("remote booking submission failed")
			infoLine = "ℹ️ Σφάλμα υποβολής — συνεχίζουμε με προ-κράτηση."
		case created:
			infoLine = "✅ Δημιουργήθηκε στο σύστημα."
		default:
			infoLine = "ℹ️ Το σύστημα δεν επιβεβαίωσε τη δημιουργία."
		}
		rec.CreatedRemote = created && err == nil
	}
	// The booking exists once submitted; record it even if the caller left.
	if f.opts.Recorder != nil {
		if err := f.opts.Recorder.SaveBooking(context.WithoutCancel(ctx), rec); err != nil {
			log.Error().Err(err).Str("code", rec.Code).Msg("saving booking record failed")
		}
	}
	if f.opts.Notifier != nil {
		if err := f.opts.Notifier.NotifyBooking(ctx, rec); err != nil {
			log.Warn().Err(err).Str("code", rec.Code).Msg("back-office notification failed")
		}
	}
	log.Info().Str("code", rec.Code).Bool("remote", rec.CreatedRemote).Str("pickupAt", rec.PickupAt).Msg("booking finalized")

	reply := renderFinalized(rec, infoLine, f.opts.LinkURL, now)
	sess.ResetBooking()
	return reply, rec, nil
}

func renderFinalized(rec domain.BookingRecord, infoLine, link string, now time.Time) string {
	var sb strings.Builder
	if rec.CreatedRemote {
		fmt.Fprintf(&sb, "✅ Η κράτηση δημιουργήθηκε στο σύστημα. Κωδικός: %s\n", rec.Code)
	} else {
		fmt.Fprintf(&sb, "📝 Προ-κράτηση καταγράφηκε (εσωτερικά). Κωδικός: %s\n", rec.Code)
		sb.WriteString("➡️ Για ολοκλήρωση στο σύστημα, άνοιξε τον σύνδεσμο και υπέβαλε τη φόρμα.\n")
	}
	sb.WriteString(infoLine + "\n")
	if link != "" {
		fmt.Fprintf(&sb, "🔗 Ολοκλήρωση: %s\n", link)
	}
	sb.WriteString("\n📋 **Copy-paste στη φόρμα**:\n")
	sb.WriteString(CopyBlock(rec, now))
	return sb.String()
}

// CopyBlock renders the booking as label/value lines for pasting into the
// dispatch web form.
func CopyBlock(rec domain.BookingRecord, now time.Time) string {
	b := rec.Slots
	lines := []string{
		"ΚΩΔΙΚΟΣ: " + rec.Code,
		"Παραλαβή: " + b.Origin,
		"Προορισμός: " + b.Destination,
		"Ημερομηνία: " + orDefault(b.PickupDate, now.Format(time.DateOnly)),
		"Ώρα: " + b.PickupTime,
		"Όνομα: " + b.Name,
		"Κινητό: " + b.Phone,
		"Email: " + b.Email,
		"Άτομα: " + strconv.Itoa(paxOrOne(b.Pax)),
		fmt.Sprintf("Αποσκευές: %d (βαριές: %s)", b.LuggageCount, yesNo(b.LuggageHeavy)),
		"Σημειώσεις: " + b.Notes,
	}
	return strings.Join(lines, "\n")
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// BookingCode returns a code of the form BK-YYYYMMDD-XXXX.
func BookingCode(now time.Time) string {
	id := uuid.New()
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = codeAlphabet[int(id[i])%len(codeAlphabet)]
	}
	return "BK-" + now.Format("20060102") + "-" + string(suffix)
}

// ComposePickup builds "YYYY-MM-DD HH:MM:SS" from the booking date and time.
// ASAP means now plus 10 minutes; a missing or unreadable time means now
// plus 20 minutes.
func ComposePickup(b domain.BookingSlots, now time.Time) string {
	const layout = "2006-01-02 15:04:05"
	if b.PickupTime == domain.PickupASAP {
		return now.Add(10 * time.Minute).Format(layout)
	}
	if t, err := time.Parse("15:04", b.PickupTime); err == nil {
		date := b.PickupDate
		if date == "" {
			date = now.Format(time.DateOnly)
		}
		return date + " " + t.Format("15:04") + ":00"
	}
	return now.Add(20 * time.Minute).Format(layout)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func paxOrOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func yesNo(b bool) string {
	if b {
		return "ναι"
	}
	return "όχι"
}
