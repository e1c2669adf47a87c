package service

import (
    "context"
    "strings"
    "time"

    "github.com/sirupsen/logrus"
    "go.opentelemetry.io/otel/attribute"
    "go.opentelemetry.io/otel/codes"
    "go.opentelemetry.io/otel/trace"

    "github.com/iliyamo/bookable/internal/clock"
    "github.com/iliyamo/bookable/internal/logging"
    "github.com/iliyamo/bookable/internal/metrics"
    "github.com/iliyamo/bookable/internal/model"
    "github.com/iliyamo/bookable/internal/pricing"
    "github.com/iliyamo/bookable/internal/queue"
    "github.com/iliyamo/bookable/internal/tracing"
)

// openStates are the states that count for the one-booking-per-customer
// rule at creation time.
var openStates = []model.BookingState{
    model.BookingDraft, model.BookingWaitlisted, model.BookingConfirmed, model.BookingDone,
}

// seatStates are the states that hold seats.
var seatStates = []model.BookingState{model.BookingConfirmed, model.BookingDone}

// BookingService runs the booking lifecycle.  Every operation that reads
// or changes seat usage locks the catalog item row first, so confirmations,
// cancellations and promotions of one item never interleave.
type BookingService struct {
    tx        Transactor
    items     ItemStore
    bookings  BookingStore
    refs      References
    events    EventPublisher
    clock     clock.Clock
    paging    Paging
    companyID uint64
    cache     CacheInvalidator // public item figures change with seat usage
}

// BookingOption customises a BookingService.
type BookingOption func(*BookingService)

// WithBookingPaging sets the listing page size limits.
func WithBookingPaging(p Paging) BookingOption {
    return func(s *BookingService) { s.paging = p }
}

// WithBookingCache sets the cache dropped after bookings change.
func WithBookingCache(c CacheInvalidator) BookingOption {
    return func(s *BookingService) {
        if c != nil {
            s.cache = c
        }
    }
}

// WithBookingCompany sets the company stamped on new bookings.
func WithBookingCompany(id uint64) BookingOption {
    return func(s *BookingService) {
        if id != 0 {
            s.companyID = id
        }
    }
}

// NewBookingService wires a BookingService.  A nil publisher disables
// events.
func NewBookingService(tx Transactor, items ItemStore, bookings BookingStore, refs References, events EventPublisher, clk clock.Clock, opts ...BookingOption) *BookingService {
    if events == nil {
        events = noopPublisher{}
    }
    s := &BookingService{
        tx:        tx,
        items:     items,
        bookings:  bookings,
        refs:      refs,
        events:    events,
        clock:     clk,
        companyID: 1,
        cache:     noopInvalidator{},
    }
    for _, opt := range opts {
        opt(s)
    }
    return s
}

// CreateBookingInput describes a new booking.  CustomerID is honoured for
// administrators only; customers always book for themselves.  A nil
// BookingDate means now.
type CreateBookingInput struct {
    CustomerID  uint64     `json:"customer_id"`
    ItemID      uint64     `json:"item_id"`
    Quantity    int        `json:"quantity"`
    BookingDate *time.Time `json:"booking_date"`
    Notes       string     `json:"notes"`
}

// UpdateBookingInput patches a booking.  Nil fields are left unchanged.
type UpdateBookingInput struct {
    Quantity      *int       `json:"quantity"`
    BookingDate   *time.Time `json:"booking_date"`
    Notes         *string    `json:"notes"`
    ReviewRating  *int       `json:"review_rating"`
    ReviewComment *string    `json:"review_comment"`
}

func (in UpdateBookingInput) fields() []string {
    var out []string
    if in.Quantity != nil {
        out = append(out, model.FieldQuantity)
    }
    if in.BookingDate != nil {
        out = append(out, model.FieldBookingDate)
    }
    if in.Notes != nil {
        out = append(out, model.FieldNotes)
    }
    if in.ReviewRating != nil {
        out = append(out, model.FieldReviewRating)
    }
    if in.ReviewComment != nil {
        out = append(out, model.FieldReviewComment)
    }
    return out
}

// CancelResult is a cancelled booking plus the waitlisted bookings that
// took its seats.
type CancelResult struct {
    Booking  model.Booking   `json:"booking"`
    Promoted []model.Booking `json:"promoted"`
}

// PromoteResult is a manually promoted booking.  Overbooked is set when
// the promotion pushed reserved seats past capacity.
type PromoteResult struct {
    Booking    model.Booking `json:"booking"`
    Overbooked bool          `json:"overbooked"`
}

// pending collects events produced inside a transaction; they are
// published only after commit.
type pending struct {
    events []queue.BookingEvent
    manual map[int]bool // indexes of events caused by a manual promotion
}

func (p *pending) addManual(b model.Booking, item model.CatalogItem, overbooked bool) {
    if p.manual == nil {
        p.manual = map[int]bool{}
    }
    p.manual[len(p.events)] = true
    p.add(queue.EventPromoted, b, item, overbooked)
}

func (p *pending) add(t queue.EventType, b model.Booking, item model.CatalogItem, overbooked bool) {
    p.events = append(p.events, queue.BookingEvent{
        Type:       t,
        BookingID:  b.ID,
        Reference:  b.Reference,
        CustomerID: b.CustomerID,
        ItemID:     b.ItemID,
        ItemName:   item.Name,
        Quantity:   b.Quantity,
        Amount:     b.Amount,
        Currency:   b.Currency,
        State:      string(b.State),
        Overbooked: overbooked,
        OccurredAt: b.UpdatedAt,
    })
}

// flush updates metrics and publishes the collected events.  Broker
// failures are counted and logged but never fail the operation.
func (s *BookingService) flush(ctx context.Context, p *pending) {
    if len(p.events) > 0 {
        invalidate(ctx, s.cache)
    }
    for i, ev := range p.events {
        switch ev.Type {
        case queue.EventCreated:
            metrics.BookingsCreated.Inc()
        case queue.EventPromoted:
            mode := "auto"
            if p.manual[i] {
                mode = "manual"
            }
            metrics.WaitlistPromotions.WithLabelValues(mode).Inc()
            metrics.BookingTransitions.WithLabelValues(ev.State).Inc()
        default:
            metrics.BookingTransitions.WithLabelValues(ev.State).Inc()
        }
        if err := s.events.Publish(ctx, ev); err != nil {
            metrics.EventPublishFailures.Inc()
        }
    }
}

func (s *BookingService) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
    ctx, span := tracing.Tracer().Start(ctx, "BookingService."+name)
    span.SetAttributes(attrs...)
    return ctx, span
}

func endSpan(span trace.Span, err error) {
    if err != nil {
        span.RecordError(err)
        span.SetStatus(codes.Error, err.Error())
    }
    span.End()
}

func sameDayOrLater(date, now time.Time) bool {
    d := date.UTC()
    n := now.UTC()
    dy, dm, dd := d.Date()
    ny, nm, nd := n.Date()
    return !time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC).Before(time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC))
}

func (s *BookingService) checkDate(date time.Time) error {
    if !sameDayOrLater(date, s.clock.Now()) {
        return Validation(CodePastBookingDate, "booking date cannot be in the past")
    }
    return nil
}

// loadOwned reads a booking without locking it and checks that actor may
// act on it.
func (s *BookingService) loadOwned(ctx context.Context, actor Actor, id uint64) (model.Booking, error) {
    b, err := s.bookings.GetByID(ctx, id)
    if err != nil {
        return model.Booking{}, translate(err, "booking")
    }
    if !actor.Owns(b.CustomerID) {
        return model.Booking{}, Forbidden(CodeForbidden, "booking belongs to another customer")
    }
    return b, nil
}

// lockBooking locks the item of booking id, then the booking itself.
func (s *BookingService) lockBooking(ctx context.Context, actor Actor, id uint64) (model.Booking, model.CatalogItem, error) {
    b, err := s.loadOwned(ctx, actor, id)
    if err != nil {
        return model.Booking{}, model.CatalogItem{}, err
    }
    item, err := s.items.GetForUpdate(ctx, b.ItemID)
    if err != nil {
        return model.Booking{}, model.CatalogItem{}, translate(err, "catalog item")
    }
    if b, err = s.bookings.GetForUpdate(ctx, id); err != nil {
        return model.Booking{}, model.CatalogItem{}, translate(err, "booking")
    }
    return b, item, nil
}

// Create stores a draft booking.  The reference counter commits
// independently of the booking transaction, so a failed creation leaves a
// gap in the numbering rather than a reused reference.
func (s *BookingService) Create(ctx context.Context, actor Actor, in CreateBookingInput) (b model.Booking, err error) {
    ctx, span := s.startSpan(ctx, "Create", attribute.Int64("item.id", int64(in.ItemID)))
    defer func() { endSpan(span, err) }()

    var p pending
    err = s.tx.WithTx(ctx, func(ctx context.Context) error {
        var err error
        b, err = s.create(ctx, actor, in, &p)
        return err
    })
    if err != nil {
        return model.Booking{}, err
    }
    s.flush(ctx, &p)
    return b, nil
}

// Book creates a booking and immediately confirms it, in one transaction.
// When the item is full the booking ends up waitlisted.
func (s *BookingService) Book(ctx context.Context, actor Actor, in CreateBookingInput) (b model.Booking, err error) {
    ctx, span := s.startSpan(ctx, "Book", attribute.Int64("item.id", int64(in.ItemID)))
    defer func() { endSpan(span, err) }()

    var p pending
    err = s.tx.WithTx(ctx, func(ctx context.Context) error {
        created, err := s.create(ctx, actor, in, &p)
        if err != nil {
            return err
        }
        item, err := s.items.GetForUpdate(ctx, created.ItemID)
        if err != nil {
            return translate(err, "catalog item")
        }
        b, err = s.confirm(ctx, actor, created, item, &p)
        return err
    })
    if err != nil {
        return model.Booking{}, err
    }
    s.flush(ctx, &p)
    return b, nil
}

func (s *BookingService) create(ctx context.Context, actor Actor, in CreateBookingInput, p *pending) (model.Booking, error) {
    customerID := actor.UserID
    if actor.IsAdmin() && in.CustomerID != 0 {
        customerID = in.CustomerID
    }
    if customerID == 0 {
        return model.Booking{}, Validation(CodeInvalidInput, "customer is required")
    }
    if in.ItemID == 0 {
        return model.Booking{}, Validation(CodeInvalidInput, "item is required")
    }
    if in.Quantity < 1 {
        return model.Booking{}, Validation(CodeInvalidQuantity, "quantity must be at least 1")
    }
    now := s.clock.Now()
    date := now
    if in.BookingDate != nil {
        date = in.BookingDate.UTC()
    }
    if err := s.checkDate(date); err != nil {
        return model.Booking{}, err
    }

    item, err := s.items.GetForUpdate(ctx, in.ItemID)
    if err != nil {
        return model.Booking{}, translate(err, "catalog item")
    }
    if !item.Bookable() {
        return model.Booking{}, Validation(CodeItemUnavailable, "catalog item is not open for booking")
    }
    dup, err := s.bookings.ExistsForCustomer(ctx, customerID, item.ID, openStates, 0)
    if err != nil {
        return model.Booking{}, Internal(err)
    }
    if dup {
        return model.Booking{}, Validation(CodeDuplicateBooking, "customer already has a booking for this item")
    }

    ref, err := s.refs.Next(ctx, now)
    if err != nil {
        return model.Booking{}, Internal(err)
    }
    unit := pricing.UnitPrice(&item, date)
    b := model.Booking{
        Reference:   ref,
        CustomerID:  customerID,
        ItemID:      item.ID,
        Quantity:    in.Quantity,
        BookingDate: date,
        UnitPrice:   unit,
        Amount:      pricing.Amount(unit, in.Quantity),
        Currency:    item.Currency,
        State:       model.BookingDraft,
        Notes:       strings.TrimSpace(in.Notes),
        CompanyID:   s.companyID,
    }
    b.Touch(now, actor.UserID)
    if err := s.bookings.Create(ctx, &b); err != nil {
        return model.Booking{}, translate(err, "booking")
    }
    p.add(queue.EventCreated, b, item, false)
    return b, nil
}

// Confirm moves a draft or waitlisted booking to confirmed, or to
// waitlisted when the item has no room left for it.
func (s *BookingService) Confirm(ctx context.Context, actor Actor, id uint64) (b model.Booking, err error) {
    ctx, span := s.startSpan(ctx, "Confirm", attribute.Int64("booking.id", int64(id)))
    defer func() { endSpan(span, err) }()

    var p pending
    err = s.tx.WithTx(ctx, func(ctx context.Context) error {
        locked, item, err := s.lockBooking(ctx, actor, id)
        if err != nil {
            return err
        }
        b, err = s.confirm(ctx, actor, locked, item, &p)
        return err
    })
    if err != nil {
        return model.Booking{}, err
    }
    s.flush(ctx, &p)
    return b, nil
}

// confirm runs with the item row locked.
func (s *BookingService) confirm(ctx context.Context, actor Actor, b model.Booking, item model.CatalogItem, p *pending) (model.Booking, error) {
    if b.State != model.BookingDraft && b.State != model.BookingWaitlisted {
        return model.Booking{}, Validation(CodeInvalidTransition, "only draft or waitlisted bookings can be confirmed")
    }
    if !item.Bookable() {
        return model.Booking{}, Validation(CodeItemUnavailable, "catalog item is not open for booking")
    }
    dup, err := s.bookings.ExistsForCustomer(ctx, b.CustomerID, item.ID, seatStates, b.ID)
    if err != nil {
        return model.Booking{}, Internal(err)
    }
    if dup {
        return model.Booking{}, Validation(CodeDuplicateBooking, "customer already has a confirmed booking for this item")
    }

    next := model.BookingConfirmed
    if !item.Unlimited() {
        if b.Quantity > item.Capacity {
            return model.Booking{}, Conflict(CodeExceedsCapacity, "quantity exceeds the total capacity of the item")
        }
        stats, err := s.items.Stats(ctx, item.ID)
        if err != nil {
            return model.Booking{}, Internal(err)
        }
        if stats.ReservedSeats+b.Quantity > item.Capacity {
            next = model.BookingWaitlisted
        }
    }
    if next == b.State {
        return b, nil
    }
    if !model.CanTransition(b.State, next) {
        return model.Booking{}, Validation(CodeInvalidTransition, "booking cannot move from "+string(b.State)+" to "+string(next))
    }
    b.State = next
    b.Touch(s.clock.Now(), actor.UserID)
    if err := s.bookings.Update(ctx, &b); err != nil {
        return model.Booking{}, translate(err, "booking")
    }
    if next == model.BookingWaitlisted {
        logging.FromContext(ctx).WithFields(logrus.Fields{
            "booking_id": b.ID,
            "item_id":    item.ID,
        }).Info("item full, booking waitlisted")
        p.add(queue.EventWaitlisted, b, item, false)
    } else {
        p.add(queue.EventConfirmed, b, item, false)
    }
    return b, nil
}

// Cancel cancels a non-terminal booking.  When the booking held seats the
// earliest-created waitlisted booking of the item is promoted if it fits.
func (s *BookingService) Cancel(ctx context.Context, actor Actor, id uint64) (res CancelResult, err error) {
    ctx, span := s.startSpan(ctx, "Cancel", attribute.Int64("booking.id", int64(id)))
    defer func() { endSpan(span, err) }()

    var p pending
    err = s.tx.WithTx(ctx, func(ctx context.Context) error {
        b, item, err := s.lockBooking(ctx, actor, id)
        if err != nil {
            return err
        }
        if !model.CanTransition(b.State, model.BookingCancelled) {
            return Validation(CodeInvalidTransition, "a "+string(b.State)+" booking cannot be cancelled")
        }
        heldSeats := b.State.HoldsSeats()
        b.State = model.BookingCancelled
        b.Touch(s.clock.Now(), actor.UserID)
        if err := s.bookings.Update(ctx, &b); err != nil {
            return translate(err, "booking")
        }
        p.add(queue.EventCancelled, b, item, false)
        res.Booking = b
        res.Promoted = []model.Booking{}
        if heldSeats {
            promoted, err := s.promoteWaitlist(ctx, actor, item, &p)
            if err != nil {
                return err
            }
            res.Promoted = promoted
        }
        return nil
    })
    if err != nil {
        return CancelResult{}, err
    }
    s.flush(ctx, &p)
    return res, nil
}

// promoteWaitlist confirms the earliest-created waitlisted booking of item
// when it fits in the capacity left.  A head that does not fit blocks the
// queue, so a large request is never overtaken by later small ones.
func (s *BookingService) promoteWaitlist(ctx context.Context, actor Actor, item model.CatalogItem, p *pending) ([]model.Booking, error) {
    queued, err := s.bookings.Waitlist(ctx, item.ID)
    if err != nil {
        return nil, Internal(err)
    }
    if len(queued) == 0 {
        return []model.Booking{}, nil
    }
    head := queued[0]
    if !item.Unlimited() {
        stats, err := s.items.Stats(ctx, item.ID)
        if err != nil {
            return nil, Internal(err)
        }
        if stats.ReservedSeats+head.Quantity > item.Capacity {
            return []model.Booking{}, nil
        }
    }
    head.State = model.BookingConfirmed
    head.Touch(s.clock.Now(), actor.UserID)
    if err := s.bookings.Update(ctx, &head); err != nil {
        return nil, translate(err, "booking")
    }
    p.add(queue.EventPromoted, head, item, false)
    logging.FromContext(ctx).WithFields(logrus.Fields{
        "booking_id": head.ID,
        "item_id":    item.ID,
    }).Info("waitlisted booking promoted")
    return []model.Booking{head}, nil
}

// Done marks a confirmed booking as fulfilled.  Administrators only.
func (s *BookingService) Done(ctx context.Context, actor Actor, id uint64) (b model.Booking, err error) {
    ctx, span := s.startSpan(ctx, "Done", attribute.Int64("booking.id", int64(id)))
    defer func() { endSpan(span, err) }()

    if err = requireAdmin(actor); err != nil {
        return model.Booking{}, err
    }
    var p pending
    err = s.tx.WithTx(ctx, func(ctx context.Context) error {
        locked, item, err := s.lockBooking(ctx, actor, id)
        if err != nil {
            return err
        }
        if !model.CanTransition(locked.State, model.BookingDone) {
            return Validation(CodeInvalidTransition, "only confirmed bookings can be marked done")
        }
        locked.State = model.BookingDone
        locked.Touch(s.clock.Now(), actor.UserID)
        if err := s.bookings.Update(ctx, &locked); err != nil {
            return translate(err, "booking")
        }
        p.add(queue.EventDone, locked, item, false)
        b = locked
        return nil
    })
    if err != nil {
        return model.Booking{}, err
    }
    s.flush(ctx, &p)
    return b, nil
}

// Promote confirms a waitlisted booking regardless of capacity.
// Administrators only; the result reports whether the item is now
// overbooked.
func (s *BookingService) Promote(ctx context.Context, actor Actor, id uint64) (res PromoteResult, err error) {
    ctx, span := s.startSpan(ctx, "Promote", attribute.Int64("booking.id", int64(id)))
    defer func() { endSpan(span, err) }()

    if err = requireAdmin(actor); err != nil {
        return PromoteResult{}, err
    }
    var p pending
    err = s.tx.WithTx(ctx, func(ctx context.Context) error {
        b, item, err := s.lockBooking(ctx, actor, id)
        if err != nil {
            return err
        }
        if b.State != model.BookingWaitlisted {
            return Validation(CodeInvalidTransition, "only waitlisted bookings can be promoted")
        }
        stats, err := s.items.Stats(ctx, item.ID)
        if err != nil {
            return Internal(err)
        }
        over := !item.Unlimited() && stats.ReservedSeats+b.Quantity > item.Capacity
        b.State = model.BookingConfirmed
        b.Touch(s.clock.Now(), actor.UserID)
        if err := s.bookings.Update(ctx, &b); err != nil {
            return translate(err, "booking")
        }
        if over {
            logging.FromContext(ctx).WithFields(logrus.Fields{
                "booking_id": b.ID,
                "item_id":    item.ID,
                "capacity":   item.Capacity,
                "reserved":   stats.ReservedSeats + b.Quantity,
            }).Warn("manual promotion overbooked the item")
        }
        p.addManual(b, item, over)
        res = PromoteResult{Booking: b, Overbooked: over}
        return nil
    })
    if err != nil {
        return PromoteResult{}, err
    }
    s.flush(ctx, &p)
    return res, nil
}

// Update applies a patch.  Draft and waitlisted bookings accept quantity,
// booking date and notes; the amount follows the quantity at the unit
// price frozen at creation.  Confirmed and done bookings accept only the
// review fields.  Cancelled bookings accept nothing.
func (s *BookingService) Update(ctx context.Context, actor Actor, id uint64, in UpdateBookingInput) (b model.Booking, err error) {
    ctx, span := s.startSpan(ctx, "Update", attribute.Int64("booking.id", int64(id)))
    defer func() { endSpan(span, err) }()

    fields := in.fields()
    if len(fields) == 0 {
        return model.Booking{}, Validation(CodeInvalidInput, "nothing to update")
    }
    err = s.tx.WithTx(ctx, func(ctx context.Context) error {
        locked, item, err := s.lockBooking(ctx, actor, id)
        if err != nil {
            return err
        }
        if err := s.applyUpdate(&locked, item, fields, in); err != nil {
            return err
        }
        locked.Touch(s.clock.Now(), actor.UserID)
        if err := s.bookings.Update(ctx, &locked); err != nil {
            return translate(err, "booking")
        }
        b = locked
        return nil
    })
    if err != nil {
        return model.Booking{}, err
    }
    invalidate(ctx, s.cache)
    return b, nil
}

func (s *BookingService) applyUpdate(b *model.Booking, item model.CatalogItem, fields []string, in UpdateBookingInput) error {
    switch {
    case b.State == model.BookingCancelled:
        return Forbidden(CodeBookingFinalized, "cancelled bookings cannot be modified")
    case b.State.Finalized():
        for _, f := range fields {
            if !model.EditableAfterConfirmation(f) {
                return Forbidden(CodeBookingFinalized, "field "+f+" cannot be changed once the booking is "+string(b.State))
            }
        }
        if in.ReviewRating != nil {
            if *in.ReviewRating < model.MinReviewRating || *in.ReviewRating > model.MaxReviewRating {
                return Validation(CodeInvalidRating, "rating must be between 1 and 5")
            }
            r := *in.ReviewRating
            b.ReviewRating = &r
        }
        if in.ReviewComment != nil {
            b.ReviewComment = strings.TrimSpace(*in.ReviewComment)
        }
        return nil
    }

    if in.ReviewRating != nil || in.ReviewComment != nil {
        return Validation(CodeInvalidInput, "reviews can only be left on confirmed bookings")
    }
    if in.Quantity != nil {
        if *in.Quantity < 1 {
            return Validation(CodeInvalidQuantity, "quantity must be at least 1")
        }
        // A waitlisted booking larger than the item would block the queue for good.
        if !item.Unlimited() && *in.Quantity > item.Capacity {
            return Conflict(CodeExceedsCapacity, "quantity exceeds the total capacity of the item")
        }
        b.Quantity = *in.Quantity
        b.Amount = pricing.Amount(b.UnitPrice, b.Quantity)
    }
    if in.BookingDate != nil {
        if err := s.checkDate(*in.BookingDate); err != nil {
            return err
        }
        b.BookingDate = in.BookingDate.UTC()
    }
    if in.Notes != nil {
        b.Notes = strings.TrimSpace(*in.Notes)
    }
    return nil
}

// Delete removes a draft or cancelled booking.
func (s *BookingService) Delete(ctx context.Context, actor Actor, id uint64) (err error) {
    ctx, span := s.startSpan(ctx, "Delete", attribute.Int64("booking.id", int64(id)))
    defer func() { endSpan(span, err) }()

    err = s.tx.WithTx(ctx, func(ctx context.Context) error {
        if _, err := s.loadOwned(ctx, actor, id); err != nil {
            return err
        }
        b, err := s.bookings.GetForUpdate(ctx, id)
        if err != nil {
            return translate(err, "booking")
        }
        if b.State != model.BookingDraft && b.State != model.BookingCancelled {
            return Forbidden(CodeBookingFinalized, "only draft or cancelled bookings can be deleted")
        }
        return translate(s.bookings.Delete(ctx, id), "booking")
    })
    if err == nil {
        invalidate(ctx, s.cache)
    }
    return err
}

// Duplicate copies a booking into a new draft with a fresh reference.  The
// copy goes through every creation rule, so duplicating a booking that is
// still open for the same item fails as a duplicate.
func (s *BookingService) Duplicate(ctx context.Context, actor Actor, id uint64) (model.Booking, error) {
    src, err := s.loadOwned(ctx, actor, id)
    if err != nil {
        return model.Booking{}, err
    }
    date := src.BookingDate
    return s.Create(ctx, actor, CreateBookingInput{
        CustomerID:  src.CustomerID,
        ItemID:      src.ItemID,
        Quantity:    src.Quantity,
        BookingDate: &date,
        Notes:       src.Notes,
    })
}

// Get returns a booking with its waitlist position.
func (s *BookingService) Get(ctx context.Context, actor Actor, id uint64) (model.BookingView, error) {
    b, err := s.loadOwned(ctx, actor, id)
    if err != nil {
        return model.BookingView{}, err
    }
    v := model.BookingView{Booking: b}
    if it, err := s.items.GetByID(ctx, b.ItemID); err == nil {
        v.ItemName = it.Name
    }
    if b.State == model.BookingWaitlisted {
        pos, err := s.bookings.WaitlistPosition(ctx, b)
        if err != nil {
            return model.BookingView{}, Internal(err)
        }
        v.WaitlistPosition = pos
    }
    return v, nil
}

// ListMine returns the actor's own bookings.
func (s *BookingService) ListMine(ctx context.Context, actor Actor, f model.BookingFilter) (Page[model.BookingView], error) {
    if actor.UserID == 0 {
        return Page[model.BookingView]{}, Forbidden(CodeForbidden, "authentication required")
    }
    f.CustomerID = actor.UserID
    return s.list(ctx, f)
}

// List returns bookings matching f.  Administrators only.
func (s *BookingService) List(ctx context.Context, actor Actor, f model.BookingFilter) (Page[model.BookingView], error) {
    if err := requireAdmin(actor); err != nil {
        return Page[model.BookingView]{}, err
    }
    return s.list(ctx, f)
}

func (s *BookingService) list(ctx context.Context, f model.BookingFilter) (Page[model.BookingView], error) {
    for _, st := range f.States {
        if !st.Valid() {
            return Page[model.BookingView]{}, Validation(CodeInvalidInput, "unknown state "+string(st))
        }
    }
    f.Page, f.PageSize = s.paging.normalize(f.Page, f.PageSize)
    items, total, err := s.bookings.List(ctx, f)
    if err != nil {
        return Page[model.BookingView]{}, Internal(err)
    }
    return Page[model.BookingView]{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}
