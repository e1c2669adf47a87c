package service_test

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "pgregory.net/rapid"

    "github.com/iliyamo/bookable/internal/clock"
    "github.com/iliyamo/bookable/internal/model"
    "github.com/iliyamo/bookable/internal/queue"
    "github.com/iliyamo/bookable/internal/sequence"
    "github.com/iliyamo/bookable/internal/service"
    "github.com/iliyamo/bookable/internal/testutil"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type bookingEnv struct {
    store  *testutil.Store
    events *testutil.Events
    clock  *clock.Manual
    svc    *service.BookingService
    admin  service.Actor
}

func newBookingEnv(t *testing.T) *bookingEnv {
    t.Helper()
    st := testutil.NewStore()
    ev := &testutil.Events{}
    clk := clock.NewFixed(t0)
    refs := sequence.NewReferencer(sequence.NewMemory(), "BOOK", 4)
    return &bookingEnv{
        store:  st,
        events: ev,
        clock:  clk,
        svc:    service.NewBookingService(st, st.Items, st.Bookings, refs, ev, clk),
        admin:  service.Actor{UserID: 999, Role: model.RoleAdmin},
    }
}

func customer(id uint64) service.Actor {
    return service.Actor{UserID: id, Role: model.RoleCustomer}
}

func requireKind(t *testing.T, err error, kind service.Kind, code string) {
    t.Helper()
    require.Error(t, err)
    se := service.AsError(err)
    require.NotNil(t, se, "expected a service error, got %v", err)
    assert.Equal(t, kind, se.Kind)
    if code != "" {
        assert.Equal(t, code, se.Code)
    }
}

func TestCreateStoresDraftWithReferenceAndAmount(t *testing.T) {
    env := newBookingEnv(t)
    item := env.store.SeedItem("Go workshop", 10, "50")

    b, err := env.svc.Create(context.Background(), customer(1), service.CreateBookingInput{ItemID: item.ID, Quantity: 3})
    require.NoError(t, err)

    assert.Equal(t, model.BookingDraft, b.State)
    assert.Equal(t, "BOOK/2026/0001", b.Reference)
    assert.Equal(t, uint64(1), b.CustomerID)
    assert.True(t, b.UnitPrice.Equal(decimal.NewFromInt(50)))
    assert.True(t, b.Amount.Equal(decimal.NewFromInt(150)))
    assert.Equal(t, []queue.EventType{queue.EventCreated}, env.events.Types())
}

func TestCustomerCannotBookForSomeoneElse(t *testing.T) {
    env := newBookingEnv(t)
    item := env.store.SeedItem("Talk", 0, "0")

    b, err := env.svc.Create(context.Background(), customer(1), service.CreateBookingInput{CustomerID: 2, ItemID: item.ID, Quantity: 1})
    require.NoError(t, err)
    assert.Equal(t, uint64(1), b.CustomerID)

    b, err = env.svc.Create(context.Background(), env.admin, service.CreateBookingInput{CustomerID: 2, ItemID: item.ID, Quantity: 1})
    require.NoError(t, err)
    assert.Equal(t, uint64(2), b.CustomerID)
}

func TestCreateValidation(t *testing.T) {
    env := newBookingEnv(t)
    item := env.store.SeedItem("Talk", 5, "10")
    hidden := env.store.SeedItem("Hidden", 5, "10")
    _, err := service.NewCatalogService(env.store, env.store.Categories, env.store.Tags, env.store.Items, env.store.Bookings, env.clock).
        SetItemPublished(context.Background(), env.admin, hidden.ID, false)
    require.NoError(t, err)

    yesterday := t0.Add(-24 * time.Hour)
    laterToday := t0.Add(-2 * time.Hour)

    cases := []struct {
        name string
        in   service.CreateBookingInput
        kind service.Kind
        code string
    }{
        {"zero quantity", service.CreateBookingInput{ItemID: item.ID}, service.KindValidation, service.CodeInvalidQuantity},
        {"past date", service.CreateBookingInput{ItemID: item.ID, Quantity: 1, BookingDate: &yesterday}, service.KindValidation, service.CodePastBookingDate},
        {"unknown item", service.CreateBookingInput{ItemID: 4242, Quantity: 1}, service.KindNotFound, ""},
        {"unpublished item", service.CreateBookingInput{ItemID: hidden.ID, Quantity: 1}, service.KindValidation, service.CodeItemUnavailable},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            _, err := env.svc.Create(context.Background(), customer(1), tc.in)
            requireKind(t, err, tc.kind, tc.code)
        })
    }

    // earlier the same day is still today
    _, err = env.svc.Create(context.Background(), customer(1), service.CreateBookingInput{ItemID: item.ID, Quantity: 1, BookingDate: &laterToday})
    require.NoError(t, err)
}

func TestDuplicateOpenBookingRejected(t *testing.T) {
    env := newBookingEnv(t)
    item := env.store.SeedItem("Talk", 5, "10")
    ctx := context.Background()

    first, err := env.svc.Create(ctx, customer(1), service.CreateBookingInput{ItemID: item.ID, Quantity: 1})
    require.NoError(t, err)
    _, err = env.svc.Create(ctx, customer(1), service.CreateBookingInput{ItemID: item.ID, Quantity: 2})
    requireKind(t, err, service.KindValidation, service.CodeDuplicateBooking)

    // once cancelled the customer may book again
    _, err = env.svc.Cancel(ctx, customer(1), first.ID)
    require.NoError(t, err)
    _, err = env.svc.Create(ctx, customer(1), service.CreateBookingInput{ItemID: item.ID, Quantity: 2})
    require.NoError(t, err)
}

func TestWaitlistAndPromotionOnCancel(t *testing.T) {
    env := newBookingEnv(t)
    item := env.store.SeedItem("Small room", 1, "20")
    ctx := context.Background()

    a, err := env.svc.Book(ctx, customer(1), service.CreateBookingInput{ItemID: item.ID, Quantity: 1})
    require.NoError(t, err)
    assert.Equal(t, model.BookingConfirmed, a.State)

    env.clock.Advance(time.Minute)
    b, err := env.svc.Book(ctx, customer(2), service.CreateBookingInput{ItemID: item.ID, Quantity: 1})
    require.NoError(t, err)
    assert.Equal(t, model.BookingWaitlisted, b.State)

    view, err := env.svc.Get(ctx, customer(2), b.ID)
    require.NoError(t, err)
    assert.Equal(t, 1, view.WaitlistPosition)
    assert.Equal(t, "Small room", view.ItemName)

    res, err := env.svc.Cancel(ctx, customer(1), a.ID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingCancelled, res.Booking.State)
    require.Len(t, res.Promoted, 1)
    assert.Equal(t, b.ID, res.Promoted[0].ID)
    assert.Equal(t, model.BookingConfirmed, env.store.Booking(b.ID).State)

    assert.Equal(t, []queue.EventType{
        queue.EventCreated, queue.EventConfirmed,
        queue.EventCreated, queue.EventWaitlisted,
        queue.EventCancelled, queue.EventPromoted,
    }, env.events.Types())
}

func TestPromotionOnlyConsidersHeadOfWaitlist(t *testing.T) {
    env := newBookingEnv(t)
    item := env.store.SeedItem("Room", 3, "10")
    ctx := context.Background()

    holder, err := env.svc.Book(ctx, customer(1), service.CreateBookingInput{ItemID: item.ID, Quantity: 2})
    require.NoError(t, err)
    filler, err := env.svc.Book(ctx, customer(2), service.CreateBookingInput{ItemID: item.ID, Quantity: 1})
    require.NoError(t, err)
    require.Equal(t, model.BookingConfirmed, filler.State)

    env.clock.Advance(time.Second)
    big, err := env.svc.Book(ctx, customer(3), service.CreateBookingInput{ItemID: item.ID, Quantity: 3})
    require.NoError(t, err)
    env.clock.Advance(time.Second)
    small, err := env.svc.Book(ctx, customer(4), service.CreateBookingInput{ItemID: item.ID, Quantity: 1})
    require.NoError(t, err)
    require.Equal(t, model.BookingWaitlisted, big.State)
    require.Equal(t, model.BookingWaitlisted, small.State)

    res, err := env.svc.Cancel(ctx, customer(1), holder.ID)
    require.NoError(t, err)
    assert.Empty(t, res.Promoted)
    assert.Equal(t, model.BookingWaitlisted, env.store.Booking(small.ID).State)

    res, err = env.svc.Cancel(ctx, customer(2), filler.ID)
    require.NoError(t, err)
    require.Len(t, res.Promoted, 1)
    assert.Equal(t, big.ID, res.Promoted[0].ID)
}

func TestCancelPromotesExactlyOne(t *testing.T) {
    env := newBookingEnv(t)
    item := env.store.SeedItem("Room", 2, "10")
    ctx := context.Background()

    holder, err := env.svc.Book(ctx, customer(1), service.CreateBookingInput{ItemID: item.ID, Quantity: 2})
    require.NoError(t, err)
    var waiting []model.Booking
    for i := uint64(2); i <= 4; i++ {
        env.clock.Advance(time.Second)
        w, err := env.svc.Book(ctx, customer(i), service.CreateBookingInput{ItemID: item.ID, Quantity: 1})
        require.NoError(t, err)
        require.Equal(t, model.BookingWaitlisted, w.State)
        waiting = append(waiting, w)
    }

    res, err := env.svc.Cancel(ctx, customer(1), holder.ID)
    require.NoError(t, err)
    require.Len(t, res.Promoted, 1)
    assert.Equal(t, waiting[0].ID, res.Promoted[0].ID)
    assert.Equal(t, model.BookingWaitlisted, env.store.Booking(waiting[1].ID).State)

    view, err := env.svc.Get(ctx, customer(4), waiting[2].ID)
    require.NoError(t, err)
    assert.Equal(t, 2, view.WaitlistPosition)
}

func TestWaitlistedQuantityCannotOutgrowCapacity(t *testing.T) {
    env := newBookingEnv(t)
    item := env.store.SeedItem("Room", 2, "10")
    ctx := context.Background()

    holder, err := env.svc.Book(ctx, customer(1), service.CreateBookingInput{ItemID: item.ID, Quantity: 2})
    require.NoError(t, err)
    env.clock.Advance(time.Second)
    second, err := env.svc.Book(ctx, customer(2), service.CreateBookingInput{ItemID: item.ID, Quantity: 1})
    require.NoError(t, err)
    env.clock.Advance(time.Second)
    third, err := env.svc.Book(ctx, customer(3), service.CreateBookingInput{ItemID: item.ID, Quantity: 1})
    require.NoError(t, err)
    require.Equal(t, model.BookingWaitlisted, second.State)
    require.Equal(t, model.BookingWaitlisted, third.State)

    huge := 50
    _, err = env.svc.Update(ctx, customer(2), second.ID, service.UpdateBookingInput{Quantity: &huge})
    requireKind(t, err, service.KindConflict, service.CodeExceedsCapacity)
    assert.Equal(t, 1, env.store.Booking(second.ID).Quantity)

    // Growing within capacity is still allowed.
    two := 2
    got, err := env.svc.Update(ctx, customer(3), third.ID, service.UpdateBookingInput{Quantity: &two})
    require.NoError(t, err)
    assert.Equal(t, "20", got.Amount.String())

    res, err := env.svc.Cancel(ctx, customer(1), holder.ID)
    require.NoError(t, err)
    require.Len(t, res.Promoted, 1)
    assert.Equal(t, second.ID, res.Promoted[0].ID)
    assert.Equal(t, model.BookingConfirmed, env.store.Booking(second.ID).State)
}

func TestCancellingDraftPromotesNobody(t *testing.T) {
    env := newBookingEnv(t)
    item := env.store.SeedItem("Room", 1, "10")
    ctx := context.Background()

    _, err := env.svc.Book(ctx, customer(1), service.CreateBookingInput{ItemID: item.ID, Quantity: 1})
    require.NoError(t, err)
    waiting, err := env.svc.Book(ctx, customer(2), service.CreateBookingInput{ItemID: item.ID, Quantity: 1})
    require.NoError(t, err)
    draft, err := env.svc.Create(ctx, customer(3), service.CreateBookingInput{ItemID: item.ID, Quantity: 1})
    require.NoError(t, err)

    res, err := env.svc.Cancel(ctx, customer(3), draft.ID)
    require.NoError(t, err)
    assert.Empty(t, res.Promoted)
    assert.Equal(t, model.BookingWaitlisted, env.store.Booking(waiting.ID).State)
}

func TestConfirmRejectsQuantityAboveCapacity(t *testing.T) {
    env := newBookingEnv(t)
    item := env.store.SeedItem("Room", 2, "10")
    ctx := context.Background()

    d, err := env.svc.Create(ctx, customer(1), service.CreateBookingInput{ItemID: item.ID, Quantity: 5})
    require.NoError(t, err)
    _, err = env.svc.Confirm(ctx, customer(1), d.ID)
    requireKind(t, err, service.KindConflict, service.CodeExceedsCapacity)
    assert.Equal(t, model.BookingDraft, env.store.Booking(d.ID).State)
}

func TestBookRollsBackOnFailure(t *testing.T) {
    env := newBookingEnv(t)
    item := env.store.SeedItem("Room", 2, "10")
    ctx := context.Background()

    _, err := env.svc.Book(ctx, customer(1), service.CreateBookingInput{ItemID: item.ID, Quantity: 5})
    requireKind(t, err, service.KindConflict, service.CodeExceedsCapacity)

    n, err := env.store.Bookings.CountForItem(ctx, item.ID)
    require.NoError(t, err)
    assert.Zero(t, n)
    assert.Empty(t, env.events.Types())
    assert.Equal(t, 1, env.store.Rollbacks)
}

func TestUnlimitedCapacityNeverWaitlists(t *testing.T) {
    env := newBookingEnv(t)
    item := env.store.SeedItem("Webinar", 0, "0")
    ctx := context.Background()

    for i := uint64(1); i <= 5; i++ {
        b, err := env.svc.Book(ctx, customer(i), service.CreateBookingInput{ItemID: item.ID, Quantity: 100})
        require.NoError(t, err)
        assert.Equal(t, model.BookingConfirmed, b.State)
    }
}

func TestAmountFrozenAfterPriceChange(t *testing.T) {
    env := newBookingEnv(t)
    item := env.store.SeedItem("Course", 10, "100")
    ctx := context.Background()
    catalog := service.NewCatalogService(env.store, env.store.Categories, env.store.Tags, env.store.Items, env.store.Bookings, env.clock)

    b, err := env.svc.Create(ctx, customer(1), service.CreateBookingInput{ItemID: item.ID, Quantity: 2})
    require.NoError(t, err)

    price := decimal.NewFromInt(300)
    _, err = catalog.UpdateItem(ctx, env.admin, item.ID, service.ItemInput{Price: &price})
    require.NoError(t, err)

    stored := env.store.Booking(b.ID)
    assert.True(t, stored.Amount.Equal(decimal.NewFromInt(200)))

    qty := 3
    updated, err := env.svc.Update(ctx, customer(1), b.ID, service.UpdateBookingInput{Quantity: &qty})
    require.NoError(t, err)
    assert.True(t, updated.Amount.Equal(decimal.NewFromInt(300)), "recomputed from the booking's own unit price")
}

func TestUpdateAllowList(t *testing.T) {
    env := newBookingEnv(t)
    item := env.store.SeedItem("Course", 10, "100")
    ctx := context.Background()
    me := customer(1)

    b, err := env.svc.Book(ctx, me, service.CreateBookingInput{ItemID: item.ID, Quantity: 1})
    require.NoError(t, err)

    qty := 2
    _, err = env.svc.Update(ctx, me, b.ID, service.UpdateBookingInput{Quantity: &qty})
    requireKind(t, err, service.KindPermissionDenied, service.CodeBookingFinalized)

    bad := 6
    _, err = env.svc.Update(ctx, me, b.ID, service.UpdateBookingInput{ReviewRating: &bad})
    requireKind(t, err, service.KindValidation, service.CodeInvalidRating)

    rating, comment := 5, "  great  "
    got, err := env.svc.Update(ctx, me, b.ID, service.UpdateBookingInput{ReviewRating: &rating, ReviewComment: &comment})
    require.NoError(t, err)
    require.NotNil(t, got.ReviewRating)
    assert.Equal(t, 5, *got.ReviewRating)
    assert.Equal(t, "great", got.ReviewComment)

    _, err = env.svc.Cancel(ctx, me, b.ID)
    require.NoError(t, err)
    _, err = env.svc.Update(ctx, me, b.ID, service.UpdateBookingInput{ReviewComment: &comment})
    requireKind(t, err, service.KindPermissionDenied, service.CodeBookingFinalized)
}

func TestReviewRejectedOnDraft(t *testing.T) {
    env := newBookingEnv(t)
    item := env.store.SeedItem("Course", 10, "100")
    ctx := context.Background()

    b, err := env.svc.Create(ctx, customer(1), service.CreateBookingInput{ItemID: item.ID, Quantity: 1})
    require.NoError(t, err)
    rating := 4
    _, err = env.svc.Update(ctx, customer(1), b.ID, service.UpdateBookingInput{ReviewRating: &rating})
    requireKind(t, err, service.KindValidation, service.CodeInvalidInput)
}

func TestDeleteRules(t *testing.T) {
    env := newBookingEnv(t)
    item := env.store.SeedItem("Course", 10, "100")
    ctx := context.Background()

    confirmed, err := env.svc.Book(ctx, customer(1), service.CreateBookingInput{ItemID: item.ID, Quantity: 1})
    require.NoError(t, err)
    err = env.svc.Delete(ctx, customer(1), confirmed.ID)
    requireKind(t, err, service.KindPermissionDenied, service.CodeBookingFinalized)

    draft, err := env.svc.Create(ctx, customer(2), service.CreateBookingInput{ItemID: item.ID, Quantity: 1})
    require.NoError(t, err)
    require.NoError(t, env.svc.Delete(ctx, customer(2), draft.ID))
    _, err = env.svc.Get(ctx, customer(2), draft.ID)
    requireKind(t, err, service.KindNotFound, "")

    _, err = env.svc.Cancel(ctx, customer(1), confirmed.ID)
    require.NoError(t, err)
    require.NoError(t, env.svc.Delete(ctx, customer(1), confirmed.ID))
}

func TestOwnershipEnforced(t *testing.T) {
    env := newBookingEnv(t)
    item := env.store.SeedItem("Course", 10, "100")
    ctx := context.Background()

    b, err := env.svc.Create(ctx, customer(1), service.CreateBookingInput{ItemID: item.ID, Quantity: 1})
    require.NoError(t, err)

    _, err = env.svc.Get(ctx, customer(2), b.ID)
    requireKind(t, err, service.KindPermissionDenied, service.CodeForbidden)
    _, err = env.svc.Cancel(ctx, customer(2), b.ID)
    requireKind(t, err, service.KindPermissionDenied, service.CodeForbidden)

    _, err = env.svc.Get(ctx, env.admin, b.ID)
    require.NoError(t, err)
}

func TestDoneAndPromoteAreAdminOnly(t *testing.T) {
    env := newBookingEnv(t)
    item := env.store.SeedItem("Room", 1, "10")
    ctx := context.Background()

    a, err := env.svc.Book(ctx, customer(1), service.CreateBookingInput{ItemID: item.ID, Quantity: 1})
    require.NoError(t, err)
    w, err := env.svc.Book(ctx, customer(2), service.CreateBookingInput{ItemID: item.ID, Quantity: 1})
    require.NoError(t, err)
    require.Equal(t, model.BookingWaitlisted, w.State)

    _, err = env.svc.Done(ctx, customer(1), a.ID)
    requireKind(t, err, service.KindPermissionDenied, service.CodeForbidden)
    _, err = env.svc.Promote(ctx, customer(2), w.ID)
    requireKind(t, err, service.KindPermissionDenied, service.CodeForbidden)

    res, err := env.svc.Promote(ctx, env.admin, w.ID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingConfirmed, res.Booking.State)
    assert.True(t, res.Overbooked)

    done, err := env.svc.Done(ctx, env.admin, a.ID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingDone, done.State)

    _, err = env.svc.Cancel(ctx, env.admin, a.ID)
    requireKind(t, err, service.KindValidation, service.CodeInvalidTransition)

    last := env.events.All()
    require.NotEmpty(t, last)
    assert.Equal(t, queue.EventDone, last[len(last)-1].Type)
}

func TestPromoteOnlyFromWaitlist(t *testing.T) {
    env := newBookingEnv(t)
    item := env.store.SeedItem("Room", 2, "10")
    ctx := context.Background()

    w, err := env.svc.Create(ctx, customer(1), service.CreateBookingInput{ItemID: item.ID, Quantity: 2})
    require.NoError(t, err)
    _, err = env.svc.Book(ctx, customer(2), service.CreateBookingInput{ItemID: item.ID, Quantity: 1})
    require.NoError(t, err)
    w, err = env.svc.Confirm(ctx, customer(1), w.ID)
    require.NoError(t, err)
    require.Equal(t, model.BookingWaitlisted, w.State)

    res, err := env.svc.Promote(ctx, env.admin, w.ID)
    require.NoError(t, err)
    assert.True(t, res.Overbooked)

    stats, err := env.store.Items.Stats(ctx, item.ID)
    require.NoError(t, err)
    assert.Equal(t, 3, stats.ReservedSeats)

    _, err = env.svc.Promote(ctx, env.admin, w.ID)
    requireKind(t, err, service.KindValidation, service.CodeInvalidTransition)
}

func TestDuplicateCopiesIntoFreshDraft(t *testing.T) {
    env := newBookingEnv(t)
    item := env.store.SeedItem("Course", 10, "100")
    ctx := context.Background()

    b, err := env.svc.Create(ctx, customer(1), service.CreateBookingInput{ItemID: item.ID, Quantity: 2, Notes: "window seat"})
    require.NoError(t, err)

    _, err = env.svc.Duplicate(ctx, customer(1), b.ID)
    requireKind(t, err, service.KindValidation, service.CodeDuplicateBooking)

    _, err = env.svc.Cancel(ctx, customer(1), b.ID)
    require.NoError(t, err)
    dup, err := env.svc.Duplicate(ctx, customer(1), b.ID)
    require.NoError(t, err)
    assert.Equal(t, model.BookingDraft, dup.State)
    assert.NotEqual(t, b.Reference, dup.Reference)
    assert.Equal(t, 2, dup.Quantity)
    assert.Equal(t, "window seat", dup.Notes)
}

func TestListing(t *testing.T) {
    env := newBookingEnv(t)
    first := env.store.SeedItem("One", 10, "10")
    second := env.store.SeedItem("Two", 10, "10")
    ctx := context.Background()

    for _, it := range []model.CatalogItem{first, second} {
        _, err := env.svc.Book(ctx, customer(1), service.CreateBookingInput{ItemID: it.ID, Quantity: 1})
        require.NoError(t, err)
        env.clock.Advance(time.Minute)
    }
    _, err := env.svc.Create(ctx, customer(2), service.CreateBookingInput{ItemID: first.ID, Quantity: 1})
    require.NoError(t, err)

    mine, err := env.svc.ListMine(ctx, customer(1), model.BookingFilter{})
    require.NoError(t, err)
    assert.Equal(t, 2, mine.Total)
    assert.Equal(t, 20, mine.PageSize)
    assert.Equal(t, "Two", mine.Items[0].ItemName, "newest first")

    _, err = env.svc.List(ctx, customer(1), model.BookingFilter{})
    requireKind(t, err, service.KindPermissionDenied, "")

    drafts, err := env.svc.List(ctx, env.admin, model.BookingFilter{States: []model.BookingState{model.BookingDraft}, PageSize: 500})
    require.NoError(t, err)
    assert.Equal(t, 1, drafts.Total)
    assert.Equal(t, 100, drafts.PageSize)

    _, err = env.svc.List(ctx, env.admin, model.BookingFilter{States: []model.BookingState{"lost"}})
    requireKind(t, err, service.KindValidation, service.CodeInvalidInput)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
    env := newBookingEnv(t)
    env.events.Err = errors.New("broker down")
    item := env.store.SeedItem("Course", 10, "100")

    _, err := env.svc.Book(context.Background(), customer(1), service.CreateBookingInput{ItemID: item.ID, Quantity: 1})
    require.NoError(t, err)
    assert.Len(t, env.events.Types(), 2)
}

func TestReferencesUniqueUnderConcurrentCreation(t *testing.T) {
    env := newBookingEnv(t)
    item := env.store.SeedItem("Festival", 0, "5")

    const n = 50
    var (
        wg   sync.WaitGroup
        mu   sync.Mutex
        refs = map[string]bool{}
    )
    for i := 1; i <= n; i++ {
        wg.Add(1)
        go func(id uint64) {
            defer wg.Done()
            b, err := env.svc.Book(context.Background(), customer(id), service.CreateBookingInput{ItemID: item.ID, Quantity: 1})
            if !assert.NoError(t, err) {
                return
            }
            mu.Lock()
            refs[b.Reference] = true
            mu.Unlock()
        }(uint64(i))
    }
    wg.Wait()
    assert.Len(t, refs, n)
}

// Random sequences of operations never push reserved seats past capacity
// without a manual promotion.
func TestReservedSeatsNeverExceedCapacity(t *testing.T) {
    rapid.Check(t, func(rt *rapid.T) {
        env := newBookingEnv(t)
        capacity := rapid.IntRange(1, 6).Draw(rt, "capacity")
        item := env.store.SeedItem("Room", capacity, "10")
        ctx := context.Background()
        var ids []uint64

        steps := rapid.IntRange(1, 30).Draw(rt, "steps")
        for i := 0; i < steps; i++ {
            if len(ids) == 0 || rapid.Bool().Draw(rt, "book") {
                cust := rapid.Uint64Range(1, 8).Draw(rt, "customer")
                qty := rapid.IntRange(1, capacity).Draw(rt, "qty")
                b, err := env.svc.Book(ctx, customer(cust), service.CreateBookingInput{ItemID: item.ID, Quantity: qty})
                if err == nil {
                    ids = append(ids, b.ID)
                }
            } else {
                id := rapid.SampledFrom(ids).Draw(rt, "cancel")
                _, _ = env.svc.Cancel(ctx, env.admin, id)
            }
            env.clock.Advance(time.Second)

            stats, err := env.store.Items.Stats(ctx, item.ID)
            require.NoError(rt, err)
            if stats.ReservedSeats > capacity {
                rt.Fatalf("reserved %d seats of %d", stats.ReservedSeats, capacity)
            }
        }
    })
}
