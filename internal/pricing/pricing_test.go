package pricing

import (
    "testing"
    "time"

    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "pgregory.net/rapid"

    "github.com/iliyamo/bookable/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptrDec(s string) *decimal.Decimal {
    d := dec(s)
    return &d
}

func ptrTime(t time.Time) *time.Time { return &t }

var day = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func TestDiscountExample(t *testing.T) {
    item := &model.CatalogItem{Price: dec("100"), DiscountPercentage: dec("20")}

    assert.True(t, UnitPrice(item, day).Equal(dec("80")))
    assert.True(t, Subtotal(item, day, 3).Equal(dec("240")))
}

func TestEarlyBird(t *testing.T) {
    deadline := day.Add(48 * time.Hour)
    item := &model.CatalogItem{
        Price:             dec("120"),
        EarlyBirdPrice:    ptrDec("90"),
        EarlyBirdDeadline: &deadline,
    }

    t.Run("before deadline", func(t *testing.T) {
        q := NewQuote(item, day, 2)
        assert.True(t, q.EarlyBirdApplied)
        assert.True(t, q.UnitPrice.Equal(dec("90")))
        assert.True(t, q.Subtotal.Equal(dec("180")))
        assert.True(t, q.BasePrice.Equal(dec("120")))
    })

    t.Run("on deadline", func(t *testing.T) {
        assert.True(t, UnitPrice(item, deadline).Equal(dec("90")))
    })

    t.Run("after deadline", func(t *testing.T) {
        q := NewQuote(item, deadline.Add(time.Second), 1)
        assert.False(t, q.EarlyBirdApplied)
        assert.True(t, q.UnitPrice.Equal(dec("120")))
    })

    t.Run("zero early bird price is ignored", func(t *testing.T) {
        zero := *item
        zero.EarlyBirdPrice = ptrDec("0")
        assert.True(t, UnitPrice(&zero, day).Equal(dec("120")))
    })

    t.Run("discount stacks on early bird", func(t *testing.T) {
        disc := *item
        disc.DiscountPercentage = dec("10")
        assert.True(t, UnitPrice(&disc, day).Equal(dec("81")))
    })
}

func TestRounding(t *testing.T) {
    item := &model.CatalogItem{Price: dec("9.99"), DiscountPercentage: dec("33")}
    assert.Equal(t, "6.69", UnitPrice(item, day).StringFixed(2))
}

func TestValidateItem(t *testing.T) {
    start := day.Add(72 * time.Hour)
    valid := func() *model.CatalogItem {
        return &model.CatalogItem{
            Name:               "Workshop",
            Price:              dec("100"),
            Capacity:           10,
            DiscountPercentage: dec("0"),
            StartAt:            ptrTime(start),
            EndAt:              ptrTime(start.Add(2 * time.Hour)),
            EarlyBirdPrice:     ptrDec("80"),
            EarlyBirdDeadline:  ptrTime(day),
        }
    }
    require.NoError(t, ValidateItem(valid()))

    cases := []struct {
        name   string
        mutate func(*model.CatalogItem)
        want   error
    }{
        {"negative price", func(i *model.CatalogItem) { i.Price = dec("-1") }, ErrNegativePrice},
        {"negative capacity", func(i *model.CatalogItem) { i.Capacity = -1 }, ErrNegativeCapacity},
        {"discount above 100", func(i *model.CatalogItem) { i.DiscountPercentage = dec("100.5") }, ErrDiscountRange},
        {"negative discount", func(i *model.CatalogItem) { i.DiscountPercentage = dec("-5") }, ErrDiscountRange},
        {"early bird equal to price", func(i *model.CatalogItem) { i.EarlyBirdPrice = ptrDec("100") }, ErrEarlyBirdPrice},
        {"early bird without deadline", func(i *model.CatalogItem) { i.EarlyBirdDeadline = nil }, ErrEarlyBirdNoDate},
        {"deadline after start", func(i *model.CatalogItem) { i.EarlyBirdDeadline = ptrTime(start.Add(time.Hour)) }, ErrEarlyBirdDeadline},
        {"end before start", func(i *model.CatalogItem) { i.EndAt = ptrTime(start.Add(-time.Hour)) }, ErrEndBeforeStart},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            item := valid()
            tc.mutate(item)
            assert.ErrorIs(t, ValidateItem(item), tc.want)
        })
    }
}

func TestSubtotalProperties(t *testing.T) {
    rapid.Check(t, func(t *rapid.T) {
        cents := rapid.Int64Range(0, 10_000_00).Draw(t, "cents")
        discount := rapid.Int64Range(0, 100).Draw(t, "discount")
        qty := rapid.IntRange(1, 500).Draw(t, "qty")

        item := &model.CatalogItem{
            Price:              decimal.New(cents, -2),
            DiscountPercentage: decimal.NewFromInt(discount),
        }
        unit := UnitPrice(item, day)
        sub := Subtotal(item, day, qty)

        if unit.IsNegative() || unit.GreaterThan(item.Price) {
            t.Fatalf("unit %s outside [0, %s]", unit, item.Price)
        }
        if !sub.Equal(unit.Mul(decimal.NewFromInt(int64(qty)))) {
            t.Fatalf("subtotal %s != unit %s * %d", sub, unit, qty)
        }
        if discount == 100 && !unit.IsZero() {
            t.Fatalf("full discount left unit price %s", unit)
        }
    })
}
