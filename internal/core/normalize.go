package core

import "strings"

// externalRecipientPrefix namespaces free-text recipients so they never
// collide with profile ids.
const externalRecipientPrefix = "external:"

// Normalize merges claims and external gifts into one list of GiftRecord.
// Claims come first; the input order is kept within each source.
func Normalize(claims []ClaimRow, gifts []ExternalGiftRow) []GiftRecord {
	out := make([]GiftRecord, 0, len(claims)+len(gifts))
	for _, c := range claims {
		out = append(out, NormalizeClaim(c))
	}
	for _, g := range gifts {
		out = append(out, NormalizeExternalGift(g))
	}
	return out
}

// NormalizeClaim turns a reservation into a GiftRecord. The recipient is the
// owner of the list, not the claimant. Missing item or list rows fall back to
// the claim snapshot, then to sentinel labels.
func NormalizeClaim(c ClaimRow) GiftRecord {
	snap := c.Snapshot
	rec := GiftRecord{
		ID:     c.ID,
		Date:   c.ReservedAt,
		Source: SourceInApp,
	}

	var (
		list          *WishlistRow
		listTheme     *Theme
		originalTheme *Theme
		price         = ValueOr(snap.Price, Money{})
		shipping      = ValueOr(snap.ShippingCost, Money{})
		title         = snap.Title
	)
	if c.Item != nil {
		title = c.Item.Title
		price = c.Item.Price
		shipping = ValueOr(c.Item.ShippingCost, Money{})
		originalTheme = c.Item.OriginalTheme
		list = c.Item.Wishlist
	}
	if list != nil {
		listTheme = list.Theme
	}

	rec.Title = firstNonEmpty(title, UnknownLabel)
	rec.AnnouncedPrice = price.NonNegative()
	rec.ShippingCost = shipping.NonNegative()
	rec.Theme = ResolveClaimTheme(listTheme, originalTheme, snap.Theme)

	if list != nil {
		rec.ListName = firstNonEmpty(list.Name, snap.ListName, DeletedListLabel)
		rec.ListSlug = firstNonEmpty(list.Slug, snap.ListSlug)
		if list.Owner != nil {
			rec.RecipientID = list.Owner.ID
			rec.RecipientName = list.Owner.DisplayName
		}
	} else {
		rec.ListName = firstNonEmpty(snap.ListName, DeletedListLabel)
		rec.ListSlug = snap.ListSlug
	}
	rec.RecipientID = firstNonEmpty(rec.RecipientID, snap.OwnerID, UnknownLabel)
	rec.RecipientName = firstNonEmpty(rec.RecipientName, snap.OwnerName, UnknownLabel)

	if c.PaidAmount != nil {
		paid := c.PaidAmount.NonNegative()
		rec.PaidAmount = &paid
		rec.TotalPrice = paid
	} else {
		rec.TotalPrice = rec.AnnouncedPrice.Add(rec.ShippingCost)
	}
	return rec
}

// NormalizeExternalGift turns a manually logged purchase into a GiftRecord.
// The paid amount is the full out-of-pocket cost, so it doubles as the
// announced price and there is no shipping.
func NormalizeExternalGift(g ExternalGiftRow) GiftRecord {
	paid := g.PaidAmount.NonNegative()
	theme := g.Theme
	if !theme.IsValid() {
		theme = ThemeOther
	}
	rec := GiftRecord{
		ID:             g.ID,
		Title:          firstNonEmpty(g.Title, UnknownLabel),
		AnnouncedPrice: paid,
		PaidAmount:     &paid,
		TotalPrice:     paid,
		Date:           g.PurchaseDate,
		Source:         SourceExternal,
		Theme:          theme,
	}
	if g.Recipient != nil && g.Recipient.ID != "" {
		rec.RecipientID = g.Recipient.ID
		rec.RecipientName = firstNonEmpty(g.Recipient.DisplayName, g.RecipientName, UnknownLabel)
		return rec
	}
	name := strings.TrimSpace(g.RecipientName)
	if name == "" {
		rec.RecipientID = UnknownLabel
		rec.RecipientName = UnknownLabel
		return rec
	}
	rec.RecipientID = ExternalRecipientID(name)
	rec.RecipientName = name
	return rec
}

// ExternalRecipientID is the grouping key of a free-text recipient.
func ExternalRecipientID(name string) string {
	return externalRecipientPrefix + strings.ToLower(strings.TrimSpace(name))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
