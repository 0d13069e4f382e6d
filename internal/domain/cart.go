package domain

import "time"

// MenuItemRef is the snapshot of a menu item captured when a line is added to
// the cart. It is never refreshed afterwards: a price change on the backend
// mid-session does not affect lines already in the cart.
type MenuItemRef struct {
	ID        int64   `bson:"id" json:"id"`
	Name      string  `bson:"name" json:"name"`
	UnitPrice float64 `bson:"unit_price" json:"unit_price"`
	ImageURL  string  `bson:"image_url,omitempty" json:"image_url,omitempty"`
}

// CartLine is one (item, quantity, notes) entry. Lines are identified by the
// pair (Item.ID, Notes): the same item with different notes makes two lines.
type CartLine struct {
	Item     MenuItemRef `bson:"item" json:"item"`
	Quantity int         `bson:"quantity" json:"quantity"`
	Notes    string      `bson:"notes" json:"notes"`
	AddedAt  time.Time   `bson:"added_at" json:"added_at"`
}

func (l CartLine) Subtotal() float64 {
	return l.Item.UnitPrice * float64(l.Quantity)
}

type Cart struct {
	ID         string     `bson:"_id,omitempty" json:"-"`
	CustomerID int64      `bson:"customer_id" json:"customer_id"`
	Lines      []CartLine `bson:"lines" json:"lines"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updated_at"`
}

// AddLine merges into the existing line whose item id and notes both match,
// summing quantities; otherwise it appends. Insertion order is preserved for
// display only.
func (c *Cart) AddLine(item MenuItemRef, quantity int, notes string) {
	for i := range c.Lines {
		if c.Lines[i].Item.ID == item.ID && c.Lines[i].Notes == notes {
			c.Lines[i].Quantity += quantity
			return
		}
	}
	c.Lines = append(c.Lines, CartLine{
		Item:     item,
		Quantity: quantity,
		Notes:    notes,
		AddedAt:  time.Now(),
	})
}

// UpdateQuantity adjusts the first line matching itemID by delta and reports
// whether a line matched. Matching is by item id only; when the same item
// appears twice with different notes the first line wins. A resulting
// quantity of zero or less drops the line, a quantity below one is never
// stored.
func (c *Cart) UpdateQuantity(itemID int64, delta int) bool {
	for i := range c.Lines {
		if c.Lines[i].Item.ID != itemID {
			continue
		}
		q := c.Lines[i].Quantity + delta
		if q <= 0 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		} else {
			c.Lines[i].Quantity = q
		}
		return true
	}
	return false
}

// RemoveLine removes every line matching itemID regardless of notes and
// reports whether any line was removed.
func (c *Cart) RemoveLine(itemID int64) bool {
	kept := make([]CartLine, 0, len(c.Lines))
	removed := false
	for _, l := range c.Lines {
		if l.Item.ID == itemID {
			removed = true
			continue
		}
		kept = append(kept, l)
	}
	c.Lines = kept
	return removed
}

func (c *Cart) Clear() {
	c.Lines = nil
}

// Subtract reduces the cart by the given lines, matching each by (item id,
// notes) identity and decrementing its quantity. Lines that reach zero or
// below are dropped; subtracted lines with no match are ignored. Lines the
// cart holds beyond those given are left untouched.
func (c *Cart) Subtract(lines []CartLine) {
	for _, sub := range lines {
		for i := range c.Lines {
			if c.Lines[i].Item.ID != sub.Item.ID || c.Lines[i].Notes != sub.Notes {
				continue
			}
			q := c.Lines[i].Quantity - sub.Quantity
			if q <= 0 {
				c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			} else {
				c.Lines[i].Quantity = q
			}
			break
		}
	}
}

// Total is recomputed on every call, never cached.
func (c *Cart) Total() float64 {
	var sum float64
	for _, l := range c.Lines {
		sum += l.Subtotal()
	}
	return sum
}

// Count is the sum of line quantities, recomputed on every call.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}
