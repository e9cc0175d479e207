package events

import (
	"bytes"
	"encoding/json"
	"time"
)

// Optional records whether a JSON field was present and whether it was an
// explicit null, so a partial update can tell "leave alone" from "clear".
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a present, non-null Optional.
func Some[T any](value T) Optional[T] {
	return Optional[T]{Set: true, Value: value}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Null = true
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// Present reports whether the field carries a usable value.
func (o Optional[T]) Present() bool {
	return o.Set && !o.Null
}

// Patch is a partial update. Only fields with Set are applied.
type Patch struct {
	CompanyID   Optional[int64]     `json:"company_id"`
	Title       Optional[string]    `json:"title"`
	Description Optional[string]    `json:"description"`
	StartsAt    Optional[time.Time] `json:"starts_at"`
	EndsAt      Optional[time.Time] `json:"ends_at"`
	Location    Optional[string]    `json:"location"`
	Category    Optional[string]    `json:"category"`
	Price       Optional[string]    `json:"price"`
	Featured    Optional[bool]      `json:"featured"`
}

// ChangesOwner reports whether the patch assigns a company id.
func (p Patch) ChangesOwner() bool {
	return p.CompanyID.Present()
}

// checkNulls rejects explicit nulls on fields the store requires. ends_at is
// the only nullable field.
func (p Patch) checkNulls() error {
	required := []struct {
		field string
		null  bool
	}{
		{"company_id", p.CompanyID.Null},
		{"title", p.Title.Null},
		{"description", p.Description.Null},
		{"starts_at", p.StartsAt.Null},
		{"location", p.Location.Null},
		{"category", p.Category.Null},
		{"price", p.Price.Null},
		{"featured", p.Featured.Null},
	}
	for _, item := range required {
		if item.null {
			return ValidationError{Field: item.field, Message: "must not be null"}
		}
	}
	return nil
}

// Apply returns a copy of event with the patch's present fields assigned.
func (p Patch) Apply(event Event) Event {
	out := event
	if p.CompanyID.Present() {
		out.CompanyID = p.CompanyID.Value
	}
	if p.Title.Present() {
		out.Title = p.Title.Value
	}
	if p.Description.Present() {
		out.Description = p.Description.Value
	}
	if p.StartsAt.Present() {
		out.StartsAt = p.StartsAt.Value
	}
	if p.EndsAt.Set {
		if p.EndsAt.Null {
			out.EndsAt = nil
		} else {
			endsAt := p.EndsAt.Value
			out.EndsAt = &endsAt
		}
	} else if event.EndsAt != nil {
		endsAt := *event.EndsAt
		out.EndsAt = &endsAt
	}
	if p.Location.Present() {
		out.Location = p.Location.Value
	}
	if p.Category.Present() {
		out.Category = p.Category.Value
	}
	if p.Price.Present() {
		out.Price = p.Price.Value
	}
	if p.Featured.Present() {
		out.Featured = p.Featured.Value
	}
	return out
}
