package events

import (
	"time"

	"github.com/tuplan/server/internal/sanitize"
)

// NormalizeEventInput strips markup from plain-text fields, sanitizes the
// description and stores times in UTC.
func NormalizeEventInput(input EventInput) EventInput {
	input.Title = sanitize.Text(input.Title)
	input.Description = sanitize.HTML(input.Description)
	input.Location = sanitize.Text(input.Location)
	input.Category = sanitize.Text(input.Category)
	input.Price = sanitize.Text(input.Price)
	input.StartsAt = utcPtr(input.StartsAt)
	input.EndsAt = utcPtr(input.EndsAt)
	return input
}

func normalizePatch(p Patch) Patch {
	p.Title.Value = sanitize.Text(p.Title.Value)
	p.Description.Value = sanitize.HTML(p.Description.Value)
	p.Location.Value = sanitize.Text(p.Location.Value)
	p.Category.Value = sanitize.Text(p.Category.Value)
	p.Price.Value = sanitize.Text(p.Price.Value)
	p.StartsAt.Value = p.StartsAt.Value.UTC()
	p.EndsAt.Value = p.EndsAt.Value.UTC()
	return p
}

func utcPtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}
