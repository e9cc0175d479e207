package events_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tuplan/server/internal/auth"
	"github.com/tuplan/server/internal/domain/events"
	"github.com/tuplan/server/internal/domain/events/eventstest"
)

var baseStart = time.Date(2025, 1, 5, 20, 0, 0, 0, time.UTC)

func newService(t *testing.T, seed ...events.Event) (*events.Service, *eventstest.Repository, []events.Event) {
	t.Helper()
	repo := eventstest.New()
	seeded := repo.Seed(seed...)
	return events.NewService(repo, zerolog.Nop()), repo, seeded
}

func sampleEvent(companyID int64, title string, start time.Time) events.Event {
	return events.Event{
		CompanyID:   companyID,
		Title:       title,
		Description: "A night out",
		StartsAt:    start,
		Location:    "Main hall",
		Category:    "music",
		Price:       "10 EUR",
	}
}

func validInput(companyID int64) events.EventInput {
	start := baseStart
	return events.EventInput{
		CompanyID:   &companyID,
		Title:       "Jazz night",
		Description: "Live jazz",
		StartsAt:    &start,
		Location:    "Main hall",
		Category:    "music",
		Price:       "free",
	}
}

func TestListScopesByActor(t *testing.T) {
	svc, _, _ := newService(t,
		sampleEvent(7, "Seven late", baseStart.Add(2*time.Hour)),
		sampleEvent(3, "Three", baseStart),
		sampleEvent(7, "Seven early", baseStart.Add(time.Hour)),
	)
	ctx := context.Background()

	all, err := svc.List(ctx, auth.Reader())
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []string{"Three", "Seven early", "Seven late"}, titles(all))

	admin, err := svc.List(ctx, auth.Admin())
	require.NoError(t, err)
	require.Len(t, admin, 3)

	own, err := svc.List(ctx, auth.Company(3))
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Equal(t, int64(3), own[0].CompanyID)
}

func TestListCompanyWithoutIDFails(t *testing.T) {
	svc, _, _ := newService(t, sampleEvent(3, "Three", baseStart))

	_, err := svc.List(context.Background(), auth.Actor{Role: auth.RoleCompany})
	require.ErrorIs(t, err, auth.ErrMissingScope)
	require.False(t, errors.Is(err, auth.ErrForbidden))
}

func TestGetEnforcesReadPolicy(t *testing.T) {
	svc, _, seeded := newService(t, sampleEvent(7, "Seven", baseStart))
	ctx := context.Background()
	id := seeded[0].ID

	_, err := svc.Get(ctx, auth.Company(3), id)
	require.ErrorIs(t, err, auth.ErrForbidden)
	require.Equal(t, auth.ReasonViewOtherCompany, err.Error())

	event, err := svc.Get(ctx, auth.Company(7), id)
	require.NoError(t, err)
	require.Equal(t, "Seven", event.Title)

	_, err = svc.Get(ctx, auth.Reader(), id)
	require.NoError(t, err)
}

func TestGetMissingEvent(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Get(context.Background(), auth.Admin(), 99)
	require.ErrorIs(t, err, events.ErrNotFound)
}

func TestCreate(t *testing.T) {
	t.Run("company creates for itself", func(t *testing.T) {
		svc, repo, _ := newService(t)
		event, err := svc.Create(context.Background(), auth.Company(3), validInput(3))
		require.NoError(t, err)
		require.NotZero(t, event.ID)
		require.Equal(t, int64(3), event.CompanyID)
		require.False(t, event.CreatedAt.IsZero())
		require.Equal(t, 1, repo.Writes)
	})

	t.Run("company cannot create for another", func(t *testing.T) {
		svc, repo, _ := newService(t)
		_, err := svc.Create(context.Background(), auth.Company(3), validInput(7))
		require.ErrorIs(t, err, auth.ErrForbidden)
		require.Equal(t, auth.ReasonModifyOtherCompany, err.Error())
		require.Zero(t, repo.Writes)
	})

	t.Run("reader cannot create", func(t *testing.T) {
		svc, repo, _ := newService(t)
		_, err := svc.Create(context.Background(), auth.Reader(), validInput(3))
		require.ErrorIs(t, err, auth.ErrForbidden)
		require.Equal(t, auth.ReasonNoWritePermission, err.Error())
		require.Zero(t, repo.Writes)
	})

	t.Run("admin creates for anyone", func(t *testing.T) {
		svc, _, _ := newService(t)
		_, err := svc.Create(context.Background(), auth.Admin(), validInput(42))
		require.NoError(t, err)
	})

	t.Run("sanitizes text fields", func(t *testing.T) {
		svc, _, _ := newService(t)
		input := validInput(3)
		input.Title = "<b>Jazz</b> & Blues"
		input.Description = `<p>Live <script>alert(1)</script>music</p>`
		event, err := svc.Create(context.Background(), auth.Admin(), input)
		require.NoError(t, err)
		require.Equal(t, "Jazz & Blues", event.Title)
		require.Equal(t, "<p>Live music</p>", event.Description)
	})

	t.Run("entity-encoded markup in title is removed", func(t *testing.T) {
		svc, _, _ := newService(t)
		input := validInput(3)
		input.Title = "Jazz &lt;script&gt;alert(1)&lt;/script&gt;"
		event, err := svc.Create(context.Background(), auth.Admin(), input)
		require.NoError(t, err)
		require.Equal(t, "Jazz", event.Title)
		require.NotContains(t, event.Title, "<script")
	})

	t.Run("validation runs before policy", func(t *testing.T) {
		svc, _, _ := newService(t)
		input := validInput(3)
		input.CompanyID = nil
		_, err := svc.Create(context.Background(), auth.Company(3), input)
		var validationErr events.ValidationError
		require.ErrorAs(t, err, &validationErr)
		require.Equal(t, "company_id", validationErr.Field)
	})
}

func TestUpdateOwnershipChangeDenied(t *testing.T) {
	svc, repo, seeded := newService(t, sampleEvent(5, "Five", baseStart))
	id := seeded[0].ID

	patch := events.Patch{
		CompanyID: events.Some(int64(9)),
		Title:     events.Some("Renamed"),
	}
	_, err := svc.Update(context.Background(), auth.Company(5), id, patch)
	require.ErrorIs(t, err, auth.ErrForbidden)
	require.Equal(t, auth.ReasonModifyOtherCompany, err.Error())
	require.Zero(t, repo.Writes)

	stored, err := svc.Get(context.Background(), auth.Admin(), id)
	require.NoError(t, err)
	require.Equal(t, int64(5), stored.CompanyID)
	require.Equal(t, "Five", stored.Title)
}

func TestUpdateCannotStealAnotherCompanysEvent(t *testing.T) {
	svc, repo, seeded := newService(t, sampleEvent(9, "Nine", baseStart))

	_, err := svc.Update(context.Background(), auth.Company(5), seeded[0].ID, events.Patch{CompanyID: events.Some(int64(5))})
	require.ErrorIs(t, err, auth.ErrForbidden)
	require.Zero(t, repo.Writes)
}

func TestUpdateDeniedLogsFailingCompany(t *testing.T) {
	tests := []struct {
		name      string
		owner     int64
		patch     events.Patch
		operation string
		target    float64
	}{
		{name: "current owner not writable", owner: 9, patch: events.Patch{CompanyID: events.Some(int64(5))}, operation: "update", target: 9},
		{name: "new owner not writable", owner: 5, patch: events.Patch{CompanyID: events.Some(int64(9))}, operation: "reassign", target: 9},
		{name: "plain update of other company", owner: 9, patch: events.Patch{Title: events.Some("Mine")}, operation: "update", target: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			repo := eventstest.New()
			seeded := repo.Seed(sampleEvent(tt.owner, "Owned", baseStart))
			svc := events.NewService(repo, zerolog.New(&buf).Level(zerolog.DebugLevel))

			_, err := svc.Update(context.Background(), auth.Company(5), seeded[0].ID, tt.patch)
			require.ErrorIs(t, err, auth.ErrForbidden)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			require.Equal(t, tt.operation, entry["operation"])
			require.Equal(t, tt.target, entry["target_company_id"])
			require.Equal(t, float64(5), entry["company_id"])
		})
	}
}

func TestUpdateAppliesOnlyPresentFields(t *testing.T) {
	original := sampleEvent(5, "Five", baseStart)
	end := baseStart.Add(3 * time.Hour)
	original.EndsAt = &end
	original.Featured = true
	svc, _, seeded := newService(t, original)

	updated, err := svc.Update(context.Background(), auth.Company(5), seeded[0].ID, events.Patch{
		Title: events.Some("Five, revised"),
	})
	require.NoError(t, err)
	require.Equal(t, "Five, revised", updated.Title)
	require.Equal(t, original.Description, updated.Description)
	require.True(t, updated.Featured)
	require.NotNil(t, updated.EndsAt)
	require.True(t, end.Equal(*updated.EndsAt))
	require.Equal(t, int64(5), updated.CompanyID)
}

func TestUpdateClearsEndsAt(t *testing.T) {
	original := sampleEvent(5, "Five", baseStart)
	end := baseStart.Add(time.Hour)
	original.EndsAt = &end
	svc, _, seeded := newService(t, original)

	updated, err := svc.Update(context.Background(), auth.Admin(), seeded[0].ID, events.Patch{
		EndsAt: events.Optional[time.Time]{Set: true, Null: true},
	})
	require.NoError(t, err)
	require.Nil(t, updated.EndsAt)
}

func TestUpdateAdminReassigns(t *testing.T) {
	svc, _, seeded := newService(t, sampleEvent(5, "Five", baseStart))

	updated, err := svc.Update(context.Background(), auth.Admin(), seeded[0].ID, events.Patch{CompanyID: events.Some(int64(9))})
	require.NoError(t, err)
	require.Equal(t, int64(9), updated.CompanyID)
}

func TestUpdateRejectsNullRequiredField(t *testing.T) {
	svc, repo, seeded := newService(t, sampleEvent(5, "Five", baseStart))

	_, err := svc.Update(context.Background(), auth.Admin(), seeded[0].ID, events.Patch{
		Title: events.Optional[string]{Set: true, Null: true},
	})
	var validationErr events.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "title", validationErr.Field)
	require.Zero(t, repo.Writes)
}

func TestUpdateRejectsEndBeforeStart(t *testing.T) {
	svc, _, seeded := newService(t, sampleEvent(5, "Five", baseStart))

	_, err := svc.Update(context.Background(), auth.Admin(), seeded[0].ID, events.Patch{
		EndsAt: events.Some(baseStart.Add(-time.Hour)),
	})
	var validationErr events.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "ends_at", validationErr.Field)
}

func TestUpdateMissingEvent(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Update(context.Background(), auth.Admin(), 404, events.Patch{Title: events.Some("x")})
	require.ErrorIs(t, err, events.ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc, repo, seeded := newService(t,
		sampleEvent(3, "Three", baseStart),
		sampleEvent(7, "Seven", baseStart),
	)
	ctx := context.Background()

	err := svc.Delete(ctx, auth.Company(3), seeded[1].ID)
	require.ErrorIs(t, err, auth.ErrForbidden)

	err = svc.Delete(ctx, auth.Reader(), seeded[0].ID)
	require.ErrorIs(t, err, auth.ErrForbidden)
	require.Equal(t, auth.ReasonNoWritePermission, err.Error())
	require.Zero(t, repo.Writes)

	require.NoError(t, svc.Delete(ctx, auth.Company(3), seeded[0].ID))
	_, err = svc.Get(ctx, auth.Admin(), seeded[0].ID)
	require.ErrorIs(t, err, events.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, auth.Admin(), seeded[1].ID))
	require.ErrorIs(t, svc.Delete(ctx, auth.Admin(), seeded[1].ID), events.ErrNotFound)
}

func TestEndToEndVisibility(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	three, err := svc.Create(ctx, auth.Company(3), validInput(3))
	require.NoError(t, err)
	seven, err := svc.Create(ctx, auth.Company(7), validInput(7))
	require.NoError(t, err)

	readerView, err := svc.List(ctx, auth.Reader())
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{3, 7}, companies(readerView))

	companyView, err := svc.List(ctx, auth.Company(3))
	require.NoError(t, err)
	require.Equal(t, []int64{3}, companies(companyView))
	require.Equal(t, three.ID, companyView[0].ID)

	_, err = svc.Get(ctx, auth.Company(3), seven.ID)
	require.ErrorIs(t, err, auth.ErrForbidden)
	require.Equal(t, "cannot view events of another company", err.Error())
}

func titles(items []events.Event) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Title)
	}
	return out
}

func companies(items []events.Event) []int64 {
	out := make([]int64, 0, len(items))
	for _, item := range items {
		out = append(out, item.CompanyID)
	}
	return out
}
