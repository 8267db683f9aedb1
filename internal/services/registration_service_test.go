package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"

	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/internal/models"
	apperrors "github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/errors"
	"github.com/AtharvGhandat-RAW/KAIZEN-RITP-sub002/pkg/validator"
)

func TestRegisterIssuesSignedPass(t *testing.T) {
	ts := newTestServices(t)
	event := ts.createEvent(t, CreateEventInput{Name: "Robo Race"})

	result := ts.register(t, event.Slug, "Asha@Example.com ")
	reg := result.Registration
	require.NotEmpty(t, reg.ID)
	require.Equal(t, "asha@example.com", reg.Email)
	require.Equal(t, models.StatusConfirmed, reg.Status)
	require.Equal(t, result.Pass.Token, reg.QRToken)
	require.Equal(t, ts.codec.VerificationCode(reg.ID), reg.VerificationCode)

	payload := ts.codec.Decode(result.Pass.Token)
	require.NotNil(t, payload)
	require.Equal(t, reg.ID, payload.RegistrationID)
	require.Equal(t, event.ID, payload.EventID)
	require.Equal(t, "Asha Patil", payload.Name)

	var stored models.Registration
	require.NoError(t, ts.db.First(&stored, "id = ?", reg.ID).Error)
	require.Equal(t, result.Pass.Token, stored.QRToken)
	require.Equal(t, models.StatusConfirmed, stored.Status)

	require.Equal(t, []string{EventRegistrationCreated}, ts.publisher.events(StreamRegistrations))
	last, ok := ts.publisher.last(StreamStats)
	require.True(t, ok)
	snapshot := last.Data.(Snapshot)
	require.Equal(t, int64(1), snapshot.Registrations)
}

func TestRegisterNormalisesInputBeforeValidation(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	event := ts.createEvent(t, CreateEventInput{Name: "Code Sprint"})

	input := registerInput(" "+event.ID+" ", "\t Ravi.K@Example.COM  ")
	input.FullName = "  Ravi Kulkarni "
	input.College = " RIT Islampur\n"
	result, err := ts.registrations.Register(ctx, input)
	require.NoError(t, err)
	require.Equal(t, "ravi.k@example.com", result.Registration.Email)
	require.Equal(t, "Ravi Kulkarni", result.Registration.FullName)
	require.Equal(t, "RIT Islampur", result.Registration.College)

	payload := ts.codec.Decode(result.Pass.Token)
	require.NotNil(t, payload)
	require.Equal(t, "Ravi Kulkarni", payload.Name)

	blankName := registerInput(event.ID, "blank@example.com")
	blankName.FullName = "   "
	_, err = ts.registrations.Register(ctx, blankName)
	var vErrs validator.ValidationErrors
	require.ErrorAs(t, err, &vErrs)
	require.Len(t, vErrs, 1)
	require.Equal(t, "FullName", vErrs[0].Field)

	fest, err := ts.registrations.RegisterFest(ctx, FestRegisterInput{
		FullName: " Meera Joshi ",
		Email:    "  MEERA@example.com ",
		Phone:    " 9876543210 ",
		College:  "COEP",
		EventIDs: []string{event.ID},
	})
	require.NoError(t, err)
	require.Equal(t, "meera@example.com", fest.Registration.Email)
	require.Equal(t, "9876543210", fest.Registration.Phone)
}

func TestRegisterPaidEventIsPending(t *testing.T) {
	ts := newTestServices(t)
	event := ts.createEvent(t, CreateEventInput{Name: "Hackathon", Fee: 200})

	result := ts.register(t, event.ID, "dev@example.com")
	require.Equal(t, models.StatusPending, result.Registration.Status)
}

func TestRegisterRejections(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	open := ts.createEvent(t, CreateEventInput{Name: "Open Event", MaxParticipants: 1})
	closed := ts.createEvent(t, CreateEventInput{Name: "Closed Event", RegistrationOpen: boolPtr(false)})
	solo := ts.createEvent(t, CreateEventInput{Name: "Solo Event"})

	ts.register(t, open.ID, "first@example.com")

	_, err := ts.registrations.Register(ctx, registerInput(open.ID, "FIRST@example.com"))
	require.ErrorIs(t, err, apperrors.ErrAlreadyRegistered)

	_, err = ts.registrations.Register(ctx, registerInput(open.ID, "second@example.com"))
	require.ErrorIs(t, err, apperrors.ErrEventFull)

	_, err = ts.registrations.Register(ctx, registerInput(closed.ID, "x@example.com"))
	require.ErrorIs(t, err, apperrors.ErrRegistrationClosed)

	_, err = ts.registrations.Register(ctx, registerInput("no-such-event", "x@example.com"))
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	team := registerInput(solo.ID, "team@example.com")
	team.TeamMembers = []string{"Ravi"}
	_, err = ts.registrations.Register(ctx, team)
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	bad := registerInput(solo.ID, "not-an-email")
	bad.Phone = "12"
	_, err = ts.registrations.Register(ctx, bad)
	var vErrs validator.ValidationErrors
	require.ErrorAs(t, err, &vErrs)
	require.Len(t, vErrs, 2)

	_, err = ts.settings.Update(ctx, UpdateSettingsInput{RegistrationOpen: boolPtr(false)}, Actor{})
	require.NoError(t, err)
	_, err = ts.registrations.Register(ctx, registerInput(solo.ID, "late@example.com"))
	require.ErrorIs(t, err, apperrors.ErrRegistrationClosed)
}

func TestRegisterTeamEvent(t *testing.T) {
	ts := newTestServices(t)
	event := ts.createEvent(t, CreateEventInput{Name: "Bridge Building", TeamSize: 3})

	input := registerInput(event.ID, "lead@example.com")
	input.TeamName = "Arch Rivals"
	input.TeamMembers = []string{"Ravi", " Meera ", "Ravi", ""}

	result, err := ts.registrations.Register(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, []string{"Ravi", "Meera"}, []string(result.Registration.TeamMembers))

	stored, err := ts.registrations.Get(context.Background(), result.Registration.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"Ravi", "Meera"}, []string(stored.TeamMembers))
	require.NotNil(t, stored.Event)
	require.Equal(t, "Bridge Building", stored.Event.Name)
}

func TestRegisterAfterCancelReusesRegistration(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	event := ts.createEvent(t, CreateEventInput{Name: "Tech Quiz"})

	first := ts.register(t, event.ID, "again@example.com")
	_, err := ts.registrations.Cancel(ctx, first.Registration.ID, Actor{})
	require.NoError(t, err)

	second := ts.register(t, event.ID, "again@example.com")
	require.Equal(t, first.Registration.ID, second.Registration.ID)
	require.Equal(t, models.StatusConfirmed, second.Registration.Status)

	var count int64
	require.NoError(t, ts.db.Model(&models.Registration{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestRegisterFest(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	robo := ts.createEvent(t, CreateEventInput{Name: "Robo Race"})
	quiz := ts.createEvent(t, CreateEventInput{Name: "Tech Quiz"})

	result, err := ts.registrations.RegisterFest(ctx, FestRegisterInput{
		FullName: "Meera Joshi",
		Email:    "meera@example.com",
		Phone:    "9876543210",
		College:  "COEP",
		EventIDs: []string{robo.Slug, quiz.ID, robo.ID},
	})
	require.NoError(t, err)
	require.Len(t, result.Events, 2)
	require.Equal(t, []string{robo.ID, quiz.ID}, []string(result.Registration.EventIDs))

	payload := ts.codec.Decode(result.Pass.Token)
	require.NotNil(t, payload)
	require.Equal(t, FestEventID, payload.EventID)
	require.Equal(t, result.Registration.ID, payload.RegistrationID)

	_, err = ts.registrations.RegisterFest(ctx, FestRegisterInput{
		FullName: "Meera Joshi",
		Email:    "MEERA@example.com",
		Phone:    "9876543210",
		College:  "COEP",
		EventIDs: []string{quiz.ID},
	})
	require.ErrorIs(t, err, apperrors.ErrAlreadyRegistered)

	_, err = ts.registrations.RegisterFest(ctx, FestRegisterInput{
		FullName: "Someone Else",
		Email:    "else@example.com",
		Phone:    "9876543210",
		College:  "COEP",
		EventIDs: []string{"unknown"},
	})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLookupResolvesBothKinds(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	event := ts.createEvent(t, CreateEventInput{Name: "Robo Race"})

	single := ts.register(t, event.ID, "single@example.com")
	fest, err := ts.registrations.RegisterFest(ctx, FestRegisterInput{
		FullName: "Fest Goer",
		Email:    "fest@example.com",
		Phone:    "9876543210",
		College:  "RIT",
		EventIDs: []string{event.ID},
	})
	require.NoError(t, err)

	holder, err := ts.registrations.Lookup(ctx, single.Registration.ID)
	require.NoError(t, err)
	require.Equal(t, KindEvent, holder.Kind)
	require.Equal(t, event.ID, holder.EventID)
	require.Equal(t, "Robo Race", holder.EventName)

	holder, err = ts.registrations.Lookup(ctx, fest.Registration.ID)
	require.NoError(t, err)
	require.Equal(t, KindFest, holder.Kind)
	require.Equal(t, FestEventID, holder.EventID)
	require.Equal(t, []string{event.ID}, holder.EventIDs)

	_, err = ts.registrations.Lookup(ctx, "missing")
	require.ErrorIs(t, err, ErrRegistrationNotFound)
}

func TestCancelRegistration(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	event := ts.createEvent(t, CreateEventInput{Name: "Robo Race"})
	result := ts.register(t, event.ID, "cancel@example.com")

	holder, err := ts.registrations.Cancel(ctx, result.Registration.ID, Actor{Email: "admin@kaizen.test"})
	require.NoError(t, err)
	require.Equal(t, models.StatusCancelled, holder.Pass.Status)

	again, err := ts.registrations.Cancel(ctx, result.Registration.ID, Actor{})
	require.NoError(t, err)
	require.Equal(t, models.StatusCancelled, again.Pass.Status)

	admitted := ts.register(t, event.ID, "admitted@example.com")
	_, err = ts.checkins.ByToken(ctx, admitted.Pass.Token, Actor{})
	require.NoError(t, err)
	_, err = ts.registrations.Cancel(ctx, admitted.Registration.ID, Actor{})
	require.ErrorIs(t, err, ErrCancelCheckedIn)
}

func TestListRegistrations(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	robo := ts.createEvent(t, CreateEventInput{Name: "Robo Race"})
	quiz := ts.createEvent(t, CreateEventInput{Name: "Tech Quiz"})

	ts.register(t, robo.ID, "a@example.com")
	ts.register(t, robo.ID, "b@example.com")
	cancelled := ts.register(t, quiz.ID, "c@example.com")
	_, err := ts.registrations.Cancel(ctx, cancelled.Registration.ID, Actor{})
	require.NoError(t, err)

	all, total, err := ts.registrations.List(ctx, ListRegistrationsOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, all, 3)

	byEvent, total, err := ts.registrations.List(ctx, ListRegistrationsOptions{Filters: RegistrationFilters{EventID: robo.ID}})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.NotNil(t, byEvent[0].Event)

	byStatus, total, err := ts.registrations.List(ctx, ListRegistrationsOptions{Filters: RegistrationFilters{Status: string(models.StatusCancelled)}})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "c@example.com", byStatus[0].Email)

	paged, total, err := ts.registrations.List(ctx, ListRegistrationsOptions{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, paged, 1)

	_, err = ts.registrations.RegisterFest(ctx, FestRegisterInput{
		FullName: "Fest Goer",
		Email:    "fest@example.com",
		Phone:    "9876543210",
		College:  "Walchand College",
		EventIDs: []string{robo.ID},
	})
	require.NoError(t, err)

	fests, total, err := ts.registrations.ListFest(ctx, ListRegistrationsOptions{Filters: RegistrationFilters{Query: "walchand"}})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "fest@example.com", fests[0].Email)
}

func TestExpirePasses(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	event := ts.createEvent(t, CreateEventInput{Name: "Robo Race"})

	stale := ts.register(t, event.ID, "stale@example.com")
	fresh := ts.register(t, event.ID, "fresh@example.com")

	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, ts.db.Model(&models.Registration{}).
		Where("id = ?", stale.Registration.ID).
		Update("pass_expires_at", past).Error)

	changed, err := ts.registrations.ExpirePasses(ctx, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), changed)

	holder, err := ts.registrations.Lookup(ctx, stale.Registration.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusExpired, holder.Pass.Status)

	holder, err = ts.registrations.Lookup(ctx, fresh.Registration.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusConfirmed, holder.Pass.Status)
}

func TestLockEventSelectsForUpdate(t *testing.T) {
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	stmt := lockEvent(db, "event-1").Take(&models.Event{}).Statement
	sql := stmt.SQL.String()
	require.Contains(t, sql, "FOR UPDATE")
	require.Contains(t, sql, "id = ?")
	require.Equal(t, "event-1", stmt.Vars[0])
}

func TestRegisterLastSeatOnCappedEvent(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	event := ts.createEvent(t, CreateEventInput{Name: "Escape Room", MaxParticipants: 2})

	ts.register(t, event.ID, "one@example.com")
	ts.register(t, event.ID, "two@example.com")

	_, err := ts.registrations.Register(ctx, registerInput(event.ID, "three@example.com"))
	require.ErrorIs(t, err, apperrors.ErrEventFull)

	var count int64
	require.NoError(t, ts.db.Model(&models.Registration{}).Where("event_id = ?", event.ID).Count(&count).Error)
	require.Equal(t, int64(2), count)
}
