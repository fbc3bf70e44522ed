package mirror

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/heraldbot/backend/internal/discord"
	"github.com/heraldbot/backend/internal/models"
	"github.com/heraldbot/backend/pkg/bus"
)

type fakeStore struct {
	events        map[int64]*models.Event
	registrations map[int64]map[int64]models.Registration
	stored        []models.Event
}

func newStore(events ...*models.Event) *fakeStore {
	s := &fakeStore{
		events:        make(map[int64]*models.Event),
		registrations: make(map[int64]map[int64]models.Registration),
	}
	for _, e := range events {
		s.events[e.ChannelID] = e
	}
	return s
}

func (s *fakeStore) GetEvent(_ context.Context, channelID int64) (*models.Event, error) {
	return s.events[channelID], nil
}

func (s *fakeStore) StoreEvent(_ context.Context, event *models.Event) error {
	copied := *event
	s.events[event.ChannelID] = &copied
	s.stored = append(s.stored, copied)
	return nil
}

func (s *fakeStore) Register(_ context.Context, channelID int64, reg models.Registration) error {
	if s.registrations[channelID] == nil {
		s.registrations[channelID] = make(map[int64]models.Registration)
	}
	s.registrations[channelID][reg.UserID] = reg
	return nil
}

func (s *fakeStore) Unregister(_ context.Context, channelID, userID int64) error {
	delete(s.registrations[channelID], userID)
	return nil
}

func (s *fakeStore) Registrations(_ context.Context, channelID int64) ([]models.Registration, error) {
	var list []models.Registration
	for _, reg := range s.registrations[channelID] {
		list = append(list, reg)
	}
	return list, nil
}

func (s *fakeStore) IsAssociatedWithEvent(_ context.Context, scheduledEventID int64) (bool, error) {
	for _, e := range s.events {
		if e.ScheduledEventID == scheduledEventID {
			return true, nil
		}
	}
	return false, nil
}

type sentMessage struct {
	channelID int64
	content   string
	image     []byte
}

type editedMessage struct {
	channelID int64
	messageID int64
	content   string
}

type fakeGateway struct {
	guilds          map[int64]*discord.Guild
	channels        map[int64]*discord.Channel
	members         map[int64]*discord.Member
	scheduledEvents map[int64]*discord.ScheduledEvent
	history         map[int64][]discord.Message
	roleErr         error

	nextMessageID int64
	sent          []sentMessage
	edited        []editedMessage
	created       []discord.ScheduledEventParams
	editedEvents  []discord.ScheduledEventParams
	threads       []int64
}

func newGateway() *fakeGateway {
	return &fakeGateway{
		guilds:          map[int64]*discord.Guild{1: {ID: 1, Name: "guild"}},
		channels:        map[int64]*discord.Channel{10: {ID: 10, GuildID: 1}},
		members:         make(map[int64]*discord.Member),
		scheduledEvents: make(map[int64]*discord.ScheduledEvent),
		history:         make(map[int64][]discord.Message),
		nextMessageID:   100,
	}
}

func (g *fakeGateway) Guild(_ context.Context, id int64) (*discord.Guild, error) {
	if guild := g.guilds[id]; guild != nil {
		return guild, nil
	}
	return nil, discord.ErrNotFound
}

func (g *fakeGateway) Channel(_ context.Context, id int64) (*discord.Channel, error) {
	if channel := g.channels[id]; channel != nil {
		return channel, nil
	}
	return nil, discord.ErrNotFound
}

func (g *fakeGateway) Member(_ context.Context, _, userID int64) (*discord.Member, error) {
	if member := g.members[userID]; member != nil {
		return member, nil
	}
	return nil, discord.ErrNotFound
}

func (g *fakeGateway) ScheduledEvent(_ context.Context, _, id int64) (*discord.ScheduledEvent, error) {
	if event := g.scheduledEvents[id]; event != nil {
		return event, nil
	}
	return nil, discord.ErrNotFound
}

func (g *fakeGateway) CreateScheduledEvent(_ context.Context, guildID int64, params discord.ScheduledEventParams) (*discord.ScheduledEvent, error) {
	g.created = append(g.created, params)
	id := int64(9000 + len(g.created))
	event := &discord.ScheduledEvent{
		ID: id, GuildID: guildID, Name: params.Name,
		Location: params.Location, CoverImage: params.Image,
	}
	g.scheduledEvents[id] = event
	return event, nil
}

func (g *fakeGateway) EditScheduledEvent(_ context.Context, _, _ int64, params discord.ScheduledEventParams) error {
	g.editedEvents = append(g.editedEvents, params)
	return nil
}

func (g *fakeGateway) DeleteScheduledEvent(_ context.Context, _, _ int64) error {
	return nil
}

func (g *fakeGateway) SendMessage(_ context.Context, channelID int64, content string, image []byte) (*discord.Message, error) {
	g.nextMessageID++
	msg := discord.Message{ID: g.nextMessageID, ChannelID: channelID, Content: content}
	g.sent = append(g.sent, sentMessage{channelID: channelID, content: content, image: image})
	g.history[channelID] = append(g.history[channelID], msg)
	return &msg, nil
}

func (g *fakeGateway) EditMessage(_ context.Context, channelID, messageID int64, content string, _ []byte) error {
	g.edited = append(g.edited, editedMessage{channelID: channelID, messageID: messageID, content: content})
	return nil
}

func (g *fakeGateway) ChannelMessages(_ context.Context, channelID int64, limit int) ([]discord.Message, error) {
	history := g.history[channelID]
	if len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

func (g *fakeGateway) CreateThread(_ context.Context, channelID, _ int64, _ string) error {
	g.threads = append(g.threads, channelID)
	return nil
}

func (g *fakeGateway) DeleteChannel(_ context.Context, _ int64) error { return nil }

func (g *fakeGateway) EventRoleID(_ context.Context, guildID int64) (int64, error) {
	if g.roleErr != nil {
		return 0, g.roleErr
	}
	return guildID, nil
}

type fakeCovers struct {
	stored map[int64][]byte
}

func newCovers() *fakeCovers {
	return &fakeCovers{stored: make(map[int64][]byte)}
}

func (f *fakeCovers) Default(context.Context) ([]byte, error) {
	return []byte("default-image"), nil
}

func (f *fakeCovers) PutCover(_ context.Context, channelID int64, _ string, data []byte) (string, error) {
	f.stored[channelID] = data
	return "", nil
}

func (f *fakeCovers) GetCover(_ context.Context, channelID int64) ([]byte, error) {
	return f.stored[channelID], nil
}

type fakePublisher struct {
	published []bus.Kind
}

func (p *fakePublisher) Publish(_ context.Context, kind bus.Kind, _ any) error {
	p.published = append(p.published, kind)
	return nil
}

func testEvent() *models.Event {
	start := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	return &models.Event{
		ChannelID:   10,
		GuildID:     1,
		OrganiserID: 2,
		Name:        "Bonfire",
		Description: "Stories",
		EventType:   models.EventTypeCampfire,
		UTCStart:    start,
		UTCEnd:      start.Add(time.Hour),
	}
}

func newCoordinator(store Store, gateway discord.Gateway, publisher Publisher) *Coordinator {
	return NewCoordinator(store, gateway, newCovers(), publisher, zap.NewNop())
}

func TestParseLocation(t *testing.T) {
	id, err := ParseLocation("<#123456>")
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if id != 123456 {
		t.Fatalf("expected 123456, got %d", id)
	}

	for _, bad := range []string{"", "town hall", "<#>", "<#abc>", "<#12"} {
		if _, err := ParseLocation(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestLocationRoundTrip(t *testing.T) {
	id, err := ParseLocation(FormatLocation(42))
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected 42, got %d", id)
	}
}

func TestOnEventCreatedMirrorsAndPosts(t *testing.T) {
	store := newStore()
	gateway := newGateway()
	c := newCoordinator(store, gateway, &fakePublisher{})

	c.OnEventCreated(context.Background(), bus.EventNotice{Event: *testEvent()})

	if len(gateway.created) != 1 {
		t.Fatalf("expected one scheduled event created, got %d", len(gateway.created))
	}
	if gateway.created[0].Location != "<#10>" {
		t.Fatalf("expected channel reference location, got %q", gateway.created[0].Location)
	}
	if string(gateway.created[0].Image) != "default-image" {
		t.Fatal("expected default cover image when none supplied")
	}
	if len(gateway.sent) != 2 {
		t.Fatalf("expected header and body messages, got %d", len(gateway.sent))
	}
	if gateway.sent[0].image == nil {
		t.Fatal("expected image attached to header message")
	}
	if len(gateway.threads) != 1 {
		t.Fatalf("expected one discussion thread, got %d", len(gateway.threads))
	}

	saved := store.events[10]
	if saved == nil {
		t.Fatal("expected event stored")
	}
	if saved.ScheduledEventID == 0 {
		t.Fatal("expected native linkage persisted")
	}
	if saved.HeaderMessageID == 0 || saved.BodyMessageID == 0 {
		t.Fatal("expected message ids persisted")
	}
}

func TestOnEventCreatedDoesNotRecreateLinkedMirror(t *testing.T) {
	store := newStore()
	gateway := newGateway()
	c := newCoordinator(store, gateway, &fakePublisher{})

	event := testEvent()
	event.ScheduledEventID = 555
	c.OnEventCreated(context.Background(), bus.EventNotice{Event: *event})

	if len(gateway.created) != 0 {
		t.Fatalf("expected no scheduled event created, got %d", len(gateway.created))
	}
	if len(gateway.sent) != 2 {
		t.Fatalf("expected messages still posted, got %d", len(gateway.sent))
	}
}

func TestOnEventCreatedStoresLinkageWhenRoleLookupFails(t *testing.T) {
	store := newStore()
	gateway := newGateway()
	gateway.roleErr = discord.ErrNotFound
	c := newCoordinator(store, gateway, &fakePublisher{})

	c.OnEventCreated(context.Background(), bus.EventNotice{Event: *testEvent()})

	if len(gateway.created) != 1 {
		t.Fatalf("expected one scheduled event created, got %d", len(gateway.created))
	}
	saved := store.events[10]
	if saved == nil {
		t.Fatal("expected event stored despite message failure")
	}
	if saved.ScheduledEventID != 9001 {
		t.Fatalf("expected native linkage 9001 persisted, got %d", saved.ScheduledEventID)
	}
	if len(gateway.sent) != 0 {
		t.Fatal("expected no messages posted without the event role")
	}
}

func TestOnEventCreatedPersistsSuppliedCover(t *testing.T) {
	store := newStore()
	gateway := newGateway()
	covers := newCovers()
	c := NewCoordinator(store, gateway, covers, &fakePublisher{}, zap.NewNop())

	c.OnEventCreated(context.Background(), bus.EventNotice{Event: *testEvent(), Image: []byte("supplied")})

	if string(covers.stored[10]) != "supplied" {
		t.Fatal("expected supplied cover persisted for the channel")
	}
	if string(gateway.created[0].Image) != "supplied" {
		t.Fatal("expected supplied cover on the scheduled event")
	}
}

func TestOnEventCreatedPrefersStoredCoverOverDefault(t *testing.T) {
	store := newStore()
	gateway := newGateway()
	covers := newCovers()
	covers.stored[10] = []byte("stored")
	c := NewCoordinator(store, gateway, covers, &fakePublisher{}, zap.NewNop())

	c.OnEventCreated(context.Background(), bus.EventNotice{Event: *testEvent()})

	if string(gateway.created[0].Image) != "stored" {
		t.Fatalf("expected stored cover reused, got %q", gateway.created[0].Image)
	}
}

func TestOnEventAlteredMirrorNoLinkageIsNoop(t *testing.T) {
	gateway := newGateway()
	c := newCoordinator(newStore(), gateway, &fakePublisher{})

	c.OnEventAlteredMirror(context.Background(), bus.EventNotice{Event: *testEvent()})
	if len(gateway.editedEvents) != 0 {
		t.Fatal("expected no scheduled event edit without linkage")
	}
}

func TestOnEventAlteredMirrorReusesCoverImage(t *testing.T) {
	gateway := newGateway()
	gateway.scheduledEvents[555] = &discord.ScheduledEvent{ID: 555, GuildID: 1, CoverImage: []byte("existing")}
	covers := newCovers()
	c := NewCoordinator(newStore(), gateway, covers, &fakePublisher{}, zap.NewNop())

	event := testEvent()
	event.ScheduledEventID = 555
	c.OnEventAlteredMirror(context.Background(), bus.EventNotice{Event: *event})

	if len(gateway.editedEvents) != 1 {
		t.Fatalf("expected one scheduled event edit, got %d", len(gateway.editedEvents))
	}
	if string(gateway.editedEvents[0].Image) != "existing" {
		t.Fatal("expected existing cover image reused")
	}

	c.OnEventAlteredMirror(context.Background(), bus.EventNotice{Event: *event, Image: []byte("new")})
	if string(gateway.editedEvents[1].Image) != "new" {
		t.Fatal("expected supplied image to win")
	}
	if string(covers.stored[10]) != "new" {
		t.Fatal("expected supplied image persisted to the cover store")
	}
}

func TestOnEventAlteredMirrorAbortsOnMissingScheduledEvent(t *testing.T) {
	gateway := newGateway()
	c := newCoordinator(newStore(), gateway, &fakePublisher{})

	event := testEvent()
	event.ScheduledEventID = 555
	c.OnEventAlteredMirror(context.Background(), bus.EventNotice{Event: *event})
	if len(gateway.editedEvents) != 0 {
		t.Fatal("expected abort when scheduled event cannot be fetched")
	}
}

func TestOnEventAlteredMessagesEditsByStoredIDs(t *testing.T) {
	store := newStore()
	gateway := newGateway()
	c := newCoordinator(store, gateway, &fakePublisher{})

	event := testEvent()
	event.HeaderMessageID = 101
	event.BodyMessageID = 102
	c.OnEventAlteredMessages(context.Background(), bus.EventNotice{Event: *event})

	if len(gateway.edited) != 2 {
		t.Fatalf("expected header and body edited, got %d", len(gateway.edited))
	}
	if gateway.edited[0].messageID != 101 || gateway.edited[1].messageID != 102 {
		t.Fatalf("expected edits by stored ids, got %+v", gateway.edited)
	}
}

func TestOnEventAlteredMessagesPositionalFallbackRequiresTwoMessages(t *testing.T) {
	store := newStore()
	gateway := newGateway()
	c := newCoordinator(store, gateway, &fakePublisher{})

	// Channel holds a single message; the positional contract is violated.
	if _, err := gateway.SendMessage(context.Background(), 10, "only", nil); err != nil {
		t.Fatalf("seed message: %v", err)
	}
	gateway.sent = nil

	c.OnEventAlteredMessages(context.Background(), bus.EventNotice{Event: *testEvent()})
	if len(gateway.edited) != 0 {
		t.Fatal("expected silent abort with fewer than two messages")
	}
	if len(store.stored) != 0 {
		t.Fatal("expected store untouched on aborted edit")
	}
}

func TestOnEventAlteredMessagesPositionalFallback(t *testing.T) {
	gateway := newGateway()
	c := newCoordinator(newStore(), gateway, &fakePublisher{})

	ctx := context.Background()
	if _, err := gateway.SendMessage(ctx, 10, "header", nil); err != nil {
		t.Fatalf("seed header: %v", err)
	}
	if _, err := gateway.SendMessage(ctx, 10, "body", nil); err != nil {
		t.Fatalf("seed body: %v", err)
	}

	c.OnEventAlteredMessages(ctx, bus.EventNotice{Event: *testEvent()})
	if len(gateway.edited) != 2 {
		t.Fatalf("expected two edits via positional fallback, got %d", len(gateway.edited))
	}
}

func TestScheduledEventUserAddIgnoredWhenNotTracked(t *testing.T) {
	store := newStore()
	gateway := newGateway()
	c := newCoordinator(store, gateway, &fakePublisher{})

	c.OnScheduledEventUserAdd(context.Background(), bus.ScheduledEventUserNotice{
		ScheduledEventID: 999, GuildID: 1, Location: "<#10>", UserID: 5, Username: "sam",
	})
	if len(gateway.sent) != 0 {
		t.Fatal("expected no announcement for untracked scheduled event")
	}
	if len(store.registrations[10]) != 0 {
		t.Fatal("expected no registration for untracked scheduled event")
	}
}

func TestScheduledEventUserAddCommitsAttending(t *testing.T) {
	event := testEvent()
	event.ScheduledEventID = 555
	store := newStore(event)
	gateway := newGateway()
	gateway.members[5] = &discord.Member{UserID: 5, DisplayName: "Sam the Brave"}
	publisher := &fakePublisher{}
	c := newCoordinator(store, gateway, publisher)

	c.OnScheduledEventUserAdd(context.Background(), bus.ScheduledEventUserNotice{
		ScheduledEventID: 555, GuildID: 1, Location: "<#10>", UserID: 5, Username: "sam",
	})

	if len(gateway.sent) != 1 {
		t.Fatalf("expected one announcement, got %d", len(gateway.sent))
	}
	if got := gateway.sent[0].content; got != "Sam the Brave Registered through the Scheduled Event link" {
		t.Fatalf("unexpected announcement %q", got)
	}
	reg, ok := store.registrations[10][5]
	if !ok {
		t.Fatal("expected registration committed")
	}
	if reg.Status != models.StatusAttending {
		t.Fatalf("expected attending, got %v", reg.Status)
	}
	if reg.Job != nil {
		t.Fatal("expected no job for a native join")
	}
	if len(publisher.published) != 1 || publisher.published[0] != bus.KindEventAltered {
		t.Fatalf("expected event altered published, got %v", publisher.published)
	}
}

func TestScheduledEventUserAddFallsBackToUsername(t *testing.T) {
	event := testEvent()
	event.ScheduledEventID = 555
	gateway := newGateway()
	c := newCoordinator(newStore(event), gateway, &fakePublisher{})

	c.OnScheduledEventUserAdd(context.Background(), bus.ScheduledEventUserNotice{
		ScheduledEventID: 555, GuildID: 1, Location: "<#10>", UserID: 5, Username: "sam",
	})
	if got := gateway.sent[0].content; got != "sam Registered through the Scheduled Event link" {
		t.Fatalf("expected username fallback, got %q", got)
	}
}

func TestScheduledEventUserRemoveRetracts(t *testing.T) {
	event := testEvent()
	event.ScheduledEventID = 555
	store := newStore(event)
	store.registrations[10] = map[int64]models.Registration{
		5: {UserID: 5, Status: models.StatusAttending},
	}
	gateway := newGateway()
	c := newCoordinator(store, gateway, &fakePublisher{})

	c.OnScheduledEventUserRemove(context.Background(), bus.ScheduledEventUserNotice{
		ScheduledEventID: 555, GuildID: 1, Location: "<#10>", UserID: 5, Username: "sam",
	})

	if len(store.registrations[10]) != 0 {
		t.Fatal("expected registration retracted")
	}
	if got := gateway.sent[0].content; got != "sam Unregistered through the Scheduled Event link" {
		t.Fatalf("unexpected announcement %q", got)
	}
}

func TestScheduledEventUserAddAbortsOnMissingChannel(t *testing.T) {
	event := testEvent()
	event.ScheduledEventID = 555
	store := newStore(event)
	gateway := newGateway()
	delete(gateway.channels, 10)
	c := newCoordinator(store, gateway, &fakePublisher{})

	c.OnScheduledEventUserAdd(context.Background(), bus.ScheduledEventUserNotice{
		ScheduledEventID: 555, GuildID: 1, Location: "<#10>", UserID: 5, Username: "sam",
	})
	if len(store.registrations[10]) != 0 {
		t.Fatal("expected no registration when channel is unresolvable")
	}
}
