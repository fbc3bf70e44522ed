package discord

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://discord.com/api/v10"
	cdnBaseURL     = "https://cdn.discordapp.com"

	// Threads on event channels archive after a week of inactivity.
	threadArchiveMinutes = 10080

	// External scheduled event with guild-only visibility.
	entityTypeExternal = 3
	privacyGuildOnly   = 2
)

// RESTClient implements Gateway against the platform's REST API, with an
// in-process cache in front of guild, channel and member lookups.
type RESTClient struct {
	httpClient    *http.Client
	token         string
	baseURL       string
	eventRoleName string
	logger        *zap.Logger

	mu       sync.RWMutex
	guilds   map[int64]*Guild
	channels map[int64]*Channel
	members  map[[2]int64]*Member
}

// NewRESTClient creates a REST gateway authenticated as a bot.
// eventRoleName is the guild role mentioned in event messages.
func NewRESTClient(token, eventRoleName string, logger *zap.Logger) *RESTClient {
	return &RESTClient{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		token:         token,
		baseURL:       defaultBaseURL,
		eventRoleName: eventRoleName,
		logger:        logger,
		guilds:        make(map[int64]*Guild),
		channels:      make(map[int64]*Channel),
		members:       make(map[[2]int64]*Member),
	}
}

type wireRole struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireGuild struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Roles []wireRole `json:"roles"`
}

type wireChannel struct {
	ID      string `json:"id"`
	GuildID string `json:"guild_id"`
	Name    string `json:"name"`
}

type wireUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
}

type wireMember struct {
	Nick string   `json:"nick"`
	User wireUser `json:"user"`
}

type wireMessage struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}

type wireScheduledEvent struct {
	ID          string `json:"id"`
	GuildID     string `json:"guild_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Start       string `json:"scheduled_start_time"`
	End         string `json:"scheduled_end_time"`
	Metadata    struct {
		Location string `json:"location"`
	} `json:"entity_metadata"`
}

// Guild returns a guild with its roles, from cache when possible.
func (c *RESTClient) Guild(ctx context.Context, id int64) (*Guild, error) {
	guild := FetchByID(ctx, id, c.cachedGuild, c.fetchGuild, c.logger)
	if guild == nil {
		return nil, ErrNotFound
	}
	return guild, nil
}

func (c *RESTClient) cachedGuild(id int64) *Guild {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.guilds[id]
}

func (c *RESTClient) fetchGuild(ctx context.Context, id int64) (*Guild, error) {
	var wire wireGuild
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/guilds/%d", id), nil, &wire); err != nil {
		return nil, err
	}
	guild := &Guild{ID: parseSnowflake(wire.ID), Name: wire.Name}
	for _, r := range wire.Roles {
		guild.Roles = append(guild.Roles, Role{ID: parseSnowflake(r.ID), Name: r.Name})
	}
	c.mu.Lock()
	c.guilds[id] = guild
	c.mu.Unlock()
	return guild, nil
}

// Channel returns a channel, from cache when possible.
func (c *RESTClient) Channel(ctx context.Context, id int64) (*Channel, error) {
	channel := FetchByID(ctx, id, c.cachedChannel, c.fetchChannel, c.logger)
	if channel == nil {
		return nil, ErrNotFound
	}
	return channel, nil
}

func (c *RESTClient) cachedChannel(id int64) *Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channels[id]
}

func (c *RESTClient) fetchChannel(ctx context.Context, id int64) (*Channel, error) {
	var wire wireChannel
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/channels/%d", id), nil, &wire); err != nil {
		return nil, err
	}
	channel := &Channel{ID: parseSnowflake(wire.ID), GuildID: parseSnowflake(wire.GuildID), Name: wire.Name}
	c.mu.Lock()
	c.channels[id] = channel
	c.mu.Unlock()
	return channel, nil
}

// Member returns a guild member, from cache when possible.
func (c *RESTClient) Member(ctx context.Context, guildID, userID int64) (*Member, error) {
	key := [2]int64{guildID, userID}
	c.mu.RLock()
	cached := c.members[key]
	c.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	var wire wireMember
	path := fmt.Sprintf("/guilds/%d/members/%d", guildID, userID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &wire); err != nil {
		return nil, err
	}
	name := wire.Nick
	if name == "" {
		name = wire.User.GlobalName
	}
	if name == "" {
		name = wire.User.Username
	}
	member := &Member{UserID: userID, DisplayName: name}
	c.mu.Lock()
	c.members[key] = member
	c.mu.Unlock()
	return member, nil
}

// ScheduledEvent returns a native scheduled event with its cover image bytes
// when one is set.
func (c *RESTClient) ScheduledEvent(ctx context.Context, guildID, id int64) (*ScheduledEvent, error) {
	var wire wireScheduledEvent
	path := fmt.Sprintf("/guilds/%d/scheduled-events/%d", guildID, id)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &wire); err != nil {
		return nil, err
	}
	event := scheduledEventFromWire(wire)
	if wire.Image != "" {
		image, err := c.fetchCover(ctx, id, wire.Image)
		if err != nil {
			c.logger.Warn("fetch cover image", zap.Int64("scheduled_event_id", id), zap.Error(err))
		} else {
			event.CoverImage = image
		}
	}
	return event, nil
}

// CreateScheduledEvent creates an external scheduled event.
func (c *RESTClient) CreateScheduledEvent(ctx context.Context, guildID int64, params ScheduledEventParams) (*ScheduledEvent, error) {
	var wire wireScheduledEvent
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/guilds/%d/scheduled-events", guildID),
		scheduledEventBody(params), &wire)
	if err != nil {
		return nil, err
	}
	return scheduledEventFromWire(wire), nil
}

// EditScheduledEvent pushes the given fields to an existing scheduled event.
func (c *RESTClient) EditScheduledEvent(ctx context.Context, guildID, id int64, params ScheduledEventParams) error {
	path := fmt.Sprintf("/guilds/%d/scheduled-events/%d", guildID, id)
	return c.doJSON(ctx, http.MethodPatch, path, scheduledEventBody(params), nil)
}

// DeleteScheduledEvent removes a scheduled event.
func (c *RESTClient) DeleteScheduledEvent(ctx context.Context, guildID, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/guilds/%d/scheduled-events/%d", guildID, id), nil, nil)
}

// SendMessage posts a message, attaching image as a file when provided.
func (c *RESTClient) SendMessage(ctx context.Context, channelID int64, content string, image []byte) (*Message, error) {
	var wire wireMessage
	path := fmt.Sprintf("/channels/%d/messages", channelID)
	if image == nil {
		if err := c.doJSON(ctx, http.MethodPost, path, map[string]any{"content": content}, &wire); err != nil {
			return nil, err
		}
	} else if err := c.doMultipart(ctx, http.MethodPost, path, content, image, &wire); err != nil {
		return nil, err
	}
	return &Message{ID: parseSnowflake(wire.ID), ChannelID: channelID, Content: content}, nil
}

// EditMessage replaces a message's content, and its attachment when image is
// provided.
func (c *RESTClient) EditMessage(ctx context.Context, channelID, messageID int64, content string, image []byte) error {
	path := fmt.Sprintf("/channels/%d/messages/%d", channelID, messageID)
	if image == nil {
		return c.doJSON(ctx, http.MethodPatch, path, map[string]any{"content": content}, nil)
	}
	return c.doMultipart(ctx, http.MethodPatch, path, content, image, nil)
}

// ChannelMessages returns up to limit messages, oldest first.
func (c *RESTClient) ChannelMessages(ctx context.Context, channelID int64, limit int) ([]Message, error) {
	var wires []wireMessage
	path := fmt.Sprintf("/channels/%d/messages?limit=%d&after=0", channelID, limit)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &wires); err != nil {
		return nil, err
	}
	messages := make([]Message, 0, len(wires))
	for _, w := range wires {
		messages = append(messages, Message{
			ID:        parseSnowflake(w.ID),
			ChannelID: parseSnowflake(w.ChannelID),
			Content:   w.Content,
		})
	}
	return messages, nil
}

// CreateThread opens a public discussion thread under a message.
func (c *RESTClient) CreateThread(ctx context.Context, channelID, messageID int64, name string) error {
	path := fmt.Sprintf("/channels/%d/messages/%d/threads", channelID, messageID)
	body := map[string]any{"name": name, "auto_archive_duration": threadArchiveMinutes}
	return c.doJSON(ctx, http.MethodPost, path, body, nil)
}

// DeleteChannel removes a channel.
func (c *RESTClient) DeleteChannel(ctx context.Context, channelID int64) error {
	c.mu.Lock()
	delete(c.channels, channelID)
	c.mu.Unlock()
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/channels/%d", channelID), nil, nil)
}

// EventRoleID finds the guild's event role by name, falling back to the
// guild's default role (whose ID equals the guild ID).
func (c *RESTClient) EventRoleID(ctx context.Context, guildID int64) (int64, error) {
	guild, err := c.Guild(ctx, guildID)
	if err != nil {
		return 0, err
	}
	for _, role := range guild.Roles {
		if role.Name == c.eventRoleName {
			return role.ID, nil
		}
	}
	return guildID, nil
}

func (c *RESTClient) fetchCover(ctx context.Context, eventID int64, imageHash string) ([]byte, error) {
	url := fmt.Sprintf("%s/guild-events/%d/%s.png", cdnBaseURL, eventID, imageHash)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cdn status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *RESTClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	return c.do(ctx, method, path, body, "application/json", out)
}

func (c *RESTClient) doMultipart(ctx context.Context, method, path, content string, image []byte, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	payload := map[string]any{
		"content":     content,
		"attachments": []map[string]any{{"id": 0, "filename": "cover.png"}},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := writer.WriteField("payload_json", string(raw)); err != nil {
		return err
	}
	part, err := writer.CreateFormFile("files[0]", "cover.png")
	if err != nil {
		return err
	}
	if _, err := part.Write(image); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return c.do(ctx, method, path, &buf, writer.FormDataContentType(), out)
}

func (c *RESTClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func scheduledEventBody(params ScheduledEventParams) map[string]any {
	body := map[string]any{
		"name":                 params.Name,
		"description":          params.Description,
		"scheduled_start_time": params.Start.UTC().Format(time.RFC3339),
		"scheduled_end_time":   params.End.UTC().Format(time.RFC3339),
		"entity_type":          entityTypeExternal,
		"privacy_level":        privacyGuildOnly,
		"entity_metadata":      map[string]string{"location": params.Location},
	}
	if params.Image != nil {
		body["image"] = "data:image/png;base64," + base64.StdEncoding.EncodeToString(params.Image)
	}
	return body
}

func scheduledEventFromWire(wire wireScheduledEvent) *ScheduledEvent {
	start, _ := time.Parse(time.RFC3339, wire.Start)
	end, _ := time.Parse(time.RFC3339, wire.End)
	return &ScheduledEvent{
		ID:          parseSnowflake(wire.ID),
		GuildID:     parseSnowflake(wire.GuildID),
		Name:        wire.Name,
		Description: wire.Description,
		Location:    wire.Metadata.Location,
		Start:       start,
		End:         end,
	}
}

func parseSnowflake(s string) int64 {
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}
