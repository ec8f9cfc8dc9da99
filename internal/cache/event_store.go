package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go-gin-event-admission/internal/model"
	apperrors "go-gin-event-admission/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	eventIndexKey = "events:index"

	codeOK               = 1
	codeFull             = -1
	codeMembershipFailed = -2 // already registered / not registered
	codeNotFound         = -3
)

// eventMeta holds the descriptive fields that never change after creation.
type eventMeta struct {
	Creator     string            `json:"creator"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	EventType   string            `json:"event_type"`
	Location    *string           `json:"location,omitempty"`
	Venue       *string           `json:"venue,omitempty"`
	StartDate   time.Time         `json:"start_date"`
	EndDate     time.Time         `json:"end_date"`
	TicketPrice float64           `json:"ticket_price"`
	Status      model.EventStatus `json:"status"`
}

/*
註冊 (Lua 腳本確保原子性)
1. 檢查活動是否存在
2. 檢查是否已註冊
3. 檢查名額
4. 加入名單並更新人數
*/
var registerScript = redis.NewScript(`
	local event_key = KEYS[1]
	local members_key = KEYS[2]
	local attendee_key = KEYS[3]
	local principal = ARGV[1]

	if redis.call('EXISTS', event_key) == 0 then
		return {-3, 0, 0}
	end

	local max = tonumber(redis.call('HGET', event_key, 'max_attendees'))
	if redis.call('SISMEMBER', members_key, principal) == 1 then
		return {-2, 0, max}
	end

	local current = redis.call('SCARD', members_key)
	if current >= max then
		return {-1, current, max}
	end

	redis.call('SADD', members_key, principal)
	current = current + 1
	redis.call('HSET', event_key, 'current_attendees', current, 'updated_at', ARGV[3])
	redis.call('SADD', attendee_key, ARGV[2])

	return {1, current, max}
`)

var unregisterScript = redis.NewScript(`
	local event_key = KEYS[1]
	local members_key = KEYS[2]
	local attendee_key = KEYS[3]
	local principal = ARGV[1]

	if redis.call('EXISTS', event_key) == 0 then
		return {-3, 0, 0}
	end

	local max = tonumber(redis.call('HGET', event_key, 'max_attendees'))
	if redis.call('SREM', members_key, principal) == 0 then
		return {-2, 0, max}
	end

	local current = redis.call('SCARD', members_key)
	redis.call('HSET', event_key, 'current_attendees', current, 'updated_at', ARGV[3])
	redis.call('SREM', attendee_key, ARGV[2])

	return {1, current, max}
`)

// appendMediaScript pushes every ARGV after the first two onto KEYS[2] and
// bumps the counter named by ARGV[1] by the number of pushed refs.
var appendMediaScript = redis.NewScript(`
	local event_key = KEYS[1]
	local list_key = KEYS[2]
	local counter = ARGV[1]

	if redis.call('EXISTS', event_key) == 0 then
		return {-3, 0, 0}
	end

	for i = 3, #ARGV do
		redis.call('RPUSH', list_key, ARGV[i])
	end
	redis.call('HINCRBY', event_key, counter, #ARGV - 2)
	redis.call('HSET', event_key, 'updated_at', ARGV[2])

	local counts = redis.call('HMGET', event_key, 'upload_count', 'video_count')
	return {1, tonumber(counts[1]), tonumber(counts[2])}
`)

var deleteScript = redis.NewScript(`
	local event_key = KEYS[1]
	local members_key = KEYS[2]
	local event_id = ARGV[1]
	local attendee_prefix = ARGV[2]

	if redis.call('EXISTS', event_key) == 0 then
		return -3
	end

	for _, principal in ipairs(redis.call('SMEMBERS', members_key)) do
		redis.call('SREM', attendee_prefix .. principal, event_id)
	end
	redis.call('DEL', event_key, members_key, KEYS[3], KEYS[4])
	redis.call('ZREM', KEYS[5], event_id)
	redis.call('SREM', KEYS[6], event_id)

	return 1
`)

// RedisEventStore keeps each event as a hash plus a member set and two media
// lists. All mutations run as Lua scripts.
type RedisEventStore struct {
	client *redis.Client
}

func NewRedisEventStore(client *redis.Client) *RedisEventStore {
	return &RedisEventStore{
		client: client,
	}
}

func (s *RedisEventStore) eventKey(id uuid.UUID) string {
	return fmt.Sprintf("event:{%s}", id)
}

func (s *RedisEventStore) membersKey(id uuid.UUID) string {
	return fmt.Sprintf("event:{%s}:registrations", id)
}

func (s *RedisEventStore) photosKey(id uuid.UUID) string {
	return fmt.Sprintf("event:{%s}:photos", id)
}

func (s *RedisEventStore) videosKey(id uuid.UUID) string {
	return fmt.Sprintf("event:{%s}:videos", id)
}

func (s *RedisEventStore) creatorKey(creator string) string {
	return "creator:" + creator + ":events"
}

const attendeePrefix = "attendee:"

func (s *RedisEventStore) attendeeKey(principal string) string {
	return attendeePrefix + principal
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func (s *RedisEventStore) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	meta, err := json.Marshal(eventMeta{
		Creator:     event.Creator,
		Title:       event.Title,
		Description: event.Description,
		Category:    event.Category,
		EventType:   event.EventType,
		Location:    event.Location,
		Venue:       event.Venue,
		StartDate:   event.StartDate,
		EndDate:     event.EndDate,
		TicketPrice: event.TicketPrice,
		Status:      event.Status,
	})
	if err != nil {
		return nil, err
	}

	createdAt := time.Now().UTC()
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.eventKey(event.ID), map[string]interface{}{
			"meta":              string(meta),
			"max_attendees":     event.MaxAttendees,
			"current_attendees": 0,
			"upload_count":      0,
			"video_count":       0,
			"created_at":        createdAt.Format(time.RFC3339Nano),
			"updated_at":        createdAt.Format(time.RFC3339Nano),
		})
		pipe.ZAdd(ctx, eventIndexKey, redis.Z{Score: float64(createdAt.UnixNano()), Member: event.ID.String()})
		pipe.SAdd(ctx, s.creatorKey(event.Creator), event.ID.String())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return s.FindByID(ctx, event.ID)
}

// FindByID reads the hash, member set and media lists inside one MULTI so the
// returned snapshot is consistent.
func (s *RedisEventStore) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	var (
		fields  *redis.MapStringStringCmd
		members *redis.StringSliceCmd
		photos  *redis.StringSliceCmd
		videos  *redis.StringSliceCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		fields = pipe.HGetAll(ctx, s.eventKey(id))
		members = pipe.SMembers(ctx, s.membersKey(id))
		photos = pipe.LRange(ctx, s.photosKey(id), 0, -1)
		videos = pipe.LRange(ctx, s.videosKey(id), 0, -1)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 檢查 key 是否存在
	if len(fields.Val()) == 0 {
		return nil, apperrors.ErrEventNotFound
	}

	registrations := members.Val()
	sort.Strings(registrations)
	return decodeEvent(id, fields.Val(), registrations, photos.Val(), videos.Val())
}

func decodeEvent(id uuid.UUID, fields map[string]string, registrations, photos, videos []string) (*model.Event, error) {
	var meta eventMeta
	if err := json.Unmarshal([]byte(fields["meta"]), &meta); err != nil {
		return nil, fmt.Errorf("invalid event meta: %v", err)
	}

	event := &model.Event{
		ID:            id,
		Creator:       meta.Creator,
		Title:         meta.Title,
		Description:   meta.Description,
		Category:      meta.Category,
		EventType:     meta.EventType,
		Location:      meta.Location,
		Venue:         meta.Venue,
		StartDate:     meta.StartDate,
		EndDate:       meta.EndDate,
		TicketPrice:   meta.TicketPrice,
		Status:        meta.Status,
		Registrations: registrations,
		Photos:        photos,
		Videos:        videos,
	}

	var err error
	if event.MaxAttendees, err = strconv.Atoi(fields["max_attendees"]); err != nil {
		return nil, fmt.Errorf("invalid max_attendees: %v", err)
	}
	if event.CurrentAttendees, err = strconv.Atoi(fields["current_attendees"]); err != nil {
		return nil, fmt.Errorf("invalid current_attendees: %v", err)
	}
	if event.UploadCount, err = strconv.Atoi(fields["upload_count"]); err != nil {
		return nil, fmt.Errorf("invalid upload_count: %v", err)
	}
	if event.VideoCount, err = strconv.Atoi(fields["video_count"]); err != nil {
		return nil, fmt.Errorf("invalid video_count: %v", err)
	}
	if event.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return nil, fmt.Errorf("invalid created_at: %v", err)
	}
	if event.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("invalid updated_at: %v", err)
	}

	return event, nil
}

func (s *RedisEventStore) loadAll(ctx context.Context, ids []string) ([]*model.Event, error) {
	events := make([]*model.Event, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		event, err := s.FindByID(ctx, id)
		if errors.Is(err, apperrors.ErrEventNotFound) {
			// deleted between the index read and the load
			continue
		}
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (s *RedisEventStore) List(ctx context.Context) ([]*model.Event, error) {
	ids, err := s.client.ZRevRange(ctx, eventIndexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return s.loadAll(ctx, ids)
}

func (s *RedisEventStore) ListByCreator(ctx context.Context, creator string) ([]*model.Event, error) {
	ids, err := s.client.SMembers(ctx, s.creatorKey(creator)).Result()
	if err != nil {
		return nil, err
	}
	events, err := s.loadAll(ctx, ids)
	if err != nil {
		return nil, err
	}
	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.After(events[j].CreatedAt) })
	return events, nil
}

func (s *RedisEventStore) ListRegistered(ctx context.Context, principal string) ([]*model.Event, error) {
	ids, err := s.client.SMembers(ctx, s.attendeeKey(principal)).Result()
	if err != nil {
		return nil, err
	}
	events, err := s.loadAll(ctx, ids)
	if err != nil {
		return nil, err
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartDate.Before(events[j].StartDate) })
	return events, nil
}

func (s *RedisEventStore) Delete(ctx context.Context, id uuid.UUID) error {
	meta, err := s.client.HGet(ctx, s.eventKey(id), "meta").Result()
	if err == redis.Nil {
		return apperrors.ErrEventNotFound
	}
	if err != nil {
		return err
	}
	var m eventMeta
	if err := json.Unmarshal([]byte(meta), &m); err != nil {
		return fmt.Errorf("invalid event meta: %v", err)
	}

	keys := []string{
		s.eventKey(id), s.membersKey(id), s.photosKey(id), s.videosKey(id),
		eventIndexKey, s.creatorKey(m.Creator),
	}
	code, err := deleteScript.Run(ctx, s.client, keys, id.String(), attendeePrefix).Int()
	if err != nil {
		return err
	}
	if code == codeNotFound {
		return apperrors.ErrEventNotFound
	}
	return nil
}

func parseTriple(result interface{}) (int64, int, int, error) {
	values, ok := result.([]interface{})
	if !ok || len(values) != 3 {
		return 0, 0, 0, errors.New("unexpected result")
	}
	nums := make([]int64, 3)
	for i, v := range values {
		n, ok := v.(int64) // Redis 數字通常回傳 int64
		if !ok {
			return 0, 0, 0, errors.New("unexpected result")
		}
		nums[i] = n
	}
	return nums[0], int(nums[1]), int(nums[2]), nil
}

func (s *RedisEventStore) Register(ctx context.Context, id uuid.UUID, principal string) (*model.Attendance, error) {
	keys := []string{s.eventKey(id), s.membersKey(id), s.attendeeKey(principal)}
	result, err := registerScript.Run(ctx, s.client, keys, principal, id.String(), now()).Result()
	if err != nil {
		return nil, err
	}

	code, current, max, err := parseTriple(result)
	if err != nil {
		return nil, err
	}

	switch code {
	case codeOK:
		return &model.Attendance{
			EventID:          id,
			Principal:        principal,
			Registered:       true,
			CurrentAttendees: current,
			MaxAttendees:     max,
		}, nil
	case codeFull:
		return nil, apperrors.ErrEventFull
	case codeMembershipFailed:
		return nil, apperrors.ErrAlreadyRegistered
	case codeNotFound:
		return nil, apperrors.ErrEventNotFound
	default:
		return nil, errors.New("unexpected result")
	}
}

func (s *RedisEventStore) Unregister(ctx context.Context, id uuid.UUID, principal string) (*model.Attendance, error) {
	keys := []string{s.eventKey(id), s.membersKey(id), s.attendeeKey(principal)}
	result, err := unregisterScript.Run(ctx, s.client, keys, principal, id.String(), now()).Result()
	if err != nil {
		return nil, err
	}

	code, current, max, err := parseTriple(result)
	if err != nil {
		return nil, err
	}

	switch code {
	case codeOK:
		return &model.Attendance{
			EventID:          id,
			Principal:        principal,
			Registered:       false,
			CurrentAttendees: current,
			MaxAttendees:     max,
		}, nil
	case codeMembershipFailed:
		return nil, apperrors.ErrNotRegistered
	case codeNotFound:
		return nil, apperrors.ErrEventNotFound
	default:
		return nil, errors.New("unexpected result")
	}
}

func (s *RedisEventStore) appendMedia(ctx context.Context, id uuid.UUID, listKey, counter string, refs []string) (*model.MediaCount, error) {
	args := make([]interface{}, 0, len(refs)+2)
	args = append(args, counter, now())
	for _, ref := range refs {
		args = append(args, ref)
	}

	result, err := appendMediaScript.Run(ctx, s.client, []string{s.eventKey(id), listKey}, args...).Result()
	if err != nil {
		return nil, err
	}

	code, uploads, videos, err := parseTriple(result)
	if err != nil {
		return nil, err
	}
	if code == codeNotFound {
		return nil, apperrors.ErrEventNotFound
	}
	return &model.MediaCount{UploadCount: uploads, VideoCount: videos}, nil
}

func (s *RedisEventStore) AppendPhoto(ctx context.Context, id uuid.UUID, ref string) (*model.MediaCount, error) {
	return s.appendMedia(ctx, id, s.photosKey(id), "upload_count", []string{ref})
}

func (s *RedisEventStore) AppendVideos(ctx context.Context, id uuid.UUID, refs []string) (*model.MediaCount, error) {
	if len(refs) == 0 {
		return nil, apperrors.ErrInvalidInput
	}
	return s.appendMedia(ctx, id, s.videosKey(id), "video_count", refs)
}
