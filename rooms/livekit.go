package rooms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/warmflow/internal/tlsutil"
	"github.com/BaSui01/warmflow/types"
	"go.uber.org/zap"
)

// LiveKitConfig configures the LiveKit room service binding.
type LiveKitConfig struct {
	// URL is the LiveKit server URL. ws:// and wss:// schemes are accepted
	// and rewritten to their HTTP equivalents for the server API.
	URL string

	// Timeout bounds each provider call. Defaults to 10s.
	Timeout time.Duration

	// EmptyTimeout is the provider-side idle timeout, in seconds, applied
	// to rooms created through the facade. Defaults to 300.
	EmptyTimeout int
}

// LiveKitService implements Service against the LiveKit server API
// (Twirp JSON over HTTP POST).
type LiveKitService struct {
	cfg    LiveKitConfig
	tokens TokenSource
	client *http.Client
	logger *zap.Logger
}

// NewLiveKitService creates the LiveKit binding. tokens supplies the admin
// JWT attached to each API call.
func NewLiveKitService(cfg LiveKitConfig, tokens TokenSource, logger *zap.Logger) *LiveKitService {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.EmptyTimeout == 0 {
		cfg.EmptyTimeout = 300
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveKitService{
		cfg:    cfg,
		tokens: tokens,
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("component", "livekit_rooms")),
	}
}

// Provider wire shapes. Fields the core does not model are deliberately
// absent so they get dropped at this boundary.

type lkRoom struct {
	SID             string `json:"sid"`
	Name            string `json:"name"`
	MaxParticipants int    `json:"max_participants"`
	NumParticipants int    `json:"num_participants"`
	NumPublishers   int    `json:"num_publishers"`
	CreationTime    int64  `json:"creation_time,string"`
	Metadata        string `json:"metadata"`
}

type lkTrack struct {
	SID    string `json:"sid"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Source string `json:"source"`
	Muted  bool   `json:"muted"`
}

type lkParticipant struct {
	SID         string    `json:"sid"`
	Identity    string    `json:"identity"`
	Name        string    `json:"name"`
	State       string    `json:"state"`
	JoinedAt    int64     `json:"joined_at,string"`
	IsPublisher bool      `json:"is_publisher"`
	Metadata    string    `json:"metadata"`
	Tracks      []lkTrack `json:"tracks"`
}

func (r lkRoom) normalize() types.RoomInfo {
	return types.RoomInfo{
		SID:             r.SID,
		Name:            r.Name,
		MaxParticipants: r.MaxParticipants,
		NumParticipants: r.NumParticipants,
		NumPublishers:   r.NumPublishers,
		CreatedAt:       time.Unix(r.CreationTime, 0).UTC(),
		Metadata:        r.Metadata,
	}
}

func (p lkParticipant) normalize() types.ParticipantInfo {
	info := types.ParticipantInfo{
		SID:         p.SID,
		Identity:    p.Identity,
		Name:        p.Name,
		State:       p.State,
		JoinedAt:    time.Unix(p.JoinedAt, 0).UTC(),
		IsPublisher: p.IsPublisher,
		Metadata:    p.Metadata,
	}
	for _, tr := range p.Tracks {
		info.Tracks = append(info.Tracks, types.TrackInfo{
			SID: tr.SID, Name: tr.Name, Type: tr.Type, Source: tr.Source, Muted: tr.Muted,
		})
	}
	return info
}

// CreateRoom creates a room with the requested capacity. Admission control
// beyond max_participants is the provider's responsibility.
func (s *LiveKitService) CreateRoom(ctx context.Context, name string, maxParticipants int) (*types.RoomInfo, error) {
	if name == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "room name must not be empty").
			WithOperation("rooms.CreateRoom")
	}

	req := map[string]any{
		"name":             name,
		"max_participants": maxParticipants,
		"empty_timeout":    s.cfg.EmptyTimeout,
	}
	var room lkRoom
	if err := s.call(ctx, "CreateRoom", name, req, &room); err != nil {
		return nil, err
	}

	s.logger.Info("created room",
		zap.String("room", name),
		zap.String("sid", room.SID),
		zap.Int("max_participants", maxParticipants),
	)
	info := room.normalize()
	return &info, nil
}

// ListRooms returns all active rooms.
func (s *LiveKitService) ListRooms(ctx context.Context) ([]types.RoomInfo, error) {
	var resp struct {
		Rooms []lkRoom `json:"rooms"`
	}
	if err := s.call(ctx, "ListRooms", "", map[string]any{}, &resp); err != nil {
		return nil, err
	}
	infos := make([]types.RoomInfo, 0, len(resp.Rooms))
	for _, r := range resp.Rooms {
		infos = append(infos, r.normalize())
	}
	return infos, nil
}

// GetRoom finds a room by name via a linear scan over ListRooms. The
// provider has no direct single-room query; room counts are small and this
// is not a hot path.
func (s *LiveKitService) GetRoom(ctx context.Context, name string) (*types.RoomInfo, error) {
	infos, err := s.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	for i := range infos {
		if infos[i].Name == name {
			return &infos[i], nil
		}
	}
	return nil, types.NewError(types.ErrNotFound, fmt.Sprintf("room not found: %s", name)).
		WithHTTPStatus(http.StatusNotFound).
		WithOperation("rooms.GetRoom")
}

// DeleteRoom deletes a room; deleting an absent room is success.
func (s *LiveKitService) DeleteRoom(ctx context.Context, name string) error {
	err := s.call(ctx, "DeleteRoom", name, map[string]any{"room": name}, nil)
	if err != nil && types.IsNotFound(err) {
		s.logger.Debug("room already absent on delete", zap.String("room", name))
		return nil
	}
	if err != nil {
		return err
	}
	s.logger.Info("deleted room", zap.String("room", name))
	return nil
}

// ListParticipants returns the participants currently in a room.
func (s *LiveKitService) ListParticipants(ctx context.Context, room string) ([]types.ParticipantInfo, error) {
	var resp struct {
		Participants []lkParticipant `json:"participants"`
	}
	if err := s.call(ctx, "ListParticipants", room, map[string]any{"room": room}, &resp); err != nil {
		return nil, err
	}
	infos := make([]types.ParticipantInfo, 0, len(resp.Participants))
	for _, p := range resp.Participants {
		infos = append(infos, p.normalize())
	}
	return infos, nil
}

// RemoveParticipant disconnects a participant from a room.
func (s *LiveKitService) RemoveParticipant(ctx context.Context, room, identity string) error {
	req := map[string]any{"room": room, "identity": identity}
	if err := s.call(ctx, "RemoveParticipant", room, req, nil); err != nil {
		return err
	}
	s.logger.Info("removed participant", zap.String("room", room), zap.String("identity", identity))
	return nil
}

// UpdateParticipantMetadata replaces a participant's metadata blob.
func (s *LiveKitService) UpdateParticipantMetadata(ctx context.Context, room, identity, metadata string) error {
	req := map[string]any{"room": room, "identity": identity, "metadata": metadata}
	return s.call(ctx, "UpdateParticipant", room, req, nil)
}

// SendData delivers a data-channel payload. Empty targets broadcasts to the
// whole room.
func (s *LiveKitService) SendData(ctx context.Context, room string, payload []byte, targets []string) error {
	req := map[string]any{
		"room": room,
		"data": payload,
	}
	if len(targets) > 0 {
		req["destination_identities"] = targets
	}
	return s.call(ctx, "SendData", room, req, nil)
}

// RoomStats aggregates occupancy for a room from its participant list.
func (s *LiveKitService) RoomStats(ctx context.Context, room string) (*types.RoomStats, error) {
	info, err := s.GetRoom(ctx, room)
	if err != nil {
		return nil, err
	}
	participants, err := s.ListParticipants(ctx, room)
	if err != nil {
		return nil, err
	}

	stats := &types.RoomStats{Room: *info, Participants: participants}
	for _, p := range participants {
		if p.IsPublisher {
			stats.Publishers++
		} else {
			stats.Subscribers++
		}
		stats.ActiveTracks += len(p.Tracks)
	}
	return stats, nil
}

// call performs one Twirp JSON request against the provider room service.
func (s *LiveKitService) call(ctx context.Context, method, room string, body any, out any) error {
	op := "rooms." + method

	adminToken, err := s.tokens.IssueAdmin(room, 0)
	if err != nil {
		return types.NewError(types.ErrPermanent, "failed to mint admin token").
			WithCause(err).
			WithOperation(op)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return types.NewError(types.ErrInternalError, "failed to encode provider request").
			WithCause(err).
			WithOperation(op)
	}

	url := apiBaseURL(s.cfg.URL) + "/twirp/livekit.RoomService/" + method
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return types.NewError(types.ErrInternalError, "failed to build provider request").
			WithCause(err).
			WithOperation(op)
	}
	httpReq.Header.Set("Authorization", "Bearer "+adminToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		code := types.ErrTransient
		if errors.Is(err, context.DeadlineExceeded) {
			code = types.ErrUpstreamTimeout
		}
		return types.NewError(code, fmt.Sprintf("provider call failed for room %q", room)).
			WithCause(err).
			WithRetryable(true).
			WithHTTPStatus(http.StatusBadGateway).
			WithOperation(op)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return mapProviderError(resp, op, room)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return types.NewError(types.ErrUpstreamError, "failed to decode provider response").
				WithCause(err).
				WithRetryable(true).
				WithOperation(op)
		}
	}
	return nil
}

// mapProviderError translates a provider HTTP failure into the core taxonomy.
func mapProviderError(resp *http.Response, op, room string) error {
	var twerr struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&twerr)
	detail := twerr.Msg
	if detail == "" {
		detail = "status " + strconv.Itoa(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound || twerr.Code == "not_found":
		return types.NewError(types.ErrNotFound, fmt.Sprintf("room not found: %s", room)).
			WithHTTPStatus(http.StatusNotFound).
			WithOperation(op)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return types.NewError(types.ErrTransient, fmt.Sprintf("provider unavailable: %s", detail)).
			WithRetryable(true).
			WithHTTPStatus(http.StatusBadGateway).
			WithOperation(op)
	default:
		return types.NewError(types.ErrPermanent, fmt.Sprintf("provider rejected request: %s", detail)).
			WithHTTPStatus(http.StatusBadGateway).
			WithOperation(op)
	}
}

// apiBaseURL rewrites ws/wss URLs to their HTTP equivalents and trims any
// trailing slash.
func apiBaseURL(url string) string {
	switch {
	case strings.HasPrefix(url, "ws://"):
		url = "http://" + strings.TrimPrefix(url, "ws://")
	case strings.HasPrefix(url, "wss://"):
		url = "https://" + strings.TrimPrefix(url, "wss://")
	}
	return strings.TrimRight(url, "/")
}
