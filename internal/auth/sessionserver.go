package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// SessionServerURL is Mojang's hasJoined endpoint (out of scope per spec §1: a
// remote HTTP collaborator, not reimplemented here).
const SessionServerURL = "https://sessionserver.mojang.com/session/minecraft/hasJoined"

// SessionServer confirms a client's profile against Mojang's authentication
// service during Login.
type SessionServer struct {
	client  *http.Client
	baseURL string
}

// NewSessionServer builds a client with a short (5s) timeout, which bounds how
// long a HasJoined call blocks its caller; the login path calls HasJoined
// directly on the session's own goroutine.
func NewSessionServer() *SessionServer {
	return &SessionServer{client: &http.Client{Timeout: 5 * time.Second}, baseURL: SessionServerURL}
}

// NewSessionServerAt targets an alternate hasJoined endpoint (Yggdrasil-
// compatible proxies, test doubles).
func NewSessionServerAt(baseURL string) *SessionServer {
	return &SessionServer{client: &http.Client{Timeout: 5 * time.Second}, baseURL: baseURL}
}

type hasJoinedResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Properties []Property `json:"properties"`
}

// HasJoined queries Mojang for the profile that completed the given server-id hash,
// optionally constrained to a client ip. A 204 response means authentication failed
// (ErrNotAuthenticated); any other non-200 status or malformed body is a hard Login
// failure.
func (s *SessionServer) HasJoined(username, serverIDHash, clientIP string) (GameProfile, error) {
	q := url.Values{}
	q.Set("username", username)
	q.Set("serverId", serverIDHash)
	if clientIP != "" {
		q.Set("ip", clientIP)
	}

	resp, err := s.client.Get(s.baseURL + "?" + q.Encode())
	if err != nil {
		return GameProfile{}, fmt.Errorf("auth: session server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return GameProfile{}, ErrNotAuthenticated
	}
	if resp.StatusCode != http.StatusOK {
		return GameProfile{}, fmt.Errorf("auth: session server returned status %d", resp.StatusCode)
	}

	var body hasJoinedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return GameProfile{}, fmt.Errorf("auth: malformed session server response: %w", err)
	}

	id, err := uuid.Parse(body.ID)
	if err != nil {
		// Mojang returns the id without dashes; retry with dashes inserted.
		if id, err = parseUndashedUUID(body.ID); err != nil {
			return GameProfile{}, fmt.Errorf("auth: malformed profile id %q: %w", body.ID, err)
		}
	}

	return GameProfile{UUID: id, Name: body.Name, Properties: body.Properties}, nil
}

func parseUndashedUUID(s string) (uuid.UUID, error) {
	if len(s) != 32 {
		return uuid.UUID{}, fmt.Errorf("expected 32 hex chars, got %d", len(s))
	}
	dashed := s[0:8] + "-" + s[8:12] + "-" + s[12:16] + "-" + s[16:20] + "-" + s[20:32]
	return uuid.Parse(dashed)
}

// ErrNotAuthenticated is returned when Mojang reports the client did not
// authenticate with this server (HTTP 204).
var ErrNotAuthenticated = fmt.Errorf("auth: client has not authenticated with session server")
