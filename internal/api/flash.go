package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
)

const flashCookie = "dashboard_flash"

// Flash categories, used as CSS classes by the templates.
const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// FlashStore keeps flashes in an HMAC-signed cookie so a redirect can carry
// them without server-side sessions.
type FlashStore struct {
	key []byte
}

// NewFlashStore returns a store signing with secret.
func NewFlashStore(secret string) *FlashStore {
	return &FlashStore{key: []byte(secret)}
}

// Add appends a flash to those already pending on the request.
func (s *FlashStore) Add(w http.ResponseWriter, r *http.Request, category, message string) {
	flashes := s.read(r)
	flashes = append(flashes, Flash{Category: category, Message: message})
	s.write(w, flashes)
}

// Pop returns the pending flashes and clears the cookie.
func (s *FlashStore) Pop(w http.ResponseWriter, r *http.Request) []Flash {
	flashes := s.read(r)
	if len(flashes) > 0 {
		http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	}
	return flashes
}

func (s *FlashStore) write(w http.ResponseWriter, flashes []Flash) {
	raw, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    payload + "." + s.sign(payload),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// read returns nil for a missing, tampered or malformed cookie.
func (s *FlashStore) read(r *http.Request) []Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	payload, sig, ok := strings.Cut(c.Value, ".")
	if !ok || !hmac.Equal([]byte(sig), []byte(s.sign(payload))) {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if json.Unmarshal(raw, &flashes) != nil {
		return nil
	}
	return flashes
}

func (s *FlashStore) sign(payload string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
