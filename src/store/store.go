package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"festreg/src/config"
	"festreg/src/lib"
)

// Storage keys, one per top-level checkout state field so partial
// hydration works. The applied promo and file attachments have no key on
// purpose: neither survives a reload.
const (
	KEY_STEP            = "checkout_current_step"
	KEY_SELECTED_EVENTS = "selectedEventIds"
	KEY_VISITOR_DAYS    = "visitorPassDays"
	KEY_VISITOR_DETAILS = "visitorPassDetails"
	KEY_FLAGSHIP        = "flagshipBenefitsByEvent"
	KEY_FORM_DATA       = "formDataBySignature"
	KEY_TEAM_MEMBERS    = "teamMembersBySignature"
	KEY_PROMO_INPUT     = "promoInput"
)

func KnownKeys() []string {
	return []string{
		KEY_STEP,
		KEY_SELECTED_EVENTS,
		KEY_VISITOR_DAYS,
		KEY_VISITOR_DETAILS,
		KEY_FLAGSHIP,
		KEY_FORM_DATA,
		KEY_TEAM_MEMBERS,
		KEY_PROMO_INPUT,
	}
}

// Store persists checkout wizard state under per-session Redis keys with
// a session-scoped TTL. Writes are debounced per key so keystroke-driven
// mutations do not thrash storage. Storage is a cache, not a source of
// truth: every failure is logged and swallowed, and reads fall back to
// the caller's default.
type Store struct {
	session  string
	debounce time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string][]byte
	closed  bool
}

func New(session string) *Store {
	return &Store{
		session:  session,
		debounce: config.STORE_DEBOUNCE,
		timers:   map[string]*time.Timer{},
		pending:  map[string][]byte{},
	}
}

// NewWithDebounce is used by tests to shrink the write delay.
func NewWithDebounce(session string, d time.Duration) *Store {
	s := New(session)
	s.debounce = d
	return s
}

func (s *Store) redisKey(key string) string {
	return fmt.Sprintf("checkout:%s:%s", s.session, key)
}

// Save schedules a debounced write of the JSON-encoded value. A pending
// timer for the same key is cancelled and replaced; the value is encoded
// at call time so later mutations of the original cannot leak in.
func (s *Store) Save(key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("[store] Could not encode value for key %s: %s\n", key, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if t, ok := s.timers[key]; ok {
		t.Stop()
	}
	s.pending[key] = raw
	s.timers[key] = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		raw, ok := s.pending[key]
		delete(s.pending, key)
		delete(s.timers, key)
		s.mu.Unlock()
		if ok {
			s.write(key, raw)
		}
	})
}

// SaveNow bypasses the debounce, cancelling any pending write for the key.
func (s *Store) SaveNow(key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("[store] Could not encode value for key %s: %s\n", key, err.Error())
		return
	}
	s.mu.Lock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
	delete(s.pending, key)
	s.mu.Unlock()
	s.write(key, raw)
}

func (s *Store) write(key string, raw []byte) {
	rd := lib.GetRedisClient()
	if rd == nil {
		return
	}
	if err := rd.Set(context.Background(), s.redisKey(key), string(raw), config.CHECKOUT_SESSION_TTL).Err(); err != nil {
		log.Printf("[store] Error writing key %s: %s\n", key, err.Error())
	}
}

// Load decodes the stored value into dest and reports whether anything
// was loaded. On miss or any error the caller keeps its default.
func (s *Store) Load(key string, dest any) bool {
	rd := lib.GetRedisClient()
	if rd == nil {
		return false
	}
	raw, err := rd.Get(context.Background(), s.redisKey(key)).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		log.Printf("[store] Error decoding key %s: %s\n", key, err.Error())
		return false
	}
	return true
}

// Flush writes every pending value immediately, cancelling the timers.
func (s *Store) Flush() {
	s.mu.Lock()
	for k, t := range s.timers {
		t.Stop()
		delete(s.timers, k)
	}
	pending := s.pending
	s.pending = map[string][]byte{}
	s.mu.Unlock()
	for k, raw := range pending {
		s.write(k, raw)
	}
}

// Clear cancels every pending write and removes all known keys. Called
// when the wizard is abandoned; a later session starts from the empty
// default state.
func (s *Store) Clear() {
	s.mu.Lock()
	for k, t := range s.timers {
		t.Stop()
		delete(s.timers, k)
	}
	s.pending = map[string][]byte{}
	s.closed = true
	s.mu.Unlock()

	rd := lib.GetRedisClient()
	if rd == nil {
		return
	}
	keys := make([]string, 0, len(KnownKeys()))
	for _, k := range KnownKeys() {
		keys = append(keys, s.redisKey(k))
	}
	if err := rd.Del(context.Background(), keys...).Err(); err != nil {
		log.Printf("[store] Error clearing session %s: %s\n", s.session, err.Error())
	}
}
