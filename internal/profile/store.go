package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/crosstalk/debate-app/internal/session"
)

const (
	// cachePrefix is the Redis key prefix for cached profile bundles.
	cachePrefix = "profile:"

	// cacheTTL bounds how stale a cached profile may be. Preference edits
	// made in the account surface become visible on the next admission after
	// at most this long.
	cacheTTL = 5 * time.Minute
)

// Store resolves profiles and preferences from the identity store's
// PostgreSQL tables, with a Redis read-through cache in front. The cache is
// best-effort: any Redis failure falls through to the database.
type Store struct {
	db    *sql.DB
	cache *redis.Client // may be nil; caching is then disabled
}

// NewStore creates a resolver backed by the given database handle and an
// optional Redis cache client.
func NewStore(db *sql.DB, cache *redis.Client) *Store {
	return &Store{db: db, cache: cache}
}

// cachedBundle is the JSON shape stored in Redis.
type cachedBundle struct {
	Profile     session.Profile     `json:"profile"`
	Preferences session.Preferences `json:"preferences"`
}

// Fetch resolves the identity's profile and preferences. A missing or
// unreadable profile returns ErrProfileUnavailable. A preference lookup
// failure with a healthy profile degrades to the default random policy
// instead of failing — preferences are a soft dependency.
func (s *Store) Fetch(ctx context.Context, identity string) (session.Profile, session.Preferences, error) {
	if bundle, ok := s.cacheGet(ctx, identity); ok {
		return bundle.Profile, bundle.Preferences, nil
	}

	prof, err := s.fetchProfile(ctx, identity)
	if err != nil {
		return session.Profile{}, session.Preferences{}, err
	}

	prefs, err := s.fetchPreferences(ctx, identity)
	if err != nil {
		log.Printf("[profile] preference lookup failed for %s, using defaults: %v", identity, err)
		prefs = session.DefaultPreferences()
	}

	s.cacheSet(ctx, identity, cachedBundle{Profile: prof, Preferences: prefs})
	return prof, prefs, nil
}

// fetchProfile loads the hard profile attributes. sql.ErrNoRows and any
// other database failure both surface as ErrProfileUnavailable.
func (s *Store) fetchProfile(ctx context.Context, identity string) (session.Profile, error) {
	const query = `
		SELECT username, ideological_stance, personality_type, core_beliefs, nationality
		FROM profiles
		WHERE id = $1`

	var (
		prof        session.Profile
		coreBeliefs pq.StringArray
	)
	err := s.db.QueryRowContext(ctx, query, identity).Scan(
		&prof.Username,
		&prof.Stance,
		&prof.Personality,
		&coreBeliefs,
		&prof.Nationality,
	)
	if err != nil {
		return session.Profile{}, fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
	}
	prof.CoreBeliefs = coreBeliefs
	return prof, nil
}

// fetchPreferences loads the match preferences and selected topics. A user
// with no preference row gets the defaults without error.
func (s *Store) fetchPreferences(ctx context.Context, identity string) (session.Preferences, error) {
	const prefQuery = `
		SELECT preferred_match_type, COALESCE(language, ''), COALESCE(nationality, '')
		FROM user_match_preferences
		WHERE id = $1`

	prefs := session.DefaultPreferences()

	err := s.db.QueryRowContext(ctx, prefQuery, identity).Scan(
		&prefs.Policy, &prefs.Language, &prefs.Nationality)
	if err == sql.ErrNoRows {
		return prefs, nil
	}
	if err != nil {
		return session.Preferences{}, fmt.Errorf("profile: preference query: %w", err)
	}
	if !session.ValidPolicy(prefs.Policy) {
		prefs.Policy = session.PolicyRandom
	}

	const topicQuery = `
		SELECT topic_id, stance
		FROM user_selected_topics
		WHERE user_id = $1
		ORDER BY position`

	rows, err := s.db.QueryContext(ctx, topicQuery, identity)
	if err != nil {
		return session.Preferences{}, fmt.Errorf("profile: topic query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t session.TopicSelection
		if err := rows.Scan(&t.TopicID, &t.Stance); err != nil {
			return session.Preferences{}, fmt.Errorf("profile: topic scan: %w", err)
		}
		prefs.Topics = append(prefs.Topics, t)
	}
	if err := rows.Err(); err != nil {
		return session.Preferences{}, fmt.Errorf("profile: topic rows: %w", err)
	}

	return prefs, nil
}

// cacheGet returns the cached bundle for the identity if present. Redis
// errors are logged and treated as a miss.
func (s *Store) cacheGet(ctx context.Context, identity string) (cachedBundle, bool) {
	if s.cache == nil {
		return cachedBundle{}, false
	}

	raw, err := s.cache.Get(ctx, cachePrefix+identity).Bytes()
	if err == redis.Nil {
		return cachedBundle{}, false
	}
	if err != nil {
		log.Printf("[profile] cache read for %s: %v", identity, err)
		return cachedBundle{}, false
	}

	var bundle cachedBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		log.Printf("[profile] cache decode for %s: %v", identity, err)
		return cachedBundle{}, false
	}
	return bundle, true
}

// cacheSet stores the bundle best-effort.
func (s *Store) cacheSet(ctx context.Context, identity string, bundle cachedBundle) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(bundle)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cachePrefix+identity, raw, cacheTTL).Err(); err != nil {
		log.Printf("[profile] cache write for %s: %v", identity, err)
	}
}
