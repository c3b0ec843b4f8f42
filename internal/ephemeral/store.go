// Package ephemeral implements the cache-only self-expiring short links.
// They have no durable-store record: the Redis entry is the whole link,
// counting its own clicks and renewing its own lifetime on every read.
package ephemeral

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shortloop/link-resolver/internal/domain"
	"github.com/shortloop/link-resolver/internal/logger"
	"github.com/shortloop/link-resolver/internal/metrics"
)

const (
	// codeSuffix marks a path segment as an ephemeral code. It is stripped
	// before the cache lookup; codes without it are not ours to handle.
	codeSuffix = "_t"
	// minCodeLength is the floor on the stripped code. Anything shorter is
	// passed through untouched.
	minCodeLength = 6
	// generatedCodeLength is the stripped length of codes we mint.
	generatedCodeLength = 8

	linkKeyPrefix = "temp:link:"
	ipKeyPrefix   = "temp:ip:"
)

// ErrTooManyLinks is returned by Create when an IP already holds its
// maximum number of live codes.
var ErrTooManyLinks = errors.New("ephemeral: too many active links for ip")

// ErrInvalidURL is returned by Create for destinations that are not
// absolute http(s) URLs.
var ErrInvalidURL = errors.New("ephemeral: destination must be an absolute http(s) url")

// Action is the resolver's verdict on a candidate code.
type Action int

const (
	// ActionPass means the code is not a live ephemeral link; the caller
	// falls through to regular slug resolution.
	ActionPass Action = iota
	// ActionRedirect means Result.URL holds the destination.
	ActionRedirect
)

// Result is the outcome of resolving a candidate ephemeral code.
type Result struct {
	Action Action
	URL    string
}

// Store reads and writes ephemeral links in Redis.
type Store struct {
	client    *redis.Client
	log       logger.Logger
	window    time.Duration
	maxPerIP  int
	opTimeout time.Duration

	now     func() time.Time
	newCode func() string
}

// New creates a Store. window is the fixed lifetime renewed on every read;
// maxPerIP caps live codes per creator IP.
func New(client *redis.Client, window time.Duration, maxPerIP int, opTimeout time.Duration, log logger.Logger) *Store {
	return &Store{
		client:    client,
		log:       log,
		window:    window,
		maxPerIP:  maxPerIP,
		opTimeout: opTimeout,
		now:       time.Now,
		newCode:   generateCode,
	}
}

// Resolve checks whether a path segment is a live ephemeral code. Misses,
// malformed payloads, and detected expiry all pass through; only a valid
// live record redirects. A valid read increments the click counter and
// renews the record's TTL for a full window from now.
func (s *Store) Resolve(ctx context.Context, candidate string) Result {
	code, ok := eligibleCode(candidate)
	if !ok {
		return pass()
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	raw, err := s.client.Get(ctx, linkKeyPrefix+code).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("Ephemeral link read failed",
				logger.String("code", code),
				logger.Error(err),
			)
		}
		return pass()
	}

	var link domain.EphemeralLink
	if err := json.Unmarshal([]byte(raw), &link); err != nil {
		s.log.Warn("Malformed ephemeral link payload",
			logger.String("code", code),
			logger.Error(err),
		)
		return pass()
	}

	now := s.now()
	if link.Expired(now) {
		// Expired records must never be resurrected: delete eagerly so a
		// later read cannot race against a stale value.
		s.delete(ctx, code, link.CreatorIP)
		return pass()
	}

	// Best-effort: the redirect stands even if the counter rewrite fails.
	// Two concurrent reads can lose an increment; the counter is advisory.
	link.Clicks++
	link.ExpiresAt = now.Add(s.window)
	if err := s.persist(ctx, code, &link); err != nil {
		s.log.Warn("Ephemeral link renewal failed",
			logger.String("code", code),
			logger.Error(err),
		)
	}

	metrics.EphemeralResolvesTotal.WithLabelValues("redirect").Inc()
	return Result{Action: ActionRedirect, URL: link.URL}
}

// Create mints a new ephemeral link for a destination URL, enforcing the
// per-IP cap from the temp:ip set's cardinality. The returned Code carries
// the suffix marker and is what the creator shares.
func (s *Store) Create(ctx context.Context, destination, ip string) (*domain.EphemeralLink, error) {
	if !validDestination(destination) {
		return nil, ErrInvalidURL
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	active, err := s.client.SCard(ctx, ipKeyPrefix+ip).Result()
	if err != nil {
		return nil, fmt.Errorf("count active links for ip: %w", err)
	}
	if active >= int64(s.maxPerIP) {
		return nil, ErrTooManyLinks
	}

	code := s.newCode()
	now := s.now()
	link := &domain.EphemeralLink{
		URL:       destination,
		Code:      code + codeSuffix,
		CreatorIP: ip,
		CreatedAt: now,
		ExpiresAt: now.Add(s.window),
	}

	payload, err := json.Marshal(link)
	if err != nil {
		return nil, fmt.Errorf("marshal ephemeral link: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, linkKeyPrefix+code, payload, s.window)
	pipe.SAdd(ctx, ipKeyPrefix+ip, code)
	pipe.Expire(ctx, ipKeyPrefix+ip, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("persist ephemeral link: %w", err)
	}

	return link, nil
}

func (s *Store) persist(ctx context.Context, code string, link *domain.EphemeralLink) error {
	payload, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("marshal ephemeral link: %w", err)
	}
	if err := s.client.Set(ctx, linkKeyPrefix+code, payload, s.window).Err(); err != nil {
		return fmt.Errorf("rewrite ephemeral link: %w", err)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, code, creatorIP string) {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, linkKeyPrefix+code)
	if creatorIP != "" {
		pipe.SRem(ctx, ipKeyPrefix+creatorIP, code)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn("Expired ephemeral link cleanup failed",
			logger.String("code", code),
			logger.Error(err),
		)
	}
}

// eligibleCode strips the suffix marker and applies the length floor.
func eligibleCode(candidate string) (string, bool) {
	if !strings.HasSuffix(candidate, codeSuffix) {
		return "", false
	}
	code := strings.TrimSuffix(candidate, codeSuffix)
	if len(code) < minCodeLength {
		return "", false
	}
	return code, true
}

func validDestination(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func generateCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:generatedCodeLength]
}

func pass() Result {
	metrics.EphemeralResolvesTotal.WithLabelValues("pass").Inc()
	return Result{Action: ActionPass}
}
