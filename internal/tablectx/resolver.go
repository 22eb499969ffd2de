// Package tablectx turns a raw table route parameter into a table identity.
package tablectx

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"qrorder/internal/tokencodec"
)

type Mode string

const (
	ModeNumeric Mode = "numeric"
	ModeToken   Mode = "token"
)

type Reason string

const (
	ReasonEmptyParam        Reason = "EmptyParam"
	ReasonOutOfRange        Reason = "OutOfRange"
	ReasonMalformedToken    Reason = "MalformedToken"
	ReasonDecryptionFailed  Reason = "DecryptionFailed"
	ReasonDecryptionTimeout Reason = "DecryptionTimeout"
)

// Identity is the resolved table. When Valid is false only Reason is meaningful.
type Identity struct {
	Mode        Mode   `json:"mode,omitempty"`
	TableNumber int    `json:"tableNumber,omitempty"`
	StallID     string `json:"stallId,omitempty"`
	RawToken    string `json:"rawToken,omitempty"`
	Valid       bool   `json:"valid"`
	Reason      Reason `json:"reason,omitempty"`
	Fixture     bool   `json:"fixture,omitempty"`
}

// Key identifies the table for cart binding and rate-limit keys.
func (id Identity) Key() string {
	if id.Mode == ModeToken {
		return tokencodec.EncodeTable(id.TableNumber, id.StallID)
	}
	return strconv.Itoa(id.TableNumber)
}

// Decrypter decodes a table token into number and stall.
type Decrypter interface {
	DecryptTable(ctx context.Context, token string) (int, string, error)
}

// ErrTimeout is returned by decrypters that gave up waiting.
var ErrTimeout = errors.New("token decryption timed out")

var numericRe = regexp.MustCompile(`^\d+$`)

type Resolver struct {
	dec Decrypter
}

func NewResolver(dec Decrypter) *Resolver {
	return &Resolver{dec: dec}
}

// Resolve never substitutes placeholder data. The only error it returns is
// tokencodec.ErrConfiguration; every other failure is an invalid Identity.
func (r *Resolver) Resolve(ctx context.Context, segments ...string) (Identity, error) {
	raw := Normalize(segments...)
	if raw == "" {
		return invalid(ReasonEmptyParam), nil
	}

	if numericRe.MatchString(raw) {
		n, err := strconv.Atoi(raw)
		if err != nil || n < tokencodec.MinTable || n > tokencodec.MaxTable {
			return invalid(ReasonOutOfRange), nil
		}
		return Identity{Mode: ModeNumeric, TableNumber: n, Valid: true}, nil
	}

	if !tokencodec.LooksLikeToken(raw) {
		return invalid(ReasonMalformedToken), nil
	}

	n, stall, err := r.dec.DecryptTable(ctx, raw)
	switch {
	case err == nil:
		return Identity{Mode: ModeToken, TableNumber: n, StallID: stall, RawToken: raw, Valid: true}, nil
	case errors.Is(err, tokencodec.ErrConfiguration):
		return Identity{}, err
	case errors.Is(err, ErrTimeout):
		slog.Warn("table token decryption timed out")
		return invalid(ReasonDecryptionTimeout), nil
	case errors.Is(err, tokencodec.ErrTableRange):
		slog.Warn("table token format invalid", "error", err)
		return invalid(ReasonOutOfRange), nil
	case errors.Is(err, tokencodec.ErrFormat), errors.Is(err, tokencodec.ErrMalformedToken), errors.Is(err, tokencodec.ErrInvalidIVLength):
		slog.Warn("table token format invalid", "error", err)
		return invalid(ReasonMalformedToken), nil
	default:
		slog.Warn("table token decryption failed", "error", err)
		return invalid(ReasonDecryptionFailed), nil
	}
}

// Normalize rejoins path segments with ':' (routers may split a token on it)
// and URL-decodes once. A value that fails to decode is kept as is.
func Normalize(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	raw := strings.Join(parts, ":")

	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	return strings.TrimSpace(raw)
}

// WithFixture replaces an invalid identity by table 1 flagged as a fixture.
// Callers must only use it outside production.
func WithFixture(id Identity) Identity {
	if id.Valid {
		return id
	}
	return Identity{Mode: ModeNumeric, TableNumber: 1, Valid: true, Fixture: true, Reason: id.Reason}
}

func invalid(reason Reason) Identity {
	return Identity{Valid: false, Reason: reason}
}
