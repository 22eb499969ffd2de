package tablectx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"qrorder/internal/tokencodec"
)

// LocalDecrypter decrypts with an in-process codec.
type LocalDecrypter struct {
	Codec *tokencodec.Codec
}

func (d LocalDecrypter) DecryptTable(_ context.Context, token string) (int, string, error) {
	return d.Codec.DecryptTable(token)
}

// RemoteDecrypter asks a peer's /decrypt-token endpoint. Used by deployments
// where the encryption key lives on a separate service.
type RemoteDecrypter struct {
	baseURL string
	client  *http.Client
}

type decryptTokenResponse struct {
	TableNumber int    `json:"tableNumber"`
	StallID     string `json:"stallId"`
	Error       string `json:"error"`
	Code        string `json:"code"`
}

func NewRemoteDecrypter(baseURL string, timeout time.Duration) *RemoteDecrypter {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RemoteDecrypter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (d *RemoteDecrypter) DecryptTable(ctx context.Context, token string) (int, string, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return 0, "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/decrypt-token", bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return 0, "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return 0, "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	var res decryptTokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&res); err != nil {
		return 0, "", fmt.Errorf("decode response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		if res.TableNumber < tokencodec.MinTable || res.TableNumber > tokencodec.MaxTable {
			return 0, "", fmt.Errorf("%w: %d", tokencodec.ErrTableRange, res.TableNumber)
		}
		return res.TableNumber, res.StallID, nil
	case http.StatusBadRequest:
		return 0, "", fmt.Errorf("%w: %s", errorForCode(res.Code), res.Error)
	case http.StatusInternalServerError:
		if res.Code == CodeConfiguration {
			return 0, "", tokencodec.ErrConfiguration
		}
		return 0, "", fmt.Errorf("unexpected status: %d, body: %s", resp.StatusCode, res.Error)
	default:
		return 0, "", fmt.Errorf("unexpected status: %d, body: %s", resp.StatusCode, res.Error)
	}
}

// Error codes shared with the /decrypt-token handler.
const (
	CodeConfiguration    = "configuration"
	CodeMalformedToken   = "malformed_token"
	CodeFormat           = "format"
	CodeOutOfRange       = "out_of_range"
	CodeDecryptionFailed = "decryption_failed"
)

// ErrorCode maps a codec error to the code reported by /decrypt-token.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, tokencodec.ErrConfiguration):
		return CodeConfiguration
	case errors.Is(err, tokencodec.ErrMalformedToken), errors.Is(err, tokencodec.ErrInvalidIVLength):
		return CodeMalformedToken
	case errors.Is(err, tokencodec.ErrTableRange):
		return CodeOutOfRange
	case errors.Is(err, tokencodec.ErrFormat):
		return CodeFormat
	default:
		return CodeDecryptionFailed
	}
}

func errorForCode(code string) error {
	switch code {
	case CodeMalformedToken:
		return tokencodec.ErrMalformedToken
	case CodeOutOfRange:
		return tokencodec.ErrTableRange
	case CodeFormat:
		return tokencodec.ErrFormat
	default:
		return tokencodec.ErrDecryption
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
