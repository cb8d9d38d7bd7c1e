package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mwhitlock/tether/internal/models"
)

const secretPrefix = "whsec_"

// Verifier checks the signature the identity provider attaches to every
// webhook delivery. The provider signs the string "id.timestamp.body"
// with HMAC-SHA256 under a shared base64 secret and sends the result in a
// versioned, possibly multi-valued signature header. Any missing header or
// mismatch is fatal and non-retryable.
type Verifier struct {
	key       []byte
	tolerance time.Duration

	// now is swappable for tests.
	now func() time.Time
}

func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("webhook signing secret is required")
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, secretPrefix))
	if err != nil {
		return nil, fmt.Errorf("webhook signing secret is not valid base64: %w", err)
	}

	return &Verifier{
		key:       key,
		tolerance: tolerance,
		now:       time.Now,
	}, nil
}

// Verify checks the id/timestamp/signature header triple against the raw
// request body. Returns models.ErrVerificationFailed (wrapped) on any
// failure; callers must reject the delivery with a 400-class response.
func (v *Verifier) Verify(id, timestamp, signature string, payload []byte) error {
	if id == "" || timestamp == "" || signature == "" {
		return fmt.Errorf("%w: missing signature headers", models.ErrVerificationFailed)
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed timestamp", models.ErrVerificationFailed)
	}

	drift := v.now().Sub(time.Unix(ts, 0))
	if drift > v.tolerance || drift < -v.tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", models.ErrVerificationFailed)
	}

	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(id))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	// The header may carry several space-separated versioned signatures
	// (e.g. during secret rotation). Any one match accepts the delivery.
	for _, candidate := range strings.Fields(signature) {
		version, sig, found := strings.Cut(candidate, ",")
		if !found || version != "v1" {
			continue
		}

		decoded, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}

		if hmac.Equal(decoded, expected) {
			return nil
		}
	}

	return fmt.Errorf("%w: no matching signature", models.ErrVerificationFailed)
}
