package alias

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/yungbote/scopes-backend/internal/domain/scope"
)

// DefaultMaxGenerationAttempts bounds canonical name retries on collision.
const DefaultMaxGenerationAttempts = 10

// GenerateName derives a candidate such as "quiet-river-a4f7" for attempt.
// The words come from the low 20 bits of the ULID entropy so scopes minted
// in the same millisecond do not share a seed.
func GenerateName(id scope.ID, attempt int) Name {
	b := id.ULID
	seed := uint32(b[13]&0x0f)<<16 | uint32(b[14])<<8 | uint32(b[15])

	adj := adjectives[int(seed)%len(adjectives)]
	noun := nouns[(int(seed)/len(adjectives))%len(nouns)]

	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(attempt))
	h := sha256.New()
	h.Write(b[:])
	h.Write(n[:])
	token := hex.EncodeToString(h.Sum(nil))[:4]

	return Name(fmt.Sprintf("%s-%s-%s", adj, noun, token))
}

// Generate returns the first candidate for which taken reports false.
func Generate(id scope.ID, maxAttempts int, taken func(Name) (bool, error)) (Name, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxGenerationAttempts
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		name := GenerateName(id, attempt)
		used, err := taken(name)
		if err != nil {
			return "", err
		}
		if !used {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: scope %s after %d attempts", ErrGenerationExhausted, id, maxAttempts)
}
