// internal/evidence/dedup.go
package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"research-orchestrator/internal/models"
)

// contentHashPrefix is how much of the content participates in the derived
// dedup key when no origin URL is present.
const contentHashPrefix = 100

// DedupKey derives the deduplication key for one evidence item. The origin
// URL wins when present; otherwise the key is a hash over the source kind
// and the first 100 characters of the content.
func DedupKey(ev models.Evidence) string {
	if url := strings.TrimSpace(ev.OriginURL); url != "" {
		return url
	}

	content := ev.Content
	if len(content) > contentHashPrefix {
		content = content[:contentHashPrefix]
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s", ev.SourceKind, content)))
	return hex.EncodeToString(sum[:])
}

// Merge folds incoming evidence into the existing set keyed by dedup key.
// On a key collision the earlier item is kept and only its metadata map is
// merged, union of keys with later values winning. Content is never
// overwritten, which makes the merge idempotent and order-independent for
// distinct keys.
//
// The existing map is mutated and returned.
func Merge(existing map[string]models.Evidence, incoming []models.Evidence) map[string]models.Evidence {
	if existing == nil {
		existing = make(map[string]models.Evidence, len(incoming))
	}

	for _, ev := range incoming {
		key := DedupKey(ev)

		prior, ok := existing[key]
		if !ok {
			existing[key] = ev
			continue
		}

		if len(ev.Metadata) > 0 {
			if prior.Metadata == nil {
				prior.Metadata = make(map[string]interface{}, len(ev.Metadata))
			}
			for k, v := range ev.Metadata {
				prior.Metadata[k] = v
			}
			existing[key] = prior
		}
	}

	return existing
}

// Flatten returns the deduplicated evidence items in unspecified order.
func Flatten(set map[string]models.Evidence) []models.Evidence {
	out := make([]models.Evidence, 0, len(set))
	for _, ev := range set {
		out = append(out, ev)
	}
	return out
}
