package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/BrandonDHaskell/muster/internal/muster/types"
)

const hashPrefix = "sha256:"

// Hash digests the entry with its Hash field cleared. AuditEntry has a fixed
// field order, so json.Marshal is deterministic.
func Hash(e types.AuditEntry) (string, error) {
	e.Hash = ""
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("hash audit entry: %w", err)
	}
	sum := sha256.Sum256(b)
	return hashPrefix + hex.EncodeToString(sum[:]), nil
}

// VerifyChain checks entries in append order: each hash must match its
// content and each PrevHash must equal the previous entry's Hash. It returns
// the index of the first broken entry, or -1.
func VerifyChain(entries []types.AuditEntry) int {
	prev := ""
	for i, e := range entries {
		if e.PrevHash != prev {
			return i
		}
		h, err := Hash(e)
		if err != nil || h != e.Hash {
			return i
		}
		prev = e.Hash
	}
	return -1
}
