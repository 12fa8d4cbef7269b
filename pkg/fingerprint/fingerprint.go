// Package fingerprint produces deterministic content hashes used to skip
// reprocessing of already-seen documents.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

// FromPages creates a fingerprint over the cleaned text of every page. Page
// order matters; OCR confidences do not.
func FromPages(pages []models.PageText) string {
	var b strings.Builder
	for _, page := range pages {
		b.WriteString(strconv.Itoa(page.PageIndex))
		b.WriteByte(':')
		b.WriteString(page.CleanedText)
		b.WriteByte('\n')
	}
	return FromText(b.String())
}

// FromText creates a fingerprint from a single text blob
func FromText(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// HasChanged compares two fingerprints to detect changes
func HasChanged(oldFingerprint, newFingerprint string) bool {
	return oldFingerprint != newFingerprint
}
