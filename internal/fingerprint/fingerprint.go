// Package fingerprint computes the change-detection token of a settings
// record. The same token is used by the client as its local ETag and by the
// profile backend as the ETag of stored settings, so both sides must agree
// on the exact serialization.
package fingerprint

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/saywhat/internal/models"
)

// Settings returns the FNV-1a 32-bit hash of the pipe-joined settings fields
// as 8 lowercase hex digits. Field order is part of the format.
func Settings(s models.Settings) string {
	g := s.GenerationSettings
	parts := []string{
		s.APIKey,
		s.APIRoot,
		g.OutputFormat,
		g.OptimizeStreamingLatency,
		g.VoiceID,
		g.ModelID,
		formatFloat(g.VoiceSettings.SimilarityBoost),
		formatFloat(g.VoiceSettings.Stability),
		g.PronunciationDictionary,
	}
	return String(strings.Join(parts, "|"))
}

// String hashes an arbitrary string the same way Settings does.
func String(s string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}

// formatFloat renders the shortest representation that round-trips,
// so 0.5 is "0.5" and 1 is "1".
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
