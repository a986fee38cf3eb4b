package generate

import (
	"bytes"
	"regexp"
	"sort"
	"strings"
)

// Generator output must be a deterministic function of (revision, config).
// Some generators embed run timestamps or emit declarations in hash order;
// canonicalization strips the former and stabilizes the latter so identical
// inputs always yield byte-identical candidates and no-op runs stay no-ops.

// timestampBanner matches generated-at banner lines that vary between runs.
var timestampBanner = regexp.MustCompile(`(?i)^\s*(//|/\*|#)\s*(auto-)?generated\b.*\b(on|at|date)[:\s].*$`)

// unstableMarkers are output fragments that indicate a run-dependent value
// survived canonicalization.
var unstableMarkers = []*regexp.Regexp{
	regexp.MustCompile(`\b20\d{2}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}`), // embedded timestamps
	regexp.MustCompile(`\b0x[0-9a-fA-F]{12,16}\b`),                   // pointer-looking values
}

// Canonicalize rewrites raw generator output into canonical form:
// LF line endings, no timestamp banners, top-level declaration blocks in
// stable order, single trailing newline.
func Canonicalize(raw []byte) []byte {
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if timestampBanner.MatchString(line) {
			continue
		}
		kept = append(kept, strings.TrimRight(line, " \t"))
	}
	text = strings.Join(kept, "\n")

	preamble, decls := splitPreamble(text)
	sort.Strings(decls)

	var out strings.Builder
	if preamble != "" {
		out.WriteString(preamble)
	}
	for _, block := range decls {
		if out.Len() > 0 {
			out.WriteString("\n\n")
		}
		out.WriteString(block)
	}

	result := strings.TrimRight(out.String(), "\n") + "\n"
	return []byte(result)
}

// splitPreamble separates the package clause and import block, which must
// keep their position, from the declaration blocks, which may be reordered.
func splitPreamble(text string) (string, []string) {
	blocks := strings.Split(strings.TrimSpace(text), "\n\n")
	if len(blocks) == 0 {
		return "", nil
	}

	preambleEnd := 0
	for i, block := range blocks {
		trimmed := strings.TrimSpace(block)
		if strings.HasPrefix(trimmed, "package ") ||
			strings.HasPrefix(trimmed, "import ") ||
			strings.HasPrefix(trimmed, "//") && i == 0 {
			preambleEnd = i + 1
			continue
		}
		break
	}

	preamble := strings.Join(blocks[:preambleEnd], "\n\n")
	decls := make([]string, 0, len(blocks)-preambleEnd)
	for _, block := range blocks[preambleEnd:] {
		if strings.TrimSpace(block) == "" {
			continue
		}
		decls = append(decls, block)
	}
	return preamble, decls
}

// CheckDeterministic scans canonicalized output for run-dependent values
// that would make byte comparison unstable. Finding one means the
// canonicalizer missed something, which would cause spurious publishes.
func CheckDeterministic(artifact []byte) error {
	for _, marker := range unstableMarkers {
		if loc := marker.Find(artifact); loc != nil {
			return unstableOutputError(string(loc))
		}
	}
	if bytes.Contains(artifact, []byte("\r\n")) {
		return unstableOutputError("CRLF line ending")
	}
	return nil
}
