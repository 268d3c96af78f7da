package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)
)

// MaxPadWidth bounds zero padding so formatted numbers stay readable.
const MaxPadWidth = 18

// FormatInvoiceNumber renders prefix followed by seq zero-padded to padWidth.
// The prefix may carry the date tokens {YYYY} {YY} {MM} {DD}, resolved against issuedAt.
//
// This function is PURE:
// - No side effects
// - No DB access
// - Fully deterministic
func FormatInvoiceNumber(prefix string, padWidth int, issuedAt time.Time, seq int64) (string, error) {
	if seq <= 0 {
		return "", fmt.Errorf("invalid invoice sequence: %d", seq)
	}
	if padWidth < 0 || padWidth > MaxPadWidth {
		return "", fmt.Errorf("invalid pad width: %d", padWidth)
	}

	template := prefix + "{SEQ}"
	if padWidth > 0 {
		template = prefix + "{SEQ" + strconv.Itoa(padWidth) + "}"
	}
	return render(template, issuedAt, seq)
}

// ValidatePrefix reports whether prefix only uses supported tokens.
func ValidatePrefix(prefix string) error {
	if strings.Contains(prefix, "{SEQ") {
		return fmt.Errorf("sequence token is not allowed in prefix: %s", prefix)
	}
	_, err := render(prefix+"{SEQ}", time.Unix(0, 0).UTC(), 1)
	return err
}

func render(template string, issuedAt time.Time, seq int64) (string, error) {
	out := template

	// Date tokens
	out = strings.ReplaceAll(out, "{YYYY}", issuedAt.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", issuedAt.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", issuedAt.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", issuedAt.Format("02"))

	out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(seq, 10))

	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		if len(match) != 2 {
			return m
		}

		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}

		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", fmt.Errorf("unresolved token in invoice format: %s", out)
	}

	return out, nil
}
