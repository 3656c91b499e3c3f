// Package tsv parses tab-separated flashcard files for bulk import.
//
// The format is one card per line: word, translation, and optionally
// pronunciation and memo. Blank lines and # comments are ignored; lines
// that cannot become a card are reported rather than aborting the whole
// file.
package tsv

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// CardInput is one parsed line, ready for insertion.
type CardInput struct {
	Word          string
	Translation   string
	Pronunciation string
	Memo          string
}

// Skip records a line that was passed over and why.
type Skip struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Parse reads tab-separated card lines from r. It returns the parsed
// cards, the skipped lines, and an error only when reading itself fails.
func Parse(r io.Reader) ([]CardInput, []Skip, error) {
	var (
		cards []CardInput
		skips []Skip
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) > 4 {
			skips = append(skips, Skip{Line: lineNo, Reason: "too many columns"})
			continue
		}

		card := CardInput{
			Word:        strings.TrimSpace(fields[0]),
			Translation: "",
		}
		if len(fields) > 1 {
			card.Translation = strings.TrimSpace(fields[1])
		}
		if len(fields) > 2 {
			card.Pronunciation = strings.TrimSpace(fields[2])
		}
		if len(fields) > 3 {
			card.Memo = strings.TrimSpace(fields[3])
		}

		if card.Word == "" {
			skips = append(skips, Skip{Line: lineNo, Reason: "missing word"})
			continue
		}
		if card.Translation == "" {
			skips = append(skips, Skip{Line: lineNo, Reason: "missing translation"})
			continue
		}

		cards = append(cards, card)
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading input: %w", err)
	}

	return cards, skips, nil
}
