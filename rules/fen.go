package rules

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// validateFEN checks the structure of a FEN record and fills in missing move
// counters, returning the normalized record and its halfmove clock.
func validateFEN(fen string) (string, int, error) {
	fields := strings.Fields(fen)
	switch len(fields) {
	case 4:
		fields = append(fields, "0", "1")
	case 5:
		fields = append(fields, "1")
	case 6:
	default:
		return "", 0, fmt.Errorf("%w: expected 4 to 6 fields, got %d", ErrInvalidFEN, len(fields))
	}

	if err := validatePlacement(fields[0]); err != nil {
		return "", 0, err
	}
	if fields[1] != "w" && fields[1] != "b" {
		return "", 0, fmt.Errorf("%w: side to move %q", ErrInvalidFEN, fields[1])
	}
	if fields[2] != "-" {
		for _, c := range fields[2] {
			if !strings.ContainsRune("KQkq", c) {
				return "", 0, fmt.Errorf("%w: castling rights %q", ErrInvalidFEN, fields[2])
			}
		}
	}
	if ep := fields[3]; ep != "-" {
		if len(ep) != 2 || ep[0] < 'a' || ep[0] > 'h' || (ep[1] != '3' && ep[1] != '6') {
			return "", 0, fmt.Errorf("%w: en passant square %q", ErrInvalidFEN, ep)
		}
	}
	halfmove, err := strconv.Atoi(fields[4])
	if err != nil || halfmove < 0 {
		return "", 0, fmt.Errorf("%w: halfmove clock %q", ErrInvalidFEN, fields[4])
	}
	fullmove, err := strconv.Atoi(fields[5])
	if err != nil || fullmove < 0 {
		return "", 0, fmt.Errorf("%w: fullmove number %q", ErrInvalidFEN, fields[5])
	}
	return strings.Join(fields, " "), halfmove, nil
}

func validatePlacement(placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%w: expected 8 ranks, got %d", ErrInvalidFEN, len(ranks))
	}
	kings := map[rune]int{}
	for i, rank := range ranks {
		files := 0
		for _, c := range rank {
			switch {
			case c >= '1' && c <= '8':
				files += int(c - '0')
			case strings.ContainsRune("pnbrqkPNBRQK", c):
				files++
				if c == 'k' || c == 'K' {
					kings[c]++
				}
			default:
				return fmt.Errorf("%w: unexpected %q in rank %d", ErrInvalidFEN, c, 8-i)
			}
		}
		if files != 8 {
			return fmt.Errorf("%w: rank %d spans %d files", ErrInvalidFEN, 8-i, files)
		}
	}
	if kings['K'] != 1 || kings['k'] != 1 {
		return fmt.Errorf("%w: need exactly one king per side", ErrInvalidFEN)
	}
	return nil
}

// MirrorFEN flips the board vertically and swaps colours, producing the same
// position seen from the other side.
func MirrorFEN(fen string) (string, error) {
	normalized, _, err := validateFEN(fen)
	if err != nil {
		return "", err
	}
	fields := strings.Fields(normalized)

	ranks := strings.Split(fields[0], "/")
	for i, j := 0, len(ranks)-1; i < j; i, j = i+1, j-1 {
		ranks[i], ranks[j] = ranks[j], ranks[i]
	}
	fields[0] = swapCase(strings.Join(ranks, "/"))

	if fields[1] == "w" {
		fields[1] = "b"
	} else {
		fields[1] = "w"
	}

	if fields[2] != "-" {
		var castling strings.Builder
		swapped := swapCase(fields[2])
		for _, c := range "KQkq" {
			if strings.ContainsRune(swapped, c) {
				castling.WriteRune(c)
			}
		}
		fields[2] = castling.String()
	}

	if ep := fields[3]; ep != "-" {
		rank := byte('3')
		if ep[1] == '3' {
			rank = '6'
		}
		fields[3] = string([]byte{ep[0], rank})
	}
	return strings.Join(fields, " "), nil
}

func swapCase(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsUpper(r) {
			return unicode.ToLower(r)
		}
		return unicode.ToUpper(r)
	}, s)
}
