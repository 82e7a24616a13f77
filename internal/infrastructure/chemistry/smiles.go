package chemistry

import (
	"regexp"
	"strings"
)

var validSMILESChars = regexp.MustCompile(`^[A-Za-z0-9@+\-\[\]()=#$/\\%.*:~]+$`)

var smilesValidAtoms = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true, "S": true,
	"F": true, "Cl": true, "Br": true, "I": true,
	"c": true, "n": true, "o": true, "s": true, "p": true,
	"b": true, "*": true,
}

// stripExtension drops a ChemAxon extended-SMILES suffix ("C[*] |$_R1$|").
func stripExtension(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, " |"); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

func checkParenthesesBalance(s string) bool {
	depth := 0
	for _, ch := range s {
		if ch == '(' {
			depth++
		} else if ch == ')' {
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// checkBracketBalance also rejects nested brackets: an atom in brackets
// cannot contain another.
func checkBracketBalance(s string) bool {
	open := false
	for _, ch := range s {
		switch ch {
		case '[':
			if open {
				return false
			}
			open = true
		case ']':
			if !open {
				return false
			}
			open = false
		}
	}
	return !open
}

func checkRingClosures(s string) bool {
	counts := make(map[string]int)
	inBracket := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '[':
			inBracket = true
		case ch == ']':
			inBracket = false
		case inBracket:
		case ch == '%':
			if i+2 >= len(s) || !isDigit(s[i+1]) || !isDigit(s[i+2]) {
				return false
			}
			counts[s[i+1:i+3]]++
			i += 2
		case isDigit(ch):
			counts[string(ch)]++
		}
	}
	for _, c := range counts {
		if c%2 != 0 {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// checkSMILESAtoms checks organic-subset atoms outside brackets and returns
// the number of atoms seen, bracket atoms included.
func checkSMILESAtoms(s string) (int, bool) {
	atoms := 0
	inBracket := false
	for i := 0; i < len(s); {
		ch := s[i]
		if ch == '[' {
			inBracket = true
			atoms++
			i++
			continue
		}
		if ch == ']' {
			inBracket = false
			i++
			continue
		}
		if inBracket || isSMILESSpecialChar(ch) {
			i++
			continue
		}
		if i+1 < len(s) && smilesValidAtoms[s[i:i+2]] {
			atoms++
			i += 2
			continue
		}
		if smilesValidAtoms[s[i:i+1]] {
			atoms++
			i++
			continue
		}
		return atoms, false
	}
	return atoms, true
}

func isSMILESSpecialChar(ch byte) bool {
	switch ch {
	case '(', ')', '.', '=', '#', '$', ':', '/', '\\', '@', '+', '-', '%', '~',
		'0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return true
	}
	return false
}

// checkBonds rejects bonds that dangle at the start or end of a branch or
// the string.
func checkBonds(s string) bool {
	const bonds = "=#$/\\~"
	if s == "" || strings.ContainsRune(bonds, rune(s[0])) || strings.ContainsRune(bonds, rune(s[len(s)-1])) {
		return false
	}
	inBracket := false
	for i := 0; i < len(s)-1; i++ {
		switch s[i] {
		case '[':
			inBracket = true
		case ']':
			inBracket = false
		}
		if inBracket {
			continue
		}
		if strings.IndexByte(bonds, s[i]) >= 0 && (s[i+1] == ')' || s[i+1] == '.') {
			return false
		}
		if s[i] == '(' && s[i+1] == ')' {
			return false
		}
	}
	return true
}
