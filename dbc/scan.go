package dbc

// The scanning helpers take a line and a position within it and return the
// position just past the run they recognise. When there is no such run the
// input position is returned unchanged, so callers detect an absent field by
// comparing the two. None of them read past len(s).

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// skipSpaces advances over whitespace.
func skipSpaces(s string, pos int) int {
	for pos < len(s) && isSpace(s[pos]) {
		pos++
	}
	return pos
}

// skipNonSpaces advances over anything that isn't whitespace.
func skipNonSpaces(s string, pos int) int {
	for pos < len(s) && !isSpace(s[pos]) {
		pos++
	}
	return pos
}

// skipUnsigned advances over a run of decimal digits.
func skipUnsigned(s string, pos int) int {
	for pos < len(s) && isDigit(s[pos]) {
		pos++
	}
	return pos
}

// skipSigned advances over digits with one optional leading '+' or '-'.
// A lone sign is not a numeral.
func skipSigned(s string, pos int) int {
	i := pos
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	end := skipUnsigned(s, i)
	if end == i {
		return pos
	}
	return end
}

// skipFloat advances over a signed numeral, one optional fraction and one
// optional exponent.
func skipFloat(s string, pos int) int {
	end := skipSigned(s, pos)
	if end == pos {
		return pos
	}
	if end < len(s) && s[end] == '.' {
		end = skipUnsigned(s, end+1)
	}
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		if exp := skipSigned(s, end+1); exp != end+1 {
			end = exp
		}
	}
	return end
}

// skipUntil advances to the first occurrence of c, or to the end of s.
func skipUntil(s string, pos int, c byte) int {
	for pos < len(s) && s[pos] != c {
		pos++
	}
	return pos
}

// at returns the byte at pos, or 0 past the end of s.
func at(s string, pos int) byte {
	if pos < len(s) {
		return s[pos]
	}
	return 0
}
