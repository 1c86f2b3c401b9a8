// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package answer

// repairJSON fixes common formatting slips in model-produced JSON:
// single-quoted strings, keys missing one or both quotes and trailing commas
// before a closing bracket. Input that is already valid passes through
// unchanged.
func repairJSON(s string) string {
	return removeTrailingCommas(quoteKeys(convertSingleQuotes(s)))
}

// convertSingleQuotes rewrites 'single-quoted' strings as double-quoted ones.
// A quote closes the string only when the next non-space rune ends a JSON
// value, so apostrophes inside words survive.
func convertSingleQuotes(s string) string {
	src := []rune(s)
	out := make([]rune, 0, len(src)+8)
	inDouble, inSingle := false, false

	for i := 0; i < len(src); i++ {
		ch := src[i]

		switch {
		case inDouble:
			out = append(out, ch)
			if ch == '\\' && i+1 < len(src) {
				i++
				out = append(out, src[i])
			} else if ch == '"' {
				inDouble = false
			}

		case inSingle:
			switch ch {
			case '\\':
				if i+1 < len(src) && src[i+1] == '\'' {
					i++
					out = append(out, '\'')
				} else if i+1 < len(src) {
					i++
					out = append(out, ch, src[i])
				}
			case '"':
				out = append(out, '\\', '"')
			case '\'':
				if closesValue(src, i+1) {
					out = append(out, '"')
					inSingle = false
				} else {
					out = append(out, ch)
				}
			default:
				out = append(out, ch)
			}

		case ch == '"':
			out = append(out, ch)
			inDouble = true

		case ch == '\'':
			out = append(out, '"')
			inSingle = true

		default:
			out = append(out, ch)
		}
	}

	return string(out)
}

// closesValue reports whether the first non-space rune at or after i ends a
// JSON value.
func closesValue(src []rune, i int) bool {
	for i < len(src) && isSpace(src[i]) {
		i++
	}
	if i == len(src) {
		return true
	}
	switch src[i] {
	case ',', ':', ']', '}':
		return true
	}
	return false
}

// quoteKeys quotes object keys written as `key":` or `key:`.
func quoteKeys(s string) string {
	src := []rune(s)
	out := make([]rune, 0, len(src)+16)
	inString := false

	for i := 0; i < len(src); i++ {
		ch := src[i]

		if inString {
			out = append(out, ch)
			if ch == '\\' && i+1 < len(src) {
				i++
				out = append(out, src[i])
			} else if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			out = append(out, ch)
			inString = true
			continue
		}

		out = append(out, ch)
		if ch != '{' && ch != ',' {
			continue
		}

		// Copy whitespace after { or ,
		j := i + 1
		for j < len(src) && isSpace(src[j]) {
			out = append(out, src[j])
			j++
		}
		i = j - 1

		if j >= len(src) || !isLetter(src[j]) {
			continue
		}

		// Scan a bare identifier
		k := j
		for k < len(src) && (isLetter(src[k]) || src[k] == '_' || (src[k] >= '0' && src[k] <= '9')) {
			k++
		}
		key := src[j:k]

		switch {
		case k+1 < len(src) && src[k] == '"' && src[k+1] == ':':
			// key": -> "key":
			out = append(out, '"')
			out = append(out, key...)
			out = append(out, '"')
			i = k
		case k < len(src) && src[k] == ':':
			// key: -> "key":
			out = append(out, '"')
			out = append(out, key...)
			out = append(out, '"')
			i = k - 1
		}
	}

	return string(out)
}

// removeTrailingCommas drops a comma that is followed only by whitespace and
// then a closing bracket or brace.
func removeTrailingCommas(s string) string {
	src := []rune(s)
	out := make([]rune, 0, len(src))
	inString := false

	for i := 0; i < len(src); i++ {
		ch := src[i]
		if inString {
			out = append(out, ch)
			if ch == '\\' && i+1 < len(src) {
				i++
				out = append(out, src[i])
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
		}
		if ch == ',' {
			j := i + 1
			for j < len(src) && isSpace(src[j]) {
				j++
			}
			if j < len(src) && (src[j] == ']' || src[j] == '}') {
				continue
			}
		}
		out = append(out, ch)
	}
	return string(out)
}

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
