package plan

// ExtractJSONObject returns the first balanced brace-delimited object found
// anywhere in text, or "" if none exists. The scan is string-aware so braces
// inside JSON strings don't unbalance it. Backends often wrap their JSON in
// prose or code fences; this cuts straight through both.
func ExtractJSONObject(text string) string {
	start := -1
	for i := 0; i < len(text); i++ {
		if text[i] == '{' {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
