package settings

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// Normalize rewrites settings text into dotenv lines viper can decode.
//
// Text after a "//" comment marker is dropped (see stripComment). Blank
// lines, lines starting with "#", and lines without "=" are ignored. The
// first occurrence of a key wins. Values are single-quoted so the dotenv
// decoder neither expands "$" nor strips "#".
func Normalize(data []byte) []byte {
	var out bytes.Buffer
	seen := make(map[string]bool)

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(stripComment(sc.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = strings.TrimSpace(value)
		if !validKey(key) || seen[strings.ToUpper(key)] {
			continue
		}
		seen[strings.ToUpper(key)] = true

		if strings.Contains(value, "'") {
			fmt.Fprintf(&out, "%s=%s\n", key, value)
			continue
		}
		fmt.Fprintf(&out, "%s='%s'\n", key, value)
	}
	return out.Bytes()
}

// stripComment cuts the line at the first "//" not directly preceded by
// ":", so "4096//max" becomes "4096" while "https://host" is kept.
func stripComment(line string) string {
	for i := 0; i+1 < len(line); i++ {
		if line[i] == '/' && line[i+1] == '/' && (i == 0 || line[i-1] != ':') {
			return line[:i]
		}
	}
	return line
}

func validKey(key string) bool {
	if key == "" {
		return false
	}
	for i, r := range key {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
