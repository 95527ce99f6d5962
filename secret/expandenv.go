package secret

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// MissingEnvError lists the variables a strict expansion could not find.
type MissingEnvError struct {
	Names []string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("secret: missing environment variables: %s", strings.Join(e.Names, ", "))
}

// ExpandEnvStrict replaces $VAR and ${VAR} with their environment values.
// Any unset variable is an error; "$$" yields a literal "$".
func ExpandEnvStrict(s string) (string, error) {
	var missing []string
	var b strings.Builder
	for {
		i := strings.IndexByte(s, '$')
		if i < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:i])
		s = s[i:]
		if strings.HasPrefix(s, "$$") {
			b.WriteByte('$')
			s = s[2:]
			continue
		}
		name, width := envName(s[1:])
		if width == 0 {
			b.WriteByte('$')
			s = s[1:]
			continue
		}
		s = s[1+width:]
		v, ok := os.LookupEnv(name)
		if !ok {
			if !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
			continue
		}
		b.WriteString(v)
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", &MissingEnvError{Names: missing}
	}
	return b.String(), nil
}

// envName reads a variable name after '$', in braced or bare form, and
// reports how many bytes it consumed.
func envName(s string) (string, int) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 2 || !validName(s[1:end]) {
			return "", 0
		}
		return s[1:end], end + 1
	}
	n := 0
	for n < len(s) && isNameByte(s[n], n == 0) {
		n++
	}
	return s[:n], n
}

func validName(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isNameByte(s[i], i == 0) {
			return false
		}
	}
	return s != ""
}

func isNameByte(c byte, first bool) bool {
	switch {
	case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		return true
	case '0' <= c && c <= '9':
		return !first
	}
	return false
}
