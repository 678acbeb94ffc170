package debug

import (
	"regexp"
	"strings"
)

// Redacted replaces every redacted value
const Redacted = "[REDACTED]"

var homeDirPattern = regexp.MustCompile(`(/home|/Users)/[^/\s"',;:]+`)

// Redactor hides user names in home directory paths and a fixed set of secrets
type Redactor struct {
	secrets []string
}

// NewRedactor returns a redactor for the given secrets; empty values are ignored
func NewRedactor(secrets ...string) *Redactor {
	r := &Redactor{}
	for _, s := range secrets {
		if strings.TrimSpace(s) != "" {
			r.secrets = append(r.secrets, s)
		}
	}
	return r
}

// Redact returns s with secrets and home directory user names replaced
func (r *Redactor) Redact(s string) string {
	for _, secret := range r.secrets {
		s = strings.ReplaceAll(s, secret, Redacted)
	}
	return homeDirPattern.ReplaceAllString(s, "$1/"+Redacted)
}

// Transform adapts Redact to archiver.ArchiveOptions.Transform
func (r *Redactor) Transform(_ string, data []byte) []byte {
	return []byte(r.Redact(string(data)))
}
