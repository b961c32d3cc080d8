package gerrit

import "strings"

// quoteArg wraps value so the remote shell treats it as one literal
// argument. Single quotes pass everything through verbatim; an embedded
// single quote is closed out, escaped, and reopened.
func quoteArg(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
