// Package validate performs static checks on Mojo source before it is
// handed to the compiler.
//
// The checks are deliberately conservative: they only flag constructs that
// are certain to fail compilation or execution, such as a missing entry
// point or Python idioms that Mojo rejects. Anything ambiguous is left for
// the compiler to judge. Every rule runs against the full source and all
// findings are accumulated, so a single pass reports everything it can.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// Severity classifies a finding.
type Severity int

const (
	// Blocking findings prevent compilation.
	Blocking Severity = iota

	// Info findings are reported but do not stop the pipeline.
	Info
)

func (s Severity) String() string {
	switch s {
	case Blocking:
		return "blocking"
	case Info:
		return "info"
	default:
		return "unknown"
	}
}

// Finding is one problem discovered in the source. Line is 1-based and zero
// when the finding applies to the source as a whole.
type Finding struct {
	Severity Severity
	Line     int
	Message  string
}

func (f Finding) String() string {
	if f.Line > 0 {
		return fmt.Sprintf("line %d: %s", f.Line, f.Message)
	}

	return f.Message
}

// Error is returned by the runner when blocking findings are present. It
// carries every finding from the pass, not just the blocking ones.
type Error struct {
	Findings []Finding
}

func (e *Error) Error() string {
	return fmt.Sprintf("source validation failed with %d finding(s)", len(e.Findings))
}

// Rule is a single named check over the source lines. Rules are independent
// of each other so they can be tested in isolation and reordered freely.
type Rule struct {
	Name  string
	Check func(lines []string) []Finding
}

// Rules returns the full rule set in the order findings are reported.
func Rules() []Rule {
	return []Rule{
		{Name: "non-empty", Check: checkNonEmpty},
		{Name: "entry-point", Check: checkEntryPoint},
		{Name: "indentation", Check: checkIndentation},
		{Name: "file-scope", Check: checkFileScope},
		{Name: "declaration-colon", Check: checkDeclarationColon},
		{Name: "let-keyword", Check: checkLetKeyword},
		{Name: "print-parens", Check: checkPrintParens},
		{Name: "type-case", Check: checkTypeCase},
		{Name: "range-parens", Check: checkRangeParens},
	}
}

// Source runs every rule and returns the accumulated findings. A nil result
// means the source passed every check.
func Source(text string) []Finding {
	lines := strings.Split(text, "\n")

	var findings []Finding
	for _, rule := range Rules() {
		findings = append(findings, rule.Check(lines)...)
	}

	return findings
}

// HasBlocking reports whether any finding prevents compilation.
func HasBlocking(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == Blocking {
			return true
		}
	}

	return false
}

func blank(lines []string) bool {
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			return false
		}
	}

	return true
}

func checkNonEmpty(lines []string) []Finding {
	if !blank(lines) {
		return nil
	}

	return []Finding{{Severity: Blocking, Message: "empty source provided"}}
}

var entryPointRe = regexp.MustCompile(`(?m)^(fn|def) main\(\)`)

func checkEntryPoint(lines []string) []Finding {
	if blank(lines) {
		return nil
	}

	for _, line := range lines {
		if entryPointRe.MatchString(line) {
			return nil
		}
	}

	return []Finding{{
		Severity: Blocking,
		Message:  "missing 'fn main()' or 'def main()' - Mojo executables require a main function",
	}}
}

func checkIndentation(lines []string) []Finding {
	var findings []Finding

	for i, line := range lines {
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if strings.Contains(indent, " ") && strings.Contains(indent, "\t") {
			findings = append(findings, Finding{
				Severity: Blocking,
				Line:     i + 1,
				Message:  "mixed tabs and spaces in indentation",
			})
		}
	}

	return findings
}

// fileScopeKeywords are statement keywords that are only legal inside a
// function body. Declarations, imports and comments stay exempt.
var fileScopeKeywords = []string{"return ", "var ", "if ", "for ", "while ", "print("}

var fileScopeExempt = []string{"from ", "import ", "fn ", "def ", "struct ", "#"}

func checkFileScope(lines []string) []Finding {
	var findings []Finding

	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" || line != stripped {
			// Indented or blank lines are inside some block.
			continue
		}

		if hasAnyPrefix(stripped, fileScopeExempt) {
			continue
		}

		if hasAnyPrefix(stripped, fileScopeKeywords) {
			findings = append(findings, Finding{
				Severity: Blocking,
				Line:     i + 1,
				Message:  fmt.Sprintf("'%s' at file scope - executable statements must be inside a function", firstToken(stripped)),
			})
		}
	}

	return findings
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}

	return false
}

func firstToken(s string) string {
	if i := strings.IndexAny(s, "( \t"); i >= 0 {
		return s[:i]
	}

	return s
}

func checkDeclarationColon(lines []string) []Finding {
	var findings []Finding

	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if !strings.HasPrefix(stripped, "fn ") && !strings.HasPrefix(stripped, "def ") {
			continue
		}

		// Trailing comments do not count toward the declaration.
		if j := strings.Index(stripped, "#"); j >= 0 {
			stripped = strings.TrimSpace(stripped[:j])
		}

		if !strings.HasSuffix(stripped, ":") {
			findings = append(findings, Finding{
				Severity: Blocking,
				Line:     i + 1,
				Message:  "function declaration missing ':' at end of line",
			})
		}
	}

	return findings
}

var letRe = regexp.MustCompile(`\blet\s+\w+`)

func checkLetKeyword(lines []string) []Finding {
	var findings []Finding

	for i, line := range lines {
		if letRe.MatchString(line) {
			findings = append(findings, Finding{
				Severity: Blocking,
				Line:     i + 1,
				Message:  "'let' keyword is deprecated in Mojo - use 'var' instead",
			})
		}
	}

	return findings
}

func checkPrintParens(lines []string) []Finding {
	var findings []Finding

	for i, line := range lines {
		stripped := strings.TrimLeft(line, " \t")
		if line == stripped {
			// File-scope print is reported by the file-scope rule.
			continue
		}

		rest, ok := strings.CutPrefix(stripped, "print")
		if !ok || rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
			continue
		}

		arg := strings.TrimLeft(rest, " \t")
		if arg != "" && arg[0] != '(' {
			findings = append(findings, Finding{
				Severity: Blocking,
				Line:     i + 1,
				Message:  "print requires parentheses: print(...) not print ...",
			})
		}
	}

	return findings
}

// typeCaseChecks map lowercase Python type annotations to their Mojo
// spellings.
var typeCaseChecks = []struct {
	re      *regexp.Regexp
	message string
}{
	{regexp.MustCompile(`:\s*int\b`), "use 'Int' (capitalized) for integer types in Mojo, not 'int'"},
	{regexp.MustCompile(`:\s*str\b`), "use 'String' for string types in Mojo, not 'str'"},
	{regexp.MustCompile(`:\s*bool\b`), "use 'Bool' (capitalized) for boolean types in Mojo, not 'bool'"},
}

func checkTypeCase(lines []string) []Finding {
	var findings []Finding

	for i, line := range lines {
		for _, check := range typeCaseChecks {
			if check.re.MatchString(line) {
				findings = append(findings, Finding{
					Severity: Blocking,
					Line:     i + 1,
					Message:  check.message,
				})
			}
		}
	}

	return findings
}

var rangeRe = regexp.MustCompile(`\brange\s+\d`)

func checkRangeParens(lines []string) []Finding {
	var findings []Finding

	for i, line := range lines {
		if rangeRe.MatchString(line) {
			findings = append(findings, Finding{
				Severity: Blocking,
				Line:     i + 1,
				Message:  "'range' requires parentheses: range(n) not range n",
			})
		}
	}

	return findings
}
