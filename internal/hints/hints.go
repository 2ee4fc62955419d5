// Package hints maps known compiler and validator diagnostics to short
// remediation strings.
//
// Lookups are ordered substring matches, so more specific fragments must be
// registered before general ones. The built-in table covers the Python
// habits that most often trip up Mojo newcomers; users can extend it with
// their own fragments from a YAML file.
package hints

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pair binds a diagnostic fragment to the hint shown when the fragment
// appears in an error message.
type Pair struct {
	Match string `yaml:"match"`
	Hint  string `yaml:"hint"`
}

// Table is an ordered list of fragment/hint pairs. The zero value is an
// empty table; use Default for the built-in set.
type Table struct {
	pairs []Pair
}

// New returns a table holding the given pairs in order.
func New(pairs ...Pair) *Table {
	return &Table{pairs: pairs}
}

// Default returns the built-in table. The fragments cover both compiler
// stderr and the validator's own messages, which share wording on purpose
// so one table serves both stages.
func Default() *Table {
	return New(
		Pair{Match: "use of unknown declaration 'let'", Hint: "the 'let' keyword was removed from Mojo, declare variables with 'var'"},
		Pair{Match: "'let' keyword is deprecated", Hint: "the 'let' keyword was removed from Mojo, declare variables with 'var'"},
		Pair{Match: "unknown declaration 'int'", Hint: "Mojo type names are capitalized: Int, String, Bool"},
		Pair{Match: "unknown declaration 'str'", Hint: "Mojo type names are capitalized: Int, String, Bool"},
		Pair{Match: "unknown declaration 'bool'", Hint: "Mojo type names are capitalized: Int, String, Bool"},
		Pair{Match: "use 'Int' (capitalized)", Hint: "Mojo type names are capitalized: Int, String, Bool"},
		Pair{Match: "use 'String' for string types", Hint: "Mojo type names are capitalized: Int, String, Bool"},
		Pair{Match: "use 'Bool' (capitalized)", Hint: "Mojo type names are capitalized: Int, String, Bool"},
		Pair{Match: "missing 'fn main()'", Hint: "wrap the program in 'fn main():' so the compiler can build an executable"},
		Pair{Match: "'main' function", Hint: "wrap the program in 'fn main():' so the compiler can build an executable"},
		Pair{Match: "at file scope", Hint: "move executable statements into a function body such as 'fn main():'"},
		Pair{Match: "mixed tabs and spaces", Hint: "indent with spaces only, Mojo treats tabs and spaces as different characters"},
		Pair{Match: "missing ':' at end", Hint: "function declarations end with ':', for example 'fn compute(n: Int) -> Int:'"},
		Pair{Match: "expected ':'", Hint: "function declarations end with ':', for example 'fn compute(n: Int) -> Int:'"},
		Pair{Match: "print requires parentheses", Hint: "call print like a function: print(value)"},
		Pair{Match: "'range' requires parentheses", Hint: "call range like a function: range(n)"},
	)
}

// Lookup returns the hint for the first fragment contained in message.
// Matching is case-insensitive. The second return is false when no fragment
// matches, in which case no hint should be shown.
func (t *Table) Lookup(message string) (string, bool) {
	lower := strings.ToLower(message)

	for _, p := range t.pairs {
		if strings.Contains(lower, strings.ToLower(p.Match)) {
			return p.Hint, true
		}
	}

	return "", false
}

// Extend appends pairs to the table. Earlier entries keep precedence, so
// extensions only fire when no built-in fragment matches first.
func (t *Table) Extend(pairs ...Pair) {
	t.pairs = append(t.pairs, pairs...)
}

// Len returns the number of registered pairs.
func (t *Table) Len() int {
	return len(t.pairs)
}

// Pairs returns a copy of the registered pairs in lookup order.
func (t *Table) Pairs() []Pair {
	out := make([]Pair, len(t.pairs))
	copy(out, t.pairs)

	return out
}

type hintsFile struct {
	Hints []Pair `yaml:"hints"`
}

// LoadFile reads user hint pairs from a YAML file of the form:
//
//	hints:
//	  - match: "cannot implicitly convert"
//	    hint: "add an explicit cast"
//
// Every entry must carry both a match fragment and a hint.
func LoadFile(path string) ([]Pair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hints file: %w", err)
	}

	var file hintsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse hints file %s: %w", path, err)
	}

	for i, p := range file.Hints {
		if strings.TrimSpace(p.Match) == "" {
			return nil, fmt.Errorf("hints file %s: entry %d has no match fragment", path, i+1)
		}

		if strings.TrimSpace(p.Hint) == "" {
			return nil, fmt.Errorf("hints file %s: entry %d has no hint text", path, i+1)
		}
	}

	return file.Hints, nil
}
