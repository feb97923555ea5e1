// Package normalize repairs known OCR misreadings in census text before it is
// tokenized. Corrections are literal substring replacements loaded from YAML.
package normalize

import (
	_ "embed"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Rule replaces every occurrence of Match with Replace.
type Rule struct {
	Match   string `yaml:"match"`
	Replace string `yaml:"replace"`
	Note    string `yaml:"note,omitempty"`
}

// Fired records a rule that changed the text.
type Fired struct {
	Rule  Rule
	Count int
	Pass  int
}

// RuleSet is an ordered, validated list of rules. It is safe for concurrent use.
type RuleSet struct {
	rules []Rule
}

// New validates rules and returns a RuleSet that applies them in order.
func New(rules []Rule) (*RuleSet, error) {
	out := make([]Rule, len(rules))
	seen := make(map[string]int, len(rules))
	for i, r := range rules {
		// Input text is NFC before matching, so rules must be too.
		r.Match = norm.NFC.String(r.Match)
		r.Replace = norm.NFC.String(r.Replace)
		if r.Match == "" {
			return nil, eris.Errorf("normalize: rule %d: empty match", i+1)
		}
		if strings.Contains(r.Replace, r.Match) {
			return nil, eris.Errorf("normalize: rule %d: replacement %q contains its own match", i+1, r.Replace)
		}
		if prev, ok := seen[r.Match]; ok {
			return nil, eris.Errorf("normalize: rule %d: match %q duplicates rule %d", i+1, r.Match, prev)
		}
		seen[r.Match] = i + 1
		out[i] = r
	}

	return &RuleSet{rules: out}, nil
}

// Load parses a rule file from r.
func Load(r io.Reader) (*RuleSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "normalize: read rules")
	}
	return parse(data)
}

// LoadFile parses the rule file at path.
func LoadFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "normalize: read rules %s", path)
	}
	return parse(data)
}

// Default returns the rule set compiled into the binary.
func Default() (*RuleSet, error) {
	return parse(defaultRules)
}

// Resolve returns the rules at path, or the compiled-in rules when path is empty.
func Resolve(path string) (*RuleSet, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

func parse(data []byte) (*RuleSet, error) {
	// The file has a top-level "normalize" key
	var wrapper struct {
		Normalize struct {
			Rules []Rule `yaml:"rules"`
		} `yaml:"normalize"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "normalize: parse rules")
	}
	return New(wrapper.Normalize.Rules)
}

// Rules returns a copy of the rules in application order.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int { return len(rs.rules) }

// Apply NFC-normalizes text and applies every rule in order, repeating the
// pass until no rule fires. Every rule is tried on every pass. The result is
// a fixpoint, so applying it again returns the same text and no firings.
//
// Passes are bounded by the rule count; Converged reports false if the bound
// was hit, which only happens when rules feed each other in a cycle.
func (rs *RuleSet) Apply(text string) Result {
	res := Result{Text: norm.NFC.String(text), Converged: true}

	maxPasses := len(rs.rules) + 1
	for pass := 1; ; pass++ {
		if pass > maxPasses {
			res.Converged = false
			break
		}
		changed := false
		for _, r := range rs.rules {
			n := strings.Count(res.Text, r.Match)
			if n == 0 {
				continue
			}
			res.Text = strings.ReplaceAll(res.Text, r.Match, r.Replace)
			res.Fired = append(res.Fired, Fired{Rule: r, Count: n, Pass: pass})
			changed = true
		}
		if !changed {
			break
		}
	}

	return res
}

// Result is the outcome of Apply.
type Result struct {
	Text      string
	Fired     []Fired
	Converged bool
}
