package errata

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultErrata []byte

// Declaration is the YAML form of one rule.
type Declaration struct {
	Kind              string `yaml:"kind"`
	Subject           string `yaml:"subject"`
	Period            string `yaml:"period,omitempty"`
	Category          int    `yaml:"category,omitempty"`
	Line              string `yaml:"line,omitempty"`
	Commit            *bool  `yaml:"commit,omitempty"`
	ReplacementParent string `yaml:"replacement_parent,omitempty"`
	ReplacementAmount string `yaml:"replacement_amount,omitempty"`
}

type declarationFile struct {
	Errata []Declaration `yaml:"errata"`
}

// Rule converts a declaration, applying the kind's default commit flag.
func (d Declaration) Rule() (Rule, error) {
	kind, err := ParseKind(d.Kind)
	if err != nil {
		return Rule{}, err
	}

	rule := Rule{
		Filter: Filter{
			Subject:      d.Subject,
			Period:       d.Period,
			CategoryCode: d.Category,
			Line:         d.Line,
		},
		Commit: kind.DefaultCommit(),
	}
	if d.Commit != nil {
		rule.Commit = *d.Commit
	}

	if d.ReplacementParent != "" && kind != MissingParent {
		return Rule{}, fmt.Errorf("replacement_parent is only valid for %s rules", MissingParent)
	}
	if d.ReplacementAmount != "" && kind != MissingAmount {
		return Rule{}, fmt.Errorf("replacement_amount is only valid for %s rules", MissingAmount)
	}

	switch kind {
	case MissingCategory:
		rule.Correction = CategoryCorrection{}
	case MissingParent:
		rule.Correction = ParentCorrection{Replacement: d.ReplacementParent}
	case MissingAmount:
		correction := AmountCorrection{}
		if d.ReplacementAmount != "" {
			value, err := decimal.NewFromString(d.ReplacementAmount)
			if err != nil {
				return Rule{}, fmt.Errorf("invalid replacement_amount %q: %w", d.ReplacementAmount, err)
			}
			correction.Replacement = &value
		}
		rule.Correction = correction
	}
	return rule, nil
}

// Load reads rule declarations from YAML.
func Load(r io.Reader) ([]Rule, error) {
	decls, err := LoadDeclarations(r)
	if err != nil {
		return nil, err
	}

	rules := make([]Rule, 0, len(decls))
	for i, d := range decls {
		rule, err := d.Rule()
		if err != nil {
			return nil, fmt.Errorf("errata entry %d (%s): %w", i+1, d.Subject, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// LoadDeclarations reads the raw declarations without converting them.
func LoadDeclarations(r io.Reader) ([]Declaration, error) {
	var file declarationFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse errata: %w", err)
	}
	return file.Errata, nil
}

// LoadFile reads rule declarations from a YAML file.
func LoadFile(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open errata file: %w", err)
	}
	defer f.Close()

	rules, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// Default returns the curated rules shipped with the parser.
func Default() ([]Rule, error) {
	return Load(bytes.NewReader(defaultErrata))
}

// DefaultDeclarations returns the shipped declarations as written.
func DefaultDeclarations() ([]Declaration, error) {
	return LoadDeclarations(bytes.NewReader(defaultErrata))
}

// Fingerprint identifies a set of declarations, in order. Any edit to a rule
// changes it.
func Fingerprint(declarations []Declaration) (string, error) {
	data, err := yaml.Marshal(declarationFile{Errata: declarations})
	if err != nil {
		return "", fmt.Errorf("failed to encode errata: %w", err)
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])[:8], nil
}
