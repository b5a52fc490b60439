package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// SetValue sets key to value in the YAML file at path, creating the file
// and any intermediate mappings. Comments and the order of other keys are
// kept. The file is replaced atomically.
func SetValue(path, key, value string) error {
	if !IsKey(key) {
		return fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, key)
	}

	data, err := os.ReadFile(path) // #nosec G304 - config file path from caller
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	out, err := setYAMLKey(data, key, value)
	if err != nil {
		return err
	}

	if err := atomic.WriteFile(path, bytes.NewReader(out)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// setYAMLKey returns data with the dotted key set to value.
func setYAMLKey(data []byte, key, value string) ([]byte, error) {
	var root yaml.Node
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Handle empty or comment-only files by creating a valid document structure
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		root = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode}},
		}
	}

	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("failed to parse config: top level is not a mapping")
	}

	parts := strings.Split(key, ".")
	for _, part := range parts[:len(parts)-1] {
		child := lookup(mapping, part)
		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode}
			mapping.Content = append(mapping.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: part},
				child,
			)
		}
		if child.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("failed to set %s: %s is not a mapping", key, part)
		}
		mapping = child
	}

	leaf := parts[len(parts)-1]
	scalar := scalarNode(value)
	if existing := lookup(mapping, leaf); existing != nil {
		scalar.LineComment = existing.LineComment
		*existing = *scalar
	} else {
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: leaf},
			scalar,
		)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&root); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("failed to close encoder: %w", err)
	}
	return buf.Bytes(), nil
}

// lookup returns the value node of key in mapping, or nil.
func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// scalarNode builds a scalar, quoting values YAML would otherwise read as
// another type or misparse.
func scalarNode(value string) *yaml.Node {
	node := &yaml.Node{Kind: yaml.ScalarNode, Value: value}
	if isNumeric(value) {
		node.Tag = "!!int"
		return node
	}
	node.Tag = "!!str"
	if needsQuoting(value) {
		node.Style = yaml.DoubleQuotedStyle
	}
	return node
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if c == '-' && i == 0 && len(s) > 1 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func needsQuoting(s string) bool {
	// Quote if contains special YAML characters
	special := []string{":", "#", "[", "]", "{", "}", ",", "&", "*", "!", "|", ">", "'", "\"", "%", "@", "`"}
	for _, c := range special {
		if strings.Contains(s, c) {
			return true
		}
	}
	switch strings.ToLower(s) {
	case "", "true", "false", "yes", "no", "on", "off", "null", "~":
		return true
	}
	// Quote if starts/ends with whitespace
	return strings.TrimSpace(s) != s
}
