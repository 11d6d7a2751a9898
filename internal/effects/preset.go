// SPDX-License-Identifier: MIT
package effects

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const presetVersion = 1

var (
	ErrPresetVersion = errors.New("effects: unsupported preset version")
	ErrPresetShape   = errors.New("effects: malformed preset")
)

// Tree returns the parameters as a YAML document tree:
//
//	version: 1
//	parameters:
//	  gain: 1
//	  ...
//
// Floats use the shortest representation that parses back to the same value.
func (p *Parameters) Tree() *yaml.Node {
	params := &yaml.Node{Kind: yaml.MappingNode}
	for _, id := range All() {
		s := specs[id]
		v := p.Get(id)
		value := &yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatFloat(v, 'g', -1, 64)}
		if s.Bool {
			value = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v != 0)}
		}
		params.Content = append(params.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s.Key}, value)
	}

	return &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: "version"},
		{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(presetVersion)},
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: "parameters"},
		params,
	}}
}

// ApplyTree restores parameters from a tree produced by Tree. Keys missing from
// the tree keep their current value; unknown keys are ignored. Nothing is
// changed when the tree is invalid.
func (p *Parameters) ApplyTree(root *yaml.Node) error {
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: root is not a mapping", ErrPresetShape)
	}

	var params *yaml.Node
	version := -1
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "version":
			if err := val.Decode(&version); err != nil {
				return fmt.Errorf("%w: version: %v", ErrPresetShape, err)
			}
		case "parameters":
			params = val
		}
	}
	if version != presetVersion {
		return fmt.Errorf("%w: %d", ErrPresetVersion, version)
	}
	if params == nil || params.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: missing parameters mapping", ErrPresetShape)
	}

	staged := make(map[ID]float64, numParams)
	for i := 0; i+1 < len(params.Content); i += 2 {
		key, val := params.Content[i], params.Content[i+1]
		id, ok := Lookup(key.Value)
		if !ok {
			continue
		}
		if specs[id].Bool {
			var on bool
			if err := val.Decode(&on); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrPresetShape, key.Value, err)
			}
			staged[id] = 0
			if on {
				staged[id] = 1
			}
			continue
		}
		var v float64
		if err := val.Decode(&v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrPresetShape, key.Value, err)
		}
		staged[id] = v
	}

	for id, v := range staged {
		p.Set(id, v)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (p *Parameters) MarshalYAML() (any, error) {
	return p.Tree(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Parameters) UnmarshalYAML(node *yaml.Node) error {
	return p.ApplyTree(node)
}

// SavePreset writes the parameters to path.
func (p *Parameters) SavePreset(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding preset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing preset: %w", err)
	}
	return nil
}

// LoadPreset reads parameters from path.
func (p *Parameters) LoadPreset(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading preset: %w", err)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("%w: %v", ErrPresetShape, err)
	}
	return p.ApplyTree(&root)
}
