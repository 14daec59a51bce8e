package hierarchy

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// MergeStrategy controls how an update lands at its target path.
type MergeStrategy string

const (
	// MergeReplacePath replaces whatever sits at the path with the new value.
	MergeReplacePath MergeStrategy = "replace_path"
	// MergeDeep merges the new value into the existing one when both are
	// mappings; otherwise it replaces, same as scalars during inheritance.
	MergeDeep MergeStrategy = "deep_merge"
)

var validMergeStrategies = map[MergeStrategy]bool{
	MergeReplacePath: true,
	MergeDeep:        true,
}

// ValidateMergeStrategy checks s against the known strategies.
func ValidateMergeStrategy(s MergeStrategy) error {
	if !validMergeStrategies[s] {
		return fmt.Errorf("invalid merge strategy %q (valid: %s, %s)", s, MergeReplacePath, MergeDeep)
	}
	return nil
}

// SplitPath breaks a dot-separated path into segments. The empty path
// addresses the payload root and yields no segments.
func SplitPath(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	segs := strings.Split(path, ".")
	for _, seg := range segs {
		if seg == "" {
			return nil, fmt.Errorf("invalid path %q: empty segment", path)
		}
	}
	return segs, nil
}

// GetPath resolves a dot-separated path against the payload. Numeric
// segments index into arrays; every other segment is a map key. The
// second return is false when any segment is missing.
func GetPath(d Data, path string) (any, bool) {
	segs, err := SplitPath(path)
	if err != nil {
		return nil, false
	}
	var cur any = d
	for _, seg := range segs {
		switch node := cur.(type) {
		case Data:
			v, ok := node.Get(seg)
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := cast.ToIntE(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// SetPath writes value at the dot-separated path inside d, applying the
// given merge strategy at the leaf. Missing intermediate segments are
// created as nested mappings. Array segments must address an existing
// element; growing an array goes through a replace of the whole array.
//
// The empty path addresses the root: the value must then be a mapping,
// and with MergeReplacePath it swaps the entire payload content.
func SetPath(d Data, path string, value any, strategy MergeStrategy) error {
	if err := ValidateMergeStrategy(strategy); err != nil {
		return err
	}
	segs, err := SplitPath(path)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		return setRoot(d, value, strategy)
	}

	parent, err := descend(d, segs[:len(segs)-1], path)
	if err != nil {
		return err
	}
	return setLeaf(parent, segs[len(segs)-1], path, value, strategy)
}

func setRoot(d Data, value any, strategy MergeStrategy) error {
	m, ok := value.(Data)
	if !ok {
		return fmt.Errorf("root update requires an object value, got %T", value)
	}
	if strategy == MergeReplacePath {
		for d.Len() > 0 {
			d.Delete(d.Oldest().Key)
		}
	}
	merged := DeepMerge(d, m)
	for pair := merged.Oldest(); pair != nil; pair = pair.Next() {
		d.Set(pair.Key, pair.Value)
	}
	return nil
}

// descend walks the intermediate segments, auto-vivifying missing map
// levels, and returns the container that holds the final segment.
func descend(d Data, segs []string, fullPath string) (any, error) {
	var cur any = d
	for i, seg := range segs {
		switch node := cur.(type) {
		case Data:
			v, ok := node.Get(seg)
			if !ok {
				child := NewData()
				node.Set(seg, child)
				cur = child
				continue
			}
			cur = v
		case []any:
			idx, err := cast.ToIntE(seg)
			if err != nil {
				return nil, fmt.Errorf("invalid path %q: segment %q indexes an array", fullPath, seg)
			}
			if idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("invalid path %q: index %d out of range (len %d)", fullPath, idx, len(node))
			}
			cur = node[idx]
		default:
			return nil, fmt.Errorf("invalid path %q: segment %q is not a container", fullPath, strings.Join(segs[:i], "."))
		}
	}
	return cur, nil
}

func setLeaf(parent any, seg, fullPath string, value any, strategy MergeStrategy) error {
	switch node := parent.(type) {
	case Data:
		if strategy == MergeDeep {
			if existing, ok := node.Get(seg); ok {
				baseMap, baseIsMap := existing.(Data)
				valMap, valIsMap := value.(Data)
				if baseIsMap && valIsMap {
					node.Set(seg, DeepMerge(baseMap, valMap))
					return nil
				}
			}
		}
		node.Set(seg, cloneValue(value))
		return nil
	case []any:
		idx, err := cast.ToIntE(seg)
		if err != nil {
			return fmt.Errorf("invalid path %q: segment %q indexes an array", fullPath, seg)
		}
		if idx < 0 || idx >= len(node) {
			return fmt.Errorf("invalid path %q: index %d out of range (len %d)", fullPath, idx, len(node))
		}
		if strategy == MergeDeep {
			baseMap, baseIsMap := node[idx].(Data)
			valMap, valIsMap := value.(Data)
			if baseIsMap && valIsMap {
				node[idx] = DeepMerge(baseMap, valMap)
				return nil
			}
		}
		node[idx] = cloneValue(value)
		return nil
	default:
		return fmt.Errorf("invalid path %q: parent of %q is not a container", fullPath, seg)
	}
}

// DeletePath removes the value at the path. Deleting a missing path is a
// no-op so callers stay idempotent. Array elements cannot be deleted,
// only overwritten.
func DeletePath(d Data, path string) error {
	segs, err := SplitPath(path)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		for d.Len() > 0 {
			d.Delete(d.Oldest().Key)
		}
		return nil
	}
	parent, ok := walk(d, segs[:len(segs)-1])
	if !ok {
		return nil
	}
	node, isMap := parent.(Data)
	if !isMap {
		return fmt.Errorf("invalid path %q: cannot delete from a non-object", path)
	}
	node.Delete(segs[len(segs)-1])
	return nil
}

// walk is descend without auto-vivification.
func walk(d Data, segs []string) (any, bool) {
	var cur any = d
	for _, seg := range segs {
		switch node := cur.(type) {
		case Data:
			v, ok := node.Get(seg)
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := cast.ToIntE(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}
