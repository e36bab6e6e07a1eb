package params

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// LoadCUE reads a CUE input file (or a directory holding one CUE package)
// and flattens it into a Values store. Nested structs become slash-separated
// keys and lists become vector variables:
//
//	Z: 20
//	Multirun: ["NuclearInverseMass"]
//	NuclearInverseMass: [-0.001, 0.0, 0.001]
//	HF: Configuration: "1s2 2s2 2p6"   // HF/Configuration
func LoadCUE(path string) (*Values, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("input not found: %w", err)
	}

	cfg := &load.Config{Dir: path}
	args := []string{"."}
	if !info.IsDir() {
		cfg.Dir = filepath.Dir(path)
		args = []string{filepath.Base(path)}
	}

	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", path)
	}
	if inst := instances[0]; inst.Err != nil {
		return nil, fmt.Errorf("loading CUE input: %w", inst.Err)
	}

	value := cuecontext.New().BuildInstance(instances[0])
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("building CUE value: %w", err)
	}
	return FromCUE(value)
}

// FromCUE flattens an already-built CUE value.
func FromCUE(value cue.Value) (*Values, error) {
	values := NewValues()
	if err := flattenStruct(values, "", value); err != nil {
		return nil, err
	}
	return values, nil
}

func flattenStruct(values *Values, prefix string, value cue.Value) error {
	iter, err := value.Fields()
	if err != nil {
		return fmt.Errorf("iterating %q: %w", prefix, err)
	}
	for iter.Next() {
		key := prefix + iter.Label()
		field := iter.Value()

		switch field.IncompleteKind() {
		case cue.StructKind:
			if err := flattenStruct(values, key+"/", field); err != nil {
				return err
			}
		case cue.ListKind:
			list, err := field.List()
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			var fields []string
			for i := 0; list.Next(); i++ {
				s, err := scalarString(list.Value())
				if err != nil {
					return fmt.Errorf("%s[%d]: %w", key, i, err)
				}
				fields = append(fields, s)
			}
			values.Set(key, fields...)
		default:
			s, err := scalarString(field)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			values.Set(key, s)
		}
	}
	return nil
}

func scalarString(v cue.Value) (string, error) {
	if !v.IsConcrete() {
		return "", fmt.Errorf("value is not concrete")
	}
	switch v.Kind() {
	case cue.StringKind:
		return v.String()
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	default:
		return "", fmt.Errorf("unsupported kind %v", v.Kind())
	}
}
