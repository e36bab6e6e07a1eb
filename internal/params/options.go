package params

import (
	"log/slog"
	"slices"
)

// MultirunKey is the vector variable naming the keys that vary per run.
const MultirunKey = "Multirun"

// Options is a Values store whose multirun keys are masked by the values of
// the selected run.
type Options struct {
	values *Values
	logger *slog.Logger

	keys    []string    // masked keys, in registration order
	runs    [][]float64 // runs[i] belongs to keys[i]
	numRuns int
	current int
}

// New wraps values and registers the keys named by the Multirun variable.
// Returns a *ConfigError if the multirun vectors disagree in length.
// A nil logger uses slog.Default().
func New(values *Values, logger *slog.Logger) (*Options, error) {
	if values == nil {
		values = NewValues()
	}
	if logger == nil {
		logger = slog.Default()
	}
	o := &Options{
		values:  values,
		logger:  logger,
		numRuns: 1,
	}
	if err := o.parseMultirun(); err != nil {
		return nil, err
	}
	return o, nil
}

// parseMultirun masks every usable key named in the Multirun vector.
func (o *Options) parseMultirun() error {
	for i := 0; i < o.values.VectorSize(MultirunKey); i++ {
		key := o.values.VectorString(MultirunKey, i, "")
		numVals := o.values.VectorSize(key)

		switch {
		case numVals == 0:
			o.logger.Warn("multirun key not found (ignoring)", "key", key)
		case numVals == 1:
			o.logger.Warn("multirun key is a variable of length one (ignoring)", "key", key)
		case len(o.keys) > 0 && numVals != o.numRuns:
			return newLengthError(key, numVals, o.numRuns)
		default:
			seq := make([]float64, numVals)
			for v := range seq {
				seq[v] = o.values.VectorFloat(key, v, 0.0)
			}
			o.keys = append(o.keys, key)
			o.runs = append(o.runs, seq)
			o.numRuns = numVals
			o.logger.Debug("multirun key registered", "key", key, "num_runs", numVals)
		}
	}
	return nil
}

// Float returns the per-run value of a masked key, or the underlying scalar
// read otherwise. For a masked key def is ignored.
func (o *Options) Float(key string, def float64) float64 {
	if i := slices.Index(o.keys, key); i >= 0 {
		return o.runs[i][o.current]
	}
	return o.values.Float(key, def)
}

// Int reads an unmasked integer.
func (o *Options) Int(key string, def int) int {
	return o.values.Int(key, def)
}

// String reads an unmasked string.
func (o *Options) String(key, def string) string {
	return o.values.String(key, def)
}

// Bool reads an unmasked boolean.
func (o *Options) Bool(key string, def bool) bool {
	return o.values.Bool(key, def)
}

// Strings returns all fields of key.
func (o *Options) Strings(key string) []string {
	return o.values.Strings(key)
}

// VectorSize returns the number of fields stored under key.
func (o *Options) VectorSize(key string) int {
	return o.values.VectorSize(key)
}

// Has reports whether key is present in the underlying store.
func (o *Options) Has(key string) bool {
	return o.values.Has(key)
}

// Values returns the underlying store.
func (o *Options) Values() *Values {
	return o.values
}

// NumRuns returns the validated run count; 1 when nothing is masked.
func (o *Options) NumRuns() int {
	return o.numRuns
}

// Run returns the selected run index.
func (o *Options) Run() int {
	return o.current
}

// SetRun selects the run whose values masked keys yield.
func (o *Options) SetRun(index int) error {
	if index < 0 || index >= o.numRuns {
		return newRunRangeError(index, o.numRuns)
	}
	o.current = index
	return nil
}

// ForRun returns an independent snapshot with run index selected. The
// snapshot shares the read-only Values store and copies the mask table.
func (o *Options) ForRun(index int) (*Options, error) {
	snap := o.clone()
	if err := snap.SetRun(index); err != nil {
		return nil, err
	}
	return snap, nil
}

// MultirunKeys returns the masked keys in registration order.
func (o *Options) MultirunKeys() []string {
	return slices.Clone(o.keys)
}

// Masked returns the current run's value of every masked key. If a key was
// registered twice the first registration wins, as it does for Float.
func (o *Options) Masked() map[string]float64 {
	out := make(map[string]float64, len(o.keys))
	for i, k := range o.keys {
		if _, dup := out[k]; !dup {
			out[k] = o.runs[i][o.current]
		}
	}
	return out
}

// Absorb merges other into o: other's values override o's and other's
// masked keys are appended. Fails without modifying o if both have masked
// keys and their run counts differ. Key collisions between the two mask
// tables are not detected.
func (o *Options) Absorb(other *Options) error {
	if len(other.keys) == 0 {
		o.values = o.values.Merge(other.values)
		return nil
	}
	if len(o.keys) > 0 && o.numRuns != other.numRuns {
		return newAbsorbError(o.numRuns, other.numRuns)
	}

	o.values = o.values.Merge(other.values)
	o.numRuns = other.numRuns
	o.keys = append(o.keys, other.keys...)
	for _, seq := range other.runs {
		o.runs = append(o.runs, slices.Clone(seq))
	}
	if o.current >= o.numRuns {
		o.current = 0
	}
	return nil
}

func (o *Options) clone() *Options {
	runs := make([][]float64, len(o.runs))
	for i, seq := range o.runs {
		runs[i] = slices.Clone(seq)
	}
	return &Options{
		values:  o.values,
		logger:  o.logger,
		keys:    slices.Clone(o.keys),
		runs:    runs,
		numRuns: o.numRuns,
		current: o.current,
	}
}
