package probe

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/usoem/oemseq/oemseqerr"
)

// definition is the on-disk shape of one probe/adapter pair in probes.toml.
type definition struct {
	NElem        int     `mapstructure:"nElem"`
	PitchMeters  float64 `mapstructure:"pitchMeters"`
	AdapterType  string  `mapstructure:"adapterType"`
	NOEM         int     `mapstructure:"nOEM"`
	TxChannelMap [][]int `mapstructure:"txChannelMap"`
	RxChannelMap [][]int `mapstructure:"rxChannelMap"`
}

// Library loads named probe/adapter definitions from a TOML file. It
// looks for "probes.toml" first in /etc/oemseq and then in the current
// directory, mirroring the two-path search order the rest of this
// package's ancestry uses for its own configuration file.
type Library struct {
	v *viper.Viper
}

// LoadLibrary reads probes.toml, returning a Library that resolves probe
// names via Get. A missing file is not an error: Get falls back to
// the built-in defaultProbes entries in that case.
func LoadLibrary() (*Library, error) {
	v := viper.New()
	v.SetConfigName("probes")
	v.AddConfigPath("/etc/oemseq")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // absence is fine; Get falls back to built-in defaults
	return &Library{v: v}, nil
}

// Get resolves a probe by name and an adapter tag ("packed" or
// "interleaved") into a fully validated Probe.
func (l *Library) Get(name string, adapterTag string, nOEM int) (*Probe, error) {
	var def definition
	found := false
	if l != nil && l.v != nil && l.v.IsSet("probes."+name) {
		if err := l.v.UnmarshalKey("probes."+name, &def); err != nil {
			return nil, oemseqerr.NewIllegalArgument("probe.Library.Get", "malformed definition for probe %q: %v", name, err)
		}
		found = true
	}
	if !found {
		d, ok := defaultProbes[name]
		if !ok {
			return nil, oemseqerr.NewIllegalArgument("probe.Library.Get", "unknown probe %q", name)
		}
		def = d
	}
	if def.NOEM > 0 {
		nOEM = def.NOEM
	}
	at, err := ParseAdapterType(adapterTag)
	if err != nil {
		return nil, err
	}
	// A definition's cabling table, when present, overrides NewAdapter's
	// identity wiring; probes.toml is the only place real (non-identity)
	// TX/RX channel maps come from.
	var txMap, rxMap [][]int
	if len(def.TxChannelMap) > 0 {
		txMap = def.TxChannelMap
	}
	if len(def.RxChannelMap) > 0 {
		rxMap = def.RxChannelMap
	}
	adapter, err := NewAdapter(at, nOEM, txMap, rxMap)
	if err != nil {
		return nil, err
	}
	return New(name, def.NElem, def.PitchMeters, adapter)
}

// ParseAdapterType maps the adapter tag used in session_open to an
// AdapterType.
func ParseAdapterType(tag string) (AdapterType, error) {
	switch tag {
	case "packed", "type-0", "":
		return Packed, nil
	case "interleaved", "type-1":
		return Interleaved, nil
	default:
		return 0, oemseqerr.NewIllegalArgument("probe.ParseAdapterType", "unknown adapter tag %q", tag)
	}
}

// defaultProbes are the built-in fallback definitions used when
// probes.toml cannot be found, analogous in spirit to a hardcoded
// bring-up configuration: they should not be trusted for a real
// acquisition, only for smoke-testing the sequencer without a probe
// library installed.
var defaultProbes = map[string]definition{
	"generic128": {NElem: 128, PitchMeters: 0.0003},
	"generic192": {NElem: 192, PitchMeters: 0.0002},
}

func (d definition) String() string {
	return fmt.Sprintf("nElem=%d pitch=%gm adapter=%s", d.NElem, d.PitchMeters, d.AdapterType)
}
