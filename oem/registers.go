package oem

import (
	"fmt"
	"reflect"
)

// BringupRegisters is the shadow copy of the scalar, per-OEM analog
// front-end registers programmed once when a session is opened, before
// any sequence is uploaded. Field tags mirror the register-bank
// convention used to introspect hardware state: reg for the wire-level
// register name, mode for its read/write direction, desc for a
// human-readable description consumed by cmd/oemctl's regs subcommand.
type BringupRegisters struct {
	PGAGainDB        float64 `reg:"pga_gain_db" mode:"rw" desc:"Programmable gain amplifier gain, dB"`
	LPFCutoffHz      float64 `reg:"lpf_cutoff_hz" mode:"rw" desc:"Low-pass filter cutoff frequency, Hz"`
	ActiveTermOhm    float64 `reg:"active_term_ohm" mode:"rw" desc:"Active termination impedance, Ohm"`
	LNAGainDB        float64 `reg:"lna_gain_db" mode:"rw" desc:"Low-noise amplifier gain, dB"`
	DTGCEnabled      bool    `reg:"dtgc_enabled" mode:"rw" desc:"Digital time gain compensation enable"`
	TGCEnabled       bool    `reg:"tgc_enabled" mode:"rw" desc:"Analog time gain compensation enable"`
	HVEnabled        bool    `reg:"hv_enabled" mode:"rw" desc:"High-voltage transmit supply enable"`
	HVVoltage        float64 `reg:"hv_voltage" mode:"rw" desc:"High-voltage transmit supply setpoint, x0.5 Vpp"`
	NumberOfFirings  int     `reg:"num_firings" mode:"rw" desc:"Firings programmed for the current sequence"`
	NumberOfTriggers int     `reg:"num_triggers" mode:"r" desc:"Trigger-table length for the current sequence"`
}

// DefaultBringupRegisters returns the bring-up values session.Open
// programs by default: PGA +30dB, LPF 15MHz, active termination
// 200 Ohm, LNA +24dB, DTGC disabled, TGC enabled.
func DefaultBringupRegisters() BringupRegisters {
	return BringupRegisters{
		PGAGainDB:     30,
		LPFCutoffHz:   15e6,
		ActiveTermOhm: 200,
		LNAGainDB:     24,
		DTGCEnabled:   false,
		TGCEnabled:    true,
	}
}

// RegisterField is one reflected field of a register-tagged struct, for
// tools like cmd/oemctl that dump register state generically.
type RegisterField struct {
	Name  string
	Mode  string
	Desc  string
	Value string
}

// DumpRegisters reflects over any register-tagged struct (or pointer to
// one) and returns its fields in declaration order, grounding the
// register-bank introspection style this platform's bring-up tooling
// uses.
func DumpRegisters(v interface{}) []RegisterField {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	rt := rv.Type()
	out := make([]RegisterField, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		tag, ok := f.Tag.Lookup("reg")
		if !ok {
			continue
		}
		out = append(out, RegisterField{
			Name:  tag,
			Mode:  f.Tag.Get("mode"),
			Desc:  f.Tag.Get("desc"),
			Value: fmt.Sprintf("%v", rv.Field(i).Interface()),
		})
	}
	return out
}
