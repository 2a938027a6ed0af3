package camera

// Preset names for common acquisition setups
const (
	PresetDefault  = "default"
	PresetLowLight = "lowlight"
	PresetFast     = "fast"
	PresetManual   = "manual"
)

// Presets returns all available preset parameters.
func Presets() map[string]Params {
	return map[string]Params{
		PresetDefault:  DefaultParams(),
		PresetLowLight: LowLightParams(),
		PresetFast:     FastParams(),
		PresetManual:   ManualParams(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetLowLight,
		PresetFast,
		PresetManual,
	}
}

// GetPreset returns preset parameters by name, or nil if not found.
func GetPreset(name string) *Params {
	presets := Presets()
	if p, ok := presets[name]; ok {
		return &p
	}
	return nil
}

// LowLightParams trades frame rate for exposure.
func LowLightParams() Params {
	p := DefaultParams()
	p.ExposureMode = ModeOff
	p.ExposureTime = 30000
	p.FrameRate = 10
	return p
}

// FastParams keeps exposure short for moving traffic.
func FastParams() Params {
	p := DefaultParams()
	p.ExposureMode = ModeOff
	p.ExposureTime = 2000
	p.FrameRate = 60
	return p
}

// ManualParams disables both automatic controls.
func ManualParams() Params {
	return Params{
		ExposureTime: 10000,
		ExposureMode: ModeOff,
		Gain:         0,
		GainMode:     ModeOff,
		FrameRate:    15,
	}
}
