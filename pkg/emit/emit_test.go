package emit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rendered(t *testing.T, files []File) map[string]string {
	t.Helper()
	out := make(map[string]string, len(files))
	for _, f := range files {
		out[f.Path] = string(f.Data)
	}
	return out
}

func TestRenderScenario(t *testing.T) {
	dev := load(t, "scenario.svd")
	files, report, err := Render(dev, []string{"timer"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"timer"}, report.Groups)
	assert.Empty(t, report.Skipped)
	assert.Equal(t, []string{"mod.rs", "timer/mod.rs", "timer/registers/mod.rs"}, report.Files)

	out := rendered(t, files)
	assert.Contains(t, out["mod.rs"], "pub mod timer;\n")

	mod := out["timer/mod.rs"]
	assert.Contains(t, mod, "pub const TIMER_BASE: u32 = 0x40000000;")
	assert.Contains(t, mod, "pub struct TIMERState {")
	assert.Contains(t, mod, "Self::new_with(0x40000000)")
	assert.Contains(t, mod, "pub fn ctrl(&self) -> &CTRL {\n        let word_offset = TIMERRegType::CTRL.offset() / 4;")
	assert.Contains(t, mod, "pub fn ctrl_mut(&mut self) -> &mut CTRL {")

	regs := out["timer/registers/mod.rs"]
	assert.Contains(t, regs, "pub enum TIMERRegType {\n    /// CTRL\n    CTRL,\n}")
	assert.Contains(t, regs, "            0x000 => Some(Self::CTRL),\n")
	assert.Contains(t, regs, "            Self::CTRL               => &RegInfo { offset: 0x000, perms: 0b110, reset: None },\n")
	assert.Contains(t, regs, "pub struct CTRL {\n    /// EN\n    #[bits(1)]\n    pub en: bool,\n    /// reserved\n    #[bits(31)]\n    pub __: u32,\n}")
	assert.NotContains(t, regs, "%")
}

func TestRenderDeterministic(t *testing.T) {
	dev := load(t, "demo.svd")
	for _, target := range Targets() {
		t.Run(target, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Target = target
			first, _, err := Render(dev, nil, cfg)
			require.NoError(t, err)
			second, _, err := Render(dev, nil, cfg)
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestRenderDerivedGroup(t *testing.T) {
	dev := load(t, "demo.svd")
	files, report, err := Render(dev, []string{"TIMER"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"mod.rs", "timer/mod.rs", "timer/registers/mod.rs", "timer/registers/ch.rs"}, report.Files)

	mod := rendered(t, files)["timer/mod.rs"]
	assert.Contains(t, mod, "pub const TIMER0_BASE: u32 = 0x40000000;\n")
	assert.Contains(t, mod, "pub const TIMER1_BASE: u32 = 0x40001000;\n")
	assert.Contains(t, mod, "pub const TIMER0_IRQ: u32 = 8;\n")
	assert.Contains(t, mod, "pub const TIMER1_IRQ: u32 = 9;\n")
	assert.Contains(t, mod, "pub fn events(&self, n: u8) -> &EVENTS {")
	assert.Contains(t, mod, "pub fn ch_data(&self, n: u8, i: u8) -> &ch::DATA {\n        let word_offset = TIMERRegType::CH(n, CHRegType::DATA(i)).offset() / 4;")
}

func TestRenderArrays(t *testing.T) {
	dev := load(t, "demo.svd")
	files, _, err := Render(dev, []string{"timer"}, nil)
	require.NoError(t, err)
	out := rendered(t, files)

	regs := out["timer/registers/mod.rs"]
	assert.Contains(t, regs, "0x010..=0x01f => Some(Self::EVENTS(((offset - 0x010) / 0x4) as u8)),")
	assert.Contains(t, regs, "0x100..=0x10f => CHRegType::lookup_offset(offset - 0x100).map(|reg| Self::CH(0, reg)),")
	assert.Contains(t, regs, "0x110..=0x11f => CHRegType::lookup_offset(offset - 0x110).map(|reg| Self::CH(1, reg)),")
	for i, off := range []string{"0x010", "0x014", "0x018", "0x01c"} {
		assert.Contains(t, regs, fmt.Sprintf("Self::EVENTS(%d)", i))
		assert.Contains(t, regs, "offset: "+off+", perms: 0b110, reset: Some(0x00000000) }")
	}
	assert.Contains(t, regs, "Self::STATUS             => &RegInfo { offset: 0x020, perms: 0b100, reset: Some(0x00000001) },")
	assert.Contains(t, regs, "Self::CH(1, CHRegType::DATA(1)) => &RegInfo { offset: 0x118, perms: 0b010, reset: Some(0x00000000) },")
	assert.Contains(t, regs, "pub mod ch;\npub use ch::CHRegType;\n")
	assert.Contains(t, regs, "    pub const EN_ENABLED: u32 = 0x1;\n")

	ch := out["timer/registers/ch.rs"]
	assert.Contains(t, ch, "if offset >= 0x0010 {")
	assert.Contains(t, ch, "0x000 => Some(Self::CFG),")
	assert.Contains(t, ch, "0x004..=0x00b => Some(Self::DATA(((offset - 0x004) / 0x4) as u8)),")
	assert.Contains(t, ch, "Self::DATA(1)    => &RegInfo { offset: 0x008, perms: 0b010, reset: Some(0x00000000) },")
}

func TestRenderKeywordField(t *testing.T) {
	dev := inline(t, `<register><name>MODE</name><addressOffset>0</addressOffset><fields>
		<field><name>TYPE</name><bitOffset>0</bitOffset><bitWidth>2</bitWidth></field>
		</fields></register>`)
	files, _, err := Render(dev, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, rendered(t, files)["p/registers/mod.rs"], "    #[bits(2)]\n    pub r#type: u8,\n")

	cfg := DefaultConfig()
	cfg.EscapePrefix = "f_"
	files, _, err = Render(dev, nil, cfg)
	require.NoError(t, err)
	assert.Contains(t, rendered(t, files)["p/registers/mod.rs"], "pub f_type: u8,")
}

func TestEmitSkipsUnknownGroups(t *testing.T) {
	dev := load(t, "demo.svd")
	sink := NewMemSink()
	report, err := Emit(dev, []string{"timer", "nope", "TIMER"}, sink, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"timer"}, report.Groups)
	require.Len(t, report.Skipped, 1)
	assert.True(t, errors.Is(report.Skipped[0], ErrUnknownPeripheral))
	assert.Contains(t, report.Skipped[0].Error(), "nope")

	root, ok := sink.File("mod.rs")
	require.True(t, ok)
	assert.Contains(t, string(root), "pub mod timer;")
	assert.NotContains(t, string(root), "nope")
	assert.NotContains(t, sink.Names(), "uart/mod.rs")
}

func TestEmitAllGroups(t *testing.T) {
	dev := load(t, "demo.svd")
	sink := NewMemSink()
	report, err := Emit(dev, nil, sink, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"timer", "uart"}, report.Groups)

	root, _ := sink.File("mod.rs")
	assert.Contains(t, string(root), "pub mod timer;\npub mod uart;\n")

	uart, ok := sink.File("uart/registers/mod.rs")
	require.True(t, ok)
	// writeOnce and read-writeOnce
	assert.Contains(t, string(uart), "offset: 0x000, perms: 0b010")
	assert.Contains(t, string(uart), "offset: 0x004, perms: 0b110")
}

func TestEmitOverlapWritesNothing(t *testing.T) {
	dev := inline(t, `
		<register><name>A</name><addressOffset>0</addressOffset></register>
		<register><name>B</name><addressOffset>0</addressOffset></register>`)
	sink := NewMemSink()
	_, err := Emit(dev, nil, sink, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOverlappingLayout))
	assert.Empty(t, sink.Names())
}

func TestRenderGo(t *testing.T) {
	dev := load(t, "demo.svd")
	cfg := DefaultConfig()
	cfg.Target = "go"
	files, report, err := Render(dev, []string{"timer"}, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"peripherals.go", "timer/timer.go", "timer/registers.go", "timer/cluster_ch.go"}, report.Files)

	out := rendered(t, files)
	assert.Contains(t, out["peripherals.go"], "package demo")
	assert.Contains(t, out["peripherals.go"], `"timer",`)

	periph := out["timer/timer.go"]
	assert.Contains(t, periph, "package timer")
	assert.Contains(t, periph, "TIMER1Base uint32 = 0x40001000")
	assert.Contains(t, periph, "func (s *State) CHDATA(n uint8, i uint8) *CHDATA {")

	regs := out["timer/registers.go"]
	assert.Contains(t, regs, "func LookupOffset(offset uint32) (Reg, bool) {")
	assert.Contains(t, regs, "Reg{Kind: KindCH, N: 1, Local: uint8(CHKindDATA), LocalN: 1}")
	assert.Contains(t, regs, "type CTRL uint32")
	assert.Contains(t, regs, "CTRLENEnabled")

	assert.Contains(t, out["timer/cluster_ch.go"], "func LookupCHOffset(offset uint32) (CHReg, bool) {")
	assert.Contains(t, out["timer/cluster_ch.go"], "type CHCFG uint32")
}

func TestTemplateOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "device.rs"), []byte("// override for /*% device_name %*/\n"), 0o644))

	cfg := DefaultConfig()
	cfg.Templates = dir
	files, _, err := Render(load(t, "scenario.svd"), nil, cfg)
	require.NoError(t, err)

	out := rendered(t, files)
	assert.Equal(t, "// override for DEMO\n", out["mod.rs"])
	assert.Contains(t, out["timer/registers/mod.rs"], "pub enum TIMERRegType")
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Target = "cobol"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown target")
	assert.Contains(t, err.Error(), "go, rust")

	cfg = DefaultConfig()
	cfg.Templates = filepath.Join(t.TempDir(), "missing")
	assert.Error(t, cfg.Validate())

	cfg = &Config{Target: "GO"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "go", cfg.Dialect().Name())
}

func TestCheck(t *testing.T) {
	dev := load(t, "demo.svd")
	root := t.TempDir()
	_, err := Emit(dev, nil, DirSink{Root: root}, nil)
	require.NoError(t, err)

	diffs, _, err := Check(dev, nil, root, nil)
	require.NoError(t, err)
	assert.Empty(t, diffs)

	modPath := filepath.Join(root, "timer", "mod.rs")
	data, err := os.ReadFile(modPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(modPath, append(data, "// local edit\n"...), 0o644))
	require.NoError(t, os.Remove(filepath.Join(root, "uart", "registers", "mod.rs")))

	diffs, _, err = Check(dev, nil, root, nil)
	require.NoError(t, err)
	require.Len(t, diffs, 2)

	assert.Equal(t, "timer/mod.rs", diffs[0].Path)
	assert.False(t, diffs[0].Missing)
	assert.Contains(t, diffs[0].Diff, "-// local edit\n")

	assert.Equal(t, "uart/registers/mod.rs", diffs[1].Path)
	assert.True(t, diffs[1].Missing)
}

func TestLineDiff(t *testing.T) {
	diff := LineDiff("a\nb\nc\n", "a\nB\nc\n")
	assert.Equal(t, " a\n-b\n+B\n c\n", diff)
	assert.Empty(t, strings.TrimSpace(LineDiff("", "")))
}
