package device

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/svdgen/pkg/svd"
)

const testdata = "../../testdata"

func load(t *testing.T, name string) *Device {
	t.Helper()
	doc, err := svd.Load(filepath.Join(testdata, name), svd.Options{})
	require.NoError(t, err)
	dev, err := Build(doc)
	require.NoError(t, err)
	return dev
}

func buildString(src string) (*Device, error) {
	doc, err := svd.Parse(strings.NewReader(src), svd.Options{})
	if err != nil {
		return nil, err
	}
	return Build(doc)
}

// peripheral wraps registers into a one-peripheral device.
func peripheral(registers string) string {
	return `<device><name>T</name><peripherals><peripheral><name>P</name><groupName>P</groupName>
		<baseAddress>0x1000</baseAddress><addressBlock><offset>0</offset><size>0x100</size></addressBlock>
		<registers>` + registers + `</registers></peripheral></peripherals></device>`
}

func TestScenarioDevice(t *testing.T) {
	dev := load(t, "scenario.svd")
	assert.Equal(t, "DEMO", dev.Name)
	require.Equal(t, []string{"timer"}, dev.GroupNames())

	timer, ok := dev.Group("TIMER")
	require.True(t, ok)
	assert.Equal(t, uint64(0x400), timer.ByteSize())
	assert.Equal(t, uint64(0x100), timer.BackingWords())
	assert.Equal(t, uint64(0x40000000), timer.Instances["TIMER"].BaseAddress)

	require.Len(t, timer.Registers, 1)
	ctrl, ok := timer.Registers[0].(*Register)
	require.True(t, ok)
	assert.Equal(t, "CTRL", ctrl.Name)
	assert.Equal(t, uint64(0), ctrl.AddressOffset)
	require.Len(t, ctrl.Fields, 2)
	assert.Equal(t, Field{Name: "EN", BitOffset: 0, BitWidth: 1}, ctrl.Fields[0])
	assert.True(t, ctrl.Fields[1].Reserved)
	assert.Equal(t, uint64(1), ctrl.Fields[1].BitOffset)
	assert.Equal(t, uint64(31), ctrl.Fields[1].BitWidth)
}

func TestDemoDevice(t *testing.T) {
	dev := load(t, "demo.svd")
	assert.Equal(t, []string{"timer", "uart"}, dev.GroupNames())

	timer, _ := dev.Group("timer")
	assert.Equal(t, []string{"TIMER0", "TIMER1"}, timer.InstanceNames())
	assert.Equal(t, uint64(0x40001000), timer.Instances["TIMER1"].BaseAddress)
	assert.Equal(t, []Interrupt{{Name: "TIMER1", Value: 9}}, timer.Instances["TIMER1"].Interrupts)

	require.Len(t, timer.Registers, 4)
	events := timer.Registers[1].(*Register)
	assert.Equal(t, "EVENTS", events.BaseName())
	require.NotNil(t, events.Dim)
	assert.Equal(t, []uint64{0x10, 0x14, 0x18, 0x1C}, events.Dim.Offsets(events.AddressOffset))

	status := timer.Registers[2].(*Register)
	assert.Equal(t, ReadOnly, status.Access)
	require.NotNil(t, status.ResetValue)
	assert.Equal(t, uint64(1), *status.ResetValue)

	ctrl := timer.Registers[0].(*Register)
	assert.Equal(t, ReadWrite, ctrl.Access, "inherited from the device")
	require.NotNil(t, ctrl.ResetValue)
	assert.Equal(t, uint64(0), *ctrl.ResetValue)
	assert.Equal(t, []EnumValue{{Name: "Disabled", Value: 0}, {Name: "Enabled", Value: 1}}, ctrl.Fields[0].Values)

	ch := timer.Registers[3].(*Cluster)
	assert.Equal(t, "CH", ch.BaseName())
	assert.Equal(t, uint64(16), ch.Size, "DATA[%s] ends at 4 + 2*4 + 4")
	data := ch.Children[1].(*Register)
	assert.Equal(t, WriteOnly, data.Access)

	uart, _ := dev.Group("uart")
	txd := uart.Registers[0].(*Register)
	assert.Equal(t, WriteOnce, txd.Access)
	config := uart.Registers[1].(*Register)
	assert.Equal(t, ReadWriteOnce, config.Access)
}

func TestFieldCompleteness(t *testing.T) {
	dev := load(t, "demo.svd")
	for _, name := range dev.GroupNames() {
		g := dev.Groups[name]
		var walk func(entries []Entry)
		walk = func(entries []Entry) {
			for _, e := range entries {
				switch v := e.(type) {
				case *Register:
					var total, cursor uint64
					for _, f := range v.Fields {
						assert.Equal(t, cursor, f.BitOffset, "%s.%s contiguous", name, v.Name)
						total += f.BitWidth
						cursor = f.BitOffset + f.BitWidth
					}
					assert.Equal(t, uint64(RegisterBits), total, "%s.%s", name, v.Name)
				case *Cluster:
					walk(v.Children)
				}
			}
		}
		walk(g.Registers)
	}
}

func TestFillFields(t *testing.T) {
	fields, err := FillFields("R", []Field{
		{Name: "HI", BitOffset: 16, BitWidth: 8},
		{Name: "LO", BitOffset: 2, BitWidth: 2},
	})
	require.NoError(t, err)

	var layout []string
	for _, f := range fields {
		layout = append(layout, f.Name)
	}
	assert.Equal(t, []string{"reserved0", "LO", "reserved4", "HI", "reserved24"}, layout)

	_, err = FillFields("R", []Field{{Name: "WIDE", BitOffset: 30, BitWidth: 4}})
	assert.True(t, svd.IsKind(err, svd.KindFieldOverflow), "got %v", err)

	_, err = FillFields("R", []Field{
		{Name: "A", BitOffset: 0, BitWidth: 4},
		{Name: "B", BitOffset: 3, BitWidth: 2},
	})
	assert.True(t, svd.IsKind(err, svd.KindFieldOverlap), "got %v", err)

	full, err := FillFields("R", []Field{{Name: "ALL", BitOffset: 0, BitWidth: 32}})
	require.NoError(t, err)
	assert.Len(t, full, 1)
}

func TestParseAccess(t *testing.T) {
	tests := []struct {
		in   string
		want uint8
	}{
		{"read-only", 0b100},
		{"write-only", 0b010},
		{"read-write", 0b110},
		{"writeonce", 0b010},
		{"writeOnce", 0b010},
		{"read-writeonce", 0b110},
		{"read-writeOnce", 0b110},
	}
	for _, tt := range tests {
		a, err := ParseAccess(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, a.Bits(), tt.in)
	}

	for _, bad := range []string{"", "rw", "read", "execute", "READ-ONLY", "Read-Write", "WriteOnce", "read-WriteOnce"} {
		_, err := ParseAccess(bad)
		assert.True(t, svd.IsKind(err, svd.KindAccess), "%q: %v", bad, err)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		regs string
		kind svd.Kind
	}{
		{
			name: "unknown access",
			regs: `<register><name>R</name><addressOffset>0</addressOffset><access>sometimes</access></register>`,
			kind: svd.KindAccess,
		},
		{
			name: "field overflow",
			regs: `<register><name>R</name><addressOffset>0</addressOffset><fields>
				<field><name>F</name><bitRange>[32:1]</bitRange></field></fields></register>`,
			kind: svd.KindFieldOverflow,
		},
		{
			name: "empty cluster",
			regs: `<cluster><name>C</name><addressOffset>0</addressOffset></cluster>`,
			kind: svd.KindEmptyCluster,
		},
		{
			name: "nested cluster",
			regs: `<cluster><name>C</name><addressOffset>0</addressOffset>
				<cluster><name>D</name><addressOffset>0</addressOffset>
				<register><name>R</name><addressOffset>0</addressOffset></register></cluster></cluster>`,
			kind: svd.KindNestedCluster,
		},
		{
			name: "missing offset",
			regs: `<register><name>R</name></register>`,
			kind: svd.KindMissingElement,
		},
		{
			name: "dimIndex length",
			regs: `<register><dim>3</dim><dimIncrement>4</dimIncrement><dimIndex>A,B</dimIndex>
				<name>R%s</name><addressOffset>0</addressOffset></register>`,
			kind: svd.KindDimIndex,
		},
		{
			name: "zero increment",
			regs: `<register><dim>3</dim><dimIncrement>0</dimIncrement>
				<name>R[%s]</name><addressOffset>0</addressOffset></register>`,
			kind: svd.KindNumber,
		},
		{
			name: "unknown register source",
			regs: `<register derivedFrom="X"><name>R</name><addressOffset>0</addressOffset></register>`,
			kind: svd.KindDerivation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildString(peripheral(tt.regs))
			require.ErrorIs(t, err, svd.ErrMalformedDescription)
			assert.True(t, svd.IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestRegisterDerivation(t *testing.T) {
	dev, err := buildString(peripheral(`
		<register><name>A</name><description>first</description><addressOffset>0</addressOffset>
			<access>read-only</access><fields><field><name>F</name><bitRange>[3:0]</bitRange></field></fields></register>
		<register derivedFrom="A"><name>B</name><addressOffset>4</addressOffset></register>`))
	require.NoError(t, err)

	g, _ := dev.Group("p")
	b := g.Registers[1].(*Register)
	assert.Equal(t, "first", b.Description)
	assert.Equal(t, ReadOnly, b.Access)
	assert.Equal(t, "F", b.Fields[0].Name)
	assert.Equal(t, uint64(4), b.AddressOffset)
}

func TestDimIndexNames(t *testing.T) {
	dev, err := buildString(peripheral(`<register><dim>3</dim><dimIncrement>4</dimIncrement>
		<dimIndex>A-C</dimIndex><name>R%s</name><addressOffset>0</addressOffset></register>`))
	require.NoError(t, err)
	g, _ := dev.Group("p")
	r := g.Registers[0].(*Register)
	assert.Equal(t, []string{"A", "B", "C"}, r.Dim.Index)
	assert.Equal(t, "R", r.BaseName())
}
